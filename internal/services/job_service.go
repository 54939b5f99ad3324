package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joshua-takyi/gigboard/internal/metrics"
	"github.com/joshua-takyi/gigboard/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JobNotifier receives job events that produce notifications. Calls must not block.
type JobNotifier interface {
	NotifyJobCreated(job *models.Job)
	NotifyInterest(job *models.Job, interestedID primitive.ObjectID)
}

type JobService struct {
	jobs     models.JobRepo
	notifier JobNotifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	zone     *time.Location
	now      func() time.Time
}

func NewJobService(jobs models.JobRepo, notifier JobNotifier, m *metrics.Metrics, logger *slog.Logger, zone *time.Location) *JobService {
	if zone == nil {
		zone = time.UTC
	}
	return &JobService{
		jobs:     jobs,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		zone:     zone,
		now:      time.Now,
	}
}

// JobListingPage is a page of jobs with their posters. The urgency feeds
// also echo the location and urgency they were asked for.
type JobListingPage struct {
	Jobs       []*models.JobListing `json:"jobs"`
	Location   string               `json:"location,omitempty"`
	Urgency    models.Urgency       `json:"urgency,omitempty"`
	Pagination models.Pagination    `json:"pagination"`
}

// ListJobs is public discovery: only active, open jobs are returned.
func (js *JobService) ListJobs(ctx context.Context, filter models.JobFilter, sort models.SortSpec, page models.PageSpec) (*JobListingPage, error) {
	filter.OwnerID = primitive.NilObjectID
	filter.ActiveOnly = true
	filter.Status = models.JobStatusOpen
	if filter.Urgency != "" && filter.Urgency != models.UrgencyUrgent && filter.Urgency != models.UrgencyNormal {
		return nil, models.NewValidationError("urgency must be one of: Urgent, Normal")
	}
	if filter.JobType != "" && filter.JobType != models.JobTypeOnSite && filter.JobType != models.JobTypePickup {
		return nil, models.NewValidationError("job type must be one of: Pickup, OnSite")
	}

	jobs, total, err := js.jobs.ListJobs(ctx, filter, sort, page)
	if err != nil {
		return nil, err
	}
	return &JobListingPage{Jobs: jobs, Pagination: models.NewPagination(page.Page, page.Limit, total)}, nil
}

// ListMyJobs returns the owner's jobs whatever their status or active flag.
func (js *JobService) ListMyJobs(ctx context.Context, owner primitive.ObjectID, status models.JobStatus, sort models.SortSpec, page models.PageSpec) (*JobListingPage, error) {
	if status != "" && !status.Valid() {
		return nil, models.NewValidationError("Invalid status. Must be one of: open, completed, cancelled")
	}
	filter := models.JobFilter{OwnerID: owner, Status: status}
	jobs, total, err := js.jobs.ListJobs(ctx, filter, sort, page)
	if err != nil {
		return nil, err
	}
	return &JobListingPage{Jobs: jobs, Pagination: models.NewPagination(page.Page, page.Limit, total)}, nil
}

// ListByUrgencyNearLocation feeds the hot and normal listings. Past-due jobs
// are deactivated first so they drop out of the results.
func (js *JobService) ListByUrgencyNearLocation(ctx context.Context, urgency models.Urgency, location string, excludeID primitive.ObjectID, sort models.SortSpec, page models.PageSpec) (*JobListingPage, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, models.NewValidationError("Location parameter is required")
	}
	if urgency != models.UrgencyUrgent && urgency != models.UrgencyNormal {
		return nil, models.NewValidationError("urgency must be one of: Urgent, Normal")
	}

	if _, err := js.sweep(ctx, false, "feed"); err != nil {
		js.logger.Warn("opportunistic job sweep failed", "error", err)
	}

	jobs, total, err := js.jobs.ListNearbyJobs(ctx, models.NearbyQuery{
		Urgency:       urgency,
		Location:      location,
		ExcludeUserID: excludeID,
		Sort:          sort,
		Page:          page,
	})
	if err != nil {
		return nil, err
	}
	return &JobListingPage{
		Jobs:       jobs,
		Location:   location,
		Urgency:    urgency,
		Pagination: models.NewPagination(page.Page, page.Limit, total),
	}, nil
}

// ExpireOldJobs deactivates and cancels every open job whose scheduled moment
// has passed, active or not.
func (js *JobService) ExpireOldJobs(ctx context.Context) (*models.SweepResult, error) {
	return js.sweep(ctx, true, "admin")
}

// RunScheduledSweep is the cron entry point.
func (js *JobService) RunScheduledSweep(ctx context.Context) {
	res, err := js.sweep(ctx, true, "sweep")
	if err != nil {
		js.logger.Error("scheduled job sweep failed", "error", err)
		return
	}
	js.logger.Info("scheduled job sweep finished", "checked", res.Checked, "matched", res.Matched, "updated", res.Updated)
}

func (js *JobService) sweep(ctx context.Context, cancel bool, mode string) (*models.SweepResult, error) {
	candidates, err := js.jobs.FindSweepCandidates(ctx, !cancel)
	if err != nil {
		return nil, err
	}

	now := js.now()
	var expired []primitive.ObjectID
	for _, c := range candidates {
		if models.IsPastDue(c.ScheduledDate, c.ScheduledTime, now, js.zone) {
			expired = append(expired, c.ID)
		}
	}

	res := &models.SweepResult{Checked: len(candidates), Matched: len(expired)}
	if len(expired) == 0 {
		return res, nil
	}
	updated, err := js.jobs.ExpireJobs(ctx, expired, cancel)
	if err != nil {
		return nil, err
	}
	res.Updated = updated
	if js.metrics != nil {
		js.metrics.JobsExpired.WithLabelValues(mode).Add(float64(updated))
	}
	return res, nil
}

// RecordInterest adds userID to the job's interest list. alreadyRecorded is
// true when the user had registered interest before; nothing is written then.
func (js *JobService) RecordInterest(ctx context.Context, jobID, userID primitive.ObjectID) (alreadyRecorded bool, err error) {
	job, err := js.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return false, err
	}
	if !job.IsActive || job.Status != models.JobStatusOpen {
		return false, models.NewValidationError("This job is no longer accepting interest")
	}
	if job.ResponsePreference != models.ResponseShowInterest {
		return false, models.NewValidationError("This job does not accept interest requests")
	}
	if job.PostedBy == userID {
		return false, models.NewValidationError("You cannot express interest in your own job")
	}
	if job.HasInterestFrom(userID) {
		return true, nil
	}

	added, err := js.jobs.AddInterest(ctx, jobID, userID, js.now())
	if err != nil {
		return false, err
	}
	if !added {
		return true, nil
	}

	if js.metrics != nil {
		js.metrics.InterestsRecorded.Inc()
	}
	js.notifier.NotifyInterest(job, userID)
	return false, nil
}

func (js *JobService) CreateJob(ctx context.Context, owner primitive.ObjectID, in *models.JobInput) (*models.JobListing, error) {
	in.Sanitize()
	if err := models.Validate.Struct(in); err != nil {
		return nil, models.NewValidationError("%s", models.ValidationMessage(err))
	}
	if err := in.Location.Validate(in.JobType); err != nil {
		return nil, err
	}
	date, err := js.checkScheduledDate(in.ScheduledDate)
	if err != nil {
		return nil, err
	}
	attachments, err := checkAttachments(in.Attachments)
	if err != nil {
		return nil, err
	}

	job := &models.Job{
		Title:              in.Title,
		Description:        in.Description,
		Cost:               in.Cost,
		JobType:            in.JobType,
		Location:           *in.Location,
		Urgency:            in.Urgency,
		ScheduledDate:      date,
		ScheduledTime:      in.ScheduledTime,
		ResponsePreference: in.ResponsePreference,
		Attachments:        attachments,
		Status:             models.JobStatusOpen,
		PostedBy:           owner,
		IsActive:           true,
	}
	created, err := js.jobs.CreateJob(ctx, job)
	if err != nil {
		return nil, err
	}

	if js.metrics != nil {
		js.metrics.JobsCreated.Inc()
	}
	js.logger.Info("job created", "job_id", created.ID.Hex(), "owner", owner.Hex(), "job_type", created.JobType)
	js.notifier.NotifyJobCreated(created)
	return js.withPoster(ctx, created), nil
}

// withPoster reloads job with its poster. The job itself has already been
// written, so a failed reload only costs the poster.
func (js *JobService) withPoster(ctx context.Context, job *models.Job) *models.JobListing {
	listing, err := js.jobs.GetJobListing(ctx, job.ID)
	if err != nil {
		js.logger.Warn("failed to load job poster", "job_id", job.ID.Hex(), "error", err)
		return &models.JobListing{Job: *job}
	}
	return listing
}

// GetJob hides deactivated jobs.
func (js *JobService) GetJob(ctx context.Context, id primitive.ObjectID) (*models.JobListing, error) {
	job, err := js.jobs.GetJobListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if !job.IsActive {
		return nil, models.NewNotFoundError("job not found")
	}
	return job, nil
}

// UpdateJob applies patch and republishes the job: status goes back to open
// and the job becomes active again.
func (js *JobService) UpdateJob(ctx context.Context, id, owner primitive.ObjectID, patch *models.JobPatch) (*models.JobListing, error) {
	if patch == nil || patch.Empty() {
		return nil, models.NewValidationError("no valid fields provided for update")
	}
	job, err := js.ownedJob(ctx, id, owner, "Not authorized to update this job")
	if err != nil {
		return nil, err
	}

	var update models.JobUpdate
	if patch.Title != nil {
		v, err := checkText("title", *patch.Title, 100)
		if err != nil {
			return nil, err
		}
		update.Title = &v
	}
	if patch.Description != nil {
		v, err := checkText("description", *patch.Description, 2000)
		if err != nil {
			return nil, err
		}
		update.Description = &v
	}
	if patch.Cost != nil {
		v, err := checkText("cost", *patch.Cost, 100)
		if err != nil {
			return nil, err
		}
		update.Cost = &v
	}
	if patch.ScheduledTime != nil {
		v, err := checkText("scheduled time", *patch.ScheduledTime, 20)
		if err != nil {
			return nil, err
		}
		update.ScheduledTime = &v
	}

	jobType := job.JobType
	if patch.JobType != nil {
		if *patch.JobType != models.JobTypeOnSite && *patch.JobType != models.JobTypePickup {
			return nil, models.NewValidationError("job type must be one of: Pickup, OnSite")
		}
		jobType = *patch.JobType
		update.JobType = patch.JobType
	}
	location := job.Location
	if patch.Location != nil {
		location = *patch.Location
		update.Location = patch.Location
	}
	if patch.JobType != nil || patch.Location != nil {
		if err := location.Validate(jobType); err != nil {
			return nil, err
		}
	}

	if patch.Urgency != nil {
		if *patch.Urgency != models.UrgencyUrgent && *patch.Urgency != models.UrgencyNormal {
			return nil, models.NewValidationError("urgency must be one of: Urgent, Normal")
		}
		update.Urgency = patch.Urgency
	}
	if patch.ResponsePreference != nil {
		if *patch.ResponsePreference != models.ResponseDirectContact && *patch.ResponsePreference != models.ResponseShowInterest {
			return nil, models.NewValidationError("response preference must be one of: direct_contact, show_interest")
		}
		update.ResponsePreference = patch.ResponsePreference
	}
	if patch.ScheduledDate != nil {
		date, err := js.checkScheduledDate(*patch.ScheduledDate)
		if err != nil {
			return nil, err
		}
		update.ScheduledDate = &date
	}
	if patch.Attachments != nil {
		attachments, err := checkAttachments(*patch.Attachments)
		if err != nil {
			return nil, err
		}
		update.Attachments = &attachments
	}

	open := models.JobStatusOpen
	active := true
	update.Status = &open
	update.IsActive = &active

	updated, err := js.jobs.UpdateJob(ctx, id, update)
	if err != nil {
		return nil, err
	}
	return js.withPoster(ctx, updated), nil
}

// DeleteJob soft-deletes by deactivating.
func (js *JobService) DeleteJob(ctx context.Context, id, owner primitive.ObjectID) error {
	if _, err := js.ownedJob(ctx, id, owner, "Not authorized to delete this job"); err != nil {
		return err
	}
	inactive := false
	_, err := js.jobs.UpdateJob(ctx, id, models.JobUpdate{IsActive: &inactive})
	return err
}

func (js *JobService) UpdateStatus(ctx context.Context, id, owner primitive.ObjectID, status models.JobStatus) (*models.Job, error) {
	if !status.Valid() {
		return nil, models.NewValidationError("Invalid status. Must be one of: open, completed, cancelled")
	}
	if _, err := js.ownedJob(ctx, id, owner, "Not authorized to update this job status"); err != nil {
		return nil, err
	}
	update := models.JobUpdate{Status: &status}
	if status == models.JobStatusCompleted {
		now := js.now()
		update.CompletedAt = &now
	}
	return js.jobs.UpdateJob(ctx, id, update)
}

func (js *JobService) ownedJob(ctx context.Context, id, owner primitive.ObjectID, denied string) (*models.Job, error) {
	job, err := js.jobs.GetJobByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.PostedBy != owner {
		return nil, models.NewAuthorizationError("%s", denied)
	}
	return job, nil
}

func (js *JobService) checkScheduledDate(raw string) (time.Time, error) {
	date, err := models.ParseScheduledDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	if models.IsBeforeToday(date, js.now(), js.zone) {
		return time.Time{}, models.NewValidationError("Scheduled date cannot be in the past")
	}
	return date, nil
}

func checkText(field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", models.NewValidationError("%s cannot be empty", field)
	}
	if len([]rune(value)) > max {
		return "", models.NewValidationError("%s cannot be more than %d characters", field, max)
	}
	return value, nil
}

func checkAttachments(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	if len(out) > models.MaxAttachments {
		return nil, models.NewValidationError("Cannot have more than %d attachments", models.MaxAttachments)
	}
	return out, nil
}
