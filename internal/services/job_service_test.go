package services

import (
	"context"
	"testing"
	"time"

	"github.com/joshua-takyi/gigboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type jobHarness struct {
	users      *fakeUserRepo
	jobs       *fakeJobRepo
	notes      *fakeNotificationRepo
	dispatcher *Dispatcher
	svc        *JobService
}

func newJobHarness(t *testing.T) *jobHarness {
	t.Helper()
	logger := testLogger()
	users := newFakeUserRepo()
	jobs := newFakeJobRepo(users)
	notes := &fakeNotificationRepo{}
	dispatcher := NewDispatcher(logger, nil, 2, 32, time.Second)
	notifier := NewNotificationService(notes, users, dispatcher, nil, logger)
	svc := NewJobService(jobs, notifier, nil, logger, time.UTC)
	svc.now = fixedClock(testNow)

	h := &jobHarness{users: users, jobs: jobs, notes: notes, dispatcher: dispatcher, svc: svc}
	t.Cleanup(func() { _ = dispatcher.Shutdown(context.Background()) })
	return h
}

// drain waits for every queued notification task.
func (h *jobHarness) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.dispatcher.Shutdown(ctx))
}

func (h *jobHarness) user(phone, location string, complete, active bool) *models.User {
	return h.users.add(&models.User{
		PhoneNumber: phone,
		IsActive:    active,
		Profile: models.Profile{
			FullName:          "User " + phone,
			Location:          location,
			IsProfileComplete: complete,
		},
	})
}

func (h *jobHarness) storedJob(owner primitive.ObjectID, urgency models.Urgency, date time.Time, clock string) *models.Job {
	return h.jobs.put(&models.Job{
		Title:              "Move boxes",
		JobType:            models.JobTypeOnSite,
		Location:           models.SiteLocation(gym),
		Urgency:            urgency,
		ScheduledDate:      date,
		ScheduledTime:      clock,
		ResponsePreference: models.ResponseShowInterest,
		Status:             models.JobStatusOpen,
		PostedBy:           owner,
		IsActive:           true,
	})
}

var (
	gym     = models.Place{ID: "l1", Name: "Downtown Gym", FullAddress: "12 Main Street", Latitude: 5.6, Longitude: -0.2}
	airport = models.Place{ID: "l2", Name: "Airport", FullAddress: "Airport Residential", Latitude: 5.6, Longitude: -0.17}
)

func onSiteInput(place models.Place, date string, pref models.ResponsePreference) *models.JobInput {
	loc := models.SiteLocation(place)
	return &models.JobInput{
		Title:              "Help at the gym",
		Description:        "Need someone to set up equipment",
		Cost:               "GHS 200",
		JobType:            models.JobTypeOnSite,
		Location:           &loc,
		Urgency:            models.UrgencyUrgent,
		ScheduledDate:      date,
		ScheduledTime:      "9:00 AM",
		ResponsePreference: pref,
	}
}

func day(offset int) time.Time {
	d := testNow.AddDate(0, 0, offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func TestCreateJobNotifiesMatchingUsersOnly(t *testing.T) {
	h := newJobHarness(t)
	creator := h.user("+233200000001", "Downtown Gym", true, true)
	nearby := h.user("+233200000002", "Near Downtown Gym area", true, true)
	street := h.user("+233200000003", "off 12 main street", true, true)
	far := h.user("+233200000004", "Airport Residential", true, true)
	incomplete := h.user("+233200000005", "Downtown Gym", false, true)
	inactive := h.user("+233200000006", "Downtown Gym", true, false)

	job, err := h.svc.CreateJob(context.Background(), creator.ID, onSiteInput(gym, "2026-03-11", models.ResponseShowInterest))
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusOpen, job.Status)
	assert.True(t, job.IsActive)
	h.drain(t)

	for _, u := range []*models.User{nearby, street} {
		got := h.notes.forRecipient(u.ID, models.NotificationJobCreated)
		require.Len(t, got, 1, u.Profile.Location)
		assert.Equal(t, job.ID, got[0].RelatedEntityID)
		assert.Equal(t, models.RelatedEntityJob, got[0].RelatedEntityType)
	}
	for _, u := range []*models.User{creator, far, incomplete, inactive} {
		assert.Empty(t, h.notes.forRecipient(u.ID, ""), u.PhoneNumber)
	}
	assert.Len(t, h.notes.all(), 2)
}

func TestCreateJobValidation(t *testing.T) {
	h := newJobHarness(t)
	owner := primitive.NewObjectID()
	ctx := context.Background()

	past := onSiteInput(gym, "2026-03-09", models.ResponseDirectContact)
	_, err := h.svc.CreateJob(ctx, owner, past)
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	today := onSiteInput(gym, "2026-03-10", models.ResponseDirectContact)
	today.ScheduledTime = "6:00 AM"
	_, err = h.svc.CreateJob(ctx, owner, today)
	assert.NoError(t, err, "today is allowed even when the time has passed")

	many := onSiteInput(gym, "2026-03-11", models.ResponseDirectContact)
	many.Attachments = []string{"a", "b", "c", "d", "e", "f"}
	_, err = h.svc.CreateJob(ctx, owner, many)
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	wrongShape := onSiteInput(gym, "2026-03-11", models.ResponseDirectContact)
	wrongShape.JobType = models.JobTypePickup
	_, err = h.svc.CreateJob(ctx, owner, wrongShape)
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	missing := onSiteInput(gym, "2026-03-11", models.ResponseDirectContact)
	missing.Title = "   "
	_, err = h.svc.CreateJob(ctx, owner, missing)
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	badEnum := onSiteInput(gym, "2026-03-11", "maybe")
	_, err = h.svc.CreateJob(ctx, owner, badEnum)
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestCreatePickupJob(t *testing.T) {
	h := newJobHarness(t)
	route := models.RouteLocation(gym, airport)
	in := onSiteInput(gym, "2026-03-12", models.ResponseDirectContact)
	in.JobType = models.JobTypePickup
	in.Location = &route

	job, err := h.svc.CreateJob(context.Background(), primitive.NewObjectID(), in)
	require.NoError(t, err)
	require.NotNil(t, job.Location.Route)
	assert.Equal(t, day(2), job.ScheduledDate)
}

func TestRecordInterestRequiresShowInterest(t *testing.T) {
	h := newJobHarness(t)
	job := h.storedJob(primitive.NewObjectID(), models.UrgencyNormal, day(1), "10:00")
	pref := models.ResponseDirectContact
	_, err := h.jobs.UpdateJob(context.Background(), job.ID, models.JobUpdate{ResponsePreference: &pref})
	require.NoError(t, err)

	_, err = h.svc.RecordInterest(context.Background(), job.ID, primitive.NewObjectID())
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestRecordInterestRejections(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()
	owner := primitive.NewObjectID()
	job := h.storedJob(owner, models.UrgencyNormal, day(1), "10:00")

	_, err := h.svc.RecordInterest(ctx, job.ID, owner)
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	_, err = h.svc.RecordInterest(ctx, primitive.NewObjectID(), primitive.NewObjectID())
	assert.True(t, models.IsNotFound(err))

	closed := models.JobStatusCompleted
	_, err = h.jobs.UpdateJob(ctx, job.ID, models.JobUpdate{Status: &closed})
	require.NoError(t, err)
	_, err = h.svc.RecordInterest(ctx, job.ID, primitive.NewObjectID())
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

// vanishingJobRepo deletes a job right after handing it out.
type vanishingJobRepo struct {
	*fakeJobRepo
}

func (r vanishingJobRepo) GetJobByID(ctx context.Context, id primitive.ObjectID) (*models.Job, error) {
	j, err := r.fakeJobRepo.GetJobByID(ctx, id)
	if err == nil {
		r.mu.Lock()
		delete(r.jobs, id)
		r.mu.Unlock()
	}
	return j, err
}

func TestRecordInterestOnJobRemovedMeanwhile(t *testing.T) {
	h := newJobHarness(t)
	job := h.storedJob(primitive.NewObjectID(), models.UrgencyNormal, day(1), "10:00")
	svc := NewJobService(vanishingJobRepo{h.jobs}, h.svc.notifier, nil, testLogger(), time.UTC)
	svc.now = fixedClock(testNow)

	already, err := svc.RecordInterest(context.Background(), job.ID, primitive.NewObjectID())
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
	assert.False(t, already)
	h.drain(t)
	assert.Empty(t, h.notes.all())
}

func TestRecordInterestIsIdempotent(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()
	owner := h.user("+233200000010", "Kumasi", true, true)
	fan := h.user("+233200000011", "Accra", true, true)
	job := h.storedJob(owner.ID, models.UrgencyUrgent, day(1), "10:00")

	already, err := h.svc.RecordInterest(ctx, job.ID, fan.ID)
	require.NoError(t, err)
	assert.False(t, already)

	already, err = h.svc.RecordInterest(ctx, job.ID, fan.ID)
	require.NoError(t, err)
	assert.True(t, already)
	h.drain(t)

	stored := h.jobs.get(job.ID)
	require.Len(t, stored.InterestedUsers, 1)
	assert.Equal(t, fan.ID, stored.InterestedUsers[0].User)

	got := h.notes.forRecipient(owner.ID, models.NotificationJobInterest)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Message, fan.Profile.FullName)
}

func TestExpireOldJobs(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()
	owner := primitive.NewObjectID()

	yesterdayLate := h.storedJob(owner, models.UrgencyUrgent, day(-1), "11:00 PM")
	todayPast := h.storedJob(owner, models.UrgencyNormal, day(0), "9:30 AM")
	todayFuture := h.storedJob(owner, models.UrgencyNormal, day(0), "13:00")
	unparseable := h.storedJob(owner, models.UrgencyNormal, day(-3), "whenever")
	inactive := h.storedJob(owner, models.UrgencyNormal, day(-2), "08:00")
	off := false
	_, err := h.jobs.UpdateJob(ctx, inactive.ID, models.JobUpdate{IsActive: &off})
	require.NoError(t, err)

	res, err := h.svc.ExpireOldJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Checked)
	assert.Equal(t, 3, res.Matched)
	assert.Equal(t, int64(3), res.Updated)

	for _, j := range []*models.Job{yesterdayLate, todayPast, inactive} {
		stored := h.jobs.get(j.ID)
		assert.False(t, stored.IsActive)
		assert.Equal(t, models.JobStatusCancelled, stored.Status)
	}
	for _, j := range []*models.Job{todayFuture, unparseable} {
		stored := h.jobs.get(j.ID)
		assert.True(t, stored.IsActive)
		assert.Equal(t, models.JobStatusOpen, stored.Status)
	}

	again, err := h.svc.ExpireOldJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.Updated)
	assert.Equal(t, 0, again.Matched)
}

func TestListByUrgencyNearLocationSweepsFirst(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()
	poster := h.user("+233200000020", "Adum, Kumasi", true, true)
	viewer := h.user("+233200000021", "Kumasi", true, true)
	elsewhere := h.user("+233200000022", "Tema", true, true)

	expired := h.storedJob(poster.ID, models.UrgencyUrgent, day(-1), "11:00 PM")
	live := h.storedJob(poster.ID, models.UrgencyUrgent, day(1), "10:00")
	h.storedJob(poster.ID, models.UrgencyNormal, day(1), "10:00")
	h.storedJob(viewer.ID, models.UrgencyUrgent, day(1), "10:00")
	h.storedJob(elsewhere.ID, models.UrgencyUrgent, day(1), "10:00")

	page, err := h.svc.ListByUrgencyNearLocation(ctx, models.UrgencyUrgent, "kumasi", viewer.ID,
		models.NewSortSpec("", ""), models.NewPageSpec(1, 10, models.DefaultPageLimit))
	require.NoError(t, err)
	require.Len(t, page.Jobs, 1)
	assert.Equal(t, live.ID, page.Jobs[0].ID)
	assert.Equal(t, int64(1), page.Pagination.Total)
	assert.Equal(t, "kumasi", page.Location)
	assert.Equal(t, models.UrgencyUrgent, page.Urgency)
	require.NotNil(t, page.Jobs[0].Poster)
	assert.Equal(t, poster.PhoneNumber, page.Jobs[0].Poster.PhoneNumber)

	stored := h.jobs.get(expired.ID)
	assert.False(t, stored.IsActive)
	assert.Equal(t, models.JobStatusOpen, stored.Status, "feed sweep only deactivates")

	_, err = h.svc.ListByUrgencyNearLocation(ctx, models.UrgencyUrgent, " ", viewer.ID,
		models.NewSortSpec("", ""), models.NewPageSpec(1, 10, models.DefaultPageLimit))
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestListJobsAndMyJobs(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()
	owner := primitive.NewObjectID()
	open := h.storedJob(owner, models.UrgencyUrgent, day(1), "10:00")
	hidden := h.storedJob(owner, models.UrgencyUrgent, day(1), "10:00")
	off := false
	_, err := h.jobs.UpdateJob(ctx, hidden.ID, models.JobUpdate{IsActive: &off})
	require.NoError(t, err)

	page := models.NewPageSpec(1, 10, models.DefaultPageLimit)
	public, err := h.svc.ListJobs(ctx, models.JobFilter{Location: "main street"}, models.NewSortSpec("", ""), page)
	require.NoError(t, err)
	require.Len(t, public.Jobs, 1)
	assert.Equal(t, open.ID, public.Jobs[0].ID)

	mine, err := h.svc.ListMyJobs(ctx, owner, "", models.NewSortSpec("", ""), page)
	require.NoError(t, err)
	assert.Len(t, mine.Jobs, 2)

	_, err = h.svc.ListMyJobs(ctx, owner, "archived", models.NewSortSpec("", ""), page)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestUpdateJobAlwaysReopens(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()
	owner := primitive.NewObjectID()
	job := h.storedJob(owner, models.UrgencyNormal, day(1), "10:00")
	cancelled := models.JobStatusCancelled
	off := false
	_, err := h.jobs.UpdateJob(ctx, job.ID, models.JobUpdate{Status: &cancelled, IsActive: &off})
	require.NoError(t, err)

	title := "Updated title"
	updated, err := h.svc.UpdateJob(ctx, job.ID, owner, &models.JobPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, models.JobStatusOpen, updated.Status)
	assert.True(t, updated.IsActive)
}

func TestUpdateJobRejections(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()
	owner := primitive.NewObjectID()
	job := h.storedJob(owner, models.UrgencyNormal, day(1), "10:00")

	title := "x"
	_, err := h.svc.UpdateJob(ctx, job.ID, primitive.NewObjectID(), &models.JobPatch{Title: &title})
	assert.Equal(t, models.KindAuthorization, models.KindOf(err))

	_, err = h.svc.UpdateJob(ctx, job.ID, owner, &models.JobPatch{})
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	pickup := models.JobTypePickup
	_, err = h.svc.UpdateJob(ctx, job.ID, owner, &models.JobPatch{JobType: &pickup})
	assert.Equal(t, models.KindValidation, models.KindOf(err), "existing site location does not fit Pickup")

	route := models.RouteLocation(gym, airport)
	updated, err := h.svc.UpdateJob(ctx, job.ID, owner, &models.JobPatch{JobType: &pickup, Location: &route})
	require.NoError(t, err)
	assert.Equal(t, models.JobTypePickup, updated.JobType)

	past := "2026-01-01"
	_, err = h.svc.UpdateJob(ctx, job.ID, owner, &models.JobPatch{ScheduledDate: &past})
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	stored := h.jobs.get(job.ID)
	assert.Equal(t, day(1), stored.ScheduledDate, "rejected update leaves the job untouched")
}

func TestDeleteAndStatus(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()
	owner := primitive.NewObjectID()
	job := h.storedJob(owner, models.UrgencyNormal, day(1), "10:00")

	done, err := h.svc.UpdateStatus(ctx, job.ID, owner, models.JobStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, testNow, *done.CompletedAt)

	_, err = h.svc.UpdateStatus(ctx, job.ID, owner, "paused")
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	assert.Equal(t, models.KindAuthorization, models.KindOf(h.svc.DeleteJob(ctx, job.ID, primitive.NewObjectID())))
	require.NoError(t, h.svc.DeleteJob(ctx, job.ID, owner))
	_, err = h.svc.GetJob(ctx, job.ID)
	assert.True(t, models.IsNotFound(err))
}

func TestJobResponsesIncludePoster(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()
	owner := h.users.add(&models.User{
		PhoneNumber: "+233200000030",
		IsActive:    true,
		Profile:     models.Profile{FullName: "Kofi Owusu", Email: "kofi@example.com", Location: "Osu"},
	})

	created, err := h.svc.CreateJob(ctx, owner.ID, onSiteInput(gym, "2026-03-11", models.ResponseShowInterest))
	require.NoError(t, err)
	require.NotNil(t, created.Poster)
	assert.Equal(t, owner.ID, created.Poster.ID)
	assert.Equal(t, "Kofi Owusu", created.Poster.FullName)
	assert.Equal(t, "kofi@example.com", created.Poster.Email)
	assert.Equal(t, owner.ID, created.PostedBy)

	got, err := h.svc.GetJob(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Poster)
	assert.Equal(t, owner.PhoneNumber, got.Poster.PhoneNumber)

	page, err := h.svc.ListJobs(ctx, models.JobFilter{}, models.NewSortSpec("", ""), models.NewPageSpec(1, 10, models.DefaultPageLimit))
	require.NoError(t, err)
	require.Len(t, page.Jobs, 1)
	require.NotNil(t, page.Jobs[0].Poster)
	assert.Equal(t, "Osu", page.Jobs[0].Poster.Location)

	title := "Carry gym mats"
	updated, err := h.svc.UpdateJob(ctx, created.ID, owner.ID, &models.JobPatch{Title: &title})
	require.NoError(t, err)
	require.NotNil(t, updated.Poster)
	assert.Equal(t, "Kofi Owusu", updated.Poster.FullName)

	// a job whose poster account is gone still loads
	orphan := h.storedJob(primitive.NewObjectID(), models.UrgencyNormal, day(1), "10:00")
	got, err = h.svc.GetJob(ctx, orphan.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Poster)
}
