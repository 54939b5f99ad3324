package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joshua-takyi/gigboard/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// ---- users ----

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[primitive.ObjectID]*models.User{}}
}

func (r *fakeUserRepo) add(u *models.User) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = u.BeforeCreate()
	cp := *u
	r.users[u.ID] = &cp
	return u
}

func (r *fakeUserRepo) CreateUser(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	for _, existing := range r.users {
		if existing.PhoneNumber == u.PhoneNumber {
			r.mu.Unlock()
			return nil, models.NewConflictError("user already exists with this phone number")
		}
	}
	r.mu.Unlock()
	return r.add(u), nil
}

func (r *fakeUserRepo) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, models.NewNotFoundError("user not found")
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetUserByPhone(_ context.Context, phone string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.PhoneNumber == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.NewNotFoundError("user not found")
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, id primitive.ObjectID, update models.ProfileUpdate) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, models.NewNotFoundError("user not found")
	}
	u.Profile.FullName = update.FullName
	u.Profile.Email = update.Email
	u.Profile.IsProfileComplete = true
	if update.Location != nil {
		u.Profile.Location = *update.Location
	}
	if update.DateOfBirth != nil {
		u.Profile.DateOfBirth = update.DateOfBirth
	}
	if update.ProfileImage != nil {
		u.Profile.ProfileImage = *update.ProfileImage
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) UpdatePin(_ context.Context, id primitive.ObjectID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return models.NewNotFoundError("user not found")
	}
	u.Pin = hash
	return nil
}

func (r *fakeUserRepo) TouchLastLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return models.NewNotFoundError("user not found")
	}
	u.LastLogin = &at
	return nil
}

func (r *fakeUserRepo) FindProfileMatches(_ context.Context, tokens []string, excludeID primitive.ObjectID) ([]models.UserSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.UserSummary
	for _, u := range r.users {
		if !u.IsActive || !u.Profile.IsProfileComplete || u.ID == excludeID {
			continue
		}
		loc := strings.ToLower(u.Profile.Location)
		for _, t := range tokens {
			if strings.Contains(loc, strings.ToLower(t)) {
				out = append(out, models.UserSummary{ID: u.ID, PhoneNumber: u.PhoneNumber, FullName: u.Profile.FullName, Location: u.Profile.Location})
				break
			}
		}
	}
	return out, nil
}

// ---- jobs ----

type fakeJobRepo struct {
	mu    sync.Mutex
	jobs  map[primitive.ObjectID]*models.Job
	users *fakeUserRepo
	seq   int
}

func newFakeJobRepo(users *fakeUserRepo) *fakeJobRepo {
	return &fakeJobRepo{jobs: map[primitive.ObjectID]*models.Job{}, users: users}
}

func cloneJob(j *models.Job) *models.Job {
	cp := *j
	cp.InterestedUsers = append([]models.InterestEntry(nil), j.InterestedUsers...)
	cp.Attachments = append([]string(nil), j.Attachments...)
	return &cp
}

// put stores j as-is, bypassing creation defaults.
func (r *fakeJobRepo) put(j *models.Job) *models.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j.ID.IsZero() {
		j.ID = primitive.NewObjectID()
	}
	r.seq++
	j.CreatedAt = time.Unix(int64(r.seq), 0)
	r.jobs[j.ID] = cloneJob(j)
	return j
}

func (r *fakeJobRepo) get(id primitive.ObjectID) *models.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneJob(r.jobs[id])
}

func (r *fakeJobRepo) CreateJob(_ context.Context, j *models.Job) (*models.Job, error) {
	_ = j.BeforeCreate()
	r.put(j)
	return j, nil
}

func (r *fakeJobRepo) GetJobByID(_ context.Context, id primitive.ObjectID) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, models.NewNotFoundError("job not found")
	}
	return cloneJob(j), nil
}

func (r *fakeJobRepo) matches(j *models.Job, f models.JobFilter) bool {
	if !f.OwnerID.IsZero() && j.PostedBy != f.OwnerID {
		return false
	}
	if f.ActiveOnly && !j.IsActive {
		return false
	}
	if f.Status != "" && j.Status != f.Status {
		return false
	}
	if f.Urgency != "" && j.Urgency != f.Urgency {
		return false
	}
	if f.JobType != "" && j.JobType != f.JobType {
		return false
	}
	var addr []string
	for _, p := range j.Location.Places() {
		addr = append(addr, p.Name, p.FullAddress)
	}
	if f.Location != "" && !anyContains(addr, f.Location) {
		return false
	}
	if f.Search != "" && !anyContains(append([]string{j.Title, j.Description}, addr...), f.Search) {
		return false
	}
	return true
}

func anyContains(fields []string, s string) bool {
	s = strings.ToLower(s)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), s) {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, page models.PageSpec) []T {
	start := int(page.Skip())
	if start > len(items) {
		return []T{}
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func (r *fakeJobRepo) sorted() []*models.Job {
	var out []*models.Job
	for _, j := range r.jobs {
		out = append(out, cloneJob(j))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out
}

func summaryOf(u *models.User) *models.UserSummary {
	return &models.UserSummary{
		ID:          u.ID,
		PhoneNumber: u.PhoneNumber,
		FullName:    u.Profile.FullName,
		Email:       u.Profile.Email,
		Location:    u.Profile.Location,
	}
}

// listing joins j with its poster when the poster exists.
func (r *fakeJobRepo) listing(ctx context.Context, j *models.Job) *models.JobListing {
	out := &models.JobListing{Job: *j}
	if r.users != nil {
		if poster, err := r.users.GetUserByID(ctx, j.PostedBy); err == nil {
			out.Poster = summaryOf(poster)
		}
	}
	return out
}

func (r *fakeJobRepo) GetJobListing(ctx context.Context, id primitive.ObjectID) (*models.JobListing, error) {
	j, err := r.GetJobByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.listing(ctx, j), nil
}

func (r *fakeJobRepo) ListJobs(ctx context.Context, f models.JobFilter, _ models.SortSpec, page models.PageSpec) ([]*models.JobListing, int64, error) {
	r.mu.Lock()
	var matched []*models.Job
	for _, j := range r.sorted() {
		if r.matches(j, f) {
			matched = append(matched, j)
		}
	}
	r.mu.Unlock()

	out := make([]*models.JobListing, 0, len(matched))
	for _, j := range paginate(matched, page) {
		out = append(out, r.listing(ctx, j))
	}
	return out, int64(len(matched)), nil
}

func (r *fakeJobRepo) ListNearbyJobs(ctx context.Context, q models.NearbyQuery) ([]*models.JobListing, int64, error) {
	r.mu.Lock()
	all := r.sorted()
	r.mu.Unlock()

	var out []*models.JobListing
	for _, j := range all {
		if !j.IsActive || j.Status != models.JobStatusOpen || j.Urgency != q.Urgency || j.PostedBy == q.ExcludeUserID {
			continue
		}
		poster, err := r.users.GetUserByID(ctx, j.PostedBy)
		if err != nil || !anyContains([]string{poster.Profile.Location}, q.Location) {
			continue
		}
		out = append(out, &models.JobListing{Job: *j, Poster: summaryOf(poster)})
	}
	return paginate(out, q.Page), int64(len(out)), nil
}

func (r *fakeJobRepo) UpdateJob(_ context.Context, id primitive.ObjectID, u models.JobUpdate) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, models.NewNotFoundError("job not found")
	}
	if u.Title != nil {
		j.Title = *u.Title
	}
	if u.Description != nil {
		j.Description = *u.Description
	}
	if u.Cost != nil {
		j.Cost = *u.Cost
	}
	if u.JobType != nil {
		j.JobType = *u.JobType
	}
	if u.Location != nil {
		j.Location = *u.Location
	}
	if u.Urgency != nil {
		j.Urgency = *u.Urgency
	}
	if u.ScheduledDate != nil {
		j.ScheduledDate = *u.ScheduledDate
	}
	if u.ScheduledTime != nil {
		j.ScheduledTime = *u.ScheduledTime
	}
	if u.ResponsePreference != nil {
		j.ResponsePreference = *u.ResponsePreference
	}
	if u.Attachments != nil {
		j.Attachments = *u.Attachments
	}
	if u.Status != nil {
		j.Status = *u.Status
	}
	if u.IsActive != nil {
		j.IsActive = *u.IsActive
	}
	if u.CompletedAt != nil {
		j.CompletedAt = u.CompletedAt
	}
	return cloneJob(j), nil
}

func (r *fakeJobRepo) AddInterest(_ context.Context, jobID, userID primitive.ObjectID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return false, models.NewNotFoundError("job not found")
	}
	if j.HasInterestFrom(userID) {
		return false, nil
	}
	j.InterestedUsers = append(j.InterestedUsers, models.InterestEntry{User: userID, NotedAt: at})
	return true, nil
}

func (r *fakeJobRepo) FindSweepCandidates(_ context.Context, activeOnly bool) ([]models.SweepCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.SweepCandidate
	for _, j := range r.jobs {
		if j.Status != models.JobStatusOpen || (activeOnly && !j.IsActive) {
			continue
		}
		out = append(out, models.SweepCandidate{ID: j.ID, ScheduledDate: j.ScheduledDate, ScheduledTime: j.ScheduledTime})
	}
	return out, nil
}

func (r *fakeJobRepo) ExpireJobs(_ context.Context, ids []primitive.ObjectID, cancel bool) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		j, ok := r.jobs[id]
		if !ok || j.Status != models.JobStatusOpen {
			continue
		}
		if !cancel && !j.IsActive {
			continue
		}
		j.IsActive = false
		if cancel {
			j.Status = models.JobStatusCancelled
		}
		n++
	}
	return n, nil
}

// ---- notifications ----

type fakeNotificationRepo struct {
	mu    sync.Mutex
	notes []*models.Notification
	// jobs resolves related jobs for the inbox; nil leaves them out.
	jobs *fakeJobRepo
}

func (r *fakeNotificationRepo) InsertNotifications(_ context.Context, notes []*models.Notification) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range notes {
		n.BeforeCreate(time.Now())
		cp := *n
		r.notes = append(r.notes, &cp)
	}
	return len(notes), nil
}

func (r *fakeNotificationRepo) forRecipient(id primitive.ObjectID, kind models.NotificationType) []*models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Notification
	for _, n := range r.notes {
		if n.Recipient == id && (kind == "" || n.Type == kind) {
			out = append(out, n)
		}
	}
	return out
}

func (r *fakeNotificationRepo) all() []*models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.Notification(nil), r.notes...)
}

func (r *fakeNotificationRepo) ListNotifications(ctx context.Context, f models.NotificationFilter, _ models.SortSpec, page models.PageSpec) ([]*models.NotificationView, int64, error) {
	r.mu.Lock()
	var matched []*models.Notification
	for _, n := range r.notes {
		if n.Recipient != f.Recipient || (f.IsRead != nil && n.IsRead != *f.IsRead) {
			continue
		}
		matched = append(matched, n)
	}
	r.mu.Unlock()

	out := make([]*models.NotificationView, 0, len(matched))
	for _, n := range paginate(matched, page) {
		view := &models.NotificationView{Notification: *n}
		if r.jobs != nil {
			if j, err := r.jobs.GetJobByID(ctx, n.RelatedEntityID); err == nil {
				view.RelatedJob = &models.RelatedJob{ID: j.ID, Title: j.Title, Description: j.Description}
			}
		}
		out = append(out, view)
	}
	return out, int64(len(matched)), nil
}

func (r *fakeNotificationRepo) CountUnread(_ context.Context, recipient primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, note := range r.notes {
		if note.Recipient == recipient && !note.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *fakeNotificationRepo) GetNotificationByID(_ context.Context, id primitive.ObjectID) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notes {
		if n.ID == id {
			cp := *n
			return &cp, nil
		}
	}
	return nil, models.NewNotFoundError("notification not found")
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id primitive.ObjectID, at time.Time) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notes {
		if n.ID == id {
			n.IsRead = true
			n.ReadAt = &at
			cp := *n
			return &cp, nil
		}
	}
	return nil, models.NewNotFoundError("notification not found")
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, recipient primitive.ObjectID, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.notes {
		if n.Recipient == recipient && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &at
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) DeleteNotification(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.notes {
		if n.ID == id {
			r.notes = append(r.notes[:i], r.notes[i+1:]...)
			return nil
		}
	}
	return models.NewNotFoundError("notification not found")
}

// ---- locations ----

type fakeLocationRepo struct {
	mu   sync.Mutex
	locs []*models.Location
}

func (r *fakeLocationRepo) CreateLocation(_ context.Context, l *models.Location) (*models.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = l.BeforeCreate()
	for _, existing := range r.locs {
		if existing.User == l.User && existing.Name == l.Name {
			return nil, models.DuplicateLocationError(l.Name)
		}
	}
	cp := *l
	r.locs = append(r.locs, &cp)
	return l, nil
}

func (r *fakeLocationRepo) GetLocationByID(_ context.Context, id primitive.ObjectID) (*models.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.locs {
		if l.ID == id {
			cp := *l
			return &cp, nil
		}
	}
	return nil, models.NewNotFoundError("location not found")
}

func (r *fakeLocationRepo) FindLocationByName(_ context.Context, userID primitive.ObjectID, name string) (*models.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.locs {
		if l.User == userID && l.Name == name {
			cp := *l
			return &cp, nil
		}
	}
	return nil, models.NewNotFoundError("location not found")
}

func (r *fakeLocationRepo) ListLocations(_ context.Context, userID primitive.ObjectID) ([]*models.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Location{}
	for i := len(r.locs) - 1; i >= 0; i-- {
		if r.locs[i].User == userID {
			out = append(out, r.locs[i])
		}
	}
	return out, nil
}

func (r *fakeLocationRepo) DeleteLocation(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, l := range r.locs {
		if l.ID == id {
			r.locs = append(r.locs[:i], r.locs[i+1:]...)
			return nil
		}
	}
	return models.NewNotFoundError("location not found")
}

// ---- phone verifications ----

type fakeVerificationRepo struct {
	mu      sync.Mutex
	records []*models.PhoneVerification
}

func (r *fakeVerificationRepo) CreateVerification(_ context.Context, v *models.PhoneVerification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *v
	r.records = append(r.records, &cp)
	return nil
}

func (r *fakeVerificationRepo) LatestPending(_ context.Context, phone string) (*models.PhoneVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.records) - 1; i >= 0; i-- {
		v := r.records[i]
		if v.PhoneNumber == phone && !v.IsVerified {
			cp := *v
			return &cp, nil
		}
	}
	return nil, models.NewNotFoundError("No verification code found for this phone number")
}

func (r *fakeVerificationRepo) find(id primitive.ObjectID) *models.PhoneVerification {
	for _, v := range r.records {
		if v.ID == id {
			return v
		}
	}
	return nil
}

func (r *fakeVerificationRepo) IncrementAttempts(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v := r.find(id); v != nil {
		v.Attempts++
	}
	return nil
}

func (r *fakeVerificationRepo) MarkVerified(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v := r.find(id); v != nil {
		v.IsVerified = true
	}
	return nil
}

func (r *fakeVerificationRepo) HasVerified(_ context.Context, phone string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.records {
		if v.PhoneNumber == phone && v.IsVerified {
			return true, nil
		}
	}
	return false, nil
}

// ---- provider and limiter ----

type fakeVerifier struct {
	sendErr  error
	checkOK  bool
	checkErr error
	sent     []string
}

func (f *fakeVerifier) Send(_ context.Context, phone string) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, phone)
	return "VE123", nil
}

func (f *fakeVerifier) Check(_ context.Context, _, _ string) (bool, error) {
	return f.checkOK, f.checkErr
}

type countingLimiter struct {
	limit int
	hits  map[string]int
}

func (l *countingLimiter) Allow(_ context.Context, key string) (bool, error) {
	if l.hits == nil {
		l.hits = map[string]int{}
	}
	l.hits[key]++
	return l.hits[key] <= l.limit, nil
}
