package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type JobType string

const (
	JobTypeOnSite JobType = "OnSite"
	JobTypePickup JobType = "Pickup"
)

type Urgency string

const (
	UrgencyUrgent Urgency = "Urgent"
	UrgencyNormal Urgency = "Normal"
)

type ResponsePreference string

const (
	ResponseDirectContact ResponsePreference = "direct_contact"
	ResponseShowInterest  ResponsePreference = "show_interest"
)

type JobStatus string

const (
	JobStatusOpen      JobStatus = "open"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
)

const MaxAttachments = 5

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusOpen, JobStatusCompleted, JobStatusCancelled:
		return true
	}
	return false
}

// Place is a single address as picked from a saved location.
type Place struct {
	ID          string  `bson:"id" json:"id"`
	Name        string  `bson:"name" json:"name"`
	FullAddress string  `bson:"fullAddress" json:"fullAddress"`
	Latitude    float64 `bson:"latitude" json:"latitude"`
	Longitude   float64 `bson:"longitude" json:"longitude"`
}

func (p *Place) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID          json.RawMessage `json:"id"`
		Name        string          `json:"name"`
		FullAddress string          `json:"fullAddress"`
		Latitude    *float64        `json:"latitude"`
		Longitude   *float64        `json:"longitude"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Latitude == nil || wire.Longitude == nil {
		return fmt.Errorf("latitude and longitude must be numbers")
	}
	id, err := placeID(wire.ID)
	if err != nil {
		return err
	}
	*p = Place{
		ID:          id,
		Name:        strings.TrimSpace(wire.Name),
		FullAddress: strings.TrimSpace(wire.FullAddress),
		Latitude:    *wire.Latitude,
		Longitude:   *wire.Longitude,
	}
	return nil
}

// placeID accepts the client's location id as a string or a number and
// stores it as a string. A zero number counts as missing.
func placeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("location id must be a string or a number")
	}
	if f, err := n.Float64(); err == nil && f == 0 {
		return "", nil
	}
	return n.String(), nil
}

func (p Place) complete() bool {
	return p.ID != "" && p.Name != "" && p.FullAddress != ""
}

// Route is the source/destination pair of a Pickup job.
type Route struct {
	Source      Place `bson:"source" json:"source"`
	Destination Place `bson:"destination" json:"destination"`
}

// JobLocation holds exactly one variant: Site for OnSite jobs, Route for
// Pickup jobs. It is stored in the same shape it travels on the wire.
type JobLocation struct {
	Site  *Place
	Route *Route
}

func SiteLocation(p Place) JobLocation {
	return JobLocation{Site: &p}
}

func RouteLocation(source, destination Place) JobLocation {
	return JobLocation{Route: &Route{Source: source, Destination: destination}}
}

// Validate checks that the variant present matches jobType.
func (l JobLocation) Validate(jobType JobType) error {
	switch jobType {
	case JobTypeOnSite:
		if l.Site == nil || l.Route != nil || !l.Site.complete() {
			return NewValidationError("OnSite jobs require a single location object with id, name, fullAddress, latitude, and longitude")
		}
	case JobTypePickup:
		if l.Route == nil || l.Site != nil || !l.Route.Source.complete() || !l.Route.Destination.complete() {
			return NewValidationError("Pickup jobs require both source and destination locations with id, name, fullAddress, latitude, and longitude")
		}
	default:
		return NewValidationError("job type must be one of: Pickup, OnSite")
	}
	return nil
}

// Places lists every address of the location in source, destination order.
func (l JobLocation) Places() []Place {
	switch {
	case l.Site != nil:
		return []Place{*l.Site}
	case l.Route != nil:
		return []Place{l.Route.Source, l.Route.Destination}
	}
	return nil
}

func (l JobLocation) DisplayAddress() string {
	switch {
	case l.Site != nil:
		return l.Site.FullAddress
	case l.Route != nil:
		return l.Route.Source.FullAddress + " → " + l.Route.Destination.FullAddress
	}
	return "No address available"
}

func (l JobLocation) MarshalJSON() ([]byte, error) {
	switch {
	case l.Site != nil:
		return json.Marshal(l.Site)
	case l.Route != nil:
		return json.Marshal(l.Route)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts the location object itself or a JSON string that
// encodes it, which is how multipart clients send it.
func (l *JobLocation) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return fmt.Errorf("invalid location format")
		}
		data = bytes.TrimSpace([]byte(encoded))
	}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = JobLocation{}
		return nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("invalid location format")
	}
	_, hasSource := probe["source"]
	_, hasDestination := probe["destination"]
	if hasSource || hasDestination {
		var r Route
		if err := json.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("invalid location format: %v", err)
		}
		*l = JobLocation{Route: &r}
		return nil
	}

	var p Place
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("invalid location format: %v", err)
	}
	*l = JobLocation{Site: &p}
	return nil
}

func (l JobLocation) MarshalBSON() ([]byte, error) {
	switch {
	case l.Site != nil:
		return bson.Marshal(l.Site)
	case l.Route != nil:
		return bson.Marshal(l.Route)
	}
	return bson.Marshal(bson.D{})
}

func (l *JobLocation) UnmarshalBSON(data []byte) error {
	raw := bson.Raw(data)
	if _, err := raw.LookupErr("source"); err == nil {
		var r Route
		if err := bson.Unmarshal(data, &r); err != nil {
			return err
		}
		*l = JobLocation{Route: &r}
		return nil
	}
	if _, err := raw.LookupErr("fullAddress"); err != nil {
		*l = JobLocation{}
		return nil
	}
	var p Place
	if err := bson.Unmarshal(data, &p); err != nil {
		return err
	}
	*l = JobLocation{Site: &p}
	return nil
}

type InterestEntry struct {
	User    primitive.ObjectID `bson:"user" json:"user"`
	NotedAt time.Time          `bson:"notedAt" json:"notedAt"`
}

type Job struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title              string             `bson:"title" json:"title"`
	Description        string             `bson:"description" json:"description"`
	Cost               string             `bson:"cost" json:"cost"`
	JobType            JobType            `bson:"jobType" json:"jobType"`
	Location           JobLocation        `bson:"location" json:"location"`
	Urgency            Urgency            `bson:"urgency" json:"urgency"`
	ScheduledDate      time.Time          `bson:"scheduledDate" json:"scheduledDate"`
	ScheduledTime      string             `bson:"scheduledTime" json:"scheduledTime"`
	ResponsePreference ResponsePreference `bson:"responsePreference" json:"responsePreference"`
	Attachments        []string           `bson:"attachments" json:"attachments"`
	Status             JobStatus          `bson:"status" json:"status"`
	PostedBy           primitive.ObjectID `bson:"postedBy" json:"postedBy"`
	IsActive           bool               `bson:"isActive" json:"isActive"`
	InterestedUsers    []InterestEntry    `bson:"interestedUsers" json:"interestedUsers"`
	CompletedAt        *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (j *Job) BeforeCreate() error {
	if j.ID.IsZero() {
		j.ID = primitive.NewObjectID()
	}
	now := time.Now()
	j.CreatedAt = now
	j.UpdatedAt = now
	if j.Attachments == nil {
		j.Attachments = []string{}
	}
	if j.InterestedUsers == nil {
		j.InterestedUsers = []InterestEntry{}
	}
	return nil
}

func (j *Job) HasInterestFrom(userID primitive.ObjectID) bool {
	for _, entry := range j.InterestedUsers {
		if entry.User == userID {
			return true
		}
	}
	return false
}

// JobListing is a job joined with its poster's public profile.
type JobListing struct {
	Job    `bson:",inline"`
	Poster *UserSummary `bson:"poster,omitempty" json:"poster,omitempty"`
}

// JobInput is the payload for creating a job.
type JobInput struct {
	Title              string             `json:"title" validate:"required,max=100"`
	Description        string             `json:"description" validate:"required,max=2000"`
	Cost               string             `json:"cost" validate:"required,max=100"`
	JobType            JobType            `json:"jobType" validate:"required,oneof=OnSite Pickup"`
	Location           *JobLocation       `json:"location" validate:"required"`
	Urgency            Urgency            `json:"urgency" validate:"required,oneof=Urgent Normal"`
	ScheduledDate      string             `json:"scheduledDate" validate:"required"`
	ScheduledTime      string             `json:"scheduledTime" validate:"required,max=20"`
	ResponsePreference ResponsePreference `json:"responsePreference" validate:"required,oneof=direct_contact show_interest"`
	Attachments        []string           `json:"attachments"`
}

func (in *JobInput) Sanitize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Cost = strings.TrimSpace(in.Cost)
	in.ScheduledTime = strings.TrimSpace(in.ScheduledTime)
	in.ScheduledDate = strings.TrimSpace(in.ScheduledDate)
}

// JobPatch carries only the fields the owner sent.
type JobPatch struct {
	Title              *string             `json:"title"`
	Description        *string             `json:"description"`
	Cost               *string             `json:"cost"`
	JobType            *JobType            `json:"jobType"`
	Location           *JobLocation        `json:"location"`
	Urgency            *Urgency            `json:"urgency"`
	ScheduledDate      *string             `json:"scheduledDate"`
	ScheduledTime      *string             `json:"scheduledTime"`
	ResponsePreference *ResponsePreference `json:"responsePreference"`
	Attachments        *[]string           `json:"attachments"`
}

func (p JobPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Cost == nil && p.JobType == nil &&
		p.Location == nil && p.Urgency == nil && p.ScheduledDate == nil && p.ScheduledTime == nil &&
		p.ResponsePreference == nil && p.Attachments == nil
}

// JobUpdate is the validated set of fields written by a single update.
type JobUpdate struct {
	Title              *string
	Description        *string
	Cost               *string
	JobType            *JobType
	Location           *JobLocation
	Urgency            *Urgency
	ScheduledDate      *time.Time
	ScheduledTime      *string
	ResponsePreference *ResponsePreference
	Attachments        *[]string
	Status             *JobStatus
	IsActive           *bool
	CompletedAt        *time.Time
}

func (u JobUpdate) SetDoc(now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if u.Title != nil {
		set["title"] = *u.Title
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Cost != nil {
		set["cost"] = *u.Cost
	}
	if u.JobType != nil {
		set["jobType"] = *u.JobType
	}
	if u.Location != nil {
		set["location"] = *u.Location
	}
	if u.Urgency != nil {
		set["urgency"] = *u.Urgency
	}
	if u.ScheduledDate != nil {
		set["scheduledDate"] = *u.ScheduledDate
	}
	if u.ScheduledTime != nil {
		set["scheduledTime"] = *u.ScheduledTime
	}
	if u.ResponsePreference != nil {
		set["responsePreference"] = *u.ResponsePreference
	}
	if u.Attachments != nil {
		set["attachments"] = *u.Attachments
	}
	if u.Status != nil {
		set["status"] = *u.Status
	}
	if u.IsActive != nil {
		set["isActive"] = *u.IsActive
	}
	if u.CompletedAt != nil {
		set["completedAt"] = *u.CompletedAt
	}
	return set
}

// SweepCandidate is the projection the expiry sweep needs.
type SweepCandidate struct {
	ID            primitive.ObjectID `bson:"_id"`
	ScheduledDate time.Time          `bson:"scheduledDate"`
	ScheduledTime string             `bson:"scheduledTime"`
}

type SweepResult struct {
	Checked int   `json:"checked"`
	Matched int   `json:"matched"`
	Updated int64 `json:"updated"`
}
