package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

var jobSortFields = map[string]bool{
	"createdAt":     true,
	"updatedAt":     true,
	"scheduledDate": true,
	"title":         true,
	"urgency":       true,
	"cost":          true,
}

// addressFields are every stored address path of both location variants.
var addressFields = []string{
	"location.name",
	"location.fullAddress",
	"location.source.name",
	"location.source.fullAddress",
	"location.destination.name",
	"location.destination.fullAddress",
}

type SortSpec struct {
	Field string
	Desc  bool
}

// NewSortSpec falls back to createdAt for fields outside the whitelist.
// Order is descending unless order is "asc".
func NewSortSpec(field, order string) SortSpec {
	if !jobSortFields[field] {
		field = "createdAt"
	}
	return SortSpec{Field: field, Desc: !strings.EqualFold(order, "asc")}
}

func (s SortSpec) BSON() bson.D {
	dir := 1
	if s.Desc {
		dir = -1
	}
	field := s.Field
	if field == "" {
		field = "createdAt"
	}
	return bson.D{{Key: field, Value: dir}}
}

type PageSpec struct {
	Page  int
	Limit int
}

// NewPageSpec clamps page to >=1 and limit to [1, MaxPageLimit].
func NewPageSpec(page, limit, defaultLimit int) PageSpec {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return PageSpec{Page: page, Limit: limit}
}

func (p PageSpec) Skip() int64 {
	return int64((p.Page - 1) * p.Limit)
}

type JobFilter struct {
	OwnerID    primitive.ObjectID
	ActiveOnly bool
	Status     JobStatus
	Urgency    Urgency
	JobType    JobType
	Location   string
	Search     string
}

func (f JobFilter) BSON() bson.M {
	filter := bson.M{}
	if !f.OwnerID.IsZero() {
		filter["postedBy"] = f.OwnerID
	}
	if f.ActiveOnly {
		filter["isActive"] = true
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Urgency != "" {
		filter["urgency"] = f.Urgency
	}
	if f.JobType != "" {
		filter["jobType"] = f.JobType
	}

	var groups bson.A
	if loc := strings.TrimSpace(f.Location); loc != "" {
		groups = append(groups, bson.M{"$or": anyFieldContains(addressFields, loc)})
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		fields := append([]string{"title", "description"}, addressFields...)
		groups = append(groups, bson.M{"$or": anyFieldContains(fields, search)})
	}
	switch len(groups) {
	case 1:
		filter["$or"] = groups[0].(bson.M)["$or"]
	case 2:
		filter["$and"] = groups
	}
	return filter
}

func anyFieldContains(fields []string, s string) bson.A {
	re := containsRegex(s)
	or := make(bson.A, 0, len(fields))
	for _, field := range fields {
		or = append(or, bson.M{field: re})
	}
	return or
}

// NearbyQuery selects open jobs of one urgency whose poster lives near Location.
type NearbyQuery struct {
	Urgency       Urgency
	Location      string
	ExcludeUserID primitive.ObjectID
	Sort          SortSpec
	Page          PageSpec
}

func NearbyPipeline(q NearbyQuery) mongo.Pipeline {
	match := bson.M{
		"isActive": true,
		"status":   JobStatusOpen,
		"urgency":  q.Urgency,
	}
	if !q.ExcludeUserID.IsZero() {
		match["postedBy"] = bson.M{"$ne": q.ExcludeUserID}
	}

	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}
	pipeline = append(pipeline, posterLookupStages()...)
	pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{
		"postedByUser.profile.location": containsRegex(strings.TrimSpace(q.Location)),
	}}})
	pipeline = append(pipeline, posterFieldStages()...)
	return append(pipeline, pageStages(q.Sort, q.Page)...)
}

// ListingPipeline matches jobs by filter and joins each with its poster.
func ListingPipeline(filter JobFilter, sort SortSpec, page PageSpec) mongo.Pipeline {
	pipeline := mongo.Pipeline{{{Key: "$match", Value: filter.BSON()}}}
	pipeline = append(pipeline, posterLookupStages()...)
	pipeline = append(pipeline, posterFieldStages()...)
	return append(pipeline, pageStages(sort, page)...)
}

// JobListingPipeline loads a single job with its poster.
func JobListingPipeline(id primitive.ObjectID) mongo.Pipeline {
	pipeline := mongo.Pipeline{{{Key: "$match", Value: bson.M{"_id": id}}}}
	pipeline = append(pipeline, posterLookupStages()...)
	return append(pipeline, posterFieldStages()...)
}

// posterLookupStages attach the poster document as postedByUser. Jobs whose
// poster is gone are kept.
func posterLookupStages() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         UsersColName,
			"localField":   "postedBy",
			"foreignField": "_id",
			"as":           "postedByUser",
		}}},
		{{Key: "$unwind", Value: bson.M{
			"path":                       "$postedByUser",
			"preserveNullAndEmptyArrays": true,
		}}},
	}
}

// posterFieldStages replace postedByUser with the public poster summary.
func posterFieldStages() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$addFields", Value: bson.M{
			"poster": bson.M{"$cond": bson.A{
				bson.M{"$ifNull": bson.A{"$postedByUser._id", false}},
				bson.M{
					"_id":         "$postedByUser._id",
					"phoneNumber": "$postedByUser.phoneNumber",
					"fullName":    "$postedByUser.profile.fullName",
					"email":       "$postedByUser.profile.email",
					"location":    "$postedByUser.profile.location",
				},
				"$$REMOVE",
			}},
		}}},
		{{Key: "$project", Value: bson.M{"postedByUser": 0}}},
	}
}

func pageStages(sort SortSpec, page PageSpec) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$sort", Value: sort.BSON()}},
		{{Key: "$facet", Value: bson.M{
			"jobs": bson.A{
				bson.M{"$skip": page.Skip()},
				bson.M{"$limit": page.Limit},
			},
			"totalCount": bson.A{
				bson.M{"$count": "count"},
			},
		}}},
	}
}
