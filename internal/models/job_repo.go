package models

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type JobRepo interface {
	CreateJob(ctx context.Context, job *Job) (*Job, error)
	GetJobByID(ctx context.Context, id primitive.ObjectID) (*Job, error)
	// GetJobListing is GetJobByID with the poster joined in.
	GetJobListing(ctx context.Context, id primitive.ObjectID) (*JobListing, error)
	ListJobs(ctx context.Context, filter JobFilter, sort SortSpec, page PageSpec) ([]*JobListing, int64, error)
	ListNearbyJobs(ctx context.Context, q NearbyQuery) ([]*JobListing, int64, error)
	UpdateJob(ctx context.Context, id primitive.ObjectID, update JobUpdate) (*Job, error)
	// AddInterest appends userID to the job's interest list unless it is
	// already there. added is false when nothing was written; a missing job
	// is a NotFoundError.
	AddInterest(ctx context.Context, jobID, userID primitive.ObjectID, at time.Time) (added bool, err error)
	FindSweepCandidates(ctx context.Context, activeOnly bool) ([]SweepCandidate, error)
	// ExpireJobs deactivates the given open jobs, cancelling them too when cancel is set.
	ExpireJobs(ctx context.Context, ids []primitive.ObjectID, cancel bool) (int64, error)
}

func (mdb *MongodbRepo) CreateJob(ctx context.Context, job *Job) (*Job, error) {
	if err := job.BeforeCreate(); err != nil {
		return nil, err
	}
	col, err := mdb.GetCollection(JobsColName)
	if err != nil {
		return nil, NewPersistenceError("failed to create job", err)
	}
	if _, err := col.InsertOne(ctx, job); err != nil {
		return nil, NewPersistenceError("failed to create job", err)
	}
	return job, nil
}

func (mdb *MongodbRepo) GetJobByID(ctx context.Context, id primitive.ObjectID) (*Job, error) {
	col, err := mdb.GetCollection(JobsColName)
	if err != nil {
		return nil, NewPersistenceError("failed to fetch job", err)
	}
	var job Job
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&job); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewNotFoundError("job not found")
		}
		return nil, NewPersistenceError("failed to fetch job", err)
	}
	return &job, nil
}

func (mdb *MongodbRepo) GetJobListing(ctx context.Context, id primitive.ObjectID) (*JobListing, error) {
	col, err := mdb.GetCollection(JobsColName)
	if err != nil {
		return nil, NewPersistenceError("failed to fetch job", err)
	}
	cursor, err := col.Aggregate(ctx, JobListingPipeline(id))
	if err != nil {
		return nil, NewPersistenceError("failed to fetch job", err)
	}
	defer cursor.Close(ctx)

	var listings []*JobListing
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, NewPersistenceError("failed to decode job", err)
	}
	if len(listings) == 0 {
		return nil, NewNotFoundError("job not found")
	}
	return listings[0], nil
}

func (mdb *MongodbRepo) ListJobs(ctx context.Context, filter JobFilter, sort SortSpec, page PageSpec) ([]*JobListing, int64, error) {
	return mdb.aggregateListings(ctx, ListingPipeline(filter, sort, page))
}

func (mdb *MongodbRepo) ListNearbyJobs(ctx context.Context, q NearbyQuery) ([]*JobListing, int64, error) {
	return mdb.aggregateListings(ctx, NearbyPipeline(q))
}

// aggregateListings runs a pipeline ending in the jobs/totalCount facet.
func (mdb *MongodbRepo) aggregateListings(ctx context.Context, pipeline mongo.Pipeline) ([]*JobListing, int64, error) {
	col, err := mdb.GetCollection(JobsColName)
	if err != nil {
		return nil, 0, NewPersistenceError("failed to fetch jobs", err)
	}

	cursor, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, NewPersistenceError("failed to fetch jobs", err)
	}
	defer cursor.Close(ctx)

	var facets []struct {
		Jobs       []*JobListing `bson:"jobs"`
		TotalCount []struct {
			Count int64 `bson:"count"`
		} `bson:"totalCount"`
	}
	if err := cursor.All(ctx, &facets); err != nil {
		return nil, 0, NewPersistenceError("failed to decode jobs", err)
	}
	if len(facets) == 0 {
		return []*JobListing{}, 0, nil
	}

	var total int64
	if len(facets[0].TotalCount) > 0 {
		total = facets[0].TotalCount[0].Count
	}
	jobs := facets[0].Jobs
	if jobs == nil {
		jobs = []*JobListing{}
	}
	return jobs, total, nil
}

func (mdb *MongodbRepo) UpdateJob(ctx context.Context, id primitive.ObjectID, update JobUpdate) (*Job, error) {
	col, err := mdb.GetCollection(JobsColName)
	if err != nil {
		return nil, NewPersistenceError("failed to update job", err)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var job Job
	err = col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": update.SetDoc(time.Now())}, opts).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewNotFoundError("job not found")
		}
		return nil, NewPersistenceError("failed to update job", err)
	}
	return &job, nil
}

func (mdb *MongodbRepo) AddInterest(ctx context.Context, jobID, userID primitive.ObjectID, at time.Time) (bool, error) {
	col, err := mdb.GetCollection(JobsColName)
	if err != nil {
		return false, NewPersistenceError("failed to record interest", err)
	}
	filter := bson.M{
		"_id":                  jobID,
		"interestedUsers.user": bson.M{"$ne": userID},
	}
	update := bson.M{
		"$push": bson.M{"interestedUsers": InterestEntry{User: userID, NotedAt: at}},
		"$set":  bson.M{"updatedAt": at},
	}
	res, err := col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, NewPersistenceError("failed to record interest", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	n, err := col.CountDocuments(ctx, bson.M{"_id": jobID})
	if err != nil {
		return false, NewPersistenceError("failed to record interest", err)
	}
	if n == 0 {
		return false, NewNotFoundError("job not found")
	}
	return false, nil
}

func (mdb *MongodbRepo) FindSweepCandidates(ctx context.Context, activeOnly bool) ([]SweepCandidate, error) {
	col, err := mdb.GetCollection(JobsColName)
	if err != nil {
		return nil, NewPersistenceError("failed to scan jobs", err)
	}
	filter := bson.M{"status": JobStatusOpen}
	if activeOnly {
		filter["isActive"] = true
	}
	opts := options.Find().SetProjection(bson.M{"scheduledDate": 1, "scheduledTime": 1})
	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, NewPersistenceError("failed to scan jobs", err)
	}
	defer cursor.Close(ctx)

	var out []SweepCandidate
	if err := cursor.All(ctx, &out); err != nil {
		return nil, NewPersistenceError("failed to decode jobs", err)
	}
	return out, nil
}

func (mdb *MongodbRepo) ExpireJobs(ctx context.Context, ids []primitive.ObjectID, cancel bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	col, err := mdb.GetCollection(JobsColName)
	if err != nil {
		return 0, NewPersistenceError("failed to expire jobs", err)
	}
	filter := bson.M{"_id": bson.M{"$in": ids}, "status": JobStatusOpen}
	set := bson.M{"isActive": false, "updatedAt": time.Now()}
	if cancel {
		set["status"] = JobStatusCancelled
	} else {
		filter["isActive"] = true
	}
	res, err := col.UpdateMany(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return 0, NewPersistenceError("failed to expire jobs", err)
	}
	return res.ModifiedCount, nil
}
