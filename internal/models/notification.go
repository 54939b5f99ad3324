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

type NotificationType string

const (
	NotificationJobCreated  NotificationType = "job_created"
	NotificationJobInterest NotificationType = "job_interest"
)

const RelatedEntityJob = "Job"

type Notification struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Recipient            primitive.ObjectID `bson:"recipient" json:"recipient"`
	Type                 NotificationType   `bson:"type" json:"type"`
	Title                string             `bson:"title" json:"title"`
	Message              string             `bson:"message" json:"message"`
	RelatedEntityType    string             `bson:"relatedEntityType" json:"relatedEntityType"`
	RelatedEntityID      primitive.ObjectID `bson:"relatedEntityId" json:"relatedEntityId"`
	NavigationIdentifier string             `bson:"navigationIdentifier" json:"navigationIdentifier"`
	IsRead               bool               `bson:"isRead" json:"isRead"`
	ReadAt               *time.Time         `bson:"readAt,omitempty" json:"readAt,omitempty"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// RelatedJob is the part of a notification's job shown in the inbox.
type RelatedJob struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
}

// NotificationView is an inbox entry with its related job, when that job
// still exists.
type NotificationView struct {
	Notification `bson:",inline"`
	RelatedJob   *RelatedJob `bson:"relatedJob,omitempty" json:"relatedJob,omitempty"`
}

const (
	maxNotificationTitle   = 200
	maxNotificationMessage = 500
)

func (n *Notification) BeforeCreate(now time.Time) {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	n.Title = truncate(n.Title, maxNotificationTitle)
	n.Message = truncate(n.Message, maxNotificationMessage)
	n.CreatedAt = now
	n.UpdatedAt = now
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

type NotificationFilter struct {
	Recipient primitive.ObjectID
	IsRead    *bool
}

func (f NotificationFilter) BSON() bson.M {
	filter := bson.M{"recipient": f.Recipient}
	if f.IsRead != nil {
		filter["isRead"] = *f.IsRead
	}
	return filter
}

type NotificationRepo interface {
	InsertNotifications(ctx context.Context, notes []*Notification) (int, error)
	ListNotifications(ctx context.Context, filter NotificationFilter, sort SortSpec, page PageSpec) ([]*NotificationView, int64, error)
	CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error)
	GetNotificationByID(ctx context.Context, id primitive.ObjectID) (*Notification, error)
	MarkRead(ctx context.Context, id primitive.ObjectID, at time.Time) (*Notification, error)
	MarkAllRead(ctx context.Context, recipient primitive.ObjectID, at time.Time) (int64, error)
	DeleteNotification(ctx context.Context, id primitive.ObjectID) error
}

func (mdb *MongodbRepo) InsertNotifications(ctx context.Context, notes []*Notification) (int, error) {
	if len(notes) == 0 {
		return 0, nil
	}
	col, err := mdb.GetCollection(NotificationsColName)
	if err != nil {
		return 0, NewPersistenceError("failed to create notifications", err)
	}
	now := time.Now()
	docs := make([]interface{}, len(notes))
	for i, n := range notes {
		n.BeforeCreate(now)
		docs[i] = n
	}
	res, err := col.InsertMany(ctx, docs)
	if err != nil {
		return 0, NewPersistenceError("failed to create notifications", err)
	}
	return len(res.InsertedIDs), nil
}

// InboxPipeline pages the recipient's notifications and joins the title and
// description of each related job.
func InboxPipeline(filter NotificationFilter, sort SortSpec, page PageSpec) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: filter.BSON()}},
		{{Key: "$sort", Value: sort.BSON()}},
		{{Key: "$skip", Value: page.Skip()}},
		{{Key: "$limit", Value: page.Limit}},
		{{Key: "$lookup", Value: bson.M{
			"from":         JobsColName,
			"localField":   "relatedEntityId",
			"foreignField": "_id",
			"as":           "relatedJobs",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"relatedJob": bson.M{"$cond": bson.A{
				bson.M{"$gt": bson.A{bson.M{"$size": "$relatedJobs"}, 0}},
				bson.M{
					"_id":         bson.M{"$arrayElemAt": bson.A{"$relatedJobs._id", 0}},
					"title":       bson.M{"$arrayElemAt": bson.A{"$relatedJobs.title", 0}},
					"description": bson.M{"$arrayElemAt": bson.A{"$relatedJobs.description", 0}},
				},
				"$$REMOVE",
			}},
		}}},
		{{Key: "$project", Value: bson.M{"relatedJobs": 0}}},
	}
}

func (mdb *MongodbRepo) ListNotifications(ctx context.Context, filter NotificationFilter, sort SortSpec, page PageSpec) ([]*NotificationView, int64, error) {
	col, err := mdb.GetCollection(NotificationsColName)
	if err != nil {
		return nil, 0, NewPersistenceError("failed to fetch notifications", err)
	}
	total, err := col.CountDocuments(ctx, filter.BSON())
	if err != nil {
		return nil, 0, NewPersistenceError("failed to count notifications", err)
	}
	cursor, err := col.Aggregate(ctx, InboxPipeline(filter, sort, page))
	if err != nil {
		return nil, 0, NewPersistenceError("failed to fetch notifications", err)
	}
	defer cursor.Close(ctx)

	notes := []*NotificationView{}
	if err := cursor.All(ctx, &notes); err != nil {
		return nil, 0, NewPersistenceError("failed to decode notifications", err)
	}
	return notes, total, nil
}

func (mdb *MongodbRepo) CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	col, err := mdb.GetCollection(NotificationsColName)
	if err != nil {
		return 0, NewPersistenceError("failed to count notifications", err)
	}
	n, err := col.CountDocuments(ctx, bson.M{"recipient": recipient, "isRead": false})
	if err != nil {
		return 0, NewPersistenceError("failed to count notifications", err)
	}
	return n, nil
}

func (mdb *MongodbRepo) GetNotificationByID(ctx context.Context, id primitive.ObjectID) (*Notification, error) {
	col, err := mdb.GetCollection(NotificationsColName)
	if err != nil {
		return nil, NewPersistenceError("failed to fetch notification", err)
	}
	var n Notification
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewNotFoundError("notification not found")
		}
		return nil, NewPersistenceError("failed to fetch notification", err)
	}
	return &n, nil
}

func (mdb *MongodbRepo) MarkRead(ctx context.Context, id primitive.ObjectID, at time.Time) (*Notification, error) {
	col, err := mdb.GetCollection(NotificationsColName)
	if err != nil {
		return nil, NewPersistenceError("failed to update notification", err)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"isRead": true, "readAt": at, "updatedAt": at}}
	var n Notification
	if err := col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&n); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewNotFoundError("notification not found")
		}
		return nil, NewPersistenceError("failed to update notification", err)
	}
	return &n, nil
}

func (mdb *MongodbRepo) MarkAllRead(ctx context.Context, recipient primitive.ObjectID, at time.Time) (int64, error) {
	col, err := mdb.GetCollection(NotificationsColName)
	if err != nil {
		return 0, NewPersistenceError("failed to update notifications", err)
	}
	res, err := col.UpdateMany(ctx,
		bson.M{"recipient": recipient, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "readAt": at, "updatedAt": at}},
	)
	if err != nil {
		return 0, NewPersistenceError("failed to update notifications", err)
	}
	return res.ModifiedCount, nil
}

func (mdb *MongodbRepo) DeleteNotification(ctx context.Context, id primitive.ObjectID) error {
	col, err := mdb.GetCollection(NotificationsColName)
	if err != nil {
		return NewPersistenceError("failed to delete notification", err)
	}
	res, err := col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return NewPersistenceError("failed to delete notification", err)
	}
	if res.DeletedCount == 0 {
		return NewNotFoundError("notification not found")
	}
	return nil
}
