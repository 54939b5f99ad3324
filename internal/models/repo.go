package models

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var Validate = validator.New()

const (
	UsersColName              = "users"
	JobsColName               = "jobs"
	LocationsColName          = "locations"
	NotificationsColName      = "notifications"
	PhoneVerificationsColName = "phone_verifications"
)

type MongodbRepo struct {
	mongodbClient *mongo.Client
	dbName        string
}

func MongodbNewRepo(mongodbClient *mongo.Client, dbName string) *MongodbRepo {
	return &MongodbRepo{
		mongodbClient: mongodbClient,
		dbName:        dbName,
	}
}

func (mdb *MongodbRepo) GetCollection(colName string) (*mongo.Collection, error) {
	if mdb.mongodbClient == nil {
		return nil, fmt.Errorf("mongodb client is not initialized")
	}
	return mdb.mongodbClient.Database(mdb.dbName).Collection(colName), nil
}

// Ping is used by the health endpoints.
func (mdb *MongodbRepo) Ping(ctx context.Context) error {
	if mdb.mongodbClient == nil {
		return fmt.Errorf("mongodb client is not initialized")
	}
	return mdb.mongodbClient.Ping(ctx, nil)
}

func (mdb *MongodbRepo) DatabaseName() string {
	return mdb.dbName
}

func (mdb *MongodbRepo) CountCollections(ctx context.Context) (int, error) {
	if mdb.mongodbClient == nil {
		return 0, fmt.Errorf("mongodb client is not initialized")
	}
	names, err := mdb.mongodbClient.Database(mdb.dbName).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

// EnsureIndexes creates the unique, lookup and TTL indexes for every collection.
func (mdb *MongodbRepo) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		UsersColName: {
			{
				Keys:    bson.D{{Key: "phoneNumber", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("phone_unique"),
			},
			{
				Keys:    bson.D{{Key: "createdAt", Value: -1}},
				Options: options.Index().SetName("created_at_idx"),
			},
		},
		JobsColName: {
			{
				Keys:    bson.D{{Key: "postedBy", Value: 1}, {Key: "createdAt", Value: -1}},
				Options: options.Index().SetName("posted_by_created_idx"),
			},
			{
				Keys:    bson.D{{Key: "scheduledDate", Value: 1}, {Key: "status", Value: 1}},
				Options: options.Index().SetName("scheduled_status_idx"),
			},
			{
				Keys:    bson.D{{Key: "urgency", Value: 1}, {Key: "status", Value: 1}},
				Options: options.Index().SetName("urgency_status_idx"),
			},
			{
				Keys:    bson.D{{Key: "interestedUsers.user", Value: 1}},
				Options: options.Index().SetName("interested_user_idx"),
			},
		},
		LocationsColName: {
			{
				Keys:    bson.D{{Key: "user", Value: 1}, {Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("user_name_unique"),
			},
			{
				Keys:    bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
				Options: options.Index().SetName("user_created_idx"),
			},
		},
		NotificationsColName: {
			{
				Keys:    bson.D{{Key: "recipient", Value: 1}, {Key: "isRead", Value: 1}, {Key: "createdAt", Value: -1}},
				Options: options.Index().SetName("recipient_read_created_idx"),
			},
			{
				Keys:    bson.D{{Key: "recipient", Value: 1}, {Key: "createdAt", Value: -1}},
				Options: options.Index().SetName("recipient_created_idx"),
			},
		},
		PhoneVerificationsColName: {
			{
				Keys:    bson.D{{Key: "phoneNumber", Value: 1}},
				Options: options.Index().SetName("phone_idx"),
			},
			// documents expire at the time stored in expiresAt
			{
				Keys: bson.D{{Key: "expiresAt", Value: 1}},
				Options: options.Index().
					SetExpireAfterSeconds(0).
					SetName("expires_at_ttl"),
			},
		},
	}

	for colName, indexes := range specs {
		col, err := mdb.GetCollection(colName)
		if err != nil {
			return err
		}
		if _, err := col.Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("error creating indexes for %s: %w", colName, err)
		}
	}
	return nil
}
