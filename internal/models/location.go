package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Location is an address a user saved for reuse when posting jobs.
type Location struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User           primitive.ObjectID `bson:"user" json:"user"`
	Name           string             `bson:"name" json:"name" validate:"required,max=100"`
	FullAddress    string             `bson:"fullAddress" json:"fullAddress" validate:"required"`
	Latitude       float64            `bson:"latitude" json:"latitude" validate:"gte=-90,lte=90"`
	Longitude      float64            `bson:"longitude" json:"longitude" validate:"gte=-180,lte=180"`
	AddressDetails string             `bson:"addressDetails,omitempty" json:"addressDetails,omitempty" validate:"max=500"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (l *Location) BeforeCreate() error {
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	l.Name = strings.TrimSpace(l.Name)
	l.FullAddress = strings.TrimSpace(l.FullAddress)
	l.AddressDetails = strings.TrimSpace(l.AddressDetails)
	now := time.Now()
	l.CreatedAt = now
	l.UpdatedAt = now
	return nil
}

type LocationRepo interface {
	CreateLocation(ctx context.Context, loc *Location) (*Location, error)
	GetLocationByID(ctx context.Context, id primitive.ObjectID) (*Location, error)
	FindLocationByName(ctx context.Context, userID primitive.ObjectID, name string) (*Location, error)
	ListLocations(ctx context.Context, userID primitive.ObjectID) ([]*Location, error)
	DeleteLocation(ctx context.Context, id primitive.ObjectID) error
}

func (mdb *MongodbRepo) CreateLocation(ctx context.Context, loc *Location) (*Location, error) {
	if err := loc.BeforeCreate(); err != nil {
		return nil, err
	}
	col, err := mdb.GetCollection(LocationsColName)
	if err != nil {
		return nil, NewPersistenceError("failed to save location", err)
	}
	if _, err := col.InsertOne(ctx, loc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, DuplicateLocationError(loc.Name)
		}
		return nil, NewPersistenceError("failed to save location", err)
	}
	return loc, nil
}

func DuplicateLocationError(name string) error {
	return NewConflictError("Location with name %q already exists. Please choose a different name.", name)
}

func (mdb *MongodbRepo) GetLocationByID(ctx context.Context, id primitive.ObjectID) (*Location, error) {
	return mdb.findLocation(ctx, bson.M{"_id": id})
}

func (mdb *MongodbRepo) FindLocationByName(ctx context.Context, userID primitive.ObjectID, name string) (*Location, error) {
	return mdb.findLocation(ctx, bson.M{"user": userID, "name": name})
}

func (mdb *MongodbRepo) findLocation(ctx context.Context, filter bson.M) (*Location, error) {
	col, err := mdb.GetCollection(LocationsColName)
	if err != nil {
		return nil, NewPersistenceError("failed to fetch location", err)
	}
	var loc Location
	if err := col.FindOne(ctx, filter).Decode(&loc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewNotFoundError("location not found")
		}
		return nil, NewPersistenceError("failed to fetch location", err)
	}
	return &loc, nil
}

func (mdb *MongodbRepo) ListLocations(ctx context.Context, userID primitive.ObjectID) ([]*Location, error) {
	col, err := mdb.GetCollection(LocationsColName)
	if err != nil {
		return nil, NewPersistenceError("failed to fetch locations", err)
	}
	cursor, err := col.Find(ctx, bson.M{"user": userID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, NewPersistenceError("failed to fetch locations", err)
	}
	defer cursor.Close(ctx)

	locations := []*Location{}
	if err := cursor.All(ctx, &locations); err != nil {
		return nil, NewPersistenceError("failed to decode locations", err)
	}
	return locations, nil
}

func (mdb *MongodbRepo) DeleteLocation(ctx context.Context, id primitive.ObjectID) error {
	col, err := mdb.GetCollection(LocationsColName)
	if err != nil {
		return NewPersistenceError("failed to delete location", err)
	}
	res, err := col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return NewPersistenceError("failed to delete location", err)
	}
	if res.DeletedCount == 0 {
		return NewNotFoundError("location not found")
	}
	return nil
}
