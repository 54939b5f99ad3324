package models

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepo interface {
	CreateUser(ctx context.Context, user *User) (*User, error)
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	GetUserByPhone(ctx context.Context, phone string) (*User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, update ProfileUpdate) (*User, error)
	UpdatePin(ctx context.Context, id primitive.ObjectID, pinHash string) error
	TouchLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
	// FindProfileMatches returns active, profile-complete users whose profile
	// location contains any of tokens, excluding excludeID.
	FindProfileMatches(ctx context.Context, tokens []string, excludeID primitive.ObjectID) ([]UserSummary, error)
}

func (mdb *MongodbRepo) CreateUser(ctx context.Context, user *User) (*User, error) {
	if err := user.BeforeCreate(); err != nil {
		return nil, err
	}
	col, err := mdb.GetCollection(UsersColName)
	if err != nil {
		return nil, NewPersistenceError("failed to create user account", err)
	}
	if _, err := col.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, NewConflictError("user already exists with this phone number")
		}
		return nil, NewPersistenceError("failed to create user account", err)
	}
	return user, nil
}

func (mdb *MongodbRepo) GetUserByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	return mdb.findUser(ctx, bson.M{"_id": id})
}

func (mdb *MongodbRepo) GetUserByPhone(ctx context.Context, phone string) (*User, error) {
	return mdb.findUser(ctx, bson.M{"phoneNumber": phone})
}

func (mdb *MongodbRepo) findUser(ctx context.Context, filter bson.M) (*User, error) {
	col, err := mdb.GetCollection(UsersColName)
	if err != nil {
		return nil, NewPersistenceError("failed to fetch user", err)
	}
	var user User
	if err := col.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewNotFoundError("user not found")
		}
		return nil, NewPersistenceError("failed to fetch user", err)
	}
	return &user, nil
}

func (mdb *MongodbRepo) UpdateProfile(ctx context.Context, id primitive.ObjectID, update ProfileUpdate) (*User, error) {
	col, err := mdb.GetCollection(UsersColName)
	if err != nil {
		return nil, NewPersistenceError("failed to update profile", err)
	}

	set := bson.M{
		"profile.fullName":          update.FullName,
		"profile.email":             update.Email,
		"profile.isProfileComplete": true,
		"updatedAt":                 time.Now(),
	}
	if update.Location != nil {
		set["profile.location"] = *update.Location
	}
	if update.DateOfBirth != nil {
		set["profile.dateOfBirth"] = *update.DateOfBirth
	}
	if update.ProfileImage != nil {
		set["profile.profileImage"] = *update.ProfileImage
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user User
	if err := col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewNotFoundError("user not found")
		}
		return nil, NewPersistenceError("failed to update profile", err)
	}
	return &user, nil
}

func (mdb *MongodbRepo) UpdatePin(ctx context.Context, id primitive.ObjectID, pinHash string) error {
	return mdb.setUserFields(ctx, id, bson.M{"pin": pinHash, "updatedAt": time.Now()}, "failed to change PIN")
}

func (mdb *MongodbRepo) TouchLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return mdb.setUserFields(ctx, id, bson.M{"lastLogin": at}, "failed to record login")
}

func (mdb *MongodbRepo) setUserFields(ctx context.Context, id primitive.ObjectID, set bson.M, failMsg string) error {
	col, err := mdb.GetCollection(UsersColName)
	if err != nil {
		return NewPersistenceError(failMsg, err)
	}
	res, err := col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return NewPersistenceError(failMsg, err)
	}
	if res.MatchedCount == 0 {
		return NewNotFoundError("user not found")
	}
	return nil
}

func (mdb *MongodbRepo) FindProfileMatches(ctx context.Context, tokens []string, excludeID primitive.ObjectID) ([]UserSummary, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	col, err := mdb.GetCollection(UsersColName)
	if err != nil {
		return nil, NewPersistenceError("failed to find matching users", err)
	}

	cursor, err := col.Find(ctx, ProfileMatchFilter(tokens, excludeID), options.Find().SetProjection(bson.M{
		"phoneNumber": 1,
		"fullName":    "$profile.fullName",
		"email":       "$profile.email",
		"location":    "$profile.location",
	}))
	if err != nil {
		return nil, NewPersistenceError("failed to find matching users", err)
	}
	defer cursor.Close(ctx)

	var users []UserSummary
	if err := cursor.All(ctx, &users); err != nil {
		return nil, NewPersistenceError("failed to decode matching users", err)
	}
	return users, nil
}

// ProfileMatchFilter selects fan-out recipients.
func ProfileMatchFilter(tokens []string, excludeID primitive.ObjectID) bson.M {
	or := make(bson.A, 0, len(tokens))
	for _, t := range tokens {
		or = append(or, bson.M{"profile.location": containsRegex(t)})
	}
	filter := bson.M{
		"isActive":                  true,
		"profile.isProfileComplete": true,
		"$or":                       or,
	}
	if !excludeID.IsZero() {
		filter["_id"] = bson.M{"$ne": excludeID}
	}
	return filter
}

// containsRegex matches s anywhere in the field, case-insensitively, with
// regex metacharacters in s taken literally.
func containsRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}
