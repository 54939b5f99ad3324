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

const (
	VerificationTTL         = 10 * time.Minute
	MaxVerificationAttempts = 5
	// ProviderManagedCode marks a record whose code lives with the SMS provider.
	ProviderManagedCode = "twilio-verify"
)

type PhoneVerification struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PhoneNumber      string             `bson:"phoneNumber" json:"phoneNumber"`
	VerificationCode string             `bson:"verificationCode" json:"-"`
	IsVerified       bool               `bson:"isVerified" json:"isVerified"`
	Attempts         int                `bson:"attempts" json:"attempts"`
	ExpiresAt        time.Time          `bson:"expiresAt" json:"expiresAt"`
	ProviderRef      string             `bson:"providerRef" json:"providerRef"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func NewPhoneVerification(phone, code, ref string, now time.Time) *PhoneVerification {
	return &PhoneVerification{
		ID:               primitive.NewObjectID(),
		PhoneNumber:      phone,
		VerificationCode: code,
		ProviderRef:      ref,
		ExpiresAt:        now.Add(VerificationTTL),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Usable reports whether the code can still be checked at now.
func (v *PhoneVerification) Usable(now time.Time) bool {
	return !v.IsVerified && v.Attempts < MaxVerificationAttempts && v.ExpiresAt.After(now)
}

func (v *PhoneVerification) ProviderManaged() bool {
	return v.VerificationCode == ProviderManagedCode
}

type PhoneVerificationRepo interface {
	CreateVerification(ctx context.Context, v *PhoneVerification) error
	// LatestPending returns the newest unverified record for phone.
	LatestPending(ctx context.Context, phone string) (*PhoneVerification, error)
	IncrementAttempts(ctx context.Context, id primitive.ObjectID) error
	MarkVerified(ctx context.Context, id primitive.ObjectID) error
	HasVerified(ctx context.Context, phone string) (bool, error)
}

func (mdb *MongodbRepo) CreateVerification(ctx context.Context, v *PhoneVerification) error {
	col, err := mdb.GetCollection(PhoneVerificationsColName)
	if err != nil {
		return NewPersistenceError("failed to save verification", err)
	}
	if _, err := col.InsertOne(ctx, v); err != nil {
		return NewPersistenceError("failed to save verification", err)
	}
	return nil
}

func (mdb *MongodbRepo) LatestPending(ctx context.Context, phone string) (*PhoneVerification, error) {
	col, err := mdb.GetCollection(PhoneVerificationsColName)
	if err != nil {
		return nil, NewPersistenceError("failed to fetch verification", err)
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	var v PhoneVerification
	if err := col.FindOne(ctx, bson.M{"phoneNumber": phone, "isVerified": false}, opts).Decode(&v); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewNotFoundError("No verification code found for this phone number")
		}
		return nil, NewPersistenceError("failed to fetch verification", err)
	}
	return &v, nil
}

func (mdb *MongodbRepo) IncrementAttempts(ctx context.Context, id primitive.ObjectID) error {
	return mdb.updateVerification(ctx, id, bson.M{
		"$inc": bson.M{"attempts": 1},
		"$set": bson.M{"updatedAt": time.Now()},
	})
}

func (mdb *MongodbRepo) MarkVerified(ctx context.Context, id primitive.ObjectID) error {
	return mdb.updateVerification(ctx, id, bson.M{
		"$set": bson.M{"isVerified": true, "updatedAt": time.Now()},
	})
}

func (mdb *MongodbRepo) updateVerification(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	col, err := mdb.GetCollection(PhoneVerificationsColName)
	if err != nil {
		return NewPersistenceError("failed to update verification", err)
	}
	if _, err := col.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return NewPersistenceError("failed to update verification", err)
	}
	return nil
}

func (mdb *MongodbRepo) HasVerified(ctx context.Context, phone string) (bool, error) {
	col, err := mdb.GetCollection(PhoneVerificationsColName)
	if err != nil {
		return false, NewPersistenceError("failed to check verification", err)
	}
	n, err := col.CountDocuments(ctx, bson.M{"phoneNumber": phone, "isVerified": true}, options.Count().SetLimit(1))
	if err != nil {
		return false, NewPersistenceError("failed to check verification", err)
	}
	return n > 0, nil
}
