package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Profile struct {
	FullName          string     `bson:"fullName,omitempty" json:"fullName,omitempty"`
	Email             string     `bson:"email,omitempty" json:"email,omitempty"`
	Location          string     `bson:"location,omitempty" json:"location,omitempty"`
	DateOfBirth       *time.Time `bson:"dateOfBirth,omitempty" json:"dateOfBirth,omitempty"`
	ProfileImage      string     `bson:"profileImage,omitempty" json:"profileImage,omitempty"`
	IsProfileComplete bool       `bson:"isProfileComplete" json:"isProfileComplete"`
}

type User struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PhoneNumber     string             `bson:"phoneNumber" json:"phoneNumber" validate:"required,e164ish"`
	IsPhoneVerified bool               `bson:"isPhoneVerified" json:"isPhoneVerified"`
	Pin             string             `bson:"pin" json:"-"`
	Profile         Profile            `bson:"profile" json:"profile"`
	Role            string             `bson:"role" json:"role"`
	IsActive        bool               `bson:"isActive" json:"isActive"`
	LastLogin       *time.Time         `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) BeforeCreate() error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// DisplayName is what other users see in notifications.
func (u *User) DisplayName() string {
	if u.Profile.FullName != "" {
		return u.Profile.FullName
	}
	return u.PhoneNumber
}

// UserSummary is the poster/recipient view exposed by the user directory.
type UserSummary struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	PhoneNumber string             `bson:"phoneNumber" json:"phoneNumber"`
	FullName    string             `bson:"fullName,omitempty" json:"fullName,omitempty"`
	Email       string             `bson:"email,omitempty" json:"email,omitempty"`
	Location    string             `bson:"location,omitempty" json:"location,omitempty"`
}

type ProfileUpdate struct {
	FullName     string
	Email        string
	Location     *string
	DateOfBirth  *time.Time
	ProfileImage *string
}
