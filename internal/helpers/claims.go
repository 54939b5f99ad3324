package helpers

import (
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Claims is the token payload. Subject holds the user's hex ObjectID.
type Claims struct {
	Role        string `json:"role"`
	PhoneNumber string `json:"phone_number,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool {
	return c.Role == "admin"
}

func (c *Claims) HasRole(role string) bool {
	return c.Role == role
}

func (c *Claims) GetSafeRole() string {
	if c.Role == "" {
		return "guest"
	}
	return c.Role
}

func (c *Claims) UserObjectID() (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(c.Subject)
}
