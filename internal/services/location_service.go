package services

import (
	"context"
	"strings"

	"github.com/joshua-takyi/gigboard/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LocationService struct {
	locations models.LocationRepo
}

func NewLocationService(locations models.LocationRepo) *LocationService {
	return &LocationService{
		locations: locations,
	}
}

type LocationInput struct {
	Name           string   `json:"name"`
	FullAddress    string   `json:"fullAddress"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	AddressDetails string   `json:"addressDetails"`
}

func (ls *LocationService) SaveLocation(ctx context.Context, userID primitive.ObjectID, in LocationInput) (*models.Location, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.FullAddress) == "" || in.Latitude == nil || in.Longitude == nil {
		return nil, models.NewValidationError("Name, full address, latitude, and longitude are required")
	}

	loc := &models.Location{
		User:           userID,
		Name:           strings.TrimSpace(in.Name),
		FullAddress:    strings.TrimSpace(in.FullAddress),
		Latitude:       *in.Latitude,
		Longitude:      *in.Longitude,
		AddressDetails: strings.TrimSpace(in.AddressDetails),
	}
	if err := models.Validate.Struct(loc); err != nil {
		return nil, models.NewValidationError("%s", locationMessage(err))
	}

	// the unique index still catches a concurrent insert of the same name
	if _, err := ls.locations.FindLocationByName(ctx, userID, loc.Name); err == nil {
		return nil, models.DuplicateLocationError(loc.Name)
	} else if !models.IsNotFound(err) {
		return nil, err
	}
	return ls.locations.CreateLocation(ctx, loc)
}

func locationMessage(err error) string {
	msg := models.ValidationMessage(err)
	switch {
	case strings.HasPrefix(msg, "Latitude"):
		return "Latitude must be between -90 and 90"
	case strings.HasPrefix(msg, "Longitude"):
		return "Longitude must be between -180 and 180"
	}
	return msg
}

func (ls *LocationService) ListLocations(ctx context.Context, userID primitive.ObjectID) ([]*models.Location, error) {
	return ls.locations.ListLocations(ctx, userID)
}

func (ls *LocationService) DeleteLocation(ctx context.Context, id, userID primitive.ObjectID) error {
	loc, err := ls.locations.GetLocationByID(ctx, id)
	if err != nil {
		return err
	}
	if loc.User != userID {
		return models.NewAuthorizationError("Not authorized to delete this location")
	}
	return ls.locations.DeleteLocation(ctx, id)
}
