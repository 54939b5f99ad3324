package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joshua-takyi/gigboard/internal/helpers"
	"github.com/joshua-takyi/gigboard/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuthService struct {
	users        models.UserRepo
	verification *VerificationService
	tokens       *helpers.TokenManager
	logger       *slog.Logger
	now          func() time.Time
}

func NewAuthService(users models.UserRepo, verification *VerificationService, tokens *helpers.TokenManager, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:        users,
		verification: verification,
		tokens:       tokens,
		logger:       logger,
		now:          time.Now,
	}
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (as *AuthService) Register(ctx context.Context, phone, pin string) (*AuthResult, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || pin == "" {
		return nil, models.NewValidationError("Phone number and PIN are required")
	}
	if !models.IsValidPin(pin) {
		return nil, models.NewValidationError("PIN must be exactly 4 digits")
	}

	verified, err := as.verification.IsVerified(ctx, phone)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, models.NewValidationError("Phone number must be verified before registration")
	}

	if _, err := as.users.GetUserByPhone(ctx, phone); err == nil {
		return nil, models.NewConflictError("User already exists with this phone number")
	} else if !models.IsNotFound(err) {
		return nil, err
	}

	hash, err := helpers.HashPin(pin)
	if err != nil {
		return nil, models.NewPersistenceError("failed to secure PIN", err)
	}
	user := &models.User{
		PhoneNumber:     phone,
		IsPhoneVerified: true,
		Pin:             hash,
		Role:            models.RoleUser,
		IsActive:        true,
	}
	if err := models.Validate.Struct(user); err != nil {
		return nil, models.NewValidationError("%s", models.ValidationMessage(err))
	}
	created, err := as.users.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	as.logger.Info("user registered", "user_id", created.ID.Hex())
	return as.issue(created)
}

func (as *AuthService) Login(ctx context.Context, phone, pin string) (*AuthResult, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || pin == "" {
		return nil, models.NewValidationError("Phone number and PIN are required")
	}

	user, err := as.users.GetUserByPhone(ctx, phone)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewUnauthenticatedError("Invalid credentials")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, models.NewUnauthenticatedError("Account is deactivated")
	}
	if !helpers.CheckPin(user.Pin, pin) {
		return nil, models.NewUnauthenticatedError("Invalid credentials")
	}

	now := as.now()
	if err := as.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		as.logger.Warn("failed to record last login", "user_id", user.ID.Hex(), "error", err)
	}
	user.LastLogin = &now
	return as.issue(user)
}

func (as *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := as.tokens.Issue(user.ID.Hex(), user.Role, user.PhoneNumber)
	if err != nil {
		return nil, models.NewPersistenceError("failed to issue token", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (as *AuthService) CheckPhone(ctx context.Context, phone string) (bool, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return false, models.NewValidationError("Phone number is required")
	}
	if _, err := as.users.GetUserByPhone(ctx, phone); err != nil {
		if models.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (as *AuthService) Me(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return as.users.GetUserByID(ctx, id)
}

type ProfileInput struct {
	FullName     string  `json:"fullName"`
	Email        string  `json:"email"`
	Location     *string `json:"location"`
	DateOfBirth  *string `json:"dateOfBirth"`
	ProfileImage *string `json:"profileImage"`
}

func (as *AuthService) CompleteProfile(ctx context.Context, id primitive.ObjectID, in ProfileInput) (*models.User, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if fullName == "" || email == "" {
		return nil, models.NewValidationError("Full name and email are required")
	}
	if len([]rune(fullName)) > 100 {
		return nil, models.NewValidationError("Full name cannot be more than 100 characters")
	}
	if !models.IsValidEmail(email) {
		return nil, models.NewValidationError("Please enter a valid email")
	}

	update := models.ProfileUpdate{FullName: fullName, Email: email}
	if in.Location != nil {
		loc := strings.TrimSpace(*in.Location)
		update.Location = &loc
	}
	if in.DateOfBirth != nil && strings.TrimSpace(*in.DateOfBirth) != "" {
		dob, err := models.ParseScheduledDate(*in.DateOfBirth)
		if err != nil {
			return nil, models.NewValidationError("date of birth must be a valid date (YYYY-MM-DD)")
		}
		if dob.After(as.now()) {
			return nil, models.NewValidationError("date of birth cannot be in the future")
		}
		update.DateOfBirth = &dob
	}
	if in.ProfileImage != nil {
		img := strings.TrimSpace(*in.ProfileImage)
		update.ProfileImage = &img
	}
	return as.users.UpdateProfile(ctx, id, update)
}

func (as *AuthService) ChangePin(ctx context.Context, id primitive.ObjectID, currentPin, newPin string) error {
	if currentPin == "" || newPin == "" {
		return models.NewValidationError("Current PIN and new PIN are required")
	}
	if !models.IsValidPin(newPin) {
		return models.NewValidationError("PIN must be exactly 4 digits")
	}
	user, err := as.users.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if !helpers.CheckPin(user.Pin, currentPin) {
		return models.NewUnauthenticatedError("Current PIN is incorrect")
	}
	hash, err := helpers.HashPin(newPin)
	if err != nil {
		return models.NewPersistenceError("failed to secure PIN", err)
	}
	return as.users.UpdatePin(ctx, id, hash)
}
