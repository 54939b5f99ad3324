package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joshua-takyi/gigboard/internal/metrics"
	"github.com/joshua-takyi/gigboard/internal/models"
)

// LocalVerificationCode is issued when the SMS provider is not configured or
// cannot deliver to the number.
const LocalVerificationCode = "000000"

type VerificationService struct {
	verifications models.PhoneVerificationRepo
	users         models.UserRepo
	verifier      Verifier
	limiter       RateLimiter
	metrics       *metrics.Metrics
	logger        *slog.Logger
	now           func() time.Time
}

// NewVerificationService builds the OTP flow. A nil verifier means every code
// is issued locally.
func NewVerificationService(
	verifications models.PhoneVerificationRepo,
	users models.UserRepo,
	verifier Verifier,
	limiter RateLimiter,
	m *metrics.Metrics,
	logger *slog.Logger,
) *VerificationService {
	if limiter == nil {
		limiter = NoopRateLimiter{}
	}
	return &VerificationService{
		verifications: verifications,
		users:         users,
		verifier:      verifier,
		limiter:       limiter,
		metrics:       m,
		logger:        logger,
		now:           time.Now,
	}
}

type SendResult struct {
	PhoneNumber      string `json:"phoneNumber"`
	ProviderRef      string `json:"providerRef"`
	VerificationCode string `json:"verificationCode,omitempty"`
}

func (vs *VerificationService) SendCode(ctx context.Context, phone string) (*SendResult, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, models.NewValidationError("Phone number is required")
	}
	if !models.IsValidPhone(phone) {
		return nil, models.NewValidationError("please enter a valid phone number")
	}

	if _, err := vs.users.GetUserByPhone(ctx, phone); err == nil {
		return nil, models.NewConflictError("Phone number already registered")
	} else if !models.IsNotFound(err) {
		return nil, err
	}

	allowed, err := vs.limiter.Allow(ctx, phone)
	if err != nil {
		vs.logger.Warn("verification rate limiter unavailable", "error", err)
		allowed = true
	}
	if !allowed {
		return nil, models.NewRateLimitedError("Too many verification requests. Please try again later")
	}

	if vs.verifier == nil {
		vs.logger.Info("issuing local verification code", "phone", phone, "reason", "dev-mode")
		return vs.issueLocal(ctx, phone, "dev-mode")
	}

	ref, err := vs.verifier.Send(ctx, phone)
	if err != nil {
		if code, ok := FallbackCode(err); ok {
			vs.logger.Warn("sms provider cannot deliver, issuing local code", "phone", phone, "provider_code", code)
			return vs.issueLocal(ctx, phone, fmt.Sprintf("test-fallback-%d", code))
		}
		return nil, models.NewProviderError("Failed to send verification code", err)
	}

	record := models.NewPhoneVerification(phone, models.ProviderManagedCode, ref, vs.now())
	if err := vs.verifications.CreateVerification(ctx, record); err != nil {
		return nil, err
	}
	vs.count("provider")
	return &SendResult{PhoneNumber: phone, ProviderRef: ref}, nil
}

func (vs *VerificationService) issueLocal(ctx context.Context, phone, ref string) (*SendResult, error) {
	record := models.NewPhoneVerification(phone, LocalVerificationCode, ref, vs.now())
	if err := vs.verifications.CreateVerification(ctx, record); err != nil {
		return nil, err
	}
	vs.count("fallback")
	return &SendResult{PhoneNumber: phone, ProviderRef: ref, VerificationCode: LocalVerificationCode}, nil
}

// VerifyCode checks code against the newest pending record. Locally issued
// codes are compared here; provider codes are checked with the provider.
func (vs *VerificationService) VerifyCode(ctx context.Context, phone, code string) error {
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)
	if phone == "" || code == "" {
		return models.NewValidationError("Phone number and verification code are required")
	}

	pending, err := vs.verifications.LatestPending(ctx, phone)
	if err != nil && !models.IsNotFound(err) {
		return err
	}

	if pending != nil && !pending.ProviderManaged() {
		return vs.checkLocal(ctx, pending, code)
	}

	if vs.verifier == nil {
		return models.NewValidationError("No verification code found for this phone number")
	}

	approved, err := vs.verifier.Check(ctx, phone, code)
	if err != nil {
		return models.NewProviderError("Failed to verify code", err)
	}
	if !approved {
		return models.NewValidationError("Invalid verification code")
	}

	if pending != nil {
		return vs.verifications.MarkVerified(ctx, pending.ID)
	}
	record := models.NewPhoneVerification(phone, models.ProviderManagedCode, "provider-approved", vs.now())
	record.IsVerified = true
	return vs.verifications.CreateVerification(ctx, record)
}

func (vs *VerificationService) checkLocal(ctx context.Context, pending *models.PhoneVerification, code string) error {
	if !pending.Usable(vs.now()) {
		return models.NewValidationError("Verification code has expired or exceeded maximum attempts")
	}
	if pending.VerificationCode != code {
		if err := vs.verifications.IncrementAttempts(ctx, pending.ID); err != nil {
			return err
		}
		return models.NewValidationError("Invalid verification code")
	}
	return vs.verifications.MarkVerified(ctx, pending.ID)
}

func (vs *VerificationService) IsVerified(ctx context.Context, phone string) (bool, error) {
	return vs.verifications.HasVerified(ctx, phone)
}

func (vs *VerificationService) count(channel string) {
	if vs.metrics != nil {
		vs.metrics.VerificationsSent.WithLabelValues(channel).Inc()
	}
}
