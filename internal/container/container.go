package container

import (
	"context"
	"log/slog"

	"github.com/joshua-takyi/gigboard/internal/config"
	"github.com/joshua-takyi/gigboard/internal/helpers"
	"github.com/joshua-takyi/gigboard/internal/metrics"
	"github.com/joshua-takyi/gigboard/internal/models"
	"github.com/joshua-takyi/gigboard/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/twilio/twilio-go"
	"go.mongodb.org/mongo-driver/mongo"
)

// Container holds all application dependencies
type Container struct {
	Logger  *slog.Logger
	Config  *config.Config
	Metrics *metrics.Metrics
	Tokens  *helpers.TokenManager
	Repo    *models.MongodbRepo

	Dispatcher          *services.Dispatcher
	AuthService         *services.AuthService
	VerificationService *services.VerificationService
	JobService          *services.JobService
	NotificationService *services.NotificationService
	LocationService     *services.LocationService
}

// NewContainer wires repositories and services. redisClient and twilioClient
// may be nil.
func NewContainer(
	logger *slog.Logger,
	cfg *config.Config,
	mongoDBClient *mongo.Client,
	redisClient *redis.Client,
	twilioClient *twilio.RestClient,
	tokens *helpers.TokenManager,
	m *metrics.Metrics,
) *Container {
	repo := models.MongodbNewRepo(mongoDBClient, cfg.MongoDBName)

	var limiter services.RateLimiter = services.NoopRateLimiter{}
	if redisClient != nil {
		limiter = services.NewRedisRateLimiter(redisClient, "sms", cfg.SMSRateLimit, cfg.SMSRateWindow)
	}
	var verifier services.Verifier
	if twilioClient != nil {
		verifier = services.NewTwilioVerifier(twilioClient, cfg.TwilioVerifyServiceSID)
	}

	dispatcher := services.NewDispatcher(logger, m, cfg.FanoutWorkers, cfg.FanoutQueue, cfg.FanoutTimeout)
	notificationService := services.NewNotificationService(repo, repo, dispatcher, m, logger)
	verificationService := services.NewVerificationService(repo, repo, verifier, limiter, m, logger)

	return &Container{
		Logger:              logger,
		Config:              cfg,
		Metrics:             m,
		Tokens:              tokens,
		Repo:                repo,
		Dispatcher:          dispatcher,
		AuthService:         services.NewAuthService(repo, verificationService, tokens, logger),
		VerificationService: verificationService,
		JobService:          services.NewJobService(repo, notificationService, m, logger, cfg.JobsTimezone),
		NotificationService: notificationService,
		LocationService:     services.NewLocationService(repo),
	}
}

// Shutdown drains background work queued by request handlers.
func (c *Container) Shutdown(ctx context.Context) error {
	return c.Dispatcher.Shutdown(ctx)
}
