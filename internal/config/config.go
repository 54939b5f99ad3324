package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port           string
	MongoDBURI     string
	MongoDBPass    string
	MongoDBName    string
	Environment    string
	LogLevel       string
	AllowedOrigins []string

	JWTSecret string
	JWTExpiry time.Duration
	JWKSURL   string

	TwilioAccountSID       string
	TwilioAuthToken        string
	TwilioVerifyServiceSID string

	RedisAddr     string
	RedisPassword string
	SMSRateLimit  int
	SMSRateWindow time.Duration

	JobsTimezone  *time.Location
	SweepSchedule string
	FanoutWorkers int
	FanoutQueue   int
	FanoutTimeout time.Duration
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:                   getEnvWithDefault("PORT", "8080"),
		MongoDBURI:             os.Getenv("MONGODB_URI"),
		MongoDBPass:            os.Getenv("MONGODB_PASSWORD"),
		MongoDBName:            getEnvWithDefault("MONGODB_DATABASE", "gigboard"),
		Environment:            getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:               os.Getenv("LOG_LEVEL"),
		AllowedOrigins:         splitList(getEnvWithDefault("ALLOWED_ORIGINS", "http://localhost:3000")),
		JWTSecret:              os.Getenv("JWT_SECRET"),
		JWKSURL:                os.Getenv("JWKS_URL"),
		TwilioAccountSID:       os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:        os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioVerifyServiceSID: os.Getenv("TWILIO_VERIFY_SERVICE_SID"),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		SweepSchedule:          getEnvWithDefault("SWEEP_SCHEDULE", "@every 10m"),
	}

	if cfg.MongoDBURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	var err error
	if cfg.JWTExpiry, err = getDuration("JWT_EXPIRY", 720*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SMSRateWindow, err = getDuration("SMS_RATE_WINDOW", time.Hour); err != nil {
		return nil, err
	}
	if cfg.FanoutTimeout, err = getDuration("FANOUT_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SMSRateLimit, err = getInt("SMS_RATE_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.FanoutWorkers, err = getInt("FANOUT_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.FanoutQueue, err = getInt("FANOUT_QUEUE", 256); err != nil {
		return nil, err
	}

	tz := getEnvWithDefault("JOBS_TIMEZONE", "UTC")
	cfg.JobsTimezone, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid JOBS_TIMEZONE %q: %w", tz, err)
	}

	return cfg, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// TwilioEnabled reports whether every credential needed for Twilio Verify is present.
func (c *Config) TwilioEnabled() bool {
	return strings.HasPrefix(c.TwilioAccountSID, "AC") &&
		c.TwilioAuthToken != "" &&
		c.TwilioVerifyServiceSID != ""
}
