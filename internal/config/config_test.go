package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "gigboard", cfg.MongoDBName)
	assert.Equal(t, 720*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 5, cfg.SMSRateLimit)
	assert.Equal(t, "@every 10m", cfg.SweepSchedule)
	assert.Equal(t, time.UTC, cfg.JobsTimezone)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.TwilioEnabled())
}

func TestLoadConfigRequiresMongoAndSecret(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	t.Setenv("JWT_SECRET", "secret")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "MONGODB_URI")

	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")

	t.Setenv("FANOUT_WORKERS", "zero")
	_, err := LoadConfig()
	assert.Error(t, err)
	t.Setenv("FANOUT_WORKERS", "")

	t.Setenv("JOBS_TIMEZONE", "Mars/Olympus")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "JOBS_TIMEZONE")
}

func TestTwilioEnabled(t *testing.T) {
	cfg := &Config{TwilioAccountSID: "AC123", TwilioAuthToken: "tok", TwilioVerifyServiceSID: "VA1"}
	assert.True(t, cfg.TwilioEnabled())

	cfg.TwilioAccountSID = "your-sid"
	assert.False(t, cfg.TwilioEnabled())
}
