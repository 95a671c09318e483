package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
[server]
http_port = 9090

[storage]
driver = "memory"

[payment]
hold_minutes = 20

[booking]
timezone = "Europe/Moscow"
advance_booking_days = 14
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.HTTPPort)
	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 20, cfg.Payment.HoldMinutes)
	assert.Equal(t, 14, cfg.Booking.AdvanceBookingDays)

	// Не заданные в файле значения берутся по умолчанию
	assert.Equal(t, 3, cfg.Booking.ArbitrationAttempts)
	assert.Equal(t, 2000, cfg.Booking.ArbitrationTimeoutMs)
	assert.Equal(t, PaymentProviderSimulated, cfg.Payment.Provider)
	assert.False(t, cfg.Redis.Enabled())

	loc, err := cfg.Booking.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Moscow", loc.String())
}

func TestLoad_SecretsFromEnv(t *testing.T) {
	t.Setenv("DB_PASSWORD", "from-env")
	t.Setenv("JWT_SECRET", "jwt-from-env")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_env")

	path := writeConfig(t, `
[database]
password = "from-file"

[payment]
provider = "stripe"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, "jwt-from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "sk_test_env", cfg.Payment.StripeSecretKey)
	assert.Contains(t, cfg.Database.DSN(), "password=from-env")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `[server`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "bad port", mutate: func(c *Config) { c.Server.HTTPPort = 0 }},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage.Driver = "mongo" }},
		{name: "stripe without key", mutate: func(c *Config) { c.Payment.Provider = PaymentProviderStripe }},
		{name: "unknown provider", mutate: func(c *Config) { c.Payment.Provider = "paypal" }},
		{name: "zero hold", mutate: func(c *Config) { c.Payment.HoldMinutes = 0 }},
		{name: "bad timezone", mutate: func(c *Config) { c.Booking.Timezone = "Mars/Olympus" }},
		{name: "zero attempts", mutate: func(c *Config) { c.Booking.ArbitrationAttempts = 0 }},
		{name: "negative notice", mutate: func(c *Config) { c.Booking.MinBookingNoticeMinutes = -1 }},
		{name: "rate limit without rps", mutate: func(c *Config) { c.RateLimit.RPS = 0 }},
	}

	require.NoError(t, Default().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
