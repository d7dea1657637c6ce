package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
database:
  host: db.local
  user: course
  dbname: course
jwt:
  secret: from-file
quiz:
  display_cache_ttl: 5m
`)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("REDIS_ADDRS", "r1:6379, r2:6379")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWT.Secret, "env must override file")
	assert.Equal(t, "db.local", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port, "default port")
	assert.Equal(t, []string{"r1:6379", "r2:6379"}, cfg.Redis.Addrs)
	assert.Equal(t, 5*time.Minute, cfg.Quiz.DisplayCacheTTL)
	assert.Equal(t, "sk_test", cfg.Payment.Stripe.SecretKey)
	assert.Equal(t, 30, cfg.RateLimit.PaymentMaxRequests)
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	path := writeConfig(t, `
database:
  host: db.local
  user: course
  dbname: course
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "JWT secret")
}

func TestValidate_StripeNeedsWebhookSecret(t *testing.T) {
	cfg := &Config{
		JWT:      JWTConfig{Secret: "s"},
		Database: DatabaseConfig{Host: "h", User: "u", DBName: "d"},
		Payment:  PaymentConfig{Stripe: StripeConfig{SecretKey: "sk_test"}},
	}
	assert.ErrorContains(t, cfg.Validate(), "webhook secret")

	cfg.Payment.Stripe.WebhookSecret = "whsec"
	assert.NoError(t, cfg.Validate())
}
