package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := Load()
	assert.Equal(t, "5000", cfg.AppPort)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, StoreDynamo, cfg.StoreDriver)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Equal(t, time.Hour, cfg.ResetTTL)
	assert.Equal(t, "s3cret", cfg.TokenPepper, "pepper falls back to the JWT secret")
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_PEPPER", "pepper")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("OTP_TTL_MINUTES", "3")
	t.Setenv("BCRYPT_COST", "not-a-number")
	t.Setenv("ALLOWED_ORIGINS", "http://a,http://b")

	cfg := Load()
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, "pepper", cfg.TokenPepper)
	assert.Equal(t, 3*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.AllowedOrigins)
}

func TestValidate_MissingSigningMaterial(t *testing.T) {
	cfg := Load()
	cfg.JWTSecret = ""
	cfg.TokenPepper = ""
	err := cfg.Validate()
	assert.ErrorContains(t, err, "JWT_SECRET")
	assert.ErrorContains(t, err, "TOKEN_PEPPER")
}

func TestValidate_KeyPairWithoutSecret(t *testing.T) {
	cfg := Load()
	cfg.JWTSecret = ""
	cfg.JWTPrivateKeyPath = "priv.pem"
	cfg.JWTPublicKeyPath = "pub.pem"
	cfg.TokenPepper = "pepper"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_StoreAndNotifier(t *testing.T) {
	cfg := Load()
	cfg.JWTSecret, cfg.TokenPepper = "s", "p"

	cfg.StoreDriver = StorePostgres
	assert.ErrorContains(t, cfg.Validate(), "DATABASE_URL")

	cfg.StoreDriver = "cassandra"
	assert.ErrorContains(t, cfg.Validate(), "unknown STORE_DRIVER")

	cfg.StoreDriver = StoreMemory
	cfg.NotifyChannel = NotifySNS
	assert.ErrorContains(t, cfg.Validate(), "SNS_TOPIC_ARN")

	cfg.NotifyChannel = "pigeon"
	assert.ErrorContains(t, cfg.Validate(), "unknown NOTIFY_CHANNEL")
}

func TestValidate_APIPrefix(t *testing.T) {
	cfg := Load()
	cfg.JWTSecret, cfg.TokenPepper = "s", "p"
	cfg.StoreDriver, cfg.NotifyChannel = StoreMemory, NotifyLog

	cfg.APIPrefix = "api"
	assert.ErrorContains(t, cfg.Validate(), "API_PREFIX")

	cfg.APIPrefix = "/v2"
	assert.NoError(t, cfg.Validate())
}
