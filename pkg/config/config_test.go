package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("fraudgate")
	require.NoError(t, err)

	assert.Equal(t, "fraudgate", cfg.Server.ServiceName)
	assert.Equal(t, 20, cfg.Fraud.HourlyLimit)
	assert.Equal(t, 100, cfg.Fraud.DailyLimit)
	assert.Equal(t, 30*time.Second, cfg.Fraud.Cooldown())
	assert.Equal(t, 7*24*time.Hour, cfg.Fraud.FlagTTL())
	assert.Equal(t, 24*time.Hour, cfg.Fraud.IPWindow())
	assert.Equal(t, 70, cfg.Fraud.BlockThreshold)
	assert.Equal(t, 40, cfg.Fraud.FlagThreshold)
}

func TestLoadOverridesFromEnvironment(t *testing.T) {
	t.Setenv("FRAUD_HOURLY_LIMIT", "5")
	t.Setenv("FRAUD_COOLDOWN_SECONDS", "60")

	cfg, err := Load("fraudgate")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Fraud.HourlyLimit)
	assert.Equal(t, time.Minute, cfg.Fraud.Cooldown())
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	t.Setenv("FRAUD_FLAG_THRESHOLD", "80")
	t.Setenv("FRAUD_BLOCK_THRESHOLD", "70")

	_, err := Load("fraudgate")
	require.Error(t, err)
}

func TestLoadClampsNegativeCooldown(t *testing.T) {
	t.Setenv("FRAUD_COOLDOWN_SECONDS", "-5")

	cfg, err := Load("fraudgate")
	require.NoError(t, err)
	assert.Zero(t, cfg.Fraud.CooldownSeconds)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db", Port: "5432", User: "app", Password: "secret",
		DBName: "offerwall", SSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=offerwall sslmode=disable", cfg.DSN())
}
