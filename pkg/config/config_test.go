package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("geoippro")
	require.NoError(t, err)

	assert.Equal(t, "geoippro", cfg.Server.ServiceName)
	assert.True(t, cfg.Risk.MismatchEnabled)
	assert.False(t, cfg.Risk.DistanceEnabled)
	assert.False(t, cfg.Risk.ReputationEnabled)
	assert.Equal(t, 50.0, cfg.Risk.ReputationScoreThreshold)
	assert.Equal(t, 50.0, cfg.Risk.MaxDistanceMiles)
	assert.Equal(t, "0", cfg.Risk.CountryListMode)
	assert.Equal(t, 15*time.Minute, cfg.Reputation.CacheTTL)
	assert.False(t, cfg.Database.Enabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("RISK_COUNTRY_LIST_MODE", "2")
	t.Setenv("RISK_COUNTRY_CODES", "cn, ru")
	t.Setenv("RISK_MAX_DISTANCE_MILES", "120.5")
	t.Setenv("RISK_PORT_ENABLED", "true")
	t.Setenv("REPUTATION_TIMEOUT", "750ms")
	t.Setenv("DB_HOST", "db.internal")

	cfg, err := Load("geoippro")
	require.NoError(t, err)

	assert.Equal(t, "2", cfg.Risk.CountryListMode)
	assert.Equal(t, "cn, ru", cfg.Risk.CountryCodes)
	assert.Equal(t, 120.5, cfg.Risk.MaxDistanceMiles)
	assert.True(t, cfg.Risk.PortEnabled)
	assert.Equal(t, 750*time.Millisecond, cfg.Reputation.Timeout)
	assert.True(t, cfg.Database.Enabled())
}

func TestLoad_RejectsNegativeThreshold(t *testing.T) {
	t.Setenv("RISK_REPUTATION_THRESHOLD", "-1")

	_, err := Load("geoippro")
	assert.Error(t, err)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("RISK_MAX_DISTANCE_MILES", "far")
	t.Setenv("REDIS_DB", "x")

	cfg, err := Load("geoippro")
	require.NoError(t, err)
	assert.Equal(t, 50.0, cfg.Risk.MaxDistanceMiles)
	assert.Equal(t, 0, cfg.Redis.DB)
}

func TestDatabaseConfig_URL(t *testing.T) {
	c := DatabaseConfig{Host: "h", Port: "5432", User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", c.URL())
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=disable", c.DSN())
}
