package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DevelopmentDefaults(t *testing.T) {
	cfg, err := Load("lot-service")
	require.NoError(t, err)

	assert.Equal(t, 8084, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, "flowlytix_lots", cfg.Database.Database)
	assert.Equal(t, 30, cfg.Lot.NearExpiryDays)
	assert.Equal(t, 1000, cfg.Lot.ListMaxLimit)
	assert.Equal(t, 10000, cfg.Lot.SearchMaxLimit)
	assert.Equal(t, time.Hour, cfg.Lot.ExpirySweepInterval)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FLOWLYTIX_SERVER_PORT", "9090")
	t.Setenv("FLOWLYTIX_LOT_NEAR_EXPIRY_DAYS", "14")

	cfg, err := Load("lot-service")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 14, cfg.Lot.NearExpiryDays)
}

func TestLoadWithValidation_FailsInProductionWithoutDatabase(t *testing.T) {
	t.Setenv("FLOWLYTIX_SERVER_ENVIRONMENT", "production")

	_, err := LoadWithValidation("lot-service")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database configuration error")
}

func TestDatabaseConfig_DSNFromFields(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "svc",
		Password: "secret",
		Database: "lots",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5432 user=svc password=secret dbname=lots sslmode=require",
		cfg.DSN())
}

func TestDatabaseConfig_DSNFromURL(t *testing.T) {
	cfg := DatabaseConfig{URL: "postgres://u:p@host:5433/db?sslmode=verify-full"}
	dsn := cfg.DSN()
	assert.Contains(t, dsn, "host=host")
	assert.Contains(t, dsn, "port=5433")
	assert.Contains(t, dsn, "sslmode=verify-full")
}

func TestLotConfig_Validate(t *testing.T) {
	valid := LotConfig{NearExpiryDays: 30, ListMaxLimit: 1000, SearchMaxLimit: 10000, DefaultLimit: 100}
	require.NoError(t, valid.Validate())

	badThreshold := valid
	badThreshold.NearExpiryDays = 0
	assert.Error(t, badThreshold.Validate())

	badThreshold.NearExpiryDays = 366
	assert.Error(t, badThreshold.Validate())

	badLimits := valid
	badLimits.SearchMaxLimit = 10
	assert.Error(t, badLimits.Validate())

	badDefault := valid
	badDefault.DefaultLimit = 2000
	assert.Error(t, badDefault.Validate())
}
