package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "github.com/odyssey-erp/costwash/testing"
)

func TestInTestModeFromHarness(t *testing.T) {
	RefreshTestMode()
	require.True(t, InTestMode())

	// Registered first so it runs after Setenv restores the variable.
	t.Cleanup(RefreshTestMode)
	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	require.False(t, InTestMode())
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "env", cfg.Wash.SettingsSource)
	require.Equal(t, 30*time.Second, cfg.Wash.LockTTL)
	require.Equal(t, 120, cfg.Wash.RateLimit)
	require.Equal(t, 24*time.Hour, cfg.Wash.SweepLookback)
	require.Equal(t, "*/30 * * * *", cfg.WashSweepCron)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigReadsWashSettings(t *testing.T) {
	t.Setenv("WASH_ADJUSTMENT_ACCOUNT", "5100")
	t.Setenv("WASH_HOLDING_LOCATION", "99")
	t.Setenv("WASH_SETTINGS_SOURCE", "db")
	t.Setenv("APP_ENV", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "5100", cfg.Wash.AdjustmentAccount)
	require.Equal(t, "99", cfg.Wash.HoldingLocation)
	require.Equal(t, "db", cfg.Wash.SettingsSource)
	require.True(t, cfg.IsProduction())
}

func TestLoadConfigRejectsUnknownSettingsSource(t *testing.T) {
	t.Setenv("WASH_SETTINGS_SOURCE", "file")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "WASH_SETTINGS_SOURCE")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, "DEBUG", parseLevel(&Config{LogLevel: "debug"}).String())
	require.Equal(t, "WARN", parseLevel(&Config{LogLevel: "WARNING"}).String())
	require.Equal(t, "INFO", parseLevel(&Config{LogLevel: "loud"}).String())
	require.Equal(t, "INFO", parseLevel(nil).String())
}
