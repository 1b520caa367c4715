package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/studio-payroll/config"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// inEmptyDir runs the test from a fresh directory so no payroll.yaml or
// .env of the repository is picked up.
func inEmptyDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Setenv("PWD", dir)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// =============================================================================
// LOADING
// =============================================================================

func TestLoad_Defaults(t *testing.T) {
	// GIVEN: No config file and no environment overrides
	inEmptyDir(t)

	// WHEN: Loading
	cfg, err := config.Load("")

	// THEN: The published studio rules apply
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "./data/payroll.db", cfg.Server.DB)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, "default", cfg.Scheduler.Tenant)

	engine, err := cfg.Payroll()
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.08").Equal(engine.RetentionRate))
	assert.True(t, decimal.NewFromInt(80).Equal(engine.CoverRate))
	assert.True(t, decimal.NewFromInt(5).Equal(engine.BrandingRate))
	assert.True(t, decimal.NewFromInt(30).Equal(engine.ThemeRideRate))
	assert.Equal(t, 10, engine.PenaltyAllowancePercent)
	assert.Equal(t, 10, engine.MaxPenaltyDiscount)
	assert.Equal(t, time.Hour, engine.DoubleShiftWindow)
	assert.Equal(t, "America/Lima", engine.Location.String())
}

func TestLoad_ExplicitFile(t *testing.T) {
	// GIVEN: A YAML file overriding the port, the engine and the schedule
	dir := inEmptyDir(t)
	schedulePath := writeFile(t, dir, "nonprime.yaml", "discipline: Barre\nslots:\n  - studio: Reducto\n    times: [\"06:00\"]\n")
	path := writeFile(t, dir, "custom.yaml", `
server:
  port: "9000"
engine:
  retentionRate: "0.1"
  timezone: UTC
  doubleShiftWindow: 90m
schedule:
  file: `+schedulePath+`
scheduler:
  enabled: true
  interval: 15m
  period: "2026-10"
`)

	// WHEN: Loading it
	cfg, err := config.Load(path)

	// THEN: The file wins over defaults
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, "2026-10", cfg.Scheduler.Period)

	engine, err := cfg.Payroll()
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.1").Equal(engine.RetentionRate))
	assert.Equal(t, 90*time.Minute, engine.DoubleShiftWindow)
	assert.Equal(t, time.UTC, engine.Location)

	policy, err := cfg.NonPrimePolicy()
	require.NoError(t, err)
	assert.True(t, policy.AppliesTo("barre"))
	assert.True(t, policy.IsNonPrimeHour("Reducto", "06:00"))
}

func TestLoad_SearchesWorkingDirectory(t *testing.T) {
	dir := inEmptyDir(t)
	writeFile(t, dir, "payroll.yaml", "server:\n  port: \"7000\"\n")

	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Server.Port)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	// GIVEN: A file and PAYROLL_* variables for the same keys
	dir := inEmptyDir(t)
	path := writeFile(t, dir, "custom.yaml", "server:\n  port: \"9000\"\n")
	t.Setenv("PAYROLL_SERVER_PORT", "9999")
	t.Setenv("PAYROLL_ENGINE_COVERRATE", "100")

	// WHEN: Loading
	cfg, err := config.Load(path)

	// THEN: The environment wins
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Server.Port)
	engine, err := cfg.Payroll()
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(engine.CoverRate))
}

func TestLoad_DotEnvFile(t *testing.T) {
	// GIVEN: A .env file in the working directory
	dir := inEmptyDir(t)
	writeFile(t, dir, ".env", "PAYROLL_SCHEDULER_TENANT=studio-from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("PAYROLL_SCHEDULER_TENANT") })

	// WHEN: Loading
	cfg, err := config.Load("")

	// THEN: Its variables behave like process environment
	require.NoError(t, err)
	assert.Equal(t, "studio-from-dotenv", cfg.Scheduler.Tenant)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := inEmptyDir(t)

	_, err := config.Load(filepath.Join(dir, "missing.yaml"))

	assert.Error(t, err)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"retention above one", "engine:\n  retentionRate: \"1.5\"\n"},
		{"negative cover rate", "engine:\n  coverRate: \"-80\"\n"},
		{"not a decimal", "engine:\n  brandingRate: \"five\"\n"},
		{"unknown timezone", "engine:\n  timezone: Mars/Olympus\n"},
		{"discount above 100", "engine:\n  maxPenaltyDiscount: 150\n"},
		{"scheduler without period", "scheduler:\n  enabled: true\n"},
		{"empty discipline", "schedule:\n  discipline: \"  \"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := inEmptyDir(t)
			path := writeFile(t, dir, "custom.yaml", tt.yaml)

			_, err := config.Load(path)

			assert.Error(t, err)
		})
	}
}

func TestNonPrimePolicy_FromDiscipline(t *testing.T) {
	inEmptyDir(t)
	cfg, err := config.Load("")
	require.NoError(t, err)

	policy, err := cfg.NonPrimePolicy()

	require.NoError(t, err)
	assert.True(t, policy.AppliesTo("siclo"))
	assert.False(t, policy.IsNonPrimeHour("Reducto", "06:00"))
}
