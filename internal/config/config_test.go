package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/hospital-cli/internal/resolve"
	"github.com/sells-group/hospital-cli/internal/staffing"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "hospital.db", cfg.Store.SQLitePath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 60, cfg.Fetch.TimeoutSecs)
	assert.InDelta(t, 1.33, cfg.Fetch.RequestsPerSecond, 0.001)
	assert.Equal(t, 3, cfg.Fetch.MaxAttempts)
	assert.Equal(t, resolve.ModeFull, cfg.Match.Mode)
	assert.Equal(t, resolve.DefaultGenericWords, cfg.Match.GenericWords)
	assert.Equal(t, "match_status", cfg.Reconcile.FlagColumn)
	assert.Equal(t, 1, cfg.Reconcile.Workers)
	assert.Equal(t, "https://www.health.ny.gov/facilities/hospital/staffing_plans/", cfg.Staffing.IndexURL)
	assert.Equal(t, staffing.DefaultUnits, cfg.Staffing.Units)
	assert.Equal(t, staffing.DefaultShiftMarkers(), cfg.Staffing.ShiftMarkers)
	assert.Equal(t, "https://profiles.health.ny.gov/directory/hospitals", cfg.Directory.URL)
	assert.Equal(t, DefaultPOSColumns, cfg.POS.Columns)
	assert.Equal(t, "native", cfg.OCR.Provider)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/hospital
log:
  level: debug
  format: console
match:
  mode: name_only
  min_score: 6
staffing:
  units:
    - critical care
    - pediatrics
  shift_markers:
    - shift: day
      marker: DAY STAFFING
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/hospital", cfg.Store.DatabaseURL)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, resolve.ModeNameOnly, cfg.Match.Mode)
	assert.Equal(t, 6, cfg.Match.MinScore)
	assert.Equal(t, []string{"critical care", "pediatrics"}, cfg.Staffing.Units)
	assert.Equal(t, []staffing.ShiftMarker{{Shift: staffing.ShiftDay, Marker: "DAY STAFFING"}}, cfg.Staffing.ShiftMarkers)
	// Defaults still apply for unset values.
	assert.Equal(t, 8080, cfg.Server.Port)

	p := cfg.Staffing.Parser()
	assert.Equal(t, staffing.DefaultHeaderMarker, p.HeaderMarker)
	assert.Len(t, p.ShiftMarkers, 1)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("HOSPITAL_STORE_DRIVER", "none")
	t.Setenv("HOSPITAL_LOG_LEVEL", "warn")
	t.Setenv("HOSPITAL_RECONCILE_WORKERS", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 8, cfg.Reconcile.Workers)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HOSPITAL_SERVER_PORT=3001\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("HOSPITAL_SERVER_PORT") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3001, cfg.Server.Port)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "loud", Format: "json"}))
}

func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Match = resolve.FullConfig()
	cfg.Reconcile.FlagColumn = "match_status"
	cfg.Reconcile.Workers = 1
	cfg.Staffing.IndexURL = "https://example.test/staffing/"
	cfg.Staffing.Concurrency = 2
	cfg.Directory.URL = "https://example.test/directory"
	cfg.POS.Columns = DefaultPOSColumns
	cfg.OCR.Provider = "native"
	cfg.Server.Port = 8080
	cfg.Server.MaxBodyMB = 32
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		mutate  func(*Config)
		wantErr string
	}{
		{"directory ok", "directory", func(*Config) {}, ""},
		{"directory url", "directory", func(c *Config) { c.Directory.URL = "" }, "directory.url is required"},
		{"reconcile ok", "reconcile", func(*Config) {}, ""},
		{"reconcile workers", "reconcile", func(c *Config) { c.Reconcile.Workers = 0 }, "reconcile.workers must be between 1 and 64"},
		{"reconcile match", "reconcile", func(c *Config) { c.Match.Mode = "fuzzy" }, "unknown match mode"},
		{"staffing ok", "staffing", func(*Config) {}, ""},
		{"staffing concurrency", "staffing", func(c *Config) { c.Staffing.Concurrency = 20 }, "staffing.concurrency"},
		{"staffing mistral key", "staffing", func(c *Config) { c.OCR.Provider = "mistral" }, "ocr.mistral_api_key is required"},
		{"staffing provider", "staffing", func(c *Config) { c.OCR.Provider = "tesseract" }, `ocr.provider "tesseract"`},
		{"pos columns", "pos", func(c *Config) { c.POS.Columns = nil }, "pos.columns must not be empty"},
		{"serve port", "serve", func(c *Config) { c.Server.Port = 0 }, "server.port must be > 0"},
		{"postgres url", "runs", func(c *Config) { c.Store.Driver = "postgres" }, "store.database_url is required"},
		{"store driver", "runs", func(c *Config) { c.Store.Driver = "mysql" }, `store.driver "mysql"`},
		{"unknown mode", "export", func(*Config) {}, `unknown mode "export"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
