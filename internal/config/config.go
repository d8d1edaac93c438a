package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/hospital-cli/internal/resolve"
	"github.com/sells-group/hospital-cli/internal/staffing"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Match     resolve.Config  `yaml:"match" mapstructure:"match"`
	Reconcile ReconcileConfig `yaml:"reconcile" mapstructure:"reconcile"`
	Staffing  StaffingConfig  `yaml:"staffing" mapstructure:"staffing"`
	Directory DirectoryConfig `yaml:"directory" mapstructure:"directory"`
	POS       POSConfig       `yaml:"pos" mapstructure:"pos"`
	OCR       OCRConfig       `yaml:"ocr" mapstructure:"ocr"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite, postgres or none
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// FetchConfig configures outbound HTTP.
type FetchConfig struct {
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs  int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs      int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	BreakerThreshold  int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownS  int     `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// ReconcileConfig configures dataset reconciliation.
type ReconcileConfig struct {
	Canonical  string `yaml:"canonical" mapstructure:"canonical"`
	Profiles   string `yaml:"profiles" mapstructure:"profiles"`
	FlagColumn string `yaml:"flag_column" mapstructure:"flag_column"`
	Workers    int    `yaml:"workers" mapstructure:"workers"`
}

// StaffingConfig configures staffing plan collection and parsing.
type StaffingConfig struct {
	BaseURL      string                 `yaml:"base_url" mapstructure:"base_url"`
	IndexURL     string                 `yaml:"index_url" mapstructure:"index_url"`
	Output       string                 `yaml:"output" mapstructure:"output"`
	ErrorsOutput string                 `yaml:"errors_output" mapstructure:"errors_output"`
	Concurrency  int                    `yaml:"concurrency" mapstructure:"concurrency"`
	HeaderMarker string                 `yaml:"header_marker" mapstructure:"header_marker"`
	ShiftMarkers []staffing.ShiftMarker `yaml:"shift_markers" mapstructure:"shift_markers"`
	Units        []string               `yaml:"units" mapstructure:"units"`
}

// Parser returns the page classification and unit filter settings.
func (s StaffingConfig) Parser() staffing.Config {
	return staffing.Config{HeaderMarker: s.HeaderMarker, ShiftMarkers: s.ShiftMarkers, Units: s.Units}
}

// DirectoryConfig configures the canonical hospital directory scrape.
type DirectoryConfig struct {
	URL    string `yaml:"url" mapstructure:"url"`
	Output string `yaml:"output" mapstructure:"output"`
}

// POSConfig configures the provider-of-services filter.
type POSConfig struct {
	Columns []string `yaml:"columns" mapstructure:"columns"`
}

// OCRConfig configures PDF text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"` // native, local or mistral
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_model" mapstructure:"mistral_model"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	MaxBodyMB   int      `yaml:"max_body_mb" mapstructure:"max_body_mb"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultPOSColumns are the provider-of-services columns kept by the pos filter.
var DefaultPOSColumns = []string{
	"PRVDR_CTGRY_SBTYP_CD", "PRVDR_CTGRY_CD", "CHOW_DT", "ELGBLTY_SW", "MDCD_VNDR_NUM",
	"PRVDR_NUM", "GNRL_CNTL_TYPE_CD", "CBSA_URBN_RRL_IND", "CBSA_CD", "ACRDTN_TYPE_CD",
	"TOT_AFLTD_AMBLNC_SRVC_CNT", "TOT_AFLTD_HHA_CNT", "CRTFD_BED_CNT", "BED_CNT",
	"MDCL_SCHL_AFLTN_CD", "PGM_PRTCPTN_CD", "LPN_LVN_CNT", "RSDNT_PHYSN_CNT", "RN_CNT",
}

// Load reads configuration from an optional .env file, an optional
// config.yaml and HOSPITAL_* environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("HOSPITAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "hospital.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (compatible; hospital-cli/1.0)")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.requests_per_second", 1.33)
	v.SetDefault("fetch.burst", 1)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.initial_backoff_ms", 500)
	v.SetDefault("fetch.max_backoff_ms", 10000)
	v.SetDefault("fetch.breaker_threshold", 5)
	v.SetDefault("fetch.breaker_cooldown_secs", 30)
	v.SetDefault("match.mode", string(resolve.ModeFull))
	v.SetDefault("match.min_score", 0)
	v.SetDefault("match.name_substring_points", 0)
	v.SetDefault("match.shared_words_points", 0)
	v.SetDefault("match.shared_word_points", 0)
	v.SetDefault("match.generic_words", resolve.DefaultGenericWords)
	v.SetDefault("reconcile.canonical", "nys_hospitals.csv")
	v.SetDefault("reconcile.profiles", "")
	v.SetDefault("reconcile.flag_column", "match_status")
	v.SetDefault("reconcile.workers", 1)
	v.SetDefault("staffing.base_url", "https://www.health.ny.gov")
	v.SetDefault("staffing.index_url", "https://www.health.ny.gov/facilities/hospital/staffing_plans/")
	v.SetDefault("staffing.output", "rn_shifts.csv")
	v.SetDefault("staffing.errors_output", "rn_shifts_errors.csv")
	v.SetDefault("staffing.concurrency", 2)
	v.SetDefault("staffing.header_marker", staffing.DefaultHeaderMarker)
	v.SetDefault("staffing.shift_markers", defaultShiftMarkers())
	v.SetDefault("staffing.units", staffing.DefaultUnits)
	v.SetDefault("directory.url", "https://profiles.health.ny.gov/directory/hospitals")
	v.SetDefault("directory.output", "nys_hospitals.csv")
	v.SetDefault("pos.columns", DefaultPOSColumns)
	v.SetDefault("ocr.provider", "native")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.mistral_api_key", "")
	v.SetDefault("ocr.mistral_model", "mistral-ocr-latest")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.max_body_mb", 32)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func defaultShiftMarkers() []map[string]any {
	var out []map[string]any
	for _, m := range staffing.DefaultShiftMarkers() {
		out = append(out, map[string]any{"shift": string(m.Shift), "marker": m.Marker})
	}
	return out
}

// Validate checks the settings a command depends on. mode is the command name.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "none", "":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not one of sqlite, postgres, none", c.Store.Driver))
	}

	switch mode {
	case "directory":
		if c.Directory.URL == "" {
			errs = append(errs, "directory.url is required")
		}
	case "reconcile":
		if c.Reconcile.FlagColumn == "" {
			errs = append(errs, "reconcile.flag_column is required")
		}
		if c.Reconcile.Workers < 1 || c.Reconcile.Workers > 64 {
			errs = append(errs, "reconcile.workers must be between 1 and 64")
		}
		if _, err := resolve.NewScorer(c.Match); err != nil {
			errs = append(errs, err.Error())
		}
	case "staffing":
		if c.Staffing.IndexURL == "" {
			errs = append(errs, "staffing.index_url is required")
		}
		if c.Staffing.Concurrency < 1 || c.Staffing.Concurrency > 16 {
			errs = append(errs, "staffing.concurrency must be between 1 and 16")
		}
		switch c.OCR.Provider {
		case "native", "local", "":
		case "mistral":
			if c.OCR.MistralKey == "" {
				errs = append(errs, "ocr.mistral_api_key is required for the mistral provider")
			}
		default:
			errs = append(errs, fmt.Sprintf("ocr.provider %q is not one of native, local, mistral", c.OCR.Provider))
		}
	case "pos":
		if len(c.POS.Columns) == 0 {
			errs = append(errs, "pos.columns must not be empty")
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.MaxBodyMB <= 0 {
			errs = append(errs, "server.max_body_mb must be > 0")
		}
	case "runs":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Fetch.RequestsPerSecond < 0 {
		errs = append(errs, "fetch.requests_per_second must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
