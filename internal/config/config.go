// Package config defines all configuration for the breakout evaluation
// engine. Config is loaded from a YAML file (default:
// configs/config.yaml) with sensitive/deployment fields overridable via
// BRK_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file
// structure.
type Config struct {
	ATR        ATRConfig        `mapstructure:"atr"`
	Volume     VolumeConfig     `mapstructure:"volume"`
	Datastore  DatastoreConfig  `mapstructure:"datastore"`
	SpikeFilter SpikeFilterConfig `mapstructure:"spike_filter"`
	Orderbook  OrderbookConfig  `mapstructure:"orderbook"`
	Breakout   BreakoutParameters `mapstructure:"breakout"`
	Instruments map[string]BreakoutOverrides `mapstructure:"instruments"`

	Persistence PersistenceConfig `mapstructure:"persistence"`
	Sinks       SinksConfig       `mapstructure:"sinks"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Dashboard   DashboardConfig   `mapstructure:"dashboard"`

	Housekeeping HousekeepingConfig `mapstructure:"housekeeping"`
}

// ATRConfig controls the Average True Range window.
type ATRConfig struct {
	Period int `mapstructure:"period"`
}

// VolumeConfig controls the RVOL look-back window.
type VolumeConfig struct {
	RVOLPeriod int `mapstructure:"rvol_period"`
}

// DatastoreConfig sizes the per-instrument ring buffers.
type DatastoreConfig struct {
	BarsWindowSize   int `mapstructure:"bars_window_size"`
	VolumeWindowSize int `mapstructure:"volume_window_size"`
}

// SpikeFilterConfig tunes the per-candle outlier rejection gate.
type SpikeFilterConfig struct {
	Enable        bool    `mapstructure:"enable"`
	ATRMultiplier float64 `mapstructure:"atr_multiplier"`
}

// OrderbookConfig tunes the notional-depth and sweep-detection math.
type OrderbookConfig struct {
	MaxLevels          int     `mapstructure:"max_levels"`
	DepletionThreshold float64 `mapstructure:"depletion_threshold"`
	ImbalanceThreshold float64 `mapstructure:"imbalance_threshold"`
	MinDepletionNotional float64 `mapstructure:"min_depletion_notional"`
}

// BreakoutParameters are the global defaults for the breakout evaluator
// (§3). Plan- and instrument-level overrides are layered on top of
// these by Merge.
type BreakoutParameters struct {
	PenetrationPct         float64 `mapstructure:"penetration_pct"`
	PenetrationNATRMult    float64 `mapstructure:"penetration_natr_mult"`
	MinRVOL                float64 `mapstructure:"min_rvol"`
	ConfirmClose           bool    `mapstructure:"confirm_close"`
	ConfirmTimeMS          int64   `mapstructure:"confirm_time_ms"`
	AllowRetestEntry       bool    `mapstructure:"allow_retest_entry"`
	RetestBandPct          float64 `mapstructure:"retest_band_pct"`
	FakeoutCloseInvalidate bool    `mapstructure:"fakeout_close_invalidate"`
	OBSweepCheck           bool    `mapstructure:"ob_sweep_check"`
	MinBreakRangeATR       float64 `mapstructure:"min_break_range_atr"`
}

// BreakoutOverrides is the partial, instrument-level override form: a
// nil pointer means "inherit the layer below".
type BreakoutOverrides struct {
	PenetrationPct         *float64 `mapstructure:"penetration_pct"`
	PenetrationNATRMult    *float64 `mapstructure:"penetration_natr_mult"`
	MinRVOL                *float64 `mapstructure:"min_rvol"`
	ConfirmClose           *bool    `mapstructure:"confirm_close"`
	ConfirmTimeMS          *int64   `mapstructure:"confirm_time_ms"`
	AllowRetestEntry       *bool    `mapstructure:"allow_retest_entry"`
	RetestBandPct          *float64 `mapstructure:"retest_band_pct"`
	FakeoutCloseInvalidate *bool    `mapstructure:"fakeout_close_invalidate"`
	OBSweepCheck           *bool    `mapstructure:"ob_sweep_check"`
	MinBreakRangeATR       *float64 `mapstructure:"min_break_range_atr"`
}

// PersistenceConfig controls the durable signal store.
type PersistenceConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite3"
	DSN    string `mapstructure:"dsn"`
}

// SinksConfig enables and configures the signal delivery sinks.
type SinksConfig struct {
	HTTP   HTTPSinkConfig   `mapstructure:"http"`
	File   FileSinkConfig   `mapstructure:"file"`
	Stdout StdoutSinkConfig `mapstructure:"stdout"`
	DeadLetterPath string   `mapstructure:"dead_letter_path"`
}

// HTTPSinkConfig configures the webhook POST sink.
type HTTPSinkConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	URL        string        `mapstructure:"url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryCount int           `mapstructure:"retry_count"`
}

// FileSinkConfig configures the NDJSON/array file sink.
type FileSinkConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Path         string `mapstructure:"path"`
	Format       string `mapstructure:"format"` // "ndjson" | "array"
	RotateBytes  int64  `mapstructure:"rotate_bytes"`
}

// StdoutSinkConfig configures the stdout sink.
type StdoutSinkConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the optional read-only dashboard server.
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// HousekeepingConfig controls periodic persistence cleanup.
type HousekeepingConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Interval      time.Duration `mapstructure:"interval"`
	RetentionDays int           `mapstructure:"retention_days"`
}

// Load reads config from a YAML file with env var overrides.
// Deployment-sensitive fields use env vars: BRK_PERSISTENCE_DSN,
// BRK_SINKS_HTTP_URL.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("BRK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if dsn := os.Getenv("BRK_PERSISTENCE_DSN"); dsn != "" {
		cfg.Persistence.DSN = dsn
	}
	if url := os.Getenv("BRK_SINKS_HTTP_URL"); url != "" {
		cfg.Sinks.HTTP.URL = url
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("atr.period", 14)
	v.SetDefault("volume.rvol_period", 20)
	v.SetDefault("datastore.bars_window_size", 500)
	v.SetDefault("datastore.volume_window_size", 20)
	v.SetDefault("spike_filter.enable", true)
	v.SetDefault("spike_filter.atr_multiplier", 5.0)
	v.SetDefault("orderbook.max_levels", 5)
	v.SetDefault("orderbook.depletion_threshold", 0.2)
	v.SetDefault("orderbook.imbalance_threshold", 1.5)
	v.SetDefault("orderbook.min_depletion_notional", 1000.0)

	v.SetDefault("breakout.penetration_pct", 0.05)
	v.SetDefault("breakout.penetration_natr_mult", 0.25)
	v.SetDefault("breakout.min_rvol", 1.5)
	v.SetDefault("breakout.confirm_close", true)
	v.SetDefault("breakout.confirm_time_ms", 750)
	v.SetDefault("breakout.allow_retest_entry", false)
	v.SetDefault("breakout.retest_band_pct", 0.03)
	v.SetDefault("breakout.fakeout_close_invalidate", true)
	v.SetDefault("breakout.ob_sweep_check", true)
	v.SetDefault("breakout.min_break_range_atr", 0.5)

	v.SetDefault("housekeeping.enabled", false)
	v.SetDefault("housekeeping.interval", "24h")
	v.SetDefault("housekeeping.retention_days", 30)
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.ATR.Period < 2 {
		return fmt.Errorf("atr.period must be >= 2")
	}
	if c.Volume.RVOLPeriod < 2 {
		return fmt.Errorf("volume.rvol_period must be >= 2")
	}
	if c.Orderbook.MaxLevels < 1 {
		return fmt.Errorf("orderbook.max_levels must be >= 1")
	}
	if c.Orderbook.ImbalanceThreshold < 1 {
		return fmt.Errorf("orderbook.imbalance_threshold must be >= 1")
	}
	if c.Orderbook.DepletionThreshold < 0 || c.Orderbook.DepletionThreshold > 1 {
		return fmt.Errorf("orderbook.depletion_threshold must be in [0,1]")
	}
	if c.Sinks.HTTP.Enabled && c.Sinks.HTTP.URL == "" {
		return fmt.Errorf("sinks.http.url is required when sinks.http.enabled")
	}
	if c.Sinks.File.Enabled && c.Sinks.File.Path == "" {
		return fmt.Errorf("sinks.file.path is required when sinks.file.enabled")
	}
	if c.Persistence.Driver == "" {
		c.Persistence.Driver = "sqlite3"
	}
	if c.Persistence.DSN == "" {
		return fmt.Errorf("persistence.dsn is required")
	}
	return nil
}
