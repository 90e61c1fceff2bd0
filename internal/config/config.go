package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for a backtest run.
type Config struct {
	Backtest Backtest `yaml:"backtest"`
	Data     Data     `yaml:"data"`
	Storage  Storage  `yaml:"storage"`
	Logging  Logging  `yaml:"logging"`
}

// Backtest defines what to simulate and how the broker behaves.
type Backtest struct {
	Strategy           string   `yaml:"strategy"`
	Symbols            []string `yaml:"symbols"`
	StartDate          string   `yaml:"start_date"` // YYYY-MM-DD
	EndDate            string   `yaml:"end_date"`   // YYYY-MM-DD
	Timeframe          string   `yaml:"timeframe"`  // 1Day, 1Hour, 1Min
	WarmupDays         int      `yaml:"warmup_days"`
	InitialCash        float64  `yaml:"initial_cash"`
	CommissionPerShare float64  `yaml:"commission_per_share"`
	SlippagePercent    float64  `yaml:"slippage_percent"`
}

// Data holds credentials and endpoints for the market-data source.
type Data struct {
	APIKey          string `yaml:"api_key"`
	APISecret       string `yaml:"api_secret"`
	DataURL         string `yaml:"data_url"`
	Feed            string `yaml:"feed"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Data.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Data.APISecret = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Data.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Data.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Data.APISecret = v
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate checks that the backtest section names a strategy, symbols, and a
// well-formed date range.
func (c *Config) Validate() error {
	if c.Backtest.Strategy == "" {
		return fmt.Errorf("backtest.strategy is required")
	}
	if len(c.Backtest.Symbols) == 0 {
		return fmt.Errorf("backtest.symbols is required")
	}
	start, err := c.Backtest.StartTime()
	if err != nil {
		return err
	}
	end, err := c.Backtest.EndTime()
	if err != nil {
		return err
	}
	if !end.After(start) {
		return fmt.Errorf("backtest.end_date %s must be after start_date %s",
			c.Backtest.EndDate, c.Backtest.StartDate)
	}
	if c.Backtest.InitialCash <= 0 {
		return fmt.Errorf("backtest.initial_cash must be positive")
	}
	if c.Backtest.WarmupDays < 0 {
		return fmt.Errorf("backtest.warmup_days must not be negative")
	}
	return nil
}

// StartTime parses the configured start date.
func (b Backtest) StartTime() (time.Time, error) {
	t, err := time.Parse("2006-01-02", b.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing backtest.start_date: %w", err)
	}
	return t, nil
}

// EndTime parses the configured end date.
func (b Backtest) EndTime() (time.Time, error) {
	t, err := time.Parse("2006-01-02", b.EndDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing backtest.end_date: %w", err)
	}
	return t, nil
}

// Warmup returns the configured warmup as a duration.
func (b Backtest) Warmup() time.Duration {
	return time.Duration(b.WarmupDays) * 24 * time.Hour
}
