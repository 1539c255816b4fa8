// Package config loads run configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DateFormat is the ISO-8601 layout used for the inclusive date range.
const DateFormat = "2006-01-02"

// Config is the complete configuration for a crimefetch run. All fields
// come from CRIMEFETCH_* environment variables; defaults reproduce the
// Hollywood-area 30-day pull the tool was built for.
type Config struct {
	// BaseURL is the SODA resource to query.
	BaseURL string `envconfig:"BASE_URL" default:"https://data.lacity.org/resource/y8y3-fqfu.json"`

	// AppToken is the optional X-App-Token credential. Anonymous access
	// works but gets stricter rate limits.
	AppToken string `envconfig:"APP_TOKEN"`

	// Districts are the reporting district codes to match.
	Districts []string `envconfig:"DISTRICTS" default:"645,646,647,666,663,656,676"`

	// StartDate and EndDate bound the occurrence date, inclusive.
	StartDate string `envconfig:"START_DATE" default:"2025-07-26"`
	EndDate   string `envconfig:"END_DATE" default:"2025-08-25"`

	// Output is the CSV destination path.
	Output string `envconfig:"OUTPUT" default:"hollywood_crimes_30days.csv"`

	// PageSize and BulkLimit tune the two retrieval strategies.
	PageSize  int `envconfig:"PAGE_SIZE" default:"1000"`
	BulkLimit int `envconfig:"BULK_LIMIT" default:"50000"`

	// PageInterval spaces consecutive page requests.
	PageInterval time.Duration `envconfig:"PAGE_INTERVAL" default:"100ms"`

	// RedisAddr enables response caching when set (host:port). Empty
	// disables caching entirely.
	RedisAddr string        `envconfig:"REDIS_ADDR"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"true"`
}

// Load reads and validates configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("crimefetch", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants the rest of the program relies on:
// non-empty district set, parseable dates with start <= end, and positive
// retrieval sizes.
func (c Config) Validate() error {
	if len(c.Districts) == 0 {
		return fmt.Errorf("at least one district is required")
	}
	for _, d := range c.Districts {
		if d == "" {
			return fmt.Errorf("district codes must be non-empty")
		}
	}

	start, err := time.Parse(DateFormat, c.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start date %q: %w", c.StartDate, err)
	}
	end, err := time.Parse(DateFormat, c.EndDate)
	if err != nil {
		return fmt.Errorf("invalid end date %q: %w", c.EndDate, err)
	}
	if start.After(end) {
		return fmt.Errorf("start date %s is after end date %s", c.StartDate, c.EndDate)
	}

	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	if c.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive (got %d)", c.PageSize)
	}
	if c.BulkLimit <= 0 {
		return fmt.Errorf("bulk limit must be positive (got %d)", c.BulkLimit)
	}

	return nil
}
