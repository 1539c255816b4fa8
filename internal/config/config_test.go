package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		BaseURL:   "https://data.lacity.org/resource/y8y3-fqfu.json",
		Districts: []string{"645", "646"},
		StartDate: "2025-07-26",
		EndDate:   "2025-08-25",
		Output:    "out.csv",
		PageSize:  1000,
		BulkLimit: 50000,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:     "no districts",
			mutate:   func(c *Config) { c.Districts = nil },
			errorMsg: "at least one district",
		},
		{
			name:     "empty district code",
			mutate:   func(c *Config) { c.Districts = []string{"645", ""} },
			errorMsg: "non-empty",
		},
		{
			name:     "bad start date",
			mutate:   func(c *Config) { c.StartDate = "26-07-2025" },
			errorMsg: "invalid start date",
		},
		{
			name:     "bad end date",
			mutate:   func(c *Config) { c.EndDate = "not-a-date" },
			errorMsg: "invalid end date",
		},
		{
			name:     "start after end",
			mutate:   func(c *Config) { c.StartDate, c.EndDate = "2025-08-25", "2025-07-26" },
			errorMsg: "after end date",
		},
		{
			name:     "missing base URL",
			mutate:   func(c *Config) { c.BaseURL = "" },
			errorMsg: "base URL",
		},
		{
			name:     "missing output",
			mutate:   func(c *Config) { c.Output = "" },
			errorMsg: "output path",
		},
		{
			name:     "zero page size",
			mutate:   func(c *Config) { c.PageSize = 0 },
			errorMsg: "page size",
		},
		{
			name:     "negative bulk limit",
			mutate:   func(c *Config) { c.BulkLimit = -1 },
			errorMsg: "bulk limit",
		},
		{
			name:   "equal dates allowed",
			mutate: func(c *Config) { c.StartDate, c.EndDate = "2025-08-01", "2025-08-01" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.errorMsg)
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Validate() = %q, want it to contain %q", err.Error(), tt.errorMsg)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.BaseURL != "https://data.lacity.org/resource/y8y3-fqfu.json" {
		t.Errorf("BaseURL default = %q", cfg.BaseURL)
	}
	if len(cfg.Districts) != 7 {
		t.Errorf("Districts default has %d entries, want 7", len(cfg.Districts))
	}
	if cfg.PageSize != 1000 {
		t.Errorf("PageSize default = %d, want 1000", cfg.PageSize)
	}
	if cfg.BulkLimit != 50000 {
		t.Errorf("BulkLimit default = %d, want 50000", cfg.BulkLimit)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr default = %q, want empty (caching off)", cfg.RedisAddr)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("CRIMEFETCH_DISTRICTS", "101,102")
	t.Setenv("CRIMEFETCH_START_DATE", "2025-01-01")
	t.Setenv("CRIMEFETCH_END_DATE", "2025-01-31")
	t.Setenv("CRIMEFETCH_OUTPUT", "january.csv")
	t.Setenv("CRIMEFETCH_PAGE_SIZE", "250")
	t.Setenv("CRIMEFETCH_APP_TOKEN", "tok")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.Districts) != 2 || cfg.Districts[0] != "101" || cfg.Districts[1] != "102" {
		t.Errorf("Districts = %v, want [101 102]", cfg.Districts)
	}
	if cfg.Output != "january.csv" {
		t.Errorf("Output = %q", cfg.Output)
	}
	if cfg.PageSize != 250 {
		t.Errorf("PageSize = %d, want 250", cfg.PageSize)
	}
	if cfg.AppToken != "tok" {
		t.Errorf("AppToken = %q, want tok", cfg.AppToken)
	}
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	t.Setenv("CRIMEFETCH_START_DATE", "2025-09-01")
	t.Setenv("CRIMEFETCH_END_DATE", "2025-08-01")

	if _, err := Load(); err == nil {
		t.Fatal("Load should reject start date after end date")
	}
}
