package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8082" {
		t.Errorf("Port = %q, want 8082", cfg.Port)
	}
	if cfg.DataBackend != "memory" {
		t.Errorf("DataBackend = %q, want memory", cfg.DataBackend)
	}
	if cfg.WeekStartDay != time.Monday {
		t.Errorf("WeekStartDay = %v, want Monday", cfg.WeekStartDay)
	}
	if cfg.FeedPageSize != 5 {
		t.Errorf("FeedPageSize = %d, want 5", cfg.FeedPageSize)
	}
	if cfg.RecurringInterval != time.Hour {
		t.Errorf("RecurringInterval = %v, want 1h", cfg.RecurringInterval)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", "/tmp/test.db")
	t.Setenv("WEEK_START_DAY", "Sunday")
	t.Setenv("FEED_PAGE_SIZE", "10")
	t.Setenv("SUMMARY_CACHE_TTL", "30s")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.DataBackend != "sqlite" {
		t.Errorf("DataBackend = %q", cfg.DataBackend)
	}
	if cfg.SQLiteDBPath != "/tmp/test.db" {
		t.Errorf("SQLiteDBPath = %q", cfg.SQLiteDBPath)
	}
	if cfg.WeekStartDay != time.Sunday {
		t.Errorf("WeekStartDay = %v, want Sunday", cfg.WeekStartDay)
	}
	if cfg.FeedPageSize != 10 {
		t.Errorf("FeedPageSize = %d", cfg.FeedPageSize)
	}
	if cfg.SummaryCacheTTL != 30*time.Second {
		t.Errorf("SummaryCacheTTL = %v", cfg.SummaryCacheTTL)
	}
}

func TestLoadIgnoresMalformedEnv(t *testing.T) {
	t.Setenv("FEED_PAGE_SIZE", "lots")
	t.Setenv("WEEK_START_DAY", "someday")
	t.Setenv("RECURRING_INTERVAL", "often")

	cfg := Load()

	if cfg.FeedPageSize != 5 {
		t.Errorf("FeedPageSize = %d, want default 5", cfg.FeedPageSize)
	}
	if cfg.WeekStartDay != time.Monday {
		t.Errorf("WeekStartDay = %v, want default Monday", cfg.WeekStartDay)
	}
	if cfg.RecurringInterval != time.Hour {
		t.Errorf("RecurringInterval = %v, want default 1h", cfg.RecurringInterval)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:              "8082",
			DataBackend:       "memory",
			FeedPageSize:      5,
			SummaryCacheSize:  64,
			SummaryCacheTTL:   5 * time.Second,
			RecurringInterval: time.Hour,
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"non-numeric port", func(c *Config) { c.Port = "http" }, "invalid port"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "invalid port"},
		{"unknown backend", func(c *Config) { c.DataBackend = "postgres" }, "invalid data backend"},
		{"sqlite without path", func(c *Config) { c.DataBackend = "sqlite"; c.SQLiteDBPath = "" }, "database path"},
		{"bad amqp scheme", func(c *Config) { c.AMQPURL = "http://broker" }, "AMQP URL scheme"},
		{"amqp without exchange", func(c *Config) { c.AMQPURL = "amqp://broker"; c.AMQPQueue = "q" }, "exchange"},
		{"page size too small", func(c *Config) { c.FeedPageSize = 0 }, "feed page size"},
		{"page size too large", func(c *Config) { c.FeedPageSize = 500 }, "feed page size"},
		{"tiny cache ttl", func(c *Config) { c.SummaryCacheTTL = time.Millisecond }, "cache TTL"},
		{"tiny recurring interval", func(c *Config) { c.RecurringInterval = time.Second }, "recurring interval"},
	}
	for _, tc := range cases {
		cfg := valid()
		tc.mutate(cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.wantMsg) {
			t.Errorf("%s: error %q does not mention %q", tc.name, err, tc.wantMsg)
		}
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{Port: "bad", DataBackend: "bad", FeedPageSize: 0}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"port", "backend", "page size"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %q", want, err)
		}
	}
}
