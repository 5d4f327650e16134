// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Address != DefaultAddress {
		t.Errorf("Expected address %q, got %q", DefaultAddress, cfg.Server.Address)
	}
	if cfg.Database.Driver != DefaultDriver {
		t.Errorf("Expected driver %q, got %q", DefaultDriver, cfg.Database.Driver)
	}
	if cfg.Fetcher.Timeout.Std() != DefaultTimeout {
		t.Errorf("Expected timeout %v, got %v", DefaultTimeout, cfg.Fetcher.Timeout.Std())
	}
	if cfg.Fetcher.MaxRedirects != DefaultMaxRedirects {
		t.Errorf("Expected %d max redirects, got %d", DefaultMaxRedirects, cfg.Fetcher.MaxRedirects)
	}
	if cfg.Site.CurrencySymbol != DefaultCurrency {
		t.Errorf("Expected currency %q, got %q", DefaultCurrency, cfg.Site.CurrencySymbol)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got: %v", err)
	}
}

func TestLoadFromBytes(t *testing.T) {
	yamlData := `
server:
  address: ":9090"
database:
  driver: postgres
  dsn: "postgres://localhost/shelfmark"
fetcher:
  timeout: 20s
  max_redirects: 3
site:
  currency_symbol: "$"
logging:
  level: debug
`
	cfg, err := LoadFromBytes([]byte(yamlData))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Address != ":9090" {
		t.Errorf("Expected address :9090, got %q", cfg.Server.Address)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Expected postgres driver, got %q", cfg.Database.Driver)
	}
	if cfg.Fetcher.Timeout.Std() != 20*time.Second {
		t.Errorf("Expected 20s timeout, got %v", cfg.Fetcher.Timeout.Std())
	}
	if cfg.Fetcher.MaxRedirects != 3 {
		t.Errorf("Expected 3 max redirects, got %d", cfg.Fetcher.MaxRedirects)
	}
	if cfg.Site.CurrencySymbol != "$" {
		t.Errorf("Expected $ currency, got %q", cfg.Site.CurrencySymbol)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected debug logging, got %q", cfg.Logging.Level)
	}

	// Unspecified sections fall back to defaults.
	if cfg.Fetcher.UserAgent != DefaultUserAgent {
		t.Errorf("Expected default user agent, got %q", cfg.Fetcher.UserAgent)
	}
	if cfg.Site.BrandSuffix != DefaultBrandSuffix {
		t.Errorf("Expected default brand suffix, got %q", cfg.Site.BrandSuffix)
	}
}

func TestLoadFromBytesEmpty(t *testing.T) {
	if _, err := LoadFromBytes(nil); err == nil {
		t.Error("Expected error for empty configuration data")
	}
}

func TestLoadFromBytesInvalidYAML(t *testing.T) {
	if _, err := LoadFromBytes([]byte("{unclosed")); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestLoadFromBytesInvalidDuration(t *testing.T) {
	if _, err := LoadFromBytes([]byte("fetcher:\n  timeout: fast\n")); err == nil {
		t.Error("Expected error for unparseable duration")
	}
}

func TestLoadFromBytesUnsupportedDriver(t *testing.T) {
	_, err := LoadFromBytes([]byte("database:\n  driver: oracle\n"))
	if err == nil {
		t.Fatal("Expected error for unsupported driver")
	}
	if !strings.Contains(err.Error(), "unsupported database driver") {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestEnvironmentVariableExpansion(t *testing.T) {
	os.Setenv("SHELFMARK_TEST_DSN", "test.db")
	defer os.Unsetenv("SHELFMARK_TEST_DSN")

	cfg, err := LoadFromBytes([]byte("database:\n  dsn: ${SHELFMARK_TEST_DSN}\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.DSN != "test.db" {
		t.Errorf("Expected expanded DSN test.db, got %q", cfg.Database.DSN)
	}
}

func TestEnvironmentVariableUnset(t *testing.T) {
	os.Unsetenv("SHELFMARK_DEFINITELY_UNSET")

	cfg, err := LoadFromBytes([]byte("database:\n  dsn: \"x${SHELFMARK_DEFINITELY_UNSET}y\"\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.DSN != "xy" {
		t.Errorf("Expected unset variable to expand empty, got %q", cfg.Database.DSN)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  address: \":7070\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Errorf("Expected address :7070, got %q", cfg.Server.Address)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
	if _, err := LoadFromFile(""); err == nil {
		t.Error("Expected error for empty filename")
	}
}

func TestLoadFromReader(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader("logging:\n  level: warn\n"))
	if err != nil {
		t.Fatalf("Failed to load from reader: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Expected warn level, got %q", cfg.Logging.Level)
	}
	if _, err := LoadFromReader(nil); err == nil {
		t.Error("Expected error for nil reader")
	}
}

func TestValidateNegativeValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative timeout", func(c *Config) { c.Fetcher.Timeout = Duration(-time.Second) }},
		{"negative redirects", func(c *Config) { c.Fetcher.MaxRedirects = -1 }},
		{"negative rate limit", func(c *Config) { c.Fetcher.RateLimit = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
