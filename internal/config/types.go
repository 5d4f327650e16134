// internal/config/types.go
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "15s" as well as integer nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := node.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value")
	}
	*d = Duration(n)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Fetcher  FetcherConfig  `yaml:"fetcher"`
	Site     SiteConfig     `yaml:"site"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig configures the HTTP API surface.
type ServerConfig struct {
	Address      string   `yaml:"address"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// DatabaseConfig selects the catalog store backend. Driver is one of
// sqlite3, postgres, mysql.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// FetcherConfig configures page retrieval.
type FetcherConfig struct {
	Timeout      Duration `yaml:"timeout"`
	MaxRedirects int      `yaml:"max_redirects"`
	UserAgent    string   `yaml:"user_agent"`
	RateLimit    float64  `yaml:"rate_limit"` // requests per second
	RateBurst    int      `yaml:"rate_burst"`
	Browser      bool     `yaml:"browser"` // render pages in headless Chrome
	WaitSelector string   `yaml:"wait_selector,omitempty"`
}

// SiteConfig captures source-site specifics the extractor depends on.
type SiteConfig struct {
	CurrencySymbol string `yaml:"currency_symbol"`
	BrandSuffix    string `yaml:"brand_suffix"`
}

// LoggingConfig configures the application logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig configures Prometheus metrics exposure.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}
