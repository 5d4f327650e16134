// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when a section is absent from the YAML file.
const (
	DefaultAddress      = ":8080"
	DefaultDriver       = "sqlite3"
	DefaultDSN          = "shelfmark.db"
	DefaultTimeout      = 15 * time.Second
	DefaultMaxRedirects = 5
	DefaultRateLimit    = 1.0
	DefaultRateBurst    = 5
	DefaultCurrency     = "£"
	DefaultBrandSuffix  = "World of Books"
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Default returns a configuration populated with defaults only. Used when
// no config file is supplied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes, substituting ${VAR}
// environment references before parsing.
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	expanded := expandEnvironmentVariables(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from an io.Reader.
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %w", err)
	}

	return LoadFromBytes(data)
}

// expandEnvironmentVariables substitutes ${VAR} references with environment
// values. Unset variables expand to the empty string.
func expandEnvironmentVariables(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = DefaultAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = Duration(30 * time.Second)
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = Duration(30 * time.Second)
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DefaultDriver
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = DefaultDSN
	}
	if cfg.Fetcher.Timeout == 0 {
		cfg.Fetcher.Timeout = Duration(DefaultTimeout)
	}
	if cfg.Fetcher.MaxRedirects == 0 {
		cfg.Fetcher.MaxRedirects = DefaultMaxRedirects
	}
	if cfg.Fetcher.UserAgent == "" {
		cfg.Fetcher.UserAgent = DefaultUserAgent
	}
	if cfg.Fetcher.RateLimit == 0 {
		cfg.Fetcher.RateLimit = DefaultRateLimit
	}
	if cfg.Fetcher.RateBurst == 0 {
		cfg.Fetcher.RateBurst = DefaultRateBurst
	}
	if cfg.Site.CurrencySymbol == "" {
		cfg.Site.CurrencySymbol = DefaultCurrency
	}
	if cfg.Site.BrandSuffix == "" {
		cfg.Site.BrandSuffix = DefaultBrandSuffix
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "shelfmark"
	}
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Fetcher.Timeout < 0 {
		return fmt.Errorf("fetcher timeout cannot be negative")
	}
	if c.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher max_redirects cannot be negative")
	}
	if c.Fetcher.RateLimit < 0 {
		return fmt.Errorf("fetcher rate_limit cannot be negative")
	}

	return nil
}
