// Package config loads explorer configuration from defaults, an optional
// YAML file, EXPLORER_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fruitsalade/explorer/internal/permissions"
	"github.com/fruitsalade/explorer/pkg/models"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "EXPLORER"

// Config holds all explorer configuration.
type Config struct {
	// Gateway
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout" default:"30s"`
	RetryAttempts int           `mapstructure:"retry_attempts" default:"3"`

	// View
	HomePath string `mapstructure:"home_path" default:"/"`
	ViewMode string `mapstructure:"view_mode" default:"tree"`
	PageSize int    `mapstructure:"page_size" default:"50"`

	// Logging
	LogLevel  string `mapstructure:"log_level" default:"info"`
	LogFormat string `mapstructure:"log_format" default:"console"`
	LogOutput string `mapstructure:"log_output" default:"stderr"`

	// Metrics (optional, empty disables the listener)
	MetricsAddr string `mapstructure:"metrics_addr"`

	// Session
	SessionFile       string `mapstructure:"session_file"`
	SessionPassphrase string `mapstructure:"session_passphrase"`

	// OIDC (optional)
	OIDCIssuerURL string `mapstructure:"oidc_issuer_url"`
	OIDCClientID  string `mapstructure:"oidc_client_id"`

	// Grants assigns access levels to paths. Empty grants every capability.
	Grants []Grant `mapstructure:"grants"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// Grant gives Level on Path and everything below it.
type Grant struct {
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"`
}

// keys lists every key settable from the environment.
var keys = []string{
	"base_url", "timeout", "retry_attempts",
	"home_path", "view_mode", "page_size",
	"log_level", "log_format", "log_output",
	"metrics_addr",
	"session_file", "session_passphrase",
	"oidc_issuer_url", "oidc_client_id",
}

// Load reads configuration. path names an explicit config file; when empty,
// explorer.yaml is looked up in the user config dir and the working
// directory and is optional. Only flags the user changed override the other
// sources; flag names map to keys by replacing "-" with "_".
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("set config defaults: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("explorer")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "explorer"))
		}
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	if flags != nil {
		var bindErr error
		flags.Visit(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	return cfg, nil
}

// Validate checks the configuration for values the explorer cannot run with.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required (set %s_BASE_URL)", EnvPrefix)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url %q must be an http or https URL", c.BaseURL)
	}
	if _, ok := models.ParseViewMode(c.ViewMode); !ok {
		return fmt.Errorf("view_mode %q must be tree, flat or search", c.ViewMode)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if !strings.HasPrefix(c.HomePath, "/") {
		return fmt.Errorf("home_path %q must start with /", c.HomePath)
	}
	for _, g := range c.Grants {
		if !strings.HasPrefix(g.Path, "/") {
			return fmt.Errorf("grant path %q must start with /", g.Path)
		}
		if !permissions.ValidLevel(g.Level) {
			return fmt.Errorf("grant for %s: unknown level %q", g.Path, g.Level)
		}
	}
	return nil
}

// Mode returns the configured view mode.
func (c *Config) Mode() models.ViewMode {
	mode, _ := models.ParseViewMode(c.ViewMode)
	return mode
}

// Resolver returns the permission resolver described by Grants.
func (c *Config) Resolver() permissions.Resolver {
	if len(c.Grants) == 0 {
		return permissions.AllowAll{}
	}
	grants := make(permissions.PathGrants, len(c.Grants))
	for _, g := range c.Grants {
		grants[g.Path] = g.Level
	}
	return grants
}
