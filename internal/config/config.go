// Package config loads onboard configuration from file, environment, and
// defaults via viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved daemon/CLI configuration.
type Config struct {
	// HubURL is the base URL of the authoritative hub
	HubURL string `mapstructure:"hub_url"`

	// HubPort is the port `onboard serve` listens on
	HubPort int `mapstructure:"hub_port"`

	// CachePath is the local cache database file
	CachePath string `mapstructure:"cache_path"`

	// TemplatesDir holds the YAML template definitions
	TemplatesDir string `mapstructure:"templates_dir"`

	// LogFile receives rotated daemon logs; empty logs to stderr
	LogFile string `mapstructure:"log_file"`

	// GuardWindow is the local-write-wins window for merge reconciliation
	GuardWindow time.Duration `mapstructure:"guard_window"`

	// UserID and UserRole identify the acting user for mutation stamping
	UserID   string `mapstructure:"user_id"`
	UserRole string `mapstructure:"user_role"`
}

// Load reads configuration from the given file (optional), the ONBOARD_*
// environment, and built-in defaults, in that precedence order.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("hub_url", "http://localhost:8470")
	v.SetDefault("hub_port", 8470)
	v.SetDefault("cache_path", ".onboard/cache.db")
	v.SetDefault("templates_dir", "templates")
	v.SetDefault("log_file", "")
	v.SetDefault("guard_window", 100*time.Millisecond)
	v.SetDefault("user_id", "")
	v.SetDefault("user_role", "")

	v.SetEnvPrefix("ONBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("onboard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.onboard")
		if err := v.ReadInConfig(); err != nil {
			// A missing default config file is fine; anything else is not.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
