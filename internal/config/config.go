// Package config loads and validates portal configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Storage    StorageConfig    `mapstructure:"storage"`
	DB         DBConfig         `mapstructure:"db"`
	Provider   ProviderConfig   `mapstructure:"provider"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines admin API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// StorageConfig selects and configures the object store backend.
type StorageConfig struct {
	// Provider is one of s3, gcs, or memory.
	Provider           string `mapstructure:"provider"`
	Bucket             string `mapstructure:"bucket"`
	Region             string `mapstructure:"region"`
	Endpoint           string `mapstructure:"endpoint"`
	PathStyle          bool   `mapstructure:"path_style"`
	AccessKeyID        string `mapstructure:"access_key_id"`
	SecretAccessKey    string `mapstructure:"secret_access_key"`
	DownloadTTLSeconds int    `mapstructure:"download_ttl_seconds"`
	SourceTTLSeconds   int    `mapstructure:"source_ttl_seconds"`
}

// DBConfig selects and configures the order store backend.
type DBConfig struct {
	// Provider is one of postgres or memory.
	Provider        string `mapstructure:"provider"`
	DSN             string `mapstructure:"dsn"`
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	ConnLifetimeMin int    `mapstructure:"conn_lifetime_minutes"`
}

// ProviderConfig configures the external transcription service client.
type ProviderConfig struct {
	// Mode is one of scribe or memory.
	Mode            string `mapstructure:"mode"`
	BaseURL         string `mapstructure:"base_url"`
	APIKey          string `mapstructure:"api_key"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	CallbackBaseURL string `mapstructure:"callback_base_url"`
	CallbackToken   string `mapstructure:"callback_token"`
}

// ReconcilerConfig governs the periodic provider sweep.
type ReconcilerConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalSeconds int  `mapstructure:"interval_seconds"`
}

// NotifyConfig holds metadata for completion notifications.
type NotifyConfig struct {
	// Provider is one of none, memory, or pubsub.
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("storage.download_ttl_seconds", 3600)
	v.SetDefault("storage.source_ttl_seconds", 900)
	v.SetDefault("db.provider", "memory")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.conn_lifetime_minutes", 30)
	v.SetDefault("provider.mode", "memory")
	v.SetDefault("provider.timeout_seconds", 30)
	v.SetDefault("reconciler.enabled", true)
	v.SetDefault("reconciler.interval_seconds", 30)
	v.SetDefault("notify.provider", "none")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Storage.Provider {
	case "memory":
	case "s3", "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket must be set for provider %q", c.Storage.Provider)
		}
	default:
		return fmt.Errorf("storage.provider must be s3, gcs, or memory")
	}
	switch c.DB.Provider {
	case "memory":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set for provider postgres")
		}
	default:
		return fmt.Errorf("db.provider must be postgres or memory")
	}
	switch c.Provider.Mode {
	case "memory":
	case "scribe":
		if c.Provider.BaseURL == "" {
			return fmt.Errorf("provider.base_url must be set for mode scribe")
		}
		if c.Provider.CallbackBaseURL == "" {
			return fmt.Errorf("provider.callback_base_url must be set for mode scribe")
		}
	default:
		return fmt.Errorf("provider.mode must be scribe or memory")
	}
	switch c.Notify.Provider {
	case "none", "memory":
	case "pubsub":
		if c.Notify.ProjectID == "" || c.Notify.Topic == "" {
			return fmt.Errorf("notify.project_id and notify.topic must be set for provider pubsub")
		}
	default:
		return fmt.Errorf("notify.provider must be none, memory, or pubsub")
	}
	if c.Reconciler.Enabled && c.Reconciler.IntervalSeconds <= 0 {
		return fmt.Errorf("reconciler.interval_seconds must be > 0 when the reconciler is enabled")
	}
	return nil
}

// DownloadTTL converts the configured download link lifetime to a duration.
func (c Config) DownloadTTL() time.Duration {
	return time.Duration(c.Storage.DownloadTTLSeconds) * time.Second
}

// SourceTTL converts the configured provider source link lifetime to a duration.
func (c Config) SourceTTL() time.Duration {
	return time.Duration(c.Storage.SourceTTLSeconds) * time.Second
}

// ProviderTimeout converts the provider HTTP timeout to a duration.
func (c Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

// ReconcileInterval converts the sweep cadence to a duration.
func (c Config) ReconcileInterval() time.Duration {
	return time.Duration(c.Reconciler.IntervalSeconds) * time.Second
}
