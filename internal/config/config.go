// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Search   SearchConfig   `mapstructure:"search"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	RequestTimeout  int `mapstructure:"request_timeout_seconds"`
	ShutdownTimeout int `mapstructure:"shutdown_timeout_seconds"`
}

// AuthConfig holds the shared JWT secret.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// PubSubConfig names the topic progress events are published on. An empty
// project id selects the in-memory gateway.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// FetchConfig configures the headless browser subsystem.
type FetchConfig struct {
	MaxParallel     int    `mapstructure:"max_parallel"`
	NavTimeoutSec   int    `mapstructure:"nav_timeout_seconds"`
	ClickTimeoutSec int    `mapstructure:"click_timeout_seconds"`
	PlaceUserAgent  string `mapstructure:"place_user_agent"`
	ReviewUserAgent string `mapstructure:"review_user_agent"`
}

// PipelineConfig governs report job behavior.
type PipelineConfig struct {
	PoolSize          int `mapstructure:"pool_size"`
	MoreClicks        int `mapstructure:"more_clicks"`
	AcquireTimeoutSec int `mapstructure:"acquire_timeout_seconds"`
	JobBudgetSec      int `mapstructure:"job_budget_seconds"`
}

// SearchConfig holds the OpenAPI application credentials. Both fields
// empty disables the search endpoints.
type SearchConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PLACELENS")
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
	v.SetDefault("server.request_timeout_seconds", 30)
	v.SetDefault("server.shutdown_timeout_seconds", 15)
	v.SetDefault("db.max_open_conns", 8)
	v.SetDefault("pubsub.topic_name", "report-progress")
	v.SetDefault("fetch.max_parallel", 2)
	v.SetDefault("fetch.nav_timeout_seconds", 25)
	v.SetDefault("fetch.click_timeout_seconds", 3)
	v.SetDefault("pipeline.pool_size", 4)
	v.SetDefault("pipeline.more_clicks", 5)
	v.SetDefault("pipeline.acquire_timeout_seconds", 60)
	v.SetDefault("pipeline.job_budget_seconds", 300)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Pipeline.PoolSize <= 0 {
		return fmt.Errorf("pipeline.pool_size must be > 0")
	}
	if c.Pipeline.MoreClicks < 0 || c.Pipeline.MoreClicks > 100 {
		return fmt.Errorf("pipeline.more_clicks must be between 0 and 100")
	}
	if c.Fetch.MaxParallel < 0 {
		return fmt.Errorf("fetch.max_parallel must be >= 0")
	}
	if c.PubSub.ProjectID != "" && c.PubSub.TopicName == "" {
		return fmt.Errorf("pubsub.topic_name must be set when pubsub.project_id is set")
	}
	if (c.Search.ClientID == "") != (c.Search.ClientSecret == "") {
		return fmt.Errorf("search.client_id and search.client_secret must be set together")
	}
	return nil
}

// RequestTimeout returns the per-request handler budget.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeout) * time.Second
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeout) * time.Second
}

// JobBudget returns the wall-time budget for one report job.
func (c Config) JobBudget() time.Duration {
	return time.Duration(c.Pipeline.JobBudgetSec) * time.Second
}

// AcquireTimeout returns the per-stage acquisition budget.
func (c Config) AcquireTimeout() time.Duration {
	return time.Duration(c.Pipeline.AcquireTimeoutSec) * time.Second
}

// NavTimeout returns the headless navigation budget.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Fetch.NavTimeoutSec) * time.Second
}

// ClickTimeout returns the per-click wait budget for list expansion.
func (c Config) ClickTimeout() time.Duration {
	return time.Duration(c.Fetch.ClickTimeoutSec) * time.Second
}
