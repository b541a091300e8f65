package model

import (
	"fmt"
	"time"
)

// Config is the complete marketscout configuration
type Config struct {
	Search       SearchConfig       `yaml:"search" mapstructure:"search"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Pacing       PacingConfig       `yaml:"pacing" mapstructure:"pacing"`
	Simulation   SimulationConfig   `yaml:"simulation" mapstructure:"simulation"`
	Notify       NotifyConfig       `yaml:"notify" mapstructure:"notify"`
	Kafka        KafkaConfig        `yaml:"kafka" mapstructure:"kafka"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	History      HistoryConfig      `yaml:"history" mapstructure:"history"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// SearchConfig configures the external search provider.
// An empty APIKey switches the whole process to simulated data.
type SearchConfig struct {
	Endpoint    string        `yaml:"endpoint" mapstructure:"endpoint"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	ResultCount int           `yaml:"result_count" mapstructure:"result_count"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"` // Deadline per search call
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	UserAgent   string        `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy   string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy  string        `yaml:"https_proxy" mapstructure:"https_proxy"`
}

// Live reports whether a search credential is configured
func (s SearchConfig) Live() bool {
	return s.APIKey != ""
}

// CacheConfig configures caching of search responses
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend   string        `yaml:"backend" mapstructure:"backend"` // memory, layered, redis
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	RedisAddr string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisDB   int           `yaml:"redis_db" mapstructure:"redis_db"`
}

// ConcurrencyConfig bounds the number of pipelines running at once
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig throttles calls to the search provider
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// PacingConfig controls the cosmetic delays used to pace progress reporting
type PacingConfig struct {
	StageDelay time.Duration `yaml:"stage_delay" mapstructure:"stage_delay"`
}

// SimulationConfig configures the simulated-data path.
// Seed 0 draws an unseeded random source.
type SimulationConfig struct {
	Seed uint64 `yaml:"seed" mapstructure:"seed"`
}

// NotifyConfig configures webhook delivery
type NotifyConfig struct {
	WebhookURL string        `yaml:"webhook_url" mapstructure:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// KafkaConfig configures the optional alert stream
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
}

// Enabled reports whether alerts should be published to Kafka
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.Topic != ""
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	BindAddr       string        `yaml:"bind_addr" mapstructure:"bind_addr"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json, console
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// HistoryConfig configures the local history file
type HistoryConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// OutputConfig configures rendered reports
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			Endpoint:    "https://google.serper.dev/search",
			ResultCount: 10,
			Timeout:     10 * time.Second,
			MaxAttempts: 3,
			UserAgent:   "MarketScout/0.1 (+https://github.com/ppiankov/marketscout)",
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: "memory",
			TTL:     15 * time.Minute,
			Dir:     ".marketscout/cache",
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 5,
			BurstSize:         5,
		},
		Pacing: PacingConfig{
			StageDelay: time.Second,
		},
		Notify: NotifyConfig{
			Timeout: 10 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic: "marketscout_alerts",
		},
		Server: ServerConfig{
			BindAddr:       "127.0.0.1:8080",
			RequestTimeout: 2 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		History: HistoryConfig{
			Path: ".marketscout/history.json",
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}

// Validate checks settings that would make the engine misbehave
func (c *Config) Validate() error {
	if c.Search.Live() && c.Search.Endpoint == "" {
		return fmt.Errorf("search.endpoint is required when search.api_key is set")
	}
	if c.Search.ResultCount <= 0 {
		return fmt.Errorf("search.result_count must be positive")
	}
	if c.Search.Timeout <= 0 {
		return fmt.Errorf("search.timeout must be positive")
	}
	if c.Concurrency.Workers <= 0 {
		return fmt.Errorf("concurrency.workers must be positive")
	}
	if c.Pacing.StageDelay < 0 {
		return fmt.Errorf("pacing.stage_delay cannot be negative")
	}
	if c.RateLimiting.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limiting.requests_per_second cannot be negative")
	}
	switch c.Cache.Backend {
	case "", "memory", "layered", "redis":
	default:
		return fmt.Errorf("unknown cache.backend: %s (supported: memory, layered, redis)", c.Cache.Backend)
	}
	if c.Cache.Enabled && c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required for the redis backend")
	}
	return nil
}
