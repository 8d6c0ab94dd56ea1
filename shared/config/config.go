package config

import (
	"fmt"
	"os"
	"time"

	"kick-analyzer/shared/storage"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AI         AIConfig         `yaml:"ai"`
	Cache      CacheConfig      `yaml:"cache"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Storage    StorageConfig    `yaml:"storage"`
	Agent      AgentConfig      `yaml:"agent"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Schedule   string           `yaml:"schedule"`
}

// AIConfig configures the remote inference service. An empty API key runs
// the pipeline in fallback-only mode.
type AIConfig struct {
	GeminiAPIKey string        `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	Model        string        `yaml:"model"`
	MaxAttempts  int           `yaml:"max_attempts"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
}

type CacheConfig struct {
	MaxEntries int           `yaml:"max_entries"`
	MaxAge     time.Duration `yaml:"max_age"`
}

type RateLimitConfig struct {
	MaxPerWindow int           `yaml:"max_per_window"`
	Window       time.Duration `yaml:"window"`
	MinInterval  time.Duration `yaml:"min_interval"`
}

type StorageConfig struct {
	Backend string              `yaml:"backend"`
	DataDir string              `yaml:"data_dir"`
	MaxAge  time.Duration       `yaml:"max_age"`
	Redis   storage.RedisConfig `yaml:"redis"`
}

type AgentConfig struct {
	InboxDir     string `yaml:"inbox_dir"`
	HistoryLimit int    `yaml:"history_limit"`
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RemoteEnabled reports whether remote credentials are present
func (c *Config) RemoteEnabled() bool {
	return c.AI.GeminiAPIKey != ""
}

// Load reads .env, then the YAML file named by CONFIG_FILE (default
// config.yaml). A missing file yields an all-defaults configuration.
func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(configFile)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	case os.IsNotExist(err):
		// defaults and environment only
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.AI.GeminiAPIKey == "" {
		c.AI.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Storage.Redis.Address == "" {
		c.Storage.Redis.Address = os.Getenv("REDIS_ADDRESS")
	}
	if c.Storage.Redis.Password == "" {
		c.Storage.Redis.Password = os.Getenv("REDIS_PASSWORD")
	}
}

func (c *Config) applyDefaults() {
	if c.AI.Model == "" {
		c.AI.Model = "gemini-2.5-flash"
	}
	if c.AI.MaxAttempts == 0 {
		c.AI.MaxAttempts = 3
	}
	if c.AI.RetryDelay == 0 {
		c.AI.RetryDelay = 60 * time.Second
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = 100
	}
	if c.Cache.MaxAge == 0 {
		c.Cache.MaxAge = 30 * time.Minute
	}
	if c.RateLimit.MaxPerWindow == 0 {
		c.RateLimit.MaxPerWindow = 15
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.RateLimit.MinInterval == 0 {
		c.RateLimit.MinInterval = 4 * time.Second
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "file"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.MaxAge == 0 {
		c.Storage.MaxAge = 90 * 24 * time.Hour
	}
	if c.Storage.Redis.Address == "" {
		c.Storage.Redis.Address = "localhost:6379"
	}
	if c.Storage.Redis.KeyPrefix == "" {
		c.Storage.Redis.KeyPrefix = "kick:session:"
	}
	if c.Agent.InboxDir == "" {
		c.Agent.InboxDir = "inbox"
	}
	if c.Agent.HistoryLimit == 0 {
		c.Agent.HistoryLimit = 5
	}
	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Schedule == "" {
		c.Schedule = "0 */5 * * * *" // every five minutes
	}
}

func (c *Config) validate() error {
	if c.AI.MaxAttempts < 1 {
		return fmt.Errorf("ai.max_attempts must be at least 1, got %d", c.AI.MaxAttempts)
	}
	if c.AI.RetryDelay < 0 {
		return fmt.Errorf("ai.retry_delay must not be negative")
	}
	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache.max_entries must be at least 1, got %d", c.Cache.MaxEntries)
	}
	if c.Cache.MaxAge <= 0 {
		return fmt.Errorf("cache.max_age must be positive")
	}
	if c.RateLimit.MaxPerWindow < 1 {
		return fmt.Errorf("rate_limit.max_per_window must be at least 1, got %d", c.RateLimit.MaxPerWindow)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive")
	}
	if c.RateLimit.MinInterval < 0 {
		return fmt.Errorf("rate_limit.min_interval must not be negative")
	}
	switch c.Storage.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("unknown storage.backend %q (use file or redis)", c.Storage.Backend)
	}
	if c.Agent.HistoryLimit < 0 {
		return fmt.Errorf("agent.history_limit must not be negative")
	}
	return nil
}
