package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings that are common for all bots.
type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"BOT_TOKEN"`
	// OwnerID is the bot operator allowed to run owner-only commands such as /warnstats.
	OwnerID int64  `yaml:"owner_id" envconfig:"TELEGRAM_OWNER_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	// Listen is a host:port for the /metrics server; empty disables it.
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

// RedisConfig points at an optional Redis used by shared middleware state.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// Update kinds accepted by rate_limit.exclude_updates.
const (
	UpdateCallback      = "callback"
	UpdateMessage       = "message"
	UpdateEditedMessage = "edited_message"
	UpdateInlineQuery   = "inline_query"
)

var updateKinds = []string{UpdateCallback, UpdateMessage, UpdateEditedMessage, UpdateInlineQuery}

const (
	// RateLimitBackendMemory keeps per-user timestamps in process memory.
	RateLimitBackendMemory = "memory"
	// RateLimitBackendRedis shares rate limit state between replicas through Redis.
	RateLimitBackendRedis = "redis"
)

// RateLimitConfig holds settings for rate limiting. ExcludeUpdates lists
// update kinds that bypass the limiter.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
	Backend        string   `yaml:"backend" envconfig:"RATE_LIMIT_BACKEND"`
}

// Config aggregates the configuration that belongs to the reusable core.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Redis     RedisConfig     `yaml:"redis"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadInto decodes YAML at path into dst and then overlays environment variables.
// Bots embedding Config in a larger struct use it to share the loading rules.
func LoadInto(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("failed to process env: %w", err)
	}
	return nil
}

// Normalize validates cfg in place and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if cfg.Telegram.Token == "" {
		return errors.New("telegram token is required")
	}
	if err := normalizeRunMode(cfg); err != nil {
		return err
	}
	if err := normalizeExclude(cfg.RateLimit.ExcludeUpdates); err != nil {
		return err
	}
	return normalizeBackend(cfg)
}

func normalizeRunMode(cfg *Config) error {
	mode := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	switch mode {
	case "", "polling", RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return errors.New("telegram.longpoll_timeout_seconds must be >= 0")
		}
		cfg.Telegram.RunMode = RunModeLongpoll
		return nil
	case RunModeWebhook:
		wh := cfg.Webhook
		switch {
		case strings.TrimSpace(wh.URL) == "":
			return errors.New("webhook.url is required when telegram.run_mode is 'webhook'")
		case strings.TrimSpace(wh.Listen) == "":
			return errors.New("webhook.listen is required when telegram.run_mode is 'webhook'")
		case wh.Port <= 0:
			return errors.New("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
		cfg.Telegram.RunMode = RunModeWebhook
		return nil
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
}

func normalizeExclude(kinds []string) error {
	for i, v := range kinds {
		kind := strings.ToLower(strings.TrimSpace(v))
		if kind != "" && !slices.Contains(updateKinds, kind) {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: %s", v, strings.Join(updateKinds, ", "))
		}
		kinds[i] = kind
	}
	return nil
}

func normalizeBackend(cfg *Config) error {
	backend := strings.ToLower(strings.TrimSpace(cfg.RateLimit.Backend))
	switch backend {
	case "", RateLimitBackendMemory:
		backend = RateLimitBackendMemory
	case RateLimitBackendRedis:
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			return errors.New("redis.addr is required when rate_limit.backend is 'redis'")
		}
	default:
		return fmt.Errorf("invalid rate_limit.backend %q; allowed: memory, redis", cfg.RateLimit.Backend)
	}
	cfg.RateLimit.Backend = backend
	return nil
}
