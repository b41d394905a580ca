package app

import (
	"fmt"

	coreconfig "github.com/DevTeady/EmiliaHikari/core/config"
	"github.com/DevTeady/EmiliaHikari/core/database"
	"github.com/DevTeady/EmiliaHikari/core/telegram/format"
)

// WarnsConfig holds presentation settings of the warns module.
type WarnsConfig struct {
	// BanSticker is a sticker file id posted when a user hits the limit.
	BanSticker       string `yaml:"ban_sticker" envconfig:"WARNS_BAN_STICKER"`
	MaxMessageLength int    `yaml:"max_message_length" envconfig:"WARNS_MAX_MESSAGE_LENGTH"`
	// AdminCacheSeconds bounds how long chat member roles are cached in Redis.
	AdminCacheSeconds int `yaml:"admin_cache_seconds" envconfig:"WARNS_ADMIN_CACHE_SECONDS"`
}

// Config is the bot configuration: the shared core plus database and module settings.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database database.Config `yaml:"database"`
	Warns    WarnsConfig     `yaml:"warns"`
}

// CoreConfig implements cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// LoadConfig reads YAML at path, overlays the environment and validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}
	if c.Warns.MaxMessageLength <= 0 || c.Warns.MaxMessageLength > format.MaxMessageLength {
		c.Warns.MaxMessageLength = format.MaxMessageLength
	}
	if c.Warns.AdminCacheSeconds < 0 {
		return fmt.Errorf("warns.admin_cache_seconds must be >= 0")
	}
	if c.Warns.AdminCacheSeconds == 0 {
		c.Warns.AdminCacheSeconds = 600
	}
	return nil
}
