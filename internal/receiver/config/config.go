package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	NATS    NATSConfig    `mapstructure:"nats"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type WebhookConfig struct {
	// Secret is the shared HMAC key. SecretFile takes precedence when set,
	// so the key can be mounted from an external secret store.
	Secret     string `mapstructure:"secret"`
	SecretFile string `mapstructure:"secret_file"`

	// MaxBodySize bounds the accepted request body in bytes.
	MaxBodySize int64 `mapstructure:"max_body_size"`
}

type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

type RedisConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	URL               string        `mapstructure:"url"`
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("webhook.max_body_size", 1048576)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.publish_timeout", "2s")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.rate_limit_enabled", true)
	v.SetDefault("redis.rate_limit_requests", 1000)
	v.SetDefault("redis.rate_limit_window", "1m")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/hooklog/receiver")
	}

	// Environment variables override
	v.SetEnvPrefix("RECEIVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// ResolveSecret returns the shared HMAC key, reading SecretFile when set.
// The secret is loaded once at process start; rotation requires a restart.
func (c *Config) ResolveSecret() ([]byte, error) {
	if c.Webhook.SecretFile != "" {
		data, err := os.ReadFile(c.Webhook.SecretFile)
		if err != nil {
			return nil, fmt.Errorf("read secret file: %w", err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return nil, fmt.Errorf("secret file %s is empty", c.Webhook.SecretFile)
		}
		return []byte(secret), nil
	}
	if c.Webhook.Secret == "" {
		return nil, fmt.Errorf("webhook secret is required (set RECEIVER_WEBHOOK_SECRET or webhook.secret_file)")
	}
	return []byte(c.Webhook.Secret), nil
}
