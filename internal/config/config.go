package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Store   StoreConfig   `mapstructure:"store"`
	KV      KVConfig      `mapstructure:"kv"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ChatConfig configures the completion endpoint. It is read at call time so
// edits take effect on the next request.
type ChatConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	BaseURL      string        `mapstructure:"base_url"`
	UseStreaming bool          `mapstructure:"use_streaming"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type StoreConfig struct {
	DataDir      string `mapstructure:"data_dir"`
	HistoryLimit int    `mapstructure:"history_limit"`
}

// ConversationsPath is where the primary conversations file lives.
func (c StoreConfig) ConversationsPath() string {
	return filepath.Join(c.DataDir, "conversations.json")
}

// KVConfig selects and configures the key-value backend.
type KVConfig struct {
	Backend string      `mapstructure:"backend"` // "sqlite" or "redis"
	SQLite  SQLiteKV    `mapstructure:"sqlite"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type SQLiteKV struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LoggingConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	File   string        `mapstructure:"file"`
	MaxAge time.Duration `mapstructure:"max_age"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set config file path
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	// Override with environment variables
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDerivedPaths(&cfg)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8712)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "300s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Chat
	v.SetDefault("chat.model", "gpt-4o-mini")
	v.SetDefault("chat.base_url", "https://api.openai.com/v1")
	v.SetDefault("chat.use_streaming", true)
	v.SetDefault("chat.timeout", "120s")

	// Store
	v.SetDefault("store.data_dir", "")
	v.SetDefault("store.history_limit", 50)

	// KV
	v.SetDefault("kv.backend", "sqlite")
	v.SetDefault("kv.sqlite.path", "")
	v.SetDefault("kv.redis.host", "localhost")
	v.SetDefault("kv.redis.port", 6379)
	v.SetDefault("kv.redis.db", 0)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_age", "168h")
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("chat.api_key", "OPENAI_API_KEY")
	v.BindEnv("chat.model", "TEXTSAGE_MODEL")
	v.BindEnv("chat.base_url", "TEXTSAGE_BASE_URL")
	v.BindEnv("kv.redis.password", "REDIS_PASSWORD")
}

// applyDerivedPaths fills in path defaults that depend on the user's
// environment and so cannot live in the static default block.
func applyDerivedPaths(cfg *Config) {
	if cfg.Store.DataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = "."
		}
		cfg.Store.DataDir = filepath.Join(base, "textsage")
	}
	if cfg.KV.SQLite.Path == "" {
		cfg.KV.SQLite.Path = filepath.Join(cfg.Store.DataDir, "textsage.db")
	}
}
