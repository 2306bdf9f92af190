package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the application configuration tree.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Search    SearchConfig    `mapstructure:"search"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"` // debug, release, test
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"` // 0 disables the write deadline so SSE streams are not cut
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // seconds
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// RedisConfig holds the Redis connection used for the JWT blacklist and the
// asynq task broker.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Addr returns host:port for redis clients.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, /path/to/log
}

// AuthConfig holds JWT settings.
type AuthConfig struct {
	Secret             string `mapstructure:"secret"`
	Issuer             string `mapstructure:"issuer"`
	AccessExpiryHours  int    `mapstructure:"access_expiry_hours"`
	RefreshExpiryHours int    `mapstructure:"refresh_expiry_hours"`
}

// EmbeddingConfig holds the feature-extraction provider settings.
// The endpoint follows the HF router convention:
// https://router.huggingface.co/{provider}/models/{model}/pipeline/feature-extraction
type EmbeddingConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	Token          string `mapstructure:"token"`
	Model          string `mapstructure:"model"`
	Dimension      int    `mapstructure:"dimension"`
	MaxChars       int    `mapstructure:"max_chars"`
	MaxRetries     int    `mapstructure:"max_retries"`
	BackoffBaseMS  int    `mapstructure:"backoff_base_ms"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// BackoffBase returns the retry backoff base as a duration.
func (c *EmbeddingConfig) BackoffBase() time.Duration {
	return time.Duration(c.BackoffBaseMS) * time.Millisecond
}

// ChatConfig holds the upstream chat-completion provider settings and the
// relay behavior knobs.
type ChatConfig struct {
	APIKey           string  `mapstructure:"api_key"`
	BaseURL          string  `mapstructure:"base_url"`
	Model            string  `mapstructure:"model"`
	Temperature      float64 `mapstructure:"temperature"`
	MaxTokens        int     `mapstructure:"max_tokens"`
	HeartbeatSeconds int     `mapstructure:"heartbeat_seconds"`
	FallbackMessage  string  `mapstructure:"fallback_message"`
}

// Heartbeat returns the keep-alive interval as a duration.
func (c *ChatConfig) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatSeconds) * time.Second
}

// SearchConfig holds the vector search defaults. The original deployments
// disagreed on exact values across call sites; these are the authoritative
// defaults and every call site reads them from here.
type SearchConfig struct {
	Limit         int     `mapstructure:"limit"`
	NumCandidates int     `mapstructure:"num_candidates"`
	MinScore      float64 `mapstructure:"min_score"`
}

// WorkerConfig holds asynq worker settings.
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

var globalConfig *Config

// Load reads config/<env>.yaml (or an explicit path) and applies APP_*
// environment overrides.
func Load(env string, configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		v.SetConfigName(env)
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("../../config")
	} else {
		v.SetConfigFile(configPath)
	}

	v.SetConfigType("yaml")

	// Environment variables take precedence over the file, e.g.
	// APP_DATABASE_HOST, APP_EMBEDDING_TOKEN.
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// setDefaults registers defaults for every tunable so a minimal YAML file is
// enough to boot.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 0)

	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_path", "stdout")

	v.SetDefault("auth.issuer", "daurtani")
	v.SetDefault("auth.access_expiry_hours", 2)
	v.SetDefault("auth.refresh_expiry_hours", 168)

	v.SetDefault("embedding.endpoint",
		"https://router.huggingface.co/hf-inference/models/intfloat/multilingual-e5-large/pipeline/feature-extraction")
	v.SetDefault("embedding.model", "intfloat/multilingual-e5-large")
	v.SetDefault("embedding.dimension", 1024)
	v.SetDefault("embedding.max_chars", 8000)
	v.SetDefault("embedding.max_retries", 3)
	v.SetDefault("embedding.backoff_base_ms", 600)
	v.SetDefault("embedding.timeout_seconds", 60)

	v.SetDefault("chat.model", "gpt-4o-mini")
	v.SetDefault("chat.temperature", 0.7)
	v.SetDefault("chat.max_tokens", 1024)
	v.SetDefault("chat.heartbeat_seconds", 20)
	v.SetDefault("chat.fallback_message",
		"Maaf, asisten sedang tidak dapat menjawab. Silakan coba lagi beberapa saat lagi.")

	v.SetDefault("search.limit", 5)
	v.SetDefault("search.num_candidates", 150)
	v.SetDefault("search.min_score", 0.30)

	v.SetDefault("worker.concurrency", 10)
}

// Get returns the global configuration.
func Get() *Config {
	if globalConfig == nil {
		panic("config not initialized, call Load() first")
	}
	return globalConfig
}

// GetDSN builds the PostgreSQL connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}
