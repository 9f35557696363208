package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	AI        AIConfig
	Log       LogConfig       `mapstructure:"log"`
	Learning  LearningConfig  `mapstructure:"learning"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Client    ClientConfig    `mapstructure:"client"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
	SeedDemo     bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig Global* 为全局按IP令牌桶，Chat* 为聊天代理按用户的固定窗口
type RateLimitConfig struct {
	GlobalMaxRequests int `mapstructure:"global_max_requests"`
	ChatMaxRequests   int `mapstructure:"chat_max_requests"`
	ChatWindowSeconds int `mapstructure:"chat_window_seconds"`
}

func (r RateLimitConfig) ChatWindow() time.Duration {
	return time.Duration(r.ChatWindowSeconds) * time.Second
}

type AIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	MaxRetries     int    `mapstructure:"max_retries"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	Charset    string
	ParseTime  bool
	SQLitePath string `mapstructure:"sqlite_path"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	File string `mapstructure:"file"`
}

type LearningConfig struct {
	Locale             string `mapstructure:"locale"`
	HydrationTTLHours  int    `mapstructure:"hydration_ttl_hours"`
	WeakestSkillWindow int    `mapstructure:"weakest_skill_window"`
}

func (l LearningConfig) HydrationTTL() time.Duration {
	return time.Duration(l.HydrationTTLHours) * time.Hour
}

// ClientConfig 供 buddyctl 使用的离线客户端配置
type ClientConfig struct {
	BaseURL             string `mapstructure:"base_url"`
	Token               string `mapstructure:"token"`
	QueuePath           string `mapstructure:"queue_path"`
	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.sqlite_path", "data/studybuddy.db")

	v.SetDefault("jwt.expire_hours", 24)

	v.SetDefault("ai.base_url", "https://ai.gateway.lovable.dev/v1")
	v.SetDefault("ai.model", "google/gemini-2.5-flash")
	v.SetDefault("ai.max_retries", 3)
	v.SetDefault("ai.timeout_seconds", 60)

	v.SetDefault("log.file", "logs/app.log")

	v.SetDefault("learning.locale", "ke")
	v.SetDefault("learning.hydration_ttl_hours", 24)
	v.SetDefault("learning.weakest_skill_window", 3)

	v.SetDefault("rate_limit.global_max_requests", 100000)
	v.SetDefault("rate_limit.chat_max_requests", 50)
	v.SetDefault("rate_limit.chat_window_seconds", 60)

	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.queue_path", "data/offline.db")
	v.SetDefault("client.poll_interval_seconds", 15)
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix("STUDYBUDDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")

	// AI gateway
	v.BindEnv("ai.base_url", "AI_BASE_URL")
	v.BindEnv("ai.api_key", "AI_API_KEY", "LOVABLE_API_KEY")
	v.BindEnv("ai.model", "AI_MODEL")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Client
	v.BindEnv("client.base_url", "STUDYBUDDY_API_URL")
	v.BindEnv("client.token", "STUDYBUDDY_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验互相依赖的配置项
func (c *Config) Validate() error {
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.RateLimit.ChatMaxRequests <= 0 || c.RateLimit.ChatWindowSeconds <= 0 {
		return fmt.Errorf("chat rate limit must be positive, got %d per %ds", c.RateLimit.ChatMaxRequests, c.RateLimit.ChatWindowSeconds)
	}
	if c.AI.MaxRetries <= 0 {
		c.AI.MaxRetries = 1
	}
	return nil
}
