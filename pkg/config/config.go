package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	CORS       CORSConfig
	Log        LogConfig
	Classboard ClassboardConfig
	Jobs       JobsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ClassboardConfig governs the queue endpoints, stats caching and the
// change-notification channel, plus fallback controller settings for
// schools without a stored settings row.
type ClassboardConfig struct {
	StatsCacheTTL   time.Duration
	AdjustmentTTL   time.Duration
	NotifyChannel   string
	DefaultGap      int
	DefaultStep     int
	DefaultMinDur   int
	DefaultMaxDur   int
	DefaultSubmit   int
	DefaultLocation string
	DefaultCapOne   int
	DefaultCapTwo   int
	DefaultCapThree int
}

// JobsConfig tunes the background stats-regeneration workers.
type JobsConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Classboard = ClassboardConfig{
		StatsCacheTTL:   parseDuration(v.GetString("CLASSBOARD_STATS_CACHE_TTL"), 5*time.Minute),
		AdjustmentTTL:   parseDuration(v.GetString("CLASSBOARD_ADJUSTMENT_TTL"), 30*time.Minute),
		NotifyChannel:   v.GetString("CLASSBOARD_NOTIFY_CHANNEL"),
		DefaultGap:      v.GetInt("CLASSBOARD_DEFAULT_GAP_MINUTES"),
		DefaultStep:     v.GetInt("CLASSBOARD_DEFAULT_STEP_DURATION"),
		DefaultMinDur:   v.GetInt("CLASSBOARD_DEFAULT_MIN_DURATION"),
		DefaultMaxDur:   v.GetInt("CLASSBOARD_DEFAULT_MAX_DURATION"),
		DefaultSubmit:   v.GetInt("CLASSBOARD_DEFAULT_SUBMIT_TIME"),
		DefaultLocation: v.GetString("CLASSBOARD_DEFAULT_LOCATION"),
		DefaultCapOne:   v.GetInt("CLASSBOARD_DEFAULT_CAP_ONE"),
		DefaultCapTwo:   v.GetInt("CLASSBOARD_DEFAULT_CAP_TWO"),
		DefaultCapThree: v.GetInt("CLASSBOARD_DEFAULT_CAP_THREE"),
	}

	cfg.Jobs = JobsConfig{
		Workers:    v.GetInt("JOBS_WORKERS"),
		MaxRetries: v.GetInt("JOBS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("JOBS_RETRY_DELAY"), time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "classboard")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CLASSBOARD_STATS_CACHE_TTL", "5m")
	v.SetDefault("CLASSBOARD_ADJUSTMENT_TTL", "30m")
	v.SetDefault("CLASSBOARD_NOTIFY_CHANNEL", "classboard:events")
	v.SetDefault("CLASSBOARD_DEFAULT_GAP_MINUTES", 15)
	v.SetDefault("CLASSBOARD_DEFAULT_STEP_DURATION", 15)
	v.SetDefault("CLASSBOARD_DEFAULT_MIN_DURATION", 30)
	v.SetDefault("CLASSBOARD_DEFAULT_MAX_DURATION", 240)
	v.SetDefault("CLASSBOARD_DEFAULT_SUBMIT_TIME", 540)
	v.SetDefault("CLASSBOARD_DEFAULT_LOCATION", "")
	v.SetDefault("CLASSBOARD_DEFAULT_CAP_ONE", 60)
	v.SetDefault("CLASSBOARD_DEFAULT_CAP_TWO", 90)
	v.SetDefault("CLASSBOARD_DEFAULT_CAP_THREE", 120)

	v.SetDefault("JOBS_WORKERS", 2)
	v.SetDefault("JOBS_MAX_RETRIES", 3)
	v.SetDefault("JOBS_RETRY_DELAY", "1s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
