package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Redis     RedisConfig
	DynConfig DynConfigConfig
	Cache     CacheConfig
	Predict   PredictConfig
	Admin     AdminConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
	LogLevel    string
	LogFile     string
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	DialTimeout     time.Duration
	PoolSize        int
	ConnectAttempts int
}

// DynConfigConfig controls the background refresh of experiment parameters.
type DynConfigConfig struct {
	RefreshInterval time.Duration
	FetchTimeout    time.Duration
	FetchAttempts   int
}

type CacheConfig struct {
	TTL                     time.Duration
	IdleTTL                 time.Duration
	MembershipFlushInterval time.Duration
}

type PredictConfig struct {
	SignalsBackend    string
	SignalCallTimeout time.Duration
	Concurrency       int
}

type AdminConfig struct {
	JWTSecret string
}

var defaults = map[string]any{
	"app_name":                  "smarty-adserver",
	"app_version":               "1.0.0",
	"app_env":                   "development",
	"log_level":                 "info",
	"log_file":                  "",
	"port":                      "8080",
	"shutdown_timeout":          "10s",
	"redis_host":                "localhost",
	"redis_port":                "6379",
	"redis_password":            "",
	"redis_db":                  "0",
	"redis_dial_timeout":        "3s",
	"redis_pool_size":           20,
	"redis_connect_attempts":    5,
	"config_refresh_interval":   "10s",
	"config_fetch_timeout":      "2s",
	"config_fetch_attempts":     3,
	"cache_ttl":                 "24h",
	"cache_idle_ttl":            "24h",
	"membership_flush_interval": "1m",
	"signals_backend":           "redis",
	"signal_call_timeout":       "200ms",
	"predict_concurrency":       8,
	"admin_jwt_secret":          "",
}

// Load reads a .env file when present, then environment variables, falling
// back to defaults for anything unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	redisDB, err := strconv.Atoi(v.GetString("redis_db"))
	if err != nil {
		return nil, errors.New("missing redis database")
	}

	cfg := &Config{
		App: AppConfig{
			Name:        v.GetString("app_name"),
			Version:     v.GetString("app_version"),
			Environment: v.GetString("app_env"),
			LogLevel:    v.GetString("log_level"),
			LogFile:     v.GetString("log_file"),
		},
		Server: ServerConfig{
			Port:            v.GetString("port"),
			ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		},
		Redis: RedisConfig{
			RedisHost:     v.GetString("redis_host"),
			RedisPort:     v.GetString("redis_port"),
			RedisPassword: v.GetString("redis_password"),
			RedisDB:       redisDB,

			DialTimeout:     v.GetDuration("redis_dial_timeout"),
			PoolSize:        v.GetInt("redis_pool_size"),
			ConnectAttempts: v.GetInt("redis_connect_attempts"),
		},
		DynConfig: DynConfigConfig{
			RefreshInterval: v.GetDuration("config_refresh_interval"),
			FetchTimeout:    v.GetDuration("config_fetch_timeout"),
			FetchAttempts:   v.GetInt("config_fetch_attempts"),
		},
		Cache: CacheConfig{
			TTL:                     v.GetDuration("cache_ttl"),
			IdleTTL:                 v.GetDuration("cache_idle_ttl"),
			MembershipFlushInterval: v.GetDuration("membership_flush_interval"),
		},
		Predict: PredictConfig{
			SignalsBackend:    v.GetString("signals_backend"),
			SignalCallTimeout: v.GetDuration("signal_call_timeout"),
			Concurrency:       v.GetInt("predict_concurrency"),
		},
		Admin: AdminConfig{
			JWTSecret: v.GetString("admin_jwt_secret"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	durations := map[string]time.Duration{
		"SHUTDOWN_TIMEOUT":          c.Server.ShutdownTimeout,
		"REDIS_DIAL_TIMEOUT":        c.Redis.DialTimeout,
		"CONFIG_REFRESH_INTERVAL":   c.DynConfig.RefreshInterval,
		"CONFIG_FETCH_TIMEOUT":      c.DynConfig.FetchTimeout,
		"CACHE_TTL":                 c.Cache.TTL,
		"CACHE_IDLE_TTL":            c.Cache.IdleTTL,
		"MEMBERSHIP_FLUSH_INTERVAL": c.Cache.MembershipFlushInterval,
		"SIGNAL_CALL_TIMEOUT":       c.Predict.SignalCallTimeout,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration", name)
		}
	}

	// the scheduler ticks in whole seconds
	schedules := map[string]time.Duration{
		"CONFIG_REFRESH_INTERVAL":   c.DynConfig.RefreshInterval,
		"MEMBERSHIP_FLUSH_INTERVAL": c.Cache.MembershipFlushInterval,
	}
	for name, d := range schedules {
		if d < time.Second || d%time.Second != 0 {
			return fmt.Errorf("%s must be a whole number of seconds, at least 1s", name)
		}
	}

	if c.Redis.PoolSize <= 0 {
		return errors.New("REDIS_POOL_SIZE must be positive")
	}
	if c.Redis.ConnectAttempts <= 0 {
		return errors.New("REDIS_CONNECT_ATTEMPTS must be positive")
	}
	if c.DynConfig.FetchAttempts <= 0 {
		return errors.New("CONFIG_FETCH_ATTEMPTS must be positive")
	}
	if c.Predict.Concurrency <= 0 {
		return errors.New("PREDICT_CONCURRENCY must be positive")
	}

	switch c.Predict.SignalsBackend {
	case "redis", "none":
	default:
		return fmt.Errorf("unknown SIGNALS_BACKEND %q", c.Predict.SignalsBackend)
	}

	return nil
}
