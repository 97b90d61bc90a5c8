package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	External ExternalConfig `mapstructure:"external"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Dict     DictConfig     `mapstructure:"dict"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	RateBurst    int           `mapstructure:"rate_burst"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// ExternalConfig points at the HIS reporting views. The connection is
// read-only; DriverName stays "postgres" in test environments and is a
// vendor bridge in production.
type ExternalConfig struct {
	DriverName string `mapstructure:"driver"`
	DSN        string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type DictConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// secretOverrides are taken from the environment so credentials stay out
// of config files (MZEMR_DB_PASSWORD, MZEMR_JWT_SECRET, ...).
type secretOverrides struct {
	DBPassword    string `envconfig:"DB_PASSWORD"`
	ExternalDSN   string `envconfig:"EXTERNAL_DSN"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	JWTSecret     string `envconfig:"JWT_SECRET"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.rate_limit", 50.0)
	viper.SetDefault("server.rate_burst", 100)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("external.driver", "postgres")
	viper.SetDefault("jwt.expiry_hours", 12)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("dict.cache_ttl", 5*time.Minute)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var secrets secretOverrides
	if err := envconfig.Process("MZEMR", &secrets); err != nil {
		return nil, fmt.Errorf("failed to read env overrides: %w", err)
	}
	if secrets.DBPassword != "" {
		cfg.Database.Password = secrets.DBPassword
	}
	if secrets.ExternalDSN != "" {
		cfg.External.DSN = secrets.ExternalDSN
	}
	if secrets.RedisPassword != "" {
		cfg.Redis.Password = secrets.RedisPassword
	}
	if secrets.JWTSecret != "" {
		cfg.JWT.Secret = secrets.JWTSecret
	}

	return &cfg, nil
}
