package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	envPath = ".env"
)

type Config struct {
	Env        string
	DB         db
	Server     server
	SessionTTL time.Duration
}

type db struct {
	DatabaseURI string
	MaxConns    int32
}

type server struct {
	RunAddress      string
	ShutdownTimeout time.Duration
}

// Load читает конфигурацию сервера из окружения и .env.
func Load(v *viper.Viper) (*Config, error) {
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetDefault("APP_ENV", EnvLocal)
	v.SetDefault("RUN_ADDRESS", ":8080")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("SESSION_TTL_HOURS", 24)
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 10)

	cfg := &Config{
		Env: v.GetString("APP_ENV"),
		DB: db{
			DatabaseURI: v.GetString("DATABASE_URI"),
			MaxConns:    v.GetInt32("DB_MAX_CONNS"),
		},
		Server: server{
			RunAddress:      v.GetString("RUN_ADDRESS"),
			ShutdownTimeout: time.Duration(v.GetInt("SHUTDOWN_TIMEOUT_SECONDS")) * time.Second,
		},
		SessionTTL: time.Duration(v.GetInt("SESSION_TTL_HOURS")) * time.Hour,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load(viper.GetViper())
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

func (c *Config) validate() error {
	if c.DB.DatabaseURI == "" {
		return fmt.Errorf("DATABASE_URI is required")
	}
	if c.Server.RunAddress == "" {
		return fmt.Errorf("RUN_ADDRESS is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must be positive")
	}
	return nil
}
