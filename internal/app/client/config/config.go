package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"stockkeeper/internal/domain/conflict"
	"stockkeeper/internal/domain/sale"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	defaultServerAddress = "http://localhost:8080"
	defaultConfigDir     = ".stockkeeper"
	envPath              = ".env"
)

type Config struct {
	Env           string
	ServerAddress string
	PushAddress   string
	ConfigDir     string
	DataPath      string
	StatePath     string

	SyncInterval    time.Duration
	BatchSize       int
	QueueMaxRetries int
	IncrementalPull bool

	RemoteTimeout    time.Duration
	RemoteMaxRetries int
	RemoteBackoff    time.Duration

	ConflictStrategy conflict.Strategy
	OversellPolicy   sale.OversellPolicy
}

// Load собирает конфигурацию: .env, переменные окружения и необязательный
// config.yaml (configFile или CONFIG_DIR/config.yaml).
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetDefault("app_env", EnvLocal)
	v.SetDefault("server_address", defaultServerAddress)
	v.SetDefault("config_dir", defaultConfigDir)
	v.SetDefault("sync_interval_seconds", 30)
	v.SetDefault("sync_batch_size", 50)
	v.SetDefault("queue_max_retries", 3)
	v.SetDefault("incremental_pull", true)
	v.SetDefault("remote_timeout_seconds", 30)
	v.SetDefault("remote_max_retries", 3)
	v.SetDefault("remote_backoff_ms", 200)
	v.SetDefault("conflict_strategy", string(conflict.LatestWins))
	v.SetDefault("oversell_policy", string(sale.OversellAllow))

	configDir := expandHome(v.GetString("config_dir"))

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	strategy, err := conflict.ParseStrategy(v.GetString("conflict_strategy"))
	if err != nil {
		return nil, err
	}
	oversell, err := sale.ParseOversellPolicy(v.GetString("oversell_policy"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:              v.GetString("app_env"),
		ServerAddress:    strings.TrimRight(v.GetString("server_address"), "/"),
		PushAddress:      v.GetString("push_address"),
		ConfigDir:        configDir,
		DataPath:         v.GetString("data_path"),
		StatePath:        v.GetString("state_path"),
		SyncInterval:     time.Duration(v.GetInt("sync_interval_seconds")) * time.Second,
		BatchSize:        v.GetInt("sync_batch_size"),
		QueueMaxRetries:  v.GetInt("queue_max_retries"),
		IncrementalPull:  v.GetBool("incremental_pull"),
		RemoteTimeout:    time.Duration(v.GetInt("remote_timeout_seconds")) * time.Second,
		RemoteMaxRetries: v.GetInt("remote_max_retries"),
		RemoteBackoff:    time.Duration(v.GetInt("remote_backoff_ms")) * time.Millisecond,
		ConflictStrategy: strategy,
		OversellPolicy:   oversell,
	}

	if cfg.DataPath == "" {
		cfg.DataPath = filepath.Join(configDir, "stockkeeper.db")
	}
	if cfg.StatePath == "" {
		cfg.StatePath = filepath.Join(configDir, "state.json")
	}
	if cfg.PushAddress == "" {
		cfg.PushAddress = pushAddress(cfg.ServerAddress)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad загружает конфигурацию клиента
func MustLoad() *Config {
	cfg, err := Load(viper.GetViper(), "")
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

func (c *Config) validate() error {
	switch {
	case c.ServerAddress == "":
		return errors.New("SERVER_ADDRESS is required")
	case c.SyncInterval <= 0:
		return errors.New("SYNC_INTERVAL_SECONDS must be positive")
	case c.BatchSize <= 0:
		return errors.New("SYNC_BATCH_SIZE must be positive")
	case c.QueueMaxRetries <= 0:
		return errors.New("QUEUE_MAX_RETRIES must be positive")
	case c.RemoteTimeout <= 0:
		return errors.New("REMOTE_TIMEOUT_SECONDS must be positive")
	case c.RemoteMaxRetries < 0:
		return errors.New("REMOTE_MAX_RETRIES must not be negative")
	}
	return nil
}

// pushAddress выводит адрес websocket канала из адреса сервиса.
func pushAddress(server string) string {
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return ""
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}

func expandHome(dir string) string {
	if dir != defaultConfigDir && !strings.HasPrefix(dir, "~/") {
		return dir
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	if dir == defaultConfigDir {
		return filepath.Join(home, dir)
	}
	return filepath.Join(home, strings.TrimPrefix(dir, "~/"))
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsDev проверяет, dev ли окружение
func (c *Config) IsDev() bool {
	return c.Env == EnvDev
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}
