package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	LLM      LLMConfig
	Storage  StorageConfig
}

type AppConfig struct {
	Name           string
	Version        string
	Environment    string
	ExperimentFile string
	MetricsFile    string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
	PoolSize      int
}

type LLMConfig struct {
	BaseURL string
	APIKey  string
}

const (
	SinkJSONL    = "jsonl"
	SinkPostgres = "postgres"

	ProgressFile     = "file"
	ProgressRedis    = "redis"
	ProgressPostgres = "postgres"
)

type StorageConfig struct {
	ResultsDir string
	Sink       string
	Progress   string
}

func (c *Config) NeedsPostgres() bool {
	return c.Storage.Sink == SinkPostgres || c.Storage.Progress == ProgressPostgres
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, errors.New("invalid redis database")
	}

	cfg := &Config{
		App: AppConfig{
			Name:           getEnv("APP_NAME", "Bandit Arena"),
			Version:        getEnv("APP_VERSION", "1.0.0"),
			Environment:    getEnv("APP_ENV", "development"),
			ExperimentFile: getEnv("EXPERIMENT_FILE", "experiment.yaml"),
			MetricsFile:    getEnv("METRICS_FILE", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "bandit_arena"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
			RedisKey:      getEnv("REDIS_PROGRESS_KEY", "bandit_arena:completed"),
			PoolSize:      10,
		},
		LLM: LLMConfig{
			BaseURL: getEnv("LLM_BASE_URL", ""),
			APIKey:  getEnv("LLM_API_KEY", ""),
		},
		Storage: StorageConfig{
			ResultsDir: getEnv("RESULTS_DIR", "results"),
			Sink:       getEnv("SINK", SinkJSONL),
			Progress:   getEnv("PROGRESS", ProgressFile),
		},
	}

	switch cfg.Storage.Sink {
	case SinkJSONL, SinkPostgres:
	default:
		return nil, errors.New("unknown results sink " + cfg.Storage.Sink)
	}

	switch cfg.Storage.Progress {
	case ProgressFile, ProgressRedis, ProgressPostgres:
	default:
		return nil, errors.New("unknown progress store " + cfg.Storage.Progress)
	}

	if cfg.NeedsPostgres() && cfg.Database.Password == "" {
		return nil, errors.New("missing database password")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}
