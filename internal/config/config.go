package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"routedash/internal/stats"
)

// Row history backends.
const (
	RowsJSONL    = "jsonl"
	RowsPostgres = "postgres"
)

// Preference backends.
const (
	PrefsFile  = "file"
	PrefsRedis = "redis"
)

// RowsConfig selects where work day records come from.
type RowsConfig struct {
	Backend      string
	File         string
	DatabaseURL  string
	QueryTimeout time.Duration
}

// PrefsConfig selects where preferences are persisted.
type PrefsConfig struct {
	Backend       string
	File          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// HTTPConfig configures the read-only API server.
type HTTPConfig struct {
	Addr      string
	RateLimit float64
	Burst     int
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	DataPath   string
	LogDir     string
	Timezone   string
	Rows       RowsConfig
	Prefs      PrefsConfig
	HTTP       HTTPConfig
	TuningFile string
	Tuning     stats.Tuning
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	// 3. Resolve data paths
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}
	logDir := getEnv("LOGS_FOLDER", filepath.Join(dataPath, "logs"))

	timeoutSecs, _ := strconv.Atoi(getEnv("DATABASE_QUERY_TIMEOUT_SECONDS", "10"))

	cfg := &AppConfig{
		DataPath: dataPath,
		LogDir:   logDir,
		Timezone: getEnv("ROUTEDASH_TIMEZONE", "America/Chicago"),
		Rows: RowsConfig{
			Backend:      strings.ToLower(getEnv("ROWS_BACKEND", RowsJSONL)),
			File:         getEnv("ROWS_FILE", filepath.Join(dataPath, "workdays.jsonl")),
			DatabaseURL:  getEnv("DATABASE_URL", ""),
			QueryTimeout: time.Duration(timeoutSecs) * time.Second,
		},
		Prefs: PrefsConfig{
			Backend:       strings.ToLower(getEnv("PREFS_BACKEND", PrefsFile)),
			File:          getEnv("PREFS_FILE", filepath.Join(dataPath, "prefs.json")),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
		HTTP: HTTPConfig{
			Addr:      getEnv("HTTP_ADDR", "127.0.0.1:8484"),
			RateLimit: getEnvFloat("HTTP_RATE_LIMIT", 10),
			Burst:     getEnvInt("HTTP_RATE_BURST", 20),
		},
		TuningFile: getEnv("TUNING_FILE", filepath.Join(dataPath, "tuning.yaml")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// 4. Optional engine tuning
	tuning, err := LoadTuning(cfg.TuningFile)
	if err != nil {
		return nil, err
	}
	cfg.Tuning = tuning

	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Rows.Backend {
	case RowsJSONL:
	case RowsPostgres:
		if c.Rows.DatabaseURL == "" {
			return fmt.Errorf("ROWS_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown ROWS_BACKEND %q (want %s or %s)", c.Rows.Backend, RowsJSONL, RowsPostgres)
	}

	switch c.Prefs.Backend {
	case PrefsFile, PrefsRedis:
	default:
		return fmt.Errorf("unknown PREFS_BACKEND %q (want %s or %s)", c.Prefs.Backend, PrefsFile, PrefsRedis)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}
