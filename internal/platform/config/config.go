package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is read once at startup and never mutated afterwards.
type Config struct {
	Server      Server
	RecordStore RecordStore
	Redis       RedisConfig
	Database    DatabaseConfig
	FileStore   FileStore
	TextGen     TextGen
	Log         Log
	Schema      Schema
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr             string
	APIToken         string
	RequestTimeout   time.Duration
	PromotionTimeout time.Duration
}

type RecordStore struct {
	BaseURL     string
	Token       string
	Timeout     time.Duration
	MaxAttempts int
}

// RedisConfig enables the shared identity lock when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LockTTL      time.Duration
	LockWait     time.Duration
}

// DatabaseConfig enables the PostgreSQL reconciliation journal when URL is set.
type DatabaseConfig struct {
	URL string
}

type FileStore struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLExpiry time.Duration
}

type TextGen struct {
	APIKey string
	Model  string
}

type Log struct {
	Level  string
	Format string
}

// FromEnv builds the configuration from environment variables, loading the
// table schema from OPSBRIDGE_SCHEMA_FILE when set.
func FromEnv() (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:             getenv("OPSBRIDGE_ADDR", ":8080"),
			APIToken:         os.Getenv("OPSBRIDGE_API_TOKEN"),
			RequestTimeout:   getenvDuration("OPSBRIDGE_REQUEST_TIMEOUT", 60*time.Second),
			PromotionTimeout: getenvDuration("OPSBRIDGE_PROMOTION_TIMEOUT", 2*time.Minute),
		},
		RecordStore: RecordStore{
			BaseURL:     os.Getenv("RECORDSTORE_URL"),
			Token:       os.Getenv("RECORDSTORE_TOKEN"),
			Timeout:     getenvDuration("RECORDSTORE_TIMEOUT", 30*time.Second),
			MaxAttempts: getenvInt("RECORDSTORE_MAX_ATTEMPTS", 3),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getenvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getenvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getenvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getenvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getenvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			LockTTL:      getenvDuration("REDIS_LOCK_TTL", 30*time.Second),
			LockWait:     getenvDuration("REDIS_LOCK_WAIT", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		FileStore: FileStore{
			Endpoint:  os.Getenv("FILESTORE_ENDPOINT"),
			AccessKey: os.Getenv("FILESTORE_ACCESS_KEY"),
			SecretKey: os.Getenv("FILESTORE_SECRET_KEY"),
			Bucket:    getenv("FILESTORE_BUCKET", "opsbridge"),
			UseSSL:    getenvBool("FILESTORE_USE_SSL", true),
			URLExpiry: getenvDuration("FILESTORE_URL_EXPIRY", 24*time.Hour),
		},
		TextGen: TextGen{
			APIKey: os.Getenv("TEXTGEN_API_KEY"),
			Model:  getenv("TEXTGEN_MODEL", "gemini-2.5-flash"),
		},
		Log: Log{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
		Schema: DefaultSchema(),
	}

	if path := os.Getenv("OPSBRIDGE_SCHEMA_FILE"); path != "" {
		schema, err := LoadSchema(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Schema = schema
	}
	if cfg.RecordStore.MaxAttempts < 1 {
		return Config{}, fmt.Errorf("RECORDSTORE_MAX_ATTEMPTS must be at least 1")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getenvDuration accepts Go duration strings ("90s") or plain seconds ("90").
func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
