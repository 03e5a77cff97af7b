package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider exposes the configuration values the rest of the application reads.
// Components depend on this interface rather than on *Config so tests can
// supply their own values.
type Provider interface {
	GetServerAddr() string
	GetAllowedOrigin() string

	GetDBURL() string
	GetDBNs() string
	GetDBDb() string
	GetDBUser() string
	GetDBPass() string
	GetDBQueryTimeout() time.Duration
	GetDBExecuteTimeout() time.Duration

	GetStorageDir() string
	GetMaxFileSize() int64
	GetAllowedMimeTypes() []string

	GetSendBufferSize() int
	GetHistoryLimit() int
}

// Config holds all configuration for the application.
type Config struct {
	ServerAddr    string
	AllowedOrigin string

	DBUrl            string
	DBNs             string
	DBDb             string
	DBUser           string
	DBPass           string
	DBQueryTimeout   time.Duration
	DBExecuteTimeout time.Duration

	StorageDir       string
	MaxFileSize      int64
	AllowedMimeTypes []string

	SendBufferSize int
	HistoryLimit   int
}

var _ Provider = (*Config)(nil)

// Defaults applied when the matching environment variable is empty.
const (
	DefaultServerAddr       = ":8080"
	DefaultAllowedOrigin    = "*"
	DefaultDBQueryTimeout   = 5 * time.Second
	DefaultDBExecuteTimeout = 10 * time.Second
	DefaultStorageDir       = "uploads"
	DefaultMaxFileSize      = 10 << 20
	DefaultSendBufferSize   = 256
	DefaultHistoryLimit     = 200
)

// ErrMissingRequired is returned by Load when a mandatory variable is unset.
var ErrMissingRequired = errors.New("required configuration missing")

// Load reads a .env file if present and builds a Config from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		ServerAddr:    getEnv("SERVER_ADDR", DefaultServerAddr),
		AllowedOrigin: getEnv("ORIGIN", DefaultAllowedOrigin),
		DBUrl:         os.Getenv("SURREAL_URL"),
		DBUser:        os.Getenv("SURREAL_USER"),
		DBPass:        os.Getenv("SURREAL_PASS"),
		DBNs:          os.Getenv("SURREAL_NS"),
		DBDb:          os.Getenv("SURREAL_DB"),
		StorageDir:    getEnv("STORAGE_DIR", DefaultStorageDir),
	}

	var err error
	if cfg.DBQueryTimeout, err = getDuration("DB_QUERY_TIMEOUT", DefaultDBQueryTimeout); err != nil {
		return nil, err
	}
	if cfg.DBExecuteTimeout, err = getDuration("DB_EXECUTE_TIMEOUT", DefaultDBExecuteTimeout); err != nil {
		return nil, err
	}
	maxSize, err := getInt("MAX_FILE_SIZE", DefaultMaxFileSize)
	if err != nil {
		return nil, err
	}
	cfg.MaxFileSize = int64(maxSize)
	if cfg.SendBufferSize, err = getInt("WS_SEND_BUFFER", DefaultSendBufferSize); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit, err = getInt("HISTORY_LIMIT", DefaultHistoryLimit); err != nil {
		return nil, err
	}

	if raw := os.Getenv("ALLOWED_MIME_TYPES"); raw != "" {
		for _, m := range strings.Split(raw, ",") {
			if m = strings.TrimSpace(m); m != "" {
				cfg.AllowedMimeTypes = append(cfg.AllowedMimeTypes, m)
			}
		}
	}

	if cfg.DBUrl == "" || cfg.DBNs == "" || cfg.DBDb == "" {
		return nil, fmt.Errorf("%w: SURREAL_URL, SURREAL_NS and SURREAL_DB must be set", ErrMissingRequired)
	}
	return cfg, nil
}

// New loads configuration and exits the process if it is invalid.
func New() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func (c *Config) GetServerAddr() string              { return c.ServerAddr }
func (c *Config) GetAllowedOrigin() string           { return c.AllowedOrigin }
func (c *Config) GetDBURL() string                   { return c.DBUrl }
func (c *Config) GetDBNs() string                    { return c.DBNs }
func (c *Config) GetDBDb() string                    { return c.DBDb }
func (c *Config) GetDBUser() string                  { return c.DBUser }
func (c *Config) GetDBPass() string                  { return c.DBPass }
func (c *Config) GetDBQueryTimeout() time.Duration   { return c.DBQueryTimeout }
func (c *Config) GetDBExecuteTimeout() time.Duration { return c.DBExecuteTimeout }
func (c *Config) GetStorageDir() string              { return c.StorageDir }
func (c *Config) GetMaxFileSize() int64              { return c.MaxFileSize }
func (c *Config) GetAllowedMimeTypes() []string      { return c.AllowedMimeTypes }
func (c *Config) GetSendBufferSize() int             { return c.SendBufferSize }
func (c *Config) GetHistoryLimit() int               { return c.HistoryLimit }
