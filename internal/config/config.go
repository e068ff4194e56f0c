// Package config resolves the runtime configuration of the ingest pipeline.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Environment variables read by Load.
const (
	EnvHome         = "ACSQL_HOME"
	EnvDatabaseURL  = "ACSQL_DATABASE_URL"
	EnvFilesystem   = "ACSQL_FILESYSTEM"
	EnvLogDir       = "ACSQL_LOG_DIR"
	EnvJPEGDir      = "ACSQL_JPEG_DIR"
	EnvThumbnailDir = "ACSQL_THUMBNAIL_DIR"
	EnvWorkers      = "ACSQL_WORKERS"
	EnvLogLevel     = "ACSQL_LOG_LEVEL"
)

// Config is read once at process start and passed to every component.
type Config struct {
	// DatabaseURL is a SQLite path (optionally prefixed with sqlite://) or a
	// postgres:// connection string.
	DatabaseURL    string
	FilesystemRoot string
	LogDir         string
	JPEGDir        string
	ThumbnailDir   string
	Workers        int
	LogLevel       string
}

// GetHomeDir resolves the base directory for the database, artifacts and
// logs. ACSQL_HOME wins, then XDG_DATA_HOME, then ~/.local/share.
func GetHomeDir() string {
	if explicit := os.Getenv(EnvHome); explicit != "" {
		return explicit
	}

	xdg.Reload()

	dataHome := xdg.DataHome
	if dataHome == "" {
		home := xdg.Home
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "acsql")
			}
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(dataHome, "acsql")
}

// GetDBPath returns the default SQLite database file.
func GetDBPath() string {
	return filepath.Join(GetHomeDir(), "acsql.db")
}

// Default returns the configuration used when nothing is set in the environment.
func Default() *Config {
	home := GetHomeDir()
	return &Config{
		DatabaseURL:  GetDBPath(),
		LogDir:       filepath.Join(home, "logs"),
		JPEGDir:      filepath.Join(home, "jpegs"),
		ThumbnailDir: filepath.Join(home, "thumbnails"),
		Workers:      runtime.NumCPU(),
		LogLevel:     "info",
	}
}

// Load reads envFile (".env" when empty; a missing file is not an error)
// into the environment and builds a Config from it.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return nil, errors.Wrapf(err, "loading %s", envFile)
	}

	cfg := Default()
	cfg.DatabaseURL = getEnv(EnvDatabaseURL, cfg.DatabaseURL)
	cfg.FilesystemRoot = getEnv(EnvFilesystem, cfg.FilesystemRoot)
	cfg.LogDir = getEnv(EnvLogDir, cfg.LogDir)
	cfg.JPEGDir = getEnv(EnvJPEGDir, cfg.JPEGDir)
	cfg.ThumbnailDir = getEnv(EnvThumbnailDir, cfg.ThumbnailDir)
	cfg.LogLevel = getEnv(EnvLogLevel, cfg.LogLevel)

	var err error
	cfg.Workers, err = getEnvAsInt(EnvWorkers, cfg.Workers)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the fields every command needs.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database connection string is empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", c.Workers)
	}
	return nil
}

// ValidateForIngest additionally checks the directories the ingest run writes to.
func (c *Config) ValidateForIngest() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.FilesystemRoot == "" {
		return fmt.Errorf("filesystem root is not configured (set %s or --filesystem)", EnvFilesystem)
	}
	if c.JPEGDir == "" || c.ThumbnailDir == "" || c.LogDir == "" {
		return errors.New("jpeg, thumbnail and log directories must be set")
	}
	return nil
}

// IsPostgres reports whether DatabaseURL points at PostgreSQL.
func (c *Config) IsPostgres() bool {
	return IsPostgresURL(c.DatabaseURL)
}

// RedactedDatabaseURL returns DatabaseURL with any password masked, for
// display.
func (c *Config) RedactedDatabaseURL() string {
	if !c.IsPostgres() {
		return c.DatabaseURL
	}
	u, err := url.Parse(c.DatabaseURL)
	if err != nil {
		// The raw string may still carry a password.
		return "postgres://<unparseable>"
	}
	return u.Redacted()
}

// IsPostgresURL reports whether databaseURL is a PostgreSQL connection string.
func IsPostgresURL(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q is not an integer", key, valueStr)
	}
	return value, nil
}
