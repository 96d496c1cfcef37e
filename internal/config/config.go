package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Store backends.
const (
	BackendFile  = "file"
	BackendMongo = "mongo"
)

// Config represents the full application configuration surface.
type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Store   StoreConfig
	MongoDB MongoDBConfig
	Catalog CatalogConfig
	Auth    AuthConfig
	Display DisplayConfig
	Export  ExportConfig
	Sheets  SheetsConfig
	S3      S3Config
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
}

// StoreConfig selects and addresses the key-value backend.
type StoreConfig struct {
	Backend     string
	Dir         string
	CountsKey   string
	UserNameKey string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI        string
	DBName     string
	Collection string
}

// CatalogConfig locates the closed-choice lists.
type CatalogConfig struct {
	Path       string
	Categories []string
	UOMs       []string
	Locations  []string
}

// AuthConfig describes the session flag gate in front of the tracking log.
type AuthConfig struct {
	Required   bool
	CookieName string
	LoginURL   string
}

// DisplayConfig holds rendering options.
type DisplayConfig struct {
	Timezone string
}

// ExportConfig holds scheduled snapshot settings.
type ExportConfig struct {
	Dir          string
	CronSchedule string
	S3Prefix     string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// S3Config contains the snapshot bucket settings.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			Backend:     getenvWithDefault("STORE_BACKEND", BackendFile),
			Dir:         getenvWithDefault("STORE_DIR", "./data"),
			CountsKey:   getenvWithDefault("STORE_COUNTS_KEY", "inventoryCounts"),
			UserNameKey: getenvWithDefault("STORE_USERNAME_KEY", "userName"),
		},
		MongoDB: MongoDBConfig{
			URI:        os.Getenv("MONGODB_URI"),
			DBName:     getenvWithDefault("MONGODB_DB_NAME", "tracklog"),
			Collection: getenvWithDefault("MONGODB_COLLECTION", "kv"),
		},
		Catalog: CatalogConfig{
			Path:       os.Getenv("CATALOG_PATH"),
			Categories: getenvList("CATEGORY_LIST", DefaultCategories),
			UOMs:       getenvList("UOM_LIST", DefaultUOMs),
			Locations:  getenvList("LOCATION_LIST", DefaultLocations),
		},
		Auth: AuthConfig{
			Required:   getenvBool("AUTH_REQUIRED", false),
			CookieName: getenvWithDefault("AUTH_COOKIE_NAME", "authenticated"),
			LoginURL:   getenvWithDefault("LOGIN_URL", "/login.html"),
		},
		Display: DisplayConfig{
			Timezone: getenvWithDefault("DISPLAY_TIMEZONE", "Local"),
		},
		Export: ExportConfig{
			Dir:          getenvWithDefault("EXPORT_DIR", "./exports"),
			CronSchedule: os.Getenv("EXPORT_CRON_SCHEDULE"),
			S3Prefix:     os.Getenv("EXPORT_S3_PREFIX"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		S3: S3Config{
			Bucket:    os.Getenv("EXPORT_S3_BUCKET"),
			Region:    os.Getenv("EXPORT_S3_REGION"),
			Endpoint:  os.Getenv("EXPORT_S3_ENDPOINT"),
			PathStyle: getenvBool("EXPORT_S3_PATH_STYLE", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Store.Backend {
	case BackendFile:
		if c.Store.Dir == "" {
			return errors.New("STORE_DIR must be provided for the file backend")
		}
	case BackendMongo:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided for the mongo backend")
		}
		if c.MongoDB.DBName == "" {
			return errors.New("MONGODB_DB_NAME must not be empty")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendFile, BackendMongo, c.Store.Backend)
	}

	if c.Store.CountsKey == "" || c.Store.UserNameKey == "" {
		return errors.New("STORE_COUNTS_KEY and STORE_USERNAME_KEY must not be empty")
	}

	if c.Auth.Required {
		switch {
		case c.Auth.CookieName == "":
			return errors.New("AUTH_COOKIE_NAME must be provided when AUTH_REQUIRED is set")
		case c.Auth.LoginURL == "":
			return errors.New("LOGIN_URL must be provided when AUTH_REQUIRED is set")
		}
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if c.Export.CronSchedule != "" {
		if _, err := cron.ParseStandard(c.Export.CronSchedule); err != nil {
			return fmt.Errorf("EXPORT_CRON_SCHEDULE is invalid: %w", err)
		}
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DATABASE_ID must be provided together")
	}

	return nil
}

// Location resolves the display time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Display.Timezone)
	if err != nil {
		return nil, fmt.Errorf("DISPLAY_TIMEZONE is invalid: %w", err)
	}
	return loc, nil
}

// SheetsEnabled reports whether snapshots are mirrored to Google Sheets.
func (c *Config) SheetsEnabled() bool {
	return c.Sheets.CredentialsPath != "" && c.Sheets.SpreadsheetID != ""
}

// S3Enabled reports whether snapshots are uploaded to S3.
func (c *Config) S3Enabled() bool {
	return c.S3.Bucket != ""
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
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

func getenvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), fallback...)
	}
	return splitList(value)
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
