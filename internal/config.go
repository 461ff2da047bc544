package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/robfig/cron/v3"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Source kinds.
const (
	SourceDir     = "dir"
	SourceGSheets = "gsheets"
	SourceS3      = "s3"
)

// Keep-alive methods.
const (
	KeepaliveHTTP    = "http"
	KeepaliveBrowser = "browser"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Source    SourceConfig      `yaml:"source"`
	Snapshot  SnapshotConfig    `yaml:"snapshot"`
	Refresh   RefreshConfig     `yaml:"refresh"`
	Auth      AuthConfig        `yaml:"auth"`
	Keepalive KeepaliveConfig   `yaml:"keepalive"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := c.Snapshot.Validate(); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := c.Refresh.Validate(); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Keepalive.Validate(); err != nil {
		return fmt.Errorf("keepalive: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SourceConfig selects where the Publications and Current authors tables
// are read from.
type SourceConfig struct {
	Kind              string        `yaml:"kind"`
	PublicationsTable string        `yaml:"publications_table"`
	AuthorsTable      string        `yaml:"authors_table"`
	Dir               DirSource     `yaml:"dir"`
	GSheets           GSheetsSource `yaml:"gsheets"`
	S3                S3Source      `yaml:"s3"`
}

// DirSource reads <path>/<table>.csv files.
type DirSource struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// GSheetsSource reads the CSV export of a Google spreadsheet.
type GSheetsSource struct {
	BaseURL       string        `yaml:"base_url"`
	SpreadsheetID string        `yaml:"spreadsheet_id"`
	Timeout       time.Duration `yaml:"timeout"`
}

// S3Source reads <prefix><table>.csv objects from a bucket. Setting
// Endpoint selects an S3-compatible store with path-style addressing.
type S3Source struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Kind, validation.Required, validation.In(SourceDir, SourceGSheets, SourceS3)),
		validation.Field(&c.PublicationsTable, validation.Required),
		validation.Field(&c.AuthorsTable, validation.Required),
	); err != nil {
		return err
	}

	switch c.Kind {
	case SourceDir:
		return validation.ValidateStruct(&c.Dir,
			validation.Field(&c.Dir.Path, validation.Required),
		)
	case SourceGSheets:
		return validation.ValidateStruct(&c.GSheets,
			validation.Field(&c.GSheets.SpreadsheetID, validation.Required),
			validation.Field(&c.GSheets.BaseURL, is.URL),
		)
	default:
		return validation.ValidateStruct(&c.S3,
			validation.Field(&c.S3.Bucket, validation.Required),
			validation.Field(&c.S3.Endpoint, is.URL),
		)
	}
}

// Tables returns the configured table names in load order.
func (c *SourceConfig) Tables() []string {
	return []string{c.PublicationsTable, c.AuthorsTable}
}

// SnapshotConfig holds the SQLite last-good copy configuration.
type SnapshotConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the snapshot configuration.
func (c *SnapshotConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

// RefreshConfig schedules periodic reloads of the source.
type RefreshConfig struct {
	Schedule string `yaml:"schedule"`
}

// Validate validates the refresh configuration.
func (c *RefreshConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Schedule, validation.By(cronSpec)),
	)
}

// AuthConfig holds authentication configuration for the JSON API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// KeepaliveConfig configures the wake-up pings for hosted deployments.
type KeepaliveConfig struct {
	URLs       []string      `yaml:"urls"`
	Method     string        `yaml:"method"`
	LogPath    string        `yaml:"log_path"`
	Schedule   string        `yaml:"schedule"`
	Wait       time.Duration `yaml:"wait"`
	Timeout    time.Duration `yaml:"timeout"`
	ChromePath string        `yaml:"chrome_path"`
}

// Validate validates the keep-alive configuration.
func (c *KeepaliveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URLs, validation.Each(validation.Required, is.URL)),
		validation.Field(&c.Method, validation.Required, validation.In(KeepaliveHTTP, KeepaliveBrowser)),
		validation.Field(&c.Schedule, validation.By(cronSpec)),
		validation.Field(&c.Wait, validation.Min(time.Duration(0))),
	)
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// cronSpec accepts an empty string or a standard five-field cron spec.
func cronSpec(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := cronParser.Parse(s); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s, err)
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Source: SourceConfig{
			Kind:              SourceDir,
			PublicationsTable: "Publications",
			AuthorsTable:      "Current authors",
			Dir: DirSource{
				Path:  "./data",
				Watch: true,
			},
			GSheets: GSheetsSource{
				BaseURL: "https://docs.google.com",
				Timeout: 30 * time.Second,
			},
		},
		Snapshot: SnapshotConfig{
			Enabled: true,
			Path:    "./pubsearch.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Keepalive: KeepaliveConfig{
			Method:  KeepaliveHTTP,
			LogPath: "wakeup_log.txt",
			Wait:    5 * time.Second,
			Timeout: 30 * time.Second,
		},
	}
}
