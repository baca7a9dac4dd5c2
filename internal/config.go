package internal

import (
	"fmt"
	"log/slog"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/petpad/internal/filter"
	"github.com/starford/petpad/internal/palette"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Vault   VaultConfig       `yaml:"vault"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Palette PaletteConfig     `yaml:"palette"`
	Search  SearchConfig      `yaml:"search"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Palette.Validate(); err != nil {
		return err
	}
	return c.Search.Validate()
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

// VaultConfig holds the path to the directory of snippet documents.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
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

// PaletteConfig holds the variable color palette.
//
// Colors is the default palette. When File is set the live palette is read
// from that YAML file and reloaded whenever it changes.
type PaletteConfig struct {
	Colors   []string `yaml:"colors"`
	File     string   `yaml:"file"`
	Fallback string   `yaml:"fallback"`
}

// Validate validates the palette configuration.
func (c *PaletteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Colors, validation.By(func(any) error {
			return palette.ValidateColors(c.Colors)
		})),
		validation.Field(&c.Fallback, validation.By(func(any) error {
			if c.Fallback == "" {
				return nil
			}
			return palette.ValidateColors([]string{c.Fallback})
		})),
	)
}

// SearchConfig tunes snippet search.
type SearchConfig struct {
	// Threshold is the largest accepted ratio of typos to query length.
	Threshold float64 `yaml:"threshold"`
	Limit     int     `yaml:"limit"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Threshold, validation.Required, validation.Min(0.01), validation.Max(1.0)),
		validation.Field(&c.Limit, validation.Min(0)),
	)
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
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./petpad.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Palette: PaletteConfig{
			Colors:   slices.Clone(palette.DefaultColors),
			Fallback: palette.FallbackColor,
		},
		Search: SearchConfig{
			Threshold: filter.DefaultThreshold,
			Limit:     50,
		},
	}
}
