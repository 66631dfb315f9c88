// Package config reads the service configuration from the environment.
package config

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Auth modes.
const (
	AuthModeJWT    = "jwt"
	AuthModeStatic = "static"
)

// Config holds the configuration of the connections service. Every field is read from the
// environment variable named in its envconfig tag; nested structs prefix their variables.
type Config struct {
	Database DatabaseConfig `envconfig:"DATABASE"`
	Auth     AuthConfig     `envconfig:"AUTH"`
	OpenAI   OpenAIConfig   `envconfig:"OPENAI"`

	// Port is the HTTP port the service listens on.
	Port int `envconfig:"PORT" default:"8080"`

	// GinLogging switches request logging off with the value "off".
	GinLogging string `envconfig:"GIN_LOGGING" default:"on"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	// URI is the connection string. Its scheme selects the backend, see store.Open.
	URI string `envconfig:"URI" required:"true"`

	// Name is the MongoDB database. SQL backends take the database from the URI.
	Name string `envconfig:"NAME" default:"personal_nexus"`
}

// AuthConfig describes how callers are identified.
//
// Mode "jwt" verifies session tokens of the identity provider and needs either JWTSecret or
// JWTPublicKey. Mode "static" treats every caller as StaticUser and must not be used in
// production.
type AuthConfig struct {
	Mode         string `envconfig:"MODE" default:"jwt"`
	JWTSecret    string `envconfig:"JWT_SECRET"`
	JWTPublicKey string `envconfig:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `envconfig:"JWT_ISSUER"`
	StaticUser   string `envconfig:"STATIC_USER" default:"demo-user"`
	SignInURL    string `envconfig:"SIGN_IN_URL"`
}

// OpenAIConfig configures the text-generation service behind the suggestion endpoint. A missing
// API key is not a configuration error: it is reported per request.
type OpenAIConfig struct {
	APIKey  string `envconfig:"API_KEY"`
	BaseURL string `envconfig:"BASE_URL" default:"https://api.openai.com/v1"`
	Model   string `envconfig:"MODEL" default:"gpt-3.5-turbo"`
}

// Load reads and validates the configuration.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process environment variables")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// Address returns the HTTP listen address.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// RequestLogging reports whether every request is logged.
func (c *Config) RequestLogging() bool {
	return c.GinLogging != "off"
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URI, validation.Required),
	)
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeJWT, AuthModeStatic)),
	); err != nil {
		return err
	}
	switch c.Mode {
	case AuthModeJWT:
		if c.JWTSecret == "" && c.JWTPublicKey == "" {
			return fmt.Errorf("auth: mode is %q but neither a secret nor a public key is set", AuthModeJWT)
		}
	case AuthModeStatic:
		if c.StaticUser == "" {
			return fmt.Errorf("auth: mode is %q but the static user is empty", AuthModeStatic)
		}
	}
	return nil
}
