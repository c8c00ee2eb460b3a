package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teawithlucas/keycloak-provisioner/internal/keycloak"
)

// Config is the provisioner's runtime configuration.
type Config struct {
	ListenAddr string         `yaml:"listen_addr"`
	Keycloak   KeycloakConfig `yaml:"keycloak"`
	Auth       AuthConfig     `yaml:"auth"`
	Log        LogConfig      `yaml:"log"`
}

// KeycloakConfig locates the realm and the admin client used to create users.
type KeycloakConfig struct {
	AuthServerURL string        `yaml:"auth_server_url"`
	Realm         string        `yaml:"realm"`
	ClientID      string        `yaml:"client_id"`
	ClientSecret  string        `yaml:"client_secret"`
	GrantType     string        `yaml:"grant_type"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
}

// AuthConfig controls bearer-token authentication of callers.
type AuthConfig struct {
	Enabled      bool   `yaml:"enabled"`
	RequiredRole string `yaml:"required_role"`
}

// LogConfig selects the log level, format and optional file sink.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns the configuration used before the file and environment
// are applied.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		Keycloak: KeycloakConfig{
			GrantType:   keycloak.GrantTypeClientCredentials,
			HTTPTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and the environment, in increasing precedence.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.ListenAddr, "PROVISIONER_LISTEN_ADDR")
	setString(&cfg.Keycloak.AuthServerURL, "KEYCLOAK_AUTH_SERVER_URL")
	setString(&cfg.Keycloak.Realm, "KEYCLOAK_REALM")
	setString(&cfg.Keycloak.ClientID, "KEYCLOAK_CLIENT_ID")
	setString(&cfg.Keycloak.ClientSecret, "KEYCLOAK_CLIENT_SECRET")
	setString(&cfg.Keycloak.GrantType, "KEYCLOAK_GRANT_TYPE")
	setString(&cfg.Auth.RequiredRole, "PROVISIONER_AUTH_REQUIRED_ROLE")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	setString(&cfg.Log.File, "LOG_FILE")

	if v := env("KEYCLOAK_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: KEYCLOAK_HTTP_TIMEOUT: %w", err)
		}
		cfg.Keycloak.HTTPTimeout = d
	}
	if v := env("PROVISIONER_AUTH_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: PROVISIONER_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = b
	}
	return nil
}

// Validate reports missing or inconsistent settings.
func (c Config) Validate() error {
	var missing []string
	if c.Keycloak.AuthServerURL == "" {
		missing = append(missing, "KEYCLOAK_AUTH_SERVER_URL")
	}
	if c.Keycloak.Realm == "" {
		missing = append(missing, "KEYCLOAK_REALM")
	}
	if c.Keycloak.ClientID == "" {
		missing = append(missing, "KEYCLOAK_CLIENT_ID")
	}
	if c.Keycloak.ClientSecret == "" {
		missing = append(missing, "KEYCLOAK_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: %s required", strings.Join(missing, ", "))
	}
	if c.Keycloak.GrantType != keycloak.GrantTypeClientCredentials {
		return fmt.Errorf("config: unsupported grant type %q", c.Keycloak.GrantType)
	}
	if c.Keycloak.HTTPTimeout <= 0 {
		return errors.New("config: keycloak http timeout must be positive")
	}
	if c.Auth.RequiredRole != "" && !c.Auth.Enabled {
		return errors.New("config: PROVISIONER_AUTH_REQUIRED_ROLE set but authentication is disabled")
	}
	return nil
}

// AdminClientConfig converts the Keycloak section for the admin client.
func (c Config) AdminClientConfig() keycloak.Config {
	return keycloak.Config{
		BaseURL:      c.Keycloak.AuthServerURL,
		Realm:        c.Keycloak.Realm,
		ClientID:     c.Keycloak.ClientID,
		ClientSecret: c.Keycloak.ClientSecret,
		GrantType:    c.Keycloak.GrantType,
		HTTPTimeout:  c.Keycloak.HTTPTimeout,
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, key string) {
	if v := env(key); v != "" {
		*dst = v
	}
}
