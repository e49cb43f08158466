package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Sync        SyncConfig        `toml:"sync"`
	Retry       RetryConfig       `toml:"retry"`
	Telemetry   TelemetryConfig   `toml:"telemetry"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	HubSpot   HubSpotConfig   `toml:"hubspot"`
	Twinfield TwinfieldConfig `toml:"twinfield"`
}

// HubSpotConfig contains the HubSpot private app credentials.
type HubSpotConfig struct {
	AccessToken       string  `toml:"access_token"`
	BaseURL           string  `toml:"base_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// TwinfieldConfig contains Twinfield OAuth2 client settings and the last issued tokens.
type TwinfieldConfig struct {
	ClientID         string   `toml:"client_id"`
	ClientSecret     string   `toml:"client_secret"`
	RedirectURI      string   `toml:"redirect_uri"`
	AuthorizationURL string   `toml:"authorization_url"`
	TokenURL         string   `toml:"token_url"`
	Endpoint         string   `toml:"endpoint"`
	CompanyCode      string   `toml:"company_code"`
	Scopes           []string `toml:"scopes"`
	AccessToken      string   `toml:"access_token"`
	RefreshToken     string   `toml:"refresh_token"`
	Expiry           string   `toml:"expiry"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the OAuth callback listener settings.
type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	Directory      string   `toml:"directory"`
	CertFile       string   `toml:"cert_file"`
	KeyFile        string   `toml:"key_file"`
	AcceptTimeout  Duration `toml:"accept_timeout"`
	ReceiveTimeout Duration `toml:"receive_timeout"`
	ValidateState  bool     `toml:"validate_state"`
	OpenBrowser    bool     `toml:"open_browser"`
}

// SyncConfig contains the bookkeeping constants used when building transactions.
type SyncConfig struct {
	InvoiceStatus     string `toml:"invoice_status"`
	ReceivableAccount string `toml:"receivable_account"`
	JournalCode       string `toml:"journal_code"`
	Currency          string `toml:"currency"`
	VATCode           string `toml:"vat_code"`
}

// RetryConfig controls the retrying HTTP transport.
type RetryConfig struct {
	MaxRetries int      `toml:"max_retries"`
	Backoff    Duration `toml:"backoff"`
	Statuses   []int    `toml:"statuses"`
}

// TelemetryConfig toggles OpenTelemetry tracing and metrics.
type TelemetryConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"service_name"`
}

// Duration wraps [time.Duration] so it reads and writes as a string like "500ms".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, text, err)
	}
	d.Duration = parsed
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep their defaults from the embedded example config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the configuration to path, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides credentials with environment variables when they are set.
//
// The variable names match the .env files used by earlier deployments of the sync script.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}

	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&c.Credentials.HubSpot.AccessToken, "ACCESS_TOKEN")
	set(&c.Credentials.Twinfield.ClientID, "TWINFIELD_CLIENT_ID")
	set(&c.Credentials.Twinfield.ClientSecret, "TWINFIELD_CLIENT_SECRET")
	set(&c.Credentials.Twinfield.RedirectURI, "TWINFIELD_REDIRECT_URI")
	set(&c.Credentials.Twinfield.AuthorizationURL, "TWINFIELD_AUTHORIZATION_URL")
	set(&c.Credentials.Twinfield.TokenURL, "TWINFIELD_TOKEN_URL")
	set(&c.Credentials.Twinfield.CompanyCode, "TWINFIELD_COMPANY_CODE")
	set(&c.Credentials.Twinfield.AccessToken, "TWINFIELD_ACCESS_TOKEN")
	set(&c.Credentials.Twinfield.RefreshToken, "TWINFIELD_REFRESH_TOKEN")
}

// Validate checks the settings every command relies on.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Host == "" {
		problems = append(problems, "server.host is empty")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.CertFile == "" || c.Server.KeyFile == "" {
		problems = append(problems, "server.cert_file and server.key_file are required")
	}
	if c.Server.ReceiveTimeout.Duration < 0 {
		problems = append(problems, "server.receive_timeout must not be negative")
	}
	if c.Retry.MaxRetries < 0 {
		problems = append(problems, "retry.max_retries must not be negative")
	}
	if c.Database.Path == "" {
		problems = append(problems, "database.path is empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// ValidateHubSpot reports whether HubSpot credentials are present.
func (c *Config) ValidateHubSpot() error {
	if c.Credentials.HubSpot.AccessToken == "" {
		return fmt.Errorf("%w: credentials.hubspot.access_token (or ACCESS_TOKEN) must be set", ErrMissingCredentials)
	}
	return nil
}

// ValidateTwinfield reports whether the Twinfield OAuth client settings are present.
//
// redirect_uri may be empty: auth login then derives it from the bound callback listener.
func (c *Config) ValidateTwinfield() error {
	tw := c.Credentials.Twinfield
	var missing []string
	for name, v := range map[string]string{
		"client_id":         tw.ClientID,
		"client_secret":     tw.ClientSecret,
		"authorization_url": tw.AuthorizationURL,
		"token_url":         tw.TokenURL,
		"company_code":      tw.CompanyCode,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: credentials.twinfield missing %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

