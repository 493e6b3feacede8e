// Package config loads and validates the clients.toml configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFile = "clients.toml"
	DefaultBodyLimit  = 100
	DefaultTimeout    = 30 * time.Second
)

// SourceType tags a client entry with the remote API it talks to.
type SourceType string

const (
	SourceGitHub SourceType = "github"
	SourceMatrix SourceType = "matrix"
)

// Duration wraps time.Duration for TOML unmarshaling from strings like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	General General  `toml:"general"`
	Clients []Client `toml:"clients"`
}

type General struct {
	// BodyLimit caps issue/PR body length in the report. 0 disables
	// truncation; unset means DefaultBodyLimit.
	BodyLimit *int     `toml:"body_limit"`
	Timeout   Duration `toml:"timeout"`
	Redact    []string `toml:"redact"`
}

// Client is one named configuration entry. The clients array keeps
// declaration order, which the report preserves end to end.
type Client struct {
	Name string     `toml:"name"`
	API  SourceType `toml:"api"`

	// GitHub parameters.
	Owner          string `toml:"owner"`
	Repo           string `toml:"repo"`
	AccessToken    string `toml:"access_token"`
	AccessTokenEnv string `toml:"access_token_env"`

	// Matrix parameters. Credentials points at a JSON credentials file.
	Credentials string `toml:"credentials"`
	RoomID      string `toml:"room_id"`

	BodyLimit *int `toml:"body_limit"`

	// Resolved at load time.
	Matrix *MatrixCredentials `toml:"-"`

	// Err records a per-entry resolution problem (unreadable credentials
	// file, missing env var). The entry still reaches the registry so the
	// report accounts for it; only a total parse failure aborts the run.
	Err error `toml:"-"`
}

// MatrixCredentials is the resolved contents of a Matrix credentials file,
// as written by the one-time credential-generation flow.
type MatrixCredentials struct {
	Homeserver  string `json:"homeserver"`
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	DeviceID    string `json:"device_id"`
}

// Load reads clients.toml from dir, applies defaults, resolves env vars and
// credential files, and validates. Per-entry problems are recorded on the
// entry rather than failing the load.
func Load(dir string) (*Config, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("config dir is required")
	}

	path := filepath.Join(dir, DefaultConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)
	resolveEntries(dir, &cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// BodyLimitFor returns the effective body limit for one entry: the entry's
// own setting, else the general one, else the default.
func (c *Config) BodyLimitFor(entry Client) int {
	if entry.BodyLimit != nil {
		return *entry.BodyLimit
	}
	if c.General.BodyLimit != nil {
		return *c.General.BodyLimit
	}
	return DefaultBodyLimit
}

func applyDefaults(cfg *Config) {
	if cfg.General.Timeout.Duration == 0 {
		cfg.General.Timeout.Duration = DefaultTimeout
	}
	for i := range cfg.Clients {
		if cfg.Clients[i].Name == "" {
			cfg.Clients[i].Name = fmt.Sprintf("%s-%d", cfg.Clients[i].API, i+1)
		}
	}
}

func resolveEntries(dir string, cfg *Config) {
	for i := range cfg.Clients {
		entry := &cfg.Clients[i]
		switch entry.API {
		case SourceGitHub:
			if entry.AccessTokenEnv != "" {
				token := os.Getenv(entry.AccessTokenEnv)
				if token == "" {
					entry.Err = fmt.Errorf("env var %s is empty", entry.AccessTokenEnv)
					continue
				}
				entry.AccessToken = token
			}
		case SourceMatrix:
			if entry.Credentials == "" {
				entry.Err = errors.New("matrix credentials file is required")
				continue
			}
			path := entry.Credentials
			if !filepath.IsAbs(path) {
				path = filepath.Join(dir, path)
			}
			creds, err := loadMatrixCredentials(path)
			if err != nil {
				entry.Err = err
				continue
			}
			entry.Matrix = creds
		}
	}
}

func loadMatrixCredentials(path string) (*MatrixCredentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var creds MatrixCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", path, err)
	}
	return &creds, nil
}

func validate(cfg *Config) error {
	if len(cfg.Clients) == 0 {
		return errors.New("clients: at least one client must be configured")
	}

	seen := make(map[string]bool, len(cfg.Clients))
	for _, entry := range cfg.Clients {
		if seen[entry.Name] {
			return fmt.Errorf("clients: duplicate name %q", entry.Name)
		}
		seen[entry.Name] = true
	}

	return nil
}
