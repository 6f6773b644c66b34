// Package config resolves where the TaskNet API lives and how the client
// stores credentials. Values come from defaults, then an optional YAML file,
// then TASKNET_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.sr.ht/~jakintosh/tasknet/pkg/transport"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL = "https://tasknetbe-production.up.railway.app"
	APIPrefix      = "/api"

	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"

	DefaultTimeout = 30 * time.Second

	configDirName = "tasknet"
)

const (
	EnvAPIURL         = "TASKNET_API_URL"
	EnvConfig         = "TASKNET_CONFIG"
	EnvGoogleClientID = "TASKNET_GOOGLE_CLIENT_ID"
	EnvStore          = "TASKNET_STORE"
	EnvStorePath      = "TASKNET_STORE_PATH"
	EnvLogLevel       = "TASKNET_LOG_LEVEL"
)

var (
	ErrConfigRead    = errors.New("failed to read config file")
	ErrConfigInvalid = errors.New("invalid config")
)

type Config struct {
	BaseURL        string        `yaml:"base_url"`
	GoogleClientID string        `yaml:"google_client_id"`
	Store          string        `yaml:"store"`
	StorePath      string        `yaml:"store_path"`
	LogLevel       string        `yaml:"log_level"`
	Timeout        time.Duration `yaml:"timeout"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout"`
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(name string) (string, bool)

func Default() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		Store:          StoreFile,
		LogLevel:       transport.LogLevelDefault.String(),
		Timeout:        DefaultTimeout,
		RefreshTimeout: transport.DefaultRefreshTimeout,
	}
}

// Load reads configuration from the process environment. An empty path
// falls back to TASKNET_CONFIG; with neither set only defaults and
// environment overrides apply.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

func LoadWithEnv(path string, lookup LookupFunc) (Config, error) {
	cfg := Default()

	if path == "" {
		path, _ = lookup(EnvConfig)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %v", ErrConfigRead, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrConfigInvalid, path, err)
		}
	}

	overrides := []struct {
		name  string
		field *string
	}{
		{EnvAPIURL, &cfg.BaseURL},
		{EnvGoogleClientID, &cfg.GoogleClientID},
		{EnvStore, &cfg.Store},
		{EnvStorePath, &cfg.StorePath},
		{EnvLogLevel, &cfg.LogLevel},
	}
	for _, o := range overrides {
		if v, ok := lookup(o.name); ok && v != "" {
			*o.field = v
		}
	}

	return cfg.Normalized(), nil
}

// Normalized strips trailing slashes from the base URL, restoring the
// default when nothing is left.
func (c Config) Normalized() Config {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	return c
}

// APIBase is the base URL with the API prefix, e.g.
// "https://tasknetbe-production.up.railway.app/api".
func (c Config) APIBase() string {
	return c.BaseURL + APIPrefix
}

func (c Config) Level() transport.LogLevel {
	level, err := transport.ParseLogLevel(c.LogLevel)
	if err != nil {
		return transport.LogLevelDefault
	}
	return level
}

// CredentialPath is the configured store path, or a file under the user
// config directory named for the store kind.
func (c Config) CredentialPath() (string, error) {
	if c.StorePath != "" {
		return c.StorePath, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	name := "credentials.json"
	if c.Store == StoreSQLite {
		name = "credentials.db"
	}
	return filepath.Join(dir, configDirName, name), nil
}

func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: base url: %v", ErrConfigInvalid, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: base url '%s' must be http or https", ErrConfigInvalid, c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: base url '%s' has no host", ErrConfigInvalid, c.BaseURL)
	}

	switch c.Store {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("%w: unknown store '%s'", ErrConfigInvalid, c.Store)
	}

	if _, err := transport.ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrConfigInvalid)
	}
	if c.RefreshTimeout <= 0 {
		return fmt.Errorf("%w: refresh_timeout must be positive", ErrConfigInvalid)
	}
	return nil
}
