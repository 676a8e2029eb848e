package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the YAML file.
const (
	EnvBackendConfig    = "QUIZ_BACKEND_CONFIG"
	EnvAppID            = "QUIZ_APP_ID"
	EnvInitialAuthToken = "QUIZ_INITIAL_AUTH_TOKEN"
)

const (
	defaultAppID      = "default-app-id"
	defaultIssuer     = "quizboard"
	minAuthSecretSize = 16
)

// ErrInvalidConfig marks configuration that cannot start the service.
var ErrInvalidConfig = errors.New("invalid configuration")

// Backend holds the storage and identity connection settings. It can be supplied
// as a single JSON or YAML blob through QUIZ_BACKEND_CONFIG.
type Backend struct {
	Postgres struct {
		URL string `yaml:"url" json:"url"`
	} `yaml:"postgres" json:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr" json:"addr"`
		Password string `yaml:"password" json:"password"`
		DB       int    `yaml:"db" json:"db"`
	} `yaml:"redis" json:"redis"`
	Auth struct {
		Secret     string `yaml:"secret" json:"secret"`
		Issuer     string `yaml:"issuer" json:"issuer"`
		SessionTTL string `yaml:"sessionTTL" json:"sessionTTL"`
	} `yaml:"auth" json:"auth"`
	Snapshot struct {
		TTL string `yaml:"ttl" json:"ttl"`
	} `yaml:"snapshot" json:"snapshot"`
}

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Backend Backend `yaml:"backend"`
	App     struct {
		ID               string `yaml:"id"`
		InitialAuthToken string `yaml:"initialAuthToken"`
	} `yaml:"app"`
	Notice struct {
		SuccessDelay string `yaml:"successDelay"`
	} `yaml:"notice"`
}

// Load reads YAML config from path and applies environment overrides.
// A missing file is not an error; the environment alone may configure the service.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
			}
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if blob := getenv(EnvBackendConfig); blob != "" {
		var backend Backend
		// YAML is a superset of JSON, so either form is accepted.
		if err := yaml.Unmarshal([]byte(blob), &backend); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvBackendConfig, err)
		}
		c.Backend = backend
	}
	if id := getenv(EnvAppID); id != "" {
		c.App.ID = id
	}
	if token := getenv(EnvInitialAuthToken); token != "" {
		c.App.InitialAuthToken = token
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.App.ID == "" {
		c.App.ID = defaultAppID
	}
	if c.Backend.Auth.Issuer == "" {
		c.Backend.Auth.Issuer = defaultIssuer
	}
}

// Validate reports configuration that would make every client fail to bootstrap.
func (c Config) Validate() error {
	if c.App.ID == "" {
		return fmt.Errorf("%w: app id is empty", ErrInvalidConfig)
	}
	if len(c.Backend.Auth.Secret) < minAuthSecretSize {
		return fmt.Errorf("%w: auth secret must be at least %d bytes", ErrInvalidConfig, minAuthSecretSize)
	}
	for name, raw := range map[string]string{
		"auth.sessionTTL":     c.Backend.Auth.SessionTTL,
		"snapshot.ttl":        c.Backend.Snapshot.TTL,
		"notice.successDelay": c.Notice.SuccessDelay,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
		}
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
