package offlinecache

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/always-cache/offline-cache/cache"
	requestrules "github.com/always-cache/offline-cache/pkg/request-rules"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "OFFLINE_CACHE_"

// FileConfig is the deployment configuration. It is read from a YAML file
// and then overridden by environment variables, e.g. OFFLINE_CACHE_VERSION.
type FileConfig struct {
	Port int `yaml:"port" env:"PORT"`
	// Origin URL to proxy to.
	Origin string `yaml:"origin" env:"ORIGIN"`
	// Hostname of the origin, if the origin URL is an address.
	Host string `yaml:"host" env:"HOST"`
	// Public URL of the application. Defaults to the origin.
	Scope string `yaml:"scope" env:"SCOPE"`
	// Version of the deployment. A new version replaces the worker.
	Version           string             `yaml:"version" env:"VERSION"`
	NavigationPreload bool               `yaml:"navigationPreload" env:"NAVIGATION_PRELOAD"`
	FetchTimeout      time.Duration      `yaml:"fetchTimeout" env:"FETCH_TIMEOUT"`
	Shell             ShellConfig        `yaml:"shell" envPrefix:"SHELL_"`
	Storage           StorageConfig      `yaml:"storage" envPrefix:"STORAGE_"`
	Log               LogConfig          `yaml:"log" envPrefix:"LOG_"`
	Rules             requestrules.Rules `yaml:"rules"`
}

type ShellConfig struct {
	Manifest        []string `yaml:"manifest" env:"MANIFEST" envSeparator:","`
	OfflineDocument string   `yaml:"offlineDocument" env:"OFFLINE_DOCUMENT"`
}

type StorageConfig struct {
	// memory, sqlite or leveldb
	Provider string `yaml:"provider" env:"PROVIDER"`
	Path     string `yaml:"path" env:"PATH"`
}

// DefaultConfig is the configuration used for anything not set.
func DefaultConfig() FileConfig {
	return FileConfig{
		Port:              8080,
		NavigationPreload: true,
		Shell: ShellConfig{
			Manifest:        []string{"/"},
			OfflineDocument: "/offline.html",
		},
		Storage: StorageConfig{
			Provider: cache.ProviderSQLite,
			Path:     "cache.db",
		},
		Log: LogConfig{
			Level: "debug",
		},
	}
}

// LoadConfig reads the config file, if any, on top of the defaults and
// applies the environment.
func LoadConfig(filename string) (FileConfig, error) {
	config := DefaultConfig()
	if filename != "" {
		configBytes, err := os.ReadFile(filename)
		if err != nil {
			return config, err
		}
		if err := yaml.Unmarshal(configBytes, &config); err != nil {
			return config, fmt.Errorf("parse %s: %w", filename, err)
		}
	}
	if err := env.ParseWithOptions(&config, env.Options{Prefix: EnvPrefix}); err != nil {
		return config, fmt.Errorf("parse env: %w", err)
	}
	return config, nil
}

func (c FileConfig) Validate() error {
	if c.Version == "" {
		return errors.New("version is required")
	}
	if c.Origin == "" {
		return errors.New("origin is required")
	}
	if c.Port <= 0 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// HostConfig converts the file config into the config of the host.
func (c FileConfig) HostConfig(storage cache.Storage) (Config, error) {
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	origin, err := url.Parse(c.Origin)
	if err != nil {
		return Config{}, fmt.Errorf("parse origin: %w", err)
	}
	config := Config{
		Storage:           storage,
		OriginURL:         *origin,
		OriginHost:        c.Host,
		Manifest:          c.Shell.Manifest,
		OfflineDocument:   c.Shell.OfflineDocument,
		NavigationPreload: c.NavigationPreload,
		Rules:             c.Rules,
		FetchTimeout:      c.FetchTimeout,
	}
	if c.Scope != "" {
		scope, err := url.Parse(c.Scope)
		if err != nil {
			return Config{}, fmt.Errorf("parse scope: %w", err)
		}
		config.Scope = scope
	}
	return config, nil
}
