package offlinecache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/always-cache/offline-cache/cache"
)

const testConfig = `
origin: http://10.0.0.1:8000
host: shop.example
version: "2024-05-01"
fetchTimeout: 5s
shell:
  manifest:
    - /
    - /static/app.css
  offlineDocument: /offline.html
storage:
  provider: leveldb
  path: /var/lib/offline-cache
log:
  level: info
rules:
  - prefix: /admin/
    bypass: true
  - path: /feed
    destination: document
    navigate: true
    headers:
      X-Robots-Tag: noindex
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return filename
}

func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, testConfig))
	if err != nil {
		t.Fatal(err)
	}
	if config.Port != 8080 {
		t.Fatalf("Default port lost: %d", config.Port)
	}
	if !config.NavigationPreload {
		t.Fatal("Default navigation preload lost")
	}
	if config.Version != "2024-05-01" || config.Host != "shop.example" {
		t.Fatalf("Config is %+v", config)
	}
	if config.FetchTimeout != 5*time.Second {
		t.Fatalf("Fetch timeout is %s", config.FetchTimeout)
	}
	if len(config.Shell.Manifest) != 2 || config.Shell.OfflineDocument != "/offline.html" {
		t.Fatalf("Shell is %+v", config.Shell)
	}
	if config.Storage.Provider != cache.ProviderLevelDB || config.Storage.Path != "/var/lib/offline-cache" {
		t.Fatalf("Storage is %+v", config.Storage)
	}
	if len(config.Rules) != 2 || !config.Rules[0].Bypass || config.Rules[1].Headers["X-Robots-Tag"] != "noindex" {
		t.Fatalf("Rules are %+v", config.Rules)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("OFFLINE_CACHE_VERSION", "2024-06-01")
	t.Setenv("OFFLINE_CACHE_PORT", "9090")
	t.Setenv("OFFLINE_CACHE_STORAGE_PROVIDER", "sqlite")
	t.Setenv("OFFLINE_CACHE_SHELL_MANIFEST", "/,/app.js")
	t.Setenv("OFFLINE_CACHE_LOG_FILE", "/tmp/offline-cache.log")

	config, err := LoadConfig(writeConfig(t, testConfig))
	if err != nil {
		t.Fatal(err)
	}
	if config.Version != "2024-06-01" || config.Port != 9090 {
		t.Fatalf("Config is %+v", config)
	}
	if config.Storage.Provider != cache.ProviderSQLite || config.Storage.Path != "/var/lib/offline-cache" {
		t.Fatalf("Storage is %+v", config.Storage)
	}
	if len(config.Shell.Manifest) != 2 || config.Shell.Manifest[1] != "/app.js" {
		t.Fatalf("Manifest is %v", config.Shell.Manifest)
	}
	if config.Log.File != "/tmp/offline-cache.log" || config.Log.Level != "info" {
		t.Fatalf("Log is %+v", config.Log)
	}
}

func TestLoadConfigWithoutFile(t *testing.T) {
	t.Setenv("OFFLINE_CACHE_ORIGIN", "https://shop.example")
	t.Setenv("OFFLINE_CACHE_VERSION", "1")
	config, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if err := config.Validate(); err != nil {
		t.Fatal(err)
	}
	if config.Storage.Provider != cache.ProviderSQLite || config.Shell.OfflineDocument != "/offline.html" {
		t.Fatalf("Defaults are %+v", config)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("Expected error for missing file")
	}
	if _, err := LoadConfig(writeConfig(t, "port: [")); err == nil {
		t.Fatal("Expected error for invalid yaml")
	}
	t.Setenv("OFFLINE_CACHE_PORT", "eighty")
	if _, err := LoadConfig(""); err == nil {
		t.Fatal("Expected error for invalid env")
	}
}

func TestValidate(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); err == nil {
		t.Fatal("Expected error without version")
	}
	config.Version = "1"
	if err := config.Validate(); err == nil {
		t.Fatal("Expected error without origin")
	}
	config.Origin = "https://shop.example"
	config.Port = 0
	if err := config.Validate(); err == nil {
		t.Fatal("Expected error without port")
	}
}

func TestHostConfig(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, testConfig))
	if err != nil {
		t.Fatal(err)
	}
	config.Scope = "https://www.shop.example"
	hostConfig, err := config.HostConfig(cache.NewMemoryStorage())
	if err != nil {
		t.Fatal(err)
	}
	if hostConfig.OriginURL.Host != "10.0.0.1:8000" || hostConfig.OriginHost != "shop.example" {
		t.Fatalf("Origin is %s (%s)", hostConfig.OriginURL.String(), hostConfig.OriginHost)
	}
	if hostConfig.Scope == nil || hostConfig.Scope.Host != "www.shop.example" {
		t.Fatalf("Scope is %v", hostConfig.Scope)
	}
	if hostConfig.OfflineDocument != "/offline.html" || len(hostConfig.Rules) != 2 {
		t.Fatalf("Host config is %+v", hostConfig)
	}

	o, err := New(hostConfig)
	if err != nil {
		t.Fatal(err)
	}
	if o.scope.String() != "https://www.shop.example" {
		t.Fatalf("Scope is %s", o.scope.String())
	}
}
