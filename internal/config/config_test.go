package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nordgren/eventscout/internal/crypto"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.DataDir != "~/.eventscout" {
		t.Errorf("data dir = %q", c.DataDir)
	}
	if len(c.Browser.Engines) != 4 || c.Browser.Engines[0] != "rod-stealth" {
		t.Errorf("engines = %v", c.Browser.Engines)
	}
	if c.Sync.ChunkSize != 50 || c.Sync.RetentionDays != 90 {
		t.Errorf("sync defaults = %+v", c.Sync)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
data_dir: /var/lib/eventscout
browser:
  engines: [http]
  nav_timeout: 10s
sync:
  chunk_size: 25
  retention_days: 30
sources:
  - name: blueroom
    url: https://example.com/events
    selectors:
      item: .event
      title: .title
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.DataDir != "/var/lib/eventscout" {
		t.Errorf("data dir = %q", c.DataDir)
	}
	if len(c.Browser.Engines) != 1 || c.Browser.Engines[0] != "http" {
		t.Errorf("engines = %v", c.Browser.Engines)
	}
	if c.Browser.NavTimeout != 10*time.Second {
		t.Errorf("nav timeout = %v", c.Browser.NavTimeout)
	}
	if c.Sync.ChunkSize != 25 {
		t.Errorf("chunk size = %d", c.Sync.ChunkSize)
	}
	if len(c.Sources) != 1 || c.Sources[0].Selectors.Item != ".event" {
		t.Errorf("sources = %+v", c.Sources)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EVENTSCOUT_DATA_DIR", "/tmp/scout")
	t.Setenv("EVENTSCOUT_STORE_DSN", "postgres://scout@localhost/events")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.DataDir != "/tmp/scout" {
		t.Errorf("data dir = %q", c.DataDir)
	}
	if c.Store.DSN != "postgres://scout@localhost/events" {
		t.Errorf("dsn = %q", c.Store.DSN)
	}
}

func TestLoadExpandsProviderKeys(t *testing.T) {
	t.Setenv("ANTICAPTCHA_KEY", "secret-key")
	path := writeConfig(t, `
captcha:
  providers:
    - name: anticaptcha
      endpoint: https://api.anti-captcha.com
      api_key: ${ANTICAPTCHA_KEY}
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(c.Captcha.Providers) != 1 || c.Captcha.Providers[0].APIKey != "secret-key" {
		t.Errorf("providers = %+v", c.Captcha.Providers)
	}
}

func TestLoadDecryptsProviderKeys(t *testing.T) {
	t.Setenv("EVENTSCOUT_PASSPHRASE", "hunter2")

	sealed, err := crypto.NewEncryptor("hunter2").Encrypt("real-key")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	path := writeConfig(t, `
captcha:
  providers:
    - name: anticaptcha
      endpoint: https://api.anti-captcha.com
      api_key: "`+sealed+`"
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Captcha.Providers[0].APIKey != "real-key" {
		t.Errorf("api key = %q, want decrypted value", c.Captcha.Providers[0].APIKey)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no engines", "browser:\n  engines: []\n"},
		{"bad chunk size", "sync:\n  chunk_size: 0\n"},
		{"source without url", "sources:\n  - name: x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
