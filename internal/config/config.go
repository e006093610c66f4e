package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nordgren/eventscout/internal/crawler"
	"github.com/nordgren/eventscout/internal/crypto"
)

type BrowserConfig struct {
	Engines    []string      `yaml:"engines"`     // preference order, most stealthy first
	NavTimeout time.Duration `yaml:"nav_timeout"` // per page load
	PreMin     time.Duration `yaml:"pre_delay_min"`
	PreMax     time.Duration `yaml:"pre_delay_max"`
	PostMin    time.Duration `yaml:"post_delay_min"`
	PostMax    time.Duration `yaml:"post_delay_max"`
}

type ProviderConfig struct {
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"` // ${VAR} references are expanded
}

type CaptchaConfig struct {
	Providers    []ProviderConfig `yaml:"providers"` // tried in order
	PollInterval time.Duration    `yaml:"poll_interval"`
	SolveTimeout time.Duration    `yaml:"solve_timeout"`
	Settle       time.Duration    `yaml:"settle"`
}

type RecoveryConfig struct {
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

type StoreConfig struct {
	DSN string `yaml:"dsn"` // Postgres connection string; empty means dry-run store
}

type SyncConfig struct {
	ChunkSize     int `yaml:"chunk_size"`
	RetentionDays int `yaml:"retention_days"`
}

type SourceConfig struct {
	Name      string            `yaml:"name"`
	URL       string            `yaml:"url"`
	Selectors crawler.Selectors `yaml:"selectors"`
}

type Config struct {
	DataDir  string         `yaml:"data_dir"`
	LogLevel string         `yaml:"log_level"`
	Browser  BrowserConfig  `yaml:"browser"`
	Captcha  CaptchaConfig  `yaml:"captcha"`
	Recovery RecoveryConfig `yaml:"recovery"`
	Store    StoreConfig    `yaml:"store"`
	Sync     SyncConfig     `yaml:"sync"`
	Sources  []SourceConfig `yaml:"sources"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DataDir:  "~/.eventscout",
		LogLevel: "info",
		Browser: BrowserConfig{
			Engines:    []string{"rod-stealth", "playwright", "chromedp", "http"},
			NavTimeout: 30 * time.Second,
			PreMin:     500 * time.Millisecond,
			PreMax:     2 * time.Second,
			PostMin:    300 * time.Millisecond,
			PostMax:    1200 * time.Millisecond,
		},
		Captcha: CaptchaConfig{
			PollInterval: 5 * time.Second,
			SolveTimeout: 2 * time.Minute,
			Settle:       3 * time.Second,
		},
		Recovery: RecoveryConfig{
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
		},
		Sync: SyncConfig{
			ChunkSize:     50,
			RetentionDays: 90,
		},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// environment overrides. An empty path loads defaults and environment
// only.
func Load(path string) (Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("parsing config: %w", err)
		}
	}

	applyEnv(&c)

	// Provider keys may be ${VAR} references, AES-GCM ciphertext sealed
	// with EVENTSCOUT_PASSPHRASE, or plain strings.
	enc := crypto.NewEncryptor(os.Getenv("EVENTSCOUT_PASSPHRASE"))
	for i := range c.Captcha.Providers {
		key := os.ExpandEnv(c.Captcha.Providers[i].APIKey)
		key, err := enc.Decrypt(key)
		if err != nil {
			return c, fmt.Errorf("decrypting api key for provider %s: %w",
				c.Captcha.Providers[i].Name, err)
		}
		c.Captcha.Providers[i].APIKey = key
	}

	if err := c.validate(); err != nil {
		return c, err
	}
	return c, nil
}

// applyEnv overrides the settings that are conventionally injected via
// environment in deployments.
func applyEnv(c *Config) {
	if v := os.Getenv("EVENTSCOUT_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("EVENTSCOUT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("EVENTSCOUT_STORE_DSN"); v != "" {
		c.Store.DSN = v
	}
}

func (c *Config) validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if len(c.Browser.Engines) == 0 {
		return fmt.Errorf("browser.engines must list at least one engine")
	}
	if c.Sync.ChunkSize <= 0 {
		return fmt.Errorf("sync.chunk_size must be positive")
	}
	if c.Sync.RetentionDays <= 0 {
		return fmt.Errorf("sync.retention_days must be positive")
	}
	for _, s := range c.Sources {
		if s.Name == "" || s.URL == "" {
			return fmt.Errorf("every source needs a name and url")
		}
	}
	return nil
}
