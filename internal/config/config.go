package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	GitHub    GitHubConfig    `yaml:"github"`
	Providers ProvidersConfig `yaml:"providers"`
	Store     StoreConfig     `yaml:"store"`
	Blob      BlobConfig      `yaml:"blob"`
	Sync      SyncConfig      `yaml:"sync"`
	Notify    NotifyConfig    `yaml:"notify"`
	Repos     []string        `yaml:"repos"`
}

// GitHubConfig holds GitHub authentication settings.
type GitHubConfig struct {
	Auth           string `yaml:"auth"` // "token" or "app"
	Token          string `yaml:"token"`
	AppID          string `yaml:"app_id"`
	InstallationID string `yaml:"installation_id"`
	PrivateKeyPath string `yaml:"private_key_path"`
	PrivateKey     string `yaml:"private_key"`
}

// ProviderConfig holds settings for a single embedding provider.
type ProviderConfig struct {
	Type   string `yaml:"type"`
	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key"`
	URL    string `yaml:"url"`
}

// ProvidersConfig groups provider configs.
type ProvidersConfig struct {
	Embedding ProviderConfig `yaml:"embedding"`
}

// StoreConfig holds metadata database settings.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// BlobConfig selects and configures the artifact store.
type BlobConfig struct {
	Type string   `yaml:"type"` // "fs" or "s3"
	Dir  string   `yaml:"dir"`  // fs only
	S3   S3Config `yaml:"s3"`
}

// S3Config holds S3-compatible object storage settings.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// SyncConfig holds scheduling parameters for the serve daemon.
type SyncConfig struct {
	Schedule      string `yaml:"schedule"`    // cron expression
	Concurrency   int    `yaml:"concurrency"` // parallel repo syncs
	StaleAfterRaw string `yaml:"stale_after"`
	MetricsAddr   string `yaml:"metrics_addr"` // empty disables the endpoint
}

// NotifyConfig holds failure notification settings.
type NotifyConfig struct {
	Type           string `yaml:"type"` // "slack", "discord", "both" or empty
	SlackWebhook   string `yaml:"slack_webhook"`
	DiscordWebhook string `yaml:"discord_webhook"`
}

// StaleAfter returns how long an in-flight sync may sit before the
// serve loop declares it interrupted.
func (s SyncConfig) StaleAfter() (time.Duration, error) {
	if s.StaleAfterRaw == "" {
		return 30 * time.Minute, nil
	}
	return time.ParseDuration(s.StaleAfterRaw)
}

// envVarPattern matches ${VAR} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} placeholders with environment variable values.
// Returns an error if any referenced variable is not set.
func expandEnvVars(data []byte) ([]byte, error) {
	var missing []string

	result := envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		val, ok := os.LookupEnv(string(varName))
		if !ok {
			missing = append(missing, string(varName))
			return match
		}
		return []byte(val)
	})

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return result, nil
}

// Load reads and parses a config file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses config from raw YAML bytes, expanding env vars and validating.
func Parse(data []byte) (*Config, error) {
	expanded, err := expandEnvVars(data)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.GitHub.Auth == "" {
		cfg.GitHub.Auth = "token"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "~/.repovec/repovec.db"
	}
	if cfg.Blob.Type == "" {
		cfg.Blob.Type = "fs"
	}
	if cfg.Blob.Dir == "" {
		cfg.Blob.Dir = "~/.repovec/artifacts"
	}
	if cfg.Sync.Schedule == "" {
		cfg.Sync.Schedule = "*/15 * * * *"
	}
	if cfg.Sync.Concurrency == 0 {
		cfg.Sync.Concurrency = 2
	}
	if cfg.Sync.StaleAfterRaw == "" {
		cfg.Sync.StaleAfterRaw = "30m"
	}
}

func validate(cfg *Config) error {
	switch cfg.GitHub.Auth {
	case "token", "app":
	default:
		return fmt.Errorf("unsupported github auth mode: %q", cfg.GitHub.Auth)
	}

	validEmbedTypes := map[string]bool{"openai": true, "ollama": true, "": true}
	if !validEmbedTypes[cfg.Providers.Embedding.Type] {
		return fmt.Errorf("unsupported embedding provider type: %s", cfg.Providers.Embedding.Type)
	}

	switch cfg.Blob.Type {
	case "fs":
	case "s3":
		if cfg.Blob.S3.Endpoint == "" {
			return fmt.Errorf("blob.s3.endpoint is required for s3 storage")
		}
		if cfg.Blob.S3.Bucket == "" {
			return fmt.Errorf("blob.s3.bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("unsupported blob storage type: %q", cfg.Blob.Type)
	}

	if cfg.Sync.Concurrency < 1 {
		return fmt.Errorf("sync.concurrency must be at least 1, got %d", cfg.Sync.Concurrency)
	}
	if _, err := cfg.Sync.StaleAfter(); err != nil {
		return fmt.Errorf("invalid stale_after %q: %w", cfg.Sync.StaleAfterRaw, err)
	}

	switch cfg.Notify.Type {
	case "", "slack", "discord", "both":
	default:
		return fmt.Errorf("unsupported notify type: %q", cfg.Notify.Type)
	}

	for _, repo := range cfg.Repos {
		if !strings.Contains(repo, "/") {
			return fmt.Errorf("repo %q: want owner/repo", repo)
		}
	}

	return nil
}
