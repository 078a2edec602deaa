package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"AssetWarden/internal/address"
	"AssetWarden/internal/asset"
	"AssetWarden/internal/chainapi"
	"AssetWarden/internal/fetch"
	"AssetWarden/internal/logger"
	"AssetWarden/internal/registry"
)

const (
	// DefaultAdminAddress is the wallet allowed to authorize any single-asset change.
	DefaultAdminAddress = "erd1mrufurya6rveeajxwjp2m3mqequr0g28hrjnq7qjqqv3p2jhqt6qewc7lh"

	// DefaultGitHubAPIURL is the public GitHub REST endpoint.
	DefaultGitHubAPIURL = "https://api.github.com/"

	// DefaultListenAddr is the webhook server address.
	DefaultListenAddr = ":8080"

	// DefaultQueueSize bounds the pending webhook deliveries.
	DefaultQueueSize = 64
)

// ChainAPI holds the explorer API host of every network.
type ChainAPI struct {
	Mainnet string `yaml:"mainnet"`
	Devnet  string `yaml:"devnet"`
	Testnet string `yaml:"testnet"`
}

// URLs returns the hosts keyed by network.
func (c ChainAPI) URLs() map[asset.Network]string {
	return map[asset.Network]string{
		asset.Mainnet: c.Mainnet,
		asset.Devnet:  c.Devnet,
		asset.Testnet: c.Testnet,
	}
}

// Config is the bot configuration.
type Config struct {
	// AdminAddress may authorize any single-asset change. Empty disables the override.
	AdminAddress string `yaml:"admin_address"`

	// GitHubToken authenticates API calls and comments.
	GitHubToken string `yaml:"github_token"`

	// GitHubAPIURL is the REST endpoint, for GitHub Enterprise or tests.
	GitHubAPIURL string `yaml:"github_api_url"`

	// WebhookSecret validates webhook deliveries. Empty skips validation.
	WebhookSecret string `yaml:"webhook_secret"`

	// ListenAddr is the webhook server address.
	ListenAddr string `yaml:"listen_addr"`

	// QueueSize bounds deliveries waiting for review.
	QueueSize int `yaml:"queue_size"`

	// RegistryRawURL serves the published registry files.
	RegistryRawURL string `yaml:"registry_raw_url"`

	// ChainAPI lists the explorer hosts per network.
	ChainAPI ChainAPI `yaml:"chain_api"`

	// HTTPTimeout bounds every outbound request.
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	// ArchivePath is the snapshot archive directory. Empty disables archiving.
	ArchivePath string `yaml:"archive_path"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		AdminAddress:   DefaultAdminAddress,
		GitHubAPIURL:   DefaultGitHubAPIURL,
		ListenAddr:     DefaultListenAddr,
		QueueSize:      DefaultQueueSize,
		RegistryRawURL: registry.DefaultRawURL,
		ChainAPI: ChainAPI{
			Mainnet: chainapi.DefaultMainnetURL,
			Devnet:  chainapi.DefaultDevnetURL,
			Testnet: chainapi.DefaultTestnetURL,
		},
		HTTPTimeout: fetch.DefaultTimeout,
		LogLevel:    "info",
	}
}

// Load returns the defaults overlaid with the file at path, when path is
// not empty, then with environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("read config file:\n%w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file:\n%w", err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides cfg with the variables found by lookup.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	vars := map[string]*string{
		"ADMIN_ADDRESS":     &cfg.AdminAddress,
		"GITHUB_TOKEN":      &cfg.GitHubToken,
		"GITHUB_API_URL":    &cfg.GitHubAPIURL,
		"WEBHOOK_SECRET":    &cfg.WebhookSecret,
		"LISTEN_ADDR":       &cfg.ListenAddr,
		"REGISTRY_RAW_URL":  &cfg.RegistryRawURL,
		"CHAIN_API_MAINNET": &cfg.ChainAPI.Mainnet,
		"CHAIN_API_DEVNET":  &cfg.ChainAPI.Devnet,
		"CHAIN_API_TESTNET": &cfg.ChainAPI.Testnet,
		"LOG_LEVEL":         &cfg.LogLevel,
		"ARCHIVE_PATH":      &cfg.ArchivePath,
	}

	for name, dst := range vars {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	if v, ok := lookup("HTTP_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_TIMEOUT %q:\n%w", v, err)
		}
		cfg.HTTPTimeout = d
	}

	if v, ok := lookup("QUEUE_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid QUEUE_SIZE %q:\n%w", v, err)
		}
		cfg.QueueSize = n
	}

	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.AdminAddress != "" {
		if _, err := address.Parse(c.AdminAddress); err != nil {
			errs = append(errs, fmt.Errorf("admin_address: %w", err))
		}
	}

	urls := []struct{ name, value string }{
		{"github_api_url", c.GitHubAPIURL},
		{"registry_raw_url", c.RegistryRawURL},
		{"chain_api.mainnet", c.ChainAPI.Mainnet},
		{"chain_api.devnet", c.ChainAPI.Devnet},
		{"chain_api.testnet", c.ChainAPI.Testnet},
	}

	for _, u := range urls {
		if err := checkURL(u.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", u.name, err))
		}
	}

	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout))
	}

	if c.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("queue_size must be positive, got %d", c.QueueSize))
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}

	return errors.Join(errs...)
}

// checkURL requires an absolute http(s) url.
func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an absolute http url", raw)
	}

	return nil
}
