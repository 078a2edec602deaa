package main

import (
	"flag"
	"fmt"
	"net/http"

	"AssetWarden/internal/archive"
	"AssetWarden/internal/attest"
	"AssetWarden/internal/bot"
	"AssetWarden/internal/chainapi"
	"AssetWarden/internal/config"
	"AssetWarden/internal/fetch"
	"AssetWarden/internal/logger"
	"AssetWarden/internal/owners"
	"AssetWarden/internal/registry"
	"AssetWarden/internal/review"
	"AssetWarden/internal/signature"
	"AssetWarden/internal/vcs"
)

// commonFlags are accepted by every command that talks to GitHub or the chain.
type commonFlags struct {
	configPath string
	logLevel   string
}

// register adds the common flags to fs.
func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "YAML config file (optional)")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn or error")
}

// load reads and validates the configuration, then installs the logger.
func (c *commonFlags) load() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config:\n%w", err)
	}

	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config:\n%w", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.Init(level)

	return cfg, nil
}

// app holds the components built from a configuration.
type app struct {
	cfg      *config.Config
	github   *vcs.Client
	reviewer *review.Reviewer
	archive  *archive.Archive // archive is nil unless opened
}

// newApp wires the components. The archive is opened when withArchive is
// set and ARCHIVE_PATH is configured.
func newApp(cfg *config.Config, withArchive bool) (*app, error) {
	httpClient := &http.Client{}

	github, err := vcs.New(httpClient, cfg.GitHubToken, cfg.GitHubAPIURL, cfg.HTTPTimeout)
	if err != nil {
		return nil, err
	}

	f := fetch.New(httpClient, cfg.HTTPTimeout)
	directory := owners.NewDirectory(
		registry.New(f, cfg.RegistryRawURL),
		chainapi.New(f, cfg.ChainAPI.URLs()),
	)

	a := &app{
		cfg:      cfg,
		github:   github,
		reviewer: review.NewReviewer(directory, attest.NewEngine(signature.Wallet{}), cfg.AdminAddress),
	}

	if withArchive && cfg.ArchivePath != "" {
		a.archive, err = archive.Open(cfg.ArchivePath)
		if err != nil {
			return nil, err
		}
	}

	return a, nil
}

// bot returns a bot over the app components. Snapshots are recorded when
// the archive is open.
func (a *app) bot(dryRun bool) *bot.Bot {
	opts := bot.Options{DryRun: dryRun}
	if a.archive != nil {
		opts.Recorder = a.archive
	}

	return bot.New(a.github, a.reviewer, opts)
}

// Close releases the archive.
func (a *app) Close() {
	if a.archive == nil {
		return
	}

	if err := a.archive.Close(); err != nil {
		logger.Warn("failed to close archive", "error", err)
	}
}
