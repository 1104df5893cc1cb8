package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sintesi/internal/config"
	"sintesi/internal/logging"
	"sintesi/internal/registry"
	"sintesi/internal/sigcache"
	"sintesi/internal/signature"
	"sintesi/internal/version"
)

var (
	repoRootFlag  string
	formatFlag    string
	logLevelFlag  string
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "sintesi",
	Short: "sintesi - keep documentation in sync with code",
	Long: `sintesi tracks anchored documentation fragments and the code symbols
they describe. It detects when a symbol's signature drifts away from its
documentation and rewrites the anchored fragment in place.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("sintesi version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&repoRootFlag, "repo-root", "",
		"Repository root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "human",
		"Output format (human, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (default: from config)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "",
		"Log format: human, json (default: from config)")
}

// app bundles everything a command needs after setup.
type app struct {
	repoRoot string
	cfg      *config.Config
	logger   *logging.Logger
	reg      *registry.MapRegistry
	provider signature.Provider
	cache    *sigcache.Cache
}

// newApp resolves the repo root, loads config and manifest, opens the
// registry, and builds a (cached) signature provider.
func newApp() (*app, error) {
	repoRoot := repoRootFlag
	if repoRoot == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		repoRoot = cwd
	}
	repoRoot, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		return nil, err
	}
	manifest, err := config.LoadManifest(repoRoot)
	if err != nil {
		return nil, err
	}
	manifest.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := newLoggerFromConfig(cfg)

	store := registry.NewFileStore(filepath.Join(repoRoot, filepath.FromSlash(cfg.Registry.Path)))
	reg, err := registry.Load(store)
	if err != nil {
		return nil, err
	}

	a := &app{
		repoRoot: repoRoot,
		cfg:      cfg,
		logger:   logger,
		reg:      reg,
	}

	var provider signature.Provider = signature.NewProvider(repoRoot)
	if signature.Available() {
		cache, err := sigcache.Open(filepath.Join(repoRoot, config.ConfigDirName), logger)
		if err != nil {
			logger.Warn("signature cache unavailable, resolving uncached", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			a.cache = cache
			provider = sigcache.NewCachedProvider(provider, cache, repoRoot)
		}
	}
	a.provider = provider

	return a, nil
}

func (a *app) Close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
}

// newLoggerFromConfig applies the CLI overrides on top of the config.
func newLoggerFromConfig(cfg *config.Config) *logging.Logger {
	format := cfg.Logging.Format
	if logFormatFlag != "" {
		format = logFormatFlag
	}
	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	if format == "" {
		format = "human"
	}
	if level == "" {
		level = "info"
	}
	return logging.NewLogger(logging.Config{
		Format: logging.Format(format),
		Level:  logging.LogLevel(level),
	})
}

func fail(err error) {
	rootCmd.PrintErrln("Error:", err)
	os.Exit(1)
}
