// Package cli implements the yiyin command-line interface.
//
// The serve command runs the OneBot webhook and the bot. The other
// commands expose the renderers and the data stores for offline use:
//
//   - serve: receive OneBot events and answer commands
//   - screenshot: render a chat bubble to a PNG file
//   - symmetric: mirror an image (static or animated)
//   - quotes: manage and browse the quote collections
//   - toggle: inspect and switch per-group features
//   - tarot: draw a card
//   - cache: manage the response cache
//
// All commands accept --config to select the TOML file and --verbose for
// debug logging. The logger travels in the command context.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/yiyinbot/yiyin/pkg/buildinfo"
	"github.com/yiyinbot/yiyin/pkg/cache"
	"github.com/yiyinbot/yiyin/pkg/config"
	"github.com/yiyinbot/yiyin/pkg/errors"
	"github.com/yiyinbot/yiyin/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is used for directories and display.
const appName = "yiyin"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool
}

// New creates a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "yiyin is a OneBot group chat bot",
		Long:          `yiyin answers slash commands in QQ groups over OneBot v11: quote screenshots, mirrored images, tarot, translation, math and role-play.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/yiyin/config.toml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.screenshotCommand())
	root.AddCommand(c.symmetricCommand())
	root.AddCommand(c.quotesCommand())
	root.AddCommand(c.toggleCommand())
	root.AddCommand(c.tarotCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Shared Wiring
// =============================================================================

// loadConfig reads the --config file (or the default one) and validates it.
func (c *CLI) loadConfig() (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openStore opens the record store selected by cfg.Store.
func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	return store.Open(ctx, store.Options{
		Backend:         cfg.Store.Backend,
		Dir:             filepath.Join(cfg.DataDir, "store"),
		RedisAddr:       cfg.Store.RedisAddr,
		RedisPassword:   cfg.Store.RedisPassword,
		RedisDB:         cfg.Store.RedisDB,
		RedisPrefix:     cfg.Store.RedisPrefix,
		MongoURI:        cfg.Store.MongoURI,
		MongoDatabase:   cfg.Store.MongoDatabase,
		MongoCollection: cfg.Store.MongoCollection,
	})
}

// quotesDir is where quote images live.
func quotesDir(cfg config.Config) string {
	return filepath.Join(cfg.DataDir, "quotes")
}

// openCache opens the response cache selected by cfg.Cache. A redis cache
// that cannot be reached degrades to no caching.
func openCache(ctx context.Context, cfg config.Config, logger *log.Logger) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "redis":
		rc, err := cache.DialRedis(ctx, cfg.Cache.RedisAddr, "", 0, appName+":cache:")
		if err != nil {
			logger.Warn("redis cache unavailable, caching disabled", "addr", cfg.Cache.RedisAddr, "err", err)
			return cache.NewNullCache(), nil
		}
		return rc, nil
	default:
		dir, err := cacheDir(cfg)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "cannot locate cache directory")
		}
		return cache.NewFileCache(dir)
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns cfg.Cache.Dir, or the XDG cache directory
// (~/.cache/yiyin/).
func cacheDir(cfg config.Config) (string, error) {
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
