// Package cli implements the command-line interface for ledgerstore.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/kilupskalvis/ledgerstore/internal/config"
	"github.com/kilupskalvis/ledgerstore/internal/core"
	"github.com/kilupskalvis/ledgerstore/internal/ledger"
	"github.com/kilupskalvis/ledgerstore/internal/models"
	"github.com/kilupskalvis/ledgerstore/internal/plugin"
	"github.com/kilupskalvis/ledgerstore/internal/store"
	"github.com/spf13/cobra"
)

var (
	logLevel  string
	logFormat string
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config   *config.Config
	Store    *store.Store
	Session  *core.Session
	Ledger   *ledger.Session
	Types    *ledger.Types
	Registry *models.Registry
	Plugins  []*plugin.Manifest
	Logger   *slog.Logger
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
}

// newLogger builds the slog logger for level and format
func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// buildRegistry registers the built-in types and every plugin manifest
func buildRegistry(manifests []*plugin.Manifest) (*models.Registry, *ledger.Types, error) {
	reg, types, err := ledger.NewRegistry()
	if err != nil {
		return nil, nil, err
	}
	if err := plugin.RegisterAll(reg, manifests); err != nil {
		return nil, nil, err
	}
	return reg, types, nil
}

// openBook opens the store described by cfg and loads the session
func openBook(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*cmdContext, error) {
	manifests, err := plugin.LoadDir(cfg.PluginsPath())
	if err != nil {
		return nil, err
	}
	reg, types, err := buildRegistry(manifests)
	if err != nil {
		return nil, err
	}

	opts := store.Options{Driver: cfg.Driver, DSN: cfg.DataSource(), Logger: logger}
	if cfg.Driver == config.DriverPostgres {
		opts.Retry = store.DefaultRetryConfig()
	}
	st, err := store.Open(ctx, opts)
	if err != nil {
		return nil, err
	}

	sess, err := core.Open(ctx, st, reg, core.Options{Logger: logger})
	if err != nil {
		st.Close()
		return nil, err
	}
	root, ok := sess.Root().(*ledger.Session)
	if !ok {
		st.Close()
		return nil, fmt.Errorf("root object is a %s", sess.Root().Type().ID)
	}

	return &cmdContext{
		Config:   cfg,
		Store:    st,
		Session:  sess,
		Ledger:   root,
		Types:    types,
		Registry: reg,
		Plugins:  manifests,
		Logger:   logger,
	}, nil
}

// initContext loads config and opens the book
func initContext(ctx context.Context) *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	level, format := cfg.LogLevel, cfg.LogFormat
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	logger := newLogger(os.Stderr, level, format)

	c, err := openBook(ctx, cfg, logger)
	if err != nil {
		exitStoreError(err)
	}
	return c
}

var rootCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Plugin-extensible bookkeeping on a relational database",
	Long: `ledger keeps accounts, currencies and transactions in SQLite or PostgreSQL.
Plugins can extend the built-in types with extra properties, which are
stored as additional columns of the extended type's table.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text|json)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(currencyCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(txCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(pluginCmd)
	rootCmd.AddCommand(statusCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// exitStoreError reports a store error, separating unreachable databases
// from schema and data problems
func exitStoreError(err error) {
	switch {
	case errors.Is(err, store.ErrConnectivity):
		exitError("cannot reach the database: %v", err)
	case errors.Is(err, store.ErrSchemaMismatch):
		exitError("database schema does not match the installed types: %v", err)
	case errors.Is(err, store.ErrConsistency):
		exitError("database is inconsistent with the in-memory state: %v", err)
	default:
		exitError("%v", err)
	}
}
