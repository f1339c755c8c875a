package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/kilupskalvis/ledgerstore/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new ledger book",
	Long: `Initialize a new ledger book in the current directory.
This creates a .ledger directory holding the configuration, the plugins
directory and, for SQLite, the database file. The schema is created
immediately.`,
	Run: runInit,
}

var (
	initDriver string
	initDSN    string
)

func init() {
	initCmd.Flags().StringVar(&initDriver, "driver", config.DriverSQLite, "Database driver (sqlite|postgres)")
	initCmd.Flags().StringVar(&initDSN, "dsn", "", "Data source name (default: .ledger/ledger.db for sqlite)")
}

func runInit(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	// Check if already initialized
	if _, err := config.FindRoot(); err == nil {
		exitError("ledger book already exists")
	}

	cwd, err := os.Getwd()
	if err != nil {
		exitError("%v", err)
	}

	cfg, err := config.Initialize(cwd, initDriver, initDSN)
	if err != nil {
		exitError("failed to initialize config: %v", err)
	}

	c, err := openBook(ctx, cfg, newLogger(os.Stderr, logLevel, logFormat))
	if err != nil {
		os.RemoveAll(cfg.LedgerPath())
		exitStoreError(err)
	}
	defer c.Close()

	result := c.Session.SyncResult()
	fmt.Printf("Initialized ledger book in %s/\n", config.LedgerDir)
	fmt.Printf("Driver: %s\n", cfg.Driver)
	color.New(color.FgGreen).Printf("Created schema (%d statements)\n", len(result.Statements))
}
