package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/kilupskalvis/ledgerstore/internal/ledger"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the book's database and contents",
	Long: `Show where the book is stored, which plugins are installed and how many
currencies, accounts and transactions it holds. Foreign keys the database
could not enforce are listed as warnings.`,
	Args: cobra.NoArgs,
	Run:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext(ctx)
	defer c.Close()

	cyan := color.New(color.FgCyan)
	cyan.Printf("Book:      %s\n", c.Config.LedgerPath())
	fmt.Printf("Driver:    %s\n", c.Config.Driver)
	fmt.Printf("Types:     %d tables, %d plugins\n", len(c.Registry.Persistent()), len(c.Plugins))

	currencies, err := c.Ledger.Currencies(ctx)
	if err != nil {
		exitStoreError(err)
	}
	accounts := 0
	if err := c.Ledger.WalkAccounts(ctx, func(int, ledger.Accounter) error {
		accounts++
		return nil
	}); err != nil {
		exitStoreError(err)
	}
	txs, err := c.Ledger.Transactions().Size(ctx)
	if err != nil {
		exitStoreError(err)
	}

	fmt.Println()
	fmt.Printf("%d currencies, %d accounts, %d transactions\n", len(currencies), accounts, txs)
	if def, err := c.Ledger.DefaultCurrency(ctx); err == nil && def != nil {
		fmt.Printf("Default currency: %s\n", def.Code())
	}

	if unenforced := c.Session.SyncResult().Unenforced; len(unenforced) > 0 {
		fmt.Println()
		yellow := color.New(color.FgYellow)
		for _, fk := range unenforced {
			yellow.Printf("warning: foreign key not enforced: %s\n", fk)
		}
	}
}
