package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/kilupskalvis/ledgerstore/internal/models"
	"github.com/spf13/cobra"
)

var txShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show transaction details",
	Long: `Show every stored property of a transaction and of each of its entries,
including the properties contributed by plugins.`,
	Args: cobra.ExactArgs(1),
	Run:  runTxShow,
}

func init() {
	txCmd.AddCommand(txShowCmd)
}

func runTxShow(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext(ctx)
	defer c.Close()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		exitError("invalid transaction id %q", args[0])
	}
	tx, err := c.Ledger.FindTransaction(ctx, id)
	if err != nil {
		exitStoreError(err)
	}

	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	yellow.Printf("transaction #%d\n", tx.ID())
	printProperties(tx, "  ")

	entries, err := tx.EntryList(ctx)
	if err != nil {
		exitStoreError(err)
	}
	var total int64
	for _, e := range entries {
		fmt.Println()
		cyan.Printf("  entry #%d", e.ID())
		acc, err := e.Account(ctx)
		if err != nil {
			exitStoreError(err)
		}
		if acc != nil {
			fmt.Printf("  %s", acc.AsAccount().Name())
		}
		fmt.Println()
		printProperties(e, "    ")
		total += e.Amount()
	}

	// Entries of a transfer cancel out
	if total != 0 {
		fmt.Println()
		color.New(color.FgRed).Printf("unbalanced by %d\n", total)
	}
}

func printProperties(obj models.Object, indent string) {
	snap := models.Snapshot(obj)
	for _, name := range snap.Names() {
		v := snap[name]
		if v.IsNull() {
			continue
		}
		fmt.Printf("%s%-44s %s\n", indent, name, v)
	}
}
