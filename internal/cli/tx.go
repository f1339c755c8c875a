package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/kilupskalvis/ledgerstore/internal/ledger"
	"github.com/spf13/cobra"
)

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Book, list and delete transactions",
}

var txAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Book a transfer between two accounts",
	Long: `Book a transaction with two entries: the amount leaves --from and
arrives at --to. Amounts are given in major units of the source account's
currency.

Examples:
  ledger tx add --from Checking --to Groceries --amount 42.80
  ledger tx add --from Salary --to Checking --amount 3100 --date 2024-05-31 --memo "May"`,
	Args: cobra.NoArgs,
	Run:  runTxAdd,
}

var txListCmd = &cobra.Command{
	Use:   "list",
	Short: "List transactions with their entries",
	Args:  cobra.NoArgs,
	Run:   runTxList,
}

var txDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a transaction and its entries",
	Args:  cobra.ExactArgs(1),
	Run:   runTxDelete,
}

var (
	txFrom   string
	txTo     string
	txAmount string
	txDate   string
	txMemo   string
)

func init() {
	txCmd.AddCommand(txAddCmd, txListCmd, txDeleteCmd)

	f := txAddCmd.Flags()
	f.StringVar(&txFrom, "from", "", "Source account")
	f.StringVar(&txTo, "to", "", "Destination account")
	f.StringVar(&txAmount, "amount", "", "Amount")
	f.StringVar(&txDate, "date", "", "Booking date YYYY-MM-DD (default: today)")
	f.StringVar(&txMemo, "memo", "", "Memo for both entries")
	txAddCmd.MarkFlagRequired("from")
	txAddCmd.MarkFlagRequired("to")
	txAddCmd.MarkFlagRequired("amount")
}

func runTxAdd(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext(ctx)
	defer c.Close()

	from, err := c.Ledger.FindAccount(ctx, txFrom)
	if err != nil {
		exitError("%v", err)
	}
	to, err := c.Ledger.FindAccount(ctx, txTo)
	if err != nil {
		exitError("%v", err)
	}

	date := time.Now()
	if txDate != "" {
		if date, err = time.Parse("2006-01-02", txDate); err != nil {
			exitError("invalid date %q, expected YYYY-MM-DD", txDate)
		}
	}

	cur, err := c.Ledger.BalanceCurrency(ctx, from)
	if err != nil {
		exitStoreError(err)
	}
	amount, err := ledger.ParseAmount(txAmount, cur)
	if err != nil {
		exitError("%v", err)
	}

	tx, err := c.Ledger.Transfer(ctx, date, from, to, amount, txMemo)
	if err != nil {
		exitStoreError(err)
	}
	color.New(color.FgGreen).Printf("Booked transaction #%d: %s from %s to %s\n",
		tx.ID(), ledger.FormatAmount(amount, cur), from.AsAccount().Name(), to.AsAccount().Name())
}

func runTxList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext(ctx)
	defer c.Close()

	yellow := color.New(color.FgYellow)
	count := 0
	err := c.Ledger.EachTransaction(ctx, func(tx *ledger.Transaction) error {
		count++
		yellow.Printf("transaction #%d", tx.ID())
		if !tx.Date().IsZero() {
			fmt.Printf("  %s", tx.Date().Format("2006-01-02"))
		}
		fmt.Println()

		// Entries are streamed while the transaction cursor is still open.
		entries, err := tx.EntryList(ctx)
		if err != nil {
			return err
		}
		for _, e := range entries {
			name := "<none>"
			acc, err := e.Account(ctx)
			if err != nil {
				return err
			}
			var cur *ledger.Currency
			if acc != nil {
				name = acc.AsAccount().Name()
				if cur, err = c.Ledger.BalanceCurrency(ctx, acc); err != nil {
					return err
				}
			}
			fmt.Printf("    %-24s %16s  %s\n", name, ledger.FormatAmount(e.Amount(), cur), e.Memo())
		}
		return nil
	})
	if err != nil {
		exitStoreError(err)
	}
	if count == 0 {
		fmt.Println("No transactions yet")
	}
}

func runTxDelete(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext(ctx)
	defer c.Close()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		exitError("invalid transaction id %q", args[0])
	}
	if err := c.Ledger.DeleteTransaction(ctx, id); err != nil {
		exitStoreError(err)
	}
	fmt.Printf("Deleted transaction #%d\n", id)
}
