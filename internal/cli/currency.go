package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var currencyCmd = &cobra.Command{
	Use:   "currency",
	Short: "Manage currencies",
}

var currencyAddCmd = &cobra.Command{
	Use:   "add CODE NAME",
	Short: "Add a currency",
	Long: `Add a currency to the book.

Examples:
  ledger currency add EUR Euro
  ledger currency add JPY "Japanese Yen" --decimals 0
  ledger currency add CHF "Swiss Franc" --default`,
	Args: cobra.ExactArgs(2),
	Run:  runCurrencyAdd,
}

var currencyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List currencies",
	Args:  cobra.NoArgs,
	Run:   runCurrencyList,
}

var (
	currencyDecimals int
	currencyDefault  bool
)

func init() {
	currencyCmd.AddCommand(currencyAddCmd, currencyListCmd)
	currencyAddCmd.Flags().IntVar(&currencyDecimals, "decimals", 2, "Number of minor-unit decimals")
	currencyAddCmd.Flags().BoolVar(&currencyDefault, "default", false, "Make this the default currency")
}

func runCurrencyAdd(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext(ctx)
	defer c.Close()

	cur, err := c.Ledger.AddCurrency(ctx, args[0], args[1], currencyDecimals)
	if err != nil {
		exitStoreError(err)
	}

	def, err := c.Ledger.DefaultCurrency(ctx)
	if err != nil {
		exitStoreError(err)
	}
	if currencyDefault || def == nil {
		if err := c.Ledger.SetDefaultCurrency(ctx, cur); err != nil {
			exitStoreError(err)
		}
	}
	color.New(color.FgGreen).Printf("Added currency %s (%s)\n", cur.Code(), cur.Name())
}

func runCurrencyList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext(ctx)
	defer c.Close()

	currencies, err := c.Ledger.Currencies(ctx)
	if err != nil {
		exitStoreError(err)
	}
	if len(currencies) == 0 {
		fmt.Println("No currencies yet")
		return
	}

	def, err := c.Ledger.DefaultCurrency(ctx)
	if err != nil {
		exitStoreError(err)
	}
	green := color.New(color.FgGreen)
	for _, cur := range currencies {
		line := fmt.Sprintf("%-4s %-24s decimals=%d", cur.Code(), cur.Name(), cur.Decimals())
		if def != nil && def.ID() == cur.ID() {
			green.Printf("* %s\n", line)
		} else {
			fmt.Printf("  %s\n", line)
		}
	}
}
