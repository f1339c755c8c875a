package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/kilupskalvis/ledgerstore/internal/ledger"
	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance [ACCOUNT]",
	Short: "Show account balances",
	Long: `Show the balance of one account, or of every account when no name is
given. A balance is the start balance plus every entry posted to the account.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runBalance,
}

func runBalance(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext(ctx)
	defer c.Close()

	if len(args) == 1 {
		acc, err := c.Ledger.FindAccount(ctx, args[0])
		if err != nil {
			exitError("%v", err)
		}
		line, err := balanceLine(ctx, c.Ledger, acc)
		if err != nil {
			exitStoreError(err)
		}
		fmt.Printf("%-24s %s\n", acc.AsAccount().Name(), line)
		return
	}

	err := c.Ledger.WalkAccounts(ctx, func(depth int, acc ledger.Accounter) error {
		line, err := balanceLine(ctx, c.Ledger, acc)
		if err != nil {
			return err
		}
		fmt.Printf("%*s%-*s %s\n", depth*2, "", 24-depth*2, acc.AsAccount().Name(), line)
		return nil
	})
	if err != nil {
		exitStoreError(err)
	}
}

func balanceLine(ctx context.Context, s *ledger.Session, acc ledger.Accounter) (string, error) {
	total, err := s.Balance(ctx, acc)
	if err != nil {
		return "", err
	}
	cur, err := s.BalanceCurrency(ctx, acc)
	if err != nil {
		return "", err
	}
	text := fmt.Sprintf("%16s", ledger.FormatAmount(total, cur))
	if total < 0 {
		return color.RedString(text), nil
	}
	return text, nil
}
