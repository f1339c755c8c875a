package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/kilupskalvis/ledgerstore/internal/ledger"
	"github.com/kilupskalvis/ledgerstore/internal/models"
	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage the account tree",
}

var accountAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add an account",
	Long: `Add a capital account, or an income/expense account with --income.

Examples:
  ledger account add Assets
  ledger account add Checking --parent Assets --currency EUR --start 1500.00
  ledger account add Groceries --income`,
	Args: cobra.ExactArgs(1),
	Run:  runAccountAdd,
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the account tree",
	Args:  cobra.NoArgs,
	Run:   runAccountList,
}

var accountRenameCmd = &cobra.Command{
	Use:   "rename OLD NEW",
	Short: "Rename an account",
	Args:  cobra.ExactArgs(2),
	Run:   runAccountRename,
}

var accountShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show every property of an account, including plugin properties",
	Args:  cobra.ExactArgs(1),
	Run:   runAccountShow,
}

var accountSetCmd = &cobra.Command{
	Use:   "set NAME PROPERTY VALUE",
	Short: "Set a plugin-contributed property of an account",
	Long: `Set a property contributed by a plugin extension. PROPERTY is the full
name <extension id>.<property>. References take the row id of the target.
An empty VALUE clears the property.

Examples:
  ledger account set Checking bank.AccountExtension.iban DE89370400440532013000`,
	Args: cobra.ExactArgs(3),
	Run:  runAccountSet,
}

var (
	accountParent   string
	accountCurrency string
	accountIncome   bool
	accountMulti    bool
	accountStart    string
	accountAbbrev   string
	accountComment  string
)

func init() {
	accountCmd.AddCommand(accountAddCmd, accountListCmd, accountRenameCmd, accountShowCmd, accountSetCmd)

	f := accountAddCmd.Flags()
	f.StringVar(&accountParent, "parent", "", "Parent account name")
	f.StringVar(&accountCurrency, "currency", "", "Currency code (default: book default)")
	f.BoolVar(&accountIncome, "income", false, "Create an income/expense account")
	f.BoolVar(&accountMulti, "multi-currency", false, "Allow entries in several currencies (income/expense only)")
	f.StringVar(&accountStart, "start", "0", "Start balance (capital accounts only)")
	f.StringVar(&accountAbbrev, "abbrev", "", "Abbreviation (capital accounts only)")
	f.StringVar(&accountComment, "comment", "", "Comment (capital accounts only)")
}

func runAccountAdd(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext(ctx)
	defer c.Close()

	var parent ledger.Accounter
	if accountParent != "" {
		p, err := c.Ledger.FindAccount(ctx, accountParent)
		if err != nil {
			exitError("%v", err)
		}
		parent = p
	}

	var cur *ledger.Currency
	var err error
	if accountCurrency != "" {
		cur, err = c.Ledger.FindCurrency(ctx, accountCurrency)
	} else {
		cur, err = c.Ledger.DefaultCurrency(ctx)
	}
	if err != nil {
		exitError("%v", err)
	}

	start, err := ledger.ParseAmount(accountStart, cur)
	if err != nil {
		exitError("%v", err)
	}

	acc, err := c.Ledger.AddAccount(ctx, parent, ledger.AccountValues{
		Name:          args[0],
		Currency:      cur,
		Abbreviation:  accountAbbrev,
		Comment:       accountComment,
		StartBalance:  start,
		Income:        accountIncome,
		MultiCurrency: accountMulti,
	})
	if err != nil {
		exitStoreError(err)
	}
	color.New(color.FgGreen).Printf("Added account %s (#%d)\n", acc.AsAccount().Name(), acc.Key().RowID())
}

func runAccountList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext(ctx)
	defer c.Close()

	count := 0
	cyan := color.New(color.FgCyan)
	err := c.Ledger.WalkAccounts(ctx, func(depth int, a ledger.Accounter) error {
		count++
		fmt.Printf("%s%s ", strings.Repeat("  ", depth), a.AsAccount().Name())
		kind := "capital"
		if _, ok := a.(*ledger.IncomeExpenseAccount); ok {
			kind = "income/expense"
		}
		cyan.Printf("[%s #%d]\n", kind, a.Key().RowID())
		return nil
	})
	if err != nil {
		exitStoreError(err)
	}
	if count == 0 {
		fmt.Println("No accounts yet")
	}
}

func runAccountRename(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext(ctx)
	defer c.Close()

	acc, err := c.Ledger.FindAccount(ctx, args[0])
	if err != nil {
		exitError("%v", err)
	}
	if _, err := c.Ledger.FindAccount(ctx, args[1]); err == nil {
		exitError("account %q already exists", args[1])
	}
	if err := acc.AsAccount().SetName(ctx, args[1]); err != nil {
		exitStoreError(err)
	}
	fmt.Printf("Renamed account '%s' to '%s'\n", args[0], args[1])
}

func runAccountShow(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext(ctx)
	defer c.Close()

	acc, err := c.Ledger.FindAccount(ctx, args[0])
	if err != nil {
		exitError("%v", err)
	}

	yellow := color.New(color.FgYellow)
	yellow.Printf("account #%d (%s)\n", acc.Key().RowID(), acc.Type().ID)
	snap := models.Snapshot(acc)
	for _, name := range snap.Names() {
		fmt.Printf("  %-48s %s\n", name, snap[name])
	}
}

func runAccountSet(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext(ctx)
	defer c.Close()

	acc, err := c.Ledger.FindAccount(ctx, args[0])
	if err != nil {
		exitError("%v", err)
	}
	p, ok := acc.Type().Property(args[1])
	if !ok || !p.IsExtension() {
		exitError("%s has no plugin property %q", acc.Type().ID, args[1])
	}

	var v models.Value
	if p.IsReference() {
		v = models.Null(models.TypeReference)
		if args[2] != "" {
			id, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				exitError("reference must be a row id: %v", err)
			}
			target, err := c.Session.Lookup(ctx, p.Target(), id)
			if err != nil {
				exitStoreError(err)
			}
			v = models.Ref(target.Key())
		}
	} else if v, err = models.ParseValue(p.Type, args[2]); err != nil {
		exitError("%v", err)
	}

	if err := ledger.SetExtension(ctx, acc, p.FullName(), v); err != nil {
		exitStoreError(err)
	}
	fmt.Printf("Set %s of '%s' to %s\n", p.FullName(), args[0], v)
}
