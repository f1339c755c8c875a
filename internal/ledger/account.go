package ledger

import (
	"context"
	"fmt"

	"github.com/kilupskalvis/ledgerstore/internal/models"
)

// Accounter is implemented by Account and every type derived from it
type Accounter interface {
	models.Object
	AsAccount() *Account
}

// Account is a node of the account tree
type Account struct {
	object
	name        models.Value
	subAccounts models.ListManager
}

func (t *Types) initAccount(a *Account, b *models.Bootstrap) {
	a.object = newObject(t, b)
	a.name = arg(b, "name")
	a.subAccounts = listArg(b, "subAccounts")
}

func (t *Types) buildAccount(b *models.Bootstrap) (models.Object, error) {
	a := &Account{}
	t.initAccount(a, b)
	a.outer = a
	return a, nil
}

func (a *Account) AsAccount() *Account { return a }

func (a *Account) Name() string { return a.name.AsText() }

func (a *Account) SetName(ctx context.Context, name string) error {
	return update(ctx, a.self(), func() { a.name = models.Text(name) })
}

// SubAccounts returns the list manager of the account's children
func (a *Account) SubAccounts() models.ListManager { return a.subAccounts }

// Children returns the direct sub-accounts in creation order
func (a *Account) Children(ctx context.Context) ([]Accounter, error) {
	return accounts(ctx, a.subAccounts)
}

// CapitalAccount holds a balance in one currency
type CapitalAccount struct {
	Account
	abbreviation models.Value
	comment      models.Value
	currency     models.Value
	startBalance models.Value
}

func (t *Types) buildCapitalAccount(b *models.Bootstrap) (models.Object, error) {
	a := &CapitalAccount{}
	t.initAccount(&a.Account, b)
	a.abbreviation = arg(b, "abbreviation")
	a.comment = arg(b, "comment")
	a.currency = arg(b, "currency")
	a.startBalance = intArg(b, "startBalance")
	a.outer = a
	return a, nil
}

func (a *CapitalAccount) Abbreviation() string { return a.abbreviation.AsText() }
func (a *CapitalAccount) Comment() string      { return a.comment.AsText() }
func (a *CapitalAccount) StartBalance() int64  { return a.startBalance.AsInt() }

// Currency resolves the account's currency; nil when unset
func (a *CapitalAccount) Currency(ctx context.Context) (*Currency, error) {
	return currencyOf(ctx, a.currency)
}

func (a *CapitalAccount) SetAbbreviation(ctx context.Context, s string) error {
	return update(ctx, a, func() { a.abbreviation = models.Text(s) })
}

func (a *CapitalAccount) SetComment(ctx context.Context, s string) error {
	return update(ctx, a, func() { a.comment = models.Text(s) })
}

func (a *CapitalAccount) SetCurrency(ctx context.Context, c *Currency) error {
	return update(ctx, a, func() { a.currency = currencyRef(c) })
}

func (a *CapitalAccount) SetStartBalance(ctx context.Context, n int64) error {
	return update(ctx, a, func() { a.startBalance = models.Int(n) })
}

// IncomeExpenseAccount collects income or expenses
type IncomeExpenseAccount struct {
	Account
	multiCurrency models.Value
	currency      models.Value
}

func (t *Types) buildIncomeExpenseAccount(b *models.Bootstrap) (models.Object, error) {
	a := &IncomeExpenseAccount{}
	t.initAccount(&a.Account, b)
	a.multiCurrency = boolArg(b, "multiCurrency")
	a.currency = arg(b, "currency")
	a.outer = a
	return a, nil
}

func (a *IncomeExpenseAccount) MultiCurrency() bool { return a.multiCurrency.AsBool() }

func (a *IncomeExpenseAccount) Currency(ctx context.Context) (*Currency, error) {
	return currencyOf(ctx, a.currency)
}

func (a *IncomeExpenseAccount) SetMultiCurrency(ctx context.Context, v bool) error {
	return update(ctx, a, func() { a.multiCurrency = models.Bool(v) })
}

func (a *IncomeExpenseAccount) SetCurrency(ctx context.Context, c *Currency) error {
	return update(ctx, a, func() { a.currency = currencyRef(c) })
}

// accountCurrency returns the currency of any account kind that has one
func accountCurrency(ctx context.Context, acc Accounter) (*Currency, error) {
	switch a := acc.(type) {
	case *CapitalAccount:
		return a.Currency(ctx)
	case *IncomeExpenseAccount:
		return a.Currency(ctx)
	}
	return nil, nil
}

func currencyOf(ctx context.Context, v models.Value) (*Currency, error) {
	obj, err := resolveRef(ctx, v)
	if err != nil || obj == nil {
		return nil, err
	}
	c, ok := obj.(*Currency)
	if !ok {
		return nil, fmt.Errorf("reference %s is a %s, not a currency", v, obj.Type().ID)
	}
	return c, nil
}

func currencyRef(c *Currency) models.Value {
	if c == nil {
		return models.Null(models.TypeReference)
	}
	return refTo(c)
}

func accounts(ctx context.Context, lm models.ListManager) ([]Accounter, error) {
	it, err := lm.Iterate(ctx)
	if err != nil {
		return nil, err
	}
	objs, err := collect(it)
	if err != nil {
		return nil, err
	}
	out := make([]Accounter, 0, len(objs))
	for _, o := range objs {
		a, ok := o.(Accounter)
		if !ok {
			return nil, fmt.Errorf("%s in account list", o.Type().ID)
		}
		out = append(out, a)
	}
	return out, nil
}
