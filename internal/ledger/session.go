package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kilupskalvis/ledgerstore/internal/models"
)

// ErrUnknown is returned when a named currency, account or transaction does
// not exist
var ErrUnknown = errors.New("unknown")

// Session is the root of the ledger object graph
type Session struct {
	object
	defaultCurrency models.Value
	commodities     models.ListManager
	accounts        models.ListManager
	transactions    models.ListManager
}

func (t *Types) buildSession(b *models.Bootstrap) (models.Object, error) {
	s := &Session{}
	s.object = newObject(t, b)
	s.defaultCurrency = arg(b, "defaultCurrency")
	s.commodities = listArg(b, "commodities")
	s.accounts = listArg(b, "accounts")
	s.transactions = listArg(b, "transactions")
	s.outer = s
	return s, nil
}

// Types returns the descriptors the session was built from
func (s *Session) Types() *Types { return s.types }

func (s *Session) Commodities() models.ListManager  { return s.commodities }
func (s *Session) Accounts() models.ListManager     { return s.accounts }
func (s *Session) Transactions() models.ListManager { return s.transactions }

// DefaultCurrency resolves the default currency; nil when unset
func (s *Session) DefaultCurrency(ctx context.Context) (*Currency, error) {
	return currencyOf(ctx, s.defaultCurrency)
}

func (s *Session) SetDefaultCurrency(ctx context.Context, c *Currency) error {
	return update(ctx, s, func() { s.defaultCurrency = currencyRef(c) })
}

// AddCurrency creates a currency in the session's commodities
func (s *Session) AddCurrency(ctx context.Context, code, name string, decimals int) (*Currency, error) {
	if _, err := s.FindCurrency(ctx, code); err == nil {
		return nil, fmt.Errorf("currency %s already exists", code)
	}
	vals := s.values(s.types.Currency, map[string]models.Value{
		"code":     models.Text(code),
		"name":     models.Text(name),
		"decimals": models.Int(int64(decimals)),
	})
	obj, err := s.commodities.CreateElement(ctx, s.types.Currency, vals)
	if err != nil {
		return nil, err
	}
	return obj.(*Currency), nil
}

// Currencies returns every currency in creation order
func (s *Session) Currencies(ctx context.Context) ([]*Currency, error) {
	it, err := s.commodities.Iterate(ctx)
	if err != nil {
		return nil, err
	}
	objs, err := collect(it)
	if err != nil {
		return nil, err
	}
	var out []*Currency
	for _, o := range objs {
		if c, ok := o.(*Currency); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// FindCurrency finds a currency by code, case-insensitively
func (s *Session) FindCurrency(ctx context.Context, code string) (*Currency, error) {
	all, err := s.Currencies(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if strings.EqualFold(c.Code(), code) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w currency %q", ErrUnknown, code)
}

// AccountValues describes a new account
type AccountValues struct {
	Name         string
	Currency     *Currency
	Abbreviation string
	Comment      string
	StartBalance int64
	// Income creates an income/expense account instead of a capital account
	Income        bool
	MultiCurrency bool
}

// AddAccount creates an account under parent, or at the top level when
// parent is nil
func (s *Session) AddAccount(ctx context.Context, parent Accounter, av AccountValues) (Accounter, error) {
	if av.Name == "" {
		return nil, fmt.Errorf("account name is required")
	}
	if _, err := s.FindAccount(ctx, av.Name); err == nil {
		return nil, fmt.Errorf("account %q already exists", av.Name)
	}

	lm := s.accounts
	if parent != nil {
		lm = parent.AsAccount().subAccounts
	}

	td := s.types.CapitalAccount
	fields := map[string]models.Value{
		"name":     models.Text(av.Name),
		"currency": currencyRef(av.Currency),
	}
	if av.Income {
		td = s.types.IncomeExpenseAccount
		fields["multiCurrency"] = models.Bool(av.MultiCurrency)
	} else {
		fields["startBalance"] = models.Int(av.StartBalance)
		if av.Abbreviation != "" {
			fields["abbreviation"] = models.Text(av.Abbreviation)
		}
		if av.Comment != "" {
			fields["comment"] = models.Text(av.Comment)
		}
	}

	obj, err := lm.CreateElement(ctx, td, s.values(td, fields))
	if err != nil {
		return nil, err
	}
	return obj.(Accounter), nil
}

// TopAccounts returns the top-level accounts in creation order
func (s *Session) TopAccounts(ctx context.Context) ([]Accounter, error) {
	return accounts(ctx, s.accounts)
}

// WalkAccounts visits the account tree depth first
func (s *Session) WalkAccounts(ctx context.Context, fn func(depth int, a Accounter) error) error {
	var walk func(depth int, list []Accounter) error
	walk = func(depth int, list []Accounter) error {
		for _, a := range list {
			if err := fn(depth, a); err != nil {
				return err
			}
			children, err := a.AsAccount().Children(ctx)
			if err != nil {
				return err
			}
			if err := walk(depth+1, children); err != nil {
				return err
			}
		}
		return nil
	}
	top, err := s.TopAccounts(ctx)
	if err != nil {
		return err
	}
	return walk(0, top)
}

var errStop = errors.New("stop")

// FindAccount finds an account anywhere in the tree by name, case-insensitively
func (s *Session) FindAccount(ctx context.Context, name string) (Accounter, error) {
	var found Accounter
	err := s.WalkAccounts(ctx, func(_ int, a Accounter) error {
		if strings.EqualFold(a.AsAccount().Name(), name) {
			found = a
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w account %q", ErrUnknown, name)
	}
	return found, nil
}

// Transfer books amount from one account to another as a new transaction
// with two entries
func (s *Session) Transfer(ctx context.Context, date time.Time, from, to Accounter, amount int64, memo string) (*Transaction, error) {
	tx, err := s.AddTransaction(ctx, date)
	if err != nil {
		return nil, err
	}
	creation := time.Now().Unix()
	if _, err := tx.AddEntry(ctx, EntryValues{Account: from, Amount: -amount, Memo: memo, Valuta: date, Creation: creation}); err != nil {
		return nil, err
	}
	if _, err := tx.AddEntry(ctx, EntryValues{Account: to, Amount: amount, Memo: memo, Valuta: date, Creation: creation}); err != nil {
		return nil, err
	}
	return tx, nil
}

// AddTransaction creates an empty transaction
func (s *Session) AddTransaction(ctx context.Context, date time.Time) (*Transaction, error) {
	vals := models.ValueSet{}
	if !date.IsZero() {
		vals = s.values(s.types.Transaction, map[string]models.Value{"date": models.Date(date)})
	}
	obj, err := s.transactions.CreateElement(ctx, s.types.Transaction, vals)
	if err != nil {
		return nil, err
	}
	return obj.(*Transaction), nil
}

// EachTransaction streams every transaction to fn. The cursor stays open
// while fn runs.
func (s *Session) EachTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	it, err := s.transactions.Iterate(ctx)
	if err != nil {
		return err
	}
	defer it.Close()
	for it.Next() {
		tx, ok := it.Object().(*Transaction)
		if !ok {
			return fmt.Errorf("%s in transaction list", it.Object().Type().ID)
		}
		if err := fn(tx); err != nil {
			return err
		}
	}
	return it.Err()
}

// FindTransaction finds a transaction by row id
func (s *Session) FindTransaction(ctx context.Context, id int64) (*Transaction, error) {
	var found *Transaction
	err := s.EachTransaction(ctx, func(tx *Transaction) error {
		if tx.ID() == id {
			found = tx
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w transaction %d", ErrUnknown, id)
	}
	return found, nil
}

// DeleteTransaction removes a transaction together with its entries
func (s *Session) DeleteTransaction(ctx context.Context, id int64) error {
	tx, err := s.FindTransaction(ctx, id)
	if err != nil {
		return err
	}
	entries, err := tx.EntryList(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := tx.entries.Remove(ctx, e); err != nil {
			return err
		}
	}
	ok, err := s.transactions.Remove(ctx, tx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w transaction %d", ErrUnknown, id)
	}
	return nil
}

// Balance sums the start balance of acc and the amounts of every entry
// posted to it. Entries are read through a cursor per transaction while the
// transaction cursor is still open.
func (s *Session) Balance(ctx context.Context, acc Accounter) (int64, error) {
	var total int64
	if ca, ok := acc.(*CapitalAccount); ok {
		total = ca.StartBalance()
	}
	id := acc.Key().RowID()

	err := s.EachTransaction(ctx, func(tx *Transaction) error {
		it, err := tx.entries.Iterate(ctx)
		if err != nil {
			return err
		}
		defer it.Close()
		for it.Next() {
			e, ok := it.Object().(*Entry)
			if !ok {
				continue
			}
			if aid, ok := e.AccountID(); ok && aid == id {
				total += e.Amount()
			}
		}
		return it.Err()
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// FormatAmount renders an amount in minor units with the currency's decimals
func FormatAmount(amount int64, c *Currency) string {
	if c == nil {
		return fmt.Sprintf("%d", amount)
	}
	if c.Decimals() <= 0 {
		return fmt.Sprintf("%d %s", amount, c.Code())
	}
	sign := ""
	if amount < 0 {
		sign, amount = "-", -amount
	}
	div := int64(1)
	for i := 0; i < c.Decimals(); i++ {
		div *= 10
	}
	return fmt.Sprintf("%s%d.%0*d %s", sign, amount/div, c.Decimals(), amount%div, c.Code())
}

// BalanceCurrency returns the currency balances of acc are denominated in,
// falling back to the session default
func (s *Session) BalanceCurrency(ctx context.Context, acc Accounter) (*Currency, error) {
	c, err := accountCurrency(ctx, acc)
	if err != nil || c != nil {
		return c, err
	}
	return s.DefaultCurrency(ctx)
}

// values keys plain property names of td by full name
func (s *Session) values(td *models.TypeDescriptor, fields map[string]models.Value) models.ValueSet {
	vals := make(models.ValueSet, len(fields))
	for name, v := range fields {
		if p, ok := td.Property(name); ok {
			vals[p.FullName()] = v
		}
	}
	return vals
}

// ParseAmount parses a decimal amount into minor units of c
func ParseAmount(s string, c *Currency) (int64, error) {
	decimals := 0
	if c != nil {
		decimals = c.Decimals()
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || (hasFrac && frac == "") || len(frac) > decimals {
		return 0, fmt.Errorf("invalid amount %q for %d decimals", s, decimals)
	}
	frac += strings.Repeat("0", decimals-len(frac))
	n, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if neg {
		n = -n
	}
	return n, nil
}
