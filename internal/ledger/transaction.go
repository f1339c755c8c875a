package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/kilupskalvis/ledgerstore/internal/models"
)

// Transaction groups the entries of one booking
type Transaction struct {
	object
	date    models.Value
	entries models.ListManager
}

func (t *Types) buildTransaction(b *models.Bootstrap) (models.Object, error) {
	tx := &Transaction{}
	tx.object = newObject(t, b)
	tx.date = arg(b, "date")
	tx.entries = listArg(b, "entries")
	tx.outer = tx
	return tx, nil
}

// Date returns the booking date; zero when unset
func (tx *Transaction) Date() time.Time { return tx.date.AsDate() }

func (tx *Transaction) SetDate(ctx context.Context, d time.Time) error {
	return update(ctx, tx, func() { tx.date = models.Date(d) })
}

// Entries returns the list manager of the transaction's entries
func (tx *Transaction) Entries() models.ListManager { return tx.entries }

// EntryValues describes a new entry
type EntryValues struct {
	Account     Accounter
	Amount      int64
	Check       string
	Description string
	Memo        string
	Valuta      time.Time
	Creation    int64
}

// AddEntry books a new entry into the transaction
func (tx *Transaction) AddEntry(ctx context.Context, ev EntryValues) (*Entry, error) {
	vals := models.ValueSet{}
	set := func(name string, v models.Value) {
		p, _ := tx.types.Entry.Property(name)
		vals[p.FullName()] = v
	}
	if ev.Account != nil {
		set("account", refTo(ev.Account))
	}
	set("amount", models.Int(ev.Amount))
	set("creation", models.Int(ev.Creation))
	if ev.Check != "" {
		set("check", models.Text(ev.Check))
	}
	if ev.Description != "" {
		set("description", models.Text(ev.Description))
	}
	if ev.Memo != "" {
		set("memo", models.Text(ev.Memo))
	}
	if !ev.Valuta.IsZero() {
		set("valuta", models.Date(ev.Valuta))
	}

	obj, err := tx.entries.CreateElement(ctx, tx.types.Entry, vals)
	if err != nil {
		return nil, err
	}
	return obj.(*Entry), nil
}

// EntryList reads every entry of the transaction
func (tx *Transaction) EntryList(ctx context.Context) ([]*Entry, error) {
	it, err := tx.entries.Iterate(ctx)
	if err != nil {
		return nil, err
	}
	objs, err := collect(it)
	if err != nil {
		return nil, err
	}
	out := make([]*Entry, 0, len(objs))
	for _, o := range objs {
		e, ok := o.(*Entry)
		if !ok {
			return nil, fmt.Errorf("%s in entry list", o.Type().ID)
		}
		out = append(out, e)
	}
	return out, nil
}

// Entry is one leg of a transaction posted to an account
type Entry struct {
	object
	check       models.Value
	description models.Value
	memo        models.Value
	account     models.Value
	amount      models.Value
	creation    models.Value
	valuta      models.Value
}

func (t *Types) buildEntry(b *models.Bootstrap) (models.Object, error) {
	e := &Entry{}
	e.object = newObject(t, b)
	e.check = arg(b, "check")
	e.description = arg(b, "description")
	e.memo = arg(b, "memo")
	e.account = arg(b, "account")
	e.amount = intArg(b, "amount")
	e.creation = intArg(b, "creation")
	e.valuta = arg(b, "valuta")
	e.outer = e
	return e, nil
}

func (e *Entry) Check() string       { return e.check.AsText() }
func (e *Entry) Description() string { return e.description.AsText() }
func (e *Entry) Memo() string        { return e.memo.AsText() }
func (e *Entry) Amount() int64       { return e.amount.AsInt() }
func (e *Entry) Creation() int64     { return e.creation.AsInt() }
func (e *Entry) Valuta() time.Time   { return e.valuta.AsDate() }

// AccountID returns the row id of the posted account, or false when unset
func (e *Entry) AccountID() (int64, bool) {
	if e.account.IsNull() {
		return 0, false
	}
	return e.account.AsRef().RowID(), true
}

// Account resolves the posted account; nil when unset
func (e *Entry) Account(ctx context.Context) (Accounter, error) {
	obj, err := resolveRef(ctx, e.account)
	if err != nil || obj == nil {
		return nil, err
	}
	a, ok := obj.(Accounter)
	if !ok {
		return nil, fmt.Errorf("entry %d posts to a %s", e.ID(), obj.Type().ID)
	}
	return a, nil
}

func (e *Entry) SetAccount(ctx context.Context, a Accounter) error {
	return update(ctx, e, func() {
		if a == nil {
			e.account = models.Null(models.TypeReference)
			return
		}
		e.account = refTo(a)
	})
}

func (e *Entry) SetAmount(ctx context.Context, n int64) error {
	return update(ctx, e, func() { e.amount = models.Int(n) })
}

func (e *Entry) SetMemo(ctx context.Context, s string) error {
	return update(ctx, e, func() { e.memo = models.Text(s) })
}

func (e *Entry) SetCheck(ctx context.Context, s string) error {
	return update(ctx, e, func() { e.check = models.Text(s) })
}

func (e *Entry) SetDescription(ctx context.Context, s string) error {
	return update(ctx, e, func() { e.description = models.Text(s) })
}

func (e *Entry) SetValuta(ctx context.Context, d time.Time) error {
	return update(ctx, e, func() { e.valuta = models.Date(d) })
}
