// Package ledger is the built-in bookkeeping domain: commodities and
// currencies, a tree of accounts, and transactions made of entries.
package ledger

import (
	"context"
	"fmt"

	"github.com/kilupskalvis/ledgerstore/internal/models"
)

// object is the state shared by every ledger type
type object struct {
	types  *Types
	key    models.ObjectKey
	parent models.ObjectKey
	td     *models.TypeDescriptor
	ext    models.ValueSet
	// outer is the most-derived object this state belongs to; updates
	// snapshot it so every table of the chain is considered
	outer models.Object
}

func newObject(t *Types, b *models.Bootstrap) object {
	ext := make(models.ValueSet, len(b.Extensions))
	for k, v := range b.Extensions {
		ext[k] = v
	}
	return object{types: t, key: b.Key, parent: b.Parent, td: b.Type, ext: ext}
}

func (o *object) self() models.Object { return o.outer }

func (o *object) Key() models.ObjectKey       { return o.key }
func (o *object) ParentKey() models.ObjectKey { return o.parent }
func (o *object) Type() *models.TypeDescriptor { return o.td }

// ID returns the object's row id
func (o *object) ID() int64 { return o.key.RowID() }

func (o *object) Extension(fullName string) models.Value {
	if v, ok := o.ext[fullName]; ok {
		return v
	}
	if p, ok := o.td.Property(fullName); ok {
		return models.Null(p.Type)
	}
	return models.Value{}
}

func (o *object) SetExtension(fullName string, v models.Value) {
	o.ext[fullName] = v
}

// update snapshots obj, applies mutate and writes what changed
func update(ctx context.Context, obj models.Object, mutate func()) error {
	old := models.Snapshot(obj)
	mutate()
	return obj.Key().PushUpdate(ctx, obj.Type(), old, models.Snapshot(obj))
}

// SetExtension changes an extension property of obj and persists it
func SetExtension(ctx context.Context, obj models.Object, fullName string, v models.Value) error {
	ext, ok := obj.(models.Extendable)
	if !ok {
		return fmt.Errorf("%s does not carry extension properties", obj.Type().ID)
	}
	p, ok := obj.Type().Property(fullName)
	if !ok || !p.IsExtension() {
		return fmt.Errorf("%s has no extension property %q", obj.Type().ID, fullName)
	}
	if !v.IsNull() && v.Type() != p.Type {
		return fmt.Errorf("%s expects %s, got %s", fullName, p.Type, v.Type())
	}
	return update(ctx, obj, func() { ext.SetExtension(fullName, v) })
}

func arg(b *models.Bootstrap, name string) models.Value {
	p, ok := b.Type.Property(name)
	if !ok || p.IsExtension() {
		return models.Value{}
	}
	return b.Value(p)
}

func listArg(b *models.Bootstrap, name string) models.ListManager {
	p, ok := b.Type.Property(name)
	if !ok {
		return nil
	}
	return b.List(p)
}

// intArg reads a non-nullable integer, defaulting to zero
func intArg(b *models.Bootstrap, name string) models.Value {
	v := arg(b, name)
	if v.IsNull() {
		return models.Int(0)
	}
	return v
}

func boolArg(b *models.Bootstrap, name string) models.Value {
	v := arg(b, name)
	if v.IsNull() {
		return models.Bool(false)
	}
	return v
}

func resolveRef(ctx context.Context, v models.Value) (models.Object, error) {
	if v.IsNull() {
		return nil, nil
	}
	return v.AsRef().Resolve(ctx)
}

func refTo(obj models.Object) models.Value {
	if obj == nil {
		return models.Null(models.TypeReference)
	}
	return models.Ref(obj.Key())
}

// collect drains an iterator and closes it
func collect(it models.Iterator) ([]models.Object, error) {
	defer it.Close()
	var out []models.Object
	for it.Next() {
		out = append(out, it.Object())
	}
	return out, it.Err()
}
