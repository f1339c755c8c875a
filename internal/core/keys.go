package core

import (
	"context"
	"fmt"

	"github.com/kilupskalvis/ledgerstore/internal/models"
	"github.com/kilupskalvis/ledgerstore/internal/store"
)

// CachedKey is the key of an object of a cached type. It is created before
// its object (the object's constructor needs the key) and bound afterwards.
type CachedKey struct {
	session *Session
	id      int64
	obj     models.Object
}

func newCachedKey(s *Session, id int64) *CachedKey {
	return &CachedKey{session: s, id: id}
}

func (k *CachedKey) bind(obj models.Object) { k.obj = obj }

// Resolve returns the bound object without I/O
func (k *CachedKey) Resolve(ctx context.Context) (models.Object, error) {
	if k.obj == nil {
		return nil, fmt.Errorf("%w: key for row %d has no object", store.ErrNotFound, k.id)
	}
	return k.obj, nil
}

func (k *CachedKey) RowID() int64 { return k.id }

func (k *CachedKey) PushUpdate(ctx context.Context, td *models.TypeDescriptor, old, new models.ValueSet) error {
	return k.session.pushUpdate(ctx, td, k.id, old, new)
}

// UncachedKey is the key of an object of an uncached type. It holds no
// object: every Resolve reads the row again and may return a new instance,
// so two resolutions of the same key are not guaranteed to be identical.
type UncachedKey struct {
	session *Session
	td      *models.TypeDescriptor
	id      int64
}

// NewUncachedKey creates a key for row id of td or a type derived from it
func (s *Session) NewUncachedKey(td *models.TypeDescriptor, id int64) *UncachedKey {
	return &UncachedKey{session: s, td: td, id: id}
}

// Resolve reads the row, follows the discriminator to the most-derived type
// and materializes a fresh instance
func (k *UncachedKey) Resolve(ctx context.Context) (models.Object, error) {
	return k.session.resolveUncached(ctx, k)
}

func (k *UncachedKey) RowID() int64 { return k.id }

func (k *UncachedKey) PushUpdate(ctx context.Context, td *models.TypeDescriptor, old, new models.ValueSet) error {
	return k.session.pushUpdate(ctx, td, k.id, old, new)
}

// SessionKey is the key of the root object; its row id is always 0
type SessionKey struct {
	session *Session
	obj     models.Object
}

func (k *SessionKey) Resolve(ctx context.Context) (models.Object, error) {
	if k.obj == nil {
		return nil, fmt.Errorf("%w: session not loaded", store.ErrNotFound)
	}
	return k.obj, nil
}

func (k *SessionKey) RowID() int64 { return models.SessionRowID }

func (k *SessionKey) PushUpdate(ctx context.Context, td *models.TypeDescriptor, old, new models.ValueSet) error {
	return k.session.pushUpdate(ctx, td, models.SessionRowID, old, new)
}

func (s *Session) pushUpdate(ctx context.Context, td *models.TypeDescriptor, id int64, old, new models.ValueSet) error {
	if id == models.UnsetRowID {
		return fmt.Errorf("%w: update of %s before insert", store.ErrConsistency, td.ID)
	}
	return s.store.Update(ctx, s.schema, td, id, old, new)
}

func (s *Session) resolveUncached(ctx context.Context, k *UncachedKey) (models.Object, error) {
	if k.id == models.UnsetRowID {
		return nil, fmt.Errorf("%w: %s has not been inserted", store.ErrNotFound, k.td.ID)
	}

	actual := k.td
	if k.td.Root().IsDerivable() {
		typeID, ok, err := s.store.TypeOf(ctx, k.td.Root(), k.id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s row %d", store.ErrNotFound, k.td.ID, k.id)
		}
		if actual, ok = s.schema.Lookup(typeID); !ok {
			return nil, fmt.Errorf("%w: type %q of row %d is not provided by any installed plugin", store.ErrNotFound, typeID, k.id)
		}
		if !actual.IsA(k.td) {
			return nil, fmt.Errorf("%w: row %d is a %s, not a %s", store.ErrConsistency, k.id, actual.ID, k.td.ID)
		}
	}

	row, ok, err := s.store.SelectByID(ctx, s.schema, actual, k.id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s row %d", store.ErrNotFound, actual.ID, k.id)
	}
	return s.materialize(row, actual, k, nil)
}
