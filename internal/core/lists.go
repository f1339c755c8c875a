package core

import (
	"context"
	"fmt"

	"github.com/kilupskalvis/ledgerstore/internal/models"
	"github.com/kilupskalvis/ledgerstore/internal/store"
)

// CachedList holds the elements of a list of cached objects in memory. The
// elements are attached while the session loads; afterwards the list is
// authoritative and reads never touch the database.
type CachedList struct {
	session *Session
	owner   models.ObjectKey
	list    *models.Property
	elems   []models.Object
}

func (l *CachedList) attach(obj models.Object) {
	l.elems = append(l.elems, obj)
}

func (l *CachedList) Size(ctx context.Context) (int, error) {
	return len(l.elems), nil
}

func (l *CachedList) Iterate(ctx context.Context) (models.Iterator, error) {
	snapshot := make([]models.Object, len(l.elems))
	copy(snapshot, l.elems)
	return &sliceIterator{elems: snapshot, pos: -1}, nil
}

// CreateElement constructs the element with an unset key, appends it, then
// inserts it and registers the generated id in the identity map
func (l *CachedList) CreateElement(ctx context.Context, td *models.TypeDescriptor, initial models.ValueSet) (models.Object, error) {
	s := l.session
	if err := checkElementType(l.list, td); err != nil {
		return nil, err
	}
	im := s.maps.LookupMap(td)
	if im == nil {
		return nil, fmt.Errorf("type %s is not cached", td.ID)
	}

	key := newCachedKey(s, models.UnsetRowID)
	obj, err := s.construct(td, key, l.owner, initial)
	if err != nil {
		return nil, err
	}
	key.bind(obj)
	l.elems = append(l.elems, obj)

	id, err := s.store.Insert(ctx, s.schema, td, models.Snapshot(obj), l.list, l.owner.RowID())
	if err != nil {
		l.elems = l.elems[:len(l.elems)-1]
		return nil, err
	}
	key.id = id
	im.add(key)
	s.logger.Debug("created element", "list", l.list.FullName(), "type", td.ID, "id", id)
	return obj, nil
}

// Remove drops the element from memory, deletes its rows and forgets its key
func (l *CachedList) Remove(ctx context.Context, obj models.Object) (bool, error) {
	idx := -1
	for i, e := range l.elems {
		if e == obj {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	s := l.session
	id := obj.Key().RowID()
	l.elems = append(l.elems[:idx], l.elems[idx+1:]...)
	ok, err := s.store.Delete(ctx, s.schema, obj.Type(), id)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("%w: %s row %d held in memory but missing from the database", store.ErrConsistency, obj.Type().ID, id)
	}
	if im := s.maps.LookupMap(obj.Type()); im != nil {
		im.remove(id)
	}
	return true, nil
}

// UncachedList reads its elements from the database on every access
type UncachedList struct {
	session *Session
	owner   models.ObjectKey
	list    *models.Property
}

func (l *UncachedList) Size(ctx context.Context) (int, error) {
	return l.session.store.CountChildren(ctx, l.session.schema, l.list, l.owner.RowID())
}

// Iterate opens a live cursor; the caller must Close it
func (l *UncachedList) Iterate(ctx context.Context) (models.Iterator, error) {
	s := l.session
	stream, err := s.store.StreamChildren(ctx, s.schema, l.list, l.owner.RowID())
	if err != nil {
		return nil, err
	}
	return &Cursor{ctx: ctx, session: s, stream: stream, list: l.list, owner: l.owner}, nil
}

func (l *UncachedList) CreateElement(ctx context.Context, td *models.TypeDescriptor, initial models.ValueSet) (models.Object, error) {
	s := l.session
	if err := checkElementType(l.list, td); err != nil {
		return nil, err
	}

	key := s.NewUncachedKey(td, models.UnsetRowID)
	obj, err := s.construct(td, key, l.owner, initial)
	if err != nil {
		return nil, err
	}
	id, err := s.store.Insert(ctx, s.schema, td, models.Snapshot(obj), l.list, l.owner.RowID())
	if err != nil {
		return nil, err
	}
	key.id = id
	s.logger.Debug("created element", "list", l.list.FullName(), "type", td.ID, "id", id)
	return obj, nil
}

// Remove deletes the element's rows by id
func (l *UncachedList) Remove(ctx context.Context, obj models.Object) (bool, error) {
	s := l.session
	return s.store.Delete(ctx, s.schema, obj.Type(), obj.Key().RowID())
}

func checkElementType(list *models.Property, td *models.TypeDescriptor) error {
	if td.Extension || !td.IsA(list.Target()) {
		return fmt.Errorf("%s cannot hold objects of type %s", list.FullName(), td.ID)
	}
	return nil
}

type sliceIterator struct {
	elems []models.Object
	pos   int
}

func (it *sliceIterator) Next() bool {
	if it.pos+1 >= len(it.elems) {
		it.pos = len(it.elems)
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Object() models.Object {
	if it.pos < 0 || it.pos >= len(it.elems) {
		return nil
	}
	return it.elems[it.pos]
}

func (it *sliceIterator) Err() error   { return nil }
func (it *sliceIterator) Close() error { return nil }
