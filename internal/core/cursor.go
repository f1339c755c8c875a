package core

import (
	"context"
	"fmt"

	"github.com/kilupskalvis/ledgerstore/internal/models"
	"github.com/kilupskalvis/ledgerstore/internal/store"
)

// Cursor iterates the elements of an uncached list over a live result set.
// Each element is materialized as it is reached. Rows whose discriminator
// names a more derived type than the list's element type are read again
// through that type's full chain.
type Cursor struct {
	ctx     context.Context
	session *Session
	stream  *store.RowStream
	list    *models.Property
	owner   models.ObjectKey
	cur     models.Object
	err     error
}

func (c *Cursor) Next() bool {
	if c.err != nil || !c.stream.Next() {
		if c.err == nil {
			c.err = c.stream.Err()
		}
		c.cur = nil
		return false
	}

	obj, err := c.load(c.stream.Row())
	if err != nil {
		c.err = err
		c.cur = nil
		c.stream.Close()
		return false
	}
	c.cur = obj
	return true
}

func (c *Cursor) load(row store.Row) (models.Object, error) {
	s := c.session
	elem := c.list.Target()
	td := elem
	if row.TypeID() != elem.ID {
		actual, ok := s.schema.Lookup(row.TypeID())
		if !ok {
			return nil, fmt.Errorf("%w: type %q of row %d is not provided by any installed plugin", store.ErrNotFound, row.TypeID(), row.ID())
		}
		if !actual.IsA(elem) {
			return nil, fmt.Errorf("%w: row %d in %s is a %s", store.ErrConsistency, row.ID(), c.list.FullName(), actual.ID)
		}
		full, found, err := s.store.SelectByID(c.ctx, s.schema, actual, row.ID())
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: %s row %d vanished during iteration", store.ErrNotFound, actual.ID, row.ID())
		}
		td, row = actual, full
	}
	return s.materialize(row, td, s.NewUncachedKey(td, row.ID()), c.owner)
}

func (c *Cursor) Object() models.Object { return c.cur }

func (c *Cursor) Err() error { return c.err }

// Close releases the cursor's connection. It is safe to call more than once.
func (c *Cursor) Close() error {
	return c.stream.Close()
}
