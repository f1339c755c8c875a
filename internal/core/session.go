// Package core maps persistent objects to and from the store: it owns the
// identity maps of cached types, the keys handed to domain objects, the list
// managers behind list-valued properties and the loading of a session.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kilupskalvis/ledgerstore/internal/models"
	"github.com/kilupskalvis/ledgerstore/internal/store"
)

// Options configures Open
type Options struct {
	Logger *slog.Logger
}

// Session is an open object graph. It is not safe for concurrent use.
type Session struct {
	store   *store.Store
	schema  *store.SchemaContext
	maps    *IdentityMaps
	rootKey *SessionKey
	sync    *store.SyncResult
	logger  *slog.Logger
}

// loaded is a cached object read during Open, waiting to be attached
type loaded struct {
	obj    models.Object
	parent models.ObjectKey
	list   *models.Property
}

// Open synchronises the schema for reg, makes sure the root row exists and
// loads every cached object into memory
func Open(ctx context.Context, st *store.Store, reg *models.Registry, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = st.Logger()
	}

	sc, err := store.NewSchemaContext(reg)
	if err != nil {
		return nil, err
	}
	if err := checkOwnership(sc); err != nil {
		return nil, err
	}

	s := &Session{
		store:  st,
		schema: sc,
		maps:   NewIdentityMaps(),
		logger: logger,
	}
	s.rootKey = &SessionKey{session: s}

	if s.sync, err = st.SyncSchema(ctx, sc); err != nil {
		return nil, err
	}
	if _, err := st.EnsureRoot(ctx, sc); err != nil {
		return nil, err
	}

	for _, td := range reg.Persistent() {
		if td.Base() == nil && td.Cached && td != sc.Root() {
			s.maps.DeclareCached(td)
		}
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// checkOwnership rejects lists of cached elements owned by uncached types:
// their elements live in memory but the owner is re-read on every access
func checkOwnership(sc *store.SchemaContext) error {
	for _, td := range sc.Registry().Persistent() {
		if td == sc.Root() || td.IsCached() {
			continue
		}
		for _, list := range td.Lists() {
			if list.Target().IsCached() {
				return fmt.Errorf("list %s of uncached type %s cannot hold cached type %s",
					list.FullName(), td.ID, list.Target().ID)
			}
		}
	}
	return nil
}

// load reads the root and all cached objects. Keys for every cached row are
// registered before any object is built so that references and parents
// resolve regardless of row order.
func (s *Session) load(ctx context.Context) error {
	type pending struct {
		td  *models.TypeDescriptor
		row store.Row
		key *CachedKey
	}
	var rows []pending

	for _, im := range s.maps.Maps() {
		if err := s.checkStoredTypes(ctx, im.Type()); err != nil {
			return err
		}
		for _, td := range im.Type().Descendants() {
			found, err := s.store.SelectType(ctx, s.schema, td)
			if err != nil {
				return err
			}
			for _, row := range found {
				key := newCachedKey(s, row.ID())
				im.add(key)
				rows = append(rows, pending{td: td, row: row, key: key})
			}
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].row.ID() < rows[j].row.ID() })

	root := s.schema.Root()
	rootRow, ok, err := s.store.SelectByID(ctx, s.schema, root, models.SessionRowID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: root row missing", store.ErrConsistency)
	}
	rootObj, err := s.materialize(rootRow, root, s.rootKey, nil)
	if err != nil {
		return err
	}
	s.rootKey.obj = rootObj

	objs := make([]loaded, 0, len(rows))
	for _, p := range rows {
		parent, list, err := s.deduceParent(p.row, p.td)
		if err != nil {
			return err
		}
		obj, err := s.materialize(p.row, p.td, p.key, parent)
		if err != nil {
			return err
		}
		p.key.bind(obj)
		objs = append(objs, loaded{obj: obj, parent: parent, list: list})
	}

	for _, l := range objs {
		if err := s.attach(ctx, l); err != nil {
			return err
		}
	}

	s.logger.Debug("session loaded", "cached", len(objs))
	return nil
}

// checkStoredTypes fails when base's table holds rows of a type outside its
// registered hierarchy, typically one contributed by a plugin that is no
// longer installed
func (s *Session) checkStoredTypes(ctx context.Context, base *models.TypeDescriptor) error {
	stored, err := s.store.Discriminators(ctx, base)
	if err != nil {
		return err
	}
	for _, typeID := range stored {
		td, ok := s.schema.Lookup(typeID)
		if !ok {
			return fmt.Errorf("%w: %s holds rows of type %q, which is not provided by any installed plugin",
				store.ErrNotFound, store.TableName(base), typeID)
		}
		if td.Extension || !td.IsA(base) {
			return fmt.Errorf("%w: %s holds rows of type %q, which is not a %s",
				store.ErrConsistency, store.TableName(base), typeID, base.ID)
		}
	}
	return nil
}

func (s *Session) attach(ctx context.Context, l loaded) error {
	if l.list == nil {
		// Not reachable from any list; still held by its identity map.
		return nil
	}
	owner, err := l.parent.Resolve(ctx)
	if err != nil {
		return err
	}
	cl, ok := l.list.List(owner).(*CachedList)
	if !ok {
		return fmt.Errorf("list %s of %s is not cached", l.list.FullName(), owner.Type().ID)
	}
	cl.attach(l.obj)
	return nil
}

// Root returns the root session object
func (s *Session) Root() models.Object { return s.rootKey.obj }

// Schema returns the session's schema context
func (s *Session) Schema() *store.SchemaContext { return s.schema }

// Store returns the underlying store
func (s *Session) Store() *store.Store { return s.store }

// Identity returns the session's identity maps
func (s *Session) Identity() *IdentityMaps { return s.maps }

// SyncResult returns what the schema synchronisation did on Open
func (s *Session) SyncResult() *store.SyncResult { return s.sync }

// Lookup returns the object of row id of td or of a type derived from it.
// Cached types are served from memory; uncached types are read.
func (s *Session) Lookup(ctx context.Context, td *models.TypeDescriptor, id int64) (models.Object, error) {
	if td == s.schema.Root() {
		return s.Root(), nil
	}
	if s.maps.LookupMap(td) != nil {
		obj, err := s.maps.Lookup(td, id)
		if err != nil {
			return nil, err
		}
		if !obj.Type().IsA(td) {
			return nil, fmt.Errorf("%w: %s row %d is a %s", store.ErrNotFound, td.ID, id, obj.Type().ID)
		}
		return obj, nil
	}
	return s.NewUncachedKey(td, id).Resolve(ctx)
}
