package core

import (
	"fmt"
	"sort"

	"github.com/kilupskalvis/ledgerstore/internal/models"
	"github.com/kilupskalvis/ledgerstore/internal/store"
)

// IdentityMap holds the one key per row id of a cached type hierarchy
type IdentityMap struct {
	td   *models.TypeDescriptor
	keys map[int64]*CachedKey
}

// Type returns the type the map was declared for
func (im *IdentityMap) Type() *models.TypeDescriptor { return im.td }

// Len returns the number of registered keys
func (im *IdentityMap) Len() int { return len(im.keys) }

// IDs returns the registered row ids in ascending order
func (im *IdentityMap) IDs() []int64 {
	ids := make([]int64, 0, len(im.keys))
	for id := range im.keys {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (im *IdentityMap) add(key *CachedKey) {
	im.keys[key.id] = key
}

func (im *IdentityMap) remove(id int64) {
	delete(im.keys, id)
}

// IdentityMaps is the per-session registry of identity maps
type IdentityMaps struct {
	maps map[*models.TypeDescriptor]*IdentityMap
}

// NewIdentityMaps creates an empty registry
func NewIdentityMaps() *IdentityMaps {
	return &IdentityMaps{maps: make(map[*models.TypeDescriptor]*IdentityMap)}
}

// DeclareCached registers an empty identity map for td and returns it.
// Instances of types derived from td share it, so when td or one of its
// ancestors already has a map, that map is returned unchanged.
func (m *IdentityMaps) DeclareCached(td *models.TypeDescriptor) *IdentityMap {
	if im := m.LookupMap(td); im != nil {
		return im
	}
	im := &IdentityMap{td: td, keys: make(map[int64]*CachedKey)}
	m.maps[td] = im
	return im
}

// LookupMap returns the identity map of td or of its nearest cached ancestor,
// or nil if the whole chain is uncached
func (m *IdentityMaps) LookupMap(td *models.TypeDescriptor) *IdentityMap {
	for t := td; t != nil; t = t.Base() {
		if im, ok := m.maps[t]; ok {
			return im
		}
	}
	return nil
}

// Lookup returns the in-memory instance of row id
func (m *IdentityMaps) Lookup(td *models.TypeDescriptor, id int64) (models.Object, error) {
	key, err := m.lookupKey(td, id)
	if err != nil {
		return nil, err
	}
	if key.obj == nil {
		return nil, fmt.Errorf("%w: %s row %d is not materialized", store.ErrNotFound, td.ID, id)
	}
	return key.obj, nil
}

func (m *IdentityMaps) lookupKey(td *models.TypeDescriptor, id int64) (*CachedKey, error) {
	im := m.LookupMap(td)
	if im == nil {
		return nil, fmt.Errorf("type %s is not cached", td.ID)
	}
	key, ok := im.keys[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s row %d", store.ErrNotFound, td.ID, id)
	}
	return key, nil
}

// Maps returns every declared identity map
func (m *IdentityMaps) Maps() []*IdentityMap {
	out := make([]*IdentityMap, 0, len(m.maps))
	for _, im := range m.maps {
		out = append(out, im)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].td.ID < out[j].td.ID })
	return out
}
