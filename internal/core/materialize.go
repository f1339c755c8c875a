package core

import (
	"fmt"

	"github.com/kilupskalvis/ledgerstore/internal/models"
	"github.com/kilupskalvis/ledgerstore/internal/store"
)

// materialize builds the object of type td from a chain row. When parent is
// nil it is deduced from the row's parent columns; the root has no parent.
func (s *Session) materialize(row store.Row, td *models.TypeDescriptor, key models.ObjectKey, parent models.ObjectKey) (models.Object, error) {
	if parent == nil && td != s.schema.Root() {
		var err error
		if parent, _, err = s.deduceParent(row, td); err != nil {
			return nil, err
		}
	}

	boot := &models.Bootstrap{
		Type:       td,
		Key:        key,
		Parent:     parent,
		Extensions: make(models.ValueSet),
		Args:       make([]models.Arg, len(td.ConstructorProperties())),
	}
	for _, p := range td.ConstructorProperties() {
		if p.IsList() {
			boot.Args[p.CtorIndex()].List = s.newList(key, p)
			continue
		}
		v, err := s.readScalar(row, p)
		if err != nil {
			return nil, err
		}
		boot.Args[p.CtorIndex()].Value = v
	}
	for _, p := range td.AllScalars() {
		if !p.IsExtension() {
			continue
		}
		v, err := s.readScalar(row, p)
		if err != nil {
			return nil, err
		}
		boot.Extensions[p.FullName()] = v
	}

	obj, err := td.Build(boot)
	if err != nil {
		return nil, fmt.Errorf("build %s row %d: %w", td.ID, key.RowID(), err)
	}
	return obj, nil
}

// construct builds a new, not yet inserted object from initial values
func (s *Session) construct(td *models.TypeDescriptor, key models.ObjectKey, parent models.ObjectKey, initial models.ValueSet) (models.Object, error) {
	boot := &models.Bootstrap{
		Type:       td,
		Key:        key,
		Parent:     parent,
		Extensions: make(models.ValueSet),
		Args:       make([]models.Arg, len(td.ConstructorProperties())),
	}
	for _, p := range td.ConstructorProperties() {
		if p.IsList() {
			boot.Args[p.CtorIndex()].List = s.newList(key, p)
			continue
		}
		boot.Args[p.CtorIndex()].Value = initial.Get(p)
	}
	for _, p := range td.AllScalars() {
		if p.IsExtension() {
			boot.Extensions[p.FullName()] = initial.Get(p)
		}
	}
	obj, err := td.Build(boot)
	if err != nil {
		return nil, fmt.Errorf("build new %s: %w", td.ID, err)
	}
	return obj, nil
}

// readScalar decodes p from the row, turning reference ids into keys
func (s *Session) readScalar(row store.Row, p *models.Property) (models.Value, error) {
	v, err := row.Value(p)
	if err != nil {
		return models.Value{}, err
	}
	if !p.IsReference() {
		return v, nil
	}
	if v.IsNull() {
		return models.Null(models.TypeReference), nil
	}
	key, err := s.keyFor(p.Target(), v.AsInt())
	if err != nil {
		return models.Value{}, fmt.Errorf("resolve %s: %w", p.FullName(), err)
	}
	return models.Ref(key), nil
}

// keyFor returns the key of row id of td: the identity-map key for cached
// types, a fresh uncached key otherwise
func (s *Session) keyFor(td *models.TypeDescriptor, id int64) (models.ObjectKey, error) {
	if td == s.schema.Root() {
		return s.rootKey, nil
	}
	if s.maps.LookupMap(td) != nil {
		return s.maps.lookupKey(td, id)
	}
	return s.NewUncachedKey(td, id), nil
}

// deduceParent finds the owner of a row by walking td's chain from the most
// derived type toward the base and taking the first non-null parent column.
// A row with none belongs to the root. The list the row is a member of is
// returned alongside when it can be determined.
func (s *Session) deduceParent(row store.Row, td *models.TypeDescriptor) (models.ObjectKey, *models.Property, error) {
	for t := td; t != nil; t = t.Base() {
		for _, list := range s.schema.ParentColumns(t) {
			id, ok := row.ParentID(s.schema, list)
			if !ok {
				continue
			}
			key, err := s.keyFor(list.Owner(), id)
			if err != nil {
				return nil, nil, fmt.Errorf("parent of %s row %d: %w", td.ID, row.ID(), err)
			}
			return key, list, nil
		}
	}
	return s.rootKey, s.rootList(td), nil
}

// rootList returns the root's list that can hold objects of td
func (s *Session) rootList(td *models.TypeDescriptor) *models.Property {
	for t := td; t != nil; t = t.Base() {
		for _, list := range s.schema.Root().Lists() {
			if list.Target() == t {
				return list
			}
		}
	}
	return nil
}

func (s *Session) newList(owner models.ObjectKey, list *models.Property) models.ListManager {
	if list.Target().IsCached() {
		return &CachedList{session: s, owner: owner, list: list}
	}
	return &UncachedList{session: s, owner: owner, list: list}
}
