package store

import (
	"fmt"

	"github.com/kilupskalvis/ledgerstore/internal/models"
)

// SchemaContext is the per-session view of the registry the engine works
// from: it seals the registry once and records, for every persistent type,
// the list properties that can own its instances.
type SchemaContext struct {
	registry *models.Registry
	root     *models.TypeDescriptor
	parents  map[*models.TypeDescriptor][]*models.Property
}

// NewSchemaContext seals reg and computes the parent-column sets
func NewSchemaContext(reg *models.Registry) (*SchemaContext, error) {
	if err := reg.Seal(); err != nil {
		return nil, fmt.Errorf("invalid type registry: %w", err)
	}

	sc := &SchemaContext{
		registry: reg,
		root:     reg.Root(),
		parents:  make(map[*models.TypeDescriptor][]*models.Property),
	}
	if sc.root.Base() != nil || sc.root.IsDerivable() {
		return nil, fmt.Errorf("root type %q cannot take part in inheritance", sc.root.ID)
	}

	// owners maps each type to every list that can hold one of its rows:
	// lists of the type itself, of its ancestors and of its descendants.
	owners := make(map[*models.TypeDescriptor][]*models.Property)
	columns := make(map[*models.TypeDescriptor][]*models.Property)
	for _, td := range reg.Persistent() {
		for _, list := range td.Lists() {
			elem := list.Target()
			columns[elem] = append(columns[elem], list)
			for _, t := range relatedTypes(elem) {
				owners[t] = append(owners[t], list)
			}
		}
	}
	for elem, lists := range columns {
		// A type whose only possible owner is the root needs no parent column.
		if len(owners[elem]) == 1 && lists[0].Owner() == sc.root {
			continue
		}
		sc.parents[elem] = lists
	}
	return sc, nil
}

// relatedTypes returns td's chain followed by the types derived from it
func relatedTypes(td *models.TypeDescriptor) []*models.TypeDescriptor {
	out := td.Chain()
	return append(out, td.Descendants()[1:]...)
}

// Registry returns the sealed registry
func (sc *SchemaContext) Registry() *models.Registry { return sc.registry }

// Root returns the root session type
func (sc *SchemaContext) Root() *models.TypeDescriptor { return sc.root }

// Lookup finds a type by id
func (sc *SchemaContext) Lookup(id string) (*models.TypeDescriptor, bool) {
	return sc.registry.Lookup(id)
}

// ParentColumns returns the list properties whose parent column lives in
// td's own table
func (sc *SchemaContext) ParentColumns(td *models.TypeDescriptor) []*models.Property {
	return sc.parents[td]
}

// ParentColumnFor returns the table and column that record membership in
// list. ok is false when the column is omitted because the root is the
// only possible owner.
func (sc *SchemaContext) ParentColumnFor(list *models.Property) (table *models.TypeDescriptor, column string, ok bool) {
	elem := list.Target()
	for _, p := range sc.parents[elem] {
		if p == list {
			return elem, ParentColumnName(list), true
		}
	}
	return nil, "", false
}
