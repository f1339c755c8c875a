// Package models defines the type-descriptor contract and the capability
// interfaces shared between the persistence engine and the domain types:
// object keys, list managers, iterators and the closed scalar value union.
package models

import "context"

const (
	// UnsetRowID marks a key whose object has not been inserted yet
	UnsetRowID int64 = -1
	// SessionRowID is the fixed row id of the root session object
	SessionRowID int64 = 0
)

// ObjectKey stands in for a persistent object without necessarily holding it.
//
// Keys of cached types are unique per (type, row id) and always resolve to the
// same instance. Keys of uncached types carry no such guarantee: two keys for
// the same row may exist, and each Resolve may return a new instance.
type ObjectKey interface {
	Resolve(ctx context.Context) (Object, error)
	RowID() int64
	// PushUpdate writes the scalar properties that differ between old and new
	// for every table in td's chain.
	PushUpdate(ctx context.Context, td *TypeDescriptor, old, new ValueSet) error
}

// Object is a materialized persistent object
type Object interface {
	Key() ObjectKey
	ParentKey() ObjectKey
	Type() *TypeDescriptor
}

// Extendable objects carry values for properties contributed by extensions
type Extendable interface {
	Extension(fullName string) Value
	SetExtension(fullName string, v Value)
}

// Iterator walks the elements of a list. It is forward-only; Close releases
// any resources it holds and is safe to call more than once.
type Iterator interface {
	Next() bool
	Object() Object
	Err() error
	Close() error
}

// ListManager manages the elements of one list-valued property of one owner
type ListManager interface {
	Size(ctx context.Context) (int, error)
	Iterate(ctx context.Context) (Iterator, error)
	// CreateElement builds, inserts and returns a new element of type td
	// initialised from initial (missing values are null).
	CreateElement(ctx context.Context, td *TypeDescriptor, initial ValueSet) (Object, error)
	// Remove deletes the element. It reports false if it was not present.
	Remove(ctx context.Context, obj Object) (bool, error)
}

// Arg is one constructor argument: a scalar value or a list manager
type Arg struct {
	Value Value
	List  ListManager
}

// Bootstrap carries everything a descriptor's Build function needs. Args is
// indexed by Property.CtorIndex over the type's constructor properties.
type Bootstrap struct {
	Type       *TypeDescriptor
	Key        ObjectKey
	Extensions ValueSet
	Parent     ObjectKey
	Args       []Arg
}

// Value returns the scalar argument for p
func (b *Bootstrap) Value(p *Property) Value {
	return b.Args[p.ctorIndex].Value
}

// List returns the list-manager argument for p
func (b *Bootstrap) List(p *Property) ListManager {
	return b.Args[p.ctorIndex].List
}

// Snapshot reads every scalar property of obj, including extension
// properties, into a ValueSet
func Snapshot(obj Object) ValueSet {
	vs := make(ValueSet)
	ext, _ := obj.(Extendable)
	for _, p := range obj.Type().AllScalars() {
		if p.IsExtension() {
			if ext != nil {
				vs[p.FullName()] = ext.Extension(p.FullName())
			}
			continue
		}
		vs[p.FullName()] = p.Get(obj)
	}
	return vs
}
