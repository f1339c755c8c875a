package models

import (
	"fmt"
	"strings"
)

// Registry collects the type descriptors contributed by the built-in domain
// and by plugins. It must be sealed before use.
type Registry struct {
	types  map[string]*TypeDescriptor
	order  []*TypeDescriptor
	rootID string
	sealed bool
}

// NewRegistry creates an empty registry whose root (session) type is rootID
func NewRegistry(rootID string) *Registry {
	return &Registry{
		types:  make(map[string]*TypeDescriptor),
		rootID: rootID,
	}
}

// Register adds a descriptor. Bases may be registered later, up to Seal.
func (r *Registry) Register(td *TypeDescriptor) error {
	if r.sealed {
		return fmt.Errorf("registry is sealed, cannot register %q", td.ID)
	}
	if td.ID == "" {
		return fmt.Errorf("type descriptor has no id")
	}
	if _, exists := r.types[td.ID]; exists {
		return fmt.Errorf("type %q already registered", td.ID)
	}
	td.registry = r
	r.types[td.ID] = td
	r.order = append(r.order, td)
	return nil
}

// Lookup finds a descriptor by id
func (r *Registry) Lookup(id string) (*TypeDescriptor, bool) {
	td, ok := r.types[id]
	return td, ok
}

// Types returns all descriptors in registration order
func (r *Registry) Types() []*TypeDescriptor { return r.order }

// Persistent returns the non-extension descriptors in registration order
func (r *Registry) Persistent() []*TypeDescriptor {
	var out []*TypeDescriptor
	for _, td := range r.order {
		if !td.Extension {
			out = append(out, td)
		}
	}
	return out
}

// Root returns the root (session) type
func (r *Registry) Root() *TypeDescriptor { return r.types[r.rootID] }

// Sealed reports whether Seal has completed
func (r *Registry) Sealed() bool { return r.sealed }

// Seal resolves base and extension links, validates every descriptor and
// computes constructor orderings. It is idempotent.
func (r *Registry) Seal() error {
	if r.sealed {
		return nil
	}
	if _, ok := r.types[r.rootID]; !ok {
		return fmt.Errorf("root type %q not registered", r.rootID)
	}

	for _, td := range r.order {
		td.base, td.derived, td.extensions = nil, nil, nil
	}

	for _, td := range r.order {
		if td.BaseID == "" {
			if td.Extension {
				return fmt.Errorf("extension %q does not name the type it extends", td.ID)
			}
			continue
		}
		base, ok := r.types[td.BaseID]
		if !ok {
			return fmt.Errorf("type %q: base type %q not registered", td.ID, td.BaseID)
		}
		if base.Extension {
			return fmt.Errorf("type %q: base type %q is an extension", td.ID, td.BaseID)
		}
		td.base = base
		if td.Extension {
			base.extensions = append(base.extensions, td)
		} else {
			base.derived = append(base.derived, td)
		}
	}

	for _, td := range r.order {
		if err := r.validate(td); err != nil {
			return err
		}
	}

	for _, td := range r.order {
		if td.Extension {
			continue
		}
		td.ctorProps = nil
		for _, t := range td.Chain() {
			td.ctorProps = append(td.ctorProps, t.Properties...)
		}
	}
	// Indexes are per declaring type; derived types share their base's prefix.
	for _, td := range r.order {
		if td.Extension {
			continue
		}
		offset := 0
		if td.base != nil {
			offset = len(td.base.ctorProps)
		}
		for i, p := range td.Properties {
			p.ctorIndex = offset + i
		}
	}

	r.sealed = true
	return nil
}

func (r *Registry) validate(td *TypeDescriptor) error {
	seen := make(map[string]bool)
	for t := td.base; t != nil && !td.Extension; t = t.base {
		for _, p := range t.Properties {
			seen[p.Name] = true
		}
	}
	for _, p := range td.Properties {
		p.owner = td
		if p.Name == "" || strings.HasPrefix(p.Name, "_") {
			return fmt.Errorf("type %q: invalid property name %q", td.ID, p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("type %q: duplicate property %q", td.ID, p.Name)
		}
		seen[p.Name] = true

		switch p.Kind {
		case KindList:
			if td.Extension {
				return fmt.Errorf("extension %q: list property %q not supported", td.ID, p.Name)
			}
			elem, ok := r.types[p.Ref]
			if !ok || elem.Extension {
				return fmt.Errorf("type %q: list %q has unknown element type %q", td.ID, p.Name, p.Ref)
			}
			if p.List == nil {
				return fmt.Errorf("type %q: list %q has no accessor", td.ID, p.Name)
			}
		case KindScalar:
			if p.Type < TypeInt || p.Type > TypeReference {
				return fmt.Errorf("type %q: property %q has invalid value type", td.ID, p.Name)
			}
			if p.Type == TypeReference {
				target, ok := r.types[p.Ref]
				if !ok || target.Extension {
					return fmt.Errorf("type %q: reference %q has unknown target type %q", td.ID, p.Name, p.Ref)
				}
			}
			if !td.Extension && p.Get == nil {
				return fmt.Errorf("type %q: property %q has no getter", td.ID, p.Name)
			}
		}
	}
	if !td.Extension && td.Build == nil {
		return fmt.Errorf("type %q has no constructor", td.ID)
	}
	return nil
}
