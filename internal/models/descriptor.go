package models

// PropertyKind distinguishes scalar from list-valued properties
type PropertyKind int

const (
	KindScalar PropertyKind = iota
	KindList
)

// Property describes one property of a type. Ref names the referenced type
// for references and the element type for lists.
type Property struct {
	Name     string
	Kind     PropertyKind
	Type     ValueType
	Ref      string
	Nullable bool

	// Get reads a scalar property from an object of the owning type.
	// Extension properties are read through Extendable instead.
	Get func(Object) Value
	// List returns the list manager of a list property.
	List func(Object) ListManager

	owner     *TypeDescriptor
	ctorIndex int
}

// Owner returns the type that declares the property
func (p *Property) Owner() *TypeDescriptor { return p.owner }

// FullName returns the fully qualified property name "<type id>.<name>"
func (p *Property) FullName() string { return p.owner.ID + "." + p.Name }

// IsList reports whether the property is list-valued
func (p *Property) IsList() bool { return p.Kind == KindList }

// IsExtension reports whether the property is contributed by an extension
func (p *Property) IsExtension() bool { return p.owner != nil && p.owner.Extension }

// IsReference reports whether the property is a scalar object reference
func (p *Property) IsReference() bool { return p.Kind == KindScalar && p.Type == TypeReference }

// CtorIndex is the property's position among its type's constructor properties
func (p *Property) CtorIndex() int { return p.ctorIndex }

// Target returns the referenced or element type
func (p *Property) Target() *TypeDescriptor {
	if p.owner == nil || p.owner.registry == nil {
		return nil
	}
	td, _ := p.owner.registry.Lookup(p.Ref)
	return td
}

// TypeDescriptor describes one object type. Extension types set Extension
// and name the type they extend in BaseID; their scalar properties are stored
// in that type's table.
type TypeDescriptor struct {
	ID         string
	BaseID     string
	Extension  bool
	Cached     bool
	Properties []*Property
	Build      func(b *Bootstrap) (Object, error)

	registry   *Registry
	base       *TypeDescriptor
	derived    []*TypeDescriptor
	extensions []*TypeDescriptor
	ctorProps  []*Property
}

// Base returns the base type, or the extended type for an extension
func (td *TypeDescriptor) Base() *TypeDescriptor { return td.base }

// Root returns the base-most type of the chain
func (td *TypeDescriptor) Root() *TypeDescriptor {
	t := td
	for t.base != nil {
		t = t.base
	}
	return t
}

// Chain returns the inheritance chain from the base-most type to td
func (td *TypeDescriptor) Chain() []*TypeDescriptor {
	var rev []*TypeDescriptor
	for t := td; t != nil; t = t.base {
		rev = append(rev, t)
	}
	chain := make([]*TypeDescriptor, len(rev))
	for i, t := range rev {
		chain[len(rev)-1-i] = t
	}
	return chain
}

// IsA reports whether td is other or derives from it
func (td *TypeDescriptor) IsA(other *TypeDescriptor) bool {
	for t := td; t != nil; t = t.base {
		if t == other {
			return true
		}
	}
	return false
}

// Derived returns the types directly derived from td
func (td *TypeDescriptor) Derived() []*TypeDescriptor { return td.derived }

// IsDerivable reports whether any type derives from td
func (td *TypeDescriptor) IsDerivable() bool { return len(td.derived) > 0 }

// Descendants returns td and every type derived from it, depth first
func (td *TypeDescriptor) Descendants() []*TypeDescriptor {
	out := []*TypeDescriptor{td}
	for _, d := range td.derived {
		out = append(out, d.Descendants()...)
	}
	return out
}

// Extensions returns the extension types contributing properties to td
func (td *TypeDescriptor) Extensions() []*TypeDescriptor { return td.extensions }

// OwnScalars returns td's own non-extension scalar properties
func (td *TypeDescriptor) OwnScalars() []*Property {
	var out []*Property
	for _, p := range td.Properties {
		if p.Kind == KindScalar {
			out = append(out, p)
		}
	}
	return out
}

// TableScalars returns the scalar properties stored in td's table: its own
// followed by those of its extensions
func (td *TypeDescriptor) TableScalars() []*Property {
	out := td.OwnScalars()
	for _, ext := range td.extensions {
		out = append(out, ext.OwnScalars()...)
	}
	return out
}

// AllScalars returns the table scalars of every type in the chain, base first
func (td *TypeDescriptor) AllScalars() []*Property {
	var out []*Property
	for _, t := range td.Chain() {
		out = append(out, t.TableScalars()...)
	}
	return out
}

// Lists returns td's own list properties
func (td *TypeDescriptor) Lists() []*Property {
	var out []*Property
	for _, p := range td.Properties {
		if p.Kind == KindList {
			out = append(out, p)
		}
	}
	return out
}

// ConstructorProperties returns the canonical constructor ordering
func (td *TypeDescriptor) ConstructorProperties() []*Property { return td.ctorProps }

// Property finds a property by local name along the chain, including extensions
func (td *TypeDescriptor) Property(name string) (*Property, bool) {
	for t := td; t != nil; t = t.base {
		for _, p := range t.Properties {
			if p.Name == name {
				return p, true
			}
		}
	}
	for _, p := range td.AllScalars() {
		if p.FullName() == name {
			return p, true
		}
	}
	return nil, false
}

// IsCached reports whether instances are held in an identity map. The
// decision belongs to the base-most type.
func (td *TypeDescriptor) IsCached() bool { return td.Root().Cached }
