package models

import (
	"fmt"
	"sort"
	"strconv"
	"time"
	"unicode/utf8"
)

// ValueType is the closed set of scalar property types a descriptor can declare
type ValueType int

const (
	TypeInt ValueType = iota + 1
	TypeText
	TypeBool
	TypeChar
	TypeDate
	TypeReference
)

// String returns the manifest name of the value type
func (t ValueType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeText:
		return "text"
	case TypeBool:
		return "bool"
	case TypeChar:
		return "char"
	case TypeDate:
		return "date"
	case TypeReference:
		return "ref"
	}
	return fmt.Sprintf("ValueType(%d)", int(t))
}

// ParseValueType parses a manifest type name
func ParseValueType(s string) (ValueType, error) {
	switch s {
	case "int", "integer", "long":
		return TypeInt, nil
	case "text", "string":
		return TypeText, nil
	case "bool", "boolean":
		return TypeBool, nil
	case "char", "character":
		return TypeChar, nil
	case "date":
		return TypeDate, nil
	case "ref", "reference":
		return TypeReference, nil
	}
	return 0, fmt.Errorf("unknown value type %q", s)
}

// Value is a scalar property value. The zero Value is an untyped null.
type Value struct {
	typ   ValueType
	valid bool
	i     int64
	s     string
	b     bool
	c     rune
	t     time.Time
	ref   ObjectKey
}

// Null returns an absent value of the given type
func Null(t ValueType) Value { return Value{typ: t} }

// Int returns an integer value
func Int(v int64) Value { return Value{typ: TypeInt, valid: true, i: v} }

// Text returns a text value
func Text(v string) Value { return Value{typ: TypeText, valid: true, s: v} }

// Bool returns a boolean value
func Bool(v bool) Value { return Value{typ: TypeBool, valid: true, b: v} }

// Char returns a single-character value
func Char(v rune) Value { return Value{typ: TypeChar, valid: true, c: v} }

// Date returns a date value truncated to midnight UTC
func Date(v time.Time) Value {
	y, m, d := v.Date()
	return Value{typ: TypeDate, valid: true, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Ref returns a reference value. A nil key yields a null reference.
func Ref(key ObjectKey) Value {
	if key == nil {
		return Null(TypeReference)
	}
	return Value{typ: TypeReference, valid: true, ref: key}
}

// Type returns the value's type
func (v Value) Type() ValueType { return v.typ }

// IsNull reports whether the value is absent
func (v Value) IsNull() bool { return !v.valid }

// AsInt returns the integer payload, 0 when null
func (v Value) AsInt() int64 { return v.i }

// AsText returns the text payload, "" when null
func (v Value) AsText() string { return v.s }

// AsBool returns the boolean payload, false when null
func (v Value) AsBool() bool { return v.b }

// AsChar returns the character payload, 0 when null
func (v Value) AsChar() rune { return v.c }

// AsDate returns the date payload, the zero time when null
func (v Value) AsDate() time.Time { return v.t }

// AsRef returns the referenced key, nil when null
func (v Value) AsRef() ObjectKey { return v.ref }

// Equal compares two values. References compare by row id.
func (v Value) Equal(o Value) bool {
	if v.valid != o.valid {
		return false
	}
	if !v.valid {
		return true
	}
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeInt:
		return v.i == o.i
	case TypeText:
		return v.s == o.s
	case TypeBool:
		return v.b == o.b
	case TypeChar:
		return v.c == o.c
	case TypeDate:
		return v.t.Equal(o.t)
	case TypeReference:
		return v.ref.RowID() == o.ref.RowID()
	}
	return false
}

// String renders the value for logs and CLI output
func (v Value) String() string {
	if !v.valid {
		return "<null>"
	}
	switch v.typ {
	case TypeInt:
		return fmt.Sprintf("%d", v.i)
	case TypeText:
		return v.s
	case TypeBool:
		return fmt.Sprintf("%t", v.b)
	case TypeChar:
		return string(v.c)
	case TypeDate:
		return v.t.Format("2006-01-02")
	case TypeReference:
		return fmt.Sprintf("#%d", v.ref.RowID())
	}
	return "<invalid>"
}

// ValueSet holds scalar values keyed by property full name. A missing key is null.
type ValueSet map[string]Value

// Get returns the value for a property, typed null if absent
func (vs ValueSet) Get(p *Property) Value {
	if v, ok := vs[p.FullName()]; ok {
		return v
	}
	return Null(p.Type)
}

// Names returns the property names in sorted order
func (vs ValueSet) Names() []string {
	names := make([]string, 0, len(vs))
	for name := range vs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseValue parses the text form of a non-reference value. An empty string
// is null.
func ParseValue(t ValueType, s string) (Value, error) {
	if s == "" {
		return Null(t), nil
	}
	switch t {
	case TypeInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid int %q", s)
		}
		return Int(n), nil
	case TypeText:
		return Text(s), nil
	case TypeBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Value{}, fmt.Errorf("invalid bool %q", s)
		}
		return Bool(b), nil
	case TypeChar:
		r, size := utf8.DecodeRuneInString(s)
		if size != len(s) {
			return Value{}, fmt.Errorf("invalid char %q", s)
		}
		return Char(r), nil
	case TypeDate:
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return Value{}, fmt.Errorf("invalid date %q", s)
		}
		return Date(d), nil
	}
	return Value{}, fmt.Errorf("cannot parse %s values from text", t)
}
