package store

import (
	"strings"

	"github.com/kilupskalvis/ledgerstore/internal/models"
)

const (
	// IDColumn is the primary key column of every table
	IDColumn = "_id"
	// TypeColumn holds the most-derived type id on base-most tables
	TypeColumn = "_type"
)

// safeIdent replaces every character outside [A-Za-z0-9_] with '_'
func safeIdent(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, s)
}

// TableName returns the table holding the rows of td
func TableName(td *models.TypeDescriptor) string {
	return safeIdent(td.ID)
}

// ColumnName returns the column of a scalar property. Extension properties
// use their full name so that extensions cannot collide.
func ColumnName(p *models.Property) string {
	if p.IsExtension() {
		return safeIdent(p.FullName())
	}
	return p.Name
}

// ParentColumnName returns the column referencing the owner of list
func ParentColumnName(list *models.Property) string {
	return safeIdent(list.FullName())
}

// TableOf returns the type whose table stores p. Extension properties live
// in the table of the type they extend.
func TableOf(p *models.Property) *models.TypeDescriptor {
	if p.IsExtension() {
		return p.Owner().Base()
	}
	return p.Owner()
}
