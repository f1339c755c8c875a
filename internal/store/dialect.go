package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kilupskalvis/ledgerstore/internal/models"
)

// querier is satisfied by *sql.DB and *sql.Conn
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ForeignKey is one single-column foreign key found in the database
type ForeignKey struct {
	Name      string
	Column    string
	RefTable  string
	RefColumn string
}

// Dialect hides the differences between the supported SQL databases
type Dialect interface {
	Name() string
	// Placeholder returns the bind marker for the n-th argument (1-based)
	Placeholder(n int) string
	ColumnType(t models.ValueType) string
	// PrimaryKey returns the column definition of _id. Derived tables do
	// not generate ids.
	PrimaryKey(derived bool) string
	// InlineForeignKeys reports whether foreign keys must be declared in
	// CREATE TABLE / ADD COLUMN because they cannot be added afterwards.
	InlineForeignKeys() bool
	// AddForeignKey returns the DDL adding a foreign key, or "" if the
	// dialect cannot alter constraints of an existing table.
	AddForeignKey(table, column, refTable string) string
	// Arg converts a value to a driver argument
	Arg(v models.Value) any

	TableExists(ctx context.Context, q querier, table string) (string, bool, error)
	Columns(ctx context.Context, q querier, table string) ([]string, error)
	ForeignKeys(ctx context.Context, q querier, table string) ([]ForeignKey, error)
}

// quote quotes an identifier; both supported dialects use ANSI quoting
func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// sqlBuilder assembles a statement and its arguments with dialect placeholders
type sqlBuilder struct {
	d    Dialect
	sb   strings.Builder
	args []any
}

func newBuilder(d Dialect) *sqlBuilder {
	return &sqlBuilder{d: d}
}

func (b *sqlBuilder) write(parts ...string) *sqlBuilder {
	for _, p := range parts {
		b.sb.WriteString(p)
	}
	return b
}

func (b *sqlBuilder) arg(v any) *sqlBuilder {
	b.args = append(b.args, v)
	b.sb.WriteString(b.d.Placeholder(len(b.args)))
	return b
}

func (b *sqlBuilder) String() string { return b.sb.String() }

// scanStrings collects the first column of every row
func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DialectFor returns the dialect of a database/sql driver name
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return SQLiteDialect{}, nil
	case "postgres", "pgx":
		return PostgresDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}
