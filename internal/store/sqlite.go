package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kilupskalvis/ledgerstore/internal/models"

	_ "modernc.org/sqlite"
)

// sqlitePragmas are appended to every SQLite DSN
const sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// SQLiteDialect targets modernc.org/sqlite
type SQLiteDialect struct{}

func (SQLiteDialect) Name() string { return "sqlite" }

func (SQLiteDialect) Placeholder(int) string { return "?" }

func (SQLiteDialect) ColumnType(t models.ValueType) string {
	switch t {
	case models.TypeInt, models.TypeReference:
		return "INT"
	case models.TypeBool:
		return "BIT"
	case models.TypeChar:
		return "CHAR(1)"
	case models.TypeDate:
		return "DATE"
	}
	return "VARCHAR(255)"
}

// PrimaryKey uses INTEGER PRIMARY KEY so that base tables alias the rowid
func (SQLiteDialect) PrimaryKey(derived bool) string {
	return "INTEGER PRIMARY KEY"
}

// InlineForeignKeys is true: SQLite cannot add a constraint to an existing
// table, but accepts references to tables that do not exist yet.
func (SQLiteDialect) InlineForeignKeys() bool { return true }

func (SQLiteDialect) AddForeignKey(table, column, refTable string) string { return "" }

// Arg stores booleans as 0/1 and dates as ISO strings so that equality
// guards compare the same representation that was written
func (SQLiteDialect) Arg(v models.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Type() {
	case models.TypeInt:
		return v.AsInt()
	case models.TypeText:
		return v.AsText()
	case models.TypeBool:
		if v.AsBool() {
			return int64(1)
		}
		return int64(0)
	case models.TypeChar:
		return string(v.AsChar())
	case models.TypeDate:
		return v.AsDate().Format(dateLayout)
	case models.TypeReference:
		return v.AsRef().RowID()
	}
	return nil
}

func (SQLiteDialect) TableExists(ctx context.Context, q querier, table string) (string, bool, error) {
	var name string
	err := q.QueryRowContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND lower(name) = lower(?)
	`, table).Scan(&name)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

func (SQLiteDialect) Columns(ctx context.Context, q querier, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

func (SQLiteDialect) ForeignKeys(ctx context.Context, q querier, table string) ([]ForeignKey, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, "from", "table", COALESCE("to", '') FROM pragma_foreign_key_list(?)
	`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var id int
		var fk ForeignKey
		if err := rows.Scan(&id, &fk.Column, &fk.RefTable, &fk.RefColumn); err != nil {
			return nil, err
		}
		fk.Name = fmt.Sprintf("%s_fk%d", table, id)
		if fk.RefColumn == "" {
			// REFERENCES without a column targets the primary key
			fk.RefColumn = IDColumn
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

// sqliteDSN appends the engine's pragmas to a file path or DSN
func sqliteDSN(path string) string {
	for i := 0; i < len(path); i++ {
		if path[i] == '?' {
			return path + "&" + sqlitePragmas
		}
	}
	return path + "?" + sqlitePragmas
}
