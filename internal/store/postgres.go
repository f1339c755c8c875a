package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kilupskalvis/ledgerstore/internal/models"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresDialect targets PostgreSQL through the pgx database/sql driver
type PostgresDialect struct{}

func (PostgresDialect) Name() string { return "postgres" }

func (PostgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (PostgresDialect) ColumnType(t models.ValueType) string {
	switch t {
	case models.TypeInt, models.TypeReference:
		return "BIGINT"
	case models.TypeBool:
		return "BOOLEAN"
	case models.TypeChar:
		return "CHAR(1)"
	case models.TypeDate:
		return "DATE"
	}
	return "VARCHAR(255)"
}

func (PostgresDialect) PrimaryKey(derived bool) string {
	if derived {
		return "BIGINT PRIMARY KEY"
	}
	return "BIGSERIAL PRIMARY KEY"
}

func (PostgresDialect) InlineForeignKeys() bool { return false }

func (PostgresDialect) AddForeignKey(table, column, refTable string) string {
	name := safeIdent(fmt.Sprintf("fk_%s_%s", table, column))
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		quote(table), quote(name), quote(column), quote(refTable), quote(IDColumn))
}

func (PostgresDialect) Arg(v models.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Type() {
	case models.TypeInt:
		return v.AsInt()
	case models.TypeText:
		return v.AsText()
	case models.TypeBool:
		return v.AsBool()
	case models.TypeChar:
		return string(v.AsChar())
	case models.TypeDate:
		return v.AsDate()
	case models.TypeReference:
		return v.AsRef().RowID()
	}
	return nil
}

func (PostgresDialect) TableExists(ctx context.Context, q querier, table string) (string, bool, error) {
	var name string
	err := q.QueryRowContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND lower(table_name) = lower($1)
	`, table).Scan(&name)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

func (PostgresDialect) Columns(ctx context.Context, q querier, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
	`, table)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

func (PostgresDialect) ForeignKeys(ctx context.Context, q querier, table string) ([]ForeignKey, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT tc.constraint_name, kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = current_schema() AND tc.table_name = $1
	`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.Name, &fk.Column, &fk.RefTable, &fk.RefColumn); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}
