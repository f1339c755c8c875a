package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/kilupskalvis/ledgerstore/internal/models"
)

// SyncResult reports the DDL a schema synchronisation executed
type SyncResult struct {
	Statements []string
	// Unenforced lists foreign keys that are expected but could not be
	// added to an existing table by the dialect
	Unenforced []string
}

// HasChanges returns true if any DDL was executed
func (r *SyncResult) HasChanges() bool {
	return len(r.Statements) > 0
}

// columnDef is one required column of a table
type columnDef struct {
	name     string
	sqlType  string
	notNull  bool
	refTable string
}

// expectedFK is one foreign key a table must have
type expectedFK struct {
	column   string
	refTable string
}

// SyncSchema makes sure every persistent type has its table, columns and
// foreign keys. Missing tables and columns are created in a first pass and
// foreign keys are checked and added in a second, because they may refer to
// tables created later in the first pass. Existing structures are never
// altered or dropped.
func (s *Store) SyncSchema(ctx context.Context, sc *SchemaContext) (*SyncResult, error) {
	result := &SyncResult{}
	types := sc.Registry().Persistent()

	for _, td := range types {
		if err := s.syncTable(ctx, sc, td, result); err != nil {
			return result, err
		}
	}
	for _, td := range types {
		if err := s.syncForeignKeys(ctx, td, result); err != nil {
			return result, err
		}
	}

	if result.HasChanges() {
		s.logger.Info("schema synchronised", "statements", len(result.Statements))
	}
	return result, nil
}

// requiredColumns lists the columns of td's table in creation order
func requiredColumns(d Dialect, sc *SchemaContext, td *models.TypeDescriptor) []columnDef {
	var cols []columnDef
	if td.Base() == nil {
		cols = append(cols, columnDef{name: TypeColumn, sqlType: d.ColumnType(models.TypeText)})
	}
	for _, list := range sc.ParentColumns(td) {
		cols = append(cols, columnDef{name: ParentColumnName(list), sqlType: d.ColumnType(models.TypeInt)})
	}
	for _, p := range td.TableScalars() {
		def := columnDef{
			name:    ColumnName(p),
			sqlType: d.ColumnType(p.Type),
			notNull: p.Type == models.TypeInt && !p.Nullable,
		}
		if p.IsReference() {
			def.refTable = TableName(p.Target())
		}
		cols = append(cols, def)
	}
	return cols
}

// expectedForeignKeys lists the foreign keys of td's table
func expectedForeignKeys(td *models.TypeDescriptor) []expectedFK {
	var fks []expectedFK
	if td.Base() != nil {
		fks = append(fks, expectedFK{column: IDColumn, refTable: TableName(td.Base())})
	}
	for _, p := range td.TableScalars() {
		if p.IsReference() {
			fks = append(fks, expectedFK{column: ColumnName(p), refTable: TableName(p.Target())})
		}
	}
	return fks
}

func (c columnDef) sql(d Dialect, adding bool) string {
	def := quote(c.name) + " " + c.sqlType
	if c.notNull {
		def += " NOT NULL"
		if adding {
			def += " DEFAULT 0"
		}
	}
	if c.refTable != "" && d.InlineForeignKeys() {
		def += fmt.Sprintf(" REFERENCES %s (%s)", quote(c.refTable), quote(IDColumn))
	}
	return def
}

func (s *Store) syncTable(ctx context.Context, sc *SchemaContext, td *models.TypeDescriptor, result *SyncResult) error {
	table := TableName(td)
	cols := requiredColumns(s.dialect, sc, td)

	actual, exists, err := s.dialect.TableExists(ctx, s.shared, table)
	if err != nil {
		return s.fail("inspect table "+table, "", err)
	}

	if !exists {
		pk := quote(IDColumn) + " " + s.dialect.PrimaryKey(td.Base() != nil)
		if td.Base() != nil && s.dialect.InlineForeignKeys() {
			pk += fmt.Sprintf(" REFERENCES %s (%s)", quote(TableName(td.Base())), quote(IDColumn))
		}
		defs := []string{pk}
		for _, c := range cols {
			defs = append(defs, c.sql(s.dialect, false))
		}
		ddl := fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", quote(table), strings.Join(defs, ",\n\t"))
		return s.ddl(ctx, ddl, result)
	}

	existing, err := s.dialect.Columns(ctx, s.shared, actual)
	if err != nil {
		return s.fail("inspect columns of "+actual, "", err)
	}
	for _, c := range cols {
		if containsFold(existing, c.name) {
			continue
		}
		ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quote(actual), c.sql(s.dialect, true))
		if err := s.ddl(ctx, ddl, result); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) syncForeignKeys(ctx context.Context, td *models.TypeDescriptor, result *SyncResult) error {
	expected := expectedForeignKeys(td)
	if len(expected) == 0 {
		return nil
	}

	table, _, err := s.dialect.TableExists(ctx, s.shared, TableName(td))
	if err != nil {
		return s.fail("inspect table "+TableName(td), "", err)
	}
	existing, err := s.dialect.ForeignKeys(ctx, s.shared, table)
	if err != nil {
		return s.fail("inspect foreign keys of "+table, "", err)
	}

	// Every constraint between the two tables must be one we expect.
	for _, fk := range existing {
		var wanted []expectedFK
		for _, e := range expected {
			if strings.EqualFold(e.refTable, fk.RefTable) {
				wanted = append(wanted, e)
			}
		}
		if len(wanted) == 0 {
			continue
		}
		if !matchesExpected(fk, wanted) {
			return fmt.Errorf("%w: foreign key %s on %s(%s) references %s(%s), expected one of %s",
				ErrSchemaMismatch, fk.Name, table, fk.Column, fk.RefTable, fk.RefColumn, describeFKs(table, wanted))
		}
	}

	for _, e := range expected {
		if hasForeignKey(existing, e) {
			continue
		}
		ddl := s.dialect.AddForeignKey(table, e.column, e.refTable)
		if ddl == "" {
			desc := fmt.Sprintf("%s(%s) -> %s(%s)", table, e.column, e.refTable, IDColumn)
			s.logger.Warn("foreign key cannot be added to existing table", "constraint", desc, "dialect", s.dialect.Name())
			result.Unenforced = append(result.Unenforced, desc)
			continue
		}
		if err := s.ddl(ctx, ddl, result); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ddl(ctx context.Context, ddl string, result *SyncResult) error {
	s.logger.Info("schema change", "sql", ddl)
	if _, err := s.shared.ExecContext(ctx, ddl); err != nil {
		return s.fail("schema sync", ddl, err)
	}
	result.Statements = append(result.Statements, ddl)
	return nil
}

func matchesExpected(fk ForeignKey, wanted []expectedFK) bool {
	if !strings.EqualFold(fk.RefColumn, IDColumn) {
		return false
	}
	for _, e := range wanted {
		if strings.EqualFold(fk.Column, e.column) {
			return true
		}
	}
	return false
}

func hasForeignKey(existing []ForeignKey, e expectedFK) bool {
	for _, fk := range existing {
		if strings.EqualFold(fk.RefTable, e.refTable) && strings.EqualFold(fk.Column, e.column) {
			return true
		}
	}
	return false
}

func describeFKs(table string, fks []expectedFK) string {
	parts := make([]string, len(fks))
	for i, e := range fks {
		parts[i] = fmt.Sprintf("%s(%s) -> %s(%s)", table, e.column, e.refTable, IDColumn)
	}
	return strings.Join(parts, ", ")
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
