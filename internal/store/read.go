package store

import (
	"context"
	"fmt"

	"github.com/kilupskalvis/ledgerstore/internal/models"
)

// SelectByID reads the row of td's chain with the given id
func (s *Store) SelectByID(ctx context.Context, sc *SchemaContext, td *models.TypeDescriptor, id int64) (Row, bool, error) {
	sel := selectChain(sc, td)
	b := newBuilder(s.dialect).write(sel.sql, " WHERE ", quote(sel.root), ".", quote(IDColumn), " = ").arg(id)
	rows, err := s.queryAll(ctx, "select "+td.ID, sel, b)
	if err != nil {
		return Row{}, false, err
	}
	if len(rows) == 0 {
		return Row{}, false, nil
	}
	return rows[0], true, nil
}

// SelectType reads every row whose most-derived type is exactly td
func (s *Store) SelectType(ctx context.Context, sc *SchemaContext, td *models.TypeDescriptor) ([]Row, error) {
	sel := selectChain(sc, td)
	b := newBuilder(s.dialect).
		write(sel.sql, " WHERE ", quote(sel.root), ".", quote(TypeColumn), " = ").arg(td.ID).
		write(" ORDER BY ", quote(sel.root), ".", quote(IDColumn))
	return s.queryAll(ctx, "load "+td.ID, sel, b)
}

// TypeOf reads the discriminator of a row in root's table
func (s *Store) TypeOf(ctx context.Context, root *models.TypeDescriptor, id int64) (string, bool, error) {
	table := TableName(root)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		quote(TypeColumn), quote(table), quote(IDColumn), s.dialect.Placeholder(1))
	s.logger.Debug("query", "op", "discriminator", "sql", query)

	rows, err := s.shared.QueryContext(ctx, query, id)
	if err != nil {
		return "", false, s.fail("discriminator "+root.ID, query, err)
	}
	names, err := scanStrings(rows)
	if err != nil {
		return "", false, s.fail("discriminator "+root.ID, query, err)
	}
	if len(names) == 0 {
		return "", false, nil
	}
	return names[0], true, nil
}

// Discriminators returns the distinct type ids stored in root's table
func (s *Store) Discriminators(ctx context.Context, root *models.TypeDescriptor) ([]string, error) {
	query := fmt.Sprintf("SELECT DISTINCT %s FROM %s ORDER BY %s",
		quote(TypeColumn), quote(TableName(root)), quote(TypeColumn))
	s.logger.Debug("query", "op", "discriminators", "sql", query)

	rows, err := s.shared.QueryContext(ctx, query)
	if err != nil {
		return nil, s.fail("discriminators "+root.ID, query, err)
	}
	names, err := scanStrings(rows)
	if err != nil {
		return nil, s.fail("discriminators "+root.ID, query, err)
	}
	return names, nil
}

// childFilter appends the WHERE clause selecting the elements of list owned
// by parentID. Lists owned only by the root have no column: every row
// belongs to the root.
func childFilter(b *sqlBuilder, sc *SchemaContext, list *models.Property, parentID int64) {
	table, column, ok := sc.ParentColumnFor(list)
	if !ok {
		return
	}
	b.write(" WHERE ", quote(TableName(table)), ".", quote(column), " = ").arg(parentID)
}

// CountChildren counts the elements of list owned by parentID
func (s *Store) CountChildren(ctx context.Context, sc *SchemaContext, list *models.Property, parentID int64) (int, error) {
	elem := list.Target()
	b := newBuilder(s.dialect).write("SELECT COUNT(*) FROM ", quote(TableName(elem)))
	childFilter(b, sc, list, parentID)
	n, _, err := s.queryInt(ctx, "count "+list.FullName(), b)
	return int(n), err
}

// StreamChildren opens a cursor over the elements of list owned by
// parentID. Rows are read through the element type's chain; rows of more
// derived types must be re-read by the caller.
func (s *Store) StreamChildren(ctx context.Context, sc *SchemaContext, list *models.Property, parentID int64) (*RowStream, error) {
	sel := selectChain(sc, list.Target())
	b := newBuilder(s.dialect).write(sel.sql)
	childFilter(b, sc, list, parentID)
	b.write(" ORDER BY ", quote(sel.root), ".", quote(IDColumn))
	return s.openStream(ctx, "iterate "+list.FullName(), sel, b)
}

// EnsureRoot inserts the root row with id 0 unless it exists
func (s *Store) EnsureRoot(ctx context.Context, sc *SchemaContext) (bool, error) {
	root := sc.Root()
	table := quote(TableName(root))

	b := newBuilder(s.dialect).write("SELECT COUNT(*) FROM ", table, " WHERE ", quote(IDColumn), " = ").arg(models.SessionRowID)
	n, _, err := s.queryInt(ctx, "find root", b)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	cols := []string{IDColumn, TypeColumn}
	args := []any{models.SessionRowID, root.ID}
	for _, p := range root.TableScalars() {
		cols = append(cols, ColumnName(p))
		args = append(args, s.dialect.Arg(storedValue(p, models.Null(p.Type))))
	}
	if _, err := s.exec(ctx, "create root", insertStatement(s.dialect, TableName(root), cols, args)); err != nil {
		return false, err
	}
	s.logger.Info("created root row", "type", root.ID)
	return true, nil
}
