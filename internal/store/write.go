package store

import (
	"context"
	"strings"

	"github.com/kilupskalvis/ledgerstore/internal/models"
)

// storedValue applies the column default for non-nullable integers
func storedValue(p *models.Property, v models.Value) models.Value {
	if v.IsNull() && p.Type == models.TypeInt && !p.Nullable {
		return models.Int(0)
	}
	return v
}

// Insert writes a new object of type td across its table chain and returns
// the generated row id. The base-most table generates the id, every derived
// table reuses it. When list is non-nil the parent column recording
// membership in list is set to parentID.
func (s *Store) Insert(ctx context.Context, sc *SchemaContext, td *models.TypeDescriptor, values models.ValueSet, list *models.Property, parentID int64) (int64, error) {
	var parentTable *models.TypeDescriptor
	var parentColumn string
	if list != nil {
		parentTable, parentColumn, _ = sc.ParentColumnFor(list)
	}

	id := models.UnsetRowID
	for i, t := range td.Chain() {
		var cols []string
		var args []any
		if i == 0 {
			cols, args = append(cols, TypeColumn), append(args, td.ID)
		} else {
			cols, args = append(cols, IDColumn), append(args, id)
		}
		for _, p := range t.TableScalars() {
			cols = append(cols, ColumnName(p))
			args = append(args, s.dialect.Arg(storedValue(p, values.Get(p))))
		}
		if t == parentTable {
			cols = append(cols, parentColumn)
			args = append(args, parentID)
		}

		b := insertStatement(s.dialect, TableName(t), cols, args)
		if i == 0 {
			b.write(" RETURNING ", quote(IDColumn))
			generated, ok, err := s.queryInt(ctx, "insert "+t.ID, b)
			if err != nil {
				return models.UnsetRowID, err
			}
			if !ok {
				return models.UnsetRowID, consistencyError("insert into %s returned no id", TableName(t))
			}
			id = generated
			continue
		}
		n, err := s.exec(ctx, "insert "+t.ID, b)
		if err != nil {
			return models.UnsetRowID, err
		}
		if n != 1 {
			return models.UnsetRowID, consistencyError("insert into %s affected %d rows", TableName(t), n)
		}
	}

	s.logger.Debug("inserted", "type", td.ID, "id", id)
	return id, nil
}

func insertStatement(d Dialect, table string, cols []string, args []any) *sqlBuilder {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	b := newBuilder(d).write("INSERT INTO ", quote(table), " (", strings.Join(quoted, ", "), ") VALUES (")
	for i, a := range args {
		if i > 0 {
			b.write(", ")
		}
		b.arg(a)
	}
	return b.write(")")
}

// Update writes the scalar properties that differ between old and new,
// table by table from td up to the base-most type. Every unchanged column of
// a table is reproduced in the WHERE clause; the statement must affect
// exactly one row.
func (s *Store) Update(ctx context.Context, sc *SchemaContext, td *models.TypeDescriptor, id int64, old, new models.ValueSet) error {
	for t := td; t != nil; t = t.Base() {
		var changed, unchanged []*models.Property
		for _, p := range t.TableScalars() {
			if storedValue(p, old.Get(p)).Equal(storedValue(p, new.Get(p))) {
				unchanged = append(unchanged, p)
			} else {
				changed = append(changed, p)
			}
		}
		if len(changed) == 0 {
			continue
		}

		b := newBuilder(s.dialect).write("UPDATE ", quote(TableName(t)), " SET ")
		for i, p := range changed {
			if i > 0 {
				b.write(", ")
			}
			b.write(quote(ColumnName(p)), " = ").arg(s.dialect.Arg(storedValue(p, new.Get(p))))
		}
		b.write(" WHERE ", quote(IDColumn), " = ").arg(id)
		for _, p := range unchanged {
			v := storedValue(p, old.Get(p))
			if v.IsNull() {
				b.write(" AND ", quote(ColumnName(p)), " IS NULL")
				continue
			}
			b.write(" AND ", quote(ColumnName(p)), " = ").arg(s.dialect.Arg(v))
		}

		n, err := s.exec(ctx, "update "+t.ID, b)
		if err != nil {
			return err
		}
		if n != 1 {
			return consistencyError("update of %s row %d affected %d rows", TableName(t), id, n)
		}
	}
	return nil
}

// Delete removes an object's rows from the most-derived table down to the
// base-most one. It reports false if the object did not exist; a missing
// row further down the chain is a consistency violation.
func (s *Store) Delete(ctx context.Context, sc *SchemaContext, td *models.TypeDescriptor, id int64) (bool, error) {
	chain := td.Chain()
	for i := len(chain) - 1; i >= 0; i-- {
		t := chain[i]
		b := newBuilder(s.dialect).write("DELETE FROM ", quote(TableName(t)), " WHERE ", quote(IDColumn), " = ").arg(id)
		n, err := s.exec(ctx, "delete "+t.ID, b)
		if err != nil {
			return false, err
		}
		if n == 0 {
			if i == len(chain)-1 {
				return false, nil
			}
			return false, consistencyError("row %d of %s exists without its %s row", id, td.ID, t.ID)
		}
	}
	s.logger.Debug("deleted", "type", td.ID, "id", id)
	return true, nil
}
