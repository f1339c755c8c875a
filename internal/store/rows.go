package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kilupskalvis/ledgerstore/internal/models"
)

const dateLayout = "2006-01-02"

// selection is a SELECT over a type's table chain joined on _id, with the
// position of every (table, column) pair in the result
type selection struct {
	sql   string
	index map[string]int
	root  string
}

func colKey(table, column string) string { return table + "." + column }

// selectChain builds the SELECT for td's chain. Callers append a WHERE clause.
func selectChain(sc *SchemaContext, td *models.TypeDescriptor) *selection {
	sel := &selection{index: make(map[string]int)}
	var cols []string
	add := func(table, column string) {
		sel.index[colKey(table, column)] = len(cols)
		cols = append(cols, quote(table)+"."+quote(column))
	}

	chain := td.Chain()
	sel.root = TableName(chain[0])
	add(sel.root, IDColumn)
	add(sel.root, TypeColumn)
	for _, t := range chain {
		table := TableName(t)
		for _, p := range sc.ParentColumns(t) {
			add(table, ParentColumnName(p))
		}
		for _, p := range t.TableScalars() {
			add(table, ColumnName(p))
		}
	}

	var from strings.Builder
	from.WriteString(quote(sel.root))
	for _, t := range chain[1:] {
		table := TableName(t)
		fmt.Fprintf(&from, " JOIN %s ON %s.%s = %s.%s",
			quote(table), quote(table), quote(IDColumn), quote(sel.root), quote(IDColumn))
	}
	sel.sql = "SELECT " + strings.Join(cols, ", ") + " FROM " + from.String()
	return sel
}

func (sel *selection) scan(rows *sql.Rows) (Row, error) {
	vals := make([]any, len(sel.index))
	ptrs := make([]any, len(vals))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return Row{}, err
	}
	return Row{sel: sel, values: vals}, nil
}

// Row is one result row of a chain selection
type Row struct {
	sel    *selection
	values []any
}

// Raw returns the driver value of a column and whether it was selected
func (r Row) Raw(table, column string) (any, bool) {
	i, ok := r.sel.index[colKey(table, column)]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// ID returns the row id
func (r Row) ID() int64 {
	v, _ := r.Raw(r.sel.root, IDColumn)
	id, _ := toInt64(v)
	return id
}

// TypeID returns the discriminator
func (r Row) TypeID() string {
	v, _ := r.Raw(r.sel.root, TypeColumn)
	s, _ := toString(v)
	return s
}

// Value decodes the column of scalar property p. References decode to the
// referenced row id as an Int value.
func (r Row) Value(p *models.Property) (models.Value, error) {
	raw, ok := r.Raw(TableName(TableOf(p)), ColumnName(p))
	if !ok {
		return models.Value{}, fmt.Errorf("column for %s not selected", p.FullName())
	}
	return DecodeValue(p.Type, raw)
}

// ParentID returns the value of list's parent column, if non-null
func (r Row) ParentID(sc *SchemaContext, list *models.Property) (int64, bool) {
	table, column, ok := sc.ParentColumnFor(list)
	if !ok {
		return 0, false
	}
	raw, ok := r.Raw(TableName(table), column)
	if !ok || raw == nil {
		return 0, false
	}
	return toInt64(raw)
}

// DecodeValue coerces a driver value to the declared type. NULL always
// yields an absent value.
func DecodeValue(t models.ValueType, raw any) (models.Value, error) {
	if raw == nil {
		return models.Null(t), nil
	}
	switch t {
	case models.TypeInt, models.TypeReference:
		if n, ok := toInt64(raw); ok {
			return models.Int(n), nil
		}
	case models.TypeText:
		if s, ok := toString(raw); ok {
			return models.Text(s), nil
		}
	case models.TypeBool:
		switch v := raw.(type) {
		case bool:
			return models.Bool(v), nil
		default:
			if n, ok := toInt64(raw); ok {
				return models.Bool(n != 0), nil
			}
			if s, ok := toString(raw); ok {
				if b, err := strconv.ParseBool(s); err == nil {
					return models.Bool(b), nil
				}
			}
		}
	case models.TypeChar:
		if s, ok := toString(raw); ok && s != "" {
			r, _ := utf8.DecodeRuneInString(s)
			return models.Char(r), nil
		}
		if n, ok := raw.(int64); ok {
			return models.Char(rune(n)), nil
		}
	case models.TypeDate:
		switch v := raw.(type) {
		case time.Time:
			return models.Date(v), nil
		default:
			if s, ok := toString(raw); ok {
				if ts := parseTimestamp(s); !ts.IsZero() {
					return models.Date(ts), nil
				}
			}
		}
	}
	return models.Value{}, fmt.Errorf("cannot decode %T as %s", raw, t)
}

func toInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}

func toString(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	}
	return "", false
}

// parseTimestamp parses a date or timestamp string in the formats SQLite
// drivers produce
func parseTimestamp(s string) time.Time {
	formats := []string{
		dateLayout,
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999-07:00",
		"2006-01-02 15:04:05-07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// RowStream is a live, forward-only result set on a connection it owns.
// Reaching the end of the rows or calling Close releases the connection.
type RowStream struct {
	conn *sql.Conn
	rows *sql.Rows
	sel  *selection
	cur  Row
	err  error
}

// Next advances to the next row
func (rs *RowStream) Next() bool {
	if rs.rows == nil {
		return false
	}
	if !rs.rows.Next() {
		rs.err = rs.rows.Err()
		rs.Close()
		return false
	}
	rs.cur, rs.err = rs.sel.scan(rs.rows)
	if rs.err != nil {
		rs.Close()
		return false
	}
	return true
}

// Row returns the current row
func (rs *RowStream) Row() Row { return rs.cur }

// Err returns the error that stopped iteration, if any
func (rs *RowStream) Err() error { return rs.err }

// Close releases the result set and its connection. It is idempotent.
func (rs *RowStream) Close() error {
	if rs.rows == nil {
		return nil
	}
	err := rs.rows.Close()
	if cerr := rs.conn.Close(); err == nil {
		err = cerr
	}
	rs.rows, rs.conn = nil, nil
	return err
}

// openStream runs a query on a freshly acquired connection
func (s *Store) openStream(ctx context.Context, op string, sel *selection, b *sqlBuilder) (*RowStream, error) {
	query := b.String()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, s.fail(op, query, err)
	}
	s.logger.Debug("stream", "op", op, "sql", query)
	rows, err := conn.QueryContext(ctx, query, b.args...)
	if err != nil {
		conn.Close()
		return nil, s.fail(op, query, err)
	}
	return &RowStream{conn: conn, rows: rows, sel: sel}, nil
}
