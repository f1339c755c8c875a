package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
	"unicode"

	"github.com/kilupskalvis/ledgerstore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// newTestStore creates a new SQLite store in a temp directory for testing.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// fixedKey is a key with a known row id and no object behind it
type fixedKey int64

func (k fixedKey) Resolve(context.Context) (models.Object, error) { return nil, nil }
func (k fixedKey) RowID() int64                                   { return int64(k) }
func (k fixedKey) PushUpdate(context.Context, *models.TypeDescriptor, models.ValueSet, models.ValueSet) error {
	return nil
}

func noGet(models.Object) models.Value                 { return models.Value{} }
func noList(models.Object) models.ListManager          { return nil }
func noBuild(*models.Bootstrap) (models.Object, error) { return nil, nil }

func scalarProp(name string, t models.ValueType, nullable bool) *models.Property {
	return &models.Property{Name: name, Kind: models.KindScalar, Type: t, Nullable: nullable, Get: noGet}
}

func refProp(name, target string) *models.Property {
	return &models.Property{Name: name, Kind: models.KindScalar, Type: models.TypeReference, Ref: target, Nullable: true, Get: noGet}
}

func listProp(name, elem string) *models.Property {
	return &models.Property{Name: name, Kind: models.KindList, Ref: elem, List: noList}
}

// testSchema builds a small book: a root with accounts, currencies and
// transactions; accounts nest and have a derived capital type; transactions
// own entries.
func testSchema(t *testing.T, extensions ...*models.TypeDescriptor) *SchemaContext {
	t.Helper()
	reg := models.NewRegistry("test.Book")
	tds := []*models.TypeDescriptor{
		{ID: "test.Book", Build: noBuild, Properties: []*models.Property{
			scalarProp("title", models.TypeText, true),
			scalarProp("version", models.TypeInt, false),
			listProp("accounts", "test.Account"),
			listProp("currencies", "test.Currency"),
			listProp("txs", "test.Tx"),
		}},
		{ID: "test.Currency", Cached: true, Build: noBuild, Properties: []*models.Property{
			scalarProp("code", models.TypeText, true),
		}},
		{ID: "test.Account", Cached: true, Build: noBuild, Properties: []*models.Property{
			scalarProp("name", models.TypeText, true),
			listProp("children", "test.Account"),
		}},
		{ID: "test.Capital", BaseID: "test.Account", Build: noBuild, Properties: []*models.Property{
			scalarProp("balance", models.TypeInt, false),
			refProp("currency", "test.Currency"),
			scalarProp("opened", models.TypeDate, true),
			scalarProp("active", models.TypeBool, true),
			scalarProp("flag", models.TypeChar, true),
		}},
		{ID: "test.Tx", Build: noBuild, Properties: []*models.Property{
			scalarProp("date", models.TypeDate, true),
			listProp("entries", "test.Entry"),
		}},
		{ID: "test.Entry", Build: noBuild, Properties: []*models.Property{
			scalarProp("amount", models.TypeInt, false),
			refProp("account", "test.Account"),
		}},
	}
	for _, td := range append(tds, extensions...) {
		require.NoError(t, reg.Register(td))
	}
	sc, err := NewSchemaContext(reg)
	require.NoError(t, err)
	return sc
}

func mustType(t *testing.T, sc *SchemaContext, id string) *models.TypeDescriptor {
	t.Helper()
	td, ok := sc.Lookup(id)
	require.True(t, ok, id)
	return td
}

func mustProp(t *testing.T, td *models.TypeDescriptor, name string) *models.Property {
	t.Helper()
	p, ok := td.Property(name)
	require.True(t, ok, name)
	return p
}

// values keys local property names of td by full name
func values(t *testing.T, td *models.TypeDescriptor, fields map[string]models.Value) models.ValueSet {
	t.Helper()
	vs := models.ValueSet{}
	for name, v := range fields {
		vs[mustProp(t, td, name).FullName()] = v
	}
	return vs
}

func syncedStore(t *testing.T, sc *SchemaContext) *Store {
	t.Helper()
	st := newTestStore(t)
	_, err := st.SyncSchema(context.Background(), sc)
	require.NoError(t, err)
	return st
}

func foreignKeyTargets(t *testing.T, st *Store, table string) map[string]string {
	t.Helper()
	fks, err := st.Dialect().ForeignKeys(context.Background(), st.DB(), table)
	require.NoError(t, err)
	out := make(map[string]string)
	for _, fk := range fks {
		out[fk.Column] = fk.RefTable + "." + fk.RefColumn
	}
	return out
}

// ==================== Store Tests ====================

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "oracle", DSN: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConnectivity)
}

func TestOpen_UnreachableDatabaseIsConnectivityError(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing", "dir", "test.db")
	_, err := Open(context.Background(), Options{Driver: "sqlite", DSN: dbPath})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectivity)
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = DialectFor("pgx")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = DialectFor("mysql")
	assert.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "a.db?"+sqlitePragmas, sqliteDSN("a.db"))
	assert.Equal(t, "file:a.db?mode=rwc&"+sqlitePragmas, sqliteDSN("file:a.db?mode=rwc"))
}

// ==================== Schema Context Tests ====================

func TestSchemaContext_ParentColumns(t *testing.T) {
	sc := testSchema(t)

	account := mustType(t, sc, "test.Account")
	names := []string{}
	for _, p := range sc.ParentColumns(account) {
		names = append(names, ParentColumnName(p))
	}
	assert.ElementsMatch(t, []string{"test_Book_accounts", "test_Account_children"}, names)

	// Owned only by the root: no parent column
	assert.Empty(t, sc.ParentColumns(mustType(t, sc, "test.Currency")))
	assert.Empty(t, sc.ParentColumns(mustType(t, sc, "test.Tx")))

	entries := mustProp(t, mustType(t, sc, "test.Tx"), "entries")
	table, column, ok := sc.ParentColumnFor(entries)
	require.True(t, ok)
	assert.Equal(t, "test.Entry", table.ID)
	assert.Equal(t, "test_Tx_entries", column)

	_, _, ok = sc.ParentColumnFor(mustProp(t, sc.Root(), "txs"))
	assert.False(t, ok)
}

func TestSchemaContext_DerivedElementListKeepsRootColumn(t *testing.T) {
	ctx := context.Background()
	sc := testSchema(t,
		&models.TypeDescriptor{ID: "test.Journal", Build: noBuild, Properties: []*models.Property{
			listProp("premium", "test.Premium"),
		}},
		&models.TypeDescriptor{ID: "test.Premium", BaseID: "test.Tx", Build: noBuild},
	)
	tx := mustType(t, sc, "test.Tx")
	premium := mustType(t, sc, "test.Premium")
	txs := mustProp(t, sc.Root(), "txs")
	journalPremium := mustProp(t, mustType(t, sc, "test.Journal"), "premium")

	// Premium rows are also Tx rows, so root membership needs its own column
	require.Len(t, sc.ParentColumns(tx), 1)
	assert.Equal(t, "test_Book_txs", ParentColumnName(sc.ParentColumns(tx)[0]))
	table, column, ok := sc.ParentColumnFor(txs)
	require.True(t, ok)
	assert.Equal(t, tx, table)
	assert.Equal(t, "test_Book_txs", column)

	require.Len(t, sc.ParentColumns(premium), 1)
	assert.Equal(t, "test_Journal_premium", ParentColumnName(sc.ParentColumns(premium)[0]))

	st := syncedStore(t, sc)
	loose, err := st.Insert(ctx, sc, tx, models.ValueSet{}, txs, 0)
	require.NoError(t, err)
	_, err = st.Insert(ctx, sc, premium, models.ValueSet{}, journalPremium, 7)
	require.NoError(t, err)

	n, err := st.CountChildren(ctx, sc, txs, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = st.CountChildren(ctx, sc, journalPremium, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := st.Discriminators(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, []string{"test.Premium", "test.Tx"}, stored)
	assert.Positive(t, loose)
}

func TestSchemaContext_RejectsDerivedRoot(t *testing.T) {
	reg := models.NewRegistry("r.Root")
	require.NoError(t, reg.Register(&models.TypeDescriptor{ID: "r.Root", Build: noBuild}))
	require.NoError(t, reg.Register(&models.TypeDescriptor{ID: "r.Sub", BaseID: "r.Root", Build: noBuild}))

	_, err := NewSchemaContext(reg)
	assert.Error(t, err)
}

// ==================== Naming Tests ====================

func TestNaming(t *testing.T) {
	ext := &models.TypeDescriptor{ID: "plug.AccountExt", BaseID: "test.Account", Extension: true,
		Properties: []*models.Property{{Name: "iban", Kind: models.KindScalar, Type: models.TypeText, Nullable: true}}}
	sc := testSchema(t, ext)

	account := mustType(t, sc, "test.Account")
	assert.Equal(t, "test_Account", TableName(account))
	assert.Equal(t, "name", ColumnName(mustProp(t, account, "name")))

	iban := mustProp(t, account, "plug.AccountExt.iban")
	assert.Equal(t, "plug_AccountExt_iban", ColumnName(iban))
	assert.Equal(t, account, TableOf(iban))

	assert.Equal(t, "test_Account_children", ParentColumnName(mustProp(t, account, "children")))
	assert.Equal(t, "a_b_c_d", safeIdent("a-b c.d"))
}

// ==================== Schema Sync Tests ====================

func TestSyncSchema_CreatesEveryTable(t *testing.T) {
	ctx := context.Background()
	sc := testSchema(t)
	st := newTestStore(t)

	result, err := st.SyncSchema(ctx, sc)
	require.NoError(t, err)
	assert.True(t, result.HasChanges())
	assert.Empty(t, result.Unenforced)

	expected := map[string][]string{
		"test_Book":     {"_id", "_type", "title", "version"},
		"test_Currency": {"_id", "_type", "code"},
		"test_Account":  {"_id", "_type", "test_Book_accounts", "test_Account_children", "name"},
		"test_Capital":  {"_id", "balance", "currency", "opened", "active", "flag"},
		"test_Tx":       {"_id", "_type", "date"},
		"test_Entry":    {"_id", "_type", "test_Tx_entries", "amount", "account"},
	}
	for table, cols := range expected {
		actual, ok, err := st.Dialect().TableExists(ctx, st.DB(), table)
		require.NoError(t, err)
		require.True(t, ok, table)

		got, err := st.Dialect().Columns(ctx, st.DB(), actual)
		require.NoError(t, err)
		assert.ElementsMatch(t, cols, got, table)
	}
}

func TestSyncSchema_ForeignKeys(t *testing.T) {
	sc := testSchema(t)
	st := syncedStore(t, sc)

	capital := foreignKeyTargets(t, st, "test_Capital")
	assert.Equal(t, "test_Account._id", capital["_id"])
	assert.Equal(t, "test_Currency._id", capital["currency"])

	entry := foreignKeyTargets(t, st, "test_Entry")
	assert.Equal(t, "test_Account._id", entry["account"])
	// Parent columns are not constrained
	assert.NotContains(t, entry, "test_Tx_entries")
}

func TestSyncSchema_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := syncedStore(t, testSchema(t))

	result, err := st.SyncSchema(ctx, testSchema(t))
	require.NoError(t, err)
	assert.False(t, result.HasChanges())
	assert.Empty(t, result.Statements)
	assert.Empty(t, result.Unenforced)
}

func TestSyncSchema_AddsExtensionColumns(t *testing.T) {
	ctx := context.Background()
	st := syncedStore(t, testSchema(t))

	ext := &models.TypeDescriptor{ID: "plug.AccountExt", BaseID: "test.Account", Extension: true,
		Properties: []*models.Property{
			{Name: "iban", Kind: models.KindScalar, Type: models.TypeText, Nullable: true},
			{Name: "bank", Kind: models.KindScalar, Type: models.TypeReference, Ref: "test.Currency", Nullable: true},
			{Name: "score", Kind: models.KindScalar, Type: models.TypeInt},
		}}
	result, err := st.SyncSchema(ctx, testSchema(t, ext))
	require.NoError(t, err)
	require.Len(t, result.Statements, 3)
	for _, stmt := range result.Statements {
		assert.Contains(t, stmt, `ALTER TABLE "test_Account" ADD COLUMN`)
	}
	assert.Empty(t, result.Unenforced)

	cols, err := st.Dialect().Columns(ctx, st.DB(), "test_Account")
	require.NoError(t, err)
	assert.Contains(t, cols, "plug_AccountExt_iban")
	assert.Contains(t, cols, "plug_AccountExt_score")
	assert.Equal(t, "test_Currency._id", foreignKeyTargets(t, st, "test_Account")["plug_AccountExt_bank"])

	again, err := st.SyncSchema(ctx, testSchema(t, ext))
	require.NoError(t, err)
	assert.False(t, again.HasChanges())
}

func TestSyncSchema_MissingForeignKeyOnExistingTableIsReported(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	_, err := st.DB().ExecContext(ctx, `CREATE TABLE "test_Entry" (
		"_id" INTEGER PRIMARY KEY, "_type" VARCHAR(255), "test_Tx_entries" INT,
		"amount" INT NOT NULL, "account" INT)`)
	require.NoError(t, err)

	result, err := st.SyncSchema(ctx, testSchema(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"test_Entry(account) -> test_Account(_id)"}, result.Unenforced)
	for _, stmt := range result.Statements {
		assert.NotContains(t, stmt, `"test_Entry"`)
	}
}

func TestSyncSchema_ConflictingForeignKeyIsMismatch(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	_, err := st.DB().ExecContext(ctx, `CREATE TABLE "test_Capital" (
		"_id" INTEGER PRIMARY KEY,
		"currency" INT REFERENCES "test_Currency" ("code"))`)
	require.NoError(t, err)

	_, err = st.SyncSchema(ctx, testSchema(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "test_Capital(currency)")
}

func TestSyncSchema_ExistingTableMatchedCaseInsensitively(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	_, err := st.DB().ExecContext(ctx, `CREATE TABLE "TEST_TX" ("_id" INTEGER PRIMARY KEY, "_TYPE" VARCHAR(255), "DATE" DATE)`)
	require.NoError(t, err)

	result, err := st.SyncSchema(ctx, testSchema(t))
	require.NoError(t, err)
	for _, stmt := range result.Statements {
		assert.NotContains(t, stmt, `"test_Tx"`)
		assert.NotContains(t, stmt, `"TEST_TX"`)
	}
}

// ==================== Root Tests ====================

func TestEnsureRoot(t *testing.T) {
	ctx := context.Background()
	sc := testSchema(t)
	st := syncedStore(t, sc)

	created, err := st.EnsureRoot(ctx, sc)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = st.EnsureRoot(ctx, sc)
	require.NoError(t, err)
	assert.False(t, created)

	row, ok, err := st.SelectByID(ctx, sc, sc.Root(), models.SessionRowID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "test.Book", row.TypeID())

	version, err := row.Value(mustProp(t, sc.Root(), "version"))
	require.NoError(t, err)
	assert.Equal(t, models.Int(0), version)

	title, err := row.Value(mustProp(t, sc.Root(), "title"))
	require.NoError(t, err)
	assert.True(t, title.IsNull())
}

// ==================== Write Path Tests ====================

func insertCapital(t *testing.T, st *Store, sc *SchemaContext, fields map[string]models.Value) (int64, models.ValueSet) {
	t.Helper()
	capital := mustType(t, sc, "test.Capital")
	vals := values(t, capital, fields)
	id, err := st.Insert(context.Background(), sc, capital, vals, mustProp(t, sc.Root(), "accounts"), models.SessionRowID)
	require.NoError(t, err)
	return id, vals
}

func TestInsert_AcrossChain(t *testing.T) {
	ctx := context.Background()
	sc := testSchema(t)
	st := syncedStore(t, sc)

	currency := mustType(t, sc, "test.Currency")
	curID, err := st.Insert(ctx, sc, currency, values(t, currency, map[string]models.Value{"code": models.Text("EUR")}),
		mustProp(t, sc.Root(), "currencies"), models.SessionRowID)
	require.NoError(t, err)

	opened := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	id, _ := insertCapital(t, st, sc, map[string]models.Value{
		"name":     models.Text("Checking"),
		"balance":  models.Int(1500),
		"currency": models.Ref(fixedKey(curID)),
		"opened":   models.Date(opened),
		"active":   models.Bool(true),
		"flag":     models.Char('R'),
	})
	assert.NotEqual(t, curID, id)

	capital := mustType(t, sc, "test.Capital")
	row, ok, err := st.SelectByID(ctx, sc, capital, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, row.ID())
	assert.Equal(t, "test.Capital", row.TypeID())

	expect := map[string]models.Value{
		"name":     models.Text("Checking"),
		"balance":  models.Int(1500),
		"currency": models.Int(curID),
		"opened":   models.Date(opened),
		"active":   models.Bool(true),
		"flag":     models.Char('R'),
	}
	for name, want := range expect {
		got, err := row.Value(mustProp(t, capital, name))
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "%s: want %s, got %s", name, want, got)
	}

	parent, ok := row.ParentID(sc, mustProp(t, sc.Root(), "accounts"))
	require.True(t, ok)
	assert.Equal(t, models.SessionRowID, parent)
	_, ok = row.ParentID(sc, mustProp(t, capital, "children"))
	assert.False(t, ok)

	typeID, ok, err := st.TypeOf(ctx, mustType(t, sc, "test.Account"), id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "test.Capital", typeID)
}

func TestInsert_DerivedRowsShareTheBaseID(t *testing.T) {
	ctx := context.Background()
	sc := testSchema(t)
	st := syncedStore(t, sc)

	id, _ := insertCapital(t, st, sc, map[string]models.Value{"name": models.Text("Cash")})

	for _, table := range []string{"test_Account", "test_Capital"} {
		var n int
		require.NoError(t, st.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM "`+table+`" WHERE "_id" = ?`, id).Scan(&n))
		assert.Equal(t, 1, n, table)
	}
}

func TestInsert_NullNonNullableIntStoresZero(t *testing.T) {
	ctx := context.Background()
	sc := testSchema(t)
	st := syncedStore(t, sc)

	id, _ := insertCapital(t, st, sc, map[string]models.Value{"name": models.Text("Cash")})
	row, ok, err := st.SelectByID(ctx, sc, mustType(t, sc, "test.Capital"), id)
	require.NoError(t, err)
	require.True(t, ok)

	balance, err := row.Value(mustProp(t, mustType(t, sc, "test.Capital"), "balance"))
	require.NoError(t, err)
	assert.Equal(t, models.Int(0), balance)

	opened, err := row.Value(mustProp(t, mustType(t, sc, "test.Capital"), "opened"))
	require.NoError(t, err)
	assert.True(t, opened.IsNull())
}

func TestSelectType_ExactTypeOnly(t *testing.T) {
	ctx := context.Background()
	sc := testSchema(t)
	st := syncedStore(t, sc)

	account := mustType(t, sc, "test.Account")
	plainID, err := st.Insert(ctx, sc, account, values(t, account, map[string]models.Value{"name": models.Text("Assets")}),
		mustProp(t, sc.Root(), "accounts"), models.SessionRowID)
	require.NoError(t, err)
	capID, _ := insertCapital(t, st, sc, map[string]models.Value{"name": models.Text("Cash")})

	rows, err := st.SelectType(ctx, sc, account)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, plainID, rows[0].ID())

	rows, err = st.SelectType(ctx, sc, mustType(t, sc, "test.Capital"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, capID, rows[0].ID())
}

func TestUpdate_WritesChangedColumnsAcrossTables(t *testing.T) {
	ctx := context.Background()
	sc := testSchema(t)
	st := syncedStore(t, sc)
	capital := mustType(t, sc, "test.Capital")

	id, old := insertCapital(t, st, sc, map[string]models.Value{
		"name":    models.Text("Cash"),
		"balance": models.Int(10),
		"flag":    models.Char('R'),
	})
	updated := models.ValueSet{}
	for k, v := range old {
		updated[k] = v
	}
	updated[mustProp(t, capital, "name").FullName()] = models.Text("Petty cash")
	updated[mustProp(t, capital, "balance").FullName()] = models.Int(20)

	require.NoError(t, st.Update(ctx, sc, capital, id, old, updated))

	row, _, err := st.SelectByID(ctx, sc, capital, id)
	require.NoError(t, err)
	name, _ := row.Value(mustProp(t, capital, "name"))
	balance, _ := row.Value(mustProp(t, capital, "balance"))
	flag, _ := row.Value(mustProp(t, capital, "flag"))
	assert.Equal(t, "Petty cash", name.AsText())
	assert.Equal(t, int64(20), balance.AsInt())
	assert.Equal(t, 'R', flag.AsChar())
}

func TestUpdate_UnchangedIsNoop(t *testing.T) {
	ctx := context.Background()
	sc := testSchema(t)
	st := syncedStore(t, sc)
	capital := mustType(t, sc, "test.Capital")

	_, old := insertCapital(t, st, sc, map[string]models.Value{"name": models.Text("Cash")})

	// No statement runs, so even a missing row is not an error
	assert.NoError(t, st.Update(ctx, sc, capital, 999, old, old))
}

func TestUpdate_MissingRowIsConsistencyError(t *testing.T) {
	ctx := context.Background()
	sc := testSchema(t)
	st := syncedStore(t, sc)
	capital := mustType(t, sc, "test.Capital")

	old := values(t, capital, map[string]models.Value{"balance": models.Int(1)})
	updated := values(t, capital, map[string]models.Value{"balance": models.Int(2)})

	err := st.Update(ctx, sc, capital, 999, old, updated)
	assert.ErrorIs(t, err, ErrConsistency)
}

func TestUpdate_StaleSnapshotIsConsistencyError(t *testing.T) {
	ctx := context.Background()
	sc := testSchema(t)
	st := syncedStore(t, sc)
	capital := mustType(t, sc, "test.Capital")

	id, old := insertCapital(t, st, sc, map[string]models.Value{
		"balance": models.Int(10),
		"flag":    models.Char('R'),
	})
	_, err := st.DB().ExecContext(ctx, `UPDATE "test_Capital" SET "flag" = 'X' WHERE "_id" = ?`, id)
	require.NoError(t, err)

	updated := models.ValueSet{}
	for k, v := range old {
		updated[k] = v
	}
	updated[mustProp(t, capital, "balance").FullName()] = models.Int(11)

	err = st.Update(ctx, sc, capital, id, old, updated)
	assert.ErrorIs(t, err, ErrConsistency)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	sc := testSchema(t)
	st := syncedStore(t, sc)
	capital := mustType(t, sc, "test.Capital")

	id, _ := insertCapital(t, st, sc, map[string]models.Value{"name": models.Text("Cash")})

	ok, err := st.Delete(ctx, sc, capital, id)
	require.NoError(t, err)
	assert.True(t, ok)

	_, found, err := st.SelectByID(ctx, sc, capital, id)
	require.NoError(t, err)
	assert.False(t, found)

	var n int
	require.NoError(t, st.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM "test_Account"`).Scan(&n))
	assert.Equal(t, 0, n)

	ok, err = st.Delete(ctx, sc, capital, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete_MissingBaseRowIsConsistencyError(t *testing.T) {
	ctx := context.Background()
	sc := testSchema(t)
	st := syncedStore(t, sc)

	id, _ := insertCapital(t, st, sc, map[string]models.Value{"name": models.Text("Cash")})

	conn, err := st.DB().Conn(ctx)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `PRAGMA foreign_keys = OFF`)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `DELETE FROM "test_Account" WHERE "_id" = ?`, id)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	_, err = st.Delete(ctx, sc, mustType(t, sc, "test.Capital"), id)
	assert.ErrorIs(t, err, ErrConsistency)
}

// ==================== Children Tests ====================

func TestChildren_CountAndStream(t *testing.T) {
	ctx := context.Background()
	sc := testSchema(t)
	st := syncedStore(t, sc)

	tx := mustType(t, sc, "test.Tx")
	entry := mustType(t, sc, "test.Entry")
	txs := mustProp(t, sc.Root(), "txs")
	entries := mustProp(t, tx, "entries")

	tx1, err := st.Insert(ctx, sc, tx, models.ValueSet{}, txs, models.SessionRowID)
	require.NoError(t, err)
	tx2, err := st.Insert(ctx, sc, tx, models.ValueSet{}, txs, models.SessionRowID)
	require.NoError(t, err)

	var want []int64
	for i := 1; i <= 3; i++ {
		id, err := st.Insert(ctx, sc, entry, values(t, entry, map[string]models.Value{"amount": models.Int(int64(i))}), entries, tx1)
		require.NoError(t, err)
		want = append(want, id)
	}
	_, err = st.Insert(ctx, sc, entry, models.ValueSet{}, entries, tx2)
	require.NoError(t, err)

	n, err := st.CountChildren(ctx, sc, txs, models.SessionRowID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = st.CountChildren(ctx, sc, entries, tx1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	stream, err := st.StreamChildren(ctx, sc, entries, tx1)
	require.NoError(t, err)

	var got []int64
	for stream.Next() {
		got = append(got, stream.Row().ID())
		// The shared connection stays usable while the stream is open
		_, err := st.CountChildren(ctx, sc, entries, tx2)
		require.NoError(t, err)
	}
	require.NoError(t, stream.Err())
	assert.Equal(t, want, got)
	assert.NoError(t, stream.Close())
	assert.NoError(t, stream.Close())
}

func TestRowStream_ReleasesConnection(t *testing.T) {
	ctx := context.Background()
	sc := testSchema(t)
	st := syncedStore(t, sc)
	txs := mustProp(t, sc.Root(), "txs")

	_, err := st.Insert(ctx, sc, mustType(t, sc, "test.Tx"), models.ValueSet{}, txs, models.SessionRowID)
	require.NoError(t, err)

	stream, err := st.StreamChildren(ctx, sc, txs, models.SessionRowID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.DB().Stats().InUse)

	for stream.Next() {
	}
	require.NoError(t, stream.Err())
	assert.Equal(t, 1, st.DB().Stats().InUse)
}

// ==================== Value Decoding Tests ====================

func TestDecodeValue(t *testing.T) {
	day := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		typ  models.ValueType
		raw  any
		want models.Value
	}{
		{"null int", models.TypeInt, nil, models.Null(models.TypeInt)},
		{"int", models.TypeInt, int64(5), models.Int(5)},
		{"int from bytes", models.TypeInt, []byte("42"), models.Int(42)},
		{"reference", models.TypeReference, int64(7), models.Int(7)},
		{"text", models.TypeText, "hi", models.Text("hi")},
		{"text from bytes", models.TypeText, []byte("hi"), models.Text("hi")},
		{"bool from int", models.TypeBool, int64(1), models.Bool(true)},
		{"bool", models.TypeBool, false, models.Bool(false)},
		{"char", models.TypeChar, "x", models.Char('x')},
		{"date string", models.TypeDate, "2024-02-29", models.Date(day)},
		{"date time", models.TypeDate, day.Add(13 * time.Hour), models.Date(day)},
		{"null date", models.TypeDate, nil, models.Null(models.TypeDate)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeValue(tt.typ, tt.raw)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
			assert.Equal(t, tt.want.IsNull(), got.IsNull())
		})
	}

	_, err := DecodeValue(models.TypeInt, "abc")
	assert.Error(t, err)
}

// ==================== Dialect Tests ====================

func TestPostgresDialect(t *testing.T) {
	d := PostgresDialect{}
	assert.Equal(t, "$3", d.Placeholder(3))
	assert.Equal(t, "BIGSERIAL PRIMARY KEY", d.PrimaryKey(false))
	assert.Equal(t, "BIGINT PRIMARY KEY", d.PrimaryKey(true))
	assert.Equal(t, "BOOLEAN", d.ColumnType(models.TypeBool))
	assert.Equal(t, "BIGINT", d.ColumnType(models.TypeReference))
	assert.False(t, d.InlineForeignKeys())
	assert.Equal(t,
		`ALTER TABLE "test_Entry" ADD CONSTRAINT "fk_test_Entry_account" FOREIGN KEY ("account") REFERENCES "test_Account" ("_id")`,
		d.AddForeignKey("test_Entry", "account", "test_Account"))

	b := insertStatement(d, "test_Tx", []string{"_type", "date"}, []any{"test.Tx", nil})
	assert.Equal(t, `INSERT INTO "test_Tx" ("_type", "date") VALUES ($1, $2)`, b.String())
	assert.Len(t, b.args, 2)

	assert.Equal(t, true, d.Arg(models.Bool(true)))
	assert.Equal(t, "x", d.Arg(models.Char('x')))
	assert.Nil(t, d.Arg(models.Null(models.TypeText)))
	assert.Equal(t, int64(4), d.Arg(models.Ref(fixedKey(4))))
}

func TestSQLiteDialect(t *testing.T) {
	d := SQLiteDialect{}
	assert.Equal(t, "?", d.Placeholder(3))
	assert.Equal(t, "INTEGER PRIMARY KEY", d.PrimaryKey(true))
	assert.True(t, d.InlineForeignKeys())
	assert.Empty(t, d.AddForeignKey("a", "b", "c"))

	assert.Equal(t, int64(1), d.Arg(models.Bool(true)))
	assert.Equal(t, "2024-02-29", d.Arg(models.Date(time.Date(2024, 2, 29, 15, 0, 0, 0, time.UTC))))
	assert.Equal(t, `"a""b"`, quote(`a"b`))
}

func TestSQLiteArg_DecodesToSameValue(t *testing.T) {
	epoch := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	rapid.Check(t, func(t *rapid.T) {
		var v models.Value
		switch rapid.IntRange(0, 4).Draw(t, "kind") {
		case 0:
			v = models.Int(rapid.Int64().Draw(t, "int"))
		case 1:
			v = models.Text(rapid.String().Draw(t, "text"))
		case 2:
			v = models.Bool(rapid.Bool().Draw(t, "bool"))
		case 3:
			v = models.Char(rapid.RuneFrom(nil, unicode.L).Draw(t, "char"))
		case 4:
			v = models.Date(epoch.AddDate(0, 0, rapid.IntRange(-20000, 20000).Draw(t, "days")))
		}

		got, err := DecodeValue(v.Type(), SQLiteDialect{}.Arg(v))
		if err != nil {
			t.Fatalf("decode %s: %v", v, err)
		}
		if !v.Equal(got) {
			t.Fatalf("round trip changed %s into %s", v, got)
		}
	})
}
