// Package store is the relational side of the object engine: it opens the
// database, synchronises tables with the type registry and translates
// inserts, updates, deletes and row reads into SQL.
//
// One-shot statements, which read their whole result before returning, run
// on a single shared connection. Anything that hands a live result set to
// the caller runs on a connection of its own (see RowStream) so the shared
// connection stays usable while the caller iterates.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Store represents an open database
type Store struct {
	db      *sql.DB
	shared  *sql.Conn
	dialect Dialect
	logger  *slog.Logger
}

// Options configure Open
type Options struct {
	Driver string
	DSN    string
	Logger *slog.Logger
	// Retry, when set, retries an unreachable database before giving up
	Retry  *RetryConfig
}

// New opens a SQLite database file with default options
func New(dbPath string) (*Store, error) {
	return Open(context.Background(), Options{Driver: "sqlite", DSN: dbPath})
}

// Open connects to the database and pins the shared connection
func Open(ctx context.Context, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dialect, err := DialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}

	driverName, dsn := "pgx", opts.DSN
	if dialect.Name() == "sqlite" {
		driverName, dsn = "sqlite", sqliteDSN(opts.DSN)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w: %w", ErrConnectivity, err)
	}

	var shared *sql.Conn
	err = retry(ctx, opts.Retry, logger, "connect", func() error {
		conn, err := db.Conn(ctx)
		if err == nil {
			if err = conn.PingContext(ctx); err != nil {
				conn.Close()
			}
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConnectivity, err)
		}
		shared = conn
		return nil
	})
	if err != nil {
		db.Close()
		logger.Error("database unreachable", "driver", opts.Driver, "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Debug("database opened", "driver", opts.Driver)
	return &Store{db: db, shared: shared, dialect: dialect, logger: logger}, nil
}

// Close releases the shared connection and the pool
func (s *Store) Close() error {
	if s.shared != nil {
		s.shared.Close()
	}
	return s.db.Close()
}

// Dialect returns the SQL dialect in use
func (s *Store) Dialect() Dialect { return s.dialect }

// Logger returns the store's logger
func (s *Store) Logger() *slog.Logger { return s.logger }

// DB returns the underlying pool for advanced queries
func (s *Store) DB() *sql.DB { return s.db }

// exec runs a one-shot statement on the shared connection
func (s *Store) exec(ctx context.Context, op string, b *sqlBuilder) (int64, error) {
	query := b.String()
	s.logger.Debug("exec", "op", op, "sql", query)
	res, err := s.shared.ExecContext(ctx, query, b.args...)
	if err != nil {
		return 0, s.fail(op, query, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.fail(op, query, err)
	}
	return n, nil
}

// queryAll runs a one-shot query on the shared connection and reads every
// row before returning
func (s *Store) queryAll(ctx context.Context, op string, sel *selection, b *sqlBuilder) ([]Row, error) {
	query := b.String()
	s.logger.Debug("query", "op", op, "sql", query)
	rows, err := s.shared.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, s.fail(op, query, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r, err := sel.scan(rows)
		if err != nil {
			return nil, s.fail(op, query, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(op, query, err)
	}
	return out, nil
}

// queryInt runs a one-shot query returning a single integer
func (s *Store) queryInt(ctx context.Context, op string, b *sqlBuilder) (int64, bool, error) {
	query := b.String()
	s.logger.Debug("query", "op", op, "sql", query)
	var n int64
	err := s.shared.QueryRowContext(ctx, query, b.args...).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, s.fail(op, query, err)
	}
	return n, true, nil
}
