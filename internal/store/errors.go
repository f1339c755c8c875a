package store

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrConnectivity means the database could not be reached or opened.
	ErrConnectivity = errors.New("database unavailable")
	// ErrSchemaMismatch means an existing structure contradicts the expected schema.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrConsistency means a write touched an unexpected number of rows.
	ErrConsistency = errors.New("consistency violation")
	// ErrNotFound means a row or type that should exist does not.
	ErrNotFound = errors.New("not found")
	// ErrInternal wraps any other failing statement.
	ErrInternal = errors.New("internal database error")
)

// fail logs a failing statement and wraps err into the error taxonomy
func (s *Store) fail(op, query string, err error) error {
	s.logger.Error("statement failed", "op", op, "sql", query, "error", err)
	if isConnectivity(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrConnectivity, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
}

func isConnectivity(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"unable to open database file",
		"connection refused",
		"failed to connect",
		"no such host",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func consistencyError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConsistency, fmt.Sprintf(format, args...))
}
