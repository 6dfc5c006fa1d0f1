package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	sqlSchema = `CREATE TABLE IF NOT EXISTS phonebook (
	surname   TEXT NOT NULL,
	firstname TEXT NOT NULL,
	number    TEXT NOT NULL,
	address   TEXT NOT NULL,
	UNIQUE (surname, firstname, number, address)
)`

	sqlColumns = `surname, firstname, number, address`
	sqlMatch   = `surname = ? AND firstname = ? AND number = ? AND address = ?`
	sqlOrder   = ` ORDER BY surname ASC, firstname ASC, number ASC, address ASC`

	sqlList   = `SELECT ` + sqlColumns + ` FROM phonebook` + sqlOrder
	sqlExists = `SELECT EXISTS(SELECT 1 FROM phonebook WHERE ` + sqlMatch + ` LIMIT 1)`
	sqlInsert = `INSERT INTO phonebook (` + sqlColumns + `) VALUES (?, ?, ?, ?)`
	sqlDelete = `DELETE FROM phonebook WHERE ` + sqlMatch
	sqlUpdate = `UPDATE phonebook SET surname = ?, firstname = ?, number = ?, address = ? WHERE ` + sqlMatch
	// instr keeps the fragment literal: % and _ are not wildcards here
	sqlSearch = `SELECT ` + sqlColumns + ` FROM phonebook WHERE instr(lower(surname), lower(?)) > 0` + sqlOrder
)

// SQLStorage keeps the phonebook in a single SQLite table.
// The UNIQUE constraint over the four columns is the source of truth for duplicates
type SQLStorage struct {
	db *sql.DB
}

// OpenSQLStorage opens (or creates) the database at path and makes sure the table exists.
// Use ":memory:" for a throwaway database
func OpenSQLStorage(ctx context.Context, path string) (*SQLStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// single writer connection, also keeps ":memory:" databases alive between queries
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, sqlSchema); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("create phonebook table: %w", err)
	}

	return &SQLStorage{db: db}, nil
}

// List returns every row ordered by surname
func (s *SQLStorage) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, sqlList)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return scanEntries(rows)
}

// Exists reports whether a row matches all four fields
func (s *SQLStorage) Exists(ctx context.Context, e Entry) (bool, error) {
	var found int
	if err := s.db.QueryRowContext(ctx, sqlExists, args(e)...).Scan(&found); err != nil {
		return false, fmt.Errorf("check entry: %w", err)
	}
	return found == 1, nil
}

// Insert adds a row. A UNIQUE violation is reported as ErrDuplicate
func (s *SQLStorage) Insert(ctx context.Context, e Entry) error {
	if _, err := s.db.ExecContext(ctx, sqlInsert, args(e)...); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// Delete removes rows matching all four fields and returns how many were removed
func (s *SQLStorage) Delete(ctx context.Context, e Entry) (int64, error) {
	res, err := s.db.ExecContext(ctx, sqlDelete, args(e)...)
	if err != nil {
		return 0, fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete entry: %w", err)
	}
	return n, nil
}

// Update rewrites the row keyed by old in a single statement
func (s *SQLStorage) Update(ctx context.Context, old, updated Entry) error {
	res, err := s.db.ExecContext(ctx, sqlUpdate, append(args(updated), args(old)...)...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update entry: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Search returns rows whose surname contains fragment, ignoring ASCII case
func (s *SQLStorage) Search(ctx context.Context, fragment string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, sqlSearch, fragment)
	if err != nil {
		return nil, fmt.Errorf("search entries: %w", err)
	}
	return scanEntries(rows)
}

// Version returns the SQLite library version
func (s *SQLStorage) Version(ctx context.Context) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT sqlite_version()`).Scan(&v)
	return v, err
}

// Close closes the database
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

func args(e Entry) []any {
	return []any{e.Surname, e.Firstname, e.Number, e.Address}
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close() //nolint:errcheck

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Surname, &e.Firstname, &e.Number, &e.Address); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// isUniqueViolation accepts the primary code too, every column is NOT NULL text
// so UNIQUE is the only constraint a well-formed entry can break
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code&0xff == sqlite3.SQLITE_CONSTRAINT
}
