package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Dialect selects SQL placeholder syntax and driver.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLStore keeps entries in a ledger_entries table with an integer version
// column used as the CAS token.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLite opens (creating if needed) a SQLite ledger database.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure ledger directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps the pragmas in effect and serializes writers.
	db.SetMaxOpenConns(1)
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	return newSQLStore(ctx, db, DialectSQLite)
}

// OpenPostgres connects to a shared Postgres ledger through pgx.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newSQLStore(ctx, db, DialectPostgres)
}

func newSQLStore(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &SQLStore{db: db, dialect: dialect}, nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	var body string
	var version int64
	err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT body, version FROM ledger_entries WHERE canonical_id = ?"),
		key,
	).Scan(&body, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("select ledger entry: %w", err)
	}
	return []byte(body), strconv.FormatInt(version, 10), nil
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte, expected string) (string, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if expected == "" {
		res, err := s.db.ExecContext(ctx,
			s.rebind(`INSERT INTO ledger_entries (canonical_id, version, body, updated_at)
                VALUES (?, 1, ?, ?)
                ON CONFLICT (canonical_id) DO NOTHING`),
			key, string(value), now,
		)
		if err != nil {
			return "", fmt.Errorf("insert ledger entry: %w", err)
		}
		return "1", expectOneRow(res)
	}

	current, err := strconv.ParseInt(expected, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: malformed version %q", ErrVersionMismatch, expected)
	}
	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE ledger_entries
            SET body = ?, version = version + 1, updated_at = ?
            WHERE canonical_id = ? AND version = ?`),
		string(value), now, key, current,
	)
	if err != nil {
		return "", fmt.Errorf("update ledger entry: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return "", err
	}
	return strconv.FormatInt(current+1, 10), nil
}

func (s *SQLStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT canonical_id FROM ledger_entries ORDER BY canonical_id")
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan ledger key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func expectOneRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected != 1 {
		return ErrVersionMismatch
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var _ Store = (*SQLStore)(nil)
