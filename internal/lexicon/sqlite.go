package lexicon

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/f3rmion/zhuyin/internal/zhuyin"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverSQLite  = "sqlite"  // modernc.org/sqlite, pure Go
	DriverSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3, cgo
)

// populateChunk is the number of records written per transaction.
const populateChunk = 2048

// Schema for the indexed lexicon store.
const schema = `
CREATE TABLE IF NOT EXISTS terms (
    syllables   TEXT PRIMARY KEY,
    skeleton    TEXT NOT NULL,
    terms       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_terms_skeleton ON terms(skeleton);
`

// SQLiteStore is the indexed lexicon store. Terms are kept as JSON per
// syllable key, with a secondary index on the constant skeleton of the key.
type SQLiteStore struct {
	driver string
	path   string
	db     *sql.DB
}

// NewSQLiteStore creates a store for the database at path. An empty driver
// selects DriverSQLite.
func NewSQLiteStore(driver, path string) *SQLiteStore {
	if driver == "" {
		driver = DriverSQLite
	}
	return &SQLiteStore{driver: driver, path: path}
}

// dsn returns the data source name with driver specific pragmas.
func (s *SQLiteStore) dsn() string {
	switch s.driver {
	case DriverSQLite3:
		return s.path + "?_journal_mode=WAL&_busy_timeout=5000"
	default:
		return s.path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
}

// Open opens or creates the database and applies the schema.
func (s *SQLiteStore) Open(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open(s.driver, s.dsn())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("applying schema: %w", err)
	}

	s.db = db
	return nil
}

// Ready reports whether a previous Populate ran to completion.
func (s *SQLiteStore) Ready(ctx context.Context) bool {
	if s.db == nil {
		return false
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM terms WHERE syllables = ?", lastEntryKey).Scan(&n)
	return err == nil && n > 0
}

// Exact returns the terms stored under key.
func (s *SQLiteStore) Exact(ctx context.Context, key string) ([]zhuyin.Term, error) {
	if s.db == nil {
		return nil, ErrNotReady
	}

	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT terms FROM terms WHERE syllables = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}

	var terms []zhuyin.Term
	if err := json.Unmarshal([]byte(raw), &terms); err != nil {
		return nil, fmt.Errorf("decoding terms of %s: %w", key, err)
	}
	return terms, nil
}

// Range returns the records matching q. Exact-length queries whose
// syllables all start with a fixed symbol go through the skeleton index;
// otherwise the fixed prefix of the query bounds a key range scan.
func (s *SQLiteStore) Range(ctx context.Context, q zhuyin.Query) ([]Record, error) {
	if s.db == nil {
		return nil, ErrNotReady
	}

	if skel, ok := q.Skeleton(); ok && !q.Prefix {
		records, err := s.Skeleton(ctx, skel)
		if err != nil {
			return nil, err
		}
		return filterRecords(records, q), nil
	}

	prefix := q.FixedPrefix()
	var (
		rows *sql.Rows
		err  error
	)
	if prefix == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT syllables, terms FROM terms
			WHERE syllables != ?
			ORDER BY syllables`, lastEntryKey)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT syllables, terms FROM terms
			WHERE syllables >= ? AND syllables < ?
			ORDER BY syllables`, prefix, zhuyin.UpperBound(prefix))
	}
	if err != nil {
		return nil, fmt.Errorf("querying range %s: %w", q, err)
	}

	records, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("querying range %s: %w", q, err)
	}
	return filterRecords(records, q), nil
}

// Skeleton returns the records indexed under a constant skeleton.
func (s *SQLiteStore) Skeleton(ctx context.Context, skeleton string) ([]Record, error) {
	if s.db == nil {
		return nil, ErrNotReady
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT syllables, terms FROM terms
		WHERE skeleton = ?
		ORDER BY syllables`, skeleton)
	if err != nil {
		return nil, fmt.Errorf("querying skeleton %s: %w", skeleton, err)
	}

	records, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("querying skeleton %s: %w", skeleton, err)
	}
	return records, nil
}

// scanRecords reads (syllables, terms) rows and closes them.
func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec Record
			raw string
		)
		if err := rows.Scan(&rec.Key, &raw); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &rec.Terms); err != nil {
			return nil, fmt.Errorf("decoding terms of %s: %w", rec.Key, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Populate writes records in chunked transactions and marks the store
// complete once every chunk is committed.
func (s *SQLiteStore) Populate(ctx context.Context, records []Record) error {
	if s.db == nil {
		return ErrNotReady
	}

	for start := 0; start < len(records); start += populateChunk {
		end := min(start+populateChunk, len(records))
		if err := s.putChunk(ctx, records[start:end]); err != nil {
			return err
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO terms (syllables, skeleton, terms)
		VALUES (?, ?, ?)`, lastEntryKey, lastEntryKey, "[]")
	if err != nil {
		return fmt.Errorf("marking store complete: %w", err)
	}
	return nil
}

func (s *SQLiteStore) putChunk(ctx context.Context, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO terms (syllables, skeleton, terms)
		VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		raw, err := json.Marshal(rec.Terms)
		if err != nil {
			return fmt.Errorf("encoding terms of %s: %w", rec.Key, err)
		}
		if _, err := stmt.ExecContext(ctx, rec.Key, zhuyin.SkeletonOf(rec.Key), string(raw)); err != nil {
			return fmt.Errorf("inserting %s: %w", rec.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Count returns the number of stored keys, excluding the completion marker.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, ErrNotReady
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM terms WHERE syllables != ?", lastEntryKey).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting terms: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
