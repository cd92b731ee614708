// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// SQLStore keeps history in SQLite or PostgreSQL. Each entry is stored as a
// JSON payload alongside a paper index used for the overlap lookup.
type SQLStore struct {
	db     *sql.DB
	driver types.HistoryDriver
}

const sqliteParams = "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// sqliteConnString appends the connection parameters, keeping any query the
// dsn already carries.
func sqliteConnString(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqliteParams
	}
	return dsn + "?" + sqliteParams
}

// sqlitePath returns the file path of a plain path or file: URI dsn.
func sqlitePath(dsn string) string {
	path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	return path
}

// OpenSQL opens (and creates, for SQLite) the history database and ensures
// the schema exists. For SQLite dsn is a file path.
func OpenSQL(driver types.HistoryDriver, dsn string) (*SQLStore, error) {
	var connStr string
	switch driver {
	case types.HistorySQLite:
		if dir := filepath.Dir(sqlitePath(dsn)); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating history directory: %w", err)
			}
		}
		connStr = sqliteConnString(dsn)
	case types.HistoryPostgres:
		connStr = dsn
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(string(driver), connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if driver == types.HistorySQLite {
		// One writer keeps SQLite from returning SQLITE_BUSY under WAL.
		db.SetMaxOpenConns(1)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) createSchema() error {
	seqColumn := "seq INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == types.HistoryPostgres {
		seqColumn = "seq BIGSERIAL PRIMARY KEY"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS history_entries (
			` + seqColumn + `,
			id TEXT NOT NULL UNIQUE,
			created_at BIGINT NOT NULL,
			model TEXT NOT NULL,
			depth TEXT NOT NULL,
			payload TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS history_papers (
			entry_id TEXT NOT NULL REFERENCES history_entries(id),
			paper_id TEXT NOT NULL,
			PRIMARY KEY (entry_id, paper_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_papers_paper_id ON history_papers(paper_id)`,
		`CREATE INDEX IF NOT EXISTS idx_history_entries_created_at ON history_entries(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// bind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) bind(query string) string {
	if s.driver != types.HistoryPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Append stores the entry and its paper index in one transaction.
func (s *SQLStore) Append(ctx context.Context, e types.HistoryEntry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling entry: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.bind(
		`INSERT INTO history_entries (id, created_at, model, depth, payload) VALUES (?, ?, ?, ?, ?)`),
		e.ID, e.Timestamp.UnixNano(), string(e.Result.Model), string(e.Result.Depth), string(payload),
	); err != nil {
		return fmt.Errorf("inserting entry %s: %w", e.ID, err)
	}

	seen := make(map[string]bool, len(e.PaperIDs))
	for _, id := range e.PaperIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := tx.ExecContext(ctx, s.bind(
			`INSERT INTO history_papers (entry_id, paper_id) VALUES (?, ?)`), e.ID, id,
		); err != nil {
			return fmt.Errorf("indexing paper %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing entry %s: %w", e.ID, err)
	}
	return nil
}

// LatestOverlapping implements Store.
func (s *SQLStore) LatestOverlapping(ctx context.Context, paperIDs []string) (*types.HistoryEntry, error) {
	if len(paperIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(paperIDs)), ", ")
	args := make([]any, len(paperIDs))
	for i, id := range paperIDs {
		args[i] = id
	}

	query := s.bind(`SELECT e.payload FROM history_entries e
		WHERE EXISTS (
			SELECT 1 FROM history_papers p
			WHERE p.entry_id = e.id AND p.paper_id IN (` + placeholders + `)
		)
		ORDER BY e.created_at DESC, e.seq DESC
		LIMIT 1`)

	var payload string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest overlapping entry: %w", err)
	}

	e, err := decodeEntry(payload)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Recent implements Store.
func (s *SQLStore) Recent(ctx context.Context, limit int) ([]types.HistoryEntry, error) {
	query := `SELECT payload FROM history_entries ORDER BY created_at DESC, seq DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.bind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []types.HistoryEntry
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e, err := decodeEntry(payload)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func decodeEntry(payload string) (types.HistoryEntry, error) {
	var e types.HistoryEntry
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return types.HistoryEntry{}, fmt.Errorf("decoding history entry: %w", err)
	}
	return e, nil
}
