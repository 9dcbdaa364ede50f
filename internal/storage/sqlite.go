package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/v0xg/webmacro/internal/macro"
)

const schema = `
CREATE TABLE IF NOT EXISTS macros (
	name        TEXT PRIMARY KEY,
	start_url   TEXT NOT NULL,
	recorded_at TEXT NOT NULL,
	steps       TEXT NOT NULL,
	metadata    TEXT NOT NULL
);`

// SQLiteStore implements macro.Repository on a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) the database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, m macro.Macro) error {
	steps, err := json.Marshal(nonNilSteps(m.Steps))
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}
	metadata, err := json.Marshal(m.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO macros (name, start_url, recorded_at, steps, metadata)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			start_url = excluded.start_url,
			recorded_at = excluded.recorded_at,
			steps = excluded.steps,
			metadata = excluded.metadata`,
		m.Name, m.StartURL, m.RecordedAt.Format(time.RFC3339Nano), string(steps), string(metadata))
	if err != nil {
		return fmt.Errorf("failed to save macro %s: %w", m.Name, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, name string) (macro.Macro, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, start_url, recorded_at, steps, metadata FROM macros WHERE name = ?`, name)

	m, err := scanMacro(row)
	if errors.Is(err, sql.ErrNoRows) {
		return macro.Macro{}, fmt.Errorf("%w: %s", macro.ErrNotFound, name)
	}
	if err != nil {
		return macro.Macro{}, err
	}
	return m, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]macro.Macro, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, start_url, recorded_at, steps, metadata FROM macros`)
	if err != nil {
		return nil, fmt.Errorf("failed to list macros: %w", err)
	}
	defer rows.Close()

	var macros []macro.Macro
	for rows.Next() {
		m, err := scanMacro(rows)
		if err != nil {
			return nil, err
		}
		macros = append(macros, m)
	}
	return macros, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM macros WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete macro %s: %w", name, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMacro(row scanner) (macro.Macro, error) {
	var (
		m                         macro.Macro
		recordedAt, steps, metaJS string
	)
	if err := row.Scan(&m.Name, &m.StartURL, &recordedAt, &steps, &metaJS); err != nil {
		return macro.Macro{}, err
	}

	ts, err := time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return macro.Macro{}, fmt.Errorf("invalid recorded_at for %s: %w", m.Name, err)
	}
	m.RecordedAt = ts

	if err := json.Unmarshal([]byte(steps), &m.Steps); err != nil {
		return macro.Macro{}, fmt.Errorf("invalid steps for %s: %w", m.Name, err)
	}
	if err := json.Unmarshal([]byte(metaJS), &m.Metadata); err != nil {
		return macro.Macro{}, fmt.Errorf("invalid metadata for %s: %w", m.Name, err)
	}
	return m, nil
}

func nonNilSteps(steps []macro.Step) []macro.Step {
	if steps == nil {
		return []macro.Step{}
	}
	return steps
}
