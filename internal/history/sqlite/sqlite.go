// Package sqlite stores conversation turns in a SQLite database, one row per turn.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"helperbot/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT    NOT NULL,
	role            TEXT    NOT NULL,
	content         TEXT    NOT NULL,
	function_name   TEXT    NOT NULL DEFAULT '',
	function_call   TEXT    NOT NULL DEFAULT '',
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_conversation ON turns(conversation_id, id);
`

// Store is a SQLite-backed domain.LogStore.
type Store struct {
	db *sql.DB
}

var _ domain.LogStore = (*Store)(nil)

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Store{db: db}, nil
}

// Append inserts turns inside one transaction.
func (s *Store) Append(ctx context.Context, id string, turns ...domain.Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO turns
		(conversation_id, role, content, function_name, function_call, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range turns {
		call := ""
		if t.FunctionCall != nil {
			data, err := json.Marshal(t.FunctionCall)
			if err != nil {
				return fmt.Errorf("encode function call: %w", err)
			}
			call = string(data)
		}
		if _, err := stmt.ExecContext(ctx, id, string(t.Role), t.Content, t.FunctionName, call, t.CreatedAt.UnixNano()); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}
	return tx.Commit()
}

// Load returns the conversation's turns in insertion order.
func (s *Store) Load(ctx context.Context, id string) ([]domain.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT role, content, function_name, function_call, created_at
		FROM turns WHERE conversation_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []domain.Turn
	for rows.Next() {
		var (
			t       domain.Turn
			role    string
			call    string
			created int64
		)
		if err := rows.Scan(&role, &t.Content, &t.FunctionName, &call, &created); err != nil {
			return nil, err
		}
		t.Role = domain.Role(role)
		t.CreatedAt = time.Unix(0, created).UTC()
		if call != "" {
			t.FunctionCall = &domain.FunctionCallRequest{}
			if err := json.Unmarshal([]byte(call), t.FunctionCall); err != nil {
				return nil, fmt.Errorf("decode function call: %w", err)
			}
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Conversations lists stored conversation ids, most recent first.
func (s *Store) Conversations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT conversation_id FROM turns
		GROUP BY conversation_id ORDER BY MAX(id) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }
