// Package localstore keeps contexts and session timings in a local
// SQLite file for single-user setups.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xpanvictor/interm/internal/domains/session"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_contexts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	type TEXT NOT NULL,
	title TEXT,
	content TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_contexts_user_created ON user_contexts(user_id, created_at);

CREATE TABLE IF NOT EXISTS session_timings (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	ended_at INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_timings_user_started ON session_timings(user_id, started_at);
`

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one writer, and :memory: is per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveContext(ctx context.Context, rec *session.ContextRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	md, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_contexts (id, user_id, type, title, content, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID.String(), rec.UserID, string(rec.Type), rec.Title, rec.Content, string(md), rec.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert context: %w", err)
	}
	return nil
}

func (s *Store) GetLatestContext(ctx context.Context, userID string) (*session.ContextRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, type, title, content, metadata, created_at
		FROM user_contexts
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, userID)

	var rec session.ContextRecord
	var id, ctype, md string
	var title sql.NullString
	var createdAt int64
	if err := row.Scan(&id, &rec.UserID, &ctype, &title, &rec.Content, &md, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan context: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("bad context id %q: %w", id, err)
	}
	rec.ID = parsed
	rec.Type = session.ContextType(ctype)
	rec.Title = title.String
	rec.CreatedAt = time.UnixMilli(createdAt)
	rec.Metadata = map[string]any{}
	if err := json.Unmarshal([]byte(md), &rec.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &rec, nil
}

func (s *Store) DeleteContexts(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_contexts WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete contexts: %w", err)
	}
	return nil
}

func (s *Store) SaveSessionTiming(ctx context.Context, t *session.SessionTiming) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_timings (id, user_id, started_at, ended_at, duration_ms)
		VALUES (?, ?, ?, ?, ?)
	`, t.ID.String(), t.UserID, t.StartedAt.UnixMilli(), t.EndedAt.UnixMilli(), t.DurationMs)
	if err != nil {
		return fmt.Errorf("insert session timing: %w", err)
	}
	return nil
}

func (s *Store) ListSessionTimings(ctx context.Context, userID string, limit int) ([]session.SessionTiming, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, started_at, ended_at, duration_ms
		FROM session_timings
		WHERE user_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query session timings: %w", err)
	}
	defer rows.Close()

	var timings []session.SessionTiming
	for rows.Next() {
		var t session.SessionTiming
		var id string
		var started, ended int64
		if err := rows.Scan(&id, &t.UserID, &started, &ended, &t.DurationMs); err != nil {
			return nil, fmt.Errorf("scan session timing: %w", err)
		}
		if t.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("bad timing id %q: %w", id, err)
		}
		t.StartedAt = time.UnixMilli(started)
		t.EndedAt = time.UnixMilli(ended)
		timings = append(timings, t)
	}
	return timings, rows.Err()
}
