// Package storage provides the SQLite trace index and conversation storage.
//
// Information Hiding:
// - SQLite connection management hidden behind interfaces
// - Schema and migration details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/richinex/sightline/llm"
	"github.com/richinex/sightline/trace"
)

// SqliteStorage implements ConversationStorage and TraceIndex using SQLite.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type SqliteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStorage, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return newSqlite(db)
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStorage, error) {
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	return newSqlite(db)
}

func newSqlite(db *sql.DB) (*SqliteStorage, error) {
	storage := &SqliteStorage{db: db, now: time.Now}
	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return storage, nil
}

// Close closes the database connection.
func (s *SqliteStorage) Close() error {
	return s.db.Close()
}

func (s *SqliteStorage) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			message_index INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			tool_calls TEXT,
			tool_call_id TEXT,
			tool_name TEXT,
			UNIQUE(run_id, message_index)
		);

		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			root TEXT NOT NULL,
			prompt TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS frames (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			kind TEXT NOT NULL,
			path TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
			UNIQUE(run_id, idx, kind)
		);

		CREATE INDEX IF NOT EXISTS idx_frames_run
		ON frames(run_id, idx);

		CREATE TABLE IF NOT EXISTS locates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			query TEXT NOT NULL,
			status TEXT NOT NULL,
			x INTEGER,
			y INTEGER,
			message TEXT,
			created_at INTEGER NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_locates_run
		ON locates(run_id, id);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Trace index

// RecordRun inserts or updates a run.
func (s *SqliteStorage) RecordRun(ctx context.Context, run RunRecord) error {
	created := run.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, root, prompt, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET root = excluded.root, prompt = excluded.prompt`,
		run.RunID, run.Root, run.Prompt, created.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// RecordArtifact implements trace.Recorder.
func (s *SqliteStorage) RecordArtifact(ctx context.Context, runID string, index int, kind trace.ArtifactKind, path string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO frames (run_id, idx, kind, path, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, idx, kind) DO UPDATE SET path = excluded.path, created_at = excluded.created_at`,
		runID, index, string(kind), path, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record artifact: %w", err)
	}
	return nil
}

// RecordLocate stores one locate outcome.
func (s *SqliteStorage) RecordLocate(ctx context.Context, rec LocateRecord) error {
	created := rec.CreatedAt
	if created.IsZero() {
		created = s.now()
	}

	var x, y, message interface{}
	if rec.Status == "success" {
		x, y = rec.X, rec.Y
	}
	if rec.Message != "" {
		message = rec.Message
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO locates (run_id, idx, query, status, x, y, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Index, rec.Query, rec.Status, x, y, message, created.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record locate: %w", err)
	}
	return nil
}

// ListRuns returns runs newest first with their frame and locate counts.
func (s *SqliteStorage) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.root, r.prompt, r.created_at,
			(SELECT COUNT(*) FROM frames f WHERE f.run_id = r.run_id AND f.kind = ?),
			(SELECT COUNT(*) FROM locates l WHERE l.run_id = r.run_id)
		FROM runs r
		ORDER BY r.created_at DESC, r.run_id`,
		string(trace.KindScreenshot))
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{} // Start with empty slice, not nil
	for rows.Next() {
		var run RunRecord
		var created int64
		if err := rows.Scan(&run.RunID, &run.Root, &run.Prompt, &created, &run.Frames, &run.Locates); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.CreatedAt = time.UnixMilli(created)
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// Artifacts returns the recorded files of a run.
func (s *SqliteStorage) Artifacts(ctx context.Context, runID string) ([]ArtifactRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, idx, kind, path, created_at FROM frames
		WHERE run_id = ? ORDER BY idx ASC, id ASC`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []ArtifactRecord{}
	for rows.Next() {
		var a ArtifactRecord
		var kind string
		var created int64
		if err := rows.Scan(&a.RunID, &a.Index, &kind, &a.Path, &created); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		a.Kind = trace.ArtifactKind(kind)
		a.CreatedAt = time.UnixMilli(created)
		artifacts = append(artifacts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artifacts: %w", err)
	}
	return artifacts, nil
}

// Locates returns the locate outcomes of a run in insertion order.
func (s *SqliteStorage) Locates(ctx context.Context, runID string) ([]LocateRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, idx, query, status, x, y, message, created_at FROM locates
		WHERE run_id = ? ORDER BY id ASC`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query locates: %w", err)
	}
	defer rows.Close()

	locates := []LocateRecord{}
	for rows.Next() {
		var rec LocateRecord
		var x, y sql.NullInt64
		var message sql.NullString
		var created int64
		if err := rows.Scan(&rec.RunID, &rec.Index, &rec.Query, &rec.Status, &x, &y, &message, &created); err != nil {
			return nil, fmt.Errorf("failed to scan locate: %w", err)
		}
		rec.X, rec.Y = int(x.Int64), int(y.Int64)
		rec.Message = message.String
		rec.CreatedAt = time.UnixMilli(created)
		locates = append(locates, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locates: %w", err)
	}
	return locates, nil
}

// Conversation storage

// Save replaces the planner conversation stored for runID. Images are not
// stored; the run directory keeps the frames they came from. Messages are
// not tied to a runs row so a failed RecordRun never loses the history.
func (s *SqliteStorage) Save(ctx context.Context, runID string, history []llm.ChatMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// defer tx.Rollback() is safe even after Commit() - it becomes a no-op
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to clear old messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (run_id, message_index, role, content, tool_calls, tool_call_id, tool_name)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for i, msg := range history {
		var toolCalls interface{}
		if len(msg.ToolCalls) > 0 {
			data, err := json.Marshal(msg.ToolCalls)
			if err != nil {
				return fmt.Errorf("failed to encode tool calls: %w", err)
			}
			toolCalls = string(data)
		}
		_, err = stmt.ExecContext(ctx, runID, i, msg.Role, msg.Content,
			toolCalls, nullable(msg.ToolCallID), nullable(msg.ToolName))
		if err != nil {
			return fmt.Errorf("failed to insert message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Load returns the conversation stored for runID in order, or an empty
// slice when none was saved.
func (s *SqliteStorage) Load(ctx context.Context, runID string) ([]llm.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, tool_calls, tool_call_id, tool_name FROM messages
		WHERE run_id = ? ORDER BY message_index ASC`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []llm.ChatMessage{}
	for rows.Next() {
		var msg llm.ChatMessage
		var toolCalls, toolCallID, toolName sql.NullString
		if err := rows.Scan(&msg.Role, &msg.Content, &toolCalls, &toolCallID, &toolName); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if toolCalls.Valid {
			if err := json.Unmarshal([]byte(toolCalls.String), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("failed to decode tool calls: %w", err)
			}
		}
		msg.ToolCallID = toolCallID.String
		msg.ToolName = toolName.String
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

// Delete removes the conversation stored for runID. The trace rows stay.
func (s *SqliteStorage) Delete(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

var (
	_ ConversationStorage = (*SqliteStorage)(nil)
	_ TraceIndex          = (*SqliteStorage)(nil)
)
