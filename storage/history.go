package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"genadapter/provider"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// HistoryEntry is one recorded generation.
type HistoryEntry struct {
	ID             string
	Source         string
	Model          string
	Modality       string
	ThinkingBudget int
	PromptChars    int
	ImageRef       string
	DurationMS     int64
	Error          string
	CreatedAt      time.Time
}

// Succeeded reports whether the generation returned without error.
func (e HistoryEntry) Succeeded() bool {
	return e.Error == ""
}

// HistoryStore persists generation events in <dataDir>/history.db.
// It implements provider.Recorder.
type HistoryStore struct {
	db *sql.DB
}

var _ provider.Recorder = (*HistoryStore)(nil)

func NewHistoryStore(dataDir string) (*HistoryStore, error) {
	return openHistoryStore(filepath.Join(dataDir, "history.db"))
}

func openHistoryStore(dsn string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// concurrent generations share one connection instead of contending for the file lock
	db.SetMaxOpenConns(1)

	hs := &HistoryStore{db: db}
	if err := hs.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return hs, nil
}

func (hs *HistoryStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS generations (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		model TEXT NOT NULL,
		modality TEXT NOT NULL,
		thinking_budget INTEGER NOT NULL DEFAULT 0,
		prompt_chars INTEGER NOT NULL DEFAULT 0,
		image_ref TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations(created_at);
	`

	_, err := hs.db.Exec(schema)
	return err
}

// Record implements provider.Recorder.
func (hs *HistoryStore) Record(ctx context.Context, ev provider.Event) error {
	id := ev.RequestID
	if id == "" {
		id = uuid.NewString()
	}
	errText := ""
	if ev.Err != nil {
		errText = ev.Err.Error()
	}

	_, err := hs.db.ExecContext(ctx, `
		INSERT INTO generations (id, source, model, modality, thinking_budget, prompt_chars, image_ref, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, ev.Source, ev.Model, string(ev.Modality), ev.ThinkingBudget, ev.PromptChars,
		ev.ImageRef, ev.Duration.Milliseconds(), errText, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert generation: %w", err)
	}

	return nil
}

// Recent returns up to limit entries, newest first.
func (hs *HistoryStore) Recent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := hs.db.QueryContext(ctx, `
		SELECT id, source, model, modality, thinking_budget, prompt_chars, image_ref, duration_ms, error, created_at
		FROM generations
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.Source, &e.Model, &e.Modality, &e.ThinkingBudget,
			&e.PromptChars, &e.ImageRef, &e.DurationMS, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan generation: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Count returns the number of recorded generations for a modality, or all
// generations when modality is empty.
func (hs *HistoryStore) Count(ctx context.Context, modality provider.Modality) (int, error) {
	query := `SELECT COUNT(*) FROM generations`
	var args []any
	if modality != "" {
		query += ` WHERE modality = ?`
		args = append(args, string(modality))
	}

	var n int
	if err := hs.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count generations: %w", err)
	}
	return n, nil
}

func (hs *HistoryStore) Close() error {
	return hs.db.Close()
}
