package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/maroco/major-mentor/internal/core/domain"
)

// TranscriptRepository persists the per-turn audit transcript. Append
// only; nothing on the request path reads it back.
type TranscriptRepository struct {
	db *sql.DB
}

func NewTranscriptRepository(db *sql.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// EnsureSchema creates the transcript table when it does not exist yet.
// Called once at startup.
func (r *TranscriptRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS turn_transcripts (
    id         TEXT PRIMARY KEY,
    turn_id    TEXT NOT NULL,
    role       TEXT NOT NULL,
    content    TEXT NOT NULL,
    tool_name  TEXT,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS turn_transcripts_turn_id_idx ON turn_transcripts (turn_id, created_at)
`)
	if err != nil {
		return fmt.Errorf("ensure transcript schema: %w", err)
	}
	return nil
}

func (r *TranscriptRepository) AppendEntry(ctx context.Context, entry domain.TranscriptEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO turn_transcripts (id, turn_id, role, content, tool_name, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, entry.ID, entry.TurnID, entry.Role, entry.Content, nullableString(entry.ToolName), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append transcript entry: %w", err)
	}
	return nil
}

// ListEntries returns one turn's transcript in write order. Serves the
// audit endpoint, never the chat path.
func (r *TranscriptRepository) ListEntries(ctx context.Context, turnID string) ([]domain.TranscriptEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, turn_id, role, content, tool_name, created_at
FROM turn_transcripts
WHERE turn_id = $1
ORDER BY created_at ASC
`, turnID)
	if err != nil {
		return nil, fmt.Errorf("list transcript entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.TranscriptEntry
	for rows.Next() {
		var entry domain.TranscriptEntry
		var toolName sql.NullString
		if err := rows.Scan(&entry.ID, &entry.TurnID, &entry.Role, &entry.Content, &toolName, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transcript entry: %w", err)
		}
		entry.ToolName = toolName.String
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcript entries: %w", err)
	}
	return entries, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
