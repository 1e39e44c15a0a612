package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_storage.go -package=mocks ciq-assistant/internal/storage ConversationStore,PendingStore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ConversationStore keeps ordered conversation turns per session.
type ConversationStore interface {
	// Append adds turns to the end of the session, atomically and in order.
	Append(ctx context.Context, sessionID string, turns []Turn) error
	// History returns the newest limit turns in chronological order.
	// A limit of zero or less returns the whole session.
	History(ctx context.Context, sessionID string, limit int) ([]Turn, error)
	// Trim drops all but the newest keep turns of the session.
	Trim(ctx context.Context, sessionID string, keep int) error
}

// ConversationRepo provides methods for conversation operations.
// It implements the ConversationStore interface.
type ConversationRepo struct {
	db *sql.DB
}

// NewConversationRepo creates a new ConversationRepo.
func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// Append inserts turns with consecutive sequence numbers in one transaction.
func (r *ConversationRepo) Append(ctx context.Context, sessionID string, turns []Turn) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var last int64
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) FROM conversation_turns WHERE session_id = ?",
		sessionID,
	).Scan(&last)
	if err != nil {
		return fmt.Errorf("failed to read last sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO conversation_turns (session_id, seq, role, text) VALUES (?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i, turn := range turns {
		if _, err := stmt.ExecContext(ctx, sessionID, last+int64(i)+1, string(turn.Role), turn.Text); err != nil {
			return fmt.Errorf("failed to insert turn: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit turns: %w", err)
	}
	return nil
}

// History returns the session's newest turns, oldest first.
func (r *ConversationRepo) History(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT role, text FROM (
			SELECT seq, role, text FROM conversation_turns
			WHERE session_id = ?
			ORDER BY seq DESC
			LIMIT ?
		) ORDER BY seq ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var turns []Turn
	for rows.Next() {
		var role, text string
		if err := rows.Scan(&role, &text); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, Turn{Role: Role(role), Text: text})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return turns, nil
}

// Trim deletes everything older than the newest keep turns.
func (r *ConversationRepo) Trim(ctx context.Context, sessionID string, keep int) error {
	if keep < 0 {
		keep = 0
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM conversation_turns
		WHERE session_id = ?
		AND seq <= (SELECT COALESCE(MAX(seq), 0) FROM conversation_turns WHERE session_id = ?) - ?`,
		sessionID, sessionID, keep,
	)
	if err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}
	return nil
}

// FormatHistory renders turns as "User: ...\n" / "Assistant: ...\n" lines.
func FormatHistory(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		if t.Role == RoleUser {
			b.WriteString("User: ")
		} else {
			b.WriteString("Assistant: ")
		}
		b.WriteString(t.Text)
		b.WriteByte('\n')
	}
	return b.String()
}
