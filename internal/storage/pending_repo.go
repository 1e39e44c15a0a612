package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ciq-assistant/internal/contextutil"
	"ciq-assistant/internal/table"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("record not found")

// PendingStore holds proposed schema updates until they are confirmed.
type PendingStore interface {
	// Create stores a new pending update.
	Create(ctx context.Context, p *PendingUpdate) error
	// Take removes and returns the update with the given id. It returns
	// ErrNotFound for unknown, already taken or expired ids. Concurrent
	// calls for the same id succeed at most once.
	Take(ctx context.Context, id string) (*PendingUpdate, error)
}

// PendingRepo provides methods for pending update operations.
// It implements the PendingStore interface.
type PendingRepo struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewPendingRepo creates a new PendingRepo whose entries expire after ttl.
func NewPendingRepo(db *sql.DB, ttl time.Duration) *PendingRepo {
	return &PendingRepo{db: db, ttl: ttl, now: time.Now}
}

// Create sweeps expired entries and inserts p.
func (r *PendingRepo) Create(ctx context.Context, p *PendingUpdate) error {
	if p.Snapshot == nil {
		return fmt.Errorf("pending update %s has no snapshot", p.ID)
	}

	if _, err := r.Sweep(ctx); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to sweep expired pending updates", "error", err)
	}

	unmatched, err := json.Marshal(p.UnmatchedColumns)
	if err != nil {
		return fmt.Errorf("failed to encode unmatched columns: %w", err)
	}
	snapshot, err := json.Marshal(p.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now()
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO pending_updates (id, unmatched_columns, snapshot, canonical_path, created_at) VALUES (?, ?, ?, ?, ?)",
		p.ID, string(unmatched), string(snapshot), p.CanonicalPath, p.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert pending update: %w", err)
	}
	return nil
}

// Take deletes the row and returns its contents in a single statement.
func (r *PendingRepo) Take(ctx context.Context, id string) (*PendingUpdate, error) {
	var (
		unmatched, snapshot string
		createdAt           int64
		p                   = PendingUpdate{ID: id}
	)

	err := r.db.QueryRowContext(ctx,
		"DELETE FROM pending_updates WHERE id = ? RETURNING unmatched_columns, snapshot, canonical_path, created_at",
		id,
	).Scan(&unmatched, &snapshot, &p.CanonicalPath, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take pending update: %w", err)
	}

	p.CreatedAt = time.Unix(0, createdAt)
	if r.expired(p.CreatedAt) {
		return nil, ErrNotFound
	}

	if err := json.Unmarshal([]byte(unmatched), &p.UnmatchedColumns); err != nil {
		return nil, fmt.Errorf("failed to decode unmatched columns: %w", err)
	}
	var t table.Table
	if err := json.Unmarshal([]byte(snapshot), &t); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	p.Snapshot = &t

	return &p, nil
}

// Sweep deletes expired entries and returns how many were removed.
func (r *PendingRepo) Sweep(ctx context.Context) (int64, error) {
	if r.ttl <= 0 {
		return 0, nil
	}
	cutoff := r.now().Add(-r.ttl).UnixNano()
	res, err := r.db.ExecContext(ctx, "DELETE FROM pending_updates WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep pending updates: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept rows: %w", err)
	}
	return n, nil
}

func (r *PendingRepo) expired(createdAt time.Time) bool {
	return r.ttl > 0 && r.now().Sub(createdAt) > r.ttl
}
