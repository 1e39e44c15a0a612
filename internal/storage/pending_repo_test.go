package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ciq-assistant/internal/table"
)

func snapshot() *table.Table {
	t := table.New("PCI", "TAC", "CellID")
	t.Rows = [][]table.Cell{{table.String("101"), table.Null, table.String("7")}}
	return t
}

func TestPendingRepo_CreateAndTake(t *testing.T) {
	repo := NewPendingRepo(newTestDB(t), time.Hour)
	ctx := context.Background()

	p := &PendingUpdate{
		ID:               "req-1",
		UnmatchedColumns: []string{"Region"},
		Snapshot:         snapshot(),
		CanonicalPath:    "/data/standard_ciq/standard.xlsx",
	}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.Take(ctx, "req-1")
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	if got.CanonicalPath != p.CanonicalPath {
		t.Errorf("CanonicalPath = %q, want %q", got.CanonicalPath, p.CanonicalPath)
	}
	if len(got.UnmatchedColumns) != 1 || got.UnmatchedColumns[0] != "Region" {
		t.Errorf("UnmatchedColumns = %v, want [Region]", got.UnmatchedColumns)
	}
	if len(got.Snapshot.Columns) != 3 || got.Snapshot.Rows[0][1].Valid {
		t.Errorf("Snapshot = %+v, want canonical columns with null TAC", got.Snapshot)
	}

	// Second take of the same id fails.
	if _, err := repo.Take(ctx, "req-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Take() error = %v, want ErrNotFound", err)
	}
}

func TestPendingRepo_TakeUnknown(t *testing.T) {
	repo := NewPendingRepo(newTestDB(t), time.Hour)
	if _, err := repo.Take(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Take() error = %v, want ErrNotFound", err)
	}
}

func TestPendingRepo_CreateRequiresSnapshot(t *testing.T) {
	repo := NewPendingRepo(newTestDB(t), time.Hour)
	if err := repo.Create(context.Background(), &PendingUpdate{ID: "x"}); err == nil {
		t.Error("Create() without snapshot should fail")
	}
}

func TestPendingRepo_Expiry(t *testing.T) {
	repo := NewPendingRepo(newTestDB(t), time.Hour)
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	if err := repo.Create(ctx, &PendingUpdate{ID: "old", Snapshot: snapshot()}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, &PendingUpdate{ID: "stale", Snapshot: snapshot()}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	now = now.Add(2 * time.Hour)

	// Taking an expired entry fails even before a sweep runs.
	if _, err := repo.Take(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Take() of expired entry error = %v, want ErrNotFound", err)
	}

	// Creating a new entry sweeps the remaining expired one.
	if err := repo.Create(ctx, &PendingUpdate{ID: "fresh", Snapshot: snapshot()}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	var count int
	if err := repo.db.QueryRow("SELECT COUNT(*) FROM pending_updates").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("pending_updates has %d rows after sweep, want 1", count)
	}
	if _, err := repo.Take(ctx, "fresh"); err != nil {
		t.Errorf("Take() of fresh entry error = %v", err)
	}
}

func TestPendingRepo_ConcurrentTakeSucceedsOnce(t *testing.T) {
	repo := NewPendingRepo(newTestDB(t), time.Hour)
	ctx := context.Background()

	if err := repo.Create(ctx, &PendingUpdate{ID: "race", UnmatchedColumns: []string{"Region"}, Snapshot: snapshot()}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	const callers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Take(ctx, "race")
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else if !errors.Is(err, ErrNotFound) {
				t.Errorf("Take() unexpected error = %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("%d concurrent Take() calls succeeded, want exactly 1", successes)
	}
}
