package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/entropylabs/ingest/internal/schema"
	"github.com/entropylabs/ingest/internal/store"
)

func newTestTracker(t *testing.T, repo *store.Memory, interval int64, errorCap int) *tracker {
	t.Helper()
	run := &store.DatasetRun{
		ID:        uuid.New(),
		Name:      "tracker.csv",
		Status:    store.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := repo.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	return newTracker(repo, discardLogger(), run, interval, errorCap)
}

func TestTrackerFinishOnce(t *testing.T) {
	repo := store.NewMemory()
	tr := newTestTracker(t, repo, 50, 50)
	ctx := context.Background()

	tr.recordSuccess(ctx)
	tr.finish(ctx, store.RunStatusFailed)
	tr.finish(ctx, store.RunStatusCompleted) // must be a no-op

	run, err := repo.GetRun(ctx, tr.run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != store.RunStatusFailed {
		t.Errorf("status = %s, want the first terminal status to stick", run.Status)
	}
	if run.EndedAt == nil {
		t.Error("EndedAt not set")
	}
	if run.RecordsProcessed != 1 {
		t.Errorf("RecordsProcessed = %d, want 1", run.RecordsProcessed)
	}
}

func TestTrackerErrorCap(t *testing.T) {
	repo := store.NewMemory()
	tr := newTestTracker(t, repo, 50, 3)

	for i := 0; i < 10; i++ {
		tr.recordFailure(&schema.RowError{Row: int64(i + 1), Reason: "bad row"})
	}
	if tr.failed != 10 {
		t.Errorf("failed = %d, want 10", tr.failed)
	}
	if len(tr.errors) != 3 {
		t.Errorf("retained errors = %d, want 3", len(tr.errors))
	}
}

func TestTrackerIntervalCheckpoint(t *testing.T) {
	repo := store.NewMemory()
	tr := newTestTracker(t, repo, 2, 50)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tr.recordSuccess(ctx)
	}
	want := []int64{2, 4}
	if len(repo.ProgressUpdates) != len(want) {
		t.Fatalf("ProgressUpdates = %v, want %v", repo.ProgressUpdates, want)
	}
	for i, n := range want {
		if repo.ProgressUpdates[i] != n {
			t.Errorf("progress %d = %d, want %d", i, repo.ProgressUpdates[i], n)
		}
	}
}
