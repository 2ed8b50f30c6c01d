package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/entropylabs/ingest/internal/schema"
	"github.com/entropylabs/ingest/internal/store"
)

// tracker owns a run's progress bookkeeping: the processed/failed counters,
// the bounded error list, checkpoint writes, and the single terminal
// transition. It is not safe for concurrent use; the pipeline drives it from
// one goroutine.
type tracker struct {
	repo store.Repository
	log  *slog.Logger
	run  *store.DatasetRun

	processed int64
	failed    int64
	errors    []schema.RowError
	errorCap  int

	interval  int64
	sinceSync int64
	finished  bool
}

func newTracker(repo store.Repository, log *slog.Logger, run *store.DatasetRun, interval int64, errorCap int) *tracker {
	return &tracker{
		repo:     repo,
		log:      log,
		run:      run,
		errorCap: errorCap,
		interval: interval,
	}
}

// recordSuccess counts one persisted record and checkpoints progress every
// interval records. A failed checkpoint write is logged and swallowed; losing
// a progress update must not fail the run.
func (t *tracker) recordSuccess(ctx context.Context) {
	t.processed++
	t.sinceSync++
	if t.sinceSync >= t.interval {
		t.checkpoint(ctx)
	}
}

// success counts one persisted record without checkpointing. Batch commits
// use it and checkpoint once per flushed batch instead.
func (t *tracker) success() {
	t.processed++
}

// recordFailure counts one rejected or unpersistable record. Errors past the
// retention cap are counted but not kept.
func (t *tracker) recordFailure(rerr *schema.RowError) {
	t.failed++
	if len(t.errors) < t.errorCap {
		t.errors = append(t.errors, *rerr)
	}
}

// checkpoint writes the current processed count to the store.
func (t *tracker) checkpoint(ctx context.Context) {
	t.sinceSync = 0
	if err := t.repo.UpdateRunProgress(ctx, t.run.ID, t.processed); err != nil {
		t.log.WarnContext(ctx, "progress checkpoint failed",
			"run_id", t.run.ID,
			"processed", t.processed,
			"error", err,
		)
	}
}

// finish moves the run to a terminal status. Only the first call takes
// effect; the pipeline finalizes on every exit path and relies on this to
// keep the first terminal status. A lost terminal write marks the local run
// FAILED and returns the error; the caller must not report success when the
// persisted run was never finalized.
func (t *tracker) finish(ctx context.Context, status store.RunStatus) error {
	if t.finished {
		return nil
	}
	t.finished = true

	now := time.Now().UTC()
	t.run.Status = status
	t.run.RecordsProcessed = t.processed
	t.run.EndedAt = &now

	if err := t.repo.FinishRun(ctx, t.run.ID, status, t.processed, now); err != nil {
		t.run.Status = store.RunStatusFailed
		t.log.ErrorContext(ctx, "run finalization failed",
			"run_id", t.run.ID,
			"status", status,
			"error", err,
		)
		return fmt.Errorf("finalize run %s: %w", t.run.ID, err)
	}
	return nil
}
