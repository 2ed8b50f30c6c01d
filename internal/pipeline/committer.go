package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/entropylabs/ingest/internal/schema"
	"github.com/entropylabs/ingest/internal/store"
)

// committer moves normalized records into the repository, either one insert
// per record or in bulk batches. Persistence faults are isolated per row in
// both modes; a failed bulk insert is replayed row-by-row so a poisoned row
// costs only itself.
type committer struct {
	repo store.Repository
	log  *slog.Logger
	tr   *tracker

	size  int
	batch []*store.Record
	rows  []int64
}

func newCommitter(repo store.Repository, log *slog.Logger, tr *tracker, size int) *committer {
	return &committer{
		repo: repo,
		log:  log,
		tr:   tr,
		size: size,
	}
}

// commitOne persists a single record immediately. Used in streaming mode.
func (c *committer) commitOne(ctx context.Context, ordinal int64, rec *store.Record) {
	if err := c.repo.CreateRecord(ctx, rec); err != nil {
		c.tr.recordFailure(&schema.RowError{
			Row:    ordinal,
			Key:    rec.Key(),
			Reason: fmt.Sprintf("persist: %v", err),
		})
		return
	}
	c.tr.recordSuccess(ctx)
}

// add queues a record, flushing when the batch fills.
func (c *committer) add(ctx context.Context, ordinal int64, rec *store.Record) {
	c.batch = append(c.batch, rec)
	c.rows = append(c.rows, ordinal)
	if len(c.batch) >= c.size {
		c.flush(ctx)
	}
}

// flush bulk-inserts the queued batch and checkpoints run progress. When the
// bulk write fails the batch is replayed with per-row inserts, keeping
// row-level failure granularity.
func (c *committer) flush(ctx context.Context) {
	if len(c.batch) == 0 {
		return
	}
	batch, rows := c.batch, c.rows
	c.batch, c.rows = c.batch[:0], c.rows[:0]

	if err := c.repo.CreateRecords(ctx, batch); err != nil {
		c.log.WarnContext(ctx, "bulk insert failed, replaying batch row by row",
			"rows", len(batch),
			"error", err,
		)
		for i, rec := range batch {
			if rerr := c.repo.CreateRecord(ctx, rec); rerr != nil {
				c.tr.recordFailure(&schema.RowError{
					Row:    rows[i],
					Key:    rec.Key(),
					Reason: fmt.Sprintf("persist: %v", rerr),
				})
				continue
			}
			c.tr.success()
		}
	} else {
		for range batch {
			c.tr.success()
		}
	}
	c.tr.checkpoint(ctx)
}
