// Package pipeline ingests one tabular transaction file per run: rows are
// pulled from a format-appropriate source, normalized against the run's
// schema, and committed with row-level fault isolation while the run record
// tracks progress.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/entropylabs/ingest/internal/schema"
	"github.com/entropylabs/ingest/internal/source"
	"github.com/entropylabs/ingest/internal/store"
)

// Defaults are the fallback limits applied when a run's Options leave a
// field zero. They mirror the Ingest config section.
type Defaults struct {
	MaxRows          int
	BatchSize        int
	ProgressInterval int64
	ErrorCap         int
}

// Options tune a single run.
type Options struct {
	// MaxRows caps the number of data rows consumed from the file.
	MaxRows int
	// BatchSize sets the bulk insert size for whole-file (sheet) inputs.
	// Streaming inputs commit one row at a time and ignore it.
	BatchSize int
	// Mode selects the row schema; empty means schema.ModeRaw.
	Mode schema.Mode
}

// Result summarizes a finished run.
type Result struct {
	Success          bool              `json:"success"`
	RecordsProcessed int64             `json:"recordsProcessed"`
	RecordsFailed    int64             `json:"recordsFailed"`
	DatasetRunID     uuid.UUID         `json:"datasetRunId"`
	Errors           []schema.RowError `json:"errors,omitempty"`
}

// Pipeline runs file ingestions against a repository. One Pipeline serves
// many concurrent runs; each run is single-worker and owns its input file,
// which is removed on every exit path.
type Pipeline struct {
	repo store.Repository
	log  *slog.Logger
	def  Defaults

	// openSource is swapped in tests to inject failing sources.
	openSource func(path string, maxRows int) (source.RowSource, error)
}

func New(repo store.Repository, log *slog.Logger, def Defaults) *Pipeline {
	if def.MaxRows <= 0 {
		def.MaxRows = 10000
	}
	if def.BatchSize <= 0 {
		def.BatchSize = 100
	}
	if def.ProgressInterval <= 0 {
		def.ProgressInterval = 50
	}
	if def.ErrorCap <= 0 {
		def.ErrorCap = 50
	}
	return &Pipeline{
		repo:       repo,
		log:        log,
		def:        def,
		openSource: source.Open,
	}
}

// Run ingests the file at path and returns the run summary. The file is
// removed before Run returns, regardless of outcome. A non-nil error means
// the run aborted on an infrastructure fault or its terminal run-record
// write was lost; row faults never surface here, they land in the Result.
func (p *Pipeline) Run(ctx context.Context, path string, opts Options) (*Result, error) {
	defer p.cleanup(ctx, path)

	maxRows := opts.MaxRows
	if maxRows <= 0 {
		maxRows = p.def.MaxRows
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = p.def.BatchSize
	}
	rowSchema, err := schema.ForMode(opts.Mode)
	if err != nil {
		return nil, err
	}
	kind := source.Detect(path)

	run := &store.DatasetRun{
		ID:        uuid.New(),
		Name:      filepath.Base(path),
		Status:    store.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := p.repo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	log := p.log.With("run_id", run.ID, "file", run.Name, "schema", rowSchema.Name())
	log.InfoContext(ctx, "ingestion started",
		"kind", kind.String(),
		"max_rows", maxRows,
		"batch_size", batchSize,
	)

	tr := newTracker(p.repo, log, run, p.def.ProgressInterval, p.def.ErrorCap)

	src, err := p.openSource(path, maxRows)
	if err != nil {
		tr.finish(ctx, store.RunStatusFailed)
		return nil, fmt.Errorf("open %s: %w", run.Name, err)
	}
	defer src.Close()

	cm := newCommitter(p.repo, log, tr, batchSize)

	var ordinal int64
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			tr.finish(ctx, store.RunStatusFailed)
			return nil, fmt.Errorf("read %s: %w", run.Name, err)
		}
		ordinal++

		rec, rerr := rowSchema.Normalize(ordinal, row)
		if rerr != nil {
			tr.recordFailure(rerr)
			continue
		}

		// Streaming inputs commit row by row so a mid-file fault loses
		// nothing already read; whole-file inputs go through batches.
		if kind == source.KindStream {
			cm.commitOne(ctx, ordinal, rec)
		} else {
			cm.add(ctx, ordinal, rec)
		}
	}
	cm.flush(ctx)

	if err := tr.finish(ctx, store.RunStatusCompleted); err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "ingestion finished",
		"processed", tr.processed,
		"failed", tr.failed,
	)

	return &Result{
		Success:          true,
		RecordsProcessed: tr.processed,
		RecordsFailed:    tr.failed,
		DatasetRunID:     run.ID,
		Errors:           tr.errors,
	}, nil
}

// cleanup removes the run's input file. Removal failure is logged only; a
// stranded temp file must not fail an otherwise good run.
func (p *Pipeline) cleanup(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.log.WarnContext(ctx, "input file cleanup failed", "file", path, "error", err)
	}
}
