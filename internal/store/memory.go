package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-memory Repository used by tests and local development.
// Failure injection hooks let tests exercise the pipeline's fault paths
// without a database.
type Memory struct {
	mu      sync.Mutex
	runs    map[uuid.UUID]*DatasetRun
	records map[string]*Record

	// BatchSizes records the size of every CreateRecords call, in order.
	BatchSizes []int
	// ProgressUpdates records every UpdateRunProgress value, in order.
	ProgressUpdates []int64

	// FailKeys makes CreateRecord fail for records with these keys.
	FailKeys map[string]error
	// FailBatches makes the next N CreateRecords calls fail.
	FailBatches int
	// FailFinish makes every FinishRun call fail.
	FailFinish error
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		runs:     make(map[uuid.UUID]*DatasetRun),
		records:  make(map[string]*Record),
		FailKeys: make(map[string]error),
	}
}

func (m *Memory) CreateRun(ctx context.Context, run *DatasetRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *Memory) UpdateRunProgress(ctx context.Context, id uuid.UUID, processed int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok {
		return fmt.Errorf("run %s not found", id)
	}
	if run.Terminal() {
		return fmt.Errorf("run %s is terminal", id)
	}
	run.RecordsProcessed = processed
	m.ProgressUpdates = append(m.ProgressUpdates, processed)
	return nil
}

func (m *Memory) FinishRun(ctx context.Context, id uuid.UUID, status RunStatus, processed int64, endedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailFinish != nil {
		return m.FailFinish
	}
	run, ok := m.runs[id]
	if !ok {
		return fmt.Errorf("run %s not found", id)
	}
	if run.Terminal() {
		return fmt.Errorf("run %s is already terminal", id)
	}
	run.Status = status
	run.RecordsProcessed = processed
	run.EndedAt = &endedAt
	return nil
}

func (m *Memory) GetRun(ctx context.Context, id uuid.UUID) (*DatasetRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s not found", id)
	}
	cp := *run
	return &cp, nil
}

func (m *Memory) CreateRecord(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(rec)
}

func (m *Memory) CreateRecords(ctx context.Context, recs []*Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailBatches > 0 {
		m.FailBatches--
		return fmt.Errorf("injected batch failure")
	}

	// All-or-nothing, like a single COPY transaction.
	for _, rec := range recs {
		if err, ok := m.FailKeys[rec.Key()]; ok {
			return fmt.Errorf("batch record %s: %w", rec.Key(), err)
		}
		if _, exists := m.records[rec.Key()]; exists {
			return fmt.Errorf("batch record %s: duplicate key", rec.Key())
		}
	}
	for _, rec := range recs {
		if err := m.createLocked(rec); err != nil {
			return err
		}
	}
	m.BatchSizes = append(m.BatchSizes, len(recs))
	return nil
}

func (m *Memory) createLocked(rec *Record) error {
	key := rec.Key()
	if err, ok := m.FailKeys[key]; ok {
		return err
	}
	if _, exists := m.records[key]; exists {
		return fmt.Errorf("record %s: duplicate key", key)
	}
	m.records[key] = rec
	return nil
}

// GetFeatures returns the scoring feature vector for a stored record.
func (m *Memory) GetFeatures(ctx context.Context, key string) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[key]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", key, ErrNotFound)
	}
	return rec.FeatureMap(), nil
}

// Runs returns copies of every stored run.
func (m *Memory) Runs() []*DatasetRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*DatasetRun, 0, len(m.runs))
	for _, run := range m.runs {
		cp := *run
		out = append(out, &cp)
	}
	return out
}

// RecordCount returns the number of stored records.
func (m *Memory) RecordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// GetRecord returns a stored record by key.
func (m *Memory) GetRecord(key string) (*Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	return rec, ok
}
