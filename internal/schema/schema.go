// Package schema normalizes raw rows into validated store records.
//
// Two row schemas exist side by side: the wide raw-transaction schema
// (transaction file plus identity and V-feature column groups) and the
// narrow pre-engineered feature schema. Both follow the same contract —
// mandatory identifying fields reject the row when absent, mandatory numeric
// fields reject when absent or negative, and every optional field coerces
// fail-soft to NULL or a type-appropriate default.
package schema

import (
	"fmt"

	"github.com/entropylabs/ingest/internal/source"
	"github.com/entropylabs/ingest/internal/store"
)

// Mode selects which row schema an ingestion run uses.
type Mode string

const (
	// ModeRaw ingests the wide multi-group raw-feature schema.
	ModeRaw Mode = "raw"
	// ModeFeatures ingests the narrow pre-engineered feature schema.
	ModeFeatures Mode = "features"
)

// RowError describes one rejected or failed row.
type RowError struct {
	// Row is the 1-based data-row ordinal within the input file.
	Row int64 `json:"row"`
	// Key is the row's identifying key, when one could be extracted.
	Key string `json:"key,omitempty"`
	// Reason is a human-readable rejection reason.
	Reason string `json:"reason"`
}

// RowSchema maps a raw row into a structured, schema-validated record or a
// rejection reason. Implementations are stateless and safe for reuse across
// runs.
type RowSchema interface {
	// Name identifies the schema in logs and run metadata.
	Name() string

	// Normalize validates and converts one row. Exactly one return value is
	// non-nil.
	Normalize(ordinal int64, row source.RawRow) (*store.Record, *RowError)
}

// ForMode returns the schema variant for an ingestion mode.
func ForMode(m Mode) (RowSchema, error) {
	switch m {
	case ModeRaw, "":
		return RawTransactionSchema{}, nil
	case ModeFeatures:
		return FeatureSchema{}, nil
	default:
		return nil, fmt.Errorf("unknown ingestion mode %q", m)
	}
}

func reject(ordinal int64, key, format string, args ...any) *RowError {
	return &RowError{Row: ordinal, Key: key, Reason: fmt.Sprintf(format, args...)}
}
