// Package store defines the persistence model for ingested transaction data
// and the repository capability the ingestion pipeline writes through.
// The pipeline owns records until they are handed to the repository; after
// that the store owns them.
package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// RunStatus is the lifecycle state of a dataset run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// TxnStatusPending is the fixed status assigned to every transaction at
// creation. Downstream scoring moves it out of this state.
const TxnStatusPending = "PENDING"

// CategoryUnknown is the default for absent or unparsable categorical fields.
const CategoryUnknown = "UNKNOWN"

// DatasetRun tracks one ingestion run against one input file.
// RecordsProcessed is monotonically non-decreasing; EndedAt stays nil until
// the run reaches a terminal status and the record is immutable after that.
type DatasetRun struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Status           RunStatus  `json:"status"`
	RecordsProcessed int64      `json:"recordsProcessed"`
	StartedAt        time.Time  `json:"startedAt"`
	EndedAt          *time.Time `json:"endedAt,omitempty"`
}

// Terminal reports whether the run has reached COMPLETED or FAILED.
func (r *DatasetRun) Terminal() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusFailed
}

// Transaction is the wide raw-schema projection of one input row.
// Invalid or absent optional cells become pgtype values with Valid=false
// (NULL in the store); categorical fields default to CategoryUnknown.
type Transaction struct {
	TransactionID  int64
	TransactionDT  int64
	TransactionAmt pgtype.Numeric
	ProductCD      string
	Card1          pgtype.Int8
	Card2          pgtype.Int8
	Card3          pgtype.Int8
	Card4          string
	Card5          pgtype.Int8
	Card6          string
	Addr1          pgtype.Float8
	Addr2          pgtype.Float8
	Dist1          pgtype.Float8
	Dist2          pgtype.Float8
	PEmailDomain   string
	REmailDomain   string

	C1  pgtype.Float8
	C2  pgtype.Float8
	C3  pgtype.Float8
	C4  pgtype.Float8
	C5  pgtype.Float8
	C6  pgtype.Float8
	C7  pgtype.Float8
	C8  pgtype.Float8
	C9  pgtype.Float8
	C10 pgtype.Float8
	C11 pgtype.Float8
	C12 pgtype.Float8
	C13 pgtype.Float8
	C14 pgtype.Float8

	D1  pgtype.Float8
	D2  pgtype.Float8
	D3  pgtype.Float8
	D4  pgtype.Float8
	D5  pgtype.Float8
	D6  pgtype.Float8
	D7  pgtype.Float8
	D8  pgtype.Float8
	D9  pgtype.Float8
	D10 pgtype.Float8
	D11 pgtype.Float8
	D12 pgtype.Float8
	D13 pgtype.Float8
	D14 pgtype.Float8
	D15 pgtype.Float8

	// M flags are single-character match indicators ("T"/"F").
	M1 pgtype.Text
	M2 pgtype.Text
	M3 pgtype.Text
	M4 pgtype.Text
	M5 pgtype.Text
	M6 pgtype.Text
	M7 pgtype.Text
	M8 pgtype.Text
	M9 pgtype.Text

	Status string

	// Sub-records, attached only when at least one of their source columns
	// was present in the row. 1:1 with the parent transaction.
	Identity  *Identity
	VFeatures VFeatureVector
}

// Identity holds the device/network identity attributes of a transaction.
// id_01..id_11 are numeric, id_12..id_38 are categorical text.
type Identity struct {
	ID01 pgtype.Float8
	ID02 pgtype.Float8
	ID03 pgtype.Float8
	ID04 pgtype.Float8
	ID05 pgtype.Float8
	ID06 pgtype.Float8
	ID07 pgtype.Float8
	ID08 pgtype.Float8
	ID09 pgtype.Float8
	ID10 pgtype.Float8
	ID11 pgtype.Float8

	ID12 pgtype.Text
	ID13 pgtype.Text
	ID14 pgtype.Text
	ID15 pgtype.Text
	ID16 pgtype.Text
	ID17 pgtype.Text
	ID18 pgtype.Text
	ID19 pgtype.Text
	ID20 pgtype.Text
	ID21 pgtype.Text
	ID22 pgtype.Text
	ID23 pgtype.Text
	ID24 pgtype.Text
	ID25 pgtype.Text
	ID26 pgtype.Text
	ID27 pgtype.Text
	ID28 pgtype.Text
	ID29 pgtype.Text
	ID30 pgtype.Text
	ID31 pgtype.Text
	ID32 pgtype.Text
	ID33 pgtype.Text
	ID34 pgtype.Text
	ID35 pgtype.Text
	ID36 pgtype.Text
	ID37 pgtype.Text
	ID38 pgtype.Text

	DeviceType pgtype.Text
	DeviceInfo pgtype.Text
}

// VFeatureVector is the extended numeric feature vector (the selected V
// columns). Persisted as a single JSONB document keyed by column name.
type VFeatureVector map[string]float64

// FeatureTransaction is the narrow pre-engineered schema projection.
type FeatureTransaction struct {
	TransactionID   string
	Amount          pgtype.Numeric
	TxnHour         pgtype.Int4
	TxnDayOfWeek    pgtype.Int4
	SenderAccount   pgtype.Text
	DeviceHash      pgtype.Text
	IPAddress       pgtype.Text
	TransactionType string
	IsForeign       bool
	IsFraud         bool
	Status          string
}

// Record is one normalized row ready for persistence. Exactly one of the
// fields is set, matching the schema the run was configured with.
type Record struct {
	Txn     *Transaction
	Feature *FeatureTransaction
}

// Key returns the record's identifying key for error reporting.
func (r *Record) Key() string {
	switch {
	case r.Txn != nil:
		return strconv.FormatInt(r.Txn.TransactionID, 10)
	case r.Feature != nil:
		return r.Feature.TransactionID
	}
	return ""
}

// FeatureMap flattens the record into the feature vector the risk scorer
// consumes.
func (r *Record) FeatureMap() map[string]float64 {
	switch {
	case r.Txn != nil:
		m := make(map[string]float64, len(r.Txn.VFeatures)+1)
		if f, err := r.Txn.TransactionAmt.Float64Value(); err == nil && f.Valid {
			m["TransactionAmt"] = f.Float64
		}
		for k, v := range r.Txn.VFeatures {
			m[k] = v
		}
		return m
	case r.Feature != nil:
		m := make(map[string]float64, 4)
		if f, err := r.Feature.Amount.Float64Value(); err == nil && f.Valid {
			m["amount_ngn"] = f.Float64
		}
		if r.Feature.TxnHour.Valid {
			m["txn_hour"] = float64(r.Feature.TxnHour.Int32)
		}
		if r.Feature.TxnDayOfWeek.Valid {
			m["txn_dayofweek"] = float64(r.Feature.TxnDayOfWeek.Int32)
		}
		if r.Feature.IsForeign {
			m["is_foreign"] = 1
		}
		return m
	}
	return nil
}

// Repository is the abstract store capability consumed by the pipeline.
// Implementations must tolerate concurrent runs writing independent records;
// no cross-run synchronization is provided by callers.
type Repository interface {
	// CreateRun persists a new dataset run in RUNNING state.
	CreateRun(ctx context.Context, run *DatasetRun) error

	// UpdateRunProgress checkpoints the processed-row count for a run.
	UpdateRunProgress(ctx context.Context, id uuid.UUID, processed int64) error

	// FinishRun moves a run to a terminal status with its final counts and
	// completion timestamp.
	FinishRun(ctx context.Context, id uuid.UUID, status RunStatus, processed int64, endedAt time.Time) error

	// GetRun returns a run by id.
	GetRun(ctx context.Context, id uuid.UUID) (*DatasetRun, error)

	// CreateRecord persists one record together with its optional nested
	// sub-records, atomically.
	CreateRecord(ctx context.Context, rec *Record) error

	// CreateRecords persists a batch of records in one bulk operation.
	// A failure applies to the whole batch; callers decide whether to retry
	// record by record.
	CreateRecords(ctx context.Context, recs []*Record) error

	// GetFeatures returns a stored record's scoring feature vector by key.
	GetFeatures(ctx context.Context, key string) (map[string]float64, error)
}

// ErrNotFound is returned by lookups for keys that were never stored.
var ErrNotFound = errors.New("not found")
