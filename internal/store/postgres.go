package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Postgres implements Repository on a pgx connection pool.
// Construct it in main and pass it down; nothing in this package holds a
// process-wide handle.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres repository backed by the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// transactionColumns lists the transactions table columns in the order
// transactionRow produces values. Shared by the single INSERT and the COPY
// bulk path so the two can never drift.
var transactionColumns = []string{
	"transaction_id", "transaction_dt", "transaction_amt", "product_cd",
	"card1", "card2", "card3", "card4", "card5", "card6",
	"addr1", "addr2", "dist1", "dist2",
	"p_emaildomain", "r_emaildomain",
	"c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8", "c9", "c10", "c11", "c12", "c13", "c14",
	"d1", "d2", "d3", "d4", "d5", "d6", "d7", "d8", "d9", "d10", "d11", "d12", "d13", "d14", "d15",
	"m1", "m2", "m3", "m4", "m5", "m6", "m7", "m8", "m9",
	"status",
}

// transactionRow converts a Transaction to a value slice matching
// transactionColumns exactly.
func transactionRow(t *Transaction) []any {
	return []any{
		t.TransactionID, t.TransactionDT, t.TransactionAmt, t.ProductCD,
		t.Card1, t.Card2, t.Card3, t.Card4, t.Card5, t.Card6,
		t.Addr1, t.Addr2, t.Dist1, t.Dist2,
		t.PEmailDomain, t.REmailDomain,
		t.C1, t.C2, t.C3, t.C4, t.C5, t.C6, t.C7, t.C8, t.C9, t.C10, t.C11, t.C12, t.C13, t.C14,
		t.D1, t.D2, t.D3, t.D4, t.D5, t.D6, t.D7, t.D8, t.D9, t.D10, t.D11, t.D12, t.D13, t.D14, t.D15,
		t.M1, t.M2, t.M3, t.M4, t.M5, t.M6, t.M7, t.M8, t.M9,
		t.Status,
	}
}

var identityColumns = []string{
	"transaction_id",
	"id_01", "id_02", "id_03", "id_04", "id_05", "id_06", "id_07", "id_08", "id_09", "id_10", "id_11",
	"id_12", "id_13", "id_14", "id_15", "id_16", "id_17", "id_18", "id_19", "id_20",
	"id_21", "id_22", "id_23", "id_24", "id_25", "id_26", "id_27", "id_28", "id_29", "id_30",
	"id_31", "id_32", "id_33", "id_34", "id_35", "id_36", "id_37", "id_38",
	"device_type", "device_info",
}

func identityRow(txnID int64, id *Identity) []any {
	return []any{
		txnID,
		id.ID01, id.ID02, id.ID03, id.ID04, id.ID05, id.ID06, id.ID07, id.ID08, id.ID09, id.ID10, id.ID11,
		id.ID12, id.ID13, id.ID14, id.ID15, id.ID16, id.ID17, id.ID18, id.ID19, id.ID20,
		id.ID21, id.ID22, id.ID23, id.ID24, id.ID25, id.ID26, id.ID27, id.ID28, id.ID29, id.ID30,
		id.ID31, id.ID32, id.ID33, id.ID34, id.ID35, id.ID36, id.ID37, id.ID38,
		id.DeviceType, id.DeviceInfo,
	}
}

var featureColumns = []string{
	"transaction_id", "amount", "txn_hour", "txn_day_of_week",
	"sender_account", "device_hash", "ip_address", "transaction_type",
	"is_foreign", "is_fraud", "status",
}

func featureRow(f *FeatureTransaction) []any {
	return []any{
		f.TransactionID, f.Amount, f.TxnHour, f.TxnDayOfWeek,
		f.SenderAccount, f.DeviceHash, f.IPAddress, f.TransactionType,
		f.IsForeign, f.IsFraud, f.Status,
	}
}

// Prebuilt INSERT statements.
var (
	insertTransactionSQL = buildInsert("transactions", transactionColumns)
	insertIdentitySQL    = buildInsert("transaction_identity", identityColumns)
	insertFeatureSQL     = buildInsert("feature_transactions", featureColumns)
)

func buildInsert(table string, cols []string) string {
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
}

// CreateRun persists a new dataset run.
func (p *Postgres) CreateRun(ctx context.Context, run *DatasetRun) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO dataset_runs (id, name, status, records_processed, started_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.Name, run.Status, run.RecordsProcessed, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// UpdateRunProgress checkpoints the processed-row count.
// The WHERE clause guards against touching terminal runs.
func (p *Postgres) UpdateRunProgress(ctx context.Context, id uuid.UUID, processed int64) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE dataset_runs SET records_processed = $2
		 WHERE id = $1 AND status = $3`,
		id, processed, RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("update run progress: %w", err)
	}
	return nil
}

// FinishRun moves a run to a terminal status.
func (p *Postgres) FinishRun(ctx context.Context, id uuid.UUID, status RunStatus, processed int64, endedAt time.Time) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE dataset_runs SET status = $2, records_processed = $3, ended_at = $4
		 WHERE id = $1 AND status = $5`,
		id, status, processed, endedAt, RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish run: run %s not found or already terminal", id)
	}
	return nil
}

// GetRun returns a run by id.
func (p *Postgres) GetRun(ctx context.Context, id uuid.UUID) (*DatasetRun, error) {
	var run DatasetRun
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, status, records_processed, started_at, ended_at
		 FROM dataset_runs WHERE id = $1`,
		id,
	).Scan(&run.ID, &run.Name, &run.Status, &run.RecordsProcessed, &run.StartedAt, &run.EndedAt)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return &run, nil
}

// CreateRecord persists one record with its optional sub-records atomically.
func (p *Postgres) CreateRecord(ctx context.Context, rec *Record) error {
	if rec.Feature != nil {
		if _, err := p.pool.Exec(ctx, insertFeatureSQL, featureRow(rec.Feature)...); err != nil {
			return fmt.Errorf("insert feature transaction %s: %w", rec.Feature.TransactionID, err)
		}
		return nil
	}

	t := rec.Txn
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertTransaction(ctx, tx, t); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction %d: %w", t.TransactionID, err)
	}
	return nil
}

func insertTransaction(ctx context.Context, db DBTX, t *Transaction) error {
	if _, err := db.Exec(ctx, insertTransactionSQL, transactionRow(t)...); err != nil {
		return fmt.Errorf("insert transaction %d: %w", t.TransactionID, err)
	}
	if t.Identity != nil {
		if _, err := db.Exec(ctx, insertIdentitySQL, identityRow(t.TransactionID, t.Identity)...); err != nil {
			return fmt.Errorf("insert identity for %d: %w", t.TransactionID, err)
		}
	}
	if len(t.VFeatures) > 0 {
		payload, err := json.Marshal(t.VFeatures)
		if err != nil {
			return fmt.Errorf("marshal v-features for %d: %w", t.TransactionID, err)
		}
		if _, err := db.Exec(ctx,
			`INSERT INTO transaction_vfeatures (transaction_id, features) VALUES ($1, $2)`,
			t.TransactionID, payload,
		); err != nil {
			return fmt.Errorf("insert v-features for %d: %w", t.TransactionID, err)
		}
	}
	return nil
}

// CreateRecords persists a batch in one bulk operation. Parent rows go
// through the COPY protocol; sub-records follow as inserts in the same
// transaction. Any failure rolls back the whole batch.
func (p *Postgres) CreateRecords(ctx context.Context, recs []*Record) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback(ctx)

	if recs[0].Feature != nil {
		rows := make([][]any, len(recs))
		for i, rec := range recs {
			rows[i] = featureRow(rec.Feature)
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"feature_transactions"}, featureColumns, pgx.CopyFromRows(rows),
		); err != nil {
			return fmt.Errorf("copy feature batch: %w", err)
		}
	} else {
		rows := make([][]any, len(recs))
		for i, rec := range recs {
			rows[i] = transactionRow(rec.Txn)
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"transactions"}, transactionColumns, pgx.CopyFromRows(rows),
		); err != nil {
			return fmt.Errorf("copy transaction batch: %w", err)
		}

		for _, rec := range recs {
			t := rec.Txn
			if t.Identity != nil {
				if _, err := tx.Exec(ctx, insertIdentitySQL, identityRow(t.TransactionID, t.Identity)...); err != nil {
					return fmt.Errorf("insert identity for %d: %w", t.TransactionID, err)
				}
			}
			if len(t.VFeatures) > 0 {
				payload, err := json.Marshal(t.VFeatures)
				if err != nil {
					return fmt.Errorf("marshal v-features for %d: %w", t.TransactionID, err)
				}
				if _, err := tx.Exec(ctx,
					`INSERT INTO transaction_vfeatures (transaction_id, features) VALUES ($1, $2)`,
					t.TransactionID, payload,
				); err != nil {
					return fmt.Errorf("insert v-features for %d: %w", t.TransactionID, err)
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// GetFeatures returns the scoring feature vector for a stored record.
// Numeric keys resolve against the raw transactions table; other keys
// against feature_transactions.
func (p *Postgres) GetFeatures(ctx context.Context, key string) (map[string]float64, error) {
	if id, perr := strconv.ParseInt(key, 10, 64); perr == nil {
		var amt float64
		var feats map[string]float64
		err := p.pool.QueryRow(ctx,
			`SELECT t.transaction_amt, COALESCE(v.features, '{}'::jsonb)
			 FROM transactions t
			 LEFT JOIN transaction_vfeatures v ON v.transaction_id = t.transaction_id
			 WHERE t.transaction_id = $1`,
			id,
		).Scan(&amt, &feats)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", key, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("get features for %s: %w", key, err)
		}
		if feats == nil {
			feats = make(map[string]float64, 1)
		}
		feats["TransactionAmt"] = amt
		return feats, nil
	}

	var (
		amt       float64
		hour, day *int32
		isForeign bool
	)
	err := p.pool.QueryRow(ctx,
		`SELECT amount, txn_hour, txn_day_of_week, is_foreign
		 FROM feature_transactions WHERE transaction_id = $1`,
		key,
	).Scan(&amt, &hour, &day, &isForeign)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get features for %s: %w", key, err)
	}

	feats := map[string]float64{"amount_ngn": amt}
	if hour != nil {
		feats["txn_hour"] = float64(*hour)
	}
	if day != nil {
		feats["txn_dayofweek"] = float64(*day)
	}
	if isForeign {
		feats["is_foreign"] = 1
	}
	return feats, nil
}
