package schema

import (
	"github.com/entropylabs/ingest/internal/coerce"
	"github.com/entropylabs/ingest/internal/source"
	"github.com/entropylabs/ingest/internal/store"
)

// FeatureSchema normalizes the pre-engineered feature export: one flat row
// per transaction, string keys, no sub-records.
type FeatureSchema struct{}

func (FeatureSchema) Name() string { return "feature_transaction" }

func (FeatureSchema) Normalize(ordinal int64, row source.RawRow) (*store.Record, *RowError) {
	key := cell(row, "transaction_id")
	if key == "" {
		return nil, reject(ordinal, "", "missing mandatory field transaction_id")
	}

	amt := coerce.ToNumeric(cell(row, "amount_ngn"))
	if !amt.Valid {
		return nil, reject(ordinal, key, "missing or invalid mandatory field amount_ngn")
	}
	if amt.Int != nil && amt.Int.Sign() < 0 {
		return nil, reject(ordinal, key, "negative amount_ngn")
	}

	f := &store.FeatureTransaction{
		TransactionID:   key,
		Amount:          amt,
		TxnHour:         coerce.ToInt4(cell(row, "txn_hour")),
		TxnDayOfWeek:    coerce.ToInt4(cell(row, "txn_dayofweek")),
		SenderAccount:   coerce.ToText(cell(row, "sender_account")),
		DeviceHash:      coerce.ToText(cell(row, "device_hash")),
		IPAddress:       coerce.ToText(cell(row, "ip_address")),
		TransactionType: coerce.Categorical(cell(row, "transaction_type"), store.CategoryUnknown),
		IsForeign:       coerce.ToBool(cell(row, "is_foreign")),
		IsFraud:         coerce.ToBool(cell(row, "is_fraud")),
		Status:          store.TxnStatusPending,
	}

	return &store.Record{Feature: f}, nil
}
