package store

import (
	"context"
	"fmt"
)

// migrations are applied in order on startup. Statements are idempotent so
// a restart against an existing database is a no-op.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS dataset_runs (
		id                 UUID PRIMARY KEY,
		name               TEXT NOT NULL,
		status             TEXT NOT NULL,
		records_processed  BIGINT NOT NULL DEFAULT 0,
		started_at         TIMESTAMPTZ NOT NULL,
		ended_at           TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		transaction_id   BIGINT PRIMARY KEY,
		transaction_dt   BIGINT NOT NULL,
		transaction_amt  NUMERIC NOT NULL,
		product_cd       TEXT NOT NULL,
		card1 BIGINT, card2 BIGINT, card3 BIGINT,
		card4 TEXT NOT NULL,
		card5 BIGINT,
		card6 TEXT NOT NULL,
		addr1 DOUBLE PRECISION, addr2 DOUBLE PRECISION,
		dist1 DOUBLE PRECISION, dist2 DOUBLE PRECISION,
		p_emaildomain TEXT NOT NULL,
		r_emaildomain TEXT NOT NULL,
		c1 DOUBLE PRECISION, c2 DOUBLE PRECISION, c3 DOUBLE PRECISION, c4 DOUBLE PRECISION,
		c5 DOUBLE PRECISION, c6 DOUBLE PRECISION, c7 DOUBLE PRECISION, c8 DOUBLE PRECISION,
		c9 DOUBLE PRECISION, c10 DOUBLE PRECISION, c11 DOUBLE PRECISION, c12 DOUBLE PRECISION,
		c13 DOUBLE PRECISION, c14 DOUBLE PRECISION,
		d1 DOUBLE PRECISION, d2 DOUBLE PRECISION, d3 DOUBLE PRECISION, d4 DOUBLE PRECISION,
		d5 DOUBLE PRECISION, d6 DOUBLE PRECISION, d7 DOUBLE PRECISION, d8 DOUBLE PRECISION,
		d9 DOUBLE PRECISION, d10 DOUBLE PRECISION, d11 DOUBLE PRECISION, d12 DOUBLE PRECISION,
		d13 DOUBLE PRECISION, d14 DOUBLE PRECISION, d15 DOUBLE PRECISION,
		m1 CHAR(1), m2 CHAR(1), m3 CHAR(1), m4 CHAR(1), m5 CHAR(1),
		m6 CHAR(1), m7 CHAR(1), m8 CHAR(1), m9 CHAR(1),
		status TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS transaction_identity (
		transaction_id BIGINT PRIMARY KEY REFERENCES transactions(transaction_id) ON DELETE CASCADE,
		id_01 DOUBLE PRECISION, id_02 DOUBLE PRECISION, id_03 DOUBLE PRECISION,
		id_04 DOUBLE PRECISION, id_05 DOUBLE PRECISION, id_06 DOUBLE PRECISION,
		id_07 DOUBLE PRECISION, id_08 DOUBLE PRECISION, id_09 DOUBLE PRECISION,
		id_10 DOUBLE PRECISION, id_11 DOUBLE PRECISION,
		id_12 TEXT, id_13 TEXT, id_14 TEXT, id_15 TEXT, id_16 TEXT, id_17 TEXT,
		id_18 TEXT, id_19 TEXT, id_20 TEXT, id_21 TEXT, id_22 TEXT, id_23 TEXT,
		id_24 TEXT, id_25 TEXT, id_26 TEXT, id_27 TEXT, id_28 TEXT, id_29 TEXT,
		id_30 TEXT, id_31 TEXT, id_32 TEXT, id_33 TEXT, id_34 TEXT, id_35 TEXT,
		id_36 TEXT, id_37 TEXT, id_38 TEXT,
		device_type TEXT,
		device_info TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS transaction_vfeatures (
		transaction_id BIGINT PRIMARY KEY REFERENCES transactions(transaction_id) ON DELETE CASCADE,
		features JSONB NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS feature_transactions (
		transaction_id   TEXT PRIMARY KEY,
		amount           NUMERIC NOT NULL,
		txn_hour         INTEGER,
		txn_day_of_week  INTEGER,
		sender_account   TEXT,
		device_hash      TEXT,
		ip_address       TEXT,
		transaction_type TEXT NOT NULL,
		is_foreign       BOOLEAN NOT NULL DEFAULT FALSE,
		is_fraud         BOOLEAN NOT NULL DEFAULT FALSE,
		status           TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_dataset_runs_started_at ON dataset_runs (started_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions (status)`,
}

// Migrate creates the schema if it does not exist yet.
func (p *Postgres) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
