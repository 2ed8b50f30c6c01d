package schema

import (
	"strings"
	"testing"
)

func TestFeatureNormalize(t *testing.T) {
	s := FeatureSchema{}
	rec, rerr := s.Normalize(1, rawRow(map[string]string{
		"transaction_id":   "TXN-0001",
		"amount_ngn":       "2500.00",
		"txn_hour":         "14",
		"txn_dayofweek":    "3",
		"sender_account":   "ACC-77",
		"device_hash":      "abc123",
		"ip_address":       "10.0.0.8",
		"transaction_type": "transfer",
		"is_foreign":       "true",
		"is_fraud":         "0",
	}))
	if rerr != nil {
		t.Fatalf("Normalize returned error: %v", rerr.Reason)
	}
	f := rec.Feature
	if f == nil {
		t.Fatal("expected a feature record")
	}
	if f.TransactionID != "TXN-0001" {
		t.Errorf("TransactionID = %q, want TXN-0001", f.TransactionID)
	}
	if !f.TxnHour.Valid || f.TxnHour.Int32 != 14 {
		t.Errorf("TxnHour = %+v, want 14", f.TxnHour)
	}
	if f.TransactionType != "transfer" {
		t.Errorf("TransactionType = %q, want transfer", f.TransactionType)
	}
	if !f.IsForeign {
		t.Error("is_foreign=true should coerce to true")
	}
	if f.IsFraud {
		t.Error("is_fraud=0 should coerce to false")
	}
	if f.Status != "PENDING" {
		t.Errorf("Status = %q, want PENDING", f.Status)
	}
}

func TestFeatureMandatoryFields(t *testing.T) {
	s := FeatureSchema{}
	tests := []struct {
		name     string
		cells    map[string]string
		wantWord string
	}{
		{"missing id", map[string]string{"amount_ngn": "1.00"}, "transaction_id"},
		{"missing amount", map[string]string{"transaction_id": "T1"}, "amount_ngn"},
		{"garbage amount", map[string]string{"transaction_id": "T1", "amount_ngn": "free"}, "amount_ngn"},
		{"negative amount", map[string]string{"transaction_id": "T1", "amount_ngn": "-10"}, "negative"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, rerr := s.Normalize(3, rawRow(tc.cells))
			if rerr == nil {
				t.Fatalf("expected rejection, got record %+v", rec)
			}
			if !strings.Contains(rerr.Reason, tc.wantWord) {
				t.Errorf("Reason = %q, want mention of %q", rerr.Reason, tc.wantWord)
			}
		})
	}
}

func TestForMode(t *testing.T) {
	tests := []struct {
		mode     Mode
		wantName string
		wantErr  bool
	}{
		{ModeRaw, "raw_transaction", false},
		{Mode(""), "raw_transaction", false},
		{ModeFeatures, "feature_transaction", false},
		{Mode("parquet"), "", true},
	}
	for _, tc := range tests {
		s, err := ForMode(tc.mode)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ForMode(%q): expected error", tc.mode)
			}
			continue
		}
		if err != nil {
			t.Errorf("ForMode(%q): %v", tc.mode, err)
			continue
		}
		if s.Name() != tc.wantName {
			t.Errorf("ForMode(%q).Name() = %q, want %q", tc.mode, s.Name(), tc.wantName)
		}
	}
}
