package schema

import (
	"strings"
	"testing"

	"github.com/entropylabs/ingest/internal/source"
)

func rawRow(cells map[string]string) source.RawRow {
	r := make(source.RawRow, len(cells))
	for k, v := range cells {
		r[strings.ToLower(k)] = v
	}
	return r
}

func TestRawTransactionNormalize(t *testing.T) {
	s := RawTransactionSchema{}

	rec, rerr := s.Normalize(1, rawRow(map[string]string{
		"TransactionID":  "2987000",
		"TransactionDT":  "86400",
		"TransactionAmt": "68.50",
		"ProductCD":      "W",
		"card1":          "13926",
		"card4":          "visa",
		"card6":          "debit",
		"C1":             "1.0",
		"D1":             "14",
		"M1":             "T",
	}))
	if rerr != nil {
		t.Fatalf("Normalize returned error: %v", rerr.Reason)
	}
	txn := rec.Txn
	if txn == nil {
		t.Fatal("expected a raw transaction record")
	}
	if txn.TransactionID != 2987000 {
		t.Errorf("TransactionID = %d, want 2987000", txn.TransactionID)
	}
	if txn.TransactionDT != 86400 {
		t.Errorf("TransactionDT = %d, want 86400", txn.TransactionDT)
	}
	if txn.ProductCD != "W" {
		t.Errorf("ProductCD = %q, want W", txn.ProductCD)
	}
	if !txn.Card1.Valid || txn.Card1.Int64 != 13926 {
		t.Errorf("Card1 = %+v, want 13926", txn.Card1)
	}
	if !txn.C1.Valid || txn.C1.Float64 != 1.0 {
		t.Errorf("C1 = %+v, want 1.0", txn.C1)
	}
	if !txn.M1.Valid || txn.M1.String != "T" {
		t.Errorf("M1 = %+v, want T", txn.M1)
	}
	if txn.Status != "PENDING" {
		t.Errorf("Status = %q, want PENDING", txn.Status)
	}
	if txn.Identity != nil {
		t.Error("expected no identity sub-record")
	}
	if txn.VFeatures != nil {
		t.Error("expected no V features")
	}
}

func TestRawTransactionMandatoryFields(t *testing.T) {
	s := RawTransactionSchema{}
	base := map[string]string{
		"TransactionID":  "100",
		"TransactionDT":  "500",
		"TransactionAmt": "10.00",
	}
	tests := []struct {
		name     string
		mutate   func(map[string]string)
		wantWord string
	}{
		{"missing id", func(m map[string]string) { delete(m, "TransactionID") }, "TransactionID"},
		{"blank id", func(m map[string]string) { m["TransactionID"] = "  " }, "TransactionID"},
		{"non-numeric id", func(m map[string]string) { m["TransactionID"] = "abc" }, "TransactionID"},
		{"missing dt", func(m map[string]string) { delete(m, "TransactionDT") }, "TransactionDT"},
		{"negative dt", func(m map[string]string) { m["TransactionDT"] = "-5" }, "negative"},
		{"missing amt", func(m map[string]string) { delete(m, "TransactionAmt") }, "TransactionAmt"},
		{"garbage amt", func(m map[string]string) { m["TransactionAmt"] = "lots" }, "TransactionAmt"},
		{"negative amt", func(m map[string]string) { m["TransactionAmt"] = "-3.50" }, "negative"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cells := make(map[string]string, len(base))
			for k, v := range base {
				cells[k] = v
			}
			tc.mutate(cells)
			rec, rerr := s.Normalize(7, rawRow(cells))
			if rerr == nil {
				t.Fatalf("expected rejection, got record %+v", rec)
			}
			if rerr.Row != 7 {
				t.Errorf("Row = %d, want 7", rerr.Row)
			}
			if !strings.Contains(rerr.Reason, tc.wantWord) {
				t.Errorf("Reason = %q, want mention of %q", rerr.Reason, tc.wantWord)
			}
		})
	}
}

func TestRawTransactionFailSoftOptionals(t *testing.T) {
	s := RawTransactionSchema{}
	rec, rerr := s.Normalize(1, rawRow(map[string]string{
		"TransactionID":  "42",
		"TransactionDT":  "100",
		"TransactionAmt": "5.00",
		"card1":          "not-a-number",
		"addr1":          "???",
		"ProductCD":      "",
		"M4":             "",
	}))
	if rerr != nil {
		t.Fatalf("optional garbage must not reject the row: %v", rerr.Reason)
	}
	txn := rec.Txn
	if txn.Card1.Valid {
		t.Error("unparsable card1 should be NULL")
	}
	if txn.Addr1.Valid {
		t.Error("unparsable addr1 should be NULL")
	}
	if txn.ProductCD != "UNKNOWN" {
		t.Errorf("empty ProductCD = %q, want UNKNOWN", txn.ProductCD)
	}
	if txn.M4.Valid {
		t.Error("empty M4 should be NULL")
	}
}

func TestRawTransactionIdentityGroup(t *testing.T) {
	s := RawTransactionSchema{}
	base := map[string]string{
		"TransactionID":  "9",
		"TransactionDT":  "1",
		"TransactionAmt": "1.00",
	}

	rec, _ := s.Normalize(1, rawRow(base))
	if rec.Txn.Identity != nil {
		t.Fatal("identity should be nil with no identity columns")
	}

	base["id_02"] = "70787"
	base["DeviceType"] = "mobile"
	rec, _ = s.Normalize(1, rawRow(base))
	id := rec.Txn.Identity
	if id == nil {
		t.Fatal("identity should be attached when any identity column carries a value")
	}
	if !id.ID02.Valid || id.ID02.Float64 != 70787 {
		t.Errorf("ID02 = %+v, want 70787", id.ID02)
	}
	if !id.DeviceType.Valid || id.DeviceType.String != "mobile" {
		t.Errorf("DeviceType = %+v, want mobile", id.DeviceType)
	}
	if id.ID12.Valid {
		t.Error("absent id_12 should be NULL")
	}
}

func TestRawTransactionVFeatures(t *testing.T) {
	s := RawTransactionSchema{}
	rec, rerr := s.Normalize(1, rawRow(map[string]string{
		"TransactionID":  "9",
		"TransactionDT":  "1",
		"TransactionAmt": "1.00",
		"V1":             "1.0",
		"V3":             "0.5",
		"V2":             "9.9", // not in the selected set
		"V4":             "junk",
	}))
	if rerr != nil {
		t.Fatalf("unexpected rejection: %v", rerr.Reason)
	}
	v := rec.Txn.VFeatures
	if len(v) != 2 {
		t.Fatalf("VFeatures = %v, want exactly V1 and V3", v)
	}
	if v["V1"] != 1.0 || v["V3"] != 0.5 {
		t.Errorf("VFeatures = %v, want V1=1.0 V3=0.5", v)
	}
}
