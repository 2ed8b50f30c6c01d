package schema

import (
	"fmt"

	"github.com/entropylabs/ingest/internal/coerce"
	"github.com/entropylabs/ingest/internal/source"
	"github.com/entropylabs/ingest/internal/store"
)

// selectedV is the subset of V columns the scoring model consumes. Columns
// outside this set are dropped at ingestion; storing all 339 wastes space on
// features nothing reads.
var selectedV = []int{
	1, 3, 4, 6, 8, 11, 13, 14, 17, 20, 23, 26, 27, 30, 36, 37, 40, 41, 44, 47, 48,
	54, 56, 59, 62, 65, 67, 68, 70, 76, 78, 80, 82, 86, 88, 89, 91, 107, 108, 111,
	115, 117, 120, 121, 123, 124, 127, 129, 130, 136, 138, 139, 142, 147, 156, 160,
	162, 165, 166, 169, 171, 173, 175, 176, 178, 180, 182, 185, 187, 188, 198, 203,
	205, 207, 209, 210, 215, 218, 220, 221, 223, 224, 226, 228, 229, 234, 235, 238,
	240, 250, 252, 253, 257, 258, 260, 261, 264, 266, 267, 271, 274, 277, 281, 283,
	284, 285, 286, 289, 291, 294, 296, 297, 301, 303, 305, 307, 309, 310, 314, 320,
}

// Identity sub-record columns, split by storage type. A row gets an identity
// sub-record only when at least one of these carries a value.
var identityNumericColumns = []string{
	"id_01", "id_02", "id_03", "id_04", "id_05", "id_06",
	"id_07", "id_08", "id_09", "id_10", "id_11",
}

var identityTextColumns = []string{
	"id_12", "id_13", "id_14", "id_15", "id_16", "id_17", "id_18", "id_19",
	"id_20", "id_21", "id_22", "id_23", "id_24", "id_25", "id_26", "id_27",
	"id_28", "id_29", "id_30", "id_31", "id_32", "id_33", "id_34", "id_35",
	"id_36", "id_37", "id_38", "DeviceType", "DeviceInfo",
}

// RawTransactionSchema normalizes the wide multi-group raw schema: the core
// transaction columns plus the optional identity and V-feature groups.
type RawTransactionSchema struct{}

func (RawTransactionSchema) Name() string { return "raw_transaction" }

func (RawTransactionSchema) Normalize(ordinal int64, row source.RawRow) (*store.Record, *RowError) {
	idCell := cell(row, "TransactionID")
	if idCell == "" {
		return nil, reject(ordinal, "", "missing mandatory field TransactionID")
	}
	id := coerce.ToInt8(idCell)
	if !id.Valid {
		return nil, reject(ordinal, idCell, "invalid TransactionID %q", idCell)
	}
	key := idCell

	dt := coerce.ToInt8(cell(row, "TransactionDT"))
	if !dt.Valid {
		return nil, reject(ordinal, key, "missing or invalid mandatory field TransactionDT")
	}
	if dt.Int64 < 0 {
		return nil, reject(ordinal, key, "negative TransactionDT %d", dt.Int64)
	}

	amt := coerce.ToNumeric(cell(row, "TransactionAmt"))
	if !amt.Valid {
		return nil, reject(ordinal, key, "missing or invalid mandatory field TransactionAmt")
	}
	if amt.Int != nil && amt.Int.Sign() < 0 {
		return nil, reject(ordinal, key, "negative TransactionAmt")
	}

	t := &store.Transaction{
		TransactionID:  id.Int64,
		TransactionDT:  dt.Int64,
		TransactionAmt: amt,
		ProductCD:      coerce.Categorical(cell(row, "ProductCD"), store.CategoryUnknown),
		Card1:          coerce.ToInt8(cell(row, "card1")),
		Card2:          coerce.ToInt8(cell(row, "card2")),
		Card3:          coerce.ToInt8(cell(row, "card3")),
		Card4:          coerce.Categorical(cell(row, "card4"), store.CategoryUnknown),
		Card5:          coerce.ToInt8(cell(row, "card5")),
		Card6:          coerce.Categorical(cell(row, "card6"), store.CategoryUnknown),
		Addr1:          coerce.ToFloat8(cell(row, "addr1")),
		Addr2:          coerce.ToFloat8(cell(row, "addr2")),
		Dist1:          coerce.ToFloat8(cell(row, "dist1")),
		Dist2:          coerce.ToFloat8(cell(row, "dist2")),
		PEmailDomain:   coerce.Categorical(cell(row, "P_emaildomain"), store.CategoryUnknown),
		REmailDomain:   coerce.Categorical(cell(row, "R_emaildomain"), store.CategoryUnknown),
		Status:         store.TxnStatusPending,
	}

	t.C1 = coerce.ToFloat8(cell(row, "C1"))
	t.C2 = coerce.ToFloat8(cell(row, "C2"))
	t.C3 = coerce.ToFloat8(cell(row, "C3"))
	t.C4 = coerce.ToFloat8(cell(row, "C4"))
	t.C5 = coerce.ToFloat8(cell(row, "C5"))
	t.C6 = coerce.ToFloat8(cell(row, "C6"))
	t.C7 = coerce.ToFloat8(cell(row, "C7"))
	t.C8 = coerce.ToFloat8(cell(row, "C8"))
	t.C9 = coerce.ToFloat8(cell(row, "C9"))
	t.C10 = coerce.ToFloat8(cell(row, "C10"))
	t.C11 = coerce.ToFloat8(cell(row, "C11"))
	t.C12 = coerce.ToFloat8(cell(row, "C12"))
	t.C13 = coerce.ToFloat8(cell(row, "C13"))
	t.C14 = coerce.ToFloat8(cell(row, "C14"))

	t.D1 = coerce.ToFloat8(cell(row, "D1"))
	t.D2 = coerce.ToFloat8(cell(row, "D2"))
	t.D3 = coerce.ToFloat8(cell(row, "D3"))
	t.D4 = coerce.ToFloat8(cell(row, "D4"))
	t.D5 = coerce.ToFloat8(cell(row, "D5"))
	t.D6 = coerce.ToFloat8(cell(row, "D6"))
	t.D7 = coerce.ToFloat8(cell(row, "D7"))
	t.D8 = coerce.ToFloat8(cell(row, "D8"))
	t.D9 = coerce.ToFloat8(cell(row, "D9"))
	t.D10 = coerce.ToFloat8(cell(row, "D10"))
	t.D11 = coerce.ToFloat8(cell(row, "D11"))
	t.D12 = coerce.ToFloat8(cell(row, "D12"))
	t.D13 = coerce.ToFloat8(cell(row, "D13"))
	t.D14 = coerce.ToFloat8(cell(row, "D14"))
	t.D15 = coerce.ToFloat8(cell(row, "D15"))

	t.M1 = coerce.ToChar(cell(row, "M1"))
	t.M2 = coerce.ToChar(cell(row, "M2"))
	t.M3 = coerce.ToChar(cell(row, "M3"))
	t.M4 = coerce.ToChar(cell(row, "M4"))
	t.M5 = coerce.ToChar(cell(row, "M5"))
	t.M6 = coerce.ToChar(cell(row, "M6"))
	t.M7 = coerce.ToChar(cell(row, "M7"))
	t.M8 = coerce.ToChar(cell(row, "M8"))
	t.M9 = coerce.ToChar(cell(row, "M9"))

	t.Identity = normalizeIdentity(row)
	t.VFeatures = normalizeVFeatures(row)

	return &store.Record{Txn: t}, nil
}

// normalizeIdentity builds the identity sub-record, or nil when none of its
// source columns carry a value.
func normalizeIdentity(row source.RawRow) *store.Identity {
	present := false
	for _, col := range identityNumericColumns {
		if cell(row, col) != "" {
			present = true
			break
		}
	}
	if !present {
		for _, col := range identityTextColumns {
			if cell(row, col) != "" {
				present = true
				break
			}
		}
	}
	if !present {
		return nil
	}

	return &store.Identity{
		ID01: coerce.ToFloat8(cell(row, "id_01")),
		ID02: coerce.ToFloat8(cell(row, "id_02")),
		ID03: coerce.ToFloat8(cell(row, "id_03")),
		ID04: coerce.ToFloat8(cell(row, "id_04")),
		ID05: coerce.ToFloat8(cell(row, "id_05")),
		ID06: coerce.ToFloat8(cell(row, "id_06")),
		ID07: coerce.ToFloat8(cell(row, "id_07")),
		ID08: coerce.ToFloat8(cell(row, "id_08")),
		ID09: coerce.ToFloat8(cell(row, "id_09")),
		ID10: coerce.ToFloat8(cell(row, "id_10")),
		ID11: coerce.ToFloat8(cell(row, "id_11")),

		ID12: coerce.ToText(cell(row, "id_12")),
		ID13: coerce.ToText(cell(row, "id_13")),
		ID14: coerce.ToText(cell(row, "id_14")),
		ID15: coerce.ToText(cell(row, "id_15")),
		ID16: coerce.ToText(cell(row, "id_16")),
		ID17: coerce.ToText(cell(row, "id_17")),
		ID18: coerce.ToText(cell(row, "id_18")),
		ID19: coerce.ToText(cell(row, "id_19")),
		ID20: coerce.ToText(cell(row, "id_20")),
		ID21: coerce.ToText(cell(row, "id_21")),
		ID22: coerce.ToText(cell(row, "id_22")),
		ID23: coerce.ToText(cell(row, "id_23")),
		ID24: coerce.ToText(cell(row, "id_24")),
		ID25: coerce.ToText(cell(row, "id_25")),
		ID26: coerce.ToText(cell(row, "id_26")),
		ID27: coerce.ToText(cell(row, "id_27")),
		ID28: coerce.ToText(cell(row, "id_28")),
		ID29: coerce.ToText(cell(row, "id_29")),
		ID30: coerce.ToText(cell(row, "id_30")),
		ID31: coerce.ToText(cell(row, "id_31")),
		ID32: coerce.ToText(cell(row, "id_32")),
		ID33: coerce.ToText(cell(row, "id_33")),
		ID34: coerce.ToText(cell(row, "id_34")),
		ID35: coerce.ToText(cell(row, "id_35")),
		ID36: coerce.ToText(cell(row, "id_36")),
		ID37: coerce.ToText(cell(row, "id_37")),
		ID38: coerce.ToText(cell(row, "id_38")),

		DeviceType: coerce.ToText(cell(row, "DeviceType")),
		DeviceInfo: coerce.ToText(cell(row, "DeviceInfo")),
	}
}

// normalizeVFeatures collects the selected V columns that parse as numbers,
// or nil when none are present.
func normalizeVFeatures(row source.RawRow) store.VFeatureVector {
	var vec store.VFeatureVector
	for _, n := range selectedV {
		col := fmt.Sprintf("V%d", n)
		f := coerce.ToFloat8(cell(row, col))
		if !f.Valid {
			continue
		}
		if vec == nil {
			vec = make(store.VFeatureVector)
		}
		vec[col] = f.Float64
	}
	return vec
}

// cell returns the cleaned value for a column, or "" when absent.
func cell(row source.RawRow, col string) string {
	v, ok := row.Get(col)
	if !ok {
		return ""
	}
	return coerce.CleanCell(v)
}
