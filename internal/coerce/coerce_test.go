package coerce

import (
	"testing"
)

func TestCleanCell(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  hello  ", "hello"},
		{`="12345"`, "12345"},
		{"=SUM", "SUM"},
		{`"quoted"`, "quoted"},
		{"'single'", "single"},
		{"", ""},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := CleanCell(tt.in); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToInt8(t *testing.T) {
	tests := []struct {
		in    string
		want  int64
		valid bool
	}{
		{"42", 42, true},
		{"-7", -7, true},
		{"3.9", 3, true}, // truncated toward zero
		{"-3.9", -3, true},
		{"", 0, false},
		{"   ", 0, false},
		{"abc", 0, false},
		{"12e2", 1200, true},
	}
	for _, tt := range tests {
		got := ToInt8(tt.in)
		if got.Valid != tt.valid {
			t.Errorf("ToInt8(%q).Valid = %v, want %v", tt.in, got.Valid, tt.valid)
			continue
		}
		if got.Valid && got.Int64 != tt.want {
			t.Errorf("ToInt8(%q) = %d, want %d", tt.in, got.Int64, tt.want)
		}
	}
}

func TestToInt4Range(t *testing.T) {
	if got := ToInt4("2147483647"); !got.Valid || got.Int32 != 2147483647 {
		t.Errorf("ToInt4(max int32) = %+v", got)
	}
	if got := ToInt4("2147483648"); got.Valid {
		t.Error("ToInt4 beyond int32 range should be invalid")
	}
	if got := ToInt4("-2147483649"); got.Valid {
		t.Error("ToInt4 below int32 range should be invalid")
	}
}

func TestToNumeric(t *testing.T) {
	tests := []struct {
		in    string
		want  float64
		valid bool
	}{
		{"68.50", 68.5, true},
		{"$1,234.56", 1234.56, true},
		{"€99", 99, true},
		{"£42.00", 42, true},
		{"(123.45)", -123.45, true},
		{"( $500 )", -500, true},
		{"", 0, false},
		{"lots", 0, false},
		{"12.34.56", 0, false},
	}
	for _, tt := range tests {
		got := ToNumeric(tt.in)
		if got.Valid != tt.valid {
			t.Errorf("ToNumeric(%q).Valid = %v, want %v", tt.in, got.Valid, tt.valid)
			continue
		}
		if !got.Valid {
			continue
		}
		// Compare values; the digits/exponent split is an internal detail of
		// pgtype.Numeric.
		f, err := got.Float64Value()
		if err != nil {
			t.Errorf("ToNumeric(%q).Float64Value: %v", tt.in, err)
			continue
		}
		if f.Float64 != tt.want {
			t.Errorf("ToNumeric(%q) = %v, want %v", tt.in, f.Float64, tt.want)
		}
	}
}

func TestToNumericNegativeSign(t *testing.T) {
	n := ToNumeric("(50.00)")
	if !n.Valid || n.Int.Sign() >= 0 {
		t.Errorf("accounting format should produce a negative value, got %+v", n)
	}
	n = ToNumeric("50.00")
	if !n.Valid || n.Int.Sign() < 0 {
		t.Errorf("plain amount should be non-negative, got %+v", n)
	}
}

func TestToBool(t *testing.T) {
	truthy := []string{"true", "TRUE", "t", "yes", "Y", "1", " True "}
	for _, s := range truthy {
		if !ToBool(s) {
			t.Errorf("ToBool(%q) = false, want true", s)
		}
	}
	falsy := []string{"false", "0", "no", "", "  ", "2", "on"}
	for _, s := range falsy {
		if ToBool(s) {
			t.Errorf("ToBool(%q) = true, want false", s)
		}
	}
}

func TestToChar(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		valid bool
	}{
		{"T", "T", true},
		{" F ", "F", true},
		{"True", "T", true}, // first rune only
		{"", "", false},
		{"  ", "", false},
	}
	for _, tt := range tests {
		got := ToChar(tt.in)
		if got.Valid != tt.valid {
			t.Errorf("ToChar(%q).Valid = %v, want %v", tt.in, got.Valid, tt.valid)
			continue
		}
		if got.Valid && got.String != tt.want {
			t.Errorf("ToChar(%q) = %q, want %q", tt.in, got.String, tt.want)
		}
	}
}

// Coercion must be idempotent: formatting a coerced value and coercing it
// again yields the same typed value.
func TestIdempotence(t *testing.T) {
	if first := ToInt8("3.9"); first.Valid {
		again := ToInt8("3")
		if !again.Valid || again.Int64 != first.Int64 {
			t.Errorf("ToInt8 not idempotent: %d vs %d", first.Int64, again.Int64)
		}
	}
	if first := ToChar("True"); first.Valid {
		again := ToChar(first.String)
		if !again.Valid || again.String != first.String {
			t.Errorf("ToChar not idempotent: %q vs %q", first.String, again.String)
		}
	}
	if first := ToNumeric("$1,000.00"); first.Valid {
		again := ToNumeric("1000.00")
		if !again.Valid || first.Int.Cmp(again.Int) != 0 || first.Exp != again.Exp {
			t.Errorf("ToNumeric not idempotent: %+v vs %+v", first, again)
		}
	}
}
