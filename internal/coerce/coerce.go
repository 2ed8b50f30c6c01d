// Package coerce provides fail-soft type conversion for raw cell values.
//
// Input files mix integers, floats, blanks, currency formatting, and Excel
// artifacts in the same column. Every function here converts without ever
// returning an error: unparsable input becomes a pgtype value with
// Valid=false (NULL downstream) or the documented default. Coercion is
// idempotent — feeding a formatted typed value back through the same rule
// yields the identical typed value.
package coerce

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates a numeric string after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// CleanCell removes common spreadsheet artifacts from a cell value:
// surrounding whitespace, the Excel formula prefix (="..."), and stray
// surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}

// ToText converts a string to pgtype.Text.
// Empty or whitespace-only input is invalid (NULL).
func ToText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// Categorical converts a string to a categorical value, substituting the
// given default for absent input.
func Categorical(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// ToInt8 converts a string to pgtype.Int8 (big-integer fields).
// Fractional input is truncated toward zero; anything unparsable is invalid.
func ToInt8(s string) pgtype.Int8 {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Int8{Valid: false}
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return pgtype.Int8{Int64: i, Valid: true}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return pgtype.Int8{Int64: int64(f), Valid: true}
	}
	return pgtype.Int8{Valid: false}
}

// ToInt4 converts a string to pgtype.Int4.
func ToInt4(s string) pgtype.Int4 {
	i8 := ToInt8(s)
	if !i8.Valid || i8.Int64 > 1<<31-1 || i8.Int64 < -(1<<31) {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(i8.Int64), Valid: true}
}

// ToFloat8 converts a string to pgtype.Float8.
func ToFloat8(s string) pgtype.Float8 {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Float8{Valid: false}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: f, Valid: true}
}

// ToNumeric converts a string to pgtype.Numeric (decimal fields).
// Handles currency symbols, thousands separators, and accounting format
// (parentheses for negative).
func ToNumeric(s string) pgtype.Numeric {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Numeric{Valid: false}
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{Valid: false}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}

// ToBool converts a string to a flag value. A small set of truthy literal
// tokens is accepted case-insensitively; everything else, including absent
// input, is false.
func ToBool(s string) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "true", "t", "yes", "y", "1":
		return true
	default:
		return false
	}
}

// ToChar converts a string to a single-character pgtype.Text holding the
// first rune of the trimmed input. Empty input is invalid (NULL).
func ToChar(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	for _, r := range s {
		return pgtype.Text{String: string(r), Valid: true}
	}
	return pgtype.Text{Valid: false}
}
