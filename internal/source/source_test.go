package source

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"data.csv", KindStream},
		{"DATA.CSV", KindStream},
		{"/tmp/uploads/data.csv-1699999999", KindStream},
		{"report.xlsx", KindSheet},
		{"report.xlsx-abc123", KindSheet},
		{"data", KindSheet},
		{"export.tsv", KindSheet},
	}
	for _, tt := range tests {
		if got := Detect(tt.path); got != tt.want {
			t.Errorf("Detect(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func drain(t *testing.T, src RowSource) []RawRow {
	t.Helper()
	var rows []RawRow
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			return rows
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		rows = append(rows, row)
	}
}

func TestCSVSource(t *testing.T) {
	path := writeFile(t, "data.csv", []byte(
		"TransactionID,TransactionAmt\n1,10.00\n\n2,20.00\n,,\n3,30.00\n",
	))
	src, err := Open(path, 100)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	rows := drain(t, src)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3 (empty rows skipped)", len(rows))
	}
	if v, ok := rows[0].Get("TransactionID"); !ok || v != "1" {
		t.Errorf("row 0 TransactionID = %q, %v", v, ok)
	}
	// Header lookup is case-insensitive.
	if v, ok := rows[2].Get("transactionamt"); !ok || v != "30.00" {
		t.Errorf("row 2 transactionamt = %q, %v", v, ok)
	}
}

func TestCSVSourceBOM(t *testing.T) {
	path := writeFile(t, "bom.csv", append([]byte{0xEF, 0xBB, 0xBF}, []byte("id,name\n1,alpha\n")...))
	src, err := Open(path, 100)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	rows := drain(t, src)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if v, ok := rows[0].Get("id"); !ok || v != "1" {
		t.Errorf("id = %q, %v — BOM should not corrupt the first header", v, ok)
	}
}

func TestCSVSourceInvalidUTF8(t *testing.T) {
	path := writeFile(t, "latin1.csv", []byte("id,name\n1,caf\xe9\n"))
	src, err := Open(path, 100)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	rows := drain(t, src)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	v, _ := rows[0].Get("name")
	if v != "caf?" {
		t.Errorf("name = %q, want invalid bytes replaced with '?'", v)
	}
}

func TestCSVSourceRowCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("id\n")
	for i := 1; i <= 50; i++ {
		b.WriteString(strconv.Itoa(i) + "\n")
	}
	path := writeFile(t, "capped.csv", []byte(b.String()))
	src, err := Open(path, 7)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	rows := drain(t, src)
	if len(rows) != 7 {
		t.Errorf("rows = %d, want the cap of 7", len(rows))
	}
}

func TestCSVSourceEmptyFile(t *testing.T) {
	path := writeFile(t, "empty.csv", nil)
	if _, err := Open(path, 10); err == nil {
		t.Fatal("expected error for empty file")
	}
}

func TestCSVSourceCloseIdempotent(t *testing.T) {
	path := writeFile(t, "data.csv", []byte("id\n1\n"))
	src, err := Open(path, 10)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestSheetSource(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetRow("Sheet1", "A1", &[]any{"TransactionID", "TransactionAmt"})
	f.SetSheetRow("Sheet1", "A2", &[]any{1, 10.5})
	f.SetSheetRow("Sheet1", "A3", &[]any{2, 20.5})
	f.SetSheetRow("Sheet1", "A5", &[]any{3, 30.5}) // row 4 left empty

	path := filepath.Join(t.TempDir(), "data.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}

	src, err := Open(path, 100)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	rows := drain(t, src)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3 (empty rows skipped)", len(rows))
	}
	if v, ok := rows[0].Get("transactionid"); !ok || v != "1" {
		t.Errorf("row 0 transactionid = %q, %v", v, ok)
	}
}

func TestSheetSourceRowCap(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetRow("Sheet1", "A1", &[]any{"id"})
	for i := 1; i <= 20; i++ {
		f.SetSheetRow("Sheet1", "A"+strconv.Itoa(i+1), &[]any{i})
	}
	path := filepath.Join(t.TempDir(), "capped.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}

	src, err := Open(path, 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	if rows := drain(t, src); len(rows) != 4 {
		t.Errorf("rows = %d, want the cap of 4", len(rows))
	}
}
