// Package source extracts raw rows from input files.
//
// A RowSource is a pull-based iterator: the consumer asks for the next row
// only when it is ready to process one, so a slow persistence step never
// forces the extractor to buffer ahead. The streaming CSV source reads
// incrementally; the sheet source loads the whole file and is intended for
// inputs small enough to fit in memory.
package source

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RawRow is one source record: column name (lowercased) to raw cell value.
// Ephemeral; never persisted.
type RawRow map[string]string

// Get returns the cell for a column, looked up case-insensitively.
func (r RawRow) Get(col string) (string, bool) {
	v, ok := r[strings.ToLower(col)]
	return v, ok
}

// Kind selects the extraction strategy for an input file.
type Kind int

const (
	// KindStream reads rows incrementally from delimited text.
	KindStream Kind = iota
	// KindSheet loads a whole spreadsheet into memory.
	KindSheet
)

func (k Kind) String() string {
	if k == KindStream {
		return "stream"
	}
	return "sheet"
}

// Detect classifies an input file by filename. Classification is by
// substring, not strict suffix, so upload-time uniqueness markers appended
// after the extension ("data.csv-1699999999") still classify correctly.
// Unrecognized names take the sheet (whole-file) path.
func Detect(path string) Kind {
	name := strings.ToLower(filepath.Base(path))
	if strings.Contains(name, ".csv") {
		return KindStream
	}
	return KindSheet
}

// RowSource yields rows from an input file until io.EOF. Any other error is
// terminal: the source is already released and the run must abort. A source
// is restartable only by reopening.
type RowSource interface {
	// Next returns the next row, io.EOF at the end of input or once the row
	// cap is reached, or a terminal extraction error.
	Next() (RawRow, error)

	// Close releases the underlying file. Idempotent.
	Close() error
}

// Open dispatches on the file's detected kind and returns the matching
// source, capped at maxRows.
func Open(path string, maxRows int) (RowSource, error) {
	switch Detect(path) {
	case KindStream:
		return newCSVSource(path, maxRows)
	default:
		return newSheetSource(path, maxRows)
	}
}

// errRead wraps a terminal extraction fault with row context.
func errRead(row int, err error) error {
	return fmt.Errorf("read row %d: %w", row, err)
}

func isEmptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
