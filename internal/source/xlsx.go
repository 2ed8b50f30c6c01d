package source

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/entropylabs/ingest/internal/coerce"
)

// sheetSource loads an entire spreadsheet synchronously and yields its rows
// as a finite sequence, truncated to the row cap. Only suitable for inputs
// assumed small enough to hold in memory; no backpressure is needed because
// extraction has already happened by the time the first row is consumed.
type sheetSource struct {
	header []string
	rows   [][]string
	pos    int
	max    int
}

func newSheetSource(path string, maxRows int) (*sheetSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open sheet %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets in %s", path)
	}

	all, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheets[0], path, err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("empty sheet %q in %s", sheets[0], path)
	}

	header := make([]string, len(all[0]))
	for i, h := range all[0] {
		header[i] = strings.ToLower(coerce.CleanCell(h))
	}

	return &sheetSource{header: header, rows: all[1:], max: maxRows}, nil
}

func (s *sheetSource) Next() (RawRow, error) {
	for {
		if s.pos >= s.max || len(s.rows) == 0 {
			return nil, io.EOF
		}
		cells := s.rows[0]
		s.rows = s.rows[1:]
		if isEmptyRow(cells) {
			continue
		}

		row := make(RawRow, len(s.header))
		for i, col := range s.header {
			if i < len(cells) {
				row[col] = cells[i]
			}
		}
		s.pos++
		return row, nil
	}
}

func (s *sheetSource) Close() error { return nil }
