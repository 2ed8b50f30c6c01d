package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/entropylabs/ingest/internal/coerce"
)

// csvSource streams rows from a delimited text file. The first row is the
// header; subsequent rows are yielded one at a time, so extraction advances
// only as fast as the consumer pulls.
type csvSource struct {
	f       *os.File
	r       *csv.Reader
	header  []string
	max     int
	yielded int
	closed  bool
}

func newCSVSource(path string, maxRows int) (*csvSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	r := csv.NewReader(wrapReader(f))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	headerRow, err := r.Read()
	if err != nil {
		f.Close()
		if err == io.EOF {
			return nil, fmt.Errorf("empty file %s", path)
		}
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	header := make([]string, len(headerRow))
	for i, h := range headerRow {
		header[i] = strings.ToLower(coerce.CleanCell(h))
	}

	return &csvSource{f: f, r: r, header: header, max: maxRows}, nil
}

func (s *csvSource) Next() (RawRow, error) {
	if s.closed || s.yielded >= s.max {
		// Row cap reached: release the stream early.
		s.Close()
		return nil, io.EOF
	}

	for {
		cells, err := s.r.Read()
		if err == io.EOF {
			s.Close()
			return nil, io.EOF
		}
		if err != nil {
			s.Close()
			return nil, errRead(s.yielded+1, err)
		}
		if isEmptyRow(cells) {
			continue
		}

		row := make(RawRow, len(s.header))
		for i, col := range s.header {
			if i < len(cells) {
				row[col] = cells[i]
			}
		}
		s.yielded++
		return row, nil
	}
}

func (s *csvSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.f.Close()
}
