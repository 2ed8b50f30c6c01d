package source

// Streaming reader wrappers for the CSV path. They keep memory at
// O(buffer) instead of loading the file:
//
//   - bomReader skips the UTF-8 BOM (0xEF 0xBB 0xBF) Windows tools prepend
//   - utf8Reader replaces invalid UTF-8 bytes with '?' on the fly
//
// wrapReader applies both in the required order (BOM first).

import (
	"io"
	"unicode/utf8"
)

// wrapReader prepares a raw file reader for CSV parsing.
func wrapReader(r io.Reader) io.Reader {
	return &utf8Reader{r: &bomReader{r: r}}
}

// bomReader skips a leading UTF-8 BOM if present.
type bomReader struct {
	r       io.Reader
	checked bool
	buf     [3]byte
	rest    []byte
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true

		n, err := io.ReadFull(b.r, b.buf[:])
		if n == 0 {
			return 0, err
		}
		if !(n == 3 && b.buf[0] == 0xEF && b.buf[1] == 0xBB && b.buf[2] == 0xBF) {
			b.rest = b.buf[:n]
		}
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
	}

	if len(b.rest) > 0 {
		n := copy(p, b.rest)
		b.rest = b.rest[n:]
		return n, nil
	}

	return b.r.Read(p)
}

// utf8Reader sanitizes invalid UTF-8 sequences in the stream, replacing each
// invalid byte with '?' so the replacement never expands the buffer.
// Incomplete multi-byte sequences at a read boundary are held back until the
// next read.
type utf8Reader struct {
	r       io.Reader
	pending []byte
}

func (u *utf8Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	off := 0
	if len(u.pending) > 0 {
		off = copy(p, u.pending)
		u.pending = u.pending[:0]
	}

	n, err := u.r.Read(p[off:])
	n += off
	if n == 0 {
		return 0, err
	}

	// Fast path: pure ASCII needs no scanning.
	if asciiOnly(p[:n]) {
		return n, err
	}

	return u.sanitize(p[:n], err == io.EOF), err
}

// sanitize rewrites data in place and returns the number of valid bytes.
// Unless atEOF, an incomplete trailing sequence moves to pending.
func (u *utf8Reader) sanitize(data []byte, atEOF bool) int {
	if utf8.Valid(data) {
		if !atEOF {
			if t := trailingPartial(data); t > 0 {
				u.pending = append(u.pending, data[len(data)-t:]...)
				return len(data) - t
			}
		}
		return len(data)
	}

	write := 0
	for read := 0; read < len(data); {
		r, size := utf8.DecodeRune(data[read:])

		if !atEOF && read+size >= len(data) && seqLen(data[read]) > len(data)-read {
			u.pending = append(u.pending, data[read:]...)
			return write
		}

		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
		} else {
			copy(data[write:], data[read:read+size])
			write += size
			read += size
		}
	}
	return write
}

func asciiOnly(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

// trailingPartial returns how many bytes at the end of data form the start
// of an incomplete multi-byte sequence.
func trailingPartial(data []byte) int {
	for i := 1; i <= 3 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b >= 0xC0 {
			if i < seqLen(b) {
				return i
			}
			return 0
		}
		if b&0xC0 != 0x80 {
			return 0
		}
	}
	return 0
}

// seqLen returns the expected byte length of a UTF-8 sequence starting with b.
func seqLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0 // continuation byte
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}
