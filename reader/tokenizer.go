package reader

// tokenizer.go scans a character stream into logical rows.
//
// The scanner keeps a single "inside quotes" flag while reading rune by rune:
//   - a quote at the start of a field opens quoted mode
//   - inside quotes, escape followed by quote yields a literal quote, and a
//     distinct escape character doubled yields itself
//   - inside quotes, a line break belongs to the field
//   - outside quotes, the separator ends the field and a line break ends the row
//
// Line numbers are physical: every line break advances the counter, including
// breaks inside quoted fields and skipped blank lines.

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"unicode"
)

type scanner struct {
	br   *bufio.Reader
	opts Options
	line int
	done bool
	err  error // read error hit during lookahead, returned by the next read

	buf       strings.Builder
	quoted    bool // currently inside a quoted section
	wasQuoted bool // current field had an opening quote
	rowQuoted bool // any field of the current row was quoted
}

func newScanner(src io.Reader, opts Options) *scanner {
	return &scanner{
		br:   bufio.NewReader(src),
		opts: opts,
		line: 1,
	}
}

// next returns the next row, or io.EOF once the input is exhausted.
func (s *scanner) next() (RawRow, error) {
	for {
		row, err := s.scanRow()
		if err != nil {
			return row, err
		}
		if s.opts.SkipEmptyLines && !s.rowQuoted && isBlank(row) {
			continue
		}
		return row, nil
	}
}

func (s *scanner) scanRow() (RawRow, error) {
	if s.done {
		return RawRow{}, io.EOF
	}

	row := RawRow{Line: s.line}
	s.resetField()
	s.quoted = false
	s.rowQuoted = false
	consumed := false

	for {
		r, err := s.readRune()
		if err != nil {
			s.done = true
			if !errors.Is(err, io.EOF) {
				return row, err
			}
			if s.quoted {
				return row, &ParseError{Line: row.Line, Err: ErrUnterminatedQuote}
			}
			if !consumed {
				return RawRow{}, io.EOF
			}
			row.Cells = append(row.Cells, s.finishField())
			return row, nil
		}
		consumed = true

		if s.quoted {
			s.scanQuoted(r)
			continue
		}

		switch {
		case r == s.opts.Separator:
			row.Cells = append(row.Cells, s.finishField())
		case r == '\n' || r == '\r':
			if r == '\r' {
				s.skipRune('\n')
			}
			s.line++
			row.Cells = append(row.Cells, s.finishField())
			return row, nil
		case r == s.opts.Quote && s.atFieldStart():
			s.buf.Reset()
			s.quoted = true
			s.wasQuoted = true
			s.rowQuoted = true
		default:
			s.buf.WriteRune(r)
		}
	}
}

// scanQuoted handles one rune while inside a quoted section.
func (s *scanner) scanQuoted(r rune) {
	q, esc := s.opts.Quote, s.opts.Escape

	switch {
	case r == esc && esc != q:
		switch {
		case s.skipRune(q):
			s.buf.WriteRune(q)
		case s.skipRune(esc):
			s.buf.WriteRune(esc)
		default:
			s.buf.WriteRune(r)
		}
	case r == q:
		// With the default escape, a doubled quote is a literal quote.
		if esc == q && s.skipRune(q) {
			s.buf.WriteRune(q)
			return
		}
		s.quoted = false
	case r == '\r':
		s.skipRune('\n')
		s.line++
		s.buf.WriteRune('\n')
	case r == '\n':
		s.line++
		s.buf.WriteRune('\n')
	default:
		s.buf.WriteRune(r)
	}
}

func (s *scanner) readRune() (rune, error) {
	if err := s.err; err != nil {
		s.err = nil
		return 0, err
	}
	r, _, err := s.br.ReadRune()
	return r, err
}

// skipRune consumes the next rune if it equals want. A read error other than
// io.EOF is kept for the next read.
func (s *scanner) skipRune(want rune) bool {
	if s.err != nil {
		return false
	}
	r, _, err := s.br.ReadRune()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			s.err = err
		}
		return false
	}
	if r == want {
		return true
	}
	_ = s.br.UnreadRune()
	return false
}

// atFieldStart reports whether a quote here opens a quoted field. Leading
// whitespace is tolerated when entries are trimmed anyway.
func (s *scanner) atFieldStart() bool {
	if s.wasQuoted {
		return false
	}
	if s.buf.Len() == 0 {
		return true
	}
	return s.opts.TrimEntries && strings.TrimLeftFunc(s.buf.String(), unicode.IsSpace) == ""
}

func (s *scanner) finishField() Cell {
	v := s.buf.String()
	s.resetField()

	if s.opts.TrimEntries {
		v = strings.TrimSpace(v)
	}
	if s.opts.EmptyAsNull && v == "" {
		return Null
	}
	return Text(v)
}

func (s *scanner) resetField() {
	s.buf.Reset()
	s.wasQuoted = false
}

// isBlank reports whether a row came from a line with no content at all.
func isBlank(row RawRow) bool {
	if len(row.Cells) != 1 {
		return false
	}
	c := row.Cells[0]
	return !c.Valid || c.String == ""
}
