package reader

import (
	"errors"
	"io"
	"iter"
)

// Reader holds tokenizer and header settings. The zero value is not useful;
// start from [New].
type Reader struct {
	opts      Options
	escapeSet bool     // Escape was set explicitly and no longer follows Quote
	header    []string // Explicit header; nil means the first row is the header
}

// New returns a reader with the default CSV settings and an implicit header.
func New() Reader {
	return Reader{opts: DefaultOptions()}
}

// Options returns the effective tokenizer settings.
func (r Reader) Options() Options {
	return r.opts
}

// Header returns a copy of the explicit header, or nil when the header is
// read from the input.
func (r Reader) Header() []string {
	if r.header == nil {
		return nil
	}
	return append([]string{}, r.header...)
}

// WithSeparator returns a copy using c as the field separator.
func (r Reader) WithSeparator(c rune) Reader {
	r.opts.Separator = c
	return r
}

// WithDelimiter returns a copy using c as the quote character. Unless an
// escape character was set explicitly, escaping follows the new quote.
func (r Reader) WithDelimiter(c rune) Reader {
	r.opts.Quote = c
	if !r.escapeSet {
		r.opts.Escape = c
	}
	return r
}

// WithEscapeCharacter returns a copy using c to escape quotes inside quoted fields.
func (r Reader) WithEscapeCharacter(c rune) Reader {
	r.opts.Escape = c
	r.escapeSet = true
	return r
}

// WithTrimEntries returns a copy that strips whitespace around every field.
func (r Reader) WithTrimEntries(trim bool) Reader {
	r.opts.TrimEntries = trim
	return r
}

// WithSkipEmptyLines returns a copy that drops blank lines.
func (r Reader) WithSkipEmptyLines(skip bool) Reader {
	r.opts.SkipEmptyLines = skip
	return r
}

// WithEmptyStringsAsNull returns a copy that turns empty fields into nulls.
func (r Reader) WithEmptyStringsAsNull(emptyAsNull bool) Reader {
	r.opts.EmptyAsNull = emptyAsNull
	return r
}

// WithHeader returns a copy using names as the header. Every input row is
// then treated as data. Passing no names restores the implicit header.
func (r Reader) WithHeader(names ...string) Reader {
	if len(names) == 0 {
		r.header = nil
		return r
	}
	r.header = append([]string{}, names...)
	return r
}

// Rows tokenizes src into raw rows. A non-nil error means the row was not
// tokenized. Unterminated quotes are reported as a [*ParseError]; errors from
// src are yielded unwrapped. Either one is the last value yielded.
func (r Reader) Rows(src io.Reader) iter.Seq2[RawRow, error] {
	opts := r.opts
	return func(yield func(RawRow, error) bool) {
		s := newScanner(src, opts)
		for {
			row, err := s.next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(row, err) {
				return
			}
		}
	}
}

// Read tokenizes src and binds every data row to the header.
func (r Reader) Read(src io.Reader) iter.Seq2[HeaderedRow, error] {
	var explicit *Header
	if r.header != nil {
		explicit = NewHeader(r.header)
	}
	rows := r.Rows(src)

	return func(yield func(HeaderedRow, error) bool) {
		header := explicit
		for raw, err := range rows {
			if err != nil {
				if !yield(HeaderedRow{Line: raw.Line}, err) {
					return
				}
				continue
			}
			if header == nil {
				header = NewHeader(raw.Strings())
				continue
			}
			if !yield(NewHeaderedRow(header, raw), nil) {
				return
			}
		}
	}
}
