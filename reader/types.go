package reader

import (
	"errors"
	"fmt"
)

// ErrUnterminatedQuote is returned when the input ends inside a quoted field.
var ErrUnterminatedQuote = errors.New("unterminated quoted field")

// ParseError reports a row that could not be tokenized.
type ParseError struct {
	Line int   // Physical line the row started on (1-based)
	Err  error // Underlying cause
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Cell is an optional raw field value. Valid is false for null or absent values.
type Cell struct {
	String string
	Valid  bool
}

// Text returns a valid cell holding s.
func Text(s string) Cell {
	return Cell{String: s, Valid: true}
}

// Null is the absent cell value.
var Null = Cell{}

// Ptr returns the value as a pointer, or nil when the cell is null.
func (c Cell) Ptr() *string {
	if !c.Valid {
		return nil
	}
	s := c.String
	return &s
}

// RawRow is one logical record as produced by the tokenizer.
type RawRow struct {
	Line  int    // Physical line the row started on (1-based)
	Cells []Cell // One entry per column; width may vary between rows
}

// Strings returns the cell values with nulls rendered as empty strings.
func (r RawRow) Strings() []string {
	out := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		out[i] = c.String
	}
	return out
}

// Options holds the tokenizer settings.
type Options struct {
	Separator      rune // Field separator (default ',')
	Quote          rune // Quote / delimiter character (default '"')
	Escape         rune // Escape character inside quotes (default: same as Quote)
	TrimEntries    bool // Strip leading/trailing whitespace from every field
	SkipEmptyLines bool // Drop blank physical lines
	EmptyAsNull    bool // Turn empty fields into null cells
}

// DefaultOptions returns the standard CSV settings.
func DefaultOptions() Options {
	return Options{
		Separator: ',',
		Quote:     '"',
		Escape:    '"',
	}
}
