package typedcsv

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/typedcsv/bind"
)

// ErrorKind classifies a per-field failure.
type ErrorKind = bind.ErrorKind

const (
	MissingFieldValue    = bind.MissingFieldValue
	ConversionError      = bind.ConversionError
	NoConverterFound     = bind.NoConverterFound
	InstantiationFailure = bind.InstantiationFailure
	ColumnCountMismatch  = bind.ColumnCountMismatch
)

// CsvError describes one field of a row that could not be bound.
type CsvError struct {
	CSVField      string    `json:"csvField"`
	ClassField    string    `json:"classField"`
	ProvidedValue *string   `json:"providedValue"`
	Type          ErrorKind `json:"type"`
	Cause         error     `json:"-"`
}

func (e CsvError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s on column %q", e.Type, e.CSVField)
	if e.ProvidedValue != nil {
		fmt.Fprintf(&b, " (value %q)", *e.ProvidedValue)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e CsvError) Unwrap() error {
	return e.Cause
}

// MarshalJSON renders Cause as its message.
func (e CsvError) MarshalJSON() ([]byte, error) {
	type plain CsvError
	out := struct {
		plain
		Cause string `json:"cause,omitempty"`
	}{plain: plain(e)}
	if e.Cause != nil {
		out.Cause = e.Cause.Error()
	}
	return json.Marshal(out)
}

func fromBindErrors(errs []bind.InstantiationError) []CsvError {
	if len(errs) == 0 {
		return nil
	}
	out := make([]CsvError, len(errs))
	for i, e := range errs {
		out[i] = CsvError{
			CSVField:      e.Column,
			ClassField:    e.GoField,
			ProvidedValue: e.ProvidedValue,
			Type:          e.Kind,
			Cause:         e.Cause,
		}
	}
	return out
}

// TypedRow is the outcome of binding one CSV row.
type TypedRow[T any] struct {
	Result *T         // nil when the row could not be bound
	Line   int        // Physical line the row started on
	Errors []CsvError // Field-level failures in column order
}

// HasErrors reports whether any field failed.
func (r TypedRow[T]) HasErrors() bool {
	return len(r.Errors) > 0
}

// ResultOrError returns the bound value, or a *ParsingError carrying every
// field failure of the row.
func (r TypedRow[T]) ResultOrError() (*T, error) {
	if r.HasErrors() {
		return nil, newParsingError(r.Line, r.Errors)
	}
	if r.Result == nil {
		panic(fmt.Sprintf("typedcsv: row at line %d has neither a result nor errors", r.Line))
	}
	return r.Result, nil
}

// MustResult is like ResultOrError but panics with the *ParsingError.
func (r TypedRow[T]) MustResult() T {
	res, err := r.ResultOrError()
	if err != nil {
		panic(err)
	}
	return *res
}

// ParsingError is returned by the strict accessors when a row has errors.
type ParsingError struct {
	Message string
	Line    int
	Errors  []CsvError
}

func newParsingError(line int, errs []CsvError) *ParsingError {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return &ParsingError{
		Message: fmt.Sprintf("parsing failed at line %d: %s", line, strings.Join(msgs, "; ")),
		Line:    line,
		Errors:  append([]CsvError(nil), errs...),
	}
}

func (e *ParsingError) Error() string {
	return e.Message
}

// Unwrap exposes the field errors to errors.Is and errors.As.
func (e *ParsingError) Unwrap() []error {
	out := make([]error, len(e.Errors))
	for i, fe := range e.Errors {
		out[i] = fe
	}
	return out
}

// IsParsingError reports whether err carries row-level binding failures.
func IsParsingError(err error) bool {
	var pe *ParsingError
	return errors.As(err, &pe)
}
