// Package schema is the registry of named record types the server and CLI can
// read. Each Definition wraps a typed reader behind a type-erased API so
// handlers can work with any registered schema by key.
package schema

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/JonMunkholm/typedcsv"
	"github.com/JonMunkholm/typedcsv/bind"
	"github.com/JonMunkholm/typedcsv/convert"
	"github.com/JonMunkholm/typedcsv/internal/config"
	"github.com/JonMunkholm/typedcsv/reader"
)

// ErrUnknownSchema is returned when a schema key is not registered.
var ErrUnknownSchema = errors.New("unknown schema")

// ContextCheckInterval is how many rows are read between cancellation checks.
const ContextCheckInterval = 1000

// Info contains display information about a schema.
type Info struct {
	Key     string   `json:"key"`     // Unique identifier: "sfdc_customers"
	Group   string   `json:"group"`   // Data source: "SFDC", "NS", "Anrok"
	Label   string   `json:"label"`   // Display name: "Customers"
	Table   string   `json:"table"`   // Target table for loads
	Columns []string `json:"columns"` // Header columns, derived from the record type
}

// Row is one bound row with its record erased to any. Record is a pointer to
// the schema's struct type, or nil when the row could not be built.
type Row struct {
	Line   int
	Record any
	Errors []typedcsv.CsvError
}

// Definition describes a registered record type.
type Definition struct {
	Info Info
	Plan *bind.Plan

	rows func(src io.Reader, cfg config.CSVConfig, logger *slog.Logger) iter.Seq2[Row, error]
}

// Define builds a definition for T. Columns are filled from T's binding plan
// and convs are registered on every reader the definition creates. Panics when
// T is not a struct, like Register does for duplicate keys.
func Define[T any](info Info, convs ...convert.Converter) Definition {
	base := typedcsv.MustNew[T]().WithConverters(convs...)
	plan := base.Plan()

	if len(info.Columns) == 0 {
		for _, f := range plan.Fields() {
			info.Columns = append(info.Columns, f.CSVName)
		}
	}

	return Definition{
		Info: info,
		Plan: plan,
		rows: func(src io.Reader, cfg config.CSVConfig, logger *slog.Logger) iter.Seq2[Row, error] {
			r := Configure(base, cfg).WithLogger(logger)
			return func(yield func(Row, error) bool) {
				for tr, err := range r.Read(src) {
					row := Row{Line: tr.Line, Errors: tr.Errors}
					if tr.Result != nil {
						row.Record = tr.Result
					}
					if !yield(row, err) {
						return
					}
				}
			}
		},
	}
}

// Configure applies reader settings to r. The charset is recorded for file
// and URL reads; callers handing in their own io.Reader decode it first with
// source.New.
func Configure[T any](r typedcsv.Reader[T], cfg config.CSVConfig) typedcsv.Reader[T] {
	sep, quote, esc := cfg.Runes()
	if cfg.Separator != "" {
		r = r.WithSeparator(sep)
	}
	if cfg.Quote != "" {
		r = r.WithDelimiter(quote)
	}
	if esc != 0 {
		r = r.WithEscapeCharacter(esc)
	}
	if cfg.ListSeparator != "" {
		r = r.WithListSeparator(cfg.ListSeparator)
	}
	return r.
		WithTrimEntries(cfg.Trim).
		WithSkipEmptyLines(cfg.SkipEmptyLines).
		WithEmptyStringsAsNull(cfg.EmptyAsNull).
		WithStrictColumnCount(cfg.StrictColumns).
		WithCharset(cfg.Charset)
}

// Rows reads src as this schema. A non-nil error marks a physical row that
// was excluded before binding.
func (d Definition) Rows(src io.Reader, cfg config.CSVConfig, logger *slog.Logger) iter.Seq2[Row, error] {
	if d.rows == nil {
		return func(yield func(Row, error) bool) {
			yield(Row{}, fmt.Errorf("%w: %s", ErrUnknownSchema, d.Info.Key))
		}
	}
	return d.rows(src, cfg, logger)
}

// RowReport is one row in a check report.
type RowReport struct {
	Line   int                 `json:"line"`
	Record any                 `json:"record,omitempty"`
	Errors []typedcsv.CsvError `json:"errors,omitempty"`
}

// Exclusion is a physical row the tokenizer could not read.
type Exclusion struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

// Report summarizes a check of one input against a schema.
type Report struct {
	Schema     string      `json:"schema"`
	Total      int         `json:"total"`
	Valid      int         `json:"valid"`
	Invalid    int         `json:"invalid"`
	Excluded   int         `json:"excluded"`
	Rows       []RowReport `json:"rows"`
	Exclusions []Exclusion `json:"exclusions,omitempty"`
	Truncated  bool        `json:"truncated"`
}

// OK reports whether every row bound cleanly.
func (r *Report) OK() bool {
	return r.Invalid == 0 && r.Excluded == 0
}

// Check reads all of src and summarizes it. Rows the tokenizer rejects are
// counted as excluded; a failure reading src aborts the check. At most
// maxRows row reports and exclusions are kept (0 keeps everything); the
// counters always cover the whole input. Only invalid rows are listed unless
// withValid is set.
func (d Definition) Check(ctx context.Context, src io.Reader, cfg config.CSVConfig, maxRows int, withValid bool, logger *slog.Logger) (*Report, error) {
	rep := &Report{Schema: d.Info.Key, Rows: []RowReport{}}
	keep := func(n int) bool {
		if maxRows > 0 && n >= maxRows {
			rep.Truncated = true
			return false
		}
		return true
	}

	i := 0
	for row, err := range d.Rows(src, cfg, logger) {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		i++
		rep.Total++

		switch {
		case err != nil && !errors.Is(err, reader.ErrUnterminatedQuote):
			return nil, fmt.Errorf("read %s: %w", d.Info.Key, err)
		case err != nil:
			rep.Excluded++
			if keep(len(rep.Exclusions)) {
				rep.Exclusions = append(rep.Exclusions, Exclusion{Line: row.Line, Error: err.Error()})
			}
		case len(row.Errors) > 0:
			rep.Invalid++
			if keep(len(rep.Rows)) {
				rep.Rows = append(rep.Rows, RowReport(row))
			}
		default:
			rep.Valid++
			if withValid && keep(len(rep.Rows)) {
				rep.Rows = append(rep.Rows, RowReport(row))
			}
		}
	}
	return rep, nil
}
