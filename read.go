package typedcsv

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/JonMunkholm/typedcsv/bind"
	"github.com/JonMunkholm/typedcsv/internal/source"
	"github.com/JonMunkholm/typedcsv/reader"
)

// Read returns the rows of src. The sequence is lazy: nothing is read until
// iteration starts, and stopping early stops tokenizing. A non-nil error means
// the physical row was excluded (for example an unterminated quote); the
// TypedRow then only carries the line.
func (r Reader[T]) Read(src io.Reader) iter.Seq2[TypedRow[T], error] {
	return func(yield func(TypedRow[T], error) bool) {
		binder, err := bind.NewBinder[T](r.plan, r.registry, r.settings)
		if err != nil {
			yield(TypedRow[T]{}, err)
			return
		}
		logger := r.log()

		for row, err := range r.csv.Read(src) {
			if err != nil {
				logger.Debug("csv row excluded", "line", row.Line, "error", err)
				if !yield(TypedRow[T]{Line: row.Line}, err) {
					return
				}
				continue
			}
			if !yield(r.bindRow(binder, row), nil) {
				return
			}
		}
	}
}

func (r Reader[T]) bindRow(binder *bind.Binder[T], row reader.HeaderedRow) TypedRow[T] {
	result, errs := binder.Bind(row)
	out := TypedRow[T]{Result: result, Line: row.Line, Errors: fromBindErrors(errs)}

	if r.strict && row.Width != row.Header().Len() {
		out.Errors = append(out.Errors, CsvError{
			Type:  ColumnCountMismatch,
			Cause: fmt.Errorf("expected %d columns, got %d", row.Header().Len(), row.Width),
		})
	}
	return out
}

// ReadString reads rows from an in-memory CSV document.
func (r Reader[T]) ReadString(s string) iter.Seq2[TypedRow[T], error] {
	return r.Read(strings.NewReader(s))
}

// ReadLines reads rows from pre-split lines. Lines are joined with "\n", so a
// quoted field may still span several of them.
func (r Reader[T]) ReadLines(lines []string) iter.Seq2[TypedRow[T], error] {
	return r.ReadString(strings.Join(lines, "\n"))
}

// ReadFile reads rows from the file at path. Gzip and zstd files are
// decompressed transparently. The file is opened when iteration starts and
// closed when it ends; an open failure is yielded once as the only element.
func (r Reader[T]) ReadFile(path string) iter.Seq2[TypedRow[T], error] {
	return r.readSource(func() (*source.Source, error) {
		return source.Open(path, r.source)
	})
}

// ReadURL reads rows from the body of a GET request to url.
func (r Reader[T]) ReadURL(ctx context.Context, url string) iter.Seq2[TypedRow[T], error] {
	return r.readSource(func() (*source.Source, error) {
		return source.OpenURL(ctx, r.client, url, r.source)
	})
}

func (r Reader[T]) readSource(open func() (*source.Source, error)) iter.Seq2[TypedRow[T], error] {
	return func(yield func(TypedRow[T], error) bool) {
		src, err := open()
		if err != nil {
			yield(TypedRow[T]{}, err)
			return
		}
		defer func() {
			if err := src.Close(); err != nil {
				r.log().Warn("failed to close csv source", "error", err)
			}
		}()

		for row, err := range r.Read(src) {
			if !yield(row, err) {
				return
			}
		}
	}
}

// Collect drains seq, separating rows from row-level errors.
func Collect[T any](seq iter.Seq2[TypedRow[T], error]) ([]TypedRow[T], []error) {
	var rows []TypedRow[T]
	var errs []error
	for row, err := range seq {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rows = append(rows, row)
	}
	return rows, errs
}
