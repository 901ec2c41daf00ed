// Package pgload copies bound CSV records into PostgreSQL tables with the
// COPY protocol. Rows that failed to bind never reach the database; they are
// returned as FailedRows next to the insert count.
package pgload

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/typedcsv/bind"
	"github.com/JonMunkholm/typedcsv/internal/schema"
	"github.com/JonMunkholm/typedcsv/reader"
)

// UploadIDColumn is appended to every copied row so a load can be traced or
// rolled back.
const UploadIDColumn = "upload_id"

// DB is the subset of pgx used for loads. Satisfied by *pgxpool.Pool,
// *pgx.Conn and pgx.Tx.
type DB interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// FailedRow is an input row that was not copied.
type FailedRow struct {
	Line   int      `json:"line"`
	Reason string   `json:"reason"`
	Errors []string `json:"errors,omitempty"`
}

// Result summarizes a load.
type Result struct {
	UploadID   uuid.UUID     `json:"upload_id"`
	Table      string        `json:"table"`
	Inserted   int64         `json:"inserted"`
	Skipped    int           `json:"skipped"`
	FailedRows []FailedRow   `json:"failed_rows,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Columns returns the database columns for plan, in field order, followed by
// UploadIDColumn. A field's db tag wins; otherwise the CSV name is lowered and
// spaces become underscores.
func Columns(plan *bind.Plan) []string {
	fields := plan.Fields()
	cols := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		cols = append(cols, columnName(f))
	}
	return append(cols, UploadIDColumn)
}

func columnName(f bind.Descriptor) string {
	if name := f.Tag.Get("db"); name != "" && name != "-" {
		return name
	}
	return toDBColumnName(f.CSVName)
}

func toDBColumnName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}

// CopySource adapts a row sequence to pgx.CopyFromSource. Rows with errors,
// and rows the tokenizer excluded, are skipped and recorded.
type CopySource struct {
	next     func() (schema.Row, error, bool)
	stop     func()
	fields   []bind.Descriptor
	uploadID pgtype.UUID
	values   []any
	failed   []FailedRow
	err      error
}

// NewCopySource pulls from rows on demand. Call Stop when done, even after
// Next returned false.
func NewCopySource(plan *bind.Plan, rows iter.Seq2[schema.Row, error], uploadID uuid.UUID) *CopySource {
	next, stop := iter.Pull2(rows)
	return &CopySource{
		next:     next,
		stop:     stop,
		fields:   plan.Fields(),
		uploadID: pgtype.UUID{Bytes: uploadID, Valid: true},
	}
}

// Next advances to the next row that can be copied.
func (s *CopySource) Next() bool {
	for {
		row, err, ok := s.next()
		if !ok {
			return false
		}
		if err != nil && !errors.Is(err, reader.ErrUnterminatedQuote) {
			s.err = err
			return false
		}
		if err != nil {
			s.failed = append(s.failed, FailedRow{Line: row.Line, Reason: err.Error()})
			continue
		}
		if len(row.Errors) > 0 || row.Record == nil {
			s.failed = append(s.failed, failedFromErrors(row))
			continue
		}

		values, err := s.rowValues(row.Record)
		if err != nil {
			s.err = fmt.Errorf("line %d: %w", row.Line, err)
			return false
		}
		s.values = values
		return true
	}
}

// Values returns the current row's column values.
func (s *CopySource) Values() ([]any, error) {
	return s.values, nil
}

// Err returns the error that stopped iteration, if any.
func (s *CopySource) Err() error {
	return s.err
}

// Failed returns the rows skipped so far.
func (s *CopySource) Failed() []FailedRow {
	return s.failed
}

// Stop releases the underlying sequence.
func (s *CopySource) Stop() {
	s.stop()
}

func (s *CopySource) rowValues(record any) ([]any, error) {
	v := reflect.ValueOf(record)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return nil, fmt.Errorf("record must be a non-nil pointer, got %T", record)
	}
	v = v.Elem()

	values := make([]any, 0, len(s.fields)+1)
	for _, f := range s.fields {
		values = append(values, copyValue(f.Get(v)))
	}
	return append(values, s.uploadID), nil
}

// copyValue unwraps pointers to NULL or their element and converts types pgx
// cannot encode directly.
func copyValue(v reflect.Value) any {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch x := v.Interface().(type) {
	case uuid.UUID:
		return pgtype.UUID{Bytes: x, Valid: true}
	case []uuid.UUID:
		out := make([]pgtype.UUID, len(x))
		for i, u := range x {
			out[i] = pgtype.UUID{Bytes: u, Valid: true}
		}
		return out
	case time.Duration:
		return pgtype.Interval{Microseconds: x.Microseconds(), Valid: true}
	}
	if v.Kind() == reflect.String && v.Type() != reflect.TypeFor[string]() {
		return v.String()
	}
	return v.Interface()
}

func failedFromErrors(row schema.Row) FailedRow {
	f := FailedRow{Line: row.Line, Reason: "validation failed"}
	for _, e := range row.Errors {
		f.Errors = append(f.Errors, e.Error())
	}
	if len(f.Errors) > 0 {
		f.Reason = f.Errors[0]
	}
	return f
}

// Load copies the valid rows of def into its table under a fresh upload ID.
// Invalid rows are skipped; Result.FailedRows lists them. The copy runs in a
// single statement, so a database error aborts it as a whole.
func Load(ctx context.Context, db DB, def schema.Definition, rows iter.Seq2[schema.Row, error], logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if def.Info.Table == "" {
		return nil, fmt.Errorf("schema %s has no target table", def.Info.Key)
	}

	start := time.Now()
	res := &Result{UploadID: uuid.New(), Table: def.Info.Table}

	src := NewCopySource(def.Plan, rows, res.UploadID)
	defer src.Stop()

	n, err := db.CopyFrom(ctx, pgx.Identifier{def.Info.Table}, Columns(def.Plan), src)
	if err != nil {
		return nil, fmt.Errorf("copy into %s: %w", def.Info.Table, err)
	}

	res.Inserted = n
	res.FailedRows = src.Failed()
	res.Skipped = len(res.FailedRows)
	res.Duration = time.Since(start)

	logger.Info("load complete",
		"upload_id", res.UploadID,
		"table", res.Table,
		"inserted", res.Inserted,
		"skipped", res.Skipped,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
