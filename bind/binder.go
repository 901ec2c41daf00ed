package bind

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/JonMunkholm/typedcsv/convert"
	"github.com/JonMunkholm/typedcsv/reader"
)

// AfterBinder is implemented by targets that check or derive state once all
// fields are set. A non-nil error discards the instance.
type AfterBinder interface {
	AfterBind() error
}

type boundField struct {
	Descriptor
	conv     convert.Resolved
	resolved bool
}

// Binder builds *T values from headered rows. It is safe for concurrent use.
type Binder[T any] struct {
	plan     *Plan
	fields   []boundField
	settings convert.Settings
}

// NewBinder resolves a converter for every field of plan once. Fields without
// a converter are reported per row, only when a value is present.
func NewBinder[T any](plan *Plan, reg convert.Registry, settings convert.Settings) (*Binder[T], error) {
	if plan == nil {
		return nil, errors.New("bind: nil plan")
	}
	if want := reflect.TypeFor[T](); plan.Type() != want {
		return nil, fmt.Errorf("bind: plan is for %v, not %v", plan.Type(), want)
	}

	fields := make([]boundField, len(plan.fields))
	for i, d := range plan.fields {
		conv, ok := reg.Resolve(d.Type)
		fields[i] = boundField{Descriptor: d, conv: conv, resolved: ok}
	}
	return &Binder[T]{plan: plan, fields: fields, settings: settings}, nil
}

// Plan returns the plan the binder was built from.
func (b *Binder[T]) Plan() *Plan {
	return b.plan
}

// Bind converts row into a *T. Each failing field contributes exactly one
// error. A failed nullable field is left nil and the instance is still
// returned; a failed required field yields a nil result.
func (b *Binder[T]) Bind(row reader.HeaderedRow) (*T, []InstantiationError) {
	out := new(T)
	target := reflect.ValueOf(out).Elem()

	var errs []InstantiationError
	requiredFailed := false

	fail := func(f boundField, kind ErrorKind, provided *string, cause error) {
		errs = append(errs, InstantiationError{
			Column:        f.CSVName,
			GoField:       f.Field,
			ProvidedValue: provided,
			Kind:          kind,
			Cause:         cause,
		})
		if !f.Nullable {
			requiredFailed = true
		}
	}

	for _, f := range b.fields {
		cell := lookup(row, f.Descriptor)
		if !cell.Valid {
			if !f.Nullable {
				fail(f, MissingFieldValue, nil, nil)
			}
			continue
		}
		if !f.resolved {
			fail(f, NoConverterFound, cell.Ptr(), fmt.Errorf("%w for %v", convert.ErrNoConverter, f.Type))
			continue
		}
		v, err := f.conv.Parse(cell.String, b.settings)
		if err != nil {
			fail(f, ConversionError, cell.Ptr(), err)
			continue
		}
		target.FieldByIndex(f.index).Set(v)
	}

	if requiredFailed {
		return nil, errs
	}

	if ab, ok := any(out).(AfterBinder); ok {
		if err := ab.AfterBind(); err != nil {
			errs = append(errs, InstantiationError{
				Column:  b.plan.typ.Name(),
				GoField: b.plan.typ.Name(),
				Kind:    InstantiationFailure,
				Cause:   err,
			})
			return nil, errs
		}
	}
	return out, errs
}

// lookup tries the folded key first for ignore-case fields, then the exact
// name.
func lookup(row reader.HeaderedRow, d Descriptor) reader.Cell {
	if d.IgnoreCase {
		if c, ok := row.Lookup(d.Key()); ok {
			return c
		}
	}
	c, _ := row.Lookup(reader.ExactKey(d.CSVName))
	return c
}
