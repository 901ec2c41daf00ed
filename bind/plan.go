// Package bind maps headered CSV rows onto Go structs.
//
// Fields are described by the csv struct tag:
//
//	type Customer struct {
//		Name  string   `csv:"name"`
//		Email *string  `csv:"email,ignorecase"`
//		Tags  []string `csv:"tags"`
//		Notes string   `csv:"-"`
//	}
//
// An untagged exported field binds to a column with its Go name. Pointer and
// slice fields are nullable: an absent value leaves them nil. SQL null
// wrappers such as pgtype.Text or sql.NullString are nullable too and keep
// their zero value, Valid=false.
package bind

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/JonMunkholm/typedcsv/reader"
)

const tagName = "csv"

var ErrNotStruct = errors.New("bind target must be a struct")

// Descriptor is the precomputed binding metadata for one struct field.
type Descriptor struct {
	Field      string // Go field name
	CSVName    string // Column the field binds to
	IgnoreCase bool
	Type       reflect.Type
	Nullable   bool // Pointer, slice or null wrapper: absence is representable
	List       bool // Slice: values are split on the list separator
	Tag        reflect.StructTag

	index []int
}

// Get returns the field within v, a value of the plan's struct type.
func (d Descriptor) Get(v reflect.Value) reflect.Value {
	return v.FieldByIndex(d.index)
}

// Key returns the header key the field is looked up under.
func (d Descriptor) Key() reader.Key {
	if d.IgnoreCase {
		return reader.FoldKey(d.CSVName)
	}
	return reader.ExactKey(d.CSVName)
}

// Plan is the ordered set of descriptors for a struct type.
type Plan struct {
	typ    reflect.Type
	fields []Descriptor
}

// Type returns the struct type the plan binds.
func (p *Plan) Type() reflect.Type {
	return p.typ
}

// Fields returns a copy of the field descriptors in declaration order.
func (p *Plan) Fields() []Descriptor {
	return append([]Descriptor(nil), p.fields...)
}

// plans is shared by every reader. A plan depends only on its type and is
// never mutated.
var plans sync.Map // reflect.Type -> *Plan

// NewPlan returns the binding plan for struct type t. Plans are computed once
// per type and shared.
func NewPlan(t reflect.Type) (*Plan, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: got %v", ErrNotStruct, t)
	}
	if p, ok := plans.Load(t); ok {
		return p.(*Plan), nil
	}
	p := &Plan{typ: t, fields: describe(t, nil)}
	actual, _ := plans.LoadOrStore(t, p)
	return actual.(*Plan), nil
}

// PlanFor returns the binding plan for T.
func PlanFor[T any]() (*Plan, error) {
	return NewPlan(reflect.TypeFor[T]())
}

func describe(t reflect.Type, parent []int) []Descriptor {
	var out []Descriptor
	for i := range t.NumField() {
		f := t.Field(i)
		tag, tagged := f.Tag.Lookup(tagName)
		if tag == "-" {
			continue
		}
		index := append(append([]int(nil), parent...), i)

		// Untagged embedded structs contribute their fields directly.
		if f.Anonymous && !tagged && f.Type.Kind() == reflect.Struct {
			out = append(out, describe(f.Type, index)...)
			continue
		}
		if !f.IsExported() {
			continue
		}

		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = f.Name
		}
		kind := f.Type.Kind()
		out = append(out, Descriptor{
			Field:      f.Name,
			CSVName:    name,
			IgnoreCase: hasOption(opts, "ignorecase"),
			Type:       f.Type,
			Nullable:   kind == reflect.Pointer || kind == reflect.Slice || isNullWrapper(f.Type),
			List:       kind == reflect.Slice,
			Tag:        f.Tag,
			index:      index,
		})
	}
	return out
}

var valuerType = reflect.TypeFor[driver.Valuer]()

// isNullWrapper reports whether t is a database null type: a driver.Valuer
// struct whose Valid field marks presence.
func isNullWrapper(t reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	if !t.Implements(valuerType) && !reflect.PointerTo(t).Implements(valuerType) {
		return false
	}
	valid, ok := t.FieldByName("Valid")
	return ok && valid.Type.Kind() == reflect.Bool
}

func hasOption(opts, want string) bool {
	for opt := range strings.SplitSeq(opts, ",") {
		if strings.TrimSpace(opt) == want {
			return true
		}
	}
	return false
}
