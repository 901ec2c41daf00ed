// Package convert turns raw CSV strings into typed Go values and back.
//
// A [Registry] resolves a converter for a declared field type. User
// converters registered with [Registry.WithConverter] take precedence over
// the built-ins; slices are converted element by element after splitting on
// [Settings.ListSeparator].
package convert

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrNoConverter  = errors.New("no converter found")
	ErrNotAFunction = errors.New("provided caster is not a function")
	ErrNotACaster   = errors.New("provided function is not a recognizable caster")
)

// Settings are the conversion parameters shared by every converter of a reader.
type Settings struct {
	ListSeparator string // Splits list-typed values (default ",")
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{ListSeparator: ","}
}

// Converter converts between raw strings and values of a single target type.
type Converter interface {
	// Target is the exact type produced by FromString.
	Target() reflect.Type
	FromString(raw string, s Settings) (any, error)
	ToString(v any, s Settings) (string, error)
}

type funcConverter[T any] struct {
	parse  func(string, Settings) (T, error)
	format func(T, Settings) (string, error)
}

// New builds a converter for T from a parse and a format function. A nil
// format falls back to fmt's %v verb.
func New[T any](parse func(raw string, s Settings) (T, error), format func(v T, s Settings) (string, error)) Converter {
	if parse == nil {
		panic("convert: parse function cannot be nil")
	}
	return funcConverter[T]{parse: parse, format: format}
}

// Simple builds a converter for T from settings-free functions.
func Simple[T any](parse func(string) (T, error), format func(T) string) Converter {
	var f func(T, Settings) (string, error)
	if format != nil {
		f = func(v T, _ Settings) (string, error) { return format(v), nil }
	}
	return New(func(raw string, _ Settings) (T, error) { return parse(raw) }, f)
}

func (c funcConverter[T]) Target() reflect.Type {
	return reflect.TypeFor[T]()
}

func (c funcConverter[T]) FromString(raw string, s Settings) (any, error) {
	return c.parse(raw, s)
}

func (c funcConverter[T]) ToString(v any, s Settings) (string, error) {
	t, ok := v.(T)
	if !ok {
		return "", fmt.Errorf("expected %s, got %T", c.Target(), v)
	}
	if c.format == nil {
		return fmt.Sprint(t), nil
	}
	return c.format(t, s)
}

var (
	stringType = reflect.TypeFor[string]()
	errorType  = reflect.TypeFor[error]()
)

type casterConverter struct {
	fn      reflect.Value
	dst     reflect.Type
	hasBool bool
	hasErr  bool
}

// FromCaster wraps a plain function as a converter. Supported shapes:
//   - func(string) T
//   - func(string) (T, bool)
//   - func(string) (T, error)
//   - func(string) (T, bool, error)
//
// A false bool result is reported as a conversion failure. The reverse
// direction formats with fmt's %v verb.
func FromCaster(fn any) (Converter, error) {
	fnVal := reflect.ValueOf(fn)
	if !fnVal.IsValid() || fnVal.Kind() != reflect.Func {
		return nil, ErrNotAFunction
	}
	fnType := fnVal.Type()
	if fnType.NumIn() != 1 || fnType.In(0) != stringType || fnType.NumOut() == 0 {
		return nil, ErrNotACaster
	}

	c := casterConverter{fn: fnVal, dst: fnType.Out(0)}

	switch fnType.NumOut() {
	case 1:
	case 2:
		last := fnType.Out(1)
		switch {
		case last.Kind() == reflect.Bool:
			c.hasBool = true
		case last.Implements(errorType):
			c.hasErr = true
		default:
			return nil, ErrNotACaster
		}
	case 3:
		if fnType.Out(1).Kind() != reflect.Bool || !fnType.Out(2).Implements(errorType) {
			return nil, ErrNotACaster
		}
		c.hasBool = true
		c.hasErr = true
	default:
		return nil, ErrNotACaster
	}
	return c, nil
}

func (c casterConverter) Target() reflect.Type {
	return c.dst
}

func (c casterConverter) FromString(raw string, _ Settings) (any, error) {
	out := c.fn.Call([]reflect.Value{reflect.ValueOf(raw)})
	if c.hasErr {
		if errVal := out[len(out)-1]; !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}
	}
	if c.hasBool && !out[1].Bool() {
		return nil, fmt.Errorf("cannot convert %q to %s", raw, c.dst)
	}
	return out[0].Interface(), nil
}

func (c casterConverter) ToString(v any, _ Settings) (string, error) {
	return fmt.Sprint(v), nil
}
