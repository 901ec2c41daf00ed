package convert

import (
	"encoding"
	"fmt"
	"reflect"
	"strings"
)

// Registry resolves converters for field types. It is a value: every With*
// method returns a modified copy and leaves the receiver untouched.
type Registry struct {
	user []Converter // Registration order; later entries win
}

// NewRegistry returns a registry holding convs in addition to the built-ins.
func NewRegistry(convs ...Converter) Registry {
	return Registry{}.WithConverters(convs...)
}

// WithConverter returns a copy where c takes precedence over every earlier
// converter for the same target type.
func (r Registry) WithConverter(c Converter) Registry {
	if c == nil {
		return r
	}
	user := make([]Converter, len(r.user), len(r.user)+1)
	copy(user, r.user)
	r.user = append(user, c)
	return r
}

// WithConverters applies WithConverter for each converter in order.
func (r Registry) WithConverters(convs ...Converter) Registry {
	for _, c := range convs {
		r = r.WithConverter(c)
	}
	return r
}

// WithClearedConverters returns a copy without user converters. Built-ins
// remain available.
func (r Registry) WithClearedConverters() Registry {
	return Registry{}
}

// Converters returns the user converters in registration order.
func (r Registry) Converters() []Converter {
	return append([]Converter(nil), r.user...)
}

var (
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
)

// Resolve finds the conversion for t. The order is: user converters (most
// recent first), built-ins, encoding.TextUnmarshaler, pointers to a
// resolvable element, slices of a resolvable element.
func (r Registry) Resolve(t reflect.Type) (Resolved, bool) {
	if t == nil {
		return Resolved{}, false
	}
	for i := len(r.user) - 1; i >= 0; i-- {
		if c := r.user[i]; c.Target() == t {
			return fromConverter(t, c), true
		}
	}
	if c, ok := builtinFor(t); ok {
		return fromConverter(t, c), true
	}
	if t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return fromText(t), true
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem, ok := r.Resolve(t.Elem())
		if !ok {
			return Resolved{}, false
		}
		return pointerOf(t, elem), true
	case reflect.Slice:
		elem, ok := r.Resolve(t.Elem())
		if !ok {
			return Resolved{}, false
		}
		return sliceOf(t, elem), true
	}
	return Resolved{}, false
}

// Resolved is a conversion bound to one Go type.
type Resolved struct {
	Type reflect.Type

	parse  func(raw string, s Settings) (reflect.Value, error)
	format func(v reflect.Value, s Settings) (string, error)
}

// Parse converts raw into a value assignable to Type.
func (r Resolved) Parse(raw string, s Settings) (reflect.Value, error) {
	if r.parse == nil {
		return reflect.Value{}, fmt.Errorf("%w for %v", ErrNoConverter, r.Type)
	}
	return r.parse(raw, s)
}

// Format converts v back to its raw string form.
func (r Resolved) Format(v reflect.Value, s Settings) (string, error) {
	if r.format == nil {
		return "", fmt.Errorf("%w for %v", ErrNoConverter, r.Type)
	}
	return r.format(v, s)
}

func fromConverter(t reflect.Type, c Converter) Resolved {
	return Resolved{
		Type: t,
		parse: func(raw string, s Settings) (reflect.Value, error) {
			v, err := c.FromString(raw, s)
			if err != nil {
				return reflect.Value{}, err
			}
			rv := reflect.ValueOf(v)
			switch {
			case !rv.IsValid():
				return reflect.Zero(t), nil
			case rv.Type() == t:
				return rv, nil
			case rv.Type().ConvertibleTo(t):
				return rv.Convert(t), nil
			}
			return reflect.Value{}, fmt.Errorf("converter for %v produced %v", t, rv.Type())
		},
		format: func(v reflect.Value, s Settings) (string, error) {
			return c.ToString(v.Interface(), s)
		},
	}
}

func fromText(t reflect.Type) Resolved {
	return Resolved{
		Type: t,
		parse: func(raw string, _ Settings) (reflect.Value, error) {
			ptr := reflect.New(t)
			if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw)); err != nil {
				return reflect.Value{}, err
			}
			return ptr.Elem(), nil
		},
		format: func(v reflect.Value, _ Settings) (string, error) {
			if v.Type().Implements(textMarshalerType) {
				b, err := v.Interface().(encoding.TextMarshaler).MarshalText()
				return string(b), err
			}
			if reflect.PointerTo(t).Implements(textMarshalerType) {
				ptr := reflect.New(t)
				ptr.Elem().Set(v)
				b, err := ptr.Interface().(encoding.TextMarshaler).MarshalText()
				return string(b), err
			}
			return fmt.Sprint(v.Interface()), nil
		},
	}
}

func pointerOf(t reflect.Type, elem Resolved) Resolved {
	return Resolved{
		Type: t,
		parse: func(raw string, s Settings) (reflect.Value, error) {
			v, err := elem.Parse(raw, s)
			if err != nil {
				return reflect.Value{}, err
			}
			ptr := reflect.New(t.Elem())
			ptr.Elem().Set(v)
			return ptr, nil
		},
		format: func(v reflect.Value, s Settings) (string, error) {
			if v.IsNil() {
				return "", nil
			}
			return elem.Format(v.Elem(), s)
		},
	}
}

func listSeparator(s Settings) string {
	if s.ListSeparator == "" {
		return DefaultSettings().ListSeparator
	}
	return s.ListSeparator
}

func sliceOf(t reflect.Type, elem Resolved) Resolved {
	return Resolved{
		Type: t,
		parse: func(raw string, s Settings) (reflect.Value, error) {
			out := reflect.MakeSlice(t, 0, 0)
			if raw == "" {
				return out, nil
			}
			for i, token := range strings.Split(raw, listSeparator(s)) {
				if token == "" {
					continue
				}
				v, err := elem.Parse(token, s)
				if err != nil {
					return reflect.Value{}, fmt.Errorf("list element %d: %w", i, err)
				}
				out = reflect.Append(out, v)
			}
			return out, nil
		},
		format: func(v reflect.Value, s Settings) (string, error) {
			parts := make([]string, v.Len())
			for i := range parts {
				p, err := elem.Format(v.Index(i), s)
				if err != nil {
					return "", fmt.Errorf("list element %d: %w", i, err)
				}
				parts[i] = p
			}
			return strings.Join(parts, listSeparator(s)), nil
		},
	}
}
