package convert

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimeLayouts are tried in order when parsing time.Time values.
var TimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

var exactBuiltins = map[reflect.Type]Converter{}

func registerBuiltin(c Converter) {
	exactBuiltins[c.Target()] = c
}

func init() {
	registerBuiltin(Simple(parseTime, func(v time.Time) string { return v.Format(time.RFC3339Nano) }))
	registerBuiltin(Simple(func(raw string) (time.Duration, error) {
		return time.ParseDuration(strings.TrimSpace(raw))
	}, time.Duration.String))
	registerBuiltin(Simple(func(raw string) (uuid.UUID, error) {
		return uuid.Parse(strings.TrimSpace(raw))
	}, uuid.UUID.String))
	registerPgtype()
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range TimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}

// ParseBool accepts true/false, yes/no, t/f, y/n and 1/0 in any letter case.
func ParseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", raw)
}

// builtinFor returns the built-in converter for t. Exact types are matched
// first; otherwise any type whose kind is a string, bool or number is handled,
// unless it brings its own text decoding.
func builtinFor(t reflect.Type) (Converter, bool) {
	if c, ok := exactBuiltins[t]; ok {
		return c, true
	}
	if t.Name() != "" && t.PkgPath() != "" && reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return nil, false
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return kindConverter{t: t}, true
	}
	return nil, false
}

// kindConverter handles basic kinds, including named types such as
// "type Status string".
type kindConverter struct {
	t reflect.Type
}

func (c kindConverter) Target() reflect.Type {
	return c.t
}

func (c kindConverter) FromString(raw string, _ Settings) (any, error) {
	v := reflect.New(c.t).Elem()
	switch c.t.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Bool:
		b, err := ParseBool(raw)
		if err != nil {
			return nil, err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, c.t.Bits())
		if err != nil {
			return nil, err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, c.t.Bits())
		if err != nil {
			return nil, err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), c.t.Bits())
		if err != nil {
			return nil, err
		}
		v.SetFloat(f)
	default:
		return nil, fmt.Errorf("%w for kind %v", ErrNoConverter, c.t.Kind())
	}
	return v.Interface(), nil
}

func (c kindConverter) ToString(v any, _ Settings) (string, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Type() != c.t {
		return "", fmt.Errorf("expected %s, got %T", c.t, v)
	}
	switch c.t.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, c.t.Bits()), nil
	}
	return fmt.Sprint(v), nil
}
