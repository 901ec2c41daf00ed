// Package typedcsv reads CSV input into typed Go structs.
//
// A Reader[T] tokenizes the input, binds each row to the header and converts
// every value into the matching field of T. Failures are reported per row,
// never by aborting the whole read:
//
//	r := typedcsv.MustNew[Person]().WithSeparator(';')
//	for row, err := range r.ReadFile("people.csv") {
//		if err != nil {
//			// the physical row could not be tokenized and was skipped
//			continue
//		}
//		if row.HasErrors() {
//			log.Println(row.Errors)
//			continue
//		}
//		use(row.Result)
//	}
//
// Readers are immutable values. Every With method returns a modified copy, so
// a configured reader can be shared between goroutines.
package typedcsv

import (
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/typedcsv/bind"
	"github.com/JonMunkholm/typedcsv/convert"
	"github.com/JonMunkholm/typedcsv/internal/source"
	"github.com/JonMunkholm/typedcsv/reader"
)

// Reader reads rows of T.
type Reader[T any] struct {
	csv      reader.Reader
	registry convert.Registry
	settings convert.Settings
	strict   bool
	source   source.Options
	client   *http.Client
	logger   *slog.Logger
	plan     *bind.Plan
}

// New returns a reader for T with the default CSV settings. T must be a
// struct type.
func New[T any]() (Reader[T], error) {
	plan, err := bind.PlanFor[T]()
	if err != nil {
		return Reader[T]{}, err
	}
	return Reader[T]{
		csv:      reader.New(),
		registry: convert.NewRegistry(),
		settings: convert.DefaultSettings(),
		plan:     plan,
	}, nil
}

// MustNew is like New but panics when T is not a struct.
func MustNew[T any]() Reader[T] {
	r, err := New[T]()
	if err != nil {
		panic(err)
	}
	return r
}

// Options returns the effective tokenizer settings.
func (r Reader[T]) Options() reader.Options {
	return r.csv.Options()
}

// Header returns the explicit header, or nil when it is read from the input.
func (r Reader[T]) Header() []string {
	return r.csv.Header()
}

// ListSeparator returns the separator used for list-typed fields.
func (r Reader[T]) ListSeparator() string {
	return r.settings.ListSeparator
}

// Converters returns the user converters in registration order.
func (r Reader[T]) Converters() []convert.Converter {
	return r.registry.Converters()
}

// Plan returns the field binding plan for T.
func (r Reader[T]) Plan() *bind.Plan {
	return r.plan
}

func (r Reader[T]) WithSeparator(c rune) Reader[T] {
	r.csv = r.csv.WithSeparator(c)
	return r
}

// WithDelimiter sets the quote character.
func (r Reader[T]) WithDelimiter(c rune) Reader[T] {
	r.csv = r.csv.WithDelimiter(c)
	return r
}

func (r Reader[T]) WithEscapeCharacter(c rune) Reader[T] {
	r.csv = r.csv.WithEscapeCharacter(c)
	return r
}

func (r Reader[T]) WithTrimEntries(trim bool) Reader[T] {
	r.csv = r.csv.WithTrimEntries(trim)
	return r
}

func (r Reader[T]) WithSkipEmptyLines(skip bool) Reader[T] {
	r.csv = r.csv.WithSkipEmptyLines(skip)
	return r
}

func (r Reader[T]) WithEmptyStringsAsNull(emptyAsNull bool) Reader[T] {
	r.csv = r.csv.WithEmptyStringsAsNull(emptyAsNull)
	return r
}

// WithHeader uses names as the header and treats every input row as data.
func (r Reader[T]) WithHeader(names ...string) Reader[T] {
	r.csv = r.csv.WithHeader(names...)
	return r
}

// WithListSeparator sets the separator that splits list-typed values.
func (r Reader[T]) WithListSeparator(sep string) Reader[T] {
	r.settings.ListSeparator = sep
	return r
}

// WithConverter registers c ahead of every converter for the same type.
func (r Reader[T]) WithConverter(c convert.Converter) Reader[T] {
	r.registry = r.registry.WithConverter(c)
	return r
}

func (r Reader[T]) WithConverters(convs ...convert.Converter) Reader[T] {
	r.registry = r.registry.WithConverters(convs...)
	return r
}

// WithClearedConverters drops user converters; built-ins remain.
func (r Reader[T]) WithClearedConverters() Reader[T] {
	r.registry = r.registry.WithClearedConverters()
	return r
}

// WithStrictColumnCount reports rows whose width differs from the header as
// COLUMN_COUNT_MISMATCH instead of padding or truncating them silently.
func (r Reader[T]) WithStrictColumnCount(strict bool) Reader[T] {
	r.strict = strict
	return r
}

// WithCharset decodes file and URL sources from the given WHATWG encoding
// label (e.g. "latin1"). Byte order marks still take precedence.
func (r Reader[T]) WithCharset(label string) Reader[T] {
	r.source.Charset = label
	return r
}

// WithHTTPClient sets the client used by ReadURL.
func (r Reader[T]) WithHTTPClient(c *http.Client) Reader[T] {
	r.client = c
	return r
}

// WithLogger sets the logger for excluded rows. nil restores slog.Default.
func (r Reader[T]) WithLogger(l *slog.Logger) Reader[T] {
	r.logger = l
	return r
}

func (r Reader[T]) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}
