package bind

import "fmt"

// ErrorKind classifies a binding failure.
type ErrorKind string

const (
	MissingFieldValue    ErrorKind = "MISSING_FIELD_VALUE"
	ConversionError      ErrorKind = "CONVERSION_ERROR"
	NoConverterFound     ErrorKind = "NO_CONVERTER_FOUND_FOR_VALUE"
	InstantiationFailure ErrorKind = "INSTANTIATION_ERROR"
	ColumnCountMismatch  ErrorKind = "COLUMN_COUNT_MISMATCH"
)

// InstantiationError reports one field (or the whole row) that could not be
// bound.
type InstantiationError struct {
	Column        string  // CSV column name
	GoField       string  // Go struct field name
	ProvidedValue *string // Raw value; nil when absent
	Kind          ErrorKind
	Cause         error
}

func (e InstantiationError) Error() string {
	msg := fmt.Sprintf("%s: column %q", e.Kind, e.Column)
	if e.GoField != "" && e.GoField != e.Column {
		msg += fmt.Sprintf(" (field %s)", e.GoField)
	}
	if e.ProvidedValue != nil {
		msg += fmt.Sprintf(" value %q", *e.ProvidedValue)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e InstantiationError) Unwrap() error {
	return e.Cause
}
