// Package reader turns delimited text into rows of raw field values.
//
// It has two stages:
//
//   - Tokenizing: [Reader.Rows] scans the input as one character stream and
//     yields a [RawRow] per logical record. Quoted fields may contain the
//     separator, escaped quotes and line breaks.
//   - Header binding: [Reader.Read] takes the first row as the header (or
//     uses the one given to [Reader.WithHeader]) and yields a [HeaderedRow]
//     per data row, addressable by column name.
//
// Both sequences are lazy and single-pass. Iteration stops as soon as the
// consumer stops pulling, so no explicit cancellation is needed.
//
// # Configuration
//
// [Reader] is a value type. Every With* method returns a modified copy and
// leaves the receiver untouched, so a configured reader can be shared freely
// between goroutines:
//
//	r := reader.New().
//	    WithSeparator(';').
//	    WithTrimEntries(true).
//	    WithSkipEmptyLines(true)
//
//	for row, err := range r.Read(file) {
//	    if err != nil {
//	        // the row was excluded (e.g. unterminated quote)
//	        continue
//	    }
//	    name, _ := row.Get("name")
//	    fmt.Println(row.Line, name.String)
//	}
//
// # Errors
//
// A quoted field left open at the end of input is reported as a [*ParseError]
// wrapping [ErrUnterminatedQuote]. The affected row is not yielded as data.
// Errors from the underlying reader are passed through as they are. Both
// end iteration.
package reader
