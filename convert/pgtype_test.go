package convert

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// ----------------------------------------------------------------------------
// ParsePgNumeric Tests
// ----------------------------------------------------------------------------

func TestParsePgNumeric(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		null    bool
		wantErr bool
	}{
		{name: "positive integer", input: "123", want: 123},
		{name: "zero", input: "0", want: 0},
		{name: "negative integer", input: "-456", want: -456},
		{name: "decimal", input: "123.45", want: 123.45},
		{name: "leading decimal point", input: ".99", want: 0.99},
		{name: "trailing decimal point", input: "99.", want: 99},
		{name: "explicit positive sign", input: "+123", want: 123},

		// Currency and separators
		{name: "dollar with thousands", input: "$1,234.56", want: 1234.56},
		{name: "euro sign", input: "€1234.56", want: 1234.56},
		{name: "pound sign", input: "£1234.56", want: 1234.56},
		{name: "millions", input: "1,000,000", want: 1000000},

		// Accounting negatives
		{name: "parentheses", input: "(123.45)", want: -123.45},
		{name: "parentheses with currency", input: "($1,234.56)", want: -1234.56},
		{name: "parentheses with spaces", input: "( 999.99 )", want: -999.99},

		{name: "surrounding whitespace", input: "  123.45  ", want: 123.45},

		// Blank is NULL, not an error
		{name: "empty", input: "", null: true},
		{name: "whitespace only", input: "   ", null: true},

		// pgtype.Numeric.Scan rejects exponents
		{name: "exponent", input: "1.5e10", wantErr: true},
		{name: "negative exponent", input: "1.5e-3", wantErr: true},

		{name: "alphabetic", input: "abc", wantErr: true},
		{name: "mixed alphanumeric", input: "12abc34", wantErr: true},
		{name: "currency only", input: "$", wantErr: true},
		{name: "multiple decimal points", input: "12.34.56", wantErr: true},
		{name: "double negative", input: "--123", wantErr: true},
		{name: "trailing minus", input: "123-", wantErr: true},
		{name: "NaN", input: "NaN", wantErr: true},
		{name: "Infinity", input: "-Infinity", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePgNumeric(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePgNumeric(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Valid == tt.null {
				t.Fatalf("ParsePgNumeric(%q).Valid = %v, want %v", tt.input, got.Valid, !tt.null)
			}
			if tt.null {
				return
			}
			f, err := got.Float64Value()
			if err != nil {
				t.Fatalf("Float64Value() error: %v", err)
			}
			if f.Float64 != tt.want {
				t.Errorf("ParsePgNumeric(%q) = %v, want %v", tt.input, f.Float64, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ParsePgDate Tests
// ----------------------------------------------------------------------------

func TestParsePgDate(t *testing.T) {
	jan15 := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   string
		want    time.Time
		null    bool
		wantErr bool
	}{
		{name: "ISO", input: "2024-01-15", want: jan15},
		{name: "leap day", input: "2024-02-29", want: time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)},
		{name: "US slashes", input: "01/15/2024", want: jan15},
		{name: "US single digits", input: "1/5/2024", want: time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)},
		{name: "dashes MM-DD-YYYY", input: "01-15-2024", want: jan15},
		{name: "dots MM.DD.YYYY", input: "01.15.2024", want: jan15},
		{name: "YYYY/MM/DD", input: "2024/01/15", want: jan15},
		{name: "YYYY.MM.DD", input: "2024.01.15", want: jan15},
		{name: "text month first", input: "Jan 15, 2024", want: jan15},
		{name: "text month second", input: "15 Jan 2024", want: jan15},
		{name: "compact", input: "20240115", want: jan15},
		{name: "whitespace", input: "  2024-01-15  ", want: jan15},

		{name: "empty", input: "", null: true},
		{name: "whitespace only", input: "   ", null: true},

		{name: "text", input: "not-a-date", wantErr: true},
		{name: "month 13", input: "2024-13-01", wantErr: true},
		{name: "day 32", input: "2024-01-32", wantErr: true},
		{name: "Feb 29 in non-leap year", input: "2023-02-29", wantErr: true},
		{name: "month zero", input: "2024-00-15", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePgDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePgDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Valid == tt.null {
				t.Fatalf("ParsePgDate(%q).Valid = %v, want %v", tt.input, got.Valid, !tt.null)
			}
			if !tt.null && !got.Time.Equal(tt.want) {
				t.Errorf("ParsePgDate(%q) = %v, want %v", tt.input, got.Time, tt.want)
			}
		})
	}
}

func TestParsePgDate_TwoDigitYear(t *testing.T) {
	originalPivot := TwoDigitYearPivot
	defer func() { TwoDigitYearPivot = originalPivot }()

	TwoDigitYearPivot = 20

	tests := []struct {
		input    string
		wantYear int
	}{
		{"01/15/25", 2025},
		{"01/15/99", 1999},
		{"01/15/85", 1985},
		{"1-15-99", 1999},
		{"01.15.99", 1999},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePgDate(tt.input)
			if err != nil {
				t.Fatalf("ParsePgDate(%q) error: %v", tt.input, err)
			}
			if got.Time.Year() != tt.wantYear {
				t.Errorf("ParsePgDate(%q).Year = %d, want %d", tt.input, got.Time.Year(), tt.wantYear)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ParsePgBool / ParsePgUUID / ParsePgText Tests
// ----------------------------------------------------------------------------

func TestParsePgBool(t *testing.T) {
	tests := []struct {
		input   string
		want    pgtype.Bool
		wantErr bool
	}{
		{"true", pgtype.Bool{Bool: true, Valid: true}, false},
		{"YES", pgtype.Bool{Bool: true, Valid: true}, false},
		{" y ", pgtype.Bool{Bool: true, Valid: true}, false},
		{"1", pgtype.Bool{Bool: true, Valid: true}, false},
		{"F", pgtype.Bool{Bool: false, Valid: true}, false},
		{"no", pgtype.Bool{Bool: false, Valid: true}, false},
		{"0", pgtype.Bool{Bool: false, Valid: true}, false},
		{"", pgtype.Bool{}, false},
		{"maybe", pgtype.Bool{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePgBool(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePgBool(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePgBool(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParsePgUUID(t *testing.T) {
	got, err := ParsePgUUID("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Valid {
		t.Fatal("expected a valid UUID")
	}

	if got, err := ParsePgUUID(""); err != nil || got.Valid {
		t.Errorf("ParsePgUUID(\"\") = %+v, %v; want NULL", got, err)
	}
	if _, err := ParsePgUUID("not-a-uuid"); err == nil {
		t.Error("expected an error for a malformed UUID")
	}
}

func TestParsePgText(t *testing.T) {
	if got, _ := ParsePgText("  hello "); got != (pgtype.Text{String: "hello", Valid: true}) {
		t.Errorf("ParsePgText trimmed = %+v", got)
	}
	if got, _ := ParsePgText(" \t"); got.Valid {
		t.Errorf("blank text should be NULL, got %+v", got)
	}
}
