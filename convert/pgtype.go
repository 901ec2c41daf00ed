package convert

// pgtype.go converts raw cells into pgx's nullable PostgreSQL types.
//
// Exports tend to be messy, so these parsers accept currency symbols,
// thousands separators, accounting negatives "(1.00)" and a range of date
// layouts. An empty cell yields Valid=false; anything unparsable is an error.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

func registerPgtype() {
	registerBuiltin(Simple(ParsePgText, func(v pgtype.Text) string { return v.String }))
	registerBuiltin(Simple(ParsePgNumeric, formatPgNumeric))
	registerBuiltin(Simple(ParsePgDate, func(v pgtype.Date) string {
		if !v.Valid {
			return ""
		}
		return v.Time.Format("2006-01-02")
	}))
	registerBuiltin(Simple(ParsePgBool, func(v pgtype.Bool) string {
		if !v.Valid {
			return ""
		}
		return fmt.Sprint(v.Bool)
	}))
	registerBuiltin(Simple(ParsePgUUID, func(v pgtype.UUID) string {
		if !v.Valid {
			return ""
		}
		return uuid.UUID(v.Bytes).String()
	}))
	registerBuiltin(Simple(parsePgInt8, func(v pgtype.Int8) string {
		if !v.Valid {
			return ""
		}
		return fmt.Sprint(v.Int64)
	}))
	registerBuiltin(Simple(parsePgFloat8, func(v pgtype.Float8) string {
		if !v.Valid {
			return ""
		}
		return fmt.Sprint(v.Float64)
	}))
}

// ParsePgText trims s; blank input is NULL.
func ParsePgText(s string) (pgtype.Text, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}, nil
	}
	return pgtype.Text{String: s, Valid: true}, nil
}

// ParsePgDate tries four-digit year layouts first, then two-digit years
// adjusted by TwoDigitYearPivot.
func ParsePgDate(s string) (pgtype.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{}, nil
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pgtype.Date{Time: t, Valid: true}, nil
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return pgtype.Date{Time: t, Valid: true}, nil
		}
	}

	return pgtype.Date{}, fmt.Errorf("unrecognized date %q", s)
}

// ParsePgNumeric handles currency symbols, thousands separators and
// accounting format (parentheses for negative).
func ParsePgNumeric(s string) (pgtype.Numeric, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Numeric{}, nil
	}
	raw := s

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer("$", "", "€", "", "£", "", ",", "").Replace(s)
	s = strings.TrimSpace(s)
	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{}, fmt.Errorf("invalid numeric %q", raw)
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{}, fmt.Errorf("invalid numeric %q: %w", raw, err)
	}
	return n, nil
}

func formatPgNumeric(n pgtype.Numeric) string {
	if !n.Valid {
		return ""
	}
	v, err := n.Value()
	if err != nil || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// ParsePgBool accepts the same spellings as ParseBool; blank input is NULL.
func ParsePgBool(s string) (pgtype.Bool, error) {
	if strings.TrimSpace(s) == "" {
		return pgtype.Bool{}, nil
	}
	b, err := ParseBool(s)
	if err != nil {
		return pgtype.Bool{}, err
	}
	return pgtype.Bool{Bool: b, Valid: true}, nil
}

func ParsePgUUID(s string) (pgtype.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.UUID{}, nil
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

func parsePgInt8(s string) (pgtype.Int8, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Int8{}, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return pgtype.Int8{}, err
	}
	return pgtype.Int8{Int64: n, Valid: true}, nil
}

func parsePgFloat8(s string) (pgtype.Float8, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Float8{}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return pgtype.Float8{}, err
	}
	return pgtype.Float8{Float64: f, Valid: true}, nil
}
