package records

import (
	"strings"

	"github.com/JonMunkholm/typedcsv/convert"
)

// UsStates maps US state full names to their abbreviations.
var UsStates = map[string]string{
	"alabama":        "AL",
	"alaska":         "AK",
	"arizona":        "AZ",
	"arkansas":       "AR",
	"california":     "CA",
	"colorado":       "CO",
	"connecticut":    "CT",
	"delaware":       "DE",
	"florida":        "FL",
	"georgia":        "GA",
	"hawaii":         "HI",
	"idaho":          "ID",
	"illinois":       "IL",
	"indiana":        "IN",
	"iowa":           "IA",
	"kansas":         "KS",
	"kentucky":       "KY",
	"louisiana":      "LA",
	"maine":          "ME",
	"maryland":       "MD",
	"massachusetts":  "MA",
	"michigan":       "MI",
	"minnesota":      "MN",
	"mississippi":    "MS",
	"missouri":       "MO",
	"montana":        "MT",
	"nebraska":       "NE",
	"nevada":         "NV",
	"new hampshire":  "NH",
	"new jersey":     "NJ",
	"new mexico":     "NM",
	"new york":       "NY",
	"north carolina": "NC",
	"north dakota":   "ND",
	"ohio":           "OH",
	"oklahoma":       "OK",
	"oregon":         "OR",
	"pennsylvania":   "PA",
	"rhode island":   "RI",
	"south carolina": "SC",
	"south dakota":   "SD",
	"tennessee":      "TN",
	"texas":          "TX",
	"utah":           "UT",
	"vermont":        "VT",
	"virginia":       "VA",
	"washington":     "WA",
	"west virginia":  "WV",
	"wisconsin":      "WI",
	"wyoming":        "WY",
}

// UsState is a region normalized to its two-letter code when it names a US
// state. Anything else is kept as written.
type UsState string

// NormalizeUsState converts US state names to their 2-letter abbreviations.
// Known abbreviations are upper-cased; unrecognized input is returned trimmed.
func NormalizeUsState(s string) UsState {
	s = strings.TrimSpace(s)

	if code, ok := UsStates[strings.ToLower(s)]; ok {
		return UsState(code)
	}

	upper := strings.ToUpper(s)
	for _, code := range UsStates {
		if upper == code {
			return UsState(code)
		}
	}

	return UsState(s)
}

// UsStateConverter binds UsState fields through NormalizeUsState.
var UsStateConverter = convert.Simple(
	func(s string) (UsState, error) { return NormalizeUsState(s), nil },
	func(s UsState) string { return string(s) },
)
