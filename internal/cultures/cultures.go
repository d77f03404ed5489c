// Package cultures holds the locale codes products are translated into and
// the market presets that expand to them.
package cultures

import "strings"

const (
	EnUS = "en-US"
	EsUS = "es-US"
	EnCA = "en-CA"
	FrCA = "fr-CA"
	EsMX = "es-MX"
	EnGB = "en-GB"
	EnIE = "en-IE"
	NlNL = "nl-NL"
	DeDE = "de-DE"
	PlPL = "pl-PL"
	LtLT = "lt-LT"
)

// Codes lists every supported culture code
var Codes = []string{EnUS, EsUS, EnCA, FrCA, EsMX, EnGB, EnIE, NlNL, DeDE, PlPL, LtLT}

// Presets maps a market shorthand to its culture codes
var Presets = map[string][]string{
	"US":  {EnUS, EsUS},
	"CAN": {EnCA, FrCA},
	"MX":  {EsMX},
	"EU":  {EnGB, EnIE, NlNL, DeDE, PlPL, LtLT},
	"GB":  {EnGB},
}

// Canonical returns the supported spelling of code, matched case-insensitively
func Canonical(code string) (string, bool) {
	code = strings.TrimSpace(code)
	for _, c := range Codes {
		if strings.EqualFold(c, code) {
			return c, true
		}
	}
	return code, false
}

// Expand resolves presets and explicit codes into an ordered, de-duplicated
// list. Unknown codes are kept as given.
func Expand(input []string) []string {
	out := make([]string, 0, len(input))
	seen := make(map[string]bool)

	add := func(code string) {
		key := strings.ToLower(code)
		if code == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, code)
	}

	for _, item := range input {
		item = strings.TrimSpace(item)
		if group, ok := Presets[strings.ToUpper(item)]; ok {
			for _, code := range group {
				add(code)
			}
			continue
		}
		code, _ := Canonical(item)
		add(code)
	}
	return out
}
