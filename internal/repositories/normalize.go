package repositories

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// upper trims and uppercases s with Portuguese casing rules. A Caser is not
// safe for concurrent use, so one is built per call.
func upper(s string) string {
	return cases.Upper(language.BrazilianPortuguese).String(strings.TrimSpace(s))
}
