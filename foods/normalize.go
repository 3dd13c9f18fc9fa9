package foods

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize case-folds, trims and strips diacritics so "Brócolos" and "brocolos" compare equal.
// Every keyword comparison in the module goes through it.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}

	// transform.Chain is stateful, so it is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func containsAny(food string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(food, k) {
			return true
		}
	}
	return false
}
