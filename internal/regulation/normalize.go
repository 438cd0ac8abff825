package regulation

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTitle folds a title for identity comparison: NFKD decomposition,
// combining marks dropped, lower case, whitespace collapsed.
func NormalizeTitle(title string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
