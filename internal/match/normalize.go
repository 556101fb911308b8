package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var entitySuffixes = regexp.MustCompile(
	`(?i)\s*,?\s*\b(LLC|L\.?L\.?C\.?|INC\.?|INCORPORATED|CORP\.?|CORPORATION|` +
		`CO\.?|COMPANY|LTD\.?|LIMITED|L\.?P\.?|LLP|PLC|GMBH|AG|SA|BV|SDN\.? BHD\.?|` +
		`S\.?A\.? DE C\.?V\.?|PVT\.?)\s*\.?\s*$`)

var nonAlnum = regexp.MustCompile(`[^A-Z0-9& ]+`)

var multiSpace = regexp.MustCompile(`\s{2,}`)

// NormalizeName reduces a company name to a comparison key: accents folded,
// upper-cased, punctuation dropped and trailing entity suffixes stripped.
// "Samsung Electronics Co., Ltd." and "SAMSUNG ELECTRONICS" share a key.
func NormalizeName(name string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		name,
	)
	if err != nil {
		folded = name
	}
	n := strings.ToUpper(strings.TrimSpace(folded))
	n = nonAlnum.ReplaceAllString(n, " ")
	n = multiSpace.ReplaceAllString(n, " ")
	n = strings.TrimSpace(n)

	// Strip stacked suffixes ("CO LTD", "SA DE CV").
	for {
		stripped := strings.TrimSpace(entitySuffixes.ReplaceAllString(n, ""))
		if stripped == n || stripped == "" {
			break
		}
		n = stripped
	}
	return n
}
