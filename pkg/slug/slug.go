// Package slug derives URL-safe identifiers from display names.
package slug

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Common accented Latin letters folded to ASCII so product names imported
// from supplier feeds produce stable slugs.
var foldAccents = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ä", "a", "ã", "a", "å", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"í", "i", "ì", "i", "î", "i", "ï", "i", "ı", "i",
	"ó", "o", "ò", "o", "ô", "o", "ö", "o", "õ", "o", "ø", "o",
	"ú", "u", "ù", "u", "û", "u", "ü", "u",
	"ç", "c", "ñ", "n", "ş", "s", "ğ", "g", "ý", "y", "ß", "ss",
)

// Generate lowercases the name, folds accented letters to ASCII, and joins
// the remaining alphanumeric runs with single hyphens.
//
//	Generate("Mechanical Keyboard")  == "mechanical-keyboard"
//	Generate("Café & Crème Set!!")   == "cafe-creme-set"
func Generate(name string) string {
	s := foldAccents.Replace(strings.ToLower(strings.TrimSpace(name)))
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
