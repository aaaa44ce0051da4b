// Package searchindex derives the transliteration index used for filename search.
package searchindex

import (
	"path"
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	fullArgs    = pinyin.NewArgs()
	initialArgs = func() pinyin.Args {
		a := pinyin.NewArgs()
		a.Style = pinyin.FirstLetter
		return a
	}()
)

// Build returns a lowercase index of filename: the name without diacritics,
// the Han characters as joined pinyin, and their initials. It is empty when
// the name holds nothing beyond what a plain LIKE on the filename matches.
func Build(filename string) string {
	base := strings.TrimSuffix(filename, path.Ext(filename))
	folded := Fold(base)

	full := strings.Join(pinyin.LazyPinyin(base, fullArgs), "")
	initials := strings.Join(pinyin.LazyPinyin(base, initialArgs), "")

	parts := make([]string, 0, 3)
	if folded != strings.ToLower(base) {
		parts = append(parts, folded)
	}
	if full != "" {
		parts = append(parts, full, initials)
	}
	return strings.Join(parts, " ")
}

// Fold lowercases s and strips combining marks (é -> e).
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
