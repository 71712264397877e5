package dict

import (
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalize maps text to the canonical form used by the search index:
// width-folded, NFKC-normalized, lowercased, katakana converted to
// hiragana. Index text and queries must go through the same mapping
// for substring search to line up.
func Normalize(s string) string {
	s = width.Fold.String(s)
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	return ToHiragana(s)
}

// ToHiragana converts katakana runes to hiragana.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}
