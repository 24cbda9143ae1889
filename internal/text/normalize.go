// Package text implements guess normalization. Character names and incoming
// guesses go through the same pipeline so matching is exact by construction.
package text

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Chained transformers carry per-call buffers, so a single shared instance is
// not safe under concurrent guesses. Each call takes one from the pool for
// exclusive use. The chain decomposes to NFD, drops combining marks
// (diacritics), and recomposes: "Misaki Ayuzawa" and "Misaki Ayuzawá"
// normalize identically.
var markStrippers = sync.Pool{
	New: func() any {
		return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	},
}

// Normalize lowercases s, strips diacritics and punctuation, and collapses
// runs of whitespace to single spaces. The empty string stays empty. Safe for
// concurrent use.
func Normalize(s string) string {
	stripMarks := markStrippers.Get().(transform.Transformer)
	stripped, _, err := transform.String(stripMarks, s)
	markStrippers.Put(stripMarks)
	if err != nil {
		// Transform only fails on malformed UTF-8; match on the raw input then.
		stripped = s
	}

	var b strings.Builder
	b.Grow(len(stripped))
	space := false
	for _, r := range strings.ToLower(stripped) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		default:
			// Punctuation separates words the same way whitespace does, so
			// "ryuko-matoi" and "ryuko matoi" compare equal.
			space = true
		}
	}
	return b.String()
}
