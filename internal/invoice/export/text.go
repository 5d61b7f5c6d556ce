package export

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// substitutes spells out symbols that have no cp1252 code point.
var substitutes = map[rune]string{
	'\u20b9': "Rs.", // rupee sign
	'\u2212': "-",   // minus sign
}

// winAnsi converts UTF-8 text to the cp1252 bytes the core PDF fonts are
// encoded in. Letters outside cp1252 fall back to their base letter and
// anything else left becomes '?'.
func winAnsi(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < utf8.RuneSelf {
			b.WriteByte(byte(r))
			continue
		}
		if sub, ok := substitutes[r]; ok {
			b.WriteString(sub)
			continue
		}
		if c, ok := charmap.Windows1252.EncodeRune(r); ok {
			b.WriteByte(c)
			continue
		}
		if c, ok := baseLetter(r); ok {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('?')
	}
	return b.String()
}

// baseLetter strips combining marks from r, e.g. ī becomes i.
func baseLetter(r rune) (byte, bool) {
	for _, part := range norm.NFD.String(string(r)) {
		if unicode.Is(unicode.Mn, part) {
			continue
		}
		return charmap.Windows1252.EncodeRune(part)
	}
	return 0, false
}
