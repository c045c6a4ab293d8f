package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases s and strips diacritics ("Cariñitos" -> "carinitos").
func Normalize(s string) string {
	return strings.ToLower(stripMarks(strings.TrimSpace(s)))
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// ContainsAny reports whether the normalized text contains any of the keywords.
// Keywords are expected to be normalized already.
func ContainsAny(normalized string, keywords ...string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

// Pad rejoins the words of normalized text with single spaces and surrounds
// them with one more on each side, so " "+keyword finds word starts only.
// Punctuation such as "¿" or "," is dropped.
func Pad(normalized string) string {
	return " " + strings.Join(Words(normalized), " ") + " "
}

// StartsWord reports whether any keyword begins at a word start of padded,
// which must come from Pad.
func StartsWord(padded string, keywords ...string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(padded, " "+kw) {
			return true
		}
	}
	return false
}

// Words splits normalized text on anything that is not a letter or digit.
func Words(normalized string) []string {
	return strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// ForSpeech prepares assistant text for synthesis: diacritics and emoji are
// removed and whitespace is collapsed.
func ForSpeech(s string) string {
	stripped := stripMarks(s)
	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		switch {
		case r == '*' || r == '_' || r == '~':
			continue
		case isEmoji(r):
			continue
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r >= 0x2B00 && r <= 0x2BFF:
		return true
	case r == 0xFE0F || r == 0x200D || r == 0x20E3:
		return true
	case r >= 0xE0020 && r <= 0xE007F:
		return true
	}
	return unicode.Is(unicode.So, r)
}
