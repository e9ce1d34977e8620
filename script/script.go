package script

import (
	"strings"
	"unicode"

	"github.com/strauser85/snap-sold-sub000/config"
	"github.com/strauser85/snap-sold-sub000/types"
)

// Sanitize normalizes raw narration text: strips control characters and
// markup remnants, collapses whitespace. Returns an InputError when the
// result is empty or over the service's character ceiling.
func Sanitize(raw string) (string, error) {
	var b strings.Builder
	b.Grow(len(raw))

	for _, r := range raw {
		switch {
		case r == '<' || r == '>' || r == '{' || r == '}':
			// markup leftovers from the listing form
			b.WriteRune(' ')
		case unicode.IsControl(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}

	clean := strings.Join(strings.Fields(b.String()), " ")
	if clean == "" {
		return "", types.NewInputError("script is empty after sanitization")
	}
	if len(clean) > config.MaxScriptChars {
		return "", types.NewInputError("script length %d exceeds ceiling %d", len(clean), config.MaxScriptChars)
	}
	return clean, nil
}

// Tokenize splits a sanitized script into words, punctuation attached.
// An empty slice is a valid result and means "no captions", not an error.
func Tokenize(clean string) []string {
	return strings.Fields(clean)
}

// Sentences splits a sanitized script at sentence-terminal punctuation.
// Used by the caption fallback when no word timings exist.
func Sentences(clean string) []string {
	var out []string
	var cur strings.Builder

	for _, r := range clean {
		cur.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(cur.String()); s != "" {
				out = append(out, s)
			}
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}
