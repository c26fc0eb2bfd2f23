// Package normalize reduces raw answers to a canonical, comparable form.
//
// Two answers match if and only if their canonical forms are byte-for-byte
// equal. The same transform applies to every supported locale.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD and drops combining marks, so "café" and
// "cafe" canonicalize identically.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Answer returns the canonical form of a raw answer: lower-cased, accents
// folded to their base letters, surrounding whitespace trimmed. It is pure,
// deterministic and idempotent.
func Answer(raw string) string {
	folded, _, err := transform.String(stripMarks, strings.ToLower(raw))
	if err != nil {
		// The transform chain cannot fail on valid UTF-8; on malformed
		// input fall back to the lower-cased original.
		folded = strings.ToLower(raw)
	}
	return strings.TrimSpace(folded)
}

// Match reports whether two raw answers agree after canonicalization.
func Match(a, b string) bool {
	return Answer(a) == Answer(b)
}
