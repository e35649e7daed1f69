// Package normalize provides name normalization for library identity keys.
//
// Artist and album identity is name-based: "The Beatles", "the beatles " and
// "THE  BEATLES" must resolve to the same index entry, while the first-seen
// display form is preserved on the record itself.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Name cleans a display name: Unicode NFC, trimmed, inner whitespace collapsed.
func Name(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Key derives the identity key for a name: cleaned, then case-folded.
// Empty input yields an empty key; callers are expected to have substituted
// an "Unknown Artist"/"Unknown Album" placeholder before keying.
func Key(s string) string {
	return folder.String(Name(s))
}
