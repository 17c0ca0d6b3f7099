package text

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// controlChars matches C0 controls other than tab, newline and carriage
// return, plus DEL. None of them is allowed in XML 1.0 character data.
var controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

// Clean removes characters that cannot be written to a document. Invalid
// UTF-8 sequences are dropped and the result is NFC-normalised. Tabs,
// newlines and carriage returns are kept; surrounding space is not trimmed.
func Clean(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = controlChars.ReplaceAllString(s, "")
	return norm.NFC.String(s)
}
