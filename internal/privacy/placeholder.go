package privacy

import (
	"fmt"
	"regexp"
	"strconv"
)

// PlaceholderPattern matches substituted tokens such as "[EMAIL_3]".
// Group 1 is the kind, group 2 the sequence number.
var PlaceholderPattern = regexp.MustCompile(`\[([A-Z][A-Z0-9_]*)_([1-9][0-9]*)\]`)

// FormatToken builds the token for the seq-th value of kind, e.g. "EMAIL_3".
func FormatToken(kind Kind, seq int) string {
	return fmt.Sprintf("%s_%d", kind, seq)
}

// Placeholder wraps a token in its substitution delimiters.
func Placeholder(token string) string {
	return "[" + token + "]"
}

// ParsePlaceholder splits "[KIND_N]" into its token, kind and sequence.
func ParsePlaceholder(s string) (token string, kind Kind, seq int, ok bool) {
	m := PlaceholderPattern.FindStringSubmatch(s)
	if m == nil || m[0] != s {
		return "", "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", "", 0, false
	}
	return m[1] + "_" + m[2], Kind(m[1]), n, true
}
