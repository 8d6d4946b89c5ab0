package privacy

import (
	"errors"
	"regexp"
)

// Kind classifies the category of PII a rule detects.
type Kind string

// Built-in PII kinds. Operators may add more through extra patterns.
const (
	KindPerson      Kind = "PERSON"
	KindEmail       Kind = "EMAIL"
	KindPhone       Kind = "PHONE"
	KindSSN         Kind = "SSN"
	KindCreditCard  Kind = "CREDIT_CARD"
	KindIPAddress   Kind = "IP_ADDRESS"
	KindDateOfBirth Kind = "DATE_OF_BIRTH"
	KindAddress     Kind = "ADDRESS"
)

var kindRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Valid reports whether k can appear in a placeholder.
func (k Kind) Valid() bool {
	return kindRe.MatchString(string(k))
}

// ErrInvalidRule wraps every catalog validation failure.
var ErrInvalidRule = errors.New("invalid detection rule")

// DetectionRule represents a single PII detection rule. Exactly one of
// Pattern or Values is set.
type DetectionRule struct {
	Name     string
	Kind     Kind
	Pattern  *regexp.Regexp
	Values   *KnownValues
	Priority int
	Enabled  bool
}

// DetectedSpan is one accepted match. Offsets are byte offsets into the
// scanned text; End is exclusive.
type DetectedSpan struct {
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Kind     Kind   `json:"kind"`
	Text     string `json:"-"`
	Rule     string `json:"rule"`
	Priority int    `json:"priority"`
}

// Len returns the byte length of the span.
func (s DetectedSpan) Len() int {
	return s.End - s.Start
}

// overlaps reports whether two half-open spans share at least one byte.
func (s DetectedSpan) overlaps(o DetectedSpan) bool {
	return s.Start < o.End && o.Start < s.End
}
