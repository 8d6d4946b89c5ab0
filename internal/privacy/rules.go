package privacy

// builtinRule is the uncompiled form of a built-in rule.
type builtinRule struct {
	name     string
	kind     Kind
	expr     string
	priority int
	enabled  bool
}

// Name of the rule backed by the known-value list.
const KnownValuesRule = "known_values"

// defaultKnownValuesPriority sits above every pattern that could swallow a
// name (address, the capitalised-words heuristic) and below the structured
// identifiers that may legitimately contain one (an e-mail local part).
const defaultKnownValuesPriority = 75

// builtinRules is the built-in catalog, in catalog order. Catalog order is
// the last tie-break when two candidates are otherwise indistinguishable.
var builtinRules = []builtinRule{
	{"ssn", KindSSN, `\b\d{3}-\d{2}-\d{4}\b`, 90, true},
	{"credit_card", KindCreditCard, `\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`, 85, true},
	{"email", KindEmail, `\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`, 80, true},
	{"ip_address", KindIPAddress, `\b(?:(?:25[0-5]|2[0-4]\d|1?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|1?\d?\d)\b`, 70, true},
	{"date_of_birth", KindDateOfBirth, `\b(?:0[1-9]|1[0-2])[/-](?:0[1-9]|[12]\d|3[01])[/-](?:19|20)\d{2}\b`, 65, true},
	{"phone", KindPhone, `(?:\+1[-. ]?|\b1[-. ])?(?:\(\d{3}\)|\b\d{3})[-. ]?\d{3}[-. ]?\d{4}\b`, 60, true},
	{"address", KindAddress, `\b\d+ [A-Za-z][A-Za-z ]*? (?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct)\b`, 50, true},
	{"person_name", KindPerson, `\b[A-Z][a-z]+(?: [A-Z][a-z]+){1,2}\b`, 40, false},
}

// DefaultRuleNames lists the built-in pattern rules in catalog order.
func DefaultRuleNames() []string {
	names := make([]string, 0, len(builtinRules))
	for _, s := range builtinRules {
		names = append(names, s.name)
	}
	return names
}
