package privacy

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/raaihank/llm-redactor/internal/config"
)

// Catalog is the ordered, immutable set of detection rules. It is built
// once at startup and only read afterwards, so it needs no locking.
type Catalog struct {
	rules []DetectionRule
}

// NewCatalog compiles the built-in rules, the operator's extra patterns and
// the known-value list. extraKnown is appended to cfg.KnownValues.Values
// (it usually comes from a dataset file). Any malformed rule is an error.
func NewCatalog(cfg config.PrivacyConfig, extraKnown []string) (*Catalog, error) {
	c := &Catalog{}
	defaults := make(map[string]bool)
	names := make(map[string]bool)

	add := func(rule DetectionRule, enabledByDefault bool) error {
		if rule.Name == "" {
			return fmt.Errorf("%w: name is required", ErrInvalidRule)
		}
		if names[rule.Name] {
			return fmt.Errorf("%w: duplicate rule name %q", ErrInvalidRule, rule.Name)
		}
		if !rule.Kind.Valid() {
			return fmt.Errorf("%w: rule %q: kind %q must match [A-Z][A-Z0-9_]*", ErrInvalidRule, rule.Name, rule.Kind)
		}
		names[rule.Name] = true
		defaults[rule.Name] = enabledByDefault
		c.rules = append(c.rules, rule)
		return nil
	}

	for _, br := range builtinRules {
		re, err := regexp.Compile(br.expr)
		if err != nil {
			return nil, fmt.Errorf("%w: built-in rule %q: %v", ErrInvalidRule, br.name, err)
		}
		rule := DetectionRule{Name: br.name, Kind: br.kind, Pattern: re, Priority: br.priority}
		if err := add(rule, br.enabled); err != nil {
			return nil, err
		}
		// Known values sit right after e-mail in catalog order.
		if br.name == "email" {
			if err := c.addKnownValues(cfg.KnownValues, extraKnown, add); err != nil {
				return nil, err
			}
		}
	}

	for i, def := range cfg.ExtraPatterns {
		if def.Regex == "" {
			return nil, fmt.Errorf("%w: extra_patterns[%d] %q: regex is required", ErrInvalidRule, i, def.Name)
		}
		re, err := regexp.Compile(def.Regex)
		if err != nil {
			return nil, fmt.Errorf("%w: extra_patterns[%d] %q: %v", ErrInvalidRule, i, def.Name, err)
		}
		if re.MatchString("") {
			return nil, fmt.Errorf("%w: extra_patterns[%d] %q matches the empty string", ErrInvalidRule, i, def.Name)
		}
		rule := DetectionRule{Name: def.Name, Kind: Kind(def.Kind), Pattern: re, Priority: def.Priority}
		if err := add(rule, true); err != nil {
			return nil, err
		}
	}

	for name, priority := range cfg.Priorities {
		idx := c.index(name)
		if idx < 0 {
			return nil, fmt.Errorf("%w: priority override for unknown rule %q", ErrInvalidRule, name)
		}
		c.rules[idx].Priority = priority
	}

	if err := c.enable(cfg.Detectors, defaults); err != nil {
		return nil, err
	}

	return c, nil
}

// addKnownValues registers the literal lookup rule when the list is non-empty.
func (c *Catalog) addKnownValues(cfg config.KnownValuesConfig, extra []string, add func(DetectionRule, bool) error) error {
	values := append(append([]string(nil), cfg.Values...), extra...)
	kv := NewKnownValues(values, cfg.WholeWord)
	if kv.Len() == 0 {
		return nil
	}

	kind := Kind(cfg.Kind)
	if kind == "" {
		kind = KindPerson
	}
	priority := cfg.Priority
	if priority == 0 {
		priority = defaultKnownValuesPriority
	}

	return add(DetectionRule{Name: KnownValuesRule, Kind: kind, Values: kv, Priority: priority}, true)
}

// enable switches rules on according to the detectors list.
func (c *Catalog) enable(detectors []string, defaults map[string]bool) error {
	if len(detectors) == 0 {
		detectors = []string{"default"}
	}

	for _, d := range detectors {
		switch d {
		case "all":
			for i := range c.rules {
				c.rules[i].Enabled = true
			}
		case "default":
			for i := range c.rules {
				if defaults[c.rules[i].Name] {
					c.rules[i].Enabled = true
				}
			}
		default:
			idx := c.index(d)
			if idx < 0 {
				if d == KnownValuesRule {
					// Named explicitly but the list is empty: nothing to enable.
					continue
				}
				return fmt.Errorf("%w: unknown detector: %s", ErrInvalidRule, d)
			}
			c.rules[idx].Enabled = true
		}
	}
	return nil
}

func (c *Catalog) index(name string) int {
	for i := range c.rules {
		if c.rules[i].Name == name {
			return i
		}
	}
	return -1
}

// Rules returns a copy of every rule, enabled or not, in catalog order.
func (c *Catalog) Rules() []DetectionRule {
	return append([]DetectionRule(nil), c.rules...)
}

// EnabledRules returns the rules the detector runs, in catalog order.
func (c *Catalog) EnabledRules() []DetectionRule {
	var out []DetectionRule
	for _, r := range c.rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}

// Kinds returns the distinct kinds of the enabled rules, sorted.
func (c *Catalog) Kinds() []Kind {
	seen := make(map[Kind]bool)
	var kinds []Kind
	for _, r := range c.rules {
		if r.Enabled && !seen[r.Kind] {
			seen[r.Kind] = true
			kinds = append(kinds, r.Kind)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
