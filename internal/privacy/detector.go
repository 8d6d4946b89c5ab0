package privacy

import (
	"fmt"
	"math"
	"sort"

	"github.com/raaihank/llm-redactor/internal/config"
	"github.com/raaihank/llm-redactor/internal/logger"
	"go.uber.org/zap"
)

// protectedRule names the candidates produced for placeholders that are
// already present in the text. They outrank every catalog rule and are
// never returned.
const protectedRule = "placeholder"

// Detector scans text against a Catalog. It holds no mutable state and is
// safe for concurrent use.
type Detector struct {
	catalog *Catalog
	rules   []DetectionRule
}

// New builds the catalog from configuration and returns a detector over it.
func New(cfg config.PrivacyConfig, knownValues []string, log *logger.Logger) (*Detector, error) {
	catalog, err := NewCatalog(cfg, knownValues)
	if err != nil {
		return nil, fmt.Errorf("failed to build pattern catalog: %w", err)
	}

	detector := NewDetector(catalog)

	log.Info("Privacy detector initialized",
		zap.Int("total_rules", len(catalog.Rules())),
		zap.Int("enabled_rules", len(detector.rules)),
		zap.Strings("enabled", detector.EnabledRuleNames()),
	)

	return detector, nil
}

// NewDetector returns a detector over an already built catalog.
func NewDetector(catalog *Catalog) *Detector {
	return &Detector{catalog: catalog, rules: catalog.EnabledRules()}
}

// Catalog returns the catalog the detector was built from.
func (d *Detector) Catalog() *Catalog {
	return d.catalog
}

// EnabledRuleNames returns the names of the rules the detector runs.
func (d *Detector) EnabledRuleNames() []string {
	names := make([]string, 0, len(d.rules))
	for _, r := range d.rules {
		names = append(names, r.Name)
	}
	return names
}

// candidate is a raw match before overlap resolution.
type candidate struct {
	DetectedSpan
	order int
}

// Detect returns the non-overlapping PII spans of text sorted by start
// offset. Identical input always yields identical output.
func (d *Detector) Detect(text string) []DetectedSpan {
	if text == "" {
		return nil
	}

	cands := d.collect(text)
	if len(cands) == 0 {
		return nil
	}

	accepted := resolve(cands)

	spans := make([]DetectedSpan, 0, len(accepted))
	for _, c := range accepted {
		if c.Rule == protectedRule {
			continue
		}
		spans = append(spans, c.DetectedSpan)
	}
	if len(spans) == 0 {
		return nil
	}
	return spans
}

// collect runs every enabled rule over the full text.
func (d *Detector) collect(text string) []candidate {
	var cands []candidate

	for _, loc := range PlaceholderPattern.FindAllStringIndex(text, -1) {
		cands = append(cands, candidate{
			DetectedSpan: DetectedSpan{
				Start:    loc[0],
				End:      loc[1],
				Text:     text[loc[0]:loc[1]],
				Rule:     protectedRule,
				Priority: math.MaxInt,
			},
			order: -1,
		})
	}

	for order, rule := range d.rules {
		var locs [][]int
		if rule.Values != nil {
			locs = rule.Values.FindAllIndex(text)
		} else {
			locs = rule.Pattern.FindAllStringIndex(text, -1)
		}
		for _, loc := range locs {
			if loc[1] <= loc[0] {
				continue
			}
			cands = append(cands, candidate{
				DetectedSpan: DetectedSpan{
					Start:    loc[0],
					End:      loc[1],
					Kind:     rule.Kind,
					Text:     text[loc[0]:loc[1]],
					Rule:     rule.Name,
					Priority: rule.Priority,
				},
				order: order,
			})
		}
	}

	return cands
}

// resolve keeps a conflict-free subset of cands. Candidates are ranked by
// priority (higher first), then length (longer first), then start offset
// (earlier first), then catalog order; each is accepted unless it overlaps
// one already accepted. The result is sorted by start offset.
func resolve(cands []candidate) []candidate {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Len() != b.Len() {
			return a.Len() > b.Len()
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.order < b.order
	})

	var accepted []candidate
	for _, c := range cands {
		if overlapsAny(accepted, c) {
			continue
		}
		accepted = append(accepted, c)
	}

	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].Start < accepted[j].Start
	})
	return accepted
}

// overlapsAny reports whether c overlaps any span in accepted.
func overlapsAny(accepted []candidate, c candidate) bool {
	for _, a := range accepted {
		if a.overlaps(c.DetectedSpan) {
			return true
		}
	}
	return false
}
