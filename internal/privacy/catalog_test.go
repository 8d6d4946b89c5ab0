package privacy

import (
	"testing"

	"github.com/raaihank/llm-redactor/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultPrivacy() config.PrivacyConfig {
	return config.GetDefaults().Privacy
}

func ruleByName(t *testing.T, c *Catalog, name string) DetectionRule {
	t.Helper()
	for _, r := range c.Rules() {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("rule %q not in catalog", name)
	return DetectionRule{}
}

func TestNewCatalogDefaults(t *testing.T) {
	c, err := NewCatalog(defaultPrivacy(), nil)
	require.NoError(t, err)

	assert.Len(t, c.Rules(), len(builtinRules))
	assert.False(t, ruleByName(t, c, "person_name").Enabled)
	assert.True(t, ruleByName(t, c, "email").Enabled)

	kinds := c.Kinds()
	assert.Contains(t, kinds, KindEmail)
	assert.Contains(t, kinds, KindPhone)
	assert.NotContains(t, kinds, KindPerson, "no known values and heuristic disabled")
}

func TestNewCatalogKnownValuesOrder(t *testing.T) {
	cfg := defaultPrivacy()
	cfg.KnownValues.Values = []string{"Akhil", " ", "Akhil"}

	c, err := NewCatalog(cfg, []string{"Madhu Vutukuri"})
	require.NoError(t, err)

	rules := c.Rules()
	require.Greater(t, len(rules), 3)
	assert.Equal(t, "email", rules[2].Name)
	assert.Equal(t, KnownValuesRule, rules[3].Name)

	kv := ruleByName(t, c, KnownValuesRule)
	assert.True(t, kv.Enabled)
	assert.Equal(t, KindPerson, kv.Kind)
	assert.Equal(t, 75, kv.Priority)
	assert.Equal(t, []string{"Akhil", "Madhu Vutukuri"}, kv.Values.Values())
}

func TestNewCatalogDetectorSelection(t *testing.T) {
	cfg := defaultPrivacy()
	cfg.Detectors = []string{"email", "phone"}

	c, err := NewCatalog(cfg, nil)
	require.NoError(t, err)

	var names []string
	for _, r := range c.EnabledRules() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"email", "phone"}, names)

	cfg.Detectors = []string{"all"}
	c, err = NewCatalog(cfg, nil)
	require.NoError(t, err)
	assert.True(t, ruleByName(t, c, "person_name").Enabled)
}

func TestNewCatalogExtraPatternsAndPriorities(t *testing.T) {
	cfg := defaultPrivacy()
	cfg.ExtraPatterns = []config.PatternConfig{
		{Name: "employee_id", Kind: "EMPLOYEE_ID", Regex: `EMP-\d{6}`, Priority: 55},
	}
	cfg.Priorities = map[string]int{"phone": 95}

	c, err := NewCatalog(cfg, nil)
	require.NoError(t, err)

	extra := ruleByName(t, c, "employee_id")
	assert.True(t, extra.Enabled)
	assert.Equal(t, Kind("EMPLOYEE_ID"), extra.Kind)
	assert.Equal(t, 95, ruleByName(t, c, "phone").Priority)
}

func TestNewCatalogRejectsMalformedRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.PrivacyConfig)
	}{
		{"bad regex", func(c *config.PrivacyConfig) {
			c.ExtraPatterns = []config.PatternConfig{{Name: "x", Kind: "X", Regex: `(`}}
		}},
		{"empty regex", func(c *config.PrivacyConfig) {
			c.ExtraPatterns = []config.PatternConfig{{Name: "x", Kind: "X"}}
		}},
		{"matches empty", func(c *config.PrivacyConfig) {
			c.ExtraPatterns = []config.PatternConfig{{Name: "x", Kind: "X", Regex: `a*`}}
		}},
		{"lowercase kind", func(c *config.PrivacyConfig) {
			c.ExtraPatterns = []config.PatternConfig{{Name: "x", Kind: "badge", Regex: `B\d+`}}
		}},
		{"missing name", func(c *config.PrivacyConfig) {
			c.ExtraPatterns = []config.PatternConfig{{Kind: "X", Regex: `B\d+`}}
		}},
		{"duplicate name", func(c *config.PrivacyConfig) {
			c.ExtraPatterns = []config.PatternConfig{{Name: "email", Kind: "X", Regex: `B\d+`}}
		}},
		{"unknown detector", func(c *config.PrivacyConfig) {
			c.Detectors = []string{"passport"}
		}},
		{"unknown priority override", func(c *config.PrivacyConfig) {
			c.Priorities = map[string]int{"passport": 10}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultPrivacy()
			tt.mutate(&cfg)
			_, err := NewCatalog(cfg, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRule)
		})
	}
}

func TestCatalogRulesIsACopy(t *testing.T) {
	c, err := NewCatalog(defaultPrivacy(), nil)
	require.NoError(t, err)

	rules := c.Rules()
	rules[0].Priority = -1
	rules[0].Enabled = false

	assert.NotEqual(t, -1, c.Rules()[0].Priority)
	assert.True(t, c.Rules()[0].Enabled)
}

func TestParsePlaceholder(t *testing.T) {
	tok, kind, seq, ok := ParsePlaceholder("[IP_ADDRESS_12]")
	require.True(t, ok)
	assert.Equal(t, "IP_ADDRESS_12", tok)
	assert.Equal(t, KindIPAddress, kind)
	assert.Equal(t, 12, seq)

	for _, s := range []string{"[EMAIL_0]", "[email_1]", "EMAIL_1", "[EMAIL_1] ", "[EMAIL]"} {
		_, _, _, ok := ParsePlaceholder(s)
		assert.False(t, ok, s)
	}

	assert.Equal(t, "[PHONE_2]", Placeholder(FormatToken(KindPhone, 2)))
}
