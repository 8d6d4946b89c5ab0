package privacy

import (
	"testing"

	"github.com/raaihank/llm-redactor/internal/config"
	"github.com/raaihank/llm-redactor/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDetector(t *testing.T, mutate func(*config.PrivacyConfig)) *Detector {
	t.Helper()
	cfg := defaultPrivacy()
	if mutate != nil {
		mutate(&cfg)
	}
	d, err := New(cfg, nil, logger.NewNop())
	require.NoError(t, err)
	return d
}

func withKnown(values ...string) func(*config.PrivacyConfig) {
	return func(c *config.PrivacyConfig) {
		c.KnownValues.Values = values
	}
}

type wantSpan struct {
	kind Kind
	text string
}

func spansOf(spans []DetectedSpan) []wantSpan {
	out := make([]wantSpan, 0, len(spans))
	for _, s := range spans {
		out = append(out, wantSpan{s.Kind, s.Text})
	}
	return out
}

func TestDetectBuiltInKinds(t *testing.T) {
	d := newTestDetector(t, nil)

	tests := []struct {
		name string
		text string
		want []wantSpan
	}{
		{"email", "My email is john.doe@example.com", []wantSpan{{KindEmail, "john.doe@example.com"}}},
		{"phones", "Call +1-555-123-4567 or 555-987-6543", []wantSpan{
			{KindPhone, "+1-555-123-4567"},
			{KindPhone, "555-987-6543"},
		}},
		{"phone with area code parens", "office: (555) 123-4567", []wantSpan{{KindPhone, "(555) 123-4567"}}},
		{"ssn", "SSN 123-45-6789 on file", []wantSpan{{KindSSN, "123-45-6789"}}},
		{"credit card", "card 4111 1111 1111 1111 expires", []wantSpan{{KindCreditCard, "4111 1111 1111 1111"}}},
		{"ip", "host 192.168.1.20 is down", []wantSpan{{KindIPAddress, "192.168.1.20"}}},
		{"date of birth", "born 01/15/1990", []wantSpan{{KindDateOfBirth, "01/15/1990"}}},
		{"address", "lives at 221 Baker Street now", []wantSpan{{KindAddress, "221 Baker Street"}}},
		{"nothing", "hello there, how are you?", []wantSpan{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, spansOf(d.Detect(tt.text)))
		})
	}
}

func TestDetectEmptyText(t *testing.T) {
	d := newTestDetector(t, nil)
	assert.Nil(t, d.Detect(""))
}

func TestDetectOffsets(t *testing.T) {
	d := newTestDetector(t, nil)
	text := "My email is john.doe@example.com"

	spans := d.Detect(text)
	require.Len(t, spans, 1)
	assert.Equal(t, 12, spans[0].Start)
	assert.Equal(t, len(text), spans[0].End)
	assert.Equal(t, "email", spans[0].Rule)
	assert.Equal(t, text[spans[0].Start:spans[0].End], spans[0].Text)
}

func TestDetectHigherPriorityWinsOverLonger(t *testing.T) {
	d := newTestDetector(t, func(c *config.PrivacyConfig) {
		c.ExtraPatterns = []config.PatternConfig{
			{Name: "account", Kind: "ACCOUNT", Regex: `ACCT-\d{3}-\d{2}-\d{4}`, Priority: 10},
		}
	})

	spans := d.Detect("ref ACCT-123-45-6789")
	assert.Equal(t, []wantSpan{{KindSSN, "123-45-6789"}}, spansOf(spans))
}

func TestDetectKnownValueLosesToEmail(t *testing.T) {
	d := newTestDetector(t, withKnown("Akhil"))

	spans := d.Detect("write to Akhil.K@example.com or ask Akhil")
	assert.Equal(t, []wantSpan{
		{KindEmail, "Akhil.K@example.com"},
		{KindPerson, "Akhil"},
	}, spansOf(spans))
}

func TestDetectLongerWinsOnPriorityTie(t *testing.T) {
	d := newTestDetector(t, withKnown("Akhil", "Akhil Shanmukha Kothamasu", "Kothamasu"))

	spans := d.Detect("Akhil Shanmukha Kothamasu joined")
	assert.Equal(t, []wantSpan{{KindPerson, "Akhil Shanmukha Kothamasu"}}, spansOf(spans))
}

func TestDetectEarlierStartWinsOnFullTie(t *testing.T) {
	d := newTestDetector(t, withKnown("Lee Ann", "Ann Lee"))

	spans := d.Detect("Ann Lee Ann")
	require.Len(t, spans, 1)
	assert.Equal(t, "Ann Lee", spans[0].Text)
	assert.Equal(t, 0, spans[0].Start)
}

func TestDetectNestedMatchDiscardedRegardlessOfKind(t *testing.T) {
	d := newTestDetector(t, func(c *config.PrivacyConfig) {
		c.ExtraPatterns = []config.PatternConfig{
			{Name: "exchange", Kind: "EXCHANGE", Regex: `\b\d{3}\b`, Priority: 10},
		}
	})

	spans := d.Detect("call 555-987-6543 or dial 411")
	assert.Equal(t, []wantSpan{
		{KindPhone, "555-987-6543"},
		{Kind("EXCHANGE"), "411"},
	}, spansOf(spans))
}

func TestDetectSkipsExistingPlaceholders(t *testing.T) {
	d := newTestDetector(t, withKnown("EMAIL", "PERSON"))

	assert.Empty(t, d.Detect("You can reach [PERSON_1] at [EMAIL_1] or [PHONE_12]"))

	spans := d.Detect("[EMAIL_1] and new@example.com")
	assert.Equal(t, []wantSpan{{KindEmail, "new@example.com"}}, spansOf(spans))
}

func TestDetectWholeWordKnownValues(t *testing.T) {
	d := newTestDetector(t, func(c *config.PrivacyConfig) {
		c.KnownValues.Values = []string{"Madhu"}
		c.KnownValues.WholeWord = true
	})

	spans := d.Detect("Madhuri met Madhu")
	require.Len(t, spans, 1)
	assert.Equal(t, 12, spans[0].Start)
}

func TestDetectKnownValuesAreCaseSensitive(t *testing.T) {
	d := newTestDetector(t, withKnown("Srinivas"))
	assert.Empty(t, d.Detect("srinivas and SRINIVAS"))
	assert.Len(t, d.Detect("Srinivas and Srinivas"), 2)
}

func TestDetectIsDeterministic(t *testing.T) {
	d := newTestDetector(t, withKnown("Madhu Vutukuri", "Madhu"))
	text := "Madhu Vutukuri (madhu@example.com, 555-987-6543) met Madhu at 10.0.0.1"

	first := d.Detect(text)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, d.Detect(text))
	}

	for i := 1; i < len(first); i++ {
		assert.LessOrEqual(t, first[i-1].End, first[i].Start, "spans must not overlap")
	}
}

func TestDetectPersonNameHeuristicWhenEnabled(t *testing.T) {
	d := newTestDetector(t, func(c *config.PrivacyConfig) {
		c.Detectors = []string{"default", "person_name"}
	})

	spans := d.Detect("yesterday Garlapati Venkata Srinivas called")
	assert.Equal(t, []wantSpan{{KindPerson, "Garlapati Venkata Srinivas"}}, spansOf(spans))
}
