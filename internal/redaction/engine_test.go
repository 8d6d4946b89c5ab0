package redaction

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/raaihank/llm-redactor/internal/config"
	"github.com/raaihank/llm-redactor/internal/logger"
	"github.com/raaihank/llm-redactor/internal/privacy"
	"github.com/raaihank/llm-redactor/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, known []string, opts ...Option) *Engine {
	t.Helper()
	detector, err := privacy.New(config.GetDefaults().Privacy, known, logger.NewNop())
	require.NoError(t, err)
	return New(detector, session.NewMemoryStore(), logger.NewNop(), opts...)
}

func tokenNames(refs []TokenRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Token)
	}
	return out
}

func TestRedactConversation(t *testing.T) {
	e := newTestEngine(t, nil)

	r := e.Redact("s1", "My email is john.doe@example.com")
	assert.Equal(t, "My email is [EMAIL_1]", r.Text)
	require.Len(t, r.Tokens, 1)
	assert.Equal(t, TokenRef{
		Token:  "EMAIL_1",
		Kind:   privacy.KindEmail,
		Value:  "john.doe@example.com",
		Length: len("john.doe@example.com"),
		New:    true,
	}, r.Tokens[0])

	r = e.Redact("s1", "Email again: john.doe@example.com")
	assert.Equal(t, "Email again: [EMAIL_1]", r.Text)
	require.Len(t, r.Tokens, 1)
	assert.False(t, r.Tokens[0].New, "second sighting reuses the token")

	r = e.Redact("s1", "Call +1-555-123-4567 or 555-987-6543")
	assert.Equal(t, "Call [PHONE_1] or [PHONE_2]", r.Text)
	assert.Equal(t, []string{"PHONE_1", "PHONE_2"}, tokenNames(r.Tokens))

	stats := e.Stats("s1")
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, map[privacy.Kind]int{privacy.KindEmail: 1, privacy.KindPhone: 2}, stats.ByKind)
}

func TestRedactWithoutPII(t *testing.T) {
	e := newTestEngine(t, nil)

	r := e.Redact("s1", "nothing to see here")
	assert.Equal(t, "nothing to see here", r.Text)
	assert.NotNil(t, r.Tokens)
	assert.Empty(t, r.Tokens)
	assert.Equal(t, 0, e.Sessions(), "no map is created without spans")

	r = e.Redact("s1", "")
	assert.Equal(t, "", r.Text)
	assert.NotNil(t, r.Tokens)
	assert.Equal(t, 0, e.Sessions())

	raw, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"redacted_text":"","tokens":[]}`, string(raw))
}

func TestRedactRepeatedValueInOneCall(t *testing.T) {
	e := newTestEngine(t, nil)

	r := e.Redact("s1", "a@example.com, b@example.com, a@example.com")
	assert.Equal(t, "[EMAIL_1], [EMAIL_2], [EMAIL_1]", r.Text)
	assert.Equal(t, []string{"EMAIL_1", "EMAIL_2"}, tokenNames(r.Tokens))
	assert.True(t, r.Tokens[0].New)
	assert.True(t, r.Tokens[1].New)
}

func TestRestore(t *testing.T) {
	e := newTestEngine(t, []string{"Akhil"})

	r := e.Redact("s1", "Hi, I'm Akhil, write to akhil@example.com")
	require.Equal(t, "Hi, I'm [PERSON_1], write to [EMAIL_1]", r.Text)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"known tokens", "You can reach [PERSON_1] at [EMAIL_1]", "You can reach Akhil at akhil@example.com"},
		{"unknown token", "[PERSON_9]", "[PERSON_9]"},
		{"no tokens", "plain text", "plain text"},
		{"empty", "", ""},
		{"repeated", "[PERSON_1] [PERSON_1]", "Akhil Akhil"},
		{"lowercase lookalike", "[person_1]", "[person_1]"},
		{"zero sequence", "[PERSON_0]", "[PERSON_0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Restore("s1", tt.in))
		})
	}
}

func TestRestoreUnknownSession(t *testing.T) {
	e := newTestEngine(t, nil)
	assert.Equal(t, "[EMAIL_1]", e.Restore("nobody", "[EMAIL_1]"))
	assert.Equal(t, 0, e.Sessions())
}

func TestRoundTrip(t *testing.T) {
	e := newTestEngine(t, []string{"Akhil", "Priya"})

	inputs := []string{
		"Akhil's SSN is 123-45-6789 and card 4111 1111 1111 1111.",
		"Priya lives at 42 Baker Street, reachable on (555) 010-2233.",
		"Server 10.0.0.12 logged in Akhil on 01/31/1990.",
		"Nothing personal here.",
		"Email Priya at priya@corp.example.org or akhil@example.com",
	}

	for _, in := range inputs {
		r := e.Redact("s1", in)
		assert.Equal(t, in, e.Restore("s1", r.Text))
	}
}

func TestSessionIsolation(t *testing.T) {
	e := newTestEngine(t, nil)

	a := e.Redact("a", "contact alice@example.com")
	b := e.Redact("b", "contact bob@example.com")

	assert.Equal(t, "contact [EMAIL_1]", a.Text)
	assert.Equal(t, "contact [EMAIL_1]", b.Text)

	assert.Equal(t, "alice@example.com", e.Restore("a", "[EMAIL_1]"))
	assert.Equal(t, "bob@example.com", e.Restore("b", "[EMAIL_1]"))
	assert.Equal(t, map[string]string{"EMAIL_1": "alice@example.com"}, e.ExportMap("a"))
}

func TestAlreadyRedactedTextIsStable(t *testing.T) {
	e := newTestEngine(t, nil)

	first := e.Redact("s1", "mail john@example.com, call 555-987-6543")
	second := e.Redact("s1", first.Text)

	assert.Equal(t, first.Text, second.Text)
	assert.Empty(t, second.Tokens)
	assert.Equal(t, 2, e.Stats("s1").Total)
}

func TestPlaceholderLiteralsSurviveRoundTrip(t *testing.T) {
	e := newTestEngine(t, nil)

	input := "literal [EMAIL_1] and x@y.com"
	r := e.Redact("s1", input)

	assert.Equal(t, "literal [EMAIL_1] and [EMAIL_2]", r.Text)
	assert.Equal(t, []string{"EMAIL_2"}, tokenNames(r.Tokens))
	assert.Equal(t, input, e.Restore("s1", r.Text))
	assert.Equal(t, 1, e.Stats("s1").Total)
}

func TestPlaceholderLiteralReservedBeforeAnySpan(t *testing.T) {
	e := newTestEngine(t, nil)

	first := e.Redact("s1", "see [PHONE_1]")
	assert.Equal(t, "see [PHONE_1]", first.Text)
	assert.Empty(t, first.Tokens)

	second := e.Redact("s1", "call 555-987-6543")
	assert.Equal(t, "call [PHONE_2]", second.Text)
	assert.Equal(t, "see [PHONE_1]", e.Restore("s1", first.Text))
}

func TestDeterministicAcrossSessions(t *testing.T) {
	e := newTestEngine(t, []string{"Akhil"})
	text := "Akhil: akhil@example.com, 555-987-6543, 123-45-6789"

	want := e.Redact("s0", text).Text
	for i := 1; i < 5; i++ {
		assert.Equal(t, want, e.Redact(fmt.Sprintf("s%d", i), text).Text)
	}
}

func TestConcurrentRedactSameSession(t *testing.T) {
	e := newTestEngine(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e.Redact("shared", fmt.Sprintf("user%d@example.com and common@example.com", i%5))
		}(i)
	}
	wg.Wait()

	stats := e.Stats("shared")
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 6, stats.ByKind[privacy.KindEmail])

	exported := e.ExportMap("shared")
	values := make(map[string]bool)
	for tok, v := range exported {
		assert.True(t, strings.HasPrefix(tok, "EMAIL_"))
		assert.False(t, values[v], "value %q mapped twice", v)
		values[v] = true
	}
	for i := 1; i <= 6; i++ {
		assert.Contains(t, exported, fmt.Sprintf("EMAIL_%d", i))
	}
}

func TestStatsAndExportForUnknownSession(t *testing.T) {
	e := newTestEngine(t, nil)

	assert.Equal(t, session.Stats{Total: 0, ByKind: map[privacy.Kind]int{}}, e.Stats("nobody"))
	assert.Equal(t, map[string]string{}, e.ExportMap("nobody"))
	assert.Equal(t, 0, e.Sessions(), "reads never create a map")
}

func TestExportEnvelope(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Redact("s1", "john.doe@example.com")

	exp := e.Export("s1")
	assert.Equal(t, "s1", exp.SessionID)
	assert.Equal(t, map[string]string{"EMAIL_1": "john.doe@example.com"}, exp.Mappings)
	assert.Equal(t, 1, exp.Stats.Total)
	assert.False(t, exp.ExportedAt.IsZero())

	exported := e.ExportMap("s1")
	exported["EMAIL_1"] = "tampered"
	assert.Equal(t, "john.doe@example.com", e.Restore("s1", "[EMAIL_1]"))
}

func TestDestroySession(t *testing.T) {
	var events []Event
	e := newTestEngine(t, nil, WithListener(func(ev Event) { events = append(events, ev) }))

	e.Redact("s1", "john.doe@example.com")
	stats, existed := e.DestroySession("s1")
	assert.True(t, existed)
	assert.Equal(t, session.Stats{Total: 1, ByKind: map[privacy.Kind]int{privacy.KindEmail: 1}}, stats)
	_, existed = e.DestroySession("s1")
	assert.False(t, existed)

	assert.Equal(t, "[EMAIL_1]", e.Restore("s1", "[EMAIL_1]"))
	assert.Equal(t, 0, e.Stats("s1").Total)

	r := e.Redact("s1", "other@example.com")
	assert.Equal(t, "[EMAIL_1]", r.Text, "a recreated session starts from scratch")

	require.Len(t, events, 3)
	assert.Equal(t, EventRedaction, events[0].Type)
	assert.Equal(t, EventSessionDestroyed, events[1].Type)
	assert.Equal(t, "s1", events[1].SessionID)
	assert.Equal(t, map[privacy.Kind]int{privacy.KindEmail: 1}, events[1].ByKind)
}

func TestRedactAfterTeardownNeverWritesToRemovedMap(t *testing.T) {
	store := session.NewMemoryStore()
	detector, err := privacy.New(config.GetDefaults().Privacy, nil, logger.NewNop())
	require.NoError(t, err)
	e := New(detector, store, logger.NewNop())

	e.Redact("s1", "a@example.com")
	stale := store.GetOrCreate("s1")
	final, _ := e.DestroySession("s1")

	r := e.Redact("s1", "b@example.com")
	assert.Equal(t, "[EMAIL_1]", r.Text)
	assert.Equal(t, 1, final.Total)
	assert.Equal(t, map[string]string{"EMAIL_1": "a@example.com"}, stale.Snapshot())
	assert.Equal(t, map[string]string{"EMAIL_1": "b@example.com"}, e.ExportMap("s1"))
}

func TestListenerEventsCarryNoValues(t *testing.T) {
	var got Event
	e := newTestEngine(t, nil, WithListener(func(ev Event) { got = ev }))

	e.Redact("s1", "john.doe@example.com")
	e.Redact("s1", "john.doe@example.com and 555-987-6543")

	assert.Equal(t, EventRedaction, got.Type)
	assert.Equal(t, 1, got.NewTokens)
	assert.Equal(t, 1, got.ReusedTokens)
	assert.Equal(t, []string{"EMAIL_1", "PHONE_1"}, got.Tokens)

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "john.doe")
}

func TestRedactJSON(t *testing.T) {
	e := newTestEngine(t, nil)

	body := []byte(`{"model":"gpt-4o","messages":[{"role":"user","content":"I am john@example.com"},{"role":"user","content":"ssn 123-45-6789"}]}`)
	out, refs, err := e.RedactJSON("s1", body)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "gpt-4o", doc["model"])
	msgs := doc["messages"].([]any)
	assert.Equal(t, "I am [EMAIL_1]", msgs[0].(map[string]any)["content"])
	assert.Equal(t, "ssn [SSN_1]", msgs[1].(map[string]any)["content"])
	assert.Equal(t, []string{"EMAIL_1", "SSN_1"}, tokenNames(refs))

	restored, err := e.RestoreJSON("s1", out)
	require.NoError(t, err)
	assert.JSONEq(t, string(body), string(restored))
}

func TestRedactJSONOrdersKeys(t *testing.T) {
	e := newTestEngine(t, nil)

	_, refs, err := e.RedactJSON("s1", []byte(`{"z":"z@example.com","a":"a@example.com","m":"m@example.com"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"EMAIL_1", "EMAIL_2", "EMAIL_3"}, tokenNames(refs))
	assert.Equal(t, map[string]string{
		"EMAIL_1": "a@example.com",
		"EMAIL_2": "m@example.com",
		"EMAIL_3": "z@example.com",
	}, e.ExportMap("s1"))
}

func TestRedactJSONKeepsNumbers(t *testing.T) {
	e := newTestEngine(t, []string{"Akhil"})

	body := `{"id":12345678901234567891,"msg":"hi Akhil","ratio":0.10000000000000001}`
	out, refs, err := e.RedactJSON("s1", []byte(body))
	require.NoError(t, err)
	assert.Equal(t, `{"id":12345678901234567891,"msg":"hi [PERSON_1]","ratio":0.10000000000000001}`, string(out))
	assert.Equal(t, []string{"PERSON_1"}, tokenNames(refs))

	restored, err := e.RestoreJSON("s1", out)
	require.NoError(t, err)
	assert.Equal(t, body, string(restored))
}

func TestRedactJSONRejectsTrailingData(t *testing.T) {
	e := newTestEngine(t, nil)

	out, _, err := e.RedactJSON("s1", []byte(`{"a":"x@example.com"} trailing`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":"[EMAIL_1]"} trailing`, string(out), "treated as plain text")
}

func TestRedactJSONFallsBackToText(t *testing.T) {
	e := newTestEngine(t, nil)

	out, refs, err := e.RedactJSON("s1", []byte("not json: john@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "not json: [EMAIL_1]", string(out))
	assert.Len(t, refs, 1)
}
