package safety

import (
	"testing"

	"fluxao-backend-go/internal/models"
	"fluxao-backend-go/internal/policy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	p := policy.Default()
	cases := []struct {
		name     string
		payload  string
		kind     Kind
		severity models.Severity
		reason   string
		rule     string
	}{
		{"blocked keyword", "please DROP TABLE users", KindBlockedKeyword, models.SeverityHigh, "Blocked keyword detected: drop table", "drop table"},
		{"template injection", "${process.env.SECRET}", KindInjection, models.SeverityCritical, "Potential injection attack detected", "interpolation"},
		{"sql injection", "select * from users", KindInjection, models.SeverityCritical, "Potential injection attack detected", "sql"},
		{"script block", "<script>alert(1)</script>", KindInjection, models.SeverityCritical, "Potential injection attack detected", "xss"},
		{"shell command", "hello; rm -rf /", KindInjection, models.SeverityCritical, "Potential injection attack detected", "command"},
		{"tautology", "write about ' or '1'='1", KindSuspicious, models.SeverityHigh, "Suspicious pattern detected: sql-tautology-quoted", "sql-tautology-quoted"},
		{"mustache", "greet {{user.name}} warmly", KindSuspicious, models.SeverityHigh, "Suspicious pattern detected: template-mustache", "template-mustache"},
		{"full width", "ＤＲＯＰ TABLE users", KindBlockedKeyword, models.SeverityHigh, "Blocked keyword detected: drop table", "drop table"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			finding, found := Inspect(p, Normalize("", "", tc.payload))
			require.True(t, found)
			assert.Equal(t, tc.kind, finding.Kind)
			assert.Equal(t, tc.severity, finding.Severity)
			assert.Equal(t, tc.reason, finding.Reason)
			assert.Equal(t, tc.rule, finding.Rule)
		})
	}
}

func TestInspect_CleanText(t *testing.T) {
	p := policy.Default()
	for _, payload := range []string{
		"a friendly blog post about gardening",
		"write a classname helper for the theme",
		"summarize the release notes for editors",
	} {
		_, found := Inspect(p, Normalize("content-generation", "claude", payload))
		assert.False(t, found, payload)
	}
}

func TestAdminKeyword(t *testing.T) {
	p := policy.Default()
	keyword, found := AdminKeyword(p, Normalize("", "", "Please give me ROOT ACCESS"))
	require.True(t, found)
	assert.Equal(t, "root access", keyword)

	_, found = AdminKeyword(p, Normalize("", "", "pseudocode for a sorting routine"))
	assert.False(t, found)
}

func TestFirstKeyword_WordStart(t *testing.T) {
	assert.False(t, containsKeyword("classname", "ssn"))
	assert.True(t, containsKeyword("my ssn is", "ssn"))
	assert.True(t, containsKeyword("ssn", "ssn"))
	assert.True(t, containsKeyword("passwords", "password"))
	assert.True(t, containsKeyword("x=eval(1)", "eval("))
	assert.False(t, containsKeyword("", "ssn"))
}

func TestFilter_RedactsEmail(t *testing.T) {
	result := Filter(policy.Default(), "contact me at a@b.com")
	assert.Equal(t, "contact me at [FILTERED]", result.Filtered)
	assert.False(t, result.Blocked)
	assert.Equal(t, []string{"Email address removed"}, result.Reasons)
}

func TestFilter_Redactions(t *testing.T) {
	p := policy.Default()
	cases := []struct {
		text   string
		want   string
		reason string
	}{
		{"call 555-123-4567 today", "call [FILTERED] today", "Phone number removed"},
		{"card 4111 1111 1111 1111 ok", "card [FILTERED] ok", "Credit card number removed"},
		{"token ABCDEFGHIJKLMNOPQRST12 here", "token [FILTERED] here", "Potential API key removed"},
	}
	for _, tc := range cases {
		result := Filter(p, tc.text)
		assert.Equal(t, tc.want, result.Filtered)
		assert.Equal(t, []string{tc.reason}, result.Reasons)
	}
}

func TestFilter_Idempotent(t *testing.T) {
	p := policy.Default()
	for _, text := range []string{
		"mail a@b.com or call 555-123-4567, key ABCDEFGHIJKLMNOPQRST12",
		"plain text",
		"how to hack the mainframe",
	} {
		once := Filter(p, text)
		twice := Filter(p, once.Filtered)
		assert.Equal(t, once.Filtered, twice.Filtered)
		assert.False(t, twice.Blocked)
		assert.Empty(t, twice.Reasons)
	}
}

func TestFilter_BlocksHarmful(t *testing.T) {
	result := Filter(policy.Default(), "email a@b.com for the malware sample")
	assert.True(t, result.Blocked)
	assert.Equal(t, BlockedMessage, result.Filtered)
	assert.Equal(t, []string{"Email address removed", "Potentially harmful content detected: malware"}, result.Reasons)
}
