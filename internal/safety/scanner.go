package safety

import (
	"strings"

	"fluxao-backend-go/internal/models"
	"fluxao-backend-go/internal/policy"

	"golang.org/x/text/unicode/norm"
)

type Kind string

const (
	KindInjection      Kind = "injection_detected"
	KindBlockedKeyword Kind = "blocked_keyword"
	KindSuspicious     Kind = "suspicious_pattern"
)

// Finding is the first content-safety violation found in a request.
type Finding struct {
	Kind     Kind
	Severity models.Severity
	Reason   string
	Rule     string
}

// Normalize joins the request fields into the text every scan runs against:
// NFKC-folded so full-width and compatibility forms collapse, then lowercased.
func Normalize(parts ...string) string {
	return strings.ToLower(norm.NFKC.String(strings.Join(parts, "\n")))
}

// Inspect checks normalized text against the policy. Injection patterns are
// tried first, then blocked keywords, then suspicious patterns.
func Inspect(p *policy.Policy, text string) (Finding, bool) {
	for _, pattern := range p.Injection {
		if pattern.Match(text) {
			return Finding{
				Kind:     KindInjection,
				Severity: models.SeverityCritical,
				Reason:   "Potential injection attack detected",
				Rule:     pattern.Name,
			}, true
		}
	}
	if keyword, ok := FirstKeyword(text, p.BlockedKeywords); ok {
		return Finding{
			Kind:     KindBlockedKeyword,
			Severity: models.SeverityHigh,
			Reason:   "Blocked keyword detected: " + keyword,
			Rule:     keyword,
		}, true
	}
	for _, pattern := range p.Suspicious {
		if pattern.Match(text) {
			return Finding{
				Kind:     KindSuspicious,
				Severity: models.SeverityHigh,
				Reason:   "Suspicious pattern detected: " + pattern.Name,
				Rule:     pattern.Name,
			}, true
		}
	}
	return Finding{}, false
}

// AdminKeyword reports the first admin-only keyword present in text.
func AdminKeyword(p *policy.Policy, text string) (string, bool) {
	return FirstKeyword(text, p.AdminOnlyKeywords)
}

// FirstKeyword returns the first keyword, in list order, that occurs in text
// at the start of a word. Both sides are expected to be lowercase.
func FirstKeyword(text string, keywords []string) (string, bool) {
	for _, keyword := range keywords {
		if containsKeyword(text, keyword) {
			return keyword, true
		}
	}
	return "", false
}

func containsKeyword(text, keyword string) bool {
	if keyword == "" {
		return false
	}
	for offset := 0; offset < len(text); {
		idx := strings.Index(text[offset:], keyword)
		if idx < 0 {
			return false
		}
		pos := offset + idx
		if pos == 0 || !isWordByte(keyword[0]) || !isWordByte(text[pos-1]) {
			return true
		}
		offset = pos + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
