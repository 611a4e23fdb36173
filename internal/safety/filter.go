package safety

import (
	"strings"

	"fluxao-backend-go/internal/policy"
)

const (
	RedactionMarker = "[FILTERED]"
	BlockedMessage  = "Response blocked due to safety concerns. Please rephrase your request."
)

type FilterResult struct {
	Filtered string   `json:"filtered"`
	Blocked  bool     `json:"blocked"`
	Reasons  []string `json:"reasons"`
}

// Filter redacts sensitive tokens from provider output and blocks it outright
// when the original text carries a harmful keyword.
func Filter(p *policy.Policy, text string) FilterResult {
	filtered := text
	reasons := []string{}
	for _, redaction := range p.Redactions {
		if redaction.Match(filtered) {
			filtered = redaction.Replace(filtered, RedactionMarker)
			reasons = append(reasons, redaction.Reason)
		}
	}

	if keyword, ok := FirstKeyword(strings.ToLower(text), p.HarmfulKeywords); ok {
		reasons = append(reasons, "Potentially harmful content detected: "+keyword)
		return FilterResult{Filtered: BlockedMessage, Blocked: true, Reasons: reasons}
	}
	return FilterResult{Filtered: filtered, Blocked: false, Reasons: reasons}
}
