package policy

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDocument []byte

type providerDoc struct {
	Roles          []string `yaml:"roles"`
	CostPer1KToken float64  `yaml:"cost_per_1k_tokens"`
}

type patternDoc struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Reason  string `yaml:"reason"`
}

type document struct {
	Roles             map[string][]string    `yaml:"roles"`
	UnknownTaskRoles  []string               `yaml:"unknown_task_roles"`
	DefaultCostPer1K  float64                `yaml:"default_cost_per_1k_tokens"`
	Providers         map[string]providerDoc `yaml:"providers"`
	AdminOnlyKeywords []string               `yaml:"admin_only_keywords"`
	BlockedKeywords   []string               `yaml:"blocked_keywords"`
	Suspicious        []patternDoc           `yaml:"suspicious_patterns"`
	Injection         []patternDoc           `yaml:"injection_patterns"`
	Redactions        []patternDoc           `yaml:"redactions"`
	HarmfulKeywords   []string               `yaml:"harmful_keywords"`
	Prompt            struct {
		Forbidden []string `yaml:"forbidden_keywords"`
		Unsafe    []string `yaml:"unsafe_keywords"`
	} `yaml:"prompt"`
}

// Pattern is a named, compiled detection regex.
type Pattern struct {
	Name string
	re   *regexp.Regexp
}

func (p Pattern) Match(text string) bool {
	return p.re.MatchString(text)
}

// Redaction replaces every match of its regex in provider output.
type Redaction struct {
	Name   string
	Reason string
	re     *regexp.Regexp
}

func (r Redaction) Match(text string) bool {
	return r.re.MatchString(text)
}

func (r Redaction) Replace(text, marker string) string {
	return r.re.ReplaceAllLiteralString(text, marker)
}

// Policy is the compiled, immutable form of a policy document.
// Keyword lists are lowercased so callers match against lowercased text.
type Policy struct {
	Matrix            *PermissionMatrix
	AdminOnlyKeywords []string
	BlockedKeywords   []string
	Suspicious        []Pattern
	Injection         []Pattern
	Redactions        []Redaction
	HarmfulKeywords   []string
	PromptForbidden   []string
	PromptUnsafe      []string

	defaultCost float64
	costs       map[string]float64
}

// Parse compiles a YAML policy document.
func Parse(data []byte) (*Policy, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if len(doc.Roles) == 0 {
		return nil, fmt.Errorf("parse policy: no roles defined")
	}

	providerRoles := map[string][]string{}
	costs := map[string]float64{}
	for name, p := range doc.Providers {
		key := normalizeProvider(name)
		providerRoles[key] = p.Roles
		costs[key] = p.CostPer1KToken
	}
	matrix, err := NewPermissionMatrix(doc.Roles, doc.UnknownTaskRoles, providerRoles)
	if err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}

	suspicious, err := compilePatterns(doc.Suspicious)
	if err != nil {
		return nil, fmt.Errorf("parse policy: suspicious_patterns: %w", err)
	}
	injection, err := compilePatterns(doc.Injection)
	if err != nil {
		return nil, fmt.Errorf("parse policy: injection_patterns: %w", err)
	}
	redactions := make([]Redaction, 0, len(doc.Redactions))
	for _, item := range doc.Redactions {
		re, err := regexp.Compile(item.Pattern)
		if err != nil {
			return nil, fmt.Errorf("parse policy: redaction %s: %w", item.Name, err)
		}
		redactions = append(redactions, Redaction{Name: item.Name, Reason: item.Reason, re: re})
	}

	return &Policy{
		Matrix:            matrix,
		AdminOnlyKeywords: lowerAll(doc.AdminOnlyKeywords),
		BlockedKeywords:   lowerAll(doc.BlockedKeywords),
		Suspicious:        suspicious,
		Injection:         injection,
		Redactions:        redactions,
		HarmfulKeywords:   lowerAll(doc.HarmfulKeywords),
		PromptForbidden:   lowerAll(doc.Prompt.Forbidden),
		PromptUnsafe:      lowerAll(doc.Prompt.Unsafe),
		defaultCost:       doc.DefaultCostPer1K,
		costs:             costs,
	}, nil
}

// Default returns the embedded policy.
func Default() *Policy {
	p, err := Parse(defaultDocument)
	if err != nil {
		panic(err)
	}
	return p
}

// Load reads the policy at path, or the embedded default when path is empty.
func Load(path string) (*Policy, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy %s: %w", path, err)
	}
	return Parse(data)
}

// CostPer1K is the provider's price per thousand tokens, falling back to the default rate.
func (p *Policy) CostPer1K(provider string) float64 {
	if cost, ok := p.costs[normalizeProvider(provider)]; ok {
		return cost
	}
	return p.defaultCost
}

func compilePatterns(items []patternDoc) ([]Pattern, error) {
	out := make([]Pattern, 0, len(items))
	for _, item := range items {
		re, err := regexp.Compile(item.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", item.Name, err)
		}
		out = append(out, Pattern{Name: item.Name, re: re})
	}
	return out, nil
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value != "" {
			out = append(out, value)
		}
	}
	return out
}

func normalizeProvider(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
