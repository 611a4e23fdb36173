package governance

import (
	"fmt"
	"strings"
)

type Limits struct {
	MaxRequestsPerHour int `json:"maxRequestsPerHour"`
	MaxTokensPerDay    int `json:"maxTokensPerDay"`
}

type SecurityLevel string

const (
	LevelLow    SecurityLevel = "low"
	LevelMedium SecurityLevel = "medium"
	LevelHigh   SecurityLevel = "high"
)

var levelLimits = map[SecurityLevel]Limits{
	LevelLow:    {MaxRequestsPerHour: 100, MaxTokensPerDay: 50000},
	LevelMedium: {MaxRequestsPerHour: 75, MaxTokensPerDay: 37500},
	LevelHigh:   {MaxRequestsPerHour: 50, MaxTokensPerDay: 25000},
}

func ParseSecurityLevel(raw string) (SecurityLevel, error) {
	level := SecurityLevel(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := levelLimits[level]; !ok {
		return "", fmt.Errorf("unknown security level %q", raw)
	}
	return level, nil
}

func LimitsFor(level SecurityLevel) (Limits, bool) {
	limits, ok := levelLimits[level]
	return limits, ok
}
