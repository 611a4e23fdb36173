package prompt

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"fluxao-backend-go/internal/logging"
	"fluxao-backend-go/internal/models"
	"fluxao-backend-go/internal/policy"
	"fluxao-backend-go/internal/safety"

	"go.uber.org/zap"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("prompt").ParseFS(templateFS, "templates/*.tmpl"))

var taskBlocks = map[string]string{
	"content-generation": "task_content.tmpl",
	"analysis":           "task_analysis.tmpl",
	"moderation":         "task_moderation.tmpl",
	"SEO-optimization":   "task_seo.tmpl",
	"monitoring":         "task_monitoring.tmpl",
}

// Context describes who is asking and for what.
type Context struct {
	Task     string          `json:"task"`
	Identity models.Identity `json:"identity"`
	FreeText string          `json:"context,omitempty"`
}

type Validation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Enhancer wraps raw prompts in the platform's safety and context blocks.
type Enhancer struct {
	policies *policy.Holder
	now      func() time.Time
	logger   *zap.Logger
}

func NewEnhancer(policies *policy.Holder, now func() time.Time, logger *zap.Logger) *Enhancer {
	if now == nil {
		now = time.Now
	}
	return &Enhancer{policies: policies, now: now, logger: logging.OrNop(logger)}
}

// Enhance returns safety rules, task scope, platform context, the task block,
// optional free-text context and finally the raw prompt, separated by blank lines.
// The output depends only on its arguments.
func (e *Enhancer) Enhance(raw string, pc Context) string {
	scope := struct {
		Role        models.Role
		Task        string
		SafetyLevel string
	}{
		Role:        pc.Identity.Role,
		Task:        pc.Task,
		SafetyLevel: safetyLevel(pc.Identity.Role),
	}
	parts := []string{
		render("rules.tmpl", nil),
		render("scope.tmpl", scope),
		render("system.tmpl", nil),
	}
	if name, ok := taskBlocks[pc.Task]; ok {
		parts = append(parts, render(name, nil))
	}
	if text := strings.TrimSpace(pc.FreeText); text != "" {
		parts = append(parts, render("context.tmpl", struct{ Text string }{text}))
	}
	parts = append(parts, raw)
	enhanced := strings.Join(parts, "\n")

	e.logger.Info("prompt enhanced",
		zap.String("identity_id", pc.Identity.ID),
		zap.String("task", pc.Task),
		zap.Int("prompt_length", len(enhanced)),
	)
	return enhanced
}

// ValidatePrompt checks the raw prompt text for forbidden actions, unsafe
// requests and, below ADMIN, admin-only topics.
func (e *Enhancer) ValidatePrompt(raw string, pc Context) Validation {
	p := e.policies.Get()
	text := safety.Normalize(raw)
	if keyword, ok := safety.FirstKeyword(text, p.PromptForbidden); ok {
		return Validation{Reason: "Forbidden action detected: " + keyword}
	}
	if keyword, ok := safety.FirstKeyword(text, p.PromptUnsafe); ok {
		return Validation{Reason: "Unsafe content request: " + keyword}
	}
	if pc.Identity.Role != models.RoleAdmin {
		if keyword, ok := safety.AdminKeyword(p, text); ok {
			return Validation{Reason: "Admin-only action: " + keyword}
		}
	}
	return Validation{Valid: true}
}

func safetyLevel(role models.Role) string {
	switch role {
	case models.RoleAdmin, models.RoleEditor:
		return string(role)
	}
	return string(models.RoleUser)
}

// render executes an embedded template. The templates only reference fields
// of the data types passed in this package, so execution cannot fail at runtime.
func render(name string, data any) string {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		panic(fmt.Sprintf("prompt template %s: %v", name, err))
	}
	return b.String()
}
