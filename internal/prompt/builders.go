package prompt

import (
	"encoding/json"
	"strings"

	"fluxao-backend-go/internal/models"
)

type WriterConfig struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Length      int    `json:"length"`
	Tone        string `json:"tone"`
	Thinker     string `json:"thinker"`
	Hook        string `json:"hook"`
	TimeHorizon int    `json:"timeHorizon"`
	Style       string `json:"style"`
	Audience    string `json:"audience"`
	Structure   string `json:"structure"`
	Sources     string `json:"sources"`
	FactLevel   string `json:"factLevel"`
	UserContext string `json:"userContext,omitempty"`
}

// BuildWriterPrompt renders the article-writer prompt. The target year is
// the current year plus the configured time horizon.
func (e *Enhancer) BuildWriterPrompt(cfg WriterConfig) string {
	name, p := lookupPersona(cfg.Thinker)
	return render("writer.tmpl", struct {
		WriterConfig
		Thinker     string
		Traits      string
		Perspective string
		TargetYear  int
	}{
		WriterConfig: cfg,
		Thinker:      name,
		Traits:       p.Traits,
		Perspective:  p.Perspective,
		TargetYear:   e.now().Year() + cfg.TimeHorizon,
	})
}

func (e *Enhancer) BuildModerationPrompt(content, contentType, strictness string) string {
	if contentType == "" {
		contentType = "comment"
	}
	if strictness == "" {
		strictness = "medium"
	}
	return render("moderation_prompt.tmpl", struct {
		Content     string
		ContentType string
		Strictness  string
	}{content, contentType, strictness})
}

type SEORequest struct {
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	TargetKeywords []string `json:"targetKeywords,omitempty"`
	Language       string   `json:"language"`
}

func (e *Enhancer) BuildSEOPrompt(req SEORequest) string {
	keywords := "Determine automatically"
	if len(req.TargetKeywords) > 0 {
		keywords = strings.Join(req.TargetKeywords, ", ")
	}
	language := req.Language
	if language == "" {
		language = "de"
	}
	return render("seo_prompt.tmpl", struct {
		Title    string
		Keywords string
		Language string
		Content  string
	}{req.Title, keywords, language, req.Content})
}

func (e *Enhancer) BuildMonitoringPrompt(snapshot models.SystemMetricsSnapshot, alerts []models.Alert) string {
	if alerts == nil {
		alerts = []models.Alert{}
	}
	metricsJSON, _ := json.MarshalIndent(snapshot, "", "  ")
	alertsJSON, _ := json.MarshalIndent(alerts, "", "  ")
	return render("monitoring_prompt.tmpl", struct {
		Metrics string
		Alerts  string
	}{string(metricsJSON), string(alertsJSON)})
}
