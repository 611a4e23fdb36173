package httpapi

import (
	"net/http"

	"fluxao-backend-go/internal/prompt"
)

type PromptResponse struct {
	Prompt string `json:"prompt"`
}

type ModerationPromptRequest struct {
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
	Strictness  string `json:"strictness"`
}

func (s *Server) WriterPrompt(w http.ResponseWriter, r *http.Request) {
	var cfg prompt.WriterConfig
	if !decodeBody(w, r, &cfg) {
		return
	}
	if cfg.Title == "" {
		WriteError(w, http.StatusBadRequest, "title is required")
		return
	}
	WriteJSON(w, http.StatusOK, PromptResponse{Prompt: s.Enhancer.BuildWriterPrompt(cfg)})
}

func (s *Server) ModerationPrompt(w http.ResponseWriter, r *http.Request) {
	var req ModerationPromptRequest
	if !decodeBody(w, r, &req) {
		return
	}
	WriteJSON(w, http.StatusOK, PromptResponse{
		Prompt: s.Enhancer.BuildModerationPrompt(req.Content, req.ContentType, req.Strictness),
	})
}

func (s *Server) SEOPrompt(w http.ResponseWriter, r *http.Request) {
	var req prompt.SEORequest
	if !decodeBody(w, r, &req) {
		return
	}
	WriteJSON(w, http.StatusOK, PromptResponse{Prompt: s.Enhancer.BuildSEOPrompt(req)})
}

// MonitoringPrompt describes the current health report for an AI analyst.
func (s *Server) MonitoringPrompt(w http.ResponseWriter, r *http.Request) {
	report := s.Monitor.GetHealthStatus(r.Context())
	WriteJSON(w, http.StatusOK, PromptResponse{
		Prompt: s.Enhancer.BuildMonitoringPrompt(report.Snapshot, report.Alerts),
	})
}
