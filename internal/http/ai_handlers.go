package httpapi

import (
	"errors"
	"net/http"
	"time"

	"fluxao-backend-go/internal/governance"
	"fluxao-backend-go/internal/models"
	"fluxao-backend-go/internal/prompt"
	"fluxao-backend-go/internal/provider"
	"fluxao-backend-go/internal/safety"

	"go.uber.org/zap"
)

type ValidateRequest struct {
	Task     string `json:"task"`
	Provider string `json:"provider"`
	Payload  string `json:"payload"`
}

type PromptRequest struct {
	Prompt  string `json:"prompt"`
	Task    string `json:"task"`
	Context string `json:"context,omitempty"`
}

type EnhanceResponse struct {
	Enhanced string `json:"enhanced"`
}

type FilterRequest struct {
	Text string `json:"text"`
}

type ExecuteRequest struct {
	Task     string `json:"task"`
	Provider string `json:"provider"`
	Prompt   string `json:"prompt"`
	Context  string `json:"context,omitempty"`
}

// ValidateRequest runs the admission pipeline for the caller. A denial is a
// normal 200 response carrying valid=false.
func (s *Server) ValidateRequest(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result := s.Validator.Validate(r.Context(), models.AITaskRequest{
		Identity:  CurrentIdentity(r),
		Task:      req.Task,
		Provider:  req.Provider,
		Payload:   req.Payload,
		Timestamp: time.Now().UTC(),
	})
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) EnhancePrompt(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if !decodeBody(w, r, &req) {
		return
	}
	enhanced := s.Enhancer.Enhance(req.Prompt, prompt.Context{
		Task:     req.Task,
		Identity: CurrentIdentity(r),
		FreeText: req.Context,
	})
	WriteJSON(w, http.StatusOK, EnhanceResponse{Enhanced: enhanced})
}

func (s *Server) ValidatePrompt(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if !decodeBody(w, r, &req) {
		return
	}
	WriteJSON(w, http.StatusOK, s.Enhancer.ValidatePrompt(req.Prompt, prompt.Context{
		Task:     req.Task,
		Identity: CurrentIdentity(r),
	}))
}

func (s *Server) FilterResponse(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	WriteJSON(w, http.StatusOK, safety.Filter(s.Policies.Get(), req.Text))
}

func (s *Server) Execute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := CurrentIdentity(r)
	execution, err := s.Gateway.Execute(r.Context(), governance.ExecuteRequest{
		Identity: id,
		Task:     req.Task,
		Provider: req.Provider,
		Prompt:   req.Prompt,
		Context:  req.Context,
	})
	if errors.Is(err, provider.ErrNotConfigured) {
		WriteError(w, http.StatusBadRequest, "AI provider is not configured")
		return
	}
	if err != nil {
		s.Logger.Warn("ai execution failed", zap.String("identity_id", id.ID), zap.Error(err))
		WriteError(w, http.StatusBadGateway, "AI provider request failed")
		return
	}
	WriteJSON(w, http.StatusOK, execution)
}

func (s *Server) MyUsage(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Reports.GetUsageStats(r.Context(), CurrentIdentity(r).ID)
	if err != nil {
		s.Logger.Error("usage stats failed", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}
