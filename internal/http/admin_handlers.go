package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"fluxao-backend-go/internal/governance"
	"fluxao-backend-go/internal/models"
	"fluxao-backend-go/internal/monitor"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AlertsResponse struct {
	Items []models.Alert `json:"items"`
}

type SecurityLevelRequest struct {
	Level string `json:"level"`
}

type SecurityLevelResponse struct {
	Level  governance.SecurityLevel `json:"level"`
	Limits governance.Limits        `json:"limits"`
}

func (s *Server) HealthStatus(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.Monitor.GetHealthStatus(r.Context()))
}

func (s *Server) UsageStats(w http.ResponseWriter, r *http.Request) {
	identityID := strings.TrimSpace(r.URL.Query().Get("identityId"))
	stats, err := s.Reports.GetUsageStats(r.Context(), identityID)
	if err != nil {
		s.Logger.Error("usage stats failed", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

func (s *Server) ListAlerts(w http.ResponseWriter, r *http.Request) {
	status := strings.ToLower(r.URL.Query().Get("status"))
	if status != "" && status != "open" && status != "all" {
		WriteError(w, http.StatusBadRequest, "status must be open or all")
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	if limit > 500 {
		limit = 500
	}
	items, err := s.Store.ListAlerts(r.Context(), status == "all", limit)
	if err != nil {
		s.Logger.Error("list alerts failed", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, AlertsResponse{Items: items})
}

func (s *Server) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertId")
	alert, err := s.Monitor.ResolveAlert(r.Context(), alertID, CurrentIdentity(r).ID)
	switch {
	case errors.Is(err, monitor.ErrAlertNotFound):
		WriteError(w, http.StatusNotFound, "Alert not found")
		return
	case errors.Is(err, monitor.ErrAlreadyResolved):
		WriteError(w, http.StatusConflict, "Alert already resolved")
		return
	case err != nil:
		s.Logger.Error("resolve alert failed", zap.String("alert_id", alertID), zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, alert)
}

func (s *Server) SecurityStats(w http.ResponseWriter, r *http.Request) {
	rangeName := strings.ToLower(r.URL.Query().Get("range"))
	if rangeName != "" && rangeName != "day" && rangeName != "week" && rangeName != "month" {
		WriteError(w, http.StatusBadRequest, "range must be day, week or month")
		return
	}
	stats, err := s.Reports.GetSecurityStats(r.Context(), rangeName)
	if err != nil {
		s.Logger.Error("security stats failed", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

func (s *Server) AdjustSecurityLevel(w http.ResponseWriter, r *http.Request) {
	var req SecurityLevelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	level, err := governance.ParseSecurityLevel(req.Level)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "level must be low, medium or high")
		return
	}
	limits, err := s.Validator.AdjustSecurityLevel(level)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.Logger.Info("security level adjusted",
		zap.String("level", string(level)),
		zap.String("operator", CurrentIdentity(r).ID),
	)
	WriteJSON(w, http.StatusOK, SecurityLevelResponse{Level: level, Limits: limits})
}
