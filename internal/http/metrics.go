package httpapi

import (
	"net/http"

	"fluxao-backend-go/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type MetricsHistoryResponse struct {
	Items []models.SystemMetricsSnapshot `json:"items"`
}

func (s *Server) MetricsHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 120)
	if limit > 500 {
		limit = 500
	}
	items, err := s.Store.LatestSnapshots(r.Context(), limit)
	if err != nil {
		s.Logger.Error("metrics history failed", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, MetricsHistoryResponse{Items: items})
}

// HealthSocket streams health reports, alerts and security events to admins.
// Browsers cannot set headers on a websocket handshake, so the token comes
// from the query string.
func (s *Server) HealthSocket(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("token")
	if query == "" {
		WriteError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}
	id, err := s.Identity.Resolve(query)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}
	if id.Role != models.RoleAdmin {
		WriteError(w, http.StatusForbidden, "Not allowed")
		return
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.Hub.Add(conn)
	defer func() {
		s.Hub.Remove(conn)
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
