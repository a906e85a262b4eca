package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler serves the client endpoints.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	status            StatusSource
	sites             Sites
	health            *HealthChecker
}

func NewWebSocketHandler(cm *ConnectionManager, status StatusSource, sites Sites, health *HealthChecker) *WebSocketHandler {
	if health == nil {
		health = NewHealthChecker(0)
	}
	return &WebSocketHandler{
		connectionManager: cm,
		status:            status,
		sites:             sites,
		health:            health,
	}
}

// HandleConnection upgrades the request and registers the client.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	if err := h.connectionManager.UpgradeConnection(w, r); err != nil {
		// the upgrader has already written an HTTP error
		log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("failed to upgrade WebSocket connection")
	}
}

// HandleRoot serves websocket clients on "/" and a hint to everyone else.
func (h *WebSocketHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if websocket.IsWebSocketUpgrade(r) {
		h.HandleConnection(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("pomodoro server: connect with a WebSocket client and send {\"command\": \"help\"}\n"))
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.connectionManager.GetConnectionStats())
}

// HandleSession returns the same Status payload that is broadcast.
func (h *WebSocketHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var blocked []string
	if h.sites != nil {
		sites, err := h.sites.List()
		if err != nil {
			log.Error().Err(err).Msg("failed to read blocked sites")
			http.Error(w, "Failed to read blocked sites", http.StatusInternalServerError)
			return
		}
		blocked = sites
	}
	writeJSON(w, http.StatusOK, StatusResponse(h.status.Snapshot(), blocked))
}

// HandleHealth runs the dependency checks. Failing checks answer 503.
func (h *WebSocketHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks, errs, healthy := h.health.Check(r.Context())
	status := HealthStatus{
		Status:      "ok",
		Connections: h.connectionManager.Count(),
		Checks:      checks,
		Errors:      errs,
	}

	code := http.StatusOK
	if !healthy {
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
		log.Warn().Strs("errors", errs).Msg("health check failing")
	}
	writeJSON(w, code, status)
}

// RegisterRoutes registers the HTTP routes with mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", h.HandleRoot)
	mux.HandleFunc("/ws", h.HandleConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
	mux.HandleFunc("/api/session", h.HandleSession)
	mux.HandleFunc("/health", h.HandleHealth)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
