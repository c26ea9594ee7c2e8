package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mewilker/jwt-pizza-service/internal/http/respond"
)

// HealthHandler returns uptime and basic status.
type HealthHandler struct {
	startedAt time.Time
	version   string
}

// NewHealthHandler creates the health and banner endpoints.
func NewHealthHandler(startedAt time.Time, version string) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, version: version}
}

// Register wires the handler into the router.
func (h *HealthHandler) Register(r *mux.Router) {
	r.HandleFunc("/", h.handleHome).Methods(http.MethodGet)
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
}

func (h *HealthHandler) handleHome(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{
		"message": "welcome to JWT Pizza",
		"version": h.version,
	})
}

func (h *HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Truncate(time.Second).String(),
	})
}
