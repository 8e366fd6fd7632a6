package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shaharia-lab/angelia/internal/service"
)

const errInvalidJSONBody = "invalid JSON body"

// maxRequestBytes bounds decoded request bodies.
const maxRequestBytes = service.MaxBodyBytes + 64<<10

// Server holds all dependencies for the REST API handlers.
type Server struct {
	notificationSvc service.NotificationService
	validator       *requestValidator
	logger          *slog.Logger
}

// New creates a new API Server backed by the provided services.
func New(notificationSvc service.NotificationService, logger *slog.Logger) (*Server, error) {
	v, err := newRequestValidator()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		notificationSvc: notificationSvc,
		validator:       v,
		logger:          logger,
	}, nil
}

// Mount registers all API routes under the given router.
func (s *Server) Mount(r chi.Router) {
	// Notifications
	r.Post("/notifications", s.handleSendNotification)
	r.Get("/notifications/log", s.handleListNotificationLog)

	// Channels
	r.Get("/channels", s.handleListChannels)
	r.Get("/channels/{scheme}", s.handleGetChannel)

	r.Get("/version", s.handleVersion)
}

// ─── Shared helpers ───────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
