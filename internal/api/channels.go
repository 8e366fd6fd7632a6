package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shaharia-lab/angelia/internal/service"
)

func (s *Server) handleListChannels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.notificationSvc.Channels())
}

func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	scheme := chi.URLParam(r, "scheme")
	info, err := s.notificationSvc.Channel(scheme)
	if err != nil {
		var nf *service.NotFoundError
		if errors.As(err, &nf) {
			writeError(w, http.StatusNotFound, nf.Error())
			return
		}
		s.logger.Error("get channel failed", "scheme", scheme, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get channel")
		return
	}
	writeJSON(w, http.StatusOK, info)
}
