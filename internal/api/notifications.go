package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/shaharia-lab/angelia/internal/channel"
	"github.com/shaharia-lab/angelia/internal/dispatch"
	"github.com/shaharia-lab/angelia/internal/service"
	"github.com/shaharia-lab/angelia/internal/storage"
)

type sendRequest struct {
	Recipient string `json:"recipient" validate:"required,recipient"`
	Subject   string `json:"subject" validate:"max=998"`
	Body      string `json:"body"`
}

// handleSendNotification dispatches a single notification synchronously.
func (s *Server) handleSendNotification(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}
	if err := s.validator.Validate(req); err != nil {
		var fe fieldErrors
		if errors.As(err, &fe) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": fe})
			return
		}
		s.logger.Error("validating send request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to validate request")
		return
	}

	res, err := s.notificationSvc.Send(r.Context(), service.SendRequest{
		Recipient: req.Recipient,
		Subject:   req.Subject,
		Body:      req.Body,
	})
	if err == nil {
		writeJSON(w, http.StatusOK, res)
		return
	}

	var ve *service.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, ve.Error())
		return
	}

	status := sendErrorStatus(err)
	if status == http.StatusTooManyRequests {
		var te *channel.ThrottledError
		if errors.As(err, &te) {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(te)))
		}
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("send notification failed", "error", err)
	}
	if res == nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, status, res)
}

// sendErrorStatus maps a dispatch failure to an HTTP status code.
func sendErrorStatus(err error) int {
	switch dispatch.KindOf(err) {
	case dispatch.KindMalformedRecipient:
		return http.StatusBadRequest
	case dispatch.KindUnknownChannel:
		return http.StatusNotFound
	case dispatch.KindConstructionFailed:
		return http.StatusUnprocessableEntity
	case dispatch.KindDeliveryFailed:
		if errors.Is(err, channel.ErrThrottled) {
			return http.StatusTooManyRequests
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func retryAfterSeconds(te *channel.ThrottledError) int {
	secs := int(math.Ceil(te.Remaining.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// handleListNotificationLog returns recent notification delivery log entries.
// Accepts optional ?limit=N, ?scheme= and ?status= query parameters.
func (s *Server) handleListNotificationLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.NotificationFilter{
		Scheme: q.Get("scheme"),
		Status: q.Get("status"),
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		filter.Limit = n
	}

	entries, err := s.notificationSvc.ListLog(r.Context(), filter)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		s.logger.Error("list notification log failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notification log")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
