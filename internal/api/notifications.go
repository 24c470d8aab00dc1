package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/frontdeskhq/frontdesk/internal/storage"
)

func handleListNotifications(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pending") == "true" {
			pending, err := deps.Channel.Pending(r.Context())
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to list pending notifications: %v", err)
				return
			}
			if pending == nil {
				pending = []storage.Notification{}
			}
			writeJSON(w, pending)
			return
		}

		limit := parseIntParam(r, "limit", 50, 200)
		offset := parseIntParam(r, "offset", 0, 0)

		notifications, err := deps.Store.ListNotifications(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list notifications: %v", err)
			return
		}
		if notifications == nil {
			notifications = []storage.Notification{}
		}
		writeJSON(w, notifications)
	}
}

func handleMarkProcessed(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		err := deps.Channel.MarkProcessed(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "notification not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to mark processed: %v", err)
			return
		}
		writeJSON(w, map[string]string{"status": "processed", "id": id})
	}
}

// handleFollowups returns the undelivered answers waiting for one
// requester, used by text clients that poll instead of holding an open
// audio session. Notifications are marked processed only after the response
// body is written, so a client that dies mid-response sees them again on
// the next poll.
func handleFollowups(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requesterID := r.URL.Query().Get("requester_id")
		if requesterID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "requester_id query parameter is required")
			return
		}

		pending, err := deps.Channel.PendingFor(r.Context(), requesterID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list followups: %v", err)
			return
		}
		if pending == nil {
			pending = []storage.Notification{}
		}

		body, err := json.Marshal(pending)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to encode followups: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(body); err != nil {
			// The client is gone; leave the notifications queued.
			return
		}

		for _, n := range pending {
			if err := deps.Channel.MarkProcessed(r.Context(), n.ID); err != nil {
				slog.Warn("failed to mark followup delivered", "notification_id", n.ID, "error", err)
			}
		}
	}
}
