package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/frontdeskhq/frontdesk/internal/metrics"
	"github.com/frontdeskhq/frontdesk/internal/storage"
)

type createRequestBody struct {
	RequesterID string `json:"requester_id"`
	Question    string `json:"question"`
	Transcript  string `json:"audio_transcript"`
}

type resolveRequestBody struct {
	Answer    string `json:"answer"`
	TeachToKB bool   `json:"teach_to_kb"`
}

type unresolveRequestBody struct {
	Reason string `json:"reason"`
}

func handleListRequests(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")
		limit := parseIntParam(r, "limit", 50, 200)
		offset := parseIntParam(r, "offset", 0, 0)

		requests, err := deps.Store.ListHelpRequests(status, limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list requests: %v", err)
			return
		}
		if requests == nil {
			requests = []storage.HelpRequest{}
		}
		writeJSON(w, requests)
	}
}

func handleCreateRequest(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var body createRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if body.RequesterID == "" || body.Question == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "requester_id and question are required")
			return
		}
		if body.Transcript == "" {
			body.Transcript = body.Question
		}

		req, err := deps.Manager.Create(r.Context(), body.RequesterID, body.Question, body.Transcript)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to create request: %v", err)
			return
		}
		metrics.EscalationsTotal.WithLabelValues("manual").Inc()

		w.WriteHeader(http.StatusCreated)
		writeJSON(w, req)
	}
}

func handleGetRequest(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := deps.Store.GetHelpRequest(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "request not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get request: %v", err)
			return
		}
		writeJSON(w, req)
	}
}

func handleResolveRequest(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var body resolveRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if body.Answer == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "answer is required")
			return
		}

		req, err := deps.Manager.Resolve(r.Context(), chi.URLParam(r, "id"), body.Answer, body.TeachToKB)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "request not found")
			return
		}
		if errors.Is(err, storage.ErrNotPending) {
			httpError(w, http.StatusConflict, "invalid_state", "request is not pending")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to resolve request: %v", err)
			return
		}
		writeJSON(w, req)
	}
}

func handleUnresolveRequest(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var body unresolveRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if body.Reason == "" {
			body.Reason = "closed by supervisor"
		}

		id := chi.URLParam(r, "id")
		err := deps.Manager.MarkUnresolved(r.Context(), id, body.Reason)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "request not found")
			return
		}
		if errors.Is(err, storage.ErrNotPending) {
			httpError(w, http.StatusConflict, "invalid_state", "request is not pending")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to mark unresolved: %v", err)
			return
		}
		writeJSON(w, map[string]string{"status": "unresolved", "id": id})
	}
}

func handleReopenRequest(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		err := deps.Manager.Reopen(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "request not found")
			return
		}
		if errors.Is(err, storage.ErrNotTerminal) {
			httpError(w, http.StatusConflict, "invalid_state", "request is still pending")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to reopen request: %v", err)
			return
		}
		writeJSON(w, map[string]string{"status": "pending", "id": id})
	}
}
