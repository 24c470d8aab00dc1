package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/frontdeskhq/frontdesk/internal/storage"
)

type teachBody struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func handleListKnowledge(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := deps.Knowledge.Entries(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list knowledge: %v", err)
			return
		}
		if entries == nil {
			entries = []storage.KnowledgeEntry{}
		}
		writeJSON(w, entries)
	}
}

func handleTeachKnowledge(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var body teachBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if body.Question == "" || body.Answer == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question and answer are required")
			return
		}

		if err := deps.Knowledge.Teach(r.Context(), body.Question, body.Answer); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to teach answer: %v", err)
			return
		}
		writeJSON(w, map[string]string{"status": "taught"})
	}
}

func handleForgetKnowledge(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		question := r.URL.Query().Get("question")
		if question == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question query parameter is required")
			return
		}

		err := deps.Knowledge.Forget(r.Context(), question)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "knowledge entry not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete knowledge: %v", err)
			return
		}
		writeJSON(w, map[string]string{"status": "deleted"})
	}
}
