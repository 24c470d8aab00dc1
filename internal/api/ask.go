package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

type askBody struct {
	RequesterID string `json:"requester_id"`
	Question    string `json:"question"`
}

// handleAsk answers a question through the full policy chain, exactly as
// a voice session would, and reports where the answer came from. A
// missing requester_id gets a generated one so escalations still route.
func handleAsk(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var body askBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if body.Question == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question is required")
			return
		}
		if body.RequesterID == "" {
			body.RequesterID = uuid.New().String()
		}

		reply, err := deps.Engine.Answer(r.Context(), body.RequesterID, body.Question)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to answer: %v", err)
			return
		}

		writeJSON(w, map[string]any{
			"requester_id": body.RequesterID,
			"reply":        reply,
		})
	}
}

type statsResponse struct {
	Requests             map[string]int `json:"requests"`
	PendingNotifications int            `json:"pending_notifications"`
	KnowledgeEntries     int            `json:"knowledge_entries"`
}

func handleStats(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := gatherStats(deps)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to gather stats: %v", err)
			return
		}
		writeJSON(w, stats)
	}
}

func gatherStats(deps AppDeps) (statsResponse, error) {
	byStatus, err := deps.Store.CountHelpRequestsByStatus()
	if err != nil {
		return statsResponse{}, err
	}
	pendingNotifs, err := deps.Store.CountPendingNotifications()
	if err != nil {
		return statsResponse{}, err
	}
	kbCount, err := deps.Store.CountKnowledge()
	if err != nil {
		return statsResponse{}, err
	}
	return statsResponse{
		Requests:             byStatus,
		PendingNotifications: pendingNotifs,
		KnowledgeEntries:     kbCount,
	}, nil
}
