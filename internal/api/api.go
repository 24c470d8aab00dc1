// Package api exposes the supervisor-facing HTTP surface: help request
// management, the knowledge base, the notification queue, and a direct
// ask endpoint for text clients.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frontdeskhq/frontdesk/internal/escalation"
	"github.com/frontdeskhq/frontdesk/internal/knowledge"
	"github.com/frontdeskhq/frontdesk/internal/notify"
	"github.com/frontdeskhq/frontdesk/internal/policy"
	"github.com/frontdeskhq/frontdesk/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

type AppDeps struct {
	Store     *storage.Store
	Manager   *escalation.Manager
	Knowledge *knowledge.Base
	Channel   *notify.Channel
	Engine    *policy.Engine
	Token     string
}

// NewAppHandler builds the HTTP router. Health and metrics are open;
// everything else requires the bearer token.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/ask", handleAsk(deps))
		r.Get("/followups", handleFollowups(deps))

		r.Get("/requests", handleListRequests(deps))
		r.Post("/requests", handleCreateRequest(deps))
		r.Get("/requests/{id}", handleGetRequest(deps))
		r.Post("/requests/{id}/resolve", handleResolveRequest(deps))
		r.Post("/requests/{id}/unresolve", handleUnresolveRequest(deps))
		r.Post("/requests/{id}/reopen", handleReopenRequest(deps))

		r.Get("/knowledge", handleListKnowledge(deps))
		r.Put("/knowledge", handleTeachKnowledge(deps))
		r.Delete("/knowledge", handleForgetKnowledge(deps))

		r.Get("/notifications", handleListNotifications(deps))
		r.Post("/notifications/{id}/processed", handleMarkProcessed(deps))

		r.Get("/stats", handleStats(deps))
	})

	return r
}

func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
