// Package escalation owns the help request lifecycle: creation when the
// policy engine gives up, resolution by a supervisor, expiry by the
// timeout sweeper, and reopening from the dashboard.
package escalation

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/frontdeskhq/frontdesk/internal/knowledge"
	"github.com/frontdeskhq/frontdesk/internal/metrics"
	"github.com/frontdeskhq/frontdesk/internal/storage"
)

// DefaultHorizon is how long a request may stay pending before the
// sweeper marks it unresolved.
const DefaultHorizon = 2 * time.Hour

// TimeoutReason is the reason recorded when the sweeper expires a request.
const TimeoutReason = "timed out without supervisor response"

// seq disambiguates tokens minted within the same second, process-wide.
var seq atomic.Uint64

func newToken(prefix string) string {
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().Unix(), seq.Add(1))
}

// Manager is the sole writer of help request status transitions.
type Manager struct {
	store   *storage.Store
	horizon time.Duration
	logger  *slog.Logger
}

// NewManager creates a Manager. A non-positive horizon falls back to
// DefaultHorizon.
func NewManager(store *storage.Store, horizon time.Duration, logger *slog.Logger) *Manager {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, horizon: horizon, logger: logger}
}

// Horizon returns the pending-request deadline duration.
func (m *Manager) Horizon() time.Duration { return m.horizon }

// Create opens a new pending request and alerts the supervisor channel.
func (m *Manager) Create(ctx context.Context, requesterID, question, transcript string) (storage.HelpRequest, error) {
	now := time.Now().UTC()
	req := storage.HelpRequest{
		ID:              newToken("REQ"),
		RequesterID:     requesterID,
		Question:        question,
		AudioTranscript: transcript,
		Status:          storage.StatusPending,
		CreatedAt:       now,
		TimeoutAt:       now.Add(m.horizon),
	}
	if err := m.store.CreateHelpRequest(req); err != nil {
		return storage.HelpRequest{}, fmt.Errorf("creating help request: %w", err)
	}

	m.logger.Warn("supervisor attention needed",
		"request_id", req.ID,
		"requester", requesterID,
		"question", question,
		"deadline", req.TimeoutAt.Format(time.RFC3339))
	metrics.PendingRequests.Inc()
	return req, nil
}

// Escalate creates a request with the question doubling as its transcript
// and returns the new request's ID. It satisfies the policy engine's
// escalator contract.
func (m *Manager) Escalate(ctx context.Context, requesterID, question string) (string, error) {
	req, err := m.Create(ctx, requesterID, question, question)
	if err != nil {
		return "", err
	}
	return req.ID, nil
}

// Resolve records a supervisor's answer on a pending request, enqueues
// the follow-up notification, and optionally teaches the answer into the
// knowledge base. All three writes commit together.
func (m *Manager) Resolve(ctx context.Context, id, answer string, teach bool) (storage.HelpRequest, error) {
	req, err := m.store.GetHelpRequest(id)
	if err != nil {
		return storage.HelpRequest{}, err
	}

	teachKey := ""
	if teach {
		teachKey = knowledge.NormalizeKey(req.Question)
	}

	resolved, err := m.store.ResolveHelpRequest(id, answer, newToken("NOTIF"), teachKey, time.Now().UTC())
	if err != nil {
		return storage.HelpRequest{}, err
	}

	m.logger.Info("request resolved",
		"request_id", id,
		"requester", resolved.RequesterID,
		"taught", teach)
	metrics.RequestsResolved.Inc()
	metrics.PendingRequests.Dec()
	return resolved, nil
}

// MarkUnresolved closes a pending request without an answer, recording
// the reason in the supervisor_answer field.
func (m *Manager) MarkUnresolved(ctx context.Context, id, reason string) error {
	marker := fmt.Sprintf("[Unresolved: %s]", reason)
	if err := m.store.MarkHelpRequestUnresolved(id, marker, time.Now().UTC()); err != nil {
		return err
	}
	m.logger.Info("request marked unresolved", "request_id", id, "reason", reason)
	metrics.PendingRequests.Dec()
	return nil
}

// Reopen returns a terminal request to pending with a fresh deadline.
func (m *Manager) Reopen(ctx context.Context, id string) error {
	if err := m.store.ReopenHelpRequest(id, time.Now().UTC().Add(m.horizon)); err != nil {
		return err
	}
	m.logger.Info("request reopened", "request_id", id)
	metrics.PendingRequests.Inc()
	return nil
}
