// Package sweeper force-expires help requests that outlived their
// deadline without a supervisor answer.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frontdeskhq/frontdesk/internal/escalation"
	"github.com/frontdeskhq/frontdesk/internal/metrics"
	"github.com/frontdeskhq/frontdesk/internal/storage"
)

// DefaultInterval is how often the sweeper scans pending requests.
const DefaultInterval = time.Minute

// RequestSource lists pending requests and backfills missing deadlines.
type RequestSource interface {
	ListPendingHelpRequests() ([]storage.HelpRequest, error)
	SetHelpRequestTimeout(id string, timeoutAt time.Time) error
}

// Expirer closes a pending request with a reason. Only the sweeper may
// expire a request purely by elapsed time.
type Expirer interface {
	MarkUnresolved(ctx context.Context, id, reason string) error
	Horizon() time.Duration
}

// Sweeper scans pending requests on an interval and expires overdue ones.
type Sweeper struct {
	source   RequestSource
	expirer  Expirer
	interval time.Duration
	logger   *slog.Logger
}

// New creates a Sweeper. A non-positive interval falls back to
// DefaultInterval.
func New(source RequestSource, expirer Expirer, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{source: source, expirer: expirer, interval: interval, logger: logger}
}

// Run sweeps until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("sweep failed", "error", err)
		}
	}
}

// RunOnce performs a single sweep and returns the number of requests
// expired. Requests created before deadlines were recorded get one
// backfilled from created_at plus the horizon; those are not expired
// until a later sweep finds the backfilled deadline passed.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	pending, err := s.source.ListPendingHelpRequests()
	if err != nil {
		return 0, fmt.Errorf("listing pending requests: %w", err)
	}

	now := time.Now().UTC()
	expired := 0
	for _, req := range pending {
		if req.TimeoutAt.IsZero() {
			deadline := req.CreatedAt.Add(s.expirer.Horizon())
			if err := s.source.SetHelpRequestTimeout(req.ID, deadline); err != nil {
				s.logger.Error("backfilling deadline", "request_id", req.ID, "error", err)
			}
			continue
		}
		if req.TimeoutAt.After(now) {
			continue
		}

		if err := s.expirer.MarkUnresolved(ctx, req.ID, escalation.TimeoutReason); err != nil {
			// Lost the race against a concurrent resolve; nothing to do.
			if err == storage.ErrNotPending {
				continue
			}
			s.logger.Error("expiring request", "request_id", req.ID, "error", err)
			continue
		}
		s.logger.Warn("request timed out", "request_id", req.ID, "deadline", req.TimeoutAt.Format(time.RFC3339))
		metrics.RequestsExpired.Inc()
		expired++
	}

	return expired, nil
}
