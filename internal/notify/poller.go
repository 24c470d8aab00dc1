package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frontdeskhq/frontdesk/internal/metrics"
)

// DefaultPollInterval is how often the poller checks for undelivered
// notifications.
const DefaultPollInterval = 5 * time.Second

// DefaultRetention is how long processed notifications are kept before
// the poller reaps them.
const DefaultRetention = 7 * 24 * time.Hour

// reapEvery spaces out retention cleanup relative to delivery polls.
const reapEvery = time.Hour

// Deliverer receives a follow-up answer for the requester it was
// registered under. A delivery error leaves the notification pending, to
// be retried on the next poll.
type Deliverer interface {
	Deliver(ctx context.Context, answer string) error
}

// Poller periodically drains pending notifications to their registered
// requesters. Notifications for requesters with no registered deliverer
// stay queued until one appears.
type Poller struct {
	channel   *Channel
	poll      time.Duration
	retention time.Duration
	logger    *slog.Logger

	mu       sync.RWMutex
	delivery map[string]Deliverer
	lastReap time.Time
}

// NewPoller creates a Poller. Non-positive intervals fall back to the
// defaults.
func NewPoller(channel *Channel, poll, retention time.Duration, logger *slog.Logger) *Poller {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		channel:   channel,
		poll:      poll,
		retention: retention,
		logger:    logger,
		delivery:  make(map[string]Deliverer),
	}
}

// Register routes future notifications for requesterID to d, replacing
// any previous deliverer.
func (p *Poller) Register(requesterID string, d Deliverer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delivery[requesterID] = d
}

// Unregister stops routing notifications for requesterID. Anything still
// queued waits for the next Register.
func (p *Poller) Unregister(requesterID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.delivery, requesterID)
}

func (p *Poller) deliverer(requesterID string) (Deliverer, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, ok := p.delivery[requesterID]
	return d, ok
}

// Run polls for pending notifications until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := p.RunOnce(ctx); err != nil {
			p.logger.Error("notification poll failed", "error", err)
		}
	}
}

// RunOnce performs a single delivery pass and returns the number of
// notifications delivered. A failed delivery is logged and skipped; the
// notification stays pending for the next pass.
func (p *Poller) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.NotifyPollDuration.Observe(time.Since(start).Seconds())
	}()

	pending, err := p.channel.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing pending notifications: %w", err)
	}

	delivered := 0
	for _, n := range pending {
		d, ok := p.deliverer(n.RequesterID)
		if !ok {
			continue
		}

		if err := d.Deliver(ctx, FollowUpPrefix+n.Answer); err != nil {
			p.logger.Warn("delivery failed, will retry",
				"notification_id", n.ID,
				"requester", n.RequesterID,
				"error", err)
			continue
		}

		if err := p.channel.MarkProcessed(ctx, n.ID); err != nil {
			p.logger.Error("marking notification processed",
				"notification_id", n.ID, "error", err)
			continue
		}

		p.logger.Info("follow-up delivered",
			"notification_id", n.ID,
			"request_id", n.RequestID,
			"requester", n.RequesterID)
		metrics.NotificationsDelivered.Inc()
		delivered++
	}

	p.maybeReap(ctx)
	return delivered, nil
}

func (p *Poller) maybeReap(ctx context.Context) {
	p.mu.Lock()
	due := time.Since(p.lastReap) >= reapEvery
	if due {
		p.lastReap = time.Now()
	}
	p.mu.Unlock()
	if !due {
		return
	}

	reaped, err := p.channel.Reap(ctx, p.retention)
	if err != nil {
		p.logger.Error("reaping notifications", "error", err)
		return
	}
	if reaped > 0 {
		p.logger.Info("reaped processed notifications", "count", reaped)
	}
}
