// Package notify owns the follow-up notification queue: resolved answers
// wait here until the poller delivers them back to their requester.
package notify

import (
	"context"
	"time"

	"github.com/frontdeskhq/frontdesk/internal/storage"
)

// FollowUpPrefix is prepended to a supervisor's answer when it is spoken
// back to the caller.
const FollowUpPrefix = "Good news! I heard back from my supervisor. "

// Channel provides queue-shaped access to stored notifications.
type Channel struct {
	store *storage.Store
}

// NewChannel creates a Channel over the given store.
func NewChannel(store *storage.Store) *Channel {
	return &Channel{store: store}
}

// Pending returns all undelivered notifications, oldest first.
func (c *Channel) Pending(ctx context.Context) ([]storage.Notification, error) {
	return c.store.ListPendingNotifications()
}

// PendingFor returns undelivered notifications addressed to one requester.
func (c *Channel) PendingFor(ctx context.Context, requesterID string) ([]storage.Notification, error) {
	return c.store.PendingNotificationsFor(requesterID)
}

// MarkProcessed records a notification as delivered. Calling it again for
// the same id is a no-op; the first delivery timestamp stands.
func (c *Channel) MarkProcessed(ctx context.Context, id string) error {
	_, err := c.store.MarkNotificationProcessed(id, time.Now().UTC())
	return err
}

// Reap deletes processed notifications older than the retention window.
// Undelivered notifications are kept regardless of age.
func (c *Channel) Reap(ctx context.Context, retention time.Duration) (int64, error) {
	return c.store.ReapProcessedNotifications(time.Now().UTC().Add(-retention))
}
