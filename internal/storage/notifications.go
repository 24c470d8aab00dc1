package storage

import (
	"database/sql"
	"fmt"
	"time"
)

const notificationColumns = "id, request_id, requester_id, answer, created_at, processed, processed_at"

// GetNotification retrieves a single notification by id.
func (s *Store) GetNotification(id string) (Notification, error) {
	row := s.db.QueryRow(`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id)
	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return Notification{}, ErrNotFound
	}
	return n, err
}

// ListPendingNotifications returns every unprocessed notification oldest-first.
// Filtering by requester is the caller's concern.
func (s *Store) ListPendingNotifications() ([]Notification, error) {
	return s.listNotifications(`SELECT `+notificationColumns+` FROM notifications WHERE processed = 0 ORDER BY created_at ASC, id ASC`, nil)
}

// PendingNotificationsFor returns unprocessed notifications for one requester,
// oldest-first.
func (s *Store) PendingNotificationsFor(requesterID string) ([]Notification, error) {
	return s.listNotifications(
		`SELECT `+notificationColumns+` FROM notifications WHERE processed = 0 AND requester_id = ? ORDER BY created_at ASC, id ASC`,
		[]any{requesterID},
	)
}

// ListNotifications returns notifications newest-first regardless of state.
func (s *Store) ListNotifications(limit, offset int) ([]Notification, error) {
	return s.listNotifications(
		`SELECT `+notificationColumns+` FROM notifications ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		[]any{limit, offset},
	)
}

func (s *Store) listNotifications(query string, args []any) ([]Notification, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, n)
	}
	return results, rows.Err()
}

// MarkNotificationProcessed sets processed on first call and reports whether
// this call performed the update. Calling it again on an already-processed
// notification is a no-op, not an error, and leaves processed_at untouched.
func (s *Store) MarkNotificationProcessed(id string, now time.Time) (bool, error) {
	res, err := s.db.Exec(`UPDATE notifications SET processed = 1, processed_at = ? WHERE id = ? AND processed = 0`,
		fmtTime(now), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}

	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE id = ?`, id).Scan(&exists); err != nil {
		return false, err
	}
	if exists == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

// ReapProcessedNotifications deletes processed notifications whose
// processed_at falls before the cutoff. Unprocessed notifications are never
// deleted regardless of age.
func (s *Store) ReapProcessedNotifications(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM notifications WHERE processed = 1 AND processed_at < ?`, fmtTime(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountPendingNotifications returns the number of unprocessed notifications.
func (s *Store) CountPendingNotifications() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE processed = 0`).Scan(&n)
	return n, err
}

func scanNotification(row rowScanner) (Notification, error) {
	var n Notification
	var createdAt string
	var processed int
	var processedAt sql.NullString
	if err := row.Scan(&n.ID, &n.RequestID, &n.RequesterID, &n.Answer, &createdAt, &processed, &processedAt); err != nil {
		return Notification{}, err
	}

	t, err := parseTime(createdAt)
	if err != nil {
		return Notification{}, fmt.Errorf("parsing created_at for notification %s: %w", n.ID, err)
	}
	n.CreatedAt = t
	n.Processed = processed != 0

	n.ProcessedAt, err = parseNullableTime(processedAt)
	if err != nil {
		return Notification{}, fmt.Errorf("parsing processed_at for notification %s: %w", n.ID, err)
	}
	return n, nil
}
