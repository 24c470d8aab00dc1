package storage

import (
	"database/sql"
	"fmt"
	"time"
)

const helpRequestColumns = "id, requester_id, question, audio_transcript, status, created_at, resolved_at, supervisor_answer, timeout_at"

// CreateHelpRequest appends a new request record. An empty status defaults
// to pending.
func (s *Store) CreateHelpRequest(r HelpRequest) error {
	status := r.Status
	if status == "" {
		status = StatusPending
	}
	_, err := s.db.Exec(`
		INSERT INTO help_requests (id, requester_id, question, audio_transcript, status, created_at, resolved_at, supervisor_answer, timeout_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL, NULL, ?)`,
		r.ID, r.RequesterID, r.Question, r.AudioTranscript, status,
		fmtTime(r.CreatedAt), fmtNullableTime(r.TimeoutAt),
	)
	return err
}

// GetHelpRequest retrieves a single request by id.
func (s *Store) GetHelpRequest(id string) (HelpRequest, error) {
	row := s.db.QueryRow(`SELECT `+helpRequestColumns+` FROM help_requests WHERE id = ?`, id)
	r, err := scanHelpRequest(row)
	if err == sql.ErrNoRows {
		return HelpRequest{}, ErrNotFound
	}
	return r, err
}

// ListHelpRequests returns requests newest-first, optionally filtered by status.
func (s *Store) ListHelpRequests(status string, limit, offset int) ([]HelpRequest, error) {
	query := `SELECT ` + helpRequestColumns + ` FROM help_requests`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []HelpRequest
	for rows.Next() {
		r, err := scanHelpRequest(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ListPendingHelpRequests returns every pending request oldest-first.
// The sweeper walks this full set each cycle.
func (s *Store) ListPendingHelpRequests() ([]HelpRequest, error) {
	rows, err := s.db.Query(`SELECT `+helpRequestColumns+` FROM help_requests WHERE status = ? ORDER BY created_at ASC, id ASC`, StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []HelpRequest
	for rows.Next() {
		r, err := scanHelpRequest(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ResolveHelpRequest transitions a pending request to resolved and, in the
// same transaction, inserts the follow-up notification and (when teachKey is
// non-empty) upserts the knowledge entry. The single transaction is what
// makes the notification never visible before the resolved state is durable.
// Returns ErrNotFound if no such request exists and ErrNotPending if it is
// already terminal.
func (s *Store) ResolveHelpRequest(id, answer, notificationID, teachKey string, now time.Time) (HelpRequest, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return HelpRequest{}, fmt.Errorf("beginning resolve transaction: %w", err)
	}
	defer tx.Rollback()

	var status, requesterID string
	err = tx.QueryRow(`SELECT status, requester_id FROM help_requests WHERE id = ?`, id).Scan(&status, &requesterID)
	if err == sql.ErrNoRows {
		return HelpRequest{}, ErrNotFound
	}
	if err != nil {
		return HelpRequest{}, err
	}
	if status != StatusPending {
		return HelpRequest{}, ErrNotPending
	}

	res, err := tx.Exec(`UPDATE help_requests SET status = ?, resolved_at = ?, supervisor_answer = ? WHERE id = ? AND status = ?`,
		StatusResolved, fmtTime(now), answer, id, StatusPending)
	if err != nil {
		return HelpRequest{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return HelpRequest{}, err
	}
	if n != 1 {
		return HelpRequest{}, ErrNotPending
	}

	if _, err := tx.Exec(`
		INSERT INTO notifications (id, request_id, requester_id, answer, created_at, processed, processed_at)
		VALUES (?, ?, ?, ?, ?, 0, NULL)`,
		notificationID, id, requesterID, answer, fmtTime(now),
	); err != nil {
		return HelpRequest{}, fmt.Errorf("enqueuing notification: %w", err)
	}

	if teachKey != "" {
		if _, err := tx.Exec(`
			INSERT INTO knowledge (question, answer, created_at, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(question) DO UPDATE SET answer = excluded.answer, updated_at = excluded.updated_at`,
			teachKey, answer, fmtTime(now), fmtTime(now),
		); err != nil {
			return HelpRequest{}, fmt.Errorf("teaching knowledge entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return HelpRequest{}, fmt.Errorf("committing resolve: %w", err)
	}

	return s.GetHelpRequest(id)
}

// MarkHelpRequestUnresolved transitions a pending request to unresolved,
// recording the marker as the supervisor answer. Returns ErrNotFound or
// ErrNotPending when the transition does not apply.
func (s *Store) MarkHelpRequestUnresolved(id, marker string, now time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning unresolve transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRow(`SELECT status FROM help_requests WHERE id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if status != StatusPending {
		return ErrNotPending
	}

	if _, err := tx.Exec(`UPDATE help_requests SET status = ?, resolved_at = ?, supervisor_answer = ? WHERE id = ? AND status = ?`,
		StatusUnresolved, fmtTime(now), marker, id, StatusPending); err != nil {
		return err
	}

	return tx.Commit()
}

// ReopenHelpRequest returns a terminal request to pending, clearing the
// resolution fields, withdrawing any notification queued by the prior
// resolution, and installing the fresh deadline. Clearing the notification
// keeps the one-notification-per-request invariant intact so a later
// resolve can queue a fresh follow-up. Returns ErrNotFound for unknown ids
// and ErrNotTerminal for requests that are still pending.
func (s *Store) ReopenHelpRequest(id string, timeoutAt time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning reopen transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRow(`SELECT status FROM help_requests WHERE id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if status == StatusPending {
		return ErrNotTerminal
	}

	if _, err := tx.Exec(`UPDATE help_requests SET status = ?, resolved_at = NULL, supervisor_answer = NULL, timeout_at = ? WHERE id = ?`,
		StatusPending, fmtTime(timeoutAt), id); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM notifications WHERE request_id = ?`, id); err != nil {
		return fmt.Errorf("withdrawing notification: %w", err)
	}

	return tx.Commit()
}

// SetHelpRequestTimeout backfills the deadline on a legacy record that was
// created without one.
func (s *Store) SetHelpRequestTimeout(id string, timeoutAt time.Time) error {
	res, err := s.db.Exec(`UPDATE help_requests SET timeout_at = ? WHERE id = ?`, fmtTime(timeoutAt), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountHelpRequestsByStatus returns the number of requests per status.
func (s *Store) CountHelpRequestsByStatus() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM help_requests GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHelpRequest(row rowScanner) (HelpRequest, error) {
	var r HelpRequest
	var transcript, resolvedAt, answer, timeoutAt sql.NullString
	var createdAt string
	if err := row.Scan(&r.ID, &r.RequesterID, &r.Question, &transcript, &r.Status, &createdAt, &resolvedAt, &answer, &timeoutAt); err != nil {
		return HelpRequest{}, err
	}

	t, err := parseTime(createdAt)
	if err != nil {
		return HelpRequest{}, fmt.Errorf("parsing created_at for request %s: %w", r.ID, err)
	}
	r.CreatedAt = t
	r.AudioTranscript = transcript.String
	r.SupervisorAnswer = answer.String

	r.ResolvedAt, err = parseNullableTime(resolvedAt)
	if err != nil {
		return HelpRequest{}, fmt.Errorf("parsing resolved_at for request %s: %w", r.ID, err)
	}

	if timeoutAt.Valid && timeoutAt.String != "" {
		to, err := parseTime(timeoutAt.String)
		if err != nil {
			return HelpRequest{}, fmt.Errorf("parsing timeout_at for request %s: %w", r.ID, err)
		}
		r.TimeoutAt = to
	}
	return r, nil
}
