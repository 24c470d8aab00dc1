package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// UpsertKnowledge inserts or replaces the answer for a question key.
// Callers normalize the key before storing.
func (s *Store) UpsertKnowledge(question, answer string, now time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO knowledge (question, answer, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(question) DO UPDATE SET answer = excluded.answer, updated_at = excluded.updated_at`,
		question, answer, fmtTime(now), fmtTime(now),
	)
	return err
}

// GetKnowledgeAnswer returns the answer stored for an exact question key.
func (s *Store) GetKnowledgeAnswer(question string) (string, error) {
	var answer string
	err := s.db.QueryRow(`SELECT answer FROM knowledge WHERE question = ?`, question).Scan(&answer)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return answer, err
}

// AllKnowledge returns every entry in ascending key order. The fixed order
// keeps keyword routing and overlap scoring deterministic across calls.
func (s *Store) AllKnowledge() ([]KnowledgeEntry, error) {
	rows, err := s.db.Query(`SELECT question, answer, created_at, updated_at FROM knowledge ORDER BY question ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []KnowledgeEntry
	for rows.Next() {
		var e KnowledgeEntry
		var createdAt, updatedAt string
		if err := rows.Scan(&e.Question, &e.Answer, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at for knowledge %q: %w", e.Question, err)
		}
		if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parsing updated_at for knowledge %q: %w", e.Question, err)
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// DeleteKnowledge removes an entry by exact key.
func (s *Store) DeleteKnowledge(question string) error {
	res, err := s.db.Exec(`DELETE FROM knowledge WHERE question = ?`, question)
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

// CountKnowledge returns the number of knowledge entries.
func (s *Store) CountKnowledge() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM knowledge`).Scan(&n)
	return n, err
}
