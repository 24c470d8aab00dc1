package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotPending is returned when a lifecycle transition requires a pending
// request and the record is already terminal.
var ErrNotPending = errors.New("request is not pending")

// ErrNotTerminal is returned when reopening a request that is still pending.
var ErrNotTerminal = errors.New("request is not in a terminal state")

// Help request lifecycle states. Resolved and unresolved are terminal;
// a terminal request returns to pending only through an explicit reopen.
const (
	StatusPending    = "pending"
	StatusResolved   = "resolved"
	StatusUnresolved = "unresolved"
)

// HelpRequest is an escalated caller question awaiting a supervisor.
type HelpRequest struct {
	ID               string     `json:"id"`
	RequesterID      string     `json:"requester_id"`
	Question         string     `json:"question"`
	AudioTranscript  string     `json:"audio_transcript,omitempty"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	SupervisorAnswer string     `json:"supervisor_answer,omitempty"`
	// TimeoutAt is fixed at creation. A zero value marks a legacy record
	// whose deadline the sweeper backfills from CreatedAt.
	TimeoutAt time.Time `json:"timeout_at"`
}

// Notification carries a supervisor answer back to the waiting requester.
// At most one notification ever exists per request.
type Notification struct {
	ID          string     `json:"id"`
	RequestID   string     `json:"request_id"`
	RequesterID string     `json:"requester_id"`
	Answer      string     `json:"answer"`
	CreatedAt   time.Time  `json:"created_at"`
	Processed   bool       `json:"processed"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// KnowledgeEntry maps a normalized question to a supervisor-approved answer.
type KnowledgeEntry struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
