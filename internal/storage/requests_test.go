package storage

import (
	"errors"
	"testing"
	"time"
)

func testRequest(id string, created time.Time) HelpRequest {
	return HelpRequest{
		ID:              id,
		RequesterID:     "room-42",
		Question:        "What are your pricing options?",
		AudioTranscript: "What are your pricing options?",
		CreatedAt:       created,
		TimeoutAt:       created.Add(2 * time.Hour),
	}
}

func TestCreateAndGetHelpRequest(t *testing.T) {
	s := openTestStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	want := testRequest("REQ_1_0", now)
	if err := s.CreateHelpRequest(want); err != nil {
		t.Fatalf("CreateHelpRequest: %v", err)
	}

	got, err := s.GetHelpRequest("REQ_1_0")
	if err != nil {
		t.Fatalf("GetHelpRequest: %v", err)
	}

	if got.Status != StatusPending {
		t.Errorf("Status = %q, want %q", got.Status, StatusPending)
	}
	if got.RequesterID != want.RequesterID {
		t.Errorf("RequesterID = %q, want %q", got.RequesterID, want.RequesterID)
	}
	if got.Question != want.Question {
		t.Errorf("Question = %q, want %q", got.Question, want.Question)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
	}
	if !got.TimeoutAt.Equal(want.TimeoutAt) {
		t.Errorf("TimeoutAt = %v, want %v", got.TimeoutAt, want.TimeoutAt)
	}
	if got.ResolvedAt != nil {
		t.Errorf("ResolvedAt = %v, want nil", got.ResolvedAt)
	}
}

func TestGetHelpRequestNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetHelpRequest("REQ_missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestResolveHelpRequest(t *testing.T) {
	s := openTestStore(t)

	created := time.Now().UTC().Truncate(time.Second)
	if err := s.CreateHelpRequest(testRequest("REQ_1_0", created)); err != nil {
		t.Fatalf("CreateHelpRequest: %v", err)
	}

	resolvedAt := created.Add(10 * time.Minute)
	got, err := s.ResolveHelpRequest("REQ_1_0", "Partial highlights start at $80.", "NOTIF_1_0", "what are your pricing options?", resolvedAt)
	if err != nil {
		t.Fatalf("ResolveHelpRequest: %v", err)
	}

	if got.Status != StatusResolved {
		t.Errorf("Status = %q, want %q", got.Status, StatusResolved)
	}
	if got.SupervisorAnswer != "Partial highlights start at $80." {
		t.Errorf("SupervisorAnswer = %q", got.SupervisorAnswer)
	}
	if got.ResolvedAt == nil || !got.ResolvedAt.Equal(resolvedAt) {
		t.Errorf("ResolvedAt = %v, want %v", got.ResolvedAt, resolvedAt)
	}

	// Exactly one unprocessed notification with matching routing fields.
	pending, err := s.ListPendingNotifications()
	if err != nil {
		t.Fatalf("ListPendingNotifications: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d pending notifications, want 1", len(pending))
	}
	n := pending[0]
	if n.ID != "NOTIF_1_0" || n.RequestID != "REQ_1_0" || n.RequesterID != "room-42" {
		t.Errorf("notification routing = {%s %s %s}", n.ID, n.RequestID, n.RequesterID)
	}
	if n.Answer != "Partial highlights start at $80." {
		t.Errorf("notification answer = %q", n.Answer)
	}

	// Knowledge entry taught in the same operation.
	answer, err := s.GetKnowledgeAnswer("what are your pricing options?")
	if err != nil {
		t.Fatalf("GetKnowledgeAnswer: %v", err)
	}
	if answer != "Partial highlights start at $80." {
		t.Errorf("taught answer = %q", answer)
	}
}

func TestResolveHelpRequestWithoutTeach(t *testing.T) {
	s := openTestStore(t)

	created := time.Now().UTC().Truncate(time.Second)
	if err := s.CreateHelpRequest(testRequest("REQ_1_0", created)); err != nil {
		t.Fatalf("CreateHelpRequest: %v", err)
	}

	if _, err := s.ResolveHelpRequest("REQ_1_0", "answer", "NOTIF_1_0", "", created); err != nil {
		t.Fatalf("ResolveHelpRequest: %v", err)
	}

	if n, err := s.CountKnowledge(); err != nil || n != 0 {
		t.Errorf("CountKnowledge = %d, %v; want 0, nil", n, err)
	}
}

func TestResolveHelpRequestInvalidStates(t *testing.T) {
	s := openTestStore(t)

	created := time.Now().UTC().Truncate(time.Second)
	if err := s.CreateHelpRequest(testRequest("REQ_1_0", created)); err != nil {
		t.Fatalf("CreateHelpRequest: %v", err)
	}
	if _, err := s.ResolveHelpRequest("REQ_1_0", "answer", "NOTIF_1_0", "", created); err != nil {
		t.Fatalf("first resolve: %v", err)
	}

	if _, err := s.ResolveHelpRequest("REQ_1_0", "other", "NOTIF_1_1", "", created); !errors.Is(err, ErrNotPending) {
		t.Errorf("double resolve err = %v, want ErrNotPending", err)
	}
	if _, err := s.ResolveHelpRequest("REQ_missing", "answer", "NOTIF_1_2", "", created); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing resolve err = %v, want ErrNotFound", err)
	}

	// A failed resolve must not leave a stray notification behind.
	pending, err := s.ListPendingNotifications()
	if err != nil {
		t.Fatalf("ListPendingNotifications: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("got %d pending notifications after failed resolves, want 1", len(pending))
	}
}

func TestMarkHelpRequestUnresolved(t *testing.T) {
	s := openTestStore(t)

	created := time.Now().UTC().Truncate(time.Second)
	if err := s.CreateHelpRequest(testRequest("REQ_1_0", created)); err != nil {
		t.Fatalf("CreateHelpRequest: %v", err)
	}

	at := created.Add(2 * time.Hour)
	if err := s.MarkHelpRequestUnresolved("REQ_1_0", "[Unresolved: timed out without supervisor response]", at); err != nil {
		t.Fatalf("MarkHelpRequestUnresolved: %v", err)
	}

	got, err := s.GetHelpRequest("REQ_1_0")
	if err != nil {
		t.Fatalf("GetHelpRequest: %v", err)
	}
	if got.Status != StatusUnresolved {
		t.Errorf("Status = %q, want %q", got.Status, StatusUnresolved)
	}
	if got.SupervisorAnswer != "[Unresolved: timed out without supervisor response]" {
		t.Errorf("SupervisorAnswer = %q", got.SupervisorAnswer)
	}
	if got.ResolvedAt == nil || !got.ResolvedAt.Equal(at) {
		t.Errorf("ResolvedAt = %v, want %v", got.ResolvedAt, at)
	}

	// Expiring a terminal request is a reported failure, not a silent no-op.
	if err := s.MarkHelpRequestUnresolved("REQ_1_0", "[Unresolved: again]", at); !errors.Is(err, ErrNotPending) {
		t.Errorf("second unresolve err = %v, want ErrNotPending", err)
	}
	if err := s.MarkHelpRequestUnresolved("REQ_missing", "[Unresolved: x]", at); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing unresolve err = %v, want ErrNotFound", err)
	}

	// No notification is produced for an unresolved request.
	if pending, _ := s.ListPendingNotifications(); len(pending) != 0 {
		t.Errorf("got %d notifications after unresolve, want 0", len(pending))
	}
}

func TestReopenHelpRequest(t *testing.T) {
	s := openTestStore(t)

	created := time.Now().UTC().Truncate(time.Second)
	if err := s.CreateHelpRequest(testRequest("REQ_1_0", created)); err != nil {
		t.Fatalf("CreateHelpRequest: %v", err)
	}

	if err := s.ReopenHelpRequest("REQ_1_0", created.Add(2*time.Hour)); !errors.Is(err, ErrNotTerminal) {
		t.Errorf("reopen pending err = %v, want ErrNotTerminal", err)
	}

	if err := s.MarkHelpRequestUnresolved("REQ_1_0", "[Unresolved: Marked as unresolved by supervisor]", created.Add(time.Minute)); err != nil {
		t.Fatalf("MarkHelpRequestUnresolved: %v", err)
	}

	newDeadline := created.Add(3 * time.Hour)
	if err := s.ReopenHelpRequest("REQ_1_0", newDeadline); err != nil {
		t.Fatalf("ReopenHelpRequest: %v", err)
	}

	got, err := s.GetHelpRequest("REQ_1_0")
	if err != nil {
		t.Fatalf("GetHelpRequest: %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("Status = %q, want %q", got.Status, StatusPending)
	}
	if got.ResolvedAt != nil {
		t.Errorf("ResolvedAt = %v, want nil after reopen", got.ResolvedAt)
	}
	if got.SupervisorAnswer != "" {
		t.Errorf("SupervisorAnswer = %q, want cleared", got.SupervisorAnswer)
	}
	if !got.TimeoutAt.Equal(newDeadline) {
		t.Errorf("TimeoutAt = %v, want %v", got.TimeoutAt, newDeadline)
	}

	if err := s.ReopenHelpRequest("REQ_missing", newDeadline); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing reopen err = %v, want ErrNotFound", err)
	}
}

// TestResolveAfterReopen covers the full resolve, reopen, resolve-again
// cycle: reopening withdraws the first notification so the second resolve
// can queue a fresh one.
func TestResolveAfterReopen(t *testing.T) {
	s := openTestStore(t)

	created := time.Now().UTC().Truncate(time.Second)
	if err := s.CreateHelpRequest(testRequest("REQ_1_0", created)); err != nil {
		t.Fatalf("CreateHelpRequest: %v", err)
	}

	if _, err := s.ResolveHelpRequest("REQ_1_0", "first answer", "NOTIF_1", "", created.Add(time.Minute)); err != nil {
		t.Fatalf("first ResolveHelpRequest: %v", err)
	}
	if err := s.ReopenHelpRequest("REQ_1_0", created.Add(3*time.Hour)); err != nil {
		t.Fatalf("ReopenHelpRequest: %v", err)
	}

	// The first resolution's notification is withdrawn with it.
	if _, err := s.GetNotification("NOTIF_1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("stale notification err = %v, want ErrNotFound", err)
	}

	got, err := s.ResolveHelpRequest("REQ_1_0", "second answer", "NOTIF_2", "", created.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("second ResolveHelpRequest: %v", err)
	}
	if got.Status != StatusResolved {
		t.Errorf("Status = %q, want %q", got.Status, StatusResolved)
	}
	if got.SupervisorAnswer != "second answer" {
		t.Errorf("SupervisorAnswer = %q, want %q", got.SupervisorAnswer, "second answer")
	}

	pending, err := s.PendingNotificationsFor("room-42")
	if err != nil {
		t.Fatalf("PendingNotificationsFor: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending notifications = %d, want 1", len(pending))
	}
	if pending[0].ID != "NOTIF_2" || pending[0].Answer != "second answer" {
		t.Errorf("notification = %+v, want NOTIF_2 with the new answer", pending[0])
	}
}

func TestListPendingHelpRequests(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"REQ_1_0", "REQ_1_1", "REQ_1_2"} {
		if err := s.CreateHelpRequest(testRequest(id, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("CreateHelpRequest %s: %v", id, err)
		}
	}
	if _, err := s.ResolveHelpRequest("REQ_1_1", "answer", "NOTIF_1_0", "", base); err != nil {
		t.Fatalf("ResolveHelpRequest: %v", err)
	}

	pending, err := s.ListPendingHelpRequests()
	if err != nil {
		t.Fatalf("ListPendingHelpRequests: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending requests, want 2", len(pending))
	}
	if pending[0].ID != "REQ_1_0" || pending[1].ID != "REQ_1_2" {
		t.Errorf("pending order = [%s %s], want oldest first", pending[0].ID, pending[1].ID)
	}
}

func TestSetHelpRequestTimeoutBackfill(t *testing.T) {
	s := openTestStore(t)

	created := time.Now().UTC().Truncate(time.Second)
	r := testRequest("REQ_1_0", created)
	r.TimeoutAt = time.Time{} // legacy record without a deadline
	if err := s.CreateHelpRequest(r); err != nil {
		t.Fatalf("CreateHelpRequest: %v", err)
	}

	got, err := s.GetHelpRequest("REQ_1_0")
	if err != nil {
		t.Fatalf("GetHelpRequest: %v", err)
	}
	if !got.TimeoutAt.IsZero() {
		t.Fatalf("TimeoutAt = %v, want zero for legacy record", got.TimeoutAt)
	}

	deadline := created.Add(2 * time.Hour)
	if err := s.SetHelpRequestTimeout("REQ_1_0", deadline); err != nil {
		t.Fatalf("SetHelpRequestTimeout: %v", err)
	}
	got, err = s.GetHelpRequest("REQ_1_0")
	if err != nil {
		t.Fatalf("GetHelpRequest: %v", err)
	}
	if !got.TimeoutAt.Equal(deadline) {
		t.Errorf("TimeoutAt = %v, want %v", got.TimeoutAt, deadline)
	}
}

func TestCountHelpRequestsByStatus(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"REQ_1_0", "REQ_1_1", "REQ_1_2"} {
		if err := s.CreateHelpRequest(testRequest(id, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("CreateHelpRequest %s: %v", id, err)
		}
	}
	if _, err := s.ResolveHelpRequest("REQ_1_0", "a", "NOTIF_1_0", "", base); err != nil {
		t.Fatalf("ResolveHelpRequest: %v", err)
	}
	if err := s.MarkHelpRequestUnresolved("REQ_1_1", "[Unresolved: x]", base); err != nil {
		t.Fatalf("MarkHelpRequestUnresolved: %v", err)
	}

	counts, err := s.CountHelpRequestsByStatus()
	if err != nil {
		t.Fatalf("CountHelpRequestsByStatus: %v", err)
	}
	want := map[string]int{StatusPending: 1, StatusResolved: 1, StatusUnresolved: 1}
	for status, n := range want {
		if counts[status] != n {
			t.Errorf("counts[%s] = %d, want %d", status, counts[status], n)
		}
	}
}
