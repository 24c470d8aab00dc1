// Package knowledge wraps the stored question/answer mapping that supervisors
// teach and the escalation policy consults. All reads go back to the store so
// concurrent writers (dashboard, resolutions) are always visible.
package knowledge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/frontdeskhq/frontdesk/internal/storage"
)

// NormalizeKey produces the canonical knowledge key for a question:
// lower-cased and trimmed, the same form supervisors taught answers under.
func NormalizeKey(question string) string {
	return strings.ToLower(strings.TrimSpace(question))
}

// Base provides normalized access to the knowledge record family.
type Base struct {
	store *storage.Store
}

// NewBase creates a Base over the given store.
func NewBase(store *storage.Store) *Base {
	return &Base{store: store}
}

// Lookup returns the answer for a question's normalized key, and whether one
// exists.
func (b *Base) Lookup(ctx context.Context, question string) (string, bool, error) {
	answer, err := b.store.GetKnowledgeAnswer(NormalizeKey(question))
	if err == storage.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return answer, true, nil
}

// Entries returns all knowledge entries in ascending key order.
func (b *Base) Entries(ctx context.Context) ([]storage.KnowledgeEntry, error) {
	return b.store.AllKnowledge()
}

// Teach stores an answer under the question's normalized key, replacing any
// previous answer. The mapping only ever grows or updates; policy code never
// writes through this path.
func (b *Base) Teach(ctx context.Context, question, answer string) error {
	key := NormalizeKey(question)
	if key == "" {
		return fmt.Errorf("empty question key")
	}
	return b.store.UpsertKnowledge(key, answer, time.Now().UTC())
}

// Forget removes the entry stored under the question's normalized key.
func (b *Base) Forget(ctx context.Context, question string) error {
	return b.store.DeleteKnowledge(NormalizeKey(question))
}
