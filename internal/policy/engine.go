// Package policy decides how the assistant answers a caller: from taught
// knowledge, from the language model, or by escalating to a supervisor.
package policy

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/frontdeskhq/frontdesk/internal/metrics"
	"github.com/frontdeskhq/frontdesk/internal/storage"
)

// HoldingMessage is what the caller hears when their question has been
// escalated to a supervisor.
const HoldingMessage = "That's a great question! I've forwarded it to my supervisor who will get back to you shortly with the answer."

// Answer sources, used for logging and the answers_total metric.
const (
	SourceKnowledge = "knowledge"
	SourceModel     = "model"
	SourceEscalated = "escalated"
)

// stopWords carry no matching signal and are dropped before overlap scoring.
var stopWords = map[string]struct{}{
	"i": {}, "you": {}, "do": {}, "the": {}, "a": {}, "an": {},
	"is": {}, "are": {}, "am": {}, "we": {}, "me": {}, "my": {},
}

// incompletePatterns flag short questions too vague for the model to be
// worth trying.
var incompletePatterns = []string{"you open", "are you", "do you", "can you", "is your", "what is"}

var punctuation = regexp.MustCompile(`[^\w\s]`)

// Knowledge supplies the taught question/answer entries, keyed by
// normalized question, in deterministic order.
type Knowledge interface {
	Entries(ctx context.Context) ([]storage.KnowledgeEntry, error)
}

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Escalator raises a help request for a question the engine cannot answer
// and returns the new request's ID.
type Escalator interface {
	Escalate(ctx context.Context, requesterID, question string) (string, error)
}

// Reply is the engine's decision for one question.
type Reply struct {
	Text      string `json:"text"`
	Source    string `json:"source"`
	RequestID string `json:"request_id,omitempty"`
}

// Engine routes questions through knowledge, the model and escalation.
type Engine struct {
	knowledge Knowledge
	generator Generator
	escalator Escalator
	holding   string
	rules     []keywordRule
	logger    *slog.Logger
}

// NewEngine creates an Engine with the default keyword rules. A custom
// holding message may be configured; empty means the default.
func NewEngine(kb Knowledge, gen Generator, esc Escalator, holding string, logger *slog.Logger) *Engine {
	if holding == "" {
		holding = HoldingMessage
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		knowledge: kb,
		generator: gen,
		escalator: esc,
		holding:   holding,
		rules:     defaultRules,
		logger:    logger,
	}
}

// Answer produces a reply for a caller's question. It tries, in order:
// keyword-routed knowledge, word-overlap knowledge, the language model,
// and finally escalation to a supervisor.
func (e *Engine) Answer(ctx context.Context, requesterID, question string) (Reply, error) {
	cleaned := clean(question)
	tokens := len(strings.Fields(cleaned))

	entries, err := e.knowledge.Entries(ctx)
	if err != nil {
		return Reply{}, err
	}

	if answer, rule, ok := e.matchKeyword(cleaned, tokens, entries); ok {
		e.logger.Debug("knowledge match", "rule", rule, "requester", requesterID)
		metrics.AnswersTotal.WithLabelValues(SourceKnowledge).Inc()
		return Reply{Text: answer, Source: SourceKnowledge}, nil
	}

	if answer, key, ok := matchOverlap(cleaned, entries); ok {
		e.logger.Debug("knowledge overlap match", "key", key, "requester", requesterID)
		metrics.AnswersTotal.WithLabelValues(SourceKnowledge).Inc()
		return Reply{Text: answer, Source: SourceKnowledge}, nil
	}

	if isIncomplete(cleaned, tokens) {
		return e.escalate(ctx, requesterID, question, "incomplete")
	}

	raw, err := e.generator.Generate(ctx, "Customer question: "+question+"\nHelpful answer:")
	if err != nil {
		e.logger.Warn("model generation failed", "error", err)
		return e.escalate(ctx, requesterID, question, "model_error")
	}

	reply, ok := gateReply(raw)
	if !ok {
		return e.escalate(ctx, requesterID, question, "model_inadequate")
	}

	metrics.AnswersTotal.WithLabelValues(SourceModel).Inc()
	return Reply{Text: reply, Source: SourceModel}, nil
}

func (e *Engine) escalate(ctx context.Context, requesterID, question, reason string) (Reply, error) {
	id, err := e.escalator.Escalate(ctx, requesterID, question)
	if err != nil {
		return Reply{}, err
	}
	e.logger.Info("escalated to supervisor", "request_id", id, "reason", reason, "requester", requesterID)
	metrics.EscalationsTotal.WithLabelValues(reason).Inc()
	metrics.AnswersTotal.WithLabelValues(SourceEscalated).Inc()
	return Reply{Text: e.holding, Source: SourceEscalated, RequestID: id}, nil
}

// matchKeyword tries each keyword rule in order. A rule answers only when
// it fires and a knowledge key matches its key selector; otherwise the
// question falls through to the next rule.
func (e *Engine) matchKeyword(cleaned string, tokens int, entries []storage.KnowledgeEntry) (answer, rule string, ok bool) {
	for _, r := range e.rules {
		if !r.fires(cleaned, tokens) {
			continue
		}
		for _, entry := range entries {
			if r.key.matches(entry.Question) {
				return entry.Answer, r.name, true
			}
		}
	}
	return "", "", false
}

// matchOverlap scores each knowledge key by the number of significant
// words it shares with the question. Ties keep the earlier key, so with
// entries in sorted order the result is deterministic. A score of at
// least 2 is required.
func matchOverlap(cleaned string, entries []storage.KnowledgeEntry) (answer, key string, ok bool) {
	userWords := significantWords(cleaned)
	if len(userWords) == 0 {
		return "", "", false
	}

	bestScore := 0
	for _, entry := range entries {
		score := 0
		for w := range significantWords(clean(entry.Question)) {
			if _, shared := userWords[w]; shared {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			answer, key = entry.Answer, entry.Question
		}
	}

	if bestScore >= 2 {
		return answer, key, true
	}
	return "", "", false
}

// isIncomplete reports whether a question is a short generic fragment
// that the model would only answer with filler.
func isIncomplete(cleaned string, tokens int) bool {
	if tokens > 3 {
		return false
	}
	for _, p := range incompletePatterns {
		if strings.Contains(cleaned, p) {
			return true
		}
	}
	return false
}

// clean lower-cases a question and strips punctuation, leaving words and
// whitespace only.
func clean(s string) string {
	return punctuation.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "")
}

// significantWords returns the set of words longer than two characters
// that are not stop words.
func significantWords(cleaned string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(cleaned) {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		words[w] = struct{}{}
	}
	return words
}
