package responder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/frontdeskhq/frontdesk/internal/policy"
)

// Alternative is one speech-to-text hypothesis with its position in the
// utterance.
type Alternative struct {
	Text    string
	StartMs int64
	EndMs   int64
}

// Transcriber converts an utterance's audio frames into text hypotheses.
type Transcriber interface {
	Transcribe(ctx context.Context, frames []AudioFrame) ([]Alternative, error)
}

// Synthesizer renders text into playable audio frames.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]AudioFrame, error)
}

// Output plays synthesized frames back to the caller.
type Output interface {
	Play(ctx context.Context, frame AudioFrame) error
}

// Answerer decides the reply for a caller's question.
type Answerer interface {
	Answer(ctx context.Context, requesterID, question string) (policy.Reply, error)
}

// Session is one live conversation. It consumes the caller's audio
// stream and doubles as the delivery target for supervisor follow-ups.
type Session struct {
	requesterID string
	detector    *Detector
	transcriber Transcriber
	synth       Synthesizer
	out         Output
	answerer    Answerer
	logger      *slog.Logger
}

// NewSession creates a Session for one caller. An empty requesterID gets
// a generated one.
func NewSession(requesterID string, transcriber Transcriber, synth Synthesizer, out Output, answerer Answerer, logger *slog.Logger) *Session {
	if requesterID == "" {
		requesterID = uuid.New().String()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		requesterID: requesterID,
		detector:    NewDetector(),
		transcriber: transcriber,
		synth:       synth,
		out:         out,
		answerer:    answerer,
		logger:      logger.With("requester", requesterID),
	}
}

// RequesterID returns the caller identifier used for escalations and
// follow-up routing.
func (s *Session) RequesterID() string { return s.requesterID }

// HandleFrame feeds one audio frame into the session. When the frame
// completes an utterance, the utterance is transcribed, answered and
// spoken back. Transcription and synthesis failures are logged and
// skipped; they never end the conversation.
func (s *Session) HandleFrame(ctx context.Context, frame AudioFrame) {
	utterance := s.detector.Feed(frame)
	if utterance == nil {
		return
	}

	if err := s.processUtterance(ctx, utterance); err != nil {
		s.logger.Error("utterance handling failed", "error", err)
	}
}

func (s *Session) processUtterance(ctx context.Context, frames []AudioFrame) error {
	alternatives, err := s.transcriber.Transcribe(ctx, frames)
	if err != nil {
		return fmt.Errorf("transcribing: %w", err)
	}

	question := bestTranscript(alternatives)
	if len(question) < 3 {
		s.logger.Debug("transcript too short, ignoring", "text", question)
		return nil
	}
	s.logger.Info("caller asked", "question", question)

	reply, err := s.answerer.Answer(ctx, s.requesterID, question)
	if err != nil {
		return fmt.Errorf("answering: %w", err)
	}

	return s.speak(ctx, reply.Text)
}

// Deliver speaks a supervisor follow-up to the caller. It satisfies the
// notification poller's deliverer contract; an error here leaves the
// notification queued for retry.
func (s *Session) Deliver(ctx context.Context, answer string) error {
	return s.speak(ctx, answer)
}

func (s *Session) speak(ctx context.Context, text string) error {
	frames, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("synthesizing: %w", err)
	}
	for _, frame := range frames {
		if err := s.out.Play(ctx, frame); err != nil {
			return fmt.Errorf("playing audio: %w", err)
		}
	}
	return nil
}

// bestTranscript picks the longest hypothesis, which in practice is the
// most complete rendering of the utterance.
func bestTranscript(alternatives []Alternative) string {
	best := ""
	for _, a := range alternatives {
		if len(a.Text) > 1 && len(a.Text) > len(best) {
			best = a.Text
		}
	}
	return best
}
