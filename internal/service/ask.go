package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/daniss/Raggy-sub000/internal/client"
	"github.com/daniss/Raggy-sub000/internal/model"
	"github.com/daniss/Raggy-sub000/internal/quota"
	"github.com/daniss/Raggy-sub000/internal/stream"
	"github.com/daniss/Raggy-sub000/internal/transcript"
	"github.com/daniss/Raggy-sub000/pkg/logger"
)

// LastQuestionNotice annotates the finalized answer of the session's final
// admitted exchange.
const LastQuestionNotice = "C'était votre dernière question pour cette session."

var ErrBusy = errors.New("an exchange is already in flight")

// AskService drives one conversation session end to end: quota admission,
// optimistic transcript insertion, the streamed exchange, and terminal
// reconciliation. At most one exchange is in flight at a time; submissions
// while busy are rejected, never queued.
type AskService struct {
	client     *client.Client
	guard      *quota.Guard
	transcript *transcript.Transcript

	// OnToken, when set, observes each incremental text fragment as it
	// arrives. Used by the CLI to echo the answer live.
	OnToken func(delta string)

	mu             sync.Mutex
	conversationID string
	lastQuestion   string
	lastCause      error
	busy           bool
	cancel         context.CancelFunc
}

func NewAskService(c *client.Client, g *quota.Guard, t *transcript.Transcript) *AskService {
	return &AskService{
		client:     c,
		guard:      g,
		transcript: t,
	}
}

func (s *AskService) Transcript() *transcript.Transcript {
	return s.transcript
}

func (s *AskService) Quota() *quota.Guard {
	return s.guard
}

// Submit admits, inserts the optimistic message pair, and starts the streamed
// exchange. The returned channel delivers the finalized assistant message once
// the exchange settles, then closes. Denied submissions (busy, quota spent,
// session expired) fail before any network call.
func (s *AskService) Submit(ctx context.Context, question string) (<-chan model.Message, error) {
	s.mu.Lock()

	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}

	last, err := s.guard.Admit()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	_, placeholderID, err := s.transcript.Submit(question)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("transcript rejected submission: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	s.busy = true
	s.cancel = cancel
	s.lastQuestion = question
	s.lastCause = nil
	conversationID := s.conversationID
	s.mu.Unlock()

	ex := stream.NewExchange(s.callbacks(placeholderID, last))

	done := make(chan model.Message, 1)
	go func() {
		defer close(done)
		defer cancel()

		s.client.Stream(streamCtx, client.AskRequest{
			Question:       question,
			ConversationID: conversationID,
		}, ex)

		s.mu.Lock()
		s.busy = false
		s.cancel = nil
		s.mu.Unlock()

		final, err := s.transcript.Message(placeholderID)
		if err != nil {
			logger.Errorf("service: finalized message missing: %v", err)
			return
		}
		done <- final
	}()

	return done, nil
}

// Cancel aborts the in-flight exchange, if any. The partial answer text stays
// in the transcript; no error is shown.
func (s *AskService) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Retry resubmits the last question as a brand-new exchange. Retry never
// resumes the failed stream and is always an explicit caller action.
func (s *AskService) Retry(ctx context.Context) (<-chan model.Message, error) {
	s.mu.Lock()
	question := s.lastQuestion
	s.mu.Unlock()

	if question == "" {
		return nil, errors.New("nothing to retry")
	}
	return s.Submit(ctx, question)
}

// LastCause returns the underlying cause of the most recent failed exchange,
// kept separate from the user-facing message for the retry affordance.
func (s *AskService) LastCause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCause
}

func (s *AskService) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *AskService) callbacks(placeholderID string, last bool) stream.Callbacks {
	return stream.Callbacks{
		OnStart: func(conversationID string) {
			s.mu.Lock()
			s.conversationID = conversationID
			s.mu.Unlock()
		},
		OnToken: func(delta, _ string) {
			if err := s.transcript.Append(placeholderID, delta); err != nil {
				logger.Warnf("service: dropping token append: %v", err)
				return
			}
			if s.OnToken != nil {
				s.OnToken(delta)
			}
		},
		OnComplete: func(res stream.Result) {
			notice := ""
			if last {
				notice = LastQuestionNotice
			}
			if err := s.transcript.Finalize(placeholderID, res.Content, res.Sources, res.LatencyMs, notice); err != nil {
				logger.Errorf("service: failed to finalize message: %v", err)
			}
		},
		OnError: func(cause error, userMessage string) {
			s.mu.Lock()
			s.lastCause = cause
			s.mu.Unlock()
			if err := s.transcript.Fail(placeholderID, userMessage); err != nil {
				logger.Errorf("service: failed to settle errored message: %v", err)
			}
		},
		OnStopped: func(_ string) {
			if err := s.transcript.Stop(placeholderID); err != nil {
				logger.Errorf("service: failed to settle stopped message: %v", err)
			}
		},
	}
}
