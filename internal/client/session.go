package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ragchat-io/ragchat/internal/domain"
)

// Hooks are the session's UI callbacks. Nil hooks are skipped.
type Hooks struct {
	OnDelta  func(string) // incremental assistant text
	OnStatus func(string) // per-turn retrieval status line
	OnError  func(string) // conversational failure message
	OnNotice func(string) // retry notices
}

// Session owns the state of one conversation: append-only history, the
// single-exchange-in-flight gate, the retry budget and the message id
// counter. State that the source kept in process-wide globals lives here
// so concurrent sessions cannot collide.
type Session struct {
	client       *Client
	hooks        Hooks
	systemPrompt string
	ragSettings  *domain.RAGSettings

	// Retry pacing; fixed by contract, overridable in tests.
	noticeDelay time.Duration
	retryUnit   time.Duration

	mu        sync.Mutex
	history   []domain.ChatMessage
	inFlight  bool
	attempts  int
}

// NewSession creates a session against the given client.
func NewSession(c *Client, systemPrompt string, hooks Hooks) *Session {
	return &Session{
		client:       c,
		hooks:        hooks,
		systemPrompt: systemPrompt,
		noticeDelay:  time.Second,
		retryUnit:    2 * time.Second,
	}
}

// SetRAGSettings overrides the server's retrieval defaults for this session.
func (s *Session) SetRAGSettings(settings *domain.RAGSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ragSettings = settings
}

// History returns a copy of the conversation so far.
func (s *Session) History() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// Send submits one user message and blocks until the exchange completes,
// including any automatic retries. A second submission while one is in
// flight is a no-op; Send reports whether the message was accepted.
//
// Retry waits select on ctx, so tearing down the session context cancels
// any pending retry instead of leaking a timer.
func (s *Session) Send(ctx context.Context, userText string) bool {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return false
	}
	s.inFlight = true
	s.history = append(s.history, domain.ChatMessage{Role: domain.RoleUser, Content: userText})
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	s.exchange(ctx)
	return true
}

// exchange runs the send pipeline with the bounded retry policy: up to
// three automatic resubmissions of the identical input, a "retrying"
// notice after one second and the resubmission 2000*attempt milliseconds
// after the failure. The attempt budget resets on success and once the
// bound is exceeded, so the next message starts fresh.
func (s *Session) exchange(ctx context.Context) {
	for {
		res, err := s.client.Send(ctx, s.buildRequest(), s.hooks.OnDelta)
		if err == nil {
			s.mu.Lock()
			s.attempts = 0
			s.history = append(s.history, domain.ChatMessage{Role: domain.RoleAssistant, Content: res.Text})
			s.mu.Unlock()
			s.notifyStatus(StatusLine(res.Metadata))
			return
		}

		kind := Classify(err)
		s.notifyError(kind.Message())

		s.mu.Lock()
		retry := kind.Retryable() && s.attempts < maxRetryAttempts
		if retry {
			s.attempts++
		} else {
			s.attempts = 0
		}
		attempt := s.attempts
		s.mu.Unlock()

		if !retry {
			return
		}

		if !sleepCtx(ctx, s.noticeDelay) {
			return
		}
		s.notifyNotice(fmt.Sprintf("Retrying (attempt %d of %d)...", attempt, maxRetryAttempts))
		if !sleepCtx(ctx, time.Duration(attempt)*s.retryUnit-s.noticeDelay) {
			return
		}
	}
}

// buildRequest reproduces an identical outbound body for resubmissions;
// only the server-assigned request id and timestamps differ between
// attempts.
func (s *Session) buildRequest() *domain.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages := make([]domain.ChatMessage, len(s.history))
	copy(messages, s.history)
	return &domain.ChatRequest{
		Messages:     messages,
		SystemPrompt: s.systemPrompt,
		RAGSettings:  s.ragSettings,
	}
}

func (s *Session) notifyStatus(msg string) {
	if s.hooks.OnStatus != nil {
		s.hooks.OnStatus(msg)
	}
}

func (s *Session) notifyError(msg string) {
	if s.hooks.OnError != nil {
		s.hooks.OnError(msg)
	}
}

func (s *Session) notifyNotice(msg string) {
	if s.hooks.OnNotice != nil {
		s.hooks.OnNotice(msg)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
