package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragchat-io/ragchat/internal/domain"
)

func newFastSession(srvURL, systemPrompt string, hooks Hooks) *Session {
	s := NewSession(New(srvURL), systemPrompt, hooks)
	s.noticeDelay = time.Millisecond
	s.retryUnit = 2 * time.Millisecond
	return s
}

func TestSessionSuccessfulExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(domain.HeaderRAGDocuments, "1")
		w.Header().Set(domain.HeaderRAGAverageScore, "0.900")
		w.Header().Set("X-RAG-Used", "true")
		w.Write([]byte("data: {\"response\":\"Hello\"}\n\ndata: {\"response\":\"!\"}\n\n"))
	}))
	defer srv.Close()

	var status string
	var text string
	session := newFastSession(srv.URL, "sys", Hooks{
		OnDelta:  func(d string) { text += d },
		OnStatus: func(s string) { status = s },
	})

	accepted := session.Send(context.Background(), "hi")
	require.True(t, accepted)

	assert.Equal(t, "Hello!", text)
	assert.Equal(t, "enhanced with 1 documents, avg relevance 0.90", status)

	history := session.History()
	require.Len(t, history, 2)
	assert.Equal(t, domain.ChatMessage{Role: domain.RoleUser, Content: "hi"}, history[0])
	assert.Equal(t, domain.ChatMessage{Role: domain.RoleAssistant, Content: "Hello!"}, history[1])
}

func TestSessionSingleExchangeInFlight(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte("data: {\"response\":\"done\"}\n\n"))
	}))
	defer srv.Close()

	session := newFastSession(srv.URL, "", Hooks{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.True(t, session.Send(context.Background(), "first"))
	}()

	require.Eventually(t, func() bool {
		session.mu.Lock()
		defer session.mu.Unlock()
		return session.inFlight
	}, time.Second, time.Millisecond)

	// Second submission while the first is in flight is a no-op.
	assert.False(t, session.Send(context.Background(), "second"))

	close(release)
	wg.Wait()

	for _, msg := range session.History() {
		assert.NotEqual(t, "second", msg.Content)
	}
}

func TestSessionRetriesEmptyStreamWithIdenticalBody(t *testing.T) {
	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(raw))
		attempt := len(bodies)
		mu.Unlock()

		if attempt == 1 {
			// 200 with zero text fragments: not a valid turn.
			w.Write([]byte("data: [DONE]\n\n"))
			return
		}
		w.Write([]byte("data: {\"response\":\"second try\"}\n\n"))
	}))
	defer srv.Close()

	var errMsgs, notices []string
	session := newFastSession(srv.URL, "sys", Hooks{
		OnError:  func(m string) { errMsgs = append(errMsgs, m) },
		OnNotice: func(m string) { notices = append(notices, m) },
	})
	session.SetRAGSettings(&domain.RAGSettings{MaxResults: 3})

	require.True(t, session.Send(context.Background(), "hello"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 2)
	// Identical outbound body on resubmission.
	assert.JSONEq(t, bodies[0], bodies[1])

	var req domain.ChatRequest
	require.NoError(t, json.Unmarshal([]byte(bodies[0]), &req))
	assert.Equal(t, "sys", req.SystemPrompt)
	require.NotNil(t, req.RAGSettings)
	assert.Equal(t, 3, req.RAGSettings.MaxResults)

	assert.Len(t, errMsgs, 1)
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0], "attempt 1 of 3")
}

func TestSessionDoesNotRetryNonRetryable(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Invalid request","timestamp":"2026-01-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	var errMsgs []string
	session := newFastSession(srv.URL, "", Hooks{
		OnError: func(m string) { errMsgs = append(errMsgs, m) },
	})

	require.True(t, session.Send(context.Background(), "hello"))
	assert.Equal(t, 1, calls)
	assert.Len(t, errMsgs, 1)
}

func TestSessionRetryBudgetResetsAfterExhaustion(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte("data: [DONE]\n\n")) // always empty
	}))
	defer srv.Close()

	session := newFastSession(srv.URL, "", Hooks{})

	require.True(t, session.Send(context.Background(), "hello"))
	// Initial attempt plus three retries, then give up.
	assert.Equal(t, 4, calls)

	// No permanent lockout: the next message gets a fresh budget.
	session.mu.Lock()
	assert.Equal(t, 0, session.attempts)
	assert.False(t, session.inFlight)
	session.mu.Unlock()

	require.True(t, session.Send(context.Background(), "again"))
	assert.Equal(t, 8, calls)
}

func TestSessionRetryCancelledByContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer srv.Close()

	session := newFastSession(srv.URL, "", Hooks{})
	session.noticeDelay = 50 * time.Millisecond
	session.retryUnit = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		session.Send(ctx, "hello")
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pending retry timer was not cancelled with the session context")
	}
}
