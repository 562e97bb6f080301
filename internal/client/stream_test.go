package client

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragchat-io/ragchat/internal/domain"
)

func TestConsumeStreamAccumulatesFragments(t *testing.T) {
	stream := "data: {\"response\":\"Hi\"}\ndata: {\"response\":\" there\"}\n\n"

	var deltas []string
	text, err := ConsumeStream(strings.NewReader(stream), func(d string) {
		deltas = append(deltas, d)
	})

	require.NoError(t, err)
	assert.Equal(t, "Hi there", text)
	assert.Equal(t, []string{"Hi", " there"}, deltas)
}

func TestConsumeStreamBareJSONLines(t *testing.T) {
	stream := "{\"response\":\"a\"}\n{\"response\":\"b\"}\n"

	text, err := ConsumeStream(strings.NewReader(stream), nil)
	require.NoError(t, err)
	assert.Equal(t, "ab", text)
}

func TestConsumeStreamSkipsCommentsAndControlLines(t *testing.T) {
	stream := strings.Join([]string{
		": keep-alive",
		"data: {\"response\":\"ok\"}",
		"data: [DONE]",
		"event: message",
		"id: 42",
		"retry: 1000",
		"",
	}, "\n")

	text, err := ConsumeStream(strings.NewReader(stream), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestConsumeStreamLiteralFallback(t *testing.T) {
	// Malformed non-control lines are taken as literal text.
	stream := "plain text chunk\ndata: {\"response\":\"!\"}\n"

	text, err := ConsumeStream(strings.NewReader(stream), nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text chunk!", text)
}

func TestConsumeStreamIgnoresObjectsWithoutResponse(t *testing.T) {
	stream := "data: {\"usage\":{\"total_tokens\":12}}\ndata: {\"response\":\"x\"}\n"

	text, err := ConsumeStream(strings.NewReader(stream), nil)
	require.NoError(t, err)
	assert.Equal(t, "x", text)
}

func TestConsumeStreamEmptyIsAnError(t *testing.T) {
	cases := []struct {
		name   string
		stream string
	}{
		{"empty_body", ""},
		{"only_blank_lines", "\n\n\n"},
		{"only_control_lines", "data: [DONE]\nevent: done\n"},
		{"no_response_fields", "data: {\"usage\":{}}\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text, err := ConsumeStream(strings.NewReader(tc.stream), nil)
			assert.Empty(t, text)
			assert.True(t, errors.Is(err, domain.ErrNoResponseContent))
		})
	}
}

func TestConsumeStreamFinalLineWithoutNewline(t *testing.T) {
	text, err := ConsumeStream(strings.NewReader(`data: {"response":"tail"}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "tail", text)
}

func TestParseMetadata(t *testing.T) {
	h := http.Header{}
	h.Set(domain.HeaderRAGDocuments, "3")
	h.Set(domain.HeaderRAGAverageScore, "0.725")
	h.Set("X-RAG-Used", "true")
	h.Set(domain.HeaderProcessingTime, "154")
	h.Set(domain.HeaderRequestID, "req-1")
	h.Set(domain.HeaderFallbackUsed, "true")

	meta := ParseMetadata(h)
	assert.Equal(t, 3, meta.DocumentsFound)
	assert.InDelta(t, 0.725, meta.AverageScore, 1e-9)
	assert.True(t, meta.RAGUsed)
	assert.Equal(t, int64(154), meta.ProcessingTime)
	assert.Equal(t, "req-1", meta.RequestID)
	assert.True(t, meta.FallbackUsed)
}

func TestStatusLine(t *testing.T) {
	withDocs := domain.ChatResponseMetadata{RAGUsed: true, DocumentsFound: 2, AverageScore: 0.6}
	assert.Equal(t, "enhanced with 2 documents, avg relevance 0.60", StatusLine(withDocs))

	assert.Equal(t, "using general knowledge, no relevant documents found",
		StatusLine(domain.ChatResponseMetadata{}))
	// RAG header truthy but zero documents still counts as general knowledge.
	assert.Equal(t, "using general knowledge, no relevant documents found",
		StatusLine(domain.ChatResponseMetadata{RAGUsed: true}))
}
