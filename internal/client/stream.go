package client

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ragchat-io/ragchat/internal/domain"
)

const dataPrefix = "data: "

type streamPayload struct {
	Response string `json:"response"`
}

// ConsumeStream reads the response body incrementally and extracts the
// text fragments as they arrive. Lines are either Server-Sent-Event shaped
// ("data: {json}") or bare JSON; unparseable non-control lines are taken
// as literal text, a best-effort fallback for malformed chunks.
//
// A stream that ends without a single fragment is not a valid turn, even
// on HTTP 200: ConsumeStream returns domain.ErrNoResponseContent.
func ConsumeStream(r io.Reader, onDelta func(string)) (string, error) {
	br := bufio.NewReader(r)
	var acc strings.Builder

	for {
		line, err := br.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		consumeLine(line, &acc, onDelta)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if acc.Len() == 0 {
				return "", fmt.Errorf("reading stream: %w", err)
			}
			// Partial content already rendered; keep it.
			break
		}
	}

	if acc.Len() == 0 {
		return "", domain.ErrNoResponseContent
	}
	return acc.String(), nil
}

func consumeLine(line string, acc *strings.Builder, onDelta func(string)) {
	if line == "" || strings.HasPrefix(line, ":") {
		return
	}

	raw := line
	if strings.HasPrefix(line, dataPrefix) {
		raw = line[len(dataPrefix):]
	}

	var payload streamPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		// Control lines (data:/event:/id:/retry:) never fall through as
		// literal text; anything else is taken verbatim.
		if isControlLine(line) {
			return
		}
		appendFragment(line, acc, onDelta)
		return
	}

	if payload.Response != "" {
		appendFragment(payload.Response, acc, onDelta)
	}
}

func isControlLine(line string) bool {
	for _, prefix := range []string{"data:", "event:", "id:", "retry:"} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func appendFragment(text string, acc *strings.Builder, onDelta func(string)) {
	acc.WriteString(text)
	if onDelta != nil {
		onDelta(text)
	}
}

// ParseMetadata derives the exchange metadata from the diagnostic response
// headers.
func ParseMetadata(h http.Header) domain.ChatResponseMetadata {
	meta := domain.ChatResponseMetadata{
		RequestID: h.Get(domain.HeaderRequestID),
	}
	meta.RAGUsed, _ = strconv.ParseBool(h.Get("X-RAG-Used"))
	meta.DocumentsFound, _ = strconv.Atoi(h.Get(domain.HeaderRAGDocuments))
	meta.AverageScore, _ = strconv.ParseFloat(h.Get(domain.HeaderRAGAverageScore), 64)
	meta.ProcessingTime, _ = strconv.ParseInt(h.Get(domain.HeaderProcessingTime), 10, 64)
	meta.FallbackUsed = h.Get(domain.HeaderFallbackUsed) == "true"
	return meta
}

// StatusLine renders the auxiliary status indicator for a completed turn.
func StatusLine(meta domain.ChatResponseMetadata) string {
	if meta.RAGUsed && meta.DocumentsFound > 0 {
		return fmt.Sprintf("enhanced with %d documents, avg relevance %.2f",
			meta.DocumentsFound, meta.AverageScore)
	}
	return "using general knowledge, no relevant documents found"
}
