package domain

import "time"

// Message roles accepted on the chat endpoint.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single turn in the conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RAGSettings controls the retrieval call for one request.
type RAGSettings struct {
	Index          string  `json:"index,omitempty"`
	MaxResults     int     `json:"maxResults,omitempty"`
	ScoreThreshold float64 `json:"scoreThreshold,omitempty"`
	RewriteQuery   bool    `json:"rewriteQuery,omitempty"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages     []ChatMessage `json:"messages"`
	SystemPrompt string        `json:"systemPrompt,omitempty"`
	RAGSettings  *RAGSettings  `json:"ragSettings,omitempty"`
}

// Source is one retrieved document citation.
type Source struct {
	Filename     string  `json:"filename"`
	Score        float64 `json:"score"`
	RelevantText string  `json:"relevant_text"`
}

// RAGContext is the normalized result of one retrieval call.
// Built fresh per request, never persisted.
//
// DocumentCount reflects the raw number of documents the search endpoint
// returned; Sources and ContextText only include documents that passed shape
// validation and carried non-empty text. The counts can therefore disagree.
type RAGContext struct {
	ContextText   string   `json:"context_text"`
	DocumentCount int      `json:"document_count"`
	AverageScore  float64  `json:"average_score"`
	Sources       []Source `json:"sources"`
	HasContext    bool     `json:"has_context"`
}

// EmptyRAGContext is the degraded result used whenever retrieval fails.
func EmptyRAGContext() *RAGContext {
	return &RAGContext{Sources: []Source{}}
}

// EnhancedSystemPrompt is the augmented system instruction derived from a
// base prompt and a RAGContext.
type EnhancedSystemPrompt struct {
	Prompt         string `json:"prompt"`
	HasRAGContext  bool   `json:"has_rag_context"`
	ContextSummary string `json:"context_summary"`
	TokenEstimate  int    `json:"token_estimate"`
}

// RequestContext carries per-request attribution for logging and error
// reporting. Immutable after creation.
type RequestContext struct {
	UserMessage  string
	SystemPrompt string
	RAGSettings  RAGSettings
	StartTime    time.Time
	RequestID    string
}

// Elapsed returns the time spent on the request so far, in milliseconds.
func (rc *RequestContext) Elapsed() int64 {
	return time.Since(rc.StartTime).Milliseconds()
}

// ChatResponseMetadata is what a client derives from the diagnostic
// response headers after a completed exchange.
type ChatResponseMetadata struct {
	RAGUsed        bool    `json:"rag_used"`
	DocumentsFound int     `json:"documents_found"`
	AverageScore   float64 `json:"average_score"`
	ProcessingTime int64   `json:"processing_time"`
	RequestID      string  `json:"request_id"`
	FallbackUsed   bool    `json:"fallback_used"`
}

// ErrorResponse is the JSON body of every non-streaming error reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Diagnostic header names attached to chat responses.
const (
	HeaderProcessingTime  = "X-Processing-Time"
	HeaderRAGDocuments    = "X-RAG-Documents"
	HeaderRAGAverageScore = "X-RAG-Average-Score"
	HeaderRequestID       = "X-Request-ID"
	HeaderFallbackUsed    = "X-Fallback-Used"
	HeaderOriginalError   = "X-Original-Error"
)
