package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ragchat-io/ragchat/internal/config"
	"github.com/ragchat-io/ragchat/internal/domain"
)

// GenerationService issues the streaming call to the hosted LLM endpoint.
//
// One request moves through BUILD_MESSAGES, CALL_PRIMARY and ends in either
// STREAM_OK or PRIMARY_FAILED. A primary failure triggers exactly one
// fallback call with the un-augmented base prompt; there is no second
// fallback level and no retry loop.
type GenerationService struct {
	cfg        config.LLMConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGenerationService creates a generation service for the configured
// LLM endpoint.
func NewGenerationService(cfg config.LLMConfig, logger *zap.Logger) *GenerationService {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	return &GenerationService{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // generation can be slow
		},
		logger: logger,
	}
}

// GenerationResult wraps the upstream streaming response. The caller owns
// Response.Body and must close it.
type GenerationResult struct {
	Response      *http.Response
	FallbackUsed  bool
	OriginalError string
}

type generateRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature float64              `json:"temperature"`
	Stream      bool                 `json:"stream"`
}

// BuildMessages prepends the synthesized system message to the history,
// with any client-supplied system messages removed.
func BuildMessages(systemPrompt string, history []domain.ChatMessage) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, len(history)+1)
	messages = append(messages, domain.ChatMessage{
		Role:    domain.RoleSystem,
		Content: systemPrompt,
	})
	for _, msg := range history {
		if msg.Role == domain.RoleSystem {
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}

// Generate calls the LLM with the augmented prompt and, if that fails for
// any reason, once more with the original base prompt. Both failing is
// terminal for the request.
func (s *GenerationService) Generate(
	ctx context.Context,
	rc *domain.RequestContext,
	history []domain.ChatMessage,
	enhanced *domain.EnhancedSystemPrompt,
	basePrompt string,
) (*GenerationResult, error) {
	resp, primaryErr := s.callUpstream(ctx, BuildMessages(enhanced.Prompt, history))
	if primaryErr == nil {
		return &GenerationResult{Response: resp}, nil
	}

	s.logger.Warn("primary generation failed, retrying without RAG context",
		zap.String("request_id", rc.RequestID), zap.Error(primaryErr))

	resp, fallbackErr := s.callUpstream(ctx, BuildMessages(basePrompt, history))
	if fallbackErr != nil {
		s.logger.Error("fallback generation failed",
			zap.String("request_id", rc.RequestID), zap.Error(fallbackErr))
		return nil, domain.NewProcessingError(domain.StageLLM,
			fmt.Sprintf("primary: %v; fallback: %v", primaryErr, fallbackErr),
			false, rc, domain.ErrGenerationFailed)
	}

	return &GenerationResult{
		Response:      resp,
		FallbackUsed:  true,
		OriginalError: primaryErr.Error(),
	}, nil
}

func (s *GenerationService) callUpstream(ctx context.Context, messages []domain.ChatMessage) (*http.Response, error) {
	body, err := json.Marshal(generateRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if s.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling LLM: %w", err)
	}

	// Failed upstream bodies are not read.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("LLM returned HTTP %d", resp.StatusCode)
	}

	return resp, nil
}
