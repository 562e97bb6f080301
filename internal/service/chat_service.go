package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ragchat-io/ragchat/internal/config"
	"github.com/ragchat-io/ragchat/internal/domain"
)

// ChatService runs the fixed pipeline for one chat request:
// retrieval, prompt augmentation, streaming generation.
type ChatService struct {
	cfg        *config.Config
	retrieval  *RetrievalService
	generation *GenerationService
	logger     *zap.Logger
}

// NewChatService creates a new chat service.
func NewChatService(
	cfg *config.Config,
	retrieval *RetrievalService,
	generation *GenerationService,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		cfg:        cfg,
		retrieval:  retrieval,
		generation: generation,
		logger:     logger,
	}
}

// ChatResult carries everything the relay needs to answer the caller.
type ChatResult struct {
	Request    *domain.RequestContext
	RAGContext *domain.RAGContext
	Enhanced   *domain.EnhancedSystemPrompt
	Generation *GenerationResult
}

// NewRequestContext builds the immutable per-request context, merging
// client-supplied retrieval settings with configured defaults.
func (s *ChatService) NewRequestContext(req *domain.ChatRequest) *domain.RequestContext {
	settings := domain.RAGSettings{
		Index:          s.cfg.Search.Index,
		MaxResults:     s.cfg.RAG.MaxResults,
		ScoreThreshold: s.cfg.RAG.ScoreThreshold,
		RewriteQuery:   s.cfg.RAG.RewriteQuery,
	}
	if req.RAGSettings != nil {
		if req.RAGSettings.MaxResults > 0 {
			settings.MaxResults = req.RAGSettings.MaxResults
		}
		if req.RAGSettings.ScoreThreshold > 0 {
			settings.ScoreThreshold = req.RAGSettings.ScoreThreshold
		}
		settings.RewriteQuery = req.RAGSettings.RewriteQuery
	}

	return &domain.RequestContext{
		UserMessage:  LastUserMessage(req.Messages),
		SystemPrompt: req.SystemPrompt,
		RAGSettings:  settings,
		StartTime:    time.Now(),
		RequestID:    uuid.New().String(),
	}
}

// Chat runs retrieval, augmentation and generation for a validated request.
// Retrieval failures are absorbed into an empty context; only a double
// generation failure returns an error.
func (s *ChatService) Chat(ctx context.Context, rc *domain.RequestContext, req *domain.ChatRequest) (*ChatResult, error) {
	basePrompt := req.SystemPrompt
	if basePrompt == "" {
		basePrompt = s.cfg.RAG.SystemPrompt
	}

	ragCtx := s.retrieval.Retrieve(ctx, rc)
	s.logger.Info("retrieval complete",
		zap.String("request_id", rc.RequestID),
		zap.Int("documents", ragCtx.DocumentCount),
		zap.Float64("avg_score", ragCtx.AverageScore),
		zap.Bool("has_context", ragCtx.HasContext),
	)

	enhanced := AugmentPrompt(basePrompt, ragCtx)

	gen, err := s.generation.Generate(ctx, rc, req.Messages, enhanced, basePrompt)
	if err != nil {
		return nil, err
	}

	return &ChatResult{
		Request:    rc,
		RAGContext: ragCtx,
		Enhanced:   enhanced,
		Generation: gen,
	}, nil
}
