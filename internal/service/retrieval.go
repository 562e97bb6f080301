package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ragchat-io/ragchat/internal/config"
	"github.com/ragchat-io/ragchat/internal/domain"
)

const sourceExcerptLimit = 200

// RetrievalService issues the search call against the hosted retrieval
// index and normalizes the result into a RAGContext.
type RetrievalService struct {
	cfg        config.SearchConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRetrievalService creates a retrieval service for the configured
// search endpoint.
func NewRetrievalService(cfg config.SearchConfig, logger *zap.Logger) *RetrievalService {
	return &RetrievalService{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type searchRequest struct {
	Query          string         `json:"query"`
	MaxNumResults  int            `json:"max_num_results"`
	RankingOptions rankingOptions `json:"ranking_options"`
	RewriteQuery   bool           `json:"rewrite_query"`
}

type rankingOptions struct {
	ScoreThreshold float64 `json:"score_threshold"`
}

type searchResponse struct {
	Result struct {
		Data []searchDocument `json:"data"`
	} `json:"result"`
}

// searchDocument mirrors one raw document in the search response. Pointer
// fields let shape validation distinguish missing from zero values.
type searchDocument struct {
	Filename *string `json:"filename"`
	Score    *float64 `json:"score"`
	Content  []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (d *searchDocument) shapeValid() bool {
	return d.Filename != nil && d.Score != nil && d.Content != nil
}

func (d *searchDocument) joinedText() string {
	parts := make([]string, 0, len(d.Content))
	for _, c := range d.Content {
		if c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Retrieve performs one search call and never fails: any transport, status,
// or decode problem degrades to an empty context so the chat request can
// proceed on general knowledge alone.
func (s *RetrievalService) Retrieve(ctx context.Context, rc *domain.RequestContext) *domain.RAGContext {
	body, err := json.Marshal(searchRequest{
		Query:         rc.UserMessage,
		MaxNumResults: rc.RAGSettings.MaxResults,
		RankingOptions: rankingOptions{
			ScoreThreshold: rc.RAGSettings.ScoreThreshold,
		},
		RewriteQuery: rc.RAGSettings.RewriteQuery,
	})
	if err != nil {
		s.logger.Warn("failed to encode search request",
			zap.String("request_id", rc.RequestID), zap.Error(err))
		return domain.EmptyRAGContext()
	}

	url := fmt.Sprintf("%s/autorag/rags/%s/ai-search", s.cfg.BaseURL, rc.RAGSettings.Index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("failed to build search request",
			zap.String("request_id", rc.RequestID), zap.Error(err))
		return domain.EmptyRAGContext()
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("search call failed",
			zap.String("request_id", rc.RequestID), zap.Error(err))
		return domain.EmptyRAGContext()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("search returned non-OK status",
			zap.String("request_id", rc.RequestID), zap.Int("status", resp.StatusCode))
		return domain.EmptyRAGContext()
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		s.logger.Warn("failed to decode search response",
			zap.String("request_id", rc.RequestID), zap.Error(err))
		return domain.EmptyRAGContext()
	}

	return s.buildContext(rc, sr.Result.Data)
}

// buildContext normalizes raw documents into a RAGContext.
//
// DocumentCount and AverageScore are computed over the raw response array;
// Sources and ContextText only include shape-valid documents with non-empty
// text. Documents failing shape validation are skipped, not fatal.
func (s *RetrievalService) buildContext(rc *domain.RequestContext, docs []searchDocument) *domain.RAGContext {
	out := domain.EmptyRAGContext()
	out.DocumentCount = len(docs)
	if len(docs) == 0 {
		return out
	}

	var blocks []string
	var scoreSum float64
	for i := range docs {
		doc := &docs[i]
		if !doc.shapeValid() {
			s.logger.Warn("skipping malformed search document",
				zap.String("request_id", rc.RequestID), zap.Int("index", i))
			continue
		}
		scoreSum += *doc.Score

		text := doc.joinedText()
		if text == "" {
			continue
		}

		blocks = append(blocks, fmt.Sprintf("[Document %d: %s (Relevance: %.2f)]\n%s",
			len(blocks)+1, *doc.Filename, *doc.Score, text))

		excerpt := text
		if len(excerpt) > sourceExcerptLimit {
			excerpt = excerpt[:sourceExcerptLimit] + "..."
		}
		out.Sources = append(out.Sources, domain.Source{
			Filename:     *doc.Filename,
			Score:        *doc.Score,
			RelevantText: excerpt,
		})
	}

	out.AverageScore = scoreSum / float64(len(docs))
	out.ContextText = strings.Join(blocks, "\n\n")
	out.HasContext = out.ContextText != ""
	return out
}
