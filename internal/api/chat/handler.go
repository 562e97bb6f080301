package chat

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ragchat-io/ragchat/internal/domain"
	"github.com/ragchat-io/ragchat/internal/service"
)

// Handler serves the chat API.
type Handler struct {
	validator   *service.Validator
	chatService *service.ChatService
	logger      *zap.Logger
}

// NewHandler creates a new chat handler.
func NewHandler(validator *service.Validator, chatService *service.ChatService, logger *zap.Logger) *Handler {
	return &Handler{
		validator:   validator,
		chatService: chatService,
		logger:      logger,
	}
}

// RegisterRoutes registers chat routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/chat", h.Chat)
}

// Chat validates the request, runs the pipeline and relays the upstream
// stream to the caller.
func (h *Handler) Chat(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("Invalid request", "Request body must be valid JSON"))
		return
	}

	if errs := h.validator.Validate(&req); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, errorBody("Invalid request", strings.Join(errs, "; ")))
		return
	}

	rc := h.chatService.NewRequestContext(&req)
	h.logger.Info("chat request accepted",
		zap.String("request_id", rc.RequestID),
		zap.Int("messages", len(req.Messages)),
	)

	result, err := h.chatService.Chat(c.Request.Context(), rc, &req)
	if err != nil {
		h.logger.Error("chat pipeline failed",
			zap.String("request_id", rc.RequestID), zap.Error(err))
		c.Header(domain.HeaderRequestID, rc.RequestID)
		c.JSON(http.StatusServiceUnavailable, errorBody(
			"AI service is temporarily unavailable",
			"Both primary and fallback generation attempts failed"))
		return
	}

	h.relay(c, result)
}

// relay copies the upstream stream through unchanged, attaching the
// diagnostic headers. The body is never buffered or re-encoded.
func (h *Handler) relay(c *gin.Context, result *service.ChatResult) {
	upstream := result.Generation.Response
	defer upstream.Body.Close()

	for key, values := range upstream.Header {
		// The transport owns framing headers on the relayed stream.
		switch key {
		case "Content-Length", "Transfer-Encoding", "Connection":
			continue
		}
		for _, v := range values {
			c.Writer.Header().Add(key, v)
		}
	}
	if c.Writer.Header().Get("Content-Type") == "" {
		c.Header("Content-Type", "text/event-stream")
	}

	ragCtx := result.RAGContext
	c.Header(domain.HeaderProcessingTime, strconv.FormatInt(result.Request.Elapsed(), 10))
	c.Header(domain.HeaderRAGDocuments, strconv.Itoa(ragCtx.DocumentCount))
	c.Header(domain.HeaderRAGAverageScore, fmt.Sprintf("%.3f", ragCtx.AverageScore))
	c.Header("X-RAG-Used", strconv.FormatBool(ragCtx.HasContext))
	c.Header(domain.HeaderRequestID, result.Request.RequestID)
	if result.Generation.FallbackUsed {
		c.Header(domain.HeaderFallbackUsed, "true")
		c.Header(domain.HeaderOriginalError, result.Generation.OriginalError)
	}

	c.Status(upstream.StatusCode)

	buf := make([]byte, 4096)
	for {
		n, err := upstream.Body.Read(buf)
		if n > 0 {
			if _, werr := c.Writer.Write(buf[:n]); werr != nil {
				h.logger.Warn("client disconnected mid-stream",
					zap.String("request_id", result.Request.RequestID))
				return
			}
			c.Writer.Flush()
		}
		if err != nil {
			return
		}
	}
}

func errorBody(msg, details string) domain.ErrorResponse {
	return domain.ErrorResponse{
		Error:     msg,
		Details:   details,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
