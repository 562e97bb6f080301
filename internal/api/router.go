package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ragchat-io/ragchat/internal/api/chat"
	"github.com/ragchat-io/ragchat/internal/api/middleware"
	"github.com/ragchat-io/ragchat/internal/config"
	"github.com/ragchat-io/ragchat/internal/domain"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Config  *config.Config
	Limiter middleware.Limiter
}

// SetupRouter sets up the Gin router.
func SetupRouter(chatHandler *chat.Handler, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Static files (chat UI)
	SetupStaticRoutes(r)

	// Chat API
	apiGroup := r.Group("/api")
	if cfg.Limiter != nil {
		apiGroup.Use(middleware.RateLimit(cfg.Limiter, logger))
	}
	apiGroup.Use(middleware.Auth(cfg.Config.Admin.APIKey))
	chatHandler.RegisterRoutes(apiGroup)

	// Non-secret runtime defaults for clients.
	apiGroup.GET("/config", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"model":          cfg.Config.LLM.Model,
			"maxResults":     cfg.Config.RAG.MaxResults,
			"scoreThreshold": cfg.Config.RAG.ScoreThreshold,
			"rewriteQuery":   cfg.Config.RAG.RewriteQuery,
		})
	})

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, domain.ErrorResponse{
			Error:     "Method not allowed",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, domain.ErrorResponse{
				Error:     "Not found",
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
		ServeIndex(c)
	})

	return r
}
