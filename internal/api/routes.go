package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bataryakit/notifier/internal/observability"
)

// RouterConfig carries the cross-cutting pieces of the HTTP surface.
type RouterConfig struct {
	APIKey  string
	Metrics *observability.Metrics
	Logger  *zap.Logger
}

func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(observability.OrNop(cfg.Logger)), cfg.Metrics.HTTPMiddleware())
	RegisterRoutes(r, h, cfg)
	return r
}

func RegisterRoutes(r *gin.Engine, h *Handler, cfg RouterConfig) {
	r.GET("/healthz", h.Health)

	authed := r.Group("/", APIKeyAuth(cfg.APIKey))
	{
		authed.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))

		authed.POST("/notifications", h.Notify)
		authed.POST("/orders/:id/notify", h.NotifyOrder)
		authed.POST("/orders/:id/invoice", h.SendInvoice)

		authed.GET("/emails/templates", h.ListEmailTemplates)
		authed.POST("/emails/template", h.SendEmailWithTemplate)

		authed.POST("/uploads/:category", h.Upload)
		authed.DELETE("/uploads", h.DeleteUpload)
		authed.GET("/uploads/size", h.UploadSize)
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
