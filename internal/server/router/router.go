package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/tracklog/internal/config"
	"github.com/mamadbah2/tracklog/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(handler *handlers.TrackingHandler, auth config.AuthConfig, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))
	r.SetHTMLTemplate(handlers.Templates())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// the event stream must not be buffered by the compressor
	app := r.Group("/", gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/events"})))
	if auth.Required {
		app.Use(sessionGate(auth))
	}

	app.GET("/", handler.Page)
	app.GET("/api/counts", handler.List)
	app.GET("/export", handler.Export)
	app.GET("/events", handler.Events)

	counts := app.Group("/counts/:id")
	counts.POST("/edit", handler.Edit)
	counts.POST("/save", handler.Save)
	counts.POST("/cancel", handler.Cancel)
	counts.POST("/delete", handler.Delete)

	if logger != nil {
		logger.Info("router initialized", zap.Bool("auth_required", auth.Required))
	}

	return r
}

// sessionGate sends visitors without the session flag cookie to the login page.
func sessionGate(auth config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if value, err := c.Cookie(auth.CookieName); err == nil && value == "true" {
			c.Next()
			return
		}
		c.Redirect(http.StatusFound, auth.LoginURL)
		c.Abort()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
