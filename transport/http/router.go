package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DefaultRoutePath is where the exchange is mounted when none is configured
const DefaultRoutePath = "/refresh-access-token"

// RouterConfig selects the mount points of the router
type RouterConfig struct {
	RoutePath string
	Metrics   http.Handler // Mounted at /metrics when set
}

// SetupRouter sets up the Gin router
func SetupRouter(service Refresher, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORSMiddleware())

	handlers := NewRefreshHandlers(service, logger)

	path := cfg.RoutePath
	if path == "" {
		path = DefaultRoutePath
	}
	router.GET(path, handlers.Refresh)
	router.OPTIONS(path, handlers.Preflight)

	router.GET("/healthz", handlers.Health)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	return router
}
