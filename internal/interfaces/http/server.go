package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mollysec/molly/internal/application/usecase"
	"github.com/mollysec/molly/internal/domain/repository"
	"github.com/mollysec/molly/internal/domain/service"
	"github.com/mollysec/molly/internal/interfaces/http/handlers"
)

// Server is the HTTP API listener.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// Config configures the listener.
type Config struct {
	Host string
	Port int
	Mode string // local, production
}

// NewServer builds the router and wires every endpoint.
func NewServer(
	cfg Config,
	orch *usecase.Orchestrator,
	scans repository.ScanRepository,
	activity *service.ActivityTracker,
	sessions *AuthSessions,
	username, password string,
	logger *zap.Logger,
) *Server {
	if cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logger))

	authHandler := handlers.NewAuthHandler(sessions, username, password, logger)
	chatHandler := handlers.NewChatHandler(orch, sessions, activity, logger)
	scanHandler := handlers.NewScanStatusHandler(scans, sessions, activity, logger)
	reportHandler := handlers.NewReportHandler(scans, sessions, logger)

	setupRoutes(router, authHandler, chatHandler, scanHandler, reportHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: router,
		},
		logger: logger,
	}
}

// Start begins serving without blocking the caller.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", zap.String("address", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

func setupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	chatHandler *handlers.ChatHandler,
	scanHandler *handlers.ScanStatusHandler,
	reportHandler *handlers.ReportHandler,
) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "Backend OK",
			"service": "Molly API",
		})
	})

	api := router.Group("/api")
	{
		api.POST("/login", authHandler.Login)
		api.POST("/logout", authHandler.Logout)
		api.POST("/chat", chatHandler.Chat)
		api.GET("/check_scan_status/:id", scanHandler.CheckScanStatus)
		api.GET("/session_status", scanHandler.SessionStatus)
		api.GET("/scans", scanHandler.ListScans)
	}

	router.GET("/view_report/:id", reportHandler.ViewReport)
}

// ginLogger logs one line per request through zap.
func ginLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
