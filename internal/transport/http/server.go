// Package http provides the HTTP server for the entity commit API.
package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"nestnotify/internal/config"
	"nestnotify/internal/services"
	communityHandler "nestnotify/internal/transport/http/handlers/community"
)

// Server wraps the gin engine and its HTTP listener.
type Server struct {
	httpServer *http.Server
	logger     *logrus.Logger
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(cfg *config.Config, service *services.CommunityService, logger *logrus.Logger) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := communityHandler.NewHandler(service, logger)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/chapters", handler.CreateChapter)
		v1.PUT("/chapters/:id", handler.UpdateChapter)
		v1.POST("/events", handler.CreateEvent)
		v1.PUT("/events/:id", handler.UpdateEvent)
		v1.POST("/snapshots", handler.CreateSnapshot)
		v1.POST("/snapshots/:id/publish", handler.PublishSnapshot)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		logger: logger,
	}
}

// Start begins serving. It blocks until the listener fails or is shut
// down.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
