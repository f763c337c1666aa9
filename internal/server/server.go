// Package server exposes the mission engine and event bus over HTTP:
// mission submission and inspection as JSON endpoints, live progress as a
// Server-Sent Events stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/elliotttmiller/sentinel/internal/config"
	"github.com/elliotttmiller/sentinel/internal/events"
	"github.com/elliotttmiller/sentinel/internal/mission"
)

// Server wires the HTTP surface over the engine, store, and bus.
type Server struct {
	cfg    config.ServerConfig
	engine *mission.Engine
	store  mission.MissionStore
	bus    *events.Bus
	logger *slog.Logger
	router *gin.Engine

	// runCtx is the parent context for mission runs started by submit;
	// it outlives the submitting request.
	runCtx context.Context
}

// New creates a Server and attaches its routes.
func New(cfg config.ServerConfig, engine *mission.Engine, store mission.MissionStore, bus *events.Bus, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type"}
	router.Use(cors.New(corsCfg))

	s := &Server{
		cfg:    cfg,
		engine: engine,
		store:  store,
		bus:    bus,
		logger: logger.With("component", "server"),
		router: router,
		runCtx: context.Background(),
	}
	s.attachRoutes()
	return s
}

func (s *Server) attachRoutes() {
	s.router.GET("/healthz", s.health)

	api := s.router.Group("/api")
	{
		api.POST("/missions", s.submitMission)
		api.GET("/missions", s.listMissions)
		api.GET("/missions/:id", s.getMission)
		api.POST("/missions/:id/cancel", s.cancelMission)

		api.GET("/events/stream", s.streamEvents)
		api.GET("/events/connections", s.listConnections)
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully within
// the configured grace period. Mission runs started by submissions are also
// bound to ctx.
func (s *Server) Run(ctx context.Context) error {
	s.runCtx = ctx

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	grace := s.cfg.ShutdownGrace
	if grace <= 0 {
		grace = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	s.logger.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"subscribers": s.bus.SubscriberCount(),
		"active":      s.engine.ActiveCount(),
	})
}
