// Package server exposes the parse-test, ingestion and log browsing HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/ccollicutt/cs2log/pkg/store"
	"github.com/ccollicutt/cs2log/pkg/webhook"
)

const (
	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	ShutdownTimeout = 5 * time.Second

	// EventTypesTTL is how long event type counts are cached.
	EventTypesTTL = 30 * time.Second
)

// Options configures request limits and authorization.
type Options struct {
	// Mode is the gin mode: release, debug or test.
	Mode string

	// MaxLines caps the non-blank lines accepted per request.
	MaxLines int

	// MaxBodyBytes caps request body size.
	MaxBodyBytes int64

	// APITokens, when non-empty, are the bearer tokens accepted on /api routes.
	APITokens []string
}

// Server holds the gin engine and its dependencies.
type Server struct {
	engine   *gin.Engine
	store    *store.Store
	notifier *webhook.Notifier
	logger   *zap.Logger
	opts     Options

	// event type counts keyed by server id; flushed on every ingest
	eventTypes *cache.Cache

	now func() time.Time
}

// New creates a Server. notifier may be nil when no webhooks are configured.
func New(st *store.Store, notifier *webhook.Notifier, logger *zap.Logger, opts Options) *Server {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))

	s := &Server{
		engine:   engine,
		store:    st,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
		// Keys are bounded by the server count, so no janitor is started.
		eventTypes: cache.New(EventTypesTTL, 0),
		now:        time.Now,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.handleHealth)

	s.engine.POST("/logs/:server_id", bodyLimit(s.opts.MaxBodyBytes), s.serverAuth(), s.handleIngest)

	api := s.engine.Group("/api")
	api.Use(tokenAuth(s.opts.APITokens))
	{
		api.POST("/parse-test", bodyLimit(s.opts.MaxBodyBytes), s.handleParseTest)
		api.GET("/logs", s.handleListLogs)
		api.GET("/event-types", s.handleEventTypes)
		api.GET("/servers", s.handleListServers)
	}
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully and
// waits for webhook deliveries to finish.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close waits for in-flight webhook deliveries.
func (s *Server) Close() {
	if s.notifier != nil {
		s.notifier.Wait()
	}
}
