package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"autosubtitle/internal/config"
	"autosubtitle/internal/pipeline"
)

// Processor runs one upload through the subtitle pipeline.
type Processor interface {
	Process(ctx context.Context, filename string, media io.Reader, format pipeline.Format) (*pipeline.Result, error)
}

// Service exposes the browser upload UI and the subtitle download endpoint
type Service struct {
	cfg      *config.Configuration
	pipe     Processor
	logger   *zap.Logger
	router   *gin.Engine
	server   *http.Server
	onResult func(err error)
}

// NewService creates the HTTP service and registers its routes
func NewService(cfg *config.Configuration, pipe Processor, logger *zap.Logger) *Service {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if err := router.SetTrustedProxies(nil); err != nil {
		logger.Warn("failed to set trusted proxies", zap.Error(err))
	}

	router.Use(
		recoveryMiddleware(logger),
		requestLogMiddleware(logger),
		corsMiddleware(),
	)
	router.MaxMultipartMemory = 8 << 20

	s := &Service{
		cfg:    cfg,
		pipe:   pipe,
		logger: logger,
		router: router,
	}

	s.initRouter()
	return s
}

// SetResultObserver registers a callback invoked with the outcome of each
// processed upload, used for health accounting.
func (s *Service) SetResultObserver(fn func(err error)) {
	s.onResult = fn
}

// Start begins serving HTTP requests; it blocks until the listener fails or
// Stop is called.
func (s *Service) Start() error {
	s.server = &http.Server{
		Addr:    s.cfg.GetServerAddr(),
		Handler: s.router,
	}

	s.logger.Info("starting HTTP server", zap.String("addr", s.cfg.GetServerAddr()))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down, giving an in-flight transcription
// request a short window to finish writing its response.
func (s *Service) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the gin engine, used by tests.
func (s *Service) Router() *gin.Engine {
	return s.router
}
