package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"autosubtitle/internal/config"
	"autosubtitle/internal/logger"
	"autosubtitle/internal/pipeline"
	"autosubtitle/internal/server"
	"autosubtitle/internal/transcriber"
)

// HealthFilePath is where the heartbeat writes its status document; the
// -health CLI flag and container healthchecks read it back.
const HealthFilePath = "/tmp/autosubtitle-health.json"

// ServiceHealth tracks per-request outcomes of the subtitle service
type ServiceHealth struct {
	mu            sync.RWMutex
	serverActive  bool
	modelLoaded   bool
	lastJobTime   time.Time
	jobsCompleted int64
	jobsFailed    int64
}

// Application is the top-level orchestrator wiring configuration, the
// transcription engine, the pipeline, and the HTTP server together
type Application struct {
	config     *config.Configuration
	zapLogger  *zap.Logger
	engine     *transcriber.TranscriptionEngine
	pipe       *pipeline.Pipeline
	httpServer *server.Service
	health     *ServiceHealth
	healthFile string
}

// NewApplication creates a new application instance with all components initialized
func NewApplication() (*Application, error) {
	// Load configuration from config file if CONFIG_PATH is set, otherwise use environment variables
	var cfg *config.Configuration
	var err error

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		cfg, err = config.NewConfigurationFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.NewConfigurationFromEnv()
		if err != nil {
			return nil, fmt.Errorf("failed to load config from environment: %w", err)
		}
	}

	zapLogger := logger.NewLoggerWithDebug(cfg.GetDebugMode())

	engine, err := transcriber.NewTranscriptionEngineWithConfig(zapLogger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcription engine: %w", err)
	}

	pipe := pipeline.NewPipeline(cfg, engine, zapLogger)
	httpServer := server.NewService(cfg, pipe, zapLogger)

	app := &Application{
		config:     cfg,
		zapLogger:  zapLogger,
		engine:     engine,
		pipe:       pipe,
		httpServer: httpServer,
		health:     &ServiceHealth{},
		healthFile: HealthFilePath,
	}

	httpServer.SetResultObserver(app.recordJobResult)

	return app, nil
}

// Run starts the application: loads the Whisper model, serves HTTP until the
// context is cancelled, and writes periodic health status
func (app *Application) Run(ctx context.Context) error {
	app.zapLogger.Info("starting auto subtitle service",
		zap.String("addr", app.config.GetServerAddr()),
		zap.String("whisper_backend", app.config.GetWhisperBackend()))

	select {
	case <-ctx.Done():
		app.zapLogger.Info("context cancelled before startup, shutting down immediately")
		return nil
	default:
	}

	if err := app.engine.LoadModel(ctx); err != nil {
		return fmt.Errorf("failed to load whisper model: %w", err)
	}
	app.setModelLoaded(true)

	serverErrCh := make(chan error, 1)
	go func() {
		app.setServerActive(true)
		serverErrCh <- app.httpServer.Start()
	}()

	go app.startHeartbeat(ctx)

	select {
	case <-ctx.Done():
		app.zapLogger.Info("shutdown signal received, stopping application")
		return nil
	case err := <-serverErrCh:
		app.setServerActive(false)
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	}
}

// Shutdown gracefully stops all components in reverse order
func (app *Application) Shutdown() error {
	app.zapLogger.Info("shutting down application components")

	if err := app.httpServer.Stop(); err != nil {
		app.zapLogger.Error("error stopping HTTP server", zap.Error(err))
	}
	app.setServerActive(false)

	if err := app.engine.Close(); err != nil {
		app.zapLogger.Error("error closing transcription engine", zap.Error(err))
	}

	app.zapLogger.Info("application shutdown completed")
	return nil
}

// recordJobResult updates health accounting after each processed upload
func (app *Application) recordJobResult(err error) {
	app.health.mu.Lock()
	defer app.health.mu.Unlock()
	app.health.lastJobTime = time.Now()
	if err != nil {
		app.health.jobsFailed++
	} else {
		app.health.jobsCompleted++
	}
}

func (app *Application) setServerActive(active bool) {
	app.health.mu.Lock()
	defer app.health.mu.Unlock()
	app.health.serverActive = active
}

func (app *Application) setModelLoaded(loaded bool) {
	app.health.mu.Lock()
	defer app.health.mu.Unlock()
	app.health.modelLoaded = loaded
}

// healthStatus returns a snapshot of service health
func (app *Application) healthStatus() map[string]interface{} {
	app.health.mu.RLock()
	defer app.health.mu.RUnlock()

	status := map[string]interface{}{
		"server_active":  app.health.serverActive,
		"model_loaded":   app.health.modelLoaded,
		"jobs_completed": app.health.jobsCompleted,
		"jobs_failed":    app.health.jobsFailed,
	}
	if !app.health.lastJobTime.IsZero() {
		status["last_job_time"] = app.health.lastJobTime.Format(time.RFC3339)
	}
	status["healthy"] = app.health.serverActive && app.health.modelLoaded
	return status
}

// writeHealthStatusFile writes the current health status for external checks
func (app *Application) writeHealthStatusFile() error {
	status := app.healthStatus()
	status["health_check_timestamp"] = time.Now().Format(time.RFC3339)

	dir := filepath.Dir(app.healthFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create health file directory: %w", err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal health status: %w", err)
	}

	// Write-then-rename so readers never see a partial document.
	tempFile := app.healthFile + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write health file: %w", err)
	}
	if err := os.Rename(tempFile, app.healthFile); err != nil {
		return fmt.Errorf("failed to rename health file: %w", err)
	}

	return nil
}

// startHeartbeat periodically writes the health status file
func (app *Application) startHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	// Write one initial status so the -health probe works right after boot.
	if err := app.writeHealthStatusFile(); err != nil {
		app.zapLogger.Error("failed to write health status file", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := app.writeHealthStatusFile(); err != nil {
				app.zapLogger.Error("failed to write health status file", zap.Error(err))
			}

			if app.config.GetDebugMode() {
				app.zapLogger.Info("service heartbeat",
					zap.Any("health_status", app.healthStatus()))
			}
		}
	}
}
