package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"autosubtitle/internal/app"
)

// main is the application entry point
func main() {
	var (
		helpFlag    = flag.Bool("help", false, "Show help message")
		versionFlag = flag.Bool("version", false, "Show version information")
		healthFlag  = flag.Bool("health", false, "Check service health status")
	)
	flag.Parse()

	if *helpFlag {
		printHelp()
		os.Exit(0)
	}

	if *versionFlag {
		printVersion()
		os.Exit(0)
	}

	if *healthFlag {
		os.Exit(checkHealthWithFile(app.HealthFilePath))
	}

	if err := runApplication(); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

// runApplication contains the core application logic that can be tested
func runApplication() error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Auto Subtitle Generator starting up",
		zap.String("component", "main"),
		zap.String("version", "1.0"))

	application, err := app.NewApplication()
	if err != nil {
		logger.Error("Failed to create application",
			zap.Error(err),
			zap.String("component", "main"))
		return fmt.Errorf("failed to create application: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
			zap.String("component", "main"))
		cancel()
	}()

	if err := application.Run(ctx); err != nil {
		logger.Error("Application runtime error",
			zap.Error(err),
			zap.String("component", "main"))
		return fmt.Errorf("application runtime error: %w", err)
	}

	if err := application.Shutdown(); err != nil {
		logger.Error("Error during application shutdown",
			zap.Error(err),
			zap.String("component", "main"))
		return fmt.Errorf("application shutdown error: %w", err)
	}

	logger.Info("Auto Subtitle Generator stopped successfully",
		zap.String("component", "main"))
	return nil
}

// printHelp displays command line usage information
func printHelp() {
	fmt.Println("Auto Subtitle Generator - upload a video, download its subtitles")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("    autosubtitle [OPTIONS]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("    -help      Show this help message")
	fmt.Println("    -version   Show version information")
	fmt.Println("    -health    Check service health status")
	fmt.Println()
	fmt.Println("CONFIGURATION:")
	fmt.Println("    Configuration is loaded from the file named by CONFIG_PATH,")
	fmt.Println("    or from AUTOSUB_-prefixed environment variables.")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("    autosubtitle                       # Serve the upload UI on :8080")
	fmt.Println("    AUTOSUB_SERVER_ADDR=:9090 autosubtitle")
	fmt.Println("    autosubtitle -health               # Healthcheck (for containers)")
}

// printVersion displays version and build information
func printVersion() {
	fmt.Println("Auto Subtitle Generator")
	fmt.Println("Version: 1.0")
	fmt.Println("Architecture: Go + FFmpeg + Whisper")
}

// checkHealthWithFile checks service health by reading the health status file
func checkHealthWithFile(healthFile string) int {
	if _, err := os.Stat(healthFile); os.IsNotExist(err) {
		fmt.Printf("UNHEALTHY: Health status file not found (%s)\n", healthFile)
		return 1
	}

	data, err := os.ReadFile(healthFile)
	if err != nil {
		fmt.Printf("UNHEALTHY: Failed to read health file: %v\n", err)
		return 1
	}

	var healthStatus map[string]interface{}
	if err := json.Unmarshal(data, &healthStatus); err != nil {
		fmt.Printf("UNHEALTHY: Failed to parse health file: %v\n", err)
		return 1
	}

	timestampStr, ok := healthStatus["health_check_timestamp"].(string)
	if !ok {
		fmt.Println("UNHEALTHY: Health file missing timestamp")
		return 1
	}

	timestamp, err := time.Parse(time.RFC3339, timestampStr)
	if err != nil {
		fmt.Printf("UNHEALTHY: Invalid timestamp format: %v\n", err)
		return 1
	}

	timeSinceUpdate := time.Since(timestamp)
	if timeSinceUpdate > 90*time.Second {
		fmt.Printf("UNHEALTHY: Health file is stale (last update: %v ago)\n", timeSinceUpdate)
		return 1
	}

	healthy, ok := healthStatus["healthy"].(bool)
	if !ok {
		fmt.Println("UNHEALTHY: Health status missing healthy field")
		return 1
	}

	if !healthy {
		fmt.Println("UNHEALTHY: Service reported unhealthy status")
		fmt.Printf("Health details: %s\n", string(data))
		return 1
	}

	fmt.Printf("HEALTHY: Service is functioning normally (last check: %v ago)\n", timeSinceUpdate)
	return 0
}
