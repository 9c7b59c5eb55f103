// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/dailymirror/mirror-go/internal/application/container"
	"github.com/dailymirror/mirror-go/internal/infrastructure/caching/cleanup"
	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/logging"
	"github.com/dailymirror/mirror-go/internal/presentation/http/server"
	"github.com/dailymirror/mirror-go/pkg/config"
)

// Initialize performs the complete startup sequence
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("\033[32m" + `
  ┌┬┐┌─┐┬┬ ┬ ┬  ┌┬┐┬┬─┐┬─┐┌─┐┬─┐
   ││├─┤││ └┬┘  │││││├┬┘├┬┘│ │├┬┘
  ─┴┘┴ ┴┴┴─┘┴   ┴ ┴┴┴┴└─┴└─└─┘┴└─
` + "\033[97m" + `
  your daily style companion
` + "\033[0m")

	// Step 1: Create the channeled logger
	log.Println("Initializing logging...")
	logger, err := logging.NewChanneledLogger(nil)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Startup().Info("Channeled logging active")

	// Step 2: Create dependency injection container
	logger.Startup().Info("Initializing dependency injection container...")
	appContainer, err := container.NewContainer(logger)
	if err != nil {
		return fmt.Errorf("container initialization failed: %w", err)
	}
	logger.Startup().Info("Dependency injection container created with singleton services")

	// Step 3: Restore persisted state (feedback queue, metrics)
	logger.Startup().Info("Restoring persisted state...")
	appContainer.CacheManager.RestoreState(ctx)

	// Step 4: Start background cleanup worker
	logger.Startup().Info("Starting background cleanup worker...")
	cleanupWorker := cleanup.NewWorker(appContainer.Store, cleanup.NewConfigFromEnv())
	go cleanupWorker.Start(ctx)

	// Step 5: Schedule the nightly pre-generation sweep
	logger.Startup().Info("Scheduling nightly pre-generation...")
	scheduler := cron.New()
	_, err = scheduler.AddFunc(config.PreGenerateCron, func() {
		userIDs := appContainer.CacheManager.ActiveUserIDs(ctx)
		appContainer.RecommendationService.PreGenerateFor(ctx, userIDs)
	})
	if err != nil {
		return fmt.Errorf("invalid pre-generation schedule %q: %w", config.PreGenerateCron, err)
	}
	scheduler.Start()

	// Step 6: Start HTTP server
	logger.Startup().Info("Starting HTTP server...")
	httpServer := server.New(config.Port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+config.Port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", config.Port)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")

	shutdownStart := time.Now()

	// Stop accepting requests first.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	// Stop scheduled and periodic work.
	logger.Shutdown().Info("Stopping cron scheduler and cleanup worker...")
	cronCtx := scheduler.Stop()
	<-cronCtx.Done()
	cancelBackgroundTasks()

	// Let queued feedback finish before the store closes.
	logger.Shutdown().Info("Draining feedback queue...",
		"pending", appContainer.CacheManager.QueuedCount())
	appContainer.CacheManager.DrainPending(shutdownCtx)

	// Final metrics snapshot, then release the store.
	appContainer.CacheManager.FlushMetrics()

	logger.Shutdown().Info("Closing persistent store...")
	if err := appContainer.Backend.Close(); err != nil {
		logger.Shutdown().Error("Error closing store", "error", err.Error())
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))
	_ = logger.Close()

	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
