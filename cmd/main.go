package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"

	"threadly/gateway"
	"threadly/internal"
	"threadly/observability"
	"threadly/repositories"
	"threadly/runtime"
	"threadly/runtime/workers"
	"threadly/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the HTTP server and background workers.
func run() error {
	// 1. Configuration & Logger
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	//  Defer will be executed before run() returned anything to main()
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Setup Supervision & Orchestration
	sup := workers.NewSupervisor(log)
	registry := runtime.NewRegistry()
	metrics := observability.NewEngineMetrics()
	store := repositories.NewConversationRepository(db, log, config.LimitMessages)

	orchestrator := runtime.NewOrchestrator(
		log, sup, registry, metrics,
		config.BufferSize, config.HealthInterval,
	)

	moderator, err := runtime.PrepareModeration(log, charReplacement)
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}

	service := services.NewChatService(store, registry, orchestrator, &moderator, metrics, log)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Start the Engine
	if err = orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("orchestrator failed to start: %w", err)
	}

	if config.DebugPort > 0 {
		internal.StartDebugServer(db, config.DebugPort, internal.DefaultMapper, func() map[string]any {
			stats := metrics.Snapshot()
			stats["users_online"] = registry.CountUsers()
			stats["live_connections"] = registry.CountConnections()
			return stats
		})
		log.Info("Debug inspect server started", "port", config.DebugPort)
	}

	// 6. HTTP Server Setup
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	gw := gateway.NewServer(service, []byte(config.TokenSecret), config.HandshakeTimeout, config.ConnectionBufferSize, log)
	httpServer := &http.Server{
		Addr:    address,
		Handler: gw.Handler(),
	}

	// Use an error channel to capture Serve() issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	orchestrator.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
