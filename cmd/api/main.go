// Package main provides the entry point for the Pagekeep server application.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/pagekeep/pagekeep-server/internal/di"
	"github.com/pagekeep/pagekeep-server/internal/di/providers"
	"github.com/pagekeep/pagekeep-server/internal/logger"
)

func main() {
	// Create DI container
	injector := di.NewContainer()

	// Bootstrap all services
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap server: %v\n", err)
		os.Exit(1)
	}

	// Get logger for shutdown messages
	log := do.MustInvoke[*logger.Logger](injector)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	// Shutdown all services in reverse order
	// The DI container handles shutdown order automatically
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	// The store uses a wrapper type, make sure it is flushed and closed
	// even if container shutdown already handled it.
	if storeHandle, err := do.Invoke[*providers.StoreHandle](injector); err == nil {
		log.Info("Closing position store...")
		if err := storeHandle.Shutdown(); err != nil {
			log.Error("Failed to close position store", "error", err)
		} else {
			log.Info("Position store closed")
		}
	}

	log.Info("Goodnight, bookmark saved.")
}
