// Package di provides dependency injection configuration for the Pagekeep server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/pagekeep/pagekeep-server/internal/config"
	"github.com/pagekeep/pagekeep-server/internal/di/providers"
	"github.com/pagekeep/pagekeep-server/internal/logger"
	"github.com/pagekeep/pagekeep-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)

	// Reader sessions
	do.Provide(injector, providers.ProvideNotifier)
	do.Provide(injector, providers.ProvideReaderService)

	// Server
	do.Provide(injector, providers.ProvideRateLimiter)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once they are running.
// This triggers lazy initialization of every provider in dependency order.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[service.Notifier](injector)
	_ = do.MustInvoke[*providers.ReaderServiceHandle](injector)
	_ = do.MustInvoke[*providers.RateLimiterHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
