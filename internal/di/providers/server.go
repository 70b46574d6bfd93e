package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/pagekeep/pagekeep-server/internal/api"
	"github.com/pagekeep/pagekeep-server/internal/config"
	"github.com/pagekeep/pagekeep-server/internal/logger"
)

// RateLimiterHandle carries the optional API rate limiter. Limiter is nil
// when rate limiting is disabled.
type RateLimiterHandle struct {
	Limiter *api.RateLimiter
}

// ProvideRateLimiter provides the IP-keyed API rate limiter.
func ProvideRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.RateLimit.Enabled {
		log.Info("API rate limiting disabled by configuration")
		return &RateLimiterHandle{}, nil
	}

	log.Info("API rate limiting enabled",
		"rps", cfg.RateLimit.RPS,
		"burst", cfg.RateLimit.Burst,
	)

	return &RateLimiterHandle{
		Limiter: api.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	}, nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	readerHandle := do.MustInvoke[*ReaderServiceHandle](i)
	limiterHandle := do.MustInvoke[*RateLimiterHandle](i)

	handler := api.NewServer(readerHandle.ReaderService, limiterHandle.Limiter, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr, "name", cfg.Server.Name)

	return &HTTPServerHandle{Server: srv}, nil
}
