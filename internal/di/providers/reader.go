package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/pagekeep/pagekeep-server/internal/config"
	"github.com/pagekeep/pagekeep-server/internal/logger"
	"github.com/pagekeep/pagekeep-server/internal/service"
)

// logNotifier logs committed page changes. Placeholder until a push
// transport (SSE or websocket) carries them to clients.
type logNotifier struct {
	logger *slog.Logger
}

// NotifyPageChange implements service.Notifier.
func (n *logNotifier) NotifyPageChange(contentID string, page, totalPages int) {
	n.logger.Debug("Page changed",
		"content_id", contentID,
		"page", page,
		"total_pages", totalPages,
	)
}

// ProvideNotifier provides the page-change notifier.
func ProvideNotifier(i do.Injector) (service.Notifier, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return &logNotifier{logger: log.Logger}, nil
}

// ReaderServiceHandle wraps the reader service with shutdown capability.
type ReaderServiceHandle struct {
	*service.ReaderService
}

// Shutdown implements do.Shutdownable.
func (h *ReaderServiceHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideReaderService provides the reader session service.
func ProvideReaderService(i do.Injector) (*ReaderServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	notifier := do.MustInvoke[service.Notifier](i)

	svc := service.NewReaderService(storeHandle.Store, notifier, log.Logger, service.Options{
		MountSettle:  cfg.Reader.MountSettle,
		RecalcWindow: cfg.Reader.RecalcWindow,
		IdleTTL:      cfg.Reader.IdleTTL,
	})

	log.Info("Reader service started",
		"mount_settle", cfg.Reader.MountSettle,
		"recalc_window", cfg.Reader.RecalcWindow,
		"idle_ttl", cfg.Reader.IdleTTL,
	)

	return &ReaderServiceHandle{ReaderService: svc}, nil
}
