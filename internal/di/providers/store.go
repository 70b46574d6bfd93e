package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/pagekeep/pagekeep-server/internal/config"
	"github.com/pagekeep/pagekeep-server/internal/logger"
	"github.com/pagekeep/pagekeep-server/internal/store"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the position store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := filepath.Join(cfg.Storage.BasePath, "db")
	db, err := store.New(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Position store initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}
