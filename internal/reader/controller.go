// Package reader implements the pagination state machine: page-count
// derivation from measured geometry, clamped page navigation, position
// persistence, and reconciliation of a saved position after a reflow.
package reader

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/pagekeep/pagekeep-server/internal/domain"
	"github.com/pagekeep/pagekeep-server/internal/errors"
	"github.com/pagekeep/pagekeep-server/internal/paginate"
)

// PositionStore is the durable position persistence the controller depends
// on. Satisfied by *store.Store.
type PositionStore interface {
	SavePosition(ctx context.Context, pos *domain.PagePosition) error
	GetPosition(ctx context.Context, contentID string) (*domain.PagePosition, error)
}

// Controller owns the pagination state for one mounted reader.
//
// It is the sole stateful owner: it samples geometry through the surface
// whenever layout may have changed, persists the position on every
// committed navigation, and consults the saved position exactly once per
// mount. All operations serialize behind a mutex, so a recalculation is one
// atomic sample-compute-clamp-scroll step.
type Controller struct {
	mu       sync.Mutex
	surface  Surface
	store    PositionStore
	onChange ChangeFunc
	logger   *slog.Logger

	contentID string
	mode      domain.DisplayMode
	settings  domain.ReaderSettings

	currentPage int
	totalPages  int
	initialized bool
}

// NewController creates a controller for one content identity.
// onChange may be nil.
func NewController(
	contentID string,
	mode domain.DisplayMode,
	settings domain.ReaderSettings,
	surface Surface,
	positions PositionStore,
	onChange ChangeFunc,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		surface:   surface,
		store:     positions,
		onChange:  onChange,
		logger:    logger,
		contentID: contentID,
		mode:      mode,
		settings:  settings,
		totalPages: 1,
	}
}

// Initialize samples geometry, computes the page count, and restores the
// saved position for the content identity. It runs at most once per mount;
// later calls are no-ops. A position saved under the live settings restores
// its exact page index; one saved under different settings is re-estimated
// from fractional progress, since absolute indices do not survive a reflow.
func (c *Controller) Initialize(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return
	}

	geo, ok := c.surface.Sample()
	c.totalPages = paginate.TotalPages(geo, ok, c.mode)

	saved, err := c.store.GetPosition(ctx, c.contentID)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) && c.logger != nil {
			c.logger.Warn("loading saved position failed, starting from page zero",
				"content_id", c.contentID,
				"error", err,
			)
		}
		c.currentPage = 0
		c.initialized = true
		return
	}

	decision := saved.Decide(c.settings)
	c.currentPage = decision.TargetPage(c.totalPages)
	if !c.mode.Continuous() {
		c.surface.ScrollToPage(c.currentPage)
	}

	if c.logger != nil {
		c.logger.Debug("restored reading position",
			"content_id", c.contentID,
			"page", c.currentPage,
			"total_pages", c.totalPages,
			"exact", decision.IsCompatible(),
		)
	}

	c.initialized = true
}

// Recalculate recomputes the page count from current geometry and clamps
// the current page to the new bound. Invoked after a viewport resize or a
// settings mutation. It never reads or writes the persisted position and
// never notifies the change observer.
func (c *Controller) Recalculate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	geo, ok := c.surface.Sample()
	c.totalPages = paginate.TotalPages(geo, ok, c.mode)

	if c.currentPage > c.totalPages-1 {
		c.currentPage = c.totalPages - 1
	}
	if !c.mode.Continuous() {
		c.surface.ScrollToPage(c.currentPage)
	}
}

// SetSettings replaces the live settings snapshot. Returns true when a
// field-level difference was detected, in which case the caller should
// schedule a recalculation.
func (c *Controller) SetSettings(settings domain.ReaderSettings) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.settings.Equal(settings) {
		return false
	}
	c.settings = settings
	return true
}

// GoToPage navigates to the given 0-based page, clamped to the valid
// range. The committed position is persisted best-effort and the change
// observer is notified. No-op in continuous mode, and before Initialize
// has run: committing against the placeholder page count would overwrite
// the saved position the pending Initialize is about to restore.
func (c *Controller) GoToPage(ctx context.Context, page int) {
	c.mu.Lock()

	if !c.initialized || c.mode.Continuous() {
		c.mu.Unlock()
		return
	}

	if page < 0 {
		page = 0
	}
	if page > c.totalPages-1 {
		page = c.totalPages - 1
	}

	c.currentPage = page
	c.surface.ScrollToPage(page)

	pos := domain.NewPagePosition(c.contentID, c.currentPage, c.totalPages, c.settings)
	notify := c.onChange
	totalPages := c.totalPages
	c.mu.Unlock()

	// Persistence is best-effort: a full or disabled store must never
	// block navigation.
	if err := c.store.SavePosition(ctx, pos); err != nil && c.logger != nil {
		c.logger.Warn("saving position failed",
			"content_id", pos.ContentID,
			"page", pos.Page,
			"error", err,
		)
	}

	if notify != nil {
		notify(page, totalPages)
	}
}

// Next advances one page. No-op on the last page; there is no wraparound.
func (c *Controller) Next(ctx context.Context) {
	c.mu.Lock()
	if c.mode.Continuous() || c.currentPage >= c.totalPages-1 {
		c.mu.Unlock()
		return
	}
	target := c.currentPage + 1
	c.mu.Unlock()

	c.GoToPage(ctx, target)
}

// Previous goes back one page. No-op on the first page.
func (c *Controller) Previous(ctx context.Context) {
	c.mu.Lock()
	if c.mode.Continuous() || c.currentPage == 0 {
		c.mu.Unlock()
		return
	}
	target := c.currentPage - 1
	c.mu.Unlock()

	c.GoToPage(ctx, target)
}

// GoToStart jumps to the beginning of the content. In continuous mode the
// surface container scrolls to offset zero without touching page state.
// No-op before Initialize has run.
func (c *Controller) GoToStart(ctx context.Context) {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return
	}
	if c.mode.Continuous() {
		c.surface.ScrollToOffset(0)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.GoToPage(ctx, 0)
}

// GoToEnd jumps to the end of the content. In continuous mode the surface
// container scrolls to its maximum extent without touching page state.
// No-op before Initialize has run.
func (c *Controller) GoToEnd(ctx context.Context) {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return
	}
	if c.mode.Continuous() {
		c.surface.ScrollToOffset(c.surface.MaxScrollExtent())
		c.mu.Unlock()
		return
	}
	target := c.totalPages - 1
	c.mu.Unlock()

	c.GoToPage(ctx, target)
}

// PercentComplete reports progress through the document. Continuous mode
// has no tracked completion signal and always reports zero.
func (c *Controller) PercentComplete() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode.Continuous() {
		return 0
	}
	if c.totalPages <= 1 {
		return 100
	}
	return int(math.Round(float64(c.currentPage+1) / float64(c.totalPages) * 100))
}

// CurrentPage returns the 0-based current page.
func (c *Controller) CurrentPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPage
}

// TotalPages returns the current page count (always >= 1).
func (c *Controller) TotalPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalPages
}

// IsFirstPage reports whether the reader is on the first page.
func (c *Controller) IsFirstPage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPage == 0
}

// IsLastPage reports whether the reader is on the last page.
func (c *Controller) IsLastPage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPage >= c.totalPages-1
}

// Ready reports whether Initialize has completed for this mount.
func (c *Controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// ContentID returns the content identity this controller paginates.
func (c *Controller) ContentID() string {
	return c.contentID
}

// Mode returns the display mode.
func (c *Controller) Mode() domain.DisplayMode {
	return c.mode
}

// Settings returns the live settings snapshot.
func (c *Controller) Settings() domain.ReaderSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}
