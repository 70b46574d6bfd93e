package reader

import "github.com/pagekeep/pagekeep-server/internal/paginate"

// Surface is the external rendering collaborator. The controller treats it
// as an opaque measurement and scroll target: it reads current layout
// metrics through the embedded Sampler and instructs horizontal scrolling,
// but never lays content out itself.
type Surface interface {
	paginate.Sampler

	// ScrollToPage positions the surface at the given 0-based page.
	ScrollToPage(page int)

	// ScrollToOffset sets the raw horizontal scroll offset. Used in
	// continuous mode, where page indices are meaningless.
	ScrollToOffset(offset float64)

	// MaxScrollExtent returns the maximum scrollable offset.
	MaxScrollExtent() float64
}

// ChangeFunc is notified with (page, totalPages) on every committed
// navigation. Recalculate-only clamping never fires it.
type ChangeFunc func(page, totalPages int)
