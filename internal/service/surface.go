package service

import (
	"sync"

	"github.com/pagekeep/pagekeep-server/internal/paginate"
)

// RemoteSurface adapts an HTTP reader client to the reader.Surface
// contract. The client pushes measured geometry up; scroll instructions
// accumulate here and are handed back on the next state read.
type RemoteSurface struct {
	mu        sync.Mutex
	geo       paginate.Geometry
	attached  bool
	maxExtent float64

	scrollPage   *int
	scrollOffset *float64
}

// NewRemoteSurface creates an unattached surface. Sample reports
// unavailable geometry until the client's first report.
func NewRemoteSurface() *RemoteSurface {
	return &RemoteSurface{}
}

// Report records a geometry measurement pushed by the client and marks the
// surface attached.
func (r *RemoteSurface) Report(geo paginate.Geometry, maxExtent float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.geo = geo
	r.maxExtent = maxExtent
	r.attached = true
}

// Sample implements paginate.Sampler.
func (r *RemoteSurface) Sample() (paginate.Geometry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.geo, r.attached
}

// ScrollToPage implements reader.Surface. The instruction replaces any
// pending one; the client consumes it via TakeScrollTarget.
func (r *RemoteSurface) ScrollToPage(page int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrollPage = &page
	r.scrollOffset = nil
}

// ScrollToOffset implements reader.Surface.
func (r *RemoteSurface) ScrollToOffset(offset float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrollOffset = &offset
	r.scrollPage = nil
}

// MaxScrollExtent implements reader.Surface.
func (r *RemoteSurface) MaxScrollExtent() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxExtent
}

// TakeScrollTarget returns and clears the pending scroll instruction.
// At most one of the results is non-nil.
func (r *RemoteSurface) TakeScrollTarget() (page *int, offset *float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	page, offset = r.scrollPage, r.scrollOffset
	r.scrollPage, r.scrollOffset = nil, nil
	return page, offset
}
