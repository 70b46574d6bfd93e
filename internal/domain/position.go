package domain

import (
	"math"
	"time"
)

// PagePosition is the persisted reading position for one content identity.
// The settings fields are a snapshot of the layout in effect when the
// position was saved. They are only compared against live settings on
// restore, never replayed.
type PagePosition struct {
	ContentID  string         `json:"content_id"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
	Settings   ReaderSettings `json:"settings"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// NewPagePosition creates a position record for a committed navigation.
func NewPagePosition(contentID string, page, totalPages int, settings ReaderSettings) *PagePosition {
	return &PagePosition{
		ContentID:  contentID,
		Page:       page,
		TotalPages: totalPages,
		Settings:   settings,
		UpdatedAt:  time.Now(),
	}
}

// Valid reports whether the record satisfies the save-time invariant
// 0 <= page < total_pages. Corrupt or hand-edited records fail this and
// are treated as absent by the store.
func (p *PagePosition) Valid() bool {
	return p != nil && p.Page >= 0 && p.TotalPages >= 1 && p.Page < p.TotalPages
}

// Fraction returns fractional progress through the document, the only
// signal that survives a reflow.
func (p *PagePosition) Fraction() float64 {
	if p.TotalPages <= 0 {
		return 0
	}
	return float64(p.Page) / float64(p.TotalPages)
}

// RestoreDecision is the outcome of reconciling a saved position against
// the live reader settings. Decided once at load time so the compatibility
// policy lives in one place.
type RestoreDecision struct {
	compatible bool
	page       int
	fraction   float64
}

// Compatible restores an exact page index: the settings snapshot matches
// the live settings, so page boundaries are unchanged.
func Compatible(page int) RestoreDecision {
	return RestoreDecision{compatible: true, page: page}
}

// Stale carries fractional progress: the settings changed, absolute page
// indices are meaningless across the reflow.
func Stale(fraction float64) RestoreDecision {
	return RestoreDecision{fraction: fraction}
}

// Decide reconciles a saved position against the live settings.
func (p *PagePosition) Decide(live ReaderSettings) RestoreDecision {
	if p.Settings.Equal(live) {
		return Compatible(p.Page)
	}
	return Stale(p.Fraction())
}

// TargetPage resolves the decision against a freshly computed page count,
// clamped to [0, totalPages-1].
func (d RestoreDecision) TargetPage(totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	var target int
	if d.compatible {
		target = d.page
	} else {
		target = int(math.Round(d.fraction * float64(totalPages)))
	}
	if target < 0 {
		target = 0
	}
	if target > totalPages-1 {
		target = totalPages - 1
	}
	return target
}

// IsCompatible reports whether the decision restores an exact page index.
func (d RestoreDecision) IsCompatible() bool {
	return d.compatible
}
