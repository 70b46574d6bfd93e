// Package service hosts reader sessions: each session pairs a remote
// rendering surface with a pagination controller and the debounce windows
// that coalesce its layout-change bursts.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pagekeep/pagekeep-server/internal/domain"
	"github.com/pagekeep/pagekeep-server/internal/errors"
	"github.com/pagekeep/pagekeep-server/internal/id"
	"github.com/pagekeep/pagekeep-server/internal/paginate"
	"github.com/pagekeep/pagekeep-server/internal/reader"
	"github.com/pagekeep/pagekeep-server/internal/store"
)

// ErrSessionNotFound is returned for unknown or already-closed sessions.
var ErrSessionNotFound = errors.ErrNotFound.WithMessage("reader session not found")

// Notifier receives committed navigation events. Recalculate-only clamping
// never reaches it.
type Notifier interface {
	NotifyPageChange(contentID string, page, totalPages int)
}

// NoopNotifier is a no-op implementation of Notifier for testing.
type NoopNotifier struct{}

// NotifyPageChange implements Notifier.NotifyPageChange as a no-op.
func (NoopNotifier) NotifyPageChange(string, int, int) {}

// Options configures session timing.
type Options struct {
	// MountSettle delays the first geometry-driven initialization so the
	// surface can finish its initial layout pass.
	MountSettle time.Duration
	// RecalcWindow coalesces resize and settings bursts into a single
	// recalculation.
	RecalcWindow time.Duration
	// IdleTTL evicts sessions with no client activity. Zero disables the
	// janitor.
	IdleTTL time.Duration
}

// setDefaults applies default values to unset options.
func (o *Options) setDefaults() {
	if o.MountSettle == 0 {
		o.MountSettle = 150 * time.Millisecond
	}
	if o.RecalcWindow == 0 {
		o.RecalcWindow = 250 * time.Millisecond
	}
}

// session is one live reader: controller, surface, and debounce windows.
type session struct {
	id         string
	controller *reader.Controller
	surface    *RemoteSurface
	mount      *reader.Debouncer
	recalc     *reader.Debouncer

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen.Before(cutoff)
}

func (s *session) stop() {
	s.mount.Stop()
	s.recalc.Stop()
}

// ReaderService manages live reader sessions and their persisted positions.
type ReaderService struct {
	store    *store.Store
	notifier Notifier
	logger   *slog.Logger
	opts     Options

	mu       sync.RWMutex
	sessions map[string]*session

	done     chan struct{}
	stopOnce sync.Once
}

// NewReaderService creates the service and starts the idle-session janitor
// when an IdleTTL is configured.
func NewReaderService(positions *store.Store, notifier Notifier, logger *slog.Logger, opts Options) *ReaderService {
	opts.setDefaults()

	svc := &ReaderService{
		store:    positions,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
		sessions: make(map[string]*session),
		done:     make(chan struct{}),
	}

	if opts.IdleTTL > 0 {
		go svc.janitor()
	}

	return svc
}

// Stop closes every session and halts the janitor.
func (s *ReaderService) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	for sid, sess := range s.sessions {
		sess.stop()
		delete(s.sessions, sid)
	}
}

// SettingsRequest carries layout-affecting reader settings.
type SettingsRequest struct {
	FontSize   float64 `json:"font_size" validate:"required,gt=0"`
	LineHeight float64 `json:"line_height" validate:"required,gt=0"`
	Margins    int     `json:"margins" validate:"gte=0"`
	Columns    int     `json:"columns" validate:"gte=0"`
}

func (r SettingsRequest) toDomain() domain.ReaderSettings {
	return domain.ReaderSettings{
		FontSize:   r.FontSize,
		LineHeight: r.LineHeight,
		Margins:    r.Margins,
		Columns:    r.Columns,
	}
}

// OpenRequest opens a reader session for one content identity.
type OpenRequest struct {
	ContentID string           `json:"content_id" validate:"required"`
	Mode      string           `json:"mode" validate:"omitempty,oneof=paged continuous"`
	Settings  *SettingsRequest `json:"settings" validate:"omitempty"`
}

// GeometryRequest is a layout measurement pushed by the client.
type GeometryRequest struct {
	ViewportWidth   float64 `json:"viewport_width" validate:"gte=0"`
	ContentWidth    float64 `json:"content_width" validate:"gte=0"`
	MaxScrollExtent float64 `json:"max_scroll_extent" validate:"gte=0"`
}

// SessionState is a display-ready snapshot of one session.
type SessionState struct {
	SessionID       string                `json:"session_id"`
	ContentID       string                `json:"content_id"`
	Mode            domain.DisplayMode    `json:"mode"`
	Settings        domain.ReaderSettings `json:"settings"`
	Ready           bool                  `json:"ready"`
	Page            int                   `json:"page"`
	TotalPages      int                   `json:"total_pages"`
	PercentComplete int                   `json:"percent_complete"`
	IsFirstPage     bool                  `json:"is_first_page"`
	IsLastPage      bool                  `json:"is_last_page"`
	ScrollToPage    *int                  `json:"scroll_to_page,omitempty"`
	ScrollToOffset  *float64              `json:"scroll_to_offset,omitempty"`
}

// Open creates a reader session. The session stays Uninitialized until the
// client's first geometry report has settled.
func (s *ReaderService) Open(ctx context.Context, req OpenRequest) (*SessionState, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}
	if req.Settings != nil {
		if err := validate.Struct(*req.Settings); err != nil {
			return nil, formatValidationError(err)
		}
	}

	mode := domain.ModePaged
	if req.Mode != "" {
		mode = domain.DisplayMode(req.Mode)
	}

	settings := domain.DefaultReaderSettings()
	if req.Settings != nil {
		settings = req.Settings.toDomain()
	}

	sessionID, err := id.Generate("rdr")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate session ID")
	}

	surface := NewRemoteSurface()
	ctrl := reader.NewController(
		req.ContentID,
		mode,
		settings,
		surface,
		s.store,
		func(page, totalPages int) {
			s.notifier.NotifyPageChange(req.ContentID, page, totalPages)
		},
		s.logger,
	)

	sess := &session{
		id:         sessionID,
		controller: ctrl,
		surface:    surface,
		mount:      reader.NewDebouncer(s.opts.MountSettle),
		recalc:     reader.NewDebouncer(s.opts.RecalcWindow),
		lastSeen:   time.Now(),
	}

	s.mu.Lock()
	s.sessions[sessionID] = sess
	s.mu.Unlock()

	s.logger.Debug("opened reader session",
		"session_id", sessionID,
		"content_id", req.ContentID,
		"mode", mode,
	)

	return s.snapshot(sess), nil
}

// ReportGeometry records a measurement from the client. The first settled
// report initializes the session (restoring any saved position); later
// reports debounce a recalculation, so a resize burst collapses into one.
func (s *ReaderService) ReportGeometry(ctx context.Context, sessionID string, req GeometryRequest) (*SessionState, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.touch()

	sess.surface.Report(paginate.Geometry{
		ViewportWidth: req.ViewportWidth,
		ContentWidth:  req.ContentWidth,
	}, req.MaxScrollExtent)

	ctrl := sess.controller
	if !ctrl.Ready() {
		// Detach from the request context: the debounced task outlives it.
		sess.mount.Trigger(func() {
			ctrl.Initialize(context.WithoutCancel(ctx))
		})
	} else {
		sess.recalc.Trigger(ctrl.Recalculate)
	}

	return s.snapshot(sess), nil
}

// UpdateSettings applies new reader settings. A field-level difference
// schedules a debounced recalculation; an identical payload is a no-op.
func (s *ReaderService) UpdateSettings(ctx context.Context, sessionID string, req SettingsRequest) (*SessionState, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.touch()

	if sess.controller.SetSettings(req.toDomain()) {
		sess.recalc.Trigger(sess.controller.Recalculate)
	}

	return s.snapshot(sess), nil
}

// NavAction names a navigation operation.
type NavAction string

// Navigation actions.
const (
	NavGoTo     NavAction = "goto"
	NavNext     NavAction = "next"
	NavPrevious NavAction = "previous"
	NavStart    NavAction = "start"
	NavEnd      NavAction = "end"
)

// Navigate dispatches a navigation action. A pending recalculation is
// flushed first so navigation always works against current geometry.
// Before the first geometry report has settled the controller ignores
// navigation, so the saved position the mount will restore stays intact.
func (s *ReaderService) Navigate(ctx context.Context, sessionID string, action NavAction, page int) (*SessionState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.touch()

	ctrl := sess.controller
	if ctrl.Ready() {
		sess.recalc.Flush(ctrl.Recalculate)
	}

	switch action {
	case NavGoTo:
		ctrl.GoToPage(ctx, page)
	case NavNext:
		ctrl.Next(ctx)
	case NavPrevious:
		ctrl.Previous(ctx)
	case NavStart:
		ctrl.GoToStart(ctx)
	case NavEnd:
		ctrl.GoToEnd(ctx)
	default:
		return nil, errors.Validationf("unknown navigation action: %s", action)
	}

	return s.snapshot(sess), nil
}

// State returns a snapshot of one session.
func (s *ReaderService) State(_ context.Context, sessionID string) (*SessionState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.touch()
	return s.snapshot(sess), nil
}

// Close tears down a session: pending debounce timers are cancelled so
// nothing acts on the detached surface. The persisted position survives.
func (s *ReaderService) Close(_ context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	sess.stop()
	s.logger.Debug("closed reader session", "session_id", sessionID)
	return nil
}

// Position reads the persisted position for a content identity, outside
// any session.
func (s *ReaderService) Position(ctx context.Context, contentID string) (*domain.PagePosition, error) {
	return s.store.GetPosition(ctx, contentID)
}

// session looks up a live session.
func (s *ReaderService) session(sessionID string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// snapshot builds a SessionState from live controller state.
func (s *ReaderService) snapshot(sess *session) *SessionState {
	ctrl := sess.controller
	scrollPage, scrollOffset := sess.surface.TakeScrollTarget()

	return &SessionState{
		SessionID:       sess.id,
		ContentID:       ctrl.ContentID(),
		Mode:            ctrl.Mode(),
		Settings:        ctrl.Settings(),
		Ready:           ctrl.Ready(),
		Page:            ctrl.CurrentPage(),
		TotalPages:      ctrl.TotalPages(),
		PercentComplete: ctrl.PercentComplete(),
		IsFirstPage:     ctrl.IsFirstPage(),
		IsLastPage:      ctrl.IsLastPage(),
		ScrollToPage:    scrollPage,
		ScrollToOffset:  scrollOffset,
	}
}

// janitor evicts idle sessions so abandoned readers do not leak
// controllers and timers. Persisted positions are never collected.
func (s *ReaderService) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evictIdle(time.Now().Add(-s.opts.IdleTTL))
		}
	}
}

// evictIdle closes sessions with no activity since the cutoff.
func (s *ReaderService) evictIdle(cutoff time.Time) {
	s.mu.Lock()
	var evicted []*session
	for sid, sess := range s.sessions {
		if sess.idleSince(cutoff) {
			delete(s.sessions, sid)
			evicted = append(evicted, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range evicted {
		sess.stop()
		s.logger.Debug("evicted idle reader session", "session_id", sess.id)
	}
}
