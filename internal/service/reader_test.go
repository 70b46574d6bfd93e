package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagekeep/pagekeep-server/internal/domain"
	"github.com/pagekeep/pagekeep-server/internal/errors"
	"github.com/pagekeep/pagekeep-server/internal/store"
)

func setupTestReader(t *testing.T) (*ReaderService, *store.Store) {
	t.Helper()

	testStore, err := store.New(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	svc := NewReaderService(testStore, NoopNotifier{}, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{
		MountSettle:  10 * time.Millisecond,
		RecalcWindow: 10 * time.Millisecond,
	})

	t.Cleanup(func() {
		svc.Stop()
		testStore.Close()
	})

	return svc, testStore
}

// openAndMount opens a session and drives it to Ready with the given geometry.
func openAndMount(t *testing.T, svc *ReaderService, contentID string, viewport, content float64) string {
	t.Helper()
	ctx := context.Background()

	state, err := svc.Open(ctx, OpenRequest{ContentID: contentID})
	require.NoError(t, err)

	_, err = svc.ReportGeometry(ctx, state.SessionID, GeometryRequest{
		ViewportWidth: viewport,
		ContentWidth:  content,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, err := svc.State(ctx, state.SessionID)
		return err == nil && s.Ready
	}, time.Second, 5*time.Millisecond)

	return state.SessionID
}

func TestOpen_Validation(t *testing.T) {
	svc, _ := setupTestReader(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, OpenRequest{})
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = svc.Open(ctx, OpenRequest{ContentID: "book-1", Mode: "diagonal"})
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = svc.Open(ctx, OpenRequest{
		ContentID: "book-1",
		Settings:  &SettingsRequest{FontSize: -1, LineHeight: 1.5},
	})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestOpen_StartsUninitialized(t *testing.T) {
	svc, _ := setupTestReader(t)

	state, err := svc.Open(context.Background(), OpenRequest{ContentID: "book-1"})
	require.NoError(t, err)

	assert.NotEmpty(t, state.SessionID)
	assert.False(t, state.Ready)
	assert.Equal(t, 0, state.Page)
	assert.Equal(t, 1, state.TotalPages)
	assert.Equal(t, domain.ModePaged, state.Mode)
}

func TestReportGeometry_InitializesAfterSettle(t *testing.T) {
	svc, _ := setupTestReader(t)

	sid := openAndMount(t, svc, "book-1", 1000, 5000)

	state, err := svc.State(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, 5, state.TotalPages)
	assert.Equal(t, 0, state.Page)
}

func TestReportGeometry_RestoresSavedPosition(t *testing.T) {
	svc, testStore := setupTestReader(t)
	ctx := context.Background()

	saved := domain.NewPagePosition("book-1", 3, 5, domain.DefaultReaderSettings())
	require.NoError(t, testStore.SavePosition(ctx, saved))

	sid := openAndMount(t, svc, "book-1", 1000, 5000)

	state, err := svc.State(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, 3, state.Page)
}

func TestNavigate_BeforeMountKeepsSavedPosition(t *testing.T) {
	svc, testStore := setupTestReader(t)
	ctx := context.Background()

	saved := domain.NewPagePosition("book-1", 4, 10, domain.DefaultReaderSettings())
	require.NoError(t, testStore.SavePosition(ctx, saved))

	state, err := svc.Open(ctx, OpenRequest{ContentID: "book-1"})
	require.NoError(t, err)
	sid := state.SessionID

	// Navigation arrives before any geometry report: the session is still
	// Uninitialized with a placeholder page count.
	state, err = svc.Navigate(ctx, sid, NavGoTo, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, state.Page)

	_, err = svc.Navigate(ctx, sid, NavEnd, 0)
	require.NoError(t, err)

	// The saved record is untouched.
	record, err := testStore.GetPosition(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, 4, record.Page)
	assert.Equal(t, 10, record.TotalPages)

	// A normal mount still restores it.
	_, err = svc.ReportGeometry(ctx, sid, GeometryRequest{ViewportWidth: 1000, ContentWidth: 10000})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		s, err := svc.State(ctx, sid)
		return err == nil && s.Ready
	}, time.Second, 5*time.Millisecond)

	state, err = svc.State(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, 4, state.Page)
	assert.Equal(t, 10, state.TotalPages)
}

func TestReportGeometry_StaleSettingsRestoreByFraction(t *testing.T) {
	svc, testStore := setupTestReader(t)
	ctx := context.Background()

	oldSettings := domain.ReaderSettings{FontSize: 22, LineHeight: 1.8, Margins: 24, Columns: 2}
	require.NoError(t, testStore.SavePosition(ctx, domain.NewPagePosition("book-1", 4, 10, oldSettings)))

	// Live settings are the defaults, so the snapshot is stale and the
	// reflowed layout measures 20 pages: round((4/10)*20) = 8.
	sid := openAndMount(t, svc, "book-1", 1000, 20000)

	state, err := svc.State(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, 8, state.Page)
}

func TestReportGeometry_BurstCollapsesToOneRecalculation(t *testing.T) {
	svc, _ := setupTestReader(t)
	ctx := context.Background()

	sid := openAndMount(t, svc, "book-1", 1000, 5000)

	// Rapid resize burst; only the final geometry should win.
	for _, content := range []float64{6000, 7000, 8000, 9000} {
		_, err := svc.ReportGeometry(ctx, sid, GeometryRequest{ViewportWidth: 1000, ContentWidth: content})
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		s, err := svc.State(ctx, sid)
		return err == nil && s.TotalPages == 9
	}, time.Second, 5*time.Millisecond)
}

func TestNavigate_GoToPersistsPosition(t *testing.T) {
	svc, testStore := setupTestReader(t)
	ctx := context.Background()

	sid := openAndMount(t, svc, "book-1", 1000, 5000)

	state, err := svc.Navigate(ctx, sid, NavGoTo, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, state.Page)
	require.NotNil(t, state.ScrollToPage)
	assert.Equal(t, 2, *state.ScrollToPage)

	pos, err := testStore.GetPosition(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, 2, pos.Page)
	assert.Equal(t, 5, pos.TotalPages)
}

func TestNavigate_NextPreviousBoundaries(t *testing.T) {
	svc, _ := setupTestReader(t)
	ctx := context.Background()

	sid := openAndMount(t, svc, "book-1", 1000, 2000)

	state, err := svc.Navigate(ctx, sid, NavPrevious, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, state.Page)

	state, err = svc.Navigate(ctx, sid, NavNext, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Page)
	assert.True(t, state.IsLastPage)

	state, err = svc.Navigate(ctx, sid, NavNext, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Page)
}

func TestNavigate_StartEnd(t *testing.T) {
	svc, _ := setupTestReader(t)
	ctx := context.Background()

	sid := openAndMount(t, svc, "book-1", 1000, 5000)

	state, err := svc.Navigate(ctx, sid, NavEnd, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, state.Page)
	assert.Equal(t, 100, state.PercentComplete)

	state, err = svc.Navigate(ctx, sid, NavStart, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, state.Page)
	assert.True(t, state.IsFirstPage)
}

func TestNavigate_UnknownAction(t *testing.T) {
	svc, _ := setupTestReader(t)
	ctx := context.Background()

	sid := openAndMount(t, svc, "book-1", 1000, 5000)

	_, err := svc.Navigate(ctx, sid, NavAction("sideways"), 0)
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestNavigate_UnknownSession(t *testing.T) {
	svc, _ := setupTestReader(t)

	_, err := svc.Navigate(context.Background(), "rdr-missing", NavNext, 0)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestUpdateSettings_TriggersRecalculation(t *testing.T) {
	svc, _ := setupTestReader(t)
	ctx := context.Background()

	sid := openAndMount(t, svc, "book-1", 1000, 10000)
	_, err := svc.Navigate(ctx, sid, NavGoTo, 9)
	require.NoError(t, err)

	// The reflow under the new settings shrinks the content.
	_, err = svc.ReportGeometry(ctx, sid, GeometryRequest{ViewportWidth: 1000, ContentWidth: 3000})
	require.NoError(t, err)

	settings := SettingsRequest{FontSize: 12, LineHeight: 1.2, Margins: 16, Columns: 1}
	_, err = svc.UpdateSettings(ctx, sid, settings)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		s, err := svc.State(ctx, sid)
		return err == nil && s.TotalPages == 3 && s.Page == 2
	}, time.Second, 5*time.Millisecond)
}

func TestUpdateSettings_IdenticalPayloadIsNoop(t *testing.T) {
	svc, _ := setupTestReader(t)
	ctx := context.Background()

	sid := openAndMount(t, svc, "book-1", 1000, 5000)

	defaults := domain.DefaultReaderSettings()
	state, err := svc.UpdateSettings(ctx, sid, SettingsRequest{
		FontSize:   defaults.FontSize,
		LineHeight: defaults.LineHeight,
		Margins:    defaults.Margins,
		Columns:    defaults.Columns,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, state.TotalPages)
}

func TestContinuousMode_SessionReportsNeutralState(t *testing.T) {
	svc, _ := setupTestReader(t)
	ctx := context.Background()

	state, err := svc.Open(ctx, OpenRequest{ContentID: "book-1", Mode: "continuous"})
	require.NoError(t, err)
	sid := state.SessionID

	_, err = svc.ReportGeometry(ctx, sid, GeometryRequest{
		ViewportWidth:   1000,
		ContentWidth:    50000,
		MaxScrollExtent: 49000,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, err := svc.State(ctx, sid)
		return err == nil && s.Ready
	}, time.Second, 5*time.Millisecond)

	state, err = svc.Navigate(ctx, sid, NavEnd, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, state.TotalPages)
	assert.Equal(t, 0, state.Page)
	assert.Equal(t, 0, state.PercentComplete)
	require.NotNil(t, state.ScrollToOffset)
	assert.Equal(t, 49000.0, *state.ScrollToOffset)
}

func TestClose_RemovesSession(t *testing.T) {
	svc, _ := setupTestReader(t)
	ctx := context.Background()

	sid := openAndMount(t, svc, "book-1", 1000, 5000)

	require.NoError(t, svc.Close(ctx, sid))

	_, err := svc.State(ctx, sid)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, svc.Close(ctx, sid), ErrSessionNotFound)
}

func TestClose_PositionSurvivesSession(t *testing.T) {
	svc, testStore := setupTestReader(t)
	ctx := context.Background()

	sid := openAndMount(t, svc, "book-1", 1000, 5000)
	_, err := svc.Navigate(ctx, sid, NavGoTo, 3)
	require.NoError(t, err)
	require.NoError(t, svc.Close(ctx, sid))

	pos, err := testStore.GetPosition(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, 3, pos.Page)
}

func TestEvictIdle(t *testing.T) {
	svc, _ := setupTestReader(t)
	ctx := context.Background()

	sid := openAndMount(t, svc, "book-1", 1000, 5000)

	// A cutoff in the future makes every session idle.
	svc.evictIdle(time.Now().Add(time.Hour))

	_, err := svc.State(ctx, sid)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPosition_ReadsPersistedRecord(t *testing.T) {
	svc, testStore := setupTestReader(t)
	ctx := context.Background()

	require.NoError(t, testStore.SavePosition(ctx, domain.NewPagePosition("book-9", 2, 4, domain.DefaultReaderSettings())))

	pos, err := svc.Position(ctx, "book-9")
	require.NoError(t, err)
	assert.Equal(t, 2, pos.Page)

	_, err = svc.Position(ctx, "unknown")
	assert.ErrorIs(t, err, store.ErrPositionNotFound)
}
