package reader

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_CoalescesBurst(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var runs atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { runs.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		return runs.Load() == 1
	}, time.Second, 10*time.Millisecond)

	// No stragglers after the window.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}

func TestDebouncer_LastSubmissionWins(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var got atomic.Int32
	d.Trigger(func() { got.Store(1) })
	d.Trigger(func() { got.Store(2) })
	d.Trigger(func() { got.Store(3) })

	assert.Eventually(t, func() bool {
		return got.Load() == 3
	}, time.Second, 10*time.Millisecond)
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var runs atomic.Int32
	d.Trigger(func() { runs.Add(1) })
	d.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, runs.Load())
}

func TestDebouncer_TriggerAfterStopIgnored(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	d.Stop()

	var runs atomic.Int32
	d.Trigger(func() { runs.Add(1) })

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, runs.Load())
}

func TestDebouncer_FlushRunsImmediately(t *testing.T) {
	d := NewDebouncer(time.Hour)
	defer d.Stop()

	var pending, flushed atomic.Int32
	d.Trigger(func() { pending.Add(1) })
	d.Flush(func() { flushed.Add(1) })

	assert.Equal(t, int32(1), flushed.Load())
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, pending.Load())
}
