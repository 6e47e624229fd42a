package common

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatchdog_Timeout(t *testing.T) {
	w := NewWatchdog(50*time.Millisecond, quietLogger())
	done := w.Start()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		require.FailNow(t, "Watchdog did not fire")
	}
	assert.True(t, w.Fired())
}

func TestWatchdog_Kick(t *testing.T) {
	w := NewWatchdog(100*time.Millisecond, quietLogger())
	done := w.Start()

	// keep it alive well past the timeout
	for range 5 {
		time.Sleep(40 * time.Millisecond)
		w.Kick()
	}
	select {
	case <-done:
		require.FailNow(t, "Watchdog fired despite kicks")
	default:
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		require.FailNow(t, "Watchdog did not fire eventually")
	}
}

func TestWatchdog_Stop(t *testing.T) {
	w := NewWatchdog(50*time.Millisecond, quietLogger())
	done := w.Start()
	w.Stop()

	select {
	case <-done:
		require.FailNow(t, "Watchdog fired after stop")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatchdog_Zero(t *testing.T) {
	w := NewWatchdog(0, nil)
	done := w.Start()
	w.Kick()

	select {
	case <-done:
		require.FailNow(t, "Zero timeout fired")
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, w.Fired())
}
