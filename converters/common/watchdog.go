package common

import (
	"log/slog"
	"sync"
	"time"
)

// Watchdog closes its Done channel when Kick has not been called for
// longer than the timeout. A zero or negative timeout never fires.
type Watchdog struct {
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	doneCh  chan struct{}
	fired   bool
	started bool
}

// NewWatchdog creates a Watchdog. logger may be nil.
func NewWatchdog(timeout time.Duration, logger *slog.Logger) *Watchdog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watchdog{
		timeout: timeout,
		logger:  logger,
		doneCh:  make(chan struct{}),
	}
}

// Start arms the watchdog and returns its Done channel.
func (w *Watchdog) Start() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started || w.timeout <= 0 {
		w.started = true
		return w.doneCh
	}
	w.started = true
	w.timer = time.AfterFunc(w.timeout, w.fire)
	return w.doneCh
}

// Kick records activity and restarts the timeout.
func (w *Watchdog) Kick() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer == nil || w.fired {
		return
	}
	w.timer.Reset(w.timeout)
}

// Stop disarms the watchdog.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
}

// Done returns the channel closed on timeout.
func (w *Watchdog) Done() <-chan struct{} {
	return w.doneCh
}

// Fired reports whether the timeout has elapsed.
func (w *Watchdog) Fired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}

func (w *Watchdog) fire() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fired {
		return
	}
	w.fired = true
	w.logger.Warn("no activity, giving up", "timeout", w.timeout)
	close(w.doneCh)
}
