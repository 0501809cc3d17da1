package editor

import (
	"context"
	"math"
	"sync"
	"time"
)

// Animator advances the drag preview's dash offset on a ticker. It runs
// only between Start and Stop; Stop waits for the loop to exit so no frame
// is emitted afterwards.
type Animator struct {
	interval time.Duration
	step     float64
	period   float64
	onFrame  func(offset float64)

	mu     sync.Mutex
	offset float64
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAnimator creates a stopped animator. onFrame runs on the animator's
// goroutine and must not call Start or Stop.
func NewAnimator(interval time.Duration, step, period float64, onFrame func(offset float64)) *Animator {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	if period <= 0 {
		period = 1
	}
	return &Animator{interval: interval, step: step, period: period, onFrame: onFrame}
}

// Start launches the loop. It is a no-op when already running.
func (a *Animator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.run(ctx, a.done)
}

// Stop cancels the loop and resets the offset. It is a no-op when stopped.
func (a *Animator) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done

	a.mu.Lock()
	a.offset = 0
	a.mu.Unlock()
}

// Running reports whether the loop is active.
func (a *Animator) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancel != nil
}

// Offset returns the current dash offset.
func (a *Animator) Offset() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.offset
}

func (a *Animator) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.mu.Lock()
			a.offset = math.Mod(a.offset+a.step, a.period)
			off := a.offset
			a.mu.Unlock()
			if a.onFrame != nil {
				a.onFrame(off)
			}
		}
	}
}
