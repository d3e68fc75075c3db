// internal/tui/haptic.go
package tui

import (
	"sync"
	"time"

	"github.com/ColonelBlimp/cwtrainer/internal/clock"
	"github.com/ColonelBlimp/cwtrainer/internal/cw"
)

// Flash is a visual stand-in for haptic feedback: every keyed element
// lights the key indicator for a moment.
type Flash struct {
	mu      sync.Mutex
	clock   clock.Clock
	hold    time.Duration
	until   time.Time
	element cw.Element
}

// NewFlash returns a flash that stays lit for hold after each element.
func NewFlash(clk clock.Clock, hold time.Duration) *Flash {
	if clk == nil {
		clk = clock.System{}
	}
	return &Flash{clock: clk, hold: hold}
}

// PlayHaptic implements cw.HapticSink.
func (f *Flash) PlayHaptic(e cw.Element) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.element = e
	f.until = f.clock.Now().Add(f.hold)
}

// Lit reports whether the indicator is on at now, and for which element.
func (f *Flash) Lit(now time.Time) (cw.Element, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.element, now.Before(f.until)
}
