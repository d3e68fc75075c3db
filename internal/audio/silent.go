// internal/audio/silent.go
package audio

import "sync/atomic"

// Silent is a tone output that makes no sound. It stands in for the
// player when muted or when no device is available.
type Silent struct {
	on atomic.Bool
}

// ActivateTone records the tone as on.
func (s *Silent) ActivateTone(float64) error {
	s.on.Store(true)
	return nil
}

// DeactivateTone records the tone as off.
func (s *Silent) DeactivateTone() {
	s.on.Store(false)
}

// Sounding reports whether a tone would be playing.
func (s *Silent) Sounding() bool {
	return s.on.Load()
}

// Level is 1 while a tone would be playing.
func (s *Silent) Level() float64 {
	if s.on.Load() {
		return 1
	}
	return 0
}
