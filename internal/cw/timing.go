// internal/cw/timing.go
package cw

import (
	"errors"
	"time"
)

// Morse code timing ratios (ITU standard)
// These are fixed ratios defined by the International Telecommunication Union
const (
	// DahDitRatio is the ratio of dah duration to dit duration (ITU: 3:1)
	DahDitRatio = 3.0
	// IntraCharSpaceRatio is the ratio of space between elements within a character to dit (ITU: 1:1)
	IntraCharSpaceRatio = 1.0
	// InterCharSpaceRatio is the ratio of space between characters to dit (ITU: 3:1)
	// The keyer treats this much silence as "pattern complete"
	InterCharSpaceRatio = 3.0
	// WordSpaceRatio is the ratio of space between words to dit (ITU: 7:1)
	WordSpaceRatio = 7.0

	// UnitMillisecondsAtOneWPM is the dit length at 1 WPM, from the standard
	// word "PARIS" = 50 dit units: 60000 / 50
	UnitMillisecondsAtOneWPM = 1200
)

var (
	// ErrInvalidWPM indicates WPM must be positive
	ErrInvalidWPM = errors.New("WPM must be positive")
	// ErrInvalidFarnsworthWPM indicates Farnsworth WPM must not exceed character WPM
	ErrInvalidFarnsworthWPM = errors.New("farnsworth WPM must not exceed character WPM")
	// ErrInvalidFrequency indicates the tone frequency must be positive
	ErrInvalidFrequency = errors.New("tone frequency must be positive")
)

// KeyerConfig holds the user-tunable keyer parameters.
// Values arrive already clamped by the settings layer; Validate only
// rejects values that would make the timing meaningless.
type KeyerConfig struct {
	// WPM is the element speed in words per minute (from config: wpm)
	WPM int
	// FarnsworthWPM is the effective speed used for spacing (0 = same as WPM) (from config: farnsworth_wpm)
	// When lower than WPM, gaps between characters and words are stretched
	// while the elements themselves keep their WPM timing
	FarnsworthWPM int
	// ToneFrequency is the sidetone pitch in Hz (from config: tone_frequency)
	ToneFrequency float64
	// HapticEnabled fires a haptic pulse for every element (from config: haptic_enabled)
	HapticEnabled bool
}

// Validate checks that the configuration yields usable timing.
func (c KeyerConfig) Validate() error {
	if c.WPM <= 0 {
		return ErrInvalidWPM
	}
	if c.FarnsworthWPM < 0 || c.FarnsworthWPM > c.WPM {
		return ErrInvalidFarnsworthWPM
	}
	if c.ToneFrequency <= 0 {
		return ErrInvalidFrequency
	}
	return nil
}

// Unit returns the dit length u = 1200ms / WPM.
func (c KeyerConfig) Unit() time.Duration {
	return unitFor(c.WPM)
}

// DotDuration is one unit.
func (c KeyerConfig) DotDuration() time.Duration {
	return c.Unit()
}

// DashDuration is three units.
func (c KeyerConfig) DashDuration() time.Duration {
	return time.Duration(DahDitRatio) * c.Unit()
}

// IntraElementGap is the silence between elements of one symbol.
func (c KeyerConfig) IntraElementGap() time.Duration {
	return time.Duration(IntraCharSpaceRatio) * c.Unit()
}

// PatternCompleteThreshold is the silence after which the accumulated
// pattern is considered a finished symbol.
func (c KeyerConfig) PatternCompleteThreshold() time.Duration {
	return time.Duration(InterCharSpaceRatio) * c.spacingUnit()
}

// WordGapThreshold is the silence after which a word boundary is reported.
func (c KeyerConfig) WordGapThreshold() time.Duration {
	return time.Duration(WordSpaceRatio) * c.spacingUnit()
}

// ElementDuration returns the tone length of e.
func (c KeyerConfig) ElementDuration(e Element) time.Duration {
	if e == Dash {
		return c.DashDuration()
	}
	return c.DotDuration()
}

// spacingUnit is the unit used for character and word gaps. With Farnsworth
// timing it is derived from the slower effective speed.
func (c KeyerConfig) spacingUnit() time.Duration {
	if c.FarnsworthWPM > 0 && c.FarnsworthWPM < c.WPM {
		return unitFor(c.FarnsworthWPM)
	}
	return c.Unit()
}

func unitFor(wpm int) time.Duration {
	if wpm <= 0 {
		return 0
	}
	return time.Duration(UnitMillisecondsAtOneWPM) * time.Millisecond / time.Duration(wpm)
}
