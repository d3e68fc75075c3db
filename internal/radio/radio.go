// internal/radio/radio.go
// Package radio models the half-duplex channel shared by the keyer and the
// audio output.
package radio

import (
	"errors"
	"fmt"

	"github.com/ColonelBlimp/cwtrainer/internal/cw"
)

var (
	// ErrInvalidTransition indicates a mode change the half-duplex channel forbids
	ErrInvalidTransition = errors.New("invalid radio mode transition")
	// ErrNotTransmitting indicates a tone was requested while not transmitting
	ErrNotTransmitting = errors.New("radio is not transmitting")
	// ErrOutputRequired indicates the channel needs an audio output
	ErrOutputRequired = errors.New("tone output is required")
)

// Mode is the channel state.
type Mode int

const (
	// Off is neither sending nor listening
	Off Mode = iota
	// Receiving is listening to the other station
	Receiving
	// Transmitting is keying our own signal
	Transmitting
)

func (m Mode) String() string {
	switch m {
	case Receiving:
		return "receiving"
	case Transmitting:
		return "transmitting"
	default:
		return "off"
	}
}

// Channel gates an audio output on the radio mode. It implements
// cw.ToneSink: ActivateTone fails unless the channel is transmitting.
type Channel struct {
	mode   Mode
	output cw.ToneSink
	toneOn bool
}

// NewChannel creates a channel in the Off mode.
func NewChannel(output cw.ToneSink) (*Channel, error) {
	if output == nil {
		return nil, ErrOutputRequired
	}
	return &Channel{mode: Off, output: output}, nil
}

// Mode returns the current mode.
func (c *Channel) Mode() Mode {
	return c.mode
}

// SetMode moves the channel to mode. Only Off->Receiving, Off->Transmitting
// and back to Off are allowed; setting the current mode again is a no-op.
// Leaving Transmitting silences any tone left on.
func (c *Channel) SetMode(mode Mode) error {
	if mode == c.mode {
		return nil
	}
	if c.mode != Off && mode != Off {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.mode, mode)
	}
	if c.mode == Transmitting && c.toneOn {
		c.output.DeactivateTone()
		c.toneOn = false
	}
	c.mode = mode
	return nil
}

// SwitchTo reaches mode by way of Off, for callers that own both sides of
// the turn change.
func (c *Channel) SwitchTo(mode Mode) error {
	if c.mode != mode && c.mode != Off && mode != Off {
		if err := c.SetMode(Off); err != nil {
			return err
		}
	}
	return c.SetMode(mode)
}

// ActivateTone forwards to the output only while transmitting.
func (c *Channel) ActivateTone(frequency float64) error {
	if c.mode != Transmitting {
		return fmt.Errorf("%w (mode %s)", ErrNotTransmitting, c.mode)
	}
	if err := c.output.ActivateTone(frequency); err != nil {
		return err
	}
	c.toneOn = true
	return nil
}

// DeactivateTone forwards to the output if a tone is on.
func (c *Channel) DeactivateTone() {
	if !c.toneOn {
		return
	}
	c.output.DeactivateTone()
	c.toneOn = false
}
