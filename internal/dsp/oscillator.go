// internal/dsp/oscillator.go
package dsp

import (
	"math"
	"sync/atomic"
	"time"
)

// OscillatorConfig holds sidetone synthesis parameters.
type OscillatorConfig struct {
	// SampleRate is the output rate in Hz (from config: sample_rate)
	SampleRate float64
	// Frequency is the initial tone pitch in Hz (from config: tone_frequency)
	Frequency float64
	// Amplitude is the peak level, 0 to 1
	Amplitude float64
	// Ramp is the attack and release time that keeps keying free of clicks
	Ramp time.Duration
}

// DefaultOscillatorConfig returns a 600 Hz tone at 48 kHz with a 5ms ramp.
func DefaultOscillatorConfig() OscillatorConfig {
	return OscillatorConfig{
		SampleRate: 48000,
		Frequency:  600,
		Amplitude:  0.5,
		Ramp:       5 * time.Millisecond,
	}
}

// Oscillator renders a keyed sine wave. Key and SetFrequency may be called
// from any goroutine; Fill must only be called from the audio thread.
type Oscillator struct {
	sampleRate float64
	amplitude  float64
	rampStep   float64

	keyed     atomic.Bool
	frequency atomic.Uint64 // math.Float64bits

	// audio thread only
	phase    float64
	envelope float64
}

// NewOscillator creates a silent oscillator.
func NewOscillator(cfg OscillatorConfig) (*Oscillator, error) {
	if err := checkFrequency(cfg.Frequency, cfg.SampleRate); err != nil {
		return nil, err
	}
	amp := cfg.Amplitude
	if amp <= 0 || amp > 1 {
		amp = 1
	}
	step := 1.0
	if rampSamples := cfg.Ramp.Seconds() * cfg.SampleRate; rampSamples > 1 {
		step = 1.0 / rampSamples
	}
	o := &Oscillator{
		sampleRate: cfg.SampleRate,
		amplitude:  amp,
		rampStep:   step,
	}
	o.frequency.Store(math.Float64bits(cfg.Frequency))
	return o, nil
}

// SetFrequency changes the pitch. The phase is kept so the change is smooth.
func (o *Oscillator) SetFrequency(frequency float64) error {
	if err := checkFrequency(frequency, o.sampleRate); err != nil {
		return err
	}
	o.frequency.Store(math.Float64bits(frequency))
	return nil
}

// Frequency returns the current pitch.
func (o *Oscillator) Frequency() float64 {
	return math.Float64frombits(o.frequency.Load())
}

// Key turns the tone on or off. The envelope ramps rather than switching.
func (o *Oscillator) Key(on bool) {
	o.keyed.Store(on)
}

// Keyed reports whether the tone is keyed.
func (o *Oscillator) Keyed() bool {
	return o.keyed.Load()
}

// Fill writes the next len(out) samples.
func (o *Oscillator) Fill(out []float32) {
	keyed := o.keyed.Load()
	inc := 2 * math.Pi * o.Frequency() / o.sampleRate

	for i := range out {
		if keyed {
			o.envelope = math.Min(1, o.envelope+o.rampStep)
		} else {
			o.envelope = math.Max(0, o.envelope-o.rampStep)
		}

		if o.envelope == 0 {
			out[i] = 0
			o.phase = 0
			continue
		}
		out[i] = float32(o.amplitude * o.envelope * math.Sin(o.phase))
		o.phase += inc
		if o.phase >= 2*math.Pi {
			o.phase -= 2 * math.Pi
		}
	}
}
