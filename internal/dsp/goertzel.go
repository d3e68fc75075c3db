// internal/dsp/goertzel.go
package dsp

import (
	"errors"
	"math"
)

var (
	// ErrInvalidBlockSize indicates block size must be positive
	ErrInvalidBlockSize = errors.New("block size must be positive")
	// ErrInvalidSampleRate indicates sample rate must be positive
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidFrequency indicates frequency must be positive and below Nyquist
	ErrInvalidFrequency = errors.New("frequency must be positive and less than Nyquist frequency")
)

// Goertzel measures how strongly one frequency is present in a block of
// samples. The player uses it to report the level of the sidetone it is
// rendering.
type Goertzel struct {
	frequency   float64
	sampleRate  float64
	blockSize   int
	coefficient float64 // 2 * cos(2π * f / fs)
}

// NewGoertzel creates a meter for frequency over blocks of up to blockSize samples.
func NewGoertzel(frequency, sampleRate float64, blockSize int) (*Goertzel, error) {
	if blockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	if err := checkFrequency(frequency, sampleRate); err != nil {
		return nil, err
	}
	return &Goertzel{
		frequency:   frequency,
		sampleRate:  sampleRate,
		blockSize:   blockSize,
		coefficient: 2.0 * math.Cos(2.0*math.Pi*frequency/sampleRate),
	}, nil
}

// Magnitude returns the normalized magnitude of the target frequency over
// the first blockSize samples. A full-scale sine at the target frequency
// reads close to 1.0. An empty block reads 0.
func (g *Goertzel) Magnitude(samples []float32) float64 {
	n := len(samples)
	if n > g.blockSize {
		n = g.blockSize
	}
	if n == 0 {
		return 0
	}

	var s0, s1, s2 float64
	coeff := g.coefficient
	for i := 0; i < n; i++ {
		s0 = float64(samples[i]) + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}

	power := s1*s1 + s2*s2 - coeff*s1*s2
	if power < 0 {
		power = 0
	}
	return math.Sqrt(power) * 2.0 / float64(n)
}

// Frequency returns the measured frequency.
func (g *Goertzel) Frequency() float64 {
	return g.frequency
}

// BlockSize returns the largest block measured.
func (g *Goertzel) BlockSize() int {
	return g.blockSize
}

func checkFrequency(frequency, sampleRate float64) error {
	if sampleRate <= 0 {
		return ErrInvalidSampleRate
	}
	if frequency <= 0 || frequency >= sampleRate/2.0 {
		return ErrInvalidFrequency
	}
	return nil
}
