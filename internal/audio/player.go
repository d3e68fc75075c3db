// internal/audio/player.go
package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/ColonelBlimp/cwtrainer/internal/dsp"
)

var (
	ErrNotInitialized = errors.New("audio player not initialized")
	ErrAlreadyRunning = errors.New("audio player already running")
	ErrNotRunning     = errors.New("audio player not running")
)

// Config holds audio playback configuration
type Config struct {
	DeviceIndex int     // -1 for default device
	SampleRate  uint32  // e.g., 48000
	BufferSize  uint32  // frames per callback
	Frequency   float64 // initial sidetone pitch in Hz
}

// DefaultConfig returns low-latency defaults for sidetone playback
func DefaultConfig() Config {
	return Config{
		DeviceIndex: -1,
		SampleRate:  48000,
		BufferSize:  256,
		Frequency:   600,
	}
}

// Player renders the sidetone on a playback device. It implements
// cw.ToneSink; the tone state crosses to the audio thread through atomics.
type Player struct {
	config  Config
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	running bool
	mu      sync.Mutex

	osc   *dsp.Oscillator
	meter atomic.Pointer[dsp.Goertzel]
	level atomic.Uint64 // math.Float64bits of the last block's tone magnitude

	// audio thread only
	scratch []float32
}

// New creates a player. Call Init and Start before sound is heard; until
// then tone calls only change state.
func New(cfg Config) (*Player, error) {
	oscCfg := dsp.DefaultOscillatorConfig()
	oscCfg.SampleRate = float64(cfg.SampleRate)
	oscCfg.Frequency = cfg.Frequency
	osc, err := dsp.NewOscillator(oscCfg)
	if err != nil {
		return nil, fmt.Errorf("create oscillator: %w", err)
	}
	p := &Player{
		config:  cfg,
		osc:     osc,
		scratch: make([]float32, cfg.BufferSize),
	}
	if err := p.setMeter(cfg.Frequency); err != nil {
		return nil, err
	}
	return p, nil
}

// Init initializes the audio backend
func (p *Player) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	p.ctx = ctx
	return nil
}

// ListDevices returns available playback devices
func (p *Player) ListDevices() ([]malgo.DeviceInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.devices()
}

func (p *Player) devices() ([]malgo.DeviceInfo, error) {
	if p.ctx == nil {
		return nil, ErrNotInitialized
	}
	infos, err := p.ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return infos, nil
}

// Start opens the playback device. It stops when ctx is cancelled.
func (p *Player) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrAlreadyRunning
	}
	if p.ctx == nil {
		return ErrNotInitialized
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.SampleRate = p.config.SampleRate
	deviceConfig.PeriodSizeInFrames = p.config.BufferSize
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = 1

	if p.config.DeviceIndex >= 0 {
		devices, err := p.devices()
		if err != nil {
			return err
		}
		if p.config.DeviceIndex >= len(devices) {
			return fmt.Errorf("device index %d out of range (have %d devices)",
				p.config.DeviceIndex, len(devices))
		}
		deviceConfig.Playback.DeviceID = devices[p.config.DeviceIndex].ID.Pointer()
	}

	device, err := malgo.InitDevice(p.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: p.render,
	})
	if err != nil {
		return fmt.Errorf("init device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start device: %w", err)
	}

	p.device = device
	p.running = true
	log.Printf("[audio] playback started at %d Hz", p.config.SampleRate)

	go func() {
		<-ctx.Done()
		_ = p.Stop()
	}()
	return nil
}

// Stop closes the playback device
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return ErrNotRunning
	}
	p.stopDevice()
	return nil
}

// Close releases all audio resources
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.stopDevice()
	}
	if p.ctx != nil {
		if err := p.ctx.Uninit(); err != nil {
			return fmt.Errorf("uninit context: %w", err)
		}
		p.ctx.Free()
		p.ctx = nil
	}
	return nil
}

func (p *Player) stopDevice() {
	if p.device != nil {
		_ = p.device.Stop()
		p.device.Uninit()
		p.device = nil
	}
	p.running = false
}

// IsRunning returns true if playback is active
func (p *Player) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// ActivateTone keys the sidetone at frequency.
func (p *Player) ActivateTone(frequency float64) error {
	if frequency != p.osc.Frequency() {
		if err := p.osc.SetFrequency(frequency); err != nil {
			return err
		}
		if err := p.setMeter(frequency); err != nil {
			return err
		}
	}
	p.osc.Key(true)
	return nil
}

// DeactivateTone releases the sidetone.
func (p *Player) DeactivateTone() {
	p.osc.Key(false)
}

// Sounding reports whether the tone is keyed.
func (p *Player) Sounding() bool {
	return p.osc.Keyed()
}

// Level returns the sidetone magnitude of the most recent block, 0 to 1.
func (p *Player) Level() float64 {
	return math.Float64frombits(p.level.Load())
}

func (p *Player) setMeter(frequency float64) error {
	m, err := dsp.NewGoertzel(frequency, float64(p.config.SampleRate), int(p.config.BufferSize))
	if err != nil {
		return fmt.Errorf("create level meter: %w", err)
	}
	p.meter.Store(m)
	return nil
}

// render is the device data callback. It runs on the audio thread.
func (p *Player) render(out, _ []byte, frameCount uint32) {
	n := int(frameCount)
	if cap(p.scratch) < n {
		p.scratch = make([]float32, n)
	}
	samples := p.scratch[:n]
	p.osc.Fill(samples)
	float32ToBytes(samples, out)
	// measure the most recent block when the device asks for more
	m := p.meter.Load()
	tail := samples[max(0, n-m.BlockSize()):]
	p.level.Store(math.Float64bits(m.Magnitude(tail)))
}

// float32ToBytes writes samples as little-endian IEEE 754 into out
func float32ToBytes(samples []float32, out []byte) {
	for i, s := range samples {
		offset := i * 4
		if offset+4 > len(out) {
			return
		}
		binary.LittleEndian.PutUint32(out[offset:], math.Float32bits(s))
	}
}
