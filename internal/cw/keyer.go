// internal/cw/keyer.go
package cw

import (
	"errors"
	"log"
	"time"
)

// ErrToneSinkRequired indicates a keyer needs somewhere to send tone on/off
var ErrToneSinkRequired = errors.New("tone sink is required")

// ToneSink receives tone on/off requests. ActivateTone may refuse, e.g. when
// the radio is not transmitting; the keyer absorbs the refusal.
type ToneSink interface {
	ActivateTone(frequency float64) error
	DeactivateTone()
}

// HapticSink receives one pulse per element. Fire-and-forget.
type HapticSink interface {
	PlayHaptic(e Element)
}

// PatternCallback is called when silence marks the accumulated pattern as a
// finished symbol. The pattern is owned by the callee.
type PatternCallback func(p Pattern)

// WordGapCallback is called once when silence after a finished symbol
// reaches the word gap threshold.
type WordGapCallback func()

// PaddleState is the continuous state of an iambic paddle.
type PaddleState struct {
	DotHeld  bool
	DashHeld bool
}

type keyerState int

const (
	stateIdle keyerState = iota
	stateSending
	stateGap
)

func (s keyerState) String() string {
	switch s {
	case stateSending:
		return "sending"
	case stateGap:
		return "gap"
	default:
		return "idle"
	}
}

// Keyer turns taps and paddle state into timed elements and patterns.
//
// The keyer never reads a clock: every time-based decision happens in Tick
// as a function of the current state and the supplied time. It is not safe
// for concurrent use; the owner serializes all calls.
type Keyer struct {
	config KeyerConfig
	tone   ToneSink
	haptic HapticSink

	state keyerState

	// Element in flight. elementDur is captured at start so a Configure
	// mid-element does not change it.
	element    Element
	startedAt  time.Time
	elementDur time.Duration
	toneOn     bool

	gapStartedAt time.Time
	idleSince    time.Time
	wordPending  bool

	queue        []Element
	paddle       PaddleState
	dotLatched   bool
	dashLatched  bool
	firstPressed Element

	pattern Pattern

	onPattern PatternCallback
	onWordGap WordGapCallback
}

// NewKeyer creates an idle keyer. haptic may be nil.
func NewKeyer(cfg KeyerConfig, tone ToneSink, haptic HapticSink) (*Keyer, error) {
	if tone == nil {
		return nil, ErrToneSinkRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Keyer{
		config: cfg,
		tone:   tone,
		haptic: haptic,
		state:  stateIdle,
	}, nil
}

// SetPatternCallback sets the pattern-complete callback.
func (k *Keyer) SetPatternCallback(cb PatternCallback) {
	k.onPattern = cb
}

// SetWordGapCallback sets the word gap callback.
func (k *Keyer) SetWordGapCallback(cb WordGapCallback) {
	k.onWordGap = cb
}

// Configure replaces the timing parameters. An element already sounding
// finishes with the duration it started with.
func (k *Keyer) Configure(cfg KeyerConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	k.config = cfg
	return nil
}

// Config returns the active configuration.
func (k *Keyer) Config() KeyerConfig {
	return k.config
}

// Enqueue appends a discrete element. Playback starts on a later Tick.
func (k *Keyer) Enqueue(e Element) {
	k.queue = append(k.queue, e)
}

// UpdatePaddle records the paddle state. A press edge is latched so a tap
// shorter than the tick interval still produces its element.
func (k *Keyer) UpdatePaddle(ps PaddleState) {
	wasIdle := !k.paddle.DotHeld && !k.paddle.DashHeld
	if ps.DotHeld && !k.paddle.DotHeld {
		k.dotLatched = true
		if wasIdle {
			k.firstPressed = Dot
		}
	}
	if ps.DashHeld && !k.paddle.DashHeld {
		k.dashLatched = true
		if wasIdle && !ps.DotHeld {
			k.firstPressed = Dash
		}
	}
	k.paddle = ps
}

// Tick advances the keyer to now. Ticks must not go backwards.
func (k *Keyer) Tick(now time.Time) {
	if k.state == stateSending {
		end := k.startedAt.Add(k.elementDur)
		if now.Before(end) {
			return
		}
		k.finishElement(end)
	}

	if k.state == stateGap {
		silence := now.Sub(k.gapStartedAt)
		if silence >= k.config.IntraElementGap() {
			if next, ok := k.nextElement(); ok {
				k.startElement(next, now)
				return
			}
		}
		if silence < k.config.PatternCompleteThreshold() {
			return
		}
		k.completePattern()
	}

	if next, ok := k.nextElement(); ok {
		k.startElement(next, now)
		return
	}
	if k.wordPending && now.Sub(k.idleSince) >= k.config.WordGapThreshold() {
		k.wordPending = false
		if k.onWordGap != nil {
			k.onWordGap()
		}
	}
}

// Reset drops queued input and the accumulated pattern and returns to idle
// without reporting a pattern. A sounding tone is still stopped.
func (k *Keyer) Reset() {
	if k.state == stateSending && k.toneOn {
		k.tone.DeactivateTone()
	}
	k.state = stateIdle
	k.toneOn = false
	k.elementDur = 0
	k.startedAt = time.Time{}
	k.gapStartedAt = time.Time{}
	k.idleSince = time.Time{}
	k.wordPending = false
	k.queue = nil
	k.paddle = PaddleState{}
	k.dotLatched = false
	k.dashLatched = false
	k.pattern = nil
}

// Pattern returns a copy of the pattern accumulated so far.
func (k *Keyer) Pattern() Pattern {
	return k.pattern.Clone()
}

// Sending reports whether an element is in flight.
func (k *Keyer) Sending() bool {
	return k.state == stateSending
}

// Idle reports whether the keyer has nothing sounding, queued or pending.
func (k *Keyer) Idle() bool {
	return k.state == stateIdle && len(k.queue) == 0 && len(k.pattern) == 0
}

// Pending returns the number of queued elements.
func (k *Keyer) Pending() int {
	return len(k.queue)
}

func (k *Keyer) startElement(e Element, now time.Time) {
	k.state = stateSending
	k.element = e
	k.startedAt = now
	k.elementDur = k.config.ElementDuration(e)
	k.wordPending = false

	if err := k.tone.ActivateTone(k.config.ToneFrequency); err != nil {
		log.Printf("[keyer] tone activation dropped: %v", err)
		k.toneOn = false
	} else {
		k.toneOn = true
	}

	if k.config.HapticEnabled && k.haptic != nil {
		k.haptic.PlayHaptic(e)
	}
}

func (k *Keyer) finishElement(end time.Time) {
	if k.toneOn {
		k.tone.DeactivateTone()
		k.toneOn = false
	}
	k.pattern = append(k.pattern, k.element)
	k.state = stateGap
	k.gapStartedAt = end
}

func (k *Keyer) completePattern() {
	p := k.pattern
	k.pattern = nil
	k.state = stateIdle
	k.idleSince = k.gapStartedAt
	k.wordPending = true
	if len(p) > 0 && k.onPattern != nil {
		k.onPattern(p)
	}
}

// nextElement picks the next element to send. Explicit taps drain first,
// then paddle demand: squeeze alternates, a single paddle repeats.
func (k *Keyer) nextElement() (Element, bool) {
	if len(k.queue) > 0 {
		e := k.queue[0]
		k.queue = k.queue[1:]
		return e, true
	}

	dot := k.paddle.DotHeld || k.dotLatched
	dash := k.paddle.DashHeld || k.dashLatched

	var e Element
	switch {
	case dot && dash:
		if n := len(k.pattern); n > 0 {
			e = opposite(k.pattern[n-1])
		} else {
			e = k.firstPressed
		}
	case dot:
		e = Dot
	case dash:
		e = Dash
	default:
		return 0, false
	}

	if e == Dot {
		k.dotLatched = false
	} else {
		k.dashLatched = false
	}
	return e, true
}

func opposite(e Element) Element {
	if e == Dot {
		return Dash
	}
	return Dot
}
