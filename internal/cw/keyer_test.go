package cw

import (
	"errors"
	"testing"
	"time"
)

// recordingSink records tone and haptic side effects in order.
type recordingSink struct {
	events  []string
	refuse  bool
	haptics []Element
	on      bool
	overlap bool
}

func (r *recordingSink) ActivateTone(frequency float64) error {
	if r.refuse {
		return errors.New("not transmitting")
	}
	if r.on {
		r.overlap = true
	}
	r.on = true
	r.events = append(r.events, "start")
	return nil
}

func (r *recordingSink) DeactivateTone() {
	r.on = false
	r.events = append(r.events, "stop")
}

func (r *recordingSink) PlayHaptic(e Element) {
	r.haptics = append(r.haptics, e)
}

func (r *recordingSink) count(kind string) int {
	n := 0
	for _, e := range r.events {
		if e == kind {
			n++
		}
	}
	return n
}

// validKeyerConfig returns a valid KeyerConfig for testing
func validKeyerConfig() KeyerConfig {
	return KeyerConfig{
		WPM:           20,
		ToneFrequency: 600,
		HapticEnabled: true,
	}
}

var epoch = time.Unix(1_700_000_000, 0)

func at(ms int) time.Time {
	return epoch.Add(time.Duration(ms) * time.Millisecond)
}

func newTestKeyer(t *testing.T, sink *recordingSink) (*Keyer, *[]Pattern) {
	t.Helper()
	k, err := NewKeyer(validKeyerConfig(), sink, sink)
	if err != nil {
		t.Fatalf("NewKeyer() error = %v", err)
	}
	var completed []Pattern
	k.SetPatternCallback(func(p Pattern) {
		completed = append(completed, p)
	})
	return k, &completed
}

// run ticks the keyer every stepMs from fromMs to toMs inclusive.
func run(k *Keyer, fromMs, toMs, stepMs int) {
	for ms := fromMs; ms <= toMs; ms += stepMs {
		k.Tick(at(ms))
	}
}

func TestNewKeyer_Validation(t *testing.T) {
	if _, err := NewKeyer(validKeyerConfig(), nil, nil); err != ErrToneSinkRequired {
		t.Errorf("NewKeyer(nil sink) error = %v, want ErrToneSinkRequired", err)
	}

	cfg := validKeyerConfig()
	cfg.WPM = 0
	if _, err := NewKeyer(cfg, &recordingSink{}, nil); err != ErrInvalidWPM {
		t.Errorf("NewKeyer() error = %v, want ErrInvalidWPM", err)
	}
}

func TestKeyer_SingleDotDecodesToE(t *testing.T) {
	sink := &recordingSink{}
	k, completed := newTestKeyer(t, sink)
	cfg := k.Config()

	k.Enqueue(Dot)

	k.Tick(at(0))
	if len(sink.events) != 1 || sink.events[0] != "start" {
		t.Fatalf("after tick +0ms events = %v, want [start]", sink.events)
	}

	k.Tick(at(61))
	if len(sink.events) != 2 || sink.events[1] != "stop" {
		t.Fatalf("after tick +61ms events = %v, want [start stop]", sink.events)
	}
	if got := k.Pattern(); !got.Equal(Pattern{Dot}) {
		t.Fatalf("Pattern() = %v, want [Dot]", got)
	}
	if len(*completed) != 0 {
		t.Fatal("pattern completed too early")
	}

	k.Tick(at(61).Add(cfg.PatternCompleteThreshold()))
	if len(*completed) != 1 {
		t.Fatalf("pattern-complete fired %d times, want 1", len(*completed))
	}
	sym, ok := Decode((*completed)[0])
	if !ok || sym != 'E' {
		t.Errorf("Decode(%v) = %q, %v; want 'E'", (*completed)[0], sym, ok)
	}
	if len(k.Pattern()) != 0 {
		t.Error("pattern not cleared after completion")
	}
}

func TestKeyer_PatternNotCompleteBeforeThreshold(t *testing.T) {
	sink := &recordingSink{}
	k, completed := newTestKeyer(t, sink)

	k.Enqueue(Dash)
	// dash ends at 180, threshold 180 -> complete at 360
	run(k, 0, 359, 1)
	if len(*completed) != 0 {
		t.Fatalf("completed at or before 359ms: %v", *completed)
	}
	k.Tick(at(360))
	if len(*completed) != 1 || !(*completed)[0].Equal(Pattern{Dash}) {
		t.Errorf("completed = %v, want [[Dash]]", *completed)
	}
}

func TestKeyer_QueuedElementsFormOnePattern(t *testing.T) {
	sink := &recordingSink{}
	k, completed := newTestKeyer(t, sink)

	// C = -.-.
	for _, e := range []Element{Dash, Dot, Dash, Dot} {
		k.Enqueue(e)
	}
	run(k, 0, 2000, 5)

	if len(*completed) != 1 {
		t.Fatalf("completed %d patterns, want 1: %v", len(*completed), *completed)
	}
	if got := (*completed)[0].String(); got != "-.-." {
		t.Errorf("pattern = %s, want -.-.", got)
	}
	if sym, _ := Decode((*completed)[0]); sym != 'C' {
		t.Errorf("Decode() = %q, want 'C'", sym)
	}
}

func TestKeyer_OneStartOneStopPerElement(t *testing.T) {
	sink := &recordingSink{}
	k, _ := newTestKeyer(t, sink)

	elements := []Element{Dot, Dash, Dash, Dot, Dot, Dash}
	for _, e := range elements {
		k.Enqueue(e)
	}
	run(k, 0, 3000, 7)

	if sink.overlap {
		t.Error("tone-start fired while a tone was already on")
	}
	if sink.count("start") != len(elements) || sink.count("stop") != len(elements) {
		t.Fatalf("starts=%d stops=%d, want %d each", sink.count("start"), sink.count("stop"), len(elements))
	}
	for i, ev := range sink.events {
		want := "start"
		if i%2 == 1 {
			want = "stop"
		}
		if ev != want {
			t.Fatalf("event %d = %s, want %s (events %v)", i, ev, want, sink.events)
		}
	}
	if len(sink.haptics) != len(elements) {
		t.Errorf("haptic fired %d times, want %d", len(sink.haptics), len(elements))
	}
}

func TestKeyer_PatternCompleteAfterLastStop(t *testing.T) {
	sink := &recordingSink{}
	k, _ := newTestKeyer(t, sink)
	k.SetPatternCallback(func(p Pattern) {
		sink.events = append(sink.events, "complete")
	})

	k.Enqueue(Dot)
	k.Enqueue(Dash)
	run(k, 0, 1000, 10)

	want := []string{"start", "stop", "start", "stop", "complete"}
	if len(sink.events) != len(want) {
		t.Fatalf("events = %v, want %v", sink.events, want)
	}
	for i := range want {
		if sink.events[i] != want[i] {
			t.Fatalf("events = %v, want %v", sink.events, want)
		}
	}
}

func TestKeyer_HapticDisabled(t *testing.T) {
	sink := &recordingSink{}
	cfg := validKeyerConfig()
	cfg.HapticEnabled = false
	k, err := NewKeyer(cfg, sink, sink)
	if err != nil {
		t.Fatalf("NewKeyer() error = %v", err)
	}
	k.Enqueue(Dot)
	run(k, 0, 500, 10)
	if len(sink.haptics) != 0 {
		t.Errorf("haptic fired %d times with haptics disabled", len(sink.haptics))
	}
}

func TestKeyer_SqueezeAlternates(t *testing.T) {
	sink := &recordingSink{}
	k, completed := newTestKeyer(t, sink)

	k.UpdatePaddle(PaddleState{DotHeld: true, DashHeld: true})
	run(k, 0, 1000, 5)
	k.UpdatePaddle(PaddleState{})
	run(k, 1005, 3000, 5)

	if len(*completed) != 1 {
		t.Fatalf("completed %d patterns, want 1", len(*completed))
	}
	p := (*completed)[0]
	if len(p) < 4 {
		t.Fatalf("squeeze produced only %d elements: %s", len(p), p)
	}
	for i := 1; i < len(p); i++ {
		if p[i] == p[i-1] {
			t.Fatalf("squeeze repeated element at %d: %s", i, p)
		}
	}
	if p[0] != Dot {
		t.Errorf("squeeze started with %s, want dot (pressed first)", p[0])
	}
}

func TestKeyer_SinglePaddleRepeats(t *testing.T) {
	sink := &recordingSink{}
	k, completed := newTestKeyer(t, sink)

	k.UpdatePaddle(PaddleState{DashHeld: true})
	// dash 180 + gap 60 = 240 per element; hold across three elements
	run(k, 0, 600, 5)
	k.UpdatePaddle(PaddleState{})
	run(k, 605, 2000, 5)

	if len(*completed) != 1 {
		t.Fatalf("completed %d patterns, want 1", len(*completed))
	}
	if got := (*completed)[0].String(); got != "---" {
		t.Errorf("pattern = %s, want ---", got)
	}
}

func TestKeyer_ReleaseMidElementDoesNotAbort(t *testing.T) {
	sink := &recordingSink{}
	k, completed := newTestKeyer(t, sink)

	k.UpdatePaddle(PaddleState{DashHeld: true})
	k.Tick(at(0))
	k.UpdatePaddle(PaddleState{})
	k.Tick(at(50))
	if !k.Sending() {
		t.Fatal("element aborted on paddle release")
	}
	run(k, 55, 1000, 5)

	if sink.count("stop") != 1 {
		t.Errorf("stops = %d, want 1", sink.count("stop"))
	}
	if len(*completed) != 1 || (*completed)[0].String() != "-" {
		t.Errorf("completed = %v, want [-]", *completed)
	}
}

func TestKeyer_PaddleTapShorterThanTickIsLatched(t *testing.T) {
	sink := &recordingSink{}
	k, completed := newTestKeyer(t, sink)

	k.UpdatePaddle(PaddleState{DotHeld: true})
	k.UpdatePaddle(PaddleState{})
	run(k, 0, 1000, 10)

	if len(*completed) != 1 || (*completed)[0].String() != "." {
		t.Errorf("completed = %v, want [.]", *completed)
	}
}

func TestKeyer_QueueDrainsBeforePaddle(t *testing.T) {
	sink := &recordingSink{}
	k, completed := newTestKeyer(t, sink)

	k.Enqueue(Dash)
	k.Enqueue(Dash)
	k.UpdatePaddle(PaddleState{DotHeld: true})
	k.Tick(at(0))
	k.UpdatePaddle(PaddleState{})
	run(k, 5, 2000, 5)

	if len(*completed) != 1 {
		t.Fatalf("completed %d patterns, want 1", len(*completed))
	}
	// Explicit taps first, then the latched paddle dot
	if got := (*completed)[0].String(); got != "--." {
		t.Errorf("pattern = %s, want --.", got)
	}
}

func TestKeyer_Reset(t *testing.T) {
	sink := &recordingSink{}
	k, completed := newTestKeyer(t, sink)

	k.Enqueue(Dot)
	k.Enqueue(Dash)
	k.Tick(at(0))
	k.Reset()

	if sink.count("stop") != 1 {
		t.Errorf("Reset() mid-element should pay the owed tone-stop, events = %v", sink.events)
	}
	if !k.Idle() || k.Pending() != 0 || len(k.Pattern()) != 0 {
		t.Error("Reset() did not leave keyer idle and empty")
	}

	run(k, 10, 2000, 10)
	if len(*completed) != 0 {
		t.Errorf("pattern-complete fired after Reset(): %v", *completed)
	}
	if sink.count("start") != 1 {
		t.Errorf("queued element played after Reset(), events = %v", sink.events)
	}
}

func TestKeyer_ResetIdempotent(t *testing.T) {
	sink := &recordingSink{}
	k, _ := newTestKeyer(t, sink)

	k.Enqueue(Dot)
	k.Tick(at(0))
	k.Reset()
	events := len(sink.events)
	k.Reset()

	if len(sink.events) != events {
		t.Errorf("second Reset() fired side effects: %v", sink.events)
	}
	if !k.Idle() || len(k.Pattern()) != 0 {
		t.Error("keyer not idle after double Reset()")
	}
}

func TestKeyer_RefusedToneIsAbsorbed(t *testing.T) {
	sink := &recordingSink{refuse: true}
	k, completed := newTestKeyer(t, sink)

	k.Enqueue(Dot)
	run(k, 0, 1000, 10)

	if len(sink.events) != 0 {
		t.Errorf("events = %v, want none when tone is refused", sink.events)
	}
	if len(*completed) != 1 {
		t.Errorf("refused tone should still produce the element, completed = %v", *completed)
	}
}

func TestKeyer_ConfigureMidElement(t *testing.T) {
	sink := &recordingSink{}
	k, _ := newTestKeyer(t, sink)

	k.Enqueue(Dot)
	k.Tick(at(0))

	slower := validKeyerConfig()
	slower.WPM = 10
	if err := k.Configure(slower); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	// Old 60ms dot still applies
	k.Tick(at(60))
	if k.Sending() {
		t.Error("in-flight element picked up new timing")
	}

	bad := slower
	bad.WPM = 0
	if err := k.Configure(bad); err != ErrInvalidWPM {
		t.Errorf("Configure() error = %v, want ErrInvalidWPM", err)
	}
	if k.Config().WPM != 10 {
		t.Errorf("Config().WPM = %d, want 10", k.Config().WPM)
	}
}

func TestKeyer_WordGapFiresOnce(t *testing.T) {
	sink := &recordingSink{}
	k, _ := newTestKeyer(t, sink)
	gaps := 0
	k.SetWordGapCallback(func() { gaps++ })

	k.Enqueue(Dot)
	// dot ends at 60, word gap at 60+420 = 480
	run(k, 0, 470, 10)
	if gaps != 0 {
		t.Fatalf("word gap fired early")
	}
	run(k, 480, 3000, 10)
	if gaps != 1 {
		t.Errorf("word gap fired %d times, want 1", gaps)
	}
}

func TestKeyer_NoWordGapWithinWord(t *testing.T) {
	sink := &recordingSink{}
	k, completed := newTestKeyer(t, sink)
	gaps := 0
	k.SetWordGapCallback(func() { gaps++ })

	k.Enqueue(Dot)
	run(k, 0, 300, 10) // E completes at 240
	k.Enqueue(Dash)
	run(k, 310, 2000, 10)

	if len(*completed) != 2 {
		t.Fatalf("completed %d patterns, want 2", len(*completed))
	}
	if gaps != 1 {
		t.Errorf("word gap fired %d times, want 1 (only after the last symbol)", gaps)
	}
}
