// internal/cw/sender.go
package cw

import (
	"errors"
	"log"
	"strings"
	"time"
)

// ErrSenderBusy indicates a transmission is already in progress
var ErrSenderBusy = errors.New("sender is busy")

// step is one scheduled slice of a transmission: a tone or a silence.
type step struct {
	on  bool
	dur time.Duration
	// revealed is the number of characters of the text fully sent once
	// this step has finished
	revealed int
}

// Sender plays text as correctly timed tone elements. Like the Keyer it is
// driven purely by Tick and owns no timer.
type Sender struct {
	config KeyerConfig
	tone   ToneSink

	text      string
	steps     []step
	idx       int
	stepStart time.Time
	active    bool
	toneOn    bool
	revealed  int

	onDone func()
}

// NewSender creates an idle sender.
func NewSender(cfg KeyerConfig, tone ToneSink) (*Sender, error) {
	if tone == nil {
		return nil, ErrToneSinkRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sender{config: cfg, tone: tone}, nil
}

// SetDoneCallback sets the callback fired when a transmission finishes on
// its own. Stop does not fire it.
func (s *Sender) SetDoneCallback(cb func()) {
	s.onDone = cb
}

// Configure replaces the timing used for the next transmission.
func (s *Sender) Configure(cfg KeyerConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.config = cfg
	return nil
}

// Send starts transmitting text at now. Characters without a pattern are
// rejected before anything is sent.
func (s *Sender) Send(text string, now time.Time) error {
	if s.active {
		return ErrSenderBusy
	}
	text = strings.Join(strings.Fields(strings.ToUpper(text)), " ")
	words, err := EncodeText(text)
	if err != nil {
		return err
	}
	s.begin(text, s.schedule(words), now)
	return nil
}

// SendPattern transmits a single pattern, labelled with its symbol if known.
func (s *Sender) SendPattern(p Pattern, now time.Time) error {
	if s.active {
		return ErrSenderBusy
	}
	label := p.String()
	if sym, ok := Lookup(p); ok {
		label = string(sym)
	}
	steps := s.schedule([][]Pattern{{p}})
	if len(steps) > 0 {
		steps[len(steps)-1].revealed = len(label)
	}
	s.begin(label, steps, now)
	return nil
}

// Tick advances the transmission to now.
func (s *Sender) Tick(now time.Time) {
	for s.active {
		cur := s.steps[s.idx]
		end := s.stepStart.Add(cur.dur)
		if now.Before(end) {
			return
		}
		if cur.on && s.toneOn {
			s.tone.DeactivateTone()
			s.toneOn = false
		}
		s.revealed = cur.revealed
		s.idx++
		s.stepStart = end
		if s.idx >= len(s.steps) {
			s.finish()
			return
		}
		if s.steps[s.idx].on {
			s.activate()
		}
	}
}

// Stop abandons the transmission. A sounding tone is stopped.
func (s *Sender) Stop() {
	if s.toneOn {
		s.tone.DeactivateTone()
		s.toneOn = false
	}
	s.active = false
	s.steps = nil
	s.idx = 0
}

// Busy reports whether a transmission is in progress.
func (s *Sender) Busy() bool {
	return s.active
}

// Text returns the text of the current or last transmission.
func (s *Sender) Text() string {
	return s.text
}

// Sent returns the part of the text whose characters have been fully sent.
func (s *Sender) Sent() string {
	if s.revealed >= len(s.text) {
		return s.text
	}
	return s.text[:s.revealed]
}

// Duration returns the total length of the current transmission.
func (s *Sender) Duration() time.Duration {
	var d time.Duration
	for _, st := range s.steps {
		d += st.dur
	}
	return d
}

func (s *Sender) begin(text string, steps []step, now time.Time) {
	s.text = text
	s.steps = steps
	s.idx = 0
	s.revealed = 0
	s.stepStart = now
	if len(steps) == 0 {
		s.revealed = len(text)
		if s.onDone != nil {
			s.onDone()
		}
		return
	}
	s.active = true
	if steps[0].on {
		s.activate()
	}
}

func (s *Sender) finish() {
	s.active = false
	s.revealed = len(s.text)
	if s.onDone != nil {
		s.onDone()
	}
}

func (s *Sender) activate() {
	if err := s.tone.ActivateTone(s.config.ToneFrequency); err != nil {
		log.Printf("[sender] tone activation dropped: %v", err)
		s.toneOn = false
		return
	}
	s.toneOn = true
}

// schedule lays out elements and gaps using ITU spacing. No trailing gap is
// scheduled after the final element.
func (s *Sender) schedule(words [][]Pattern) []step {
	var steps []step
	revealed := 0
	for wi, word := range words {
		if wi > 0 {
			revealed++ // the space between words
			steps = append(steps, step{dur: s.config.WordGapThreshold(), revealed: revealed})
		}
		for ci, p := range word {
			if ci > 0 {
				steps = append(steps, step{dur: s.config.PatternCompleteThreshold(), revealed: revealed})
			}
			for ei, e := range p {
				if ei > 0 {
					steps = append(steps, step{dur: s.config.IntraElementGap(), revealed: revealed})
				}
				steps = append(steps, step{on: true, dur: s.config.ElementDuration(e), revealed: revealed})
			}
			revealed++
			steps[len(steps)-1].revealed = revealed
		}
	}
	return steps
}
