// internal/session/drill.go
package session

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"github.com/ColonelBlimp/cwtrainer/internal/cw"
	"github.com/ColonelBlimp/cwtrainer/internal/model"
)

var (
	// ErrNoSymbols indicates a drill with an empty symbol set
	ErrNoSymbols = errors.New("drill needs at least one symbol")
	// ErrSubmitUnsupported indicates the exercise scores symbols as they are keyed
	ErrSubmitUnsupported = errors.New("exercise does not take submissions")
)

// Drill asks for random symbols one at a time and scores each as soon as it
// is keyed. A miss plays the correct pattern before the user tries again.
type Drill struct {
	symbols []rune
	count   int
	rnd     *rand.Rand

	target   rune
	attempts int
	correct  int
	finished bool
}

// NewDrill creates a drill of count attempts over symbols. Every symbol must
// be in the code table.
func NewDrill(symbols []rune, count int, seed int64) (*Drill, error) {
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}
	if count < 1 {
		return nil, fmt.Errorf("drill count must be at least 1, got %d", count)
	}
	set := make([]rune, 0, len(symbols))
	seen := map[rune]bool{}
	for _, r := range symbols {
		r = []rune(strings.ToUpper(string(r)))[0]
		if r == ' ' || seen[r] {
			continue
		}
		if _, ok := cw.PatternFor(r); !ok {
			return nil, fmt.Errorf("%w: %q", cw.ErrUnknownSymbol, r)
		}
		seen[r] = true
		set = append(set, r)
	}
	if len(set) == 0 {
		return nil, ErrNoSymbols
	}
	return &Drill{
		symbols: set,
		count:   count,
		rnd:     rand.New(rand.NewSource(seed)),
	}, nil
}

// Name implements Exercise.
func (d *Drill) Name() string {
	return "drill"
}

// Begin implements Exercise.
func (d *Drill) Begin(s *Session) error {
	return d.next(s)
}

// Symbol scores the keyed symbol against the target.
func (d *Drill) Symbol(s *Session, sym rune, p cw.Pattern, ok bool) {
	d.attempts++
	want, _ := cw.PatternFor(d.target)
	hit := ok && sym == d.target

	actual := string(sym)
	if !ok {
		actual = p.String()
	}
	s.record(model.Attempt{
		Kind:     model.KindSymbol,
		Expected: string(d.target),
		Actual:   actual,
		Correct:  hit,
	})
	fb := Feedback{Correct: hit, Expected: string(d.target), Actual: actual}
	if !hit {
		fb.Hint = string(d.target) + " is " + want.String()
	}
	s.feedback = &fb

	if hit {
		d.correct++
		if err := d.next(s); err != nil {
			log.Printf("[drill] next symbol: %v", err)
		}
		return
	}
	if err := s.replay(want); err != nil {
		log.Printf("[drill] replay %c: %v", d.target, err)
	}
}

// PlaybackDone resumes keying on the same symbol after a replay.
func (d *Drill) PlaybackDone(s *Session) {
	if d.attempts >= d.count {
		d.finished = true
		s.finish()
		return
	}
	if err := s.awaitKeying(); err != nil {
		log.Printf("[drill] resume keying: %v", err)
	}
}

// Submit implements Exercise. Drills score per symbol.
func (d *Drill) Submit(*Session, string) (Feedback, error) {
	return Feedback{}, ErrSubmitUnsupported
}

// Prompt shows the symbol to key.
func (d *Drill) Prompt() string {
	if d.finished || d.target == 0 {
		return ""
	}
	return string(d.target)
}

// Abort implements Exercise.
func (d *Drill) Abort() {
	d.finished = true
}

// Target returns the symbol currently asked for.
func (d *Drill) Target() rune {
	return d.target
}

// Score returns correct answers and attempts so far.
func (d *Drill) Score() (correct, attempts int) {
	return d.correct, d.attempts
}

// Remaining returns how many attempts are left.
func (d *Drill) Remaining() int {
	return d.count - d.attempts
}

func (d *Drill) next(s *Session) error {
	if d.attempts >= d.count {
		d.finished = true
		s.finish()
		return nil
	}
	d.target = d.symbols[d.rnd.Intn(len(d.symbols))]
	return s.awaitKeying()
}
