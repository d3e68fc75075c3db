// internal/session/session.go
// Package session drives keyed practice: it owns the keyer, the radio
// channel, the playback sender and the copy buffer, and hands decoded
// symbols to an Exercise.
package session

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ColonelBlimp/cwtrainer/internal/clock"
	"github.com/ColonelBlimp/cwtrainer/internal/cw"
	"github.com/ColonelBlimp/cwtrainer/internal/model"
	"github.com/ColonelBlimp/cwtrainer/internal/radio"
)

// UnknownSymbol is written to the copy for a pattern with no symbol.
const UnknownSymbol = '?'

var (
	// ErrExerciseRequired indicates a session was created without an exercise
	ErrExerciseRequired = errors.New("exercise is required")
	// ErrNotAccepting indicates input arrived while the session is not keying
	ErrNotAccepting = errors.New("session is not accepting input")
	// ErrAlreadyStarted indicates Start was called twice
	ErrAlreadyStarted = errors.New("session already started")
	// ErrSubmitPending indicates a submission waits for the last keyed symbol
	ErrSubmitPending = errors.New("submission waits for the last symbol")
)

// State is what the session is doing.
type State int

const (
	// StateIdle is before Start
	StateIdle State = iota
	// StateKeying accepts key input from the user
	StateKeying
	// StateReceiving plays a transmission to the user
	StateReceiving
	// StateAwaitingReplay plays the correct pattern after a miss
	StateAwaitingReplay
	// StateFinished is after the exercise ends or the session is aborted
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateKeying:
		return "keying"
	case StateReceiving:
		return "receiving"
	case StateAwaitingReplay:
		return "awaiting replay"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Feedback is the outcome of a scored submission, shown to the user.
type Feedback struct {
	Correct  bool
	Expected string
	Actual   string
	Hint     string
}

// Exercise supplies what to practice and how to score it. Exercises call
// back into the session to play text and to hand the key to the user.
type Exercise interface {
	// Name identifies the exercise in stored sessions.
	Name() string
	// Begin sets up the first turn.
	Begin(s *Session) error
	// Symbol receives each completed pattern. ok is false when the pattern
	// has no symbol.
	Symbol(s *Session, sym rune, p cw.Pattern, ok bool)
	// PlaybackDone is called when a Play or Replay has finished.
	PlaybackDone(s *Session)
	// Submit scores the copy buffer.
	Submit(s *Session, text string) (Feedback, error)
	// Prompt is the text shown to the user for the current turn.
	Prompt() string
	// Abort stops the exercise early.
	Abort()
}

// Config wires a session to its collaborators.
type Config struct {
	Keyer cw.KeyerConfig
	// Output receives every tone. Keyed tones pass through the radio
	// channel; playback goes straight to it.
	Output cw.ToneSink
	Haptic cw.HapticSink
	Clock  clock.Clock
	Stats  model.AttemptSink
}

// Session runs one exercise. Not safe for concurrent use; the host
// serializes Tick and input calls.
type Session struct {
	clock  clock.Clock
	keyer  *cw.Keyer
	radio  *radio.Channel
	sender *cw.Sender
	stats  model.AttemptSink

	exercise Exercise
	state    State
	copy     []rune
	feedback *Feedback

	// Space and Submit pressed while the keyer still holds elements take
	// effect once the last pattern decodes.
	spacePending  bool
	submitPending bool
	now           time.Time

	startedAt time.Time
	endedAt   time.Time
}

// New creates an idle session.
func New(cfg Config, ex Exercise) (*Session, error) {
	if ex == nil {
		return nil, ErrExerciseRequired
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}

	ch, err := radio.NewChannel(cfg.Output)
	if err != nil {
		return nil, err
	}
	k, err := cw.NewKeyer(cfg.Keyer, ch, cfg.Haptic)
	if err != nil {
		return nil, fmt.Errorf("create keyer: %w", err)
	}
	snd, err := cw.NewSender(cfg.Keyer, cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("create sender: %w", err)
	}

	s := &Session{
		clock:    cfg.Clock,
		keyer:    k,
		radio:    ch,
		sender:   snd,
		stats:    cfg.Stats,
		exercise: ex,
		state:    StateIdle,
	}
	k.SetPatternCallback(s.handlePattern)
	k.SetWordGapCallback(s.handleWordGap)
	snd.SetDoneCallback(s.handlePlaybackDone)
	return s, nil
}

// Start begins the exercise.
func (s *Session) Start() error {
	if s.state != StateIdle {
		return ErrAlreadyStarted
	}
	s.now = s.clock.Now()
	s.startedAt = s.now
	log.Printf("[session] starting %s", s.exercise.Name())
	if err := s.exercise.Begin(s); err != nil {
		s.finish()
		return fmt.Errorf("begin %s: %w", s.exercise.Name(), err)
	}
	return nil
}

// Tick advances playback and keying to now.
func (s *Session) Tick(now time.Time) {
	if now.Before(s.now) {
		now = s.now
	}
	s.now = now
	s.sender.Tick(now)
	s.keyer.Tick(now)
}

// UpdatePaddle forwards paddle state while keying.
func (s *Session) UpdatePaddle(ps cw.PaddleState) error {
	if s.state != StateKeying {
		return ErrNotAccepting
	}
	s.keyer.UpdatePaddle(ps)
	return nil
}

// Key queues a single element while keying.
func (s *Session) Key(e cw.Element) error {
	if s.state != StateKeying {
		return ErrNotAccepting
	}
	s.keyer.Enqueue(e)
	return nil
}

// Space ends the current word in the copy without waiting for the gap.
// While elements are still queued or sounding the space follows the
// symbol they decode to.
func (s *Session) Space() {
	if s.state != StateKeying {
		return
	}
	if !s.keyer.Idle() {
		s.spacePending = true
		return
	}
	s.handleWordGap()
}

// Backspace removes the last copied character.
func (s *Session) Backspace() {
	if n := len(s.copy); n > 0 {
		s.copy = s.copy[:n-1]
	}
}

// Submit hands the copy buffer to the exercise for scoring. While the
// keyer still holds elements the submission is deferred until their
// symbol decodes; ErrSubmitPending is returned and the outcome appears in
// LastFeedback.
func (s *Session) Submit() (Feedback, error) {
	if s.state != StateKeying {
		return Feedback{}, ErrNotAccepting
	}
	if !s.keyer.Idle() {
		s.submitPending = true
		return Feedback{}, ErrSubmitPending
	}
	return s.submit()
}

// SubmitPending reports whether a deferred submission is waiting.
func (s *Session) SubmitPending() bool {
	return s.submitPending
}

func (s *Session) submit() (Feedback, error) {
	fb, err := s.exercise.Submit(s, strings.TrimSpace(string(s.copy)))
	if err != nil {
		return fb, err
	}
	s.feedback = &fb
	return fb, nil
}

// Abort ends the session immediately.
func (s *Session) Abort() {
	if s.state == StateFinished {
		return
	}
	s.exercise.Abort()
	s.finish()
}

// Reconfigure applies new timing. A transmission already playing keeps its timing.
func (s *Session) Reconfigure(cfg cw.KeyerConfig) error {
	if err := s.keyer.Configure(cfg); err != nil {
		return err
	}
	return s.sender.Configure(cfg)
}

// State returns the session state.
func (s *Session) State() State {
	return s.state
}

// Accepting reports whether key input is taken.
func (s *Session) Accepting() bool {
	return s.state == StateKeying
}

// Finished reports whether the session has ended.
func (s *Session) Finished() bool {
	return s.state == StateFinished
}

// Copy returns the decoded text keyed so far this turn.
func (s *Session) Copy() string {
	return string(s.copy)
}

// InProgress returns the pattern being keyed, not yet decoded.
func (s *Session) InProgress() cw.Pattern {
	return s.keyer.Pattern()
}

// Playback returns the playing text and how much of it has been sent.
func (s *Session) Playback() (text, sent string) {
	return s.sender.Text(), s.sender.Sent()
}

// LastFeedback returns the most recent scored feedback, if any.
func (s *Session) LastFeedback() (Feedback, bool) {
	if s.feedback == nil {
		return Feedback{}, false
	}
	return *s.feedback, true
}

// RadioMode returns the current radio mode.
func (s *Session) RadioMode() radio.Mode {
	return s.radio.Mode()
}

// Exercise returns the running exercise.
func (s *Session) Exercise() Exercise {
	return s.exercise
}

// Info describes the session for storage.
func (s *Session) Info() model.SessionInfo {
	end := s.endedAt
	if end.IsZero() {
		end = s.now
	}
	return model.SessionInfo{
		StartedAt: s.startedAt,
		EndedAt:   end,
		Mode:      s.exercise.Name(),
		WPM:       s.keyer.Config().WPM,
	}
}

// play transmits text to the user.
func (s *Session) play(text string) error {
	if err := s.enter(StateReceiving, radio.Receiving); err != nil {
		return err
	}
	return s.sender.Send(text, s.now)
}

// replay plays the correct pattern after a miss.
func (s *Session) replay(p cw.Pattern) error {
	if err := s.enter(StateAwaitingReplay, radio.Receiving); err != nil {
		return err
	}
	return s.sender.SendPattern(p, s.now)
}

// awaitKeying hands the key to the user with an empty copy buffer.
func (s *Session) awaitKeying() error {
	s.copy = s.copy[:0]
	s.clearPending()
	if s.state == StateKeying {
		return nil
	}
	return s.enter(StateKeying, radio.Transmitting)
}

func (s *Session) enter(state State, mode radio.Mode) error {
	if s.sender.Busy() {
		s.sender.Stop()
	}
	s.keyer.Reset()
	s.clearPending()
	if err := s.radio.SwitchTo(mode); err != nil {
		return err
	}
	s.state = state
	return nil
}

func (s *Session) finish() {
	s.sender.Stop()
	s.keyer.Reset()
	s.clearPending()
	_ = s.radio.SwitchTo(radio.Off)
	s.state = StateFinished
	s.endedAt = s.now
	log.Printf("[session] %s finished", s.exercise.Name())
}

func (s *Session) record(a model.Attempt) {
	if s.stats == nil {
		return
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = s.now
	}
	s.stats.RecordAttempt(a)
}

func (s *Session) handlePattern(p cw.Pattern) {
	if s.state != StateKeying {
		return
	}
	sym, ok := cw.Lookup(p)
	if !ok {
		sym = UnknownSymbol
	}
	s.copy = append(s.copy, sym)
	drained := s.keyer.Idle()
	if drained && s.spacePending {
		s.spacePending = false
		s.handleWordGap()
	}

	s.exercise.Symbol(s, sym, p, ok)
	// a new turn clears the pending submission
	if drained && s.submitPending && s.state == StateKeying {
		s.submitPending = false
		if _, err := s.submit(); err != nil {
			log.Printf("[session] deferred submit: %v", err)
		}
	}
}

func (s *Session) clearPending() {
	s.spacePending = false
	s.submitPending = false
}

func (s *Session) handleWordGap() {
	if s.state != StateKeying {
		return
	}
	if n := len(s.copy); n > 0 && s.copy[n-1] != ' ' {
		s.copy = append(s.copy, ' ')
	}
}

func (s *Session) handlePlaybackDone() {
	if s.state != StateReceiving && s.state != StateAwaitingReplay {
		return
	}
	s.exercise.PlaybackDone(s)
}
