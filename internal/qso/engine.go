// internal/qso/engine.go
package qso

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ColonelBlimp/cwtrainer/internal/clock"
	"github.com/ColonelBlimp/cwtrainer/internal/model"
)

var (
	// ErrInvalidTransition indicates an operation not allowed in the current turn state
	ErrInvalidTransition = errors.New("invalid conversation transition")
	// ErrGeneratorRequired indicates the engine needs a station generator
	ErrGeneratorRequired = errors.New("station generator is required")
	// ErrEmptyStyle indicates a style with no steps was started
	ErrEmptyStyle = errors.New("style has no steps")
)

// Phase names the step the conversation is in. Between the fixed idle and
// completed phases it takes the name of the active template step.
type Phase string

const (
	// PhaseIdle is before a conversation starts
	PhaseIdle Phase = "idle"
	// PhaseCompleted is after the last step or an abort
	PhaseCompleted Phase = "completed"
)

// TurnState says whose turn it is.
type TurnState int

const (
	// TurnIdle means no conversation is running
	TurnIdle TurnState = iota
	// PartnerTransmitting means the virtual station is sending
	PartnerTransmitting
	// UserKeying means the engine is waiting for the user's transmission
	UserKeying
	// TurnCompleted means the conversation has ended
	TurnCompleted
)

func (t TurnState) String() string {
	switch t {
	case TurnIdle:
		return "idle"
	case PartnerTransmitting:
		return "partner transmitting"
	case UserKeying:
		return "user keying"
	case TurnCompleted:
		return "completed"
	default:
		return fmt.Sprintf("TurnState(%d)", int(t))
	}
}

// Initiation selects who sends the CQ.
type Initiation int

const (
	// PartnerCalls makes the user the answering station
	PartnerCalls Initiation = iota
	// UserCalls makes the user the calling station
	UserCalls
)

func (i Initiation) String() string {
	if i == UserCalls {
		return "user"
	}
	return "partner"
}

// ParseInitiation accepts "user" or "partner".
func ParseInitiation(s string) (Initiation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return UserCalls, nil
	case "partner", "":
		return PartnerCalls, nil
	}
	return PartnerCalls, fmt.Errorf("unknown initiation %q (want user or partner)", s)
}

// Party identifies who sent a transcript line.
type Party int

const (
	// User is the person at the key
	User Party = iota
	// Partner is the virtual station
	Partner
)

func (p Party) String() string {
	if p == Partner {
		return "partner"
	}
	return "user"
}

// TranscriptEntry is one completed transmission.
type TranscriptEntry struct {
	Sender    Party
	Text      string
	Timestamp time.Time
}

// LineCallback receives script lines as the engine produces them.
type LineCallback func(line string)

// Engine drives one conversation at a time through a style's steps. It does
// no I/O and never blocks; the caller plays partner lines and reports back
// with AdvancePartnerTurn. Not safe for concurrent use.
type Engine struct {
	operator Operator
	stations *StationGenerator
	clock    clock.Clock
	stats    model.AttemptSink

	onPartnerLine LineCallback
	onUserTurn    LineCallback

	style      Style
	userRole   Role
	station    Station
	step       int
	phase      Phase
	turn       TurnState
	transcript []TranscriptEntry
}

// NewEngine creates an idle engine for the given operator.
func NewEngine(op Operator, stations *StationGenerator, clk clock.Clock) (*Engine, error) {
	if stations == nil {
		return nil, ErrGeneratorRequired
	}
	if clk == nil {
		clk = clock.System{}
	}
	op.Callsign = strings.ToUpper(op.Callsign)
	op.Name = strings.ToUpper(op.Name)
	op.Location = strings.ToUpper(op.Location)
	if op.Report == "" {
		op.Report = "599"
	}
	return &Engine{
		operator: op,
		stations: stations,
		clock:    clk,
		phase:    PhaseIdle,
		turn:     TurnIdle,
	}, nil
}

// SetPartnerCallback registers a function called with each line the partner sends.
func (e *Engine) SetPartnerCallback(cb LineCallback) {
	e.onPartnerLine = cb
}

// SetUserTurnCallback registers a function called with the script whenever
// the user's turn begins.
func (e *Engine) SetUserTurnCallback(cb LineCallback) {
	e.onUserTurn = cb
}

// SetStatsSink registers where scored turns are reported.
func (e *Engine) SetStatsSink(sink model.AttemptSink) {
	e.stats = sink
}

// Start begins a conversation. A virtual station is generated once and kept
// for the whole QSO.
func (e *Engine) Start(style Style, mode Initiation) error {
	if e.turn != TurnIdle {
		return fmt.Errorf("%w: start while %s", ErrInvalidTransition, e.turn)
	}
	if len(style.Steps) == 0 {
		return fmt.Errorf("%w: %q", ErrEmptyStyle, style.Name)
	}

	e.style = style
	e.userRole = Answerer
	if mode == UserCalls {
		e.userRole = Caller
	}
	e.station = e.stations.Generate(e.operator.Callsign)
	e.step = 0
	e.transcript = nil
	e.enterStep()
	return nil
}

// CurrentUserScript returns the line the user should send, or "" when it is
// not the user's turn.
func (e *Engine) CurrentUserScript() string {
	if e.turn != UserKeying {
		return ""
	}
	return e.style.Steps[e.step].Render(e.vars(User))
}

// PartnerLine returns the line the partner is sending, or "".
func (e *Engine) PartnerLine() string {
	if e.turn != PartnerTransmitting {
		return ""
	}
	return e.style.Steps[e.step].Render(e.vars(Partner))
}

// SubmitUserInput scores decoded text against the current user step. A miss
// leaves the state and transcript untouched; the returned Result says why.
func (e *Engine) SubmitUserInput(text string) (Result, error) {
	if e.turn != UserKeying {
		return Result{}, fmt.Errorf("%w: submit while %s", ErrInvalidTransition, e.turn)
	}

	st := e.style.Steps[e.step]
	v := e.vars(User)
	res := Match(st.Render(v), st.RequiredTokens(v), text)
	e.record(res)
	if !res.Correct {
		return res, nil
	}

	e.append(User, res.Actual)
	e.step++
	e.enterStep()
	return res, nil
}

// AdvancePartnerTurn marks the partner's line as sent and moves on.
func (e *Engine) AdvancePartnerTurn() error {
	if e.turn != PartnerTransmitting {
		return fmt.Errorf("%w: advance while %s", ErrInvalidTransition, e.turn)
	}
	e.append(Partner, e.PartnerLine())
	e.step++
	e.enterStep()
	return nil
}

// Abort ends the conversation immediately. Calling it again has no effect.
func (e *Engine) Abort() {
	if e.turn == TurnCompleted {
		return
	}
	e.complete()
}

// Reset returns the engine to idle, discarding the transcript.
func (e *Engine) Reset() {
	e.style = Style{}
	e.station = Station{}
	e.step = 0
	e.phase = PhaseIdle
	e.turn = TurnIdle
	e.transcript = nil
}

// Phase returns the current phase.
func (e *Engine) Phase() Phase {
	return e.phase
}

// Turn returns whose turn it is.
func (e *Engine) Turn() TurnState {
	return e.turn
}

// Station returns the partner station, zero before Start.
func (e *Engine) Station() Station {
	return e.station
}

// Operator returns the user's station details.
func (e *Engine) Operator() Operator {
	return e.operator
}

// StyleName returns the running style's name.
func (e *Engine) StyleName() string {
	return e.style.Name
}

// Transcript returns a copy of the lines sent so far.
func (e *Engine) Transcript() []TranscriptEntry {
	out := make([]TranscriptEntry, len(e.transcript))
	copy(out, e.transcript)
	return out
}

// Progress returns the current step index and the total step count.
func (e *Engine) Progress() (step, total int) {
	return e.step, len(e.style.Steps)
}

func (e *Engine) enterStep() {
	if e.step >= len(e.style.Steps) {
		e.complete()
		return
	}

	st := e.style.Steps[e.step]
	e.phase = Phase(st.Name)
	if st.Role == e.userRole {
		e.turn = UserKeying
		if e.onUserTurn != nil {
			e.onUserTurn(e.CurrentUserScript())
		}
		return
	}

	e.turn = PartnerTransmitting
	if e.onPartnerLine != nil {
		e.onPartnerLine(e.PartnerLine())
	}
}

func (e *Engine) complete() {
	e.phase = PhaseCompleted
	e.turn = TurnCompleted
}

func (e *Engine) append(from Party, text string) {
	e.transcript = append(e.transcript, TranscriptEntry{
		Sender:    from,
		Text:      text,
		Timestamp: e.clock.Now(),
	})
}

func (e *Engine) record(res Result) {
	if e.stats == nil {
		return
	}
	e.stats.RecordAttempt(model.Attempt{
		Kind:      model.KindTurn,
		Expected:  res.Expected,
		Actual:    res.Actual,
		Correct:   res.Correct,
		Timestamp: e.clock.Now(),
	})
}

// vars resolves placeholders from the point of view of the sender.
func (e *Engine) vars(from Party) Vars {
	if from == User {
		return Vars{
			MyCall: e.operator.Callsign,
			MyName: e.operator.Name,
			MyQTH:  e.operator.Location,
			UrCall: e.station.Callsign,
			UrName: e.station.Name,
			RST:    e.operator.Report,
		}
	}
	return Vars{
		MyCall: e.station.Callsign,
		MyName: e.station.Name,
		MyQTH:  e.station.Location,
		UrCall: e.operator.Callsign,
		UrName: e.operator.Name,
		RST:    e.station.Report,
	}
}
