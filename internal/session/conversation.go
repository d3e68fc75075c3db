// internal/session/conversation.go
package session

import (
	"log"

	"github.com/ColonelBlimp/cwtrainer/internal/cw"
	"github.com/ColonelBlimp/cwtrainer/internal/model"
	"github.com/ColonelBlimp/cwtrainer/internal/qso"
)

// Conversation runs a QSO: partner lines are played, the user keys a reply
// and submits it for scoring.
type Conversation struct {
	engine *qso.Engine
	style  qso.Style
	mode   qso.Initiation
}

// NewConversation wraps an idle engine.
func NewConversation(engine *qso.Engine, style qso.Style, mode qso.Initiation) *Conversation {
	return &Conversation{engine: engine, style: style, mode: mode}
}

// Name implements Exercise.
func (c *Conversation) Name() string {
	return "qso"
}

// Engine returns the wrapped engine.
func (c *Conversation) Engine() *qso.Engine {
	return c.engine
}

// Begin starts the QSO.
func (c *Conversation) Begin(s *Session) error {
	if err := c.engine.Start(c.style, c.mode); err != nil {
		return err
	}
	return c.follow(s)
}

// Symbol records patterns that did not decode. Good symbols are scored
// with the whole line on Submit.
func (c *Conversation) Symbol(s *Session, _ rune, p cw.Pattern, ok bool) {
	if ok {
		return
	}
	s.record(model.Attempt{
		Kind:    model.KindSymbol,
		Actual:  p.String(),
		Correct: false,
	})
}

// PlaybackDone tells the engine the partner has finished sending.
func (c *Conversation) PlaybackDone(s *Session) {
	if err := c.engine.AdvancePartnerTurn(); err != nil {
		log.Printf("[qso] advance partner turn: %v", err)
		return
	}
	if err := c.follow(s); err != nil {
		log.Printf("[qso] %v", err)
	}
}

// Submit scores the keyed line. A miss keeps the copy so it can be corrected.
func (c *Conversation) Submit(s *Session, text string) (Feedback, error) {
	res, err := c.engine.SubmitUserInput(text)
	if err != nil {
		return Feedback{}, err
	}
	fb := Feedback{
		Correct:  res.Correct,
		Expected: res.Expected,
		Actual:   res.Actual,
		Hint:     res.Hint,
	}
	if res.Correct {
		if err := c.follow(s); err != nil {
			return fb, err
		}
	}
	return fb, nil
}

// Prompt returns the script line for the user's turn.
func (c *Conversation) Prompt() string {
	return c.engine.CurrentUserScript()
}

// Abort ends the QSO.
func (c *Conversation) Abort() {
	c.engine.Abort()
}

// follow moves the session to match the engine's turn.
func (c *Conversation) follow(s *Session) error {
	switch c.engine.Turn() {
	case qso.PartnerTransmitting:
		return s.play(c.engine.PartnerLine())
	case qso.UserKeying:
		return s.awaitKeying()
	case qso.TurnCompleted:
		s.finish()
	}
	return nil
}
