// internal/tui/model.go
// Package tui provides the Bubble Tea keying interface.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/ColonelBlimp/cwtrainer/internal/clock"
	"github.com/ColonelBlimp/cwtrainer/internal/cw"
	"github.com/ColonelBlimp/cwtrainer/internal/qso"
	"github.com/ColonelBlimp/cwtrainer/internal/radio"
	"github.com/ColonelBlimp/cwtrainer/internal/session"
)

// TickInterval is how often the keyer and sender are advanced.
const TickInterval = 10 * time.Millisecond

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	infoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	partnerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FB3D5"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E")).Italic(true)
	copyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	rxStyle        = lipgloss.NewStyle().Bold(true).Padding(0, 1).Background(lipgloss.Color("#1D6F42")).Foreground(lipgloss.Color("#F0F0F0"))
	txStyle        = lipgloss.NewStyle().Bold(true).Padding(0, 1).Background(lipgloss.Color("#A8071A")).Foreground(lipgloss.Color("#F0F0F0"))
	offStyle       = lipgloss.NewStyle().Padding(0, 1).Background(lipgloss.Color("#3A3A3A")).Foreground(lipgloss.Color("#8C8C8C"))
	litStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FADB14"))
	frameStyle     = lipgloss.NewStyle().Padding(1, 2)
)

type tickMsg time.Time

const statusSubmitting = "sending after the last symbol"

// Meter reports the current output level, 0 to 1.
type Meter interface {
	Level() float64
}

// Options configures the interface.
type Options struct {
	Title string
	Clock clock.Clock
	Flash *Flash
	Meter Meter
}

// Model implements the Bubble Tea keying UI around a started session.
type Model struct {
	session *session.Session
	clock   clock.Clock
	flash   *Flash
	meter   Meter
	title   string

	keys     KeyMap
	help     help.Model
	showHelp bool

	width  int
	height int
	status string
}

// NewModel wraps a session. The session must already be started.
func NewModel(s *session.Session, opts Options) *Model {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	return &Model{
		session: s,
		clock:   opts.Clock,
		flash:   opts.Flash,
		meter:   opts.Meter,
		title:   opts.Title,
		keys:    Keys,
		help:    help.New(),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tickMsg:
		if m.session.Finished() {
			return m, nil
		}
		m.session.Tick(m.clock.Now())
		if m.status == statusSubmitting && !m.session.SubmitPending() {
			m.status = ""
		}
		return m, tick()
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.session.Abort()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	case m.session.Finished():
		if msg.String() == "q" || key.Matches(msg, m.keys.Submit) {
			return m, tea.Quit
		}
	case key.Matches(msg, m.keys.Dot):
		m.key(cw.Dot)
	case key.Matches(msg, m.keys.Dash):
		m.key(cw.Dash)
	case key.Matches(msg, m.keys.WordSpace):
		m.session.Space()
	case key.Matches(msg, m.keys.Backspace):
		m.session.Backspace()
	case key.Matches(msg, m.keys.Submit):
		m.submit()
	}
	return m, nil
}

func (m *Model) key(e cw.Element) {
	if err := m.session.Key(e); err != nil {
		if errors.Is(err, session.ErrNotAccepting) {
			m.status = "wait for your turn"
			return
		}
		m.status = err.Error()
		return
	}
	m.status = ""
}

func (m *Model) submit() {
	_, err := m.session.Submit()
	switch {
	case err == nil:
		m.status = ""
	case errors.Is(err, session.ErrSubmitPending):
		m.status = statusSubmitting
	case errors.Is(err, session.ErrSubmitUnsupported):
		m.status = "symbols are scored as you key them"
	case errors.Is(err, session.ErrNotAccepting), errors.Is(err, qso.ErrInvalidTransition):
		m.status = "wait for your turn"
	default:
		m.status = err.Error()
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	width := m.contentWidth()

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch ex := m.session.Exercise().(type) {
	case *session.Conversation:
		b.WriteString(m.renderConversation(ex, width))
	case *session.Drill:
		b.WriteString(m.renderDrill(ex))
	}

	b.WriteString("\n")
	b.WriteString(m.renderFeedback(width))
	if m.status != "" {
		b.WriteString(infoStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return frameStyle.Render(b.String())
}

func (m *Model) contentWidth() int {
	if m.width <= 0 {
		return 72
	}
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m *Model) renderHeader() string {
	parts := []string{titleStyle.Render(m.title), m.renderRadio(), m.renderKeyLight()}
	if m.meter != nil {
		parts = append(parts, infoStyle.Render(levelBar(m.meter.Level(), 8)))
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderRadio() string {
	switch m.session.RadioMode() {
	case radio.Receiving:
		return rxStyle.Render("RX")
	case radio.Transmitting:
		return txStyle.Render("TX")
	default:
		return offStyle.Render("OFF")
	}
}

func (m *Model) renderKeyLight() string {
	if m.flash == nil {
		return ""
	}
	e, lit := m.flash.Lit(m.clock.Now())
	if !lit {
		return infoStyle.Render("○")
	}
	return litStyle.Render("● " + e.String())
}

func (m *Model) renderConversation(c *session.Conversation, width int) string {
	eng := c.Engine()
	var b strings.Builder

	st := eng.Station()
	step, total := eng.Progress()
	b.WriteString(infoStyle.Render(fmt.Sprintf("Working %s (%s, %s)  step %d/%d  %s",
		st.Callsign, st.Name, st.Location, min(step+1, total), total, eng.Phase())))
	b.WriteString("\n\n")

	for _, entry := range eng.Transcript() {
		b.WriteString(renderLine(entry.Sender, entry.Text, width))
		b.WriteString("\n")
	}

	switch m.session.State() {
	case session.StateReceiving:
		_, sent := m.session.Playback()
		b.WriteString(renderLine(qso.Partner, sent+"▌", width))
		b.WriteString("\n")
	case session.StateKeying:
		b.WriteString(promptStyle.Render(wordwrap.String("send: "+c.Prompt(), width)))
		b.WriteString("\n")
		b.WriteString(m.renderCopy())
		b.WriteString("\n")
	case session.StateFinished:
		b.WriteString(titleStyle.Render("QSO complete. Press q to exit."))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderDrill(d *session.Drill) string {
	var b strings.Builder
	correct, attempts := d.Score()
	b.WriteString(infoStyle.Render(fmt.Sprintf("Score %d/%d  remaining %d", correct, attempts, d.Remaining())))
	b.WriteString("\n\n")

	switch m.session.State() {
	case session.StateKeying:
		b.WriteString("Send  ")
		b.WriteString(titleStyle.Render(d.Prompt()))
		b.WriteString("\n")
		b.WriteString(m.renderCopy())
		b.WriteString("\n")
	case session.StateAwaitingReplay:
		text, _ := m.session.Playback()
		b.WriteString(partnerStyle.Render("Listen  " + text))
		b.WriteString("\n")
	case session.StateFinished:
		b.WriteString(titleStyle.Render(fmt.Sprintf("Drill complete: %d of %d correct. Press q to exit.", correct, attempts)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderCopy() string {
	return "> " + copyStyle.Render(m.session.Copy()) + pendingStyle.Render(m.session.InProgress().String())
}

func (m *Model) renderFeedback(width int) string {
	fb, ok := m.session.LastFeedback()
	if !ok {
		return ""
	}
	if fb.Correct {
		return correctStyle.Render("✓ "+fb.Actual) + "\n"
	}
	return incorrectStyle.Render(wordwrap.String("✗ "+fb.Hint, width)) + "\n"
}

func renderLine(from qso.Party, text string, width int) string {
	if from == qso.Partner {
		return partnerStyle.Render(wordwrap.String("RX  "+text, width))
	}
	return userStyle.Render(wordwrap.String("TX  "+text, width))
}

func levelBar(level float64, cells int) string {
	n := int(level*float64(cells) + 0.5)
	n = min(max(n, 0), cells)
	return strings.Repeat("▮", n) + strings.Repeat("▯", cells-n)
}
