// internal/cli/report/report.go
// Package report renders stored statistics and the symbol table for the
// terminal.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/ColonelBlimp/cwtrainer/internal/cw"
	"github.com/ColonelBlimp/cwtrainer/internal/model"
)

const terminalWidthBackup = 80

type styles struct {
	title lipgloss.Style
	head  lipgloss.Style
	good  lipgloss.Style
	bad   lipgloss.Style
	dim   lipgloss.Style
}

// newStyles binds styles to w so colour is only used on a terminal.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A")),
		head:  r.NewStyle().Bold(true).Underline(true),
		good:  r.NewStyle().Foreground(lipgloss.Color("#52C41A")),
		bad:   r.NewStyle().Foreground(lipgloss.Color("#FF4D4F")),
		dim:   r.NewStyle().Foreground(lipgloss.Color("#8C8C8C")),
	}
}

// TerminalWidth returns the width of w when it is a terminal.
func TerminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return terminalWidthBackup
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

// Sessions writes recent sessions, newest first.
func Sessions(w io.Writer, sessions []model.SessionSummary) error {
	st := newStyles(w)
	var b strings.Builder
	b.WriteString(st.title.Render("Recent sessions"))
	b.WriteString("\n")
	if len(sessions) == 0 {
		b.WriteString(st.dim.Render("No sessions recorded yet."))
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		mode := s.Mode
		if s.Style != "" {
			mode += "/" + s.Style
		}
		rows = append(rows, []string{
			s.EndedAt.Local().Format("2006-01-02 15:04"),
			mode,
			fmt.Sprintf("%d", s.WPM),
			fmt.Sprintf("%d/%d", s.Correct, s.Correct+s.Incorrect),
			fmt.Sprintf("%.0f%%", 100*s.Accuracy()),
		})
	}
	lines := formatTable([]string{"Ended", "Mode", "WPM", "Score", "Acc"}, rows, map[int]bool{2: true, 3: true, 4: true})
	b.WriteString(st.head.Render(lines[0]))
	b.WriteString("\n")
	for i, line := range lines[1:] {
		acc := sessions[i].Accuracy()
		switch {
		case acc >= 0.9:
			line = st.good.Render(line)
		case acc < 0.5 && sessions[i].Correct+sessions[i].Incorrect > 0:
			line = st.bad.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WeakSymbols writes per-symbol error rates, worst first, with the pattern
// to practise. At most limit rows are shown.
func WeakSymbols(w io.Writer, aggs []model.SymbolAggregate, limit int) error {
	st := newStyles(w)
	var b strings.Builder
	b.WriteString(st.title.Render("Weak symbols"))
	b.WriteString("\n")

	rows := make([][]string, 0, len(aggs))
	for _, a := range aggs {
		if a.Incorrect == 0 {
			continue
		}
		if limit > 0 && len(rows) == limit {
			break
		}
		pattern := ""
		if r := []rune(a.Symbol); len(r) == 1 {
			if p, ok := cw.PatternFor(r[0]); ok {
				pattern = p.String()
			}
		}
		rows = append(rows, []string{
			a.Symbol,
			pattern,
			fmt.Sprintf("%d/%d", a.Incorrect, a.Correct+a.Incorrect),
			fmt.Sprintf("%.0f%%", 100*a.ErrorRate()),
		})
	}
	if len(rows) == 0 {
		b.WriteString(st.dim.Render("No missed symbols."))
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	lines := formatTable([]string{"Sym", "Pattern", "Missed", "Err"}, rows, map[int]bool{2: true, 3: true})
	b.WriteString(st.head.Render(lines[0]))
	b.WriteString("\n")
	for _, line := range lines[1:] {
		b.WriteString(st.bad.Render(line))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Table writes every symbol with its pattern in as many columns as fit.
func Table(w io.Writer, width int) error {
	st := newStyles(w)
	symbols := cw.Symbols()

	cells := make([]string, len(symbols))
	cellWidth := 0
	for i, sym := range symbols {
		p, _ := cw.PatternFor(sym)
		cells[i] = fmt.Sprintf("%c %s", sym, p)
		cellWidth = max(cellWidth, lipgloss.Width(cells[i]))
	}
	cellWidth += 2
	cols := max(width/cellWidth, 1)
	rowCount := (len(cells) + cols - 1) / cols

	var b strings.Builder
	b.WriteString(st.title.Render("Morse symbols"))
	b.WriteString("\n")
	for r := 0; r < rowCount; r++ {
		var line strings.Builder
		for c := 0; c < cols; c++ {
			i := c*rowCount + r
			if i >= len(cells) {
				break
			}
			line.WriteString(padCell(cells[i], cellWidth, false))
		}
		b.WriteString(strings.TrimRight(line.String(), " "))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func formatTable(headers []string, rows [][]string, rightAlign map[int]bool) []string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	for _, row := range append([][]string{headers}, rows...) {
		cells := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = padCell(cell, widths[i], rightAlign[i])
		}
		lines = append(lines, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
	return lines
}

func padCell(s string, width int, right bool) string {
	pad := width - lipgloss.Width(s)
	if pad <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", pad) + s
	}
	return s + strings.Repeat(" ", pad)
}
