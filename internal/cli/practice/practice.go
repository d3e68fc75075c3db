// internal/cli/practice/practice.go
// Package practice wires a configured exercise to audio, storage and the
// terminal interface, and runs it to completion.
package practice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ColonelBlimp/cwtrainer/internal/audio"
	"github.com/ColonelBlimp/cwtrainer/internal/clock"
	"github.com/ColonelBlimp/cwtrainer/internal/config"
	"github.com/ColonelBlimp/cwtrainer/internal/cw"
	"github.com/ColonelBlimp/cwtrainer/internal/model"
	"github.com/ColonelBlimp/cwtrainer/internal/recovery"
	"github.com/ColonelBlimp/cwtrainer/internal/session"
	"github.com/ColonelBlimp/cwtrainer/internal/store"
	"github.com/ColonelBlimp/cwtrainer/internal/tui"
)

// flashHold is how long the key indicator stays lit per element.
const flashHold = 120 * time.Millisecond

// Output is a tone sink that can report its level.
type Output interface {
	cw.ToneSink
	Level() float64
}

// Result summarizes a finished practice run.
type Result struct {
	Info      model.SessionInfo
	Attempts  int
	Correct   int
	SessionID int64
}

// Options configures a run.
type Options struct {
	Title string
	Style string
	// Setup is called with the recorder before the session starts, so
	// exercises with their own stats hooks can share it.
	Setup func(rec *store.Recorder)
	// Program options, e.g. tea.WithInput in tests.
	ProgramOptions []tea.ProgramOption
}

// OpenOutput returns the tone output for settings: the audio player, or a
// silent stand-in when muted or when no device can be opened. The returned
// close func is never nil.
func OpenOutput(ctx context.Context, s *config.Settings, warn io.Writer) (Output, func(), error) {
	if s.Mute {
		return &audio.Silent{}, func() {}, nil
	}
	p, err := audio.New(s.AudioConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("audio: %w", err)
	}
	if err := p.Init(); err != nil {
		_, _ = fmt.Fprintf(warn, "audio unavailable, continuing muted: %v\n", err)
		return &audio.Silent{}, func() {}, nil
	}
	if err := p.Start(ctx); err != nil {
		_ = p.Close()
		_, _ = fmt.Fprintf(warn, "audio unavailable, continuing muted: %v\n", err)
		return &audio.Silent{}, func() {}, nil
	}
	remove := recovery.OnPanic(func() { _ = p.Close() })
	return p, func() {
		remove()
		if err := p.Close(); err != nil {
			log.Printf("[audio] close: %v", err)
		}
	}, nil
}

// OpenRecorder opens the statistics store. A store that cannot be opened
// is reported and practice continues without saving.
func OpenRecorder(s *config.Settings, warn io.Writer) (*store.Recorder, func()) {
	st, err := store.Open(s.StorePath())
	if err != nil {
		_, _ = fmt.Fprintf(warn, "statistics disabled: %v\n", err)
		return store.NewRecorder(nil), func() {}
	}
	return store.NewRecorder(st), func() {
		if err := st.Close(); err != nil {
			log.Printf("[store] close: %v", err)
		}
	}
}

// Run plays ex interactively and saves its attempts.
func Run(ctx context.Context, s *config.Settings, ex session.Exercise, opts Options, warn io.Writer) (Result, error) {
	out, closeOut, err := OpenOutput(ctx, s, warn)
	if err != nil {
		return Result{}, err
	}
	defer closeOut()

	rec, closeStore := OpenRecorder(s, warn)
	defer closeStore()
	if opts.Setup != nil {
		opts.Setup(rec)
	}

	clk := clock.System{}
	flash := tui.NewFlash(clk, flashHold)
	sess, err := session.New(session.Config{
		Keyer:  s.KeyerConfig(),
		Output: out,
		Haptic: flash,
		Clock:  clk,
		Stats:  rec,
	}, ex)
	if err != nil {
		return Result{}, fmt.Errorf("create session: %w", err)
	}
	if err := sess.Start(); err != nil {
		return Result{}, err
	}

	m := tui.NewModel(sess, tui.Options{Title: opts.Title, Clock: clk, Flash: flash, Meter: out})
	popts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts.ProgramOptions...)
	if _, err := tea.NewProgram(m, popts...).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		sess.Abort()
		return Result{}, fmt.Errorf("run interface: %w", err)
	}
	sess.Abort()
	out.DeactivateTone()

	return finish(ctx, sess, rec, opts.Style)
}

func finish(ctx context.Context, sess *session.Session, rec *store.Recorder, style string) (Result, error) {
	info := sess.Info()
	info.Style = style
	attempts := rec.Attempts()
	res := Result{Info: info, Attempts: len(attempts)}
	for _, a := range attempts {
		if a.Correct {
			res.Correct++
		}
	}
	id, err := rec.Flush(ctx, info)
	if err != nil {
		return res, fmt.Errorf("save session: %w", err)
	}
	res.SessionID = id
	return res, nil
}

// ListAudioDevices returns the names of the available playback devices.
func ListAudioDevices() ([]string, error) {
	p, err := audio.New(audio.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := p.Init(); err != nil {
		return nil, err
	}
	defer func() { _ = p.Close() }()

	infos, err := p.ListDevices()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name()
	}
	return names, nil
}

// Summary is a one-line report of a run.
func (r Result) Summary() string {
	if r.Attempts == 0 {
		return fmt.Sprintf("%s finished, nothing scored", r.Info.Mode)
	}
	return fmt.Sprintf("%s finished: %d of %d correct (%.0f%%) at %d WPM",
		r.Info.Mode, r.Correct, r.Attempts, 100*float64(r.Correct)/float64(r.Attempts), r.Info.WPM)
}
