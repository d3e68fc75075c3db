package practice

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ColonelBlimp/cwtrainer/internal/audio"
	"github.com/ColonelBlimp/cwtrainer/internal/clock"
	"github.com/ColonelBlimp/cwtrainer/internal/config"
	"github.com/ColonelBlimp/cwtrainer/internal/cw"
	"github.com/ColonelBlimp/cwtrainer/internal/model"
	"github.com/ColonelBlimp/cwtrainer/internal/session"
	"github.com/ColonelBlimp/cwtrainer/internal/store"
)

func TestOpenOutput_Muted(t *testing.T) {
	out, closeOut, err := OpenOutput(context.Background(), &config.Settings{Mute: true}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("OpenOutput() error = %v", err)
	}
	defer closeOut()
	if _, ok := out.(*audio.Silent); !ok {
		t.Errorf("OpenOutput(mute) = %T, want *audio.Silent", out)
	}
}

func TestOpenRecorder_FallsBack(t *testing.T) {
	var warn bytes.Buffer
	// A path below a regular file cannot be created.
	blocker := filepath.Join(t.TempDir(), "file")
	if err := writeFile(blocker); err != nil {
		t.Fatal(err)
	}
	rec, closeStore := OpenRecorder(&config.Settings{DBPath: filepath.Join(blocker, "stats.db")}, &warn)
	defer closeStore()
	if rec == nil {
		t.Fatal("OpenRecorder() returned nil recorder")
	}
	if !strings.Contains(warn.String(), "statistics disabled") {
		t.Errorf("warning = %q", warn.String())
	}
	if id, err := rec.Flush(context.Background(), model.SessionInfo{}); err != nil || id != 0 {
		t.Errorf("Flush() = %d, %v; want 0, nil", id, err)
	}
}

func TestFinish_SavesSession(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer st.Close()
	rec := store.NewRecorder(st)

	clk := clock.NewManual(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	d, err := session.NewDrill([]rune("E"), 1, 1)
	if err != nil {
		t.Fatalf("NewDrill() error = %v", err)
	}
	sess, err := session.New(session.Config{
		Keyer:  cw.KeyerConfig{WPM: 15, ToneFrequency: 600},
		Output: &audio.Silent{},
		Clock:  clk,
		Stats:  rec,
	}, d)
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}
	if err := sess.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := sess.Key(cw.Dot); err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	for i := 0; i < 100 && !sess.Finished(); i++ {
		sess.Tick(clk.Advance(10 * time.Millisecond))
	}
	if !sess.Finished() {
		t.Fatalf("drill not finished, state %s", sess.State())
	}

	res, err := finish(context.Background(), sess, rec, "")
	if err != nil {
		t.Fatalf("finish() error = %v", err)
	}
	if res.Attempts != 1 || res.Correct != 1 || res.SessionID == 0 {
		t.Errorf("result = %+v", res)
	}
	if res.Info.Mode != "drill" || res.Info.WPM != 15 {
		t.Errorf("info = %+v", res.Info)
	}
	if !strings.Contains(res.Summary(), "1 of 1 correct (100%) at 15 WPM") {
		t.Errorf("Summary() = %q", res.Summary())
	}

	sessions, err := st.ListSessions(context.Background(), 0)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("ListSessions() = %v, %v", sessions, err)
	}
}

func TestSummary_NothingScored(t *testing.T) {
	r := Result{Info: model.SessionInfo{Mode: "qso"}}
	if got := r.Summary(); got != "qso finished, nothing scored" {
		t.Errorf("Summary() = %q", got)
	}
}

func writeFile(path string) error {
	return os.WriteFile(path, []byte("x"), 0644)
}
