package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/ColonelBlimp/cwtrainer/internal/cw"
)

func resetViper() {
	viper.Reset()
}

// isolate points HOME and the XDG dirs at a temp directory and moves into it.
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return tmpDir
}

func TestInit_WithDefaults(t *testing.T) {
	resetViper()
	tmpDir := isolate(t)

	configDir := filepath.Join(tmpDir, ".config", AppName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(DefaultConfig), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	tests := []struct {
		key      string
		expected interface{}
	}{
		{"wpm", 15},
		{"farnsworth_wpm", 0},
		{"tone_frequency", 600},
		{"haptic_enabled", true},
		{"callsign", "N0CALL"},
		{"style", "beginner"},
		{"initiation", "partner"},
		{"drill_count", 20},
		{"device_index", -1},
		{"sample_rate", 48000},
		{"buffer_size", 256},
		{"mute", false},
		{"debug", false},
		{"log_file", "cwtrainer.log"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := viper.Get(tt.key)
			if got != tt.expected {
				t.Errorf("viper.Get(%q) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestInit_CreatesConfigIfMissing(t *testing.T) {
	resetViper()
	tmpDir := isolate(t)

	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	configPath := filepath.Join(tmpDir, ".config", AppName, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Errorf("Init() did not create config file at %s", configPath)
	}
}

func TestInit_ReadsLocalConfigFirst(t *testing.T) {
	resetViper()
	tmpDir := isolate(t)

	xdgConfigDir := filepath.Join(tmpDir, ".config", AppName)
	if err := os.MkdirAll(xdgConfigDir, 0755); err != nil {
		t.Fatalf("failed to create XDG config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(xdgConfigDir, "config.yaml"), []byte("wpm: 12"), 0644); err != nil {
		t.Fatalf("failed to write XDG config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte("wpm: 14"), 0644); err != nil {
		t.Fatalf("failed to write local config: %v", err)
	}

	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if got := viper.GetInt("wpm"); got != 14 {
		t.Errorf("viper.GetInt(wpm) = %d, want 14 (local config)", got)
	}
}

func TestInit_DotConfigTakesPrecedence(t *testing.T) {
	resetViper()
	tmpDir := isolate(t)

	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte("callsign: k1abc"), 0644); err != nil {
		t.Fatalf("failed to write config.yaml: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, ".config.yaml"), []byte("callsign: g4xyz"), 0644); err != nil {
		t.Fatalf("failed to write .config.yaml: %v", err)
	}

	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if got := viper.GetString("callsign"); got != "g4xyz" {
		t.Errorf("callsign = %q, want g4xyz from .config.yaml", got)
	}
}

func TestInit_InvalidConfigFile(t *testing.T) {
	resetViper()
	tmpDir := isolate(t)

	configDir := filepath.Join(tmpDir, ".config", AppName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("invalid: yaml: content: [[["), 0644); err != nil {
		t.Fatalf("failed to write invalid config: %v", err)
	}

	if err := Init(); err == nil {
		t.Error("Init() should return error for invalid YAML")
	}
}

func TestEnsureConfigExists_DoesNotOverwrite(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configFile, []byte("wpm: 11"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if err := ensureConfigExists(tmpDir); err != nil {
		t.Fatalf("ensureConfigExists() error = %v", err)
	}
	data, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != "wpm: 11" {
		t.Errorf("ensureConfigExists() overwrote existing config: %q", data)
	}
}

func TestEnsureConfigExists_WriteError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("skipping test when running as root")
	}

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "readonly")
	if err := os.MkdirAll(configPath, 0555); err != nil {
		t.Fatalf("failed to create readonly dir: %v", err)
	}
	defer func() {
		if err := os.Chmod(configPath, 0755); err != nil {
			t.Logf("failed to restore permissions: %v", err)
		}
	}()

	if err := ensureConfigExists(filepath.Join(configPath, "subdir")); err == nil {
		t.Error("ensureConfigExists() should return error for read-only directory")
	}
}

func TestGet_ClampsAndNormalizes(t *testing.T) {
	resetViper()
	tmpDir := isolate(t)

	local := "wpm: 25\ntone_frequency: 1000\nfarnsworth_wpm: 30\ncallsign: k1abc\noperator_name: ann\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte(local), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	s, notes, err := Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if s.WPM != MaxWPM || s.ToneFrequency != MaxFrequency || s.FarnsworthWPM != MaxWPM {
		t.Errorf("Get() = wpm %d, tone %v, farnsworth %d", s.WPM, s.ToneFrequency, s.FarnsworthWPM)
	}
	if len(notes) != 3 {
		t.Errorf("notes = %q, want 3 adjustments", notes)
	}
	if s.Callsign != "K1ABC" || s.OperatorName != "ANN" {
		t.Errorf("station = %q %q, want upper case", s.Callsign, s.OperatorName)
	}
}

func TestSettings_Clamp(t *testing.T) {
	tests := []struct {
		name     string
		wpm      int
		tone     float64
		wantWPM  int
		wantTone float64
		notes    int
	}{
		{"in range", 15, 600, 15, 600, 0},
		{"low", 5, 200, MinWPM, MinFrequency, 2},
		{"high", 40, 2000, MaxWPM, MaxFrequency, 2},
		{"edges", MinWPM, MaxFrequency, MinWPM, MaxFrequency, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			s.WPM = tt.wpm
			s.ToneFrequency = tt.tone
			notes := s.Clamp()
			if s.WPM != tt.wantWPM || s.ToneFrequency != tt.wantTone {
				t.Errorf("Clamp() = %d WPM, %v Hz; want %d, %v", s.WPM, s.ToneFrequency, tt.wantWPM, tt.wantTone)
			}
			if len(notes) != tt.notes {
				t.Errorf("Clamp() notes = %q, want %d", notes, tt.notes)
			}
		})
	}
}

func TestSettings_Validate_ValidSettings(t *testing.T) {
	if err := validSettings().Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestSettings_Validate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Settings)
		wantMsg string
	}{
		{"empty callsign", func(s *Settings) { s.Callsign = "" }, "callsign must be set"},
		{"unkeyable callsign", func(s *Settings) { s.Callsign = "K1#BC" }, "callsign"},
		{"two word name", func(s *Settings) { s.OperatorName = "ANN LEE" }, "operator_name must be a single word"},
		{"empty style", func(s *Settings) { s.Style = " " }, "style must be set"},
		{"bad initiation", func(s *Settings) { s.Initiation = "both" }, "initiation"},
		{"empty drill symbols", func(s *Settings) { s.DrillSymbols = "" }, "drill_symbols must not be empty"},
		{"unkeyable drill symbols", func(s *Settings) { s.DrillSymbols = "AB!" }, "drill_symbols"},
		{"drill count", func(s *Settings) { s.DrillCount = 0 }, "drill_count"},
		{"sample rate", func(s *Settings) { s.SampleRate = 4000 }, "sample_rate"},
		{"buffer size range", func(s *Settings) { s.BufferSize = 16384 }, "buffer_size must be between"},
		{"buffer size power", func(s *Settings) { s.BufferSize = 300 }, "power of 2"},
		{"nyquist", func(s *Settings) { s.SampleRate = 8000; s.ToneFrequency = 4000 }, "Nyquist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.modify(s)
			err := s.Validate()
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() error = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestSettings_Validate_UnknownSymbolWrapped(t *testing.T) {
	s := validSettings()
	s.Callsign = "K1_BC"
	if err := s.Validate(); !errors.Is(err, cw.ErrUnknownSymbol) {
		t.Errorf("Validate() error = %v, want ErrUnknownSymbol in chain", err)
	}
}

func TestSettings_Validate_MultipleErrors(t *testing.T) {
	s := validSettings()
	s.Callsign = ""
	s.SampleRate = 1
	s.DrillCount = -1

	err := s.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"callsign", "sample_rate", "drill_count"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error missing %q: %v", want, err)
		}
	}
}

func TestSettings_Conversions(t *testing.T) {
	s := validSettings()

	k := s.KeyerConfig()
	if k.WPM != 15 || k.ToneFrequency != 600 || !k.HapticEnabled {
		t.Errorf("KeyerConfig() = %+v", k)
	}
	if err := k.Validate(); err != nil {
		t.Errorf("KeyerConfig().Validate() error = %v", err)
	}

	op := s.Operator()
	if op.Callsign != "K1ABC" || op.Name != "ANN" || op.Location != "OHIO" || op.Report != "599" {
		t.Errorf("Operator() = %+v", op)
	}

	a := s.AudioConfig()
	if a.SampleRate != 48000 || a.BufferSize != 256 || a.DeviceIndex != -1 || a.Frequency != 600 {
		t.Errorf("AudioConfig() = %+v", a)
	}
}

func TestSettings_StorePath(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_DATA_HOME", "")

	s := validSettings()
	want := filepath.Join(tmpDir, ".local", "share", AppName, "stats.db")
	if got := s.StorePath(); got != want {
		t.Errorf("StorePath() = %q, want %q", got, want)
	}

	t.Setenv("XDG_DATA_HOME", filepath.Join(tmpDir, "data"))
	if got := s.StorePath(); got != filepath.Join(tmpDir, "data", AppName, "stats.db") {
		t.Errorf("StorePath() with XDG_DATA_HOME = %q", got)
	}

	s.DBPath = "/tmp/custom.db"
	if got := s.StorePath(); got != "/tmp/custom.db" {
		t.Errorf("StorePath() = %q, want db_path", got)
	}
}

func TestDefaultConfig_ContainsExpectedKeys(t *testing.T) {
	keys := []string{
		"wpm:", "farnsworth_wpm:", "tone_frequency:", "haptic_enabled:",
		"callsign:", "operator_name:", "operator_qth:", "report:",
		"style:", "initiation:", "drill_symbols:", "drill_count:", "seed:",
		"device_index:", "sample_rate:", "buffer_size:", "mute:",
		"db_path:", "templates_file:", "debug:", "log_file:",
	}
	for _, key := range keys {
		if !strings.Contains(DefaultConfig, key) {
			t.Errorf("DefaultConfig missing key %q", key)
		}
	}
}

func validSettings() *Settings {
	return &Settings{
		WPM:           15,
		ToneFrequency: 600,
		HapticEnabled: true,
		Callsign:      "K1ABC",
		OperatorName:  "ANN",
		OperatorQTH:   "OHIO",
		Report:        "599",
		Style:         "beginner",
		Initiation:    "partner",
		DrillSymbols:  "ETIANM",
		DrillCount:    20,
		DeviceIndex:   -1,
		SampleRate:    48000,
		BufferSize:    256,
	}
}
