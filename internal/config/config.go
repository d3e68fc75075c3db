// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ColonelBlimp/cwtrainer/internal/audio"
	"github.com/ColonelBlimp/cwtrainer/internal/cw"
	"github.com/ColonelBlimp/cwtrainer/internal/qso"
)

const (
	AppName       = "cwtrainer"
	ConfigType    = "yaml"
	DefaultConfig = `# CW Trainer Configuration

# Keying
wpm: 15                 # Character speed (clamped to 10-18)
farnsworth_wpm: 0       # Effective speed for spacing, 0 = same as wpm
tone_frequency: 600     # Sidetone pitch in Hz (clamped to 400-800)
haptic_enabled: true    # Flash the key indicator for every element

# Your station
callsign: "N0CALL"      # Sent in every QSO
operator_name: "OP"
operator_qth: "HOME"
report: "599"           # RST you give the other station

# Practice
style: "beginner"       # beginner, intermediate, advanced, expert
initiation: "partner"   # partner = they call CQ, user = you call CQ
drill_symbols: "ETIANMSURWDKGO"
drill_count: 20
seed: 0                 # 0 = new stations every run

# Audio output
device_index: -1        # -1 for default device
sample_rate: 48000      # Output sample rate in Hz
buffer_size: 256        # Frames per callback (power of 2)
mute: false             # Practice without sound

# Storage
db_path: ""             # Empty = ~/.local/share/cwtrainer/stats.db
templates_file: ""      # Optional TOML file replacing the built-in QSO templates

# Output
debug: false            # Write debug log
log_file: "cwtrainer.log"
`

	MinWPM       = 10
	MaxWPM       = 18
	MinFrequency = 400.0
	MaxFrequency = 800.0
)

// Settings holds all application configuration
type Settings struct {
	// Keying
	WPM           int     `mapstructure:"wpm"`
	FarnsworthWPM int     `mapstructure:"farnsworth_wpm"`
	ToneFrequency float64 `mapstructure:"tone_frequency"`
	HapticEnabled bool    `mapstructure:"haptic_enabled"`

	// Station
	Callsign     string `mapstructure:"callsign"`
	OperatorName string `mapstructure:"operator_name"`
	OperatorQTH  string `mapstructure:"operator_qth"`
	Report       string `mapstructure:"report"`

	// Practice
	Style        string `mapstructure:"style"`
	Initiation   string `mapstructure:"initiation"`
	DrillSymbols string `mapstructure:"drill_symbols"`
	DrillCount   int    `mapstructure:"drill_count"`
	Seed         int64  `mapstructure:"seed"`

	// Audio output
	DeviceIndex int     `mapstructure:"device_index"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	BufferSize  int     `mapstructure:"buffer_size"`
	Mute        bool    `mapstructure:"mute"`

	// Storage
	DBPath        string `mapstructure:"db_path"`
	TemplatesFile string `mapstructure:"templates_file"`

	// Output
	Debug   bool   `mapstructure:"debug"`
	LogFile string `mapstructure:"log_file"`
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/cwtrainer/
func Init() error {
	viper.SetDefault("wpm", 15)
	viper.SetDefault("farnsworth_wpm", 0)
	viper.SetDefault("tone_frequency", 600)
	viper.SetDefault("haptic_enabled", true)
	viper.SetDefault("callsign", "N0CALL")
	viper.SetDefault("operator_name", "OP")
	viper.SetDefault("operator_qth", "HOME")
	viper.SetDefault("report", "599")
	viper.SetDefault("style", "beginner")
	viper.SetDefault("initiation", "partner")
	viper.SetDefault("drill_symbols", "ETIANMSURWDKGO")
	viper.SetDefault("drill_count", 20)
	viper.SetDefault("seed", 0)
	viper.SetDefault("device_index", -1)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("buffer_size", 256)
	viper.SetDefault("mute", false)
	viper.SetDefault("db_path", "")
	viper.SetDefault("templates_file", "")
	viper.SetDefault("debug", false)
	viper.SetDefault("log_file", "cwtrainer.log")

	viper.SetConfigType(ConfigType)

	// Priority order: current directory first, then XDG config
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("read config: %w", err)
		}
		// No config found - create default in ~/.config/cwtrainer/
		if err = ensureConfigExists(filepath.Join(configDir, AppName)); err != nil {
			return err
		}
		if err = viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings, clamped and validated. Adjustments
// made by clamping are returned so the caller can report them.
func Get() (*Settings, []string, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}
	notes := s.Clamp()
	if err := s.Validate(); err != nil {
		return nil, notes, fmt.Errorf("invalid config: %w", err)
	}
	return &s, notes, nil
}

// Clamp pulls the user-tunable values into their supported ranges and
// normalizes station text to upper case.
func (s *Settings) Clamp() []string {
	var notes []string

	if s.WPM < MinWPM || s.WPM > MaxWPM {
		v := min(max(s.WPM, MinWPM), MaxWPM)
		notes = append(notes, fmt.Sprintf("wpm %d clamped to %d", s.WPM, v))
		s.WPM = v
	}
	if s.FarnsworthWPM < 0 || s.FarnsworthWPM > s.WPM {
		v := min(max(s.FarnsworthWPM, 0), s.WPM)
		notes = append(notes, fmt.Sprintf("farnsworth_wpm %d clamped to %d", s.FarnsworthWPM, v))
		s.FarnsworthWPM = v
	}
	if s.ToneFrequency < MinFrequency || s.ToneFrequency > MaxFrequency {
		v := min(max(s.ToneFrequency, MinFrequency), MaxFrequency)
		notes = append(notes, fmt.Sprintf("tone_frequency %v clamped to %v", s.ToneFrequency, v))
		s.ToneFrequency = v
	}

	s.Callsign = strings.ToUpper(strings.TrimSpace(s.Callsign))
	s.OperatorName = strings.ToUpper(strings.TrimSpace(s.OperatorName))
	s.OperatorQTH = strings.ToUpper(strings.TrimSpace(s.OperatorQTH))
	s.Report = strings.ToUpper(strings.TrimSpace(s.Report))
	s.DrillSymbols = strings.ToUpper(s.DrillSymbols)
	return notes
}

// Validate checks the structural settings. Tunable ranges are handled by Clamp.
func (s *Settings) Validate() error {
	var errs []error

	// Keying
	if s.WPM <= 0 {
		errs = append(errs, fmt.Errorf("wpm must be positive, got %d", s.WPM))
	}
	if s.ToneFrequency <= 0 {
		errs = append(errs, fmt.Errorf("tone_frequency must be positive, got %v", s.ToneFrequency))
	}

	// Station
	if s.Callsign == "" {
		errs = append(errs, errors.New("callsign must be set"))
	}
	for _, f := range []struct{ key, value string }{
		{"callsign", s.Callsign},
		{"operator_name", s.OperatorName},
		{"operator_qth", s.OperatorQTH},
		{"report", s.Report},
	} {
		if strings.ContainsRune(f.value, ' ') {
			errs = append(errs, fmt.Errorf("%s must be a single word, got %q", f.key, f.value))
			continue
		}
		if err := keyable(f.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.key, err))
		}
	}

	// Practice
	if strings.TrimSpace(s.Style) == "" {
		errs = append(errs, errors.New("style must be set"))
	}
	if _, err := qso.ParseInitiation(s.Initiation); err != nil {
		errs = append(errs, fmt.Errorf("initiation: %w", err))
	}
	if strings.TrimSpace(s.DrillSymbols) == "" {
		errs = append(errs, errors.New("drill_symbols must not be empty"))
	} else if err := keyable(strings.ReplaceAll(s.DrillSymbols, " ", "")); err != nil {
		errs = append(errs, fmt.Errorf("drill_symbols: %w", err))
	}
	if s.DrillCount < 1 || s.DrillCount > 1000 {
		errs = append(errs, fmt.Errorf("drill_count must be between 1 and 1000, got %d", s.DrillCount))
	}

	// Audio output
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %v", s.SampleRate))
	}
	if s.BufferSize < 64 || s.BufferSize > 8192 {
		errs = append(errs, fmt.Errorf("buffer_size must be between 64 and 8192, got %d", s.BufferSize))
	}
	if s.BufferSize&(s.BufferSize-1) != 0 {
		errs = append(errs, fmt.Errorf("buffer_size should be a power of 2, got %d", s.BufferSize))
	}
	if s.ToneFrequency >= s.SampleRate/2 {
		errs = append(errs, fmt.Errorf("tone_frequency (%v Hz) must be less than Nyquist frequency (%v Hz)", s.ToneFrequency, s.SampleRate/2))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// KeyerConfig returns the keyer timing and tone settings.
func (s *Settings) KeyerConfig() cw.KeyerConfig {
	return cw.KeyerConfig{
		WPM:           s.WPM,
		FarnsworthWPM: s.FarnsworthWPM,
		ToneFrequency: s.ToneFrequency,
		HapticEnabled: s.HapticEnabled,
	}
}

// Operator returns the user's station details.
func (s *Settings) Operator() qso.Operator {
	return qso.Operator{
		Callsign: s.Callsign,
		Name:     s.OperatorName,
		Location: s.OperatorQTH,
		Report:   s.Report,
	}
}

// AudioConfig returns the playback device settings.
func (s *Settings) AudioConfig() audio.Config {
	return audio.Config{
		DeviceIndex: s.DeviceIndex,
		SampleRate:  uint32(s.SampleRate),
		BufferSize:  uint32(s.BufferSize),
		Frequency:   s.ToneFrequency,
	}
}

// StorePath returns the statistics database path, defaulting to the
// user data directory.
func (s *Settings) StorePath() string {
	if s.DBPath != "" {
		return s.DBPath
	}
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		dataDir = filepath.Join(os.Getenv("HOME"), ".local", "share")
	}
	return filepath.Join(dataDir, AppName, "stats.db")
}

func keyable(s string) error {
	for _, r := range s {
		if _, ok := cw.PatternFor(r); !ok {
			return fmt.Errorf("%w: %q", cw.ErrUnknownSymbol, r)
		}
	}
	return nil
}
