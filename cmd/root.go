// cmd/root.go
package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ColonelBlimp/cwtrainer/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "cwtrainer",
	Short: "CW (Morse code) keying trainer",
	Long: `A terminal Morse code trainer. Key replies to a virtual station in a
scripted QSO, or drill single symbols. Without a subcommand a QSO is started.`,
	SilenceUsage: true,
	RunE:         runQSO,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	rootCmd.PersistentFlags().IntP("device", "d", -1, "audio device index (-1 for default)")
	rootCmd.PersistentFlags().Float64P("frequency", "f", 600, "sidetone frequency in Hz")
	rootCmd.PersistentFlags().IntP("wpm", "w", 15, "keying speed in words per minute")
	rootCmd.PersistentFlags().StringP("callsign", "c", "", "your callsign")
	rootCmd.PersistentFlags().BoolP("mute", "m", false, "practice without sound")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "write a debug log")

	// Bind flags to viper
	cobra.CheckErr(viper.BindPFlag("device_index", rootCmd.PersistentFlags().Lookup("device")))
	cobra.CheckErr(viper.BindPFlag("tone_frequency", rootCmd.PersistentFlags().Lookup("frequency")))
	cobra.CheckErr(viper.BindPFlag("wpm", rootCmd.PersistentFlags().Lookup("wpm")))
	cobra.CheckErr(viper.BindPFlag("callsign", rootCmd.PersistentFlags().Lookup("callsign")))
	cobra.CheckErr(viper.BindPFlag("mute", rootCmd.PersistentFlags().Lookup("mute")))
	cobra.CheckErr(viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")))

	addQSOFlags(rootCmd)
	rootCmd.AddCommand(qsoCmd, drillCmd, statsCmd, tableCmd, devicesCmd)
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
}

// loadSettings reads the validated settings and reports any clamped values.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	s, notes, err := config.Get()
	for _, n := range notes {
		fmt.Fprintf(cmd.ErrOrStderr(), "config: %s\n", n)
	}
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return s, nil
}

// setupLogging sends the standard logger to the debug log file, or
// discards it. The terminal belongs to the interface while it runs.
func setupLogging(s *config.Settings) (func(), error) {
	if !s.Debug {
		log.SetOutput(io.Discard)
		return func() {}, nil
	}
	f, err := tea.LogToFile(s.LogFile, config.AppName)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return func() { _ = f.Close() }, nil
}
