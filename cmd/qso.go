// cmd/qso.go
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ColonelBlimp/cwtrainer/internal/cli/practice"
	"github.com/ColonelBlimp/cwtrainer/internal/clock"
	"github.com/ColonelBlimp/cwtrainer/internal/config"
	"github.com/ColonelBlimp/cwtrainer/internal/qso"
	"github.com/ColonelBlimp/cwtrainer/internal/session"
	"github.com/ColonelBlimp/cwtrainer/internal/store"
)

var qsoCmd = &cobra.Command{
	Use:   "qso",
	Short: "Work a scripted QSO with a virtual station",
	Long: `Work a scripted QSO. The virtual station's lines are played as Morse;
key each of your replies and press enter to send it. Replies are matched
tolerantly: case, spacing and the order of optional words do not matter.`,
	RunE: runQSO,
}

func init() {
	addQSOFlags(qsoCmd)
}

// addQSOFlags adds the QSO flags to c. The root command shares them so a
// bare invocation can start a QSO.
func addQSOFlags(c *cobra.Command) {
	c.Flags().StringP("style", "s", "", "conversation style (beginner, intermediate, advanced, expert)")
	c.Flags().StringP("initiation", "i", "", "who calls CQ: partner or user")
}

// bindQSOFlags binds the QSO flags of c. Flags live on each command, so
// the one that ran is bound.
func bindQSOFlags(c *cobra.Command) error {
	for _, name := range []string{"style", "initiation"} {
		if err := viper.BindPFlag(name, c.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

func runQSO(cmd *cobra.Command, _ []string) error {
	if err := bindQSOFlags(cmd); err != nil {
		return err
	}

	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(s)
	if err != nil {
		return err
	}
	defer closeLog()

	lib, err := loadLibrary(s)
	if err != nil {
		return err
	}
	style, err := lib.Style(s.Style)
	if err != nil {
		return fmt.Errorf("config: %w (available: %v)", err, lib.StyleNames())
	}
	mode, err := qso.ParseInitiation(s.Initiation)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	engine, err := qso.NewEngine(s.Operator(), qso.NewStationGenerator(lib.Stations, seed(s)), clock.System{})
	if err != nil {
		return err
	}
	conv := session.NewConversation(engine, style, mode)

	res, err := practice.Run(cmd.Context(), s, conv, practice.Options{
		Title: fmt.Sprintf("QSO · %s", style.Name),
		Style: style.Name,
		Setup: func(rec *store.Recorder) { engine.SetStatsSink(rec) },
	}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Summary())
	return nil
}

func loadLibrary(s *config.Settings) (*qso.Library, error) {
	if s.TemplatesFile != "" {
		lib, err := qso.LoadLibraryFile(s.TemplatesFile)
		if err != nil {
			return nil, fmt.Errorf("config: templates_file: %w", err)
		}
		return lib, nil
	}
	return qso.DefaultLibrary()
}

// seed returns the configured seed, or a fresh one when it is zero.
func seed(s *config.Settings) int64 {
	if s.Seed != 0 {
		return s.Seed
	}
	return time.Now().UnixNano()
}
