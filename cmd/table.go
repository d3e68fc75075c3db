// cmd/table.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/cwtrainer/internal/cli/practice"
	"github.com/ColonelBlimp/cwtrainer/internal/cli/report"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the Morse code table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		return report.Table(out, report.TerminalWidth(out))
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio playback devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		names, err := practice.ListAudioDevices()
		if err != nil {
			return fmt.Errorf("audio: %w", err)
		}
		for i, name := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", i, name)
		}
		return nil
	},
}
