// cmd/stats.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/cwtrainer/internal/cli/report"
	"github.com/ColonelBlimp/cwtrainer/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show recent sessions and the symbols you miss most",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntP("last", "l", 10, "number of recent sessions to list")
	statsCmd.Flags().Int("window", 20, "sessions considered for weak symbols")
	statsCmd.Flags().Int("top", 10, "weak symbols to show")
}

func runStats(cmd *cobra.Command, _ []string) error {
	last, _ := cmd.Flags().GetInt("last")
	window, _ := cmd.Flags().GetInt("window")
	top, _ := cmd.Flags().GetInt("top")

	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	st, err := store.Open(s.StorePath())
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	sessions, err := st.ListSessions(ctx, last)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	aggs, err := st.SymbolAggregates(ctx, window)
	if err != nil {
		return fmt.Errorf("symbol stats: %w", err)
	}

	out := cmd.OutOrStdout()
	if err := report.Sessions(out, sessions); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return report.WeakSymbols(out, aggs, top)
}
