// cmd/drill.go
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ColonelBlimp/cwtrainer/internal/cli/practice"
	"github.com/ColonelBlimp/cwtrainer/internal/session"
)

var drillCmd = &cobra.Command{
	Use:   "drill",
	Short: "Key single symbols and get scored on each",
	Long: `Drill single symbols. A symbol is shown; key it. A miss plays the
correct pattern before you try again.`,
	RunE: runDrill,
}

func init() {
	drillCmd.Flags().String("symbols", "", "symbols to drill (default from config)")
	drillCmd.Flags().IntP("count", "n", 0, "number of attempts (default from config)")
	cobra.CheckErr(viper.BindPFlag("drill_symbols", drillCmd.Flags().Lookup("symbols")))
	cobra.CheckErr(viper.BindPFlag("drill_count", drillCmd.Flags().Lookup("count")))
}

func runDrill(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(s)
	if err != nil {
		return err
	}
	defer closeLog()

	d, err := session.NewDrill([]rune(strings.ReplaceAll(s.DrillSymbols, " ", "")), s.DrillCount, seed(s))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	res, err := practice.Run(cmd.Context(), s, d, practice.Options{Title: "Symbol drill"}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Summary())
	return nil
}
