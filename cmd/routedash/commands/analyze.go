package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"routedash/internal/diagnostics"
	"routedash/internal/stats"
)

var (
	fitFresh    bool
	compareMode string
	compareRef  string
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit the model and print its coefficients",
	RunE: func(cmd *cobra.Command, args []string) error {
		trigger := diagnostics.TriggerStartup
		if fitFresh {
			trigger = diagnostics.TriggerReload
		}
		p, err := engine.Rebuild(cmd.Context(), trigger)
		if err != nil {
			return err
		}
		renderModel(cmd.OutOrStdout(), p)
		return nil
	},
}

var residualsCmd = &cobra.Command{
	Use:   "residuals",
	Short: "Print the ranked residual table",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := engine.Current(cmd.Context())
		if err != nil {
			return err
		}
		if p.Model == nil {
			return fmt.Errorf("no model available")
		}
		renderResiduals(cmd.OutOrStdout(), p.Residuals)
		return nil
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare <date>",
	Short: "Compare a day against a reference day or the weekday average",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := stats.ParseCompareMode(compareMode)
		if mode == stats.CompareManual && compareRef == "" {
			return fmt.Errorf("--mode manual requires --ref")
		}
		result, ok, err := engine.Compare(cmd.Context(), args[0], mode, compareRef)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no %s reference available for %s", mode, args[0])
		}
		renderComparison(cmd.OutOrStdout(), result)
		return nil
	},
}

var baselinesCmd = &cobra.Command{
	Use:   "baselines",
	Short: "Print weekday volume baselines and drift",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := engine.Current(cmd.Context())
		if err != nil {
			return err
		}
		renderBaselines(cmd.OutOrStdout(), p.Baselines)
		return nil
	},
}

func init() {
	fitCmd.Flags().BoolVar(&fitFresh, "fresh", false, "drop memoized fits before fitting")
	compareCmd.Flags().StringVar(&compareMode, "mode", string(stats.CompareLast), "reference: last, baseline or manual")
	compareCmd.Flags().StringVar(&compareRef, "ref", "", "reference date for --mode manual")
}
