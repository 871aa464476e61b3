package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"routedash/internal/stats"
)

var dismissCmd = &cobra.Command{
	Use:     "dismiss <date> <reasons...>",
	Short:   "Dismiss a day from anomaly statistics",
	Example: `  routedash dismiss 2024-03-04 "Weather +10, Late mail"`,
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := engine.Dismiss(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !res.Applied {
			fmt.Fprintln(out, silentStyle.Render("No reason recognized; nothing dismissed."))
			return nil
		}
		fmt.Fprintf(out, "Dismissed %s:\n", res.ISO)
		for _, r := range res.Reasons {
			fmt.Fprintf(out, "  %s %s\n", r.Reason, silentStyle.Render(formatMinutes(r.Minutes)))
		}
		return nil
	},
}

var reinstateCmd = &cobra.Command{
	Use:   "reinstate <date>",
	Short: "Count a dismissed day again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := engine.Reinstate(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !removed {
			fmt.Fprintf(cmd.OutOrStdout(), "%s was not dismissed\n", args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reinstated %s\n", args[0])
		return nil
	},
}

var holidayDownweightCmd = &cobra.Command{
	Use:       "holiday-downweight on|off",
	Short:     "Toggle downweighting of post-holiday catch-up days",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseOnOff(args[0])
		if err != nil {
			return err
		}
		p, err := engine.SetHolidayDownweight(cmd.Context(), on)
		if err != nil {
			return err
		}
		renderModel(cmd.OutOrStdout(), p)
		return nil
	},
}

var scopeCmd = &cobra.Command{
	Use:       "scope rolling|all",
	Short:     "Choose the history window the model fits",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(stats.ScopeRolling), string(stats.ScopeAll)},
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := strings.ToLower(args[0])
		if raw != string(stats.ScopeRolling) && raw != string(stats.ScopeAll) {
			return fmt.Errorf("unknown scope %q: use rolling or all", args[0])
		}
		p, err := engine.SetModelScope(cmd.Context(), stats.ModelScope(raw))
		if err != nil {
			return err
		}
		renderModel(cmd.OutOrStdout(), p)
		return nil
	},
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes":
		return true, nil
	case "off", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func formatMinutes(m *float64) string {
	if m == nil {
		return ""
	}
	return fmt.Sprintf("(%s min)", strconv.FormatFloat(*m, 'f', -1, 64))
}
