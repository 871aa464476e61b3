package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"routedash/internal/diagnostics"
	"routedash/internal/stats"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00CFCF"))
	outlierStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8C00"))
	positiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00C853"))
	negativeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	silentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
)

var weekdayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func renderModel(w io.Writer, p *diagnostics.Pipeline) {
	m := diagnostics.Snapshot(p, p.Today).Model
	fmt.Fprintln(w, headerStyle.Render("Route minutes model"))
	if m == nil {
		fmt.Fprintln(w, silentStyle.Render("  not enough usable days to fit"))
		return
	}
	fmt.Fprintf(w, "  minutes = %.1f + %.3f x parcels + %.3f x letters\n", m.A, m.BP, m.BL)
	fmt.Fprintf(w, "  R2 %.3f over %d days (scope %s)\n", m.R2, m.N, p.Scope)
	if m.Weighting.Enabled {
		fmt.Fprintf(w, "  holiday downweighting on, %d days downweighted\n", m.Weighting.DownweightedCount)
	}
	fmt.Fprintf(w, "  letter weight %.3f\n", p.LetterWeight())
}

func renderResiduals(w io.Writer, report stats.ResidualReport) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-12s %8s %8s %8s %6s", "Date", "Actual", "Model", "Resid", "z")))
	for _, r := range report.Ranked {
		line := fmt.Sprintf("%-12s %8.1f %8.1f %+8.1f %6.2f", r.ISO, r.RouteMinutes, r.PredictedMinutes, r.ResidualMinutes, r.Z)
		if r.Outlier {
			line = outlierStyle.Render(line + "  outlier")
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, silentStyle.Render(fmt.Sprintf("mean %.1f  sd %.1f  median %.1f  pool %d  dismissed %d",
		stats.Round1(report.Mean), stats.Round1(report.StdDev), stats.Round1(report.Median), report.PoolSize, report.DismissedCount)))
}

func renderComparison(w io.Writer, c *stats.DayComparison) {
	ref := c.ReferenceISO
	if ref == "" {
		ref = c.Reference.Label
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s vs %s (%s)", c.SubjectISO, ref, c.Mode)))
	for _, d := range c.Deltas {
		fmt.Fprintf(w, "  %-20s %10s %10s %s\n", d.Label, formatPtr(d.Subject), formatPtr(d.Reference), toneStyle(d.Tone).Render(formatDelta(d)))
	}
	if len(c.Highlights) > 0 {
		var keys []string
		for _, h := range c.Highlights {
			keys = append(keys, h.Label)
		}
		fmt.Fprintln(w, silentStyle.Render("  largest movers: "+strings.Join(keys, ", ")))
	}
}

func renderBaselines(w io.Writer, b diagnostics.Baselines) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-4s %9s %9s %9s %9s %8s", "Day", "Parcels", "Letters", "AnchorP", "AnchorL", "DriftP")))
	for i, name := range weekdayNames {
		fmt.Fprintf(w, "%-4s %9.1f %9.1f %9.1f %9.1f %8s\n", name,
			b.Weekly.Parcels[i], b.Weekly.Letters[i],
			b.Anchor.Parcels[i], b.Anchor.Letters[i],
			formatPercent(b.Drift.Parcels[i]))
	}
	fmt.Fprintln(w, silentStyle.Render(fmt.Sprintf("week of %s, anchor over %d weeks", b.Weekly.WeekStartISO, b.Anchor.Weeks)))
}

func toneStyle(t stats.Tone) lipgloss.Style {
	switch t {
	case stats.TonePositive:
		return positiveStyle
	case stats.ToneNegative:
		return negativeStyle
	default:
		return silentStyle
	}
}

func formatPtr(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func formatPercent(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%+.1f%%", *v)
}

func formatDelta(d stats.MetricDelta) string {
	if d.Delta == nil {
		return "-"
	}
	s := fmt.Sprintf("%+.2f", *d.Delta)
	if d.Percent != nil {
		s += fmt.Sprintf(" (%+.1f%%)", *d.Percent)
	}
	return s
}
