package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/warp/studio-payroll/payroll"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	moneyStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

func money(d decimal.Decimal) string {
	return "S/ " + d.StringFixed(2)
}

func row(label, value string) string {
	return fmt.Sprintf("%s %s", labelStyle.Render(fmt.Sprintf("%-18s", label)), value)
}

// renderPayment formats a payment calculation: summary box, per-discipline
// subtotals, priced classes, skipped disciplines, then the log.
func renderPayment(d *payroll.PaymentCalculationData) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (%s) · period %s", d.InstructorName, d.InstructorID, d.PeriodID)))
	b.WriteString("\n")

	summary := []string{
		row("Classes", fmt.Sprintf("%d", d.TotalClasses)),
		row("Base amount", money(d.BaseAmount)),
		row("Bonuses", money(d.Bonuses.Total)),
		row("Retention", fmt.Sprintf("%s (%s%%)", money(d.Retention), d.RetentionRate.Mul(decimal.NewFromInt(100)).String())),
		row("Final payment", moneyStyle.Render(money(d.FinalPayment))),
	}
	if d.Penalties.TotalPoints > 0 {
		penalty := fmt.Sprintf("%d pts, %d allowed, %d%% discount",
			d.Penalties.TotalPoints, d.Penalties.MaxAllowed, d.Penalties.DiscountPercent)
		if d.Penalties.DiscountPercent > 0 {
			penalty = warnStyle.Render(penalty)
		}
		summary = append(summary, row("Penalties", penalty))
	}
	b.WriteString(boxStyle.Render(strings.Join(summary, "\n")))
	b.WriteString("\n\n")

	if len(d.Categories) > 0 {
		b.WriteString(titleStyle.Render("Disciplines"))
		b.WriteString("\n")
		for _, c := range d.Categories {
			source := "computed"
			if c.IsManual {
				source = "manual"
			}
			fmt.Fprintf(&b, "  %-12s %-18s %-8s %3d classes  %s\n",
				c.DisciplineName, c.Category, source, c.ClassCount, money(c.Subtotal))
		}
		b.WriteString("\n")
	}

	if len(d.Classes) > 0 {
		b.WriteString(titleStyle.Render("Classes"))
		b.WriteString("\n")
		for _, c := range d.Classes {
			date := "--"
			if !c.Date.IsZero() {
				date = c.Date.Format("02/01") + " " + c.Hour
			}
			marks := ""
			if c.FullHouse {
				marks += " FH"
			}
			if c.IsVersus {
				marks += fmt.Sprintf(" VS/%d", c.VersusNumber)
			}
			fmt.Fprintf(&b, "  %-11s %-12s %-12s %2d/%-3d %10s%s\n",
				date, c.DisciplineName, c.Studio, c.Reservations, c.Spots, money(c.CalculatedAmount), marks)
		}
		b.WriteString("\n")
	}

	if len(d.SkippedDisciplines) > 0 {
		b.WriteString(warnStyle.Render("Skipped"))
		b.WriteString("\n")
		for _, s := range d.SkippedDisciplines {
			fmt.Fprintf(&b, "  %-12s %3d classes  %s\n", s.DisciplineName, s.ClassCount, errStyle.Render(s.Reason))
		}
		b.WriteString("\n")
	}

	b.WriteString(titleStyle.Render("Log"))
	b.WriteString("\n")
	for _, line := range d.Log {
		b.WriteString(labelStyle.Render("  · "))
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func renderCategory(category payroll.Category, stored *payroll.InstructorCategory, log []string) string {
	var b strings.Builder

	lines := []string{row("Category", moneyStyle.Render(string(category)))}
	if stored != nil {
		source := "computed"
		if stored.IsManual {
			source = warnStyle.Render("manual")
		}
		lines = append(lines, row("Source", source))
		if m := stored.Metrics; m != nil {
			lines = append(lines,
				row("Classes", fmt.Sprintf("%d", m.TotalClasses)),
				row("Occupancy", fmt.Sprintf("%d%%", m.AverageOccupancy)),
				row("Locations", fmt.Sprintf("%d", m.TotalLocations)),
				row("Double shifts", fmt.Sprintf("%d", m.TotalDoubleShifts)),
				row("Non-prime hours", fmt.Sprintf("%d", m.NonPrimeHours)),
			)
		}
	}
	b.WriteString(boxStyle.Render(strings.Join(lines, "\n")))
	b.WriteString("\n")

	for _, line := range log {
		b.WriteString(labelStyle.Render("  · "))
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func renderFormula(f *payroll.Formula) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Formula %s · discipline %s · period %s", f.ID, f.DisciplineID, f.PeriodID)))
	b.WriteString("\n")

	for _, c := range payroll.CategoriesByRank {
		req, hasReq := f.Requirements[c]
		params, hasParams := f.Parameters[c]
		if !hasReq && !hasParams {
			continue
		}

		lines := []string{titleStyle.Render(string(c))}
		if hasReq {
			lines = append(lines, row("Requirements", fmt.Sprintf("occ ≥%d%%, classes ≥%d, locations ≥%d, doubles ≥%d, non-prime ≥%d",
				req.Occupancy, req.Classes, req.Locations, req.DoubleShifts, req.NonPrimeHours)))
		} else {
			lines = append(lines, row("Requirements", warnStyle.Render("none (never selected)")))
		}
		if hasParams {
			tiers := make([]string, len(params.Tiers))
			for i, t := range params.Tiers {
				tiers[i] = fmt.Sprintf("≤%d: %s", t.Reservations, t.Rate.String())
			}
			lines = append(lines,
				row("Tiers", strings.Join(tiers, ", ")),
				row("Full house", params.FullHouseRate.String()),
				row("Min / Max", fmt.Sprintf("%s / %s", params.GuaranteedMinimum.String(), params.Maximum.String())),
			)
		} else {
			lines = append(lines, row("Tariff", errStyle.Render("missing (classes in this category fail)")))
		}
		b.WriteString(boxStyle.Render(strings.Join(lines, "\n")))
		b.WriteString("\n")
	}
	return b.String()
}
