package payroll

import "github.com/shopspring/decimal"

// BonusCalculation is the bonus breakdown of one instructor and period.
type BonusCalculation struct {
	CoverCount     int
	CoverBonus     decimal.Decimal
	BrandingCount  int
	BrandingBonus  decimal.Decimal
	ThemeRideCount int
	ThemeRideBonus decimal.Decimal
	WorkshopCount  int
	WorkshopBonus  decimal.Decimal
	VersusBonus    decimal.Decimal
	Total          decimal.Decimal
}

// CalculateBonuses sums period-filtered bonus records.
//
// Covers count only when paid as bonus and approved. Brandings and theme
// rides contribute their Number times the unit rate. Workshops contribute
// their payment as is. Versus economics live in the class price, so the
// versus bonus is always zero here.
func CalculateBonuses(in BonusCollections, cfg EngineConfig) BonusCalculation {
	out := BonusCalculation{VersusBonus: decimal.Zero}

	for _, c := range in.Covers {
		if c.BonusPayment && c.Justification == JustificationApproved {
			out.CoverCount++
		}
	}
	out.CoverBonus = cfg.CoverRate.Mul(decimal.NewFromInt(int64(out.CoverCount)))

	for _, b := range in.Brandings {
		out.BrandingCount += b.Number
	}
	out.BrandingBonus = cfg.BrandingRate.Mul(decimal.NewFromInt(int64(out.BrandingCount)))

	for _, r := range in.ThemeRides {
		out.ThemeRideCount += r.Number
	}
	out.ThemeRideBonus = cfg.ThemeRideRate.Mul(decimal.NewFromInt(int64(out.ThemeRideCount)))

	out.WorkshopBonus = decimal.Zero
	for _, w := range in.Workshops {
		out.WorkshopCount++
		out.WorkshopBonus = out.WorkshopBonus.Add(w.Payment)
	}

	out.Total = out.CoverBonus.Add(out.BrandingBonus).Add(out.ThemeRideBonus).Add(out.WorkshopBonus)
	return out
}
