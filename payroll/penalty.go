/*
penalty.go - Penalty points to discount percentage

PURPOSE:
  Converts a period's active penalty points into a capped discount.

RULE:
  maxAllowed = floor(totalClasses * 10 / 100)
  excess     = max(0, totalPoints - maxAllowed)
  discount % = min(excess, 10)

  One excess point is one percent. Points within the allowance are free.

  The discount is reported, not applied: the payment's finalPayment does
  not subtract it (see calculator.go).
*/
package payroll

import "time"

type PenaltyDetail struct {
	ID             string
	Points         int
	Type           PenaltyType
	Description    string
	AppliedAt      time.Time
	DisciplineID   *DisciplineID
	DisciplineName string
}

type PenaltyCalculation struct {
	TotalPoints     int
	MaxAllowed      int
	ExcessPoints    int
	DiscountPercent int
	Details         []PenaltyDetail
}

const generalDiscipline = "General"

// CalculatePenalties computes the discount for already-active penalties.
// disciplines resolves discipline names for the detail list.
func CalculatePenalties(penalties []Penalty, totalClasses int, disciplines map[DisciplineID]Discipline, cfg EngineConfig, trail *Trail) PenaltyCalculation {
	out := PenaltyCalculation{Details: []PenaltyDetail{}}
	if len(penalties) == 0 {
		return out
	}
	out.MaxAllowed = totalClasses * cfg.PenaltyAllowancePercent / 100

	for _, p := range penalties {
		out.TotalPoints += p.Points
		name := generalDiscipline
		if p.DisciplineID != nil {
			name = string(*p.DisciplineID)
			if d, ok := disciplines[*p.DisciplineID]; ok {
				name = d.Name
			}
		}
		out.Details = append(out.Details, PenaltyDetail{
			ID:             p.ID,
			Points:         p.Points,
			Type:           p.Type,
			Description:    p.Description,
			AppliedAt:      p.AppliedAt,
			DisciplineID:   p.DisciplineID,
			DisciplineName: name,
		})
	}

	if out.TotalPoints > out.MaxAllowed {
		out.ExcessPoints = out.TotalPoints - out.MaxAllowed
	}
	out.DiscountPercent = out.ExcessPoints
	if out.DiscountPercent > cfg.MaxPenaltyDiscount {
		out.DiscountPercent = cfg.MaxPenaltyDiscount
	}

	trail.Addf("Penalties: %d points, %d allowed for %d classes, %d excess, discount %d%%",
		out.TotalPoints, out.MaxAllowed, totalClasses, out.ExcessPoints, out.DiscountPercent)
	return out
}
