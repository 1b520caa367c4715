/*
calculator.go - End-to-end payment of one instructor for one period

PURPOSE:
  Composes metrics, category resolution, class pricing, bonuses and
  penalties into a PaymentCalculationData with a full audit trail.

FLOW:
  1. Load the instructor graph (one read)
  2. InstructorNotFoundError when absent, NoClassesError when no classes
  3. Group classes by discipline, in order of each discipline's first
     class (classes sorted by date, then ID)
  4. Per discipline:
     - no formula: discipline skipped and logged, calculation continues
     - manual category: used verbatim
     - otherwise: CategoryResolver recomputes against the formula loaded
       here (stored automatic categories are never reused across runs)
     - each class priced; a MissingTariffError aborts the calculation
  5. Bonuses from cover/branding/theme-ride/workshop records
  6. Penalties from ACTIVE penalties and the total class count
  7. retention    = baseAmount * RetentionRate
     finalPayment = baseAmount + bonuses - retention

  The penalty discount is reported in Penalties and NOT subtracted from
  FinalPayment; the caller applies it together with manual adjustments.

CONCURRENCY:
  Calculator keeps no state between calls. Runs for different instructors
  may proceed concurrently. Runs for the same instructor and period must be
  serialised by the caller because the category upsert is not isolated.

SEE ALSO:
  - category.go, class_payment.go, bonus.go, penalty.go
  - api/batch.go: Per-instructor batch runs
*/
package payroll

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/shopspring/decimal"
)

// DisciplineCategory records how one discipline was priced.
type DisciplineCategory struct {
	DisciplineID   DisciplineID
	DisciplineName string
	FormulaID      FormulaID
	Category       Category
	IsManual       bool
	ClassCount     int
	Subtotal       decimal.Decimal
}

// SkippedDiscipline is a discipline excluded from the base amount.
type SkippedDiscipline struct {
	DisciplineID   DisciplineID
	DisciplineName string
	ClassCount     int
	Reason         string
}

// PaymentCalculationData is the derived, unsaved payment report.
type PaymentCalculationData struct {
	InstructorID       InstructorID
	InstructorName     string
	PeriodID           PeriodID
	TenantID           TenantID
	BaseAmount         decimal.Decimal
	Bonuses            BonusCalculation
	Penalties          PenaltyCalculation
	RetentionRate      decimal.Decimal
	Retention          decimal.Decimal
	FinalPayment       decimal.Decimal
	TotalClasses       int
	Classes            []ClassCalculationResult
	Categories         []DisciplineCategory
	SkippedDisciplines []SkippedDiscipline
	Log                []string
}

// Calculator is the payment orchestrator.
type Calculator struct {
	Store    Store
	Resolver *CategoryResolver
	Config   EngineConfig
}

func NewCalculator(store Store, policy NonPrimeHourPolicy, cfg EngineConfig) *Calculator {
	return &Calculator{
		Store:    store,
		Resolver: NewCategoryResolver(store, policy, cfg),
		Config:   cfg,
	}
}

// CalculateInstructorPayment computes the payment of one instructor for one
// period.
func (c *Calculator) CalculateInstructorPayment(ctx context.Context, instructorID InstructorID, periodID PeriodID, tenantID TenantID) (*PaymentCalculationData, error) {
	graph, err := c.Store.FetchInstructorGraph(ctx, instructorID, periodID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("fetch instructor %s: %w", instructorID, err)
	}
	if graph == nil {
		return nil, &InstructorNotFoundError{InstructorID: instructorID, TenantID: tenantID}
	}
	if len(graph.Classes) == 0 {
		return nil, &NoClassesError{InstructorID: instructorID, PeriodID: periodID}
	}

	trail := NewTrail()
	trail.Addf("Payment of %s (%s) for period %s: %d classes",
		graph.Instructor.Name, instructorID, periodID, len(graph.Classes))

	data := &PaymentCalculationData{
		InstructorID:       instructorID,
		InstructorName:     graph.Instructor.Name,
		PeriodID:           periodID,
		TenantID:           tenantID,
		BaseAmount:         decimal.Zero,
		RetentionRate:      c.Config.RetentionRate,
		TotalClasses:       len(graph.Classes),
		Classes:            make([]ClassCalculationResult, 0, len(graph.Classes)),
		Categories:         []DisciplineCategory{},
		SkippedDisciplines: []SkippedDiscipline{},
	}

	for _, group := range groupByDiscipline(graph.Classes) {
		discipline := graph.disciplineOf(group.disciplineID, tenantID)

		formula, err := c.Store.FetchFormula(ctx, group.disciplineID, periodID, tenantID)
		if err != nil {
			return nil, fmt.Errorf("fetch formula for discipline %s: %w", group.disciplineID, err)
		}
		if formula == nil {
			missing := &MissingFormulaError{DisciplineID: group.disciplineID, PeriodID: periodID, TenantID: tenantID}
			log.Printf("[Calculator] %v; skipping %d classes of instructor %s", missing, len(group.classes), instructorID)
			trail.Addf("Discipline %s: no formula for period %s, %d classes excluded",
				discipline.Name, periodID, len(group.classes))
			data.SkippedDisciplines = append(data.SkippedDisciplines, SkippedDiscipline{
				DisciplineID:   group.disciplineID,
				DisciplineName: discipline.Name,
				ClassCount:     len(group.classes),
				Reason:         missing.Error(),
			})
			continue
		}

		category, manual := graph.ManualCategory(group.disciplineID)
		if manual {
			trail.Addf("Discipline %s: manual category %s", discipline.Name, category)
		} else {
			category, err = c.Resolver.ResolveWithFormula(ctx, instructorID, formula, periodID, tenantID, trail)
			if err != nil {
				return nil, fmt.Errorf("resolve category for discipline %s: %w", group.disciplineID, err)
			}
		}

		subtotal := decimal.Zero
		for _, class := range group.classes {
			result, err := CalculateClassPayment(class, category, formula, discipline, c.Config.location(), trail)
			if err != nil {
				return nil, fmt.Errorf("price discipline %s: %w", discipline.Name, err)
			}
			subtotal = subtotal.Add(result.CalculatedAmount)
			data.Classes = append(data.Classes, result)
		}
		data.BaseAmount = data.BaseAmount.Add(subtotal)
		data.Categories = append(data.Categories, DisciplineCategory{
			DisciplineID:   group.disciplineID,
			DisciplineName: discipline.Name,
			FormulaID:      formula.ID,
			Category:       category,
			IsManual:       manual,
			ClassCount:     len(group.classes),
			Subtotal:       subtotal,
		})
		trail.Addf("Discipline %s: subtotal %s over %d classes", discipline.Name, subtotal.String(), len(group.classes))
	}

	data.Bonuses = CalculateBonuses(graph.BonusCollections(), c.Config)
	trail.Addf("Bonuses: covers %s, brandings %s, theme rides %s, workshops %s, total %s",
		data.Bonuses.CoverBonus.String(), data.Bonuses.BrandingBonus.String(),
		data.Bonuses.ThemeRideBonus.String(), data.Bonuses.WorkshopBonus.String(),
		data.Bonuses.Total.String())

	data.Penalties = CalculatePenalties(activePenalties(graph.Penalties), len(graph.Classes), graph.Disciplines, c.Config, trail)

	data.Retention = data.BaseAmount.Mul(c.Config.RetentionRate)
	data.FinalPayment = data.BaseAmount.Add(data.Bonuses.Total).Sub(data.Retention)
	trail.Addf("Base %s, retention %s, bonuses %s, final payment %s",
		data.BaseAmount.String(), data.Retention.String(), data.Bonuses.Total.String(), data.FinalPayment.String())

	data.Log = trail.Lines()
	return data, nil
}

type disciplineGroup struct {
	disciplineID DisciplineID
	classes      []ClassRecord
}

func groupByDiscipline(classes []ClassRecord) []disciplineGroup {
	sorted := make([]ClassRecord, len(classes))
	copy(sorted, classes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].ID < sorted[j].ID
	})

	var groups []disciplineGroup
	index := make(map[DisciplineID]int)
	for _, class := range sorted {
		i, ok := index[class.DisciplineID]
		if !ok {
			i = len(groups)
			index[class.DisciplineID] = i
			groups = append(groups, disciplineGroup{disciplineID: class.DisciplineID})
		}
		groups[i].classes = append(groups[i].classes, class)
	}
	return groups
}

func activePenalties(penalties []Penalty) []Penalty {
	var active []Penalty
	for _, p := range penalties {
		if p.Active {
			active = append(active, p)
		}
	}
	return active
}

func (g *InstructorGraph) disciplineOf(id DisciplineID, tenantID TenantID) Discipline {
	if d, ok := g.Disciplines[id]; ok {
		return d
	}
	return Discipline{ID: id, TenantID: tenantID, Name: string(id)}
}
