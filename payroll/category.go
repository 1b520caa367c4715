/*
category.go - Category resolution per discipline and period

PURPOSE:
  Decides which tariff tier an instructor qualifies for in a discipline.

RESOLUTION ORDER:
  1. A manual category for the triple is returned verbatim. Nothing is
     computed and nothing is written.
  2. Without a formula the instructor is INSTRUCTOR (logged, not an error).
  3. Metrics are computed and categories are evaluated from
     SENIOR_AMBASSADOR down to INSTRUCTOR. The first category whose
     requirements are ALL met wins; otherwise INSTRUCTOR.
  4. The result and its metrics snapshot are upserted with isManual=false
     on every run, changed or not.

REQUIREMENT CHECK:
  occupancy, classes, locations, double shifts and non-prime hours are
  ">= requirement". Classes compares the period's total class count, not
  a per-week figure. Event participation and guidelines only matter when
  the requirement flags them.

SEE ALSO:
  - metrics.go: Metric computation
  - calculator.go: Calls ResolveWithFormula once per discipline with the
    formula it prices classes with
*/
package payroll

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// CategoryResolver resolves and persists instructor categories.
type CategoryResolver struct {
	Store   Store
	Metrics *MetricsEngine

	// Now is used for UpdatedAt; defaults to time.Now.
	Now func() time.Time
}

func NewCategoryResolver(store Store, policy NonPrimeHourPolicy, cfg EngineConfig) *CategoryResolver {
	return &CategoryResolver{
		Store:   store,
		Metrics: &MetricsEngine{Store: store, Policy: policy, Config: cfg},
		Now:     time.Now,
	}
}

// Resolve returns the authoritative category for (instructor, discipline,
// period). It always returns one of the four categories unless a
// collaborator fails.
func (r *CategoryResolver) Resolve(ctx context.Context, instructorID InstructorID, disciplineID DisciplineID, periodID PeriodID, tenantID TenantID, trail *Trail) (Category, error) {
	if category, ok, err := r.manual(ctx, instructorID, disciplineID, periodID, tenantID, trail); err != nil || ok {
		return category, err
	}

	formula, err := r.Store.FetchFormula(ctx, disciplineID, periodID, tenantID)
	if err != nil {
		return "", fmt.Errorf("fetch formula: %w", err)
	}
	return r.compute(ctx, instructorID, disciplineID, periodID, tenantID, formula, trail)
}

// ResolveWithFormula is Resolve for a caller that already loaded the
// discipline's formula, so the category and the class prices come from the
// same formula row.
func (r *CategoryResolver) ResolveWithFormula(ctx context.Context, instructorID InstructorID, formula *Formula, periodID PeriodID, tenantID TenantID, trail *Trail) (Category, error) {
	if formula == nil {
		return "", fmt.Errorf("resolve category: %w", ErrMissingFormula)
	}
	disciplineID := formula.DisciplineID
	if category, ok, err := r.manual(ctx, instructorID, disciplineID, periodID, tenantID, trail); err != nil || ok {
		return category, err
	}
	return r.compute(ctx, instructorID, disciplineID, periodID, tenantID, formula, trail)
}

func (r *CategoryResolver) manual(ctx context.Context, instructorID InstructorID, disciplineID DisciplineID, periodID PeriodID, tenantID TenantID, trail *Trail) (Category, bool, error) {
	manual, err := r.Store.FindManualCategory(ctx, instructorID, disciplineID, periodID, tenantID)
	if err != nil {
		return "", false, fmt.Errorf("find manual category: %w", err)
	}
	if manual == nil {
		return "", false, nil
	}
	trail.Addf("Discipline %s: manual category %s applies, not recalculated", disciplineID, manual.Category)
	return manual.Category, true, nil
}

func (r *CategoryResolver) compute(ctx context.Context, instructorID InstructorID, disciplineID DisciplineID, periodID PeriodID, tenantID TenantID, formula *Formula, trail *Trail) (Category, error) {
	if formula == nil {
		log.Printf("[CategoryResolver] No formula for discipline %s period %s (tenant %s), defaulting to %s",
			disciplineID, periodID, tenantID, CategoryInstructor)
		trail.Addf("Discipline %s: no formula for period %s, category defaults to %s", disciplineID, periodID, CategoryInstructor)
		return CategoryInstructor, nil
	}

	metrics, err := r.Metrics.Compute(ctx, instructorID, disciplineID, periodID, tenantID)
	if err != nil {
		return "", err
	}

	category := EvaluateCategory(metrics, formula.Requirements)
	trail.Addf("Discipline %s: metrics classes=%d occupancy=%d%% locations=%d doubleShifts=%d nonPrime=%d events=%t guidelines=%t",
		disciplineID, metrics.TotalClasses, metrics.AverageOccupancy, metrics.TotalLocations,
		metrics.TotalDoubleShifts, metrics.NonPrimeHours, metrics.EventParticipation, metrics.MeetsGuidelines)
	trail.Addf("Discipline %s: category resolved to %s", disciplineID, category)

	snapshot := metrics
	row := InstructorCategory{
		ID:           uuid.NewString(),
		InstructorID: instructorID,
		DisciplineID: disciplineID,
		PeriodID:     periodID,
		TenantID:     tenantID,
		Category:     category,
		IsManual:     false,
		Metrics:      &snapshot,
		UpdatedAt:    r.now(),
	}
	if err := r.Store.UpsertCategory(ctx, row); err != nil {
		return "", fmt.Errorf("upsert category: %w", err)
	}
	return category, nil
}

func (r *CategoryResolver) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// EvaluateCategory returns the highest-ranked category whose requirements
// are all met. Categories missing from requirements are never matched,
// except INSTRUCTOR which is the fallback.
func EvaluateCategory(m DisciplineMetrics, requirements map[Category]CategoryRequirements) Category {
	for _, category := range CategoriesByRank {
		req, ok := requirements[category]
		if !ok {
			continue
		}
		if MeetsRequirements(m, req) {
			return category
		}
	}
	return CategoryInstructor
}

// MeetsRequirements reports whether every requirement holds for m.
func MeetsRequirements(m DisciplineMetrics, req CategoryRequirements) bool {
	return m.AverageOccupancy >= req.Occupancy &&
		m.TotalClasses >= req.Classes &&
		m.TotalLocations >= req.Locations &&
		m.TotalDoubleShifts >= req.DoubleShifts &&
		m.NonPrimeHours >= req.NonPrimeHours &&
		(!req.EventParticipationRequired || m.EventParticipation) &&
		(!req.GuidelinesRequired || m.MeetsGuidelines)
}
