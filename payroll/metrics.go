/*
metrics.go - Per-discipline performance metrics

PURPOSE:
  Reduces an instructor's classes in one discipline/period to the numbers
  the category requirements are written against.

METRICS:
  AverageOccupancy:  round(100 * sum(reservations) / sum(spots)), 0 if no spots
  TotalLocations:    distinct non-empty studio names
  TotalDoubleShifts: adjacent same-day classes starting within the window
  NonPrimeHours:     classes in off-peak slots, only for disciplines the
                     NonPrimeHourPolicy applies to
  EventParticipation / MeetsGuidelines: profile flags (false / true when
                     not recorded)

SEE ALSO:
  - category.go: Consumes DisciplineMetrics
*/
package payroll

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MetricsEngine loads the inputs of ComputeMetrics through the store.
type MetricsEngine struct {
	Store  Store
	Policy NonPrimeHourPolicy
	Config EngineConfig
}

// Compute returns the metrics of one instructor in one discipline/period.
func (m *MetricsEngine) Compute(ctx context.Context, instructorID InstructorID, disciplineID DisciplineID, periodID PeriodID, tenantID TenantID) (DisciplineMetrics, error) {
	classes, err := m.Store.FetchClasses(ctx, instructorID, disciplineID, periodID, tenantID)
	if err != nil {
		return DisciplineMetrics{}, fmt.Errorf("fetch classes: %w", err)
	}

	discipline := Discipline{ID: disciplineID, TenantID: tenantID}
	d, err := m.Store.FetchDiscipline(ctx, disciplineID, tenantID)
	if err != nil {
		return DisciplineMetrics{}, fmt.Errorf("fetch discipline: %w", err)
	}
	if d != nil {
		discipline = *d
	}

	extra, err := m.Store.FetchInstructorExtraInfo(ctx, instructorID, tenantID)
	if err != nil {
		return DisciplineMetrics{}, fmt.Errorf("fetch instructor extra info: %w", err)
	}

	return ComputeMetrics(classes, discipline, extra, m.Policy, m.Config), nil
}

// ComputeMetrics is the pure metrics calculation.
func ComputeMetrics(classes []ClassRecord, discipline Discipline, extra ExtraInfo, policy NonPrimeHourPolicy, cfg EngineConfig) DisciplineMetrics {
	metrics := DisciplineMetrics{
		TotalClasses:       len(classes),
		AverageOccupancy:   averageOccupancy(classes),
		TotalLocations:     countLocations(classes),
		TotalDoubleShifts:  countDoubleShifts(classes, cfg.location(), cfg.DoubleShiftWindow),
		EventParticipation: false,
		MeetsGuidelines:    true,
	}

	if policy != nil && policy.AppliesTo(discipline.Name) {
		metrics.NonPrimeHours = countNonPrimeHours(classes, policy, cfg.location())
	}

	if extra.EventParticipation != nil {
		metrics.EventParticipation = *extra.EventParticipation
	}
	if extra.MeetsGuidelines != nil {
		metrics.MeetsGuidelines = *extra.MeetsGuidelines
	}
	return metrics
}

func averageOccupancy(classes []ClassRecord) int {
	var reservations, spots int64
	for _, c := range classes {
		reservations += int64(c.TotalReservations)
		spots += int64(c.Spots)
	}
	return percent(reservations, spots)
}

// percent returns round(100*num/den), 0 when den is not positive.
func percent(num, den int64) int {
	if den <= 0 {
		return 0
	}
	return int(decimal.NewFromInt(num).Mul(hundred).Div(decimal.NewFromInt(den)).Round(0).IntPart())
}

func countLocations(classes []ClassRecord) int {
	studios := make(map[string]struct{})
	for _, c := range classes {
		if c.Studio == "" {
			continue
		}
		studios[c.Studio] = struct{}{}
	}
	return len(studios)
}

func countDoubleShifts(classes []ClassRecord, loc *time.Location, window time.Duration) int {
	byDay := make(map[string][]time.Time)
	for _, c := range classes {
		if c.Date.IsZero() {
			continue
		}
		local := c.Date.In(loc)
		day := local.Format("2006-01-02")
		byDay[day] = append(byDay[day], local)
	}

	count := 0
	for _, times := range byDay {
		sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
		for i := 1; i < len(times); i++ {
			gap := times[i].Sub(times[i-1])
			if gap >= 0 && gap <= window {
				count++
			}
		}
	}
	return count
}

func countNonPrimeHours(classes []ClassRecord, policy NonPrimeHourPolicy, loc *time.Location) int {
	count := 0
	for _, c := range classes {
		if c.Date.IsZero() {
			continue
		}
		if policy.IsNonPrimeHour(c.Studio, c.Date.In(loc).Format("15:04")) {
			count++
		}
	}
	return count
}
