package payroll_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warp/studio-payroll/payroll"
	"github.com/warp/studio-payroll/payroll/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const (
	tenant = payroll.TenantID("studio")
	period = payroll.PeriodID("2026-10")
	siclo  = payroll.DisciplineID("siclo")
	barre  = payroll.DisciplineID("barre")
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

func boolPtr(b bool) *bool {
	return &b
}

// day builds a wall-clock time on the default studio calendar.
func day(d, hour, minute int) time.Time {
	return time.Date(2026, time.October, d, hour, minute, 0, 0, payroll.DefaultEngineConfig().Location)
}

// params builds a tariff table from alternating (threshold, rate) pairs.
func params(pairs ...any) payroll.PaymentParameters {
	p := payroll.PaymentParameters{}
	for i := 0; i+1 < len(pairs); i += 2 {
		p.Tiers = append(p.Tiers, payroll.TariffTier{
			Reservations: pairs[i].(int),
			Rate:         dec(pairs[i+1].(string)),
		})
	}
	return p
}

func formulaWith(disciplineID payroll.DisciplineID, requirements map[payroll.Category]payroll.CategoryRequirements, parameters map[payroll.Category]payroll.PaymentParameters) payroll.Formula {
	return payroll.Formula{
		ID:           payroll.FormulaID("formula-" + string(disciplineID)),
		DisciplineID: disciplineID,
		PeriodID:     period,
		TenantID:     tenant,
		Requirements: requirements,
		Parameters:   parameters,
	}
}

// tieredFormula pays every category with tiers {<=20: 5, <=50: 3} and has
// requirements only for INSTRUCTOR.
func tieredFormula(disciplineID payroll.DisciplineID) payroll.Formula {
	p := params(20, "5", 50, "3")
	return formulaWith(disciplineID,
		map[payroll.Category]payroll.CategoryRequirements{payroll.CategoryInstructor: {}},
		map[payroll.Category]payroll.PaymentParameters{
			payroll.CategoryInstructor:       p,
			payroll.CategoryJuniorAmbassador: p,
			payroll.CategoryAmbassador:       p,
			payroll.CategorySeniorAmbassador: p,
		})
}

// ladderRequirements grows with rank so each category is reachable by
// class count alone.
func ladderRequirements() map[payroll.Category]payroll.CategoryRequirements {
	return map[payroll.Category]payroll.CategoryRequirements{
		payroll.CategoryInstructor:       {},
		payroll.CategoryJuniorAmbassador: {Classes: 2},
		payroll.CategoryAmbassador:       {Classes: 3, Locations: 2},
		payroll.CategorySeniorAmbassador: {Classes: 4, Locations: 2, DoubleShifts: 1, Occupancy: 50},
	}
}

func class(id string, instructorID payroll.InstructorID, disciplineID payroll.DisciplineID, at time.Time, studio string, spots, reservations int) payroll.ClassRecord {
	return payroll.ClassRecord{
		ID:                payroll.ClassID(id),
		InstructorID:      instructorID,
		DisciplineID:      disciplineID,
		PeriodID:          period,
		Date:              at,
		Studio:            studio,
		Room:              "Sala 1",
		Spots:             spots,
		TotalReservations: reservations,
	}
}

func newMemory(instructorID payroll.InstructorID, name string) *store.Memory {
	m := store.NewMemory()
	m.AddInstructor(payroll.Instructor{ID: instructorID, TenantID: tenant, Name: name})
	m.AddDiscipline(payroll.Discipline{ID: siclo, TenantID: tenant, Name: "Síclo"})
	m.AddDiscipline(payroll.Discipline{ID: barre, TenantID: tenant, Name: "Barre"})
	return m
}

// slotPolicy marks fixed studio/time slots as non-prime for one discipline.
type slotPolicy struct {
	discipline string
	slots      map[string]bool
}

func (p slotPolicy) AppliesTo(name string) bool { return name == p.discipline }

func (p slotPolicy) IsNonPrimeHour(studio, hhmm string) bool { return p.slots[studio+" "+hhmm] }
