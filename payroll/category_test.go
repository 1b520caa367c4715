package payroll_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/studio-payroll/payroll"
	"github.com/warp/studio-payroll/payroll/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// seniorClasses qualifies for SENIOR_AMBASSADOR under ladderRequirements:
// 4 classes, 2 studios, one double shift, 80% occupancy.
func seniorClasses(instructorID payroll.InstructorID) []payroll.ClassRecord {
	return []payroll.ClassRecord{
		class("s1", instructorID, siclo, day(5, 7, 0), "Reducto", 50, 40),
		class("s2", instructorID, siclo, day(5, 8, 0), "San Isidro", 50, 40),
		class("s3", instructorID, siclo, day(6, 19, 0), "Reducto", 50, 40),
		class("s4", instructorID, siclo, day(8, 19, 0), "Reducto", 50, 40),
	}
}

func newResolverTest(t *testing.T) (*store.Memory, *payroll.CategoryResolver) {
	t.Helper()
	m := newMemory("ana", "Ana")
	m.SaveFormula(formulaWith(siclo, ladderRequirements(), nil))
	resolver := payroll.NewCategoryResolver(m, payroll.NoNonPrimeHours{}, payroll.DefaultEngineConfig())
	resolver.Now = func() time.Time { return day(31, 23, 0) }
	return m, resolver
}

// =============================================================================
// METRICS
// =============================================================================

func TestMetrics_Aggregates(t *testing.T) {
	// GIVEN: Classes in two studios plus one without a studio
	classes := []payroll.ClassRecord{
		class("c1", "ana", siclo, day(5, 7, 0), "Reducto", 50, 45),
		class("c2", "ana", siclo, day(5, 8, 0), "Reducto", 50, 30),
		class("c3", "ana", siclo, day(6, 7, 0), "San Isidro", 40, 20),
		class("c4", "ana", siclo, day(6, 8, 1), "", 60, 25),
	}

	// WHEN: Computing metrics
	m := payroll.ComputeMetrics(classes, payroll.Discipline{ID: siclo, Name: "Síclo"},
		payroll.ExtraInfo{}, payroll.NoNonPrimeHours{}, payroll.DefaultEngineConfig())

	// THEN: Occupancy is pooled, empty studios are ignored, and only the
	// 07:00/08:00 pair is a double shift
	assert.Equal(t, 4, m.TotalClasses)
	assert.Equal(t, 60, m.AverageOccupancy) // 120 / 200
	assert.Equal(t, 2, m.TotalLocations)
	assert.Equal(t, 1, m.TotalDoubleShifts)
	assert.Equal(t, 0, m.NonPrimeHours)
	assert.False(t, m.EventParticipation)
	assert.True(t, m.MeetsGuidelines)
}

func TestMetrics_ZeroSpotsGiveZeroOccupancy(t *testing.T) {
	classes := []payroll.ClassRecord{class("c1", "ana", siclo, day(5, 7, 0), "Reducto", 0, 10)}

	m := payroll.ComputeMetrics(classes, payroll.Discipline{ID: siclo}, payroll.ExtraInfo{}, nil, payroll.DefaultEngineConfig())

	assert.Equal(t, 0, m.AverageOccupancy)
}

func TestMetrics_DoubleShiftsCountAdjacentPairs(t *testing.T) {
	// GIVEN: Three classes 30 minutes apart on one day, one undated class
	classes := []payroll.ClassRecord{
		class("c3", "ana", siclo, day(5, 8, 0), "Reducto", 50, 10),
		class("c1", "ana", siclo, day(5, 7, 0), "Reducto", 50, 10),
		class("c2", "ana", siclo, day(5, 7, 30), "Reducto", 50, 10),
		class("c4", "ana", siclo, time.Time{}, "Reducto", 50, 10),
	}

	m := payroll.ComputeMetrics(classes, payroll.Discipline{ID: siclo}, payroll.ExtraInfo{}, nil, payroll.DefaultEngineConfig())

	// THEN: Two adjacent pairs, the undated class still counts as a class
	assert.Equal(t, 2, m.TotalDoubleShifts)
	assert.Equal(t, 4, m.TotalClasses)
}

func TestMetrics_DoubleShiftsUseLocalDay(t *testing.T) {
	// GIVEN: 23:30 and 00:15 UTC, which are the same evening in UTC-5
	classes := []payroll.ClassRecord{
		class("c1", "ana", siclo, time.Date(2026, time.October, 5, 23, 30, 0, 0, time.UTC), "Reducto", 50, 10),
		class("c2", "ana", siclo, time.Date(2026, time.October, 6, 0, 15, 0, 0, time.UTC), "Reducto", 50, 10),
	}
	cfg := payroll.DefaultEngineConfig()
	cfg.Location = time.FixedZone("PET", -5*60*60)

	m := payroll.ComputeMetrics(classes, payroll.Discipline{ID: siclo}, payroll.ExtraInfo{}, nil, cfg)

	assert.Equal(t, 1, m.TotalDoubleShifts)
}

func TestMetrics_DefaultCalendarIsLima(t *testing.T) {
	// GIVEN: The same late-evening pair and the default engine config
	classes := []payroll.ClassRecord{
		class("c1", "ana", siclo, time.Date(2026, time.October, 5, 23, 30, 0, 0, time.UTC), "Reducto", 50, 10),
		class("c2", "ana", siclo, time.Date(2026, time.October, 6, 0, 15, 0, 0, time.UTC), "Reducto", 50, 10),
	}
	cfg := payroll.DefaultEngineConfig()

	// WHEN: Computing metrics
	m := payroll.ComputeMetrics(classes, payroll.Discipline{ID: siclo}, payroll.ExtraInfo{}, nil, cfg)

	// THEN: Both classes fall on the same Lima evening
	assert.Equal(t, payroll.DefaultTimezone, cfg.Location.String())
	assert.Equal(t, 1, m.TotalDoubleShifts)
}

func TestMetrics_NonPrimeHoursOnlyForPolicyDiscipline(t *testing.T) {
	policy := slotPolicy{discipline: "Síclo", slots: map[string]bool{"Reducto 07:00": true, "Reducto 13:00": true}}
	classes := []payroll.ClassRecord{
		class("c1", "ana", siclo, day(5, 7, 0), "Reducto", 50, 10),
		class("c2", "ana", siclo, day(6, 13, 0), "Reducto", 50, 10),
		class("c3", "ana", siclo, day(7, 19, 0), "Reducto", 50, 10),
	}

	sicloMetrics := payroll.ComputeMetrics(classes, payroll.Discipline{ID: siclo, Name: "Síclo"}, payroll.ExtraInfo{}, policy, payroll.DefaultEngineConfig())
	barreMetrics := payroll.ComputeMetrics(classes, payroll.Discipline{ID: barre, Name: "Barre"}, payroll.ExtraInfo{}, policy, payroll.DefaultEngineConfig())

	assert.Equal(t, 2, sicloMetrics.NonPrimeHours)
	assert.Equal(t, 0, barreMetrics.NonPrimeHours)
}

func TestMetrics_ProfileFlags(t *testing.T) {
	extra := payroll.ExtraInfo{EventParticipation: boolPtr(true), MeetsGuidelines: boolPtr(false)}

	m := payroll.ComputeMetrics(nil, payroll.Discipline{ID: siclo}, extra, nil, payroll.DefaultEngineConfig())

	assert.True(t, m.EventParticipation)
	assert.False(t, m.MeetsGuidelines)
}

// =============================================================================
// CATEGORY EVALUATION
// =============================================================================

func TestEvaluateCategory_HighestMatchWins(t *testing.T) {
	tests := []struct {
		name    string
		metrics payroll.DisciplineMetrics
		want    payroll.Category
	}{
		{"nothing met", payroll.DisciplineMetrics{TotalClasses: 1}, payroll.CategoryInstructor},
		{"junior", payroll.DisciplineMetrics{TotalClasses: 3, TotalLocations: 1}, payroll.CategoryJuniorAmbassador},
		{"ambassador", payroll.DisciplineMetrics{TotalClasses: 3, TotalLocations: 2}, payroll.CategoryAmbassador},
		{"senior", payroll.DisciplineMetrics{TotalClasses: 4, TotalLocations: 2, TotalDoubleShifts: 1, AverageOccupancy: 50}, payroll.CategorySeniorAmbassador},
		{"senior short on occupancy", payroll.DisciplineMetrics{TotalClasses: 4, TotalLocations: 2, TotalDoubleShifts: 1, AverageOccupancy: 49}, payroll.CategoryAmbassador},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, payroll.EvaluateCategory(tt.metrics, ladderRequirements()))
		})
	}
}

func TestEvaluateCategory_MissingCategoriesAreSkipped(t *testing.T) {
	// GIVEN: Requirements that only define SENIOR_AMBASSADOR
	reqs := map[payroll.Category]payroll.CategoryRequirements{
		payroll.CategorySeniorAmbassador: {Classes: 10},
	}

	// WHEN/THEN: Falling short of it lands on INSTRUCTOR, not an undefined tier
	assert.Equal(t, payroll.CategoryInstructor, payroll.EvaluateCategory(payroll.DisciplineMetrics{TotalClasses: 9}, reqs))
	assert.Equal(t, payroll.CategorySeniorAmbassador, payroll.EvaluateCategory(payroll.DisciplineMetrics{TotalClasses: 10}, reqs))
}

func TestMeetsRequirements_Flags(t *testing.T) {
	req := payroll.CategoryRequirements{EventParticipationRequired: true, GuidelinesRequired: true}

	assert.False(t, payroll.MeetsRequirements(payroll.DisciplineMetrics{MeetsGuidelines: true}, req))
	assert.False(t, payroll.MeetsRequirements(payroll.DisciplineMetrics{EventParticipation: true}, req))
	assert.True(t, payroll.MeetsRequirements(payroll.DisciplineMetrics{EventParticipation: true, MeetsGuidelines: true}, req))
	assert.True(t, payroll.MeetsRequirements(payroll.DisciplineMetrics{}, payroll.CategoryRequirements{}))
}

// =============================================================================
// CATEGORY RESOLVER
// =============================================================================

func TestResolve_ComputesAndStoresCategory(t *testing.T) {
	// GIVEN: Classes that qualify for SENIOR_AMBASSADOR
	m, resolver := newResolverTest(t)
	m.AddClasses(seniorClasses("ana")...)
	trail := payroll.NewTrail()

	// WHEN: Resolving
	category, err := resolver.Resolve(context.Background(), "ana", siclo, period, tenant, trail)

	// THEN: The category is stored as computed with its metrics snapshot
	require.NoError(t, err)
	assert.Equal(t, payroll.CategorySeniorAmbassador, category)

	stored, ok := m.Category("ana", siclo, period, tenant)
	require.True(t, ok)
	assert.False(t, stored.IsManual)
	assert.Equal(t, payroll.CategorySeniorAmbassador, stored.Category)
	require.NotNil(t, stored.Metrics)
	assert.Equal(t, 4, stored.Metrics.TotalClasses)
	assert.Equal(t, 80, stored.Metrics.AverageOccupancy)
	assert.Equal(t, day(31, 23, 0), stored.UpdatedAt)
	assert.NotEmpty(t, trail.Lines())
}

func TestResolve_IsIdempotent(t *testing.T) {
	// GIVEN: Unchanged inputs
	m, resolver := newResolverTest(t)
	m.AddClasses(seniorClasses("ana")[:3]...)
	ctx := context.Background()

	// WHEN: Resolving twice
	first, err := resolver.Resolve(ctx, "ana", siclo, period, tenant, nil)
	require.NoError(t, err)
	firstRow, _ := m.Category("ana", siclo, period, tenant)

	second, err := resolver.Resolve(ctx, "ana", siclo, period, tenant, nil)
	require.NoError(t, err)
	secondRow, _ := m.Category("ana", siclo, period, tenant)

	// THEN: Same category, same metrics, one row with the same ID, and the
	// upsert happened on both runs
	assert.Equal(t, first, second)
	assert.Equal(t, payroll.CategoryAmbassador, second)
	assert.Equal(t, firstRow.ID, secondRow.ID)
	assert.Equal(t, *firstRow.Metrics, *secondRow.Metrics)
	assert.Equal(t, 2, m.Upserts)
}

func TestResolve_ManualCategoryWinsUntilCleared(t *testing.T) {
	// GIVEN: A manual JUNIOR_AMBASSADOR and classes worth SENIOR_AMBASSADOR
	m, resolver := newResolverTest(t)
	m.AddClasses(seniorClasses("ana")...)
	m.SetManualCategory(payroll.InstructorCategory{
		ID: "manual-1", InstructorID: "ana", DisciplineID: siclo, PeriodID: period, TenantID: tenant,
		Category: payroll.CategoryJuniorAmbassador,
	})
	ctx := context.Background()

	// WHEN: Resolving
	category, err := resolver.Resolve(ctx, "ana", siclo, period, tenant, nil)

	// THEN: The manual value is returned and nothing is written
	require.NoError(t, err)
	assert.Equal(t, payroll.CategoryJuniorAmbassador, category)
	assert.Equal(t, 0, m.Upserts)

	// WHEN: The manual row is cleared
	m.ClearCategory("ana", siclo, period, tenant)
	category, err = resolver.Resolve(ctx, "ana", siclo, period, tenant, nil)

	// THEN: The computed category takes over
	require.NoError(t, err)
	assert.Equal(t, payroll.CategorySeniorAmbassador, category)
	assert.Equal(t, 1, m.Upserts)
}

func TestResolve_UpsertNeverOverwritesManualRow(t *testing.T) {
	m, _ := newResolverTest(t)
	m.SetManualCategory(payroll.InstructorCategory{
		ID: "manual-1", InstructorID: "ana", DisciplineID: siclo, PeriodID: period, TenantID: tenant,
		Category: payroll.CategoryAmbassador,
	})

	err := m.UpsertCategory(context.Background(), payroll.InstructorCategory{
		ID: "auto-1", InstructorID: "ana", DisciplineID: siclo, PeriodID: period, TenantID: tenant,
		Category: payroll.CategoryInstructor,
	})

	require.NoError(t, err)
	stored, _ := m.Category("ana", siclo, period, tenant)
	assert.True(t, stored.IsManual)
	assert.Equal(t, payroll.CategoryAmbassador, stored.Category)
	assert.Equal(t, "manual-1", stored.ID)
}

func TestResolve_NoFormulaDefaultsToInstructor(t *testing.T) {
	// GIVEN: Barre has no formula
	m, resolver := newResolverTest(t)
	m.AddClasses(class("b1", "ana", barre, day(5, 7, 0), "Reducto", 20, 20))

	// WHEN: Resolving barre
	category, err := resolver.Resolve(context.Background(), "ana", barre, period, tenant, nil)

	// THEN: INSTRUCTOR, with nothing stored
	require.NoError(t, err)
	assert.Equal(t, payroll.CategoryInstructor, category)
	assert.Equal(t, 0, m.Upserts)
}
