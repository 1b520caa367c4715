package payroll_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/studio-payroll/payroll"
)

func priceClass(t *testing.T, c payroll.ClassRecord, p payroll.PaymentParameters) payroll.ClassCalculationResult {
	t.Helper()
	f := formulaWith(c.DisciplineID, nil, map[payroll.Category]payroll.PaymentParameters{payroll.CategoryInstructor: p})
	result, err := payroll.CalculateClassPayment(c, payroll.CategoryInstructor, &f,
		payroll.Discipline{ID: c.DisciplineID, Name: "Síclo"}, time.UTC, payroll.NewTrail())
	require.NoError(t, err)
	return result
}

// =============================================================================
// TARIFF SELECTION
// =============================================================================

func TestClassPayment_TierSelection(t *testing.T) {
	// GIVEN: Tiers {<=20: 5, <=50: 3}, a class with 45 of 50 spots
	// WHEN: Pricing the class
	// THEN: The <=50 tier applies and the amount is 45 x 3 = 135

	result := priceClass(t, class("c1", "i1", siclo, day(5, 7, 0), "Reducto", 50, 45), params(20, "5", 50, "3"))

	assertDecimal(t, "3", result.Tariff)
	assertDecimal(t, "135", result.CalculatedAmount)
	assert.Equal(t, "hasta 50 reservas", result.TariffLabel)
	assert.Equal(t, 90, result.Occupancy)
	assert.False(t, result.FullHouse)
}

func TestClassPayment_TierBoundaryIsInclusive(t *testing.T) {
	// GIVEN: A class with exactly 20 reservations and a tier ending at 20
	// WHEN: Pricing the class
	// THEN: The 20 tier is selected, not the next one

	result := priceClass(t, class("c1", "i1", siclo, day(5, 7, 0), "Reducto", 50, 20), params(20, "5", 50, "3"))

	assertDecimal(t, "5", result.Tariff)
	assertDecimal(t, "100", result.CalculatedAmount)
}

func TestClassPayment_TiersAreSortedBeforeSelection(t *testing.T) {
	// GIVEN: Tiers listed out of order
	// WHEN: Pricing a class with 15 reservations
	// THEN: The lowest matching threshold wins

	result := priceClass(t, class("c1", "i1", siclo, day(5, 7, 0), "Reducto", 50, 15), params(50, "3", 20, "5"))

	assertDecimal(t, "5", result.Tariff)
}

func TestClassPayment_AboveAllTiersUsesLastTier(t *testing.T) {
	// GIVEN: 60 reservations in a 100-spot room and tiers up to 50
	// WHEN: Pricing the class
	// THEN: The highest tier's rate applies

	result := priceClass(t, class("c1", "i1", siclo, day(5, 7, 0), "Reducto", 100, 60), params(20, "5", 50, "3"))

	assertDecimal(t, "3", result.Tariff)
	assert.Equal(t, "tarifa maxima", result.TariffLabel)
	assertDecimal(t, "180", result.CalculatedAmount)
}

func TestClassPayment_EmptyTiersPayZero(t *testing.T) {
	// GIVEN: No tiers and a class below capacity
	// WHEN: Pricing the class
	// THEN: The per-reservation amount is zero

	result := priceClass(t, class("c1", "i1", siclo, day(5, 7, 0), "Reducto", 50, 30), params())

	assert.True(t, result.Tariff.IsZero())
	assert.True(t, result.CalculatedAmount.IsZero())
}

// =============================================================================
// FULL HOUSE
// =============================================================================

func TestClassPayment_OrganicFullHouse(t *testing.T) {
	// GIVEN: A class at capacity
	// WHEN: Pricing the class
	// THEN: The full-house rate applies

	p := params(20, "5", 50, "3")
	p.FullHouseRate = dec("4")
	result := priceClass(t, class("c1", "i1", siclo, day(5, 7, 0), "Reducto", 50, 50), p)

	assert.True(t, result.FullHouse)
	assert.False(t, result.FullHouseByCover)
	assertDecimal(t, "4", result.Tariff)
	assertDecimal(t, "200", result.CalculatedAmount)
}

func TestClassPayment_FullHouseMarker(t *testing.T) {
	p := params(20, "5", 50, "3")
	p.FullHouseRate = dec("4")

	triggering := []string{"Full House", "FULL HOUSE bonus", "full house", "Cover - full house por lluvia"}
	for _, text := range triggering {
		t.Run(text, func(t *testing.T) {
			// GIVEN: 12 of 45 reservations and a full-house marker
			c := class("c1", "i1", siclo, day(5, 7, 0), "Reducto", 45, 12)
			c.SpecialText = text

			// WHEN: Pricing the class
			result := priceClass(t, c, p)

			// THEN: Reservations are forced to capacity at the full-house rate
			assert.True(t, result.FullHouse)
			assert.True(t, result.FullHouseByCover)
			assert.Equal(t, 45, result.Reservations)
			assertDecimal(t, "180", result.CalculatedAmount)
		})
	}

	for _, text := range []string{"fullhouse", "FULLHOUSE", "full-house", ""} {
		t.Run("no marker "+text, func(t *testing.T) {
			c := class("c1", "i1", siclo, day(5, 7, 0), "Reducto", 45, 12)
			c.SpecialText = text

			result := priceClass(t, c, p)

			assert.False(t, result.FullHouseByCover)
			assert.Equal(t, 12, result.Reservations)
			assertDecimal(t, "60", result.CalculatedAmount)
		})
	}
}

func TestClassPayment_ZeroSpots(t *testing.T) {
	// GIVEN: A class with no recorded capacity
	// WHEN: Pricing the class
	// THEN: Occupancy is 0 and it is never a full house

	result := priceClass(t, class("c1", "i1", siclo, day(5, 7, 0), "Reducto", 0, 5), params(20, "5"))

	assert.Equal(t, 0, result.Occupancy)
	assert.False(t, result.FullHouse)
	assertDecimal(t, "25", result.CalculatedAmount)
}

// =============================================================================
// QUOTA, CLAMPS AND VERSUS
// =============================================================================

func TestClassPayment_FixedQuotaAndGuaranteedMinimum(t *testing.T) {
	// GIVEN: 5 reservations at 3, quota 10, minimum 50
	// WHEN: Pricing the class
	// THEN: 15 + 10 = 25 is raised to the minimum

	p := params(50, "3")
	p.FixedQuota = dec("10")
	p.GuaranteedMinimum = dec("50")
	result := priceClass(t, class("c1", "i1", siclo, day(5, 7, 0), "Reducto", 50, 5), p)

	assertDecimal(t, "50", result.CalculatedAmount)
	assert.Contains(t, result.Calculation, "minimo garantizado")
}

func TestClassPayment_MaximumCap(t *testing.T) {
	// GIVEN: 45 reservations at 3 (135) and a maximum of 100
	// WHEN: Pricing the class
	// THEN: The amount is capped

	p := params(50, "3")
	p.Maximum = dec("100")
	result := priceClass(t, class("c1", "i1", siclo, day(5, 7, 0), "Reducto", 50, 45), p)

	assertDecimal(t, "100", result.CalculatedAmount)
}

func TestClassPayment_ZeroMaximumMeansNoCap(t *testing.T) {
	p := params(50, "3")
	p.Maximum = dec("0")
	result := priceClass(t, class("c1", "i1", siclo, day(5, 7, 0), "Reducto", 50, 45), p)

	assertDecimal(t, "135", result.CalculatedAmount)
}

func TestClassPayment_VersusSplit(t *testing.T) {
	// GIVEN: Tariff 10, 30 reservations, a versus class of 3 instructors
	// WHEN: Pricing the class
	// THEN: 300 / 3 = 100 exactly

	c := class("c1", "i1", siclo, day(5, 7, 0), "Reducto", 50, 30)
	c.IsVersus = true
	c.VersusNumber = 3
	result := priceClass(t, c, params(50, "10"))

	assert.True(t, result.IsVersus)
	assertDecimal(t, "100", result.CalculatedAmount)
}

func TestClassPayment_VersusSplitAppliesAfterClamps(t *testing.T) {
	// GIVEN: 10 reservations at 3 (30), minimum 60, versus of 2
	// WHEN: Pricing the class
	// THEN: The minimum applies first and is then split: 60 / 2 = 30

	c := class("c1", "i1", siclo, day(5, 7, 0), "Reducto", 50, 10)
	c.IsVersus = true
	c.VersusNumber = 2
	p := params(50, "3")
	p.GuaranteedMinimum = dec("60")
	result := priceClass(t, c, p)

	assertDecimal(t, "30", result.CalculatedAmount)
}

func TestClassPayment_VersusOfOneIsNotSplit(t *testing.T) {
	c := class("c1", "i1", siclo, day(5, 7, 0), "Reducto", 50, 30)
	c.IsVersus = true
	c.VersusNumber = 1
	result := priceClass(t, c, params(50, "10"))

	assert.False(t, result.IsVersus)
	assertDecimal(t, "300", result.CalculatedAmount)
}

// =============================================================================
// ERRORS AND PRESENTATION
// =============================================================================

func TestClassPayment_MissingTariff(t *testing.T) {
	// GIVEN: A formula without parameters for AMBASSADOR
	// WHEN: Pricing a class at AMBASSADOR
	// THEN: MissingTariffError, never a silent zero

	f := formulaWith(siclo, nil, map[payroll.Category]payroll.PaymentParameters{
		payroll.CategoryInstructor: params(50, "3"),
	})
	trail := payroll.NewTrail()
	_, err := payroll.CalculateClassPayment(class("c1", "i1", siclo, day(5, 7, 0), "Reducto", 50, 30),
		payroll.CategoryAmbassador, &f, payroll.Discipline{ID: siclo, Name: "Síclo"}, time.UTC, trail)

	require.Error(t, err)
	assert.ErrorIs(t, err, payroll.ErrMissingTariff)
	var missing *payroll.MissingTariffError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, payroll.CategoryAmbassador, missing.Category)
	assert.Equal(t, f.ID, missing.FormulaID)
	assert.Equal(t, 1, trail.Len())
}

func TestClassPayment_HourInLocation(t *testing.T) {
	// GIVEN: A class at 12:00 UTC and a UTC-5 studio calendar
	// WHEN: Pricing the class
	// THEN: The reported hour is local

	lima := time.FixedZone("PET", -5*60*60)
	c := class("c1", "i1", siclo, time.Date(2026, time.October, 5, 12, 0, 0, 0, time.UTC), "Reducto", 50, 30)
	f := formulaWith(siclo, nil, map[payroll.Category]payroll.PaymentParameters{payroll.CategoryInstructor: params(50, "3")})

	result, err := payroll.CalculateClassPayment(c, payroll.CategoryInstructor, &f, payroll.Discipline{ID: siclo}, lima, nil)

	require.NoError(t, err)
	assert.Equal(t, "07:00", result.Hour)
}
