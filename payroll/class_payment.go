/*
class_payment.go - Payment of a single class

PURPOSE:
  Prices one class from its reservations and the tariff table of the
  instructor's category.

ALGORITHM (order matters):
  1. Full house marker: if SpecialText contains "full house" (any case),
     reservations are treated as equal to spots. Stored data is untouched.
  2. Versus: a versus class with VersusNumber > 1 is split at the end.
  3. Tariff:
       reservations >= spots > 0      -> FullHouseRate
       first tier (ascending) with threshold >= reservations -> its rate
       reservations above every tier  -> highest tier rate ("tarifa maxima")
       no tiers                       -> 0
  4. amount = tariff * reservations
  5. + FixedQuota when positive
  6. raised to GuaranteedMinimum when below it
  7. lowered to Maximum when above it (applied after the minimum, so the
     maximum wins if a formula sets minimum > maximum)
  8. / VersusNumber for versus classes

EXAMPLE:
  tiers [{20, 5}, {50, 3}], 45 of 50 reservations
  -> tier {50, 3} (45 <= 50) -> 45 * 3 = 135

SEE ALSO:
  - calculator.go: Sums class results into the base amount
*/
package payroll

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const fullHouseMarker = "full house"

// ClassCalculationResult is the priced class plus its audit fields.
type ClassCalculationResult struct {
	ClassID          ClassID
	DisciplineID     DisciplineID
	DisciplineName   string
	Date             time.Time
	Studio           string
	Room             string
	Hour             string
	Spots            int
	Reservations     int
	Occupancy        int
	Category         Category
	Tariff           decimal.Decimal
	TariffLabel      string
	FullHouse        bool
	FullHouseByCover bool
	IsVersus         bool
	VersusNumber     int
	CalculatedAmount decimal.Decimal
	Calculation      string
}

// HasFullHouseMarker reports whether text carries the full-house marker.
// Matching is a case-insensitive substring match on "full house".
func HasFullHouseMarker(text string) bool {
	return strings.Contains(strings.ToLower(text), fullHouseMarker)
}

// CalculateClassPayment prices one class. It fails with
// *MissingTariffError when the formula has no parameters for the category.
func CalculateClassPayment(class ClassRecord, category Category, formula *Formula, discipline Discipline, loc *time.Location, trail *Trail) (ClassCalculationResult, error) {
	params, ok := formula.ParametersFor(category)
	if !ok {
		err := &MissingTariffError{DisciplineID: class.DisciplineID, Category: category}
		if formula != nil {
			err.FormulaID = formula.ID
		}
		trail.Addf("Class %s: no tariff for category %s in discipline %s", class.ID, category, discipline.Name)
		return ClassCalculationResult{}, err
	}
	if loc == nil {
		loc = studioLocation
	}

	capacity := class.Spots
	reservations := class.TotalReservations

	byCover := false
	if HasFullHouseMarker(class.SpecialText) {
		reservations = capacity
		byCover = true
		trail.Addf("Class %s: full house marker found, reservations set to capacity %d", class.ID, capacity)
	}

	versus := class.IsVersus && class.VersusNumber > 1

	tariff, label := selectTariff(params, reservations, capacity)
	fullHouse := reservations >= capacity && capacity > 0

	var calc strings.Builder
	amount := tariff.Mul(decimal.NewFromInt(int64(reservations)))
	fmt.Fprintf(&calc, "%d x %s (%s) = %s", reservations, tariff.String(), label, amount.String())

	if params.FixedQuota.IsPositive() {
		amount = amount.Add(params.FixedQuota)
		fmt.Fprintf(&calc, " + cuota fija %s = %s", params.FixedQuota.String(), amount.String())
	}

	if amount.LessThan(params.GuaranteedMinimum) {
		amount = params.GuaranteedMinimum
		fmt.Fprintf(&calc, " -> minimo garantizado %s", amount.String())
		trail.Addf("Class %s: raised to guaranteed minimum %s", class.ID, amount.String())
	}

	if params.Maximum.IsPositive() && amount.GreaterThan(params.Maximum) {
		amount = params.Maximum
		fmt.Fprintf(&calc, " -> maximo %s", amount.String())
		trail.Addf("Class %s: capped at maximum %s", class.ID, amount.String())
	}

	if versus {
		amount = amount.Div(decimal.NewFromInt(int64(class.VersusNumber)))
		fmt.Fprintf(&calc, " / %d versus = %s", class.VersusNumber, amount.String())
		trail.Addf("Class %s: versus class split between %d instructors", class.ID, class.VersusNumber)
	}

	result := ClassCalculationResult{
		ClassID:          class.ID,
		DisciplineID:     class.DisciplineID,
		DisciplineName:   discipline.Name,
		Date:             class.Date,
		Studio:           class.Studio,
		Room:             class.Room,
		Spots:            capacity,
		Reservations:     reservations,
		Occupancy:        percent(int64(reservations), int64(capacity)),
		Category:         category,
		Tariff:           tariff,
		TariffLabel:      label,
		FullHouse:        fullHouse,
		FullHouseByCover: byCover,
		IsVersus:         versus,
		VersusNumber:     class.VersusNumber,
		CalculatedAmount: amount,
		Calculation:      calc.String(),
	}
	if !class.Date.IsZero() {
		result.Hour = class.Date.In(loc).Format("15:04")
	}

	trail.Addf("Class %s (%s %s, %s): %d/%d reservations, %s tariff %s, amount %s",
		class.ID, result.Studio, result.Hour, category, reservations, capacity,
		label, tariff.String(), amount.String())
	return result, nil
}

// selectTariff picks the per-reservation rate and a label for the trail.
func selectTariff(params PaymentParameters, reservations, capacity int) (decimal.Decimal, string) {
	if reservations >= capacity && capacity > 0 {
		return params.FullHouseRate, "full house"
	}
	if len(params.Tiers) == 0 {
		return decimal.Zero, "sin tarifas"
	}

	tiers := make([]TariffTier, len(params.Tiers))
	copy(tiers, params.Tiers)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].Reservations < tiers[j].Reservations })

	for _, tier := range tiers {
		if reservations <= tier.Reservations {
			return tier.Rate, fmt.Sprintf("hasta %d reservas", tier.Reservations)
		}
	}
	return tiers[len(tiers)-1].Rate, "tarifa maxima"
}
