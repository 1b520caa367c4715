/*
Package payroll provides the instructor payment computation engine.

PURPOSE:
  Given a period's classes, bonus records, penalties and a per-discipline
  tariff Formula, the engine deterministically computes what each instructor
  is paid. The same inputs always produce the same amounts and the same
  calculation trail, which is what makes a payment auditable.

KEY CONCEPTS IN THIS FILE (types.go):
  - ClassRecord: One taught class with capacity and reservations
  - Category: Qualification tier of an instructor in a discipline
  - Formula: Category requirements + tariff tables for discipline/period
  - InstructorCategory: Persisted category resolution (manual or computed)
  - Penalty, Cover, Branding, ThemeRide, Workshop: period-scoped inputs

DESIGN PRINCIPLES:
  1. Precision: all money is decimal.Decimal, never float64
  2. Immutability: inputs are value objects; calculations return new results
  3. Type Safety: distinct ID types prevent mixing instructor/discipline IDs
  4. Auditability: every decision is written to a Trail

PIPELINE:
  Calculator -> (CategoryResolver -> MetricsEngine) per discipline
             -> CalculateClassPayment per class
             -> CalculateBonuses + CalculatePenalties
             -> retention and final payment

SEE ALSO:
  - metrics.go: Discipline metrics
  - category.go: Category resolution
  - class_payment.go: Per-class pricing
  - calculator.go: End-to-end orchestration
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type InstructorID string
type DisciplineID string
type PeriodID string
type TenantID string
type ClassID string
type FormulaID string

// =============================================================================
// CATEGORY - Instructor qualification tier per discipline
// =============================================================================

type Category string

const (
	CategoryInstructor       Category = "INSTRUCTOR"
	CategoryJuniorAmbassador Category = "JUNIOR_AMBASSADOR"
	CategoryAmbassador       Category = "AMBASSADOR"
	CategorySeniorAmbassador Category = "SENIOR_AMBASSADOR"
)

// CategoriesByRank lists categories from highest to lowest rank.
// Resolution walks this order and stops at the first match.
var CategoriesByRank = []Category{
	CategorySeniorAmbassador,
	CategoryAmbassador,
	CategoryJuniorAmbassador,
	CategoryInstructor,
}

// Valid reports whether c is one of the four known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryInstructor, CategoryJuniorAmbassador, CategoryAmbassador, CategorySeniorAmbassador:
		return true
	}
	return false
}

// Rank returns 0 for INSTRUCTOR up to 3 for SENIOR_AMBASSADOR, -1 if unknown.
func (c Category) Rank() int {
	for i, cat := range CategoriesByRank {
		if cat == c {
			return len(CategoriesByRank) - 1 - i
		}
	}
	return -1
}

// ParseCategory converts a stored string into a Category.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	return c, c.Valid()
}

// =============================================================================
// CLASS RECORD
// =============================================================================

// ClassRecord is one taught class. A zero Date marks a record whose
// timestamp could not be parsed at the storage boundary.
type ClassRecord struct {
	ID                ClassID
	InstructorID      InstructorID
	DisciplineID      DisciplineID
	PeriodID          PeriodID
	Date              time.Time
	Studio            string
	Room              string
	Spots             int
	TotalReservations int
	SpecialText       string
	IsVersus          bool
	VersusNumber      int
}

// Occupancy returns reservations/spots, or zero when the class has no spots.
func (c ClassRecord) Occupancy() decimal.Decimal {
	if c.Spots <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(c.TotalReservations)).Div(decimal.NewFromInt(int64(c.Spots)))
}

type Discipline struct {
	ID       DisciplineID
	TenantID TenantID
	Name     string
}

// =============================================================================
// FORMULA - Category requirements and tariff tables
// =============================================================================

// CategoryRequirements are the thresholds an instructor must meet, all at
// once, to qualify for a category.
type CategoryRequirements struct {
	Occupancy                  int
	Classes                    int
	Locations                  int
	DoubleShifts               int
	NonPrimeHours              int
	EventParticipationRequired bool
	GuidelinesRequired         bool
}

// TariffTier pays Rate per reservation for classes with up to Reservations
// reservations.
type TariffTier struct {
	Reservations int
	Rate         decimal.Decimal
}

// PaymentParameters is the tariff table of one category.
type PaymentParameters struct {
	FixedQuota        decimal.Decimal
	GuaranteedMinimum decimal.Decimal
	Tiers             []TariffTier
	FullHouseRate     decimal.Decimal
	Maximum           decimal.Decimal
	Bonus             *decimal.Decimal
}

// Formula is the configuration of one discipline for one period.
type Formula struct {
	ID           FormulaID
	DisciplineID DisciplineID
	PeriodID     PeriodID
	TenantID     TenantID
	Requirements map[Category]CategoryRequirements
	Parameters   map[Category]PaymentParameters
}

// ParametersFor returns the tariff table for a category.
func (f *Formula) ParametersFor(c Category) (PaymentParameters, bool) {
	if f == nil {
		return PaymentParameters{}, false
	}
	p, ok := f.Parameters[c]
	return p, ok
}

// =============================================================================
// METRICS AND CATEGORY RESOLUTION
// =============================================================================

// DisciplineMetrics summarises an instructor's activity in one discipline
// for one period.
type DisciplineMetrics struct {
	TotalClasses       int  `json:"totalClasses"`
	AverageOccupancy   int  `json:"averageOccupancy"`
	TotalLocations     int  `json:"totalLocations"`
	TotalDoubleShifts  int  `json:"totalDoubleShifts"`
	NonPrimeHours      int  `json:"nonPrimeHours"`
	EventParticipation bool `json:"eventParticipation"`
	MeetsGuidelines    bool `json:"meetsGuidelines"`
}

// InstructorCategory is the stored category of (instructor, discipline,
// period). Manual rows are never overwritten by the resolver.
type InstructorCategory struct {
	ID           string
	InstructorID InstructorID
	DisciplineID DisciplineID
	PeriodID     PeriodID
	TenantID     TenantID
	Category     Category
	IsManual     bool
	Metrics      *DisciplineMetrics
	UpdatedAt    time.Time
}

// ExtraInfo holds profile flags used by category requirements.
// Nil pointers mean "not recorded".
type ExtraInfo struct {
	EventParticipation *bool `json:"eventParticipation,omitempty"`
	MeetsGuidelines    *bool `json:"meetsGuidelines,omitempty"`
}

// =============================================================================
// PENALTIES AND BONUS RECORDS
// =============================================================================

type PenaltyType string

const (
	PenaltyLateArrival PenaltyType = "LATE_ARRIVAL"
	PenaltyNoShow      PenaltyType = "NO_SHOW"
	PenaltyLateCancel  PenaltyType = "LATE_CANCELLATION"
	PenaltyDressCode   PenaltyType = "DRESS_CODE"
	PenaltyOther       PenaltyType = "OTHER"
)

// Penalty is a point-based infraction. A nil DisciplineID is a general
// penalty.
type Penalty struct {
	ID           string
	InstructorID InstructorID
	PeriodID     PeriodID
	DisciplineID *DisciplineID
	Points       int
	Type         PenaltyType
	Description  string
	AppliedAt    time.Time
	Active       bool
}

type CoverJustification string

const (
	JustificationPending  CoverJustification = "PENDING"
	JustificationApproved CoverJustification = "APPROVED"
	JustificationRejected CoverJustification = "REJECTED"
)

// Cover is a class taught by a replacement instructor.
type Cover struct {
	ID                      string
	OriginalInstructorID    InstructorID
	ReplacementInstructorID InstructorID
	PeriodID                PeriodID
	ClassID                 ClassID
	BonusPayment            bool
	Justification           CoverJustification
}

type Branding struct {
	ID           string
	InstructorID InstructorID
	PeriodID     PeriodID
	Number       int
}

type ThemeRide struct {
	ID           string
	InstructorID InstructorID
	PeriodID     PeriodID
	Number       int
}

type Workshop struct {
	ID           string
	InstructorID InstructorID
	PeriodID     PeriodID
	Name         string
	Payment      decimal.Decimal
}

// =============================================================================
// INSTRUCTOR GRAPH - Everything one payment calculation reads
// =============================================================================

type Instructor struct {
	ID        InstructorID
	TenantID  TenantID
	Name      string
	ExtraInfo ExtraInfo
}

// InstructorGraph is the period-scoped view of an instructor loaded in one
// read. Disciplines holds every discipline referenced by Classes.
type InstructorGraph struct {
	Instructor          Instructor
	Classes             []ClassRecord
	Disciplines         map[DisciplineID]Discipline
	Penalties           []Penalty
	Categories          []InstructorCategory
	CoversAsReplacement []Cover
	Brandings           []Branding
	ThemeRides          []ThemeRide
	Workshops           []Workshop
}

// BonusCollections are the inputs of CalculateBonuses.
type BonusCollections struct {
	Covers     []Cover
	Brandings  []Branding
	ThemeRides []ThemeRide
	Workshops  []Workshop
}

// BonusCollections extracts the bonus inputs from the graph.
func (g *InstructorGraph) BonusCollections() BonusCollections {
	return BonusCollections{
		Covers:     g.CoversAsReplacement,
		Brandings:  g.Brandings,
		ThemeRides: g.ThemeRides,
		Workshops:  g.Workshops,
	}
}

// ManualCategory returns the manual category stored for a discipline, if any.
func (g *InstructorGraph) ManualCategory(disciplineID DisciplineID) (Category, bool) {
	for _, c := range g.Categories {
		if c.DisciplineID == disciplineID && c.IsManual {
			return c.Category, true
		}
	}
	return "", false
}
