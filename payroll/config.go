package payroll

import (
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
)

// DefaultTimezone is the studio calendar used when none is configured.
const DefaultTimezone = "America/Lima"

// studioLocation is DefaultTimezone, or its fixed UTC-5 offset when the zone
// database cannot be read. Lima has no daylight saving.
var studioLocation = loadStudioLocation()

func loadStudioLocation() *time.Location {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		return time.FixedZone("PET", -5*60*60)
	}
	return loc
}

// EngineConfig holds the rates and windows of a calculation run.
// DefaultEngineConfig matches the studio's published rules.
type EngineConfig struct {
	// RetentionRate is withheld from the base amount (0.08 = 8%).
	RetentionRate decimal.Decimal

	// Unit rates for bonus records.
	CoverRate     decimal.Decimal
	BrandingRate  decimal.Decimal
	ThemeRideRate decimal.Decimal

	// PenaltyAllowancePercent of the class count is forgiven before points
	// turn into discount. MaxPenaltyDiscount caps the discount percentage.
	PenaltyAllowancePercent int
	MaxPenaltyDiscount      int

	// DoubleShiftWindow is the largest start-to-start gap that still counts
	// as a double shift.
	DoubleShiftWindow time.Duration

	// Location defines the instructor's calendar day and the HH:MM used for
	// non-prime classification. Nil means DefaultTimezone.
	Location *time.Location
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		RetentionRate:           decimal.RequireFromString("0.08"),
		CoverRate:               decimal.NewFromInt(80),
		BrandingRate:            decimal.NewFromInt(5),
		ThemeRideRate:           decimal.NewFromInt(30),
		PenaltyAllowancePercent: 10,
		MaxPenaltyDiscount:      10,
		DoubleShiftWindow:       time.Hour,
		Location:                studioLocation,
	}
}

func (c EngineConfig) location() *time.Location {
	if c.Location == nil {
		return studioLocation
	}
	return c.Location
}
