package payroll_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/studio-payroll/payroll"
)

func TestBonuses_Scenario(t *testing.T) {
	// GIVEN: 2 approved bonus covers, 5 brandings, 1 theme ride, no workshops
	in := payroll.BonusCollections{
		Covers: []payroll.Cover{
			{ID: "cv1", BonusPayment: true, Justification: payroll.JustificationApproved},
			{ID: "cv2", BonusPayment: true, Justification: payroll.JustificationApproved},
		},
		Brandings:  []payroll.Branding{{ID: "b1", Number: 3}, {ID: "b2", Number: 2}},
		ThemeRides: []payroll.ThemeRide{{ID: "t1", Number: 1}},
	}

	// WHEN: Calculating bonuses at the default rates
	out := payroll.CalculateBonuses(in, payroll.DefaultEngineConfig())

	// THEN: 160 + 25 + 30 + 0 = 215
	assertDecimal(t, "160", out.CoverBonus)
	assertDecimal(t, "25", out.BrandingBonus)
	assertDecimal(t, "30", out.ThemeRideBonus)
	assertDecimal(t, "0", out.WorkshopBonus)
	assertDecimal(t, "215", out.Total)
	assert.Equal(t, 2, out.CoverCount)
	assert.Equal(t, 5, out.BrandingCount)
	assert.True(t, out.VersusBonus.IsZero())
}

func TestBonuses_WithWorkshops(t *testing.T) {
	// GIVEN: The same records plus a workshop paying 150
	in := payroll.BonusCollections{
		Covers: []payroll.Cover{
			{ID: "cv1", BonusPayment: true, Justification: payroll.JustificationApproved},
			{ID: "cv2", BonusPayment: true, Justification: payroll.JustificationApproved},
		},
		Brandings:  []payroll.Branding{{ID: "b1", Number: 5}},
		ThemeRides: []payroll.ThemeRide{{ID: "t1", Number: 1}},
		Workshops:  []payroll.Workshop{{ID: "w1", Name: "Técnica", Payment: dec("150")}},
	}

	out := payroll.CalculateBonuses(in, payroll.DefaultEngineConfig())

	// THEN: 160 + 25 + 30 + 150 = 365
	assertDecimal(t, "150", out.WorkshopBonus)
	assert.Equal(t, 1, out.WorkshopCount)
	assertDecimal(t, "365", out.Total)
}

func TestBonuses_OnlyApprovedBonusCoversCount(t *testing.T) {
	in := payroll.BonusCollections{
		Covers: []payroll.Cover{
			{ID: "ok", BonusPayment: true, Justification: payroll.JustificationApproved},
			{ID: "pending", BonusPayment: true, Justification: payroll.JustificationPending},
			{ID: "rejected", BonusPayment: true, Justification: payroll.JustificationRejected},
			{ID: "not-bonus", BonusPayment: false, Justification: payroll.JustificationApproved},
		},
	}

	out := payroll.CalculateBonuses(in, payroll.DefaultEngineConfig())

	assert.Equal(t, 1, out.CoverCount)
	assertDecimal(t, "80", out.CoverBonus)
	assertDecimal(t, "80", out.Total)
}

func TestBonuses_Empty(t *testing.T) {
	out := payroll.CalculateBonuses(payroll.BonusCollections{}, payroll.DefaultEngineConfig())

	assert.True(t, out.Total.IsZero())
}

func TestBonuses_ConfiguredRates(t *testing.T) {
	cfg := payroll.DefaultEngineConfig()
	cfg.CoverRate = dec("100")
	cfg.BrandingRate = dec("7.5")

	out := payroll.CalculateBonuses(payroll.BonusCollections{
		Covers:    []payroll.Cover{{BonusPayment: true, Justification: payroll.JustificationApproved}},
		Brandings: []payroll.Branding{{Number: 2}},
	}, cfg)

	assertDecimal(t, "115", out.Total)
}
