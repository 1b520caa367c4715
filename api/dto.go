/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the payroll domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Payments:
    CalculatePaymentRequest, PaymentCalculationDTO, ClassPaymentDTO,
    BonusDTO, PenaltyDTO, PaymentRecordDTO

  Batch:
    BatchRequest, BatchResultDTO, BatchItemDTO

  Categories:
    SetCategoryRequest, CategoryDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

MONEY:
  Amounts are decimal.Decimal and serialise as JSON strings ("124.2"),
  so clients never see float rounding.

VALIDATION:
  Request types carry validator/v10 tags, checked by decodeRequest.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/formula.go: FormulaJSON type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/studio-payroll/payroll"
	"github.com/warp/studio-payroll/store/sqlite"
)

// =============================================================================
// PAYMENTS
// =============================================================================

// CalculatePaymentRequest asks for one instructor's payment.
type CalculatePaymentRequest struct {
	InstructorID string `json:"instructor_id" validate:"required"`
	PeriodID     string `json:"period_id" validate:"required"`
}

// PaymentCalculationDTO is the full payment report of one instructor.
type PaymentCalculationDTO struct {
	InstructorID       string                  `json:"instructor_id"`
	InstructorName     string                  `json:"instructor_name"`
	PeriodID           string                  `json:"period_id"`
	TenantID           string                  `json:"tenant_id"`
	BaseAmount         decimal.Decimal         `json:"base_amount"`
	Bonuses            BonusDTO                `json:"bonuses"`
	Penalties          PenaltyDTO              `json:"penalties"`
	RetentionRate      decimal.Decimal         `json:"retention_rate"`
	Retention          decimal.Decimal         `json:"retention"`
	FinalPayment       decimal.Decimal         `json:"final_payment"`
	TotalClasses       int                     `json:"total_classes"`
	Categories         []DisciplineCategoryDTO `json:"categories"`
	SkippedDisciplines []SkippedDisciplineDTO  `json:"skipped_disciplines"`
	Classes            []ClassPaymentDTO       `json:"classes"`
	Log                []string                `json:"log"`
}

type DisciplineCategoryDTO struct {
	DisciplineID   string          `json:"discipline_id"`
	DisciplineName string          `json:"discipline_name"`
	FormulaID      string          `json:"formula_id"`
	Category       string          `json:"category"`
	IsManual       bool            `json:"is_manual"`
	ClassCount     int             `json:"class_count"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type SkippedDisciplineDTO struct {
	DisciplineID   string `json:"discipline_id"`
	DisciplineName string `json:"discipline_name"`
	ClassCount     int    `json:"class_count"`
	Reason         string `json:"reason"`
}

// ClassPaymentDTO is the priced result of one class.
type ClassPaymentDTO struct {
	ClassID          string          `json:"class_id"`
	DisciplineID     string          `json:"discipline_id"`
	DisciplineName   string          `json:"discipline_name"`
	Date             string          `json:"date,omitempty"`
	Hour             string          `json:"hour,omitempty"`
	Studio           string          `json:"studio"`
	Room             string          `json:"room"`
	Spots            int             `json:"spots"`
	Reservations     int             `json:"reservations"`
	Occupancy        int             `json:"occupancy"`
	Category         string          `json:"category"`
	Tariff           decimal.Decimal `json:"tariff"`
	TariffLabel      string          `json:"tariff_label"`
	FullHouse        bool            `json:"full_house"`
	FullHouseByCover bool            `json:"full_house_by_cover"`
	IsVersus         bool            `json:"is_versus"`
	VersusNumber     int             `json:"versus_number,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Calculation      string          `json:"calculation"`
}

type BonusDTO struct {
	CoverCount     int             `json:"cover_count"`
	CoverBonus     decimal.Decimal `json:"cover_bonus"`
	BrandingCount  int             `json:"branding_count"`
	BrandingBonus  decimal.Decimal `json:"branding_bonus"`
	ThemeRideCount int             `json:"theme_ride_count"`
	ThemeRideBonus decimal.Decimal `json:"theme_ride_bonus"`
	WorkshopCount  int             `json:"workshop_count"`
	WorkshopBonus  decimal.Decimal `json:"workshop_bonus"`
	VersusBonus    decimal.Decimal `json:"versus_bonus"`
	Total          decimal.Decimal `json:"total"`
}

type PenaltyDTO struct {
	TotalPoints     int                `json:"total_points"`
	MaxAllowed      int                `json:"max_allowed"`
	ExcessPoints    int                `json:"excess_points"`
	DiscountPercent int                `json:"discount_percent"`
	Details         []PenaltyDetailDTO `json:"details"`
}

type PenaltyDetailDTO struct {
	ID             string `json:"id"`
	Points         int    `json:"points"`
	Type           string `json:"type"`
	Description    string `json:"description,omitempty"`
	AppliedAt      string `json:"applied_at,omitempty"`
	DisciplineID   string `json:"discipline_id,omitempty"`
	DisciplineName string `json:"discipline_name"`
}

// PaymentRecordDTO is a stored payment.
type PaymentRecordDTO struct {
	ID                     string          `json:"id"`
	InstructorID           string          `json:"instructor_id"`
	PeriodID               string          `json:"period_id"`
	BaseAmount             decimal.Decimal `json:"base_amount"`
	Bonuses                decimal.Decimal `json:"bonuses"`
	Retention              decimal.Decimal `json:"retention"`
	PenaltyDiscountPercent int             `json:"penalty_discount_percent"`
	FinalPayment           decimal.Decimal `json:"final_payment"`
	Status                 string          `json:"status"`
	UpdatedAt              string          `json:"updated_at,omitempty"`
}

// =============================================================================
// BATCH
// =============================================================================

// BatchRequest calculates a period for several instructors. An empty list
// means every instructor of the tenant.
type BatchRequest struct {
	PeriodID      string   `json:"period_id" validate:"required"`
	InstructorIDs []string `json:"instructor_ids" validate:"dive,required"`
}

type BatchResultDTO struct {
	RunID      string         `json:"run_id"`
	PeriodID   string         `json:"period_id"`
	Calculated int            `json:"calculated"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
	Items      []BatchItemDTO `json:"items"`
}

type BatchItemDTO struct {
	InstructorID string           `json:"instructor_id"`
	Status       string           `json:"status"`
	Message      string           `json:"message,omitempty"`
	FinalPayment *decimal.Decimal `json:"final_payment,omitempty"`
}

// =============================================================================
// CATEGORIES
// =============================================================================

// SetCategoryRequest sets a manual category.
type SetCategoryRequest struct {
	PeriodID string `json:"period_id" validate:"required"`
	Category string `json:"category" validate:"required,oneof=INSTRUCTOR JUNIOR_AMBASSADOR AMBASSADOR SENIOR_AMBASSADOR"`
}

// CategoryDTO is a resolved or stored category.
type CategoryDTO struct {
	InstructorID string                     `json:"instructor_id"`
	DisciplineID string                     `json:"discipline_id"`
	PeriodID     string                     `json:"period_id"`
	Category     string                     `json:"category"`
	IsManual     bool                       `json:"is_manual"`
	Metrics      *payroll.DisciplineMetrics `json:"metrics,omitempty"`
	UpdatedAt    string                     `json:"updated_at,omitempty"`
	Log          []string                   `json:"log,omitempty"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// ToPaymentCalculationDTO converts a calculation to its wire form. The API
// responses, the stored calculation JSON and the CLI's --json output all use it.
func ToPaymentCalculationDTO(d *payroll.PaymentCalculationData) PaymentCalculationDTO {
	dto := PaymentCalculationDTO{
		InstructorID:       string(d.InstructorID),
		InstructorName:     d.InstructorName,
		PeriodID:           string(d.PeriodID),
		TenantID:           string(d.TenantID),
		BaseAmount:         d.BaseAmount,
		RetentionRate:      d.RetentionRate,
		Retention:          d.Retention,
		FinalPayment:       d.FinalPayment,
		TotalClasses:       d.TotalClasses,
		Categories:         make([]DisciplineCategoryDTO, len(d.Categories)),
		SkippedDisciplines: make([]SkippedDisciplineDTO, len(d.SkippedDisciplines)),
		Classes:            make([]ClassPaymentDTO, len(d.Classes)),
		Log:                d.Log,
		Bonuses: BonusDTO{
			CoverCount:     d.Bonuses.CoverCount,
			CoverBonus:     d.Bonuses.CoverBonus,
			BrandingCount:  d.Bonuses.BrandingCount,
			BrandingBonus:  d.Bonuses.BrandingBonus,
			ThemeRideCount: d.Bonuses.ThemeRideCount,
			ThemeRideBonus: d.Bonuses.ThemeRideBonus,
			WorkshopCount:  d.Bonuses.WorkshopCount,
			WorkshopBonus:  d.Bonuses.WorkshopBonus,
			VersusBonus:    d.Bonuses.VersusBonus,
			Total:          d.Bonuses.Total,
		},
		Penalties: PenaltyDTO{
			TotalPoints:     d.Penalties.TotalPoints,
			MaxAllowed:      d.Penalties.MaxAllowed,
			ExcessPoints:    d.Penalties.ExcessPoints,
			DiscountPercent: d.Penalties.DiscountPercent,
			Details:         make([]PenaltyDetailDTO, len(d.Penalties.Details)),
		},
	}

	for i, c := range d.Categories {
		dto.Categories[i] = DisciplineCategoryDTO{
			DisciplineID:   string(c.DisciplineID),
			DisciplineName: c.DisciplineName,
			FormulaID:      string(c.FormulaID),
			Category:       string(c.Category),
			IsManual:       c.IsManual,
			ClassCount:     c.ClassCount,
			Subtotal:       c.Subtotal,
		}
	}
	for i, s := range d.SkippedDisciplines {
		dto.SkippedDisciplines[i] = SkippedDisciplineDTO{
			DisciplineID:   string(s.DisciplineID),
			DisciplineName: s.DisciplineName,
			ClassCount:     s.ClassCount,
			Reason:         s.Reason,
		}
	}
	for i, c := range d.Classes {
		dto.Classes[i] = ClassPaymentDTO{
			ClassID:          string(c.ClassID),
			DisciplineID:     string(c.DisciplineID),
			DisciplineName:   c.DisciplineName,
			Date:             formatDate(c.Date),
			Hour:             c.Hour,
			Studio:           c.Studio,
			Room:             c.Room,
			Spots:            c.Spots,
			Reservations:     c.Reservations,
			Occupancy:        c.Occupancy,
			Category:         string(c.Category),
			Tariff:           c.Tariff,
			TariffLabel:      c.TariffLabel,
			FullHouse:        c.FullHouse,
			FullHouseByCover: c.FullHouseByCover,
			IsVersus:         c.IsVersus,
			VersusNumber:     c.VersusNumber,
			Amount:           c.CalculatedAmount,
			Calculation:      c.Calculation,
		}
	}
	for i, p := range d.Penalties.Details {
		detail := PenaltyDetailDTO{
			ID:             p.ID,
			Points:         p.Points,
			Type:           string(p.Type),
			Description:    p.Description,
			AppliedAt:      formatDate(p.AppliedAt),
			DisciplineName: p.DisciplineName,
		}
		if p.DisciplineID != nil {
			detail.DisciplineID = string(*p.DisciplineID)
		}
		dto.Penalties.Details[i] = detail
	}
	return dto
}

func toPaymentRecordDTO(p sqlite.PaymentRecord) PaymentRecordDTO {
	dto := PaymentRecordDTO{
		ID:                     p.ID,
		InstructorID:           string(p.InstructorID),
		PeriodID:               string(p.PeriodID),
		BaseAmount:             p.BaseAmount,
		Bonuses:                p.Bonuses,
		Retention:              p.Retention,
		PenaltyDiscountPercent: p.PenaltyDiscountPercent,
		FinalPayment:           p.FinalPayment,
		Status:                 string(p.Status),
	}
	if !p.UpdatedAt.IsZero() {
		dto.UpdatedAt = p.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

func toCategoryDTO(c payroll.InstructorCategory) CategoryDTO {
	dto := CategoryDTO{
		InstructorID: string(c.InstructorID),
		DisciplineID: string(c.DisciplineID),
		PeriodID:     string(c.PeriodID),
		Category:     string(c.Category),
		IsManual:     c.IsManual,
		Metrics:      c.Metrics,
	}
	if !c.UpdatedAt.IsZero() {
		dto.UpdatedAt = c.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
