/*
Package factory provides stored-document to Go formula conversion.

PURPOSE:
  Formulas are stored and edited as JSON documents (categoryRequirements
  and paymentParameters blobs). The factory turns them into a validated,
  strongly-typed payroll.Formula at the storage boundary, so a malformed
  document fails here with ErrInvalidFormula instead of deep inside a
  calculation.

JSON SCHEMA:
  {
    "id": "f-siclo-2025-03",
    "discipline_id": "siclo",
    "period_id": "2025-03",
    "categoryRequirements": {
      "AMBASSADOR": {
        "ocupacion": 70, "clases": 40, "localesEnLima": 2,
        "dobleteos": 4, "horariosNoPrime": 4,
        "participacionEventos": true, "lineamientos": true
      }
    },
    "paymentParameters": {
      "INSTRUCTOR": {
        "cuotaFija": 0, "minimoGarantizado": 0,
        "tarifas": [
          {"numeroReservas": 20, "tarifa": 5},
          {"numeroReservas": 50, "tarifa": 3}
        ],
        "tarifaFullHouse": 4, "maximo": 0
      }
    }
  }

  The same document may be written in YAML (ParseFormulaYAML).

VALIDATION:
  - discipline_id and period_id are required
  - category keys must be INSTRUCTOR, JUNIOR_AMBASSADOR, AMBASSADOR or
    SENIOR_AMBASSADOR
  - requirement thresholds, tier thresholds and all amounts are >= 0
  - tier thresholds are unique within a category

SEE ALSO:
  - payroll/types.go: Formula type definition
  - store/sqlite/sqlite.go: Validates formulas on read
*/
package factory

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/studio-payroll/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// FormulaJSON is the document representation of a formula.
type FormulaJSON struct {
	ID                   string                           `json:"id,omitempty"`
	DisciplineID         string                           `json:"discipline_id" validate:"required"`
	PeriodID             string                           `json:"period_id" validate:"required"`
	TenantID             string                           `json:"tenant_id,omitempty"`
	CategoryRequirements map[string]RequirementsJSON      `json:"categoryRequirements" validate:"dive"`
	PaymentParameters    map[string]PaymentParametersJSON `json:"paymentParameters" validate:"dive"`
}

// RequirementsJSON is one category's requirements.
type RequirementsJSON struct {
	Occupancy          int  `json:"ocupacion" validate:"gte=0,lte=100"`
	Classes            int  `json:"clases" validate:"gte=0"`
	Locations          int  `json:"localesEnLima" validate:"gte=0"`
	DoubleShifts       int  `json:"dobleteos" validate:"gte=0"`
	NonPrimeHours      int  `json:"horariosNoPrime" validate:"gte=0"`
	EventParticipation bool `json:"participacionEventos"`
	Guidelines         bool `json:"lineamientos"`
}

// PaymentParametersJSON is one category's tariff table.
type PaymentParametersJSON struct {
	FixedQuota        decimal.Decimal  `json:"cuotaFija"`
	GuaranteedMinimum decimal.Decimal  `json:"minimoGarantizado"`
	Tiers             []TierJSON       `json:"tarifas" validate:"dive"`
	FullHouseRate     decimal.Decimal  `json:"tarifaFullHouse"`
	Maximum           decimal.Decimal  `json:"maximo"`
	Bonus             *decimal.Decimal `json:"bono,omitempty"`
}

type TierJSON struct {
	Reservations int             `json:"numeroReservas" validate:"gte=0"`
	Rate         decimal.Decimal `json:"tarifa"`
}

// =============================================================================
// FORMULA FACTORY
// =============================================================================

// FormulaFactory converts formula documents to payroll.Formula.
type FormulaFactory struct {
	validate *validator.Validate
}

func NewFormulaFactory() *FormulaFactory {
	return &FormulaFactory{validate: validator.New()}
}

// ParseFormula parses a JSON formula document.
func (f *FormulaFactory) ParseFormula(data []byte) (*payroll.Formula, error) {
	var fj FormulaJSON
	if err := json.Unmarshal(data, &fj); err != nil {
		return nil, fmt.Errorf("%w: parse formula JSON: %v", payroll.ErrInvalidFormula, err)
	}
	return f.FromJSON(fj)
}

// ParseFormulaYAML parses a YAML formula document. YAML is normalised
// through JSON so both encodings share one decoder for decimals.
func (f *FormulaFactory) ParseFormulaYAML(data []byte) (*payroll.Formula, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse formula YAML: %v", payroll.ErrInvalidFormula, err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: convert formula YAML: %v", payroll.ErrInvalidFormula, err)
	}
	return f.ParseFormula(raw)
}

// ParseFile picks the decoder from the file extension.
func (f *FormulaFactory) ParseFile(name string, data []byte) (*payroll.Formula, error) {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return f.ParseFormulaYAML(data)
	}
	return f.ParseFormula(data)
}

// ParseBlobs decodes the two stored JSON columns of a formula row.
func (f *FormulaFactory) ParseBlobs(requirementsJSON, parametersJSON []byte) (map[payroll.Category]payroll.CategoryRequirements, map[payroll.Category]payroll.PaymentParameters, error) {
	var reqs map[string]RequirementsJSON
	if len(requirementsJSON) > 0 {
		if err := json.Unmarshal(requirementsJSON, &reqs); err != nil {
			return nil, nil, fmt.Errorf("%w: categoryRequirements: %v", payroll.ErrInvalidFormula, err)
		}
	}
	var params map[string]PaymentParametersJSON
	if len(parametersJSON) > 0 {
		if err := json.Unmarshal(parametersJSON, &params); err != nil {
			return nil, nil, fmt.Errorf("%w: paymentParameters: %v", payroll.ErrInvalidFormula, err)
		}
	}

	formula, err := f.FromJSON(FormulaJSON{
		DisciplineID:         "stored",
		PeriodID:             "stored",
		CategoryRequirements: reqs,
		PaymentParameters:    params,
	})
	if err != nil {
		return nil, nil, err
	}
	return formula.Requirements, formula.Parameters, nil
}

// FromJSON validates a document and converts it.
func (f *FormulaFactory) FromJSON(fj FormulaJSON) (*payroll.Formula, error) {
	if err := f.validate.Struct(fj); err != nil {
		return nil, fmt.Errorf("%w: %v", payroll.ErrInvalidFormula, err)
	}

	formula := &payroll.Formula{
		ID:           payroll.FormulaID(fj.ID),
		DisciplineID: payroll.DisciplineID(fj.DisciplineID),
		PeriodID:     payroll.PeriodID(fj.PeriodID),
		TenantID:     payroll.TenantID(fj.TenantID),
		Requirements: make(map[payroll.Category]payroll.CategoryRequirements, len(fj.CategoryRequirements)),
		Parameters:   make(map[payroll.Category]payroll.PaymentParameters, len(fj.PaymentParameters)),
	}

	for key, rj := range fj.CategoryRequirements {
		category, ok := payroll.ParseCategory(key)
		if !ok {
			return nil, fmt.Errorf("%w: unknown category %q in categoryRequirements", payroll.ErrInvalidFormula, key)
		}
		formula.Requirements[category] = payroll.CategoryRequirements{
			Occupancy:                  rj.Occupancy,
			Classes:                    rj.Classes,
			Locations:                  rj.Locations,
			DoubleShifts:               rj.DoubleShifts,
			NonPrimeHours:              rj.NonPrimeHours,
			EventParticipationRequired: rj.EventParticipation,
			GuidelinesRequired:         rj.Guidelines,
		}
	}

	for key, pj := range fj.PaymentParameters {
		category, ok := payroll.ParseCategory(key)
		if !ok {
			return nil, fmt.Errorf("%w: unknown category %q in paymentParameters", payroll.ErrInvalidFormula, key)
		}
		params, err := parseParameters(key, pj)
		if err != nil {
			return nil, err
		}
		formula.Parameters[category] = params
	}

	return formula, nil
}

func parseParameters(category string, pj PaymentParametersJSON) (payroll.PaymentParameters, error) {
	amounts := map[string]decimal.Decimal{
		"cuotaFija":         pj.FixedQuota,
		"minimoGarantizado": pj.GuaranteedMinimum,
		"tarifaFullHouse":   pj.FullHouseRate,
		"maximo":            pj.Maximum,
	}
	for name, v := range amounts {
		if v.IsNegative() {
			return payroll.PaymentParameters{}, fmt.Errorf("%w: %s.%s is negative", payroll.ErrInvalidFormula, category, name)
		}
	}
	if pj.Bonus != nil && pj.Bonus.IsNegative() {
		return payroll.PaymentParameters{}, fmt.Errorf("%w: %s.bono is negative", payroll.ErrInvalidFormula, category)
	}

	seen := make(map[int]bool, len(pj.Tiers))
	tiers := make([]payroll.TariffTier, 0, len(pj.Tiers))
	for _, t := range pj.Tiers {
		if t.Rate.IsNegative() {
			return payroll.PaymentParameters{}, fmt.Errorf("%w: %s tier %d has a negative rate", payroll.ErrInvalidFormula, category, t.Reservations)
		}
		if seen[t.Reservations] {
			return payroll.PaymentParameters{}, fmt.Errorf("%w: %s has two tiers for %d reservations", payroll.ErrInvalidFormula, category, t.Reservations)
		}
		seen[t.Reservations] = true
		tiers = append(tiers, payroll.TariffTier{Reservations: t.Reservations, Rate: t.Rate})
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Reservations < tiers[j].Reservations })

	return payroll.PaymentParameters{
		FixedQuota:        pj.FixedQuota,
		GuaranteedMinimum: pj.GuaranteedMinimum,
		Tiers:             tiers,
		FullHouseRate:     pj.FullHouseRate,
		Maximum:           pj.Maximum,
		Bonus:             pj.Bonus,
	}, nil
}

// =============================================================================
// REVERSE CONVERSION
// =============================================================================

// ToJSON converts a formula back to its document form.
func ToJSON(formula payroll.Formula) FormulaJSON {
	fj := FormulaJSON{
		ID:                   string(formula.ID),
		DisciplineID:         string(formula.DisciplineID),
		PeriodID:             string(formula.PeriodID),
		TenantID:             string(formula.TenantID),
		CategoryRequirements: make(map[string]RequirementsJSON, len(formula.Requirements)),
		PaymentParameters:    make(map[string]PaymentParametersJSON, len(formula.Parameters)),
	}
	for category, r := range formula.Requirements {
		fj.CategoryRequirements[string(category)] = RequirementsJSON{
			Occupancy:          r.Occupancy,
			Classes:            r.Classes,
			Locations:          r.Locations,
			DoubleShifts:       r.DoubleShifts,
			NonPrimeHours:      r.NonPrimeHours,
			EventParticipation: r.EventParticipationRequired,
			Guidelines:         r.GuidelinesRequired,
		}
	}
	for category, p := range formula.Parameters {
		tiers := make([]TierJSON, len(p.Tiers))
		for i, t := range p.Tiers {
			tiers[i] = TierJSON{Reservations: t.Reservations, Rate: t.Rate}
		}
		fj.PaymentParameters[string(category)] = PaymentParametersJSON{
			FixedQuota:        p.FixedQuota,
			GuaranteedMinimum: p.GuaranteedMinimum,
			Tiers:             tiers,
			FullHouseRate:     p.FullHouseRate,
			Maximum:           p.Maximum,
			Bonus:             p.Bonus,
		}
	}
	return fj
}

// MarshalBlobs encodes the two stored JSON columns of a formula.
func MarshalBlobs(formula payroll.Formula) (requirementsJSON, parametersJSON []byte, err error) {
	fj := ToJSON(formula)
	requirementsJSON, err = json.Marshal(fj.CategoryRequirements)
	if err != nil {
		return nil, nil, err
	}
	parametersJSON, err = json.Marshal(fj.PaymentParameters)
	if err != nil {
		return nil, nil, err
	}
	return requirementsJSON, parametersJSON, nil
}
