package factory_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/studio-payroll/factory"
	"github.com/warp/studio-payroll/payroll"
)

const sicloFormula = `{
  "id": "f-siclo",
  "discipline_id": "siclo",
  "period_id": "2026-10",
  "categoryRequirements": {
    "INSTRUCTOR": {},
    "AMBASSADOR": {
      "ocupacion": 70, "clases": 40, "localesEnLima": 2,
      "dobleteos": 4, "horariosNoPrime": 4,
      "participacionEventos": true, "lineamientos": true
    }
  },
  "paymentParameters": {
    "INSTRUCTOR": {
      "cuotaFija": 0, "minimoGarantizado": 10,
      "tarifas": [
        {"numeroReservas": 50, "tarifa": 3},
        {"numeroReservas": 20, "tarifa": 5.5}
      ],
      "tarifaFullHouse": 4, "maximo": 0, "bono": 12
    }
  }
}`

const sicloFormulaYAML = `
id: f-siclo
discipline_id: siclo
period_id: "2026-10"
categoryRequirements:
  AMBASSADOR:
    ocupacion: 70
    clases: 40
paymentParameters:
  INSTRUCTOR:
    minimoGarantizado: 10
    tarifas:
      - numeroReservas: 20
        tarifa: 5.5
      - numeroReservas: 50
        tarifa: 3
    tarifaFullHouse: 4
`

func TestParseFormula(t *testing.T) {
	// GIVEN: A JSON formula with unsorted tiers
	// WHEN: Parsing it
	// THEN: Fields map onto the typed formula and tiers come back sorted

	f, err := factory.NewFormulaFactory().ParseFormula([]byte(sicloFormula))
	require.NoError(t, err)

	assert.Equal(t, payroll.FormulaID("f-siclo"), f.ID)
	assert.Equal(t, payroll.DisciplineID("siclo"), f.DisciplineID)
	assert.Equal(t, payroll.PeriodID("2026-10"), f.PeriodID)

	amb := f.Requirements[payroll.CategoryAmbassador]
	assert.Equal(t, payroll.CategoryRequirements{
		Occupancy: 70, Classes: 40, Locations: 2, DoubleShifts: 4, NonPrimeHours: 4,
		EventParticipationRequired: true, GuidelinesRequired: true,
	}, amb)
	assert.Contains(t, f.Requirements, payroll.CategoryInstructor)

	p, ok := f.ParametersFor(payroll.CategoryInstructor)
	require.True(t, ok)
	require.Len(t, p.Tiers, 2)
	assert.Equal(t, 20, p.Tiers[0].Reservations)
	assert.True(t, decimal.RequireFromString("5.5").Equal(p.Tiers[0].Rate))
	assert.Equal(t, 50, p.Tiers[1].Reservations)
	assert.True(t, decimal.NewFromInt(10).Equal(p.GuaranteedMinimum))
	assert.True(t, decimal.NewFromInt(4).Equal(p.FullHouseRate))
	require.NotNil(t, p.Bonus)
	assert.True(t, decimal.NewFromInt(12).Equal(*p.Bonus))

	_, ok = f.ParametersFor(payroll.CategoryAmbassador)
	assert.False(t, ok)
}

func TestParseFormulaYAML_MatchesJSON(t *testing.T) {
	ff := factory.NewFormulaFactory()

	fromYAML, err := ff.ParseFile("siclo.yaml", []byte(sicloFormulaYAML))
	require.NoError(t, err)

	assert.Equal(t, payroll.PeriodID("2026-10"), fromYAML.PeriodID)
	p := fromYAML.Parameters[payroll.CategoryInstructor]
	require.Len(t, p.Tiers, 2)
	assert.True(t, decimal.RequireFromString("5.5").Equal(p.Tiers[0].Rate))
	assert.Equal(t, 40, fromYAML.Requirements[payroll.CategoryAmbassador].Classes)
}

func TestParseFormula_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", `{"discipline_id": `},
		{"missing discipline", `{"period_id": "2026-10"}`},
		{"missing period", `{"discipline_id": "siclo"}`},
		{"unknown category", `{"discipline_id": "siclo", "period_id": "p", "paymentParameters": {"MASTER": {}}}`},
		{"unknown requirement category", `{"discipline_id": "siclo", "period_id": "p", "categoryRequirements": {"MASTER": {}}}`},
		{"occupancy above 100", `{"discipline_id": "siclo", "period_id": "p", "categoryRequirements": {"INSTRUCTOR": {"ocupacion": 120}}}`},
		{"negative classes", `{"discipline_id": "siclo", "period_id": "p", "categoryRequirements": {"INSTRUCTOR": {"clases": -1}}}`},
		{"negative minimum", `{"discipline_id": "siclo", "period_id": "p", "paymentParameters": {"INSTRUCTOR": {"minimoGarantizado": -5}}}`},
		{"negative rate", `{"discipline_id": "siclo", "period_id": "p", "paymentParameters": {"INSTRUCTOR": {"tarifas": [{"numeroReservas": 10, "tarifa": -1}]}}}`},
		{"negative threshold", `{"discipline_id": "siclo", "period_id": "p", "paymentParameters": {"INSTRUCTOR": {"tarifas": [{"numeroReservas": -10, "tarifa": 1}]}}}`},
		{"duplicate tier", `{"discipline_id": "siclo", "period_id": "p", "paymentParameters": {"INSTRUCTOR": {"tarifas": [{"numeroReservas": 10, "tarifa": 1}, {"numeroReservas": 10, "tarifa": 2}]}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.NewFormulaFactory().ParseFormula([]byte(tt.doc))

			require.Error(t, err)
			assert.ErrorIs(t, err, payroll.ErrInvalidFormula)
		})
	}
}

func TestMarshalBlobs_ParseBlobs(t *testing.T) {
	// GIVEN: A parsed formula
	ff := factory.NewFormulaFactory()
	original, err := ff.ParseFormula([]byte(sicloFormula))
	require.NoError(t, err)

	// WHEN: Storing its blobs and reading them back
	reqJSON, paramsJSON, err := factory.MarshalBlobs(*original)
	require.NoError(t, err)
	reqs, params, err := ff.ParseBlobs(reqJSON, paramsJSON)

	// THEN: The stored form uses the document keys and restores the formula
	require.NoError(t, err)
	assert.Contains(t, string(reqJSON), `"ocupacion":70`)
	assert.Contains(t, string(paramsJSON), `"numeroReservas":20`)
	assert.Equal(t, original.Requirements, reqs)
	require.Len(t, params[payroll.CategoryInstructor].Tiers, 2)
	assert.True(t, original.Parameters[payroll.CategoryInstructor].Tiers[0].Rate.Equal(params[payroll.CategoryInstructor].Tiers[0].Rate))
}

func TestParseBlobs_RejectsCorruptColumns(t *testing.T) {
	ff := factory.NewFormulaFactory()

	_, _, err := ff.ParseBlobs([]byte(`{"INSTRUCTOR": `), nil)
	assert.ErrorIs(t, err, payroll.ErrInvalidFormula)

	_, _, err = ff.ParseBlobs(nil, []byte(`{"INSTRUCTOR": {"maximo": -1}}`))
	assert.ErrorIs(t, err, payroll.ErrInvalidFormula)
}

func TestToJSON_EncodesDecimalsAsStrings(t *testing.T) {
	f, err := factory.NewFormulaFactory().ParseFormula([]byte(sicloFormula))
	require.NoError(t, err)

	raw, err := json.Marshal(factory.ToJSON(*f))
	require.NoError(t, err)

	assert.Contains(t, string(raw), `"tarifa":"5.5"`)
	assert.Contains(t, string(raw), `"discipline_id":"siclo"`)
}
