/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	studio data for demos. Each scenario creates instructors, disciplines,
	formulas and a month of classes that exercise specific rules.

AVAILABLE SCENARIOS:

	single-discipline: One Síclo instructor, automatic category
	multi-discipline:  Síclo + Barre priced, Yoga skipped (no formula),
	                   manual category, covers, brandings, penalties
	versus-full-house: Versus classes and full-house markers

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create disciplines and formulas via the formula factory
 3. Create instructors
 4. Add classes and bonus/penalty records for period 2026-10

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "multi-discipline"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Router-facing handlers
  - factory/formula.go: Formula JSON definitions
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/studio-payroll/factory"
	"github.com/warp/studio-payroll/payroll"
	"github.com/warp/studio-payroll/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

const (
	demoTenant = payroll.TenantID(defaultTenant)
	demoPeriod = payroll.PeriodID("2026-10")
)

// Studio calendar is Lima time, which has no DST.
var lima = time.FixedZone("PET", -5*60*60)

var scenarios = []ScenarioDTO{
	{
		ID:          "single-discipline",
		Name:        "Single Discipline",
		Description: "One Síclo instructor, category computed from the month's classes",
	},
	{
		ID:          "multi-discipline",
		Name:        "Multi-Discipline",
		Description: "Síclo and Barre priced, Yoga skipped for lack of a formula, manual Barre category, bonuses and penalties",
	},
	{
		ID:          "versus-full-house",
		Name:        "Versus & Full House",
		Description: "Versus classes split between instructors and full-house markers on covered classes",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := h.decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		if err == errUnknownScenario {
			writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

var errUnknownScenario = fmt.Errorf("unknown scenario")

func (h *Handler) loadScenario(ctx context.Context, id string) error {
	var loader func(context.Context, *seeder) error
	switch id {
	case "single-discipline":
		loader = loadSingleDiscipline
	case "multi-discipline":
		loader = loadMultiDiscipline
	case "versus-full-house":
		loader = loadVersusFullHouse
	default:
		return errUnknownScenario
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset database: %w", err)
	}
	h.currentScenario = ""

	s := &seeder{store: h.Store, formulas: h.Formulas}
	if err := loader(ctx, s); err != nil {
		return err
	}
	h.currentScenario = id
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadSingleDiscipline(ctx context.Context, s *seeder) error {
	s.discipline(ctx, "siclo", "Síclo")
	s.formula(ctx, sicloFormulaJSON)
	s.instructor(ctx, "inst-ana", "Ana Torres", true, true)

	// 16 classes over four weeks in two studios, two of them back-to-back.
	studios := []string{"Reducto", "San Isidro"}
	for i := 0; i < 16; i++ {
		day := 1 + (i/4)*7 + i%4
		s.class(ctx, payroll.ClassRecord{
			ID:                payroll.ClassID(fmt.Sprintf("ana-siclo-%02d", i+1)),
			InstructorID:      "inst-ana",
			DisciplineID:      "siclo",
			Date:              at(day, 7, 0),
			Studio:            studios[i%2],
			Room:              "Sala 1",
			Spots:             50,
			TotalReservations: 30 + i,
		})
	}
	s.class(ctx, payroll.ClassRecord{
		ID: "ana-siclo-17", InstructorID: "inst-ana", DisciplineID: "siclo",
		Date: at(1, 8, 0), Studio: "Reducto", Room: "Sala 1", Spots: 50, TotalReservations: 42,
	})
	s.class(ctx, payroll.ClassRecord{
		ID: "ana-siclo-18", InstructorID: "inst-ana", DisciplineID: "siclo",
		Date: at(8, 21, 0), Studio: "Reducto", Room: "Sala 1", Spots: 50, TotalReservations: 25,
	})
	return s.err
}

func loadMultiDiscipline(ctx context.Context, s *seeder) error {
	s.discipline(ctx, "siclo", "Síclo")
	s.discipline(ctx, "barre", "Barre")
	s.discipline(ctx, "yoga", "Yoga")
	s.formula(ctx, sicloFormulaJSON)
	s.formula(ctx, barreFormulaJSON)
	s.instructor(ctx, "inst-lucia", "Lucía Paredes", false, true)

	for i := 0; i < 10; i++ {
		s.class(ctx, payroll.ClassRecord{
			ID:                payroll.ClassID(fmt.Sprintf("lucia-siclo-%02d", i+1)),
			InstructorID:      "inst-lucia",
			DisciplineID:      "siclo",
			Date:              at(1+i*3, 18, 0),
			Studio:            "Miraflores",
			Room:              "Sala 2",
			Spots:             40,
			TotalReservations: 18 + i*2,
		})
	}
	for i := 0; i < 6; i++ {
		s.class(ctx, payroll.ClassRecord{
			ID:                payroll.ClassID(fmt.Sprintf("lucia-barre-%02d", i+1)),
			InstructorID:      "inst-lucia",
			DisciplineID:      "barre",
			Date:              at(2+i*4, 9, 0),
			Studio:            "San Isidro",
			Room:              "Barre",
			Spots:             20,
			TotalReservations: 12 + i,
		})
	}
	for i := 0; i < 3; i++ {
		s.class(ctx, payroll.ClassRecord{
			ID:                payroll.ClassID(fmt.Sprintf("lucia-yoga-%02d", i+1)),
			InstructorID:      "inst-lucia",
			DisciplineID:      "yoga",
			Date:              at(5+i*7, 10, 0),
			Studio:            "Miraflores",
			Room:              "Zen",
			Spots:             15,
			TotalReservations: 10,
		})
	}

	s.manualCategory(ctx, "inst-lucia", "barre", payroll.CategoryAmbassador)

	s.cover(ctx, payroll.Cover{ID: "cover-1", OriginalInstructorID: "inst-ana", ReplacementInstructorID: "inst-lucia",
		BonusPayment: true, Justification: payroll.JustificationApproved})
	s.cover(ctx, payroll.Cover{ID: "cover-2", OriginalInstructorID: "inst-ana", ReplacementInstructorID: "inst-lucia",
		BonusPayment: true, Justification: payroll.JustificationPending})
	s.branding(ctx, payroll.Branding{ID: "branding-1", InstructorID: "inst-lucia", Number: 3})
	s.themeRide(ctx, payroll.ThemeRide{ID: "theme-1", InstructorID: "inst-lucia", Number: 1})
	s.workshop(ctx, payroll.Workshop{ID: "workshop-1", InstructorID: "inst-lucia", Name: "Técnica de cadencia",
		Payment: decimal.NewFromInt(150)})

	siclo := payroll.DisciplineID("siclo")
	s.penalty(ctx, payroll.Penalty{ID: "pen-1", InstructorID: "inst-lucia", DisciplineID: &siclo, Points: 2,
		Type: payroll.PenaltyLateArrival, Description: "Llegó 10 minutos tarde", AppliedAt: at(4, 18, 10), Active: true})
	s.penalty(ctx, payroll.Penalty{ID: "pen-2", InstructorID: "inst-lucia", Points: 3,
		Type: payroll.PenaltyLateCancel, Description: "Canceló con menos de 24h", AppliedAt: at(12, 9, 0), Active: true})
	s.penalty(ctx, payroll.Penalty{ID: "pen-3", InstructorID: "inst-lucia", Points: 5,
		Type: payroll.PenaltyNoShow, Description: "Anulada por gerencia", AppliedAt: at(20, 9, 0), Active: false})
	return s.err
}

func loadVersusFullHouse(ctx context.Context, s *seeder) error {
	s.discipline(ctx, "siclo", "Síclo")
	s.formula(ctx, sicloFormulaJSON)
	s.instructor(ctx, "inst-diego", "Diego Salas", true, true)
	s.instructor(ctx, "inst-maria", "María Quispe", false, true)

	for _, id := range []payroll.InstructorID{"inst-diego", "inst-maria"} {
		s.class(ctx, payroll.ClassRecord{
			ID:                payroll.ClassID(fmt.Sprintf("%s-versus", id)),
			InstructorID:      id,
			DisciplineID:      "siclo",
			Date:              at(10, 19, 0),
			Studio:            "Reducto",
			Room:              "Sala 1",
			Spots:             50,
			TotalReservations: 50,
			IsVersus:          true,
			VersusNumber:      2,
		})
	}
	s.class(ctx, payroll.ClassRecord{
		ID: "inst-diego-cover", InstructorID: "inst-diego", DisciplineID: "siclo",
		Date: at(14, 7, 0), Studio: "San Isidro", Room: "Sala 1", Spots: 45, TotalReservations: 12,
		SpecialText: "Cover - Full House",
	})
	s.class(ctx, payroll.ClassRecord{
		ID: "inst-diego-regular", InstructorID: "inst-diego", DisciplineID: "siclo",
		Date: at(15, 7, 0), Studio: "San Isidro", Room: "Sala 1", Spots: 45, TotalReservations: 20,
		SpecialText: "fullhouse",
	})
	return s.err
}

// =============================================================================
// SEEDING HELPERS
// =============================================================================

// seeder writes demo rows and keeps the first error.
type seeder struct {
	store    *sqlite.Store
	formulas *factory.FormulaFactory
	err      error
}

func (s *seeder) do(fn func() error) {
	if s.err == nil {
		s.err = fn()
	}
}

func (s *seeder) discipline(ctx context.Context, id payroll.DisciplineID, name string) {
	s.do(func() error {
		return s.store.SaveDiscipline(ctx, payroll.Discipline{ID: id, TenantID: demoTenant, Name: name})
	})
}

func (s *seeder) formula(ctx context.Context, doc string) {
	s.do(func() error {
		f, err := s.formulas.ParseFormula([]byte(doc))
		if err != nil {
			return err
		}
		return s.store.SaveFormula(ctx, *f)
	})
}

func (s *seeder) instructor(ctx context.Context, id payroll.InstructorID, name string, events, guidelines bool) {
	s.do(func() error {
		return s.store.SaveInstructor(ctx, payroll.Instructor{
			ID:        id,
			TenantID:  demoTenant,
			Name:      name,
			ExtraInfo: payroll.ExtraInfo{EventParticipation: &events, MeetsGuidelines: &guidelines},
		})
	})
}

func (s *seeder) class(ctx context.Context, c payroll.ClassRecord) {
	c.PeriodID = demoPeriod
	s.do(func() error { return s.store.SaveClass(ctx, demoTenant, c) })
}

func (s *seeder) manualCategory(ctx context.Context, instructorID payroll.InstructorID, disciplineID payroll.DisciplineID, category payroll.Category) {
	s.do(func() error {
		return s.store.SetManualCategory(ctx, payroll.InstructorCategory{
			ID:           fmt.Sprintf("manual-%s-%s", instructorID, disciplineID),
			InstructorID: instructorID,
			DisciplineID: disciplineID,
			PeriodID:     demoPeriod,
			TenantID:     demoTenant,
			Category:     category,
			IsManual:     true,
			UpdatedAt:    time.Now().UTC(),
		})
	})
}

func (s *seeder) cover(ctx context.Context, c payroll.Cover) {
	c.PeriodID = demoPeriod
	s.do(func() error { return s.store.SaveCover(ctx, demoTenant, c) })
}

func (s *seeder) branding(ctx context.Context, b payroll.Branding) {
	b.PeriodID = demoPeriod
	s.do(func() error { return s.store.SaveBranding(ctx, demoTenant, b) })
}

func (s *seeder) themeRide(ctx context.Context, r payroll.ThemeRide) {
	r.PeriodID = demoPeriod
	s.do(func() error { return s.store.SaveThemeRide(ctx, demoTenant, r) })
}

func (s *seeder) workshop(ctx context.Context, w payroll.Workshop) {
	w.PeriodID = demoPeriod
	s.do(func() error { return s.store.SaveWorkshop(ctx, demoTenant, w) })
}

func (s *seeder) penalty(ctx context.Context, p payroll.Penalty) {
	p.PeriodID = demoPeriod
	s.do(func() error { return s.store.SavePenalty(ctx, demoTenant, p) })
}

// at returns a time in October 2026, Lima.
func at(day, hour, minute int) time.Time {
	return time.Date(2026, time.October, day, hour, minute, 0, 0, lima)
}

// =============================================================================
// FORMULA DOCUMENTS
// =============================================================================

const sicloFormulaJSON = `{
	"id": "formula-siclo-2026-10",
	"discipline_id": "siclo",
	"period_id": "2026-10",
	"tenant_id": "default",
	"categoryRequirements": {
		"INSTRUCTOR":        {"ocupacion": 0,  "clases": 0,  "localesEnLima": 0, "dobleteos": 0, "horariosNoPrime": 0, "participacionEventos": false, "lineamientos": false},
		"JUNIOR_AMBASSADOR": {"ocupacion": 40, "clases": 8,  "localesEnLima": 1, "dobleteos": 0, "horariosNoPrime": 0, "participacionEventos": false, "lineamientos": true},
		"AMBASSADOR":        {"ocupacion": 60, "clases": 12, "localesEnLima": 2, "dobleteos": 1, "horariosNoPrime": 0, "participacionEventos": false, "lineamientos": true},
		"SENIOR_AMBASSADOR": {"ocupacion": 80, "clases": 16, "localesEnLima": 3, "dobleteos": 2, "horariosNoPrime": 2, "participacionEventos": true,  "lineamientos": true}
	},
	"paymentParameters": {
		"INSTRUCTOR": {
			"cuotaFija": "0", "minimoGarantizado": "50", "tarifaFullHouse": "6", "maximo": "250",
			"tarifas": [{"numeroReservas": 20, "tarifa": "3.5"}, {"numeroReservas": 35, "tarifa": "4"}, {"numeroReservas": 50, "tarifa": "4.5"}]
		},
		"JUNIOR_AMBASSADOR": {
			"cuotaFija": "0", "minimoGarantizado": "55", "tarifaFullHouse": "6.5", "maximo": "275",
			"tarifas": [{"numeroReservas": 20, "tarifa": "4"}, {"numeroReservas": 35, "tarifa": "4.5"}, {"numeroReservas": 50, "tarifa": "5"}]
		},
		"AMBASSADOR": {
			"cuotaFija": "0", "minimoGarantizado": "60", "tarifaFullHouse": "7", "maximo": "300",
			"tarifas": [{"numeroReservas": 20, "tarifa": "4.5"}, {"numeroReservas": 35, "tarifa": "5"}, {"numeroReservas": 50, "tarifa": "5.5"}]
		},
		"SENIOR_AMBASSADOR": {
			"cuotaFija": "0", "minimoGarantizado": "70", "tarifaFullHouse": "8", "maximo": "350",
			"tarifas": [{"numeroReservas": 20, "tarifa": "5"}, {"numeroReservas": 35, "tarifa": "5.5"}, {"numeroReservas": 50, "tarifa": "6"}]
		}
	}
}`

const barreFormulaJSON = `{
	"id": "formula-barre-2026-10",
	"discipline_id": "barre",
	"period_id": "2026-10",
	"tenant_id": "default",
	"categoryRequirements": {
		"INSTRUCTOR": {"ocupacion": 0,  "clases": 0, "localesEnLima": 0, "dobleteos": 0, "horariosNoPrime": 0, "participacionEventos": false, "lineamientos": false},
		"AMBASSADOR": {"ocupacion": 70, "clases": 8, "localesEnLima": 1, "dobleteos": 0, "horariosNoPrime": 0, "participacionEventos": false, "lineamientos": true}
	},
	"paymentParameters": {
		"INSTRUCTOR": {
			"cuotaFija": "20", "minimoGarantizado": "40", "tarifaFullHouse": "5", "maximo": "0",
			"tarifas": [{"numeroReservas": 10, "tarifa": "3"}, {"numeroReservas": 20, "tarifa": "3.5"}]
		},
		"AMBASSADOR": {
			"cuotaFija": "25", "minimoGarantizado": "45", "tarifaFullHouse": "5.5", "maximo": "0",
			"tarifas": [{"numeroReservas": 10, "tarifa": "3.5"}, {"numeroReservas": 20, "tarifa": "4"}]
		}
	}
}`
