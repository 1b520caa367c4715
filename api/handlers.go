/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the payroll engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to payroll.Calculator.

ENDPOINTS:
  Payments:
    POST   /api/payments/calculate     Calculate one instructor's payment
    POST   /api/payments/batch         Calculate and store a period
    GET    /api/payments?period_id=    Stored payments of a period

  Categories:
    GET    /api/instructors/{id}/categories/{disciplineID}?period_id=
                                       Resolve (manual or computed)
    PUT    /api/instructors/{id}/categories/{disciplineID}
                                       Set a manual category
    DELETE /api/instructors/{id}/categories/{disciplineID}?period_id=
                                       Clear a manual category

  Formulas:
    PUT    /api/formulas               Create or replace a formula
    GET    /api/formulas/{disciplineID}/{periodID}

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    POST   /api/scenarios/load         Load a demo scenario

TENANCY:
  The tenant is taken from the X-Tenant-ID header, "default" when absent.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Instructor, formula or category not found
  - 422: No classes in the period, missing tariff, invalid stored formula
  - 500: Internal errors

CONCURRENCY:
  Calculations are serialised per handler because the category upsert of
  one (instructor, discipline, period) is not isolated.

SEE ALSO:
  - dto.go: Request/response data structures
  - batch.go: Batch runner
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/warp/studio-payroll/factory"
	"github.com/warp/studio-payroll/payroll"
	"github.com/warp/studio-payroll/store/sqlite"
)

const (
	tenantHeader  = "X-Tenant-ID"
	defaultTenant = "default"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Calculator *payroll.Calculator
	Formulas   *factory.FormulaFactory
	Batch      *BatchRunner

	validate *validator.Validate

	// calcMu serialises calculations and category resolutions.
	calcMu sync.Mutex

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store and calculator.
func NewHandler(store *sqlite.Store, calc *payroll.Calculator) *Handler {
	return &Handler{
		Store:      store,
		Calculator: calc,
		Formulas:   factory.NewFormulaFactory(),
		Batch:      NewBatchRunner(calc, store),
		validate:   validator.New(),
	}
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// CalculatePayment computes one instructor's payment without storing it.
// POST /api/payments/calculate
func (h *Handler) CalculatePayment(w http.ResponseWriter, r *http.Request) {
	var req CalculatePaymentRequest
	if err := h.decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.calcMu.Lock()
	data, err := h.Calculator.CalculateInstructorPayment(r.Context(),
		payroll.InstructorID(req.InstructorID), payroll.PeriodID(req.PeriodID), tenantFrom(r))
	h.calcMu.Unlock()
	if err != nil {
		writeError(w, statusFor(err), "Failed to calculate payment", err)
		return
	}

	writeJSON(w, http.StatusOK, ToPaymentCalculationDTO(data))
}

// RunBatch calculates a period for several instructors and stores the
// results. An empty instructor list means every instructor of the tenant.
// POST /api/payments/batch
func (h *Handler) RunBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := h.decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	tenantID := tenantFrom(r)

	ids := make([]payroll.InstructorID, 0, len(req.InstructorIDs))
	for _, id := range req.InstructorIDs {
		ids = append(ids, payroll.InstructorID(id))
	}
	if len(ids) == 0 {
		instructors, err := h.Store.ListInstructors(ctx, tenantID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list instructors", err)
			return
		}
		for _, i := range instructors {
			ids = append(ids, i.ID)
		}
	}

	h.calcMu.Lock()
	result, err := h.Batch.Run(ctx, tenantID, payroll.PeriodID(req.PeriodID), ids)
	h.calcMu.Unlock()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Batch interrupted", err)
		return
	}

	writeJSON(w, http.StatusOK, toBatchResultDTO(result))
}

// ListPayments returns the stored payments of a period.
// GET /api/payments?period_id=
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	periodID := r.URL.Query().Get("period_id")
	if periodID == "" {
		writeError(w, http.StatusBadRequest, "period_id is required", nil)
		return
	}

	payments, err := h.Store.ListPayments(r.Context(), tenantFrom(r), payroll.PeriodID(periodID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentRecordDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentRecordDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CATEGORY HANDLERS
// =============================================================================

// GetCategory resolves the category of an instructor in a discipline. A
// computed category is recalculated and stored on every call.
// GET /api/instructors/{id}/categories/{disciplineID}?period_id=
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	instructorID := payroll.InstructorID(chi.URLParam(r, "id"))
	disciplineID := payroll.DisciplineID(chi.URLParam(r, "disciplineID"))
	periodID := payroll.PeriodID(r.URL.Query().Get("period_id"))
	if periodID == "" {
		writeError(w, http.StatusBadRequest, "period_id is required", nil)
		return
	}

	ctx := r.Context()
	tenantID := tenantFrom(r)
	trail := payroll.NewTrail()

	h.calcMu.Lock()
	category, err := h.Calculator.Resolver.Resolve(ctx, instructorID, disciplineID, periodID, tenantID, trail)
	h.calcMu.Unlock()
	if err != nil {
		writeError(w, statusFor(err), "Failed to resolve category", err)
		return
	}

	stored, err := h.Store.GetCategory(ctx, instructorID, disciplineID, periodID, tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get category", err)
		return
	}

	dto := CategoryDTO{
		InstructorID: string(instructorID),
		DisciplineID: string(disciplineID),
		PeriodID:     string(periodID),
		Category:     string(category),
	}
	if stored != nil {
		dto = toCategoryDTO(*stored)
	}
	dto.Log = trail.Lines()
	writeJSON(w, http.StatusOK, dto)
}

// SetCategory stores a manual category, which takes precedence over any
// computed one until cleared.
// PUT /api/instructors/{id}/categories/{disciplineID}
func (h *Handler) SetCategory(w http.ResponseWriter, r *http.Request) {
	var req SetCategoryRequest
	if err := h.decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	category, ok := payroll.ParseCategory(req.Category)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown category: %s", req.Category), nil)
		return
	}

	c := payroll.InstructorCategory{
		ID:           uuid.NewString(),
		InstructorID: payroll.InstructorID(chi.URLParam(r, "id")),
		DisciplineID: payroll.DisciplineID(chi.URLParam(r, "disciplineID")),
		PeriodID:     payroll.PeriodID(req.PeriodID),
		TenantID:     tenantFrom(r),
		Category:     category,
		IsManual:     true,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := h.Store.SetManualCategory(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to set category", err)
		return
	}

	stored, err := h.Store.GetCategory(r.Context(), c.InstructorID, c.DisciplineID, c.PeriodID, c.TenantID)
	if err != nil || stored == nil {
		writeError(w, http.StatusInternalServerError, "Failed to read back category", err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(*stored))
}

// ClearCategory removes a manual category.
// DELETE /api/instructors/{id}/categories/{disciplineID}?period_id=
func (h *Handler) ClearCategory(w http.ResponseWriter, r *http.Request) {
	periodID := payroll.PeriodID(r.URL.Query().Get("period_id"))
	if periodID == "" {
		writeError(w, http.StatusBadRequest, "period_id is required", nil)
		return
	}

	cleared, err := h.Store.ClearManualCategory(r.Context(),
		payroll.InstructorID(chi.URLParam(r, "id")),
		payroll.DisciplineID(chi.URLParam(r, "disciplineID")),
		periodID, tenantFrom(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear category", err)
		return
	}
	if !cleared {
		writeError(w, http.StatusNotFound, "No manual category set", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// FORMULA HANDLERS
// =============================================================================

// PutFormula creates or replaces the formula of a discipline and period.
// PUT /api/formulas
func (h *Handler) PutFormula(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	formula, err := h.Formulas.ParseFormula(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid formula", err)
		return
	}

	tenantID := tenantFrom(r)
	if formula.TenantID == "" {
		formula.TenantID = tenantID
	} else if formula.TenantID != tenantID {
		writeError(w, http.StatusBadRequest, "tenant_id does not match "+tenantHeader, nil)
		return
	}
	if formula.ID == "" {
		formula.ID = payroll.FormulaID(uuid.NewString())
	}

	if err := h.Store.SaveFormula(r.Context(), *formula); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save formula", err)
		return
	}

	stored, err := h.Store.FetchFormula(r.Context(), formula.DisciplineID, formula.PeriodID, tenantID)
	if err != nil || stored == nil {
		writeError(w, http.StatusInternalServerError, "Failed to read back formula", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.ToJSON(*stored))
}

// GetFormula returns the formula of a discipline and period.
// GET /api/formulas/{disciplineID}/{periodID}
func (h *Handler) GetFormula(w http.ResponseWriter, r *http.Request) {
	formula, err := h.Store.FetchFormula(r.Context(),
		payroll.DisciplineID(chi.URLParam(r, "disciplineID")),
		payroll.PeriodID(chi.URLParam(r, "periodID")),
		tenantFrom(r))
	if err != nil {
		writeError(w, statusFor(err), "Failed to get formula", err)
		return
	}
	if formula == nil {
		writeError(w, http.StatusNotFound, "Formula not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, factory.ToJSON(*formula))
}

// =============================================================================
// HELPERS
// =============================================================================

func tenantFrom(r *http.Request) payroll.TenantID {
	if t := r.Header.Get(tenantHeader); t != "" {
		return payroll.TenantID(t)
	}
	return defaultTenant
}

// decodeRequest decodes a JSON body and validates its struct tags.
func (h *Handler) decodeRequest(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}

// statusFor maps engine errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case payroll.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, payroll.ErrNoClasses),
		errors.Is(err, payroll.ErrMissingTariff),
		errors.Is(err, payroll.ErrInvalidFormula):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
