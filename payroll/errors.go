/*
errors.go - Centralized error types for the payment engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify failures with errors.Is against the sentinels, or
  errors.As against the structured types for the details.

ERROR CATEGORIES:
  1. Fatal for the instructor - InstructorNotFound
  2. Skippable for the instructor - NoClasses (batch marks it "skipped")
  3. Per discipline - MissingFormula (discipline excluded, calculation
     continues) and MissingTariff (calculation aborts, never a silent zero)
  4. Storage boundary - InvalidFormula (stored document failed validation)

SEE ALSO:
  - calculator.go: Raises and wraps these errors
  - api/handlers.go: Maps them to HTTP statuses
*/
package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInstructorNotFound is returned when the instructor does not exist
	// for the tenant.
	ErrInstructorNotFound = errors.New("instructor not found")

	// ErrNoClasses is returned when the instructor taught nothing in the
	// period. A payment cannot be computed from nothing.
	ErrNoClasses = errors.New("instructor has no classes in period")

	// ErrMissingFormula marks a discipline without a formula for the period.
	ErrMissingFormula = errors.New("formula not found")

	// ErrMissingTariff is returned when a category has no payment
	// parameters in the formula.
	ErrMissingTariff = errors.New("category has no tariff table")

	// ErrInvalidFormula is returned when a stored formula fails validation.
	ErrInvalidFormula = errors.New("invalid formula")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

type InstructorNotFoundError struct {
	InstructorID InstructorID
	TenantID     TenantID
}

func (e *InstructorNotFoundError) Error() string {
	return fmt.Sprintf("instructor %s not found for tenant %s", e.InstructorID, e.TenantID)
}

func (e *InstructorNotFoundError) Unwrap() error { return ErrInstructorNotFound }

type NoClassesError struct {
	InstructorID InstructorID
	PeriodID     PeriodID
}

func (e *NoClassesError) Error() string {
	return fmt.Sprintf("instructor %s has no classes in period %s", e.InstructorID, e.PeriodID)
}

func (e *NoClassesError) Unwrap() error { return ErrNoClasses }

type MissingFormulaError struct {
	DisciplineID DisciplineID
	PeriodID     PeriodID
	TenantID     TenantID
}

func (e *MissingFormulaError) Error() string {
	return fmt.Sprintf("no formula for discipline %s in period %s", e.DisciplineID, e.PeriodID)
}

func (e *MissingFormulaError) Unwrap() error { return ErrMissingFormula }

// MissingTariffError means a class cannot be priced. Charging zero instead
// would be indistinguishable from a legitimately free class.
type MissingTariffError struct {
	FormulaID    FormulaID
	DisciplineID DisciplineID
	Category     Category
}

func (e *MissingTariffError) Error() string {
	return fmt.Sprintf("formula %s (discipline %s) has no tariff for category %s",
		e.FormulaID, e.DisciplineID, e.Category)
}

func (e *MissingTariffError) Unwrap() error { return ErrMissingTariff }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing instructor.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrInstructorNotFound)
}

// IsSkippable returns true for errors a batch should record as "skipped"
// rather than as a failure.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrNoClasses)
}

// IsClientError returns true if the error comes from data the caller can
// fix (configuration or input), not from the system.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNoClasses) ||
		errors.Is(err, ErrMissingTariff) ||
		errors.Is(err, ErrInvalidFormula)
}
