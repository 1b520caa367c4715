/*
store.go - Collaborator interfaces consumed by the engine

PURPOSE:
  The engine never queries a database directly. Everything it reads or
  writes goes through these interfaces, so the same calculation runs
  against SQLite in production and an in-memory store in tests.

KEY INTERFACES:
  ClassSource:        Classes of an instructor in a discipline/period
  FormulaSource:      Formula of a discipline/period
  InstructorSource:   Profile extra info and the full period graph
  DisciplineSource:   Discipline names
  CategoryStore:      Manual category lookup and computed category upsert
  NonPrimeHourPolicy: Off-peak slot classification

ABSENCE VS FAILURE:
  Lookups that may legitimately find nothing (FetchFormula,
  FetchInstructorGraph, FetchDiscipline, FindManualCategory) return
  (nil, nil). A non-nil error always means the read itself failed and
  is propagated without retry.

IMPLEMENTATIONS:
  - payroll/store/memory.go: In-memory for testing
  - store/sqlite/sqlite.go: SQLite
*/
package payroll

import "context"

type ClassSource interface {
	// FetchClasses returns the instructor's classes in one discipline and
	// period.
	FetchClasses(ctx context.Context, instructorID InstructorID, disciplineID DisciplineID, periodID PeriodID, tenantID TenantID) ([]ClassRecord, error)
}

type FormulaSource interface {
	// FetchFormula returns nil when the discipline has no formula for the
	// period.
	FetchFormula(ctx context.Context, disciplineID DisciplineID, periodID PeriodID, tenantID TenantID) (*Formula, error)
}

type InstructorSource interface {
	FetchInstructorExtraInfo(ctx context.Context, instructorID InstructorID, tenantID TenantID) (ExtraInfo, error)

	// FetchInstructorGraph returns nil when the instructor does not exist
	// for the tenant. Collections are already period-filtered; penalties
	// include inactive ones.
	FetchInstructorGraph(ctx context.Context, instructorID InstructorID, periodID PeriodID, tenantID TenantID) (*InstructorGraph, error)
}

type DisciplineSource interface {
	FetchDiscipline(ctx context.Context, disciplineID DisciplineID, tenantID TenantID) (*Discipline, error)
}

type CategoryStore interface {
	FindManualCategory(ctx context.Context, instructorID InstructorID, disciplineID DisciplineID, periodID PeriodID, tenantID TenantID) (*InstructorCategory, error)

	// UpsertCategory stores a computed category. Implementations must leave
	// manual rows untouched.
	UpsertCategory(ctx context.Context, c InstructorCategory) error
}

// Store bundles every data collaborator.
type Store interface {
	ClassSource
	FormulaSource
	InstructorSource
	DisciplineSource
	CategoryStore
}

// NonPrimeHourPolicy classifies studio time slots as off-peak. Only the
// disciplines it applies to count non-prime hours at all.
type NonPrimeHourPolicy interface {
	AppliesTo(disciplineName string) bool
	IsNonPrimeHour(studio string, hhmm string) bool
}

// NoNonPrimeHours is a policy that never applies.
type NoNonPrimeHours struct{}

func (NoNonPrimeHours) AppliesTo(string) bool              { return false }
func (NoNonPrimeHours) IsNonPrimeHour(string, string) bool { return false }
