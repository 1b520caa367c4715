/*
Package sqlite provides a SQLite-backed implementation of the payroll
collaborator interfaces.

PURPOSE:
  Implements payroll.Store (classes, formulas, instructors, disciplines,
  categories) plus the seeding methods and payment records used by the
  API and CLI. In production the same patterns apply to PostgreSQL with
  minor dialect differences.

INTERFACES IMPLEMENTED:
  payroll.ClassSource, payroll.FormulaSource, payroll.InstructorSource,
  payroll.DisciplineSource, payroll.CategoryStore

KEY TABLES:
  instructors:           Instructor profile + extra info JSON
  disciplines:           Discipline names per tenant
  classes:               Taught classes
  formulas:              One per (discipline, period, tenant), JSON blobs
  instructor_categories: One per (instructor, discipline, period, tenant)
  penalties, covers, brandings, theme_rides, workshops: period inputs
  payments:              Calculated payments, one per instructor+period

FORMULA VALIDATION:
  Formula blobs are decoded through factory.FormulaFactory on every read.
  A malformed row surfaces as payroll.ErrInvalidFormula.

MANUAL CATEGORIES:
  UpsertCategory uses ON CONFLICT ... DO UPDATE ... WHERE is_manual = 0,
  so a computed category can never replace a manual one. Manual rows are
  written with SetManualCategory and removed with ClearManualCategory.

DATES:
  Stored as RFC3339. A class date that fails to parse is loaded as the
  zero time, which the engine treats as "invalid, skip".

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  calc := payroll.NewCalculator(store, policy, cfg)

SEE ALSO:
  - payroll/store.go: Interface definitions
  - payroll/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/studio-payroll/factory"
	"github.com/warp/studio-payroll/payroll"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db       *sql.DB
	mu       sync.RWMutex
	formulas *factory.FormulaFactory
}

var _ payroll.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, formulas: factory.NewFormulaFactory()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS instructors (
		id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		extra_info_json TEXT,
		created_at TEXT NOT NULL,
		PRIMARY KEY (id, tenant_id)
	);

	CREATE TABLE IF NOT EXISTS disciplines (
		id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (id, tenant_id)
	);

	CREATE TABLE IF NOT EXISTS classes (
		id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		instructor_id TEXT NOT NULL,
		discipline_id TEXT NOT NULL,
		period_id TEXT NOT NULL,
		date TEXT NOT NULL,
		studio TEXT,
		room TEXT,
		spots INTEGER NOT NULL DEFAULT 0,
		total_reservations INTEGER NOT NULL DEFAULT 0,
		special_text TEXT,
		is_versus BOOLEAN NOT NULL DEFAULT FALSE,
		versus_number INTEGER,
		PRIMARY KEY (id, tenant_id)
	);

	-- Hot path: classes of one instructor in one period
	CREATE INDEX IF NOT EXISTS idx_classes_instructor_period
		ON classes(tenant_id, instructor_id, period_id, discipline_id);

	CREATE TABLE IF NOT EXISTS formulas (
		id TEXT PRIMARY KEY,
		discipline_id TEXT NOT NULL,
		period_id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		requirements_json TEXT NOT NULL,
		parameters_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(discipline_id, period_id, tenant_id)
	);

	CREATE TABLE IF NOT EXISTS instructor_categories (
		id TEXT PRIMARY KEY,
		instructor_id TEXT NOT NULL,
		discipline_id TEXT NOT NULL,
		period_id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		category TEXT NOT NULL,
		is_manual BOOLEAN NOT NULL DEFAULT FALSE,
		metrics_json TEXT,
		updated_at TEXT NOT NULL,
		UNIQUE(instructor_id, discipline_id, period_id, tenant_id)
	);

	CREATE TABLE IF NOT EXISTS penalties (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		instructor_id TEXT NOT NULL,
		period_id TEXT NOT NULL,
		discipline_id TEXT,
		points INTEGER NOT NULL,
		type TEXT NOT NULL,
		description TEXT,
		applied_at TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE INDEX IF NOT EXISTS idx_penalties_instructor_period
		ON penalties(tenant_id, instructor_id, period_id);

	CREATE TABLE IF NOT EXISTS covers (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		original_instructor_id TEXT NOT NULL,
		replacement_instructor_id TEXT NOT NULL,
		period_id TEXT NOT NULL,
		class_id TEXT,
		bonus_payment BOOLEAN NOT NULL DEFAULT FALSE,
		justification TEXT NOT NULL DEFAULT 'PENDING'
	);

	CREATE INDEX IF NOT EXISTS idx_covers_replacement_period
		ON covers(tenant_id, replacement_instructor_id, period_id);

	CREATE TABLE IF NOT EXISTS brandings (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		instructor_id TEXT NOT NULL,
		period_id TEXT NOT NULL,
		number INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS theme_rides (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		instructor_id TEXT NOT NULL,
		period_id TEXT NOT NULL,
		number INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS workshops (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		instructor_id TEXT NOT NULL,
		period_id TEXT NOT NULL,
		name TEXT,
		payment TEXT NOT NULL DEFAULT '0'
	);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		instructor_id TEXT NOT NULL,
		period_id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		base_amount TEXT NOT NULL,
		bonuses TEXT NOT NULL,
		retention TEXT NOT NULL,
		penalty_discount_percent INTEGER NOT NULL DEFAULT 0,
		final_payment TEXT NOT NULL,
		status TEXT NOT NULL,
		calculation_json TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(instructor_id, period_id, tenant_id)
	);

	CREATE INDEX IF NOT EXISTS idx_payments_period
		ON payments(tenant_id, period_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset deletes every row. Used by demo scenarios.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"payments", "workshops", "theme_rides", "brandings", "covers", "penalties",
		"instructor_categories", "formulas", "classes", "disciplines", "instructors",
	}
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("failed to reset %s: %w", t, err)
		}
	}
	return nil
}

// =============================================================================
// CLASSES (payroll.ClassSource)
// =============================================================================

// SaveClass inserts or replaces a class.
func (s *Store) SaveClass(ctx context.Context, tenantID payroll.TenantID, c payroll.ClassRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO classes
		(id, tenant_id, instructor_id, discipline_id, period_id, date, studio, room,
		 spots, total_reservations, special_text, is_versus, versus_number)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			instructor_id = excluded.instructor_id,
			discipline_id = excluded.discipline_id,
			period_id = excluded.period_id,
			date = excluded.date,
			studio = excluded.studio,
			room = excluded.room,
			spots = excluded.spots,
			total_reservations = excluded.total_reservations,
			special_text = excluded.special_text,
			is_versus = excluded.is_versus,
			versus_number = excluded.versus_number
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, tenantID, c.InstructorID, c.DisciplineID, c.PeriodID,
		formatTime(c.Date), c.Studio, c.Room, c.Spots, c.TotalReservations,
		c.SpecialText, c.IsVersus, nullInt(c.VersusNumber),
	)
	if err != nil {
		return fmt.Errorf("failed to save class: %w", err)
	}
	return nil
}

// FetchClasses returns the classes of one instructor in one discipline and
// period.
func (s *Store) FetchClasses(ctx context.Context, instructorID payroll.InstructorID, disciplineID payroll.DisciplineID, periodID payroll.PeriodID, tenantID payroll.TenantID) ([]payroll.ClassRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := classSelect + `
		WHERE tenant_id = ? AND instructor_id = ? AND discipline_id = ? AND period_id = ?
		ORDER BY date ASC, id ASC
	`
	return s.queryClasses(ctx, query, tenantID, instructorID, disciplineID, periodID)
}

const classSelect = `
	SELECT id, instructor_id, discipline_id, period_id, date, studio, room,
	       spots, total_reservations, special_text, is_versus, versus_number
	FROM classes`

func (s *Store) queryClasses(ctx context.Context, query string, args ...any) ([]payroll.ClassRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query classes: %w", err)
	}
	defer rows.Close()

	var classes []payroll.ClassRecord
	for rows.Next() {
		var (
			c            payroll.ClassRecord
			date         string
			studio       sql.NullString
			room         sql.NullString
			specialText  sql.NullString
			versusNumber sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.InstructorID, &c.DisciplineID, &c.PeriodID, &date,
			&studio, &room, &c.Spots, &c.TotalReservations, &specialText,
			&c.IsVersus, &versusNumber); err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		c.Date = parseTime(date)
		c.Studio = studio.String
		c.Room = room.String
		c.SpecialText = specialText.String
		c.VersusNumber = int(versusNumber.Int64)
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// =============================================================================
// FORMULAS (payroll.FormulaSource)
// =============================================================================

// SaveFormula inserts or replaces the formula of (discipline, period, tenant).
func (s *Store) SaveFormula(ctx context.Context, f payroll.Formula) error {
	requirementsJSON, parametersJSON, err := factory.MarshalBlobs(f)
	if err != nil {
		return fmt.Errorf("failed to encode formula: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO formulas
		(id, discipline_id, period_id, tenant_id, requirements_json, parameters_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(discipline_id, period_id, tenant_id) DO UPDATE SET
			requirements_json = excluded.requirements_json,
			parameters_json = excluded.parameters_json,
			updated_at = excluded.updated_at
	`
	now := formatTime(time.Now().UTC())
	_, err = s.db.ExecContext(ctx, query,
		f.ID, f.DisciplineID, f.PeriodID, f.TenantID,
		string(requirementsJSON), string(parametersJSON), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save formula: %w", err)
	}
	return nil
}

// FetchFormula returns the formula of (discipline, period, tenant), or nil.
func (s *Store) FetchFormula(ctx context.Context, disciplineID payroll.DisciplineID, periodID payroll.PeriodID, tenantID payroll.TenantID) (*payroll.Formula, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		id               string
		requirementsJSON string
		parametersJSON   string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, requirements_json, parameters_json FROM formulas
		WHERE discipline_id = ? AND period_id = ? AND tenant_id = ?`,
		disciplineID, periodID, tenantID,
	).Scan(&id, &requirementsJSON, &parametersJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query formula: %w", err)
	}

	requirements, parameters, err := s.formulas.ParseBlobs([]byte(requirementsJSON), []byte(parametersJSON))
	if err != nil {
		return nil, fmt.Errorf("formula %s: %w", id, err)
	}
	return &payroll.Formula{
		ID:           payroll.FormulaID(id),
		DisciplineID: disciplineID,
		PeriodID:     periodID,
		TenantID:     tenantID,
		Requirements: requirements,
		Parameters:   parameters,
	}, nil
}

// =============================================================================
// INSTRUCTORS AND DISCIPLINES
// =============================================================================

// SaveInstructor inserts or updates an instructor.
func (s *Store) SaveInstructor(ctx context.Context, i payroll.Instructor) error {
	extraJSON, err := json.Marshal(i.ExtraInfo)
	if err != nil {
		return fmt.Errorf("failed to encode extra info: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO instructors (id, tenant_id, name, extra_info_json, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			name = excluded.name,
			extra_info_json = excluded.extra_info_json
	`
	_, err = s.db.ExecContext(ctx, query,
		i.ID, i.TenantID, i.Name, string(extraJSON), formatTime(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("failed to save instructor: %w", err)
	}
	return nil
}

// ListInstructors returns the instructors of a tenant ordered by name.
func (s *Store) ListInstructors(ctx context.Context, tenantID payroll.TenantID) ([]payroll.Instructor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, tenant_id, name, extra_info_json FROM instructors WHERE tenant_id = ? ORDER BY name",
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list instructors: %w", err)
	}
	defer rows.Close()

	var instructors []payroll.Instructor
	for rows.Next() {
		var (
			i         payroll.Instructor
			extraJSON sql.NullString
		)
		if err := rows.Scan(&i.ID, &i.TenantID, &i.Name, &extraJSON); err != nil {
			return nil, fmt.Errorf("failed to scan instructor: %w", err)
		}
		if i.ExtraInfo, err = parseExtraInfo(extraJSON); err != nil {
			return nil, fmt.Errorf("instructor %s has invalid extra info: %w", i.ID, err)
		}
		instructors = append(instructors, i)
	}
	return instructors, rows.Err()
}

func (s *Store) getInstructor(ctx context.Context, instructorID payroll.InstructorID, tenantID payroll.TenantID) (*payroll.Instructor, error) {
	var (
		i         payroll.Instructor
		extraJSON sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, tenant_id, name, extra_info_json FROM instructors WHERE id = ? AND tenant_id = ?",
		instructorID, tenantID,
	).Scan(&i.ID, &i.TenantID, &i.Name, &extraJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query instructor: %w", err)
	}
	if i.ExtraInfo, err = parseExtraInfo(extraJSON); err != nil {
		return nil, fmt.Errorf("instructor %s has invalid extra info: %w", i.ID, err)
	}
	return &i, nil
}

// FetchInstructorExtraInfo returns the profile flags of an instructor within
// a tenant. Unknown instructors have no flags recorded.
func (s *Store) FetchInstructorExtraInfo(ctx context.Context, instructorID payroll.InstructorID, tenantID payroll.TenantID) (payroll.ExtraInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var extraJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT extra_info_json FROM instructors WHERE id = ? AND tenant_id = ?", instructorID, tenantID,
	).Scan(&extraJSON)
	if err == sql.ErrNoRows {
		return payroll.ExtraInfo{}, nil
	}
	if err != nil {
		return payroll.ExtraInfo{}, fmt.Errorf("failed to query instructor extra info: %w", err)
	}
	extra, err := parseExtraInfo(extraJSON)
	if err != nil {
		return payroll.ExtraInfo{}, fmt.Errorf("instructor %s has invalid extra info: %w", instructorID, err)
	}
	return extra, nil
}

// SaveDiscipline inserts or renames a discipline.
func (s *Store) SaveDiscipline(ctx context.Context, d payroll.Discipline) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO disciplines (id, tenant_id, name) VALUES (?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET name = excluded.name`,
		d.ID, d.TenantID, d.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to save discipline: %w", err)
	}
	return nil
}

// FetchDiscipline returns a discipline, or nil.
func (s *Store) FetchDiscipline(ctx context.Context, disciplineID payroll.DisciplineID, tenantID payroll.TenantID) (*payroll.Discipline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var d payroll.Discipline
	err := s.db.QueryRowContext(ctx,
		"SELECT id, tenant_id, name FROM disciplines WHERE id = ? AND tenant_id = ?",
		disciplineID, tenantID,
	).Scan(&d.ID, &d.TenantID, &d.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query discipline: %w", err)
	}
	return &d, nil
}

func (s *Store) listDisciplines(ctx context.Context, tenantID payroll.TenantID) (map[payroll.DisciplineID]payroll.Discipline, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, tenant_id, name FROM disciplines WHERE tenant_id = ?", tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list disciplines: %w", err)
	}
	defer rows.Close()

	disciplines := make(map[payroll.DisciplineID]payroll.Discipline)
	for rows.Next() {
		var d payroll.Discipline
		if err := rows.Scan(&d.ID, &d.TenantID, &d.Name); err != nil {
			return nil, fmt.Errorf("failed to scan discipline: %w", err)
		}
		disciplines[d.ID] = d
	}
	return disciplines, rows.Err()
}

// =============================================================================
// INSTRUCTOR GRAPH (payroll.InstructorSource)
// =============================================================================

// FetchInstructorGraph loads everything one payment calculation reads.
// Returns nil when the instructor does not exist for the tenant.
func (s *Store) FetchInstructorGraph(ctx context.Context, instructorID payroll.InstructorID, periodID payroll.PeriodID, tenantID payroll.TenantID) (*payroll.InstructorGraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instructor, err := s.getInstructor(ctx, instructorID, tenantID)
	if err != nil || instructor == nil {
		return nil, err
	}

	g := &payroll.InstructorGraph{Instructor: *instructor}

	g.Classes, err = s.queryClasses(ctx, classSelect+`
		WHERE tenant_id = ? AND instructor_id = ? AND period_id = ?
		ORDER BY date ASC, id ASC`,
		tenantID, instructorID, periodID)
	if err != nil {
		return nil, err
	}

	g.Disciplines, err = s.listDisciplines(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if g.Penalties, err = s.queryPenalties(ctx, tenantID, instructorID, periodID); err != nil {
		return nil, err
	}
	if g.Categories, err = s.queryCategories(ctx, tenantID, instructorID, periodID); err != nil {
		return nil, err
	}
	if g.CoversAsReplacement, err = s.queryCovers(ctx, tenantID, instructorID, periodID); err != nil {
		return nil, err
	}
	if g.Brandings, err = s.queryBrandings(ctx, tenantID, instructorID, periodID); err != nil {
		return nil, err
	}
	if g.ThemeRides, err = s.queryThemeRides(ctx, tenantID, instructorID, periodID); err != nil {
		return nil, err
	}
	if g.Workshops, err = s.queryWorkshops(ctx, tenantID, instructorID, periodID); err != nil {
		return nil, err
	}
	return g, nil
}

// =============================================================================
// CATEGORIES (payroll.CategoryStore)
// =============================================================================

// FindManualCategory returns the manual category of a triple, or nil.
func (s *Store) FindManualCategory(ctx context.Context, instructorID payroll.InstructorID, disciplineID payroll.DisciplineID, periodID payroll.PeriodID, tenantID payroll.TenantID) (*payroll.InstructorCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.getCategory(ctx, instructorID, disciplineID, periodID, tenantID)
	if err != nil || c == nil || !c.IsManual {
		return nil, err
	}
	return c, nil
}

// GetCategory returns the stored category of a triple, manual or not.
func (s *Store) GetCategory(ctx context.Context, instructorID payroll.InstructorID, disciplineID payroll.DisciplineID, periodID payroll.PeriodID, tenantID payroll.TenantID) (*payroll.InstructorCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getCategory(ctx, instructorID, disciplineID, periodID, tenantID)
}

func (s *Store) getCategory(ctx context.Context, instructorID payroll.InstructorID, disciplineID payroll.DisciplineID, periodID payroll.PeriodID, tenantID payroll.TenantID) (*payroll.InstructorCategory, error) {
	rows, err := s.db.QueryContext(ctx, categorySelect+`
		WHERE instructor_id = ? AND discipline_id = ? AND period_id = ? AND tenant_id = ?`,
		instructorID, disciplineID, periodID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	defer rows.Close()

	categories, err := scanCategories(rows)
	if err != nil || len(categories) == 0 {
		return nil, err
	}
	return &categories[0], nil
}

// UpsertCategory stores a computed category. Rows with is_manual = 1 are
// left untouched; an existing row keeps its ID.
func (s *Store) UpsertCategory(ctx context.Context, c payroll.InstructorCategory) error {
	metricsJSON, err := json.Marshal(c.Metrics)
	if err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO instructor_categories
		(id, instructor_id, discipline_id, period_id, tenant_id, category, is_manual, metrics_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, FALSE, ?, ?)
		ON CONFLICT(instructor_id, discipline_id, period_id, tenant_id) DO UPDATE SET
			category = excluded.category,
			metrics_json = excluded.metrics_json,
			updated_at = excluded.updated_at
		WHERE instructor_categories.is_manual = FALSE
	`
	_, err = s.db.ExecContext(ctx, query,
		c.ID, c.InstructorID, c.DisciplineID, c.PeriodID, c.TenantID,
		c.Category, string(metricsJSON), formatTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert category: %w", err)
	}
	return nil
}

// SetManualCategory writes a manual category, replacing any computed one.
func (s *Store) SetManualCategory(ctx context.Context, c payroll.InstructorCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO instructor_categories
		(id, instructor_id, discipline_id, period_id, tenant_id, category, is_manual, metrics_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, TRUE, NULL, ?)
		ON CONFLICT(instructor_id, discipline_id, period_id, tenant_id) DO UPDATE SET
			category = excluded.category,
			is_manual = TRUE,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.InstructorID, c.DisciplineID, c.PeriodID, c.TenantID,
		c.Category, formatTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to set manual category: %w", err)
	}
	return nil
}

// ClearManualCategory deletes a manual category so the next resolution
// recomputes it. Computed rows are not affected.
func (s *Store) ClearManualCategory(ctx context.Context, instructorID payroll.InstructorID, disciplineID payroll.DisciplineID, periodID payroll.PeriodID, tenantID payroll.TenantID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM instructor_categories
		WHERE instructor_id = ? AND discipline_id = ? AND period_id = ? AND tenant_id = ? AND is_manual = TRUE`,
		instructorID, disciplineID, periodID, tenantID)
	if err != nil {
		return false, fmt.Errorf("failed to clear manual category: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

const categorySelect = `
	SELECT id, instructor_id, discipline_id, period_id, tenant_id, category,
	       is_manual, metrics_json, updated_at
	FROM instructor_categories`

func (s *Store) queryCategories(ctx context.Context, tenantID payroll.TenantID, instructorID payroll.InstructorID, periodID payroll.PeriodID) ([]payroll.InstructorCategory, error) {
	rows, err := s.db.QueryContext(ctx, categorySelect+`
		WHERE tenant_id = ? AND instructor_id = ? AND period_id = ?
		ORDER BY discipline_id`,
		tenantID, instructorID, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()
	return scanCategories(rows)
}

func scanCategories(rows *sql.Rows) ([]payroll.InstructorCategory, error) {
	var categories []payroll.InstructorCategory
	for rows.Next() {
		var (
			c           payroll.InstructorCategory
			metricsJSON sql.NullString
			updatedAt   string
		)
		if err := rows.Scan(&c.ID, &c.InstructorID, &c.DisciplineID, &c.PeriodID, &c.TenantID,
			&c.Category, &c.IsManual, &metricsJSON, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		if metricsJSON.Valid && metricsJSON.String != "" && metricsJSON.String != "null" {
			var m payroll.DisciplineMetrics
			if err := json.Unmarshal([]byte(metricsJSON.String), &m); err != nil {
				return nil, fmt.Errorf("failed to decode metrics of category %s: %w", c.ID, err)
			}
			c.Metrics = &m
		}
		c.UpdatedAt = parseTime(updatedAt)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// =============================================================================
// PENALTIES AND BONUS RECORDS
// =============================================================================

// SavePenalty inserts or replaces a penalty.
func (s *Store) SavePenalty(ctx context.Context, tenantID payroll.TenantID, p payroll.Penalty) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var disciplineID any
	if p.DisciplineID != nil {
		disciplineID = string(*p.DisciplineID)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO penalties
		(id, tenant_id, instructor_id, period_id, discipline_id, points, type, description, applied_at, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, tenantID, p.InstructorID, p.PeriodID, disciplineID, p.Points,
		p.Type, p.Description, formatTime(p.AppliedAt), p.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to save penalty: %w", err)
	}
	return nil
}

func (s *Store) queryPenalties(ctx context.Context, tenantID payroll.TenantID, instructorID payroll.InstructorID, periodID payroll.PeriodID) ([]payroll.Penalty, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, instructor_id, period_id, discipline_id, points, type, description, applied_at, active
		FROM penalties
		WHERE tenant_id = ? AND instructor_id = ? AND period_id = ?
		ORDER BY applied_at ASC, id ASC`,
		tenantID, instructorID, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query penalties: %w", err)
	}
	defer rows.Close()

	var penalties []payroll.Penalty
	for rows.Next() {
		var (
			p            payroll.Penalty
			disciplineID sql.NullString
			description  sql.NullString
			appliedAt    string
		)
		if err := rows.Scan(&p.ID, &p.InstructorID, &p.PeriodID, &disciplineID, &p.Points,
			&p.Type, &description, &appliedAt, &p.Active); err != nil {
			return nil, fmt.Errorf("failed to scan penalty: %w", err)
		}
		if disciplineID.Valid {
			id := payroll.DisciplineID(disciplineID.String)
			p.DisciplineID = &id
		}
		p.Description = description.String
		p.AppliedAt = parseTime(appliedAt)
		penalties = append(penalties, p)
	}
	return penalties, rows.Err()
}

// SaveCover inserts or replaces a cover.
func (s *Store) SaveCover(ctx context.Context, tenantID payroll.TenantID, c payroll.Cover) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO covers
		(id, tenant_id, original_instructor_id, replacement_instructor_id, period_id, class_id, bonus_payment, justification)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, tenantID, c.OriginalInstructorID, c.ReplacementInstructorID, c.PeriodID,
		c.ClassID, c.BonusPayment, c.Justification,
	)
	if err != nil {
		return fmt.Errorf("failed to save cover: %w", err)
	}
	return nil
}

func (s *Store) queryCovers(ctx context.Context, tenantID payroll.TenantID, instructorID payroll.InstructorID, periodID payroll.PeriodID) ([]payroll.Cover, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, original_instructor_id, replacement_instructor_id, period_id, class_id, bonus_payment, justification
		FROM covers
		WHERE tenant_id = ? AND replacement_instructor_id = ? AND period_id = ?
		ORDER BY id`,
		tenantID, instructorID, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query covers: %w", err)
	}
	defer rows.Close()

	var covers []payroll.Cover
	for rows.Next() {
		var (
			c       payroll.Cover
			classID sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.OriginalInstructorID, &c.ReplacementInstructorID, &c.PeriodID,
			&classID, &c.BonusPayment, &c.Justification); err != nil {
			return nil, fmt.Errorf("failed to scan cover: %w", err)
		}
		c.ClassID = payroll.ClassID(classID.String)
		covers = append(covers, c)
	}
	return covers, rows.Err()
}

// SaveBranding inserts or replaces a branding record.
func (s *Store) SaveBranding(ctx context.Context, tenantID payroll.TenantID, b payroll.Branding) error {
	return s.saveCounted(ctx, "brandings", tenantID, b.ID, b.InstructorID, b.PeriodID, b.Number)
}

// SaveThemeRide inserts or replaces a theme ride record.
func (s *Store) SaveThemeRide(ctx context.Context, tenantID payroll.TenantID, r payroll.ThemeRide) error {
	return s.saveCounted(ctx, "theme_rides", tenantID, r.ID, r.InstructorID, r.PeriodID, r.Number)
}

func (s *Store) saveCounted(ctx context.Context, table string, tenantID payroll.TenantID, id string, instructorID payroll.InstructorID, periodID payroll.PeriodID, number int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO "+table+" (id, tenant_id, instructor_id, period_id, number) VALUES (?, ?, ?, ?, ?)",
		id, tenantID, instructorID, periodID, number,
	)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", table, err)
	}
	return nil
}

type countedRow struct {
	id           string
	instructorID payroll.InstructorID
	periodID     payroll.PeriodID
	number       int
}

func (s *Store) queryCounted(ctx context.Context, table string, tenantID payroll.TenantID, instructorID payroll.InstructorID, periodID payroll.PeriodID) ([]countedRow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, instructor_id, period_id, number FROM "+table+
			" WHERE tenant_id = ? AND instructor_id = ? AND period_id = ? ORDER BY id",
		tenantID, instructorID, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var out []countedRow
	for rows.Next() {
		var r countedRow
		if err := rows.Scan(&r.id, &r.instructorID, &r.periodID, &r.number); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) queryBrandings(ctx context.Context, tenantID payroll.TenantID, instructorID payroll.InstructorID, periodID payroll.PeriodID) ([]payroll.Branding, error) {
	rows, err := s.queryCounted(ctx, "brandings", tenantID, instructorID, periodID)
	if err != nil {
		return nil, err
	}
	var out []payroll.Branding
	for _, r := range rows {
		out = append(out, payroll.Branding{ID: r.id, InstructorID: r.instructorID, PeriodID: r.periodID, Number: r.number})
	}
	return out, nil
}

func (s *Store) queryThemeRides(ctx context.Context, tenantID payroll.TenantID, instructorID payroll.InstructorID, periodID payroll.PeriodID) ([]payroll.ThemeRide, error) {
	rows, err := s.queryCounted(ctx, "theme_rides", tenantID, instructorID, periodID)
	if err != nil {
		return nil, err
	}
	var out []payroll.ThemeRide
	for _, r := range rows {
		out = append(out, payroll.ThemeRide{ID: r.id, InstructorID: r.instructorID, PeriodID: r.periodID, Number: r.number})
	}
	return out, nil
}

// SaveWorkshop inserts or replaces a workshop.
func (s *Store) SaveWorkshop(ctx context.Context, tenantID payroll.TenantID, w payroll.Workshop) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO workshops (id, tenant_id, instructor_id, period_id, name, payment)
		VALUES (?, ?, ?, ?, ?, ?)`,
		w.ID, tenantID, w.InstructorID, w.PeriodID, w.Name, w.Payment.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to save workshop: %w", err)
	}
	return nil
}

func (s *Store) queryWorkshops(ctx context.Context, tenantID payroll.TenantID, instructorID payroll.InstructorID, periodID payroll.PeriodID) ([]payroll.Workshop, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, instructor_id, period_id, name, payment FROM workshops
		WHERE tenant_id = ? AND instructor_id = ? AND period_id = ?
		ORDER BY id`,
		tenantID, instructorID, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workshops: %w", err)
	}
	defer rows.Close()

	var workshops []payroll.Workshop
	for rows.Next() {
		var (
			w       payroll.Workshop
			name    sql.NullString
			payment string
		)
		if err := rows.Scan(&w.ID, &w.InstructorID, &w.PeriodID, &name, &payment); err != nil {
			return nil, fmt.Errorf("failed to scan workshop: %w", err)
		}
		w.Name = name.String
		w.Payment, err = decimal.NewFromString(payment)
		if err != nil {
			return nil, fmt.Errorf("workshop %s has invalid payment %q: %w", w.ID, payment, err)
		}
		workshops = append(workshops, w)
	}
	return workshops, rows.Err()
}

// =============================================================================
// PAYMENTS
// =============================================================================

type PaymentStatus string

const (
	PaymentCalculated PaymentStatus = "calculated"
	PaymentApproved   PaymentStatus = "approved"
	PaymentPaid       PaymentStatus = "paid"
)

// PaymentRecord is a stored payment calculation.
type PaymentRecord struct {
	ID                     string
	InstructorID           payroll.InstructorID
	PeriodID               payroll.PeriodID
	TenantID               payroll.TenantID
	BaseAmount             decimal.Decimal
	Bonuses                decimal.Decimal
	Retention              decimal.Decimal
	PenaltyDiscountPercent int
	FinalPayment           decimal.Decimal
	Status                 PaymentStatus
	CalculationJSON        string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// SavePayment stores the payment of an instructor for a period, replacing
// a previous calculation of the same period.
func (s *Store) SavePayment(ctx context.Context, p PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := formatTime(time.Now().UTC())
	query := `
		INSERT INTO payments
		(id, instructor_id, period_id, tenant_id, base_amount, bonuses, retention,
		 penalty_discount_percent, final_payment, status, calculation_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(instructor_id, period_id, tenant_id) DO UPDATE SET
			base_amount = excluded.base_amount,
			bonuses = excluded.bonuses,
			retention = excluded.retention,
			penalty_discount_percent = excluded.penalty_discount_percent,
			final_payment = excluded.final_payment,
			status = excluded.status,
			calculation_json = excluded.calculation_json,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.InstructorID, p.PeriodID, p.TenantID,
		p.BaseAmount.String(), p.Bonuses.String(), p.Retention.String(),
		p.PenaltyDiscountPercent, p.FinalPayment.String(), p.Status,
		p.CalculationJSON, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

// ListPayments returns the stored payments of a period.
func (s *Store) ListPayments(ctx context.Context, tenantID payroll.TenantID, periodID payroll.PeriodID) ([]PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, instructor_id, period_id, tenant_id, base_amount, bonuses, retention,
		       penalty_discount_percent, final_payment, status, calculation_json, created_at, updated_at
		FROM payments
		WHERE tenant_id = ? AND period_id = ?
		ORDER BY instructor_id`,
		tenantID, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []PaymentRecord
	for rows.Next() {
		var (
			p                               PaymentRecord
			base, bonuses, retention, final string
			calculationJSON                 sql.NullString
			createdAt, updatedAt            string
		)
		if err := rows.Scan(&p.ID, &p.InstructorID, &p.PeriodID, &p.TenantID,
			&base, &bonuses, &retention, &p.PenaltyDiscountPercent, &final,
			&p.Status, &calculationJSON, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.BaseAmount = parseAmount(base)
		p.Bonuses = parseAmount(bonuses)
		p.Retention = parseAmount(retention)
		p.FinalPayment = parseAmount(final)
		p.CalculationJSON = calculationJSON.String
		p.CreatedAt = parseTime(createdAt)
		p.UpdatedAt = parseTime(updatedAt)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseExtraInfo(s sql.NullString) (payroll.ExtraInfo, error) {
	var extra payroll.ExtraInfo
	if !s.Valid || s.String == "" {
		return extra, nil
	}
	if err := json.Unmarshal([]byte(s.String), &extra); err != nil {
		return payroll.ExtraInfo{}, err
	}
	return extra, nil
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
