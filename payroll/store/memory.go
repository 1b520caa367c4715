// Package store provides in-memory payroll.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/studio-payroll/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	instructors map[instructorKey]payroll.Instructor
	disciplines map[disciplineKey]payroll.Discipline
	classes     []payroll.ClassRecord
	formulas    map[formulaKey]payroll.Formula
	categories  map[categoryKey]payroll.InstructorCategory
	penalties   []payroll.Penalty
	covers      []payroll.Cover
	brandings   []payroll.Branding
	themeRides  []payroll.ThemeRide
	workshops   []payroll.Workshop

	// Upserts counts UpsertCategory calls that reached the store.
	Upserts int
}

type instructorKey struct {
	ID       payroll.InstructorID
	TenantID payroll.TenantID
}

type disciplineKey struct {
	ID       payroll.DisciplineID
	TenantID payroll.TenantID
}

type formulaKey struct {
	DisciplineID payroll.DisciplineID
	PeriodID     payroll.PeriodID
	TenantID     payroll.TenantID
}

type categoryKey struct {
	InstructorID payroll.InstructorID
	DisciplineID payroll.DisciplineID
	PeriodID     payroll.PeriodID
	TenantID     payroll.TenantID
}

var _ payroll.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		instructors: make(map[instructorKey]payroll.Instructor),
		disciplines: make(map[disciplineKey]payroll.Discipline),
		formulas:    make(map[formulaKey]payroll.Formula),
		categories:  make(map[categoryKey]payroll.InstructorCategory),
	}
}

// =============================================================================
// SEEDING
// =============================================================================

func (m *Memory) AddInstructor(i payroll.Instructor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instructors[instructorKey{i.ID, i.TenantID}] = i
}

func (m *Memory) AddDiscipline(d payroll.Discipline) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disciplines[disciplineKey{d.ID, d.TenantID}] = d
}

func (m *Memory) AddClasses(classes ...payroll.ClassRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classes = append(m.classes, classes...)
}

func (m *Memory) SaveFormula(f payroll.Formula) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.formulas[formulaKey{f.DisciplineID, f.PeriodID, f.TenantID}] = f
}

func (m *Memory) AddPenalties(p ...payroll.Penalty) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.penalties = append(m.penalties, p...)
}

func (m *Memory) AddCovers(c ...payroll.Cover) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.covers = append(m.covers, c...)
}

func (m *Memory) AddBrandings(b ...payroll.Branding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.brandings = append(m.brandings, b...)
}

func (m *Memory) AddThemeRides(r ...payroll.ThemeRide) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.themeRides = append(m.themeRides, r...)
}

func (m *Memory) AddWorkshops(w ...payroll.Workshop) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workshops = append(m.workshops, w...)
}

// SetManualCategory stores a manual category, replacing any row.
func (m *Memory) SetManualCategory(c payroll.InstructorCategory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.IsManual = true
	m.categories[categoryKey{c.InstructorID, c.DisciplineID, c.PeriodID, c.TenantID}] = c
}

// ClearCategory deletes the stored category of a triple.
func (m *Memory) ClearCategory(instructorID payroll.InstructorID, disciplineID payroll.DisciplineID, periodID payroll.PeriodID, tenantID payroll.TenantID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.categories, categoryKey{instructorID, disciplineID, periodID, tenantID})
}

// Category returns the stored category of a triple.
func (m *Memory) Category(instructorID payroll.InstructorID, disciplineID payroll.DisciplineID, periodID payroll.PeriodID, tenantID payroll.TenantID) (payroll.InstructorCategory, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[categoryKey{instructorID, disciplineID, periodID, tenantID}]
	return c, ok
}

// =============================================================================
// payroll.Store
// =============================================================================

func (m *Memory) FetchClasses(_ context.Context, instructorID payroll.InstructorID, disciplineID payroll.DisciplineID, periodID payroll.PeriodID, _ payroll.TenantID) ([]payroll.ClassRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []payroll.ClassRecord
	for _, c := range m.classes {
		if c.InstructorID == instructorID && c.DisciplineID == disciplineID && c.PeriodID == periodID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *Memory) FetchFormula(_ context.Context, disciplineID payroll.DisciplineID, periodID payroll.PeriodID, tenantID payroll.TenantID) (*payroll.Formula, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.formulas[formulaKey{disciplineID, periodID, tenantID}]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (m *Memory) FetchDiscipline(_ context.Context, disciplineID payroll.DisciplineID, tenantID payroll.TenantID) (*payroll.Discipline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.disciplines[disciplineKey{disciplineID, tenantID}]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *Memory) FetchInstructorExtraInfo(_ context.Context, instructorID payroll.InstructorID, tenantID payroll.TenantID) (payroll.ExtraInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.instructors[instructorKey{instructorID, tenantID}].ExtraInfo, nil
}

func (m *Memory) FetchInstructorGraph(_ context.Context, instructorID payroll.InstructorID, periodID payroll.PeriodID, tenantID payroll.TenantID) (*payroll.InstructorGraph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	instructor, ok := m.instructors[instructorKey{instructorID, tenantID}]
	if !ok {
		return nil, nil
	}

	g := &payroll.InstructorGraph{
		Instructor:  instructor,
		Disciplines: make(map[payroll.DisciplineID]payroll.Discipline),
	}
	for _, c := range m.classes {
		if c.InstructorID != instructorID || c.PeriodID != periodID {
			continue
		}
		g.Classes = append(g.Classes, c)
		if d, ok := m.disciplines[disciplineKey{c.DisciplineID, tenantID}]; ok {
			g.Disciplines[d.ID] = d
		}
	}
	for _, p := range m.penalties {
		if p.InstructorID == instructorID && p.PeriodID == periodID {
			g.Penalties = append(g.Penalties, p)
			if p.DisciplineID != nil {
				if d, ok := m.disciplines[disciplineKey{*p.DisciplineID, tenantID}]; ok {
					g.Disciplines[d.ID] = d
				}
			}
		}
	}
	for k, c := range m.categories {
		if k.InstructorID == instructorID && k.PeriodID == periodID && k.TenantID == tenantID {
			g.Categories = append(g.Categories, c)
		}
	}
	sort.Slice(g.Categories, func(i, j int) bool { return g.Categories[i].DisciplineID < g.Categories[j].DisciplineID })
	for _, c := range m.covers {
		if c.ReplacementInstructorID == instructorID && c.PeriodID == periodID {
			g.CoversAsReplacement = append(g.CoversAsReplacement, c)
		}
	}
	for _, b := range m.brandings {
		if b.InstructorID == instructorID && b.PeriodID == periodID {
			g.Brandings = append(g.Brandings, b)
		}
	}
	for _, r := range m.themeRides {
		if r.InstructorID == instructorID && r.PeriodID == periodID {
			g.ThemeRides = append(g.ThemeRides, r)
		}
	}
	for _, w := range m.workshops {
		if w.InstructorID == instructorID && w.PeriodID == periodID {
			g.Workshops = append(g.Workshops, w)
		}
	}
	return g, nil
}

func (m *Memory) FindManualCategory(_ context.Context, instructorID payroll.InstructorID, disciplineID payroll.DisciplineID, periodID payroll.PeriodID, tenantID payroll.TenantID) (*payroll.InstructorCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.categories[categoryKey{instructorID, disciplineID, periodID, tenantID}]
	if !ok || !c.IsManual {
		return nil, nil
	}
	return &c, nil
}

// UpsertCategory writes a computed category. Manual rows are kept; the ID
// of an existing row is kept so repeated runs converge on one row.
func (m *Memory) UpsertCategory(_ context.Context, c payroll.InstructorCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Upserts++
	k := categoryKey{c.InstructorID, c.DisciplineID, c.PeriodID, c.TenantID}
	if existing, ok := m.categories[k]; ok {
		if existing.IsManual {
			return nil
		}
		c.ID = existing.ID
	}
	c.IsManual = false
	if c.Metrics != nil {
		snapshot := *c.Metrics
		c.Metrics = &snapshot
	}
	m.categories[k] = c
	return nil
}
