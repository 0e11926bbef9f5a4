// Package memstore is an in-memory Store. Transactions run one at a time
// against a cloned copy of the state which replaces the committed state
// only when the transaction function succeeds.
package memstore

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/yigit/eduadmin/internal/app/models"
	"github.com/yigit/eduadmin/internal/app/repositories"
)

type linkKey struct {
	ParentID  string
	StudentID string
}

type state struct {
	schools      map[string]models.School // keyed by tenant
	branches     map[string]models.Branch
	units        map[string]models.OrganizationalUnit
	classes      map[string]models.AcademicClass // Sections kept in sections
	sections     map[string]models.Section
	employees    map[string]models.Employee
	subjects     map[string]models.Subject
	students     map[string]models.Student // ParentIDs kept in links
	parents      map[string]models.Parent
	links        map[linkKey]string // value is the tenant
	settings     map[string]models.AdmissionSettings
	applications map[string]models.AdmissionApplication
	routes       map[string]models.BusRoute // Stops kept in stops
	stops        map[string]models.BusStop
	buses        map[string]models.SchoolBus
	enrollments  map[string]models.BusEnrollment
}

func newState() *state {
	return &state{
		schools:      map[string]models.School{},
		branches:     map[string]models.Branch{},
		units:        map[string]models.OrganizationalUnit{},
		classes:      map[string]models.AcademicClass{},
		sections:     map[string]models.Section{},
		employees:    map[string]models.Employee{},
		subjects:     map[string]models.Subject{},
		students:     map[string]models.Student{},
		parents:      map[string]models.Parent{},
		links:        map[linkKey]string{},
		settings:     map[string]models.AdmissionSettings{},
		applications: map[string]models.AdmissionApplication{},
		routes:       map[string]models.BusRoute{},
		stops:        map[string]models.BusStop{},
		buses:        map[string]models.SchoolBus{},
		enrollments:  map[string]models.BusEnrollment{},
	}
}

// clone copies every map. Stored values never share slices with callers,
// so a shallow copy of each map is enough.
func (s *state) clone() *state {
	return &state{
		schools:      maps.Clone(s.schools),
		branches:     maps.Clone(s.branches),
		units:        maps.Clone(s.units),
		classes:      maps.Clone(s.classes),
		sections:     maps.Clone(s.sections),
		employees:    maps.Clone(s.employees),
		subjects:     maps.Clone(s.subjects),
		students:     maps.Clone(s.students),
		parents:      maps.Clone(s.parents),
		links:        maps.Clone(s.links),
		settings:     maps.Clone(s.settings),
		applications: maps.Clone(s.applications),
		routes:       maps.Clone(s.routes),
		stops:        maps.Clone(s.stops),
		buses:        maps.Clone(s.buses),
		enrollments:  maps.Clone(s.enrollments),
	}
}

// Store is a repositories.Store kept in process memory
type Store struct {
	mu    sync.Mutex
	state *state
}

var _ repositories.Store = (*Store)(nil)

// New returns an empty Store
func New() *Store {
	return &Store{state: newState()}
}

// WithTx runs fn against a private copy of the state and publishes the copy
// when fn succeeds. Transactions are serialized.
func (s *Store) WithTx(ctx context.Context, fn repositories.TxFn) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q := &queries{st: s.state.clone()}
	if err := fn(ctx, q); err != nil {
		return err
	}
	s.state = q.st
	return nil
}

type queries struct {
	st *state
}

var _ repositories.Queries = (*queries)(nil)

// Savepoint snapshots the working state and restores it when fn fails
func (q *queries) Savepoint(ctx context.Context, fn repositories.TxFn) error {
	snapshot := q.st.clone()
	if err := fn(ctx, q); err != nil {
		q.st = snapshot
		return err
	}
	return nil
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func unique(constraint string) error {
	return &repositories.UniqueViolationError{Constraint: constraint}
}

// collect returns the tenant's values of m sorted by less
func collect[T any](m map[string]T, keep func(T) bool, less func(a, b T) bool) []T {
	out := make([]T, 0)
	for _, v := range m {
		if keep(v) {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func clearIf(ptr **string, id string) {
	if *ptr != nil && **ptr == id {
		*ptr = nil
	}
}
