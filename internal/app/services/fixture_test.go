package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/yigit/eduadmin/internal/app/migrations"
	"github.com/yigit/eduadmin/internal/app/models"
	"github.com/yigit/eduadmin/internal/app/models/dto"
	"github.com/yigit/eduadmin/internal/app/repositories"
	"github.com/yigit/eduadmin/internal/app/repositories/memstore"
	"github.com/yigit/eduadmin/internal/db"
	"github.com/yigit/eduadmin/internal/pkg/logger"
	"github.com/yigit/eduadmin/internal/pkg/metrics"
)

const (
	testTenant   = "tenant-1"
	testCapacity = 30

	// postgresDSNEnv points the Postgres-backed tests at a disposable database
	postgresDSNEnv = "EDUADMIN_TEST_POSTGRES_DSN"
)

// tenantTables lists every tenant-scoped table, children first
var tenantTables = []string{
	"bus_enrollments", "school_buses", "bus_stops", "bus_routes",
	"admission_applications", "admission_settings",
	"parent_students", "parents", "students",
	"subjects", "sections", "employees", "academic_classes",
	"organizational_units", "branches", "schools",
}

type sentStage struct {
	applicationNumber string
	status            string
}

// recordingNotifier keeps every stage notification instead of mailing it
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentStage
	err  error
}

func (n *recordingNotifier) NotifyStage(_ context.Context, app *models.AdmissionApplication, stage models.WorkflowStage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentStage{applicationNumber: app.ApplicationNumber, status: stage.Status})
	return n.err
}

func (n *recordingNotifier) statuses() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.status)
	}
	return out
}

type fixture struct {
	store      repositories.Store
	metrics    *metrics.Metrics
	allocator  *SequenceAllocator
	mirror     *MirrorService
	onboarding *OnboardingService
	students   *StudentService
	admission  *AdmissionService
	transport  *TransportService
	notifier   *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, memstore.New())
}

// newPostgresFixture runs against a migrated database and wipes the test
// tenant before and after the test
func newPostgresFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := os.Getenv(postgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", postgresDSNEnv)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx))

	migrator := migrations.NewMigrator(pool, logger.Nop())
	require.NoError(t, migrator.MigrateFromDirectory(ctx, filepath.Join("..", "..", "..", "migrations")))

	wipe := func() {
		for _, table := range tenantTables {
			_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE tenant_id = $1", table), testTenant)
			require.NoError(t, err, table)
		}
	}
	wipe()
	t.Cleanup(wipe)

	return newFixtureWithStore(t, repositories.NewPostgresStore(&db.PostgresDB{Pool: pool}))
}

func newFixtureWithStore(t *testing.T, store repositories.Store) *fixture {
	t.Helper()

	lgr := logger.Nop()
	f := &fixture{
		store:    store,
		metrics:  metrics.New(nil),
		notifier: &recordingNotifier{},
	}
	f.allocator = NewSequenceAllocator("ADM", f.metrics, lgr)
	f.mirror = NewMirrorService(f.store, testCapacity, f.metrics, lgr)
	f.onboarding = NewOnboardingService(f.store, f.mirror, f.allocator, testCapacity, f.metrics, lgr)
	f.students = NewStudentService(f.store, f.allocator, "ADM", lgr)
	f.admission = NewAdmissionService(f.store, f.allocator, f.students, f.notifier, "ADM",
		[]string{"Rejected", "Withdrawn"}, lgr)
	f.transport = NewTransportService(f.store, f.allocator, lgr)
	return f
}

func (f *fixture) withSchool(t *testing.T) *models.School {
	t.Helper()
	school, err := f.onboarding.SaveSchool(context.Background(), testTenant, dto.SchoolRequest{Name: "Test School"})
	require.NoError(t, err)
	return school
}

// read runs fn in its own transaction
func (f *fixture) read(t *testing.T, fn repositories.TxFn) {
	t.Helper()
	require.NoError(t, f.store.WithTx(context.Background(), fn))
}

func (f *fixture) classes(t *testing.T) []models.AcademicClass {
	t.Helper()
	var out []models.AcademicClass
	f.read(t, func(ctx context.Context, q repositories.Queries) error {
		var err error
		out, err = q.ListClasses(ctx, testTenant)
		return err
	})
	return out
}

func (f *fixture) units(t *testing.T) []models.OrganizationalUnit {
	t.Helper()
	var out []models.OrganizationalUnit
	f.read(t, func(ctx context.Context, q repositories.Queries) error {
		var err error
		out, err = q.ListUnits(ctx, testTenant)
		return err
	})
	return out
}

func (f *fixture) settings(t *testing.T) *models.AdmissionSettings {
	t.Helper()
	var out *models.AdmissionSettings
	f.read(t, func(ctx context.Context, q repositories.Queries) error {
		var err error
		out, err = q.GetAdmissionSettings(ctx, testTenant)
		return err
	})
	return out
}

// classUnitNames and classNames are the two sides of the class pairing
func classUnitNames(units []models.OrganizationalUnit) []string {
	var names []string
	for _, u := range units {
		if u.IsClass() {
			names = append(names, u.Name)
		}
	}
	return names
}

func classNames(classes []models.AcademicClass) []string {
	var names []string
	for _, c := range classes {
		names = append(names, c.Name)
	}
	return names
}

func strPtr(s string) *string {
	return &s
}
