package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orgstack/orgdir/internal/model"
	"github.com/orgstack/orgdir/internal/store"
)

// countingStore wraps a DirectoryStore and counts fetch calls so tests can
// pin down exactly how many store round trips an operation costs.
type countingStore struct {
	store.DirectoryStore

	fetchEmployees   atomic.Int64
	fetchDepartments atomic.Int64
	fetchOrgs        atomic.Int64

	orgNameOverride atomic.Value // string
	failFetches     atomic.Bool
}

var errStoreDown = errors.New("store down")

func (c *countingStore) FetchEmployees(ctx context.Context, tenantID int64) ([]*model.Employee, error) {
	if c.failFetches.Load() {
		return nil, errStoreDown
	}
	c.fetchEmployees.Add(1)
	return c.DirectoryStore.FetchEmployees(ctx, tenantID)
}

func (c *countingStore) FetchDepartments(ctx context.Context, tenantID int64) ([]*model.Department, error) {
	if c.failFetches.Load() {
		return nil, errStoreDown
	}
	c.fetchDepartments.Add(1)
	return c.DirectoryStore.FetchDepartments(ctx, tenantID)
}

func (c *countingStore) FetchOrganization(ctx context.Context, tenantID int64) (*model.Organization, error) {
	if c.failFetches.Load() {
		return nil, errStoreDown
	}
	c.fetchOrgs.Add(1)
	org, err := c.DirectoryStore.FetchOrganization(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if name, ok := c.orgNameOverride.Load().(string); ok {
		org.Name = name
	}
	return org, nil
}

// seededStore returns a counting store holding tenant 1 ("Acme") with
// department 1 ("Engineering") and employees 1 ("John Doe") and 2
// ("Jane Roe").
func seededStore(t *testing.T) *countingStore {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemoryStore(zap.NewNop())

	org, err := mem.InsertOrganization(ctx, model.OrganizationDraft{Name: "Acme"})
	require.NoError(t, err)
	_, err = mem.InsertDepartment(ctx, org.ID, model.DepartmentDraft{Name: "Engineering"})
	require.NoError(t, err)
	_, err = mem.InsertEmployee(ctx, org.ID, 1, model.EmployeeDraft{
		Name: "John Doe", HireDate: time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC), Position: model.PositionDeveloper, Salary: 1000,
	})
	require.NoError(t, err)
	_, err = mem.InsertEmployee(ctx, org.ID, 1, model.EmployeeDraft{Name: "Jane Roe", Position: model.PositionManager, Salary: 2000})
	require.NoError(t, err)

	return &countingStore{DirectoryStore: mem}
}

func newTestFacade(t *testing.T, cs *countingStore) *Facade {
	t.Helper()
	f, err := NewFacade(context.Background(), 1, cs, zap.NewNop(), nil)
	require.NoError(t, err)
	return f
}

func TestGetEmployeeCacheHit(t *testing.T) {
	cs := seededStore(t)
	f := newTestFacade(t, cs)
	baseline := cs.fetchEmployees.Load()

	emp, err := f.GetEmployee(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "John Doe", emp.Name)
	assert.Equal(t, baseline, cs.fetchEmployees.Load(), "cache hit must not touch the store")
}

func TestGetEmployeeMissRecoversAfterOutOfBandInsert(t *testing.T) {
	cs := seededStore(t)
	f := newTestFacade(t, cs)

	// Employee 3 appears in the store after the cache was populated.
	_, err := cs.DirectoryStore.InsertEmployee(context.Background(), 1, 1, model.EmployeeDraft{Name: "New Hire"})
	require.NoError(t, err)

	emp, err := f.GetEmployee(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "New Hire", emp.Name)
}

func TestGetEmployeeAbsentCostsExactlyOneRefresh(t *testing.T) {
	cs := seededStore(t)
	f := newTestFacade(t, cs)
	baseline := cs.fetchEmployees.Load()

	_, err := f.GetEmployee(context.Background(), 999)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, baseline+1, cs.fetchEmployees.Load(), "a genuinely absent id costs one extra round trip")

	// The refreshed snapshot replaced the old one; the next absent lookup
	// pays its own single refresh, not more.
	_, err = f.GetEmployee(context.Background(), 999)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, baseline+2, cs.fetchEmployees.Load())
}

func TestGetDepartmentMissThenHit(t *testing.T) {
	cs := seededStore(t)
	f := newTestFacade(t, cs)

	_, err := cs.DirectoryStore.InsertDepartment(context.Background(), 1, model.DepartmentDraft{Name: "Sales"})
	require.NoError(t, err)

	dept, err := f.GetDepartment(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Sales", dept.Name)

	_, err = f.GetDepartment(context.Background(), 42)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAddEmployeeThenReadWithoutMiss(t *testing.T) {
	cs := seededStore(t)
	f := newTestFacade(t, cs)

	emp, err := f.AddEmployee(context.Background(), 1, model.EmployeeDraft{Name: "New Hire", Salary: 1500})
	require.NoError(t, err)
	assert.Equal(t, int64(3), emp.LocalID)

	baseline := cs.fetchEmployees.Load()
	got, err := f.GetEmployee(context.Background(), emp.LocalID)
	require.NoError(t, err)
	assert.Equal(t, "New Hire", got.Name)
	assert.Equal(t, baseline, cs.fetchEmployees.Load(), "post-write refresh must make the new employee a cache hit")
}

func TestAddEmployeeRejectsInvalidDraft(t *testing.T) {
	cs := seededStore(t)
	f := newTestFacade(t, cs)
	baseline := cs.fetchEmployees.Load()

	_, err := f.AddEmployee(context.Background(), 1, model.EmployeeDraft{Salary: 10})
	assert.ErrorIs(t, err, model.ErrEmptyName)

	_, err = f.AddEmployee(context.Background(), 1, model.EmployeeDraft{Name: "x", Salary: -5})
	assert.ErrorIs(t, err, model.ErrNegativeSalary)

	assert.Equal(t, baseline, cs.fetchEmployees.Load(), "rejected writes must not refresh the cache")
}

func TestAddEmployeeUnknownDepartmentLeavesCacheUntouched(t *testing.T) {
	cs := seededStore(t)
	f := newTestFacade(t, cs)
	baseline := cs.fetchEmployees.Load()

	_, err := f.AddEmployee(context.Background(), 42, model.EmployeeDraft{Name: "New Hire"})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, baseline, cs.fetchEmployees.Load())
}

func TestRemoveEmployee(t *testing.T) {
	cs := seededStore(t)
	f := newTestFacade(t, cs)

	removed, err := f.RemoveEmployee(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = f.GetEmployee(context.Background(), 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRemoveEmployeeNotLocated(t *testing.T) {
	cs := seededStore(t)
	f := newTestFacade(t, cs)

	removed, err := f.RemoveEmployee(context.Background(), 1, 999)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = f.RemoveEmployee(context.Background(), 9, 1)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRemoveDepartmentHeadClearsReference(t *testing.T) {
	cs := seededStore(t)
	f := newTestFacade(t, cs)
	ctx := context.Background()

	ok, err := f.UpdateDepartment(ctx, &model.Department{LocalID: 1, Name: "Engineering", HeadLocalID: 2})
	require.NoError(t, err)
	require.True(t, ok)

	removed, err := f.RemoveEmployee(ctx, 1, 2)
	require.NoError(t, err)
	require.True(t, removed)

	dept, err := f.GetDepartment(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, dept.HeadLocalID)
	assert.False(t, dept.HasEmployee(2))
}

func TestUpdateDepartmentHeadRejectionLeavesCacheUntouched(t *testing.T) {
	cs := seededStore(t)
	f := newTestFacade(t, cs)
	ctx := context.Background()
	baseline := cs.fetchDepartments.Load()

	ok, err := f.UpdateDepartment(ctx, &model.Department{LocalID: 1, Name: "Renamed", HeadLocalID: 77})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, baseline, cs.fetchDepartments.Load(), "rejected update must not refresh")

	dept, err := f.GetDepartment(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Engineering", dept.Name)
	assert.Zero(t, dept.HeadLocalID)
}

func TestUpdateEmployee(t *testing.T) {
	cs := seededStore(t)
	f := newTestFacade(t, cs)
	ctx := context.Background()

	ok, err := f.UpdateEmployee(ctx, &model.Employee{LocalID: 1, Name: "John Q. Doe", Position: model.PositionManager, Salary: 3000})
	require.NoError(t, err)
	assert.True(t, ok)

	emp, err := f.GetEmployee(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "John Q. Doe", emp.Name)
	assert.Equal(t, model.PositionManager, emp.Position)

	ok, err = f.UpdateEmployee(ctx, &model.Employee{LocalID: 999, Name: "Ghost"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrganizationSnapshotNeverRefreshes(t *testing.T) {
	cs := seededStore(t)
	f := newTestFacade(t, cs)

	org := f.Organization()
	require.NotNil(t, org)
	assert.Equal(t, "Acme", org.Name)

	// The store now reports a different name; the facade keeps serving its
	// construction-time snapshot, even across refreshes of the other
	// collections.
	cs.orgNameOverride.Store("Acme Holdings")
	_, err := f.GetEmployee(context.Background(), 999)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Equal(t, "Acme", f.Organization().Name)

	// A freshly constructed facade observes the new name.
	fresh := newTestFacade(t, cs)
	assert.Equal(t, "Acme Holdings", fresh.Organization().Name)
}

func TestFacadeForTenantWithoutOrganization(t *testing.T) {
	cs := &countingStore{DirectoryStore: store.NewMemoryStore(zap.NewNop())}

	f, err := NewFacade(context.Background(), 5, cs, zap.NewNop(), nil)
	require.NoError(t, err)
	assert.Nil(t, f.Organization())

	_, err = f.GetEmployee(context.Background(), 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReadPropagatesStoreFault(t *testing.T) {
	cs := seededStore(t)
	f := newTestFacade(t, cs)

	cs.failFetches.Store(true)
	_, err := f.GetEmployee(context.Background(), 999)
	assert.ErrorIs(t, err, errStoreDown)
}
