// Package service implements the tenant cache facade and the registry that
// hands out one facade per tenant.
package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/orgstack/orgdir/internal/ident"
	"github.com/orgstack/orgdir/internal/metrics"
	"github.com/orgstack/orgdir/internal/model"
	"github.com/orgstack/orgdir/internal/store"
)

// Facade is the per-tenant caching front of the backing store. It holds the
// tenant's employee and department collections in memory, refreshes a
// collection in full when a lookup misses, and pushes every mutation through
// the store before refreshing.
//
// A cached collection is only ever replaced wholesale under the facade
// mutex; concurrent readers either see the previous snapshot or the new one,
// never a partially updated collection.
type Facade struct {
	tenantID int64
	store    store.DirectoryStore
	logger   *zap.Logger
	metrics  *metrics.Metrics

	mu          sync.RWMutex
	employees   []*model.Employee
	departments []*model.Department
	// org is captured once at construction and never refreshed; renames or
	// re-registrations performed elsewhere are not observed until a new
	// facade is built for the tenant.
	org *model.Organization
}

// NewFacade constructs a facade for one tenant, loading its employee list,
// department list and organization from the backing store as the initial
// cache contents. A tenant with no stored organization still gets a facade;
// Organization then reports absence.
func NewFacade(ctx context.Context, tenantID int64, directoryStore store.DirectoryStore, logger *zap.Logger, m *metrics.Metrics) (*Facade, error) {
	f := &Facade{
		tenantID: tenantID,
		store:    directoryStore,
		logger:   logger.With(zap.Int64("tenant_id", tenantID)),
		metrics:  m,
	}

	employees, err := directoryStore.FetchEmployees(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	departments, err := directoryStore.FetchDepartments(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	org, err := directoryStore.FetchOrganization(ctx, tenantID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	f.employees = employees
	f.departments = departments
	f.org = org

	f.logger.Info("Tenant facade constructed",
		zap.Int("employees", len(employees)),
		zap.Int("departments", len(departments)))
	return f, nil
}

// TenantID returns the tenant this facade serves.
func (f *Facade) TenantID() int64 {
	return f.tenantID
}

// GetEmployee returns the employee with the given local id. On a cache miss
// the employee collection is re-fetched from the store exactly once and
// scanned again; a genuinely absent id therefore costs one extra store round
// trip and surfaces store.ErrNotFound.
func (f *Facade) GetEmployee(ctx context.Context, localID int64) (*model.Employee, error) {
	if emp := f.findEmployee(localID); emp != nil {
		f.observeHit("employees")
		return emp, nil
	}
	f.observeMiss("employees")

	if err := f.refreshEmployees(ctx, "miss"); err != nil {
		return nil, err
	}
	if emp := f.findEmployee(localID); emp != nil {
		return emp, nil
	}
	return nil, store.ErrNotFound
}

// GetDepartment returns the department with the given local id, applying the
// same single-retry-on-miss policy as GetEmployee.
func (f *Facade) GetDepartment(ctx context.Context, localID int64) (*model.Department, error) {
	if dept := f.findDepartment(localID); dept != nil {
		f.observeHit("departments")
		return dept, nil
	}
	f.observeMiss("departments")

	if err := f.refreshDepartments(ctx, "miss"); err != nil {
		return nil, err
	}
	if dept := f.findDepartment(localID); dept != nil {
		return dept, nil
	}
	return nil, store.ErrNotFound
}

// Organization returns the organization snapshot captured when the facade
// was constructed, or nil when the tenant has no stored organization. This
// path never refreshes.
func (f *Facade) Organization() *model.Organization {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.org
}

// AddEmployee persists a new employee in the named department, refreshes the
// cached collections, and returns the employee view with its freshly
// assigned local id.
func (f *Facade) AddEmployee(ctx context.Context, departmentLocalID int64, draft model.EmployeeDraft) (*model.Employee, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	storageID, err := f.store.InsertEmployee(ctx, f.tenantID, departmentLocalID, draft)
	if err != nil {
		return nil, err
	}

	if err := f.refreshAll(ctx); err != nil {
		return nil, err
	}

	_, localID := ident.Decode(storageID)
	f.logger.Info("Employee added",
		zap.Int64("local_id", localID),
		zap.Int64("department_local_id", departmentLocalID))

	return &model.Employee{
		LocalID:     localID,
		Name:        draft.Name,
		HireDate:    draft.HireDate,
		Position:    draft.Position,
		Salary:      draft.Salary,
		Performance: draft.Performance,
	}, nil
}

// AddDepartment persists a new department for the tenant, refreshes the
// cached collections, and returns the department view with its assigned
// local id.
func (f *Facade) AddDepartment(ctx context.Context, draft model.DepartmentDraft) (*model.Department, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	storageID, err := f.store.InsertDepartment(ctx, f.tenantID, draft)
	if err != nil {
		return nil, err
	}

	if err := f.refreshAll(ctx); err != nil {
		return nil, err
	}

	_, localID := ident.Decode(storageID)
	f.logger.Info("Department added", zap.Int64("local_id", localID))
	return &model.Department{LocalID: localID, Name: draft.Name}, nil
}

// RemoveEmployee deletes the employee from the department, clearing the
// department head reference when the employee holds it. Returns false when
// either cannot be located; the cache is only refreshed after a successful
// removal.
func (f *Facade) RemoveEmployee(ctx context.Context, departmentLocalID, employeeLocalID int64) (bool, error) {
	deptStorageID, err := ident.Encode(f.tenantID, departmentLocalID)
	if err != nil {
		return false, nil
	}
	empStorageID, err := ident.Encode(f.tenantID, employeeLocalID)
	if err != nil {
		return false, nil
	}

	removed, err := f.store.RemoveEmployee(ctx, f.tenantID, deptStorageID, empStorageID)
	if err != nil {
		return false, err
	}
	if !removed {
		return false, nil
	}

	if err := f.refreshAll(ctx); err != nil {
		return false, err
	}

	f.logger.Info("Employee removed",
		zap.Int64("local_id", employeeLocalID),
		zap.Int64("department_local_id", departmentLocalID))
	return true, nil
}

// UpdateEmployee overwrites the mutable attributes of an existing employee.
// Returns false when the employee cannot be located or the update violates
// an attribute invariant; the cache is only refreshed after a successful
// write.
func (f *Facade) UpdateEmployee(ctx context.Context, employee *model.Employee) (bool, error) {
	if employee == nil || employee.Name == "" || employee.Salary < 0 {
		return false, nil
	}

	updated, err := f.store.UpdateEmployee(ctx, f.tenantID, employee)
	if err != nil {
		return false, err
	}
	if !updated {
		return false, nil
	}

	if err := f.refreshAll(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateDepartment overwrites an existing department's name and head. A head
// that is not currently enrolled in the department is rejected by the store
// and surfaces as false, leaving both the stored state and the cache
// untouched.
func (f *Facade) UpdateDepartment(ctx context.Context, department *model.Department) (bool, error) {
	if department == nil || department.Name == "" {
		return false, nil
	}

	updated, err := f.store.UpdateDepartment(ctx, f.tenantID, department)
	if err != nil {
		return false, err
	}
	if !updated {
		return false, nil
	}

	if err := f.refreshAll(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (f *Facade) findEmployee(localID int64) *model.Employee {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, emp := range f.employees {
		if emp.LocalID == localID {
			return emp
		}
	}
	return nil
}

func (f *Facade) findDepartment(localID int64) *model.Department {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, dept := range f.departments {
		if dept.LocalID == localID {
			return dept
		}
	}
	return nil
}

// refreshEmployees re-fetches the full employee collection and swaps it in.
// Last refresh wins; concurrent refreshes are not merged.
func (f *Facade) refreshEmployees(ctx context.Context, reason string) error {
	employees, err := f.store.FetchEmployees(ctx, f.tenantID)
	if err != nil {
		f.observeStoreError("fetch_employees")
		return err
	}

	f.mu.Lock()
	f.employees = employees
	f.mu.Unlock()

	f.observeRefresh("employees", reason)
	return nil
}

// refreshDepartments re-fetches the full department collection and swaps it
// in.
func (f *Facade) refreshDepartments(ctx context.Context, reason string) error {
	departments, err := f.store.FetchDepartments(ctx, f.tenantID)
	if err != nil {
		f.observeStoreError("fetch_departments")
		return err
	}

	f.mu.Lock()
	f.departments = departments
	f.mu.Unlock()

	f.observeRefresh("departments", reason)
	return nil
}

// refreshAll refreshes both cached collections after a successful write.
func (f *Facade) refreshAll(ctx context.Context) error {
	if err := f.refreshEmployees(ctx, "write"); err != nil {
		return err
	}
	return f.refreshDepartments(ctx, "write")
}

func (f *Facade) observeHit(collection string) {
	if f.metrics != nil {
		f.metrics.CacheHits.WithLabelValues(collection).Inc()
	}
}

func (f *Facade) observeMiss(collection string) {
	if f.metrics != nil {
		f.metrics.CacheMisses.WithLabelValues(collection).Inc()
	}
}

func (f *Facade) observeRefresh(collection, reason string) {
	if f.metrics != nil {
		f.metrics.CacheRefreshes.WithLabelValues(collection, reason).Inc()
	}
}

func (f *Facade) observeStoreError(operation string) {
	if f.metrics != nil {
		f.metrics.StoreErrors.WithLabelValues(operation).Inc()
	}
}
