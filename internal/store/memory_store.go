package store

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/orgstack/orgdir/internal/ident"
	"github.com/orgstack/orgdir/internal/model"
)

// MemoryStore implements DirectoryStore using in-memory maps. It is used for
// tests and single-node development; it honors the same semantics as the
// Postgres adapter, including local-id assignment and head verification.
type MemoryStore struct {
	mu     sync.RWMutex
	orgs   map[int64]*orgRecord
	logger *zap.Logger
}

type orgRecord struct {
	name        string
	departments map[int64]*deptRecord
}

type deptRecord struct {
	name        string
	headLocalID int64
	employees   map[int64]*model.Employee
}

// NewMemoryStore creates an empty in-memory directory store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		orgs:   make(map[int64]*orgRecord),
		logger: logger,
	}
}

// FetchEmployees returns all employees of the tenant ordered by local id.
func (s *MemoryStore) FetchEmployees(ctx context.Context, tenantID int64) ([]*model.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, exists := s.orgs[tenantID]
	if !exists {
		return nil, nil
	}

	var employees []*model.Employee
	for _, dept := range org.departments {
		for _, emp := range dept.employees {
			copied := *emp
			employees = append(employees, &copied)
		}
	}
	sort.Slice(employees, func(i, j int) bool { return employees[i].LocalID < employees[j].LocalID })
	return employees, nil
}

// FetchDepartments returns all departments of the tenant ordered by local
// id, each with its employee collection populated.
func (s *MemoryStore) FetchDepartments(ctx context.Context, tenantID int64) ([]*model.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.departmentsLocked(tenantID), nil
}

// departmentsLocked builds department views; callers must hold s.mu.
func (s *MemoryStore) departmentsLocked(tenantID int64) []*model.Department {
	org, exists := s.orgs[tenantID]
	if !exists {
		return nil
	}

	var departments []*model.Department
	for localID, dept := range org.departments {
		view := &model.Department{
			LocalID:     localID,
			Name:        dept.name,
			HeadLocalID: dept.headLocalID,
		}
		for _, emp := range dept.employees {
			copied := *emp
			view.Employees = append(view.Employees, &copied)
		}
		sort.Slice(view.Employees, func(i, j int) bool { return view.Employees[i].LocalID < view.Employees[j].LocalID })
		departments = append(departments, view)
	}
	sort.Slice(departments, func(i, j int) bool { return departments[i].LocalID < departments[j].LocalID })
	return departments
}

// FetchOrganization returns the tenant's organization or ErrNotFound.
func (s *MemoryStore) FetchOrganization(ctx context.Context, tenantID int64) (*model.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, exists := s.orgs[tenantID]
	if !exists {
		return nil, ErrNotFound
	}

	return &model.Organization{
		ID:          tenantID,
		Name:        org.name,
		Departments: s.departmentsLocked(tenantID),
	}, nil
}

// InsertEmployee persists a new employee in the named department and returns
// its encoded storage id.
func (s *MemoryStore) InsertEmployee(ctx context.Context, tenantID, departmentLocalID int64, draft model.EmployeeDraft) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, exists := s.orgs[tenantID]
	if !exists {
		return 0, ErrNotFound
	}
	dept, exists := org.departments[departmentLocalID]
	if !exists {
		return 0, ErrNotFound
	}

	var maxLocal int64
	for _, d := range org.departments {
		for localID := range d.employees {
			if localID > maxLocal {
				maxLocal = localID
			}
		}
	}

	localID := maxLocal + 1
	storageID, err := ident.Encode(tenantID, localID)
	if err != nil {
		return 0, err
	}

	dept.employees[localID] = &model.Employee{
		LocalID:     localID,
		Name:        draft.Name,
		HireDate:    draft.HireDate,
		Position:    draft.Position,
		Salary:      draft.Salary,
		Performance: draft.Performance,
	}

	s.logger.Debug("Inserted employee",
		zap.Int64("tenant_id", tenantID),
		zap.Int64("local_id", localID),
		zap.Int64("department_local_id", departmentLocalID))
	return storageID, nil
}

// InsertDepartment persists a new department and returns its encoded
// storage id.
func (s *MemoryStore) InsertDepartment(ctx context.Context, tenantID int64, draft model.DepartmentDraft) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, exists := s.orgs[tenantID]
	if !exists {
		return 0, ErrNotFound
	}

	var maxLocal int64
	for localID := range org.departments {
		if localID > maxLocal {
			maxLocal = localID
		}
	}

	localID := maxLocal + 1
	storageID, err := ident.Encode(tenantID, localID)
	if err != nil {
		return 0, err
	}

	org.departments[localID] = &deptRecord{
		name:      draft.Name,
		employees: make(map[int64]*model.Employee),
	}
	return storageID, nil
}

// RemoveEmployee deletes an employee, clearing the department head reference
// first when the employee holds it.
func (s *MemoryStore) RemoveEmployee(ctx context.Context, tenantID, departmentStorageID, employeeStorageID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, exists := s.orgs[tenantID]
	if !exists {
		return false, nil
	}

	_, deptLocalID := ident.Decode(departmentStorageID)
	_, empLocalID := ident.Decode(employeeStorageID)

	dept, exists := org.departments[deptLocalID]
	if !exists {
		return false, nil
	}
	if _, exists := dept.employees[empLocalID]; !exists {
		return false, nil
	}

	if dept.headLocalID == empLocalID {
		dept.headLocalID = 0
	}
	delete(dept.employees, empLocalID)
	return true, nil
}

// UpdateEmployee overwrites the mutable attributes of an existing employee.
func (s *MemoryStore) UpdateEmployee(ctx context.Context, tenantID int64, employee *model.Employee) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, exists := s.orgs[tenantID]
	if !exists {
		return false, nil
	}

	for _, dept := range org.departments {
		stored, exists := dept.employees[employee.LocalID]
		if !exists {
			continue
		}
		stored.Name = employee.Name
		stored.Position = employee.Position
		stored.Salary = employee.Salary
		stored.Performance = employee.Performance
		// Hire date is immutable after creation.
		return true, nil
	}
	return false, nil
}

// UpdateDepartment overwrites an existing department's name and head after
// verifying a non-zero head is enrolled in that department.
func (s *MemoryStore) UpdateDepartment(ctx context.Context, tenantID int64, department *model.Department) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, exists := s.orgs[tenantID]
	if !exists {
		return false, nil
	}
	dept, exists := org.departments[department.LocalID]
	if !exists {
		return false, nil
	}

	if department.HeadLocalID != 0 {
		if _, enrolled := dept.employees[department.HeadLocalID]; !enrolled {
			return false, nil
		}
	}

	dept.name = department.Name
	dept.headLocalID = department.HeadLocalID
	return true, nil
}

// InsertOrganization registers a new organization with the next free id.
func (s *MemoryStore) InsertOrganization(ctx context.Context, draft model.OrganizationDraft) (*model.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var maxID int64
	for id := range s.orgs {
		if id > maxID {
			maxID = id
		}
	}

	id := maxID + 1
	s.orgs[id] = &orgRecord{
		name:        draft.Name,
		departments: make(map[int64]*deptRecord),
	}

	s.logger.Info("Registered organization",
		zap.Int64("tenant_id", id),
		zap.String("name", draft.Name))
	return &model.Organization{ID: id, Name: draft.Name}, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() {}
