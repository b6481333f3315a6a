// Package store defines the backing-store port the directory facade depends
// on, plus its Postgres and in-memory adapters.
package store

import (
	"context"
	"errors"

	"github.com/orgstack/orgdir/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// DirectoryStore is the persistence port for the organizational directory.
// Every data operation is scoped to a tenant by an explicit tenant id.
//
// Write operations distinguish business rejections from store faults: a
// rejection (unknown id, head not enrolled, local-id overflow) surfaces as a
// false success flag or ErrNotFound, while an unexpected fault surfaces as a
// non-nil error of any other kind.
type DirectoryStore interface {
	// FetchEmployees returns all employees of the tenant.
	FetchEmployees(ctx context.Context, tenantID int64) ([]*model.Employee, error)
	// FetchDepartments returns all departments of the tenant with their
	// employee collections populated.
	FetchDepartments(ctx context.Context, tenantID int64) ([]*model.Department, error)
	// FetchOrganization returns the tenant's organization with departments
	// populated, or ErrNotFound.
	FetchOrganization(ctx context.Context, tenantID int64) (*model.Organization, error)

	// InsertEmployee persists a new employee in the named department. The
	// local id is assigned as one greater than the tenant's current maximum
	// (or 1 if none exist) and the encoded storage id is returned.
	// Fails with ErrNotFound when the department does not exist and with
	// ident.ErrLocalIDOutOfRange when the tenant's id space is exhausted.
	InsertEmployee(ctx context.Context, tenantID, departmentLocalID int64, draft model.EmployeeDraft) (int64, error)
	// InsertDepartment persists a new department under the tenant, assigning
	// its local id the same way InsertEmployee does, and returns the encoded
	// storage id.
	InsertDepartment(ctx context.Context, tenantID int64, draft model.DepartmentDraft) (int64, error)
	// RemoveEmployee deletes the employee identified by its storage id from
	// the department identified by its storage id. If the employee is the
	// department head, the head reference is cleared as part of the same
	// operation. Returns false when either cannot be located.
	RemoveEmployee(ctx context.Context, tenantID, departmentStorageID, employeeStorageID int64) (bool, error)
	// UpdateEmployee overwrites the mutable attributes of an existing
	// employee. The hire date is never changed. Returns false when the
	// employee cannot be located.
	UpdateEmployee(ctx context.Context, tenantID int64, employee *model.Employee) (bool, error)
	// UpdateDepartment overwrites an existing department's name and head.
	// A non-zero head must refer to an employee currently enrolled in that
	// department; otherwise the whole update is rejected with false and no
	// stored state changes.
	UpdateDepartment(ctx context.Context, tenantID int64, department *model.Department) (bool, error)

	// InsertOrganization registers a new organization, assigning its id as
	// one greater than the current maximum (or 1 if none exist).
	InsertOrganization(ctx context.Context, draft model.OrganizationDraft) (*model.Organization, error)

	// Ping checks connectivity to the underlying store.
	Ping(ctx context.Context) error
	Close()
}
