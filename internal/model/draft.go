package model

import (
	"errors"
	"time"
)

// Draft validation errors. These are business rejections, not store faults.
var (
	ErrEmptyName      = errors.New("name must not be empty")
	ErrNegativeSalary = errors.New("salary must not be negative")
)

// EmployeeDraft carries the attributes of an employee to be created. The
// local id is assigned by the backing store, never by the caller.
type EmployeeDraft struct {
	Name        string
	HireDate    time.Time
	Position    Position
	Salary      float64
	Performance float64
}

// Validate checks the draft's attribute invariants.
func (d EmployeeDraft) Validate() error {
	if d.Name == "" {
		return ErrEmptyName
	}
	if d.Salary < 0 {
		return ErrNegativeSalary
	}
	return nil
}

// DepartmentDraft carries the attributes of a department to be created.
type DepartmentDraft struct {
	Name string
}

// Validate checks the draft's attribute invariants.
func (d DepartmentDraft) Validate() error {
	if d.Name == "" {
		return ErrEmptyName
	}
	return nil
}

// OrganizationDraft carries the attributes of an organization to be
// registered. The organization id is assigned by the backing store.
type OrganizationDraft struct {
	Name string
}

// Validate checks the draft's attribute invariants.
func (d OrganizationDraft) Validate() error {
	if d.Name == "" {
		return ErrEmptyName
	}
	return nil
}
