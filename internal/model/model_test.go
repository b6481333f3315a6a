package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParsePosition(t *testing.T) {
	assert.Equal(t, PositionManager, ParsePosition("manager"))
	assert.Equal(t, PositionDeveloper, ParsePosition("developer"))
	assert.Equal(t, PositionOther, ParsePosition("other"))
	assert.Equal(t, PositionOther, ParsePosition("astronaut"))
	assert.Equal(t, PositionOther, ParsePosition(""))
}

func TestDepartmentHead(t *testing.T) {
	dept := &Department{
		LocalID: 1,
		Name:    "Engineering",
		Employees: []*Employee{
			{LocalID: 1, Name: "John Doe"},
			{LocalID: 2, Name: "Jane Roe"},
		},
	}

	assert.Nil(t, dept.Head())

	dept.HeadLocalID = 2
	head := dept.Head()
	assert.NotNil(t, head)
	assert.Equal(t, "Jane Roe", head.Name)

	// Head id pointing outside the department resolves to nil.
	dept.HeadLocalID = 99
	assert.Nil(t, dept.Head())
}

func TestDepartmentHasEmployee(t *testing.T) {
	dept := &Department{
		Employees: []*Employee{{LocalID: 3}},
	}
	assert.True(t, dept.HasEmployee(3))
	assert.False(t, dept.HasEmployee(4))
}

func TestDraftValidate(t *testing.T) {
	valid := EmployeeDraft{Name: "John Doe", HireDate: time.Now(), Salary: 1000}
	assert.NoError(t, valid.Validate())

	assert.ErrorIs(t, EmployeeDraft{Salary: 10}.Validate(), ErrEmptyName)
	assert.ErrorIs(t, EmployeeDraft{Name: "x", Salary: -1}.Validate(), ErrNegativeSalary)
	assert.ErrorIs(t, DepartmentDraft{}.Validate(), ErrEmptyName)
	assert.ErrorIs(t, OrganizationDraft{}.Validate(), ErrEmptyName)
}

func TestTree(t *testing.T) {
	org := &Organization{
		ID:   1,
		Name: "Acme",
		Departments: []*Department{
			{
				LocalID: 1,
				Name:    "Engineering",
				Employees: []*Employee{
					{LocalID: 1, Name: "John Doe"},
					{LocalID: 2, Name: "Jane Roe"},
				},
			},
			{LocalID: 2, Name: "Sales"},
		},
	}

	want := "1: Acme\n" +
		"  1: Engineering\n" +
		"    1: John Doe\n" +
		"    2: Jane Roe\n" +
		"  2: Sales\n"
	assert.Equal(t, want, Tree(org))
}

func TestEmployeeIsLeaf(t *testing.T) {
	e := &Employee{LocalID: 1, Name: "John Doe"}
	assert.Nil(t, e.Children())
	assert.Equal(t, int64(1), e.NodeID())
	assert.Equal(t, "John Doe", e.NodeName())
}
