package model

import "time"

// Position is the closed set of role categories an employee can hold.
type Position string

const (
	PositionManager   Position = "manager"
	PositionDeveloper Position = "developer"
	PositionAnalyst   Position = "analyst"
	PositionSales     Position = "sales"
	// PositionOther is the catch-all category for anything else.
	PositionOther Position = "other"
)

// ParsePosition maps a raw string onto the closed position set. Unknown
// values fall back to PositionOther rather than failing.
func ParsePosition(s string) Position {
	switch Position(s) {
	case PositionManager, PositionDeveloper, PositionAnalyst, PositionSales:
		return Position(s)
	default:
		return PositionOther
	}
}

// Employee is a leaf of the directory tree. An employee belongs to exactly
// one department at a time.
type Employee struct {
	LocalID  int64
	Name     string
	HireDate time.Time // immutable after creation
	Position Position
	Salary      float64
	Performance float64
}

// NodeID returns the employee's tenant-local id.
func (e *Employee) NodeID() int64 { return e.LocalID }

// NodeName returns the employee name.
func (e *Employee) NodeName() string { return e.Name }

// Children returns nil; employees are leaves.
func (e *Employee) Children() []Node { return nil }
