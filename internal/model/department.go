package model

// Department groups employees under one tenant. LocalID is unique only
// within the owning tenant; the globally unique form is produced by the
// ident package.
type Department struct {
	LocalID int64
	Name    string
	// HeadLocalID is the local id of the department head, or 0 when no head
	// is assigned. The head must be currently enrolled in this department;
	// the backing store rejects updates that violate this.
	HeadLocalID int64
	Employees   []*Employee
}

// NodeID returns the department's tenant-local id.
func (d *Department) NodeID() int64 { return d.LocalID }

// NodeName returns the department name.
func (d *Department) NodeName() string { return d.Name }

// Children returns the department's employees as generic nodes.
func (d *Department) Children() []Node {
	children := make([]Node, len(d.Employees))
	for i, e := range d.Employees {
		children[i] = e
	}
	return children
}

// Head returns the department head, or nil when no head is assigned.
func (d *Department) Head() *Employee {
	if d.HeadLocalID == 0 {
		return nil
	}
	for _, e := range d.Employees {
		if e.LocalID == d.HeadLocalID {
			return e
		}
	}
	return nil
}

// HasEmployee reports whether an employee with the given local id is
// currently enrolled in this department.
func (d *Department) HasEmployee(localID int64) bool {
	for _, e := range d.Employees {
		if e.LocalID == localID {
			return true
		}
	}
	return false
}
