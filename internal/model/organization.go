// Package model defines the directory entities: an organization owns
// departments, a department owns employees. Entities are value-like; the
// cache layer replaces whole collections on refresh rather than patching
// them in place.
package model

// Organization is the root of one tenant's directory tree. The organization
// id doubles as the tenant id everywhere in the system.
type Organization struct {
	ID          int64
	Name        string
	Departments []*Department
}

// NodeID returns the organization id.
func (o *Organization) NodeID() int64 { return o.ID }

// NodeName returns the organization name.
func (o *Organization) NodeName() string { return o.Name }

// Children returns the organization's departments as generic nodes.
func (o *Organization) Children() []Node {
	children := make([]Node, len(o.Departments))
	for i, d := range o.Departments {
		children[i] = d
	}
	return children
}
