package model

// Node is the uniform shape shared by every directory entity. Generic
// hierarchy-walking code (such as the structure printer) traverses the
// organization tree through this interface without caring which concrete
// entity it is looking at.
type Node interface {
	// NodeID returns the entity's stable identity within its scope.
	NodeID() int64
	// NodeName returns the display name.
	NodeName() string
	// Children returns the ordered child entities, or nil for leaves.
	Children() []Node
}
