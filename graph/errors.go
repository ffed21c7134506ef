package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrDanglingEdge is the sentinel behind DanglingEdgeError.
	ErrDanglingEdge = errors.New("graph: dangling edge")

	// ErrIdentityCollision is the sentinel behind IdentityCollisionError.
	ErrIdentityCollision = errors.New("graph: identity collision")

	// ErrInvalidEdge is returned for edges whose kind or endpoint types
	// are not part of the document model.
	ErrInvalidEdge = errors.New("graph: invalid edge")

	// ErrMultipleParents is returned when a node would receive a second
	// inbound containment edge.
	ErrMultipleParents = errors.New("graph: node has more than one parent")
)

// DanglingEdgeError reports an edge whose endpoint is not in the node set.
type DanglingEdgeError struct {
	Edge      Edge
	MissingID string
}

func (e *DanglingEdgeError) Error() string {
	return fmt.Sprintf("graph: edge %s -[%s]-> %s references missing node %q",
		e.Edge.Source, e.Edge.Kind, e.Edge.Target, e.MissingID)
}

func (e *DanglingEdgeError) Unwrap() error { return ErrDanglingEdge }

// IdentityCollisionError reports one id standing for two different
// entities. Keys are empty when the collision was detected from node
// types alone.
type IdentityCollisionError struct {
	ID           string
	ExistingType NodeType
	ExistingKey  string
	IncomingType NodeType
	IncomingKey  string
}

func (e *IdentityCollisionError) Error() string {
	if e.ExistingKey != "" || e.IncomingKey != "" {
		return fmt.Sprintf("graph: id %q assigned to %s %q and %s %q",
			e.ID, e.ExistingType, e.ExistingKey, e.IncomingType, e.IncomingKey)
	}
	return fmt.Sprintf("graph: id %q assigned to both %s and %s", e.ID, e.ExistingType, e.IncomingType)
}

func (e *IdentityCollisionError) Unwrap() error { return ErrIdentityCollision }
