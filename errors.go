package docgraph

import (
	"errors"

	"github.com/brunobiangulo/docgraph/graph"
	"github.com/brunobiangulo/docgraph/record"
)

var (
	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("docgraph: invalid configuration")

	// ErrMalformedRecord matches any MalformedRecordError.
	ErrMalformedRecord = record.ErrMalformedRecord

	// ErrDanglingEdge matches any DanglingEdgeError.
	ErrDanglingEdge = graph.ErrDanglingEdge

	// ErrIdentityCollision matches any IdentityCollisionError.
	ErrIdentityCollision = graph.ErrIdentityCollision
)

type (
	// MalformedRecordError reports an absent or mistyped input field.
	MalformedRecordError = record.MalformedRecordError

	// DanglingEdgeError reports an edge endpoint missing from the graph.
	DanglingEdgeError = graph.DanglingEdgeError

	// IdentityCollisionError reports one id assigned to two entities.
	IdentityCollisionError = graph.IdentityCollisionError
)

// IsRecoverable reports whether err only invalidates the document being
// built, so a batch may skip it and continue. Internal consistency
// failures are never recoverable.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrMalformedRecord)
}
