package graph

import "errors"

var (
	// ErrNodeNotFound is returned when a relationship or update references a non-existent node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateNode is returned when adding a node whose id already exists.
	ErrDuplicateNode = errors.New("duplicate node ID")

	// ErrInvalidNode is returned for nodes without id or label.
	ErrInvalidNode = errors.New("invalid node")

	// ErrInvalidRelationship is returned when a relationship violates the schema.
	ErrInvalidRelationship = errors.New("invalid relationship for node labels")

	// ErrLabelMismatch is returned when upserting a node under a different label.
	ErrLabelMismatch = errors.New("node exists with a different label")
)
