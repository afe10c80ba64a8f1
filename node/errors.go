package node

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrRelationNotSet = errors.New("required relation not set")
	ErrShapeMismatch  = errors.New("serialized node shape mismatch")
	ErrIDAssigned     = errors.New("node id already assigned")
	ErrInvalidID      = errors.New("invalid node id")
	ErrInvalid        = errors.New("invalid node")
)

const (
	RelationFolder = "folder"
	RelationBlock  = "block"
)

// RelationError reports access to folder or block data before the relation
// was set.
type RelationError struct {
	Relation string
}

func (e *RelationError) Error() string {
	return fmt.Sprintf("node: %s: %s", e.Relation, ErrRelationNotSet)
}

func (e *RelationError) Unwrap() error {
	return ErrRelationNotSet
}

// ValidationError maps field names to the failed rule.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e.Fields[name]
	}
	return "node: invalid: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}
