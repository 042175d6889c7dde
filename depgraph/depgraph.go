/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package depgraph orders schema entities so that every entity comes after
// the entities it references. Useful for generating migrations from a set of
// table definitions with foreign keys.
package depgraph

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Node is a named entity with references to other entities it depends on.
type Node struct {
	// Name identifies the entity, for example a table name.
	Name string

	// References are the names of entities this one depends on.
	// Self-references are ignored during ordering.
	References []string
}

// MissingReferenceError means a node references an entity not present in the input.
type MissingReferenceError struct {
	Node      string
	Reference string
}

// Error implements the error interface.
func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("node %q references unknown node %q", e.Node, e.Reference)
}

// CircularDependencyError means the references form at least one cycle.
// Remaining holds the nodes that could not be ordered, sorted by name.
type CircularDependencyError struct {
	Remaining []string
}

// Error implements the error interface.
func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency among nodes: %s", strings.Join(e.Remaining, ", "))
}

// Validate checks that every reference points at a node in the input.
// All missing references are reported at once, joined into a single error.
func Validate(nodes []Node) error {
	known := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		known[node.Name] = struct{}{}
	}
	var errs []error
	for _, node := range nodes {
		for _, ref := range node.References {
			if _, ok := known[ref]; !ok {
				errs = append(errs, &MissingReferenceError{Node: node.Name, Reference: ref})
			}
		}
	}
	return errors.Join(errs...)
}

// Order returns the node names in an order where every node comes after all
// nodes it references. Validate runs first, so dangling references are
// reported before ordering is attempted. The order is deterministic: nodes
// become eligible in input order. A cycle yields a CircularDependencyError.
func Order(nodes []Node) ([]string, error) {
	if err := Validate(nodes); err != nil {
		return nil, err
	}

	inDegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string, len(nodes))
	for _, node := range nodes {
		if _, ok := inDegree[node.Name]; !ok {
			inDegree[node.Name] = 0
		}
		for _, ref := range node.References {
			if ref == node.Name {
				continue
			}
			inDegree[node.Name]++
			dependents[ref] = append(dependents[ref], node.Name)
		}
	}

	var queue []string
	for _, node := range nodes {
		if inDegree[node.Name] == 0 {
			queue = append(queue, node.Name)
		}
	}

	ordered := make([]string, 0, len(nodes))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		ordered = append(ordered, name)
		for _, dep := range dependents[name] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(ordered) < len(nodes) {
		placed := make(map[string]struct{}, len(ordered))
		for _, name := range ordered {
			placed[name] = struct{}{}
		}
		var remaining []string
		for _, node := range nodes {
			if _, ok := placed[node.Name]; !ok {
				remaining = append(remaining, node.Name)
			}
		}
		sort.Strings(remaining)
		return nil, &CircularDependencyError{Remaining: remaining}
	}
	return ordered, nil
}
