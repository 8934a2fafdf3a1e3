// SPDX-License-Identifier: MPL-2.0

// Package resolve turns an explicit selection of registry items into the
// full transitive working set for one pipeline run, in deterministic
// topological order.
package resolve

import (
	"errors"
	"fmt"

	"seedr-cli/internal/dag"
	"seedr-cli/internal/registry"
	"seedr-cli/pkg/types"
)

// ErrUnknownItem is the sentinel error wrapped by UnknownItemError.
var ErrUnknownItem = errors.New("unknown item")

type (
	// UnknownItemError is returned when a selection or a dependency edge
	// references an item that does not exist in the catalog. Dependent is
	// empty when the unknown name was selected directly.
	UnknownItemError struct {
		Name      types.ItemName
		Dependent types.ItemName
	}

	// Selection is the resolved working set for one pipeline run. Items
	// holds the explicit items plus every transitive dependency, ordered so
	// each item appears strictly after all of its dependencies.
	Selection struct {
		// Explicit is the deduplicated user selection.
		Explicit []types.ItemName
		// Items is the full working set in topological order.
		Items []*registry.Item
		// AutoIncluded marks items pulled in only via dependency edges.
		// They are reported differently but behave identically downstream.
		AutoIncluded map[types.ItemName]bool
	}
)

// Error implements the error interface.
func (e *UnknownItemError) Error() string {
	if e.Dependent != "" {
		return fmt.Sprintf("unknown item %q (required by %q)", e.Name, e.Dependent)
	}
	return fmt.Sprintf("unknown item %q", e.Name)
}

// Unwrap returns ErrUnknownItem for errors.Is() compatibility.
func (e *UnknownItemError) Unwrap() error { return ErrUnknownItem }

// Resolve builds the dependency closure of the explicit selection and
// returns it in deterministic topological order. It fails with
// UnknownItemError for names missing from the catalog and with
// *dag.CycleError (carrying the exact cycle path) for cyclic dependency
// declarations. No partial selection is ever returned.
func Resolve(catalog *registry.Catalog, explicit []types.ItemName) (*Selection, error) {
	sel := &Selection{AutoIncluded: make(map[types.ItemName]bool)}

	explicitSet := make(map[types.ItemName]bool, len(explicit))
	for _, name := range explicit {
		if explicitSet[name] {
			continue
		}
		if _, ok := catalog.Get(name); !ok {
			return nil, &UnknownItemError{Name: name}
		}
		explicitSet[name] = true
		sel.Explicit = append(sel.Explicit, name)
	}

	// Collect the reachable set first so an unknown dependency is reported
	// as such, never as a missing graph node.
	graph := dag.New()
	reached := make(map[types.ItemName]bool)
	var reach func(name types.ItemName) error
	reach = func(name types.ItemName) error {
		if reached[name] {
			return nil
		}
		reached[name] = true

		item, _ := catalog.Get(name)
		graph.AddNode(name.String())
		for _, dep := range item.Dependencies {
			if _, ok := catalog.Get(dep); !ok {
				return &UnknownItemError{Name: dep, Dependent: name}
			}
			graph.AddEdge(name.String(), dep.String())
			if err := reach(dep); err != nil {
				return err
			}
		}
		return nil
	}
	for _, name := range sel.Explicit {
		if err := reach(name); err != nil {
			return nil, err
		}
	}

	order, err := graph.TopologicalSort()
	if err != nil {
		return nil, err
	}

	for _, name := range order {
		item, _ := catalog.Get(types.ItemName(name))
		sel.Items = append(sel.Items, item)
		if !explicitSet[item.Name] {
			sel.AutoIncluded[item.Name] = true
		}
	}

	return sel, nil
}
