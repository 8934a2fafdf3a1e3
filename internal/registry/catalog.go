// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"errors"
	"fmt"
	"slices"

	"seedr-cli/pkg/types"
)

// ErrDuplicateItem is the sentinel error wrapped by DuplicateItemError.
var ErrDuplicateItem = errors.New("duplicate item")

type (
	// DuplicateItemError is returned when two registry entries declare the
	// same item name.
	DuplicateItemError struct {
		Name types.ItemName
	}

	// Catalog is the read-only, in-memory collection of validated items,
	// keyed by name. It is built once per run and never mutated afterwards.
	Catalog struct {
		items map[types.ItemName]*Item
		names []types.ItemName // sorted
	}
)

// Error implements the error interface.
func (e *DuplicateItemError) Error() string {
	return fmt.Sprintf("duplicate item %q in registry", e.Name)
}

// Unwrap returns ErrDuplicateItem for errors.Is() compatibility.
func (e *DuplicateItemError) Unwrap() error { return ErrDuplicateItem }

// NewCatalog builds a catalog from validated items. Item names must be unique.
func NewCatalog(items []*Item) (*Catalog, error) {
	c := &Catalog{
		items: make(map[types.ItemName]*Item, len(items)),
		names: make([]types.ItemName, 0, len(items)),
	}
	for _, item := range items {
		if _, exists := c.items[item.Name]; exists {
			return nil, &DuplicateItemError{Name: item.Name}
		}
		c.items[item.Name] = item
		c.names = append(c.names, item.Name)
	}
	slices.Sort(c.names)
	return c, nil
}

// Get returns the item with the given name, if present.
func (c *Catalog) Get(name types.ItemName) (*Item, bool) {
	item, ok := c.items[name]
	return item, ok
}

// Names returns all item names in alphabetical order.
func (c *Catalog) Names() []types.ItemName {
	return slices.Clone(c.names)
}

// Items returns all items in alphabetical name order.
func (c *Catalog) Items() []*Item {
	out := make([]*Item, 0, len(c.names))
	for _, name := range c.names {
		out = append(out, c.items[name])
	}
	return out
}

// Len returns the number of items in the catalog.
func (c *Catalog) Len() int { return len(c.items) }
