// SPDX-License-Identifier: MPL-2.0

// Package merge combines the configuration fragments of mcp-server items
// into one document, recording every key-level collision with full
// provenance instead of silently letting the last writer win.
package merge

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"seedr-cli/internal/registry"
	"seedr-cli/pkg/types"
)

type (
	// Document is the accumulated merge output.
	Document map[string]any

	// Conflict records one detected collision: two items defined different
	// values at the same key path. ItemA contributed first (in resolution
	// order), ItemB second.
	Conflict struct {
		Path   []string
		ItemA  types.ItemName
		ItemB  types.ItemName
		ValueA any
		ValueB any
	}

	// Result carries the merged document and the exhaustive conflict list.
	Result struct {
		Document  Document
		Conflicts []Conflict
	}

	// merger holds the traversal state for one merge run.
	merger struct {
		doc Document
		// owners maps a path key to the item whose value currently sits at
		// that path, for conflict provenance.
		owners    map[string]types.ItemName
		conflicts []Conflict
		force     bool
	}
)

// pathSep joins path segments into owner-map keys. A non-printing separator
// so document keys containing dots cannot collide.
const pathSep = "\x1f"

// PathString renders the conflict path for display, e.g. "mcpServers.serena.command".
func (c Conflict) PathString() string {
	return strings.Join(c.Path, ".")
}

// Merge folds the fragments of all mcp-server items in items into a single
// document, processing fragments in the given (resolution) order. Items of
// other kinds are skipped. The returned conflict list is exhaustive across
// the whole document tree.
//
// Collision rules, applied per key path:
//   - key absent in the output: insert
//   - both sides nested objects: recurse
//   - both sides lists: concatenate, dropping exact duplicates
//     (order-preserving, first occurrence wins)
//   - equal values: no conflict (idempotent)
//   - differing values: record a Conflict; the first-seen value is kept
//     unless force is set, in which case the later value overwrites (the
//     conflict is still recorded so provenance is never lost)
func Merge(items []*registry.Item, force bool) *Result {
	m := &merger{
		doc:    make(Document),
		owners: make(map[string]types.ItemName),
		force:  force,
	}

	for _, item := range items {
		fragment := item.Fragment()
		if fragment == nil {
			continue
		}
		m.mergeMap(nil, m.doc, map[string]any(fragment), item.Name)
	}

	return &Result{Document: m.doc, Conflicts: m.conflicts}
}

// mergeMap folds src into dst at the given path. Keys are walked in sorted
// order so conflict reporting is deterministic.
func (m *merger) mergeMap(path []string, dst, src map[string]any, item types.ItemName) {
	for _, key := range slices.Sorted(maps.Keys(src)) {
		keyPath := append(slices.Clone(path), key)
		incoming := src[key]

		existing, present := dst[key]
		if !present {
			// Copy on insertion: the document must never alias fragment
			// data, or later items would recurse into and write through the
			// catalog's immutable fragments.
			dst[key] = copyValue(incoming)
			m.recordOwners(keyPath, incoming, item)
			continue
		}

		existingMap, existingIsMap := existing.(map[string]any)
		incomingMap, incomingIsMap := incoming.(map[string]any)
		if existingIsMap && incomingIsMap {
			m.mergeMap(keyPath, existingMap, incomingMap, item)
			continue
		}

		existingList, existingIsList := existing.([]any)
		incomingList, incomingIsList := incoming.([]any)
		if existingIsList && incomingIsList {
			dst[key] = mergeLists(existingList, incomingList)
			continue
		}

		if reflect.DeepEqual(existing, incoming) {
			// Two items agreeing on a value is not an error.
			continue
		}

		m.conflicts = append(m.conflicts, Conflict{
			Path:   keyPath,
			ItemA:  m.owners[strings.Join(keyPath, pathSep)],
			ItemB:  item,
			ValueA: existing,
			ValueB: incoming,
		})
		if m.force {
			dst[key] = copyValue(incoming)
			m.recordOwners(keyPath, incoming, item)
		}
	}
}

// recordOwners remembers which item contributed the value at path, walking
// nested objects so later collisions deep inside an inserted subtree still
// name the right first contributor.
func (m *merger) recordOwners(path []string, value any, item types.ItemName) {
	m.owners[strings.Join(path, pathSep)] = item
	if nested, ok := value.(map[string]any); ok {
		for key, v := range nested {
			m.recordOwners(append(slices.Clone(path), key), v, item)
		}
	}
}

// mergeLists concatenates b onto a, removing exact duplicates while keeping
// the first occurrence of each element. Elements of a already belong to the
// document; elements taken from b are copied so the result never aliases
// the contributing fragment.
func mergeLists(a, b []any) []any {
	out := make([]any, 0, len(a)+len(b))
	for _, v := range a {
		if !containsValue(out, v) {
			out = append(out, v)
		}
	}
	for _, v := range b {
		if !containsValue(out, v) {
			out = append(out, copyValue(v))
		}
	}
	return out
}

// copyValue deep-copies maps and slices; scalars are returned as-is.
func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = copyValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = copyValue(val)
		}
		return out
	default:
		return v
	}
}

func containsValue(list []any, v any) bool {
	for _, existing := range list {
		if reflect.DeepEqual(existing, v) {
			return true
		}
	}
	return false
}

// MarshalCanonical serializes the document as indented JSON with sorted
// keys, so identical inputs always produce byte-identical output.
func (d Document) MarshalCanonical() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize merged document: %w", err)
	}
	return append(data, '\n'), nil
}
