// Package features holds the caller supplied capability overrides that
// steer export strategy selection.
package features

import (
	"fmt"
	"sort"
	"strings"
)

// Toggle is a recognized feature toggle token.
type Toggle string

const (
	// NoBulkProtocol disables Graph Store Protocol downloads, forcing every
	// graph export through a tuple query.
	NoBulkProtocol Toggle = "no-bulk-protocol"
)

var known = map[Toggle]struct{}{
	NoBulkProtocol: {},
}

// Toggles is an immutable set of enabled toggles. The zero value has
// nothing enabled.
type Toggles struct {
	set map[Toggle]struct{}
}

// New returns a toggle set containing the given toggles.
func New(toggles ...Toggle) Toggles {
	set := make(map[Toggle]struct{}, len(toggles))
	for _, t := range toggles {
		set[t] = struct{}{}
	}
	return Toggles{set: set}
}

// Parse builds a toggle set from string tokens, rejecting unknown ones.
func Parse(tokens []string) (Toggles, error) {
	toggles := make([]Toggle, 0, len(tokens))
	for _, tok := range tokens {
		t := Toggle(strings.ToLower(strings.TrimSpace(tok)))
		if t == "" {
			continue
		}
		if _, ok := known[t]; !ok {
			return Toggles{}, fmt.Errorf("unknown feature toggle: %s", tok)
		}
		toggles = append(toggles, t)
	}
	return New(toggles...), nil
}

// Enabled reports whether t is set.
func (f Toggles) Enabled(t Toggle) bool {
	_, ok := f.set[t]
	return ok
}

// List returns the enabled toggles in sorted order.
func (f Toggles) List() []string {
	out := make([]string, 0, len(f.set))
	for t := range f.set {
		out = append(out, string(t))
	}
	sort.Strings(out)
	return out
}
