// Package selection holds the set of app and category identifiers the user
// wants restricted.
package selection

import (
	"slices"
	"strings"
)

// CategoryPrefix marks an identifier that names a whole app category.
const CategoryPrefix = "category:"

// Set is a normalized list of identifiers: trimmed, deduplicated, sorted.
type Set struct {
	IDs []string `json:"ids"`
}

// New builds a normalized Set from ids.
func New(ids ...string) Set {
	return Set{IDs: Normalize(ids)}
}

// Normalize trims, drops blanks, deduplicates and sorts ids.
func Normalize(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (s Set) Empty() bool { return len(s.IDs) == 0 }

func (s Set) Len() int { return len(s.IDs) }

func (s Set) Contains(id string) bool {
	_, ok := slices.BinarySearch(s.IDs, strings.TrimSpace(id))
	return ok
}

// Add returns a set with ids included.
func (s Set) Add(ids ...string) Set {
	return New(append(slices.Clone(s.IDs), ids...)...)
}

// Remove returns a set without ids.
func (s Set) Remove(ids ...string) Set {
	drop := New(ids...)
	out := make([]string, 0, len(s.IDs))
	for _, id := range s.IDs {
		if !drop.Contains(id) {
			out = append(out, id)
		}
	}
	return Set{IDs: out}
}

// Toggle adds id when absent and removes it when present.
func (s Set) Toggle(id string) Set {
	if s.Contains(id) {
		return s.Remove(id)
	}
	return s.Add(id)
}

// Apps returns the plain app identifiers.
func (s Set) Apps() []string {
	var out []string
	for _, id := range s.IDs {
		if !strings.HasPrefix(id, CategoryPrefix) {
			out = append(out, id)
		}
	}
	return out
}

// Categories returns category names with the prefix stripped.
func (s Set) Categories() []string {
	var out []string
	for _, id := range s.IDs {
		if name, ok := strings.CutPrefix(id, CategoryPrefix); ok {
			out = append(out, name)
		}
	}
	return out
}
