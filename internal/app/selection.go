package app

import (
	"slices"

	"github.com/hylla/visning/internal/domain"
)

// Selection tracks the set of selected action ids scoped to one tab. The
// invariant callers rely on: ids are always a subset of what the active tab
// showed when they were selected, and any tab change empties the set.
type Selection struct {
	tab Tab
	ids map[string]struct{}
}

// NewSelection returns an empty selection bound to the given tab.
func NewSelection(tab Tab) *Selection {
	return &Selection{tab: tab, ids: map[string]struct{}{}}
}

// Tab returns the tab this selection is scoped to.
func (s *Selection) Tab() Tab {
	return s.tab
}

// SetTab switches tabs and clears the selection.
func (s *Selection) SetTab(tab Tab) {
	if tab == s.tab {
		return
	}
	s.tab = tab
	s.Clear()
}

// Toggle flips one id in or out of the selection.
func (s *Selection) Toggle(id string) {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return
	}
	s.ids[id] = struct{}{}
}

// SelectAll replaces the selection with exactly the visible actions — never
// the whole underlying store.
func (s *Selection) SelectAll(visible []domain.Action) {
	s.ids = make(map[string]struct{}, len(visible))
	for _, action := range visible {
		s.ids[action.ID] = struct{}{}
	}
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.ids = map[string]struct{}{}
}

// Has reports whether an id is selected.
func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len reports the selection size.
func (s *Selection) Len() int {
	return len(s.ids)
}

// IDs returns the selected ids in stable sorted order.
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Prune drops ids no longer present in the visible set, keeping the subset
// invariant after a reload or single-record mutation.
func (s *Selection) Prune(visible []domain.Action) {
	keep := make(map[string]struct{}, len(visible))
	for _, action := range visible {
		keep[action.ID] = struct{}{}
	}
	for id := range s.ids {
		if _, ok := keep[id]; !ok {
			delete(s.ids, id)
		}
	}
}
