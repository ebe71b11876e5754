package app

import (
	"time"

	"github.com/hylla/visning/internal/domain"
)

// Tab scopes the queue view to one acquisition channel, the full queue, or
// resolved history.
type Tab string

// Tabs in display order; one per source plus "all" and "history".
const (
	TabAll     Tab = "all"
	TabHistory Tab = "history"
)

// Tabs lists every tab in display order.
func Tabs() []Tab {
	out := []Tab{TabAll}
	for _, source := range domain.Sources() {
		out = append(out, Tab(source))
	}
	return append(out, TabHistory)
}

// ViewMode switches between dense and detailed rows.
type ViewMode string

// View modes.
const (
	ViewCompact  ViewMode = "compact"
	ViewExpanded ViewMode = "expanded"
)

// ViewOptions control how the composer lays out a tab.
type ViewOptions struct {
	Mode        ViewMode
	GroupByDate bool
}

// Section is one contiguous run of rows in a composed view. Group is empty
// when date grouping is off.
type Section struct {
	Group   DateGroup
	Actions []domain.Action
}

// QueueView is the fully composed presentation of one tab.
type QueueView struct {
	Tab       Tab
	Mode      ViewMode
	Grouped   bool
	Sections  []Section
	TabCounts map[Tab]int
	Total     int
}

// ComposeView filters, sorts, and groups actions for one tab. History shows
// resolved records; every other tab shows open records narrowed by source and
// the active criteria.
func ComposeView(actions []domain.Action, tab Tab, criteria domain.FilterCriteria, opts ViewOptions, now time.Time) QueueView {
	if opts.Mode == "" {
		opts.Mode = ViewCompact
	}

	visible := scopeToTab(actions, tab)
	visible = FilterActions(visible, criteria, now)
	visible = SortActions(visible)

	view := QueueView{
		Tab:       tab,
		Mode:      opts.Mode,
		Grouped:   opts.GroupByDate,
		TabCounts: countByTab(actions),
		Total:     len(visible),
	}

	if !opts.GroupByDate || tab == TabHistory {
		view.Grouped = false
		view.Sections = []Section{{Actions: visible}}
		return view
	}

	grouped := GroupByDueDate(visible, now)
	for _, group := range DateGroups() {
		rows := grouped[group]
		if len(rows) == 0 {
			continue
		}
		view.Sections = append(view.Sections, Section{Group: group, Actions: rows})
	}
	return view
}

// scopeToTab narrows the store to one tab's population.
func scopeToTab(actions []domain.Action, tab Tab) []domain.Action {
	out := make([]domain.Action, 0, len(actions))
	for _, action := range actions {
		switch tab {
		case TabHistory:
			if action.IsResolved() {
				out = append(out, action)
			}
		case TabAll, "":
			if action.IsOpen() {
				out = append(out, action)
			}
		default:
			if action.IsOpen() && Tab(action.Source) == tab {
				out = append(out, action)
			}
		}
	}
	return out
}

// countByTab computes the badge counts shown on the tab bar.
func countByTab(actions []domain.Action) map[Tab]int {
	counts := map[Tab]int{}
	for _, action := range actions {
		if action.IsResolved() {
			counts[TabHistory]++
			continue
		}
		if action.IsOpen() {
			counts[TabAll]++
			counts[Tab(action.Source)]++
		}
	}
	return counts
}
