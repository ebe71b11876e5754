package app

import (
	"slices"
	"strings"
	"time"

	"github.com/hylla/visning/internal/domain"
)

// DateGroup partitions actions by due date for the grouped board view.
type DateGroup string

// Date groups in display order. Together they are exhaustive and mutually
// exclusive over any input set.
const (
	GroupOverdue  DateGroup = "overdue"
	GroupToday    DateGroup = "today"
	GroupTomorrow DateGroup = "tomorrow"
	GroupThisWeek DateGroup = "this_week"
	GroupLater    DateGroup = "later"
	GroupNoDue    DateGroup = "no_due"
)

// DateGroups lists every group in display order.
func DateGroups() []DateGroup {
	return []DateGroup{GroupOverdue, GroupToday, GroupTomorrow, GroupThisWeek, GroupLater, GroupNoDue}
}

// FilterActions returns the subset of actions matching every active criterion.
// Categories combine with AND; values within one category combine with OR.
// Pure: the input slice is never mutated.
func FilterActions(actions []domain.Action, criteria domain.FilterCriteria, now time.Time) []domain.Action {
	query := strings.TrimSpace(strings.ToLower(criteria.Query))
	out := make([]domain.Action, 0, len(actions))
	for _, action := range actions {
		if len(criteria.Sources) > 0 && !slices.Contains(criteria.Sources, action.Source) {
			continue
		}
		if len(criteria.Priorities) > 0 && !slices.Contains(criteria.Priorities, action.Priority) {
			continue
		}
		if len(criteria.Types) > 0 && !slices.Contains(criteria.Types, action.Type) {
			continue
		}
		if len(criteria.Assignees) > 0 && !slices.Contains(criteria.Assignees, action.AssignedTo) {
			continue
		}
		if !matchesBucket(action, criteria.DueBucket, now) {
			continue
		}
		if criteria.LeadScore != nil {
			score := action.Metadata.LeadScore
			if score == nil || *score < criteria.LeadScore.Min || *score > criteria.LeadScore.Max {
				continue
			}
		}
		if criteria.HasNotes != nil && action.Metadata.HasNotes() != *criteria.HasNotes {
			continue
		}
		if query != "" && !matchesQuery(action, query) {
			continue
		}
		out = append(out, action)
	}
	return out
}

// SortActions orders by priority descending, then due date ascending with
// missing dates last, then creation time, then id. Deterministic for equal
// priorities.
func SortActions(actions []domain.Action) []domain.Action {
	out := slices.Clone(actions)
	slices.SortStableFunc(out, func(a, b domain.Action) int {
		if r := a.Priority.Rank() - b.Priority.Rank(); r != 0 {
			return r
		}
		if r := compareDueAt(a.DueAt, b.DueAt); r != 0 {
			return r
		}
		if r := a.CreatedAt.Compare(b.CreatedAt); r != 0 {
			return r
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// GroupByDueDate partitions actions into date groups relative to now. Every
// input action lands in exactly one group.
func GroupByDueDate(actions []domain.Action, now time.Time) map[DateGroup][]domain.Action {
	out := map[DateGroup][]domain.Action{}
	for _, action := range actions {
		group := DateGroupOf(action, now)
		out[group] = append(out[group], action)
	}
	return out
}

// DateGroupOf resolves the single date group an action belongs to.
func DateGroupOf(action domain.Action, now time.Time) DateGroup {
	if action.DueAt == nil {
		return GroupNoDue
	}
	due := *action.DueAt
	switch {
	case due.Before(now):
		return GroupOverdue
	case sameDay(due, now):
		return GroupToday
	case sameDay(due, now.AddDate(0, 0, 1)):
		return GroupTomorrow
	case due.Before(startOfDay(now).AddDate(0, 0, 7)):
		return GroupThisWeek
	default:
		return GroupLater
	}
}

// matchesBucket evaluates the mutually exclusive due-date filter buckets.
func matchesBucket(action domain.Action, bucket domain.DueBucket, now time.Time) bool {
	switch bucket {
	case "", domain.BucketAll:
		return true
	case domain.BucketNoDate:
		return action.DueAt == nil
	case domain.BucketOverdue:
		return action.DueAt != nil && action.DueAt.Before(now)
	case domain.BucketToday:
		return action.DueAt != nil && sameDay(*action.DueAt, now)
	case domain.BucketWeek:
		if action.DueAt == nil {
			return false
		}
		due := *action.DueAt
		return !due.Before(startOfDay(now)) && due.Before(startOfDay(now).AddDate(0, 0, 7))
	default:
		return false
	}
}

func matchesQuery(action domain.Action, query string) bool {
	return strings.Contains(strings.ToLower(action.Title), query) ||
		strings.Contains(strings.ToLower(action.Description), query) ||
		strings.Contains(strings.ToLower(action.CustomerName), query)
}

func compareDueAt(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return a.Compare(*b)
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
