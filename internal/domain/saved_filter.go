package domain

import (
	"slices"
	"strings"
	"time"
)

// DueBucket selects a due-date window relative to "now".
type DueBucket string

// Due buckets. Mutually exclusive; BucketAll applies no constraint.
const (
	BucketAll     DueBucket = "all"
	BucketOverdue DueBucket = "overdue"
	BucketToday   DueBucket = "today"
	BucketWeek    DueBucket = "week"
	BucketNoDate  DueBucket = "no_date"
)

var validBuckets = []DueBucket{BucketAll, BucketOverdue, BucketToday, BucketWeek, BucketNoDate}

// ScoreRange bounds lead scores inclusively.
type ScoreRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// FilterCriteria is the full bundle of queue filter inputs. Zero value means
// "no constraint" for every category.
type FilterCriteria struct {
	Query      string       `json:"query,omitempty"`
	Sources    []Source     `json:"sources,omitempty"`
	Priorities []Priority   `json:"priorities,omitempty"`
	Types      []ActionType `json:"types,omitempty"`
	Assignees  []string     `json:"assignees,omitempty"`
	DueBucket  DueBucket    `json:"due_bucket,omitempty"`
	LeadScore  *ScoreRange  `json:"lead_score,omitempty"`
	HasNotes   *bool        `json:"has_notes,omitempty"`
}

// IsZero reports whether no criterion is active.
func (c FilterCriteria) IsZero() bool {
	return strings.TrimSpace(c.Query) == "" &&
		len(c.Sources) == 0 &&
		len(c.Priorities) == 0 &&
		len(c.Types) == 0 &&
		len(c.Assignees) == 0 &&
		(c.DueBucket == "" || c.DueBucket == BucketAll) &&
		c.LeadScore == nil &&
		c.HasNotes == nil
}

// Clone returns a deep copy so callers can hold criteria without aliasing.
func (c FilterCriteria) Clone() FilterCriteria {
	out := c
	out.Sources = slices.Clone(c.Sources)
	out.Priorities = slices.Clone(c.Priorities)
	out.Types = slices.Clone(c.Types)
	out.Assignees = slices.Clone(c.Assignees)
	if c.LeadScore != nil {
		r := *c.LeadScore
		out.LeadScore = &r
	}
	if c.HasNotes != nil {
		v := *c.HasNotes
		out.HasNotes = &v
	}
	return out
}

// SavedFilter is a named, persisted criteria bundle. Entries are replaced
// wholesale, never edited in place.
type SavedFilter struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Criteria  FilterCriteria `json:"criteria"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewSavedFilter validates and snapshots the criteria under a fresh name.
// Names are display labels and are not required to be unique.
func NewSavedFilter(id, name string, criteria FilterCriteria, now time.Time) (SavedFilter, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return SavedFilter{}, ErrInvalidID
	}
	if name == "" {
		return SavedFilter{}, ErrInvalidName
	}
	if criteria.DueBucket == "" {
		criteria.DueBucket = BucketAll
	}
	if !slices.Contains(validBuckets, criteria.DueBucket) {
		return SavedFilter{}, ErrInvalidBucket
	}
	return SavedFilter{
		ID:        id,
		Name:      name,
		Criteria:  criteria.Clone(),
		CreatedAt: now.UTC().Truncate(time.Second),
	}, nil
}
