package app

import (
	"testing"
	"time"

	"github.com/hylla/visning/internal/domain"
)

var filterNow = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func actionWith(id string, mutate func(*domain.Action)) domain.Action {
	a := domain.Action{
		ID:           id,
		CustomerID:   "c-" + id,
		CustomerName: "Customer " + id,
		Type:         domain.TypeFollowUp,
		Title:        "follow up " + id,
		Priority:     domain.PriorityMedium,
		Status:       domain.StatusPending,
		Source:       domain.SourceInquiry,
		CreatedAt:    filterNow.Add(-24 * time.Hour),
	}
	if mutate != nil {
		mutate(&a)
	}
	return a
}

func dueIn(d time.Duration) *time.Time {
	ts := filterNow.Add(d)
	return &ts
}

func TestFilterEmptyCriteriaKeepsMembership(t *testing.T) {
	actions := []domain.Action{actionWith("a1", nil), actionWith("a2", nil)}
	got := FilterActions(actions, domain.FilterCriteria{}, filterNow)
	if len(got) != 2 {
		t.Fatalf("empty criteria must keep all records, got %d", len(got))
	}
}

func TestFilterSourcesOrWithinCategory(t *testing.T) {
	actions := []domain.Action{
		actionWith("a1", func(a *domain.Action) { a.Source = domain.SourceWhatsApp }),
		actionWith("a2", func(a *domain.Action) { a.Source = domain.SourceInquiry }),
		actionWith("a3", func(a *domain.Action) { a.Source = domain.SourceImport }),
	}
	criteria := domain.FilterCriteria{Sources: []domain.Source{domain.SourceWhatsApp, domain.SourceInquiry}}
	got := FilterActions(actions, criteria, filterNow)
	if len(got) != 2 {
		t.Fatalf("expected whatsapp OR inquiry, got %d records", len(got))
	}
}

func TestFilterCategoriesAndAcross(t *testing.T) {
	actions := []domain.Action{
		actionWith("a1", func(a *domain.Action) {
			a.Source = domain.SourceWhatsApp
			a.Priority = domain.PriorityUrgent
		}),
		actionWith("a2", func(a *domain.Action) { a.Source = domain.SourceWhatsApp }),
	}
	criteria := domain.FilterCriteria{
		Sources:    []domain.Source{domain.SourceWhatsApp},
		Priorities: []domain.Priority{domain.PriorityUrgent},
	}
	got := FilterActions(actions, criteria, filterNow)
	if len(got) != 1 || got[0].ID != "a1" {
		t.Fatalf("expected only a1, got %v", got)
	}
}

func TestFilterQueryMatchesCustomerName(t *testing.T) {
	actions := []domain.Action{
		actionWith("a1", func(a *domain.Action) { a.CustomerName = "Greta Lindqvist" }),
		actionWith("a2", nil),
	}
	got := FilterActions(actions, domain.FilterCriteria{Query: "lindq"}, filterNow)
	if len(got) != 1 || got[0].ID != "a1" {
		t.Fatalf("expected customer-name match, got %v", got)
	}
}

func TestFilterDueBuckets(t *testing.T) {
	overdue := actionWith("a1", func(a *domain.Action) { a.DueAt = dueIn(-25 * time.Hour) })
	today := actionWith("a2", func(a *domain.Action) { a.DueAt = dueIn(3 * time.Hour) })
	week := actionWith("a3", func(a *domain.Action) { a.DueAt = dueIn(4 * 24 * time.Hour) })
	later := actionWith("a4", func(a *domain.Action) { a.DueAt = dueIn(30 * 24 * time.Hour) })
	noDate := actionWith("a5", nil)
	actions := []domain.Action{overdue, today, week, later, noDate}

	cases := []struct {
		bucket domain.DueBucket
		want   []string
	}{
		{domain.BucketOverdue, []string{"a1"}},
		{domain.BucketToday, []string{"a2"}},
		{domain.BucketWeek, []string{"a2", "a3"}},
		{domain.BucketNoDate, []string{"a5"}},
		{domain.BucketAll, []string{"a1", "a2", "a3", "a4", "a5"}},
	}
	for _, tc := range cases {
		t.Run(string(tc.bucket), func(t *testing.T) {
			got := FilterActions(actions, domain.FilterCriteria{DueBucket: tc.bucket}, filterNow)
			if len(got) != len(tc.want) {
				t.Fatalf("bucket %s: expected %v, got %d records", tc.bucket, tc.want, len(got))
			}
			for i, id := range tc.want {
				if got[i].ID != id {
					t.Fatalf("bucket %s: expected %v, got %s at %d", tc.bucket, tc.want, got[i].ID, i)
				}
			}
		})
	}
}

func TestFilterLeadScoreRange(t *testing.T) {
	score := func(n int) *int { return &n }
	actions := []domain.Action{
		actionWith("a1", func(a *domain.Action) { a.Metadata.LeadScore = score(80) }),
		actionWith("a2", func(a *domain.Action) { a.Metadata.LeadScore = score(20) }),
		actionWith("a3", nil),
	}
	criteria := domain.FilterCriteria{LeadScore: &domain.ScoreRange{Min: 50, Max: 100}}
	got := FilterActions(actions, criteria, filterNow)
	if len(got) != 1 || got[0].ID != "a1" {
		t.Fatalf("expected only the scored-80 record, got %v", got)
	}
}

func TestFilterHasNotesTriState(t *testing.T) {
	noted := actionWith("a1", func(a *domain.Action) {
		a.Metadata.Notes = []domain.Note{{Text: "called twice", CreatedAt: filterNow}}
	})
	plain := actionWith("a2", nil)
	actions := []domain.Action{noted, plain}

	yes, no := true, false
	if got := FilterActions(actions, domain.FilterCriteria{HasNotes: &yes}, filterNow); len(got) != 1 || got[0].ID != "a1" {
		t.Fatalf("has-notes=true: got %v", got)
	}
	if got := FilterActions(actions, domain.FilterCriteria{HasNotes: &no}, filterNow); len(got) != 1 || got[0].ID != "a2" {
		t.Fatalf("has-notes=false: got %v", got)
	}
	if got := FilterActions(actions, domain.FilterCriteria{}, filterNow); len(got) != 2 {
		t.Fatalf("has-notes unset: got %d", len(got))
	}
}

func TestSortPriorityThenDueThenCreated(t *testing.T) {
	actions := []domain.Action{
		actionWith("a2", func(a *domain.Action) { a.Priority = domain.PriorityLow }),
		actionWith("a1", func(a *domain.Action) { a.Priority = domain.PriorityUrgent }),
		actionWith("a4", func(a *domain.Action) { a.Priority = domain.PriorityHigh }),
		actionWith("a3", func(a *domain.Action) {
			a.Priority = domain.PriorityHigh
			a.DueAt = dueIn(time.Hour)
		}),
	}
	got := SortActions(actions)
	wantOrder := []string{"a1", "a3", "a4", "a2"}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Fatalf("expected order %v, got %s at %d", wantOrder, got[i].ID, i)
		}
	}
	// Input untouched.
	if actions[0].ID != "a2" {
		t.Fatal("SortActions must not mutate its input")
	}
}

func TestGroupByDueDateIsExhaustivePartition(t *testing.T) {
	actions := []domain.Action{
		actionWith("a1", func(a *domain.Action) { a.DueAt = dueIn(-24 * time.Hour) }),
		actionWith("a2", func(a *domain.Action) { a.DueAt = dueIn(2 * time.Hour) }),
		actionWith("a3", func(a *domain.Action) { a.DueAt = dueIn(26 * time.Hour) }),
		actionWith("a4", func(a *domain.Action) { a.DueAt = dueIn(5 * 24 * time.Hour) }),
		actionWith("a5", func(a *domain.Action) { a.DueAt = dueIn(60 * 24 * time.Hour) }),
		actionWith("a6", nil),
	}
	groups := GroupByDueDate(actions, filterNow)
	total := 0
	for _, rows := range groups {
		total += len(rows)
	}
	if total != len(actions) {
		t.Fatalf("partition must be exhaustive: %d of %d grouped", total, len(actions))
	}
	want := map[string]DateGroup{
		"a1": GroupOverdue,
		"a2": GroupToday,
		"a3": GroupTomorrow,
		"a4": GroupThisWeek,
		"a5": GroupLater,
		"a6": GroupNoDue,
	}
	for _, action := range actions {
		if got := DateGroupOf(action, filterNow); got != want[action.ID] {
			t.Fatalf("%s: expected %s, got %s", action.ID, want[action.ID], got)
		}
	}
}

func TestOverdueYesterdayInExactlyOneGroup(t *testing.T) {
	yesterday := actionWith("a1", func(a *domain.Action) { a.DueAt = dueIn(-24 * time.Hour) })
	hits := 0
	for _, group := range DateGroups() {
		if DateGroupOf(yesterday, filterNow) == group {
			hits++
		}
	}
	if hits != 1 || DateGroupOf(yesterday, filterNow) != GroupOverdue {
		t.Fatalf("yesterday-due record must be exactly overdue, hits=%d", hits)
	}
}
