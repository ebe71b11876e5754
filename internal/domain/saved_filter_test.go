package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewSavedFilterValidation(t *testing.T) {
	now := time.Now()
	if _, err := NewSavedFilter("", "hot leads", FilterCriteria{}, now); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := NewSavedFilter("f1", "   ", FilterCriteria{}, now); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if _, err := NewSavedFilter("f1", "x", FilterCriteria{DueBucket: "someday"}, now); !errors.Is(err, ErrInvalidBucket) {
		t.Fatalf("expected ErrInvalidBucket, got %v", err)
	}
}

func TestNewSavedFilterSnapshotsCriteria(t *testing.T) {
	now := time.Now()
	criteria := FilterCriteria{
		Sources:    []Source{SourceWhatsApp},
		Priorities: []Priority{PriorityUrgent},
	}
	f, err := NewSavedFilter("f1", "urgent whatsapp", criteria, now)
	if err != nil {
		t.Fatalf("NewSavedFilter() error = %v", err)
	}
	criteria.Sources[0] = SourceImport
	if f.Criteria.Sources[0] != SourceWhatsApp {
		t.Fatal("saved filter must deep-copy criteria")
	}
	if f.Criteria.DueBucket != BucketAll {
		t.Fatalf("expected bucket defaulted to all, got %s", f.Criteria.DueBucket)
	}
}

func TestFilterCriteriaIsZero(t *testing.T) {
	if !(FilterCriteria{}).IsZero() {
		t.Fatal("zero value must report zero")
	}
	if !(FilterCriteria{DueBucket: BucketAll}).IsZero() {
		t.Fatal("bucket all must still report zero")
	}
	has := true
	if (FilterCriteria{HasNotes: &has}).IsZero() {
		t.Fatal("has-notes flag must report non-zero")
	}
}
