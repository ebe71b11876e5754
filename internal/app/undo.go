package app

import (
	"time"

	"github.com/hylla/visning/internal/domain"
)

// DefaultUndoCapacity bounds the undo stack when config does not override it.
const DefaultUndoCapacity = 20

// UndoEntry captures the full prior state of every record touched by one
// logical mutation, single or bulk. Full snapshots avoid double-applying
// partial deltas on undo.
type UndoEntry struct {
	Label     string
	At        time.Time
	Snapshots []domain.Action
}

// undoStack is a fixed-capacity LIFO of undo entries. Pushing past capacity
// silently evicts the oldest entry; that undo capability is lost by contract.
// No redo.
type undoStack struct {
	entries  []UndoEntry
	capacity int
}

func newUndoStack(capacity int) *undoStack {
	if capacity <= 0 {
		capacity = DefaultUndoCapacity
	}
	return &undoStack{capacity: capacity}
}

func (s *undoStack) push(entry UndoEntry) {
	if len(entry.Snapshots) == 0 {
		return
	}
	s.entries = append(s.entries, entry)
	if len(s.entries) > s.capacity {
		s.entries = s.entries[len(s.entries)-s.capacity:]
	}
}

// pop removes and returns the most recent entry.
func (s *undoStack) pop() (UndoEntry, bool) {
	if len(s.entries) == 0 {
		return UndoEntry{}, false
	}
	entry := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return entry, true
}

func (s *undoStack) depth() int {
	return len(s.entries)
}
