package domain

import (
	"slices"
	"strings"
	"time"
)

// ActionType classifies what kind of follow-up an action asks for.
type ActionType string

// Action types recognized by the queue.
const (
	TypeNewInquiry       ActionType = "new_inquiry"
	TypeCallbackRequest  ActionType = "callback_request"
	TypePropertyMatch    ActionType = "property_match"
	TypeFollowUp         ActionType = "follow_up"
	TypeDocumentRequired ActionType = "document_required"
	TypePaymentDue       ActionType = "payment_due"
	TypeSiteVisit        ActionType = "site_visit"
	TypeWhatsAppIncoming ActionType = "whatsapp_incoming"
	TypeAIRecommended    ActionType = "ai_recommended"
)

var validTypes = []ActionType{
	TypeNewInquiry,
	TypeCallbackRequest,
	TypePropertyMatch,
	TypeFollowUp,
	TypeDocumentRequired,
	TypePaymentDue,
	TypeSiteVisit,
	TypeWhatsAppIncoming,
	TypeAIRecommended,
}

// Priority orders actions by urgency.
type Priority string

// Priority values from most to least urgent.
const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var validPriorities = []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}

// priorityRank maps priorities to sortable weights; lower sorts first.
var priorityRank = map[Priority]int{
	PriorityUrgent: 0,
	PriorityHigh:   1,
	PriorityMedium: 2,
	PriorityLow:    3,
}

// Rank returns the sortable weight for a priority. Unknown priorities sort last.
func (p Priority) Rank() int {
	rank, ok := priorityRank[p]
	if !ok {
		return len(priorityRank)
	}
	return rank
}

// Status represents the lifecycle state of an action.
type Status string

// Status values.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusDismissed  Status = "dismissed"
	StatusSnoozed    Status = "snoozed"
)

var validStatuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusDismissed, StatusSnoozed}

// Source identifies the acquisition channel an action originated from.
// It never changes after creation.
type Source string

// Source values.
const (
	SourceWhatsApp Source = "whatsapp"
	SourceInquiry  Source = "inquiry"
	SourceManual   Source = "manual"
	SourceReferral Source = "referral"
	SourceImport   Source = "import"
)

var validSources = []Source{SourceWhatsApp, SourceInquiry, SourceManual, SourceReferral, SourceImport}

// Sources lists every recognized source in display order.
func Sources() []Source {
	return slices.Clone(validSources)
}

// Note is one free-text annotation attached to an action.
type Note struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// PropertySnapshot carries denormalized listing fields for display.
type PropertySnapshot struct {
	PropertyID string `json:"property_id,omitempty"`
	Address    string `json:"address,omitempty"`
	PriceCents int64  `json:"price_cents,omitempty"`
	Rooms      int    `json:"rooms,omitempty"`
}

// ActionMetadata is the open bag of per-action extras.
type ActionMetadata struct {
	Notes     []Note            `json:"notes,omitempty"`
	Property  *PropertySnapshot `json:"property,omitempty"`
	LeadScore *int              `json:"lead_score,omitempty"`
}

// HasNotes reports whether at least one note is attached.
func (m ActionMetadata) HasNotes() bool {
	return len(m.Notes) > 0
}

// Action is one unit of required follow-up tied to a customer.
type Action struct {
	ID             string
	CustomerID     string
	CustomerName   string
	Type           ActionType
	Title          string
	Description    string
	Priority       Priority
	Status         Status
	Source         Source
	DueAt          *time.Time
	AssignedTo     string
	AssignedToName string
	Metadata       ActionMetadata
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
	CompletedBy    string
}

// ActionInput carries the fields required to construct an action.
type ActionInput struct {
	ID             string
	CustomerID     string
	CustomerName   string
	Type           ActionType
	Title          string
	Description    string
	Priority       Priority
	Source         Source
	DueAt          *time.Time
	AssignedTo     string
	AssignedToName string
	Metadata       ActionMetadata
}

// NewAction validates input and returns a pending action.
func NewAction(in ActionInput, now time.Time) (Action, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.CustomerID = strings.TrimSpace(in.CustomerID)
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.AssignedTo = strings.TrimSpace(in.AssignedTo)
	in.AssignedToName = strings.TrimSpace(in.AssignedToName)

	if in.ID == "" {
		return Action{}, ErrInvalidID
	}
	if in.CustomerID == "" {
		return Action{}, ErrInvalidCustomerID
	}
	if in.Title == "" {
		return Action{}, ErrInvalidTitle
	}
	if !slices.Contains(validTypes, in.Type) {
		return Action{}, ErrInvalidType
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !slices.Contains(validPriorities, in.Priority) {
		return Action{}, ErrInvalidPriority
	}
	if !slices.Contains(validSources, in.Source) {
		return Action{}, ErrInvalidSource
	}

	ts := now.UTC()
	return Action{
		ID:             in.ID,
		CustomerID:     in.CustomerID,
		CustomerName:   in.CustomerName,
		Type:           in.Type,
		Title:          in.Title,
		Description:    in.Description,
		Priority:       in.Priority,
		Status:         StatusPending,
		Source:         in.Source,
		DueAt:          normalizeDueAt(in.DueAt),
		AssignedTo:     in.AssignedTo,
		AssignedToName: in.AssignedToName,
		Metadata:       normalizeMetadata(in.Metadata),
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}, nil
}

// IsOpen reports whether the action still requires attention.
func (a Action) IsOpen() bool {
	switch a.Status {
	case StatusPending, StatusInProgress, StatusSnoozed:
		return true
	default:
		return false
	}
}

// IsResolved reports whether the action has been completed or dismissed.
func (a Action) IsResolved() bool {
	return a.Status == StatusCompleted || a.Status == StatusDismissed
}

// Complete marks an open action completed and stamps CompletedAt.
func (a *Action) Complete(by string, now time.Time) error {
	if !a.IsOpen() {
		return ErrNotOpen
	}
	ts := now.UTC()
	a.Status = StatusCompleted
	a.CompletedAt = &ts
	a.CompletedBy = strings.TrimSpace(by)
	a.UpdatedAt = ts
	return nil
}

// Dismiss marks an open action dismissed and stamps CompletedAt.
func (a *Action) Dismiss(by string, now time.Time) error {
	if !a.IsOpen() {
		return ErrNotOpen
	}
	ts := now.UTC()
	a.Status = StatusDismissed
	a.CompletedAt = &ts
	a.CompletedBy = strings.TrimSpace(by)
	a.UpdatedAt = ts
	return nil
}

// Snooze defers an open action until the given instant and moves its due date.
// CompletedAt stays clear.
func (a *Action) Snooze(until, now time.Time) error {
	if !a.IsOpen() {
		return ErrNotOpen
	}
	if until.Before(now) {
		return ErrInvalidSnoozeTime
	}
	ts := until.UTC().Truncate(time.Second)
	a.Status = StatusSnoozed
	a.DueAt = &ts
	a.UpdatedAt = now.UTC()
	return nil
}

// Restore returns a resolved action to pending and clears completion fields.
// This is the manual history-view reversal, not undo.
func (a *Action) Restore(now time.Time) error {
	if !a.IsResolved() {
		return ErrNotRestorable
	}
	a.Status = StatusPending
	a.CompletedAt = nil
	a.CompletedBy = ""
	a.UpdatedAt = now.UTC()
	return nil
}

// Assign sets the responsible employee without touching status.
func (a *Action) Assign(employeeID, employeeName string, now time.Time) {
	a.AssignedTo = strings.TrimSpace(employeeID)
	a.AssignedToName = strings.TrimSpace(employeeName)
	a.UpdatedAt = now.UTC()
}

// Reprioritize changes priority without touching status.
func (a *Action) Reprioritize(priority Priority, now time.Time) error {
	if !slices.Contains(validPriorities, priority) {
		return ErrInvalidPriority
	}
	a.Priority = priority
	a.UpdatedAt = now.UTC()
	return nil
}

// AddNote appends a note to the metadata bag.
func (a *Action) AddNote(text string, now time.Time) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrInvalidNote
	}
	a.Metadata.Notes = append(a.Metadata.Notes, Note{Text: text, CreatedAt: now.UTC()})
	a.UpdatedAt = now.UTC()
	return nil
}

// Clone returns a deep copy safe to keep as an undo snapshot.
func (a Action) Clone() Action {
	out := a
	if a.DueAt != nil {
		ts := *a.DueAt
		out.DueAt = &ts
	}
	if a.CompletedAt != nil {
		ts := *a.CompletedAt
		out.CompletedAt = &ts
	}
	out.Metadata.Notes = slices.Clone(a.Metadata.Notes)
	if a.Metadata.Property != nil {
		prop := *a.Metadata.Property
		out.Metadata.Property = &prop
	}
	if a.Metadata.LeadScore != nil {
		score := *a.Metadata.LeadScore
		out.Metadata.LeadScore = &score
	}
	return out
}

// normalizeDueAt truncates due timestamps to whole seconds in UTC.
func normalizeDueAt(dueAt *time.Time) *time.Time {
	if dueAt == nil {
		return nil
	}
	ts := dueAt.UTC().Truncate(time.Second)
	return &ts
}

// normalizeMetadata trims note text and drops empty notes.
func normalizeMetadata(meta ActionMetadata) ActionMetadata {
	notes := make([]Note, 0, len(meta.Notes))
	for _, note := range meta.Notes {
		note.Text = strings.TrimSpace(note.Text)
		if note.Text == "" {
			continue
		}
		note.CreatedAt = note.CreatedAt.UTC().Truncate(time.Second)
		notes = append(notes, note)
	}
	if len(notes) == 0 {
		notes = nil
	}
	meta.Notes = notes
	return meta
}
