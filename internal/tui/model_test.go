package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/hylla/visning/internal/app"
	"github.com/hylla/visning/internal/domain"
)

type fakeService struct {
	actions      map[string]domain.Action
	presets      []domain.SavedFilter
	employees    []domain.Employee
	employeesErr error
	undoCount    int
	undoDepth    int
	err          error
}

func newFakeService(actions ...domain.Action) *fakeService {
	byID := map[string]domain.Action{}
	for _, action := range actions {
		byID[action.ID] = action
	}
	return &fakeService{actions: byID}
}

func (f *fakeService) ListOpenActions(context.Context) ([]domain.Action, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []domain.Action{}
	for _, action := range f.actions {
		if action.IsOpen() {
			out = append(out, action)
		}
	}
	return app.SortActions(out), nil
}

func (f *fakeService) GetCompletedActions(context.Context) ([]domain.Action, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []domain.Action{}
	for _, action := range f.actions {
		if action.IsResolved() {
			out = append(out, action)
		}
	}
	return out, nil
}

func (f *fakeService) mutate(id string, fn func(*domain.Action) error) (domain.Action, error) {
	action, ok := f.actions[id]
	if !ok {
		return domain.Action{}, app.ErrNotFound
	}
	if err := fn(&action); err != nil {
		return domain.Action{}, err
	}
	f.actions[id] = action
	return action, nil
}

func (f *fakeService) CompleteAction(_ context.Context, id string) (domain.Action, error) {
	return f.mutate(id, func(a *domain.Action) error { return a.Complete("", time.Now()) })
}

func (f *fakeService) DismissAction(_ context.Context, id string) (domain.Action, error) {
	return f.mutate(id, func(a *domain.Action) error { return a.Dismiss("", time.Now()) })
}

func (f *fakeService) SnoozeAction(_ context.Context, id string, until time.Time) (domain.Action, error) {
	return f.mutate(id, func(a *domain.Action) error { return a.Snooze(until, time.Now().Add(-time.Minute)) })
}

func (f *fakeService) AssignAction(_ context.Context, id, employeeID, employeeName string) (domain.Action, error) {
	return f.mutate(id, func(a *domain.Action) error {
		a.Assign(employeeID, employeeName, time.Now())
		return nil
	})
}

func (f *fakeService) ReprioritizeAction(_ context.Context, id string, priority domain.Priority) (domain.Action, error) {
	return f.mutate(id, func(a *domain.Action) error { return a.Reprioritize(priority, time.Now()) })
}

func (f *fakeService) AddActionNote(_ context.Context, id, text string) (domain.Action, error) {
	return f.mutate(id, func(a *domain.Action) error { return a.AddNote(text, time.Now()) })
}

func (f *fakeService) RestoreAction(_ context.Context, id string) (domain.Action, error) {
	return f.mutate(id, func(a *domain.Action) error { return a.Restore(time.Now()) })
}

func (f *fakeService) bulk(ids []string, fn func(*domain.Action) error) (app.BulkResult, error) {
	res := app.BulkResult{}
	for _, id := range ids {
		if _, err := f.mutate(id, fn); err != nil {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}
	f.undoDepth++
	return res, nil
}

func (f *fakeService) CompleteActions(_ context.Context, ids []string) (app.BulkResult, error) {
	return f.bulk(ids, func(a *domain.Action) error { return a.Complete("", time.Now()) })
}

func (f *fakeService) DismissActions(_ context.Context, ids []string) (app.BulkResult, error) {
	return f.bulk(ids, func(a *domain.Action) error { return a.Dismiss("", time.Now()) })
}

func (f *fakeService) SnoozeActions(_ context.Context, ids []string, until time.Time) (app.BulkResult, error) {
	return f.bulk(ids, func(a *domain.Action) error { return a.Snooze(until, time.Now().Add(-time.Minute)) })
}

func (f *fakeService) AssignActions(_ context.Context, ids []string, employeeID, employeeName string) (app.BulkResult, error) {
	return f.bulk(ids, func(a *domain.Action) error {
		a.Assign(employeeID, employeeName, time.Now())
		return nil
	})
}

func (f *fakeService) ReprioritizeActions(_ context.Context, ids []string, priority domain.Priority) (app.BulkResult, error) {
	return f.bulk(ids, func(a *domain.Action) error { return a.Reprioritize(priority, time.Now()) })
}

func (f *fakeService) ListEmployees(context.Context) ([]domain.Employee, error) {
	if f.employeesErr != nil {
		return nil, f.employeesErr
	}
	out := make([]domain.Employee, len(f.employees))
	copy(out, f.employees)
	return out, nil
}

func (f *fakeService) UndoLastAction(context.Context) (int, error) {
	f.undoCount++
	if f.undoDepth == 0 {
		return 0, nil
	}
	f.undoDepth--
	return 1, nil
}

func (f *fakeService) UndoDepth() int { return f.undoDepth }

func (f *fakeService) SavePreset(_ context.Context, name string, criteria domain.FilterCriteria) (domain.SavedFilter, error) {
	preset, err := domain.NewSavedFilter("sf-new", name, criteria, time.Now())
	if err != nil {
		return domain.SavedFilter{}, err
	}
	f.presets = append(f.presets, preset)
	return preset, nil
}

func (f *fakeService) DeletePreset(_ context.Context, id string) error {
	for idx, preset := range f.presets {
		if preset.ID == id {
			f.presets = append(f.presets[:idx], f.presets[idx+1:]...)
			return nil
		}
	}
	return app.ErrNotFound
}

func (f *fakeService) ApplyPreset(_ context.Context, id string) (domain.FilterCriteria, error) {
	for _, preset := range f.presets {
		if preset.ID == id {
			return preset.Criteria.Clone(), nil
		}
	}
	return domain.FilterCriteria{}, app.ErrNotFound
}

func (f *fakeService) ListPresets(context.Context) ([]domain.SavedFilter, error) {
	out := make([]domain.SavedFilter, len(f.presets))
	copy(out, f.presets)
	return out, nil
}

func makeAction(t *testing.T, id, title string, source domain.Source, priority domain.Priority) domain.Action {
	t.Helper()
	action, err := domain.NewAction(domain.ActionInput{
		ID:           id,
		CustomerID:   "c-" + id,
		CustomerName: "Customer " + id,
		Type:         domain.TypeFollowUp,
		Title:        title,
		Priority:     priority,
		Source:       source,
	}, time.Now())
	if err != nil {
		t.Fatalf("NewAction(%s) error = %v", id, err)
	}
	return action
}

func loadReadyModel(t *testing.T, m Model) Model {
	t.Helper()
	return applyMsg(t, applyCmd(t, m, m.Init()), tea.WindowSizeMsg{Width: 120, Height: 40})
}

func applyMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", updated)
	}
	return applyCmd(t, out, cmd)
}

func applyCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	out := m
	currentCmd := cmd
	for i := 0; i < 6 && currentCmd != nil; i++ {
		msg := currentCmd()
		updated, nextCmd := out.Update(msg)
		casted, ok := updated.(Model)
		if !ok {
			t.Fatalf("expected Model, got %T", updated)
		}
		out = casted
		currentCmd = nextCmd
	}
	return out
}

func keyRune(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func TestModelLoadAndTabNavigation(t *testing.T) {
	a1 := makeAction(t, "a1", "Call Hanna", domain.SourceWhatsApp, domain.PriorityUrgent)
	a2 := makeAction(t, "a2", "Send valuation", domain.SourceInquiry, domain.PriorityLow)
	svc := newFakeService(a1, a2)
	m := loadReadyModel(t, NewModel(svc))

	if m.currentTab() != app.TabAll {
		t.Fatalf("expected all tab first, got %q", m.currentTab())
	}
	if len(m.rows) != 2 {
		t.Fatalf("expected 2 rows on all tab, got %d", len(m.rows))
	}

	m = applyMsg(t, m, keyRune('l'))
	if m.currentTab() != app.Tab(domain.SourceWhatsApp) {
		t.Fatalf("expected whatsapp tab, got %q", m.currentTab())
	}
	if len(m.rows) != 1 {
		t.Fatalf("expected whatsapp tab to scope to 1 row, got %d", len(m.rows))
	}
	m = applyMsg(t, m, keyRune('h'))
	if m.currentTab() != app.TabAll {
		t.Fatalf("expected all tab after tab-left, got %q", m.currentTab())
	}
}

func TestModelTabChangeClearsSelection(t *testing.T) {
	a1 := makeAction(t, "a1", "Call Hanna", domain.SourceWhatsApp, domain.PriorityUrgent)
	a2 := makeAction(t, "a2", "Send valuation", domain.SourceInquiry, domain.PriorityLow)
	svc := newFakeService(a1, a2)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune(' '))
	if m.selection.Len() != 1 {
		t.Fatalf("expected 1 selected, got %d", m.selection.Len())
	}
	m = applyMsg(t, m, keyRune('l'))
	if m.selection.Len() != 0 {
		t.Fatalf("expected selection cleared on tab change, got %d", m.selection.Len())
	}
}

func TestModelCompleteSingleAndBulk(t *testing.T) {
	a1 := makeAction(t, "a1", "Call Hanna", domain.SourceWhatsApp, domain.PriorityUrgent)
	a2 := makeAction(t, "a2", "Send valuation", domain.SourceInquiry, domain.PriorityHigh)
	a3 := makeAction(t, "a3", "Book viewing", domain.SourceManual, domain.PriorityLow)
	svc := newFakeService(a1, a2, a3)
	m := loadReadyModel(t, NewModel(svc))

	// Cursor on the first row, no selection: single complete.
	m = applyMsg(t, m, keyRune('c'))
	if svc.actions["a1"].Status != domain.StatusCompleted {
		t.Fatalf("expected a1 completed, got %q", svc.actions["a1"].Status)
	}

	// Select the two remaining rows and bulk complete.
	m = applyMsg(t, m, keyRune(' '))
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, keyRune(' '))
	if m.selection.Len() != 2 {
		t.Fatalf("expected 2 selected, got %d", m.selection.Len())
	}
	m = applyMsg(t, m, keyRune('c'))
	if svc.actions["a2"].Status != domain.StatusCompleted || svc.actions["a3"].Status != domain.StatusCompleted {
		t.Fatal("expected bulk complete to resolve both selected actions")
	}
	if m.selection.Len() != 0 {
		t.Fatalf("expected selection cleared after bulk op, got %d", m.selection.Len())
	}
	if !strings.Contains(m.status, "completed 2") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModelBulkDismissNeedsConfirm(t *testing.T) {
	a1 := makeAction(t, "a1", "One", domain.SourceManual, domain.PriorityMedium)
	a2 := makeAction(t, "a2", "Two", domain.SourceManual, domain.PriorityMedium)
	svc := newFakeService(a1, a2)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('a'))
	m = applyMsg(t, m, keyRune('x'))
	if m.mode != modeConfirmBulk {
		t.Fatalf("expected confirm mode, got %v", m.mode)
	}
	if svc.actions["a1"].Status != domain.StatusPending {
		t.Fatal("expected no mutation before confirmation")
	}
	m = applyMsg(t, m, keyRune('y'))
	if svc.actions["a1"].Status != domain.StatusDismissed || svc.actions["a2"].Status != domain.StatusDismissed {
		t.Fatal("expected both actions dismissed after confirm")
	}
}

func TestModelSnoozePicker(t *testing.T) {
	a1 := makeAction(t, "a1", "Call back", domain.SourceWhatsApp, domain.PriorityHigh)
	svc := newFakeService(a1)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('s'))
	if m.mode != modeSnoozePicker {
		t.Fatalf("expected snooze picker, got %v", m.mode)
	}
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	got := svc.actions["a1"]
	if got.Status != domain.StatusSnoozed {
		t.Fatalf("expected snoozed, got %q", got.Status)
	}
	if got.DueAt == nil || !got.DueAt.After(time.Now()) {
		t.Fatal("expected snooze to move the due date into the future")
	}
}

func TestModelAssignPicker(t *testing.T) {
	a1 := makeAction(t, "a1", "Call Hanna", domain.SourceWhatsApp, domain.PriorityUrgent)
	a2 := makeAction(t, "a2", "Send valuation", domain.SourceInquiry, domain.PriorityLow)
	svc := newFakeService(a1, a2)
	svc.employees = []domain.Employee{{ID: "e1", Name: "Nadia"}, {ID: "e2", Name: "Olle"}}
	m := loadReadyModel(t, NewModel(svc))

	// Cursor on the urgent row: single assign through the picker.
	m = applyMsg(t, m, keyRune('e'))
	if m.mode != modeAssignPicker {
		t.Fatalf("expected assign picker, got %v", m.mode)
	}
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if svc.actions["a1"].AssignedTo != "e2" {
		t.Fatalf("expected a1 assigned to e2, got %q", svc.actions["a1"].AssignedTo)
	}
	if !strings.Contains(m.status, "Olle") {
		t.Fatalf("unexpected status %q", m.status)
	}

	// Select both rows and bulk assign; the selection clears afterwards.
	m = applyMsg(t, m, keyRune('a'))
	m = applyMsg(t, m, keyRune('e'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if svc.actions["a2"].AssignedTo != "e1" {
		t.Fatalf("expected a2 assigned to e1, got %q", svc.actions["a2"].AssignedTo)
	}
	if m.selection.Len() != 0 {
		t.Fatalf("expected selection cleared after bulk assign, got %d", m.selection.Len())
	}
	if !strings.Contains(m.status, "assigned 2") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModelAssignPickerFallsBackToKnownAssignees(t *testing.T) {
	a1 := makeAction(t, "a1", "Call Hanna", domain.SourceWhatsApp, domain.PriorityUrgent)
	a1.Assign("e9", "Vera", time.Now())
	a2 := makeAction(t, "a2", "Send valuation", domain.SourceInquiry, domain.PriorityLow)
	svc := newFakeService(a1, a2)
	svc.employeesErr = app.ErrNoDirectory
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('j')) // cursor to the unassigned row
	m = applyMsg(t, m, keyRune('e'))
	if m.mode != modeAssignPicker {
		t.Fatalf("expected assign picker, got %v", m.mode)
	}
	if len(m.employees) != 1 || m.employees[0].ID != "e9" {
		t.Fatalf("expected known-assignee fallback, got %+v", m.employees)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if svc.actions["a2"].AssignedTo != "e9" {
		t.Fatalf("expected a2 assigned to e9, got %q", svc.actions["a2"].AssignedTo)
	}
}

func TestModelAssignPickerWithoutEmployees(t *testing.T) {
	a1 := makeAction(t, "a1", "One", domain.SourceManual, domain.PriorityMedium)
	svc := newFakeService(a1)
	svc.employeesErr = app.ErrNoDirectory
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('e'))
	if m.mode != modeNone {
		t.Fatalf("expected picker closed without employees, got %v", m.mode)
	}
	if !strings.Contains(m.status, "employees unavailable") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModelNoteClearsSelectedTarget(t *testing.T) {
	a1 := makeAction(t, "a1", "One", domain.SourceManual, domain.PriorityMedium)
	svc := newFakeService(a1)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune(' '))
	if m.selection.Len() != 1 {
		t.Fatalf("expected 1 selected, got %d", m.selection.Len())
	}
	m = applyMsg(t, m, keyRune('n'))
	if m.mode != modeNoteInput {
		t.Fatalf("expected note input mode, got %v", m.mode)
	}
	for _, r := range "call done" {
		m = applyMsg(t, m, keyRune(r))
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if len(svc.actions["a1"].Metadata.Notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(svc.actions["a1"].Metadata.Notes))
	}
	if m.selection.Len() != 0 {
		t.Fatal("expected selection cleared after noting the selected action")
	}
}

func TestModelUndoKey(t *testing.T) {
	a1 := makeAction(t, "a1", "One", domain.SourceManual, domain.PriorityMedium)
	svc := newFakeService(a1)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('z'))
	if svc.undoCount != 1 {
		t.Fatalf("expected undo call, got %d", svc.undoCount)
	}
	if !strings.Contains(m.status, "nothing to undo") {
		t.Fatalf("unexpected status %q", m.status)
	}

	svc.undoDepth = 1
	m = applyMsg(t, m, keyRune('z'))
	if !strings.Contains(m.status, "undid change") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModelSearchFiltersRows(t *testing.T) {
	a1 := makeAction(t, "a1", "Call Hanna", domain.SourceWhatsApp, domain.PriorityUrgent)
	a2 := makeAction(t, "a2", "Send valuation", domain.SourceInquiry, domain.PriorityLow)
	svc := newFakeService(a1, a2)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('/'))
	if m.mode != modeSearch {
		t.Fatalf("expected search mode, got %v", m.mode)
	}
	for _, r := range "hanna" {
		m = applyMsg(t, m, keyRune(r))
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if len(m.rows) != 1 {
		t.Fatalf("expected 1 matching row, got %d", len(m.rows))
	}
	action, ok := m.currentAction()
	if !ok || action.ID != "a1" {
		t.Fatalf("expected a1 under cursor, got %#v", action)
	}

	// esc clears the active filter.
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if len(m.rows) != 2 {
		t.Fatalf("expected filter cleared, got %d rows", len(m.rows))
	}
}

func TestModelHistoryRestore(t *testing.T) {
	a1 := makeAction(t, "a1", "Resolved one", domain.SourceManual, domain.PriorityMedium)
	if err := a1.Complete("emp-1", time.Now()); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	a2 := makeAction(t, "a2", "Open one", domain.SourceManual, domain.PriorityMedium)
	svc := newFakeService(a1, a2)
	m := loadReadyModel(t, NewModel(svc))

	// Restore is rejected outside the history tab.
	m = applyMsg(t, m, keyRune('u'))
	if !strings.Contains(m.status, "history tab") {
		t.Fatalf("unexpected status %q", m.status)
	}

	m = applyMsg(t, m, keyRune('h')) // wraps to history
	if m.currentTab() != app.TabHistory {
		t.Fatalf("expected history tab, got %q", m.currentTab())
	}
	if len(m.rows) != 1 {
		t.Fatalf("expected 1 resolved row, got %d", len(m.rows))
	}
	m = applyMsg(t, m, keyRune('u'))
	if svc.actions["a1"].Status != domain.StatusPending {
		t.Fatalf("expected a1 restored to pending, got %q", svc.actions["a1"].Status)
	}
}

func TestModelViewAndGroupToggles(t *testing.T) {
	a1 := makeAction(t, "a1", "One", domain.SourceManual, domain.PriorityMedium)
	svc := newFakeService(a1)
	m := loadReadyModel(t, NewModel(svc))

	if m.viewOpts.Mode != app.ViewCompact || !m.viewOpts.GroupByDate {
		t.Fatalf("unexpected initial view options %#v", m.viewOpts)
	}
	m = applyMsg(t, m, keyRune('v'))
	if m.viewOpts.Mode != app.ViewExpanded {
		t.Fatalf("expected expanded mode, got %q", m.viewOpts.Mode)
	}
	m = applyMsg(t, m, keyRune('g'))
	if m.viewOpts.GroupByDate {
		t.Fatal("expected grouping off")
	}
	if m.view.Grouped {
		t.Fatal("expected recomposed view ungrouped")
	}
}

func TestModelPresetRoundTrip(t *testing.T) {
	a1 := makeAction(t, "a1", "Call Hanna", domain.SourceWhatsApp, domain.PriorityUrgent)
	a2 := makeAction(t, "a2", "Send valuation", domain.SourceInquiry, domain.PriorityLow)
	svc := newFakeService(a1, a2)
	m := loadReadyModel(t, NewModel(svc))

	// Apply a search, save it as a preset.
	m = applyMsg(t, m, keyRune('/'))
	for _, r := range "hanna" {
		m = applyMsg(t, m, keyRune(r))
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	m = applyMsg(t, m, keyRune('F'))
	if m.mode != modePresetName {
		t.Fatalf("expected preset name mode, got %v", m.mode)
	}
	for _, r := range "hot leads" {
		m = applyMsg(t, m, keyRune(r))
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if len(svc.presets) != 1 || svc.presets[0].Name != "hot leads" {
		t.Fatalf("unexpected presets %#v", svc.presets)
	}

	// Clear filters, then re-apply via the preset list.
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if !m.criteria.IsZero() {
		t.Fatalf("expected cleared criteria, got %#v", m.criteria)
	}
	m = applyMsg(t, m, keyRune('f'))
	if m.mode != modePresets {
		t.Fatalf("expected presets mode, got %v", m.mode)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.criteria.Query != "hanna" {
		t.Fatalf("expected preset criteria applied, got %#v", m.criteria)
	}
	if len(m.rows) != 1 {
		t.Fatalf("expected filtered rows after preset apply, got %d", len(m.rows))
	}
}

func TestModelHistorySelectionRejected(t *testing.T) {
	a1 := makeAction(t, "a1", "Resolved", domain.SourceManual, domain.PriorityMedium)
	if err := a1.Dismiss("", time.Now()); err != nil {
		t.Fatalf("Dismiss() error = %v", err)
	}
	svc := newFakeService(a1)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('h'))
	if m.currentTab() != app.TabHistory {
		t.Fatalf("expected history tab, got %q", m.currentTab())
	}
	m = applyMsg(t, m, keyRune(' '))
	if m.selection.Len() != 0 {
		t.Fatal("expected no selection on history tab")
	}
	m = applyMsg(t, m, keyRune('c'))
	if !strings.Contains(m.status, "already resolved") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModelViewRendersTabsAndRows(t *testing.T) {
	a1 := makeAction(t, "a1", "Call Hanna about Vasagatan 12", domain.SourceWhatsApp, domain.PriorityUrgent)
	svc := newFakeService(a1)
	m := loadReadyModel(t, NewModel(svc))

	v := m.View()
	if v.Content == nil {
		t.Fatal("expected rendered view content")
	}

	m.err = context.DeadlineExceeded
	v = m.View()
	if v.Content == nil {
		t.Fatal("expected error view content")
	}
}

func TestModelQuitKey(t *testing.T) {
	m := NewModel(newFakeService())
	updated, cmd := m.Update(tea.KeyPressMsg{Code: 'q', Text: "q"})
	if updated == nil {
		t.Fatal("expected model return value")
	}
	if cmd == nil {
		t.Fatal("expected quit cmd")
	}
}
