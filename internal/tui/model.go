package tui

import (
	"context"
	"fmt"
	"image/color"
	"slices"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/hylla/visning/internal/app"
	"github.com/hylla/visning/internal/domain"
)

// Service represents service data used by this package.
type Service interface {
	ListOpenActions(context.Context) ([]domain.Action, error)
	GetCompletedActions(context.Context) ([]domain.Action, error)
	CompleteAction(context.Context, string) (domain.Action, error)
	DismissAction(context.Context, string) (domain.Action, error)
	SnoozeAction(context.Context, string, time.Time) (domain.Action, error)
	AssignAction(ctx context.Context, id, employeeID, employeeName string) (domain.Action, error)
	ReprioritizeAction(context.Context, string, domain.Priority) (domain.Action, error)
	AddActionNote(context.Context, string, string) (domain.Action, error)
	RestoreAction(context.Context, string) (domain.Action, error)
	CompleteActions(context.Context, []string) (app.BulkResult, error)
	DismissActions(context.Context, []string) (app.BulkResult, error)
	SnoozeActions(context.Context, []string, time.Time) (app.BulkResult, error)
	AssignActions(ctx context.Context, ids []string, employeeID, employeeName string) (app.BulkResult, error)
	ReprioritizeActions(context.Context, []string, domain.Priority) (app.BulkResult, error)
	ListEmployees(context.Context) ([]domain.Employee, error)
	UndoLastAction(context.Context) (int, error)
	UndoDepth() int
	SavePreset(context.Context, string, domain.FilterCriteria) (domain.SavedFilter, error)
	DeletePreset(context.Context, string) error
	ApplyPreset(context.Context, string) (domain.FilterCriteria, error)
	ListPresets(context.Context) ([]domain.SavedFilter, error)
}

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeSearch
	modeSnoozePicker
	modeAssignPicker
	modePriorityPicker
	modeNoteInput
	modePresets
	modePresetName
	modeActionInfo
	modeConfirmBulk
)

// snoozeChoice defines one snooze picker entry.
type snoozeChoice struct {
	Label string
	Until time.Time
}

// priorityOptions stores a package-level helper value.
var priorityOptions = []domain.Priority{
	domain.PriorityUrgent,
	domain.PriorityHigh,
	domain.PriorityMedium,
	domain.PriorityLow,
}

// confirmAction describes a pending bulk confirmation.
type confirmAction struct {
	Kind  string
	IDs   []string
	Label string
}

// rowRef addresses one row inside the composed section list.
type rowRef struct {
	section int
	row     int
}

// tabLabels stores display labels for the tab bar.
var tabLabels = map[app.Tab]string{
	app.TabAll:                     "All",
	app.Tab(domain.SourceWhatsApp): "WhatsApp",
	app.Tab(domain.SourceInquiry):  "Inquiries",
	app.Tab(domain.SourceManual):   "Manual",
	app.Tab(domain.SourceReferral): "Referrals",
	app.Tab(domain.SourceImport):   "Imports",
	app.TabHistory:                 "History",
}

// groupLabels stores display labels for due-date groups.
var groupLabels = map[app.DateGroup]string{
	app.GroupOverdue:  "Overdue",
	app.GroupToday:    "Today",
	app.GroupTomorrow: "Tomorrow",
	app.GroupThisWeek: "This Week",
	app.GroupLater:    "Later",
	app.GroupNoDue:    "No Due Date",
}

// priorityGlyphs stores the compact-row priority markers.
var priorityGlyphs = map[domain.Priority]string{
	domain.PriorityUrgent: "!!",
	domain.PriorityHigh:   "!",
	domain.PriorityMedium: "·",
	domain.PriorityLow:    "·",
}

// Model represents model data used by this package.
type Model struct {
	svc Service

	ready  bool
	width  int
	height int
	err    error

	status string

	help help.Model
	keys keyMap

	tabs     []app.Tab
	tabIndex int

	actions   []domain.Action
	criteria  domain.FilterCriteria
	viewOpts  app.ViewOptions
	view      app.QueueView
	rows      []rowRef
	rowIndex  int
	selection *app.Selection
	undoDepth int

	mode        inputMode
	searchInput textinput.Model
	noteInput   textinput.Model
	presetInput textinput.Model

	snoozeTargets   []string
	snoozeIndex     int
	assignTargets   []string
	assignIndex     int
	employees       []domain.Employee
	priorityTargets []string
	priorityIndex   int
	noteTargetID    string

	presets     []domain.SavedFilter
	presetIndex int

	infoActionID string

	pendingConfirm confirmAction
	confirmChoice  int
}

// loadedMsg carries message data through update handling.
type loadedMsg struct {
	actions   []domain.Action
	undoDepth int
	err       error
}

// actionMsg carries message data through update handling.
type actionMsg struct {
	err            error
	status         string
	reload         bool
	clearSelection bool
}

// employeesMsg carries the assignable employee list for the picker.
type employeesMsg struct {
	employees []domain.Employee
	err       error
}

// presetsMsg carries the persisted preset list.
type presetsMsg struct {
	presets []domain.SavedFilter
	err     error
}

// criteriaAppliedMsg carries one preset's criteria to install as active filter.
type criteriaAppliedMsg struct {
	criteria domain.FilterCriteria
	err      error
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	searchInput := textinput.New()
	searchInput.Prompt = "/ "
	searchInput.Placeholder = "title, description, customer"
	searchInput.CharLimit = 120
	noteInput := textinput.New()
	noteInput.Prompt = "note: "
	noteInput.Placeholder = "short note for this action"
	noteInput.CharLimit = 280
	presetInput := textinput.New()
	presetInput.Prompt = "name: "
	presetInput.Placeholder = "preset name"
	presetInput.CharLimit = 60

	tabs := app.Tabs()
	m := Model{
		svc:         svc,
		status:      "loading...",
		help:        h,
		keys:        newKeyMap(),
		tabs:        tabs,
		viewOpts:    app.ViewOptions{Mode: app.ViewCompact, GroupByDate: true},
		selection:   app.NewSelection(tabs[0]),
		searchInput: searchInput,
		noteInput:   noteInput,
		presetInput: presetInput,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.actions = msg.actions
		m.undoDepth = msg.undoDepth
		m.recompose()
		if m.status == "" || m.status == "loading..." {
			m.status = "ready"
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		if msg.status != "" {
			m.status = msg.status
		}
		if msg.clearSelection {
			m.selection.Clear()
		}
		if msg.reload {
			return m, m.loadData
		}
		return m, nil

	case employeesMsg:
		if m.mode != modeAssignPicker {
			return m, nil
		}
		if msg.err != nil {
			m.mode = modeNone
			m.assignTargets = nil
			m.status = "employees unavailable: " + msg.err.Error()
			return m, nil
		}
		if len(msg.employees) == 0 {
			m.mode = modeNone
			m.assignTargets = nil
			m.status = "no employees to assign"
			return m, nil
		}
		m.employees = msg.employees
		m.assignIndex = clamp(m.assignIndex, 0, len(m.employees)-1)
		return m, nil

	case presetsMsg:
		if msg.err != nil {
			m.status = "presets unavailable: " + msg.err.Error()
			return m, nil
		}
		m.presets = msg.presets
		m.presetIndex = clamp(m.presetIndex, 0, len(m.presets)-1)
		return m, nil

	case criteriaAppliedMsg:
		if msg.err != nil {
			m.status = "apply preset failed: " + msg.err.Error()
			return m, nil
		}
		m.criteria = msg.criteria
		m.searchInput.SetValue(m.criteria.Query)
		m.mode = modeNone
		m.recompose()
		m.status = "preset applied"
		return m, nil

	case tea.KeyPressMsg:
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)

	default:
		return m, nil
	}
}

// loadData loads required data for the current operation.
func (m Model) loadData() tea.Msg {
	open, err := m.svc.ListOpenActions(context.Background())
	if err != nil {
		return loadedMsg{err: err}
	}
	resolved, err := m.svc.GetCompletedActions(context.Background())
	if err != nil {
		return loadedMsg{err: err}
	}
	actions := make([]domain.Action, 0, len(open)+len(resolved))
	actions = append(actions, open...)
	actions = append(actions, resolved...)
	return loadedMsg{actions: actions, undoDepth: m.svc.UndoDepth()}
}

// loadPresets fetches the stored preset list.
func (m Model) loadPresets() tea.Msg {
	presets, err := m.svc.ListPresets(context.Background())
	return presetsMsg{presets: presets, err: err}
}

// loadEmployees fetches the directory for the assign picker. Without a
// directory-capable syncer it falls back to assignees already present in the
// loaded queue.
func (m Model) loadEmployees() tea.Msg {
	employees, err := m.svc.ListEmployees(context.Background())
	if err != nil || len(employees) == 0 {
		if local := m.knownAssignees(); len(local) > 0 {
			return employeesMsg{employees: local}
		}
	}
	return employeesMsg{employees: employees, err: err}
}

// knownAssignees collects the distinct assignees present in the loaded actions.
func (m Model) knownAssignees() []domain.Employee {
	seen := map[string]struct{}{}
	out := []domain.Employee{}
	for _, action := range m.actions {
		if action.AssignedTo == "" {
			continue
		}
		if _, ok := seen[action.AssignedTo]; ok {
			continue
		}
		seen[action.AssignedTo] = struct{}{}
		out = append(out, domain.Employee{ID: action.AssignedTo, Name: action.AssignedToName})
	}
	slices.SortFunc(out, func(a, b domain.Employee) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// recompose rebuilds the composed view and the flattened row index after any
// change to data, tab, criteria, or view options.
func (m *Model) recompose() {
	tab := m.currentTab()
	m.view = app.ComposeView(m.actions, tab, m.criteria, m.viewOpts, time.Now())
	m.rows = m.rows[:0]
	for sectionIdx, section := range m.view.Sections {
		for rowIdx := range section.Actions {
			m.rows = append(m.rows, rowRef{section: sectionIdx, row: rowIdx})
		}
	}
	m.rowIndex = clamp(m.rowIndex, 0, len(m.rows)-1)
	m.selection.Prune(m.visibleActions())
}

// currentTab returns the active tab.
func (m Model) currentTab() app.Tab {
	if len(m.tabs) == 0 {
		return app.TabAll
	}
	return m.tabs[clamp(m.tabIndex, 0, len(m.tabs)-1)]
}

// visibleActions flattens the composed sections in display order.
func (m Model) visibleActions() []domain.Action {
	out := make([]domain.Action, 0, len(m.rows))
	for _, ref := range m.rows {
		out = append(out, m.view.Sections[ref.section].Actions[ref.row])
	}
	return out
}

// currentAction returns the action under the cursor.
func (m Model) currentAction() (domain.Action, bool) {
	if len(m.rows) == 0 {
		return domain.Action{}, false
	}
	ref := m.rows[clamp(m.rowIndex, 0, len(m.rows)-1)]
	return m.view.Sections[ref.section].Actions[ref.row], true
}

// actionByID looks up one action in the loaded store.
func (m Model) actionByID(id string) (domain.Action, bool) {
	for _, action := range m.actions {
		if action.ID == id {
			return action, true
		}
	}
	return domain.Action{}, false
}

// targetIDs resolves the ids a mutation applies to: the multi-selection when
// present, otherwise the cursor row.
func (m Model) targetIDs() []string {
	if m.selection.Len() > 0 {
		return m.selection.IDs()
	}
	if action, ok := m.currentAction(); ok {
		return []string{action.ID}
	}
	return nil
}

// switchTab moves the active tab by delta and clears the selection through the
// tab-scoped selection model.
func (m *Model) switchTab(delta int) {
	if len(m.tabs) == 0 {
		return
	}
	m.tabIndex = wrapIndex(m.tabIndex, delta, len(m.tabs))
	m.selection.SetTab(m.currentTab())
	m.rowIndex = 0
	m.recompose()
	m.status = "tab: " + tabLabel(m.currentTab())
}

func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	onHistory := m.currentTab() == app.TabHistory
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		if m.help.ShowAll {
			m.status = "help"
		} else {
			m.status = "ready"
		}
		return m, nil
	case msg.String() == "esc":
		if m.help.ShowAll {
			m.help.ShowAll = false
			m.status = "ready"
			return m, nil
		}
		if !m.criteria.IsZero() {
			m.criteria = domain.FilterCriteria{}
			m.searchInput.SetValue("")
			m.recompose()
			m.status = "filters cleared"
			return m, nil
		}
		if count := m.selection.Len(); count > 0 {
			m.selection.Clear()
			m.status = fmt.Sprintf("cleared %d selected", count)
			return m, nil
		}
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadData
	case key.Matches(msg, m.keys.tabLeft):
		m.switchTab(-1)
		return m, nil
	case key.Matches(msg, m.keys.tabRight):
		m.switchTab(1)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		if m.rowIndex < len(m.rows)-1 {
			m.rowIndex++
		}
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		if m.rowIndex > 0 {
			m.rowIndex--
		}
		return m, nil
	case key.Matches(msg, m.keys.multiSelect):
		if onHistory {
			m.status = "history rows cannot be selected"
			return m, nil
		}
		action, ok := m.currentAction()
		if !ok {
			m.status = "no action selected"
			return m, nil
		}
		m.selection.Toggle(action.ID)
		if m.selection.Has(action.ID) {
			m.status = fmt.Sprintf("selected %q (%d total)", truncate(action.Title, 28), m.selection.Len())
		} else {
			m.status = fmt.Sprintf("unselected %q (%d total)", truncate(action.Title, 28), m.selection.Len())
		}
		return m, nil
	case key.Matches(msg, m.keys.selectAll):
		if onHistory {
			m.status = "history rows cannot be selected"
			return m, nil
		}
		m.selection.SelectAll(m.visibleActions())
		m.status = fmt.Sprintf("selected %d visible", m.selection.Len())
		return m, nil
	case key.Matches(msg, m.keys.undo):
		return m, m.undoCmd()
	case key.Matches(msg, m.keys.complete):
		if onHistory {
			m.status = "already resolved"
			return m, nil
		}
		ids := m.targetIDs()
		if len(ids) == 0 {
			m.status = "no action selected"
			return m, nil
		}
		return m, m.completeCmd(ids)
	case key.Matches(msg, m.keys.dismiss):
		if onHistory {
			m.status = "already resolved"
			return m, nil
		}
		ids := m.targetIDs()
		if len(ids) == 0 {
			m.status = "no action selected"
			return m, nil
		}
		if len(ids) > 1 {
			m.pendingConfirm = confirmAction{Kind: "dismiss", IDs: ids, Label: fmt.Sprintf("dismiss %d actions", len(ids))}
			m.confirmChoice = 0
			m.mode = modeConfirmBulk
			m.status = m.pendingConfirm.Label + "?"
			return m, nil
		}
		return m, m.dismissCmd(ids)
	case key.Matches(msg, m.keys.snooze):
		if onHistory {
			m.status = "already resolved"
			return m, nil
		}
		ids := m.targetIDs()
		if len(ids) == 0 {
			m.status = "no action selected"
			return m, nil
		}
		m.snoozeTargets = ids
		m.snoozeIndex = 0
		m.mode = modeSnoozePicker
		m.status = "snooze until..."
		return m, nil
	case key.Matches(msg, m.keys.assign):
		// Assignment leaves status untouched, so history rows stay eligible.
		ids := m.targetIDs()
		if len(ids) == 0 {
			m.status = "no action selected"
			return m, nil
		}
		m.assignTargets = ids
		m.assignIndex = 0
		m.mode = modeAssignPicker
		m.status = "assign to..."
		return m, m.loadEmployees
	case key.Matches(msg, m.keys.priority):
		if onHistory {
			m.status = "already resolved"
			return m, nil
		}
		ids := m.targetIDs()
		if len(ids) == 0 {
			m.status = "no action selected"
			return m, nil
		}
		m.priorityTargets = ids
		m.priorityIndex = 0
		if action, ok := m.currentAction(); ok && len(ids) == 1 {
			for idx, p := range priorityOptions {
				if p == action.Priority {
					m.priorityIndex = idx
					break
				}
			}
		}
		m.mode = modePriorityPicker
		m.status = "set priority..."
		return m, nil
	case key.Matches(msg, m.keys.addNote):
		action, ok := m.currentAction()
		if !ok {
			m.status = "no action selected"
			return m, nil
		}
		m.noteTargetID = action.ID
		m.noteInput.SetValue("")
		m.mode = modeNoteInput
		m.status = "add note"
		return m, m.noteInput.Focus()
	case key.Matches(msg, m.keys.restore):
		if !onHistory {
			m.status = "restore works from the history tab"
			return m, nil
		}
		action, ok := m.currentAction()
		if !ok {
			m.status = "no action selected"
			return m, nil
		}
		return m, m.restoreCmd(action.ID)
	case key.Matches(msg, m.keys.actionInfo):
		action, ok := m.currentAction()
		if !ok {
			m.status = "no action selected"
			return m, nil
		}
		m.help.ShowAll = false
		m.infoActionID = action.ID
		m.mode = modeActionInfo
		m.status = "action info"
		return m, nil
	case key.Matches(msg, m.keys.search):
		m.help.ShowAll = false
		m.searchInput.SetValue(m.criteria.Query)
		m.mode = modeSearch
		m.status = "search"
		return m, m.searchInput.Focus()
	case key.Matches(msg, m.keys.presets):
		m.help.ShowAll = false
		m.mode = modePresets
		m.presetIndex = 0
		m.status = "presets"
		return m, m.loadPresets
	case key.Matches(msg, m.keys.savePreset):
		if m.criteria.IsZero() {
			m.status = "no active filters to save"
			return m, nil
		}
		m.presetInput.SetValue("")
		m.mode = modePresetName
		m.status = "save preset"
		return m, m.presetInput.Focus()
	case key.Matches(msg, m.keys.toggleView):
		if m.viewOpts.Mode == app.ViewCompact {
			m.viewOpts.Mode = app.ViewExpanded
			m.status = "expanded view"
		} else {
			m.viewOpts.Mode = app.ViewCompact
			m.status = "compact view"
		}
		m.recompose()
		return m, nil
	case key.Matches(msg, m.keys.toggleGroup):
		m.viewOpts.GroupByDate = !m.viewOpts.GroupByDate
		if m.viewOpts.GroupByDate {
			m.status = "grouped by due date"
		} else {
			m.status = "flat list"
		}
		m.recompose()
		return m, nil
	default:
		return m, nil
	}
}

// handleInputModeKey handles input mode key.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeSearch:
		switch msg.String() {
		case "esc":
			m.mode = modeNone
			m.searchInput.Blur()
			m.status = "ready"
			return m, nil
		case "enter":
			m.criteria.Query = strings.TrimSpace(m.searchInput.Value())
			m.mode = modeNone
			m.searchInput.Blur()
			m.recompose()
			if m.criteria.Query == "" {
				m.status = "search cleared"
			} else {
				m.status = fmt.Sprintf("%d matching", m.view.Total)
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd

	case modeSnoozePicker:
		options := snoozeChoices(time.Now())
		switch msg.String() {
		case "esc":
			m.mode = modeNone
			m.snoozeTargets = nil
			m.status = "ready"
			return m, nil
		case "j", "down":
			m.snoozeIndex = wrapIndex(m.snoozeIndex, 1, len(options))
			return m, nil
		case "k", "up":
			m.snoozeIndex = wrapIndex(m.snoozeIndex, -1, len(options))
			return m, nil
		case "enter":
			choice := options[clamp(m.snoozeIndex, 0, len(options)-1)]
			ids := m.snoozeTargets
			m.mode = modeNone
			m.snoozeTargets = nil
			return m, m.snoozeCmd(ids, choice.Until)
		}
		return m, nil

	case modeAssignPicker:
		switch msg.String() {
		case "esc":
			m.mode = modeNone
			m.assignTargets = nil
			m.status = "ready"
			return m, nil
		case "j", "down":
			if len(m.employees) > 0 {
				m.assignIndex = wrapIndex(m.assignIndex, 1, len(m.employees))
			}
			return m, nil
		case "k", "up":
			if len(m.employees) > 0 {
				m.assignIndex = wrapIndex(m.assignIndex, -1, len(m.employees))
			}
			return m, nil
		case "enter":
			if len(m.employees) == 0 {
				return m, nil
			}
			employee := m.employees[clamp(m.assignIndex, 0, len(m.employees)-1)]
			ids := m.assignTargets
			m.mode = modeNone
			m.assignTargets = nil
			return m, m.assignCmd(ids, employee)
		}
		return m, nil

	case modePriorityPicker:
		switch msg.String() {
		case "esc":
			m.mode = modeNone
			m.priorityTargets = nil
			m.status = "ready"
			return m, nil
		case "j", "down":
			m.priorityIndex = wrapIndex(m.priorityIndex, 1, len(priorityOptions))
			return m, nil
		case "k", "up":
			m.priorityIndex = wrapIndex(m.priorityIndex, -1, len(priorityOptions))
			return m, nil
		case "enter":
			priority := priorityOptions[clamp(m.priorityIndex, 0, len(priorityOptions)-1)]
			ids := m.priorityTargets
			m.mode = modeNone
			m.priorityTargets = nil
			return m, m.priorityCmd(ids, priority)
		}
		return m, nil

	case modeNoteInput:
		switch msg.String() {
		case "esc":
			m.mode = modeNone
			m.noteInput.Blur()
			m.status = "ready"
			return m, nil
		case "enter":
			text := strings.TrimSpace(m.noteInput.Value())
			id := m.noteTargetID
			m.mode = modeNone
			m.noteInput.Blur()
			if text == "" {
				m.status = "empty note discarded"
				return m, nil
			}
			return m, m.noteCmd(id, text)
		}
		var cmd tea.Cmd
		m.noteInput, cmd = m.noteInput.Update(msg)
		return m, cmd

	case modePresets:
		switch msg.String() {
		case "esc", "f":
			m.mode = modeNone
			m.status = "ready"
			return m, nil
		case "j", "down":
			if len(m.presets) > 0 {
				m.presetIndex = wrapIndex(m.presetIndex, 1, len(m.presets))
			}
			return m, nil
		case "k", "up":
			if len(m.presets) > 0 {
				m.presetIndex = wrapIndex(m.presetIndex, -1, len(m.presets))
			}
			return m, nil
		case "d":
			if len(m.presets) == 0 {
				return m, nil
			}
			preset := m.presets[clamp(m.presetIndex, 0, len(m.presets)-1)]
			return m, m.deletePresetCmd(preset.ID)
		case "enter":
			if len(m.presets) == 0 {
				m.mode = modeNone
				m.status = "no presets saved"
				return m, nil
			}
			preset := m.presets[clamp(m.presetIndex, 0, len(m.presets)-1)]
			return m, m.applyPresetCmd(preset.ID)
		}
		return m, nil

	case modePresetName:
		switch msg.String() {
		case "esc":
			m.mode = modeNone
			m.presetInput.Blur()
			m.status = "ready"
			return m, nil
		case "enter":
			name := strings.TrimSpace(m.presetInput.Value())
			m.mode = modeNone
			m.presetInput.Blur()
			if name == "" {
				m.status = "preset needs a name"
				return m, nil
			}
			return m, m.savePresetCmd(name, m.criteria.Clone())
		}
		var cmd tea.Cmd
		m.presetInput, cmd = m.presetInput.Update(msg)
		return m, cmd

	case modeActionInfo:
		switch msg.String() {
		case "esc", "i", "enter", "q":
			m.mode = modeNone
			m.infoActionID = ""
			m.status = "ready"
		}
		return m, nil

	case modeConfirmBulk:
		switch msg.String() {
		case "esc", "n":
			m.mode = modeNone
			m.pendingConfirm = confirmAction{}
			m.status = "cancelled"
			return m, nil
		case "h", "left", "l", "right", "tab":
			m.confirmChoice = 1 - m.confirmChoice
			return m, nil
		case "y":
			m.confirmChoice = 0
			fallthrough
		case "enter":
			pending := m.pendingConfirm
			m.mode = modeNone
			m.pendingConfirm = confirmAction{}
			if m.confirmChoice != 0 {
				m.status = "cancelled"
				return m, nil
			}
			return m, m.dismissCmd(pending.IDs)
		}
		return m, nil

	default:
		m.mode = modeNone
		return m, nil
	}
}

// snoozeChoices builds the snooze picker entries relative to now.
func snoozeChoices(now time.Time) []snoozeChoice {
	tomorrow := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	nextWeek := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, now.Location()).AddDate(0, 0, 7)
	return []snoozeChoice{
		{Label: "Later today (+3h)", Until: now.Add(3 * time.Hour)},
		{Label: "Tomorrow 09:00", Until: tomorrow},
		{Label: "Next week", Until: nextWeek},
	}
}

// completeCmd completes the targets; bulk for multiple ids, single otherwise.
func (m Model) completeCmd(ids []string) tea.Cmd {
	return func() tea.Msg {
		if len(ids) == 1 {
			action, err := m.svc.CompleteAction(context.Background(), ids[0])
			if err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: fmt.Sprintf("completed %q", truncate(action.Title, 28)), reload: true, clearSelection: m.selection.Has(ids[0])}
		}
		res, err := m.svc.CompleteActions(context.Background(), ids)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: bulkStatus("completed", res), reload: true, clearSelection: true}
	}
}

// dismissCmd dismisses the targets.
func (m Model) dismissCmd(ids []string) tea.Cmd {
	return func() tea.Msg {
		if len(ids) == 1 {
			action, err := m.svc.DismissAction(context.Background(), ids[0])
			if err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: fmt.Sprintf("dismissed %q", truncate(action.Title, 28)), reload: true, clearSelection: m.selection.Has(ids[0])}
		}
		res, err := m.svc.DismissActions(context.Background(), ids)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: bulkStatus("dismissed", res), reload: true, clearSelection: true}
	}
}

// snoozeCmd snoozes the targets until the picked time.
func (m Model) snoozeCmd(ids []string, until time.Time) tea.Cmd {
	return func() tea.Msg {
		if len(ids) == 1 {
			action, err := m.svc.SnoozeAction(context.Background(), ids[0], until)
			if err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: fmt.Sprintf("snoozed %q", truncate(action.Title, 28)), reload: true, clearSelection: m.selection.Has(ids[0])}
		}
		res, err := m.svc.SnoozeActions(context.Background(), ids, until)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: bulkStatus("snoozed", res), reload: true, clearSelection: true}
	}
}

// priorityCmd reprioritizes the targets.
func (m Model) priorityCmd(ids []string, priority domain.Priority) tea.Cmd {
	return func() tea.Msg {
		if len(ids) == 1 {
			action, err := m.svc.ReprioritizeAction(context.Background(), ids[0], priority)
			if err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: fmt.Sprintf("%q set to %s", truncate(action.Title, 28), priority), reload: true, clearSelection: m.selection.Has(ids[0])}
		}
		res, err := m.svc.ReprioritizeActions(context.Background(), ids, priority)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: bulkStatus("reprioritized", res), reload: true, clearSelection: true}
	}
}

// noteCmd appends a note to one action. Noting a selected record clears the
// selection like every other single-record mutation.
func (m Model) noteCmd(id, text string) tea.Cmd {
	return func() tea.Msg {
		action, err := m.svc.AddActionNote(context.Background(), id, text)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: fmt.Sprintf("note added to %q", truncate(action.Title, 28)), reload: true, clearSelection: m.selection.Has(id)}
	}
}

// assignCmd assigns the targets to the picked employee.
func (m Model) assignCmd(ids []string, employee domain.Employee) tea.Cmd {
	return func() tea.Msg {
		name := employee.Name
		if name == "" {
			name = employee.ID
		}
		if len(ids) == 1 {
			action, err := m.svc.AssignAction(context.Background(), ids[0], employee.ID, employee.Name)
			if err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: fmt.Sprintf("assigned %q to %s", truncate(action.Title, 28), name), reload: true, clearSelection: m.selection.Has(ids[0])}
		}
		res, err := m.svc.AssignActions(context.Background(), ids, employee.ID, employee.Name)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: bulkStatus("assigned", res), reload: true, clearSelection: true}
	}
}

// restoreCmd reopens one resolved action.
func (m Model) restoreCmd(id string) tea.Cmd {
	return func() tea.Msg {
		action, err := m.svc.RestoreAction(context.Background(), id)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: fmt.Sprintf("restored %q", truncate(action.Title, 28)), reload: true}
	}
}

// undoCmd reverts the most recent undoable mutation.
func (m Model) undoCmd() tea.Cmd {
	return func() tea.Msg {
		count, err := m.svc.UndoLastAction(context.Background())
		if err != nil {
			return actionMsg{err: err}
		}
		if count == 0 {
			return actionMsg{status: "nothing to undo"}
		}
		return actionMsg{status: fmt.Sprintf("undid change to %d actions", count), reload: true}
	}
}

// savePresetCmd persists the active criteria under a name.
func (m Model) savePresetCmd(name string, criteria domain.FilterCriteria) tea.Cmd {
	return func() tea.Msg {
		preset, err := m.svc.SavePreset(context.Background(), name, criteria)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: fmt.Sprintf("saved preset %q", preset.Name)}
	}
}

// applyPresetCmd installs one preset's criteria as the active filter.
func (m Model) applyPresetCmd(id string) tea.Cmd {
	return func() tea.Msg {
		criteria, err := m.svc.ApplyPreset(context.Background(), id)
		return criteriaAppliedMsg{criteria: criteria, err: err}
	}
}

// deletePresetCmd removes one preset and refreshes the list.
func (m Model) deletePresetCmd(id string) tea.Cmd {
	return tea.Sequence(
		func() tea.Msg {
			if err := m.svc.DeletePreset(context.Background(), id); err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: "preset deleted"}
		},
		m.loadPresets,
	)
}

// bulkStatus summarizes one bulk mutation outcome.
func bulkStatus(verb string, res app.BulkResult) string {
	if len(res.Skipped) == 0 {
		return fmt.Sprintf("%s %d actions", verb, len(res.Succeeded))
	}
	return fmt.Sprintf("%s %d actions, skipped %d", verb, len(res.Succeeded), len(res.Skipped))
}

// View renders current state.
func (m Model) View() tea.View {
	if m.err != nil {
		v := tea.NewView("error: " + m.err.Error() + "\n\npress r to retry • q quit\n")
		v.AltScreen = true
		return v
	}
	if !m.ready {
		v := tea.NewView("loading...")
		v.AltScreen = true
		return v
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	helpStyle := lipgloss.NewStyle().Foreground(muted)
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	header := titleStyle.Render("visning") + "  " + tabLabel(m.currentTab())
	if m.criteria.Query != "" {
		header += statusStyle.Render("  search: " + m.criteria.Query)
	}
	if !m.criteria.IsZero() && m.criteria.Query == "" {
		header += statusStyle.Render("  filtered")
	}
	if m.viewOpts.Mode == app.ViewExpanded {
		header += statusStyle.Render("  expanded")
	}
	if count := m.selection.Len(); count > 0 {
		header += statusStyle.Render(fmt.Sprintf("  selected: %d", count))
	}

	sections := []string{header, m.renderTabBar(accent, muted, dim), "", m.renderQueue(accent, muted, dim)}
	if count := m.selection.Len(); count > 0 {
		sections = append(sections, statusStyle.Render(fmt.Sprintf("%d selected • space toggle • esc clear", count)))
	}
	if m.undoDepth > 0 {
		sections = append(sections, statusStyle.Render(fmt.Sprintf("%d undoable changes • z undo", m.undoDepth)))
	}
	if strings.TrimSpace(m.status) != "" && m.status != "ready" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	if m.height > 0 {
		helpHeight := lipgloss.Height(helpLine)
		content = fitLines(content, max(0, m.height-helpHeight))
	}

	fullContent := content + "\n" + helpLine
	if overlay := m.renderModeOverlay(accent, muted, dim, helpStyle); overlay != "" {
		overlayHeight := lipgloss.Height(fullContent)
		if m.height > 0 {
			overlayHeight = m.height
		}
		fullContent = overlayOnContent(fullContent, overlay, max(1, m.width), max(1, overlayHeight))
	}

	v := tea.NewView(fullContent)
	v.AltScreen = true
	return v
}

// renderTabBar renders the tab strip with per-tab counts.
func (m Model) renderTabBar(accent, _, dim color.Color) string {
	activeStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	idleStyle := lipgloss.NewStyle().Foreground(dim)
	parts := make([]string, 0, len(m.tabs))
	for idx, tab := range m.tabs {
		label := tabLabel(tab)
		if count := m.view.TabCounts[tab]; count > 0 {
			label = fmt.Sprintf("%s (%d)", label, count)
		}
		if idx == m.tabIndex {
			parts = append(parts, activeStyle.Render("["+label+"]"))
		} else {
			parts = append(parts, idleStyle.Render(" "+label+" "))
		}
	}
	return strings.Join(parts, " ")
}

// renderQueue renders the composed sections for the active tab.
func (m Model) renderQueue(accent, muted, dim color.Color) string {
	if len(m.rows) == 0 {
		return lipgloss.NewStyle().Foreground(dim).Render("(nothing here)")
	}

	groupStyle := lipgloss.NewStyle().Bold(true).Foreground(muted)
	cursorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	cursorMultiStyle := cursorStyle.Underline(true)
	multiStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("237")).Bold(true)
	metaStyle := lipgloss.NewStyle().Foreground(muted)
	overdueStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))

	lines := make([]string, 0, len(m.rows)*2)
	flatIdx := 0
	for sectionIdx, section := range m.view.Sections {
		if m.view.Grouped {
			if sectionIdx > 0 {
				lines = append(lines, "")
			}
			label := groupLabels[section.Group]
			if section.Group == app.GroupOverdue {
				lines = append(lines, overdueStyle.Render(label))
			} else {
				lines = append(lines, groupStyle.Render(label))
			}
		}
		for _, action := range section.Actions {
			cursor := flatIdx == m.rowIndex
			multi := m.selection.Has(action.ID)
			prefix := "   "
			switch {
			case cursor && multi:
				prefix = "│* "
			case cursor:
				prefix = "│  "
			case multi:
				prefix = " * "
			}
			title := prefix + priorityGlyphs[action.Priority] + " " + truncate(action.Title, max(1, m.width-24))
			switch {
			case cursor && multi:
				title = cursorMultiStyle.Render(title)
			case cursor:
				title = cursorStyle.Render(title)
			case multi:
				title = multiStyle.Render(title)
			}
			lines = append(lines, title)
			meta := m.rowMeta(action)
			if meta != "" {
				lines = append(lines, prefix+metaStyle.Render(meta))
			}
			if m.viewOpts.Mode == app.ViewExpanded {
				if desc := strings.TrimSpace(action.Description); desc != "" {
					lines = append(lines, prefix+metaStyle.Render(truncate(desc, max(1, m.width-12))))
				}
				for _, note := range action.Metadata.Notes {
					lines = append(lines, prefix+metaStyle.Render("  › "+truncate(note.Text, max(1, m.width-16))))
				}
			}
			flatIdx++
		}
	}
	return strings.Join(lines, "\n")
}

// rowMeta builds the secondary line under one row.
func (m Model) rowMeta(action domain.Action) string {
	parts := []string{}
	if action.CustomerName != "" {
		parts = append(parts, action.CustomerName)
	}
	if action.DueAt != nil {
		parts = append(parts, "due "+formatDue(*action.DueAt, time.Now()))
	}
	if action.AssignedToName != "" {
		parts = append(parts, "→ "+action.AssignedToName)
	}
	if action.Metadata.LeadScore != nil {
		parts = append(parts, fmt.Sprintf("score %d", *action.Metadata.LeadScore))
	}
	if m.currentTab() == app.TabHistory {
		parts = append(parts, string(action.Status))
		if action.CompletedAt != nil {
			parts = append(parts, action.CompletedAt.Format("Jan 2 15:04"))
		}
	}
	return strings.Join(parts, " · ")
}

// renderModeOverlay renders the active modal, or "" in normal mode.
func (m Model) renderModeOverlay(accent, muted, dim color.Color, helpStyle lipgloss.Style) string {
	if m.mode == modeNone {
		return ""
	}
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(1, 2)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	selStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	idleStyle := lipgloss.NewStyle().Foreground(muted)

	switch m.mode {
	case modeSearch:
		body := titleStyle.Render("Search") + "\n\n" + m.searchInput.View() + "\n\n" + helpStyle.Render("enter apply • esc cancel")
		return boxStyle.Render(body)

	case modeSnoozePicker:
		lines := []string{titleStyle.Render(fmt.Sprintf("Snooze %d action(s)", len(m.snoozeTargets))), ""}
		for idx, choice := range snoozeChoices(time.Now()) {
			if idx == m.snoozeIndex {
				lines = append(lines, selStyle.Render("› "+choice.Label))
			} else {
				lines = append(lines, idleStyle.Render("  "+choice.Label))
			}
		}
		lines = append(lines, "", helpStyle.Render("j/k move • enter snooze • esc cancel"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeAssignPicker:
		lines := []string{titleStyle.Render(fmt.Sprintf("Assign %d action(s)", len(m.assignTargets))), ""}
		if len(m.employees) == 0 {
			lines = append(lines, idleStyle.Render("(loading employees...)"))
		}
		for idx, employee := range m.employees {
			label := employee.Name
			if label == "" {
				label = employee.ID
			}
			if idx == m.assignIndex {
				lines = append(lines, selStyle.Render("› "+label))
			} else {
				lines = append(lines, idleStyle.Render("  "+label))
			}
		}
		lines = append(lines, "", helpStyle.Render("j/k move • enter assign • esc cancel"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modePriorityPicker:
		lines := []string{titleStyle.Render(fmt.Sprintf("Priority for %d action(s)", len(m.priorityTargets))), ""}
		for idx, priority := range priorityOptions {
			if idx == m.priorityIndex {
				lines = append(lines, selStyle.Render("› "+string(priority)))
			} else {
				lines = append(lines, idleStyle.Render("  "+string(priority)))
			}
		}
		lines = append(lines, "", helpStyle.Render("j/k move • enter set • esc cancel"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeNoteInput:
		body := titleStyle.Render("Add Note") + "\n\n" + m.noteInput.View() + "\n\n" + helpStyle.Render("enter save • esc cancel")
		return boxStyle.Render(body)

	case modePresets:
		lines := []string{titleStyle.Render("Saved Presets"), ""}
		if len(m.presets) == 0 {
			lines = append(lines, idleStyle.Render("(none saved)"))
		}
		for idx, preset := range m.presets {
			label := preset.Name
			if preset.Criteria.Query != "" {
				label += idleStyle.Render("  /" + preset.Criteria.Query)
			}
			if idx == m.presetIndex {
				lines = append(lines, selStyle.Render("› "+label))
			} else {
				lines = append(lines, idleStyle.Render("  "+label))
			}
		}
		lines = append(lines, "", helpStyle.Render("enter apply • d delete • esc close"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modePresetName:
		body := titleStyle.Render("Save Preset") + "\n\n" + m.presetInput.View() + "\n\n" + helpStyle.Render("enter save • esc cancel")
		return boxStyle.Render(body)

	case modeActionInfo:
		action, ok := m.actionByID(m.infoActionID)
		if !ok {
			return boxStyle.Render(idleStyle.Render("action no longer loaded"))
		}
		lines := []string{
			titleStyle.Render(action.Title),
			"",
			idleStyle.Render("customer: ") + action.CustomerName,
			idleStyle.Render("type:     ") + string(action.Type),
			idleStyle.Render("priority: ") + string(action.Priority),
			idleStyle.Render("status:   ") + string(action.Status),
			idleStyle.Render("source:   ") + string(action.Source),
		}
		if action.DueAt != nil {
			lines = append(lines, idleStyle.Render("due:      ")+action.DueAt.Format("Mon Jan 2 15:04"))
		}
		if action.AssignedToName != "" {
			lines = append(lines, idleStyle.Render("assigned: ")+action.AssignedToName)
		}
		if desc := strings.TrimSpace(action.Description); desc != "" {
			lines = append(lines, "", desc)
		}
		if property := action.Metadata.Property; property != nil {
			lines = append(lines, "", idleStyle.Render("property: ")+property.Address)
		}
		for _, note := range action.Metadata.Notes {
			lines = append(lines, idleStyle.Render("note:     ")+note.Text)
		}
		lines = append(lines, "", helpStyle.Render("esc close"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeConfirmBulk:
		yes := "[ yes ]"
		no := "[ no ]"
		if m.confirmChoice == 0 {
			yes = selStyle.Render(yes)
			no = idleStyle.Render(no)
		} else {
			yes = idleStyle.Render(yes)
			no = selStyle.Render(no)
		}
		body := titleStyle.Render(m.pendingConfirm.Label+"?") + "\n\n" + yes + "  " + no + "\n\n" + helpStyle.Render("y/enter confirm • n/esc cancel")
		return boxStyle.Render(body)

	default:
		return ""
	}
}

// tabLabel returns the display label for one tab.
func tabLabel(tab app.Tab) string {
	if label, ok := tabLabels[tab]; ok {
		return label
	}
	return string(tab)
}

// formatDue renders a due timestamp relative to now.
func formatDue(due, now time.Time) string {
	if due.Before(now) {
		return due.Format("Jan 2") + " (overdue)"
	}
	if due.Sub(now) < 24*time.Hour {
		return due.Format("15:04")
	}
	return due.Format("Jan 2")
}

func wrapIndex(current int, delta int, total int) int {
	if total <= 0 {
		return 0
	}
	next := (current + delta) % total
	if next < 0 {
		next += total
	}
	return next
}

func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	if len(lines) <= maxLines {
		return content
	}
	return strings.Join(lines[:maxLines], "\n")
}

func overlayOnContent(base, overlay string, width, height int) string {
	baseLines := strings.Split(base, "\n")
	for len(baseLines) < height {
		baseLines = append(baseLines, "")
	}
	overlayLines := strings.Split(overlay, "\n")
	overlayWidth := 0
	for _, line := range overlayLines {
		if w := lipgloss.Width(line); w > overlayWidth {
			overlayWidth = w
		}
	}
	top := max(0, (height-len(overlayLines))/2)
	left := max(0, (width-overlayWidth)/2)
	for idx, line := range overlayLines {
		row := top + idx
		if row >= len(baseLines) {
			break
		}
		baseLines[row] = strings.Repeat(" ", left) + line
	}
	return strings.Join(baseLines, "\n")
}

func truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return "…"
	}
	return string(runes[:maxWidth-1]) + "…"
}
