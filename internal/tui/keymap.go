package tui

import (
	"strings"
	"unicode"

	"charm.land/bubbles/v2/key"
)

// KeyConfig carries user key overrides for rebindable actions.
type KeyConfig struct {
	MultiSelect string
	SelectAll   string
	Complete    string
	Dismiss     string
	Snooze      string
	Assign      string
	Undo        string
	ToggleView  string
	ToggleGroup string
	Search      string
}

// keyMap represents key map data used by this package.
type keyMap struct {
	quit        key.Binding
	reload      key.Binding
	toggleHelp  key.Binding
	tabLeft     key.Binding
	tabRight    key.Binding
	moveUp      key.Binding
	moveDown    key.Binding
	actionInfo  key.Binding
	multiSelect key.Binding
	selectAll   key.Binding
	complete    key.Binding
	dismiss     key.Binding
	snooze      key.Binding
	assign      key.Binding
	priority    key.Binding
	addNote     key.Binding
	restore     key.Binding
	undo        key.Binding
	search      key.Binding
	presets     key.Binding
	savePreset  key.Binding
	toggleView  key.Binding
	toggleGroup key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		tabLeft:     key.NewBinding(key.WithKeys("h", "left", "shift+tab"), key.WithHelp("h/←", "tab left")),
		tabRight:    key.NewBinding(key.WithKeys("l", "right", "tab"), key.WithHelp("l/→", "tab right")),
		moveUp:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "row up")),
		moveDown:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "row down")),
		actionInfo:  key.NewBinding(key.WithKeys("i", "enter"), key.WithHelp("i/enter", "action info")),
		multiSelect: key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "toggle select")),
		selectAll:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select all visible")),
		complete:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "complete")),
		dismiss:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss")),
		snooze:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "snooze")),
		assign:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "assign")),
		priority:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "priority")),
		addNote:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "add note")),
		restore:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "restore")),
		undo:        key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "undo")),
		search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		presets:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "presets")),
		savePreset:  key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "save preset")),
		toggleView:  key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "compact/expanded")),
		toggleGroup: key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "toggle grouping")),
	}
}

// applyConfig overrides rebindable actions with configured keys.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.multiSelect, cfg.MultiSelect, " ", "toggle select")
	configureBinding(&k.selectAll, cfg.SelectAll, "a", "select all visible")
	configureBinding(&k.complete, cfg.Complete, "c", "complete")
	configureBinding(&k.dismiss, cfg.Dismiss, "x", "dismiss")
	configureBinding(&k.snooze, cfg.Snooze, "s", "snooze")
	configureBinding(&k.assign, cfg.Assign, "e", "assign")
	configureBinding(&k.undo, cfg.Undo, "z", "undo")
	configureBinding(&k.toggleView, cfg.ToggleView, "v", "compact/expanded")
	configureBinding(&k.toggleGroup, cfg.ToggleGroup, "g", "toggle grouping")
	configureBinding(&k.search, cfg.Search, "/", "search")
}

// configureBinding replaces one binding's keys and help text.
func configureBinding(binding *key.Binding, configured, fallback, desc string) {
	keys, helpKey := parseBindingKeys(configured, fallback)
	binding.SetKeys(keys...)
	binding.SetHelp(helpKey, desc)
}

// parseBindingKeys expands one configured key into matcher aliases.
func parseBindingKeys(configured, fallback string) ([]string, string) {
	raw := configured
	if strings.TrimSpace(raw) == "" && raw != " " {
		raw = fallback
	}
	if raw == " " || strings.EqualFold(raw, "space") {
		return []string{" ", "space"}, "space"
	}
	runes := []rune(raw)
	if len(runes) == 1 {
		if unicode.IsUpper(runes[0]) {
			return []string{raw, "shift+" + strings.ToLower(raw)}, raw
		}
		return []string{raw}, raw
	}
	return []string{strings.ToLower(raw)}, raw
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.complete, k.dismiss, k.snooze, k.multiSelect, k.undo, k.search, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.tabLeft, k.tabRight, k.moveUp, k.moveDown, k.actionInfo, k.toggleView, k.toggleGroup, k.toggleHelp, k.reload, k.quit},
		{k.multiSelect, k.selectAll, k.complete, k.dismiss, k.snooze, k.assign, k.priority, k.addNote, k.restore, k.undo},
		{k.search, k.presets, k.savePreset},
	}
}
