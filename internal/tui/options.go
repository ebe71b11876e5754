package tui

import "github.com/hylla/visning/internal/app"

type Option func(*Model)

func WithInitialTab(tab app.Tab) Option {
	return func(m *Model) {
		for idx, candidate := range m.tabs {
			if candidate == tab {
				m.tabIndex = idx
				m.selection.SetTab(tab)
				return
			}
		}
	}
}

func WithViewMode(mode app.ViewMode) Option {
	return func(m *Model) {
		switch mode {
		case app.ViewCompact, app.ViewExpanded:
			m.viewOpts.Mode = mode
		}
	}
}

func WithDateGrouping(enabled bool) Option {
	return func(m *Model) {
		m.viewOpts.GroupByDate = enabled
	}
}

func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}
