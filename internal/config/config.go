package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

type ViewMode string

const (
	ViewModeCompact  ViewMode = "compact"
	ViewModeExpanded ViewMode = "expanded"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	API      APIConfig      `toml:"api"`
	Inbox    InboxConfig    `toml:"inbox"`
	Undo     UndoConfig     `toml:"undo"`
	Keys     KeyConfig      `toml:"keys"`
	Logging  LoggingConfig  `toml:"logging"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type APIConfig struct {
	BaseURL   string `toml:"base_url"`
	TimeoutMS int    `toml:"timeout_ms"`
}

type InboxConfig struct {
	DefaultTab  string   `toml:"default_tab"`
	ViewMode    ViewMode `toml:"view_mode"`
	GroupByDate bool     `toml:"group_by_date"`
}

type UndoConfig struct {
	Capacity int `toml:"capacity"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type KeyConfig struct {
	MultiSelect string `toml:"multi_select"`
	SelectAll   string `toml:"select_all"`
	Complete    string `toml:"complete"`
	Dismiss     string `toml:"dismiss"`
	Snooze      string `toml:"snooze"`
	Assign      string `toml:"assign"`
	Undo        string `toml:"undo"`
	ToggleView  string `toml:"toggle_view"`
	ToggleGroup string `toml:"toggle_group"`
	Search      string `toml:"search"`
}

func knownTabs() []string {
	return []string{"all", "whatsapp", "inquiry", "manual", "referral", "import", "history"}
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		API: APIConfig{
			BaseURL:   "",
			TimeoutMS: 4000,
		},
		Inbox: InboxConfig{
			DefaultTab:  "all",
			ViewMode:    ViewModeCompact,
			GroupByDate: true,
		},
		Undo: UndoConfig{
			Capacity: 20,
		},
		Keys: KeyConfig{
			MultiSelect: " ",
			SelectAll:   "a",
			Complete:    "c",
			Dismiss:     "x",
			Snooze:      "s",
			Assign:      "e",
			Undo:        "z",
			ToggleView:  "v",
			ToggleGroup: "g",
			Search:      "/",
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     "",
			},
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.API.TimeoutMS < 0 {
		return fmt.Errorf("api.timeout_ms must be >= 0, got %d", c.API.TimeoutMS)
	}
	if base := strings.TrimSpace(c.API.BaseURL); base != "" {
		if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
			return fmt.Errorf("api.base_url must start with http:// or https://: %q", base)
		}
	}

	tab := strings.TrimSpace(strings.ToLower(c.Inbox.DefaultTab))
	if tab != "" && !slices.Contains(knownTabs(), tab) {
		return fmt.Errorf("invalid inbox.default_tab: %q", c.Inbox.DefaultTab)
	}

	switch c.Inbox.ViewMode {
	case "", ViewModeCompact, ViewModeExpanded:
	default:
		return fmt.Errorf("invalid inbox.view_mode: %q", c.Inbox.ViewMode)
	}

	if c.Undo.Capacity < 1 {
		return fmt.Errorf("undo.capacity must be >= 1, got %d", c.Undo.Capacity)
	}

	switch strings.TrimSpace(strings.ToLower(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
