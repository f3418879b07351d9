// Package theme provides color themes for the terminal UI.
//
// Two themes are built in. User themes are JSON files under
// ~/.panes/themes and override built-ins of the same name; fields a user
// theme leaves empty fall back to the dark theme.
package theme

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/wethinkt/go-panes/internal/config"
)

// DefaultName is used when the UI state names no theme.
const DefaultName = "dark"

// ErrNotFound is returned for a theme that is neither built in nor on disk.
var ErrNotFound = errors.New("theme not found")

// Style defines colors and text attributes for a UI element.
type Style struct {
	Fg        string `json:"fg,omitempty"`
	Bg        string `json:"bg,omitempty"`
	Bold      bool   `json:"bold,omitempty"`
	Italic    bool   `json:"italic,omitempty"`
	Underline bool   `json:"underline,omitempty"`
}

// Theme defines all styles used in the TUI.
type Theme struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`

	Accent         string `json:"accent,omitempty"`
	BorderActive   string `json:"border_active,omitempty"`
	BorderInactive string `json:"border_inactive,omitempty"`

	TextPrimary   Style `json:"text_primary,omitempty"`
	TextSecondary Style `json:"text_secondary,omitempty"`
	TextMuted     Style `json:"text_muted,omitempty"`

	UserBlock       Style `json:"user_block,omitempty"`
	AssistantBlock  Style `json:"assistant_block,omitempty"`
	ThinkingBlock   Style `json:"thinking_block,omitempty"`
	ToolCallBlock   Style `json:"tool_call_block,omitempty"`
	ToolResultBlock Style `json:"tool_result_block,omitempty"`
	BashBlock       Style `json:"bash_block,omitempty"`

	UserLabel      Style `json:"user_label,omitempty"`
	AssistantLabel Style `json:"assistant_label,omitempty"`
	ThinkingLabel  Style `json:"thinking_label,omitempty"`
	ToolLabel      Style `json:"tool_label,omitempty"`

	StatusOK    Style `json:"status_ok,omitempty"`
	StatusWarn  Style `json:"status_warn,omitempty"`
	StatusError Style `json:"status_error,omitempty"`

	ConfirmPrompt     Style `json:"confirm_prompt,omitempty"`
	ConfirmSelected   Style `json:"confirm_selected,omitempty"`
	ConfirmUnselected Style `json:"confirm_unselected,omitempty"`

	// Glamour is the glamour standard style for assistant markdown.
	Glamour string `json:"glamour,omitempty"`
}

// Meta describes an available theme.
type Meta struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Path        string `json:"path,omitempty"`
	Builtin     bool   `json:"builtin"`
}

var builtins = map[string]Theme{
	"dark": {
		Name:           "dark",
		Description:    "Muted colors on a dark background",
		Accent:         "#7D56F4",
		BorderActive:   "#9D7AFF",
		BorderInactive: "#444444",
		TextPrimary:    Style{Fg: "#E0E0E0"},
		TextSecondary:  Style{Fg: "#A8A8A8"},
		TextMuted:      Style{Fg: "#6C6C6C"},

		UserBlock:       Style{Fg: "#E0E0E0", Bg: "#1F2A3A"},
		AssistantBlock:  Style{Fg: "#E0E0E0"},
		ThinkingBlock:   Style{Fg: "#8A8A8A", Italic: true},
		ToolCallBlock:   Style{Fg: "#C0C0C0", Bg: "#262626"},
		ToolResultBlock: Style{Fg: "#A0A0A0", Bg: "#1C1C1C"},
		BashBlock:       Style{Fg: "#D7D7AF", Bg: "#1C1C1C"},

		UserLabel:      Style{Fg: "#5FAFFF", Bold: true},
		AssistantLabel: Style{Fg: "#AF87FF", Bold: true},
		ThinkingLabel:  Style{Fg: "#808080", Italic: true},
		ToolLabel:      Style{Fg: "#FFAF5F", Bold: true},

		StatusOK:    Style{Fg: "#87D787"},
		StatusWarn:  Style{Fg: "#FFD75F"},
		StatusError: Style{Fg: "#FF5F5F", Bold: true},

		ConfirmPrompt:     Style{Fg: "#FFFFFF", Bold: true},
		ConfirmSelected:   Style{Fg: "#000000", Bg: "#FF87D7", Bold: true},
		ConfirmUnselected: Style{Fg: "#9E9E9E"},

		Glamour: "dark",
	},
	"light": {
		Name:           "light",
		Description:    "Dark text on a light background",
		Accent:         "#5A3FC0",
		BorderActive:   "#5A3FC0",
		BorderInactive: "#BCBCBC",
		TextPrimary:    Style{Fg: "#1C1C1C"},
		TextSecondary:  Style{Fg: "#4E4E4E"},
		TextMuted:      Style{Fg: "#8A8A8A"},

		UserBlock:       Style{Fg: "#1C1C1C", Bg: "#E4ECF7"},
		AssistantBlock:  Style{Fg: "#1C1C1C"},
		ThinkingBlock:   Style{Fg: "#6C6C6C", Italic: true},
		ToolCallBlock:   Style{Fg: "#303030", Bg: "#EEEEEE"},
		ToolResultBlock: Style{Fg: "#4E4E4E", Bg: "#F5F5F5"},
		BashBlock:       Style{Fg: "#3A3A00", Bg: "#F5F5E0"},

		UserLabel:      Style{Fg: "#005FAF", Bold: true},
		AssistantLabel: Style{Fg: "#5F00AF", Bold: true},
		ThinkingLabel:  Style{Fg: "#808080", Italic: true},
		ToolLabel:      Style{Fg: "#AF5F00", Bold: true},

		StatusOK:    Style{Fg: "#008700"},
		StatusWarn:  Style{Fg: "#AF8700"},
		StatusError: Style{Fg: "#D70000", Bold: true},

		ConfirmPrompt:     Style{Fg: "#000000", Bold: true},
		ConfirmSelected:   Style{Fg: "#FFFFFF", Bg: "#5A3FC0", Bold: true},
		ConfirmUnselected: Style{Fg: "#6C6C6C"},

		Glamour: "light",
	},
}

// Default returns the built-in dark theme.
func Default() Theme {
	return builtins[DefaultName]
}

// Builtin returns the built-in theme called name.
func Builtin(name string) (Theme, bool) {
	t, ok := builtins[name]
	return t, ok
}

// Dir returns the user themes directory.
func Dir() (string, error) {
	d, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "themes"), nil
}

// LoadByName loads name from dir, falling back to the built-ins. An empty
// dir skips the user directory.
func LoadByName(dir, name string) (Theme, error) {
	if name == "" {
		name = DefaultName
	}
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, name+".json"))
		switch {
		case err == nil:
			t := Default()
			if err := json.Unmarshal(data, &t); err != nil {
				return Default(), fmt.Errorf("parsing theme %s: %w", name, err)
			}
			t.Name = name
			return t, nil
		case !errors.Is(err, os.ErrNotExist):
			return Default(), fmt.Errorf("reading theme %s: %w", name, err)
		}
	}
	if t, ok := builtins[name]; ok {
		return t, nil
	}
	return Default(), fmt.Errorf("%w: %s", ErrNotFound, name)
}

// ListAvailable returns the built-ins plus the user themes in dir, sorted by
// name. A user theme shadows the built-in of the same name.
func ListAvailable(dir string) []Meta {
	byName := make(map[string]Meta)
	for name, t := range builtins {
		byName[name] = Meta{Name: name, Description: t.Description, Builtin: true}
	}
	if dir != "" {
		entries, _ := os.ReadDir(dir)
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			name := strings.TrimSuffix(e.Name(), ".json")
			path := filepath.Join(dir, e.Name())
			m := Meta{Name: name, Description: "User theme", Path: path}
			if data, err := os.ReadFile(path); err == nil {
				var t Theme
				if json.Unmarshal(data, &t) == nil && t.Description != "" {
					m.Description = t.Description
				}
			}
			byName[name] = m
		}
	}
	out := make([]Meta, 0, len(byName))
	for _, m := range byName {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b Meta) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Save writes t to dir as name.json.
func Save(dir, name string, t Theme) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	t.Name = name
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name+".json"), data, 0644)
}

// GetAccent returns the accent color, with fallback.
func (t Theme) GetAccent() string {
	if t.Accent != "" {
		return t.Accent
	}
	return "#7D56F4"
}

// GetBorderActive returns the focused pane border color.
func (t Theme) GetBorderActive() string {
	if t.BorderActive != "" {
		return t.BorderActive
	}
	return t.GetAccent()
}

// GetBorderInactive returns the unfocused pane border color.
func (t Theme) GetBorderInactive() string {
	if t.BorderInactive != "" {
		return t.BorderInactive
	}
	return "#444444"
}

// GlamourStyle returns the glamour standard style name.
func (t Theme) GlamourStyle() string {
	if t.Glamour != "" {
		return t.Glamour
	}
	return "dark"
}
