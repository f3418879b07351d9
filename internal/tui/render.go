package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"

	"github.com/wethinkt/go-panes/internal/i18n"
	"github.com/wethinkt/go-panes/internal/protocol"
	"github.com/wethinkt/go-panes/internal/state"
	"github.com/wethinkt/go-panes/internal/tuilog"
	"github.com/wethinkt/go-panes/internal/view"
)

const (
	maxThinkingRunes = 500
	maxResultLines   = 8
	maxBashLines     = 20
	mdCacheLimit     = 512
)

// renderer turns slot views into styled text. Markdown renders are memoized
// because the whole transcript is re-rendered on every view change.
type renderer struct {
	styles Styles
	glam   map[int]*glamour.TermRenderer
	memo   map[mdKey]string
}

type mdKey struct {
	width int
	text  string
}

func newRenderer(st Styles) *renderer {
	return &renderer{styles: st, glam: map[int]*glamour.TermRenderer{}, memo: map[mdKey]string{}}
}

func (r *renderer) markdown(text string, width int) string {
	k := mdKey{width, text}
	if s, ok := r.memo[k]; ok {
		return s
	}
	g, ok := r.glam[width]
	if !ok {
		var err error
		g, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.styles.Theme.GlamourStyle()),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			tuilog.Log.Warn("glamour renderer unavailable", "error", err)
			g = nil
		}
		r.glam[width] = g
	}
	out := text
	if g != nil {
		if rendered, err := g.Render(text); err == nil {
			out = strings.Trim(rendered, "\n")
		}
	}
	if len(r.memo) >= mdCacheLimit {
		clear(r.memo)
	}
	r.memo[k] = out
	return out
}

// slot renders the transcript of one slot at width columns.
func (r *renderer) slot(sv view.SlotView, width int) string {
	if !sv.Exists {
		return r.styles.Muted.Render(i18n.T("tui.pane.empty", "No session"))
	}
	width = max(10, width)
	var parts []string
	for i, m := range sv.Messages {
		if i == sv.StreamingIndex && m.Role == protocol.RoleAssistant {
			continue
		}
		if s := r.message(m, width); s != "" {
			parts = append(parts, s)
		}
	}
	if sv.StreamingThinking != "" {
		parts = append(parts, r.thinking(sv.StreamingThinking, width))
	}
	if sv.StreamingText != "" {
		parts = append(parts, r.styles.AssistantLabel.Render(i18n.T("tui.label.assistant", "Assistant"))+"\n"+
			r.markdown(sv.StreamingText, width-2))
	}
	for _, t := range sv.Tools {
		if t.Status == state.ToolRunning {
			parts = append(parts, r.runningTool(t, width))
		}
	}
	if sv.Bash != nil && sv.Bash.Running {
		parts = append(parts, r.bash(sv.Bash.Command, sv.Bash.Output, nil, true, width))
	}
	if n := len(sv.Queued.Steering) + len(sv.Queued.FollowUp); n > 0 {
		parts = append(parts, r.styles.Muted.Render(i18n.Tn("tui.queue", "{{.Count}} queued message", "{{.Count}} queued messages", n)))
	}
	if sv.Error != "" {
		parts = append(parts, r.styles.StatusError.Render(sv.Error))
	}
	return strings.Join(parts, "\n\n")
}

func (r *renderer) message(m protocol.Message, width int) string {
	switch m.Role {
	case protocol.RoleUser:
		var lines []string
		for _, b := range m.Content {
			switch b.Type {
			case protocol.BlockText:
				lines = append(lines, b.Text)
			case protocol.BlockImage:
				lines = append(lines, imageSummary(b.MimeType, b.Data))
			}
		}
		if len(lines) == 0 {
			return ""
		}
		return r.styles.UserLabel.Render(i18n.T("tui.label.user", "User")) + "\n" +
			r.styles.UserBlock.Width(width).Render(strings.Join(lines, "\n"))

	case protocol.RoleAssistant:
		var out []string
		for _, b := range m.Content {
			switch b.Type {
			case protocol.BlockText:
				if strings.TrimSpace(b.Text) != "" {
					out = append(out, r.styles.AssistantLabel.Render(i18n.T("tui.label.assistant", "Assistant"))+"\n"+
						r.markdown(b.Text, width-2))
				}
			case protocol.BlockThinking:
				if b.Thinking != "" {
					out = append(out, r.thinking(b.Thinking, width))
				}
			case protocol.BlockToolCall:
				label := r.styles.ToolLabel.Render(i18n.Tf("tui.label.tool", "Tool: %s", b.Name))
				out = append(out, label+"\n"+r.styles.ToolCallBlock.Width(width).Render(compactJSON(b.Arguments, width-2)))
			}
		}
		return strings.Join(out, "\n")

	case protocol.RoleToolResult:
		label := r.styles.ToolLabel.Render(i18n.T("tui.label.toolResult", "Tool Result"))
		body := tailLines(m.Text(), maxResultLines)
		style := r.styles.ToolResultBlock
		if m.IsError {
			style = style.Inherit(r.styles.StatusError)
		}
		return label + "\n" + style.Width(width).Render(body)

	case protocol.RoleBashExecution:
		if m.Bash == nil {
			return ""
		}
		return r.bash(m.Bash.Command, m.Bash.Output, m.Bash.ExitCode, m.Bash.Running, width)

	default:
		if t := m.Text(); t != "" {
			return r.styles.Muted.Render(t)
		}
		return ""
	}
}

func (r *renderer) thinking(text string, width int) string {
	if runes := []rune(text); len(runes) > maxThinkingRunes {
		text = string(runes[:maxThinkingRunes]) + "…"
	}
	return r.styles.ThinkingLabel.Render(i18n.T("tui.label.thinking", "Thinking")) + "\n" +
		r.styles.ThinkingBlock.Width(width).Render(text)
}

func (r *renderer) runningTool(t state.ToolExecution, width int) string {
	label := r.styles.ToolLabel.Render(i18n.Tf("tui.label.tool", "Tool: %s", t.Name))
	body := compactJSON(t.Args, width-2)
	if len(t.Partial) > 0 {
		body += "\n" + tailLines(rawText(t.Partial), maxResultLines)
	}
	return label + " " + r.styles.StatusWarn.Render("…") + "\n" + r.styles.ToolCallBlock.Width(width).Render(body)
}

func (r *renderer) bash(command, output string, exit *int, running bool, width int) string {
	head := "$ " + command
	switch {
	case running:
		head += " " + r.styles.StatusWarn.Render("…")
	case exit != nil && *exit != 0:
		head += " " + r.styles.StatusError.Render(fmt.Sprintf("[%d]", *exit))
	}
	body := tailLines(output, maxBashLines)
	if body == "" {
		return r.styles.BashBlock.Width(width).Render(head)
	}
	return r.styles.BashBlock.Width(width).Render(head + "\n" + body)
}

// compactJSON renders a tool argument object on one line, cut to width.
func compactJSON(raw json.RawMessage, width int) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	s := string(raw)
	if json.Unmarshal(raw, &v) == nil {
		if b, err := json.Marshal(v); err == nil {
			s = string(b)
		}
	}
	return ansi.Truncate(s, max(1, width), "…")
}

// rawText returns a JSON string's value, or the raw JSON otherwise.
func rawText(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

func tailLines(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return fmt.Sprintf("… %d more\n", len(lines)-n) + strings.Join(lines[len(lines)-n:], "\n")
}

// fitLines cuts text to exactly height lines of width columns, showing the
// window that ends offset lines above the bottom.
func fitLines(text string, width, height, offset int) []string {
	if height <= 0 {
		return nil
	}
	lines := strings.Split(text, "\n")
	end := len(lines) - max(0, offset)
	if end < height {
		end = min(height, len(lines))
	}
	start := max(0, end-height)
	out := make([]string, 0, height)
	for _, l := range lines[start:end] {
		out = append(out, padRight(ansi.Truncate(l, width, "…"), width))
	}
	for len(out) < height {
		out = append(out, strings.Repeat(" ", width))
	}
	return out
}

func padRight(s string, width int) string {
	if w := ansi.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
