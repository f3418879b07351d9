// Package tui renders the client's view as a multi-pane terminal UI and turns
// key presses into dispatcher calls.
//
// The UI never touches client state. It reads published views and queues
// intents on the client loop through a Driver.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"golang.org/x/term"

	"github.com/wethinkt/go-panes/internal/dispatch"
	"github.com/wethinkt/go-panes/internal/i18n"
	"github.com/wethinkt/go-panes/internal/layout"
	"github.com/wethinkt/go-panes/internal/prefs"
	"github.com/wethinkt/go-panes/internal/protocol"
	"github.com/wethinkt/go-panes/internal/state"
	"github.com/wethinkt/go-panes/internal/tui/theme"
	"github.com/wethinkt/go-panes/internal/tuilog"
	"github.com/wethinkt/go-panes/internal/view"
)

// Driver is the client surface the UI needs. *client.Client implements it.
type Driver interface {
	View() view.View
	Views() (<-chan view.View, func())
	Notices(kind state.NoticeKind) (<-chan state.Notice, func())
	Do(fn func(d *dispatch.Dispatcher)) bool
}

// Options configures the UI.
type Options struct {
	// Theme is used when the server's UI state names none.
	Theme string
	// ThemeDir holds user themes. Empty means built-ins only.
	ThemeDir string
	// Prefs supplies the recent workspace list.
	Prefs prefs.Store
}

const (
	defaultSidebar = 24
	rightPaneWidth = 32
	inputLines     = 3
	draftDebounce  = 500 * time.Millisecond
)

var thinkingLevels = []string{"off", "minimal", "low", "medium", "high", "xhigh"}

type (
	viewMsg   view.View
	closedMsg struct{}
	noticeMsg struct {
		n  state.Notice
		ch <-chan state.Notice
	}
	draftTickMsg struct{ seq int }
)

// Model is the root bubbletea model.
type Model struct {
	drv     Driver
	opts    Options
	view    view.View
	views   <-chan view.View
	notices []<-chan state.Notice
	unsubs  []func()

	width, height int
	keys          keyMap
	help          help.Model
	showHelp      bool
	input         textarea.Model

	themeName string
	styles    Styles
	render    *renderer

	scroll    map[string]int
	dialog    dialog
	dismissed map[string]bool

	workspaceID string
	draftSeq    int
	draftSaved  string
}

// New subscribes to drv and returns the root model. Close releases the
// subscriptions.
func New(drv Driver, opts Options) *Model {
	ta := textarea.New()
	ta.Placeholder = i18n.T("tui.input.placeholder", "Message, or !command to run a shell command")
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(inputLines)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("ctrl+j"))

	m := &Model{
		drv:       drv,
		opts:      opts,
		keys:      defaultKeyMap(),
		help:      help.New(),
		input:     ta,
		scroll:    map[string]int{},
		dismissed: map[string]bool{},
	}
	var unsub func()
	m.views, unsub = drv.Views()
	m.unsubs = append(m.unsubs, unsub)
	for _, kind := range []state.NoticeKind{state.NoticeQuestionnaire, state.NoticeExtensionUI, state.NoticeCustomUI, state.NoticeForkMessages} {
		ch, unsub := drv.Notices(kind)
		m.notices = append(m.notices, ch)
		m.unsubs = append(m.unsubs, unsub)
	}
	m.applyView(drv.View())
	return m
}

// Close drops the driver subscriptions.
func (m *Model) Close() {
	for _, u := range m.unsubs {
		u()
	}
	m.unsubs = nil
}

// Run shows the UI until the user quits or ctx is cancelled.
func Run(ctx context.Context, drv Driver, opts Options) error {
	m := New(drv, opts)
	defer m.Close()

	popts := []tea.ProgramOption{tea.WithContext(ctx)}
	for _, fd := range []int{int(os.Stdout.Fd()), int(os.Stdin.Fd()), int(os.Stderr.Fd())} {
		if term.IsTerminal(fd) {
			if w, h, err := term.GetSize(fd); err == nil && w > 0 && h > 0 {
				popts = append(popts, tea.WithWindowSize(w, h))
				break
			}
		}
	}
	_, err := tea.NewProgram(m, popts...).Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func waitView(ch <-chan view.View) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return viewMsg(v)
	}
}

func waitNotice(ch <-chan state.Notice) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg{n: n, ch: ch}
	}
}

func (m *Model) do(fn func(d *dispatch.Dispatcher)) {
	if !m.drv.Do(fn) {
		tuilog.Log.Warn("tui: client loop stopped, action dropped")
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitView(m.views), m.input.Focus()}
	for _, ch := range m.notices {
		cmds = append(cmds, waitNotice(ch))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.SetWidth(max(10, m.layoutWidth()-2))
		return m, nil

	case viewMsg:
		m.applyView(view.View(msg))
		return m, waitView(m.views)

	case closedMsg:
		return m, tea.Quit

	case noticeMsg:
		m.handleNotice(msg.n)
		return m, waitNotice(msg.ch)

	case draftTickMsg:
		if msg.seq == m.draftSeq {
			m.saveDraft()
		}
		return m, nil

	case tea.KeyPressMsg:
		if m.dialog != nil {
			m.dialog = m.dialog.update(msg, m.do)
			if m.dialog == nil {
				m.syncDialogs()
			}
			return m, nil
		}
		return m, m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// applyView adopts v, reloading the theme and draft when they changed.
func (m *Model) applyView(v view.View) {
	m.view = v
	name := v.ThemeID
	if name == "" {
		name = m.opts.Theme
	}
	if name == "" {
		name = theme.DefaultName
	}
	if name != m.themeName || m.render == nil {
		t, err := theme.LoadByName(m.opts.ThemeDir, name)
		if err != nil {
			tuilog.Log.Warn("tui: theme unavailable, using default", "theme", name, "error", err)
		}
		m.themeName = name
		m.styles = newStyles(t)
		m.render = newRenderer(m.styles)
	}

	id := ""
	if v.Active != nil {
		id = v.Active.ID
	}
	if id != m.workspaceID {
		m.workspaceID = id
		m.input.SetValue(v.Draft)
		m.draftSaved = v.Draft
		m.draftSeq++
	}
	m.syncDialogs()
}

// syncDialogs opens the dialog a pending request of the focused slot needs.
// A request the user already answered or dismissed is not reopened.
func (m *Model) syncDialogs() {
	if m.dialog != nil || m.view.Active == nil {
		return
	}
	w := m.view.Active
	sl := w.ActiveSlot
	to := protocol.Target{WorkspaceID: w.ID, SessionSlotID: sl.ID}
	switch {
	case sl.Questionnaire != nil:
		k := "q:" + w.ID + "/" + sl.ID + "/" + sl.Questionnaire.ToolCallID
		if !m.dismissed[k] {
			m.dismissed[k] = true
			m.dialog = newQuestionnaire(to, sl.Questionnaire.ToolCallID, sl.Questionnaire.Questions)
		}
	case len(sl.ExtensionRequest) > 0:
		k := "x:" + w.ID + "/" + sl.ID + "/" + string(sl.ExtensionRequest)
		if !m.dismissed[k] {
			m.dismissed[k] = true
			m.dialog = m.extensionDialog(to, sl.ExtensionRequest)
		}
	case sl.CustomUI != nil:
		k := "c:" + w.ID + "/" + sl.ID + "/" + sl.CustomUI.SessionID
		if !m.dismissed[k] {
			m.dismissed[k] = true
			m.dialog = m.customUIDialog(to, sl.CustomUI.Component)
		}
	}
}

func (m *Model) extensionDialog(to protocol.Target, request json.RawMessage) dialog {
	in := newInput(i18n.T("tui.extension.title", "Extension request"), `{"value": ...}`, "",
		func(d *dispatch.Dispatcher, value string) {
			if err := d.ExtensionUIResponse(to, []byte(value)); err != nil {
				tuilog.Log.Debug("tui: extension response", "error", err)
			}
		})
	in.detail = prettyJSON(request)
	in.onCancel = func(d *dispatch.Dispatcher) {
		if err := d.ExtensionUIResponse(to, []byte(`{"cancelled":true}`)); err != nil {
			tuilog.Log.Debug("tui: extension cancel", "error", err)
		}
	}
	return in
}

func (m *Model) customUIDialog(to protocol.Target, component json.RawMessage) dialog {
	in := newInput(i18n.T("tui.customUI.title", "Custom UI input"), `{"key": ...}`, "",
		func(d *dispatch.Dispatcher, value string) {
			if err := d.CustomUIInput(to, []byte(value)); err != nil {
				tuilog.Log.Debug("tui: custom UI input", "error", err)
			}
		})
	in.detail = prettyJSON(component)
	return in
}

func (m *Model) handleNotice(n state.Notice) {
	w := m.view.Active
	if w == nil || n.WorkspaceID != w.ID || n.SlotID != w.ActiveSlot.ID {
		return
	}
	switch n.Kind {
	case state.NoticeForkMessages:
		msgs, _ := n.Payload.([]protocol.ForkMessage)
		if m.dialog == nil {
			m.dialog = forkPicker(msgs)
		}
	default:
		m.syncDialogs()
	}
}

func forkPicker(msgs []protocol.ForkMessage) dialog {
	opts := make([]pickOption, 0, len(msgs))
	for _, fm := range msgs {
		opts = append(opts, pickOption{ID: fm.EntryID, Label: truncate(oneLine(fm.Text), 60)})
	}
	return newPicker(i18n.T("tui.fork.title", "Fork from message"), opts, func(id string, do doFunc) dialog {
		do(func(d *dispatch.Dispatcher) { _ = d.Fork(id) })
		return nil
	})
}

func (m *Model) saveDraft() {
	text := m.input.Value()
	if text == m.draftSaved || m.view.Active == nil {
		return
	}
	m.draftSaved = text
	m.do(func(d *dispatch.Dispatcher) { _ = d.SetDraft(text) })
}

func (m *Model) focusedPaneID() string {
	if m.view.Active == nil {
		return ""
	}
	return m.view.Active.Layout.Focused
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	k := m.keys
	w := m.view.Active
	switch {
	case key.Matches(msg, k.Quit):
		m.saveDraft()
		return tea.Quit
	case key.Matches(msg, k.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	case key.Matches(msg, k.Submit):
		return m.submit()
	case key.Matches(msg, k.Abort):
		if w == nil {
			return nil
		}
		switch {
		case w.ActiveSlot.Bash != nil && w.ActiveSlot.Bash.Running:
			m.do(func(d *dispatch.Dispatcher) { _ = d.AbortBash() })
		case w.ActiveSlot.Streaming():
			m.do(func(d *dispatch.Dispatcher) { _ = d.Abort() })
		}
	case key.Matches(msg, k.ScrollU):
		m.scroll[m.focusedPaneID()] += max(1, m.bodyHeight()/2)
	case key.Matches(msg, k.ScrollD):
		id := m.focusedPaneID()
		m.scroll[id] = max(0, m.scroll[id]-max(1, m.bodyHeight()/2))

	case key.Matches(msg, k.SplitRight):
		m.do(func(d *dispatch.Dispatcher) { _ = d.SplitPane(layout.Horizontal) })
	case key.Matches(msg, k.SplitDown):
		m.do(func(d *dispatch.Dispatcher) { _ = d.SplitPane(layout.Vertical) })
	case key.Matches(msg, k.ClosePane):
		m.do(func(d *dispatch.Dispatcher) { _ = d.ClosePane("") })
	case key.Matches(msg, k.NextPane):
		m.do(func(d *dispatch.Dispatcher) { _ = d.CycleFocus(1) })
	case key.Matches(msg, k.PrevPane):
		m.do(func(d *dispatch.Dispatcher) { _ = d.CycleFocus(-1) })
	case key.Matches(msg, k.Grow):
		m.resize(resizeStep)
	case key.Matches(msg, k.Shrink):
		m.resize(-resizeStep)

	case key.Matches(msg, k.NewTab):
		m.do(func(d *dispatch.Dispatcher) { _ = d.AddTab() })
	case key.Matches(msg, k.CloseTab):
		m.do(func(d *dispatch.Dispatcher) { _ = d.CloseTab("") })
	case key.Matches(msg, k.NextTab):
		m.selectTab(1)
	case key.Matches(msg, k.PrevTab):
		m.selectTab(-1)

	case key.Matches(msg, k.OpenWorkspace):
		m.dialog = m.openWorkspaceDialog()
	case key.Matches(msg, k.CloseWorkspace):
		if w != nil {
			m.dialog = newConfirm(i18n.Tf("tui.confirm.closeWorkspace", "Close workspace %s?", w.Name),
				func(d *dispatch.Dispatcher) { _ = d.CloseWorkspace(w.ID) })
		}
	case key.Matches(msg, k.NextWorkspace):
		m.selectWorkspace(1)
	case key.Matches(msg, k.PrevWorkspace):
		m.selectWorkspace(-1)

	case key.Matches(msg, k.PickModel):
		if w != nil {
			m.dialog = modelPicker(w)
		}
	case key.Matches(msg, k.PickThinking):
		if w != nil {
			m.dialog = thinkingPicker(w.ActiveSlot.State.ThinkingLevel)
		}
	case key.Matches(msg, k.PickSession):
		if w != nil {
			m.do(func(d *dispatch.Dispatcher) { _ = d.RefreshSessions() })
			m.dialog = sessionPicker(w.Sessions, w.ActiveSlot.State.SessionID)
		}
	case key.Matches(msg, k.NewSession):
		m.do(func(d *dispatch.Dispatcher) { _ = d.NewSession() })
	case key.Matches(msg, k.Compact):
		m.do(func(d *dispatch.Dispatcher) { _ = d.Compact("") })
	case key.Matches(msg, k.Fork):
		m.do(func(d *dispatch.Dispatcher) { _ = d.GetForkMessages() })
	case key.Matches(msg, k.Sidebar):
		m.do(func(d *dispatch.Dispatcher) { _ = d.ToggleRightPane() })
	case key.Matches(msg, k.Wider):
		width := m.sidebarWidth() + 2
		m.do(func(d *dispatch.Dispatcher) { d.SetSidebarWidth(width) })
	case key.Matches(msg, k.Narrower):
		width := max(12, m.sidebarWidth()-2)
		m.do(func(d *dispatch.Dispatcher) { d.SetSidebarWidth(width) })
	case key.Matches(msg, k.Theme):
		next := nextTheme(theme.ListAvailable(m.opts.ThemeDir), m.themeName)
		m.do(func(d *dispatch.Dispatcher) { d.SetTheme(next) })
	case key.Matches(msg, k.Deploy):
		m.dialog = newConfirm(i18n.T("tui.confirm.deploy", "Start a deploy?"),
			func(d *dispatch.Dispatcher) { d.Deploy() })
	case key.Matches(msg, k.Refresh):
		m.do(func(d *dispatch.Dispatcher) { _ = d.Refresh() })

	default:
		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() != before {
			m.draftSeq++
			seq := m.draftSeq
			return tea.Batch(cmd, tea.Tick(draftDebounce, func(time.Time) tea.Msg { return draftTickMsg{seq} }))
		}
		return cmd
	}
	return nil
}

// submit sends the input. A leading ! runs a shell command, !! keeps its
// output out of the agent's context. @path tokens naming image files are
// attached to the prompt.
func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	m.input.Reset()
	m.draftSaved = ""
	m.draftSeq++
	drv := m.drv

	switch {
	case strings.HasPrefix(text, "!!"):
		cmd := strings.TrimSpace(text[2:])
		m.do(func(d *dispatch.Dispatcher) { _ = d.Bash(cmd, true); _ = d.SetDraft("") })
		return nil
	case strings.HasPrefix(text, "!"):
		cmd := strings.TrimSpace(text[1:])
		m.do(func(d *dispatch.Dispatcher) { _ = d.Bash(cmd, false); _ = d.SetDraft("") })
		return nil
	}

	paths, message := imageRefs(text)
	if len(paths) == 0 {
		m.do(func(d *dispatch.Dispatcher) { _ = d.Submit(message, nil); _ = d.SetDraft("") })
		return nil
	}
	// Image files are read off the UI goroutine.
	return func() tea.Msg {
		var images []protocol.ImageAttachment
		for _, p := range paths {
			img, err := dispatch.LoadImage(p)
			if err != nil {
				tuilog.Log.Warn("tui: image not attached", "path", p, "error", err)
				continue
			}
			images = append(images, img)
		}
		drv.Do(func(d *dispatch.Dispatcher) { _ = d.Submit(message, images); _ = d.SetDraft("") })
		return nil
	}
}

var imageExts = []string{".png", ".jpg", ".jpeg", ".gif"}

// imageRefs splits @path tokens that name existing image files out of text.
func imageRefs(text string) (paths []string, rest string) {
	fields := strings.Fields(text)
	kept := fields[:0:0]
	for _, f := range fields {
		if p, ok := strings.CutPrefix(f, "@"); ok && slices.Contains(imageExts, strings.ToLower(filepath.Ext(p))) {
			if _, err := os.Stat(p); err == nil {
				paths = append(paths, p)
				continue
			}
		}
		kept = append(kept, f)
	}
	if len(paths) == 0 {
		return nil, text
	}
	return paths, strings.Join(kept, " ")
}

func (m *Model) resize(delta float64) {
	w := m.view.Active
	if w == nil {
		return
	}
	path, split, idx, ok := parentSplit(w.Layout.Root, w.Layout.Focused)
	if !ok {
		return
	}
	sizes, ok := resizedSizes(split.Sizes, idx, delta)
	if !ok {
		return
	}
	m.do(func(d *dispatch.Dispatcher) { _ = d.ResizeSplit(path, sizes) })
}

func (m *Model) selectTab(step int) {
	w := m.view.Active
	if w == nil || len(w.Tabs) < 2 {
		return
	}
	i := slices.IndexFunc(w.Tabs, func(t view.TabView) bool { return t.Active })
	next := w.Tabs[(i+step+len(w.Tabs))%len(w.Tabs)].ID
	m.do(func(d *dispatch.Dispatcher) { _ = d.SelectTab(next) })
}

func (m *Model) selectWorkspace(step int) {
	ws := m.view.Workspaces
	if len(ws) < 2 {
		return
	}
	m.saveDraft()
	i := slices.IndexFunc(ws, func(s view.WorkspaceSummary) bool { return s.Active })
	next := ws[(i+step+len(ws))%len(ws)].ID
	m.do(func(d *dispatch.Dispatcher) { d.SelectWorkspace(next) })
}

const otherPath = "\x00other"

func (m *Model) openWorkspaceDialog() dialog {
	pathInput := func() dialog {
		return newInput(i18n.T("tui.open.title", "Open workspace"), "/path/to/project", m.view.HomeDir,
			func(d *dispatch.Dispatcher, value string) { d.OpenWorkspace(value) })
	}
	var recent []string
	if m.opts.Prefs != nil {
		recent = prefs.Recent(m.opts.Prefs)
	}
	open := map[string]bool{}
	for _, s := range m.view.Workspaces {
		open[s.Path] = true
	}
	var opts []pickOption
	for _, p := range recent {
		if !open[p] {
			opts = append(opts, pickOption{ID: p, Label: p})
		}
	}
	if len(opts) == 0 {
		return pathInput()
	}
	opts = append(opts, pickOption{ID: otherPath, Label: i18n.T("tui.open.otherPath", "Other path…")})
	return newPicker(i18n.T("tui.open.title", "Open workspace"), opts, func(id string, do doFunc) dialog {
		if id == otherPath {
			return pathInput()
		}
		do(func(d *dispatch.Dispatcher) { d.OpenWorkspace(id) })
		return nil
	})
}

func modelPicker(w *view.WorkspaceView) dialog {
	cur := w.ActiveSlot.State.Model
	opts := make([]pickOption, 0, len(w.Models))
	for _, md := range w.Models {
		label := md.Name
		if label == "" {
			label = md.ID
		}
		detail := md.Provider
		if md.ContextWindow > 0 {
			detail += fmt.Sprintf(", %dk", md.ContextWindow/1000)
		}
		opts = append(opts, pickOption{
			ID:     md.Provider + "/" + md.ID,
			Label:  label,
			Detail: detail,
			Active: cur != nil && cur.Provider == md.Provider && cur.ID == md.ID,
		})
	}
	return newPicker(i18n.T("tui.modelPicker.title", "Select model"), opts, func(id string, do doFunc) dialog {
		provider, modelID, _ := strings.Cut(id, "/")
		do(func(d *dispatch.Dispatcher) { _ = d.SetModel(provider, modelID) })
		return nil
	})
}

func thinkingPicker(current string) dialog {
	opts := make([]pickOption, 0, len(thinkingLevels))
	for _, l := range thinkingLevels {
		opts = append(opts, pickOption{ID: l, Label: l, Active: l == current})
	}
	return newPicker(i18n.T("tui.thinking.title", "Thinking level"), opts, func(id string, do doFunc) dialog {
		do(func(d *dispatch.Dispatcher) { _ = d.SetThinkingLevel(id) })
		return nil
	})
}

func sessionPicker(sessions []protocol.SessionInfo, current string) dialog {
	now := time.Now()
	opts := make([]pickOption, 0, len(sessions))
	for _, s := range sessions {
		label := s.Name
		if label == "" {
			label = s.FirstMessage
		}
		if label == "" {
			label = s.ID
		}
		var detail string
		if s.Modified > 0 {
			detail = i18n.Ago(time.UnixMilli(s.Modified), now)
		}
		if s.MessageCount > 0 {
			detail += " · " + i18n.Tn("tui.session.messages", "{{.Count}} message", "{{.Count}} messages", s.MessageCount)
		}
		opts = append(opts, pickOption{ID: s.ID, Label: truncate(oneLine(label), 50), Detail: detail, Active: s.ID == current})
	}
	return newPicker(i18n.T("tui.session.title", "Switch session"), opts, func(id string, do doFunc) dialog {
		do(func(d *dispatch.Dispatcher) { _ = d.SwitchSession(id) })
		return nil
	})
}

func nextTheme(list []theme.Meta, current string) string {
	if len(list) == 0 {
		return theme.DefaultName
	}
	i := slices.IndexFunc(list, func(t theme.Meta) bool { return t.Name == current })
	return list[(i+1)%len(list)].Name
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func prettyJSON(raw json.RawMessage) string {
	var v any
	if json.Unmarshal(raw, &v) != nil {
		return string(raw)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(b)
}

// Layout.

func (m *Model) sidebarWidth() int {
	w := m.view.SidebarWidth
	if w <= 0 {
		w = defaultSidebar
	}
	if m.width > 0 {
		w = min(w, max(12, m.width/3))
	}
	return w
}

func (m *Model) rightWidth() int {
	if m.view.Active != nil && m.view.Active.RightPaneOpen && m.width >= 100 {
		return rightPaneWidth
	}
	return 0
}

func (m *Model) layoutWidth() int {
	return max(20, m.width-m.sidebarWidth()-m.rightWidth())
}

// bodyHeight leaves room for the tab bar, the bordered input and the status
// line.
func (m *Model) bodyHeight() int {
	return max(3, m.height-1-(inputLines+2)-1)
}

// View implements tea.Model.
func (m *Model) View() tea.View {
	if m.width == 0 || m.height == 0 {
		return tea.NewView(i18n.T("tui.loading", "Loading..."))
	}
	bodyH := m.bodyHeight()
	lw := m.layoutWidth()

	var main string
	switch {
	case m.showHelp:
		main = lipgloss.Place(lw, bodyH, lipgloss.Left, lipgloss.Top, m.help.View(m.keys))
	case m.dialog != nil:
		box := m.styles.Dialog.Render(m.dialog.view(m.styles, min(lw, 80)))
		main = lipgloss.Place(lw, bodyH, lipgloss.Center, lipgloss.Center, box)
	default:
		main = m.panesView(lw, bodyH)
	}

	row := []string{m.sidebarView(bodyH + 1 + inputLines + 2)}
	center := lipgloss.JoinVertical(lipgloss.Left,
		m.tabBar(lw),
		main,
		m.styles.InactiveBorder.Render(m.input.View()),
	)
	row = append(row, center)
	if rw := m.rightWidth(); rw > 0 {
		row = append(row, m.rightPaneView(rw, bodyH+1+inputLines+2))
	}
	screen := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, row...),
		m.statusLine(),
	)
	v := tea.NewView(screen)
	v.AltScreen = true
	return v
}

func (m *Model) panesView(w, h int) string {
	a := m.view.Active
	if a == nil {
		msg := i18n.T("tui.noWorkspace", "No workspace open. Press ctrl+o to open one.")
		return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, m.styles.Muted.Render(msg))
	}
	byID := make(map[string]view.PaneView, len(a.Panes))
	for _, p := range a.Panes {
		byID[p.ID] = p
	}
	return renderTree(a.Layout.Root, w, h, func(p *layout.Pane, pw, ph int) string {
		pv, ok := byID[p.ID]
		if !ok {
			pv = view.PaneView{ID: p.ID, Slot: view.SlotView{ID: p.SlotID, StreamingIndex: -1}}
		}
		return m.paneBox(pv, pw, ph)
	})
}

func (m *Model) tabBar(width int) string {
	a := m.view.Active
	if a == nil {
		return strings.Repeat(" ", width)
	}
	var parts []string
	for _, t := range a.Tabs {
		style := m.styles.TabInactive
		if t.Active {
			style = m.styles.TabActive
		}
		label := t.Name
		if t.Panes > 1 {
			label += fmt.Sprintf(" (%d)", t.Panes)
		}
		parts = append(parts, style.Render(label))
	}
	return padRight(truncate(strings.Join(parts, " "), width), width)
}

func (m *Model) sidebarView(height int) string {
	inner := m.sidebarWidth() - 3
	lines := []string{m.styles.PaneTitle.Render(truncate(i18n.T("tui.sidebar.title", "Workspaces"), inner))}
	for _, s := range m.view.Workspaces {
		style := m.styles.SidebarItem
		prefix := "  "
		if s.Active {
			style, prefix = m.styles.SidebarSelected, "> "
		}
		name := prefix + s.Name
		if s.Streaming {
			name += " ●"
		}
		if s.Resuming > 0 {
			name += fmt.Sprintf(" ↻%d", s.Resuming)
		}
		lines = append(lines, style.Render(truncate(name, inner)))
	}
	return m.styles.Sidebar.Render(strings.Join(fitLines(strings.Join(lines, "\n"), inner, height, 0), "\n"))
}

func (m *Model) rightPaneView(width, height int) string {
	inner := width - 2
	a := m.view.Active
	lines := []string{m.styles.PaneTitle.Render(i18n.T("tui.session.title", "Switch session"))}
	now := time.Now()
	for _, s := range a.Sessions {
		label := s.Name
		if label == "" {
			label = oneLine(s.FirstMessage)
		}
		style := m.styles.SidebarItem
		if s.ID == a.ActiveSlot.State.SessionID {
			style = m.styles.SidebarSelected
		}
		lines = append(lines, style.Render(truncate(label, inner)))
		if s.Modified > 0 {
			lines = append(lines, m.styles.Muted.Render(truncate("  "+i18n.Ago(time.UnixMilli(s.Modified), now), inner)))
		}
	}
	return m.styles.InactiveBorder.Render(strings.Join(fitLines(strings.Join(lines, "\n"), inner, height-2, 0), "\n"))
}

func (m *Model) statusLine() string {
	v := m.view
	var parts []string
	switch {
	case !v.Connected:
		parts = append(parts, m.styles.StatusError.Render(i18n.T("status.disconnected", "Disconnected")))
	case v.Restoring:
		parts = append(parts, m.styles.StatusWarn.Render(i18n.T("status.restoring", "Restoring workspaces…")))
	default:
		parts = append(parts, m.styles.StatusOK.Render(i18n.T("status.connected", "Connected")))
	}
	if a := v.Active; a != nil {
		if a.Resuming > 0 {
			parts = append(parts, m.styles.StatusWarn.Render(i18n.Tf("status.resuming", "Resuming %d events", a.Resuming)))
		}
		st := a.ActiveSlot.State
		if st.IsCompacting {
			parts = append(parts, m.styles.StatusWarn.Render(i18n.T("status.compacting", "Compacting…")))
		}
		if u := st.ContextUsage; u != nil && u.ContextWindow > 0 {
			parts = append(parts, fmt.Sprintf("%.0f%%", u.Percent))
		}
		if a.Error != "" {
			parts = append(parts, m.styles.StatusError.Render(a.Error))
		}
	}
	if v.Deploy != nil {
		parts = append(parts, i18n.Tf("status.deploy", "Deploy: %s", v.Deploy.Status))
	}
	if v.Error != "" {
		parts = append(parts, m.styles.StatusError.Render(v.Error))
	}
	left := strings.Join(parts, "  ")
	if !m.showHelp {
		left += "  " + m.help.View(m.keys)
	}
	return m.styles.StatusBar.Render(truncate(left, max(1, m.width-2)))
}
