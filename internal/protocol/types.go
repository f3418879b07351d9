// Package protocol defines the JSON wire format spoken with the session
// orchestration server: inbound events, outbound commands, and the payload
// types they share.
package protocol

import (
	"encoding/json"
	"time"
)

// DefaultSlotID is the session slot every workspace starts with.
const DefaultSlotID = "default"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser          Role = "user"
	RoleAssistant     Role = "assistant"
	RoleToolResult    Role = "toolResult"
	RoleBashExecution Role = "bash-execution"
	RoleCustom        Role = "custom"
)

// BlockType identifies a content block inside a message.
type BlockType string

const (
	BlockText     BlockType = "text"
	BlockThinking BlockType = "thinking"
	BlockToolCall BlockType = "toolCall"
	BlockImage    BlockType = "image"
)

// ContentBlock is one piece of message content.
type ContentBlock struct {
	Type      BlockType       `json:"type"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	ID        string          `json:"id,omitempty"`        // toolCall id
	Name      string          `json:"name,omitempty"`      // toolCall name
	Arguments json.RawMessage `json:"arguments,omitempty"` // toolCall input
	Data      string          `json:"data,omitempty"`      // base64 image data
	MimeType  string          `json:"mimeType,omitempty"`
}

// Message is a single transcript entry.
type Message struct {
	Role       Role           `json:"role"`
	Content    []ContentBlock `json:"content,omitempty"`
	ToolCallID string         `json:"toolCallId,omitempty"`
	ToolName   string         `json:"toolName,omitempty"`
	IsError    bool           `json:"isError,omitempty"`
	Timestamp  int64          `json:"timestamp,omitempty"` // unix millis
	Model      string         `json:"model,omitempty"`
	StopReason string         `json:"stopReason,omitempty"`

	// Bash is set on synthetic bash-execution messages.
	Bash *BashMessage `json:"bash,omitempty"`
}

// Time returns the message timestamp, or the zero time when unset.
func (m Message) Time() time.Time {
	if m.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(m.Timestamp)
}

// Text concatenates all text blocks of the message.
func (m Message) Text() string {
	var s string
	for _, b := range m.Content {
		if b.Type == BlockText {
			s += b.Text
		}
	}
	return s
}

// ToolCallIDs returns every tool call id embedded in the message: the ids of
// toolCall blocks, plus the id a toolResult message answers.
func (m Message) ToolCallIDs() []string {
	var ids []string
	for _, b := range m.Content {
		if b.Type == BlockToolCall && b.ID != "" {
			ids = append(ids, b.ID)
		}
	}
	if m.ToolCallID != "" {
		ids = append(ids, m.ToolCallID)
	}
	return ids
}

// BashMessage is the payload of a bash-execution message.
type BashMessage struct {
	Command            string `json:"command"`
	Output             string `json:"output"`
	ExitCode           *int   `json:"exitCode,omitempty"`
	Running            bool   `json:"running"`
	Cancelled          bool   `json:"cancelled,omitempty"`
	Truncated          bool   `json:"truncated,omitempty"`
	IsError            bool   `json:"isError,omitempty"`
	ExcludeFromContext bool   `json:"excludeFromContext,omitempty"`
	FullOutputPath     string `json:"fullOutputPath,omitempty"`
}

// ModelRef names a model by provider and id.
type ModelRef struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
}

// Model describes a model available to a workspace.
type Model struct {
	Provider      string `json:"provider"`
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	ContextWindow int    `json:"contextWindow,omitempty"`
	Reasoning     bool   `json:"reasoning,omitempty"`
}

// ContextUsage reports how much of the model's context is in use.
type ContextUsage struct {
	Tokens        int     `json:"tokens"`
	ContextWindow int     `json:"contextWindow"`
	Percent       float64 `json:"percent"`
}

// SessionState is the remote session snapshot for one slot.
type SessionState struct {
	Model         *ModelRef     `json:"model,omitempty"`
	ThinkingLevel string        `json:"thinkingLevel,omitempty"`
	IsStreaming   bool          `json:"isStreaming"`
	IsCompacting  bool          `json:"isCompacting"`
	SessionID     string        `json:"sessionId,omitempty"`
	SessionFile   string        `json:"sessionFile,omitempty"`
	MessageCount  int           `json:"messageCount,omitempty"`
	ContextUsage  *ContextUsage `json:"contextUsage,omitempty"`
}

// SlashCommand is an entry of a slot's command palette.
type SlashCommand struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
}

// SessionInfo is a persisted conversation record.
type SessionInfo struct {
	ID           string `json:"id"`
	Path         string `json:"path,omitempty"`
	Name         string `json:"name,omitempty"`
	FirstMessage string `json:"firstMessage,omitempty"`
	MessageCount int    `json:"messageCount,omitempty"`
	Modified     int64  `json:"modified,omitempty"`
}

// WorkspaceInfo identifies an open project root.
type WorkspaceInfo struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	Name string `json:"name"`
}

// StartupInfo is optional metadata sent when a workspace opens.
type StartupInfo struct {
	Skills     []string `json:"skills,omitempty"`
	Extensions []string `json:"extensions,omitempty"`
	Themes     []string `json:"themes,omitempty"`
}

// DirectoryEntry is one item of a directory listing.
type DirectoryEntry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	IsDir bool   `json:"isDirectory"`
}

// Question is one item of a questionnaire.
type Question struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
	Multi    bool     `json:"multiSelect,omitempty"`
}

// QuestionAnswer answers a single Question.
type QuestionAnswer struct {
	ID       string   `json:"id"`
	Selected []string `json:"selected,omitempty"`
	Text     string   `json:"text,omitempty"`
}

// ForkMessage is a user message that a session can be forked from.
type ForkMessage struct {
	EntryID string `json:"entryId"`
	Text    string `json:"text"`
}

// QueuedMessages holds messages waiting for the agent to become idle.
type QueuedMessages struct {
	Steering []string `json:"steering"`
	FollowUp []string `json:"followUp"`
}

// Empty reports whether nothing is queued.
func (q QueuedMessages) Empty() bool {
	return len(q.Steering) == 0 && len(q.FollowUp) == 0
}

// ImageAttachment is an image sent along with a prompt.
type ImageAttachment struct {
	Type     string `json:"type"` // always "image"
	Data     string `json:"data"` // base64
	MimeType string `json:"mimeType"`
}

// LayoutNode is the wire form of a pane layout tree node. Exactly one of
// the pane fields (PaneID) or split fields (Direction/Children) is set.
type LayoutNode struct {
	PaneID    string       `json:"paneId,omitempty"`
	SlotID    string       `json:"slotId,omitempty"`
	Direction string       `json:"direction,omitempty"`
	Children  []LayoutNode `json:"children,omitempty"`
	Sizes     []float64    `json:"sizes,omitempty"`
}

// PaneTab is the wire form of one tab of a workspace's pane layout.
type PaneTab struct {
	ID            string     `json:"id"`
	Name          string     `json:"name,omitempty"`
	Layout        LayoutNode `json:"layout"`
	FocusedPaneID string     `json:"focusedPaneId,omitempty"`
}

// PaneTabs is the full tab state of a workspace.
type PaneTabs struct {
	Tabs        []PaneTab `json:"tabs"`
	ActiveTabID string    `json:"activeTabId,omitempty"`
}

// UIState is the persisted preference surface round-tripped through
// saveUIState and uiState.
type UIState struct {
	OpenWorkspaces       []string            `json:"openWorkspaces"`
	ActiveWorkspacePath  string              `json:"activeWorkspacePath,omitempty"`
	DraftInputs          map[string]string   `json:"draftInputs,omitempty"`
	SidebarWidth         int                 `json:"sidebarWidth,omitempty"`
	ThemeID              string              `json:"themeId,omitempty"`
	RightPaneByWorkspace map[string]bool     `json:"rightPaneByWorkspace,omitempty"`
	PaneTabsByWorkspace  map[string]PaneTabs `json:"paneTabsByWorkspace,omitempty"`
}

// Clone returns a deep copy of the UI state.
func (u UIState) Clone() UIState {
	out := u
	out.OpenWorkspaces = append([]string(nil), u.OpenWorkspaces...)
	if u.DraftInputs != nil {
		out.DraftInputs = make(map[string]string, len(u.DraftInputs))
		for k, v := range u.DraftInputs {
			out.DraftInputs[k] = v
		}
	}
	if u.RightPaneByWorkspace != nil {
		out.RightPaneByWorkspace = make(map[string]bool, len(u.RightPaneByWorkspace))
		for k, v := range u.RightPaneByWorkspace {
			out.RightPaneByWorkspace[k] = v
		}
	}
	if u.PaneTabsByWorkspace != nil {
		out.PaneTabsByWorkspace = make(map[string]PaneTabs, len(u.PaneTabsByWorkspace))
		for k, v := range u.PaneTabsByWorkspace {
			out.PaneTabsByWorkspace[k] = v
		}
	}
	return out
}

// DeployStatus reports progress of a deploy request.
type DeployStatus struct {
	Status  string `json:"status"` // "building", "restarting", "error", "success"
	Message string `json:"message,omitempty"`
}
