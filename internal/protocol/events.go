package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the "type" discriminator of an inbound event.
type Kind string

const (
	KindConnected            Kind = "connected"
	KindUIState              Kind = "uiState"
	KindWorkspaceOpened      Kind = "workspaceOpened"
	KindWorkspaceClosed      Kind = "workspaceClosed"
	KindDirectoryList        Kind = "directoryList"
	KindSessionSlotCreated   Kind = "sessionSlotCreated"
	KindSessionSlotClosed    Kind = "sessionSlotClosed"
	KindSessionSlotList      Kind = "sessionSlotList"
	KindState                Kind = "state"
	KindMessages             Kind = "messages"
	KindCommands             Kind = "commands"
	KindSessions             Kind = "sessions"
	KindModels               Kind = "models"
	KindAgentStart           Kind = "agentStart"
	KindAgentEnd             Kind = "agentEnd"
	KindMessageStart         Kind = "messageStart"
	KindMessageUpdate        Kind = "messageUpdate"
	KindMessageEnd           Kind = "messageEnd"
	KindToolStart            Kind = "toolStart"
	KindToolUpdate           Kind = "toolUpdate"
	KindToolEnd              Kind = "toolEnd"
	KindCompactionEnd        Kind = "compactionEnd"
	KindForkResult           Kind = "forkResult"
	KindForkMessages         Kind = "forkMessages"
	KindQuestionnaireRequest Kind = "questionnaireRequest"
	KindBashStart            Kind = "bashStart"
	KindBashOutput           Kind = "bashOutput"
	KindBashEnd              Kind = "bashEnd"
	KindExtensionUIRequest   Kind = "extensionUIRequest"
	KindCustomUIStart        Kind = "customUIStart"
	KindCustomUIUpdate       Kind = "customUIUpdate"
	KindCustomUIClose        Kind = "customUIClose"
	KindSnapshot             Kind = "snapshot"
	KindDelta                Kind = "delta"
	KindQueuedMessages       Kind = "queuedMessages"
	KindDeployStatus         Kind = "deployStatus"
	KindError                Kind = "error"
)

// ErrUnknownEvent is returned by Decode for an unrecognized discriminator.
var ErrUnknownEvent = errors.New("unknown event type")

// Event is an inbound server event. The set of implementations is closed:
// only types in this package satisfy it. Visit calls the Handler method
// matching the concrete type.
type Event interface {
	Kind() Kind
	Visit(h Handler)
	isEvent()
}

// WorkspaceEvent is an event addressed to a workspace.
type WorkspaceEvent interface {
	Event
	Workspace() string
}

// SlotEvent is an event addressed to a session slot of a workspace.
type SlotEvent interface {
	WorkspaceEvent
	Slot() string
}

// WorkspaceScope addresses a workspace.
type WorkspaceScope struct {
	WorkspaceID string `json:"workspaceId"`
}

// Workspace returns the addressed workspace id.
func (s WorkspaceScope) Workspace() string { return s.WorkspaceID }

// SlotScope addresses a session slot. An empty slot id means DefaultSlotID.
type SlotScope struct {
	WorkspaceID   string `json:"workspaceId"`
	SessionSlotID string `json:"sessionSlotId,omitempty"`
}

// Workspace returns the addressed workspace id.
func (s SlotScope) Workspace() string { return s.WorkspaceID }

// Slot returns the addressed slot id, defaulting to DefaultSlotID.
func (s SlotScope) Slot() string {
	if s.SessionSlotID == "" {
		return DefaultSlotID
	}
	return s.SessionSlotID
}

type eventBase struct{}

func (eventBase) isEvent() {}

// Connected is sent once per successful connection.
type Connected struct {
	eventBase
	AllowedRoots  []string `json:"allowedRoots"`
	HomeDirectory string   `json:"homeDirectory"`
	UIState       *UIState `json:"uiState,omitempty"`
}

// UIStateEvent replaces the persisted preference surface.
type UIStateEvent struct {
	eventBase
	State UIState `json:"state"`
}

// WorkspaceOpened announces a workspace and seeds its default slot.
type WorkspaceOpened struct {
	eventBase
	WorkspaceInfo      WorkspaceInfo `json:"workspace"`
	State              SessionState  `json:"state"`
	Messages           []Message     `json:"messages"`
	StartupInfo        *StartupInfo  `json:"startupInfo,omitempty"`
	IsExisting         bool          `json:"isExisting,omitempty"`
	BufferedEventCount int           `json:"bufferedEventCount,omitempty"`
}

// Workspace returns the opened workspace id.
func (e WorkspaceOpened) Workspace() string { return e.WorkspaceInfo.ID }

// WorkspaceClosed announces that a workspace is gone.
type WorkspaceClosed struct {
	eventBase
	WorkspaceScope
}

// DirectoryList answers browseDirectory.
type DirectoryList struct {
	eventBase
	Path         string           `json:"path"`
	Entries      []DirectoryEntry `json:"entries"`
	AllowedRoots []string         `json:"allowedRoots,omitempty"`
}

// SessionSlotCreated announces a new slot.
type SessionSlotCreated struct {
	eventBase
	SlotScope
	State    *SessionState `json:"state,omitempty"`
	Messages []Message     `json:"messages,omitempty"`
}

// SessionSlotClosed announces a removed slot.
type SessionSlotClosed struct {
	eventBase
	SlotScope
}

// SlotSummary is one entry of a SessionSlotList.
type SlotSummary struct {
	SlotID      string `json:"slotId"`
	IsStreaming bool   `json:"isStreaming,omitempty"`
}

// SessionSlotList answers listSessionSlots.
type SessionSlotList struct {
	eventBase
	WorkspaceScope
	Slots []SlotSummary `json:"slots"`
}

// StateEvent carries the canonical session state of a slot.
type StateEvent struct {
	eventBase
	SlotScope
	State SessionState `json:"state"`
}

// MessagesEvent replaces the full message list of a slot.
type MessagesEvent struct {
	eventBase
	SlotScope
	Messages []Message `json:"messages"`
}

// CommandsEvent replaces the slash-command list of a slot.
type CommandsEvent struct {
	eventBase
	SlotScope
	Commands []SlashCommand `json:"commands"`
}

// SessionsEvent replaces the workspace's persisted session list.
type SessionsEvent struct {
	eventBase
	WorkspaceScope
	Sessions []SessionInfo `json:"sessions"`
}

// ModelsEvent replaces the workspace's available models.
type ModelsEvent struct {
	eventBase
	WorkspaceScope
	Models []Model `json:"models"`
}

// AgentStart marks the beginning of an agent turn.
type AgentStart struct {
	eventBase
	SlotScope
}

// AgentEnd marks the end of an agent turn.
type AgentEnd struct {
	eventBase
	SlotScope
}

// MessageStart appends a message that may still be streaming.
type MessageStart struct {
	eventBase
	SlotScope
	Message Message `json:"message"`
}

// Delta kinds carried by MessageUpdate.
const (
	DeltaText     = "text_delta"
	DeltaThinking = "thinking_delta"
)

// AssistantMessageEvent is the incremental part of a MessageUpdate.
type AssistantMessageEvent struct {
	Type  string `json:"type"`
	Delta string `json:"delta,omitempty"`
}

// MessageUpdate carries a streaming fragment.
type MessageUpdate struct {
	eventBase
	SlotScope
	AssistantMessageEvent AssistantMessageEvent `json:"assistantMessageEvent"`
}

// MessageEnd finalizes the streaming message.
type MessageEnd struct {
	eventBase
	SlotScope
	Message Message `json:"message"`
}

// ToolStart announces a tool execution.
type ToolStart struct {
	eventBase
	SlotScope
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Args       json.RawMessage `json:"args,omitempty"`
}

// ToolUpdate carries a partial tool result.
type ToolUpdate struct {
	eventBase
	SlotScope
	ToolCallID    string          `json:"toolCallId"`
	PartialResult json.RawMessage `json:"partialResult,omitempty"`
}

// ToolEnd carries the final tool result.
type ToolEnd struct {
	eventBase
	SlotScope
	ToolCallID string          `json:"toolCallId"`
	Result     json.RawMessage `json:"result,omitempty"`
	IsError    bool            `json:"isError,omitempty"`
}

// CompactionEnd reports that a compaction finished.
type CompactionEnd struct {
	eventBase
	SlotScope
	Aborted      bool   `json:"aborted,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// ForkResult answers a fork command.
type ForkResult struct {
	eventBase
	SlotScope
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Text    string `json:"text,omitempty"`
}

// ForkMessages answers getForkMessages.
type ForkMessages struct {
	eventBase
	SlotScope
	Messages []ForkMessage `json:"messages"`
}

// QuestionnaireRequest asks the user to answer questions for a tool call.
type QuestionnaireRequest struct {
	eventBase
	SlotScope
	ToolCallID string     `json:"toolCallId"`
	Questions  []Question `json:"questions"`
}

// BashStart announces a user-initiated shell execution.
type BashStart struct {
	eventBase
	SlotScope
	Command            string `json:"command"`
	ExcludeFromContext bool   `json:"excludeFromContext,omitempty"`
}

// BashOutput carries an output chunk of the running shell execution.
type BashOutput struct {
	eventBase
	SlotScope
	Chunk string `json:"chunk"`
}

// BashEnd finalizes the running shell execution.
type BashEnd struct {
	eventBase
	SlotScope
	ExitCode       *int   `json:"exitCode,omitempty"`
	Cancelled      bool   `json:"cancelled,omitempty"`
	Truncated      bool   `json:"truncated,omitempty"`
	FullOutputPath string `json:"fullOutputPath,omitempty"`
}

// ExtensionUIRequest asks for interactive input on behalf of an extension.
// The request body is opaque to the client core.
type ExtensionUIRequest struct {
	eventBase
	SlotScope
	Request json.RawMessage `json:"request"`
}

// CustomUIStart opens a custom UI session. Component is opaque.
type CustomUIStart struct {
	eventBase
	SlotScope
	SessionID string          `json:"sessionId"`
	Component json.RawMessage `json:"component"`
}

// CustomUIUpdate replaces the component tree of the custom UI session.
type CustomUIUpdate struct {
	eventBase
	SlotScope
	SessionID string          `json:"sessionId"`
	Component json.RawMessage `json:"component"`
}

// CustomUIClose ends the custom UI session.
type CustomUIClose struct {
	eventBase
	SlotScope
	SessionID string `json:"sessionId"`
}

// SlotSync is the delta-protocol owned state of one slot.
type SlotSync struct {
	QueuedMessages QueuedMessages `json:"queuedMessages"`
}

// SyncState is the workspace slice carried by a Snapshot.
type SyncState struct {
	RightPaneOpen bool                `json:"rightPaneOpen"`
	PaneTabs      *PaneTabs           `json:"paneTabs,omitempty"`
	Slots         map[string]SlotSync `json:"slots"`
}

// Snapshot carries the full versioned workspace slice.
type Snapshot struct {
	eventBase
	WorkspaceScope
	Version int64     `json:"version"`
	State   SyncState `json:"state"`
}

// DeltaKind identifies a mutation inside a Delta event.
type DeltaKind string

const (
	DeltaSlotCreate           DeltaKind = "slotCreate"
	DeltaSlotDelete           DeltaKind = "slotDelete"
	DeltaQueuedMessagesUpdate DeltaKind = "queuedMessagesUpdate"
	DeltaRightPaneUpdate      DeltaKind = "rightPaneUpdate"
	DeltaPaneTabsUpdate       DeltaKind = "paneTabsUpdate"
)

// SyncDelta is one typed mutation of the versioned protocol.
type SyncDelta struct {
	Type           DeltaKind       `json:"type"`
	Version        int64           `json:"version"`
	SlotID         string          `json:"slotId,omitempty"`
	QueuedMessages *QueuedMessages `json:"queuedMessages,omitempty"`
	RightPaneOpen  *bool           `json:"rightPaneOpen,omitempty"`
	PaneTabs       *PaneTabs       `json:"paneTabs,omitempty"`
}

// Delta carries an ordered list of mutations.
type Delta struct {
	eventBase
	WorkspaceScope
	Version int64       `json:"version"`
	Deltas  []SyncDelta `json:"deltas"`
}

// QueuedMessagesEvent is the legacy per-field queued message update.
type QueuedMessagesEvent struct {
	eventBase
	SlotScope
	Steering []string `json:"steering"`
	FollowUp []string `json:"followUp"`
}

// DeployStatusEvent reports deploy progress.
type DeployStatusEvent struct {
	eventBase
	DeployStatus
}

// ErrorEvent is a remote-reported error. The scope fields are optional.
type ErrorEvent struct {
	eventBase
	Message       string `json:"message"`
	WorkspaceID   string `json:"workspaceId,omitempty"`
	SessionSlotID string `json:"sessionSlotId,omitempty"`
}

func (Connected) Kind() Kind            { return KindConnected }
func (UIStateEvent) Kind() Kind         { return KindUIState }
func (WorkspaceOpened) Kind() Kind      { return KindWorkspaceOpened }
func (WorkspaceClosed) Kind() Kind      { return KindWorkspaceClosed }
func (DirectoryList) Kind() Kind        { return KindDirectoryList }
func (SessionSlotCreated) Kind() Kind   { return KindSessionSlotCreated }
func (SessionSlotClosed) Kind() Kind    { return KindSessionSlotClosed }
func (SessionSlotList) Kind() Kind      { return KindSessionSlotList }
func (StateEvent) Kind() Kind           { return KindState }
func (MessagesEvent) Kind() Kind        { return KindMessages }
func (CommandsEvent) Kind() Kind        { return KindCommands }
func (SessionsEvent) Kind() Kind        { return KindSessions }
func (ModelsEvent) Kind() Kind          { return KindModels }
func (AgentStart) Kind() Kind           { return KindAgentStart }
func (AgentEnd) Kind() Kind             { return KindAgentEnd }
func (MessageStart) Kind() Kind         { return KindMessageStart }
func (MessageUpdate) Kind() Kind        { return KindMessageUpdate }
func (MessageEnd) Kind() Kind           { return KindMessageEnd }
func (ToolStart) Kind() Kind            { return KindToolStart }
func (ToolUpdate) Kind() Kind           { return KindToolUpdate }
func (ToolEnd) Kind() Kind              { return KindToolEnd }
func (CompactionEnd) Kind() Kind        { return KindCompactionEnd }
func (ForkResult) Kind() Kind           { return KindForkResult }
func (ForkMessages) Kind() Kind         { return KindForkMessages }
func (QuestionnaireRequest) Kind() Kind { return KindQuestionnaireRequest }
func (BashStart) Kind() Kind            { return KindBashStart }
func (BashOutput) Kind() Kind           { return KindBashOutput }
func (BashEnd) Kind() Kind              { return KindBashEnd }
func (ExtensionUIRequest) Kind() Kind   { return KindExtensionUIRequest }
func (CustomUIStart) Kind() Kind        { return KindCustomUIStart }
func (CustomUIUpdate) Kind() Kind       { return KindCustomUIUpdate }
func (CustomUIClose) Kind() Kind        { return KindCustomUIClose }
func (Snapshot) Kind() Kind             { return KindSnapshot }
func (Delta) Kind() Kind                { return KindDelta }
func (QueuedMessagesEvent) Kind() Kind  { return KindQueuedMessages }
func (DeployStatusEvent) Kind() Kind    { return KindDeployStatus }
func (ErrorEvent) Kind() Kind           { return KindError }

var decoders = map[Kind]func([]byte) (Event, error){
	KindConnected:            decodeAs[Connected],
	KindUIState:              decodeAs[UIStateEvent],
	KindWorkspaceOpened:      decodeAs[WorkspaceOpened],
	KindWorkspaceClosed:      decodeAs[WorkspaceClosed],
	KindDirectoryList:        decodeAs[DirectoryList],
	KindSessionSlotCreated:   decodeAs[SessionSlotCreated],
	KindSessionSlotClosed:    decodeAs[SessionSlotClosed],
	KindSessionSlotList:      decodeAs[SessionSlotList],
	KindState:                decodeAs[StateEvent],
	KindMessages:             decodeAs[MessagesEvent],
	KindCommands:             decodeAs[CommandsEvent],
	KindSessions:             decodeAs[SessionsEvent],
	KindModels:               decodeAs[ModelsEvent],
	KindAgentStart:           decodeAs[AgentStart],
	KindAgentEnd:             decodeAs[AgentEnd],
	KindMessageStart:         decodeAs[MessageStart],
	KindMessageUpdate:        decodeAs[MessageUpdate],
	KindMessageEnd:           decodeAs[MessageEnd],
	KindToolStart:            decodeAs[ToolStart],
	KindToolUpdate:           decodeAs[ToolUpdate],
	KindToolEnd:              decodeAs[ToolEnd],
	KindCompactionEnd:        decodeAs[CompactionEnd],
	KindForkResult:           decodeAs[ForkResult],
	KindForkMessages:         decodeAs[ForkMessages],
	KindQuestionnaireRequest: decodeAs[QuestionnaireRequest],
	KindBashStart:            decodeAs[BashStart],
	KindBashOutput:           decodeAs[BashOutput],
	KindBashEnd:              decodeAs[BashEnd],
	KindExtensionUIRequest:   decodeAs[ExtensionUIRequest],
	KindCustomUIStart:        decodeAs[CustomUIStart],
	KindCustomUIUpdate:       decodeAs[CustomUIUpdate],
	KindCustomUIClose:        decodeAs[CustomUIClose],
	KindSnapshot:             decodeAs[Snapshot],
	KindDelta:                decodeAs[Delta],
	KindQueuedMessages:       decodeAs[QueuedMessagesEvent],
	KindDeployStatus:         decodeAs[DeployStatusEvent],
	KindError:                decodeAs[ErrorEvent],
}

func decodeAs[T Event](data []byte) (Event, error) {
	var ev T
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Decode parses one inbound frame.
func Decode(data []byte) (Event, error) {
	var envelope struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	dec, ok := decoders[envelope.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, envelope.Type)
	}
	ev, err := dec(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", envelope.Type, err)
	}
	return ev, nil
}

// Encode renders an event as a frame, the inverse of Decode. The server side
// of tests uses it.
func Encode(ev Event) ([]byte, error) {
	return withType(string(ev.Kind()), ev)
}

// withType marshals v and injects a leading "type" member.
func withType(typ string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	head, _ := json.Marshal(typ)
	out := make([]byte, 0, len(body)+len(head)+10)
	out = append(out, `{"type":`...)
	out = append(out, head...)
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}
	return out, nil
}
