package protocol

import "encoding/json"

// Command is an outbound message. CommandType is its "type" discriminator.
type Command interface {
	CommandType() string
}

// MarshalCommand renders a command as a frame.
func MarshalCommand(c Command) ([]byte, error) {
	return withType(c.CommandType(), c)
}

// DecodeCommandType reads only the discriminator of an outbound frame.
func DecodeCommandType(data []byte) (string, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return "", err
	}
	return envelope.Type, nil
}

// Target addresses a command to a session slot.
type Target struct {
	WorkspaceID   string `json:"workspaceId"`
	SessionSlotID string `json:"sessionSlotId,omitempty"`
}

type OpenWorkspace struct {
	Path string `json:"path"`
}

type CloseWorkspace struct {
	WorkspaceID string `json:"workspaceId"`
}

type CreateSessionSlot struct {
	WorkspaceID string `json:"workspaceId"`
	SlotID      string `json:"slotId"`
}

type CloseSessionSlot struct {
	WorkspaceID   string `json:"workspaceId"`
	SessionSlotID string `json:"sessionSlotId"`
}

type ListSessionSlots struct {
	WorkspaceID string `json:"workspaceId"`
}

type Prompt struct {
	Target
	Message string            `json:"message"`
	Images  []ImageAttachment `json:"images,omitempty"`
}

type Steer struct {
	Target
	Message string            `json:"message"`
	Images  []ImageAttachment `json:"images,omitempty"`
}

type FollowUp struct {
	Target
	Message string            `json:"message"`
	Images  []ImageAttachment `json:"images,omitempty"`
}

type Abort struct {
	Target
}

type SetModel struct {
	Target
	Provider string `json:"provider"`
	ModelID  string `json:"modelId"`
}

type SetThinkingLevel struct {
	Target
	Level string `json:"level"`
}

type NewSession struct {
	Target
}

type SwitchSession struct {
	Target
	SessionID string `json:"sessionId"`
}

type Compact struct {
	Target
	CustomInstructions string `json:"customInstructions,omitempty"`
}

type GetState struct {
	Target
}

type GetMessages struct {
	Target
}

type GetSessions struct {
	WorkspaceID string `json:"workspaceId"`
}

type GetModels struct {
	WorkspaceID string `json:"workspaceId"`
}

type GetCommands struct {
	Target
}

type Fork struct {
	Target
	EntryID string `json:"entryId"`
}

type GetForkMessages struct {
	Target
}

type Bash struct {
	Target
	Command            string `json:"command"`
	ExcludeFromContext bool   `json:"excludeFromContext,omitempty"`
}

type AbortBash struct {
	Target
}

type QuestionnaireResponse struct {
	Target
	ToolCallID string           `json:"toolCallId"`
	Answers    []QuestionAnswer `json:"answers"`
	Cancelled  bool             `json:"cancelled"`
}

type ExtensionUIResponse struct {
	Target
	Response json.RawMessage `json:"response"`
}

type CustomUIInput struct {
	Target
	Input json.RawMessage `json:"input"`
}

type SaveUIState struct {
	State UIState `json:"state"`
}

type SetSidebarWidth struct {
	Width int `json:"width"`
}

type SetTheme struct {
	ThemeID string `json:"themeId"`
}

type SetDraftInput struct {
	WorkspacePath string `json:"workspacePath"`
	Value         string `json:"value"`
}

type Deploy struct{}

type BrowseDirectory struct {
	Path string `json:"path,omitempty"`
}

// RequestSnapshot asks for a fresh snapshot after a delta version gap.
type RequestSnapshot struct {
	WorkspaceID string `json:"workspaceId"`
}

func (OpenWorkspace) CommandType() string         { return "openWorkspace" }
func (CloseWorkspace) CommandType() string        { return "closeWorkspace" }
func (CreateSessionSlot) CommandType() string     { return "createSessionSlot" }
func (CloseSessionSlot) CommandType() string      { return "closeSessionSlot" }
func (ListSessionSlots) CommandType() string      { return "listSessionSlots" }
func (Prompt) CommandType() string                { return "prompt" }
func (Steer) CommandType() string                 { return "steer" }
func (FollowUp) CommandType() string              { return "followUp" }
func (Abort) CommandType() string                 { return "abort" }
func (SetModel) CommandType() string              { return "setModel" }
func (SetThinkingLevel) CommandType() string      { return "setThinkingLevel" }
func (NewSession) CommandType() string            { return "newSession" }
func (SwitchSession) CommandType() string         { return "switchSession" }
func (Compact) CommandType() string               { return "compact" }
func (GetState) CommandType() string              { return "getState" }
func (GetMessages) CommandType() string           { return "getMessages" }
func (GetSessions) CommandType() string           { return "getSessions" }
func (GetModels) CommandType() string             { return "getModels" }
func (GetCommands) CommandType() string           { return "getCommands" }
func (Fork) CommandType() string                  { return "fork" }
func (GetForkMessages) CommandType() string       { return "getForkMessages" }
func (Bash) CommandType() string                  { return "bash" }
func (AbortBash) CommandType() string             { return "abortBash" }
func (QuestionnaireResponse) CommandType() string { return "questionnaireResponse" }
func (ExtensionUIResponse) CommandType() string   { return "extensionUIResponse" }
func (CustomUIInput) CommandType() string         { return "customUIInput" }
func (SaveUIState) CommandType() string           { return "saveUIState" }
func (SetSidebarWidth) CommandType() string       { return "setSidebarWidth" }
func (SetTheme) CommandType() string              { return "setTheme" }
func (SetDraftInput) CommandType() string         { return "setDraftInput" }
func (Deploy) CommandType() string                { return "deploy" }
func (BrowseDirectory) CommandType() string       { return "browseDirectory" }
func (RequestSnapshot) CommandType() string       { return "requestSnapshot" }
