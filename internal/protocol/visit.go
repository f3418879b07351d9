package protocol

// Handler has one method per inbound event type. Implementations are
// checked at compile time, so a new event kind cannot be silently ignored.
type Handler interface {
	OnConnected(Connected)
	OnUIState(UIStateEvent)
	OnWorkspaceOpened(WorkspaceOpened)
	OnWorkspaceClosed(WorkspaceClosed)
	OnDirectoryList(DirectoryList)
	OnSessionSlotCreated(SessionSlotCreated)
	OnSessionSlotClosed(SessionSlotClosed)
	OnSessionSlotList(SessionSlotList)
	OnState(StateEvent)
	OnMessages(MessagesEvent)
	OnCommands(CommandsEvent)
	OnSessions(SessionsEvent)
	OnModels(ModelsEvent)
	OnAgentStart(AgentStart)
	OnAgentEnd(AgentEnd)
	OnMessageStart(MessageStart)
	OnMessageUpdate(MessageUpdate)
	OnMessageEnd(MessageEnd)
	OnToolStart(ToolStart)
	OnToolUpdate(ToolUpdate)
	OnToolEnd(ToolEnd)
	OnCompactionEnd(CompactionEnd)
	OnForkResult(ForkResult)
	OnForkMessages(ForkMessages)
	OnQuestionnaireRequest(QuestionnaireRequest)
	OnBashStart(BashStart)
	OnBashOutput(BashOutput)
	OnBashEnd(BashEnd)
	OnExtensionUIRequest(ExtensionUIRequest)
	OnCustomUIStart(CustomUIStart)
	OnCustomUIUpdate(CustomUIUpdate)
	OnCustomUIClose(CustomUIClose)
	OnSnapshot(Snapshot)
	OnDelta(Delta)
	OnQueuedMessages(QueuedMessagesEvent)
	OnDeployStatus(DeployStatusEvent)
	OnError(ErrorEvent)
}

func (e Connected) Visit(h Handler)            { h.OnConnected(e) }
func (e UIStateEvent) Visit(h Handler)         { h.OnUIState(e) }
func (e WorkspaceOpened) Visit(h Handler)      { h.OnWorkspaceOpened(e) }
func (e WorkspaceClosed) Visit(h Handler)      { h.OnWorkspaceClosed(e) }
func (e DirectoryList) Visit(h Handler)        { h.OnDirectoryList(e) }
func (e SessionSlotCreated) Visit(h Handler)   { h.OnSessionSlotCreated(e) }
func (e SessionSlotClosed) Visit(h Handler)    { h.OnSessionSlotClosed(e) }
func (e SessionSlotList) Visit(h Handler)      { h.OnSessionSlotList(e) }
func (e StateEvent) Visit(h Handler)           { h.OnState(e) }
func (e MessagesEvent) Visit(h Handler)        { h.OnMessages(e) }
func (e CommandsEvent) Visit(h Handler)        { h.OnCommands(e) }
func (e SessionsEvent) Visit(h Handler)        { h.OnSessions(e) }
func (e ModelsEvent) Visit(h Handler)          { h.OnModels(e) }
func (e AgentStart) Visit(h Handler)           { h.OnAgentStart(e) }
func (e AgentEnd) Visit(h Handler)             { h.OnAgentEnd(e) }
func (e MessageStart) Visit(h Handler)         { h.OnMessageStart(e) }
func (e MessageUpdate) Visit(h Handler)        { h.OnMessageUpdate(e) }
func (e MessageEnd) Visit(h Handler)           { h.OnMessageEnd(e) }
func (e ToolStart) Visit(h Handler)            { h.OnToolStart(e) }
func (e ToolUpdate) Visit(h Handler)           { h.OnToolUpdate(e) }
func (e ToolEnd) Visit(h Handler)              { h.OnToolEnd(e) }
func (e CompactionEnd) Visit(h Handler)        { h.OnCompactionEnd(e) }
func (e ForkResult) Visit(h Handler)           { h.OnForkResult(e) }
func (e ForkMessages) Visit(h Handler)         { h.OnForkMessages(e) }
func (e QuestionnaireRequest) Visit(h Handler) { h.OnQuestionnaireRequest(e) }
func (e BashStart) Visit(h Handler)            { h.OnBashStart(e) }
func (e BashOutput) Visit(h Handler)           { h.OnBashOutput(e) }
func (e BashEnd) Visit(h Handler)              { h.OnBashEnd(e) }
func (e ExtensionUIRequest) Visit(h Handler)   { h.OnExtensionUIRequest(e) }
func (e CustomUIStart) Visit(h Handler)        { h.OnCustomUIStart(e) }
func (e CustomUIUpdate) Visit(h Handler)       { h.OnCustomUIUpdate(e) }
func (e CustomUIClose) Visit(h Handler)        { h.OnCustomUIClose(e) }
func (e Snapshot) Visit(h Handler)             { h.OnSnapshot(e) }
func (e Delta) Visit(h Handler)                { h.OnDelta(e) }
func (e QueuedMessagesEvent) Visit(h Handler)  { h.OnQueuedMessages(e) }
func (e DeployStatusEvent) Visit(h Handler)    { h.OnDeployStatus(e) }
func (e ErrorEvent) Visit(h Handler)           { h.OnError(e) }
