package state

import (
	"fmt"
	"slices"

	"github.com/wethinkt/go-panes/internal/protocol"
	"github.com/wethinkt/go-panes/internal/tuilog"
)

func target(ev protocol.SlotEvent) protocol.Target {
	return protocol.Target{WorkspaceID: ev.Workspace(), SessionSlotID: ev.Slot()}
}

// OnState adopts the canonical session state. It is the only writer of
// IsStreaming.
func (r reducer) OnState(ev protocol.StateEvent) {
	if sl := r.s.slot(ev.Workspace(), ev.Slot()); sl != nil {
		sl.State = ev.State
	}
}

// OnMessages replaces the transcript. Streaming buffers and per-turn tool
// and bash tracking refer to the old list and are dropped; IsStreaming is
// left alone.
func (r reducer) OnMessages(ev protocol.MessagesEvent) {
	sl := r.s.slot(ev.Workspace(), ev.Slot())
	if sl == nil {
		return
	}
	sl.Messages = slices.Clone(ev.Messages)
	sl.clearTurn()
	sl.Bash = nil
}

func (r reducer) OnCommands(ev protocol.CommandsEvent) {
	if sl := r.s.slot(ev.Workspace(), ev.Slot()); sl != nil {
		sl.Commands = slices.Clone(ev.Commands)
	}
}

func (r reducer) OnAgentStart(ev protocol.AgentStart) {
	sl := r.s.slot(ev.Workspace(), ev.Slot())
	if sl == nil {
		return
	}
	sl.clearStreaming()
	sl.Error = ""
}

func (r reducer) OnAgentEnd(ev protocol.AgentEnd) {
	sl := r.s.slot(ev.Workspace(), ev.Slot())
	if sl == nil {
		return
	}
	sl.clearTurn()
	r.s.send(protocol.GetState{Target: target(ev)})
}

func (r reducer) OnMessageStart(ev protocol.MessageStart) {
	sl := r.s.slot(ev.Workspace(), ev.Slot())
	if sl == nil {
		return
	}
	sl.Messages = append(sl.Messages, ev.Message)
	sl.streamingIndex = len(sl.Messages) - 1
	if ev.Message.Role == protocol.RoleAssistant {
		sl.StreamingText = ""
		sl.StreamingThinking = ""
	}
}

// OnMessageUpdate is reached only through replayed batches; live fragments
// go through the batcher in Store.dispatch.
func (r reducer) OnMessageUpdate(ev protocol.MessageUpdate) {
	r.s.batchDelta(ev)
}

func (r reducer) OnMessageEnd(ev protocol.MessageEnd) {
	sl := r.s.slot(ev.Workspace(), ev.Slot())
	if sl == nil {
		return
	}
	idx := sl.streamingIndex
	if idx >= 0 && idx < len(sl.Messages) && sl.Messages[idx].Role == ev.Message.Role {
		sl.Messages[idx] = ev.Message
	} else {
		sl.Messages = append(sl.Messages, ev.Message)
	}
	sl.streamingIndex = -1
	if ev.Message.Role == protocol.RoleAssistant {
		sl.StreamingText = ""
		sl.StreamingThinking = ""
	}

	ids := ev.Message.ToolCallIDs()
	if len(ids) == 0 {
		return
	}
	sl.ActiveTools = slices.DeleteFunc(sl.ActiveTools, func(t ToolExecution) bool {
		return slices.Contains(ids, t.ID)
	})
	for _, id := range ids {
		delete(sl.FinishedTools, id)
	}
}

func (r reducer) OnToolStart(ev protocol.ToolStart) {
	sl := r.s.slot(ev.Workspace(), ev.Slot())
	if sl == nil || ev.ToolCallID == "" {
		return
	}
	exec := ToolExecution{ID: ev.ToolCallID, Name: ev.ToolName, Args: ev.Args, Status: ToolRunning}
	for i := range sl.ActiveTools {
		if sl.ActiveTools[i].ID == ev.ToolCallID {
			sl.ActiveTools[i] = exec
			return
		}
	}
	delete(sl.FinishedTools, ev.ToolCallID)
	sl.ActiveTools = append(sl.ActiveTools, exec)
}

func (r reducer) OnToolUpdate(ev protocol.ToolUpdate) {
	sl := r.s.slot(ev.Workspace(), ev.Slot())
	if sl == nil {
		return
	}
	for i := range sl.ActiveTools {
		if sl.ActiveTools[i].ID == ev.ToolCallID {
			sl.ActiveTools[i].Partial = ev.PartialResult
			return
		}
	}
	tuilog.Log.Debug("update for unknown tool", "tool", ev.ToolCallID)
}

func (r reducer) OnToolEnd(ev protocol.ToolEnd) {
	sl := r.s.slot(ev.Workspace(), ev.Slot())
	if sl == nil {
		return
	}
	i := slices.IndexFunc(sl.ActiveTools, func(t ToolExecution) bool { return t.ID == ev.ToolCallID })
	if i < 0 {
		tuilog.Log.Debug("end for unknown tool", "tool", ev.ToolCallID)
		return
	}
	exec := sl.ActiveTools[i]
	sl.ActiveTools = slices.Delete(sl.ActiveTools, i, i+1)
	exec.Result = ev.Result
	exec.IsError = ev.IsError
	exec.Status = ToolComplete
	if ev.IsError {
		exec.Status = ToolError
	}
	sl.FinishedTools[exec.ID] = exec
}

func (r reducer) OnCompactionEnd(ev protocol.CompactionEnd) {
	sl := r.s.slot(ev.Workspace(), ev.Slot())
	if sl == nil {
		return
	}
	sl.State.IsCompacting = false
	if ev.ErrorMessage != "" && !ev.Aborted {
		sl.Error = ev.ErrorMessage
	}
	t := target(ev)
	r.s.send(protocol.GetMessages{Target: t}, protocol.GetState{Target: t})
}

func (r reducer) OnForkResult(ev protocol.ForkResult) {
	sl := r.s.slot(ev.Workspace(), ev.Slot())
	if sl == nil {
		return
	}
	if !ev.Success {
		sl.Error = ev.Error
		if sl.Error == "" {
			sl.Error = "fork failed"
		}
		return
	}
	sl.Error = ""
	t := target(ev)
	r.s.send(
		protocol.GetMessages{Target: t},
		protocol.GetState{Target: t},
		protocol.GetSessions{WorkspaceID: ev.Workspace()},
	)
}

func (r reducer) OnForkMessages(ev protocol.ForkMessages) {
	sl := r.s.slot(ev.Workspace(), ev.Slot())
	if sl == nil {
		return
	}
	sl.ForkMessages = slices.Clone(ev.Messages)
	r.s.notify(Notice{Kind: NoticeForkMessages, WorkspaceID: ev.Workspace(), SlotID: ev.Slot(), Payload: sl.ForkMessages})
}

func (r reducer) OnQuestionnaireRequest(ev protocol.QuestionnaireRequest) {
	sl := r.s.slot(ev.Workspace(), ev.Slot())
	if sl == nil {
		return
	}
	q := &Questionnaire{ToolCallID: ev.ToolCallID, Questions: slices.Clone(ev.Questions)}
	sl.Questionnaire = q
	r.s.notify(Notice{Kind: NoticeQuestionnaire, WorkspaceID: ev.Workspace(), SlotID: ev.Slot(), Payload: *q})
}

func (r reducer) OnBashStart(ev protocol.BashStart) {
	s := r.s
	sl := s.slot(ev.Workspace(), ev.Slot())
	if sl == nil {
		return
	}
	if sl.Bash != nil {
		// A new run replaces a live one; its transcript entry stops running.
		sl.Bash.Running = false
		sl.Bash.Cancelled = true
		mirrorBash(sl)
	}
	s.bashSeq++
	sl.Messages = append(sl.Messages, protocol.Message{Role: protocol.RoleBashExecution})
	sl.Bash = &BashExecution{
		ID:                 fmt.Sprintf("bash-%d", s.bashSeq),
		Command:            ev.Command,
		Running:            true,
		ExcludeFromContext: ev.ExcludeFromContext,
		MessageIndex:       len(sl.Messages) - 1,
	}
	mirrorBash(sl)
}

func (r reducer) OnBashOutput(ev protocol.BashOutput) {
	sl := r.s.slot(ev.Workspace(), ev.Slot())
	if sl == nil || sl.Bash == nil {
		return
	}
	sl.Bash.Output += ev.Chunk
	mirrorBash(sl)
}

func (r reducer) OnBashEnd(ev protocol.BashEnd) {
	sl := r.s.slot(ev.Workspace(), ev.Slot())
	if sl == nil || sl.Bash == nil {
		return
	}
	b := sl.Bash
	b.Running = false
	b.ExitCode = ev.ExitCode
	b.Cancelled = ev.Cancelled
	b.Truncated = ev.Truncated
	b.FullOutputPath = ev.FullOutputPath
	b.IsError = ev.ExitCode != nil && *ev.ExitCode != 0 && !ev.Cancelled
	mirrorBash(sl)
	sl.Bash = nil
}

// mirrorBash copies the live execution into its transcript message.
func mirrorBash(sl *Slot) {
	b := sl.Bash
	if b == nil || b.MessageIndex < 0 || b.MessageIndex >= len(sl.Messages) {
		return
	}
	m := &sl.Messages[b.MessageIndex]
	if m.Role != protocol.RoleBashExecution {
		return
	}
	m.Bash = &protocol.BashMessage{
		Command:            b.Command,
		Output:             b.Output,
		ExitCode:           b.ExitCode,
		Running:            b.Running,
		Cancelled:          b.Cancelled,
		Truncated:          b.Truncated,
		IsError:            b.IsError,
		ExcludeFromContext: b.ExcludeFromContext,
		FullOutputPath:     b.FullOutputPath,
	}
}

func (r reducer) OnExtensionUIRequest(ev protocol.ExtensionUIRequest) {
	sl := r.s.slot(ev.Workspace(), ev.Slot())
	if sl == nil {
		return
	}
	sl.ExtensionRequest = ev.Request
	r.s.notify(Notice{Kind: NoticeExtensionUI, WorkspaceID: ev.Workspace(), SlotID: ev.Slot(), Payload: ev.Request})
}

func (r reducer) OnCustomUIStart(ev protocol.CustomUIStart) {
	sl := r.s.slot(ev.Workspace(), ev.Slot())
	if sl == nil {
		return
	}
	sl.CustomUI = &CustomUI{SessionID: ev.SessionID, Component: ev.Component}
	r.s.notify(Notice{Kind: NoticeCustomUI, WorkspaceID: ev.Workspace(), SlotID: ev.Slot(), Payload: *sl.CustomUI})
}

func (r reducer) OnCustomUIUpdate(ev protocol.CustomUIUpdate) {
	sl := r.s.slot(ev.Workspace(), ev.Slot())
	if sl == nil || sl.CustomUI == nil || sl.CustomUI.SessionID != ev.SessionID {
		return
	}
	sl.CustomUI = &CustomUI{SessionID: ev.SessionID, Component: ev.Component}
}

func (r reducer) OnCustomUIClose(ev protocol.CustomUIClose) {
	sl := r.s.slot(ev.Workspace(), ev.Slot())
	if sl == nil || sl.CustomUI == nil || sl.CustomUI.SessionID != ev.SessionID {
		return
	}
	sl.CustomUI = nil
}
