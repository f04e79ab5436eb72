package ipc

import (
	"time"

	"github.com/dgnsrekt/tabhost/internal/tabs"
)

// Context is the host surface the dispatcher drives. Implementations own all
// tab/group/inspector state and serialize access; the dispatcher guarantees
// that every call is made with fully validated, resolved inputs.
type Context interface {
	// WebTabsSupported reports whether a web engine is configured; it gates
	// the capabilities reply.
	WebTabsSupported() bool
	ActiveTabID() (tabs.TabID, bool)
	ListTabs(now time.Time) []TabGroup
	TabState(id tabs.TabID, now time.Time) (*TabState, bool)
	CreateTab(opts CreateOptions) (tabs.TabID, error)
	// CloseTab reports whether the last tab was closed; the transport uses
	// that to shut the host down.
	CloseTab(id tabs.TabID) (lastTab bool, err error)
	SelectTab(sel Selection) error
	MoveTab(id tabs.TabID, targetGroup, targetIndex *int) error
	SetTabTitle(id tabs.TabID, title *string) error
	SetGroupName(groupID int, name *string) error
	RestoreClosedTab() error
	OpenURLInTab(id tabs.TabID, url string) error
	OpenURLNewTab(url string) (tabs.TabID, error)
	ReloadWeb(id tabs.TabID) error
	OpenInspector(id tabs.TabID) error
	TabPanelState() PanelState
	SetTabPanel(enabled *bool, width *int) error
	DispatchAction(id tabs.TabID, action Action) error
	SendInput(id tabs.TabID, text string) error
	RunCommandBar(id tabs.TabID, input string) error
	ListInspectorTargets() ([]InspectorTarget, error)
	AttachInspector(id *tabs.TabID, targetID *uint64) (InspectorSession, error)
	DetachInspector(sessionID string) error
	SendInspectorMessage(sessionID, message string) error
	PollInspectorMessages(sessionID string, max *int) ([]InspectorMessage, error)
}

// Response pairs the wire reply with a host-shutdown signal raised when the
// last tab closes.
type Response struct {
	Reply     Reply
	CloseHost bool
}

// HandleLine decodes one JSON line and dispatches it. Malformed input yields
// an invalid_request reply; every line gets exactly one reply.
func HandleLine(ctx Context, line []byte) Response {
	req, derr := DecodeRequest(line)
	if derr != nil {
		return Response{Reply: Reply{Type: RepError, Err: derr}}
	}
	return Handle(ctx, req)
}

// Handle runs one request through validate-then-execute: selector and field
// validation happens before any mutation, so a failed request leaves state
// unchanged.
func Handle(ctx Context, req *Request) Response {
	now := time.Now()

	switch req.Type {
	case ReqPing:
		return respond(ReplyPong())

	case ReqGetCapabilities:
		caps := NewCapabilities(ctx.WebTabsSupported())
		return respond(Reply{Type: RepCapabilities, Capabilities: &caps})

	case ReqListTabs:
		groups := ctx.ListTabs(now)
		if groups == nil {
			groups = []TabGroup{}
		}
		return respond(Reply{Type: RepTabList, Groups: &groups})

	case ReqGetTabState:
		if req.TabID == nil {
			return invalid("get_tab_state requires tab_id")
		}
		state, ok := ctx.TabState(*req.TabID, now)
		if !ok {
			return fail(NewError(CodeNotFound, "tab not found"))
		}
		return respond(Reply{Type: RepTabState, Tab: state})

	case ReqCreateTab:
		opts := CreateOptions{}
		if req.Options != nil {
			opts = *req.Options
		}
		id, err := ctx.CreateTab(opts)
		if err != nil {
			return fail(err)
		}
		return respond(Reply{Type: RepTabCreated, TabID: &id})

	case ReqCloseTab:
		id, derr := targetTab(ctx, req.TabID)
		if derr != nil {
			return fail(derr)
		}
		lastTab, err := ctx.CloseTab(id)
		if err != nil {
			return fail(err)
		}
		return Response{Reply: ReplyOK(), CloseHost: lastTab}

	case ReqSelectTab:
		if req.Selection == nil {
			return invalid("select_tab requires selection")
		}
		if derr := req.Selection.Validate(); derr != nil {
			return fail(derr)
		}
		if err := ctx.SelectTab(*req.Selection); err != nil {
			return fail(err)
		}
		return respond(ReplyOK())

	case ReqMoveTab:
		if req.TabID == nil {
			return invalid("move_tab requires tab_id")
		}
		if err := ctx.MoveTab(*req.TabID, req.TargetGroupID, req.TargetIndex); err != nil {
			return fail(err)
		}
		return respond(ReplyOK())

	case ReqSetTabTitle:
		id, derr := targetTab(ctx, req.TabID)
		if derr != nil {
			return fail(derr)
		}
		if err := ctx.SetTabTitle(id, req.Title); err != nil {
			return fail(err)
		}
		return respond(ReplyOK())

	case ReqSetGroupName:
		if req.GroupID == nil {
			return invalid("set_group_name requires group_id")
		}
		if err := ctx.SetGroupName(*req.GroupID, req.Name); err != nil {
			return fail(err)
		}
		return respond(ReplyOK())

	case ReqRestoreClosedTab:
		if err := ctx.RestoreClosedTab(); err != nil {
			return fail(err)
		}
		return respond(ReplyOK())

	case ReqOpenURL:
		return handleOpenURL(ctx, req)

	case ReqSetWebURL:
		if req.URL == nil {
			return invalid("set_web_url requires url")
		}
		id, derr := targetTab(ctx, req.TabID)
		if derr != nil {
			return fail(derr)
		}
		if err := ctx.OpenURLInTab(id, *req.URL); err != nil {
			return fail(err)
		}
		return respond(ReplyOK())

	case ReqReloadWeb:
		id, derr := targetTab(ctx, req.TabID)
		if derr != nil {
			return fail(derr)
		}
		if err := ctx.ReloadWeb(id); err != nil {
			return fail(err)
		}
		return respond(ReplyOK())

	case ReqOpenInspector:
		id, derr := targetTab(ctx, req.TabID)
		if derr != nil {
			return fail(derr)
		}
		if err := ctx.OpenInspector(id); err != nil {
			return fail(err)
		}
		return respond(ReplyOK())

	case ReqGetTabPanel:
		panel := ctx.TabPanelState()
		return respond(Reply{Type: RepTabPanel, Panel: &panel})

	case ReqSetTabPanel:
		if err := ctx.SetTabPanel(req.Enabled, req.Width); err != nil {
			return fail(err)
		}
		return respond(ReplyOK())

	case ReqDispatchAction:
		if req.Action == nil {
			return invalid("dispatch_action requires action")
		}
		id, derr := targetTab(ctx, req.TabID)
		if derr != nil {
			return fail(derr)
		}
		action, derr := req.Action.Normalize()
		if derr != nil {
			return fail(derr)
		}
		if err := ctx.DispatchAction(id, action); err != nil {
			return fail(err)
		}
		return respond(ReplyOK())

	case ReqSendInput:
		if req.Text == nil {
			return invalid("send_input requires text")
		}
		id, derr := targetTab(ctx, req.TabID)
		if derr != nil {
			return fail(derr)
		}
		if err := ctx.SendInput(id, *req.Text); err != nil {
			return fail(err)
		}
		return respond(ReplyOK())

	case ReqRunCommandBar:
		if req.Input == nil {
			return invalid("run_command_bar requires input")
		}
		id, derr := targetTab(ctx, req.TabID)
		if derr != nil {
			return fail(derr)
		}
		if err := ctx.RunCommandBar(id, *req.Input); err != nil {
			return fail(err)
		}
		return respond(ReplyOK())

	case ReqListInspectorTargets:
		targets, err := ctx.ListInspectorTargets()
		if err != nil {
			return fail(err)
		}
		if targets == nil {
			targets = []InspectorTarget{}
		}
		return respond(Reply{Type: RepInspectorTargets, Targets: &targets})

	case ReqAttachInspector:
		if req.TabID == nil && req.TargetID == nil {
			return invalid("attach_inspector requires tab_id or target_id")
		}
		session, err := ctx.AttachInspector(req.TabID, req.TargetID)
		if err != nil {
			return fail(err)
		}
		return respond(Reply{Type: RepInspectorAttached, Session: &session})

	case ReqDetachInspector:
		if req.SessionID == nil {
			return invalid("detach_inspector requires session_id")
		}
		if err := ctx.DetachInspector(*req.SessionID); err != nil {
			return fail(err)
		}
		return respond(ReplyOK())

	case ReqSendInspectorMessage:
		if req.SessionID == nil || req.Message == nil {
			return invalid("send_inspector_message requires session_id and message")
		}
		if err := ctx.SendInspectorMessage(*req.SessionID, *req.Message); err != nil {
			return fail(err)
		}
		return respond(ReplyOK())

	case ReqPollInspectorMessages:
		if req.SessionID == nil {
			return invalid("poll_inspector_messages requires session_id")
		}
		messages, err := ctx.PollInspectorMessages(*req.SessionID, req.Max)
		if err != nil {
			return fail(err)
		}
		if messages == nil {
			messages = []InspectorMessage{}
		}
		return respond(Reply{Type: RepInspectorMessages, Messages: &messages})
	}

	return fail(Errorf(CodeInvalidRequest, "unknown request type %q", req.Type))
}

// handleOpenURL routes open_url by target: current loads into the active tab
// (which must be a web tab), new_tab always creates, tab_id loads into the
// named tab.
func handleOpenURL(ctx Context, req *Request) Response {
	if req.URL == nil {
		return invalid("open_url requires url")
	}
	target := URLTarget{Type: TargetNewTab}
	if req.Target != nil {
		target = *req.Target
	}
	if derr := target.Validate(); derr != nil {
		return fail(derr)
	}

	switch target.Type {
	case TargetNewTab:
		id, err := ctx.OpenURLNewTab(*req.URL)
		if err != nil {
			return fail(err)
		}
		return respond(Reply{Type: RepTabCreated, TabID: &id})

	case TargetTabID:
		if err := ctx.OpenURLInTab(*target.TabID, *req.URL); err != nil {
			return fail(err)
		}
		return respond(ReplyOK())

	case TargetCurrent:
		active, ok := ctx.ActiveTabID()
		if !ok {
			return fail(NewError(CodeNotFound, "no active tab"))
		}
		if err := ctx.OpenURLInTab(active, *req.URL); err != nil {
			return fail(err)
		}
		return respond(ReplyOK())
	}
	return invalid("unknown url target")
}

// targetTab resolves an optional tab_id field, falling back to the active
// tab.
func targetTab(ctx Context, id *tabs.TabID) (tabs.TabID, *Error) {
	if id != nil {
		return *id, nil
	}
	active, ok := ctx.ActiveTabID()
	if !ok {
		return tabs.TabID{}, NewError(CodeNotFound, "no active tab")
	}
	return active, nil
}

func respond(reply Reply) Response {
	return Response{Reply: reply}
}

func fail(err error) Response {
	return Response{Reply: replyErr(err)}
}

func invalid(message string) Response {
	return Response{Reply: ReplyError(CodeInvalidRequest, message)}
}
