package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/dgnsrekt/tabhost/internal/tabs"
)

// Request type names, snake_case on the wire.
const (
	ReqPing                  = "ping"
	ReqGetCapabilities       = "get_capabilities"
	ReqListTabs              = "list_tabs"
	ReqGetTabState           = "get_tab_state"
	ReqCreateTab             = "create_tab"
	ReqCloseTab              = "close_tab"
	ReqSelectTab             = "select_tab"
	ReqMoveTab               = "move_tab"
	ReqSetTabTitle           = "set_tab_title"
	ReqSetGroupName          = "set_group_name"
	ReqRestoreClosedTab      = "restore_closed_tab"
	ReqOpenURL               = "open_url"
	ReqSetWebURL             = "set_web_url"
	ReqReloadWeb             = "reload_web"
	ReqOpenInspector         = "open_inspector"
	ReqGetTabPanel           = "get_tab_panel"
	ReqSetTabPanel           = "set_tab_panel"
	ReqDispatchAction        = "dispatch_action"
	ReqSendInput             = "send_input"
	ReqRunCommandBar         = "run_command_bar"
	ReqListInspectorTargets  = "list_inspector_targets"
	ReqAttachInspector       = "attach_inspector"
	ReqDetachInspector       = "detach_inspector"
	ReqSendInspectorMessage  = "send_inspector_message"
	ReqPollInspectorMessages = "poll_inspector_messages"
)

// Request is the decoded envelope of one inbound command. Type selects the
// command; the remaining fields are populated per type and validated by the
// dispatcher before any state is touched.
type Request struct {
	Type string `json:"type"`

	TabID         *tabs.TabID    `json:"tab_id,omitempty"`
	Options       *CreateOptions `json:"options,omitempty"`
	Selection     *Selection     `json:"selection,omitempty"`
	TargetGroupID *int           `json:"target_group_id,omitempty"`
	TargetIndex   *int           `json:"target_index,omitempty"`
	Title         *string        `json:"title,omitempty"`
	GroupID       *int           `json:"group_id,omitempty"`
	Name          *string        `json:"name,omitempty"`
	URL           *string        `json:"url,omitempty"`
	Target        *URLTarget     `json:"target,omitempty"`
	Enabled       *bool          `json:"enabled,omitempty"`
	Width         *int           `json:"width,omitempty"`
	Action        *Action        `json:"action,omitempty"`
	Text          *string        `json:"text,omitempty"`
	Input         *string        `json:"input,omitempty"`
	TargetID      *uint64        `json:"target_id,omitempty"`
	SessionID     *string        `json:"session_id,omitempty"`
	Message       *string        `json:"message,omitempty"`
	Max           *int           `json:"max,omitempty"`
}

// DecodeRequest parses one JSON line into a Request. Malformed input is an
// invalid_request error, never a dropped message.
func DecodeRequest(line []byte) (*Request, *Error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, Errorf(CodeInvalidRequest, "malformed request: %v", err)
	}
	if req.Type == "" {
		return nil, NewError(CodeInvalidRequest, "missing request type")
	}
	return &req, nil
}

// Selection is the tagged tab-selector union: active, next, previous, last,
// by_index{index}, by_id{tab_id}.
type Selection struct {
	Type  string      `json:"type"`
	Index *int        `json:"index,omitempty"`
	TabID *tabs.TabID `json:"tab_id,omitempty"`
}

const (
	SelActive   = "active"
	SelNext     = "next"
	SelPrevious = "previous"
	SelLast     = "last"
	SelByIndex  = "by_index"
	SelByID     = "by_id"
)

// Validate checks the union exhaustively: the tag must be known and the
// tag's payload fields must be present.
func (s *Selection) Validate() *Error {
	switch s.Type {
	case SelActive, SelNext, SelPrevious, SelLast:
		return nil
	case SelByIndex:
		if s.Index == nil {
			return NewError(CodeInvalidRequest, "by_index selection requires index")
		}
		return nil
	case SelByID:
		if s.TabID == nil {
			return NewError(CodeInvalidRequest, "by_id selection requires tab_id")
		}
		return nil
	}
	return Errorf(CodeInvalidRequest, "unknown selection type %q", s.Type)
}

// URLTarget is the tagged URL-destination union: current, new_tab,
// tab_id{tab_id}.
type URLTarget struct {
	Type  string      `json:"type"`
	TabID *tabs.TabID `json:"tab_id,omitempty"`
}

const (
	TargetCurrent = "current"
	TargetNewTab  = "new_tab"
	TargetTabID   = "tab_id"
)

func (t *URLTarget) Validate() *Error {
	switch t.Type {
	case TargetCurrent, TargetNewTab:
		return nil
	case TargetTabID:
		if t.TabID == nil {
			return NewError(CodeInvalidRequest, "tab_id target requires tab_id")
		}
		return nil
	}
	return Errorf(CodeInvalidRequest, "unknown url target %q", t.Type)
}

// Program is a command to run: either a bare program name or a program with
// an argument list. Both JSON shapes decode into the same struct.
type Program struct {
	Program string   `json:"program"`
	Args    []string `json:"args,omitempty"`
}

func (p *Program) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		*p = Program{Program: bare}
		return nil
	}
	type program Program
	var full program
	if err := json.Unmarshal(data, &full); err != nil {
		return fmt.Errorf("invalid program: %w", err)
	}
	*p = Program(full)
	return nil
}

func (p Program) MarshalJSON() ([]byte, error) {
	if len(p.Args) == 0 {
		return json.Marshal(p.Program)
	}
	type program Program
	return json.Marshal(program(p))
}
