package ipc

import (
	"encoding/json"

	"github.com/dgnsrekt/tabhost/internal/tabs"
)

// Reply type names.
const (
	RepOK                = "ok"
	RepPong              = "pong"
	RepCapabilities      = "capabilities"
	RepTabList           = "tab_list"
	RepTabState          = "tab_state"
	RepTabCreated        = "tab_created"
	RepTabPanel          = "tab_panel"
	RepInspectorTargets  = "inspector_targets"
	RepInspectorAttached = "inspector_attached"
	RepInspectorMessages = "inspector_messages"
	RepError             = "error"
)

// Reply is the single outbound envelope; Type selects which payload field is
// populated. List payloads are slice pointers so that an empty list encodes
// as [] instead of being omitted.
type Reply struct {
	Type string `json:"type"`

	Capabilities *Capabilities       `json:"capabilities,omitempty"`
	Groups       *[]TabGroup         `json:"groups,omitempty"`
	Tab          *TabState           `json:"tab,omitempty"`
	TabID        *tabs.TabID         `json:"tab_id,omitempty"`
	Panel        *PanelState         `json:"panel,omitempty"`
	Targets      *[]InspectorTarget  `json:"targets,omitempty"`
	Session      *InspectorSession   `json:"session,omitempty"`
	Messages     *[]InspectorMessage `json:"messages,omitempty"`
	Err          *Error              `json:"error,omitempty"`
}

func ReplyOK() Reply {
	return Reply{Type: RepOK}
}

func ReplyPong() Reply {
	return Reply{Type: RepPong}
}

func ReplyError(code Code, message string) Reply {
	return Reply{Type: RepError, Err: NewError(code, message)}
}

func replyErr(err error) Reply {
	return Reply{Type: RepError, Err: asError(err)}
}

// Encode serializes the reply as one JSON line.
func (r Reply) Encode() ([]byte, error) {
	line, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append(line, '\n'), nil
}

// IsError reports whether the reply carries an error and its code.
func (r Reply) IsError() (Code, bool) {
	if r.Type != RepError || r.Err == nil {
		return "", false
	}
	return r.Err.Code, true
}
