// Package ipc defines the line-delimited JSON command protocol spoken over
// the host's local socket: wire types, the request/reply catalogue, the error
// taxonomy, and the dispatcher that maps decoded requests onto host
// operations.
package ipc

import (
	"runtime"

	"github.com/dgnsrekt/tabhost/internal/tabs"
)

// ProtocolVersion is bumped on incompatible wire changes.
const ProtocolVersion = 1

// Version is the host release reported in capabilities replies.
const Version = "0.1.0"

// TabActivity is the wire form of a terminal tab's output liveness.
type TabActivity struct {
	HasUnseenOutput bool    `json:"has_unseen_output"`
	LastOutputMsAgo *uint64 `json:"last_output_ms_ago"`
}

// TabState is the full per-tab snapshot carried in state and list replies.
type TabState struct {
	TabID       tabs.TabID   `json:"tab_id"`
	GroupID     int          `json:"group_id"`
	Index       int          `json:"index"`
	IsActive    bool         `json:"is_active"`
	Title       string       `json:"title"`
	CustomTitle *string      `json:"custom_title"`
	ProgramName string       `json:"program_name"`
	Kind        tabs.Kind    `json:"kind"`
	Activity    *TabActivity `json:"activity"`
}

type TabGroup struct {
	ID   int        `json:"id"`
	Name *string    `json:"name"`
	Tabs []TabState `json:"tabs"`
}

type PanelState struct {
	Enabled bool `json:"enabled"`
	Width   int  `json:"width"`
}

type InspectorTarget struct {
	TargetID          uint64      `json:"target_id"`
	TargetType        *string     `json:"target_type"`
	URL               *string     `json:"url"`
	Title             *string     `json:"title"`
	OverrideName      *string     `json:"override_name"`
	HostAppIdentifier *string     `json:"host_app_identifier"`
	TabID             *tabs.TabID `json:"tab_id"`
}

type InspectorSession struct {
	SessionID string     `json:"session_id"`
	TargetID  uint64     `json:"target_id"`
	TabID     tabs.TabID `json:"tab_id"`
}

type InspectorMessage struct {
	SessionID string `json:"session_id"`
	Payload   string `json:"payload"`
}

type Capabilities struct {
	ProtocolVersion int    `json:"protocol_version"`
	Platform        string `json:"platform"`
	Version         string `json:"version"`
	WebTabs         bool   `json:"web_tabs"`
}

// NewCapabilities reports the host's feature surface; webTabs reflects
// whether a web engine is configured.
func NewCapabilities(webTabs bool) Capabilities {
	return Capabilities{
		ProtocolVersion: ProtocolVersion,
		Platform:        runtime.GOOS,
		Version:         Version,
		WebTabs:         webTabs,
	}
}

// CreateOptions carries the optional fields of a create_tab request. A URL
// makes the tab a web tab; absent, a terminal tab is created.
type CreateOptions struct {
	Title   *string `json:"title,omitempty"`
	Program *string `json:"program,omitempty"`
	URL     *string `json:"url,omitempty"`
	GroupID *int    `json:"group_id,omitempty"`
}
