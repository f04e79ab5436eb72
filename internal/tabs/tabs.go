// Package tabs holds the host's authoritative tab state: slot/generation
// identities, group membership and ordering, activation history, and the
// closed-tab history used for restores.
package tabs

import (
	"encoding/json"
	"fmt"
	"time"
)

// TabID identifies a tab by registry slot and the slot's generation at
// creation time. A TabID is live only while the slot's current generation
// matches; ids held across a close never resolve to a reused slot.
type TabID struct {
	Index      uint32 `json:"index"`
	Generation uint32 `json:"generation"`
}

func (id TabID) String() string {
	return fmt.Sprintf("%d.%d", id.Index, id.Generation)
}

// Kind is the closed tab-kind union: a terminal tab or a web tab with its
// current URL. The zero value is a terminal tab.
type Kind struct {
	Web bool
	URL string
}

func TerminalKind() Kind {
	return Kind{}
}

func WebKind(url string) Kind {
	return Kind{Web: true, URL: url}
}

func (k Kind) IsWeb() bool {
	return k.Web
}

// MarshalJSON encodes the wire form: "terminal" or {"web":{"url":...}}.
func (k Kind) MarshalJSON() ([]byte, error) {
	if !k.Web {
		return json.Marshal("terminal")
	}
	return json.Marshal(map[string]any{"web": map[string]string{"url": k.URL}})
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		if tag != "terminal" {
			return fmt.Errorf("unknown tab kind %q", tag)
		}
		*k = TerminalKind()
		return nil
	}

	var web struct {
		Web *struct {
			URL string `json:"url"`
		} `json:"web"`
	}
	if err := json.Unmarshal(data, &web); err != nil {
		return fmt.Errorf("invalid tab kind: %w", err)
	}
	if web.Web == nil {
		return fmt.Errorf("invalid tab kind: missing variant")
	}
	*k = WebKind(web.Web.URL)
	return nil
}

// Activity tracks terminal output liveness for the tab panel and IPC state
// replies. Web tabs carry no activity.
type Activity struct {
	LastOutput      time.Time
	HasUnseenOutput bool
}

// NoteOutput records terminal output. Output on an unfocused tab is unseen
// until the tab is selected.
func (a *Activity) NoteOutput(now time.Time, seen bool) {
	a.LastOutput = now
	a.HasUnseenOutput = !seen
}

func (a *Activity) MarkSeen() {
	a.HasUnseenOutput = false
}

// Tab is the registry-owned record for one live tab.
type Tab struct {
	ID          TabID
	Kind        Kind
	Title       string
	CustomTitle *string
	ProgramName string
	Activity    Activity
}

// PanelTitle is the display label: the custom title wins, web tabs fall back
// to the derived title, terminal tabs prefer the running program name.
func (t *Tab) PanelTitle() string {
	if t.CustomTitle != nil {
		return *t.CustomTitle
	}
	if t.Kind.IsWeb() {
		return t.Title
	}
	if t.ProgramName == "" {
		return t.Title
	}
	return t.ProgramName
}

// ClosedTab captures enough of a destroyed tab to recreate it with a fresh
// identity on restore.
type ClosedTab struct {
	Kind        Kind
	Title       string
	CustomTitle *string
	ProgramName string
}
