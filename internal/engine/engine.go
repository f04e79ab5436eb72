// Package engine declares the narrow surfaces through which the host drives
// its terminal and web collaborators. Engines receive already-resolved tab
// identities; all selector resolution and state bookkeeping stays in the
// host.
package engine

import (
	"context"
	"log/slog"

	"github.com/dgnsrekt/tabhost/internal/ipc"
	"github.com/dgnsrekt/tabhost/internal/tabs"
)

// Notifier is the callback surface engines use to push state changes back
// into the host. Implementations must be safe for concurrent use.
type Notifier interface {
	// TitleChanged reports a new derived title for the tab.
	TitleChanged(id tabs.TabID, title string)
	// URLChanged reports a navigation in a web tab.
	URLChanged(id tabs.TabID, url string)
	// Output reports terminal output on the tab.
	Output(id tabs.TabID)
}

// Terminal is the terminal-emulation collaborator.
type Terminal interface {
	CreateTab(ctx context.Context, id tabs.TabID, command *ipc.Program) error
	CloseTab(ctx context.Context, id tabs.TabID) error
	SendInput(ctx context.Context, id tabs.TabID, text string) error
	DispatchAction(ctx context.Context, id tabs.TabID, action ipc.Action) error
}

// Web is the web-content collaborator.
type Web interface {
	CreateTab(ctx context.Context, id tabs.TabID, url string) error
	CloseTab(ctx context.Context, id tabs.TabID) error
	Load(ctx context.Context, id tabs.TabID, url string) error
	Reload(ctx context.Context, id tabs.TabID) error
	OpenInspector(ctx context.Context, id tabs.TabID) error
}

// NullTerminal satisfies Terminal for hosts running without a PTY layer:
// every operation succeeds so that tab bookkeeping stays exercisable, and is
// logged for visibility.
type NullTerminal struct {
	logger *slog.Logger
}

func NewNullTerminal(logger *slog.Logger) *NullTerminal {
	return &NullTerminal{logger: logger}
}

func (t *NullTerminal) CreateTab(_ context.Context, id tabs.TabID, command *ipc.Program) error {
	if command != nil {
		t.logger.Debug("terminal tab created", "tab_id", id.String(), "program", command.Program)
	} else {
		t.logger.Debug("terminal tab created", "tab_id", id.String())
	}
	return nil
}

func (t *NullTerminal) CloseTab(_ context.Context, id tabs.TabID) error {
	t.logger.Debug("terminal tab closed", "tab_id", id.String())
	return nil
}

func (t *NullTerminal) SendInput(_ context.Context, id tabs.TabID, text string) error {
	t.logger.Debug("terminal input", "tab_id", id.String(), "bytes", len(text))
	return nil
}

func (t *NullTerminal) DispatchAction(_ context.Context, id tabs.TabID, action ipc.Action) error {
	t.logger.Debug("terminal action", "tab_id", id.String(), "action_type", action.Type)
	return nil
}
