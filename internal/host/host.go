// Package host owns the authoritative tab/group/inspector state and exposes
// it as the command surface behind the IPC socket and the debug API. All
// mutation is serialized through one mutex; engine delegations happen inside
// that critical section so no request can observe a half-applied transition.
package host

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/tabhost/internal/engine"
	"github.com/dgnsrekt/tabhost/internal/inspector"
	"github.com/dgnsrekt/tabhost/internal/ipc"
	"github.com/dgnsrekt/tabhost/internal/tabs"
)

// TargetResolver maps a web tab straight to its debugging target, skipping
// the heuristic matcher. The CDP web engine implements it.
type TargetResolver interface {
	TargetFor(id tabs.TabID) (uint64, bool)
}

// Options wires the host's collaborators. A nil Web engine disables web tabs
// and a nil Mux disables the inspector family; both then fail unsupported.
type Options struct {
	Terminal engine.Terminal
	Web      engine.Web
	Targets  TargetResolver
	Mux      *inspector.Mux

	Panel            ipc.PanelState
	ClosedTabHistory int
	EngineTimeout    time.Duration
	Logger           *slog.Logger
}

var (
	_ ipc.Context     = (*Host)(nil)
	_ engine.Notifier = (*Host)(nil)
)

// Host implements ipc.Context over the tab workspace and the engines.
type Host struct {
	mu sync.Mutex

	logger   *slog.Logger
	ws       *tabs.Workspace
	terminal engine.Terminal
	web      engine.Web
	targets  TargetResolver
	mux      *inspector.Mux

	panel         ipc.PanelState
	engineTimeout time.Duration
}

func New(opts Options) *Host {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	terminal := opts.Terminal
	if terminal == nil {
		terminal = engine.NewNullTerminal(logger)
	}
	timeout := opts.EngineTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	panel := opts.Panel
	if panel.Width <= 0 {
		panel.Width = 240
	}
	return &Host{
		logger:        logger,
		ws:            tabs.NewWorkspace(opts.ClosedTabHistory),
		terminal:      terminal,
		web:           opts.Web,
		targets:       opts.Targets,
		mux:           opts.Mux,
		panel:         panel,
		engineTimeout: timeout,
	}
}

// AttachWeb wires the web collaborators after construction. The web engine
// needs the host as its notifier, so the two are linked in a second step.
func (h *Host) AttachWeb(web engine.Web, targets TargetResolver, mux *inspector.Mux) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.web = web
	h.targets = targets
	h.mux = mux
}

// engineCtx bounds a collaborator call; expiry surfaces to clients as a
// timeout error.
func (h *Host) engineCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.engineTimeout)
}

// mapEngineErr turns a collaborator failure into a wire error: deadline
// expiry is a timeout, anything untyped is internal.
func mapEngineErr(err error, op string) error {
	var coded *ipc.Error
	if errors.As(err, &coded) {
		return coded
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ipc.Errorf(ipc.CodeTimeout, "%s timed out", op)
	}
	return ipc.Errorf(ipc.CodeInternal, "%s failed: %v", op, err)
}

func mapWorkspaceErr(err error) error {
	switch {
	case errors.Is(err, tabs.ErrNotFound):
		return ipc.NewError(ipc.CodeNotFound, "tab not found")
	case errors.Is(err, tabs.ErrNoActiveTab):
		return ipc.NewError(ipc.CodeNotFound, "no active tab")
	case errors.Is(err, tabs.ErrGroupNotFound):
		return ipc.NewError(ipc.CodeNotFound, "group not found")
	}
	return ipc.Errorf(ipc.CodeInternal, "%v", err)
}

func mapInspectorErr(err error) error {
	switch {
	case errors.Is(err, inspector.ErrNotFound):
		return ipc.NewError(ipc.CodeNotFound, "inspector session or target not found")
	case errors.Is(err, inspector.ErrAmbiguous):
		return ipc.NewError(ipc.CodeAmbiguous, "multiple inspector targets matched")
	case errors.Is(err, inspector.ErrPermissionDenied):
		return ipc.NewError(ipc.CodePermissionDenied, "remote inspection not permitted")
	case errors.Is(err, context.DeadlineExceeded):
		return ipc.NewError(ipc.CodeTimeout, "inspector operation timed out")
	}
	return ipc.Errorf(ipc.CodeInternal, "%v", err)
}

func (h *Host) WebTabsSupported() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.web != nil
}

func (h *Host) ActiveTabID() (tabs.TabID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ws.ActiveID()
}

func (h *Host) ListTabs(now time.Time) []ipc.TabGroup {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []ipc.TabGroup
	for _, group := range h.ws.Groups() {
		wire := ipc.TabGroup{ID: group.ID, Name: group.Name, Tabs: []ipc.TabState{}}
		for i, id := range group.Tabs {
			tab, ok := h.ws.Get(id)
			if !ok {
				continue
			}
			wire.Tabs = append(wire.Tabs, h.tabState(tab, group.ID, i, now))
		}
		out = append(out, wire)
	}
	return out
}

func (h *Host) TabState(id tabs.TabID, now time.Time) (*ipc.TabState, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tab, ok := h.ws.Get(id)
	if !ok {
		return nil, false
	}
	groupID, index, ok := h.ws.GroupFor(id)
	if !ok {
		return nil, false
	}
	state := h.tabState(tab, groupID, index, now)
	return &state, true
}

// tabState snapshots one tab for the wire; the caller holds the lock.
func (h *Host) tabState(tab *tabs.Tab, groupID, index int, now time.Time) ipc.TabState {
	active, hasActive := h.ws.ActiveID()
	state := ipc.TabState{
		TabID:       tab.ID,
		GroupID:     groupID,
		Index:       index,
		IsActive:    hasActive && active == tab.ID,
		Title:       tab.Title,
		CustomTitle: tab.CustomTitle,
		ProgramName: tab.ProgramName,
		Kind:        tab.Kind,
	}
	if !tab.Kind.IsWeb() {
		activity := ipc.TabActivity{HasUnseenOutput: tab.Activity.HasUnseenOutput}
		if !tab.Activity.LastOutput.IsZero() {
			ago := uint64(now.Sub(tab.Activity.LastOutput) / time.Millisecond)
			activity.LastOutputMsAgo = &ago
		}
		state.Activity = &activity
	}
	return state
}

func (h *Host) CreateTab(opts ipc.CreateOptions) (tabs.TabID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kind := tabs.TerminalKind()
	if opts.URL != nil {
		if h.web == nil {
			return tabs.TabID{}, ipc.NewError(ipc.CodeUnsupported, "web tabs not supported")
		}
		kind = tabs.WebKind(tabs.NormalizeWebURL(*opts.URL))
	}

	createOpts := tabs.CreateOptions{GroupHint: opts.GroupID}
	if opts.Title != nil {
		createOpts.Title = *opts.Title
	}
	if opts.Program != nil {
		createOpts.ProgramName = *opts.Program
	}

	tab, err := h.ws.CreateTab(kind, createOpts)
	if err != nil {
		return tabs.TabID{}, mapWorkspaceErr(err)
	}

	ctx, cancel := h.engineCtx()
	defer cancel()
	if kind.IsWeb() {
		err = h.web.CreateTab(ctx, tab.ID, kind.URL)
	} else {
		var command *ipc.Program
		if opts.Program != nil {
			command = &ipc.Program{Program: *opts.Program}
		}
		err = h.terminal.CreateTab(ctx, tab.ID, command)
	}
	if err != nil {
		h.ws.AbortCreate(tab.ID)
		return tabs.TabID{}, mapEngineErr(err, "create tab")
	}
	return tab.ID, nil
}

func (h *Host) CloseTab(id tabs.TabID) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closeTabLocked(id)
}

func (h *Host) closeTabLocked(id tabs.TabID) (bool, error) {
	tab, ok := h.ws.Get(id)
	if !ok {
		return false, ipc.NewError(ipc.CodeNotFound, "tab not found")
	}
	kind := tab.Kind

	last, err := h.ws.CloseTab(id)
	if err != nil {
		return false, mapWorkspaceErr(err)
	}

	ctx, cancel := h.engineCtx()
	defer cancel()
	if kind.IsWeb() {
		if h.web != nil {
			if err := h.web.CloseTab(ctx, id); err != nil {
				h.logger.Warn("failed to close web view", "tab_id", id.String(), "error", err)
			}
		}
	} else if err := h.terminal.CloseTab(ctx, id); err != nil {
		h.logger.Warn("failed to close terminal", "tab_id", id.String(), "error", err)
	}
	return last, nil
}

func (h *Host) SelectTab(sel ipc.Selection) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	resolved, err := h.resolveLocked(sel)
	if err != nil {
		return err
	}
	if err := h.ws.SelectTab(resolved); err != nil {
		return mapWorkspaceErr(err)
	}
	return nil
}

// resolveLocked maps a wire selection to a live tab id; the caller holds the
// lock.
func (h *Host) resolveLocked(sel ipc.Selection) (tabs.TabID, error) {
	resolved := tabs.Selection{}
	switch sel.Type {
	case ipc.SelActive:
		resolved.Kind = tabs.SelectActive
	case ipc.SelNext:
		resolved.Kind = tabs.SelectNext
	case ipc.SelPrevious:
		resolved.Kind = tabs.SelectPrevious
	case ipc.SelLast:
		resolved.Kind = tabs.SelectLast
	case ipc.SelByIndex:
		resolved.Kind = tabs.SelectByIndex
		resolved.Index = *sel.Index
	case ipc.SelByID:
		resolved.Kind = tabs.SelectByID
		resolved.TabID = *sel.TabID
	default:
		return tabs.TabID{}, ipc.Errorf(ipc.CodeInvalidRequest, "unknown selection type %q", sel.Type)
	}

	id, err := h.ws.Resolve(resolved)
	if err != nil {
		return tabs.TabID{}, mapWorkspaceErr(err)
	}
	return id, nil
}

func (h *Host) MoveTab(id tabs.TabID, targetGroup, targetIndex *int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ws.MoveTab(id, targetGroup, targetIndex); err != nil {
		return mapWorkspaceErr(err)
	}
	return nil
}

func (h *Host) SetTabTitle(id tabs.TabID, title *string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ws.SetCustomTitle(id, title); err != nil {
		return mapWorkspaceErr(err)
	}
	return nil
}

func (h *Host) SetGroupName(groupID int, name *string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ws.SetGroupName(groupID, name); err != nil {
		return mapWorkspaceErr(err)
	}
	return nil
}

func (h *Host) RestoreClosedTab() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	record, ok := h.ws.PeekClosed()
	if !ok {
		return ipc.NewError(ipc.CodeNotFound, "no closed tabs to restore")
	}
	if record.Kind.IsWeb() && h.web == nil {
		return ipc.NewError(ipc.CodeUnsupported, "web tabs not supported")
	}

	tab, err := h.ws.RestoreClosedTab()
	if err != nil {
		return mapWorkspaceErr(err)
	}

	ctx, cancel := h.engineCtx()
	defer cancel()
	if tab.Kind.IsWeb() {
		err = h.web.CreateTab(ctx, tab.ID, tab.Kind.URL)
	} else {
		err = h.terminal.CreateTab(ctx, tab.ID, nil)
	}
	if err != nil {
		h.ws.AbortCreate(tab.ID)
		return mapEngineErr(err, "restore tab")
	}
	return nil
}

func (h *Host) OpenURLInTab(id tabs.TabID, url string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.openURLInTabLocked(id, url)
}

func (h *Host) openURLInTabLocked(id tabs.TabID, url string) error {
	tab, ok := h.ws.Get(id)
	if !ok {
		return ipc.NewError(ipc.CodeNotFound, "tab not found")
	}
	if !tab.Kind.IsWeb() {
		return ipc.NewError(ipc.CodeInvalidRequest, "not a web tab")
	}
	if h.web == nil {
		return ipc.NewError(ipc.CodeUnsupported, "web tabs not supported")
	}

	normalized := tabs.NormalizeWebURL(url)
	ctx, cancel := h.engineCtx()
	defer cancel()
	if err := h.web.Load(ctx, id, normalized); err != nil {
		return mapEngineErr(err, "load url")
	}
	tab.Kind = tabs.WebKind(normalized)
	return nil
}

func (h *Host) OpenURLNewTab(url string) (tabs.TabID, error) {
	return h.CreateTab(ipc.CreateOptions{URL: &url})
}

func (h *Host) ReloadWeb(id tabs.TabID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	tab, ok := h.ws.Get(id)
	if !ok {
		return ipc.NewError(ipc.CodeNotFound, "tab not found")
	}
	if !tab.Kind.IsWeb() {
		return ipc.NewError(ipc.CodeInvalidRequest, "not a web tab")
	}
	if h.web == nil {
		return ipc.NewError(ipc.CodeUnsupported, "web tabs not supported")
	}

	ctx, cancel := h.engineCtx()
	defer cancel()
	if err := h.web.Reload(ctx, id); err != nil {
		return mapEngineErr(err, "reload")
	}
	return nil
}

func (h *Host) OpenInspector(id tabs.TabID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	tab, ok := h.ws.Get(id)
	if !ok {
		return ipc.NewError(ipc.CodeNotFound, "tab not found")
	}
	if !tab.Kind.IsWeb() {
		return ipc.NewError(ipc.CodeInvalidRequest, "not a web tab")
	}
	if h.web == nil {
		return ipc.NewError(ipc.CodeUnsupported, "web tabs not supported")
	}

	ctx, cancel := h.engineCtx()
	defer cancel()
	if err := h.web.OpenInspector(ctx, id); err != nil {
		return mapEngineErr(err, "open inspector")
	}
	return nil
}

func (h *Host) TabPanelState() ipc.PanelState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.panel
}

func (h *Host) SetTabPanel(enabled *bool, width *int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if width != nil && *width <= 0 {
		return ipc.NewError(ipc.CodeInvalidRequest, "panel width must be positive")
	}
	if enabled != nil {
		h.panel.Enabled = *enabled
	}
	if width != nil {
		h.panel.Width = *width
	}
	return nil
}

func (h *Host) DispatchAction(id tabs.TabID, action ipc.Action) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	tab, ok := h.ws.Get(id)
	if !ok {
		return ipc.NewError(ipc.CodeNotFound, "tab not found")
	}
	if tab.Kind.IsWeb() {
		return ipc.NewError(ipc.CodeInvalidRequest, "actions target terminal tabs")
	}

	ctx, cancel := h.engineCtx()
	defer cancel()
	if err := h.terminal.DispatchAction(ctx, id, action); err != nil {
		return mapEngineErr(err, "dispatch action")
	}
	return nil
}

func (h *Host) SendInput(id tabs.TabID, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	tab, ok := h.ws.Get(id)
	if !ok {
		return ipc.NewError(ipc.CodeNotFound, "tab not found")
	}
	if tab.Kind.IsWeb() {
		return ipc.NewError(ipc.CodeInvalidRequest, "input targets terminal tabs")
	}

	ctx, cancel := h.engineCtx()
	defer cancel()
	if err := h.terminal.SendInput(ctx, id, text); err != nil {
		return mapEngineErr(err, "send input")
	}
	return nil
}

func (h *Host) RunCommandBar(id tabs.TabID, input string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.ws.Get(id); !ok {
		return ipc.NewError(ipc.CodeNotFound, "tab not found")
	}
	verb, arg := splitCommandBar(input)
	switch verb {
	case ":o", ":open":
		if arg == "" {
			return ipc.NewError(ipc.CodeInvalidRequest, "open command requires a url")
		}
		return h.commandOpenLocked(id, arg)
	case ":q", ":quit":
		_, err := h.closeTabLocked(id)
		return err
	case ":new":
		created, err := h.ws.CreateTab(tabs.TerminalKind(), tabs.CreateOptions{})
		if err != nil {
			return mapWorkspaceErr(err)
		}
		ctx, cancel := h.engineCtx()
		defer cancel()
		if err := h.terminal.CreateTab(ctx, created.ID, nil); err != nil {
			h.ws.AbortCreate(created.ID)
			return mapEngineErr(err, "create tab")
		}
		return nil
	default:
		return ipc.Errorf(ipc.CodeInvalidRequest, "unknown command %q", verb)
	}
}

// commandOpenLocked implements the command bar's open verb: load in place
// for web tabs, open a new web tab otherwise.
func (h *Host) commandOpenLocked(id tabs.TabID, url string) error {
	tab, ok := h.ws.Get(id)
	if !ok {
		return ipc.NewError(ipc.CodeNotFound, "tab not found")
	}
	if tab.Kind.IsWeb() {
		return h.openURLInTabLocked(id, url)
	}
	if h.web == nil {
		return ipc.NewError(ipc.CodeUnsupported, "web tabs not supported")
	}

	kind := tabs.WebKind(tabs.NormalizeWebURL(url))
	created, err := h.ws.CreateTab(kind, tabs.CreateOptions{})
	if err != nil {
		return mapWorkspaceErr(err)
	}
	ctx, cancel := h.engineCtx()
	defer cancel()
	if err := h.web.CreateTab(ctx, created.ID, kind.URL); err != nil {
		h.ws.AbortCreate(created.ID)
		return mapEngineErr(err, "open url")
	}
	return nil
}

func splitCommandBar(input string) (verb, arg string) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", ""
	}
	if i := strings.IndexByte(trimmed, ' '); i >= 0 {
		return trimmed[:i], strings.TrimSpace(trimmed[i+1:])
	}
	return trimmed, ""
}
