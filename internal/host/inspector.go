package host

import (
	"context"

	"github.com/dgnsrekt/tabhost/internal/inspector"
	"github.com/dgnsrekt/tabhost/internal/ipc"
	"github.com/dgnsrekt/tabhost/internal/tabs"
)

func (h *Host) ListInspectorTargets() ([]ipc.InspectorTarget, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.mux == nil {
		return nil, ipc.NewError(ipc.CodeUnsupported, "inspector not supported")
	}

	ctx, cancel := h.engineCtx()
	defer cancel()
	targets, err := h.mux.ListTargets(ctx)
	if err != nil {
		return nil, mapInspectorErr(err)
	}

	infos := h.webTabInfosLocked()
	out := make([]ipc.InspectorTarget, 0, len(targets))
	for _, target := range targets {
		wire := ipc.InspectorTarget{
			TargetID:          target.ID,
			TargetType:        optString(target.Type),
			URL:               optString(target.URL),
			Title:             optString(target.Title),
			OverrideName:      optString(target.OverrideName),
			HostAppIdentifier: optString(target.HostApp),
		}
		if tabID, ok := inspector.MatchTabForTarget(target, infos, h.mux.Sender()); ok {
			wire.TabID = &tabID
		}
		out = append(out, wire)
	}
	return out, nil
}

func (h *Host) AttachInspector(id *tabs.TabID, targetID *uint64) (ipc.InspectorSession, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.mux == nil {
		return ipc.InspectorSession{}, ipc.NewError(ipc.CodeUnsupported, "inspector not supported")
	}

	ctx, cancel := h.engineCtx()
	defer cancel()

	var tabID tabs.TabID
	var target uint64
	switch {
	case id != nil:
		tab, ok := h.ws.Get(*id)
		if !ok {
			return ipc.InspectorSession{}, ipc.NewError(ipc.CodeNotFound, "tab not found")
		}
		// Terminal tabs have no debuggable page behind them, so the failure
		// is a missing target rather than a malformed request.
		if !tab.Kind.IsWeb() {
			return ipc.InspectorSession{}, ipc.NewError(ipc.CodeNotFound, "no inspector target for tab")
		}
		tabID = *id
		if targetID != nil {
			target = *targetID
			break
		}
		resolved, err := h.targetForTabLocked(ctx, tab)
		if err != nil {
			return ipc.InspectorSession{}, err
		}
		target = resolved

	default:
		// Target id alone: validate it against the live listing and bind it
		// back to a tab when exactly one matches.
		target = *targetID
		targets, err := h.mux.ListTargets(ctx)
		if err != nil {
			return ipc.InspectorSession{}, mapInspectorErr(err)
		}
		found := false
		for _, candidate := range targets {
			if candidate.ID != target {
				continue
			}
			found = true
			if matched, ok := inspector.MatchTabForTarget(candidate, h.webTabInfosLocked(), h.mux.Sender()); ok {
				tabID = matched
			}
			break
		}
		if !found {
			return ipc.InspectorSession{}, ipc.NewError(ipc.CodeNotFound, "inspector target not found")
		}
	}

	session, err := h.mux.Attach(ctx, tabID, target)
	if err != nil {
		return ipc.InspectorSession{}, mapInspectorErr(err)
	}
	return ipc.InspectorSession{
		SessionID: session.ID,
		TargetID:  session.TargetID,
		TabID:     session.TabID,
	}, nil
}

func (h *Host) DetachInspector(sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.mux == nil {
		return ipc.NewError(ipc.CodeUnsupported, "inspector not supported")
	}

	ctx, cancel := h.engineCtx()
	defer cancel()
	if err := h.mux.Detach(ctx, sessionID); err != nil {
		return mapInspectorErr(err)
	}
	return nil
}

func (h *Host) SendInspectorMessage(sessionID, message string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.mux == nil {
		return ipc.NewError(ipc.CodeUnsupported, "inspector not supported")
	}

	ctx, cancel := h.engineCtx()
	defer cancel()
	if err := h.mux.Send(ctx, sessionID, message); err != nil {
		return mapInspectorErr(err)
	}
	return nil
}

func (h *Host) PollInspectorMessages(sessionID string, max *int) ([]ipc.InspectorMessage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.mux == nil {
		return nil, ipc.NewError(ipc.CodeUnsupported, "inspector not supported")
	}

	limit := 0
	if max != nil {
		limit = *max
	}
	messages, err := h.mux.Poll(sessionID, limit)
	if err != nil {
		return nil, mapInspectorErr(err)
	}
	out := make([]ipc.InspectorMessage, 0, len(messages))
	for _, message := range messages {
		out = append(out, ipc.InspectorMessage{SessionID: message.SessionID, Payload: message.Payload})
	}
	return out, nil
}

// targetForTabLocked resolves a web tab's debugging target: the engine's
// direct mapping when available, otherwise heuristic matching against the
// live listing.
func (h *Host) targetForTabLocked(ctx context.Context, tab *tabs.Tab) (uint64, error) {
	if h.targets != nil {
		if target, ok := h.targets.TargetFor(tab.ID); ok {
			return target, nil
		}
	}
	targets, err := h.mux.ListTargets(ctx)
	if err != nil {
		return 0, mapInspectorErr(err)
	}
	target, err := inspector.MatchTargetForTab(targets, tabInfo(tab), h.mux.Sender())
	if err != nil {
		return 0, mapInspectorErr(err)
	}
	return target, nil
}

// webTabInfosLocked snapshots the matcher's view of every live web tab.
func (h *Host) webTabInfosLocked() []inspector.TabInfo {
	var infos []inspector.TabInfo
	for _, id := range h.ws.OrderedTabs() {
		tab, ok := h.ws.Get(id)
		if !ok || !tab.Kind.IsWeb() {
			continue
		}
		infos = append(infos, tabInfo(tab))
	}
	return infos
}

func tabInfo(tab *tabs.Tab) inspector.TabInfo {
	info := inspector.TabInfo{TabID: tab.ID, URL: tab.Kind.URL, Title: tab.Title}
	if tab.CustomTitle != nil {
		info.OverrideName = *tab.CustomTitle
	}
	return info
}

func optString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
