package tabs

import "testing"

func mustCreate(t *testing.T, w *Workspace, kind Kind, opts CreateOptions) *Tab {
	t.Helper()
	tab, err := w.CreateTab(kind, opts)
	if err != nil {
		t.Fatalf("CreateTab() = %v; want nil", err)
	}
	return tab
}

func TestWorkspaceCreateFocusesAndGroups(t *testing.T) {
	w := NewWorkspace(0)

	first := mustCreate(t, w, TerminalKind(), CreateOptions{Title: "shell"})
	if active, ok := w.ActiveID(); !ok || active != first.ID {
		t.Fatalf("ActiveID() = %v, %v; want %v, true", active, ok, first.ID)
	}

	second := mustCreate(t, w, WebKind("https://example.com"), CreateOptions{})
	firstGroup, _, _ := w.GroupFor(first.ID)
	secondGroup, _, ok := w.GroupFor(second.ID)
	if !ok || firstGroup != secondGroup {
		t.Fatalf("GroupFor() = %d vs %d; want the active tab's group", secondGroup, firstGroup)
	}

	unknown := 42
	if _, err := w.CreateTab(TerminalKind(), CreateOptions{GroupHint: &unknown}); err != ErrGroupNotFound {
		t.Fatalf("CreateTab(unknown group) = %v; want ErrGroupNotFound", err)
	}
}

func TestWorkspaceCloseRefocusesMostRecent(t *testing.T) {
	w := NewWorkspace(0)

	a := mustCreate(t, w, TerminalKind(), CreateOptions{})
	b := mustCreate(t, w, TerminalKind(), CreateOptions{})
	c := mustCreate(t, w, TerminalKind(), CreateOptions{})

	// Activation order is now c, b, a. Closing c must refocus b, not a.
	if last, err := w.CloseTab(c.ID); err != nil || last {
		t.Fatalf("CloseTab() = %v, %v; want false, nil", last, err)
	}
	if active, ok := w.ActiveID(); !ok || active != b.ID {
		t.Fatalf("ActiveID() = %v, %v; want %v, true", active, ok, b.ID)
	}

	if _, err := w.CloseTab(b.ID); err != nil {
		t.Fatalf("CloseTab() = %v; want nil", err)
	}
	last, err := w.CloseTab(a.ID)
	if err != nil {
		t.Fatalf("CloseTab() = %v; want nil", err)
	}
	if !last {
		t.Fatal("CloseTab() last = false for the final tab; want true")
	}
	if _, ok := w.ActiveID(); ok {
		t.Fatal("ActiveID() reported a live tab after the last close")
	}

	if _, err := w.CloseTab(a.ID); err != ErrNotFound {
		t.Fatalf("CloseTab(stale) = %v; want ErrNotFound", err)
	}
}

func TestWorkspaceRestoreCreatesFreshIdentity(t *testing.T) {
	w := NewWorkspace(0)

	tab := mustCreate(t, w, WebKind("https://example.com"), CreateOptions{Title: "Example"})
	custom := "docs"
	if err := w.SetCustomTitle(tab.ID, &custom); err != nil {
		t.Fatalf("SetCustomTitle() = %v; want nil", err)
	}
	closedID := tab.ID
	if _, err := w.CloseTab(closedID); err != nil {
		t.Fatalf("CloseTab() = %v; want nil", err)
	}

	restored, err := w.RestoreClosedTab()
	if err != nil {
		t.Fatalf("RestoreClosedTab() = %v; want nil", err)
	}
	if restored.ID == closedID {
		t.Fatalf("RestoreClosedTab() reused identity %v", closedID)
	}
	if !restored.Kind.IsWeb() || restored.Kind.URL != "https://example.com" {
		t.Fatalf("restored.Kind = %+v; want the closed web kind", restored.Kind)
	}
	if restored.Title != "Example" {
		t.Fatalf("restored.Title = %q; want %q", restored.Title, "Example")
	}
	if restored.CustomTitle == nil || *restored.CustomTitle != "docs" {
		t.Fatalf("restored.CustomTitle = %v; want %q", restored.CustomTitle, "docs")
	}

	if _, err := w.RestoreClosedTab(); err != ErrNotFound {
		t.Fatalf("RestoreClosedTab(empty) = %v; want ErrNotFound", err)
	}
}

func TestWorkspaceClosedHistoryIsBounded(t *testing.T) {
	w := NewWorkspace(2)

	for i := 0; i < 3; i++ {
		tab := mustCreate(t, w, TerminalKind(), CreateOptions{Title: string(rune('a' + i))})
		if _, err := w.CloseTab(tab.ID); err != nil {
			t.Fatalf("CloseTab() = %v; want nil", err)
		}
	}

	// Oldest record "a" was evicted; restores come back newest-first.
	for _, want := range []string{"c", "b"} {
		restored, err := w.RestoreClosedTab()
		if err != nil {
			t.Fatalf("RestoreClosedTab() = %v; want nil", err)
		}
		if restored.Title != want {
			t.Fatalf("restored.Title = %q; want %q", restored.Title, want)
		}
		if _, err := w.CloseTab(restored.ID); err != nil {
			t.Fatalf("CloseTab() = %v; want nil", err)
		}
	}
}

func TestWorkspaceResolveCyclic(t *testing.T) {
	w := NewWorkspace(0)

	a := mustCreate(t, w, TerminalKind(), CreateOptions{})
	b := mustCreate(t, w, TerminalKind(), CreateOptions{})
	c := mustCreate(t, w, TerminalKind(), CreateOptions{})

	if err := w.SelectTab(c.ID); err != nil {
		t.Fatalf("SelectTab() = %v; want nil", err)
	}
	if id, err := w.Resolve(Selection{Kind: SelectNext}); err != nil || id != a.ID {
		t.Fatalf("Resolve(next) = %v, %v; want wrap to %v", id, err, a.ID)
	}
	if err := w.SelectTab(a.ID); err != nil {
		t.Fatalf("SelectTab() = %v; want nil", err)
	}
	if id, err := w.Resolve(Selection{Kind: SelectPrevious}); err != nil || id != c.ID {
		t.Fatalf("Resolve(previous) = %v, %v; want wrap to %v", id, err, c.ID)
	}
	_ = b
}

func TestWorkspaceResolveCyclicScopedToActiveGroup(t *testing.T) {
	w := NewWorkspace(0)

	a := mustCreate(t, w, TerminalKind(), CreateOptions{})
	b := mustCreate(t, w, TerminalKind(), CreateOptions{})
	outsider := mustCreate(t, w, TerminalKind(), CreateOptions{})
	if err := w.MoveTab(outsider.ID, nil, nil); err != nil {
		t.Fatalf("MoveTab() = %v; want nil", err)
	}

	if err := w.SelectTab(b.ID); err != nil {
		t.Fatalf("SelectTab() = %v; want nil", err)
	}
	// next from b wraps within {a, b}, never reaching the other group.
	if id, err := w.Resolve(Selection{Kind: SelectNext}); err != nil || id != a.ID {
		t.Fatalf("Resolve(next) = %v, %v; want %v", id, err, a.ID)
	}
	if id, err := w.Resolve(Selection{Kind: SelectPrevious}); err != nil || id != a.ID {
		t.Fatalf("Resolve(previous) = %v, %v; want %v", id, err, a.ID)
	}
}

func TestWorkspaceResolveLastTracksActivation(t *testing.T) {
	w := NewWorkspace(0)

	a := mustCreate(t, w, TerminalKind(), CreateOptions{})
	b := mustCreate(t, w, TerminalKind(), CreateOptions{})
	c := mustCreate(t, w, TerminalKind(), CreateOptions{})

	if err := w.SelectTab(a.ID); err != nil {
		t.Fatalf("SelectTab() = %v; want nil", err)
	}
	// Activation is now a, c, b; last should be c.
	if id, err := w.Resolve(Selection{Kind: SelectLast}); err != nil || id != c.ID {
		t.Fatalf("Resolve(last) = %v, %v; want %v", id, err, c.ID)
	}

	// Closing c makes b the most recent prior activation.
	if _, err := w.CloseTab(c.ID); err != nil {
		t.Fatalf("CloseTab() = %v; want nil", err)
	}
	if err := w.SelectTab(a.ID); err != nil {
		t.Fatalf("SelectTab() = %v; want nil", err)
	}
	if id, err := w.Resolve(Selection{Kind: SelectLast}); err != nil || id != b.ID {
		t.Fatalf("Resolve(last) = %v, %v; want %v", id, err, b.ID)
	}

	// With no prior activation the active tab is its own "last".
	if _, err := w.CloseTab(b.ID); err != nil {
		t.Fatalf("CloseTab() = %v; want nil", err)
	}
	if id, err := w.Resolve(Selection{Kind: SelectLast}); err != nil || id != a.ID {
		t.Fatalf("Resolve(last) = %v, %v; want %v", id, err, a.ID)
	}
}

func TestWorkspaceResolveByIndexAndByID(t *testing.T) {
	w := NewWorkspace(0)

	a := mustCreate(t, w, TerminalKind(), CreateOptions{})
	b := mustCreate(t, w, TerminalKind(), CreateOptions{})

	if id, err := w.Resolve(Selection{Kind: SelectByIndex, Index: 0}); err != nil || id != a.ID {
		t.Fatalf("Resolve(by_index 0) = %v, %v; want %v", id, err, a.ID)
	}
	if _, err := w.Resolve(Selection{Kind: SelectByIndex, Index: 2}); err != ErrNotFound {
		t.Fatalf("Resolve(by_index 2) = %v; want ErrNotFound", err)
	}
	if _, err := w.Resolve(Selection{Kind: SelectByIndex, Index: -1}); err != ErrNotFound {
		t.Fatalf("Resolve(by_index -1) = %v; want ErrNotFound", err)
	}

	if id, err := w.Resolve(Selection{Kind: SelectByID, TabID: b.ID}); err != nil || id != b.ID {
		t.Fatalf("Resolve(by_id) = %v, %v; want %v", id, err, b.ID)
	}
	stale := b.ID
	if _, err := w.CloseTab(b.ID); err != nil {
		t.Fatalf("CloseTab() = %v; want nil", err)
	}
	if _, err := w.Resolve(Selection{Kind: SelectByID, TabID: stale}); err != ErrNotFound {
		t.Fatalf("Resolve(stale by_id) = %v; want ErrNotFound", err)
	}
}

func TestWorkspaceResolveWithoutActiveTab(t *testing.T) {
	w := NewWorkspace(0)

	if _, err := w.Resolve(Selection{Kind: SelectActive}); err != ErrNoActiveTab {
		t.Fatalf("Resolve(active) = %v; want ErrNoActiveTab", err)
	}
	if _, err := w.Resolve(Selection{Kind: SelectNext}); err != ErrNoActiveTab {
		t.Fatalf("Resolve(next) = %v; want ErrNoActiveTab", err)
	}
	if _, err := w.Resolve(Selection{Kind: SelectLast}); err != ErrNotFound {
		t.Fatalf("Resolve(last) = %v; want ErrNotFound", err)
	}
}

func TestWorkspaceSelectMarksOutputSeen(t *testing.T) {
	w := NewWorkspace(0)

	a := mustCreate(t, w, TerminalKind(), CreateOptions{})
	b := mustCreate(t, w, TerminalKind(), CreateOptions{})

	a.Activity.NoteOutput(a.Activity.LastOutput, false)
	if !a.Activity.HasUnseenOutput {
		t.Fatal("NoteOutput(seen=false) did not mark output unseen")
	}
	if err := w.SelectTab(a.ID); err != nil {
		t.Fatalf("SelectTab() = %v; want nil", err)
	}
	if a.Activity.HasUnseenOutput {
		t.Fatal("SelectTab() left output unseen")
	}
	_ = b
}

func TestWorkspacePanelTitlePrecedence(t *testing.T) {
	term := &Tab{Kind: TerminalKind(), Title: "tty", ProgramName: "vim"}
	if got := term.PanelTitle(); got != "vim" {
		t.Fatalf("PanelTitle() = %q; want %q", got, "vim")
	}
	term.ProgramName = ""
	if got := term.PanelTitle(); got != "tty" {
		t.Fatalf("PanelTitle() = %q; want %q", got, "tty")
	}

	web := &Tab{Kind: WebKind("https://example.com"), Title: "Example"}
	if got := web.PanelTitle(); got != "Example" {
		t.Fatalf("PanelTitle() = %q; want %q", got, "Example")
	}

	custom := "pinned"
	web.CustomTitle = &custom
	if got := web.PanelTitle(); got != "pinned" {
		t.Fatalf("PanelTitle() = %q; want %q", got, "pinned")
	}
}
