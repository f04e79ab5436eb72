package tabs

import "errors"

var (
	// ErrNotFound reports a selector or id that resolved to nothing live.
	ErrNotFound = errors.New("tab not found")
	// ErrNoActiveTab reports a relative selector with no active tab to
	// anchor it.
	ErrNoActiveTab = errors.New("no active tab")
	// ErrGroupNotFound reports an unknown group id.
	ErrGroupNotFound = errors.New("group not found")
)

// Selection is the resolved form of a client tab selector.
type Selection struct {
	Kind  SelectionKind
	Index int
	TabID TabID
}

type SelectionKind int

const (
	SelectActive SelectionKind = iota
	SelectNext
	SelectPrevious
	SelectLast
	SelectByIndex
	SelectByID
)

// CreateOptions carries the optional fields of a tab creation request.
type CreateOptions struct {
	Title       string
	ProgramName string
	// GroupHint places the tab in a specific group; nil means the active
	// tab's group (or a fresh group when none exists).
	GroupHint *int
}

// Workspace combines the registry, the group manager, the activation history
// and the closed-tab history behind one consistent operation set. It is the
// host's single source of truth for tab state and is not synchronized; the
// host serializes access.
type Workspace struct {
	registry *Registry
	groups   *Groups
	closed   *ClosedHistory

	active *TabID
	// activation is most-recent-first and may reference closed tabs; stale
	// entries are skipped during resolution and trimmed on close.
	activation []TabID
}

func NewWorkspace(closedCap int) *Workspace {
	return &Workspace{
		registry: NewRegistry(),
		groups:   NewGroups(),
		closed:   NewClosedHistory(closedCap),
	}
}

// CreateTab registers a new tab, places it in a group, and focuses it.
func (w *Workspace) CreateTab(kind Kind, opts CreateOptions) (*Tab, error) {
	var group *Group
	if opts.GroupHint != nil {
		g, ok := w.groups.Get(*opts.GroupHint)
		if !ok {
			return nil, ErrGroupNotFound
		}
		group = g
	} else if w.active != nil {
		if id, _, ok := w.groups.GroupFor(*w.active); ok {
			group, _ = w.groups.Get(id)
		}
	}
	if group == nil {
		if list := w.groups.List(); len(list) > 0 {
			group = list[0]
		} else {
			group = w.groups.Add()
		}
	}

	tab := w.registry.Create(kind)
	tab.Title = opts.Title
	tab.ProgramName = opts.ProgramName
	group.Tabs = append(group.Tabs, tab.ID)
	w.setActive(tab.ID)
	return tab, nil
}

// Get resolves a TabID, generation-checked.
func (w *Workspace) Get(id TabID) (*Tab, bool) {
	return w.registry.Get(id)
}

// CloseTab destroys the tab, records it for restore, and refocuses. The
// second return reports whether this was the last live tab.
func (w *Workspace) CloseTab(id TabID) (last bool, err error) {
	record, ok := w.registry.Close(id)
	if !ok {
		return false, ErrNotFound
	}
	w.closed.Push(record)
	w.groups.Remove(id)
	w.groups.Prune()
	w.dropActivation(id)

	if w.active != nil && *w.active == id {
		w.active = nil
		if next, ok := w.mostRecentLive(); ok {
			w.active = &next
		} else if ordered := w.OrderedTabs(); len(ordered) > 0 {
			w.active = &ordered[0]
		}
	}
	return w.registry.Len() == 0, nil
}

// AbortCreate unwinds a just-created tab whose collaborator setup failed,
// without leaving a record in the closed-tab history.
func (w *Workspace) AbortCreate(id TabID) {
	if _, err := w.CloseTab(id); err == nil {
		w.closed.Pop()
	}
}

// PeekClosed inspects the record RestoreClosedTab would materialize.
func (w *Workspace) PeekClosed() (ClosedTab, bool) {
	return w.closed.Peek()
}

// RestoreClosedTab materializes the most recently closed tab with a fresh
// identity in the active group.
func (w *Workspace) RestoreClosedTab() (*Tab, error) {
	record, ok := w.closed.Pop()
	if !ok {
		return nil, ErrNotFound
	}
	tab, err := w.CreateTab(record.Kind, CreateOptions{
		Title:       record.Title,
		ProgramName: record.ProgramName,
	})
	if err != nil {
		return nil, err
	}
	tab.CustomTitle = record.CustomTitle
	return tab, nil
}

// SelectTab focuses the tab and marks its output seen.
func (w *Workspace) SelectTab(id TabID) error {
	tab, ok := w.registry.Get(id)
	if !ok {
		return ErrNotFound
	}
	w.setActive(id)
	tab.Activity.MarkSeen()
	return nil
}

// Resolve maps a selection to a concrete live TabID without changing focus.
func (w *Workspace) Resolve(sel Selection) (TabID, error) {
	switch sel.Kind {
	case SelectActive:
		if id, ok := w.ActiveID(); ok {
			return id, nil
		}
		return TabID{}, ErrNoActiveTab
	case SelectNext, SelectPrevious:
		return w.resolveCyclic(sel.Kind)
	case SelectLast:
		if id, ok := w.lastActivated(); ok {
			return id, nil
		}
		return TabID{}, ErrNotFound
	case SelectByIndex:
		group := w.activeGroupTabs()
		if sel.Index < 0 || sel.Index >= len(group) {
			return TabID{}, ErrNotFound
		}
		return group[sel.Index], nil
	case SelectByID:
		if _, ok := w.registry.Get(sel.TabID); !ok {
			return TabID{}, ErrNotFound
		}
		return sel.TabID, nil
	}
	return TabID{}, ErrNotFound
}

// resolveCyclic walks the active group's sequence relative to the active tab,
// wrapping at both ends.
func (w *Workspace) resolveCyclic(kind SelectionKind) (TabID, error) {
	active, ok := w.ActiveID()
	if !ok {
		return TabID{}, ErrNoActiveTab
	}
	group := w.activeGroupTabs()
	pos := -1
	for i, id := range group {
		if id == active {
			pos = i
			break
		}
	}
	if pos < 0 {
		return TabID{}, ErrNotFound
	}
	if kind == SelectNext {
		return group[(pos+1)%len(group)], nil
	}
	return group[(pos-1+len(group))%len(group)], nil
}

// lastActivated returns the most recently activated live tab other than the
// active one, falling back to the active tab itself.
func (w *Workspace) lastActivated() (TabID, bool) {
	active, hasActive := w.ActiveID()
	for _, id := range w.activation {
		if hasActive && id == active {
			continue
		}
		if _, ok := w.registry.Get(id); ok {
			return id, true
		}
	}
	if hasActive {
		return active, true
	}
	return TabID{}, false
}

// MoveTab transfers the tab; nil group creates a fresh group, nil index
// appends, out-of-range indices clamp.
func (w *Workspace) MoveTab(id TabID, targetGroup *int, targetIndex *int) error {
	if _, ok := w.registry.Get(id); !ok {
		return ErrNotFound
	}
	if targetGroup != nil {
		if _, ok := w.groups.Get(*targetGroup); !ok {
			return ErrGroupNotFound
		}
	}
	if !w.groups.Move(id, targetGroup, targetIndex) {
		return ErrNotFound
	}
	return nil
}

func (w *Workspace) SetCustomTitle(id TabID, title *string) error {
	tab, ok := w.registry.Get(id)
	if !ok {
		return ErrNotFound
	}
	tab.CustomTitle = title
	return nil
}

func (w *Workspace) SetTitle(id TabID, title string) error {
	tab, ok := w.registry.Get(id)
	if !ok {
		return ErrNotFound
	}
	tab.Title = title
	return nil
}

func (w *Workspace) SetProgramName(id TabID, name string) error {
	tab, ok := w.registry.Get(id)
	if !ok {
		return ErrNotFound
	}
	tab.ProgramName = name
	return nil
}

func (w *Workspace) SetGroupName(groupID int, name *string) error {
	if !w.groups.SetName(groupID, name) {
		return ErrGroupNotFound
	}
	return nil
}

// ActiveID returns the focused tab, if one is live.
func (w *Workspace) ActiveID() (TabID, bool) {
	if w.active == nil {
		return TabID{}, false
	}
	if _, ok := w.registry.Get(*w.active); !ok {
		return TabID{}, false
	}
	return *w.active, true
}

// Groups returns the live group list in display order.
func (w *Workspace) Groups() []*Group {
	return w.groups.List()
}

// GroupFor locates a tab's group and position.
func (w *Workspace) GroupFor(id TabID) (groupID, index int, ok bool) {
	return w.groups.GroupFor(id)
}

// OrderedTabs flattens all groups into display order.
func (w *Workspace) OrderedTabs() []TabID {
	var out []TabID
	for _, group := range w.groups.List() {
		out = append(out, group.Tabs...)
	}
	return out
}

// Len reports the number of live tabs.
func (w *Workspace) Len() int {
	return w.registry.Len()
}

func (w *Workspace) activeGroupTabs() []TabID {
	active, ok := w.ActiveID()
	if !ok {
		return nil
	}
	groupID, _, ok := w.groups.GroupFor(active)
	if !ok {
		return nil
	}
	group, _ := w.groups.Get(groupID)
	return group.Tabs
}

func (w *Workspace) setActive(id TabID) {
	w.active = &id
	w.dropActivation(id)
	w.activation = append([]TabID{id}, w.activation...)
	const maxActivation = 64
	if len(w.activation) > maxActivation {
		w.activation = w.activation[:maxActivation]
	}
}

func (w *Workspace) dropActivation(id TabID) {
	kept := w.activation[:0]
	for _, entry := range w.activation {
		if entry != id {
			kept = append(kept, entry)
		}
	}
	w.activation = kept
}

// mostRecentLive returns the most recently activated tab that is still live.
func (w *Workspace) mostRecentLive() (TabID, bool) {
	for _, id := range w.activation {
		if _, ok := w.registry.Get(id); ok {
			return id, true
		}
	}
	return TabID{}, false
}
