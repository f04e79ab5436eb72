package tabs

// Group is an ordered, independently nameable sequence of tab references.
// Group ids are monotonically increasing and never reused, unlike tab slots.
type Group struct {
	ID   int
	Name *string
	Tabs []TabID
}

// Groups maintains the ordered list of groups and the invariant that every
// live tab appears in exactly one group exactly once.
type Groups struct {
	list   []*Group
	nextID int
}

func NewGroups() *Groups {
	return &Groups{nextID: 1}
}

// Add appends a fresh empty group.
func (g *Groups) Add() *Group {
	group := &Group{ID: g.nextID}
	g.nextID++
	g.list = append(g.list, group)
	return group
}

func (g *Groups) Get(id int) (*Group, bool) {
	for _, group := range g.list {
		if group.ID == id {
			return group, true
		}
	}
	return nil, false
}

// List returns the groups in display order.
func (g *Groups) List() []*Group {
	return g.list
}

// Insert places the tab into the group at index, clamping out-of-range
// indices to the end. The caller must have removed the tab from its previous
// group first; Move does both as one step.
func (g *Groups) Insert(groupID int, id TabID, index int) bool {
	group, ok := g.Get(groupID)
	if !ok {
		return false
	}
	if index < 0 || index > len(group.Tabs) {
		index = len(group.Tabs)
	}
	group.Tabs = append(group.Tabs, TabID{})
	copy(group.Tabs[index+1:], group.Tabs[index:])
	group.Tabs[index] = id
	return true
}

// Remove drops the tab from whichever group holds it.
func (g *Groups) Remove(id TabID) {
	for _, group := range g.list {
		for i, member := range group.Tabs {
			if member == id {
				group.Tabs = append(group.Tabs[:i], group.Tabs[i+1:]...)
				return
			}
		}
	}
}

// Move atomically transfers a tab to the target group at the target index.
// A nil targetGroup creates a fresh group; a nil targetIndex appends. The tab
// is never observable in zero or two groups: removal and insertion happen
// before control returns.
func (g *Groups) Move(id TabID, targetGroup *int, targetIndex *int) bool {
	originID, originIndex, ok := g.GroupFor(id)
	if !ok {
		return false
	}

	var dest *Group
	if targetGroup != nil {
		dest, ok = g.Get(*targetGroup)
		if !ok {
			return false
		}
	} else {
		dest = g.Add()
	}

	index := len(dest.Tabs)
	if targetIndex != nil {
		index = *targetIndex
	}
	// Same-group moves shift the insertion point left once the tab has been
	// pulled out ahead of it.
	if dest.ID == originID && index > originIndex {
		index--
	}

	g.Remove(id)
	if index < 0 || index > len(dest.Tabs) {
		index = len(dest.Tabs)
	}
	dest.Tabs = append(dest.Tabs, TabID{})
	copy(dest.Tabs[index+1:], dest.Tabs[index:])
	dest.Tabs[index] = id

	g.Prune()
	return true
}

// GroupFor locates the tab's group id and position within it.
func (g *Groups) GroupFor(id TabID) (groupID, index int, ok bool) {
	for _, group := range g.list {
		for i, member := range group.Tabs {
			if member == id {
				return group.ID, i, true
			}
		}
	}
	return 0, 0, false
}

func (g *Groups) SetName(groupID int, name *string) bool {
	group, ok := g.Get(groupID)
	if !ok {
		return false
	}
	group.Name = name
	return true
}

// Prune drops empty groups. Ids of surviving groups are untouched.
func (g *Groups) Prune() {
	kept := g.list[:0]
	for _, group := range g.list {
		if len(group.Tabs) > 0 {
			kept = append(kept, group)
		}
	}
	g.list = kept
}
