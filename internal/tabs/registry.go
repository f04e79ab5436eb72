package tabs

// Registry owns the slot array that backs tab identity. Closed slots are
// reused lowest-index-first; every reuse bumps the slot's generation so that
// stale TabIDs can never resolve to the replacement tab.
//
// The registry is not synchronized; the host serializes all access.
type Registry struct {
	slots []slot
	free  []int
}

type slot struct {
	generation uint32
	tab        *Tab
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Create allocates a slot for a new tab of the given kind and stamps the
// slot's current generation into the returned tab's id.
func (r *Registry) Create(kind Kind) *Tab {
	var index int
	if len(r.free) > 0 {
		pos := 0
		for i, candidate := range r.free {
			if candidate < r.free[pos] {
				pos = i
			}
		}
		index = r.free[pos]
		r.free = append(r.free[:pos], r.free[pos+1:]...)
	} else {
		index = len(r.slots)
		r.slots = append(r.slots, slot{})
	}

	tab := &Tab{
		ID:   TabID{Index: uint32(index), Generation: r.slots[index].generation},
		Kind: kind,
	}
	r.slots[index].tab = tab
	return tab
}

// Get resolves an id to its live tab. Ids whose generation does not match the
// slot's current generation resolve to nothing.
func (r *Registry) Get(id TabID) (*Tab, bool) {
	if int(id.Index) >= len(r.slots) {
		return nil, false
	}
	s := &r.slots[id.Index]
	if s.generation != id.Generation || s.tab == nil {
		return nil, false
	}
	return s.tab, true
}

// Close destroys the tab, bumps the slot generation, and returns a record
// suitable for the closed-tab history. Closing a stale or unknown id is a
// no-op reported through ok=false.
func (r *Registry) Close(id TabID) (ClosedTab, bool) {
	tab, ok := r.Get(id)
	if !ok {
		return ClosedTab{}, false
	}

	record := ClosedTab{
		Kind:        tab.Kind,
		Title:       tab.Title,
		CustomTitle: tab.CustomTitle,
		ProgramName: tab.ProgramName,
	}

	s := &r.slots[id.Index]
	s.tab = nil
	s.generation++
	r.free = append(r.free, int(id.Index))
	return record, true
}

// Len reports the number of live tabs.
func (r *Registry) Len() int {
	n := 0
	for i := range r.slots {
		if r.slots[i].tab != nil {
			n++
		}
	}
	return n
}
