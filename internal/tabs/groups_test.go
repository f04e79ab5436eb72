package tabs

import "testing"

func idAt(index uint32) TabID {
	return TabID{Index: index}
}

func fillGroup(g *Groups, ids ...TabID) *Group {
	group := g.Add()
	group.Tabs = append(group.Tabs, ids...)
	return group
}

func TestGroupsIDsAreStable(t *testing.T) {
	g := NewGroups()

	first := fillGroup(g, idAt(0))
	second := fillGroup(g, idAt(1))
	if first.ID == second.ID {
		t.Fatalf("Add() reused group id %d", first.ID)
	}

	// Emptying and pruning the first group must not recycle its id.
	g.Remove(idAt(0))
	g.Prune()
	third := fillGroup(g, idAt(2))
	if third.ID == first.ID {
		t.Fatalf("Add() reused pruned group id %d", first.ID)
	}
	if third.ID <= second.ID {
		t.Fatalf("Add() id %d not monotonic after %d", third.ID, second.ID)
	}
}

func TestGroupsMoveWithinGroup(t *testing.T) {
	g := NewGroups()
	group := fillGroup(g, idAt(0), idAt(1), idAt(2), idAt(3))

	// Move slot 0 to index 2: the target shifts left once the tab is pulled
	// out ahead of it, so 0 ends up after 2.
	target := 2
	if !g.Move(idAt(0), &group.ID, &target) {
		t.Fatal("Move() within group failed")
	}
	want := []TabID{idAt(1), idAt(2), idAt(0), idAt(3)}
	for i, id := range want {
		if group.Tabs[i] != id {
			t.Fatalf("group.Tabs = %v; want %v", group.Tabs, want)
		}
	}
}

func TestGroupsMoveAcrossGroups(t *testing.T) {
	g := NewGroups()
	origin := fillGroup(g, idAt(0), idAt(1))
	dest := fillGroup(g, idAt(2))

	index := 0
	if !g.Move(idAt(1), &dest.ID, &index) {
		t.Fatal("Move() across groups failed")
	}

	if groupID, pos, ok := g.GroupFor(idAt(1)); !ok || groupID != dest.ID || pos != 0 {
		t.Fatalf("GroupFor() = %d, %d, %v; want %d, 0, true", groupID, pos, ok, dest.ID)
	}
	if len(origin.Tabs) != 1 || origin.Tabs[0] != idAt(0) {
		t.Fatalf("origin.Tabs = %v; want only %v", origin.Tabs, idAt(0))
	}

	// Exactly-once membership across all groups.
	seen := 0
	for _, group := range g.List() {
		for _, member := range group.Tabs {
			if member == idAt(1) {
				seen++
			}
		}
	}
	if seen != 1 {
		t.Fatalf("tab appears in %d groups; want 1", seen)
	}
}

func TestGroupsMoveClampsIndex(t *testing.T) {
	g := NewGroups()
	origin := fillGroup(g, idAt(0))
	dest := fillGroup(g, idAt(1), idAt(2))

	index := 99
	if !g.Move(idAt(0), &dest.ID, &index) {
		t.Fatal("Move() with out-of-range index failed")
	}
	if dest.Tabs[len(dest.Tabs)-1] != idAt(0) {
		t.Fatalf("dest.Tabs = %v; want %v appended", dest.Tabs, idAt(0))
	}
	_ = origin
}

func TestGroupsMoveToFreshGroupPrunesOrigin(t *testing.T) {
	g := NewGroups()
	origin := fillGroup(g, idAt(0))

	if !g.Move(idAt(0), nil, nil) {
		t.Fatal("Move() to fresh group failed")
	}

	list := g.List()
	if len(list) != 1 {
		t.Fatalf("len(List()) = %d; want 1 after pruning the emptied origin", len(list))
	}
	if list[0].ID == origin.ID {
		t.Fatal("Move() kept the emptied origin group")
	}
	if groupID, _, ok := g.GroupFor(idAt(0)); !ok || groupID != list[0].ID {
		t.Fatalf("GroupFor() = %d, %v; want the fresh group %d", groupID, ok, list[0].ID)
	}
}

func TestGroupsMoveUnknownTargets(t *testing.T) {
	g := NewGroups()
	fillGroup(g, idAt(0))

	unknown := 42
	if g.Move(idAt(0), &unknown, nil) {
		t.Fatal("Move() to an unknown group succeeded")
	}
	if g.Move(idAt(9), nil, nil) {
		t.Fatal("Move() of an unknown tab succeeded")
	}
}

func TestGroupsInsertClamps(t *testing.T) {
	g := NewGroups()
	group := fillGroup(g, idAt(0))

	if !g.Insert(group.ID, idAt(1), -5) {
		t.Fatal("Insert() with negative index failed")
	}
	if group.Tabs[len(group.Tabs)-1] != idAt(1) {
		t.Fatalf("group.Tabs = %v; want %v clamped to the end", group.Tabs, idAt(1))
	}
	if !g.Insert(group.ID, idAt(2), 0) {
		t.Fatal("Insert() at the front failed")
	}
	if group.Tabs[0] != idAt(2) {
		t.Fatalf("group.Tabs = %v; want %v first", group.Tabs, idAt(2))
	}
}
