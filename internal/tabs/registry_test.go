package tabs

import "testing"

func TestRegistryGenerationInvalidatesStaleIDs(t *testing.T) {
	r := NewRegistry()

	first := r.Create(TerminalKind())
	staleID := first.ID

	if _, ok := r.Get(staleID); !ok {
		t.Fatalf("Get(%v) failed for a live tab", staleID)
	}

	if _, ok := r.Close(staleID); !ok {
		t.Fatalf("Close(%v) failed for a live tab", staleID)
	}
	if _, ok := r.Get(staleID); ok {
		t.Fatalf("Get(%v) resolved after close", staleID)
	}

	reused := r.Create(WebKind("https://example.com"))
	if reused.ID.Index != staleID.Index {
		t.Fatalf("Create() reused index %d; want %d", reused.ID.Index, staleID.Index)
	}
	if reused.ID.Generation == staleID.Generation {
		t.Fatalf("Create() reused generation %d for slot %d", reused.ID.Generation, reused.ID.Index)
	}

	// The stale id must never resolve to the replacement tab.
	if _, ok := r.Get(staleID); ok {
		t.Fatalf("stale id %v resolved to reused slot", staleID)
	}
	if tab, ok := r.Get(reused.ID); !ok || !tab.Kind.IsWeb() {
		t.Fatalf("Get(%v) = %v, %v; want the reused web tab", reused.ID, tab, ok)
	}
}

func TestRegistryReusesLowestFreeSlot(t *testing.T) {
	r := NewRegistry()

	ids := make([]TabID, 4)
	for i := range ids {
		ids[i] = r.Create(TerminalKind()).ID
	}

	// Free slots 2 and 0; the next create must pick slot 0.
	if _, ok := r.Close(ids[2]); !ok {
		t.Fatalf("Close(%v) failed", ids[2])
	}
	if _, ok := r.Close(ids[0]); !ok {
		t.Fatalf("Close(%v) failed", ids[0])
	}

	next := r.Create(TerminalKind())
	if next.ID.Index != 0 {
		t.Fatalf("Create() picked slot %d; want 0", next.ID.Index)
	}
	after := r.Create(TerminalKind())
	if after.ID.Index != 2 {
		t.Fatalf("Create() picked slot %d; want 2", after.ID.Index)
	}
}

func TestRegistryCloseIsIdempotentSafe(t *testing.T) {
	r := NewRegistry()
	id := r.Create(TerminalKind()).ID

	if _, ok := r.Close(id); !ok {
		t.Fatalf("Close(%v) failed for a live tab", id)
	}
	if _, ok := r.Close(id); ok {
		t.Fatalf("Close(%v) succeeded twice", id)
	}
	if _, ok := r.Close(TabID{Index: 99, Generation: 0}); ok {
		t.Fatal("Close() succeeded for an unknown slot")
	}
}

func TestRegistryCloseCapturesRestoreRecord(t *testing.T) {
	r := NewRegistry()
	tab := r.Create(WebKind("https://example.com"))
	tab.Title = "Example"
	custom := "pinned"
	tab.CustomTitle = &custom

	record, ok := r.Close(tab.ID)
	if !ok {
		t.Fatalf("Close(%v) failed", tab.ID)
	}
	if !record.Kind.IsWeb() || record.Kind.URL != "https://example.com" {
		t.Fatalf("record.Kind = %+v; want the web kind", record.Kind)
	}
	if record.Title != "Example" {
		t.Fatalf("record.Title = %q; want %q", record.Title, "Example")
	}
	if record.CustomTitle == nil || *record.CustomTitle != "pinned" {
		t.Fatalf("record.CustomTitle = %v; want %q", record.CustomTitle, "pinned")
	}
}
