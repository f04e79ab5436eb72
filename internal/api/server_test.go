package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgnsrekt/tabhost/internal/ipc"
	"github.com/dgnsrekt/tabhost/internal/tabs"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubService struct {
	webTabs bool
	groups  []ipc.TabGroup
	targets []ipc.InspectorTarget
	listErr error
}

func (s *stubService) WebTabsSupported() bool { return s.webTabs }

func (s *stubService) ListTabs(time.Time) []ipc.TabGroup { return s.groups }

func (s *stubService) TabState(id tabs.TabID, _ time.Time) (*ipc.TabState, bool) {
	for _, group := range s.groups {
		for i := range group.Tabs {
			if group.Tabs[i].TabID == id {
				return &group.Tabs[i], true
			}
		}
	}
	return nil, false
}

func (s *stubService) TabPanelState() ipc.PanelState {
	return ipc.PanelState{Enabled: true, Width: 240}
}

func (s *stubService) ListInspectorTargets() ([]ipc.InspectorTarget, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.targets, nil
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	h := NewServer(&stubService{}, testLogger())
	w := get(t, h, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestCapabilities(t *testing.T) {
	h := NewServer(&stubService{webTabs: true}, testLogger())
	w := get(t, h, "/api/v1/capabilities")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var caps ipc.Capabilities
	if err := json.Unmarshal(w.Body.Bytes(), &caps); err != nil {
		t.Fatalf("decode = %v; want nil", err)
	}
	if !caps.WebTabs || caps.ProtocolVersion != ipc.ProtocolVersion {
		t.Fatalf("capabilities = %+v; want web_tabs and protocol %d", caps, ipc.ProtocolVersion)
	}
}

func TestListTabsEmpty(t *testing.T) {
	h := NewServer(&stubService{}, testLogger())
	w := get(t, h, "/api/v1/tabs")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body struct {
		Groups []ipc.TabGroup `json:"groups"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode = %v; want nil", err)
	}
	if body.Groups == nil || len(body.Groups) != 0 {
		t.Fatalf("groups = %v; want empty list", body.Groups)
	}
}

func TestTabState(t *testing.T) {
	id := tabs.TabID{Index: 0, Generation: 1}
	svc := &stubService{groups: []ipc.TabGroup{{
		ID:   1,
		Tabs: []ipc.TabState{{TabID: id, GroupID: 1, IsActive: true, Title: "shell"}},
	}}}
	h := NewServer(svc, testLogger())

	w := get(t, h, "/api/v1/tabs/0/1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var state ipc.TabState
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode = %v; want nil", err)
	}
	if state.TabID != id || state.Title != "shell" {
		t.Fatalf("state = %+v; want tab %v titled shell", state, id)
	}

	// Stale generation is a miss.
	if w := get(t, h, "/api/v1/tabs/0/2"); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestInspectorTargetsErrorMapping(t *testing.T) {
	svc := &stubService{listErr: ipc.NewError(ipc.CodeUnsupported, "inspector not supported")}
	h := NewServer(svc, testLogger())
	if w := get(t, h, "/api/v1/inspector/targets"); w.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotImplemented)
	}

	svc.listErr = ipc.NewError(ipc.CodeTimeout, "listing timed out")
	if w := get(t, h, "/api/v1/inspector/targets"); w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusGatewayTimeout)
	}
}
