package host

import (
	"time"

	"github.com/dgnsrekt/tabhost/internal/tabs"
)

// Engine callbacks. These arrive on engine goroutines and are absorbed into
// host state under the same mutex as client requests; callbacks for tabs that
// closed in the meantime are dropped.

func (h *Host) TitleChanged(id tabs.TabID, title string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tab, ok := h.ws.Get(id)
	if !ok {
		return
	}
	tab.Title = title
}

func (h *Host) URLChanged(id tabs.TabID, url string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tab, ok := h.ws.Get(id)
	if !ok || !tab.Kind.IsWeb() {
		return
	}
	tab.Kind = tabs.WebKind(url)
}

func (h *Host) Output(id tabs.TabID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tab, ok := h.ws.Get(id)
	if !ok || tab.Kind.IsWeb() {
		return
	}
	active, hasActive := h.ws.ActiveID()
	tab.Activity.NoteOutput(time.Now(), hasActive && active == id)
}
