// Package cdpweb implements the web-content engine on a remote
// Chromium-family browser over the Chrome DevTools Protocol: one chromedp
// context per web tab, navigation events fed back to the host, and a raw
// bridge exposed for inspector sessions.
package cdpweb

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/dgnsrekt/tabhost/internal/engine"
	"github.com/dgnsrekt/tabhost/internal/inspector"
	"github.com/dgnsrekt/tabhost/internal/tabs"
)

// Engine drives web tabs in an already-running browser reachable at a CDP
// endpoint. The browser's lifecycle is not ours: closing a tab closes its
// target, closing the engine only detaches.
type Engine struct {
	cdpURL   string
	notifier engine.Notifier
	logger   *slog.Logger
	bridge   *inspector.CDPBridge

	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu   sync.RWMutex
	tabs map[tabs.TabID]*webTab
}

type webTab struct {
	targetID target.ID
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(cdpURL, httpBase, sender string, notifier engine.Notifier, logger *slog.Logger) *Engine {
	return &Engine{
		cdpURL:   cdpURL,
		notifier: notifier,
		logger:   logger,
		bridge:   inspector.NewCDPBridge(httpBase, sender, logger),
		tabs:     make(map[tabs.TabID]*webTab),
	}
}

// Connect establishes the allocator and verifies the browser is reachable.
func (e *Engine) Connect(ctx context.Context) error {
	_ = ctx
	e.logger.Info("connecting to browser", "url", e.cdpURL)

	e.allocCtx, e.allocCancel = chromedp.NewRemoteAllocator(context.Background(), e.cdpURL)

	tempCtx, tempCancel := chromedp.NewContext(e.allocCtx)
	defer tempCancel()
	if err := chromedp.Run(tempCtx); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	return nil
}

// Close detaches from every tab and tears the allocator down. Browser tabs
// created through the engine stay open.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.tabs = make(map[tabs.TabID]*webTab)
	e.mu.Unlock()

	e.bridge.Close()
	if e.allocCancel != nil {
		e.allocCancel()
	}
	e.logger.Info("web engine closed")
	return nil
}

// Bridge exposes the raw debugging transport for inspector sessions.
func (e *Engine) Bridge() *inspector.CDPBridge {
	return e.bridge
}

// CreateTab opens a fresh browser target and navigates it.
func (e *Engine) CreateTab(ctx context.Context, id tabs.TabID, url string) error {
	if e.allocCtx == nil {
		return fmt.Errorf("web engine not connected")
	}

	tabCtx, tabCancel := chromedp.NewContext(e.allocCtx)
	runCtx, runCancel := mergeTimeout(ctx, tabCtx)
	defer runCancel()
	if err := chromedp.Run(runCtx, page.Enable(), chromedp.Navigate(url)); err != nil {
		tabCancel()
		return fmt.Errorf("failed to open %s: %w", url, err)
	}

	targetID := chromedp.FromContext(tabCtx).Target.TargetID
	tab := &webTab{targetID: targetID, ctx: tabCtx, cancel: tabCancel}

	e.mu.Lock()
	e.tabs[id] = tab
	e.mu.Unlock()

	chromedp.ListenTarget(tabCtx, e.eventHandler(id, tab))
	e.logger.Info("web tab created", "tab_id", id.String(), "target_id", targetID, "url", url)
	return nil
}

// CloseTab closes the tab's browser target.
func (e *Engine) CloseTab(_ context.Context, id tabs.TabID) error {
	e.mu.Lock()
	tab, ok := e.tabs[id]
	if ok {
		delete(e.tabs, id)
	}
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("no web view for tab %s", id)
	}

	if err := chromedp.Cancel(tab.ctx); err != nil {
		e.logger.Warn("failed to close browser target", "tab_id", id.String(), "error", err)
	}
	return nil
}

// Load navigates the tab.
func (e *Engine) Load(ctx context.Context, id tabs.TabID, url string) error {
	tab, err := e.tab(id)
	if err != nil {
		return err
	}
	runCtx, cancel := mergeTimeout(ctx, tab.ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}
	return nil
}

// Reload reloads the tab's current page.
func (e *Engine) Reload(ctx context.Context, id tabs.TabID) error {
	tab, err := e.tab(id)
	if err != nil {
		return err
	}
	runCtx, cancel := mergeTimeout(ctx, tab.ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Reload()); err != nil {
		return fmt.Errorf("failed to reload: %w", err)
	}
	return nil
}

// OpenInspector validates the tab has a live target. The debugging endpoint
// is always exposed on a CDP browser, so there is no UI to summon; clients
// attach through the inspector session commands instead.
func (e *Engine) OpenInspector(_ context.Context, id tabs.TabID) error {
	tab, err := e.tab(id)
	if err != nil {
		return err
	}
	e.logger.Info("inspector requested", "tab_id", id.String(), "target_id", tab.targetID)
	return nil
}

// TargetFor maps a tab to its wire target id without a listing round-trip.
func (e *Engine) TargetFor(id tabs.TabID) (uint64, bool) {
	e.mu.RLock()
	tab, ok := e.tabs[id]
	e.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return e.bridge.NumericID(tab.targetID), true
}

func (e *Engine) tab(id tabs.TabID) (*webTab, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	tab, ok := e.tabs[id]
	if !ok {
		return nil, fmt.Errorf("no web view for tab %s", id)
	}
	return tab, nil
}

// eventHandler feeds navigation and title changes back to the host. Handlers
// run on chromedp's event goroutine and must not block, so title fetches
// happen on their own goroutine.
func (e *Engine) eventHandler(id tabs.TabID, tab *webTab) func(ev interface{}) {
	return func(ev interface{}) {
		switch event := ev.(type) {
		case *page.EventFrameNavigated:
			if event.Frame.ParentID == "" {
				url := event.Frame.URL
				go func() {
					e.notifier.URLChanged(id, url)
					e.refreshTitle(id, tab)
				}()
			}
		case *page.EventNavigatedWithinDocument:
			url := event.URL
			go func() {
				e.notifier.URLChanged(id, url)
				e.refreshTitle(id, tab)
			}()
		}
	}
}

func (e *Engine) refreshTitle(id tabs.TabID, tab *webTab) {
	titleCtx, cancel := context.WithTimeout(tab.ctx, 10*time.Second)
	defer cancel()

	var title string
	if err := chromedp.Run(titleCtx, chromedp.Title(&title)); err != nil {
		e.logger.Debug("failed to read tab title", "tab_id", id.String(), "error", err)
		return
	}
	e.notifier.TitleChanged(id, title)
}

// mergeTimeout bounds a chromedp run by the caller's deadline while keeping
// the tab context as the parent so the run targets the right session.
func mergeTimeout(caller, tab context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := caller.Deadline(); ok {
		return context.WithDeadline(tab, deadline)
	}
	return context.WithCancel(tab)
}
