package inspector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// CDPBridge proxies inspector sessions over the Chrome DevTools Protocol
// without chromedp's session initialisation: one browser-level WebSocket,
// flat sessions attached per target, inbound messages routed to the owning
// session's deliver callback. Target enumeration goes through the HTTP
// /json/list endpoint.
type CDPBridge struct {
	httpBase string
	sender   string
	logger   *slog.Logger

	mu   sync.Mutex
	conn net.Conn
	seq  atomic.Int64

	pending   map[int64]chan json.RawMessage
	pendingMu sync.Mutex

	routeMu sync.Mutex
	routes  map[string]func(payload string)

	// CDP target ids are opaque strings; the wire protocol wants stable
	// numeric ids, so the bridge assigns them on first sight.
	idMu         sync.Mutex
	idsByTarget  map[target.ID]uint64
	targetsByID  map[uint64]target.ID
	nextTargetID uint64
}

func NewCDPBridge(httpBase, sender string, logger *slog.Logger) *CDPBridge {
	return &CDPBridge{
		httpBase:    strings.TrimRight(httpBase, "/"),
		sender:      sender,
		logger:      logger,
		pending:     make(map[int64]chan json.RawMessage),
		routes:      make(map[string]func(payload string)),
		idsByTarget: make(map[target.ID]uint64),
		targetsByID: make(map[uint64]target.ID),
	}
}

// Connect dials the browser-level WebSocket endpoint; repeated calls are
// no-ops while the connection is up.
func (b *CDPBridge) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		return nil
	}

	wsURL, err := b.browserWSURL(ctx)
	if err != nil {
		return fmt.Errorf("cdpbridge: browser ws url: %w", err)
	}

	b.logger.Debug("cdpbridge connecting", "ws_url", wsURL)
	conn, _, _, err := ws.Dial(ctx, wsURL)
	if err != nil {
		return fmt.Errorf("cdpbridge: dial: %w", err)
	}

	b.conn = conn
	b.pending = make(map[int64]chan json.RawMessage)
	go b.readLoop()
	return nil
}

func (b *CDPBridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}

// readLoop routes inbound frames: command replies go to their waiter, frames
// carrying a routed sessionId go to that session verbatim.
func (b *CDPBridge) readLoop() {
	for {
		b.mu.Lock()
		conn := b.conn
		b.mu.Unlock()
		if conn == nil {
			return
		}

		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			b.logger.Debug("cdpbridge read loop exit", "error", err)
			b.closeAllPending()
			return
		}

		var msg struct {
			ID        int64  `json:"id"`
			Method    string `json:"method"`
			SessionID string `json:"sessionId"`
		}
		if json.Unmarshal(data, &msg) != nil {
			continue
		}

		if msg.SessionID != "" {
			b.routeMu.Lock()
			deliver, routed := b.routes[msg.SessionID]
			b.routeMu.Unlock()
			if routed {
				deliver(string(data))
				continue
			}
		}

		if msg.ID > 0 {
			b.pendingMu.Lock()
			ch, ok := b.pending[msg.ID]
			if ok {
				delete(b.pending, msg.ID)
			}
			b.pendingMu.Unlock()
			if ok {
				ch <- json.RawMessage(data)
			}
		}
	}
}

func (b *CDPBridge) closeAllPending() {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	for id, ch := range b.pending {
		close(ch)
		delete(b.pending, id)
	}
}

func (b *CDPBridge) deletePending(id int64) {
	b.pendingMu.Lock()
	delete(b.pending, id)
	b.pendingMu.Unlock()
}

// send issues one browser-level command and waits for the matching reply.
func (b *CDPBridge) send(ctx context.Context, method string, params any) (json.RawMessage, error) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return nil, fmt.Errorf("cdpbridge: not connected")
	}

	id := b.seq.Add(1)
	req := struct {
		ID     int64  `json:"id"`
		Method string `json:"method"`
		Params any    `json:"params,omitempty"`
	}{ID: id, Method: method, Params: params}

	ch := make(chan json.RawMessage, 1)
	b.pendingMu.Lock()
	b.pending[id] = ch
	b.pendingMu.Unlock()

	data, err := json.Marshal(req)
	if err != nil {
		b.deletePending(id)
		return nil, fmt.Errorf("cdpbridge: marshal: %w", err)
	}

	b.mu.Lock()
	err = wsutil.WriteClientText(conn, data)
	b.mu.Unlock()
	if err != nil {
		b.deletePending(id)
		return nil, fmt.Errorf("cdpbridge: send: %w", err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("cdpbridge: connection closed")
		}
		return resp, nil
	case <-ctx.Done():
		b.deletePending(id)
		return nil, ctx.Err()
	}
}

// writeRaw sends a pre-encoded frame on the shared connection.
func (b *CDPBridge) writeRaw(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return fmt.Errorf("cdpbridge: not connected")
	}
	return wsutil.WriteClientText(b.conn, data)
}

// ListTargets enumerates pages via /json/list, assigning numeric ids to new
// CDP targets and dropping ids whose targets disappeared.
func (b *CDPBridge) ListTargets(ctx context.Context) ([]Target, error) {
	listCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(listCtx, http.MethodGet, b.httpBase+"/json/list", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cdpbridge: /json/list: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var entries []struct {
		ID    string `json:"id"`
		Type  string `json:"type"`
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, err
	}

	infos := make([]*target.Info, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, &target.Info{
			TargetID: target.ID(e.ID),
			Type:     e.Type,
			Title:    e.Title,
			URL:      e.URL,
		})
	}

	b.idMu.Lock()
	defer b.idMu.Unlock()

	live := make(map[target.ID]bool, len(infos))
	out := make([]Target, 0, len(infos))
	for _, info := range infos {
		live[info.TargetID] = true
		id, ok := b.idsByTarget[info.TargetID]
		if !ok {
			b.nextTargetID++
			id = b.nextTargetID
			b.idsByTarget[info.TargetID] = id
			b.targetsByID[id] = info.TargetID
		}
		out = append(out, Target{
			ID:      id,
			Type:    info.Type,
			URL:     info.URL,
			Title:   info.Title,
			HostApp: b.sender,
		})
	}
	for cdpID, id := range b.idsByTarget {
		if !live[cdpID] {
			delete(b.idsByTarget, cdpID)
			delete(b.targetsByID, id)
		}
	}
	return out, nil
}

// NumericID returns the wire id for a CDP target, assigning one on first
// sight. The web engine uses it to map its own tabs onto targets without a
// listing round-trip.
func (b *CDPBridge) NumericID(cdpID target.ID) uint64 {
	b.idMu.Lock()
	defer b.idMu.Unlock()
	if id, ok := b.idsByTarget[cdpID]; ok {
		return id
	}
	b.nextTargetID++
	b.idsByTarget[cdpID] = b.nextTargetID
	b.targetsByID[b.nextTargetID] = cdpID
	return b.nextTargetID
}

// Attach opens a flat session to the target and routes its inbound frames to
// deliver.
func (b *CDPBridge) Attach(ctx context.Context, targetID uint64, deliver func(payload string)) (BridgeConn, error) {
	if err := b.Connect(ctx); err != nil {
		return nil, err
	}

	b.idMu.Lock()
	cdpID, ok := b.targetsByID[targetID]
	b.idMu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	params := struct {
		TargetID target.ID `json:"targetId"`
		Flatten  bool      `json:"flatten"`
	}{TargetID: cdpID, Flatten: true}

	raw, err := b.send(ctx, "Target.attachToTarget", params)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result struct {
			SessionID string `json:"sessionId"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("cdpbridge: unmarshal attach: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("cdpbridge: attach: %s", resp.Error.Message)
	}

	sessionID := resp.Result.SessionID
	b.routeMu.Lock()
	b.routes[sessionID] = deliver
	b.routeMu.Unlock()

	return &cdpConn{bridge: b, sessionID: sessionID}, nil
}

// cdpConn is one flat CDP session on the shared bridge connection.
type cdpConn struct {
	bridge    *CDPBridge
	sessionID string
}

// Send forwards a client protocol message, stamping the session id into the
// envelope so the browser routes it to the right page.
func (c *cdpConn) Send(_ context.Context, payload string) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return fmt.Errorf("cdpbridge: invalid message: %w", err)
	}
	encoded, err := json.Marshal(c.sessionID)
	if err != nil {
		return err
	}
	envelope["sessionId"] = encoded
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	return c.bridge.writeRaw(data)
}

func (c *cdpConn) Close(ctx context.Context) error {
	c.bridge.routeMu.Lock()
	delete(c.bridge.routes, c.sessionID)
	c.bridge.routeMu.Unlock()

	params := struct {
		SessionID string `json:"sessionId"`
	}{SessionID: c.sessionID}
	_, err := c.bridge.send(ctx, "Target.detachFromTarget", params)
	return err
}

// browserWSURL fetches the WebSocket debugger URL from /json/version.
func (b *CDPBridge) browserWSURL(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.httpBase+"/json/version", nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cdpbridge: /json/version: HTTP %d", resp.StatusCode)
	}

	var info struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}
	if info.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("empty webSocketDebuggerUrl")
	}
	return info.WebSocketDebuggerURL, nil
}
