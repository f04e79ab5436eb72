package inspector

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dgnsrekt/tabhost/internal/tabs"
)

// DefaultQueueCap bounds each session's pending-message queue; the oldest
// payload is dropped once the cap is reached.
const DefaultQueueCap = 1024

// Mux owns the session table. Session ids are "PID:<pid>-<seq>" and the
// sequence only moves forward, so an id can never be reused after detach —
// a stale id held by an in-flight client always fails not_found.
type Mux struct {
	bridge   Bridge
	logger   *slog.Logger
	queueCap int
	sender   string

	mu       sync.Mutex
	nextSeq  uint64
	sessions map[string]*session
}

type session struct {
	targetID uint64
	tabID    tabs.TabID
	conn     BridgeConn
	queue    []string
	chunk    []byte
}

func NewMux(bridge Bridge, queueCap int, logger *slog.Logger) *Mux {
	if queueCap <= 0 {
		queueCap = DefaultQueueCap
	}
	return &Mux{
		bridge:   bridge,
		logger:   logger,
		queueCap: queueCap,
		sender:   fmt.Sprintf("PID:%d", os.Getpid()),
		sessions: make(map[string]*session),
	}
}

// Sender returns this host's "PID:<pid>" identity used in session ids and
// target ownership checks.
func (m *Mux) Sender() string {
	return m.sender
}

// ListTargets queries the engine for the current attachable pages.
func (m *Mux) ListTargets(ctx context.Context) ([]Target, error) {
	return m.bridge.ListTargets(ctx)
}

// Attach opens a debugging channel to the target and registers a session for
// it. The caller has already resolved the tab/target pair.
func (m *Mux) Attach(ctx context.Context, tabID tabs.TabID, targetID uint64) (Session, error) {
	m.mu.Lock()
	m.nextSeq++
	sessionID := fmt.Sprintf("%s-%d", m.sender, m.nextSeq)
	// The session entry must exist before the channel opens: the transport
	// can deliver frames the moment the dial completes, and those first
	// payloads belong in the queue.
	m.sessions[sessionID] = &session{targetID: targetID, tabID: tabID}
	m.mu.Unlock()

	conn, err := m.bridge.Attach(ctx, targetID, func(payload string) {
		m.enqueue(sessionID, payload)
	})
	if err != nil {
		m.mu.Lock()
		delete(m.sessions, sessionID)
		m.mu.Unlock()
		return Session{}, err
	}

	m.mu.Lock()
	if sess, ok := m.sessions[sessionID]; ok {
		sess.conn = conn
	}
	m.mu.Unlock()

	return Session{ID: sessionID, TargetID: targetID, TabID: tabID}, nil
}

// Detach destroys the session and discards any queued messages that were
// never polled.
func (m *Mux) Detach(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	if sess.conn == nil {
		// Torn down while the dial was still in flight; nothing to close.
		return nil
	}
	return sess.conn.Close(ctx)
}

// Send forwards one protocol message to the session's page.
func (m *Mux) Send(ctx context.Context, sessionID, payload string) error {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok || sess.conn == nil {
		return ErrNotFound
	}
	return sess.conn.Send(ctx, payload)
}

// Poll drains up to max queued messages without waiting; max <= 0 drains
// everything. Ordering is FIFO within the session.
func (m *Mux) Poll(sessionID string, max int) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}

	take := len(sess.queue)
	if max > 0 && max < take {
		take = max
	}
	messages := make([]Message, 0, take)
	for _, payload := range sess.queue[:take] {
		messages = append(messages, Message{SessionID: sessionID, Payload: payload})
	}
	sess.queue = append([]string(nil), sess.queue[take:]...)
	return messages, nil
}

// HasSession reports whether the id names a live session.
func (m *Mux) HasSession(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[sessionID]
	return ok
}

// SessionsForTarget lists the live session ids bound to a target; used to
// tear sessions down when the target disappears.
func (m *Mux) SessionsForTarget(targetID uint64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, sess := range m.sessions {
		if sess.targetID == targetID {
			ids = append(ids, id)
		}
	}
	return ids
}

// DropSession removes a session without touching the bridge; used when the
// engine reports the channel already gone.
func (m *Mux) DropSession(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

// enqueue appends an inbound payload, evicting the oldest at capacity.
func (m *Mux) enqueue(sessionID, payload string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		// Race between detach and the transport's read loop; drop it.
		return
	}
	if len(sess.queue) >= m.queueCap {
		sess.queue = sess.queue[1:]
		m.logger.Debug("inspector queue full, dropping oldest message", "session_id", sessionID)
	}
	sess.queue = append(sess.queue, payload)
}

// EnqueueChunk feeds a fragment of a chunked inbound message; the payload is
// queued once the final fragment arrives. Transports that deliver whole
// messages use the Attach callback instead.
func (m *Mux) EnqueueChunk(sessionID string, data []byte, final bool) {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return
	}
	sess.chunk = append(sess.chunk, data...)
	if !final {
		m.mu.Unlock()
		return
	}
	payload := string(sess.chunk)
	sess.chunk = nil
	m.mu.Unlock()

	m.enqueue(sessionID, payload)
}
