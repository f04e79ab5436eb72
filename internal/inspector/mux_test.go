package inspector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/dgnsrekt/tabhost/internal/tabs"
)

type fakeConn struct {
	sent   []string
	closed bool
}

func (c *fakeConn) Send(_ context.Context, payload string) error {
	c.sent = append(c.sent, payload)
	return nil
}

func (c *fakeConn) Close(context.Context) error {
	c.closed = true
	return nil
}

type fakeBridge struct {
	targets  []Target
	delivers map[uint64]func(string)
	conns    map[uint64]*fakeConn

	// onAttach runs inside Attach with the deliver callback, before the
	// connection is handed back; used to emulate frames arriving mid-dial.
	onAttach func(deliver func(string))
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{
		delivers: make(map[uint64]func(string)),
		conns:    make(map[uint64]*fakeConn),
	}
}

func (b *fakeBridge) ListTargets(context.Context) ([]Target, error) {
	return b.targets, nil
}

func (b *fakeBridge) Attach(_ context.Context, targetID uint64, deliver func(string)) (BridgeConn, error) {
	conn := &fakeConn{}
	b.delivers[targetID] = deliver
	b.conns[targetID] = conn
	if b.onAttach != nil {
		b.onAttach(deliver)
	}
	return conn, nil
}

func newTestMux(bridge Bridge, queueCap int) *Mux {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMux(bridge, queueCap, logger)
}

func TestMuxSessionLifecycle(t *testing.T) {
	bridge := newFakeBridge()
	mux := newTestMux(bridge, 0)
	ctx := context.Background()

	session, err := mux.Attach(ctx, tabs.TabID{Index: 3}, 42)
	if err != nil {
		t.Fatalf("Attach() = %v; want nil", err)
	}
	if !strings.HasPrefix(session.ID, mux.Sender()+"-") {
		t.Fatalf("session id = %q; want prefix %q", session.ID, mux.Sender()+"-")
	}
	if session.TargetID != 42 || session.TabID.Index != 3 {
		t.Fatalf("session = %+v; want target 42, tab index 3", session)
	}

	if err := mux.Send(ctx, session.ID, `{"id":1,"method":"Runtime.enable"}`); err != nil {
		t.Fatalf("Send() = %v; want nil", err)
	}
	if got := bridge.conns[42].sent; len(got) != 1 {
		t.Fatalf("bridge received %d messages; want 1", len(got))
	}

	bridge.delivers[42]("first")
	bridge.delivers[42]("second")
	messages, err := mux.Poll(session.ID, 0)
	if err != nil {
		t.Fatalf("Poll() = %v; want nil", err)
	}
	if len(messages) != 2 || messages[0].Payload != "first" || messages[1].Payload != "second" {
		t.Fatalf("Poll() = %v; want first, second in order", messages)
	}

	if err := mux.Detach(ctx, session.ID); err != nil {
		t.Fatalf("Detach() = %v; want nil", err)
	}
	if !bridge.conns[42].closed {
		t.Fatal("Detach() did not close the bridge channel")
	}
}

func TestMuxQueuesDeliveriesDuringAttach(t *testing.T) {
	bridge := newFakeBridge()
	bridge.onAttach = func(deliver func(string)) {
		deliver("banner")
		deliver("handshake")
	}
	mux := newTestMux(bridge, 0)

	session, err := mux.Attach(context.Background(), tabs.TabID{}, 1)
	if err != nil {
		t.Fatalf("Attach() = %v; want nil", err)
	}

	messages, err := mux.Poll(session.ID, 0)
	if err != nil {
		t.Fatalf("Poll() = %v; want nil", err)
	}
	if len(messages) != 2 || messages[0].Payload != "banner" || messages[1].Payload != "handshake" {
		t.Fatalf("Poll() = %v; want the frames delivered during the dial", messages)
	}
}

func TestMuxAttachFailureLeavesNoSession(t *testing.T) {
	bridge := newFakeBridge()
	mux := newTestMux(bridge, 0)

	wantErr := errors.New("target gone")
	failing := &failingBridge{err: wantErr}
	mux.bridge = failing
	if _, err := mux.Attach(context.Background(), tabs.TabID{}, 9); !errors.Is(err, wantErr) {
		t.Fatalf("Attach() = %v; want %v", err, wantErr)
	}

	mux.bridge = bridge
	session, err := mux.Attach(context.Background(), tabs.TabID{}, 1)
	if err != nil {
		t.Fatalf("Attach() = %v; want nil", err)
	}
	if !strings.HasSuffix(session.ID, "-2") {
		t.Fatalf("session id = %q; want sequence 2 after the failed attach", session.ID)
	}
	if stale := mux.Sender() + "-1"; mux.HasSession(stale) {
		t.Fatalf("session %q survived a failed attach", stale)
	}
}

type failingBridge struct {
	err error
}

func (b *failingBridge) ListTargets(context.Context) ([]Target, error) {
	return nil, b.err
}

func (b *failingBridge) Attach(context.Context, uint64, func(string)) (BridgeConn, error) {
	return nil, b.err
}

func TestMuxDetachedSessionFailsNotFound(t *testing.T) {
	bridge := newFakeBridge()
	mux := newTestMux(bridge, 0)
	ctx := context.Background()

	session, err := mux.Attach(ctx, tabs.TabID{}, 1)
	if err != nil {
		t.Fatalf("Attach() = %v; want nil", err)
	}

	// Queue a message that is never polled; detach must discard it.
	bridge.delivers[1]("orphaned")
	if err := mux.Detach(ctx, session.ID); err != nil {
		t.Fatalf("Detach() = %v; want nil", err)
	}

	if _, err := mux.Poll(session.ID, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Poll() after detach = %v; want ErrNotFound", err)
	}
	if err := mux.Send(ctx, session.ID, "{}"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Send() after detach = %v; want ErrNotFound", err)
	}
	if err := mux.Detach(ctx, session.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Detach() twice = %v; want ErrNotFound", err)
	}
}

func TestMuxSessionIDsNeverReused(t *testing.T) {
	bridge := newFakeBridge()
	mux := newTestMux(bridge, 0)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		session, err := mux.Attach(ctx, tabs.TabID{}, 1)
		if err != nil {
			t.Fatalf("Attach() = %v; want nil", err)
		}
		if seen[session.ID] {
			t.Fatalf("session id %q reused", session.ID)
		}
		seen[session.ID] = true
		if err := mux.Detach(ctx, session.ID); err != nil {
			t.Fatalf("Detach() = %v; want nil", err)
		}
	}
}

func TestMuxPollDrainsUpToMax(t *testing.T) {
	bridge := newFakeBridge()
	mux := newTestMux(bridge, 0)
	ctx := context.Background()

	session, err := mux.Attach(ctx, tabs.TabID{}, 1)
	if err != nil {
		t.Fatalf("Attach() = %v; want nil", err)
	}
	for i := 0; i < 5; i++ {
		bridge.delivers[1](fmt.Sprintf("msg-%d", i))
	}

	messages, err := mux.Poll(session.ID, 2)
	if err != nil {
		t.Fatalf("Poll() = %v; want nil", err)
	}
	if len(messages) != 2 || messages[0].Payload != "msg-0" {
		t.Fatalf("Poll(max=2) = %v; want msg-0, msg-1", messages)
	}

	messages, err = mux.Poll(session.ID, 0)
	if err != nil {
		t.Fatalf("Poll() = %v; want nil", err)
	}
	if len(messages) != 3 || messages[0].Payload != "msg-2" {
		t.Fatalf("Poll() = %v; want the remaining three in order", messages)
	}

	// A drained queue polls empty without blocking.
	messages, err = mux.Poll(session.ID, 0)
	if err != nil || len(messages) != 0 {
		t.Fatalf("Poll(empty) = %v, %v; want empty, nil", messages, err)
	}
}

func TestMuxQueueDropsOldestAtCapacity(t *testing.T) {
	bridge := newFakeBridge()
	mux := newTestMux(bridge, 3)
	ctx := context.Background()

	session, err := mux.Attach(ctx, tabs.TabID{}, 1)
	if err != nil {
		t.Fatalf("Attach() = %v; want nil", err)
	}
	for i := 0; i < 5; i++ {
		bridge.delivers[1](fmt.Sprintf("msg-%d", i))
	}

	messages, err := mux.Poll(session.ID, 0)
	if err != nil {
		t.Fatalf("Poll() = %v; want nil", err)
	}
	if len(messages) != 3 {
		t.Fatalf("len(messages) = %d; want the 3 newest", len(messages))
	}
	if messages[0].Payload != "msg-2" || messages[2].Payload != "msg-4" {
		t.Fatalf("Poll() = %v; want msg-2..msg-4", messages)
	}
}

func TestMuxChunkReassembly(t *testing.T) {
	bridge := newFakeBridge()
	mux := newTestMux(bridge, 0)
	ctx := context.Background()

	session, err := mux.Attach(ctx, tabs.TabID{}, 1)
	if err != nil {
		t.Fatalf("Attach() = %v; want nil", err)
	}

	mux.EnqueueChunk(session.ID, []byte(`{"par`), false)
	mux.EnqueueChunk(session.ID, []byte(`tial":`), false)

	// Nothing is visible until the final fragment lands.
	if messages, _ := mux.Poll(session.ID, 0); len(messages) != 0 {
		t.Fatalf("Poll() = %v; want nothing before the final chunk", messages)
	}

	mux.EnqueueChunk(session.ID, []byte(`true}`), true)
	messages, err := mux.Poll(session.ID, 0)
	if err != nil {
		t.Fatalf("Poll() = %v; want nil", err)
	}
	if len(messages) != 1 || messages[0].Payload != `{"partial":true}` {
		t.Fatalf("Poll() = %v; want the reassembled payload", messages)
	}
}
