// Package inspector multiplexes remote-debugging sessions over a single
// transport to the web engine: it owns session identity, per-session FIFO
// message queues drained by polling clients, and the target matching used to
// bind tabs to debuggable pages.
package inspector

import (
	"context"
	"errors"

	"github.com/dgnsrekt/tabhost/internal/tabs"
)

var (
	// ErrNotFound reports an unknown session or a target that resolved to
	// nothing.
	ErrNotFound = errors.New("inspector: not found")
	// ErrAmbiguous reports a match that resolved to more than one candidate
	// where exactly one was required.
	ErrAmbiguous = errors.New("inspector: ambiguous match")
	// ErrPermissionDenied reports that the debugging transport refused us.
	ErrPermissionDenied = errors.New("inspector: permission denied")
)

// Target describes one attachable page as reported by the web engine.
type Target struct {
	ID           uint64
	Type         string
	URL          string
	Title        string
	OverrideName string
	// HostApp identifies the process hosting the page, "PID:<pid>" for
	// pages owned by this host.
	HostApp string
}

// Session is the client-visible identity of one attached debugging channel.
type Session struct {
	ID       string
	TargetID uint64
	TabID    tabs.TabID
}

// Message is one queued inbound protocol payload.
type Message struct {
	SessionID string
	Payload   string
}

// BridgeConn is one live engine-side debugging channel.
type BridgeConn interface {
	// Send forwards one protocol message to the page.
	Send(ctx context.Context, payload string) error
	// Close tears the channel down; the page stays alive.
	Close(ctx context.Context) error
}

// Bridge is the engine-side debugging transport. Attach's deliver callback
// is invoked from the transport's read loop for every inbound message on the
// new channel and must not block.
type Bridge interface {
	ListTargets(ctx context.Context) ([]Target, error)
	Attach(ctx context.Context, targetID uint64, deliver func(payload string)) (BridgeConn, error)
}
