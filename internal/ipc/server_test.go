package ipc

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
)

func startServer(t *testing.T, ctx Context) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "host.sock")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server, err := NewServer(path, ctx, logger)
	if err != nil {
		t.Fatalf("NewServer() = %v; want nil", err)
	}
	go server.Serve()
	t.Cleanup(func() { server.Close() })
	return server
}

func TestServerRoundTrip(t *testing.T) {
	server := startServer(t, newMockContext(false))

	reply, err := Send(server.Path(), &Request{Type: ReqPing})
	if err != nil {
		t.Fatalf("Send(ping) = %v; want nil", err)
	}
	if reply.Type != RepPong {
		t.Fatalf("reply type = %q; want %q", reply.Type, RepPong)
	}

	reply, err = Send(server.Path(), &Request{Type: ReqListTabs})
	if err != nil {
		t.Fatalf("Send(list_tabs) = %v; want nil", err)
	}
	if reply.Type != RepTabList {
		t.Fatalf("reply type = %q; want %q", reply.Type, RepTabList)
	}
	if reply.Groups == nil || len(*reply.Groups) != 1 {
		t.Fatalf("groups = %v; want one group", reply.Groups)
	}
}

func TestServerRepliesToMalformedInput(t *testing.T) {
	server := startServer(t, newMockContext(false))

	reply, err := SendRaw(server.Path(), []byte("{broken"))
	if err != nil {
		t.Fatalf("SendRaw() = %v; want nil", err)
	}
	code, ok := reply.IsError()
	if !ok || code != CodeInvalidRequest {
		t.Fatalf("reply = %+v; want invalid_request error", reply)
	}
}

func TestServerSignalsCloseHost(t *testing.T) {
	ctx := newMockContext(false)
	server := startServer(t, ctx)

	closed := make(chan struct{})
	server.OnCloseHost = func() { close(closed) }

	reply, err := Send(server.Path(), &Request{Type: ReqCloseTab})
	if err != nil {
		t.Fatalf("Send(close_tab) = %v; want nil", err)
	}
	if reply.Type != RepOK {
		t.Fatalf("reply type = %q; want %q", reply.Type, RepOK)
	}
	<-closed
}
