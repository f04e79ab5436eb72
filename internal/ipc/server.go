package ipc

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"os"
	"time"
)

// Server accepts one connection per request on a unix socket: read one JSON
// line, dispatch it, write one JSON line back, close. The context
// implementation is responsible for serializing state access.
type Server struct {
	listener net.Listener
	path     string
	ctx      Context
	logger   *slog.Logger

	// OnCloseHost fires after the reply for a last-tab close has been
	// written; the host uses it to begin shutdown.
	OnCloseHost func()
}

// NewServer binds the socket and exports its path through EnvSocket so that
// child processes can find the host without discovery.
func NewServer(path string, ctx Context, logger *slog.Logger) (*Server, error) {
	if path == "" {
		path = DefaultSocketPath()
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	os.Setenv(EnvSocket, path)
	return &Server{listener: listener, path: path, ctx: ctx, logger: logger}, nil
}

// Path returns the bound socket path.
func (s *Server) Path() string {
	return s.path
}

// Serve accepts connections until the listener is closed.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handleConn(conn)
	}
}

// Close stops the listener and removes the socket file.
func (s *Server) Close() error {
	err := s.listener.Close()
	os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		// EOF before any payload: nothing to reply to.
		return
	}

	response := HandleLine(s.ctx, line)
	if code, isErr := response.Reply.IsError(); isErr {
		s.logger.Debug("request failed", "code", code, "message", response.Reply.Err.Message)
	}

	encoded, err := response.Reply.Encode()
	if err != nil {
		s.logger.Error("failed to encode reply", "error", err)
		return
	}
	conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
	if _, err := conn.Write(encoded); err != nil {
		s.logger.Warn("failed to write reply", "error", err)
	}

	if response.CloseHost && s.OnCloseHost != nil {
		s.OnCloseHost()
	}
}
