package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
)

// Send encodes the request, delivers it over one connection, and decodes the
// single reply. An empty socket path triggers discovery.
func Send(socket string, req *Request) (*Reply, error) {
	line, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return SendRaw(socket, line)
}

// SendRaw delivers a pre-encoded JSON request line.
func SendRaw(socket string, line []byte) (*Reply, error) {
	conn, err := Dial(socket)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.Write(append(line, '\n')); err != nil {
		return nil, err
	}
	if unix, ok := conn.(*net.UnixConn); ok {
		unix.CloseWrite()
	}

	replyLine, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && len(replyLine) == 0 {
		return nil, fmt.Errorf("no reply: %w", err)
	}
	var reply Reply
	if err := json.Unmarshal(replyLine, &reply); err != nil {
		return nil, fmt.Errorf("invalid reply: %w", err)
	}
	return &reply, nil
}
