package ipc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// EnvSocket names the environment variable the host exports with its socket
// path, and the first place clients look.
const EnvSocket = "TABHOST_SOCKET"

// DefaultSocketPath is the path a fresh host binds when none is configured.
func DefaultSocketPath() string {
	return filepath.Join(socketDir(), fmt.Sprintf("%s-%d.sock", socketPrefix(), os.Getpid()))
}

func socketDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}

// socketPrefix includes display-server information so that hosts on separate
// displays for the same user do not shadow each other during discovery.
func socketPrefix() string {
	display := os.Getenv("WAYLAND_DISPLAY")
	if display == "" {
		display = os.Getenv("DISPLAY")
	}
	if display == "" {
		return "tabhost"
	}
	return "tabhost-" + strings.ReplaceAll(display, "/", "-")
}

// Dial connects to a host socket. An explicit path wins, then EnvSocket,
// then a scan of the socket directory for live host sockets. Sockets that
// refuse connections are orphans from crashed hosts and are removed.
func Dial(explicit string) (net.Conn, error) {
	if explicit != "" {
		conn, err := net.Dial("unix", explicit)
		if err != nil {
			return nil, fmt.Errorf("invalid socket path %q: %w", explicit, err)
		}
		return conn, nil
	}

	if path := os.Getenv(EnvSocket); path != "" {
		if conn, err := net.Dial("unix", path); err == nil {
			return conn, nil
		}
	}

	entries, err := os.ReadDir(socketDir())
	if err != nil {
		return nil, err
	}
	prefix := socketPrefix()
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".sock") {
			continue
		}
		path := filepath.Join(socketDir(), name)
		conn, err := net.Dial("unix", path)
		if err == nil {
			return conn, nil
		}
		if errors.Is(err, syscall.ECONNREFUSED) {
			os.Remove(path)
		}
	}
	return nil, errors.New("no host socket found")
}
