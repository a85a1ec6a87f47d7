// Package ipc is the local control socket of the daemon: a unix socket
// taking one JSON request per connection and answering with a JSON
// reply. Used by voxgate-ctl for reload/switch/status without going
// through HTTP.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"
)

const SocketPath = "/tmp/voxgate.sock"

// Request is one control command. Arg carries the agent name for switch.
type Request struct {
	Cmd string `json:"cmd"`
	Arg string `json:"arg,omitempty"`
}

// Reply is the daemon's answer.
type Reply struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// Handler processes one request and returns the reply.
type Handler func(Request) Reply

// Serve listens on the control socket until ctx is cancelled. A stale
// socket file from a previous run is removed first.
func Serve(ctx context.Context, handler Handler) error {
	_ = os.Remove(SocketPath)

	ln, err := net.Listen("unix", SocketPath)
	if err != nil {
		return fmt.Errorf("listen %s: %w", SocketPath, err)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
		_ = os.Remove(SocketPath)
	}()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				slog.Warn("control socket accept", "err", err)
				continue
			}
			go handleConn(conn, handler)
		}
	}()

	slog.Info("control socket listening", "path", SocketPath)
	return nil
}

func handleConn(conn net.Conn, handler Handler) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		return
	}
	reply := handler(req)
	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		slog.Warn("control socket reply", "err", err)
	}
}

// Send delivers one request and waits for the reply.
func Send(req Request) (Reply, error) {
	conn, err := net.DialTimeout("unix", SocketPath, 2*time.Second)
	if err != nil {
		return Reply{}, fmt.Errorf("dial %s (is the daemon running?): %w", SocketPath, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Reply{}, err
	}
	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return Reply{}, err
	}
	return reply, nil
}
