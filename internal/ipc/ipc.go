// Package ipc is the unix-socket control plane: jarvis-ctl sends one
// JSON command per connection and reads one JSON response back.
package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
)

const SocketPath = "/tmp/jarvis.sock"

type Command struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text,omitempty"`
}

type Response struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type HandlerFunc func(Command) Response

// Serve listens on path until ctx is cancelled. Each connection
// carries exactly one command.
func Serve(ctx context.Context, path string, handler HandlerFunc) error {
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listen %s: %w", path, err)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
		os.Remove(path)
	}()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				continue
			}
			go handleConn(conn, handler)
		}
	}()

	return nil
}

func handleConn(conn net.Conn, handler HandlerFunc) {
	defer conn.Close()

	var cmd Command
	if err := json.NewDecoder(conn).Decode(&cmd); err != nil {
		json.NewEncoder(conn).Encode(Response{OK: false, Message: "bad command"})
		return
	}
	json.NewEncoder(conn).Encode(handler(cmd))
}

// Send delivers one command and returns the daemon's response.
func Send(path string, cmd Command) (Response, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(cmd); err != nil {
		return Response{}, err
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}
