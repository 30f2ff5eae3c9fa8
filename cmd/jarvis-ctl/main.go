package main

import (
	"fmt"
	"os"
	"strings"

	"jarvis/internal/ipc"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: jarvis-ctl wake | say <text> | end | status | stop")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cmd := ipc.Command{Cmd: os.Args[1]}
	switch cmd.Cmd {
	case "wake", "end", "status", "stop":
	case "say":
		if len(os.Args) < 3 {
			usage()
		}
		cmd.Text = strings.Join(os.Args[2:], " ")
	default:
		usage()
	}

	resp, err := ipc.Send(ipc.SocketPath, cmd)
	if err != nil {
		fmt.Println("jarvis-daemon not running:", err)
		os.Exit(1)
	}
	if !resp.OK {
		fmt.Println("error:", resp.Message)
		os.Exit(1)
	}
	if resp.Message != "" {
		fmt.Println(resp.Message)
	}
}
