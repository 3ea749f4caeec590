package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/spf13/cobra"
)

var flagPlayServer string

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Bridge an agent's MCP stdio connection to a remote server",
	Long: `play dials a running server's TCP MCP gateway and relays line-delimited
MCP traffic between this process's stdin/stdout and that connection. Point
an MCP-speaking agent at this process's stdio and it plays as if connected
directly — the same shape the original's TCP-backed client used, adapted
to a transparent byte relay since this repo speaks mcp-go framing on both
ends.

Examples:
  lightcycle play --server localhost:9090`,
	Run: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&flagPlayServer, "server", "localhost:9090", "Server address (host:port) of the TCP MCP gateway")
}

func runPlay(cmd *cobra.Command, args []string) {
	conn, err := net.Dial("tcp", flagPlayServer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to %s: %v\n", flagPlayServer, err)
		os.Exit(1)
	}
	defer conn.Close()

	fmt.Fprintf(os.Stderr, "connected to %s, relaying MCP stdio\n", flagPlayServer)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		io.Copy(conn, os.Stdin)
		if tcp, ok := conn.(*net.TCPConn); ok {
			tcp.CloseWrite()
		}
	}()
	go func() {
		defer wg.Done()
		io.Copy(os.Stdout, conn)
	}()
	wg.Wait()
}
