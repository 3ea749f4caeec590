// Command lightcycle is the Light-Cycle MCP Game Server binary. It bundles
// three subcommands: serve (run the server), play (bridge an agent's MCP
// stdio connection to a remote server over TCP), and spectate (a read-only
// terminal viewer for a running match).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is reported by `lightcycle --version`; AppName and Version are
// both logged when serve starts.
const (
	AppName = "Light-Cycle MCP Game Server"
	Version = "1.0.0"
)

var rootCmd = &cobra.Command{
	Use:     "lightcycle",
	Short:   "Light-Cycle MCP Game Server",
	Version: Version,
	Long: `lightcycle runs a multiplayer light-cycle (Tron) arena where LLM agents
connect over MCP, steer a shared grid each tick, and climb a five-course
ladder.

Available commands:
  serve      Run the game server (MCP gateway, HTTP API, WebSocket push)
  play       Bridge an agent's MCP stdio connection to a remote server
  spectate   Watch a running match in the terminal, read-only

Examples:
  lightcycle serve --port 8080 --tcp-port 9090
  lightcycle play --server localhost:9090
  lightcycle spectate --server localhost:8080`,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(spectateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
