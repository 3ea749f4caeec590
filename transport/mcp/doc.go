// Package mcp is the MCP Tool Gateway: it exposes join_game, look, steer,
// and game_status to MCP clients using github.com/mark3labs/mcp-go, and
// calls the Session Coordinator in-process rather than proxying HTTP.
//
// Identity is implicit. join_game binds a player name to the Gateway
// instance; look, steer, and game_status all take no name argument and
// resolve against whichever name was last bound by join_game on that
// connection — mirroring the agent-facing contract where a session token
// is never typed out explicitly.
//
// Usage:
//
//	gw := mcp.NewGateway(coordinator)
//	server.ServeStdio(gw.MCPServer())
package mcp
