package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync"

	gomcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/lightcycle/game/engine"
	"github.com/wricardo/lightcycle/game/service"
)

const instructions = `Light-Cycle MCP Game! You control a light-cycle on a grid.
Your cycle moves one cell forward every tick, steered or not — a 'steer' call sets your turn for the next tick and waits for it.
You choose a direction (left/right/straight) and it moves one cell that way.
Crash into anything (walls, trails, obstructions, or another rider) and you lose.
Last cycle standing wins!

Tools:
1. join_game(name) - Join a game with your name
2. look() - See the grid around you (call before every steer!)
3. steer(direction) - Turn + move one step: "left", "right", or "straight"
4. game_status() - Check game outcome and scores

Strategy: Always call 'look' first, then 'steer' to move. Repeat.
Each tick = one grid step. Longer distance = more points. Win to advance a level.`

// Gateway registers the four agent-facing tools (join_game, look, steer,
// game_status) and calls the Session Coordinator in-process — there is no
// REST hop between an agent's tool call and the running match. Unlike the
// teacher's client.go, which proxied every tool call over HTTP to a
// separate API server, this gateway talks directly to a *service.Coordinator.
//
// Identity is implicit: join_game binds a player name to this Gateway
// instance, and every later call from the same MCP connection omits the
// name parameter, matching the agent-facing contract in SPEC_FULL.md. A
// Gateway is scoped to exactly one MCP session — serve.go constructs a
// fresh one per TCP connection and per HTTP Mcp-Session-Id — so binding
// that identity to a struct field here never leaks across sessions.
type Gateway struct {
	coord     *service.Coordinator
	mcpServer *server.MCPServer

	mu         sync.Mutex
	playerName string
}

// NewGateway builds an MCP server wired to coord and registers its four
// tools.
func NewGateway(coord *service.Coordinator) *Gateway {
	g := &Gateway{coord: coord}
	g.mcpServer = server.NewMCPServer(
		"Light-Cycle Arena",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(instructions),
	)
	g.registerTools()
	return g
}

// MCPServer returns the underlying mcp-go server, for wiring into stdio or
// HTTP transports.
func (g *Gateway) MCPServer() *server.MCPServer {
	return g.mcpServer
}

func (g *Gateway) registerTools() {
	g.mcpServer.AddTool(gomcp.Tool{
		Name: "join_game",
		Description: "Join the next available light-cycle game. You will be matched with " +
			"other players by skill level. Once the game starts, use 'look' to see the grid " +
			"and 'steer' to turn. Your light-cycle moves forward every tick, whether or not you steer.",
		InputSchema: gomcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Your display name for the game",
				},
			},
			Required: []string{"name"},
		},
	}, g.handleJoinGame)

	g.mcpServer.AddTool(gomcp.Tool{
		Name: "look",
		Description: "Look at the game grid around your light-cycle. Returns a text map " +
			"showing your position (@), your own trail (|), trails (digits, per-opponent), " +
			"walls (#), obstructions (X), and empty space (.). Call this before every steer.",
		InputSchema: gomcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
	}, g.handleLook)

	g.mcpServer.AddTool(gomcp.Tool{
		Name: "steer",
		Description: "Steer your light-cycle and move ONE step forward. direction must be " +
			"'left', 'right', or 'straight'. This call blocks until the current tick resolves " +
			"and returns your updated view. Crashing into anything ends your match.",
		InputSchema: gomcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"direction": map[string]interface{}{
					"type":        "string",
					"description": "'left', 'right', or 'straight'",
					"enum":        []string{"left", "right", "straight"},
				},
			},
			Required: []string{"direction"},
		},
	}, g.handleSteer)

	g.mcpServer.AddTool(gomcp.Tool{
		Name: "game_status",
		Description: "Check whether you're queued, in a running match, or see the outcome of " +
			"your most recently finished match, followed by the top five leaderboard entries.",
		InputSchema: gomcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
	}, g.handleGameStatus)
}

func (g *Gateway) boundName() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playerName
}

func (g *Gateway) handleJoinGame(ctx context.Context, request gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	name, _ := args["name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return gomcp.NewToolResultError("name cannot be empty"), nil
	}

	g.mu.Lock()
	g.playerName = name
	g.mu.Unlock()

	outcome, err := g.coord.Join(name)
	if err != nil {
		return gomcp.NewToolResultError(err.Error()), nil
	}
	return gomcp.NewToolResultText(outcome.Message), nil
}

func (g *Gateway) handleLook(ctx context.Context, request gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	name := g.boundName()
	if name == "" {
		return gomcp.NewToolResultError("use join_game first"), nil
	}
	text, err := g.coord.Look(name)
	if err != nil {
		return gomcp.NewToolResultError(err.Error()), nil
	}
	return gomcp.NewToolResultText(text), nil
}

func (g *Gateway) handleSteer(ctx context.Context, request gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	name := g.boundName()
	if name == "" {
		return gomcp.NewToolResultError("use join_game first"), nil
	}
	args, _ := request.Params.Arguments.(map[string]interface{})
	dir, _ := args["direction"].(string)

	intent, ok := parseSteerIntent(dir)
	if !ok {
		return gomcp.NewToolResultError(`direction must be "left", "right", or "straight"`), nil
	}

	view, err := g.coord.Steer(name, intent)
	if err != nil {
		return gomcp.NewToolResultError(err.Error()), nil
	}
	return gomcp.NewToolResultText(fmt.Sprintf("%sOutcome: %s\n", view.Text, view.Outcome)), nil
}

func (g *Gateway) handleGameStatus(ctx context.Context, request gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	name := g.boundName()
	if name == "" {
		return gomcp.NewToolResultError("use join_game first"), nil
	}
	text, err := g.coord.GameStatus(name)
	if err != nil {
		return gomcp.NewToolResultError(err.Error()), nil
	}
	if board := g.coord.Leaderboard(); len(board) > 0 {
		var b strings.Builder
		b.WriteString(text)
		b.WriteString("\nLeaderboard:\n")
		for i, e := range board {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "%d. %s: %d points, %d wins, %d games\n", i+1, e.Name, e.TotalPoints, e.Wins, e.GamesPlayed)
		}
		text = b.String()
	}
	return gomcp.NewToolResultText(text), nil
}

func parseSteerIntent(dir string) (engine.SteerIntent, bool) {
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "left":
		return engine.SteerLeft, true
	case "right":
		return engine.SteerRight, true
	case "straight", "":
		return engine.SteerStraight, true
	default:
		return 0, false
	}
}
