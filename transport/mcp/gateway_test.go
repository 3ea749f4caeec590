package mcp

import (
	"context"
	"io"
	"testing"

	gomcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/charmbracelet/log"

	"github.com/wricardo/lightcycle/game/engine"
	"github.com/wricardo/lightcycle/game/service"
)

func newTestGateway() *Gateway {
	cat := engine.NewCatalog()
	coord := service.NewCoordinator(cat, nil, log.New(io.Discard))
	return NewGateway(coord)
}

func toolRequest(args map[string]interface{}) gomcp.CallToolRequest {
	var req gomcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(r *gomcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	if tc, ok := r.Content[0].(gomcp.TextContent); ok {
		return tc.Text
	}
	return ""
}

func TestLookBeforeJoinErrors(t *testing.T) {
	g := newTestGateway()
	res, err := g.handleLook(context.Background(), toolRequest(nil))
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected an error result before join_game")
	}
}

func TestJoinGameBindsNameForSubsequentCalls(t *testing.T) {
	g := newTestGateway()
	res, err := g.handleJoinGame(context.Background(), toolRequest(map[string]interface{}{"name": "alice"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("expected join_game to succeed, got error result: %s", resultText(res))
	}
	if g.boundName() != "alice" {
		t.Fatalf("expected the gateway to bind the joined name")
	}
}

func TestJoinGameRejectsEmptyName(t *testing.T) {
	g := newTestGateway()
	res, _ := g.handleJoinGame(context.Background(), toolRequest(map[string]interface{}{"name": "  "}))
	if !res.IsError {
		t.Fatalf("expected an error for an empty name")
	}
}

func TestSteerRejectsUnknownDirection(t *testing.T) {
	g := newTestGateway()
	g.handleJoinGame(context.Background(), toolRequest(map[string]interface{}{"name": "alice"}))
	g.handleJoinGame(context.Background(), toolRequest(map[string]interface{}{"name": "bob"}))

	res, err := g.handleSteer(context.Background(), toolRequest(map[string]interface{}{"direction": "backwards"}))
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected an error result for an invalid direction")
	}
}

func TestGameStatusReflectsLobbyQueue(t *testing.T) {
	g := newTestGateway()
	g.handleJoinGame(context.Background(), toolRequest(map[string]interface{}{"name": "alice"}))

	res, err := g.handleGameStatus(context.Background(), toolRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(res))
	}
	if resultText(res) == "" {
		t.Fatalf("expected non-empty status text")
	}
}
