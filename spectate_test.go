package main

import (
	"testing"
	"time"

	"github.com/wricardo/lightcycle/game/engine"
	"github.com/wricardo/lightcycle/game/service"
)

func TestCellGlyph(t *testing.T) {
	tests := []struct {
		cell int
		want string
	}{
		{int(engine.CellEmpty), "."},
		{int(engine.CellWall), "#"},
		{int(engine.CellObstruction), "X"},
	}
	for _, tt := range tests {
		if got := cellGlyph(tt.cell); got != tt.want {
			t.Errorf("cellGlyph(%d) = %q, want %q", tt.cell, got, tt.want)
		}
	}
}

func TestRenderCellTrailDigit(t *testing.T) {
	rendered := renderCell(3) // player 0's trail
	if rendered == "" {
		t.Error("expected a non-empty render for a trail cell")
	}
}

func TestTargetGameByID(t *testing.T) {
	m := newSpectateModel("localhost:8080", "abc123")
	m.resp = gamesResponse{
		Active: []service.GameSnapshot{
			{ID: "zzz999"},
			{ID: "abc123"},
		},
	}
	got := m.targetGame()
	if got == nil || got.ID != "abc123" {
		t.Fatalf("expected to find game abc123, got %+v", got)
	}
}

func TestTargetGameFallsBackToMostRecentlyCreated(t *testing.T) {
	m := newSpectateModel("localhost:8080", "")
	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	m.resp = gamesResponse{
		Active: []service.GameSnapshot{
			{ID: "older", CreatedAt: older},
			{ID: "newer", CreatedAt: newer},
		},
	}
	got := m.targetGame()
	if got == nil || got.ID != "newer" {
		t.Fatalf("expected to pick the most recently created game, got %+v", got)
	}
}

func TestTargetGameNoneActive(t *testing.T) {
	m := newSpectateModel("localhost:8080", "")
	if got := m.targetGame(); got != nil {
		t.Errorf("expected nil when no games are active, got %+v", got)
	}
}

func TestTargetGameFallsBackToFinishedByID(t *testing.T) {
	m := newSpectateModel("localhost:8080", "done1")
	m.resp = gamesResponse{
		Finished: []service.GameSnapshot{{ID: "done1"}},
	}
	got := m.targetGame()
	if got == nil || got.ID != "done1" {
		t.Fatalf("expected to find finished game done1, got %+v", got)
	}
}
