package engine

import "testing"

func TestCatalogResolvesFiveBuiltinCourses(t *testing.T) {
	cat := NewCatalog()
	names := map[int]string{
		1: "Open Arena",
		2: "The Maze",
		3: "Narrow Corridors",
		4: "The Gauntlet",
		5: "Chaos",
	}
	for id, name := range names {
		c := cat.Get(id)
		if c.Name != name {
			t.Fatalf("course %d: got %q, want %q", id, c.Name, name)
		}
	}
}

func TestCatalogClampsOutOfRangeLevels(t *testing.T) {
	cat := NewCatalog()
	if cat.Get(0).ID != cat.Get(1).ID {
		t.Fatalf("level 0 should clamp to level 1")
	}
	if cat.Get(99).ID != 5 {
		t.Fatalf("level 99 should clamp to the highest known level")
	}
}

func TestChaosIsDeterministicPerSeed(t *testing.T) {
	c := courseChaos(42)
	d := courseChaos(42)
	if len(c.Walls) != len(d.Walls) {
		t.Fatalf("same seed produced different wall counts: %d vs %d", len(c.Walls), len(d.Walls))
	}
	for i := range c.Walls {
		if c.Walls[i] != d.Walls[i] {
			t.Fatalf("same seed produced different wall layout at %d", i)
		}
	}

	e := courseChaos(7)
	same := len(c.Walls) == len(e.Walls)
	if same {
		for i := range c.Walls {
			if c.Walls[i] != e.Walls[i] {
				same = false
				break
			}
		}
	}
	if same {
		t.Fatalf("different seeds produced an identical layout, seeding looks broken")
	}
}

func TestValidateCourseRejectsCrampedSpawns(t *testing.T) {
	bad := &Course{
		Name: "Tiny", Width: 10, Height: 10, MaxPlayers: 2, MinSpawnDist: 5,
		spawns: []spawnPoint{{1, 1, Up}, {2, 2, Down}},
	}
	if err := ValidateCourse(bad); err == nil {
		t.Fatalf("expected validation error for cramped spawn points")
	}
}

func TestGenerateWorldPlacesBorderWalls(t *testing.T) {
	cat := NewCatalog()
	w := GenerateWorld("g1", cat.Get(1), 1)
	for x := 0; x < w.Width; x++ {
		if w.Grid[0][x] != CellWall || w.Grid[w.Height-1][x] != CellWall {
			t.Fatalf("expected border wall at column %d", x)
		}
	}
	for y := 0; y < w.Height; y++ {
		if w.Grid[y][0] != CellWall || w.Grid[y][w.Width-1] != CellWall {
			t.Fatalf("expected border wall at row %d", y)
		}
	}
}
