package grid

import "testing"

func TestAddObstacleAndTraversable(t *testing.T) {
	g := NewGrid(2, 2)
	g.AddObstacle(0, 1)

	cases := []struct {
		p    Pos
		want bool
	}{
		{Pos{0, 0}, true},
		{Pos{0, 1}, false},
		{Pos{1, 0}, true},
		{Pos{1, 1}, true},
		{Pos{-1, 0}, false},
		{Pos{2, 0}, false},
	}

	for _, c := range cases {
		if got := g.Traversable(c.p); got != c.want {
			t.Errorf("Traversable(%v) = %v, want %v", c.p, got, c.want)
		}
	}
}

func TestCheckMove(t *testing.T) {
	g := NewGrid(2, 2)
	g.AddObstacle(0, 1)

	if g.CheckMove(Pos{0, 0}, Right) {
		t.Error("expected right move into obstacle to be illegal")
	}
	if !g.CheckMove(Pos{0, 0}, Down) {
		t.Error("expected down move onto traversable cell to be legal")
	}
	if !g.CheckMove(Pos{0, 0}, Stay) {
		t.Error("stay must always be legal")
	}
	if g.CheckMove(Pos{0, 0}, Up) {
		t.Error("expected move off-grid to be illegal")
	}
}

func TestNeighbors(t *testing.T) {
	g := NewGrid(3, 3)
	g.AddObstacle(0, 1)

	var got []Pos
	g.Neighbors(Pos{0, 0}, func(p Pos, a Action) {
		got = append(got, p)
	})

	if len(got) != 1 || got[0] != (Pos{1, 0}) {
		t.Errorf("Neighbors(0,0) = %v, want only (1,0) since (0,1) is an obstacle and (-1,0) is off-grid", got)
	}
}
