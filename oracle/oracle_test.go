package oracle

import (
	"testing"

	"github.com/kmkozak/gridmcts/grid"
)

func TestComputeEmptyGridMatchesManhattan(t *testing.T) {
	g := grid.NewGrid(5, 5)
	goal := grid.Pos{4, 4}
	fields := Compute(g, []grid.Pos{goal})
	f := fields[0]

	for r := 0; r < 5; r++ {
		for c := 0; c < 5; c++ {
			want := abs(r-goal.R) + abs(c-goal.C)
			if got := f.At(grid.Pos{r, c}); got != want {
				t.Errorf("At(%d,%d) = %d, want %d", r, c, got, want)
			}
		}
	}
}

func TestComputeGoalIsZero(t *testing.T) {
	g := grid.NewGrid(3, 3)
	goal := grid.Pos{1, 1}
	f := Compute(g, []grid.Pos{goal})[0]
	if f.At(goal) != 0 {
		t.Fatalf("dist[goal] = %d, want 0", f.At(goal))
	}
}

func TestComputeUnreachableBehindObstacles(t *testing.T) {
	g := grid.NewGrid(3, 3)
	// Wall off (0,0) from the rest of the grid.
	g.AddObstacle(0, 1)
	g.AddObstacle(1, 0)
	f := Compute(g, []grid.Pos{{2, 2}})[0]

	if got := f.At(grid.Pos{0, 0}); got != Unreachable {
		t.Fatalf("At(0,0) = %d, want Unreachable", got)
	}
}

func TestComputeNeighborLipschitz(t *testing.T) {
	g := grid.NewGrid(4, 4)
	g.AddObstacle(1, 1)
	g.AddObstacle(2, 2)
	f := Compute(g, []grid.Pos{{3, 3}})[0]

	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			p := grid.Pos{r, c}
			if f.At(p) == Unreachable {
				continue
			}
			g.Neighbors(p, func(n grid.Pos, _ grid.Action) {
				if f.At(n) == Unreachable {
					return
				}
				if f.At(p) > f.At(n)+1 {
					t.Errorf("dist[%v]=%d exceeds dist[%v]+1=%d", p, f.At(p), n, f.At(n)+1)
				}
			})
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
