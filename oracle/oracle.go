// Package oracle computes the Shortest-Path Oracle: for each agent, a
// breadth-first distance field rooted at its goal, used to bias MCTS
// selection toward progress. See spec §4.2.
package oracle

import "github.com/kmkozak/gridmcts/grid"

// Unreachable is the sentinel distance for cells that cannot reach a given
// agent's goal at all (disconnected by obstacles).
const Unreachable = 1 << 30

// Field is one agent's goal-rooted distance field, row-major like Grid.
type Field struct {
	height, width int
	dist          []int
}

// At returns the BFS distance from p to the field's goal, or Unreachable if
// p cannot reach it (or is out of bounds).
func (f *Field) At(p grid.Pos) int {
	if p.R < 0 || p.R >= f.height || p.C < 0 || p.C >= f.width {
		return Unreachable
	}
	return f.dist[p.R*f.width+p.C]
}

// Compute builds one Field per agent by breadth-first expansion from each
// agent's goal cell over the grid's four cardinal moves, per spec §4.2.
// Obstacles and off-grid cells are never visited and keep Unreachable.
func Compute(g *grid.Grid, goals []grid.Pos) []*Field {
	fields := make([]*Field, len(goals))
	for i, goal := range goals {
		fields[i] = bfsFrom(g, goal)
	}
	return fields
}

func bfsFrom(g *grid.Grid, goal grid.Pos) *Field {
	h, w := g.Height(), g.Width()
	f := &Field{height: h, width: w, dist: make([]int, h*w)}
	for i := range f.dist {
		f.dist[i] = Unreachable
	}
	if !g.Traversable(goal) {
		return f
	}

	queue := make([]grid.Pos, 0, h*w)
	queue = append(queue, goal)
	f.dist[goal.R*w+goal.C] = 0

	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		d := f.dist[cur.R*w+cur.C]
		g.Neighbors(cur, func(n grid.Pos, _ grid.Action) {
			idx := n.R*w + n.C
			if f.dist[idx] == Unreachable {
				f.dist[idx] = d + 1
				queue = append(queue, n)
			}
		})
	}
	return f
}
