// Package grid implements the Grid & Action Model: a rectangular cell grid
// tagged traversable/obstacle, the five-move action alphabet, and the
// kinematic rule mapping a position and a move to a neighbor cell.
package grid

import "fmt"

// Cell tags a single grid position.
type Cell uint8

const (
	Traversable Cell = 0
	Obstacle    Cell = 1
)

// Action is one of the five discrete moves an agent can take in a single
// timestep. The zero value, Stay, is always legal.
type Action int8

const (
	Stay Action = iota
	Up
	Down
	Left
	Right
	NumActions = int(Right) + 1
)

func (a Action) String() string {
	switch a {
	case Stay:
		return "stay"
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// delta is the row/col displacement for each action, indexed by Action.
var delta = [NumActions]Pos{
	Stay:  {0, 0},
	Up:    {-1, 0},
	Down:  {1, 0},
	Left:  {0, -1},
	Right: {0, 1},
}

// Pos is a (row, col) grid coordinate.
type Pos struct {
	R, C int
}

// Add returns the position reached by applying action a from p. The result
// is not checked against grid bounds or obstacles; use Grid.InBounds and
// Grid.Traversable (or Grid.CheckMove) for that.
func (p Pos) Add(a Action) Pos {
	d := delta[a]
	return Pos{p.R + d.R, p.C + d.C}
}

// Grid is a rectangular obstacle map. It is immutable after construction:
// callers build it with NewGrid and AddObstacle, then never mutate it again,
// so it may be shared read-only across Environment clones and goroutines.
type Grid struct {
	height, width int
	cells         []Cell // row-major, len == height*width
}

// NewGrid creates an H x W grid with every cell traversable.
func NewGrid(height, width int) *Grid {
	if height <= 0 || width <= 0 {
		panic("grid: height and width must be positive")
	}
	return &Grid{
		height: height,
		width:  width,
		cells:  make([]Cell, height*width),
	}
}

func (g *Grid) Height() int { return g.height }
func (g *Grid) Width() int  { return g.width }

// AddObstacle marks (r, c) as impassable. Out-of-range coordinates are
// ignored (programmer error, not a runtime fault per spec §7).
func (g *Grid) AddObstacle(r, c int) {
	if !g.InBounds(Pos{r, c}) {
		return
	}
	g.cells[r*g.width+c] = Obstacle
}

// InBounds reports whether p lies within the grid's rectangle.
func (g *Grid) InBounds(p Pos) bool {
	return p.R >= 0 && p.R < g.height && p.C >= 0 && p.C < g.width
}

// Traversable reports whether p is in-bounds and not an obstacle.
func (g *Grid) Traversable(p Pos) bool {
	return g.InBounds(p) && g.cells[p.R*g.width+p.C] == Traversable
}

// CheckMove reports whether moving from p via action a lands on a
// traversable, in-bounds cell. It does not consider other agents.
func (g *Grid) CheckMove(p Pos, a Action) bool {
	return g.Traversable(p.Add(a))
}

// Neighbors calls fn once per cardinal neighbor of p (Up, Down, Left,
// Right; never Stay) that is traversable, passing the neighbor position and
// the action that reaches it from p.
func (g *Grid) Neighbors(p Pos, fn func(Pos, Action)) {
	for a := Up; a <= Right; a++ {
		n := p.Add(a)
		if g.Traversable(n) {
			fn(n, a)
		}
	}
}
