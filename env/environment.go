// Package env implements the Environment: mutable multi-agent state over a
// grid, with conflict-resolved joint stepping, reversible history, and
// random action sampling. See spec §3 (Environment) and §4.1.
package env

import (
	"math/rand"
	"time"

	"github.com/kmkozak/gridmcts/grid"
)

// Agent is one of the N independently controlled entities moving on the
// grid: its current position, its goal, and whether it has ever reached
// that goal at the end of a step.
type Agent struct {
	Pos     grid.Pos
	Goal    grid.Pos
	Reached bool
}

// Environment owns the grid (shared, read-only), the per-agent records, a
// stack of past joint actions (for StepBack), and an RNG. See spec §3
// invariants (a)-(d).
type Environment struct {
	g       *grid.Grid
	agents  []Agent
	history [][]grid.Action
	rng     *rand.Rand
	seed    int64 // last seed passed to SetSeed; <0 means wall-clock reseeding
}

// NewEnvironment builds an Environment with no agents yet; use AddAgent to
// populate it, matching the "Build an Environment" sequence of spec §6.
func NewEnvironment(g *grid.Grid) *Environment {
	e := &Environment{g: g}
	e.SetSeed(-1)
	return e
}

// AddAgent registers a new agent with the given start and goal cell.
func (e *Environment) AddAgent(start, goal grid.Pos) {
	e.agents = append(e.agents, Agent{Pos: start, Goal: goal})
}

// SetSeed seeds the RNG. A negative seed reseeds from wall-clock time and
// marks the environment so that future reseeds (e.g. on Clone) also draw
// from wall-clock time instead of being suppressed.
func (e *Environment) SetSeed(seed int64) {
	e.seed = seed
	if seed < 0 {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		return
	}
	e.rng = rand.New(rand.NewSource(seed))
}

// ReseedFromClock draws a fresh wall-clock seed, unless a deterministic seed
// was supplied via SetSeed (in which case reseeding is suppressed, per
// spec §5 "RNG"). Rollout calls this; Clone applies the same rule when it
// builds the clone's RNG.
func (e *Environment) ReseedFromClock() {
	if e.seed < 0 {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
}

// Grid returns the shared, read-only grid this environment steps over.
func (e *Environment) Grid() *grid.Grid { return e.g }

// NumAgents returns N.
func (e *Environment) NumAgents() int { return len(e.agents) }

// ReachedGoal reports whether agent i has reached its goal. Out-of-range i
// returns false rather than faulting, per spec §7(a)/(c).
func (e *Environment) ReachedGoal(i int) bool {
	if i < 0 || i >= len(e.agents) {
		return false
	}
	return e.agents[i].Reached
}

// AgentPos returns agent i's current position.
func (e *Environment) AgentPos(i int) grid.Pos { return e.agents[i].Pos }

// AgentGoal returns agent i's goal position.
func (e *Environment) AgentGoal(i int) grid.Pos { return e.agents[i].Goal }

// AllDone reports whether every agent has reached its goal.
func (e *Environment) AllDone() bool {
	for i := range e.agents {
		if !e.agents[i].Reached {
			return false
		}
	}
	return true
}

// HistoryLen returns the number of Step calls since the last fully-unwound
// StepBack sequence; spec §3 invariant (d).
func (e *Environment) HistoryLen() int { return len(e.history) }

// CheckAction is a pure predicate: would taking action a from agent i's
// current cell be legal, optionally also forbidding cells currently
// occupied by other agents? It never mutates state.
func (e *Environment) CheckAction(agent int, a grid.Action, agentsAsObstacles bool) bool {
	if agent < 0 || agent >= len(e.agents) {
		return false
	}
	dest := e.agents[agent].Pos.Add(a)
	if !e.g.Traversable(dest) {
		return false
	}
	if agentsAsObstacles {
		for i := range e.agents {
			if i != agent && e.agents[i].Pos == dest {
				return false
			}
		}
	}
	return true
}

// Step applies a joint action (length N) with the conflict resolution of
// spec §4.1:
//  1. pre-reached agents are forced to Stay;
//  2. tentative next positions are computed by vector addition;
//  3. vertex and swap conflicts are resolved (pairwise, index order) by
//     reverting both agents to Stay;
//  4. off-grid/obstacle destinations are reverted to Stay;
//  5. agents landing on their goal score +1 and latch Reached.
//
// The (possibly rewritten) joint action is pushed on the history stack and
// the new positions are committed. Step returns the summed reward.
func (e *Environment) Step(actions []grid.Action) float64 {
	n := len(e.agents)
	next := make([]grid.Pos, n)
	committed := make([]grid.Action, n)
	copy(committed, actions)

	for i := 0; i < n; i++ {
		if e.agents[i].Reached {
			next[i] = e.agents[i].Pos
			committed[i] = grid.Stay
			continue
		}
		next[i] = e.agents[i].Pos.Add(committed[i])
	}

	// Vertex and swap conflicts: a single pairwise pass suffices, since
	// reversion only ever turns a move into a "stay", never the reverse.
	for i := 0; i < n; i++ {
		if e.agents[i].Reached {
			continue
		}
		for j := i + 1; j < n; j++ {
			if e.agents[j].Reached {
				continue
			}
			vertex := next[i] == next[j]
			swap := next[i] == e.agents[j].Pos && next[j] == e.agents[i].Pos
			if vertex || swap {
				next[i] = e.agents[i].Pos
				next[j] = e.agents[j].Pos
				committed[i] = grid.Stay
				committed[j] = grid.Stay
			}
		}
	}

	// Off-grid / obstacle rejection.
	for i := 0; i < n; i++ {
		if !e.g.Traversable(next[i]) {
			next[i] = e.agents[i].Pos
			committed[i] = grid.Stay
		}
	}

	reward := 0.0
	for i := 0; i < n; i++ {
		if e.agents[i].Reached {
			continue
		}
		if next[i] == e.agents[i].Goal {
			reward += 1
			e.agents[i].Reached = true
		}
	}

	e.history = append(e.history, committed)
	for i := 0; i < n; i++ {
		e.agents[i].Pos = next[i]
	}

	return reward
}

// StepBack pops the top joint action, subtracts each agent's action vector
// from its position, and clears any reached-flag whose agent is no longer
// on its goal. Panics if the history is empty (programmer error, per
// spec §7a).
func (e *Environment) StepBack() {
	if len(e.history) == 0 {
		panic("env: StepBack called with empty history")
	}
	last := e.history[len(e.history)-1]
	e.history = e.history[:len(e.history)-1]

	for i := range e.agents {
		d := last[i]
		e.agents[i].Pos = e.agents[i].Pos.Add(inverse(d))
		if e.agents[i].Pos != e.agents[i].Goal {
			e.agents[i].Reached = false
		}
	}
}

// inverse returns the action that undoes a, used only by StepBack.
func inverse(a grid.Action) grid.Action {
	switch a {
	case grid.Up:
		return grid.Down
	case grid.Down:
		return grid.Up
	case grid.Left:
		return grid.Right
	case grid.Right:
		return grid.Left
	default:
		return grid.Stay
	}
}

// SampleActions draws one action per agent uniformly from
// [0, numActions). If useMoveLimits, illegal actions are rejected and
// resampled; if additionally agentsAsObstacles, actions landing on another
// agent's current cell are also rejected. Stay is always legal, so
// termination is guaranteed.
func (e *Environment) SampleActions(numActions int, useMoveLimits, agentsAsObstacles bool) []grid.Action {
	actions := make([]grid.Action, len(e.agents))
	for i := range e.agents {
		a := grid.Action(e.rng.Intn(numActions))
		if useMoveLimits {
			for !e.CheckAction(i, a, agentsAsObstacles) {
				a = grid.Action(e.rng.Intn(numActions))
			}
		}
		actions[i] = a
	}
	return actions
}

// Clone returns an independent copy: independent history, positions,
// reached-flags, and a freshly reseeded RNG to decorrelate concurrent
// workers. The grid is shared (it is immutable and safe to read
// concurrently).
func (e *Environment) Clone() *Environment {
	clone := &Environment{
		g:      e.g,
		agents: append([]Agent(nil), e.agents...),
		seed:   e.seed,
	}
	clone.history = make([][]grid.Action, len(e.history))
	for i, h := range e.history {
		clone.history[i] = append([]grid.Action(nil), h...)
	}
	if e.seed < 0 {
		clone.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	} else {
		// Deterministic seed: reseeding is suppressed, so the clone starts
		// from the same source material as its parent.
		clone.rng = rand.New(rand.NewSource(e.seed))
	}
	return clone
}
