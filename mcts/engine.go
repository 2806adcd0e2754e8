// Package mcts implements the MCTS Engine: three parallelization strategies
// (sequential, batched virtual-loss, and root-parallel tree merging) layered
// over shared selection/rollout/backup primitives. See spec §4.4/§5.
package mcts

import (
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/kmkozak/gridmcts/env"
	"github.com/kmkozak/gridmcts/grid"
	"github.com/kmkozak/gridmcts/oracle"
)

// auxTree is one of the persistent root-parallel replicas besides the
// primary (index 0 conceptually; Engine.aux holds indices 1..num_parallel_trees-1).
type auxTree struct {
	arena *arena
	root  nodeIndex
}

// Engine owns the primary tree, any auxiliary trees for root parallelization,
// the live environment, and the BFS oracle (if enabled). Batched,
// tree-parallel and multi-simulation modes each build their own bounded
// errgroup per call.
type Engine struct {
	cfg *Config

	primary     *arena
	primaryRoot nodeIndex
	aux         []auxTree

	liveEnv *env.Environment
	fields  []*oracle.Field

	forcedStay bool // diagnostic: last Act() call had to fall back to Stay with no children
}

// NewEngine default-constructs an Engine with DefaultConfig and no
// environment attached yet. Call SetConfig/SetEnv before Act().
func NewEngine() *Engine {
	return &Engine{cfg: DefaultConfig()}
}

// SetConfig installs cfg for subsequent SetEnv/Act calls.
func (e *Engine) SetConfig(cfg *Config) {
	e.cfg = cfg
}

// SetEnv attaches environment as the engine's live environment (kept by
// reference: Act clones it for simulation and then steps it in place),
// materializes the primary and auxiliary tree roots, and precomputes the
// BFS oracle when heuristic_coef > 0. See spec §6.
func (e *Engine) SetEnv(environment *env.Environment) {
	e.liveEnv = environment
	e.primary = newArena(e.cfg.NumActions)
	e.primaryRoot = 0

	e.aux = make([]auxTree, 0, max(0, e.cfg.NumParallelTrees-1))
	for i := 1; i < e.cfg.NumParallelTrees; i++ {
		e.aux = append(e.aux, auxTree{arena: newArena(e.cfg.NumActions), root: 0})
	}

	if e.cfg.HeuristicCoef > 0 {
		goals := make([]grid.Pos, environment.NumAgents())
		for i := range goals {
			goals[i] = environment.AgentGoal(i)
		}
		e.fields = oracle.Compute(environment.Grid(), goals)
	} else {
		e.fields = nil
	}
}

// toActions converts a pending-action prefix (int8, as stored on nodes) to
// grid.Action for Environment calls.
func toActions(pending []int8) []grid.Action {
	out := make([]grid.Action, len(pending))
	for i, a := range pending {
		out[i] = grid.Action(a)
	}
	return out
}

// legal reports whether agent can take action k from scratch's current
// state, honoring use_move_limits/agents_as_obstacles.
func (e *Engine) legal(scratch *env.Environment, agent, k int) bool {
	if !e.cfg.UseMoveLimits {
		return true
	}
	return scratch.CheckAction(agent, grid.Action(k), e.cfg.AgentsAsObstacles)
}

// uct is the sequential selection score of spec §4.4, including the
// BFS-distance bias when the oracle is enabled.
func (e *Engine) uct(a *arena, parent, child *node, agent int, scratch *env.Environment) float64 {
	bias := 0.0
	if e.fields != nil && e.cfg.HeuristicCoef > 0 {
		dest := scratch.AgentPos(agent).Add(grid.Action(child.actionID))
		bias = e.cfg.HeuristicCoef * float64(e.fields[agent].At(dest)) / float64(child.visitCount)
	}
	return child.meanValue - bias + e.cfg.UCTC*math.Sqrt(2*math.Log(float64(parent.visitCount))/float64(child.visitCount))
}

// expansion scans n's children in action order for the first legal, empty
// slot; failing that, returns the legal non-empty child maximizing uct.
// Returns Stay if no legal child exists at all. See spec §4.4 step 1.
func (e *Engine) expansion(a *arena, n *node, agent int, scratch *env.Environment) int8 {
	best := int8(grid.Stay)
	bestScore := math.Inf(-1)
	for k := 0; k < n.numActions; k++ {
		if !e.legal(scratch, agent, k) {
			continue
		}
		childIdx := n.children[k]
		if childIdx == noChild {
			return int8(k)
		}
		if score := e.uct(a, n, a.get(childIdx), agent, scratch); score > bestScore {
			bestScore = score
			best = int8(k)
		}
	}
	return best
}

// selection descends the tree from idx, committing joint actions to scratch
// as pending fills, expanding at most one new leaf, and backing up the
// discounted score. See spec §4.4 "Selection (sequential)".
func (e *Engine) selection(a *arena, idx nodeIndex, pending []int8, scratch *env.Environment) float64 {
	n := a.get(idx)
	numAgents := scratch.NumAgents()
	agent := len(pending) % numAgents
	nextAgent := (agent + 1) % numAgents

	action := int8(grid.Stay)
	if !scratch.ReachedGoal(agent) {
		action = e.expansion(a, n, agent, scratch)
	}

	var score float64
	if len(pending)+1 == numAgents {
		joint := append(toActions(pending), grid.Action(action))
		reward := scratch.Step(joint)
		if scratch.AllDone() {
			score = reward
		} else if childIdx := n.children[action]; childIdx == noChild {
			score = reward + e.cfg.Gamma*e.rollout(scratch)
			n.children[action] = a.allocate(idx, action, nextAgent, n.numActions, score)
		} else {
			score = reward + e.cfg.Gamma*e.selection(a, childIdx, nil, scratch)
		}
		n.updateValue(score)
		scratch.StepBack()
	} else {
		childIdx := n.children[action]
		if childIdx == noChild {
			childIdx = a.allocate(idx, action, nextAgent, n.numActions, 0)
			n.children[action] = childIdx
		}
		score = e.selection(a, childIdx, append(pending, action), scratch)
		n.updateValue(score)
	}
	return score * e.cfg.Gamma
}

// rollout reseeds scratch's RNG and samples random legal joint actions,
// accumulating discounted reward until all_done or steps_limit, then rewinds
// scratch step-by-step so it is left exactly as it entered. See spec §4.4
// "Rollout". When multi_simulations > 1, independent rollouts run
// concurrently on disjoint clones and their scores are averaged.
func (e *Engine) rollout(scratch *env.Environment) float64 {
	if e.cfg.MultiSimulations > 1 {
		scores := make([]float64, e.cfg.MultiSimulations)
		var g errgroup.Group
		g.SetLimit(e.cfg.workerPoolSize())
		for i := 0; i < e.cfg.MultiSimulations; i++ {
			i := i
			clone := scratch.Clone()
			g.Go(func() error {
				scores[i] = e.singleRollout(clone)
				return nil
			})
		}
		_ = g.Wait()
		total := 0.0
		for _, s := range scores {
			total += s
		}
		return total / float64(e.cfg.MultiSimulations)
	}
	return e.singleRollout(scratch)
}

func (e *Engine) singleRollout(scratch *env.Environment) float64 {
	scratch.ReseedFromClock()
	score := 0.0
	discount := 1.0
	steps := 0
	for !scratch.AllDone() && steps < e.cfg.StepsLimit {
		reward := scratch.Step(scratch.SampleActions(e.cfg.NumActions, e.cfg.UseMoveLimits, e.cfg.AgentsAsObstacles))
		steps++
		score += reward * discount
		discount *= e.cfg.Gamma
	}
	for i := 0; i < steps; i++ {
		scratch.StepBack()
	}
	return score
}

// sequentialLoop runs num_expansions selection/backup iterations rooted at
// the primary tree. See spec §4.4 "Sequential loop".
func (e *Engine) sequentialLoop(pending []int8, scratch *env.Environment) {
	root := e.primary.get(e.primaryRoot)
	for i := 0; i < e.cfg.NumExpansions; i++ {
		score := e.selection(e.primary, e.primaryRoot, pending, scratch)
		root.updateValue(score)
	}
}
