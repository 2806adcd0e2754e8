package mcts

import (
	"github.com/kmkozak/gridmcts/grid"
)

// ForcedStay reports whether the most recent Act() call had to fall back to
// the stay action for some agent because its node had no children at all —
// the "no legal action" case named as an open question in the design notes.
// Exposed only for diagnostics; it never changes Act()'s return value shape.
func (e *Engine) ForcedStay() bool {
	return e.forcedStay
}

// Act runs one decision step: for each not-yet-reached agent it grows the
// tree with num_expansions simulations (sequential, batched, or tree
// parallel, chosen by Config), commits the most-visited child's action, and
// advances every tree root accordingly. Once every agent has a committed
// action, the joint action is applied to the live environment and returned.
// See spec §4.4 "Mode selection" and §6.
func (e *Engine) Act() []grid.Action {
	numAgents := e.liveEnv.NumAgents()
	e.forcedStay = false

	if e.liveEnv.AllDone() {
		return make([]grid.Action, numAgents)
	}

	scratch := e.liveEnv.Clone()
	pending := make([]int8, 0, numAgents)

	for agent := 0; agent < numAgents; agent++ {
		if !e.liveEnv.ReachedGoal(agent) {
			switch {
			case e.cfg.BatchSize > 1:
				e.batchLoop(pending, scratch)
			case e.cfg.NumParallelTrees > 1:
				e.treeParallelLoop(pending, scratch)
			default:
				e.sequentialLoop(pending, scratch)
			}
		}

		if e.cfg.Render {
			e.render(agent)
		}

		root := e.primary.get(e.primaryRoot)
		action := root.pickMostVisitedChild(e.primary)
		if action < 0 {
			action = int8(grid.Stay)
			e.forcedStay = true
		}

		nextAgent := (agent + 1) % numAgents
		childIdx := root.children[action]
		if childIdx == noChild {
			childIdx = e.primary.allocate(e.primaryRoot, action, nextAgent, root.numActions, 0)
			root.children[action] = childIdx
		}
		e.primaryRoot = childIdx

		for i := range e.aux {
			auxRoot := e.aux[i].arena.get(e.aux[i].root)
			if auxRoot.children[action] != noChild {
				e.aux[i].root = auxRoot.children[action]
			} else {
				e.aux[i].root = e.aux[i].arena.allocate(e.aux[i].root, action, nextAgent, auxRoot.numActions, 0)
				auxRoot.children[action] = e.aux[i].root
			}
		}

		pending = append(pending, action)
	}

	joint := toActions(pending)
	e.liveEnv.Step(joint)
	if e.cfg.Render {
		renderJoint(joint)
	}
	return joint
}
