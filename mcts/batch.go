package mcts

import (
	"math"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/kmkozak/gridmcts/env"
	"github.com/kmkozak/gridmcts/grid"
)

// selectActionForBatch picks the batch-UCT-maximizing legal action at n,
// skipping children already claimed by an in-flight descent this round.
// Returns -1 if no legal, unclaimed action remains.
func (e *Engine) selectActionForBatch(a *arena, n *node, agent int, scratch *env.Environment) int8 {
	best := int8(-1)
	bestScore := -1.0
	for k := 0; k < n.numActions; k++ {
		if !e.legal(scratch, agent, k) {
			continue
		}
		childIdx := n.children[k]
		if childIdx == noChild {
			if !n.pickedAction(k) {
				return int8(k)
			}
			continue
		}
		child := a.get(childIdx)
		adjusted := float64(child.visitCount) + float64(child.virtualCount)
		parentAdjusted := float64(n.visitCount) + float64(n.virtualCount)
		score := child.totalValue/adjusted + e.cfg.UCTC*math.Sqrt(2*math.Log(parentAdjusted)/adjusted)
		if score > bestScore {
			bestScore = score
			best = int8(k)
		}
	}
	return best
}

// batchSelection descends the tree once without updating real statistics,
// marking the claimed leaf's picked_mask and incrementing virtual_count at
// every node visited. The returned path's last entry is -1 if the descent
// found no legal expandable action and must be discarded.
func (e *Engine) batchSelection(a *arena, idx nodeIndex, pending []int8, scratch *env.Environment) []int8 {
	n := a.get(idx)
	numAgents := scratch.NumAgents()
	agent := len(pending) % numAgents

	action := int8(grid.Stay)
	if !scratch.ReachedGoal(agent) {
		action = e.selectActionForBatch(a, n, agent, scratch)
	}
	path := append(append([]int8{}, pending...), action)
	if action < 0 {
		return path
	}

	childIdx := n.children[action]
	if childIdx == noChild {
		n.markPicked(int(action))
		n.virtualCount++
		return path
	}
	// Once the joint action is full, step scratch so that legality deeper in
	// the tree is checked against the state at that depth, then rewind it.
	var result []int8
	if len(path)%numAgents == 0 {
		scratch.Step(toActions(path[len(path)-numAgents:]))
		result = e.batchSelection(a, childIdx, path, scratch)
		scratch.StepBack()
	} else {
		result = e.batchSelection(a, childIdx, path, scratch)
	}
	n.virtualCount++
	return result
}

// batchExpansion replays path (the tail beyond prev, an already-pending
// partial joint action) on scratch, committing full joint actions as they
// fill and discounting per level, then adds a discounted rollout
// contribution if scratch is not yet done. See spec §4.4 and the resolved
// discount-unification open question in DESIGN.md: the returned score
// already carries every discount it needs, so callers must not re-discount
// it in update_value_batch.
func (e *Engine) batchExpansion(path []int8, prev []int8, scratch *env.Environment) float64 {
	score := 0.0
	discount := 1.0
	numAgents := scratch.NumAgents()
	pending := append([]int8{}, prev...)

	commitIfFull := func() {
		if len(pending) == numAgents {
			reward := scratch.Step(toActions(pending))
			score += discount * reward
			discount *= e.cfg.Gamma
			pending = pending[:0]
		}
	}
	commitIfFull()
	for _, action := range path {
		pending = append(pending, action)
		commitIfFull()
	}
	if !scratch.AllDone() {
		score += e.cfg.Gamma * e.rollout(scratch)
	}
	return score
}

// batchLoop runs one round per num_expansions: B virtual-loss descents
// collected and dispatched to a bounded worker pool, then their scored
// paths are materialized into the tree in submission order. See spec §4.4
// "Batched selection with virtual loss".
func (e *Engine) batchLoop(pending []int8, scratch *env.Environment) {
	for round := 0; round < e.cfg.NumExpansions; round++ {
		e.primary.zeroVirtual(e.primaryRoot)

		paths := make([][]int8, 0, e.cfg.BatchSize)
		for b := 0; b < e.cfg.BatchSize; b++ {
			path := e.batchSelection(e.primary, e.primaryRoot, pending, scratch)
			if path[len(path)-1] >= 0 {
				paths = append(paths, path[len(pending):])
			}
		}

		scores := make([]float64, len(paths))
		var g errgroup.Group
		g.SetLimit(e.cfg.workerPoolSize())
		for i, path := range paths {
			i, path := i, path
			clone := scratch.Clone()
			g.Go(func() error {
				defer func() {
					if r := recover(); r != nil {
						klog.Errorf("mcts: batch worker panicked: %v", r)
						scores[i] = 0
					}
				}()
				scores[i] = e.batchExpansion(path, pending, clone)
				return nil
			})
		}
		_ = g.Wait()

		for i, path := range paths {
			localIdx := e.primaryRoot
			for _, action := range path[:len(path)-1] {
				localIdx = e.primary.get(localIdx).children[action]
			}
			local := e.primary.get(localIdx)
			action := path[len(path)-1]
			score := scores[i]
			if local.children[action] == noChild {
				nextAgent := (local.agentID + 1) % scratch.NumAgents()
				local.children[action] = e.primary.allocate(localIdx, action, nextAgent, local.numActions, score)
				e.updateValueBatch(local, score)
			} else {
				e.updateValueBatch(e.primary.get(local.children[action]), score)
			}
		}
	}
}

// updateValueBatch applies v to n, then to every ancestor up to the root,
// with no further per-level discounting — the path score computed by
// batchExpansion already embeds one discount per committed timestep.
func (e *Engine) updateValueBatch(n *node, v float64) {
	for {
		n.updateValue(v)
		if n.parent == noParent {
			return
		}
		n = e.primary.get(n.parent)
	}
}
