package mcts

import (
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/kmkozak/gridmcts/env"
)

// treeParallelLoop runs num_parallel_trees independent sequential loops (one
// per auxiliary tree plus the primary) concurrently, each against its own
// environment clone, then merges every auxiliary tree into the primary.
// See spec §4.4 "Tree parallelization".
func (e *Engine) treeParallelLoop(pending []int8, scratch *env.Environment) {
	var g errgroup.Group
	g.SetLimit(e.cfg.workerPoolSize())

	primaryClone := scratch.Clone()
	g.Go(func() error {
		e.sequentialLoop(pending, primaryClone)
		return nil
	})
	for i := range e.aux {
		i := i
		clone := scratch.Clone()
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					klog.Errorf("mcts: tree-parallel worker panicked: %v", r)
				}
			}()
			aux := e.aux[i]
			root := aux.arena.get(aux.root)
			for k := 0; k < e.cfg.NumExpansions; k++ {
				score := e.selection(aux.arena, aux.root, pending, clone)
				root.updateValue(score)
			}
			return nil
		})
	}
	_ = g.Wait()

	for i := range e.aux {
		mergeInto(e.primary, e.primaryRoot, e.aux[i].arena, e.aux[i].root)
	}
	e.primary.recomputeMean(e.primaryRoot)
}
