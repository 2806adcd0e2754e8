package mcts

import "sync"

// nodeIndex is a stable reference into an arena. Indices never change once
// issued, even as the arena grows, so parent/child back-references never
// dangle. See spec §4.3/§9 ("cyclic references").
type nodeIndex int32

// noChild / noParent mark an empty child slot and the root's parent.
const (
	noChild  nodeIndex = -1
	noParent nodeIndex = -1
	noAction int8      = -1
)

// node is one decision point in a tree: the action that led here, the agent
// whose turn it commits, and its accumulated statistics. See spec §4.3.
type node struct {
	actionID     int8
	parent       nodeIndex
	agentID      int
	numActions   int
	visitCount   int64
	totalValue   float64
	meanValue    float64
	virtualCount int32
	pickedMask   uint8 // bit k set => action k has been claimed by an in-flight batch descent
	children     [5]nodeIndex
}

func newNode(parent nodeIndex, actionID int8, agentID, numActions int, initialValue float64) node {
	n := node{
		actionID:   actionID,
		parent:     parent,
		agentID:    agentID,
		numActions: numActions,
		visitCount: 1,
		totalValue: initialValue,
		meanValue:  initialValue,
	}
	for i := range n.children {
		n.children[i] = noChild
	}
	return n
}

// updateValue applies one backup step, per spec §4.3.
func (n *node) updateValue(v float64) {
	n.totalValue += v
	n.visitCount++
	n.meanValue = n.totalValue / float64(n.visitCount)
}

// pickedAction reports whether action k has been claimed this batch round.
func (n *node) pickedAction(k int) bool {
	return n.pickedMask&(1<<uint(k)) != 0
}

func (n *node) markPicked(k int) {
	n.pickedMask |= 1 << uint(k)
}

// pickMostVisitedChild returns the action of the child with the greatest
// visit count, ties broken by lowest action index, or -1 if the node has no
// children at all. See spec §4.3 and §9's "no legal action" open question.
func (n *node) pickMostVisitedChild(a *arena) int8 {
	best := int8(-1)
	bestVisits := int64(-1)
	for k := 0; k < n.numActions; k++ {
		if n.children[k] == noChild {
			continue
		}
		if v := a.get(n.children[k]).visitCount; v > bestVisits {
			bestVisits = v
			best = int8(k)
		}
	}
	return best
}

// pageSize bounds how many nodes live in one fixed array. Pages, once
// allocated, are never resized or moved, so a *node handed out by get()
// stays valid for the arena's whole lifetime.
const pageSize = 4096

type page = [pageSize]node

// arena is an append-only store of nodes shared by one tree. The only
// critical section is growing the page list / returning a stable pointer;
// per-node field mutation is the caller's responsibility to keep race-free
// (confined to a single worker in tree-parallel mode, or to the orchestrator
// between worker launches in batched mode — see spec §5).
type arena struct {
	mu    sync.Mutex
	pages []*page
	count int32
}

// newArena creates an arena containing just the root node (index 0),
// agentID 0, action -1 (no parent action), total_value 0 per spec §4.3.
func newArena(numActions int) *arena {
	a := &arena{}
	root := a.allocate(noParent, noAction, 0, numActions, 0)
	if root != 0 {
		panic("mcts: root must be arena index 0")
	}
	return a
}

// allocate appends one node and returns its stable index.
func (a *arena) allocate(parent nodeIndex, actionID int8, agentID, numActions int, initialValue float64) nodeIndex {
	a.mu.Lock()
	idx := nodeIndex(a.count)
	pageIdx, offset := int(idx)/pageSize, int(idx)%pageSize
	if pageIdx == len(a.pages) {
		a.pages = append(a.pages, new(page))
	}
	p := a.pages[pageIdx]
	a.count++
	a.mu.Unlock()

	p[offset] = newNode(parent, actionID, agentID, numActions, initialValue)
	return idx
}

// get returns a stable pointer to the node at idx.
func (a *arena) get(idx nodeIndex) *node {
	pageIdx, offset := int(idx)/pageSize, int(idx)%pageSize
	a.mu.Lock()
	p := a.pages[pageIdx]
	a.mu.Unlock()
	return &p[offset]
}

// zeroVirtual resets virtual_count and picked_mask for idx and, recursively,
// every descendant. Called once at the start of each batched round.
func (a *arena) zeroVirtual(idx nodeIndex) {
	if idx == noChild {
		return
	}
	n := a.get(idx)
	n.virtualCount = 0
	n.pickedMask = 0
	for _, c := range n.children {
		a.zeroVirtual(c)
	}
}

// recomputeMean refreshes mean_value from total_value/visit_count for idx
// and every descendant. Used after merging parallel trees.
func (a *arena) recomputeMean(idx nodeIndex) {
	if idx == noChild {
		return
	}
	n := a.get(idx)
	if n.visitCount > 0 {
		n.meanValue = n.totalValue / float64(n.visitCount)
	}
	for _, c := range n.children {
		a.recomputeMean(c)
	}
}

// mergeInto accumulates src's subtree (in a different arena) into dst's
// subtree, adding visit_count and total_value at every matching node and
// creating matching children as needed. See spec §4.4 "Tree parallelization".
func mergeInto(dst *arena, dstIdx nodeIndex, src *arena, srcIdx nodeIndex) {
	srcNode := src.get(srcIdx)
	dstNode := dst.get(dstIdx)
	dstNode.visitCount += srcNode.visitCount
	dstNode.totalValue += srcNode.totalValue

	for k := 0; k < srcNode.numActions; k++ {
		childSrc := srcNode.children[k]
		if childSrc == noChild {
			continue
		}
		if dstNode.children[k] == noChild {
			childAgent := src.get(childSrc).agentID
			dstNode.children[k] = dst.allocate(dstIdx, int8(k), childAgent, dstNode.numActions, 0)
		}
		mergeInto(dst, dstNode.children[k], src, childSrc)
	}
}
