package mcts

import (
	"fmt"

	"github.com/muesli/termenv"
	"k8s.io/klog/v2"

	"github.com/kmkozak/gridmcts/grid"
)

var renderProfile = termenv.ColorProfile()

var actionNames = [5]string{"S", "U", "D", "L", "R"}

// render prints the primary root's per-action visit counts and UCT scores
// for the agent currently deciding, plus its mean value. Informational
// only — see spec §6 "Diagnostic output".
func (e *Engine) render(agent int) {
	root := e.primary.get(e.primaryRoot)

	header := termenv.String(fmt.Sprintf("agent %d  mean=%.4f", agent, root.meanValue)).
		Foreground(renderProfile.Color("12")).String()
	klog.Info(header)

	visits := ""
	for k := 0; k < root.numActions; k++ {
		cnt := int64(0)
		if root.children[k] != noChild {
			cnt = e.primary.get(root.children[k]).visitCount
		}
		visits += fmt.Sprintf("%s:%d ", actionNames[k], cnt)
	}
	klog.Info(termenv.String(visits).Foreground(renderProfile.Color("10")).String())

	ucts := ""
	for k := 0; k < root.numActions; k++ {
		if root.children[k] == noChild {
			ucts += fmt.Sprintf("%s:0.000 ", actionNames[k])
			continue
		}
		score := e.uct(e.primary, root, e.primary.get(root.children[k]), agent, e.liveEnv)
		ucts += fmt.Sprintf("%s:%.3f ", actionNames[k], score)
	}
	klog.Info(termenv.String(ucts).Foreground(renderProfile.Color("11")).String())
}

// renderJoint logs the committed joint action vector at the end of an
// Act() call.
func renderJoint(joint []grid.Action) {
	s := ""
	for _, a := range joint {
		s += a.String() + " "
	}
	klog.Infof("joint action: %s", s)
}
