package env

import (
	"testing"

	"github.com/kmkozak/gridmcts/grid"
)

func newEnv(t *testing.T) *Environment {
	t.Helper()
	g := grid.NewGrid(2, 2)
	g.AddObstacle(0, 1)
	e := NewEnvironment(g)
	e.SetSeed(1)
	return e
}

func TestStepBasicMove(t *testing.T) {
	e := newEnv(t)
	e.AddAgent(grid.Pos{0, 0}, grid.Pos{1, 0})

	reward := e.Step([]grid.Action{grid.Down})
	if reward != 1 {
		t.Fatalf("reward = %v, want 1", reward)
	}
	if !e.ReachedGoal(0) {
		t.Fatal("agent should have reached its goal")
	}
	if e.AgentPos(0) != (grid.Pos{1, 0}) {
		t.Fatalf("agent pos = %v, want (1,0)", e.AgentPos(0))
	}
}

func TestStepSwapConflict(t *testing.T) {
	g := grid.NewGrid(1, 2)
	e := NewEnvironment(g)
	e.SetSeed(1)
	e.AddAgent(grid.Pos{0, 0}, grid.Pos{0, 1})
	e.AddAgent(grid.Pos{0, 1}, grid.Pos{0, 0})

	reward := e.Step([]grid.Action{grid.Right, grid.Left})
	if reward != 0 {
		t.Fatalf("reward = %v, want 0", reward)
	}
	if e.AgentPos(0) != (grid.Pos{0, 0}) || e.AgentPos(1) != (grid.Pos{0, 1}) {
		t.Fatalf("agents should not have moved: got %v, %v", e.AgentPos(0), e.AgentPos(1))
	}
	if e.HistoryLen() != 1 {
		t.Fatalf("history length = %d, want 1", e.HistoryLen())
	}
}

func TestStepVertexConflict(t *testing.T) {
	g := grid.NewGrid(3, 1)
	e := NewEnvironment(g)
	e.SetSeed(1)
	e.AddAgent(grid.Pos{0, 0}, grid.Pos{2, 0})
	e.AddAgent(grid.Pos{2, 0}, grid.Pos{0, 0})

	reward := e.Step([]grid.Action{grid.Down, grid.Up})
	if reward != 0 {
		t.Fatalf("reward = %v, want 0", reward)
	}
	if e.AgentPos(0) != (grid.Pos{0, 0}) || e.AgentPos(1) != (grid.Pos{2, 0}) {
		t.Fatalf("agents should not have moved: got %v, %v", e.AgentPos(0), e.AgentPos(1))
	}
}

func TestStepThenStepBackRestoresState(t *testing.T) {
	e := newEnv(t)
	e.AddAgent(grid.Pos{0, 0}, grid.Pos{1, 1})
	e.AddAgent(grid.Pos{1, 0}, grid.Pos{0, 0})

	before := e.AgentPos(0)
	before2 := e.AgentPos(1)

	e.Step([]grid.Action{grid.Down, grid.Up})
	e.StepBack()

	if e.AgentPos(0) != before || e.AgentPos(1) != before2 {
		t.Fatalf("StepBack did not restore positions: got %v, %v", e.AgentPos(0), e.AgentPos(1))
	}
	if e.HistoryLen() != 0 {
		t.Fatalf("history length = %d, want 0", e.HistoryLen())
	}
	if e.ReachedGoal(1) {
		t.Fatal("agent 1's reached-flag should be unset after StepBack")
	}
}

func TestStepRejectsObstacleAndOffGrid(t *testing.T) {
	e := newEnv(t)
	e.AddAgent(grid.Pos{0, 0}, grid.Pos{1, 1})

	// Right goes into the obstacle at (0,1); Up goes off-grid from (0,0).
	e.Step([]grid.Action{grid.Right})
	if e.AgentPos(0) != (grid.Pos{0, 0}) {
		t.Fatalf("agent should not have entered an obstacle, got %v", e.AgentPos(0))
	}
	e.Step([]grid.Action{grid.Up})
	if e.AgentPos(0) != (grid.Pos{0, 0}) {
		t.Fatalf("agent should not have left the grid, got %v", e.AgentPos(0))
	}
}

func TestCheckActionAgentsAsObstacles(t *testing.T) {
	e := newEnv(t)
	e.AddAgent(grid.Pos{0, 0}, grid.Pos{1, 1})
	e.AddAgent(grid.Pos{1, 0}, grid.Pos{0, 0})

	if e.CheckAction(0, grid.Down, true) {
		t.Error("moving onto another agent's cell should be illegal when agentsAsObstacles is set")
	}
	if !e.CheckAction(0, grid.Down, false) {
		t.Error("moving onto another agent's cell should be legal when agentsAsObstacles is unset")
	}
}

func TestSampleActionsRespectsMoveLimits(t *testing.T) {
	e := newEnv(t)
	e.AddAgent(grid.Pos{0, 0}, grid.Pos{1, 1})

	for i := 0; i < 200; i++ {
		actions := e.SampleActions(grid.NumActions, true, false)
		if !e.CheckAction(0, actions[0], false) && actions[0] != grid.Stay {
			t.Fatalf("sampled illegal action %v under move limits", actions[0])
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	e := newEnv(t)
	e.AddAgent(grid.Pos{0, 0}, grid.Pos{1, 1})
	e.Step([]grid.Action{grid.Down})

	clone := e.Clone()
	clone.StepBack()

	if e.HistoryLen() == clone.HistoryLen() {
		t.Fatal("clone history mutation should not affect the original")
	}
	if e.AgentPos(0) == clone.AgentPos(0) {
		t.Fatal("clone position mutation should not affect the original")
	}
}

func TestAllDone(t *testing.T) {
	e := newEnv(t)
	e.AddAgent(grid.Pos{0, 0}, grid.Pos{0, 0})
	// The reached-flag latches at the end of a step, so one Stay step is
	// needed before an agent that starts on its goal counts as done.
	e.Step([]grid.Action{grid.Stay})
	if !e.AllDone() {
		t.Error("single agent on its goal after one step should report AllDone")
	}
}
