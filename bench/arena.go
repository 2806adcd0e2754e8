// Package bench runs repeated episodes of two Config variants against the
// same scenario and compares their outcomes, adapting the versus-arena shape
// used elsewhere in this codebase's ancestry to the planner's single-team
// cooperative setting (there is no opponent here, only two tunings racing
// the clock).
package bench

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/kmkozak/gridmcts/env"
	"github.com/kmkozak/gridmcts/grid"
	"github.com/kmkozak/gridmcts/mcts"
)

// Scenario is a reusable grid + agent layout; each episode clones a fresh
// Environment from it so episodes never share mutable state.
type Scenario struct {
	Grid   *grid.Grid
	Starts []grid.Pos
	Goals  []grid.Pos
	Seed   int64
}

func (s *Scenario) newEnvironment() *env.Environment {
	e := env.NewEnvironment(s.Grid)
	for i := range s.Starts {
		e.AddAgent(s.Starts[i], s.Goals[i])
	}
	e.SetSeed(s.Seed)
	return e
}

// ConfigStats aggregates outcomes across episodes run under one Config.
type ConfigStats struct {
	name       string
	episodes   uint32
	solved     uint32
	totalSteps uint64
	maxSteps   int
}

func (s *ConfigStats) Episodes() int   { return int(atomic.LoadUint32(&s.episodes)) }
func (s *ConfigStats) Solved() int     { return int(atomic.LoadUint32(&s.solved)) }
func (s *ConfigStats) TotalSteps() int { return int(atomic.LoadUint64(&s.totalSteps)) }

// SolveRate is Solved()/Episodes(), or 0 if no episodes ran.
func (s *ConfigStats) SolveRate() float64 {
	n := s.Episodes()
	if n == 0 {
		return 0
	}
	return float64(s.Solved()) / float64(n)
}

// MeanSteps is TotalSteps()/Solved(), the mean step count over solved
// episodes only, or 0 if none solved.
func (s *ConfigStats) MeanSteps() float64 {
	if s.Solved() == 0 {
		return 0
	}
	return float64(s.TotalSteps()) / float64(s.Solved())
}

// Summary is the JSON-friendly outcome of one Arena run, comparing two
// named Config variants over the same scenario.
type Summary struct {
	NameA       string  `json:"config_a"`
	NameB       string  `json:"config_b"`
	Episodes    int     `json:"episodes"`
	SolveRateA  float64 `json:"solve_rate_a"`
	SolveRateB  float64 `json:"solve_rate_b"`
	MeanStepsA  float64 `json:"mean_steps_a"`
	MeanStepsB  float64 `json:"mean_steps_b"`
	MaxStepsCap int     `json:"max_steps_cap"`
}

// Arena races two Config variants against the same scenario for a fixed
// number of episodes each, split across a worker pool.
type Arena struct {
	Scenario    Scenario
	ConfigA     *mcts.Config
	ConfigB     *mcts.Config
	NameA       string
	NameB       string
	Episodes    int
	NWorkers    int
	MaxSteps    int // episode horizon; an episode that doesn't reach all_done by then is unsolved
	statsA      ConfigStats
	statsB      ConfigStats
}

// NewArena builds an Arena with reasonable worker/step defaults.
func NewArena(scenario Scenario, nameA string, cfgA *mcts.Config, nameB string, cfgB *mcts.Config) *Arena {
	return &Arena{
		Scenario: scenario,
		ConfigA:  cfgA,
		ConfigB:  cfgB,
		NameA:    nameA,
		NameB:    nameB,
		Episodes: 100,
		NWorkers: max(1, runtime.NumCPU()-1),
		MaxSteps: 256,
	}
}

// Run plays Episodes episodes under each Config, split across NWorkers
// goroutines, and returns the aggregated Summary.
func (a *Arena) Run() Summary {
	a.statsA = ConfigStats{name: a.NameA}
	a.statsB = ConfigStats{name: a.NameB}

	var wg sync.WaitGroup
	perWorker := a.Episodes / a.NWorkers
	rest := a.Episodes % a.NWorkers

	for w := 0; w < a.NWorkers; w++ {
		n := perWorker
		if w < rest {
			n++
		}
		if n == 0 {
			continue
		}
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for i := 0; i < n; i++ {
				a.runEpisode(a.ConfigA, &a.statsA)
				a.runEpisode(a.ConfigB, &a.statsB)
			}
		}(n)
	}
	wg.Wait()

	return Summary{
		NameA:       a.NameA,
		NameB:       a.NameB,
		Episodes:    a.statsA.Episodes(),
		SolveRateA:  a.statsA.SolveRate(),
		SolveRateB:  a.statsB.SolveRate(),
		MeanStepsA:  a.statsA.MeanSteps(),
		MeanStepsB:  a.statsB.MeanSteps(),
		MaxStepsCap: a.MaxSteps,
	}
}

func (a *Arena) runEpisode(cfg *mcts.Config, stats *ConfigStats) {
	e := a.Scenario.newEnvironment()
	engine := mcts.NewEngine()
	engine.SetConfig(cfg)
	engine.SetEnv(e)

	steps := 0
	for !e.AllDone() && steps < a.MaxSteps {
		engine.Act()
		steps++
	}

	atomic.AddUint32(&stats.episodes, 1)
	if e.AllDone() {
		atomic.AddUint32(&stats.solved, 1)
		atomic.AddUint64(&stats.totalSteps, uint64(steps))
	}
}
