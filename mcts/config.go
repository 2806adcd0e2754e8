package mcts

import (
	"encoding/json"
	"strings"

	"github.com/kmkozak/gridmcts/grid"
)

// Config collects the tunables of §4.5: discounting, search budget, the
// three parallelization knobs, and the heuristic/diagnostic switches.
type Config struct {
	Gamma             float64
	NumActions        int
	NumExpansions     int
	UCTC              float64
	StepsLimit        int
	MultiSimulations  int
	UseMoveLimits     bool
	AgentsAsObstacles bool
	BatchSize         int
	NumParallelTrees  int
	HeuristicCoef     float64
	Render            bool
}

// DefaultConfig mirrors the values named in the original design: a single
// sequential tree, no heuristic bias, no rendering.
func DefaultConfig() *Config {
	return &Config{
		Gamma:             0.95,
		NumActions:        grid.NumActions,
		NumExpansions:     1000,
		UCTC:              1.0,
		StepsLimit:        128,
		MultiSimulations:  1,
		UseMoveLimits:     true,
		AgentsAsObstacles: false,
		BatchSize:         1,
		NumParallelTrees:  1,
		HeuristicCoef:     0,
		Render:            false,
	}
}

func (c Config) String() string {
	builder := strings.Builder{}
	_ = json.NewEncoder(&builder).Encode(c)
	return builder.String()
}

func (c *Config) SetGamma(gamma float64) *Config {
	c.Gamma = gamma
	return c
}

func (c *Config) SetNumActions(n int) *Config {
	c.NumActions = n
	return c
}

func (c *Config) SetNumExpansions(n int) *Config {
	c.NumExpansions = n
	return c
}

func (c *Config) SetUCTC(uctC float64) *Config {
	c.UCTC = uctC
	return c
}

func (c *Config) SetStepsLimit(n int) *Config {
	c.StepsLimit = n
	return c
}

func (c *Config) SetMultiSimulations(n int) *Config {
	c.MultiSimulations = max(1, n)
	return c
}

func (c *Config) SetUseMoveLimits(use bool) *Config {
	c.UseMoveLimits = use
	return c
}

func (c *Config) SetAgentsAsObstacles(use bool) *Config {
	c.AgentsAsObstacles = use
	return c
}

func (c *Config) SetBatchSize(n int) *Config {
	c.BatchSize = max(1, n)
	return c
}

func (c *Config) SetNumParallelTrees(n int) *Config {
	c.NumParallelTrees = max(1, n)
	return c
}

func (c *Config) SetHeuristicCoef(coef float64) *Config {
	c.HeuristicCoef = coef
	return c
}

func (c *Config) SetRender(render bool) *Config {
	c.Render = render
	return c
}

// workerPoolSize is P = max(num_parallel_trees, batch_size, multi_simulations),
// the largest number of environment replicas ever needed concurrently.
func (c *Config) workerPoolSize() int {
	p := c.NumParallelTrees
	if c.BatchSize > p {
		p = c.BatchSize
	}
	if c.MultiSimulations > p {
		p = c.MultiSimulations
	}
	return p
}
