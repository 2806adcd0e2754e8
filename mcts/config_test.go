package mcts

import (
	"encoding/json"
	"testing"
)

func TestDefaultConfigWorkerPoolSize(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.workerPoolSize(); got != 1 {
		t.Fatalf("workerPoolSize() = %d, want 1", got)
	}
}

func TestConfigBuilderChaining(t *testing.T) {
	cfg := DefaultConfig().SetGamma(0.8).SetBatchSize(8).SetNumParallelTrees(3).SetMultiSimulations(5)
	if cfg.Gamma != 0.8 || cfg.BatchSize != 8 || cfg.NumParallelTrees != 3 || cfg.MultiSimulations != 5 {
		t.Fatalf("unexpected config after chaining: %+v", cfg)
	}
	if got := cfg.workerPoolSize(); got != 8 {
		t.Fatalf("workerPoolSize() = %d, want 8", got)
	}
}

func TestConfigStringIsJSON(t *testing.T) {
	cfg := DefaultConfig()
	s := cfg.String()
	if len(s) == 0 {
		t.Fatal("Config.String() returned empty output")
	}
	if !json.Valid([]byte(s)) {
		t.Fatalf("Config.String() = %q, want valid JSON", s)
	}
}
