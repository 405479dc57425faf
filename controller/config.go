package controller

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tteke/three-loader/request"
)

const (
	defaultThreshold           = 60000
	defaultDebounceMs          = 100
	defaultMaxNodesPerUpdate   = 1
	defaultFilterYieldBudgetMs = 4
	defaultBatchCapacity       = 10000
)

// Config holds the tunables recognized by a deployment: how many points to
// serve before finishing the level and cancelling, the marker-edit debounce
// window, the per-tick node budget, the cooperative filter yield budget,
// the output batch capacity, and an optional traversal depth cap.
type Config struct {
	Threshold           int           `yaml:"threshold"`
	DebounceMs          int           `yaml:"debounce_ms"`
	MaxNodesPerUpdate   int           `yaml:"max_nodes_per_update"`
	FilterYieldBudgetMs int           `yaml:"filter_yield_budget_ms"`
	BatchCapacity       int           `yaml:"batch_capacity"`
	MaxDepth            uint32        `yaml:"max_depth"`
}

// DefaultConfig returns the spec's documented defaults: threshold 60000,
// debounce 100ms, 1 node per update, 4ms filter yield budget, batch
// capacity 10000, unbounded depth.
func DefaultConfig() Config {
	return Config{
		Threshold:           defaultThreshold,
		DebounceMs:          defaultDebounceMs,
		MaxNodesPerUpdate:   defaultMaxNodesPerUpdate,
		FilterYieldBudgetMs: defaultFilterYieldBudgetMs,
		BatchCapacity:       defaultBatchCapacity,
		MaxDepth:            request.Unbounded,
	}
}

// LoadConfig reads a YAML config file, starting from DefaultConfig and
// overriding whichever fields the file sets.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("controller: reading config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("controller: parsing config %q: %w", path, err)
	}
	return cfg, nil
}

func (c Config) debounceDuration() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

func (c Config) filterYieldBudget() time.Duration {
	return time.Duration(c.FilterYieldBudgetMs) * time.Millisecond
}
