// Package workload produces the shared input file for sort benchmarks.
// An input is an element count followed by the elements themselves, either
// one per line or whitespace-separated.
package workload

import (
	"fmt"
	"math"
	mrand "math/rand"
)

// Default bounds for generated elements.
const (
	DefaultMin = 0
	DefaultMax = 1000000
)

// Config controls random input generation.
type Config struct {
	Count int
	Min   int
	Max   int
	Seed  int64
}

// Summary describes a generated input.
type Summary struct {
	Count int
	Min   int
	Max   int
}

// Generator produces deterministic inputs from a Config.
type Generator struct {
	cfg Config
	rng *mrand.Rand
}

// NewGenerator creates a Generator from the given Config.
func NewGenerator(cfg Config) *Generator {
	return &Generator{
		cfg: cfg,
		rng: mrand.New(mrand.NewSource(cfg.Seed)),
	}
}

// Generate returns a random InputSpec with Count elements drawn
// uniformly from [Min, Max].
func (g *Generator) Generate() (InputSpec, Summary, error) {
	if g.cfg.Count < 0 {
		return InputSpec{}, Summary{}, &InputError{
			Reason: fmt.Sprintf("negative element count %d", g.cfg.Count),
		}
	}

	if g.cfg.Min > g.cfg.Max {
		return InputSpec{}, Summary{}, &InputError{
			Reason: fmt.Sprintf(
				"min %d is greater than max %d", g.cfg.Min, g.cfg.Max,
			),
		}
	}

	// Max-Min wraps to the right unsigned distance even when the signed
	// subtraction overflows.
	diff := uint64(int64(g.cfg.Max)) - uint64(int64(g.cfg.Min))
	if diff > math.MaxInt64-1 {
		return InputSpec{}, Summary{}, &InputError{
			Reason: fmt.Sprintf(
				"range [%d, %d] is too wide", g.cfg.Min, g.cfg.Max,
			),
		}
	}

	span := int64(diff) + 1
	elements := make([]int, g.cfg.Count)
	summary := Summary{Count: g.cfg.Count}

	for i := range elements {
		v := g.cfg.Min + int(g.rng.Int63n(span))
		elements[i] = v

		if i == 0 || v < summary.Min {
			summary.Min = v
		}
		if i == 0 || v > summary.Max {
			summary.Max = v
		}
	}

	return InputSpec{Count: g.cfg.Count, Elements: elements}, summary, nil
}
