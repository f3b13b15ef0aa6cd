// Package indicator implements the per-ticker technical indicators and
// their crossover detection.
//
// A Definition computes an indicator line from a bar series; definitions
// that detect transitions also implement Detector, which classifies one
// observation at a time while threading an explicit models.CrossState.
// Nothing in this package keeps state between calls: the same series and
// parameters always produce the same results.
package indicator

import (
	"fmt"
	"time"

	"github.com/tmarsden/scanpulse/internal/domain/models"
	"github.com/tmarsden/scanpulse/internal/domain/scanerr"
	"github.com/tmarsden/scanpulse/internal/scanconfig"
)

// Series is a computed indicator line aligned by index: Dates[i] is the
// bar date Values[i] belongs to. ShortMA and LongMA are populated only by
// definitions that smooth their line; when present they have the same
// length as Values. Warmup indices are trimmed, so every element is a
// fully defined value.
type Series struct {
	Dates   []time.Time
	Values  []float64
	ShortMA []float64
	LongMA  []float64
}

// Len returns the number of defined observations.
func (s Series) Len() int { return len(s.Values) }

// Definition is one runnable indicator instance with bound parameters.
type Definition interface {
	// ID identifies the instance, parameters included (e.g. "roc_12"),
	// so two instances of the same kind stay distinguishable in results.
	ID() string

	// MinBars is the warmup contract: the smallest series length that
	// yields at least one defined observation.
	MinBars() int

	// Compute returns the defined portion of the indicator line. Series
	// shorter than MinBars yield an InsufficientDataError.
	Compute(series models.BarSeries) (Series, error)
}

// Detector classifies observation i of a computed series, given the
// state carried from observation i-1, and returns the successor state.
type Detector interface {
	Step(ser Series, i int, st models.CrossState) (models.SignalState, models.CrossState)
}

// Instance pairs a built definition with the signal criteria narrowing
// which crossover directions it reports.
type Instance struct {
	Def Definition

	// Direction is "up", "down" or "both"; crossings in a filtered-out
	// direction still set the resting side but are not reported as
	// signals.
	Direction string
}

// Factory builds a definition from the raw parameter map of a scan file
// entry. Invalid parameters must yield a *scanerr.ConfigError.
type Factory func(params map[string]any) (Definition, error)

// Registry maps indicator kind ids to factories. A fresh registry is
// built per run so configuration changes never leak across runs.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under a kind id, replacing any previous one.
func (r *Registry) Register(kind string, f Factory) {
	r.factories[kind] = f
}

// Kinds returns the registered kind ids.
func (r *Registry) Kinds() []string {
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	return out
}

// Build resolves one scan-file indicator entry into a runnable instance.
// Unknown kinds and invalid parameters return a *scanerr.ConfigError.
func (r *Registry) Build(spec scanconfig.IndicatorSpec) (Instance, error) {
	f, ok := r.factories[spec.ID]
	if !ok {
		return Instance{}, scanerr.Configf("indicators", "unknown indicator id %q", spec.ID)
	}
	def, err := f(spec.Params)
	if err != nil {
		return Instance{}, fmt.Errorf("build %s: %w", spec.ID, err)
	}
	dir := "both"
	if spec.Criteria != nil && spec.Criteria.Direction != "" {
		dir = spec.Criteria.Direction
	}
	return Instance{Def: def, Direction: dir}, nil
}

// BuildAll resolves every entry, failing fast on the first bad one.
func (r *Registry) BuildAll(specs []scanconfig.IndicatorSpec) ([]Instance, error) {
	out := make([]Instance, 0, len(specs))
	for _, sp := range specs {
		inst, err := r.Build(sp)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// Default returns a registry with the built-in indicator kinds.
func Default() *Registry {
	r := NewRegistry()
	r.Register(KindROCCross, NewROCCross)
	r.Register(KindROCScore, NewROCScore)
	return r
}
