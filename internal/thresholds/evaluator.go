// internal/thresholds/evaluator.go
package thresholds

import (
	"go.uber.org/zap"

	"github.com/alegjs044/Gecko-house-sub000/internal/config"
	"github.com/alegjs044/Gecko-house-sub000/internal/data"
	"github.com/alegjs044/Gecko-house-sub000/internal/envstate"
)

// Table resolves (sensor kind, zone, environmental mode) to a comfort
// range. Pure data, built once from config.
type Table struct {
	temperature map[data.Zone]map[data.Cycle]data.Bounds
	uvLight     map[data.Cycle]data.Bounds
	humidity    map[bool]data.Bounds // keyed by shedding flag
}

// NewTable builds the lookup table from the configured threshold rules.
func NewTable(cfg config.Thresholds) *Table {
	t := &Table{
		temperature: make(map[data.Zone]map[data.Cycle]data.Bounds),
		uvLight:     make(map[data.Cycle]data.Bounds),
		humidity:    make(map[bool]data.Bounds),
	}
	for zone, byCycle := range cfg.Temperature {
		m := make(map[data.Cycle]data.Bounds, len(byCycle))
		for cycle, rule := range byCycle {
			m[data.Cycle(cycle)] = data.Bounds{Low: rule.Low, High: rule.High}
		}
		t.temperature[data.Zone(zone)] = m
	}
	for cycle, rule := range cfg.UVLight {
		t.uvLight[data.Cycle(cycle)] = data.Bounds{Low: rule.Low, High: rule.High}
	}
	if rule, ok := cfg.Humidity["normal"]; ok {
		t.humidity[false] = data.Bounds{Low: rule.Low, High: rule.High}
	}
	if rule, ok := cfg.Humidity["muda"]; ok {
		t.humidity[true] = data.Bounds{Low: rule.Low, High: rule.High}
	}
	return t
}

// Lookup returns the bounds for a sensor under the given environmental
// state. Temperature and UV resolve by cycle, humidity by shedding flag.
// Missing entries report ok=false; callers treat that as "cannot
// evaluate", never as an error.
func (t *Table) Lookup(kind data.SensorKind, zone data.Zone, snap envstate.Snapshot) (data.Bounds, bool) {
	switch kind {
	case data.KindTemperature:
		byCycle, ok := t.temperature[zone]
		if !ok {
			return data.Bounds{}, false
		}
		b, ok := byCycle[snap.Cycle]
		return b, ok
	case data.KindUVLight:
		b, ok := t.uvLight[snap.Cycle]
		return b, ok
	case data.KindHumidity:
		b, ok := t.humidity[snap.IsShedding]
		return b, ok
	default:
		return data.Bounds{}, false
	}
}

// Result of evaluating a single value.
type Result struct {
	Critical bool
	Bounds   data.Bounds
	// Evaluated is false when no verdict was possible (state not yet
	// initialized, or no bounds configured for the combination).
	Evaluated bool
}

// Evaluator decides whether readings are critical against the table and
// the live environmental state.
type Evaluator struct {
	table *Table
	state *envstate.Store
	log   *zap.Logger
}

func NewEvaluator(table *Table, state *envstate.Store, log *zap.Logger) *Evaluator {
	return &Evaluator{table: table, state: state, log: log}
}

// Evaluate checks value against the bounds for (kind, zone) under the
// current environmental state. Before the state is initialized nothing
// is ever critical: flagging without a real baseline would be noise.
// Bounds are strict: a value exactly on low or high is in range.
func (e *Evaluator) Evaluate(kind data.SensorKind, zone data.Zone, value float64) Result {
	snap := e.state.Snapshot()
	if !snap.Initialized {
		return Result{}
	}
	bounds, ok := e.table.Lookup(kind, zone, snap)
	if !ok {
		e.log.Warn("no threshold configured",
			zap.String("kind", string(kind)),
			zap.String("zone", string(zone)),
			zap.String("cycle", string(snap.Cycle)))
		return Result{}
	}
	return Result{
		Critical:  !bounds.Contains(value),
		Bounds:    bounds,
		Evaluated: true,
	}
}
