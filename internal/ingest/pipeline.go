// internal/ingest/pipeline.go
package ingest

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alegjs044/Gecko-house-sub000/internal/data"
	"github.com/alegjs044/Gecko-house-sub000/internal/envstate"
	"github.com/alegjs044/Gecko-house-sub000/internal/thresholds"
)

// Persister writes readings to durable storage.
type Persister interface {
	Insert(ctx context.Context, r data.Reading) error
}

// AlertSink receives critical readings for out-of-band notification.
type AlertSink interface {
	DispatchCritical(ctx context.Context, alert data.CriticalAlert)
}

// EventSink delivers realtime events to a user's live session.
type EventSink interface {
	SendToUser(userID int, event string, payload any) bool
}

// ActivityChecker reports whether a user currently has someone watching.
type ActivityChecker interface {
	IsActive(userID int) bool
}

// Pipeline is the ingestion router: it parses inbound transport
// messages, routes them by tag category and runs sensor readings
// through evaluation, deduplication, buffering, persistence and
// realtime delivery.
type Pipeline struct {
	state     *envstate.Store
	evaluator *thresholds.Evaluator
	memory    *CriticalMemory
	buffer    *PendingBuffer
	store     Persister
	alerts    AlertSink
	events    EventSink
	activity  ActivityChecker
	log       *zap.Logger

	now func() time.Time
}

func NewPipeline(
	state *envstate.Store,
	evaluator *thresholds.Evaluator,
	memory *CriticalMemory,
	buffer *PendingBuffer,
	store Persister,
	alerts AlertSink,
	events EventSink,
	activity ActivityChecker,
	log *zap.Logger,
) *Pipeline {
	return &Pipeline{
		state:     state,
		evaluator: evaluator,
		memory:    memory,
		buffer:    buffer,
		store:     store,
		alerts:    alerts,
		events:    events,
		activity:  activity,
		log:       log,
		now:       time.Now,
	}
}

// HandleMessage processes one inbound (topic, payload) pair. Malformed
// or unmapped messages are dropped without error.
func (p *Pipeline) HandleMessage(ctx context.Context, topic, payload string) {
	tag, userID, ok := parseTopic(topic)
	if !ok {
		p.log.Debug("dropping malformed topic", zap.String("topic", topic))
		return
	}
	info, ok := tagTable[tag]
	if !ok {
		p.log.Debug("dropping unknown tag", zap.String("topic", topic), zap.String("tag", tag))
		return
	}

	switch info.category {
	case categorySensor:
		p.handleSensor(ctx, topic, info, userID, payload)
	case categoryState:
		p.handleState(topic, info, userID, payload)
	case categoryActuator:
		p.handleActuator(topic, tag, userID, payload)
	}
}

func (p *Pipeline) handleSensor(ctx context.Context, topic string, info tagInfo, userID int, payload string) {
	// Unattended hardware keeps publishing; nothing is stored unless
	// someone could be watching.
	if !p.activity.IsActive(userID) {
		p.log.Debug("dropping reading for inactive user",
			zap.Int("user_id", userID), zap.String("topic", topic))
		return
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(payload), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		p.log.Debug("dropping non-numeric payload",
			zap.String("topic", topic), zap.String("payload", payload))
		return
	}

	p.state.RecordReading(info.kind, info.zone, value)
	snap := p.state.Snapshot()

	reading := data.Reading{
		Kind:       info.kind,
		Zone:       info.zone,
		Value:      value,
		Timestamp:  p.now(),
		UserID:     userID,
		Cycle:      snap.Cycle,
		IsShedding: snap.IsShedding,
	}

	if !snap.Initialized {
		// No baseline yet: forward unevaluated, persist nothing.
		p.events.SendToUser(userID, data.EventPendingSensor, sensorPayload(topic, reading))
		return
	}

	result := p.evaluator.Evaluate(info.kind, info.zone, value)
	reading.IsCritical = result.Evaluated && result.Critical

	if reading.IsCritical {
		p.handleCritical(ctx, topic, reading, result)
	} else {
		p.buffer.Put(reading)
	}

	p.events.SendToUser(userID, data.EventSensorData, sensorPayload(topic, reading))
}

// handleCritical persists a critical reading immediately unless the
// deduplicator suppresses it as a near-duplicate of the last one.
func (p *Pipeline) handleCritical(ctx context.Context, topic string, reading data.Reading, result thresholds.Result) {
	if p.memory.Observe(reading.Kind, reading.Zone, reading.Value) {
		p.log.Debug("suppressing near-duplicate critical value",
			zap.String("topic", topic), zap.Float64("value", reading.Value))
		return
	}

	if err := p.store.Insert(ctx, reading); err != nil {
		p.log.Warn("critical insert failed", zap.String("topic", topic), zap.Error(err))
	}

	p.events.SendToUser(reading.UserID, data.EventCriticalValue, map[string]any{
		"topic":       topic,
		"kind":        reading.Kind,
		"zone":        reading.Zone,
		"value":       reading.Value,
		"bounds":      result.Bounds,
		"cycle":       reading.Cycle,
		"is_shedding": reading.IsShedding,
		"timestamp":   reading.Timestamp,
	})

	p.alerts.DispatchCritical(ctx, data.CriticalAlert{
		Kind:      reading.Kind,
		Zone:      reading.Zone,
		Value:     reading.Value,
		Bounds:    result.Bounds,
		UserID:    reading.UserID,
		Timestamp: reading.Timestamp,
	})
}

func (p *Pipeline) handleState(topic string, info tagInfo, userID int, payload string) {
	switch info.state {
	case stateCycle:
		if !p.state.SetCycle(payload) {
			p.log.Debug("dropping unknown cycle payload",
				zap.String("topic", topic), zap.String("payload", payload))
			return
		}
	case stateShedding:
		shedding, ok := envstate.ParseBool(payload)
		if !ok {
			p.log.Debug("dropping unparsable shedding payload",
				zap.String("topic", topic), zap.String("payload", payload))
			return
		}
		p.state.SetShedding(shedding)
	}

	// State changes are always echoed, active or not, so an open
	// dashboard reflects the enclosure immediately.
	snap := p.state.Snapshot()
	p.events.SendToUser(userID, data.EventSensorData, map[string]any{
		"topic":       topic,
		"payload":     payload,
		"cycle":       snap.Cycle,
		"is_shedding": snap.IsShedding,
		"timestamp":   p.now(),
	})
}

func (p *Pipeline) handleActuator(topic, tag string, userID int, payload string) {
	// Purely informational echo; actuator states are never persisted.
	p.events.SendToUser(userID, data.EventActuatorConfirm, map[string]any{
		"topic":     topic,
		"actuator":  tag,
		"payload":   payload,
		"timestamp": p.now(),
	})
}

// FlushPending drains the non-critical buffer into storage. Run on a
// fixed interval; each row's failure is logged independently and never
// stops the batch.
func (p *Pipeline) FlushPending(ctx context.Context) {
	readings := p.buffer.Drain()
	for _, r := range readings {
		if err := p.store.Insert(ctx, r); err != nil {
			p.log.Warn("buffered insert failed",
				zap.String("kind", string(r.Kind)),
				zap.String("zone", string(r.Zone)),
				zap.Error(err))
		}
	}
	if len(readings) > 0 {
		p.log.Debug("flushed pending readings", zap.Int("count", len(readings)))
	}
}

func sensorPayload(topic string, r data.Reading) map[string]any {
	return map[string]any{
		"topic":       topic,
		"kind":        r.Kind,
		"zone":        r.Zone,
		"value":       r.Value,
		"timestamp":   r.Timestamp,
		"user_id":     r.UserID,
		"is_critical": r.IsCritical,
	}
}
