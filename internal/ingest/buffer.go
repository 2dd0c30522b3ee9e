// internal/ingest/buffer.go
package ingest

import (
	"math"
	"sync"

	"github.com/alegjs044/Gecko-house-sub000/internal/data"
)

type sensorKey struct {
	kind data.SensorKind
	zone data.Zone
}

// CriticalMemory remembers the last persisted critical value per sensor
// so near-duplicate criticals do not each trigger a row and an email.
type CriticalMemory struct {
	mu      sync.Mutex
	last    map[sensorKey]float64
	epsilon float64
}

func NewCriticalMemory(epsilon float64) *CriticalMemory {
	return &CriticalMemory{
		last:    make(map[sensorKey]float64),
		epsilon: epsilon,
	}
}

// Observe decides the fate of a new critical value. Within epsilon of
// the last persisted critical for the same sensor it is suppressed and
// the memory is left untouched; otherwise the memory is overwritten and
// the caller persists and alerts.
func (m *CriticalMemory) Observe(kind data.SensorKind, zone data.Zone, value float64) (suppressed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sensorKey{kind, zone}
	if prior, ok := m.last[key]; ok && math.Abs(value-prior) < m.epsilon {
		return true
	}
	m.last[key] = value
	return false
}

// PendingBuffer holds at most one non-critical reading per sensor,
// awaiting the next periodic flush. Newer readings of the same sensor
// overwrite older ones; last write wins.
type PendingBuffer struct {
	mu    sync.Mutex
	slots map[sensorKey]data.Reading
}

func NewPendingBuffer() *PendingBuffer {
	return &PendingBuffer{slots: make(map[sensorKey]data.Reading)}
}

// Put stores or overwrites the pending reading for the sensor.
func (b *PendingBuffer) Put(r data.Reading) {
	b.mu.Lock()
	b.slots[sensorKey{r.Kind, r.Zone}] = r
	b.mu.Unlock()
}

// Drain atomically empties the buffer and returns the drained readings.
// A reading ingested while the drained batch is being persisted lands in
// the fresh map and survives to the next flush.
func (b *PendingBuffer) Drain() []data.Reading {
	b.mu.Lock()
	slots := b.slots
	b.slots = make(map[sensorKey]data.Reading)
	b.mu.Unlock()

	readings := make([]data.Reading, 0, len(slots))
	for _, r := range slots {
		readings = append(readings, r)
	}
	return readings
}

// Len reports the number of populated slots.
func (b *PendingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.slots)
}
