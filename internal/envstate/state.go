// internal/envstate/state.go
package envstate

import (
	"strings"
	"sync"

	"github.com/alegjs044/Gecko-house-sub000/internal/data"
)

// Snapshot is a point-in-time copy of the environmental state, safe to
// carry across I/O boundaries.
type Snapshot struct {
	Cycle       data.Cycle
	IsShedding  bool
	Initialized bool
}

// LastSeen holds the most recent raw value per sensor, for the dashboard
// and for realtime echoes.
type LastSeen struct {
	ColdTemp float64
	HotTemp  float64
	Humidity float64
	UVLight  float64
}

// Store tracks the current cycle and shedding state of the terrarium.
// Both must have been reported at least once before any threshold
// evaluation is allowed; until then Snapshot().Initialized is false.
// State is per process: the hardware reports one enclosure.
type Store struct {
	mu       sync.RWMutex
	cycle    data.Cycle
	cycleSet bool
	shedding bool
	shedSet  bool
	lastSeen LastSeen
}

func New() *Store {
	return &Store{}
}

// SetCycle updates the light cycle from a free-text payload. Unknown
// values are ignored and reported as false.
func (s *Store) SetCycle(raw string) bool {
	cycle, ok := ParseCycle(raw)
	if !ok {
		return false
	}
	s.mu.Lock()
	s.cycle = cycle
	s.cycleSet = true
	s.mu.Unlock()
	return true
}

// SetShedding updates the shedding flag.
func (s *Store) SetShedding(shedding bool) {
	s.mu.Lock()
	s.shedding = shedding
	s.shedSet = true
	s.mu.Unlock()
}

// Snapshot returns the current state. Initialized is true once both the
// cycle and the shedding flag have been set at least once.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Cycle:       s.cycle,
		IsShedding:  s.shedding,
		Initialized: s.cycleSet && s.shedSet,
	}
}

// RecordReading remembers the latest raw value for a sensor.
func (s *Store) RecordReading(kind data.SensorKind, zone data.Zone, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case kind == data.KindTemperature && zone == data.ZoneCold:
		s.lastSeen.ColdTemp = value
	case kind == data.KindTemperature && zone == data.ZoneHot:
		s.lastSeen.HotTemp = value
	case kind == data.KindHumidity:
		s.lastSeen.Humidity = value
	case kind == data.KindUVLight:
		s.lastSeen.UVLight = value
	}
}

// LastSeen returns a copy of the most recent values.
func (s *Store) LastSeen() LastSeen {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// ParseCycle maps a cycle payload to a Cycle. Payloads arrive as free
// text; they are lower-cased and both Spanish and English names are
// accepted.
func ParseCycle(raw string) (data.Cycle, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "dia", "día", "day":
		return data.CycleDay, true
	case "noche", "night":
		return data.CycleNight, true
	case "amanecer", "dawn":
		return data.CycleDawn, true
	default:
		return "", false
	}
}

// ParseBool maps a state payload to a boolean. Hardware sends "0"/"1",
// the dashboard sends "true"/"false".
func ParseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true":
		return true, true
	case "0", "false":
		return false, true
	default:
		return false, false
	}
}
