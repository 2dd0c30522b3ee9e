// internal/data/models.go
package data

import "time"

// SensorKind identifies one of the monitored magnitudes.
type SensorKind string

const (
	KindTemperature SensorKind = "temperatura"
	KindHumidity    SensorKind = "humedad"
	KindUVLight     SensorKind = "luz_uv"
)

// Zone distinguishes the two temperature probes inside the terrarium.
// Only temperature readings carry a zone.
type Zone string

const (
	ZoneNone Zone = ""
	ZoneCold Zone = "fria"
	ZoneHot  Zone = "caliente"
)

// Cycle is the light cycle the terrarium is currently in.
type Cycle string

const (
	CycleDay   Cycle = "dia"
	CycleNight Cycle = "noche"
	CycleDawn  Cycle = "amanecer"
)

// Reading is a single evaluated sensor sample. Immutable once persisted;
// rows are only ever removed by retention pruning.
type Reading struct {
	Kind       SensorKind `json:"kind"`
	Zone       Zone       `json:"zone,omitempty"`
	Value      float64    `json:"value"`
	Timestamp  time.Time  `json:"timestamp"`
	UserID     int        `json:"user_id"`
	Cycle      Cycle      `json:"cycle,omitempty"`
	IsShedding bool       `json:"is_shedding"`
	IsCritical bool       `json:"is_critical"`
}

// Bounds is an inclusive comfort range; values strictly outside it are
// critical.
type Bounds struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Contains reports whether v is within the range. Values exactly on a
// bound are in range.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Low && v <= b.High
}

// CriticalAlert carries everything the alert dispatcher needs to compose
// a notification for a threshold breach.
type CriticalAlert struct {
	Kind      SensorKind `json:"kind"`
	Zone      Zone       `json:"zone,omitempty"`
	Value     float64    `json:"value"`
	Bounds    Bounds     `json:"bounds"`
	UserID    int        `json:"user_id"`
	Timestamp time.Time  `json:"timestamp"`
}

// Realtime event names, server to client. These are part of the wire
// protocol with the dashboard and must not change.
const (
	EventSensorData       = "sensor-data"
	EventCriticalValue    = "valor-critico"
	EventPendingSensor    = "sensor-pendiente"
	EventActuatorConfirm  = "actuator-confirmed"
	EventUserStatusChange = "user-status-change"
	EventUserConfirmed    = "user-confirmed"
)

// Realtime event names, client to server.
const (
	EventUserActivity  = "user-activity"
	EventDeviceCommand = "device-command"
)
