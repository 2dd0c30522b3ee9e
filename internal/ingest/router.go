// internal/ingest/router.go
package ingest

import (
	"strconv"
	"strings"

	"github.com/alegjs044/Gecko-house-sub000/internal/data"
)

// Namespace is the fixed first segment of every topic this gateway owns.
const Namespace = "terrario"

type category int

const (
	categorySensor category = iota
	categoryState
	categoryActuator
)

type stateKind int

const (
	stateNone stateKind = iota
	stateCycle
	stateShedding
)

// tagInfo is the static metadata attached to a topic's middle segment.
type tagInfo struct {
	category category
	kind     data.SensorKind
	zone     data.Zone
	state    stateKind
}

// tagTable maps topic tags to their handling. Anything not listed here
// is dropped on arrival.
var tagTable = map[string]tagInfo{
	"temperatura_fria":     {category: categorySensor, kind: data.KindTemperature, zone: data.ZoneCold},
	"temperatura_caliente": {category: categorySensor, kind: data.KindTemperature, zone: data.ZoneHot},
	"humedad":              {category: categorySensor, kind: data.KindHumidity},
	"luz_uv":               {category: categorySensor, kind: data.KindUVLight},

	"ciclo": {category: categoryState, state: stateCycle},
	"muda":  {category: categoryState, state: stateShedding},

	"foco":          {category: categoryActuator},
	"placa_termica": {category: categoryActuator},
	"humidificador": {category: categoryActuator},
}

const userPrefix = "User"

// parseTopic splits "terrario/<tag>/User<id>" into its tag and owning
// user. Malformed topics report ok=false; the transport has no reply
// channel, so the caller just drops them.
func parseTopic(topic string) (tag string, userID int, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 {
		return "", 0, false
	}
	if parts[0] != Namespace {
		return "", 0, false
	}
	if !strings.HasPrefix(parts[2], userPrefix) {
		return "", 0, false
	}
	id, err := strconv.Atoi(parts[2][len(userPrefix):])
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return parts[1], id, true
}
