package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/alegjs044/Gecko-house-sub000/internal/data"
)

func newTestHub(t *testing.T, grace time.Duration) *Hub {
	t.Helper()
	return NewHub(time.Minute, grace, zaptest.NewLogger(t))
}

// drain decodes every event currently buffered on a client.
func drain(t *testing.T, c *Client) []string {
	t.Helper()
	var events []string
	for {
		select {
		case raw := <-c.Send:
			var msg struct {
				Type string `json:"type"`
			}
			require.NoError(t, json.Unmarshal(raw, &msg))
			events = append(events, msg.Type)
		default:
			return events
		}
	}
}

func TestRegisterConfirmsAndActivates(t *testing.T) {
	hub := newTestHub(t, time.Minute)
	client := NewClient(hub, nil, 7, zaptest.NewLogger(t))

	hub.Register(7, client)

	events := drain(t, client)
	assert.Contains(t, events, data.EventUserConfirmed)
	assert.Contains(t, events, data.EventUserStatusChange)
	assert.True(t, hub.Presence().IsActive(7))

	userID, ok := hub.UserFor(client.ID)
	require.True(t, ok)
	assert.Equal(t, 7, userID)
}

func TestSendToUserWithoutSession(t *testing.T) {
	hub := newTestHub(t, time.Minute)
	assert.False(t, hub.SendToUser(99, data.EventSensorData, nil))
}

func TestSingleSessionPerUser(t *testing.T) {
	hub := newTestHub(t, time.Minute)
	a := NewClient(hub, nil, 7, zaptest.NewLogger(t))
	b := NewClient(hub, nil, 7, zaptest.NewLogger(t))

	hub.Register(7, a)
	drain(t, a)
	hub.Register(7, b)
	drain(t, b)

	require.True(t, hub.SendToUser(7, data.EventSensorData, map[string]any{"value": 27.0}))

	assert.Empty(t, drain(t, a), "evicted connection must receive nothing")
	assert.Equal(t, []string{data.EventSensorData}, drain(t, b))

	_, ok := hub.UserFor(a.ID)
	assert.False(t, ok, "evicted connection mapping must be removed")
}

func TestSendReachesOnlyOwningUser(t *testing.T) {
	hub := newTestHub(t, time.Minute)
	alice := NewClient(hub, nil, 1, zaptest.NewLogger(t))
	bob := NewClient(hub, nil, 2, zaptest.NewLogger(t))
	hub.Register(1, alice)
	hub.Register(2, bob)
	drain(t, alice)
	drain(t, bob)

	hub.SendToUser(1, data.EventCriticalValue, map[string]any{"value": 25.5})

	assert.Equal(t, []string{data.EventCriticalValue}, drain(t, alice))
	assert.Empty(t, drain(t, bob))
}

func TestDisconnectRemovesMappingImmediately(t *testing.T) {
	hub := newTestHub(t, time.Minute)
	client := NewClient(hub, nil, 7, zaptest.NewLogger(t))
	hub.Register(7, client)

	hub.Disconnect(client)

	_, ok := hub.UserFor(client.ID)
	assert.False(t, ok)
	assert.False(t, hub.SendToUser(7, data.EventSensorData, nil))
	// Liveness removal is deferred by the grace period.
	assert.True(t, hub.Presence().IsActive(7))
}

func TestDisconnectDeactivatesAfterGrace(t *testing.T) {
	hub := newTestHub(t, 15*time.Millisecond)
	client := NewClient(hub, nil, 7, zaptest.NewLogger(t))
	hub.Register(7, client)

	hub.Disconnect(client)

	assert.Eventually(t, func() bool { return !hub.Presence().IsActive(7) },
		time.Second, 5*time.Millisecond)
}

func TestReconnectWithinGraceStaysActive(t *testing.T) {
	hub := newTestHub(t, 25*time.Millisecond)
	first := NewClient(hub, nil, 7, zaptest.NewLogger(t))
	hub.Register(7, first)
	hub.Disconnect(first)

	second := NewClient(hub, nil, 7, zaptest.NewLogger(t))
	hub.Register(7, second)

	time.Sleep(60 * time.Millisecond)
	assert.True(t, hub.Presence().IsActive(7), "reconnect inside the grace period must cancel deactivation")
}

func TestForwardCommandWithoutPublisherIsDropped(t *testing.T) {
	hub := newTestHub(t, time.Minute)
	// Must not panic.
	hub.ForwardCommand("terrario/foco/User7", "1")
}

func TestForwardCommandUsesPublisher(t *testing.T) {
	hub := newTestHub(t, time.Minute)
	var gotTopic, gotPayload string
	hub.SetPublisher(func(topic, payload string) error {
		gotTopic, gotPayload = topic, payload
		return nil
	})

	hub.ForwardCommand("terrario/foco/User7", "1")
	assert.Equal(t, "terrario/foco/User7", gotTopic)
	assert.Equal(t, "1", gotPayload)
}
