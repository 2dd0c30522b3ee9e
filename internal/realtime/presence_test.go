package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type statusRecorder struct {
	events []struct {
		userID int
		active bool
	}
}

func (r *statusRecorder) record(userID int, active bool) {
	r.events = append(r.events, struct {
		userID int
		active bool
	}{userID, active})
}

func newTestPresence(t *testing.T) (*Presence, *statusRecorder, *time.Time) {
	t.Helper()
	rec := &statusRecorder{}
	p := NewPresence(time.Minute, rec.record, zaptest.NewLogger(t))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }
	return p, rec, &now
}

func TestTouchAnnouncesActiveTransitionOnce(t *testing.T) {
	p, rec, _ := newTestPresence(t)

	p.Touch(7)
	p.Touch(7)
	p.Touch(7)

	require.Len(t, rec.events, 1, "only the inactive-to-active transition is announced")
	assert.Equal(t, 7, rec.events[0].userID)
	assert.True(t, rec.events[0].active)
}

func TestIsActiveWithinTimeout(t *testing.T) {
	p, _, now := newTestPresence(t)

	p.Touch(7)
	*now = now.Add(59 * time.Second)
	assert.True(t, p.IsActive(7))
}

func TestIsActiveEvictsLazilyPastTimeout(t *testing.T) {
	p, rec, now := newTestPresence(t)

	p.Touch(7)
	*now = now.Add(time.Minute)

	assert.False(t, p.IsActive(7))
	require.Len(t, rec.events, 2)
	assert.False(t, rec.events[1].active, "lazy eviction announces the inactive transition")

	// Entry is gone; a second check stays silent.
	assert.False(t, p.IsActive(7))
	assert.Len(t, rec.events, 2)
}

func TestIsActiveUntrackedUser(t *testing.T) {
	p, rec, _ := newTestPresence(t)
	assert.False(t, p.IsActive(42))
	assert.Empty(t, rec.events)
}

func TestDeactivateOnlyAnnouncesTrackedUsers(t *testing.T) {
	p, rec, _ := newTestPresence(t)

	p.Deactivate(7, "disconnect")
	assert.Empty(t, rec.events, "deactivating an untracked user is silent")

	p.Touch(7)
	p.Deactivate(7, "disconnect")
	require.Len(t, rec.events, 2)
	assert.False(t, rec.events[1].active)
}

func TestSweepEvictsAllExpiredEntries(t *testing.T) {
	p, rec, now := newTestPresence(t)

	p.Touch(1)
	*now = now.Add(30 * time.Second)
	p.Touch(2)
	*now = now.Add(40 * time.Second) // user 1 is now 70s stale, user 2 only 40s

	p.Sweep()

	assert.False(t, p.IsActive(1))
	assert.True(t, p.IsActive(2))

	var inactive []int
	for _, e := range rec.events {
		if !e.active {
			inactive = append(inactive, e.userID)
		}
	}
	assert.Equal(t, []int{1}, inactive)
}
