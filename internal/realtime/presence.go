// internal/realtime/presence.go
package realtime

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Presence tracks which users are active. A user is active while their
// last activity is within the inactivity timeout; sensor ingestion for a
// user is accepted only while they are active, which bounds storage
// growth from unattended hardware.
type Presence struct {
	mu           sync.Mutex
	lastActivity map[int]time.Time
	timeout      time.Duration
	notify       func(userID int, active bool)
	log          *zap.Logger

	now func() time.Time // swappable in tests
}

func NewPresence(timeout time.Duration, notify func(userID int, active bool), log *zap.Logger) *Presence {
	return &Presence{
		lastActivity: make(map[int]time.Time),
		timeout:      timeout,
		notify:       notify,
		log:          log,
		now:          time.Now,
	}
}

// Touch marks the user active now. An inactive-to-active transition is
// announced to the user's own session.
func (p *Presence) Touch(userID int) {
	p.mu.Lock()
	_, wasTracked := p.lastActivity[userID]
	p.lastActivity[userID] = p.now()
	p.mu.Unlock()

	if !wasTracked {
		p.log.Info("user became active", zap.Int("user_id", userID))
		p.notify(userID, true)
	}
}

// IsActive reports whether the user is tracked and within the timeout.
// An entry found past its timeout is evicted on the spot and the
// inactive transition announced, so expiry heals itself on the hot path
// without waiting for the sweep.
func (p *Presence) IsActive(userID int) bool {
	p.mu.Lock()
	last, ok := p.lastActivity[userID]
	if !ok {
		p.mu.Unlock()
		return false
	}
	if p.now().Sub(last) >= p.timeout {
		delete(p.lastActivity, userID)
		p.mu.Unlock()
		p.log.Info("user expired by inactivity", zap.Int("user_id", userID))
		p.notify(userID, false)
		return false
	}
	p.mu.Unlock()
	return true
}

// Deactivate removes the user explicitly. The inactive event is emitted
// only if the user was actually tracked.
func (p *Presence) Deactivate(userID int, reason string) {
	p.mu.Lock()
	_, wasTracked := p.lastActivity[userID]
	delete(p.lastActivity, userID)
	p.mu.Unlock()

	if wasTracked {
		p.log.Info("user deactivated", zap.Int("user_id", userID), zap.String("reason", reason))
		p.notify(userID, false)
	}
}

// Sweep evicts every entry past the timeout. Run periodically so stale
// entries do not linger when nothing queries them.
func (p *Presence) Sweep() {
	p.mu.Lock()
	now := p.now()
	var expired []int
	for userID, last := range p.lastActivity {
		if now.Sub(last) >= p.timeout {
			delete(p.lastActivity, userID)
			expired = append(expired, userID)
		}
	}
	p.mu.Unlock()

	for _, userID := range expired {
		p.log.Info("user expired by sweep", zap.Int("user_id", userID))
		p.notify(userID, false)
	}
}
