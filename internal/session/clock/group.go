package clock

import (
	"sync"
	"time"
)

// Group holds the session's warning, expiry and heartbeat timers as one resource.
// Callbacks from a superseded arm are dropped: Arm invalidates the previous deadlines,
// StartHeartbeat the previous heartbeat, and CancelAll everything.
type Group struct {
	scheduler Scheduler

	mu           sync.Mutex
	deadlineGen  uint64
	heartbeatGen uint64
	warning      Timer
	expiry       Timer
	heartbeat    Timer
}

func NewGroup(scheduler Scheduler) *Group {
	return &Group{scheduler: scheduler}
}

func (g *Group) Now() time.Time {
	return g.scheduler.Now()
}

// Arm replaces the warning and expiry timers. The heartbeat is left running.
func (g *Group) Arm(warnIn, expireIn time.Duration, onWarning, onExpiry func()) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopDeadlines()
	g.deadlineGen++
	gen := g.deadlineGen

	if warnIn < 0 {
		warnIn = 0
	}
	g.warning = g.scheduler.AfterFunc(warnIn, g.guardDeadline(gen, onWarning))
	g.expiry = g.scheduler.AfterFunc(expireIn, g.guardDeadline(gen, onExpiry))
	return gen
}

// StartHeartbeat replaces the heartbeat ticker.
func (g *Group) StartHeartbeat(interval time.Duration, fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.heartbeat != nil {
		g.heartbeat.Stop()
	}
	g.heartbeatGen++
	gen := g.heartbeatGen
	g.heartbeat = g.scheduler.Every(interval, func() {
		g.mu.Lock()
		live := g.heartbeatGen == gen
		g.mu.Unlock()
		if live {
			fn()
		}
	})
}

// CancelAll stops all three timers atomically and invalidates in-flight callbacks.
func (g *Group) CancelAll() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopDeadlines()
	if g.heartbeat != nil {
		g.heartbeat.Stop()
		g.heartbeat = nil
	}
	g.deadlineGen++
	g.heartbeatGen++
}

// Current reports whether gen is still the armed deadline generation.
func (g *Group) Current(gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.deadlineGen == gen
}

func (g *Group) stopDeadlines() {
	if g.warning != nil {
		g.warning.Stop()
		g.warning = nil
	}
	if g.expiry != nil {
		g.expiry.Stop()
		g.expiry = nil
	}
}

func (g *Group) guardDeadline(gen uint64, fn func()) func() {
	return func() {
		if fn == nil || !g.Current(gen) {
			return
		}
		fn()
	}
}
