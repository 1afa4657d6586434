package events

import (
	"sicakap/pkg/model"
	"sync"
	"time"
)

type Type string

const (
	NumberBooked    Type = "number.booked"
	NumberReleased  Type = "number.released"
	NumberConfirmed Type = "number.confirmed"
	NumberExhausted Type = "number.exhausted"
	DateSwitched    Type = "date.switched"
	SessionStarted  Type = "session.started"
	SessionWarning  Type = "session.warning"
	SessionResumed  Type = "session.resumed"
	SessionExpired  Type = "session.expired"
	LoginRequired   Type = "session.login_required"
)

// Event is a state change the rendering layer and the ambient observers react to.
type Event struct {
	Type      Type             `json:"type"`
	Number    int              `json:"number,omitempty"`
	Date      model.SystemDate `json:"date,omitempty"`
	State     string           `json:"state,omitempty"`
	Countdown int              `json:"countdown,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	At        time.Time        `json:"at"`
}

// Observer must not block; slow sinks buffer internally.
type Observer interface {
	Notify(e Event)
}

type ObserverFunc func(e Event)

func (f ObserverFunc) Notify(e Event) {
	f(e)
}

// Broadcaster fans one event out to every subscribed observer in subscription order.
type Broadcaster struct {
	mu        sync.RWMutex
	observers []Observer
	now       func() time.Time
}

func NewBroadcaster(observers ...Observer) *Broadcaster {
	return &Broadcaster{observers: observers, now: time.Now}
}

func (b *Broadcaster) Subscribe(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, o)
}

func (b *Broadcaster) Notify(e Event) {
	if e.At.IsZero() {
		e.At = b.now()
	}

	b.mu.RLock()
	observers := make([]Observer, len(b.observers))
	copy(observers, b.observers)
	b.mu.RUnlock()

	for _, o := range observers {
		o.Notify(e)
	}
}

// Recorder keeps the events it sees, the newest Limit of them when Limit is positive.
// The state endpoint reads the most recent event from it.
type Recorder struct {
	Limit int

	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	if r.Limit > 0 && len(r.events) > r.Limit {
		r.events = append(r.events[:0], r.events[len(r.events)-r.Limit:]...)
	}
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}
