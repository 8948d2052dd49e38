package workflow

import (
	"sync"
	"time"
)

// EventType names a state change of the coordinator
type EventType string

const (
	EventRequestAccepted EventType = "request_accepted"
	EventRequestRejected EventType = "request_rejected"
	EventHintReady       EventType = "hint_ready"
	EventHintFailed      EventType = "hint_failed"
	EventViewStarted     EventType = "view_started"
	EventViewFinished    EventType = "view_finished"
)

type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// Observer receives coordinator events. Notify is called on the
// coordinator's goroutine and must return promptly.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) { f(e) }

type observers struct {
	mu   sync.RWMutex
	list []Observer
}

func (o *observers) add(obs Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.list = append(o.list, obs)
}

func (o *observers) publish(e Event) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, obs := range o.list {
		obs.Notify(e)
	}
}
