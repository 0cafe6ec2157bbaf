// Package broadcast delivers clinic state changes to live displays and
// downstream consumers.
package broadcast

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/hackgods/clinic-queue/internal/clinic"
)

// Envelope is the wire format shared by the websocket hub and the Kafka sink.
type Envelope struct {
	Topic   string    `json:"topic"`
	Payload any       `json:"payload"`
	SentAt  time.Time `json:"sentAt"`
}

func encode(topic string, payload any) ([]byte, error) {
	return json.Marshal(Envelope{Topic: topic, Payload: payload, SentAt: time.Now().UTC()})
}

// Multi fans every event out to each publisher in order.
type Multi []clinic.Publisher

func (m Multi) Publish(topic string, payload any) {
	for _, p := range m {
		p.Publish(topic, payload)
	}
}

// Discard drops every event. Workers that never have subscribers use it.
type Discard struct{}

func (Discard) Publish(string, any) {}

// Event is one recorded publication.
type Event struct {
	Topic   string
	Payload any
}

// Recorder keeps every published event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(topic string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Topic: topic, Payload: payload})
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Topics lists the recorded topics in publication order.
func (r *Recorder) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Topic
	}
	return out
}

// Last returns the most recent payload for topic.
func (r *Recorder) Last(topic string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Topic == topic {
			return r.events[i].Payload, true
		}
	}
	return nil, false
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
