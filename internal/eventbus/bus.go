// Package eventbus provides an in-process pub/sub bus for change events:
// component registrations and document mutations. Handlers publish after the
// change is stored; subscribers process events asynchronously.
package eventbus

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	ComponentRegistered = "component.registered"
	DocumentSaved       = "document.saved"
	DocumentDeleted     = "document.deleted"
	DocumentBackedUp    = "document.backed_up"
)

// Event describes one change. Subject is the component type key or
// "collection/id"; Data carries the changed value when the publisher has it.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Subject string    `json:"subject"`
	At      time.Time `json:"at"`
	Data    any       `json:"data,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType, subject string, data any) Event {
	return Event{
		ID:      uuid.New().String(),
		Type:    eventType,
		Subject: subject,
		At:      time.Now().UTC(),
		Data:    data,
	}
}

// Handler processes an event. Implementations must be safe for concurrent
// calls from different goroutines.
type Handler interface {
	HandleEvent(ctx context.Context, evt Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Bus is a simple in-process event bus. Events are published to a buffered
// channel and dispatched to all subscribers in a single consumer goroutine.
type Bus struct {
	mu          sync.RWMutex
	subscribers []namedHandler
	nextID      int
	events      chan Event
	quit        chan struct{}
	done        chan struct{}
	stopOnce    sync.Once
}

type namedHandler struct {
	id      int
	name    string
	handler Handler
}

// New creates a new Bus with the given channel buffer size.
func New(bufSize int) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	return &Bus{
		events: make(chan Event, bufSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Subscribe registers a named handler and returns a function that removes
// it. Subscribers may come and go while the bus runs.
func (b *Bus) Subscribe(name string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subscribers = append(b.subscribers, namedHandler{id: id, name: name, handler: h})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subscribers {
			if s.id == id {
				b.subscribers = append(b.subscribers[:i:i], b.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Publish sends an event to the bus. Non-blocking: if the buffer is full
// the event is dropped and a warning is logged. A nil bus discards events.
func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}
	select {
	case b.events <- evt:
	default:
		log.Printf("eventbus: buffer full, dropping event %s (%s)", evt.Type, evt.ID)
	}
}

// Start begins the consumer goroutine. It processes events until the
// context is cancelled or Stop is called.
func (b *Bus) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		for {
			select {
			case evt := <-b.events:
				b.dispatch(ctx, evt)
			case <-ctx.Done():
				b.drain(ctx)
				return
			case <-b.quit:
				b.drain(ctx)
				return
			}
		}
	}()
}

// Stop waits for the consumer goroutine to finish. Events still buffered
// are dispatched first.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() { close(b.quit) })
	<-b.done
}

func (b *Bus) drain(ctx context.Context) {
	for {
		select {
		case evt := <-b.events:
			b.dispatch(ctx, evt)
		default:
			return
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, evt Event) {
	b.mu.RLock()
	subs := make([]namedHandler, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			log.Printf("eventbus: %s handler error for %s: %v", s.name, evt.Type, err)
		}
	}
}
