package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrMapHandlerInstalled is returned when a map update handler is installed
// while another one is active.
var ErrMapHandlerInstalled = errors.New("map update handler already installed")

// HandlerFunc is a function that handles an event.
type HandlerFunc func(ctx context.Context, event Event) error

// EventBus is the listener registry of a server connection. Handlers of one
// event type run synchronously on the emitting goroutine, in registration
// order, before Emit returns.
//
// Map updates go to a single-slot handler instead of a handler list.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]handlerEntry
	mapSlot  *handlerEntry
	stopped  bool
}

type handlerEntry struct {
	name    string
	handler HandlerFunc
}

// NewEventBus creates a new EventBus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]handlerEntry),
	}
}

// Subscribe registers a handler function for a specific event type.
// The name parameter is used for logging and for Unsubscribe.
func (eb *EventBus) Subscribe(eventType EventType, name string, handler HandlerFunc) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handlerEntry{
		name:    name,
		handler: handler,
	})

	log.Debug().
		Str("event", string(eventType)).
		Str("handler", name).
		Msg("subscribed to event")
}

// Unsubscribe removes a named handler from a specific event type.
func (eb *EventBus) Unsubscribe(eventType EventType, name string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	handlers, exists := eb.handlers[eventType]
	if !exists {
		return
	}

	filtered := make([]handlerEntry, 0, len(handlers))
	for _, h := range handlers {
		if h.name != name {
			filtered = append(filtered, h)
		}
	}
	eb.handlers[eventType] = filtered

	log.Debug().
		Str("event", string(eventType)).
		Str("handler", name).
		Msg("unsubscribed from event")
}

// SetMapHandler installs the map update handler. Installing a second handler
// while one is active returns ErrMapHandlerInstalled.
func (eb *EventBus) SetMapHandler(name string, handler HandlerFunc) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.mapSlot != nil {
		return fmt.Errorf("%w: %s", ErrMapHandlerInstalled, eb.mapSlot.name)
	}
	eb.mapSlot = &handlerEntry{name: name, handler: handler}

	log.Debug().Str("handler", name).Msg("map update handler installed")
	return nil
}

// ClearMapHandler removes the map update handler if it is the named one.
func (eb *EventBus) ClearMapHandler(name string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.mapSlot != nil && eb.mapSlot.name == name {
		eb.mapSlot = nil
	}
}

// Emit delivers an event to every handler of its type and returns the first
// handler error. EventMapUpdate events go to the map update handler. A
// panicking handler is logged and treated as returning no error.
func (eb *EventBus) Emit(ctx context.Context, event Event) error {
	eb.mu.RLock()
	if eb.stopped {
		eb.mu.RUnlock()
		return nil
	}

	var handlers []handlerEntry
	if event.Type == EventMapUpdate {
		if eb.mapSlot != nil {
			handlers = []handlerEntry{*eb.mapSlot}
		}
	} else {
		// Copy handlers to release lock before executing
		handlers = make([]handlerEntry, len(eb.handlers[event.Type]))
		copy(handlers, eb.handlers[event.Type])
	}
	eb.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}

	log.Trace().
		Str("event", string(event.Type)).
		Str("source", event.Source).
		Int("handlers", len(handlers)).
		Msg("emitting event")

	var firstErr error
	for _, h := range handlers {
		if err := eb.invoke(ctx, h, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (eb *EventBus) invoke(ctx context.Context, h handlerEntry, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("event", string(event.Type)).
				Str("handler", h.name).
				Interface("panic", r).
				Msg("handler panicked")
			err = nil
		}
	}()

	if err = h.handler(ctx, event); err != nil {
		log.Error().
			Err(err).
			Str("event", string(event.Type)).
			Str("handler", h.name).
			Msg("handler returned error")
	}
	return err
}

// Stop makes the EventBus drop every later event.
func (eb *EventBus) Stop() {
	eb.mu.Lock()
	eb.stopped = true
	eb.mu.Unlock()

	log.Info().Msg("event bus stopped")
}

// HandlerCount returns the number of handlers registered for a specific event type.
func (eb *EventBus) HandlerCount(eventType EventType) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eventType == EventMapUpdate {
		if eb.mapSlot != nil {
			return 1
		}
		return 0
	}
	return len(eb.handlers[eventType])
}
