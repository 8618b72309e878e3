package model

import (
	"sync"
	"time"

	"github.com/cfclient-project/cfclient/internal/events"
)

// StateChange is one recorded connection state transition.
type StateChange struct {
	State  events.ConnectionState `json:"state"`
	Reason string                 `json:"reason,omitempty"`
	At     time.Time              `json:"at"`
}

const maxStateHistory = 32

// GUIState is the default GUIStateSink. It keeps the current state and a
// short history for inspection.
type GUIState struct {
	mu      sync.RWMutex
	current StateChange
	history []StateChange
}

// NewGUIState creates a sink in the connecting state.
func NewGUIState() *GUIState {
	return &GUIState{current: StateChange{State: events.StateConnecting, At: time.Now()}}
}

// ConnectionStateChanged records a transition.
func (g *GUIState) ConnectionStateChanged(state events.ConnectionState, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.current = StateChange{State: state, Reason: reason, At: time.Now()}
	g.history = append(g.history, g.current)
	if len(g.history) > maxStateHistory {
		g.history = g.history[len(g.history)-maxStateHistory:]
	}
}

// Current returns the latest state.
func (g *GUIState) Current() StateChange {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current
}

// History returns the recorded transitions, oldest first.
func (g *GUIState) History() []StateChange {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]StateChange(nil), g.history...)
}
