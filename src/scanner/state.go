package scanner

import (
	"sync"

	"cryptobroker/src/model"
)

// State is the single-writer cell holding the most recent Signal. Scan jobs
// publish a fully-built signal at the end of a cycle; readers never observe
// a partially-constructed one.
type State struct {
	mu  sync.RWMutex
	sig *model.Signal
}

func NewState() *State {
	return &State{}
}

// Publish atomically replaces the current signal. Last write wins.
func (s *State) Publish(sig *model.Signal) {
	s.mu.Lock()
	s.sig = sig
	s.mu.Unlock()
}

// Current returns the latest signal, or nil if no scan has completed yet.
func (s *State) Current() *model.Signal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sig
}
