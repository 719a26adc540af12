// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"sync"
	"sync/atomic"
)

// State holds the most recent fix shared between the producer and the
// display loop. Readers always see a complete Fix: the pair is swapped as a
// single immutable snapshot.
type State struct {
	last atomic.Pointer[Fix]

	mu   sync.Mutex
	subs map[chan Fix]struct{}
}

// NewState returns an empty State. Load reports ok=false until the first Store.
func NewState() *State {
	return &State{subs: make(map[chan Fix]struct{})}
}

// Store publishes f as the latest fix and notifies subscribers.
func (s *State) Store(f Fix) {
	snap := f
	s.last.Store(&snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		// Keep only the newest value for slow subscribers.
		select {
		case ch <- f:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- f:
			default:
			}
		}
	}
}

// Load returns the latest fix, or ok=false when no fix has arrived yet.
func (s *State) Load() (Fix, bool) {
	p := s.last.Load()
	if p == nil {
		return Fix{}, false
	}
	return *p, true
}

// Subscribe returns a channel receiving each stored fix. Slow receivers only
// see the latest one. The returned func unsubscribes and closes the channel.
func (s *State) Subscribe() (<-chan Fix, func()) {
	ch := make(chan Fix, 1)

	s.mu.Lock()
	if s.subs == nil {
		s.subs = make(map[chan Fix]struct{})
	}
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
}
