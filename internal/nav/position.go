// Package nav implements slide navigation: the position cell, the
// visibility policy and the controller that moves through a deck.
//
// Position is tracked as a single flat counter over every (slide, segment)
// pair in declaration order. Only Controller mutates it; everything else
// reads it or subscribes to changes.
package nav

import (
	"errors"
	"fmt"
	"sync"

	"postdeck/internal/deck"
)

// ErrEmptyDeck is returned when navigation is requested over a deck with no
// segments.
var ErrEmptyDeck = errors.New("deck has no segments")

// Position is a location in a deck.
type Position struct {
	Slide   int `json:"slide"`
	Segment int `json:"segment"`
	Flat    int `json:"flat"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Slide, p.Segment)
}

// Direction records how a position change happened.
type Direction int

const (
	DirNone Direction = iota // Restore or reload
	DirForward
	DirBackward
)

func (d Direction) String() string {
	switch d {
	case DirForward:
		return "forward"
	case DirBackward:
		return "backward"
	default:
		return "none"
	}
}

// Change is delivered to subscribers after every transition.
type Change struct {
	From Position
	To   Position
	Dir  Direction
}

// Observer receives position changes. Observers run synchronously on the
// goroutine that performed the transition.
type Observer func(Change)

// State is the shared position cell for one presentation.
type State struct {
	mu        sync.RWMutex
	deck      *deck.Deck
	flat      int
	observers map[int]Observer
	order     []int
	nextID    int
}

// NewState creates a position cell at the start of d.
func NewState(d *deck.Deck) (*State, error) {
	if d == nil || d.Total() == 0 {
		return nil, ErrEmptyDeck
	}
	return &State{
		deck:      d,
		observers: make(map[int]Observer),
	}, nil
}

// Deck returns the deck currently navigated.
func (s *State) Deck() *deck.Deck {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deck
}

// Position returns the current position.
func (s *State) Position() Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.positionLocked()
}

func (s *State) positionLocked() Position {
	slide, seg, _ := s.deck.Locate(s.flat)
	return Position{Slide: slide, Segment: seg, Flat: s.flat}
}

// Subscribe registers fn for position changes and returns a function that
// removes it.
func (s *State) Subscribe(fn Observer) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.order = append(s.order, id)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
		for i, oid := range s.order {
			if oid == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// set moves to flat and notifies observers. The caller has validated flat.
func (s *State) set(flat int, dir Direction) Change {
	return s.apply(nil, flat, dir)
}

// swap replaces the deck and clamps the position into it.
func (s *State) swap(d *deck.Deck) Change {
	s.mu.RLock()
	flat := s.flat
	s.mu.RUnlock()
	if flat >= d.Total() {
		flat = d.Total() - 1
	}
	return s.apply(d, flat, DirNone)
}

func (s *State) apply(d *deck.Deck, flat int, dir Direction) Change {
	s.mu.Lock()
	from := s.positionLocked()
	if d != nil {
		s.deck = d
	}
	s.flat = flat
	ch := Change{From: from, To: s.positionLocked(), Dir: dir}
	fns := make([]Observer, 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.observers[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ch)
	}
	return ch
}
