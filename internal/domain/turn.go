package domain

import "sort"

// TurnScheduler walks the seats of a room in seat-index order, skipping
// eliminated seats. It keeps the HasTurn flags of the seats it was built over
// consistent: at most one seat holds the turn.
type TurnScheduler struct {
	order   []*Seat
	current int
}

// NewTurnScheduler builds a scheduler over seats. The current position is
// recovered from the HasTurn flag, so a scheduler can be rebuilt from stored
// state at any time.
func NewTurnScheduler(seats []*Seat) *TurnScheduler {
	order := make([]*Seat, len(seats))
	copy(order, seats)
	sort.SliceStable(order, func(i, j int) bool { return order[i].Index < order[j].Index })

	s := &TurnScheduler{order: order, current: -1}
	for i, seat := range order {
		if seat.HasTurn {
			s.current = i
			break
		}
	}
	return s
}

// First returns the non-eliminated seat with the lowest index.
func (s *TurnScheduler) First() *Seat {
	for _, seat := range s.order {
		if !seat.Eliminated {
			return seat
		}
	}
	return nil
}

// Current returns the seat holding the turn, or nil.
func (s *TurnScheduler) Current() *Seat {
	if s.current < 0 {
		return nil
	}
	return s.order[s.current]
}

// Begin hands the turn to First and clears it everywhere else.
func (s *TurnScheduler) Begin() *Seat {
	first := s.First()
	s.current = -1
	for i, seat := range s.order {
		seat.HasTurn = seat == first
		if seat == first {
			s.current = i
		}
	}
	return first
}

// Advance passes the turn to the next non-eliminated seat after the current
// one, wrapping around. Outgoing and incoming flags change together. With a
// single seat left in play the call changes nothing.
func (s *TurnScheduler) Advance() *Seat {
	if s.current < 0 {
		return s.Begin()
	}
	n := len(s.order)
	for step := 1; step <= n; step++ {
		i := (s.current + step) % n
		next := s.order[i]
		if next.Eliminated {
			continue
		}
		if i == s.current {
			break
		}
		s.order[s.current].HasTurn = false
		next.HasTurn = true
		s.current = i
		return next
	}
	return s.Current()
}

// Clear removes the turn from every seat.
func (s *TurnScheduler) Clear() {
	for _, seat := range s.order {
		seat.HasTurn = false
	}
	s.current = -1
}

// Remaining counts seats still in play.
func (s *TurnScheduler) Remaining() int {
	n := 0
	for _, seat := range s.order {
		if !seat.Eliminated {
			n++
		}
	}
	return n
}
