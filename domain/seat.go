package domain

import (
	"github.com/lazharichir/holdem/cards"
)

// NumSeats is the number of positions at a table.
const NumSeats = 8

// SeatStatus is the state a seat is in during a hand. A seat is in exactly
// one state at a time, so combinations like "folded but still to act"
// cannot be represented.
type SeatStatus string

const (
	SeatEmpty   SeatStatus = "empty"   // no player seated
	SeatWaiting SeatStatus = "waiting" // seated, not part of the current hand
	SeatToAct   SeatStatus = "to_act"  // in the hand, still owes an action this round
	SeatActed   SeatStatus = "acted"   // in the hand, matched the outstanding bet
	SeatAllIn   SeatStatus = "all_in"  // whole stack committed, no further actions
	SeatFolded  SeatStatus = "folded"  // out of the hand, keeps the seat
)

// Seat represents one of the positions at a poker table.
type Seat struct {
	Position   int
	PlayerID   string
	Name       string
	Chips      int
	HoleCards  cards.HeldStack
	CurrentBet int // chips committed this street
	Status     SeatStatus
	Automated  bool // acts on its own via the scheduler

	// contributed tracks chips committed this hand across all streets,
	// so an aborted hand can refund them.
	contributed int
}

// Occupied reports whether a player holds the seat.
func (s *Seat) Occupied() bool {
	return s.Status != SeatEmpty && s.PlayerID != ""
}

// InHand reports whether the seat was dealt into the current hand.
func (s *Seat) InHand() bool {
	switch s.Status {
	case SeatToAct, SeatActed, SeatAllIn, SeatFolded:
		return true
	}
	return false
}

// Live reports whether the seat can still win the current hand.
func (s *Seat) Live() bool {
	switch s.Status {
	case SeatToAct, SeatActed, SeatAllIn:
		return true
	}
	return false
}

// CanAct reports whether the seat owes an action this betting round.
func (s *Seat) CanAct() bool {
	return s.Status == SeatToAct
}

// Contributed returns the chips the seat has committed this hand.
func (s *Seat) Contributed() int {
	return s.contributed
}

// commit moves chips from the stack into the seat's street bet and returns
// the amount actually moved, capped at the remaining stack (all-in for less).
func (s *Seat) commit(amount int) int {
	if amount > s.Chips {
		amount = s.Chips
	}
	s.Chips -= amount
	s.CurrentBet += amount
	s.contributed += amount
	if s.Chips == 0 {
		s.Status = SeatAllIn
	}
	return amount
}

// resetForHand prepares an occupied seat for a fresh hand.
func (s *Seat) resetForHand() {
	s.HoleCards = nil
	s.CurrentBet = 0
	s.contributed = 0
	if s.Occupied() {
		s.Status = SeatToAct
	}
}
