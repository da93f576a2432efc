package domain

import (
	"fmt"
	"time"

	"github.com/lazharichir/holdem/cards"
	"github.com/lazharichir/holdem/domain/events"
	"github.com/lazharichir/holdem/domain/hands"
)

type HandPhase string

const (
	HandPhase_Waiting  HandPhase = "waiting"
	HandPhase_Dealing  HandPhase = "dealing"
	HandPhase_Preflop  HandPhase = "preflop"
	HandPhase_Flop     HandPhase = "flop"
	HandPhase_Turn     HandPhase = "turn"
	HandPhase_River    HandPhase = "river"
	HandPhase_Showdown HandPhase = "showdown"
	HandPhase_Complete HandPhase = "complete"
)

// Betting reports whether the phase is one of the four betting rounds.
func (p HandPhase) Betting() bool {
	switch p {
	case HandPhase_Preflop, HandPhase_Flop, HandPhase_Turn, HandPhase_River:
		return true
	}
	return false
}

// ActionKind is one of the five player actions in a betting round.
type ActionKind string

const (
	ActionCheck ActionKind = "check"
	ActionCall  ActionKind = "call"
	ActionBet   ActionKind = "bet"
	ActionRaise ActionKind = "raise"
	ActionFold  ActionKind = "fold"
)

// NoTurn is the CurrentTurn value when no seat holds the turn
// (dealing, showdown, complete).
const NoTurn = -1

// Hand represents one hand of poker being played at a table. A hand is
// created fresh for every deal and never reused: terminal hands keep their
// identity so redelivered updates for them can be recognized and dropped.
type Hand struct {
	ID             string
	TableID        string
	Phase          HandPhase
	ButtonPosition int
	Seats          []*Seat // shared with the owning table
	Deck           cards.Stack
	CommunityCards cards.Stack
	Pot            int
	CurrentBet     int // the round's outstanding bet
	CurrentTurn    int // seat position holding the turn, NoTurn otherwise
	Rules          TableRules
	StartedAt      time.Time
	Winners        []hands.SeatResult

	// events
	Events        []events.Event
	eventHandlers []events.EventHandler
}

// RegisterEventHandler registers a callback function that will be called when events occur
func (h *Hand) RegisterEventHandler(handler events.EventHandler) {
	h.eventHandlers = append(h.eventHandlers, handler)
}

// emitEvent notifies all registered handlers of a new event
func (h *Hand) emitEvent(event events.Event) {
	h.Events = append(h.Events, event)

	for _, handler := range h.eventHandlers {
		handler(event)
	}
}

// IsInPhase checks whether the hand is in the given phase
func (h *Hand) IsInPhase(phase HandPhase) bool {
	return h.Phase == phase
}

func (h *Hand) changePhase(next HandPhase) {
	previous := h.Phase
	h.Phase = next

	h.emitEvent(events.PhaseChanged{
		TableID:       h.TableID,
		HandID:        h.ID,
		PreviousPhase: string(previous),
		NewPhase:      string(next),
		At:            time.Now(),
	})
}

// StartDealing deals two hole cards to every seat in the hand and moves the
// hand into the preflop betting round. Calling it outside the waiting phase
// is a stale transition.
func (h *Hand) StartDealing() error {
	if !h.IsInPhase(HandPhase_Waiting) {
		return ErrStaleTransition
	}

	dealable := h.seatsInDealingOrder()
	if len(dealable) < 2 {
		return fmt.Errorf("need at least 2 seats in the hand, have %d", len(dealable))
	}
	if len(h.Deck) < 2*len(dealable)+5 {
		return fmt.Errorf("deck too small: %d cards for %d seats", len(h.Deck), len(dealable))
	}

	h.changePhase(HandPhase_Dealing)
	h.StartedAt = time.Now()

	// Two passes around the table, one card per seat per pass.
	for pass := 0; pass < 2; pass++ {
		for _, seat := range dealable {
			card, rest := cards.DealCard(h.Deck)
			h.Deck = rest
			seat.HoleCards = append(seat.HoleCards, cards.NewHeldCard(card, cards.FaceUpToOwner))
		}
	}

	positions := make([]int, 0, len(dealable))
	for _, seat := range dealable {
		positions = append(positions, seat.Position)
	}

	h.emitEvent(events.HoleCardsDealt{
		TableID:   h.TableID,
		HandID:    h.ID,
		Positions: positions,
		At:        time.Now(),
	})

	// Hole cards are out; preflop betting opens immediately.
	h.changePhase(HandPhase_Preflop)
	h.startBettingRound()

	return nil
}

// seatsInDealingOrder returns the seats dealt into this hand, starting with
// the seat clockwise of the button.
func (h *Hand) seatsInDealingOrder() []*Seat {
	out := make([]*Seat, 0, len(h.Seats))
	for i := 1; i <= NumSeats; i++ {
		seat := h.seatAt((h.ButtonPosition + i) % NumSeats)
		if seat != nil && seat.Status == SeatToAct {
			out = append(out, seat)
		}
	}
	return out
}

func (h *Hand) seatAt(position int) *Seat {
	for _, seat := range h.Seats {
		if seat.Position == position {
			return seat
		}
	}
	return nil
}

// ApplyAction applies a player action to the current betting round.
func (h *Hand) ApplyAction(position int, kind ActionKind, amount int) error {
	return h.applyAction(position, kind, amount, false)
}

// ApplyDefaultAction applies the synthesized action used when a seat times
// out: check when nothing is owed, fold otherwise.
func (h *Hand) ApplyDefaultAction(position int) error {
	kind := h.DefaultActionFor(position)

	seat := h.seatAt(position)
	if seat != nil {
		h.emitEvent(events.PlayerTimedOut{
			TableID:       h.TableID,
			HandID:        h.ID,
			Position:      position,
			PlayerID:      seat.PlayerID,
			Phase:         string(h.Phase),
			DefaultAction: string(kind),
			At:            time.Now(),
		})
	}

	return h.applyAction(position, kind, 0, true)
}

// DefaultActionFor returns the action the scheduler synthesizes for a seat
// that failed to act in time.
func (h *Hand) DefaultActionFor(position int) ActionKind {
	seat := h.seatAt(position)
	if seat != nil && seat.CurrentBet == h.CurrentBet {
		return ActionCheck
	}
	return ActionFold
}

func (h *Hand) applyAction(position int, kind ActionKind, amount int, synthesized bool) error {
	if !h.Phase.Betting() {
		return newActionError(position, kind, ErrInvalidAction)
	}
	if h.CurrentTurn != position {
		return newActionError(position, kind, ErrNotYourTurn)
	}

	seat := h.seatAt(position)
	if seat == nil || !seat.CanAct() {
		return newActionError(position, kind, ErrInvalidAction)
	}

	var committed int

	switch kind {
	case ActionCheck:
		if seat.CurrentBet != h.CurrentBet {
			return newActionError(position, kind, ErrInvalidAction)
		}
		seat.Status = SeatActed

	case ActionCall:
		owed := h.CurrentBet - seat.CurrentBet
		if owed <= 0 {
			return newActionError(position, kind, ErrInvalidAction)
		}
		// A short stack calls for whatever it has left (all-in for less).
		committed = seat.commit(owed)
		if seat.Status != SeatAllIn {
			seat.Status = SeatActed
		}

	case ActionBet:
		if h.CurrentBet != 0 {
			return newActionError(position, kind, ErrInvalidAction)
		}
		if amount < h.Rules.MinBet {
			return newActionError(position, kind, ErrInvalidAction)
		}
		if amount-seat.CurrentBet > seat.Chips {
			return newActionError(position, kind, ErrInsufficientChips)
		}
		committed = seat.commit(amount - seat.CurrentBet)
		h.CurrentBet = seat.CurrentBet
		h.reopenAction(seat)

	case ActionRaise:
		if h.CurrentBet == 0 {
			return newActionError(position, kind, ErrInvalidAction)
		}
		if amount < 2*h.CurrentBet {
			return newActionError(position, kind, ErrInvalidAction)
		}
		if amount-seat.CurrentBet > seat.Chips {
			return newActionError(position, kind, ErrInsufficientChips)
		}
		committed = seat.commit(amount - seat.CurrentBet)
		h.CurrentBet = seat.CurrentBet
		h.reopenAction(seat)

	case ActionFold:
		seat.Status = SeatFolded

	default:
		return newActionError(position, kind, ErrInvalidAction)
	}

	h.emitEvent(events.PlayerActed{
		TableID:     h.TableID,
		HandID:      h.ID,
		Position:    position,
		PlayerID:    seat.PlayerID,
		Action:      string(kind),
		Amount:      committed,
		Synthesized: synthesized,
		At:          time.Now(),
	})

	h.advanceAfterAction()
	return nil
}

// reopenAction puts every seat that had already matched the previous bet
// back on the clock. A bet or raise reopens the round.
func (h *Hand) reopenAction(raiser *Seat) {
	for _, seat := range h.Seats {
		if seat == raiser {
			continue
		}
		if seat.Status == SeatActed {
			seat.Status = SeatToAct
		}
	}
	if raiser.Status != SeatAllIn {
		raiser.Status = SeatActed
	}
}

// advanceAfterAction decides what follows an applied action: fold-out,
// end of the betting round, or the next seat's turn.
func (h *Hand) advanceAfterAction() {
	if h.liveCount() == 1 {
		h.completeFoldOut()
		return
	}

	if h.roundComplete() {
		h.endBettingRound()
		return
	}

	h.CurrentTurn = h.nextToAct(h.CurrentTurn)
	h.emitTurnStarted()
}

// roundComplete holds when no live seat still owes an action: every seat in
// the hand is folded, all-in, or has acted at the outstanding bet.
func (h *Hand) roundComplete() bool {
	for _, seat := range h.Seats {
		if seat.CanAct() {
			return false
		}
	}
	return true
}

func (h *Hand) liveCount() int {
	count := 0
	for _, seat := range h.Seats {
		if seat.Live() {
			count++
		}
	}
	return count
}

// nextToAct returns the position of the next seat owing an action,
// scanning clockwise from (and excluding) the given position.
func (h *Hand) nextToAct(from int) int {
	for i := 1; i <= NumSeats; i++ {
		position := (from + i) % NumSeats
		seat := h.seatAt(position)
		if seat != nil && seat.CanAct() {
			return position
		}
	}
	return NoTurn
}

func (h *Hand) emitTurnStarted() {
	seat := h.seatAt(h.CurrentTurn)
	if seat == nil {
		return
	}
	h.emitEvent(events.PlayerTurnStarted{
		TableID:   h.TableID,
		HandID:    h.ID,
		Position:  seat.Position,
		PlayerID:  seat.PlayerID,
		TimeoutAt: time.Now().Add(h.Rules.PlayerTimeout),
		At:        time.Now(),
	})
}

// startBettingRound opens betting on the current street with the first
// live seat clockwise of the button.
func (h *Hand) startBettingRound() {
	h.CurrentTurn = h.nextToAct(h.ButtonPosition)

	h.emitEvent(events.BettingRoundStarted{
		TableID:    h.TableID,
		HandID:     h.ID,
		Phase:      string(h.Phase),
		FirstToAct: h.CurrentTurn,
		At:         time.Now(),
	})

	h.emitTurnStarted()
}

// endBettingRound sweeps street bets into the pot and either deals the next
// street or runs the showdown. When every live seat is all-in the remaining
// streets are dealt straight through without betting.
func (h *Hand) endBettingRound() {
	for {
		h.collectBets()

		h.emitEvent(events.BettingRoundEnded{
			TableID: h.TableID,
			HandID:  h.ID,
			Phase:   string(h.Phase),
			Pot:     h.Pot,
			At:      time.Now(),
		})

		if h.IsInPhase(HandPhase_River) {
			h.transitionToShowdown()
			return
		}

		h.dealNextStreet()

		if h.hasSeatToAct() {
			h.startBettingRound()
			return
		}
	}
}

// collectBets moves every seat's street bet into the pot and resets the
// round's outstanding bet.
func (h *Hand) collectBets() {
	for _, seat := range h.Seats {
		h.Pot += seat.CurrentBet
		seat.CurrentBet = 0
	}
	h.CurrentBet = 0
	h.CurrentTurn = NoTurn
}

// dealNextStreet deals the flop (3 cards), turn (1), or river (1) based on
// how many community cards are already out, and puts live seats with chips
// back on the clock when betting is still possible.
func (h *Hand) dealNextStreet() {
	var count int
	var next HandPhase

	switch len(h.CommunityCards) {
	case 0:
		count, next = 3, HandPhase_Flop
	case 3:
		count, next = 1, HandPhase_Turn
	case 4:
		count, next = 1, HandPhase_River
	default:
		return
	}

	dealt, rest := cards.DealCards(h.Deck, count)
	h.Deck = rest
	h.CommunityCards = append(h.CommunityCards, dealt...)

	h.changePhase(next)

	h.emitEvent(events.CommunityCardsDealt{
		TableID: h.TableID,
		HandID:  h.ID,
		Street:  string(next),
		Cards:   dealt,
		At:      time.Now(),
	})

	// Betting only reopens when two or more live seats still have chips.
	withChips := 0
	for _, seat := range h.Seats {
		if seat.Live() && seat.Status != SeatAllIn {
			withChips++
		}
	}
	if withChips >= 2 {
		for _, seat := range h.Seats {
			if seat.Status == SeatActed {
				seat.Status = SeatToAct
			}
		}
	}
}

func (h *Hand) hasSeatToAct() bool {
	for _, seat := range h.Seats {
		if seat.CanAct() {
			return true
		}
	}
	return false
}

// completeFoldOut ends the hand when a single live seat remains. The whole
// pot, including uncollected street bets, goes to that seat with no showdown.
func (h *Hand) completeFoldOut() {
	if !h.Phase.Betting() {
		return
	}

	var winner *Seat
	for _, seat := range h.Seats {
		if seat.Live() {
			winner = seat
			break
		}
	}
	if winner == nil {
		return
	}

	h.collectBets()
	total := h.Pot
	before := winner.Chips
	winner.Chips += total
	h.Pot = 0

	h.emitEvent(events.PlayerChipsChanged{
		TableID:  h.TableID,
		PlayerID: winner.PlayerID,
		Before:   before,
		After:    winner.Chips,
		Change:   total,
		At:       time.Now(),
	})

	h.emitEvent(events.PotAwarded{
		TableID:    h.TableID,
		HandID:     h.ID,
		Positions:  []int{winner.Position},
		PlayerIDs:  []string{winner.PlayerID},
		AmountEach: total,
		At:         time.Now(),
	})

	h.finish([]string{winner.PlayerID}, total)
}

// transitionToShowdown compares the remaining hands and splits the pot
// evenly among the winners. The odd chip goes to the winner seated closest
// clockwise of the button.
func (h *Hand) transitionToShowdown() {
	if !h.IsInPhase(HandPhase_River) {
		return
	}

	h.changePhase(HandPhase_Showdown)

	contenders := make([]hands.Contender, 0, len(h.Seats))
	for _, seat := range h.Seats {
		if !seat.Live() {
			continue
		}
		contenders = append(contenders, hands.Contender{
			Position:  seat.Position,
			PlayerID:  seat.PlayerID,
			HoleCards: seat.HoleCards.Cards(),
		})

		// Showdown flips the remaining hole cards face up.
		for i := range seat.HoleCards {
			seat.HoleCards[i].Visibility = cards.FaceUpToAll
		}
	}

	results := hands.EvaluateContenders(contenders, h.CommunityCards)
	winners := hands.Winners(results)
	h.Winners = winners

	total := h.Pot
	each, remainder := hands.SplitPot(total, len(winners))

	// Odd chip to the first winner clockwise of the button.
	oddPosition := NoTurn
	if remainder > 0 {
	clockwise:
		for i := 1; i <= NumSeats; i++ {
			position := (h.ButtonPosition + i) % NumSeats
			for _, w := range winners {
				if w.Position == position {
					oddPosition = position
					break clockwise
				}
			}
		}
	}

	positions := make([]int, 0, len(winners))
	playerIDs := make([]string, 0, len(winners))
	for _, w := range winners {
		seat := h.seatAt(w.Position)
		share := each
		if w.Position == oddPosition {
			share += remainder
		}
		before := seat.Chips
		seat.Chips += share
		positions = append(positions, w.Position)
		playerIDs = append(playerIDs, w.PlayerID)

		h.emitEvent(events.PlayerChipsChanged{
			TableID:  h.TableID,
			PlayerID: w.PlayerID,
			Before:   before,
			After:    seat.Chips,
			Change:   share,
			At:       time.Now(),
		})
	}

	h.Pot = 0

	description := ""
	if len(winners) > 0 {
		description = winners[0].Description
	}

	h.emitEvent(events.PotAwarded{
		TableID:     h.TableID,
		HandID:      h.ID,
		Positions:   positions,
		PlayerIDs:   playerIDs,
		AmountEach:  each,
		Description: description,
		At:          time.Now(),
	})

	h.finish(playerIDs, total)
}

func (h *Hand) finish(winners []string, finalPot int) {
	h.CurrentTurn = NoTurn
	h.changePhase(HandPhase_Complete)

	h.emitEvent(events.HandEnded{
		TableID:  h.TableID,
		HandID:   h.ID,
		Duration: time.Since(h.StartedAt).Milliseconds(),
		FinalPot: finalPot,
		Winners:  winners,
		At:       time.Now(),
	})
}

// Abort cancels a stuck hand: every seat gets its contributed chips back,
// nobody is awarded anything, and the table returns to waiting for the next
// hand. Aborting a finished hand is a no-op.
func (h *Hand) Abort(reason string) error {
	if h.IsInPhase(HandPhase_Complete) {
		return ErrStaleTransition
	}

	for _, seat := range h.Seats {
		if !seat.InHand() {
			continue
		}
		seat.Chips += seat.Contributed()
		seat.CurrentBet = 0
		seat.contributed = 0
		seat.Status = SeatFolded
	}

	h.Pot = 0
	h.CurrentBet = 0
	h.CurrentTurn = NoTurn

	h.emitEvent(events.HandAborted{
		TableID: h.TableID,
		HandID:  h.ID,
		Reason:  reason,
		At:      time.Now(),
	})

	h.finish(nil, 0)
	return nil
}
