package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lazharichir/holdem/cards"
	"github.com/lazharichir/holdem/domain/events"
)

// Table represents a poker table
type Table struct {
	ID         string
	Name       string
	Rules      TableRules
	Seats      []*Seat
	Status     TableStatus
	ActiveHand *Hand

	ButtonPosition int
	HandsPlayed    int

	// events
	Events        []events.Event
	eventHandlers []events.EventHandler
}

type TableStatus string

const (
	TableStatusWaiting TableStatus = "waiting"
	TableStatusPlaying TableStatus = "playing"
	TableStatusEnded   TableStatus = "ended"
)

// TableRules defines the rules for a poker table
type TableRules struct {
	MinBet           int
	PlayerTimeout    time.Duration // how long a seat may hold the turn
	BotDelay         time.Duration // decision delay for automated seats
	BotCallThreshold int           // automated seats fold above this outstanding bet
	MaxStalls        int           // consecutive synthesized actions before the hand is aborted
}

func NewTable(name string, rules TableRules) *Table {
	seats := make([]*Seat, NumSeats)
	for i := range seats {
		seats[i] = &Seat{Position: i, Status: SeatEmpty}
	}

	return &Table{
		ID:             uuid.NewString(),
		Name:           name,
		Rules:          rules,
		Seats:          seats,
		Status:         TableStatusWaiting,
		ButtonPosition: NoTurn,
		Events:         []events.Event{},
		eventHandlers:  []events.EventHandler{},
	}
}

// SeatPlayer sits a player down at the given position with a chip buy-in.
// Position -1 takes the first free seat.
func (t *Table) SeatPlayer(playerID, name string, position int, chips int, automated bool) (*Seat, error) {
	if t.Status == TableStatusEnded {
		return nil, errors.New("table has ended")
	}
	if playerID == "" {
		return nil, errors.New("player id required")
	}
	if chips <= 0 {
		return nil, errors.New("buy-in must be positive")
	}

	for _, seat := range t.Seats {
		if seat.PlayerID == playerID {
			return nil, errors.New("player already at table")
		}
	}

	if position == -1 {
		for _, seat := range t.Seats {
			if !seat.Occupied() {
				position = seat.Position
				break
			}
		}
	}
	if position < 0 || position >= NumSeats {
		return nil, errors.New("no free seat")
	}

	seat := t.Seats[position]
	if seat.Occupied() {
		return nil, errors.New("seat taken")
	}

	seat.PlayerID = playerID
	seat.Name = name
	seat.Chips = chips
	seat.Status = SeatWaiting
	seat.Automated = automated
	seat.HoleCards = nil
	seat.CurrentBet = 0
	seat.contributed = 0

	t.emitEvent(events.PlayerJoinedTable{
		TableID:  t.ID,
		PlayerID: playerID,
		Position: position,
		At:       time.Now(),
	})
	t.emitEvent(events.PlayerChipsChanged{
		TableID:  t.ID,
		PlayerID: playerID,
		Before:   0,
		After:    chips,
		Change:   chips,
		At:       time.Now(),
	})

	return seat, nil
}

// PlayerLeaves removes a player from the table. Leaving mid-hand folds the seat.
func (t *Table) PlayerLeaves(playerID string) error {
	seat := t.SeatByPlayer(playerID)
	if seat == nil {
		return errors.New("player not found")
	}

	if hand := t.ActiveHand; hand != nil && seat.InHand() {
		if seat.Live() && hand.Phase.Betting() && hand.CurrentTurn == seat.Position {
			_ = hand.ApplyAction(seat.Position, ActionFold, 0)
		} else if seat.Live() {
			seat.Status = SeatFolded
		}

		// The departing seat's uncollected street bet stays on the table
		// for the remaining seats to contest.
		hand.Pot += seat.CurrentBet
		seat.CurrentBet = 0
	}

	position := seat.Position
	*seat = Seat{Position: position, Status: SeatEmpty}

	t.emitEvent(events.PlayerLeftTable{
		TableID:  t.ID,
		PlayerID: playerID,
		Position: position,
		At:       time.Now(),
	})

	return nil
}

// SeatByPlayer finds the seat a player occupies, nil when absent.
func (t *Table) SeatByPlayer(playerID string) *Seat {
	for _, seat := range t.Seats {
		if seat.Occupied() && seat.PlayerID == playerID {
			return seat
		}
	}
	return nil
}

// OccupiedSeats returns the seats with a player in them, in position order.
func (t *Table) OccupiedSeats() []*Seat {
	out := make([]*Seat, 0, NumSeats)
	for _, seat := range t.Seats {
		if seat.Occupied() {
			out = append(out, seat)
		}
	}
	return out
}

// AllowPlaying starts the table if there are enough players
func (t *Table) AllowPlaying() error {
	if len(t.OccupiedSeats()) < 2 {
		return errors.New("need at least 2 players to start")
	}

	if t.Status != TableStatusWaiting {
		return errors.New("table must be in waiting status to start playing")
	}

	t.Status = TableStatusPlaying
	return nil
}

// StartNewHand creates a fresh hand for the table. Each hand is a brand-new
// identity; finished hands are never reset in place. The button advances by
// one occupied seat for every hand after the first.
func (t *Table) StartNewHand() (*Hand, error) {
	if t.Status != TableStatusPlaying {
		return nil, errors.New("table must be in playing status to start a new hand")
	}

	if t.ActiveHand != nil && !t.ActiveHand.IsInPhase(HandPhase_Complete) {
		return nil, errors.New("there is already an active hand: " + t.ActiveHand.ID)
	}

	playable := 0
	for _, seat := range t.Seats {
		if seat.Occupied() && seat.Chips > 0 {
			playable++
		}
	}
	if playable < 2 {
		return nil, errors.New("need at least 2 seats with chips")
	}

	t.ButtonPosition = t.nextButtonPosition()

	for _, seat := range t.Seats {
		seat.resetForHand()
		if seat.Occupied() && seat.Chips == 0 {
			seat.Status = SeatWaiting
		}
	}

	hand := &Hand{
		ID:             uuid.NewString(),
		TableID:        t.ID,
		Phase:          HandPhase_Waiting,
		ButtonPosition: t.ButtonPosition,
		Seats:          t.Seats,
		Deck:           cards.ShuffleCards(cards.NewDeck52()),
		CommunityCards: cards.Stack{},
		CurrentTurn:    NoTurn,
		Rules:          t.Rules,
	}

	hand.RegisterEventHandler(t.handleHandEvent)
	t.ActiveHand = hand
	t.HandsPlayed++

	playerIDs := make([]string, 0, playable)
	for _, seat := range t.Seats {
		if seat.Status == SeatToAct {
			playerIDs = append(playerIDs, seat.PlayerID)
		}
	}

	t.emitEvent(events.HandStarted{
		TableID:        t.ID,
		HandID:         hand.ID,
		ButtonPosition: t.ButtonPosition,
		Players:        playerIDs,
		At:             time.Now(),
	})

	return hand, nil
}

// nextButtonPosition advances the button by exactly one occupied seat,
// or picks the first occupied seat for the table's first hand.
func (t *Table) nextButtonPosition() int {
	from := t.ButtonPosition
	if from == NoTurn {
		for _, seat := range t.Seats {
			if seat.Occupied() {
				return seat.Position
			}
		}
		return 0
	}

	for i := 1; i <= NumSeats; i++ {
		position := (from + i) % NumSeats
		if t.Seats[position].Occupied() {
			return position
		}
	}
	return from
}

func (t *Table) handleHandEvent(event events.Event) {
	t.emitEvent(event)
}

// RegisterEventHandler registers a callback function that will be called when events occur
func (t *Table) RegisterEventHandler(handler events.EventHandler) {
	t.eventHandlers = append(t.eventHandlers, handler)
}

// emitEvent notifies all registered handlers of a new event
func (t *Table) emitEvent(event events.Event) {
	t.Events = append(t.Events, event)

	for _, handler := range t.eventHandlers {
		handler(event)
	}
}
