package events

import (
	"time"

	"github.com/lazharichir/holdem/cards"
)

// Table membership events

type PlayerJoinedTable struct {
	TableID  string
	PlayerID string
	Position int
	At       time.Time
}

func (e PlayerJoinedTable) Name() string { return "PLAYER_JOINED_TABLE" }

type PlayerLeftTable struct {
	TableID  string
	PlayerID string
	Position int
	At       time.Time
}

func (e PlayerLeftTable) Name() string { return "PLAYER_LEFT_TABLE" }

type PlayerChipsChanged struct {
	TableID  string
	PlayerID string
	Before   int
	After    int
	Change   int
	At       time.Time
}

func (e PlayerChipsChanged) Name() string { return "PLAYER_CHIPS_CHANGED" }

// Hand lifecycle events

type HandStarted struct {
	TableID        string
	HandID         string
	ButtonPosition int
	Players        []string
	At             time.Time
}

func (e HandStarted) Name() string { return "HAND_STARTED" }

type PhaseChanged struct {
	TableID       string
	HandID        string
	PreviousPhase string
	NewPhase      string
	At            time.Time
}

func (e PhaseChanged) Name() string { return "PHASE_CHANGED" }

type HandEnded struct {
	TableID  string
	HandID   string
	Duration int64 // in milliseconds
	FinalPot int
	Winners  []string
	At       time.Time
}

func (e HandEnded) Name() string { return "HAND_ENDED" }

type HandAborted struct {
	TableID string
	HandID  string
	Reason  string
	At      time.Time
}

func (e HandAborted) Name() string { return "HAND_ABORTED" }

// Dealing events

type HoleCardsDealt struct {
	TableID   string
	HandID    string
	Positions []int // seat positions dealt to, in dealing order
	At        time.Time
}

func (e HoleCardsDealt) Name() string { return "HOLE_CARDS_DEALT" }

type CommunityCardsDealt struct {
	TableID string
	HandID  string
	Street  string // flop, turn, river
	Cards   cards.Stack
	At      time.Time
}

func (e CommunityCardsDealt) Name() string { return "COMMUNITY_CARDS_DEALT" }

// Betting events

type BettingRoundStarted struct {
	TableID    string
	HandID     string
	Phase      string
	FirstToAct int
	At         time.Time
}

func (e BettingRoundStarted) Name() string { return "BETTING_ROUND_STARTED" }

type BettingRoundEnded struct {
	TableID string
	HandID  string
	Phase   string
	Pot     int
	At      time.Time
}

func (e BettingRoundEnded) Name() string { return "BETTING_ROUND_ENDED" }

type PlayerTurnStarted struct {
	TableID   string
	HandID    string
	Position  int
	PlayerID  string
	TimeoutAt time.Time
	At        time.Time
}

func (e PlayerTurnStarted) Name() string { return "PLAYER_TURN_STARTED" }

type PlayerActed struct {
	TableID     string
	HandID      string
	Position    int
	PlayerID    string
	Action      string
	Amount      int
	Synthesized bool // true when the scheduler acted on the seat's behalf
	At          time.Time
}

func (e PlayerActed) Name() string { return "PLAYER_ACTED" }

type PlayerTimedOut struct {
	TableID       string
	HandID        string
	Position      int
	PlayerID      string
	Phase         string
	DefaultAction string
	At            time.Time
}

func (e PlayerTimedOut) Name() string { return "PLAYER_TIMED_OUT" }

// Showdown events

type PotAwarded struct {
	TableID     string
	HandID      string
	Positions   []int
	PlayerIDs   []string
	AmountEach  int
	Description string // winning hand description, empty on fold-out
	At          time.Time
}

func (e PotAwarded) Name() string { return "POT_AWARDED" }
