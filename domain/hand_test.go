package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazharichir/holdem/cards"
	"github.com/lazharichir/holdem/domain/events"
)

var testNames = []string{"alice", "bob", "carol", "dave"}

func newTestTable(t *testing.T, chips ...int) *Table {
	t.Helper()

	table := NewTable("test table", TableRules{
		MinBet:        10,
		PlayerTimeout: time.Second,
	})
	for i, c := range chips {
		_, err := table.SeatPlayer(testNames[i], testNames[i], i, c, false)
		require.NoError(t, err)
	}
	require.NoError(t, table.AllowPlaying())
	return table
}

// startHand deals a fresh hand, optionally with a stacked deck. The stacked
// deck is consumed in dealing order: one card per seat clockwise of the
// button, twice around, then flop, turn and river off the top.
func startHand(t *testing.T, table *Table, stacked ...string) *Hand {
	t.Helper()

	hand, err := table.StartNewHand()
	require.NoError(t, err)

	if len(stacked) > 0 {
		deck := make(cards.Stack, 0, len(stacked))
		for _, s := range stacked {
			deck = append(deck, cards.MustCard(s))
		}
		hand.Deck = deck
	}

	require.NoError(t, hand.StartDealing())
	return hand
}

func totalChips(table *Table) int {
	total := table.ActiveHand.Pot
	for _, seat := range table.Seats {
		total += seat.Chips + seat.CurrentBet
	}
	return total
}

func TestHandPlaysToShowdown(t *testing.T) {
	table := newTestTable(t, 1_000, 1_000)

	// Button sits at 0, so bob (seat 1) is dealt and acts first. Bob gets
	// a pair of aces, alice king-queen, and the board pairs nobody.
	hand := startHand(t, table,
		"A♠", "K♠", "A♦", "Q♥",
		"2♣", "7♦", "9♠", "J♥", "3♦",
	)

	assert.Equal(t, HandPhase_Preflop, hand.Phase)
	assert.Equal(t, 1, hand.CurrentTurn)

	// Preflop: bob bets, alice calls.
	require.NoError(t, hand.ApplyAction(1, ActionBet, 20))
	require.NoError(t, hand.ApplyAction(0, ActionCall, 0))

	assert.Equal(t, HandPhase_Flop, hand.Phase)
	assert.Equal(t, 40, hand.Pot)
	assert.Len(t, hand.CommunityCards, 3)

	// Flop, turn and river all check down.
	for _, phase := range []HandPhase{HandPhase_Turn, HandPhase_River, HandPhase_Complete} {
		require.NoError(t, hand.ApplyAction(1, ActionCheck, 0))
		require.NoError(t, hand.ApplyAction(0, ActionCheck, 0))
		assert.Equal(t, phase, hand.Phase)
	}

	assert.Len(t, hand.CommunityCards, 5)
	require.Len(t, hand.Winners, 1)
	assert.Equal(t, "bob", hand.Winners[0].PlayerID)
	assert.NotEmpty(t, hand.Winners[0].Description)

	assert.Equal(t, 1_020, table.Seats[1].Chips)
	assert.Equal(t, 980, table.Seats[0].Chips)
	assert.Equal(t, 0, hand.Pot)
	assert.Equal(t, 2_000, totalChips(table))
}

func TestFoldOutAwardsPotWithoutShowdown(t *testing.T) {
	table := newTestTable(t, 500, 500, 500)
	hand := startHand(t, table)

	// Bob opens, carol and alice fold.
	require.NoError(t, hand.ApplyAction(1, ActionBet, 50))
	require.NoError(t, hand.ApplyAction(2, ActionFold, 0))
	require.NoError(t, hand.ApplyAction(0, ActionFold, 0))

	assert.Equal(t, HandPhase_Complete, hand.Phase)
	assert.Empty(t, hand.Winners, "no showdown on a fold-out")
	assert.Equal(t, 500, table.Seats[1].Chips, "uncalled bet comes straight back")
	assert.Equal(t, 1_500, totalChips(table))

	var awarded *events.PotAwarded
	for _, event := range hand.Events {
		if e, ok := event.(events.PotAwarded); ok {
			awarded = &e
		}
	}
	require.NotNil(t, awarded)
	assert.Equal(t, []string{"bob"}, awarded.PlayerIDs)
}

func TestChipMovementsEmitChipChangeEvents(t *testing.T) {
	table := newTestTable(t, 500, 500)

	// Buy-ins are reported as chip changes from zero.
	buyIns := chipChanges(table.Events)
	require.Len(t, buyIns, 2)
	for _, change := range buyIns {
		assert.Equal(t, 0, change.Before)
		assert.Equal(t, 500, change.After)
		assert.Equal(t, 500, change.Change)
	}

	hand := startHand(t, table)
	require.NoError(t, hand.ApplyAction(1, ActionBet, 50))
	require.NoError(t, hand.ApplyAction(0, ActionFold, 0))
	require.Equal(t, HandPhase_Complete, hand.Phase)

	awards := chipChanges(hand.Events)
	require.Len(t, awards, 1)
	assert.Equal(t, "bob", awards[0].PlayerID)
	assert.Equal(t, 450, awards[0].Before)
	assert.Equal(t, 500, awards[0].After)
	assert.Equal(t, 50, awards[0].Change)
}

func chipChanges(stream []events.Event) []events.PlayerChipsChanged {
	var out []events.PlayerChipsChanged
	for _, event := range stream {
		if e, ok := event.(events.PlayerChipsChanged); ok {
			out = append(out, e)
		}
	}
	return out
}

func TestRaiseReopensAction(t *testing.T) {
	table := newTestTable(t, 1_000, 1_000, 1_000)
	hand := startHand(t, table)

	require.NoError(t, hand.ApplyAction(1, ActionBet, 20))
	require.NoError(t, hand.ApplyAction(2, ActionCall, 0))

	// Alice raises; bob and carol owe an action again.
	require.NoError(t, hand.ApplyAction(0, ActionRaise, 40))
	assert.Equal(t, SeatToAct, table.Seats[1].Status)
	assert.Equal(t, SeatToAct, table.Seats[2].Status)
	assert.Equal(t, 1, hand.CurrentTurn)

	// A raise below double the outstanding bet is rejected.
	err := hand.ApplyAction(1, ActionRaise, 79)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAction)

	require.NoError(t, hand.ApplyAction(1, ActionCall, 0))
	require.NoError(t, hand.ApplyAction(2, ActionCall, 0))

	assert.Equal(t, HandPhase_Flop, hand.Phase)
	assert.Equal(t, 120, hand.Pot)
	assert.Equal(t, 3_000, totalChips(table))
}

func TestShortStackCallsAllInForLess(t *testing.T) {
	table := newTestTable(t, 1_000, 50)
	hand := startHand(t, table)

	require.NoError(t, hand.ApplyAction(1, ActionCheck, 0))
	require.NoError(t, hand.ApplyAction(0, ActionBet, 200))

	// Bob can only cover 50 of the 200; the call puts him all-in and the
	// remaining streets run out with no further betting.
	require.NoError(t, hand.ApplyAction(1, ActionCall, 0))

	assert.Equal(t, SeatAllIn, table.Seats[1].Status)
	assert.Equal(t, HandPhase_Complete, hand.Phase)
	assert.Len(t, hand.CommunityCards, 5)
	assert.Equal(t, 1_050, totalChips(table))
}

func TestBetBeyondStackRejected(t *testing.T) {
	table := newTestTable(t, 1_000, 50)
	hand := startHand(t, table)

	err := hand.ApplyAction(1, ActionBet, 60)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientChips)

	// The rejected bet must not move any chips.
	assert.Equal(t, 50, table.Seats[1].Chips)
	assert.Equal(t, 1, hand.CurrentTurn)
}

func TestAllInRunoutDealsRemainingStreets(t *testing.T) {
	table := newTestTable(t, 300, 300)
	hand := startHand(t, table)

	require.NoError(t, hand.ApplyAction(1, ActionBet, 300))
	require.NoError(t, hand.ApplyAction(0, ActionCall, 0))

	assert.Equal(t, HandPhase_Complete, hand.Phase)
	assert.Len(t, hand.CommunityCards, 5)
	assert.Equal(t, 600, totalChips(table))
}

func TestActingOutOfTurn(t *testing.T) {
	table := newTestTable(t, 1_000, 1_000)
	hand := startHand(t, table)

	err := hand.ApplyAction(0, ActionCheck, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotYourTurn)

	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, 0, actionErr.Position)
}

func TestCheckWhenOwingIsInvalid(t *testing.T) {
	table := newTestTable(t, 1_000, 1_000)
	hand := startHand(t, table)

	require.NoError(t, hand.ApplyAction(1, ActionBet, 20))

	err := hand.ApplyAction(0, ActionCheck, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestDefaultActionChecksThenFolds(t *testing.T) {
	table := newTestTable(t, 1_000, 1_000, 1_000)
	hand := startHand(t, table)

	// Nothing outstanding: the synthesized action is a check.
	assert.Equal(t, ActionCheck, hand.DefaultActionFor(1))
	require.NoError(t, hand.ApplyDefaultAction(1))
	assert.Equal(t, SeatActed, table.Seats[1].Status)

	require.NoError(t, hand.ApplyAction(2, ActionBet, 40))

	// Alice owes 40 now, so her synthesized action is a fold.
	assert.Equal(t, ActionFold, hand.DefaultActionFor(0))
	require.NoError(t, hand.ApplyDefaultAction(0))
	assert.Equal(t, SeatFolded, table.Seats[0].Status)

	var timedOut []events.PlayerTimedOut
	var synthesized []events.PlayerActed
	for _, event := range hand.Events {
		switch e := event.(type) {
		case events.PlayerTimedOut:
			timedOut = append(timedOut, e)
		case events.PlayerActed:
			if e.Synthesized {
				synthesized = append(synthesized, e)
			}
		}
	}
	assert.Len(t, timedOut, 2)
	assert.Len(t, synthesized, 2)
}

func TestAbortRefundsContributions(t *testing.T) {
	table := newTestTable(t, 1_000, 1_000)
	hand := startHand(t, table)

	require.NoError(t, hand.ApplyAction(1, ActionBet, 100))
	require.NoError(t, hand.ApplyAction(0, ActionCall, 0))
	require.Equal(t, HandPhase_Flop, hand.Phase)
	require.Equal(t, 200, hand.Pot)

	require.NoError(t, hand.Abort("store out of sync"))

	assert.Equal(t, HandPhase_Complete, hand.Phase)
	assert.Equal(t, 0, hand.Pot)
	assert.Empty(t, hand.Winners)
	assert.Equal(t, 1_000, table.Seats[0].Chips)
	assert.Equal(t, 1_000, table.Seats[1].Chips)

	var aborted bool
	for _, event := range hand.Events {
		if _, ok := event.(events.HandAborted); ok {
			aborted = true
		}
	}
	assert.True(t, aborted)
}

func TestStaleTransitionsAreSwallowed(t *testing.T) {
	table := newTestTable(t, 1_000, 1_000)
	hand := startHand(t, table)

	// The hand is already past dealing; a redelivered start is stale.
	assert.ErrorIs(t, hand.StartDealing(), ErrStaleTransition)

	require.NoError(t, hand.ApplyAction(1, ActionBet, 20))
	require.NoError(t, hand.ApplyAction(0, ActionFold, 0))
	require.Equal(t, HandPhase_Complete, hand.Phase)

	// Aborting a finished hand changes nothing.
	assert.ErrorIs(t, hand.Abort("late abort"), ErrStaleTransition)
	assert.Equal(t, HandPhase_Complete, hand.Phase)
}

func TestDeckIntegrityAcrossAFullHand(t *testing.T) {
	table := newTestTable(t, 1_000, 1_000, 1_000)
	hand := startHand(t, table)

	require.NoError(t, hand.ApplyAction(1, ActionCheck, 0))
	require.NoError(t, hand.ApplyAction(2, ActionCheck, 0))
	require.NoError(t, hand.ApplyAction(0, ActionCheck, 0))
	for hand.Phase.Betting() {
		require.NoError(t, hand.ApplyAction(hand.CurrentTurn, ActionCheck, 0))
	}
	require.Equal(t, HandPhase_Complete, hand.Phase)

	seen := map[string]bool{}
	count := 0
	record := func(card cards.Card) {
		assert.False(t, seen[card.String()], "card %s appeared twice", card)
		seen[card.String()] = true
		count++
	}

	for _, seat := range table.Seats {
		for _, hc := range seat.HoleCards {
			record(hc.Card)
		}
	}
	for _, card := range hand.CommunityCards {
		record(card)
	}
	for _, card := range hand.Deck {
		record(card)
	}

	assert.Equal(t, 52, count)
}

func TestSplitPotOddChipGoesClockwiseOfButton(t *testing.T) {
	table := newTestTable(t, 500, 500)

	// Both players end up playing the board: identical hands, split pot.
	hand := startHand(t, table,
		"2♠", "2♥", "3♠", "3♥",
		"A♣", "K♣", "Q♣", "J♣", "10♣",
	)

	require.NoError(t, hand.ApplyAction(1, ActionBet, 25))
	require.NoError(t, hand.ApplyAction(0, ActionCall, 0))
	for hand.Phase.Betting() {
		require.NoError(t, hand.ApplyAction(hand.CurrentTurn, ActionCheck, 0))
	}

	require.Equal(t, HandPhase_Complete, hand.Phase)
	require.Len(t, hand.Winners, 2)
	assert.Equal(t, 500, table.Seats[0].Chips)
	assert.Equal(t, 500, table.Seats[1].Chips)
	assert.Equal(t, 1_000, totalChips(table))
}
