package cards

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardFromString(t *testing.T) {
	card, err := CardFromString("A♠")
	require.NoError(t, err)
	assert.Equal(t, Spades, card.Suit)
	assert.Equal(t, Ace, card.Value)

	card, err = CardFromString("10h")
	require.NoError(t, err)
	assert.Equal(t, Hearts, card.Suit)
	assert.Equal(t, Ten, card.Value)

	card, err = CardFromString("Td")
	require.NoError(t, err)
	assert.Equal(t, Diamonds, card.Suit)
	assert.Equal(t, Ten, card.Value)

	_, err = CardFromString("Z♠")
	assert.Error(t, err)

	_, err = CardFromString("")
	assert.Error(t, err)
}

func TestCardFromStringRoundTripsEverySuitRune(t *testing.T) {
	// Suit runes are multi-byte; parsing must slice by rune, not byte.
	for _, suit := range []Suit{Spades, Hearts, Diamonds, Clubs} {
		for _, value := range []Value{Ace, Ten, Two} {
			want := Card{Suit: suit, Value: value}
			got, err := CardFromString(want.String())
			require.NoError(t, err, "parsing %s", want)
			assert.Equal(t, want, got)
		}
	}
}

func TestMustCardPanicsOnGarbage(t *testing.T) {
	assert.Panics(t, func() { MustCard("nope") })
}

func TestNewDeck52(t *testing.T) {
	deck := NewDeck52()
	require.Len(t, deck, 52)

	seen := map[string]bool{}
	for _, card := range deck {
		seen[card.String()] = true
	}
	assert.Len(t, seen, 52, "every card must be unique")
}

func TestShuffleKeepsAllCards(t *testing.T) {
	deck := ShuffleCards(NewDeck52())
	require.Len(t, deck, 52)

	for _, card := range NewDeck52() {
		assert.True(t, deck.Contains(card), "missing %s after shuffle", card)
	}
}

func TestShuffleCardsWithIsDeterministic(t *testing.T) {
	a := ShuffleCardsWith(rand.New(rand.NewSource(42)), NewDeck52())
	b := ShuffleCardsWith(rand.New(rand.NewSource(42)), NewDeck52())
	assert.Equal(t, a, b)

	c := ShuffleCardsWith(rand.New(rand.NewSource(43)), NewDeck52())
	assert.NotEqual(t, a, c)
}

func TestDealCards(t *testing.T) {
	deck := NewDeck52()
	dealt, rest := DealCards(deck, 5)
	assert.Len(t, dealt, 5)
	assert.Len(t, rest, 47)

	for _, card := range dealt {
		assert.False(t, rest.Contains(card), "%s dealt but still in deck", card)
	}
}

func TestHeldCardVisibility(t *testing.T) {
	card := MustCard("K♦")

	hidden := NewHeldCard(card, FaceDown)
	assert.False(t, hidden.VisibleTo("alice", "alice"))
	assert.False(t, hidden.VisibleTo("bob", "alice"))

	toOwner := NewHeldCard(card, FaceUpToOwner)
	assert.True(t, toOwner.VisibleTo("alice", "alice"))
	assert.False(t, toOwner.VisibleTo("bob", "alice"))
	assert.False(t, toOwner.VisibleTo("", "alice"), "spectators see nothing")

	toAll := NewHeldCard(card, FaceUpToAll)
	assert.True(t, toAll.VisibleTo("bob", "alice"))
	assert.True(t, toAll.VisibleTo("", "alice"))
}
