package cards

import (
	"math/rand"
	"time"
)

// NewDeck52 creates a standard deck of 52 cards
func NewDeck52() Stack {
	var deck Stack
	suits := []Suit{Spades, Hearts, Diamonds, Clubs}
	values := []Value{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

	for _, suit := range suits {
		for _, value := range values {
			deck.AddCard(Card{Suit: suit, Value: value})
		}
	}

	return deck
}

// ShuffleCards shuffles a deck of cards randomly
func ShuffleCards(deck []Card) Stack {
	return ShuffleCardsWith(rand.New(rand.NewSource(time.Now().UnixNano())), deck)
}

// ShuffleCardsWith shuffles a deck using the provided source of randomness,
// so hands can be replayed deterministically under test
func ShuffleCardsWith(r *rand.Rand, deck []Card) Stack {
	shuffled := make(Stack, len(deck))
	copy(shuffled, deck)

	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled
}

// DealCard deals the top card from the deck and returns the card and the remaining deck
func DealCard(deck Stack) (Card, Stack) {
	if len(deck) == 0 {
		return Card{}, nil
	}

	card := deck[0]
	return card, deck[1:]
}

// DealCards deals count cards and returns them with the remaining deck
func DealCards(deck Stack, count int) (Stack, Stack) {
	if count > len(deck) {
		count = len(deck)
	}

	dealt := make(Stack, count)
	copy(dealt, deck[:count])

	return dealt, deck[count:]
}
