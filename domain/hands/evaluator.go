package hands

import (
	"github.com/chehsunliu/poker"

	"github.com/lazharichir/holdem/cards"
)

// Contender is a seat entering the showdown.
type Contender struct {
	Position  int
	PlayerID  string
	HoleCards cards.Stack
}

// SeatResult is the scored outcome for one contender. Lower scores are
// stronger hands.
type SeatResult struct {
	Position    int
	PlayerID    string
	Score       int32
	Description string
}

// EvaluateContenders scores each contender's best five-card hand out of its
// hole cards and the community cards.
func EvaluateContenders(contenders []Contender, community cards.Stack) []SeatResult {
	results := make([]SeatResult, 0, len(contenders))

	for _, c := range contenders {
		all := make(cards.Stack, 0, len(c.HoleCards)+len(community))
		all = append(all, c.HoleCards...)
		all = append(all, community...)

		score := poker.Evaluate(toEvaluatorCards(all))

		results = append(results, SeatResult{
			Position:    c.Position,
			PlayerID:    c.PlayerID,
			Score:       score,
			Description: poker.RankString(score),
		})
	}

	return results
}

// Winners returns every result tied for the strongest score.
func Winners(results []SeatResult) []SeatResult {
	if len(results) == 0 {
		return nil
	}

	best := results[0].Score
	for _, r := range results[1:] {
		if r.Score < best {
			best = r.Score
		}
	}

	winners := make([]SeatResult, 0, 1)
	for _, r := range results {
		if r.Score == best {
			winners = append(winners, r)
		}
	}
	return winners
}

// SplitPot divides a pot evenly among n winners and returns the share and
// the odd-chip remainder.
func SplitPot(pot, n int) (each, remainder int) {
	if n <= 0 {
		return 0, pot
	}
	return pot / n, pot % n
}

// toEvaluatorCards converts our cards into the evaluator's representation.
func toEvaluatorCards(stack cards.Stack) []poker.Card {
	out := make([]poker.Card, 0, len(stack))
	for _, c := range stack {
		out = append(out, poker.NewCard(shorthand(c)))
	}
	return out
}

func shorthand(c cards.Card) string {
	var rank byte
	switch c.Value {
	case cards.Ace:
		rank = 'A'
	case cards.King:
		rank = 'K'
	case cards.Queen:
		rank = 'Q'
	case cards.Jack:
		rank = 'J'
	case cards.Ten:
		rank = 'T'
	case cards.Nine:
		rank = '9'
	case cards.Eight:
		rank = '8'
	case cards.Seven:
		rank = '7'
	case cards.Six:
		rank = '6'
	case cards.Five:
		rank = '5'
	case cards.Four:
		rank = '4'
	case cards.Three:
		rank = '3'
	case cards.Two:
		rank = '2'
	}

	var suit byte
	switch c.Suit {
	case cards.Spades:
		suit = 's'
	case cards.Hearts:
		suit = 'h'
	case cards.Diamonds:
		suit = 'd'
	case cards.Clubs:
		suit = 'c'
	}

	return string([]byte{rank, suit})
}
