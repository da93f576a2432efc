package hands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazharichir/holdem/cards"
)

func stack(shorthand ...string) cards.Stack {
	out := make(cards.Stack, 0, len(shorthand))
	for _, s := range shorthand {
		out = append(out, cards.MustCard(s))
	}
	return out
}

func TestEvaluateContendersRanksPairOverHighCard(t *testing.T) {
	community := stack("2♣", "7♦", "9♠", "J♥", "3♦")

	results := EvaluateContenders([]Contender{
		{Position: 0, PlayerID: "alice", HoleCards: stack("K♠", "Q♥")},
		{Position: 1, PlayerID: "bob", HoleCards: stack("A♠", "A♦")},
	}, community)

	require.Len(t, results, 2)
	assert.Less(t, results[1].Score, results[0].Score, "a pair of aces beats king high")
	assert.NotEmpty(t, results[0].Description)
	assert.NotEmpty(t, results[1].Description)
}

func TestWinnersSingle(t *testing.T) {
	winners := Winners([]SeatResult{
		{Position: 0, PlayerID: "alice", Score: 3000},
		{Position: 1, PlayerID: "bob", Score: 1500},
		{Position: 2, PlayerID: "carol", Score: 4200},
	})

	require.Len(t, winners, 1)
	assert.Equal(t, "bob", winners[0].PlayerID)
}

func TestWinnersTie(t *testing.T) {
	winners := Winners([]SeatResult{
		{Position: 0, PlayerID: "alice", Score: 1500},
		{Position: 1, PlayerID: "bob", Score: 1500},
		{Position: 2, PlayerID: "carol", Score: 4200},
	})

	require.Len(t, winners, 2)
	assert.Equal(t, "alice", winners[0].PlayerID)
	assert.Equal(t, "bob", winners[1].PlayerID)
}

func TestWinnersEmpty(t *testing.T) {
	assert.Nil(t, Winners(nil))
}

func TestPlayersPlayingTheBoardTie(t *testing.T) {
	community := stack("A♣", "K♣", "Q♣", "J♣", "10♣")

	results := EvaluateContenders([]Contender{
		{Position: 0, PlayerID: "alice", HoleCards: stack("2♥", "3♥")},
		{Position: 1, PlayerID: "bob", HoleCards: stack("2♠", "3♠")},
	}, community)

	winners := Winners(results)
	assert.Len(t, winners, 2)
}

func TestSplitPot(t *testing.T) {
	each, remainder := SplitPot(100, 2)
	assert.Equal(t, 50, each)
	assert.Equal(t, 0, remainder)

	each, remainder = SplitPot(101, 2)
	assert.Equal(t, 50, each)
	assert.Equal(t, 1, remainder)

	each, remainder = SplitPot(100, 3)
	assert.Equal(t, 33, each)
	assert.Equal(t, 1, remainder)

	each, remainder = SplitPot(100, 0)
	assert.Equal(t, 0, each)
	assert.Equal(t, 100, remainder)
}
