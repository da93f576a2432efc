package domain

import (
	"github.com/lazharichir/holdem/cards"
)

// HandView is the read-only projection of a hand for one viewer. Hole cards
// are masked unless the viewer is allowed to see them, so the view can be
// handed to presentation code as-is.
type HandView struct {
	HandID         string      `json:"handId"`
	TableID        string      `json:"tableId"`
	Phase          string      `json:"phase"`
	ButtonPosition int         `json:"buttonPosition"`
	Pot            int         `json:"pot"`
	CurrentBet     int         `json:"currentBet"`
	CurrentTurn    int         `json:"currentTurn"`
	CommunityCards cards.Stack `json:"communityCards"`
	Seats          []SeatView  `json:"seats"`
}

// SeatView is one seat as a viewer sees it.
type SeatView struct {
	Position   int      `json:"position"`
	PlayerID   string   `json:"playerId,omitempty"`
	Name       string   `json:"name,omitempty"`
	Chips      int      `json:"chips"`
	CurrentBet int      `json:"currentBet"`
	Status     string   `json:"status"`
	IsTurn     bool     `json:"isTurn"`
	Automated  bool     `json:"automated,omitempty"`
	HoleCards  []string `json:"holeCards,omitempty"` // "??" for hidden cards
}

// ViewFor projects the hand for the given viewer. An empty viewerID is a
// spectator and sees only face-up cards.
func (h *Hand) ViewFor(viewerID string) HandView {
	view := HandView{
		HandID:         h.ID,
		TableID:        h.TableID,
		Phase:          string(h.Phase),
		ButtonPosition: h.ButtonPosition,
		Pot:            h.Pot,
		CurrentBet:     h.CurrentBet,
		CurrentTurn:    h.CurrentTurn,
		CommunityCards: append(cards.Stack{}, h.CommunityCards...),
		Seats:          make([]SeatView, 0, len(h.Seats)),
	}

	for _, seat := range h.Seats {
		sv := SeatView{
			Position:   seat.Position,
			PlayerID:   seat.PlayerID,
			Name:       seat.Name,
			Chips:      seat.Chips,
			CurrentBet: seat.CurrentBet,
			Status:     string(seat.Status),
			IsTurn:     h.CurrentTurn == seat.Position && h.Phase.Betting(),
			Automated:  seat.Automated,
		}

		for _, hc := range seat.HoleCards {
			if hc.VisibleTo(viewerID, seat.PlayerID) {
				sv.HoleCards = append(sv.HoleCards, hc.Card.String())
			} else {
				sv.HoleCards = append(sv.HoleCards, "??")
			}
		}

		view.Seats = append(view.Seats, sv)
	}

	return view
}
