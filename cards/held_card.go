package cards

type CardVisibility string

const (
	FaceDown      CardVisibility = "down"  // Nobody can see
	FaceUpToOwner CardVisibility = "owner" // Only the owner can see
	FaceUpToAll   CardVisibility = "all"   // Everyone can see
)

// HeldCard represents a card that's in play with visibility information
type HeldCard struct {
	Card
	Visibility CardVisibility `json:"visibility"`
}

// NewHeldCard creates a new held card with the specified visibility
func NewHeldCard(card Card, visibility CardVisibility) HeldCard {
	return HeldCard{
		Card:       card,
		Visibility: visibility,
	}
}

// VisibleTo reports whether the given viewer may see the card face.
// ownerID is the player holding the card; an empty viewerID is a spectator.
func (c HeldCard) VisibleTo(viewerID, ownerID string) bool {
	switch c.Visibility {
	case FaceUpToAll:
		return true
	case FaceUpToOwner:
		return viewerID != "" && viewerID == ownerID
	default:
		return false
	}
}

// HeldStack represents multiple held cards
type HeldStack []HeldCard

// Cards strips visibility and returns the underlying cards
func (s HeldStack) Cards() Stack {
	out := make(Stack, 0, len(s))
	for _, hc := range s {
		out = append(out, hc.Card)
	}
	return out
}
