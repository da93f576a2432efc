package cards

// Stack represents multiple cards
type Stack []Card

// NewStack creates a new stack from the given cards
func NewStack(cards ...Card) Stack {
	return Stack(cards)
}

func (s Stack) String() string {
	var out string
	for i, c := range s {
		if i > 0 {
			out += " "
		}
		out += c.String()
	}
	return out
}

// Contains checks whether the stack holds the given card
func (s Stack) Contains(card Card) bool {
	for _, c := range s {
		if c.Equals(card) {
			return true
		}
	}
	return false
}

// AddCard appends a card to the stack
func (s *Stack) AddCard(card Card) {
	*s = append(*s, card)
}
