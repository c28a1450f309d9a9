package deck

import "fmt"

// Ordered returns all 52 cards in canonical order (clubs..spades, twos..aces).
// This is the order the shuffle oracle commits to before shuffling.
func Ordered() []Card {
	cards := make([]Card, 0, 52)
	for suit := Clubs; suit <= Spades; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			cards = append(cards, NewCard(rank, suit))
		}
	}
	return cards
}

// Deck is a handle over an oracle-shuffled card order. The core never
// shuffles; it only deals and burns from the order the oracle revealed.
type Deck struct {
	id    string
	cards []Card
	next  int
}

// New creates a deck handle over a shuffled card order
func New(id string, cards []Card) (*Deck, error) {
	if len(cards) != 52 {
		return nil, fmt.Errorf("deck %s: expected 52 cards, got %d", id, len(cards))
	}
	seen := make(map[Card]bool, 52)
	for _, c := range cards {
		if seen[c] {
			return nil, fmt.Errorf("deck %s: duplicate card %s", id, c)
		}
		seen[c] = true
	}
	own := make([]Card, 52)
	copy(own, cards)
	return &Deck{id: id, cards: own}, nil
}

// ID returns the oracle's identifier for this deck
func (d *Deck) ID() string {
	return d.id
}

// Remaining returns the number of undealt cards
func (d *Deck) Remaining() int {
	return len(d.cards) - d.next
}

// Deal deals n cards from the top of the deck
func (d *Deck) Deal(n int) ([]Card, error) {
	if d.Remaining() < n {
		return nil, fmt.Errorf("deck %s: cannot deal %d cards, %d remaining", d.id, n, d.Remaining())
	}
	cards := make([]Card, n)
	copy(cards, d.cards[d.next:d.next+n])
	d.next += n
	return cards, nil
}

// Burn discards the top card
func (d *Deck) Burn() error {
	if d.Remaining() < 1 {
		return fmt.Errorf("deck %s: cannot burn, deck exhausted", d.id)
	}
	d.next++
	return nil
}
