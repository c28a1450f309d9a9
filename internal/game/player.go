package game

import "github.com/lox/holdem-core/internal/deck"

// Player represents a player seated at a table
type Player struct {
	ID         string
	Seat       int
	Chips      int
	Bet        int // Current bet in this round
	TotalBet   int // Total bet in the hand
	Folded     bool
	AllInFlag  bool
	SittingOut bool
	LastAction *Action
	HoleCards  []deck.Card
}

// IsActive returns true if the player can still act in the hand
func (p *Player) IsActive() bool {
	return !p.Folded && !p.AllInFlag && !p.SittingOut
}

// InHand returns true if the player is contesting the current hand
func (p *Player) InHand() bool {
	return !p.Folded && !p.SittingOut
}

// ResetForHand clears per-hand state
func (p *Player) ResetForHand() {
	p.Bet = 0
	p.TotalBet = 0
	p.Folded = false
	p.AllInFlag = false
	p.LastAction = nil
	p.HoleCards = nil
	// A player with no chips who is not all-in sits out
	p.SittingOut = p.Chips == 0
}

// Clone returns a deep copy of the player
func (p *Player) Clone() *Player {
	cp := *p
	if p.LastAction != nil {
		la := *p.LastAction
		cp.LastAction = &la
	}
	if p.HoleCards != nil {
		cp.HoleCards = make([]deck.Card, len(p.HoleCards))
		copy(cp.HoleCards, p.HoleCards)
	}
	return &cp
}
