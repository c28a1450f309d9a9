package game

import "fmt"

// Phase represents the lifecycle phase of a table
type Phase int

const (
	Waiting Phase = iota
	PreFlop
	Flop
	Turn
	River
	Showdown
	Finished
)

// String returns the string representation of a phase
func (p Phase) String() string {
	switch p {
	case Waiting:
		return "waiting"
	case PreFlop:
		return "pre_flop"
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	case Showdown:
		return "showdown"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// ActionKind represents a player action kind
type ActionKind int

const (
	Fold ActionKind = iota
	Check
	Call
	Bet
	Raise
	AllIn
)

// String returns the string representation of an action kind
func (a ActionKind) String() string {
	switch a {
	case Fold:
		return "fold"
	case Check:
		return "check"
	case Call:
		return "call"
	case Bet:
		return "bet"
	case Raise:
		return "raise"
	case AllIn:
		return "allin"
	default:
		return "unknown"
	}
}

// Action is a single player action. For Bet and Raise, Amount is the
// total the player is raising to, not the increment.
type Action struct {
	Kind   ActionKind
	Amount int
}

// TableConfig holds the immutable configuration of a table
type TableConfig struct {
	SmallBlind int
	BigBlind   int
	MinBuyIn   int
	MaxBuyIn   int
	MaxSeats   int
	GameType   string
}

// Validate checks the table configuration
func (c TableConfig) Validate() error {
	if c.SmallBlind <= 0 {
		return fmt.Errorf("small blind must be positive")
	}
	if c.BigBlind <= c.SmallBlind {
		return fmt.Errorf("big blind must be greater than small blind")
	}
	if c.MaxSeats < 2 || c.MaxSeats > 10 {
		return fmt.Errorf("max seats must be between 2 and 10, got %d", c.MaxSeats)
	}
	if c.MinBuyIn <= 0 || c.MinBuyIn >= c.MaxBuyIn {
		return fmt.Errorf("buy-in minimum must be positive and less than maximum")
	}
	return nil
}
