package game

import (
	"errors"
	"fmt"
)

var (
	// ErrNotYourTurn is returned when a player acts out of turn
	ErrNotYourTurn = errors.New("not your turn to act")

	// ErrInsufficientFunds is returned when a player cannot cover the
	// intended contribution
	ErrInsufficientFunds = errors.New("insufficient chips")

	// ErrDeckUnavailable is returned when the shuffle oracle fails
	// during dealing. The current hand is fatal and committed chips are
	// refunded pro rata.
	ErrDeckUnavailable = errors.New("deck oracle unavailable")

	// ErrHandInProgress is returned when an operation requires the
	// table to be between hands
	ErrHandInProgress = errors.New("hand in progress")
)

// BuyInError is returned when a buy-in is outside the table's range
type BuyInError struct {
	BuyIn    int
	MinBuyIn int
	MaxBuyIn int
}

func (e *BuyInError) Error() string {
	return fmt.Sprintf("invalid buy-in %d, must be between %d and %d", e.BuyIn, e.MinBuyIn, e.MaxBuyIn)
}

// ActionHints gives the caller the legal bounds for a rejected action
type ActionHints struct {
	CallAmount int `json:"callAmount,omitempty"`
	MinBet     int `json:"minBet,omitempty"`
	MaxBet     int `json:"maxBet,omitempty"`
	MinRaiseTo int `json:"minRaiseTo,omitempty"`
}

// IllegalActionError is returned when an action is syntactically valid
// but not legal in the current state. It is never retried.
type IllegalActionError struct {
	Kind   ActionKind
	Reason string
	Hints  ActionHints
}

func (e *IllegalActionError) Error() string {
	return fmt.Sprintf("illegal %s: %s", e.Kind, e.Reason)
}

func illegal(kind ActionKind, hints ActionHints, format string, args ...any) error {
	return &IllegalActionError{
		Kind:   kind,
		Reason: fmt.Sprintf(format, args...),
		Hints:  hints,
	}
}
