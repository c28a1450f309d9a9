// Package oracle is the client for the external deck-shuffle service.
// The shuffle itself is opaque to the game core; the client only tracks
// the commit/reveal protocol and checks integrity by hash equality.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lox/holdem-core/internal/deck"
)

var (
	// ErrDeckNotFound is returned for an unknown deck id
	ErrDeckNotFound = errors.New("deck not found")
	// ErrNotCommitted is returned when reveal is requested before commit
	ErrNotCommitted = errors.New("deck not committed")
	// ErrIntegrity is returned when a reveal does not match its commitment
	ErrIntegrity = errors.New("deck integrity check failed")
	// ErrDeckExhausted is returned when more cards are requested than remain
	ErrDeckExhausted = errors.New("deck exhausted")
)

// minEntropyBits is the smallest entropy a shuffle proof may claim
const minEntropyBits = 256

// ShuffleProof accompanies every shuffle response
type ShuffleProof struct {
	OriginalHash string `json:"originalHash"`
	ShuffledHash string `json:"shuffledHash"`
	EntropyBits  int    `json:"entropyBits"`
	Algorithm    string `json:"algorithm"`
}

// Validate checks the proof's claims are well formed
func (p ShuffleProof) Validate() error {
	if p.OriginalHash == "" || p.ShuffledHash == "" {
		return fmt.Errorf("shuffle proof missing hashes")
	}
	if p.EntropyBits < minEntropyBits {
		return fmt.Errorf("shuffle proof claims %d entropy bits, need at least %d", p.EntropyBits, minEntropyBits)
	}
	if p.Algorithm == "" {
		return fmt.Errorf("shuffle proof missing algorithm name")
	}
	return nil
}

// ShuffleRecord is one entry in a deck's local shuffle history
type ShuffleRecord struct {
	GameID    string
	Proof     ShuffleProof
	Timestamp time.Time
}

// Client is the deck oracle contract the game core consumes. The
// service behind it owns the RNG; the core never shuffles.
type Client interface {
	// CreateDeck makes a fresh ordered deck and returns its id
	CreateDeck(ctx context.Context) (string, error)
	// Commit locks in the deck's current order, returning its hash
	Commit(ctx context.Context, deckID, gameID string) (string, error)
	// Shuffle reorders the deck and returns a proof of the operation
	Shuffle(ctx context.Context, deckID, gameID string) (ShuffleProof, error)
	// Deal returns the next count cards from the deck
	Deal(ctx context.Context, deckID string, count int) ([]deck.Card, error)
	// Burn discards the next card unseen
	Burn(ctx context.Context, deckID string) error
	// Reveal returns the full order and verifies it against the commitment
	Reveal(ctx context.Context, deckID, gameID string) ([]deck.Card, error)
}

// History exposes the locally tracked shuffle records for a deck.
// Implemented by clients that keep history; the core uses it for audit
// output only.
type History interface {
	ShuffleHistory(deckID string) []ShuffleRecord
}
