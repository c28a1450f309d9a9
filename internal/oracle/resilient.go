package oracle

import (
	"context"
	"fmt"

	"github.com/lox/holdem-core/internal/deck"
	"github.com/lox/holdem-core/internal/recovery"
)

// resource is the recovery registry key for oracle calls
const resource = "deck-oracle"

// Resilient wraps a Client so every call goes through the recovery
// fabric: the oracle's circuit breaker plus the external-service retry
// policy. It also rejects shuffle proofs with malformed claims.
type Resilient struct {
	inner    Client
	registry *recovery.Registry
}

// NewResilient wraps an oracle client with retries and a breaker
func NewResilient(inner Client, registry *recovery.Registry) *Resilient {
	return &Resilient{inner: inner, registry: registry}
}

var _ Client = (*Resilient)(nil)

func (r *Resilient) CreateDeck(ctx context.Context) (string, error) {
	var id string
	err := r.registry.Execute(ctx, resource, recovery.ClassExternalService, func(ctx context.Context) error {
		var err error
		id, err = r.inner.CreateDeck(ctx)
		return err
	})
	return id, err
}

func (r *Resilient) Commit(ctx context.Context, deckID, gameID string) (string, error) {
	var hash string
	err := r.registry.Execute(ctx, resource, recovery.ClassExternalService, func(ctx context.Context) error {
		var err error
		hash, err = r.inner.Commit(ctx, deckID, gameID)
		return err
	})
	return hash, err
}

func (r *Resilient) Shuffle(ctx context.Context, deckID, gameID string) (ShuffleProof, error) {
	var proof ShuffleProof
	err := r.registry.Execute(ctx, resource, recovery.ClassExternalService, func(ctx context.Context) error {
		var err error
		proof, err = r.inner.Shuffle(ctx, deckID, gameID)
		return err
	})
	if err != nil {
		return ShuffleProof{}, err
	}
	if err := proof.Validate(); err != nil {
		return ShuffleProof{}, fmt.Errorf("oracle returned bad proof: %w", err)
	}
	return proof, nil
}

func (r *Resilient) Deal(ctx context.Context, deckID string, count int) ([]deck.Card, error) {
	var cards []deck.Card
	err := r.registry.Execute(ctx, resource, recovery.ClassExternalService, func(ctx context.Context) error {
		var err error
		cards, err = r.inner.Deal(ctx, deckID, count)
		return err
	})
	return cards, err
}

func (r *Resilient) Burn(ctx context.Context, deckID string) error {
	return r.registry.Execute(ctx, resource, recovery.ClassExternalService, func(ctx context.Context) error {
		return r.inner.Burn(ctx, deckID)
	})
}

func (r *Resilient) Reveal(ctx context.Context, deckID, gameID string) ([]deck.Card, error) {
	var cards []deck.Card
	err := r.registry.Execute(ctx, resource, recovery.ClassExternalService, func(ctx context.Context) error {
		var err error
		cards, err = r.inner.Reveal(ctx, deckID, gameID)
		return err
	})
	return cards, err
}
