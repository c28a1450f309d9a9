package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/coder/quartz"

	"github.com/lox/holdem-core/internal/deck"
)

// memoryDeck is one deck's server-side state. cards holds the full
// committed order; hand is the dealing cursor over it.
type memoryDeck struct {
	cards      []deck.Card
	hand       *deck.Deck
	commitment string
	committed  bool
	history    []ShuffleRecord
}

// Memory is an in-process oracle. It exists for the server binary and
// tests; production points the client at the real RNG service.
type Memory struct {
	mu    sync.Mutex
	rng   *rand.Rand
	clock quartz.Clock
	seq   int
	decks map[string]*memoryDeck
}

// MemoryOption configures the in-memory oracle
type MemoryOption func(*Memory)

// WithMemoryClock injects the clock used for history timestamps
func WithMemoryClock(clock quartz.Clock) MemoryOption {
	return func(m *Memory) { m.clock = clock }
}

// NewMemory creates an in-memory oracle. The seed makes deals
// reproducible, which the tests rely on.
func NewMemory(seed int64, opts ...MemoryOption) *Memory {
	m := &Memory{
		rng:   rand.New(rand.NewSource(seed)),
		clock: quartz.NewReal(),
		decks: make(map[string]*memoryDeck),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ Client = (*Memory)(nil)
var _ History = (*Memory)(nil)

func (m *Memory) CreateDeck(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("deck-%d", m.seq)
	cards := deck.Ordered()
	hand, err := deck.New(id, cards)
	if err != nil {
		return "", err
	}
	m.decks[id] = &memoryDeck{cards: cards, hand: hand}
	return id, nil
}

func (m *Memory) Commit(ctx context.Context, deckID, gameID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decks[deckID]
	if !ok {
		return "", ErrDeckNotFound
	}
	d.commitment = hashCards(d.cards)
	d.committed = true
	return d.commitment, nil
}

func (m *Memory) Shuffle(ctx context.Context, deckID, gameID string) (ShuffleProof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decks[deckID]
	if !ok {
		return ShuffleProof{}, ErrDeckNotFound
	}

	original := hashCards(d.cards)
	m.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
	hand, err := deck.New(deckID, d.cards)
	if err != nil {
		return ShuffleProof{}, err
	}
	d.hand = hand
	proof := ShuffleProof{
		OriginalHash: original,
		ShuffledHash: hashCards(d.cards),
		EntropyBits:  256,
		Algorithm:    "fisher-yates",
	}
	d.history = append(d.history, ShuffleRecord{
		GameID:    gameID,
		Proof:     proof,
		Timestamp: m.clock.Now(),
	})
	// The commitment tracks the latest order
	if d.committed {
		d.commitment = proof.ShuffledHash
	}
	return proof, nil
}

func (m *Memory) Deal(ctx context.Context, deckID string, count int) ([]deck.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decks[deckID]
	if !ok {
		return nil, ErrDeckNotFound
	}
	dealt, err := d.hand.Deal(count)
	if err != nil {
		return nil, ErrDeckExhausted
	}
	return dealt, nil
}

func (m *Memory) Burn(ctx context.Context, deckID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decks[deckID]
	if !ok {
		return ErrDeckNotFound
	}
	if err := d.hand.Burn(); err != nil {
		return ErrDeckExhausted
	}
	return nil
}

func (m *Memory) Reveal(ctx context.Context, deckID, gameID string) ([]deck.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decks[deckID]
	if !ok {
		return nil, ErrDeckNotFound
	}
	if !d.committed {
		return nil, ErrNotCommitted
	}
	if hashCards(d.cards) != d.commitment {
		return nil, ErrIntegrity
	}
	out := make([]deck.Card, len(d.cards))
	copy(out, d.cards)
	return out, nil
}

// ShuffleHistory returns the shuffle records for a deck, oldest first
func (m *Memory) ShuffleHistory(deckID string) []ShuffleRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decks[deckID]
	if !ok {
		return nil
	}
	out := make([]ShuffleRecord, len(d.history))
	copy(out, d.history)
	return out
}

// hashCards is the canonical commitment over a card order
func hashCards(cards []deck.Card) string {
	var sb strings.Builder
	for i, c := range cards {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(c.String())
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
