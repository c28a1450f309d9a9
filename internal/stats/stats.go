// Package stats records session and hand statistics against an
// external store. Store failures are never fatal to the table engine.
package stats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/holdem-core/internal/recovery"
)

// ErrSessionNotFound is returned when ending an unknown session
var ErrSessionNotFound = errors.New("session not found")

// resource is the recovery registry key for store calls
const resource = "stats-store"

// batchSize is how many hand records accumulate before a flush
const batchSize = 20

// HandStats is one player's result for one hand
type HandStats struct {
	SessionID  string    `json:"sessionId"`
	TableID    string    `json:"tableId"`
	HandNumber int       `json:"handNumber"`
	NetChips   int       `json:"netChips"`
	Showdown   bool      `json:"showdown"`
	PotSize    int       `json:"potSize"`
	Timestamp  time.Time `json:"timestamp"`
}

// Session tracks one player's seat time at one table
type Session struct {
	ID            string    `json:"id"`
	PlayerID      string    `json:"playerId"`
	TableID       string    `json:"tableId"`
	BuyIn         int       `json:"buyIn"`
	StartingChips int       `json:"startingChips"`
	CashOut       int       `json:"cashOut"`
	StartedAt     time.Time `json:"startedAt"`
	EndedAt       time.Time `json:"endedAt,omitempty"`
}

// Store is the persistence backend contract
type Store interface {
	SaveSession(ctx context.Context, session Session) error
	CloseSession(ctx context.Context, sessionID string, cashOut int, endedAt time.Time) error
	SaveHands(ctx context.Context, batch []HandStats) error
}

// Service batches hand stats and manages sessions. All store calls go
// through the recovery fabric; errors are logged and swallowed so a
// slow or dead store never stalls a table.
type Service struct {
	mu       sync.Mutex
	store    Store
	registry *recovery.Registry
	logger   *log.Logger
	now      func() time.Time
	seq      int
	pending  []HandStats
	sessions map[string]Session
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithNow injects the timestamp source
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a statistics service over a store
func NewService(store Store, registry *recovery.Registry, logger *log.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		registry: registry,
		logger:   logger.WithPrefix("stats"),
		now:      time.Now,
		sessions: make(map[string]Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BeginSession opens a session and returns its id
func (s *Service) BeginSession(ctx context.Context, playerID, tableID string, buyIn, startingChips int) string {
	s.mu.Lock()
	s.seq++
	session := Session{
		ID:            fmt.Sprintf("session-%d", s.seq),
		PlayerID:      playerID,
		TableID:       tableID,
		BuyIn:         buyIn,
		StartingChips: startingChips,
		StartedAt:     s.now(),
	}
	s.sessions[session.ID] = session
	s.mu.Unlock()

	err := s.registry.Execute(ctx, resource, recovery.ClassExternalService, func(ctx context.Context) error {
		return s.store.SaveSession(ctx, session)
	})
	if err != nil {
		s.logger.Warn("session save failed", "session", session.ID, "err", err)
	}
	return session.ID
}

// EndSession closes a session with the player's cash-out amount
func (s *Service) EndSession(ctx context.Context, sessionID string, cashOut int) error {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	endedAt := s.now()
	err := s.registry.Execute(ctx, resource, recovery.ClassExternalService, func(ctx context.Context) error {
		return s.store.CloseSession(ctx, sessionID, cashOut, endedAt)
	})
	if err != nil {
		s.logger.Warn("session close failed", "session", session.ID, "err", err)
	}
	return nil
}

// RecordHand queues one hand result, flushing when the batch fills
func (s *Service) RecordHand(ctx context.Context, hand HandStats) {
	s.mu.Lock()
	if hand.Timestamp.IsZero() {
		hand.Timestamp = s.now()
	}
	s.pending = append(s.pending, hand)
	flush := len(s.pending) >= batchSize
	s.mu.Unlock()

	if flush {
		s.Flush(ctx)
	}
}

// Flush writes all pending hand stats. Failed batches are retained for
// the next flush.
func (s *Service) Flush(ctx context.Context) {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(batch) == 0 {
		return
	}

	err := s.registry.Execute(ctx, resource, recovery.ClassExternalService, func(ctx context.Context) error {
		return s.store.SaveHands(ctx, batch)
	})
	if err != nil {
		s.logger.Warn("hand batch save failed, retaining", "hands", len(batch), "err", err)
		s.mu.Lock()
		s.pending = append(batch, s.pending...)
		s.mu.Unlock()
	}
}

// Pending returns how many hand records await a flush
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
