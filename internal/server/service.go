package server

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lox/holdem-core/internal/game"
	"github.com/lox/holdem-core/internal/oracle"
	"github.com/lox/holdem-core/internal/recovery"
	"github.com/lox/holdem-core/internal/stats"
	"github.com/lox/holdem-core/internal/statesync"
)

// Service owns the tables and routes ingress calls to them. Each table
// is its own bulkhead: a failing table never blocks its siblings.
type Service struct {
	mu        sync.Mutex
	logger    *log.Logger
	oracle    oracle.Client
	registry  *recovery.Registry
	stats     *stats.Service
	tables    map[string]*game.Table
	autoStart map[string]bool
	sessions  map[string]string // "table/player" -> session id
	broadcast func(tableID string, event game.Event)
}

// NewService creates the table service
func NewService(oracleClient oracle.Client, registry *recovery.Registry, statsService *stats.Service, logger *log.Logger) *Service {
	return &Service{
		logger:    logger.WithPrefix("service"),
		oracle:    oracleClient,
		registry:  registry,
		stats:     statsService,
		tables:    make(map[string]*game.Table),
		autoStart: make(map[string]bool),
		sessions:  make(map[string]string),
	}
}

// BreakerStates reports the recovery fabric's breaker states for the
// health endpoint
func (s *Service) BreakerStates() map[string]string {
	return s.registry.BreakerStates()
}

// SetBroadcast registers the event fan-out target
func (s *Service) SetBroadcast(fn func(tableID string, event game.Event)) {
	s.broadcast = fn
}

// CreateTable adds a table from its configuration
func (s *Service) CreateTable(settings TableSettings, syncOpts statesync.Options) error {
	cfg := game.TableConfig{
		SmallBlind: settings.SmallBlind,
		BigBlind:   settings.BigBlind,
		MinBuyIn:   settings.BuyInMin,
		MaxBuyIn:   settings.BuyInMax,
		MaxSeats:   settings.MaxSeats,
		GameType:   "texas-holdem",
	}

	table, err := game.NewTable(settings.Name, cfg, s.oracle, s.logger,
		game.WithSyncOptions(syncOpts),
		game.WithEventSink(func(e game.Event) { s.onEvent(settings.Name, e) }))
	if err != nil {
		return fmt.Errorf("creating table %s: %w", settings.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tables[settings.Name]; exists {
		return fmt.Errorf("table %s already exists", settings.Name)
	}
	s.tables[settings.Name] = table
	s.autoStart[settings.Name] = settings.AutoStart
	s.logger.Info("table created", "table", settings.Name, "blinds", fmt.Sprintf("%d/%d", settings.SmallBlind, settings.BigBlind))
	return nil
}

// Table returns a table by id
func (s *Service) Table(tableID string) (*game.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, ok := s.tables[tableID]
	if !ok {
		return nil, fmt.Errorf("table %s not found", tableID)
	}
	return table, nil
}

// TableIDs lists the tables in stable order
func (s *Service) TableIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.tables))
	for id := range s.tables {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// JoinTable seats a player and opens their statistics session
func (s *Service) JoinTable(ctx context.Context, tableID, playerID string, seat, buyIn int) error {
	table, err := s.Table(tableID)
	if err != nil {
		return err
	}
	if err := table.AddPlayer(playerID, seat, buyIn); err != nil {
		return err
	}

	sessionID := s.stats.BeginSession(ctx, playerID, tableID, buyIn, buyIn)
	s.mu.Lock()
	s.sessions[tableID+"/"+playerID] = sessionID
	s.mu.Unlock()

	s.maybeStart(ctx, tableID, table)
	return nil
}

// LeaveTable unseats a player and closes their session with the
// cash-out amount
func (s *Service) LeaveTable(ctx context.Context, tableID, playerID string) error {
	table, err := s.Table(tableID)
	if err != nil {
		return err
	}
	chips, err := table.RemovePlayer(ctx, playerID)
	if err != nil {
		return err
	}

	key := tableID + "/" + playerID
	s.mu.Lock()
	sessionID, ok := s.sessions[key]
	delete(s.sessions, key)
	s.mu.Unlock()
	if ok {
		if err := s.stats.EndSession(ctx, sessionID, chips); err != nil {
			s.logger.Warn("ending session", "session", sessionID, "err", err)
		}
	}
	return nil
}

// ApplyAction forwards a player action to their table
func (s *Service) ApplyAction(ctx context.Context, tableID, playerID string, kind string, amount int) error {
	table, err := s.Table(tableID)
	if err != nil {
		return err
	}
	actionKind, err := ParseActionKind(kind)
	if err != nil {
		return err
	}
	return table.ApplyAction(ctx, playerID, game.Action{Kind: actionKind, Amount: amount})
}

// Sync answers a client's catch-up request for a table
func (s *Service) Sync(tableID string, clientVersion uint64) (*statesync.Message, error) {
	table, err := s.Table(tableID)
	if err != nil {
		return nil, err
	}
	return table.Synchronizer().Sync(clientVersion)
}

// Recover answers a client's recovery request for a table
func (s *Service) Recover(tableID string, clientVersion uint64, clientHash string) (*statesync.Delta, []statesync.ActionRecord, error) {
	table, err := s.Table(tableID)
	if err != nil {
		return nil, nil, err
	}
	return table.Synchronizer().Recover(clientVersion, clientHash)
}

// onEvent fans a table event out to subscribers and records hand stats
func (s *Service) onEvent(tableID string, event game.Event) {
	if s.broadcast != nil {
		s.broadcast(tableID, event)
	}

	switch event.Kind {
	case game.EventHandCompleted:
		if payload, ok := event.Payload.(game.HandCompletedPayload); ok {
			s.recordHandStats(tableID, event, payload)
		}
		// The sink runs inside the table's mutation, so the next hand
		// starts from a fresh goroutine
		go s.nextHand(tableID)
	}
}

func (s *Service) recordHandStats(tableID string, event game.Event, payload game.HandCompletedPayload) {
	ctx := context.Background()
	for _, w := range payload.Winners {
		s.stats.RecordHand(ctx, stats.HandStats{
			TableID:    tableID,
			HandNumber: event.HandNumber,
			NetChips:   w.Amount,
			Showdown:   w.Ranking != "",
			Timestamp:  event.Timestamp,
		})
	}
}

func (s *Service) nextHand(tableID string) {
	s.mu.Lock()
	auto := s.autoStart[tableID]
	table := s.tables[tableID]
	s.mu.Unlock()
	if !auto || table == nil {
		return
	}
	s.maybeStart(context.Background(), tableID, table)
}

func (s *Service) maybeStart(ctx context.Context, tableID string, table *game.Table) {
	s.mu.Lock()
	auto := s.autoStart[tableID]
	s.mu.Unlock()
	if !auto {
		return
	}
	switch table.Phase() {
	case game.Waiting, game.Finished:
		if err := table.StartHand(ctx); err != nil {
			s.logger.Debug("hand not started", "table", tableID, "err", err)
		}
	}
}

// ParseActionKind maps a wire action kind to the engine's enum
func ParseActionKind(kind string) (game.ActionKind, error) {
	switch kind {
	case "fold":
		return game.Fold, nil
	case "check":
		return game.Check, nil
	case "call":
		return game.Call, nil
	case "bet":
		return game.Bet, nil
	case "raise":
		return game.Raise, nil
	case "allin", "all_in", "all-in":
		return game.AllIn, nil
	default:
		return game.Fold, fmt.Errorf("unknown action kind %q", kind)
	}
}
