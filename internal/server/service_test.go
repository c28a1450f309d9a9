package server

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdem-core/internal/game"
	"github.com/lox/holdem-core/internal/oracle"
	"github.com/lox/holdem-core/internal/recovery"
	"github.com/lox/holdem-core/internal/stats"
	"github.com/lox/holdem-core/internal/statesync"
)

type recordingStore struct {
	mu       sync.Mutex
	sessions []stats.Session
	closed   map[string]int
	hands    []stats.HandStats
}

func newRecordingStore() *recordingStore {
	return &recordingStore{closed: make(map[string]int)}
}

func (r *recordingStore) SaveSession(ctx context.Context, session stats.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, session)
	return nil
}

func (r *recordingStore) CloseSession(ctx context.Context, sessionID string, cashOut int, endedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed[sessionID] = cashOut
	return nil
}

func (r *recordingStore) SaveHands(ctx context.Context, batch []stats.HandStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hands = append(r.hands, batch...)
	return nil
}

func testService(t *testing.T, autoStart bool) (*Service, *recordingStore, *stats.Service) {
	t.Helper()
	logger := log.New(io.Discard)
	registry := recovery.NewRegistry(logger)
	store := newRecordingStore()
	statsService := stats.NewService(store, registry, logger)
	service := NewService(oracle.NewMemory(42), registry, statsService, logger)

	require.NoError(t, service.CreateTable(TableSettings{
		Name:       "main",
		SmallBlind: 5,
		BigBlind:   10,
		BuyInMin:   500,
		BuyInMax:   5000,
		MaxSeats:   9,
		AutoStart:  autoStart,
	}, statesync.DefaultOptions()))
	return service, store, statsService
}

func TestCreateTableRejectsDuplicates(t *testing.T) {
	t.Parallel()
	service, _, _ := testService(t, false)

	err := service.CreateTable(TableSettings{Name: "main", SmallBlind: 5, BigBlind: 10, BuyInMin: 500, BuyInMax: 5000, MaxSeats: 9}, statesync.DefaultOptions())
	assert.ErrorContains(t, err, "already exists")
	assert.Equal(t, []string{"main"}, service.TableIDs())
}

func TestJoinAndLeaveManageSessions(t *testing.T) {
	t.Parallel()
	service, store, _ := testService(t, false)
	ctx := context.Background()

	require.NoError(t, service.JoinTable(ctx, "main", "alice", 0, 1000))
	require.NoError(t, service.JoinTable(ctx, "main", "bob", 1, 1000))

	assert.Error(t, service.JoinTable(ctx, "main", "carol", 1, 1000), "seat is taken")
	assert.Error(t, service.JoinTable(ctx, "nowhere", "carol", 2, 1000))

	store.mu.Lock()
	opened := len(store.sessions)
	store.mu.Unlock()
	assert.Equal(t, 2, opened)

	require.NoError(t, service.LeaveTable(ctx, "main", "bob"))
	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.closed, 1)
	for _, cashOut := range store.closed {
		assert.Equal(t, 1000, cashOut, "no hand played, full buy-in returned")
	}
}

func TestAutoStartPlaysConsecutiveHands(t *testing.T) {
	t.Parallel()
	service, _, statsService := testService(t, true)
	ctx := context.Background()

	var mu sync.Mutex
	started := 0
	service.SetBroadcast(func(tableID string, event game.Event) {
		if event.Kind == game.EventGameStarted {
			mu.Lock()
			started++
			mu.Unlock()
		}
	})

	require.NoError(t, service.JoinTable(ctx, "main", "alice", 0, 1000))
	require.NoError(t, service.JoinTable(ctx, "main", "bob", 1, 1000))

	table, err := service.Table("main")
	require.NoError(t, err)
	require.Equal(t, game.PreFlop, table.Phase())

	// Heads-up: the dealer posts the small blind and acts first
	require.NoError(t, service.ApplyAction(ctx, "main", "alice", "fold", 0))

	// The completed hand triggers the next one asynchronously
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return started >= 2
	}, 2*time.Second, 10*time.Millisecond)

	// Chips are conserved across the fold and the fresh blinds
	alice, ok := table.Player("alice")
	require.True(t, ok)
	bob, ok := table.Player("bob")
	require.True(t, ok)
	assert.Equal(t, 2000, alice.Chips+alice.TotalBet+bob.Chips+bob.TotalBet)

	// Winner stats are recorded synchronously when the hand completes
	assert.GreaterOrEqual(t, statsService.Pending(), 1)
}

func TestApplyActionValidation(t *testing.T) {
	t.Parallel()
	service, _, _ := testService(t, true)
	ctx := context.Background()

	require.NoError(t, service.JoinTable(ctx, "main", "alice", 0, 1000))
	require.NoError(t, service.JoinTable(ctx, "main", "bob", 1, 1000))

	assert.Error(t, service.ApplyAction(ctx, "main", "alice", "samba", 0))
	assert.ErrorIs(t, service.ApplyAction(ctx, "main", "bob", "fold", 0), game.ErrNotYourTurn)
}

func TestSyncAndRecoverPassthrough(t *testing.T) {
	t.Parallel()
	service, _, _ := testService(t, true)
	ctx := context.Background()

	require.NoError(t, service.JoinTable(ctx, "main", "alice", 0, 1000))
	require.NoError(t, service.JoinTable(ctx, "main", "bob", 1, 1000))

	// A brand-new client has no base snapshot, so it gets a full one
	msg, err := service.Sync("main", 0)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", msg.Type)
	require.NotNil(t, msg.Snapshot)

	// Recovery from that snapshot yields an empty or forward delta
	delta, _, err := service.Recover("main", msg.Snapshot.Version, msg.Snapshot.Hash)
	require.NoError(t, err)
	assert.Equal(t, msg.Snapshot.Version, delta.FromVersion)

	_, _, err = service.Recover("main", msg.Snapshot.Version, "bogus-hash")
	assert.ErrorIs(t, err, statesync.ErrInvalidClientState)
}

func TestParseActionKind(t *testing.T) {
	t.Parallel()

	for wire, want := range map[string]game.ActionKind{
		"fold":   game.Fold,
		"check":  game.Check,
		"call":   game.Call,
		"bet":    game.Bet,
		"raise":  game.Raise,
		"allin":  game.AllIn,
		"all_in": game.AllIn,
		"all-in": game.AllIn,
	} {
		kind, err := ParseActionKind(wire)
		require.NoError(t, err, wire)
		assert.Equal(t, want, kind, wire)
	}

	_, err := ParseActionKind("limp")
	assert.ErrorContains(t, err, "unknown action kind")
}

func TestUserMessageScrubsInternalErrors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, game.ErrNotYourTurn.Error(), userMessage(game.ErrNotYourTurn))
	assert.Equal(t, statesync.ErrInvalidClientState.Error(), userMessage(statesync.ErrInvalidClientState))
	assert.Equal(t, "service temporarily unavailable", userMessage(io.ErrUnexpectedEOF))

	// Wrapped sentinels keep their user-facing messages
	wrapped := fmt.Errorf("applying action: %w", game.ErrNotYourTurn)
	assert.Equal(t, wrapped.Error(), userMessage(wrapped))
	assert.Equal(t, "service temporarily unavailable",
		userMessage(fmt.Errorf("dialing store: %w", io.ErrUnexpectedEOF)))
}

func TestReplyAfterCloseDoesNotPanic(t *testing.T) {
	t.Parallel()

	// A slow consumer can be dropped by the broadcast path while its
	// read loop is still answering a request
	c := &connection{send: make(chan Frame, 1), tables: make(map[string]bool)}
	c.closed = true
	close(c.send)

	assert.NotPanics(t, func() { c.reply(Frame{Type: "ack"}) })
}

func TestBreakerStatesReportedForHealth(t *testing.T) {
	t.Parallel()
	service, _, _ := testService(t, false)
	ctx := context.Background()

	// Joining opens a statistics session, which exercises the
	// stats-store breaker
	require.NoError(t, service.JoinTable(ctx, "main", "alice", 0, 1000))

	states := service.BreakerStates()
	assert.Equal(t, "closed", states["stats-store"])
}
