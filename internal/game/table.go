package game

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/holdem-core/internal/deck"
	"github.com/lox/holdem-core/internal/evaluator"
	"github.com/lox/holdem-core/internal/oracle"
	"github.com/lox/holdem-core/internal/statesync"
)

// HoleCardMask replaces hidden hole cards in player views
const HoleCardMask = "??"

// Table is a single poker table. It is a single-owner actor: all
// mutations run under its lock, and blocking only happens on oracle
// calls. Events are emitted in the same causal order as snapshot
// versions.
type Table struct {
	mu      sync.Mutex
	id      string
	cfg     TableConfig
	logger  *log.Logger
	clock   quartz.Clock
	oracle  oracle.Client
	betting *Engine
	sync    *statesync.Synchronizer
	sink    EventSink

	phase      Phase
	players    map[string]*Player
	seats      map[int]*Player
	departed   []*Player
	dealerSeat int
	handNumber int

	deckID      string
	community   []deck.Card
	pot         int
	distributed int
	currentBet  int
	minRaise    int
	toActSeat   int

	actedSince  map[string]bool
	raiseClosed map[string]bool
	finishCause string
}

// TableOption configures a table
type TableOption func(*Table)

// WithTableClock injects the clock used for event timestamps
func WithTableClock(clock quartz.Clock) TableOption {
	return func(t *Table) { t.clock = clock }
}

// WithEventSink registers the event consumer
func WithEventSink(sink EventSink) TableOption {
	return func(t *Table) { t.sink = sink }
}

// WithSyncOptions overrides the state synchronizer bounds
func WithSyncOptions(opts statesync.Options) TableOption {
	return func(t *Table) { t.sync = statesync.NewSynchronizer(opts) }
}

// NewTable creates a table in the WAITING phase
func NewTable(id string, cfg TableConfig, oracleClient oracle.Client, logger *log.Logger, opts ...TableOption) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("table config: %w", err)
	}
	t := &Table{
		id:          id,
		cfg:         cfg,
		logger:      logger.WithPrefix("table").With("table", id),
		clock:       quartz.NewReal(),
		oracle:      oracleClient,
		betting:     NewEngine(),
		sync:        statesync.NewSynchronizer(statesync.DefaultOptions()),
		phase:       Waiting,
		players:     make(map[string]*Player),
		seats:       make(map[int]*Player),
		actedSince:  make(map[string]bool),
		raiseClosed: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// ID returns the table id
func (t *Table) ID() string { return t.id }

// Synchronizer exposes the table's state synchronizer for ingress
func (t *Table) Synchronizer() *statesync.Synchronizer { return t.sync }

// AddPlayer seats a player with the given buy-in. A player joining
// mid-hand waits folded until the next hand starts.
func (t *Table) AddPlayer(playerID string, seat, buyIn int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if playerID == "" || strings.Contains(playerID, ".") {
		// Dots would be ambiguous in delta paths
		return fmt.Errorf("invalid player id %q", playerID)
	}
	if buyIn < t.cfg.MinBuyIn || buyIn > t.cfg.MaxBuyIn {
		return &BuyInError{BuyIn: buyIn, MinBuyIn: t.cfg.MinBuyIn, MaxBuyIn: t.cfg.MaxBuyIn}
	}
	if seat < 0 || seat >= t.cfg.MaxSeats {
		return fmt.Errorf("seat %d out of range [0,%d)", seat, t.cfg.MaxSeats)
	}
	if _, taken := t.seats[seat]; taken {
		return fmt.Errorf("seat %d is taken", seat)
	}
	if _, exists := t.players[playerID]; exists {
		return fmt.Errorf("player %s already seated", playerID)
	}

	p := &Player{ID: playerID, Seat: seat, Chips: buyIn}
	if t.handActive() {
		p.Folded = true
	}
	t.players[playerID] = p
	t.seats[seat] = p

	t.logger.Info("player joined", "player", playerID, "seat", seat, "buy_in", buyIn)
	t.emit(EventPlayerJoined, JoinPayload{PlayerID: playerID, Seat: seat, Chips: buyIn})
	return nil
}

// RemovePlayer unseats a player and returns their remaining chips. A
// player active mid-hand is folded first; their contribution stays in
// the pot.
func (t *Table) RemovePlayer(ctx context.Context, playerID string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.players[playerID]
	if !ok {
		return 0, fmt.Errorf("player %s not seated", playerID)
	}

	wasToAct := t.handActive() && t.toActSeat == p.Seat
	inHand := t.handActive() && p.InHand()
	p.Folded = true

	delete(t.players, playerID)
	delete(t.seats, p.Seat)
	if p.TotalBet > 0 && t.phase != Finished {
		// Ghost entry keeps the pot arithmetic whole
		t.departed = append(t.departed, p)
	}

	chips := p.Chips
	t.logger.Info("player left", "player", playerID, "seat", p.Seat, "cash_out", chips)
	t.emit(EventPlayerLeft, JoinPayload{PlayerID: playerID, Seat: p.Seat, Chips: chips})

	if inHand {
		if t.countInHand() <= 1 {
			t.awardUncontested()
		} else if wasToAct {
			if t.roundComplete() {
				if err := t.advancePhase(ctx); err != nil {
					return chips, err
				}
			} else {
				t.toActSeat = t.nextActiveSeat(t.toActSeat)
			}
		}
	}
	return chips, nil
}

// StartHand begins a new hand: resets per-hand state, advances the
// dealer button, posts blinds, and deals hole cards from the oracle.
func (t *Table) StartHand(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != Waiting && t.phase != Finished {
		return ErrHandInProgress
	}

	for _, p := range t.players {
		p.ResetForHand()
	}
	t.departed = nil

	participants := t.participantSeats()
	if len(participants) < 2 {
		return fmt.Errorf("need at least 2 players with chips, have %d", len(participants))
	}

	t.handNumber++
	t.betting.Reset()
	t.finishCause = ""
	t.community = nil
	t.pot = 0
	t.distributed = 0
	t.currentBet = t.cfg.BigBlind
	t.minRaise = t.cfg.BigBlind
	t.actedSince = make(map[string]bool)
	t.raiseClosed = make(map[string]bool)

	if t.handNumber == 1 {
		t.dealerSeat = participants[0]
	} else {
		t.dealerSeat = t.nextParticipantSeat(t.dealerSeat)
	}

	// Heads-up the dealer posts the small blind
	var sbSeat int
	if len(participants) == 2 {
		sbSeat = t.dealerSeat
	} else {
		sbSeat = t.nextParticipantSeat(t.dealerSeat)
	}
	bbSeat := t.nextParticipantSeat(sbSeat)

	t.phase = PreFlop
	t.logger.Info("hand started", "hand", t.handNumber, "dealer_seat", t.dealerSeat, "players", len(participants))
	t.emit(EventGameStarted, map[string]any{"dealerSeat": t.dealerSeat, "players": len(participants)})

	sb := t.seats[sbSeat]
	bb := t.seats[bbSeat]
	t.postBlind(sb, t.cfg.SmallBlind)
	t.postBlind(bb, t.cfg.BigBlind)
	t.emit(EventBlindsPosted, BlindsPayload{
		SmallBlindPlayer: sb.ID,
		SmallBlind:       sb.Bet,
		BigBlindPlayer:   bb.ID,
		BigBlind:         bb.Bet,
	})

	if err := t.dealHoleCards(ctx, participants); err != nil {
		return err
	}

	t.toActSeat = t.nextActiveSeat(bbSeat)
	t.emit(EventCardsDealt, map[string]any{"playersDealt": len(participants)})
	return nil
}

// ApplyAction validates and applies one player action. Illegal actions
// fail without mutating state.
func (t *Table) ApplyAction(ctx context.Context, playerID string, action Action) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.bettingPhase() {
		return illegal(action.Kind, ActionHints{}, "no betting in phase %s", t.phase)
	}
	p, ok := t.players[playerID]
	if !ok {
		return fmt.Errorf("player %s not seated", playerID)
	}
	if t.toActSeat != p.Seat {
		return ErrNotYourTurn
	}

	bctx := t.bettingContext(playerID)
	if err := t.betting.Validate(action, p, bctx); err != nil {
		return err
	}
	res := t.betting.Execute(action, p, bctx)
	t.pot += res.PotContribution

	if res.Aggressive {
		t.applyAggression(playerID, res)
	}
	t.actedSince[playerID] = true

	t.sync.RecordAction(statesync.NewActionRecord(playerID, action.Kind.String(), action.Amount, t.clock.Now(), statesync.RolePlayer))
	t.logger.Debug("action", "player", playerID, "kind", action.Kind, "amount", action.Amount, "pot", t.pot)
	t.emit(EventActionPerformed, ActionPayload{
		PlayerID:        playerID,
		Kind:            action.Kind.String(),
		Amount:          action.Amount,
		PotContribution: res.PotContribution,
	})

	if t.countInHand() <= 1 {
		t.awardUncontested()
		return nil
	}
	if t.roundComplete() {
		return t.advancePhase(ctx)
	}
	t.toActSeat = t.nextActiveSeat(t.toActSeat)
	return nil
}

// AvailableActions returns the kinds a player may take plus the legal
// bounds for each
func (t *Table) AvailableActions(playerID string) ([]ActionKind, ActionHints, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.players[playerID]
	if !ok {
		return nil, ActionHints{}, fmt.Errorf("player %s not seated", playerID)
	}
	if !t.bettingPhase() {
		return nil, ActionHints{}, nil
	}
	hints := ActionHints{
		CallAmount: t.currentBet - p.Bet,
		MinBet:     t.cfg.BigBlind,
		MaxBet:     p.Chips,
		MinRaiseTo: t.currentBet + t.minRaise,
	}
	return t.betting.AvailableActions(p, t.bettingContext(playerID)), hints, nil
}

// State returns the latest authoritative snapshot
func (t *Table) State() *statesync.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sync.Latest()
}

// PlayerView returns the table state as one player may see it: other
// players' hole cards are masked until showdown.
func (t *Table) PlayerView(playerID string) (map[string]any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.players[playerID]; !ok {
		return nil, fmt.Errorf("player %s not seated", playerID)
	}

	reveal := t.phase == Showdown || t.phase == Finished
	view := t.gameStateTree()
	playerViews := make(map[string]any, len(t.players))
	for id, p := range t.players {
		pv := t.playerTree(p)
		if len(p.HoleCards) > 0 {
			if id == playerID || (reveal && p.InHand()) {
				cards := make([]any, len(p.HoleCards))
				for i, c := range p.HoleCards {
					cards[i] = c.String()
				}
				pv["holeCards"] = cards
			} else {
				pv["holeCards"] = []any{HoleCardMask, HoleCardMask}
			}
		}
		playerViews[id] = pv
	}
	view["players"] = playerViews
	return view, nil
}

// Phase returns the current table phase
func (t *Table) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// FinishCause reports why the last hand finished abnormally, if it did
func (t *Table) FinishCause() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finishCause
}

// Player returns a copy of a seated player's state
func (t *Table) Player(playerID string) (*Player, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.players[playerID]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Close emits the terminal event for the table
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emit(EventGameEnded, nil)
}

func (t *Table) handActive() bool {
	return t.phase != Waiting && t.phase != Finished
}

func (t *Table) bettingPhase() bool {
	switch t.phase {
	case PreFlop, Flop, Turn, River:
		return true
	}
	return false
}

func (t *Table) bettingContext(playerID string) Context {
	return Context{
		Phase:       t.phase,
		CurrentBet:  t.currentBet,
		MinRaise:    t.minRaise,
		BigBlind:    t.cfg.BigBlind,
		RaiseClosed: t.raiseClosed[playerID],
	}
}

// applyAggression updates the betting state after a bet or raise. A
// full raise reopens the betting for everyone; a short all-in moves the
// price but leaves earlier actors unable to raise again.
func (t *Table) applyAggression(actorID string, res ExecResult) {
	t.currentBet = res.NewCurrentBet
	t.minRaise = res.NewMinRaise

	if res.FullRaise {
		t.raiseClosed = make(map[string]bool)
		for id := range t.actedSince {
			if id != actorID {
				t.actedSince[id] = false
			}
		}
		return
	}
	for id, acted := range t.actedSince {
		if id == actorID {
			continue
		}
		if acted {
			t.raiseClosed[id] = true
			t.actedSince[id] = false
		}
	}
}

func (t *Table) postBlind(p *Player, blind int) {
	amount := blind
	if amount > p.Chips {
		amount = p.Chips
	}
	p.Chips -= amount
	p.Bet += amount
	p.TotalBet += amount
	if p.Chips == 0 {
		p.AllInFlag = true
	}
	t.pot += amount
}

// dealHoleCards fetches a shuffled deck and deals two cards per
// participant in two passes. The deal is atomic: an oracle failure
// commits no cards.
func (t *Table) dealHoleCards(ctx context.Context, participants []int) error {
	gameID := fmt.Sprintf("%s-%d", t.id, t.handNumber)

	cards, err := t.requestCards(ctx, gameID, 2*len(participants))
	if err != nil {
		if ctx.Err() != nil {
			t.rollbackHand()
			return fmt.Errorf("deal cancelled: %w", err)
		}
		t.failHand(err)
		return ErrDeckUnavailable
	}

	for pass := 0; pass < 2; pass++ {
		for i, seat := range participants {
			p := t.seats[seat]
			p.HoleCards = append(p.HoleCards, cards[pass*len(participants)+i])
		}
	}
	return nil
}

func (t *Table) requestCards(ctx context.Context, gameID string, count int) ([]deck.Card, error) {
	deckID, err := t.oracle.CreateDeck(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := t.oracle.Shuffle(ctx, deckID, gameID); err != nil {
		return nil, err
	}
	if _, err := t.oracle.Commit(ctx, deckID, gameID); err != nil {
		return nil, err
	}
	cards, err := t.oracle.Deal(ctx, deckID, count)
	if err != nil {
		return nil, err
	}
	t.deckID = deckID
	return cards, nil
}

// rollbackHand restores the pre-hand state after a cancelled deal
func (t *Table) rollbackHand() {
	for _, p := range t.players {
		p.Chips += p.TotalBet
		p.Bet = 0
		p.TotalBet = 0
		p.AllInFlag = false
	}
	t.pot = 0
	t.handNumber--
	t.phase = Waiting
}

// failHand ends the hand with a DeckUnavailable cause, refunding every
// contribution pro rata
func (t *Table) failHand(cause error) {
	t.logger.Error("deck oracle failed, refunding hand", "hand", t.handNumber, "err", cause)
	for _, p := range t.allContributors() {
		p.Chips += p.TotalBet
		p.Bet = 0
		p.TotalBet = 0
		p.AllInFlag = false
	}
	t.pot = 0
	t.phase = Finished
	t.finishCause = "DeckUnavailable"
	t.emit(EventHandCompleted, HandCompletedPayload{Cause: "DeckUnavailable"})
}

// advancePhase closes the betting round and moves the hand forward,
// dealing community cards as needed. With one or zero players still
// able to act it runs the board out to showdown.
func (t *Table) advancePhase(ctx context.Context) error {
	for {
		for _, p := range t.players {
			p.Bet = 0
		}
		t.currentBet = 0
		t.minRaise = t.cfg.BigBlind
		t.actedSince = make(map[string]bool)
		t.raiseClosed = make(map[string]bool)

		var dealCount int
		switch t.phase {
		case PreFlop:
			t.phase, dealCount = Flop, 3
		case Flop:
			t.phase, dealCount = Turn, 1
		case Turn:
			t.phase, dealCount = River, 1
		case River:
			t.phase = Showdown
			t.distribute()
			return nil
		default:
			return fmt.Errorf("cannot advance from phase %s", t.phase)
		}

		if err := t.dealCommunity(ctx, dealCount); err != nil {
			return err
		}
		t.emit(EventNewBettingRound, map[string]any{"phase": t.phase.String()})

		// Betting continues only while two or more players can still act
		if t.countActive() >= 2 {
			t.toActSeat = t.nextActiveSeat(t.dealerSeat)
			return nil
		}
	}
}

func (t *Table) dealCommunity(ctx context.Context, count int) error {
	if err := t.oracle.Burn(ctx, t.deckID); err != nil {
		return t.communityFailure(ctx, err)
	}
	cards, err := t.oracle.Deal(ctx, t.deckID, count)
	if err != nil {
		return t.communityFailure(ctx, err)
	}
	t.community = append(t.community, cards...)
	t.emit(EventCommunityCardsDealt, CommunityCardsPayload{Phase: t.phase.String(), Cards: cards})
	return nil
}

func (t *Table) communityFailure(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("deal cancelled: %w", err)
	}
	t.failHand(err)
	return ErrDeckUnavailable
}

// awardUncontested gives the whole pot to the last player in the hand
func (t *Table) awardUncontested() {
	var winner *Player
	for _, p := range t.players {
		if p.InHand() && p.HoleCards != nil {
			winner = p
			break
		}
	}
	t.phase = Finished
	if winner == nil {
		t.finishCause = "Abandoned"
		t.emit(EventHandCompleted, HandCompletedPayload{Cause: "Abandoned"})
		return
	}

	amount := t.pot
	winner.Chips += amount
	t.distributed = amount
	t.logger.Info("uncontested win", "player", winner.ID, "amount", amount)
	t.emit(EventHandCompleted, HandCompletedPayload{
		Winners: []WinnerShare{{PlayerID: winner.ID, PotIndex: 0, Amount: amount}},
	})
}

// distribute evaluates each pot independently and pays the winners.
// Split pots divide by floor with the odd chip going to the first
// winner left of the dealer.
func (t *Table) distribute() {
	pots := BuildPots(t.allContributors())
	seatOwner := make(map[int]*Player)
	evals := make(map[int]evaluator.Evaluation)
	for _, p := range t.players {
		seatOwner[p.Seat] = p
		if p.InHand() && len(p.HoleCards) > 0 {
			ev, err := evaluator.Evaluate(append(append([]deck.Card{}, p.HoleCards...), t.community...))
			if err != nil {
				t.logger.Error("evaluation failed", "player", p.ID, "err", err)
				continue
			}
			evals[p.Seat] = ev
		}
	}

	var winners []WinnerShare
	for potIndex, pot := range pots {
		var best []int
		for _, seat := range pot.Eligible {
			ev, ok := evals[seat]
			if !ok {
				continue
			}
			if len(best) == 0 {
				best = []int{seat}
				continue
			}
			switch cmp := evaluator.Compare(ev, evals[best[0]]); {
			case cmp > 0:
				best = []int{seat}
			case cmp == 0:
				best = append(best, seat)
			}
		}
		if len(best) == 0 {
			continue
		}

		share := pot.Amount / len(best)
		remainder := pot.Amount % len(best)
		for i, seat := range t.seatsLeftOfDealer(best) {
			amount := share
			// The whole odd-chip remainder goes to the first winner
			// left of the dealer
			if i == 0 {
				amount += remainder
			}
			p := seatOwner[seat]
			p.Chips += amount
			t.distributed += amount
			winners = append(winners, WinnerShare{
				PlayerID: p.ID,
				PotIndex: potIndex,
				Amount:   amount,
				Ranking:  evals[seat].Ranking.String(),
			})
		}
	}

	t.phase = Finished
	t.logger.Info("hand complete", "hand", t.handNumber, "pots", len(pots), "winners", len(winners))
	t.emit(EventHandCompleted, HandCompletedPayload{Winners: winners})
}

// seatsLeftOfDealer orders the given seats clockwise starting from the
// first seat after the dealer
func (t *Table) seatsLeftOfDealer(seatNums []int) []int {
	ordered := append([]int{}, seatNums...)
	sort.Slice(ordered, func(i, j int) bool {
		return t.seatDistance(ordered[i]) < t.seatDistance(ordered[j])
	})
	return ordered
}

func (t *Table) seatDistance(seat int) int {
	d := seat - t.dealerSeat
	if d <= 0 {
		d += t.cfg.MaxSeats
	}
	return d
}

func (t *Table) roundComplete() bool {
	for _, p := range t.players {
		if !p.IsActive() || p.HoleCards == nil {
			continue
		}
		if !t.actedSince[p.ID] || p.Bet != t.currentBet {
			return false
		}
	}
	return true
}

func (t *Table) countInHand() int {
	n := 0
	for _, p := range t.players {
		if p.InHand() && p.HoleCards != nil {
			n++
		}
	}
	return n
}

func (t *Table) countActive() int {
	n := 0
	for _, p := range t.players {
		if p.IsActive() && p.HoleCards != nil {
			n++
		}
	}
	return n
}

// participantSeats returns the seats of players able to play the next
// hand, in seat order
func (t *Table) participantSeats() []int {
	seats := make([]int, 0, len(t.players))
	for _, p := range t.players {
		if !p.SittingOut && p.Chips > 0 {
			seats = append(seats, p.Seat)
		}
	}
	sort.Ints(seats)
	return seats
}

func (t *Table) nextParticipantSeat(after int) int {
	return t.nextSeat(after, func(p *Player) bool {
		return !p.SittingOut && (p.Chips > 0 || p.TotalBet > 0)
	})
}

func (t *Table) nextActiveSeat(after int) int {
	return t.nextSeat(after, func(p *Player) bool {
		return p.IsActive() && p.HoleCards != nil
	})
}

func (t *Table) nextSeat(after int, ok func(*Player) bool) int {
	for i := 1; i <= t.cfg.MaxSeats; i++ {
		seat := (after + i) % t.cfg.MaxSeats
		if p, seated := t.seats[seat]; seated && ok(p) {
			return seat
		}
	}
	return after
}

// allContributors returns seated players plus departed ghosts, so pot
// accounting survives mid-hand removals
func (t *Table) allContributors() []*Player {
	out := make([]*Player, 0, len(t.players)+len(t.departed))
	for _, p := range t.players {
		out = append(out, p)
	}
	out = append(out, t.departed...)
	sort.Slice(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	return out
}

// emit captures a snapshot for the mutation and hands the paired event
// to the sink
func (t *Table) emit(kind EventKind, payload any) {
	var version uint64
	var hash string
	snap, err := t.sync.Capture(t.gameStateTree(), t.playerStateTrees())
	if err != nil {
		t.logger.Error("snapshot capture failed", "event", kind, "err", err)
	} else {
		version = snap.Version
		hash = snap.Hash
	}

	if t.sink == nil {
		return
	}
	t.sink(Event{
		Kind:            kind,
		Timestamp:       t.clock.Now(),
		TableID:         t.id,
		HandNumber:      t.handNumber,
		SnapshotVersion: version,
		SnapshotHash:    hash,
		Payload:         payload,
	})
}

func (t *Table) gameStateTree() map[string]any {
	community := make([]any, len(t.community))
	for i, c := range t.community {
		community[i] = c.String()
	}
	toAct := ""
	if t.bettingPhase() {
		if p, ok := t.seats[t.toActSeat]; ok {
			toAct = p.ID
		}
	}
	return map[string]any{
		"gamePhase":      t.phase.String(),
		"pot":            t.pot - t.distributed,
		"currentBet":     t.currentBet,
		"minRaise":       t.minRaise,
		"dealerSeat":     t.dealerSeat,
		"handNumber":     t.handNumber,
		"communityCards": community,
		"toActPlayer":    toAct,
	}
}

func (t *Table) playerStateTrees() map[string]map[string]any {
	out := make(map[string]map[string]any, len(t.players))
	for id, p := range t.players {
		out[id] = t.playerTree(p)
	}
	return out
}

func (t *Table) playerTree(p *Player) map[string]any {
	return map[string]any{
		"seat":       p.Seat,
		"chips":      p.Chips,
		"bet":        p.Bet,
		"totalBet":   p.TotalBet,
		"folded":     p.Folded,
		"allIn":      p.AllInFlag,
		"sittingOut": p.SittingOut,
	}
}
