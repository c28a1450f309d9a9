package statesync

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrVersionMismatch is returned when a delta's from-version does
	// not match the snapshot it is applied to
	ErrVersionMismatch = errors.New("delta from-version does not match snapshot version")

	// ErrInvalidClientState is returned by Recover when the client's
	// version is unknown or its hash disagrees with history
	ErrInvalidClientState = errors.New("invalid client state")
)

// Snapshot is an immutable authoritative state value at a version.
// GameState and PlayerStates hold normalized JSON trees so hashing and
// diffing are representation-independent.
type Snapshot struct {
	Version      uint64                    `json:"version"`
	Hash         string                    `json:"hash"`
	GameState    map[string]any            `json:"gameState"`
	PlayerStates map[string]map[string]any `json:"playerStates"`
	Timestamp    time.Time                 `json:"timestamp"`
}

// Clone returns a deep copy of the snapshot
func (s *Snapshot) Clone() *Snapshot {
	return &Snapshot{
		Version:      s.Version,
		Hash:         s.Hash,
		GameState:    cloneTree(s.GameState).(map[string]any),
		PlayerStates: clonePlayers(s.PlayerStates),
		Timestamp:    s.Timestamp,
	}
}

// Options configures a Synchronizer
type Options struct {
	HistoryCap           int
	DeltaHistoryCap      int
	ActionLogCap         int
	CompareCacheCap      int
	VersionDiffThreshold int
	MaxDeltaBytes        int
}

// DefaultOptions returns the default synchronizer limits
func DefaultOptions() Options {
	return Options{
		HistoryCap:           50,
		DeltaHistoryCap:      100,
		ActionLogCap:         200,
		CompareCacheCap:      1000,
		VersionDiffThreshold: 10,
		MaxDeltaBytes:        10 * 1024,
	}
}

// Synchronizer assigns monotonically increasing versions to state
// snapshots and keeps a bounded history for delta generation and
// client recovery. Each table engine owns exactly one instance.
type Synchronizer struct {
	mu      sync.Mutex
	opts    Options
	version uint64
	history []*Snapshot
	deltas  []*Delta
	actions []ActionRecord
	now     func() time.Time
}

// NewSynchronizer creates a synchronizer with the given options
func NewSynchronizer(opts Options) *Synchronizer {
	if opts.HistoryCap <= 0 {
		opts = DefaultOptions()
	}
	return &Synchronizer{opts: opts, now: time.Now}
}

// Capture creates a new snapshot from the given state trees. Version
// assignment is serialized; inputs are deep-cloned so the caller's
// live state never aliases an emitted snapshot.
func (s *Synchronizer) Capture(gameState map[string]any, playerStates map[string]map[string]any) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := normalizeTree(gameState)
	if err != nil {
		return nil, fmt.Errorf("normalizing game state: %w", err)
	}
	players := make(map[string]map[string]any, len(playerStates))
	for id, ps := range playerStates {
		norm, err := normalizeTree(ps)
		if err != nil {
			return nil, fmt.Errorf("normalizing player %s: %w", id, err)
		}
		players[id] = norm
	}

	s.version++
	snap := &Snapshot{
		Version:      s.version,
		GameState:    game,
		PlayerStates: players,
		Timestamp:    s.now(),
	}
	hash, err := ComputeHash(snap)
	if err != nil {
		return nil, err
	}
	snap.Hash = hash

	s.history = append(s.history, snap)
	if len(s.history) > s.opts.HistoryCap {
		s.history = s.history[evictBatch(s.opts.HistoryCap):]
	}

	return snap.Clone(), nil
}

// evictBatch is how many oldest entries a full ring drops at once: a
// tenth of its cap, at least one
func evictBatch(limit int) int {
	n := limit / 10
	if n < 1 {
		n = 1
	}
	return n
}

// Latest returns a copy of the most recent snapshot, or nil
func (s *Synchronizer) Latest() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return nil
	}
	return s.history[len(s.history)-1].Clone()
}

// Lookup returns a copy of the snapshot with the given version, if the
// history still holds it
func (s *Synchronizer) Lookup(version uint64) (*Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.lookupLocked(version)
	if !ok {
		return nil, false
	}
	return snap.Clone(), true
}

func (s *Synchronizer) lookupLocked(version uint64) (*Snapshot, bool) {
	for _, snap := range s.history {
		if snap.Version == version {
			return snap, true
		}
	}
	return nil, false
}

// ComputeHash returns the hex SHA-256 of the snapshot's canonical
// encoding: JSON with object keys sorted lexicographically, covering
// the game state and the sorted player-states map.
func ComputeHash(s *Snapshot) (string, error) {
	payload := map[string]any{
		"gameState":    s.GameState,
		"playerStates": s.PlayerStates,
	}
	// encoding/json emits map keys in sorted order, which is exactly
	// the canonical form
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("canonical encoding: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

// Validate checks that a snapshot is structurally sound: non-negative
// pot and chips, and a hash that matches the canonical encoding.
func Validate(s *Snapshot) error {
	if s == nil || s.GameState == nil {
		return fmt.Errorf("snapshot missing game state")
	}
	if pot, ok := s.GameState["pot"].(float64); ok && pot < 0 {
		return fmt.Errorf("negative pot %v", pot)
	}
	for id, ps := range s.PlayerStates {
		if chips, ok := ps["chips"].(float64); ok && chips < 0 {
			return fmt.Errorf("player %s has negative chips %v", id, chips)
		}
	}
	hash, err := ComputeHash(s)
	if err != nil {
		return err
	}
	if hash != s.Hash {
		return fmt.Errorf("hash mismatch: stored %s, computed %s", s.Hash, hash)
	}
	return nil
}

// normalizeTree round-trips a tree through JSON so all values use the
// generic representation the differ and hasher expect
func normalizeTree(tree map[string]any) (map[string]any, error) {
	if tree == nil {
		return map[string]any{}, nil
	}
	encoded, err := json.Marshal(tree)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func cloneTree(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneTree(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneTree(val)
		}
		return out
	default:
		return v
	}
}

func clonePlayers(players map[string]map[string]any) map[string]map[string]any {
	out := make(map[string]map[string]any, len(players))
	for id, ps := range players {
		out[id] = cloneTree(ps).(map[string]any)
	}
	return out
}
