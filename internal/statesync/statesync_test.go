package statesync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, s *Synchronizer, game map[string]any, players map[string]map[string]any) *Snapshot {
	t.Helper()
	snap, err := s.Capture(game, players)
	require.NoError(t, err)
	return snap
}

func TestVersionsStrictlyIncrease(t *testing.T) {
	t.Parallel()

	s := NewSynchronizer(DefaultOptions())
	var last uint64
	for i := 0; i < 10; i++ {
		snap := capture(t, s, map[string]any{"pot": i}, nil)
		assert.Greater(t, snap.Version, last)
		last = snap.Version
	}
}

func TestHashMatchesCanonicalEncoding(t *testing.T) {
	t.Parallel()

	s := NewSynchronizer(DefaultOptions())
	snap := capture(t, s, map[string]any{"pot": 30, "phase": "flop"},
		map[string]map[string]any{"p1": {"chips": 100}})

	hash, err := ComputeHash(snap)
	require.NoError(t, err)
	assert.Equal(t, snap.Hash, hash)
	assert.Len(t, snap.Hash, 64) // hex sha256

	require.NoError(t, Validate(snap))

	// Tampering breaks validation
	snap.GameState["pot"] = float64(31)
	assert.Error(t, Validate(snap))
}

func TestValidateRejectsNegatives(t *testing.T) {
	t.Parallel()

	s := NewSynchronizer(DefaultOptions())
	snap := capture(t, s, map[string]any{"pot": -5}, nil)
	assert.Error(t, Validate(snap))

	snap = capture(t, s, map[string]any{"pot": 5},
		map[string]map[string]any{"p1": {"chips": -1}})
	assert.Error(t, Validate(snap))
}

func TestHistoryRingEvictsOldest(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.HistoryCap = 3
	s := NewSynchronizer(opts)

	for i := 0; i < 5; i++ {
		capture(t, s, map[string]any{"pot": i}, nil)
	}

	_, ok := s.Lookup(1)
	assert.False(t, ok, "oldest snapshot should be evicted")
	_, ok = s.Lookup(3)
	assert.True(t, ok)
	_, ok = s.Lookup(5)
	assert.True(t, ok)
}

func TestDeltaApplyRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewSynchronizer(DefaultOptions())
	v1 := capture(t, s, map[string]any{"pot": 0, "phase": "pre_flop"}, nil)
	v2 := capture(t, s, map[string]any{"pot": 30, "phase": "pre_flop"}, nil)

	delta := s.GenerateDelta(v1, v2)
	require.Len(t, delta.Changes, 1)
	assert.Equal(t, "pot", delta.Changes[0].Path)

	applied, err := ApplyDelta(v1, delta)
	require.NoError(t, err)
	assert.Equal(t, v2.Version, applied.Version)
	assert.Equal(t, v2.Hash, applied.Hash)
}

func TestDeltaPlayerMapSemantics(t *testing.T) {
	t.Parallel()

	s := NewSynchronizer(DefaultOptions())
	v1 := capture(t, s, map[string]any{"pot": 0},
		map[string]map[string]any{
			"alice": {"chips": 100, "folded": false},
			"bob":   {"chips": 50, "folded": false},
		})
	v2 := capture(t, s, map[string]any{"pot": 10},
		map[string]map[string]any{
			"alice": {"chips": 90, "folded": false},
			"carol": {"chips": 200, "folded": false},
		})

	delta := s.GenerateDelta(v1, v2)
	paths := make(map[string]Change)
	for _, c := range delta.Changes {
		paths[c.Path] = c
	}

	assert.Contains(t, paths, "pot")
	assert.Contains(t, paths, "playerStates.alice.chips")
	assert.Nil(t, paths["playerStates.bob"].New, "bob removed")
	assert.NotNil(t, paths["playerStates.carol"].New, "carol added")

	applied, err := ApplyDelta(v1, delta)
	require.NoError(t, err)
	assert.Equal(t, v2.Hash, applied.Hash)
	assert.NotContains(t, applied.PlayerStates, "bob")
	assert.Contains(t, applied.PlayerStates, "carol")
}

func TestApplyDeltaVersionMismatch(t *testing.T) {
	t.Parallel()

	s := NewSynchronizer(DefaultOptions())
	v1 := capture(t, s, map[string]any{"pot": 0}, nil)
	v2 := capture(t, s, map[string]any{"pot": 10}, nil)
	v3 := capture(t, s, map[string]any{"pot": 20}, nil)

	delta := s.GenerateDelta(v2, v3)
	_, err := ApplyDelta(v1, delta)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestArraysDiffAsSingleReplace(t *testing.T) {
	t.Parallel()

	s := NewSynchronizer(DefaultOptions())
	v1 := capture(t, s, map[string]any{"board": []string{"A♠", "K♦"}}, nil)
	v2 := capture(t, s, map[string]any{"board": []string{"A♠", "K♦", "2♣"}}, nil)

	delta := s.GenerateDelta(v1, v2)
	require.Len(t, delta.Changes, 1)
	assert.Equal(t, "board", delta.Changes[0].Path)

	applied, err := ApplyDelta(v1, delta)
	require.NoError(t, err)
	assert.Equal(t, v2.Hash, applied.Hash)
}

func TestSyncPrefersDeltaWhenClose(t *testing.T) {
	t.Parallel()

	s := NewSynchronizer(DefaultOptions())
	capture(t, s, map[string]any{"pot": 0}, nil)
	capture(t, s, map[string]any{"pot": 10}, nil)

	msg, err := s.Sync(1)
	require.NoError(t, err)
	assert.Equal(t, "delta", msg.Type)
	assert.Equal(t, uint64(1), msg.FromVersion)
	assert.Equal(t, uint64(2), msg.ToVersion)
}

func TestSyncFallsBackToSnapshot(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.VersionDiffThreshold = 3
	s := NewSynchronizer(opts)
	for i := 0; i < 6; i++ {
		capture(t, s, map[string]any{"pot": i}, nil)
	}

	// Too far behind
	msg, err := s.Sync(1)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", msg.Type)
	require.NotNil(t, msg.Snapshot)
	assert.Equal(t, uint64(6), msg.Snapshot.Version)

	// Unknown version
	msg, err = s.Sync(99)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", msg.Type)
}

func TestSyncFallsBackWhenDeltaTooLarge(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.MaxDeltaBytes = 64
	s := NewSynchronizer(opts)
	capture(t, s, map[string]any{"pot": 0}, nil)

	big := make(map[string]any)
	for i := 0; i < 50; i++ {
		big["field"+string(rune('a'+i%26))+string(rune('a'+i/26))] = i
	}
	big["pot"] = 10
	capture(t, s, big, nil)

	msg, err := s.Sync(1)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", msg.Type)
}

func TestRecover(t *testing.T) {
	t.Parallel()

	s := NewSynchronizer(DefaultOptions())
	v1 := capture(t, s, map[string]any{"pot": 0}, nil)

	s.RecordAction(NewActionRecord("alice", "call", 10, v1.Timestamp.Add(time.Second), RolePlayer))
	capture(t, s, map[string]any{"pot": 10}, nil)

	delta, actions, err := s.Recover(v1.Version, v1.Hash)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), delta.FromVersion)
	assert.Equal(t, uint64(2), delta.ToVersion)
	require.Len(t, actions, 1)
	assert.Equal(t, "alice", actions[0].PlayerID)

	// Wrong hash means the client state cannot be trusted
	_, _, err = s.Recover(v1.Version, "deadbeef")
	assert.ErrorIs(t, err, ErrInvalidClientState)

	// Unknown version
	_, _, err = s.Recover(99, v1.Hash)
	assert.ErrorIs(t, err, ErrInvalidClientState)
}

func TestDetectConflicts(t *testing.T) {
	t.Parallel()

	s := NewSynchronizer(DefaultOptions())
	snap := capture(t, s, map[string]any{"toActPlayer": "alice"}, nil)

	base := time.Date(2024, 6, 1, 12, 0, 1, 0, time.UTC)
	records := []ActionRecord{
		NewActionRecord("alice", "call", 10, base.Add(200*time.Millisecond), RolePlayer),
		NewActionRecord("alice", "raise", 30, base.Add(700*time.Millisecond), RolePlayer),
		NewActionRecord("bob", "fold", 0, base.Add(300*time.Millisecond), RolePlayer),
	}

	conflicts := DetectConflicts(records, snap)

	var kinds []ConflictKind
	for _, c := range conflicts {
		kinds = append(kinds, c.Kind)
	}
	assert.Contains(t, kinds, ConflictDuplicate)
	assert.Contains(t, kinds, ConflictOutOfTurn)

	// Admin actions are never out of turn
	admin := []ActionRecord{NewActionRecord("bob", "fold", 0, base, RoleAdmin)}
	assert.Empty(t, DetectConflicts(admin, snap))
}

func TestResolveTimestampFirst(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 6, 1, 12, 0, 1, 0, time.UTC)
	records := []ActionRecord{
		NewActionRecord("alice", "raise", 30, base.Add(700*time.Millisecond), RolePlayer),
		NewActionRecord("alice", "call", 10, base.Add(200*time.Millisecond), RolePlayer),
		NewActionRecord("bob", "fold", 0, base.Add(300*time.Millisecond), RolePlayer),
	}

	resolved := Resolve(TimestampFirst, records)
	require.Len(t, resolved, 2)
	assert.Equal(t, "call", resolved[0].Kind)
	assert.Equal(t, "fold", resolved[1].Kind)
}

func TestResolveSequentialKeepsAll(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 6, 1, 12, 0, 1, 0, time.UTC)
	records := []ActionRecord{
		NewActionRecord("bob", "fold", 0, base.Add(300*time.Millisecond), RolePlayer),
		NewActionRecord("alice", "call", 10, base.Add(200*time.Millisecond), RolePlayer),
	}

	resolved := Resolve(Sequential, records)
	require.Len(t, resolved, 2)
	assert.Equal(t, "alice", resolved[0].PlayerID)
}

func TestResolveAuthorityBased(t *testing.T) {
	t.Parallel()

	// Both actions map to integer timestamp 1; the dealer outranks the
	// player even though it acted later within the second
	base := time.Date(2024, 6, 1, 12, 0, 1, 0, time.UTC)
	records := []ActionRecord{
		NewActionRecord("x", "call", 10, base.Add(200*time.Millisecond), RolePlayer),
		NewActionRecord("y", "fold", 0, base.Add(700*time.Millisecond), RoleDealer),
	}

	resolved := Resolve(AuthorityBased, records)
	require.Len(t, resolved, 1)
	assert.Equal(t, "y", resolved[0].PlayerID)
}

func TestResolveAuthorityTieBreaks(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 6, 1, 12, 0, 1, 0, time.UTC)

	// Equal authority: earlier sub-second timestamp wins
	records := []ActionRecord{
		NewActionRecord("x", "call", 10, base.Add(700*time.Millisecond), RolePlayer),
		NewActionRecord("y", "fold", 0, base.Add(200*time.Millisecond), RolePlayer),
	}
	resolved := Resolve(AuthorityBased, records)
	require.Len(t, resolved, 1)
	assert.Equal(t, "y", resolved[0].PlayerID)

	// Equal authority and timestamp: lexicographic player id
	records = []ActionRecord{
		NewActionRecord("zed", "call", 10, base, RolePlayer),
		NewActionRecord("amy", "fold", 0, base, RolePlayer),
	}
	resolved = Resolve(AuthorityBased, records)
	require.Len(t, resolved, 1)
	assert.Equal(t, "amy", resolved[0].PlayerID)
}

func TestSnapshotCloneDoesNotAlias(t *testing.T) {
	t.Parallel()

	s := NewSynchronizer(DefaultOptions())
	snap := capture(t, s, map[string]any{"pot": 5},
		map[string]map[string]any{"p1": {"chips": 100}})

	clone := snap.Clone()
	clone.GameState["pot"] = float64(99)
	clone.PlayerStates["p1"]["chips"] = float64(0)

	assert.Equal(t, float64(5), snap.GameState["pot"])
	assert.Equal(t, float64(100), snap.PlayerStates["p1"]["chips"])
}

func TestHistoryRingEvictsOldestTenthInBatch(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.HistoryCap = 20
	s := NewSynchronizer(opts)

	for i := 0; i < 21; i++ {
		capture(t, s, map[string]any{"pot": i}, nil)
	}

	// Overflowing the ring drops a tenth of the cap at once
	for version := uint64(1); version <= 2; version++ {
		_, ok := s.Lookup(version)
		assert.False(t, ok, "version %d should be evicted", version)
	}
	_, ok := s.Lookup(3)
	assert.True(t, ok)
	_, ok = s.Lookup(21)
	assert.True(t, ok)
}
