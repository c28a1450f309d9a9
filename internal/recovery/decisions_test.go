package recovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecideConnectionFailure(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("too many attempts terminates", func(t *testing.T) {
		d, _ := DecideConnectionFailure(ConnectionFailure{
			AttemptCount:   5,
			DisconnectTime: now.Add(-time.Second),
			ConnectionType: "player",
		}, now)
		assert.Equal(t, DecisionTerminate, d)
	})

	t.Run("too long offline terminates", func(t *testing.T) {
		d, _ := DecideConnectionFailure(ConnectionFailure{
			AttemptCount:   1,
			DisconnectTime: now.Add(-6 * time.Minute),
			ConnectionType: "player",
		}, now)
		assert.Equal(t, DecisionTerminate, d)
	})

	t.Run("spectator degrades to polling", func(t *testing.T) {
		d, _ := DecideConnectionFailure(ConnectionFailure{
			AttemptCount:   2,
			DisconnectTime: now.Add(-time.Second),
			ConnectionType: "spectator",
		}, now)
		assert.Equal(t, DecisionPolling, d)
	})

	t.Run("player reconnects with doubling delay", func(t *testing.T) {
		want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
		for i, expected := range want {
			d, delay := DecideConnectionFailure(ConnectionFailure{
				AttemptCount:   i + 1,
				DisconnectTime: now.Add(-time.Second),
				ConnectionType: "player",
			}, now)
			assert.Equal(t, DecisionReconnect, d)
			assert.Equal(t, expected, delay)
		}
	})
}

func TestDecideGameError(t *testing.T) {
	t.Parallel()

	t.Run("disconnect mid-hand auto-folds and notifies", func(t *testing.T) {
		d := DecideGameError(GameErrPlayerDisconnected, true)
		assert.Equal(t, "auto-fold", d.Action)
		assert.True(t, d.NotifyOthers)
	})

	t.Run("disconnect between hands removes from table", func(t *testing.T) {
		d := DecideGameError(GameErrPlayerDisconnected, false)
		assert.Equal(t, "remove-from-table", d.Action)
	})

	t.Run("corruption pauses for an admin", func(t *testing.T) {
		d := DecideGameError(GameErrStateCorruption, true)
		assert.Equal(t, "pause-game", d.Action)
		assert.True(t, d.AdminRequired)
	})

	t.Run("invalid action rolls back", func(t *testing.T) {
		assert.Equal(t, "rollback", DecideGameError(GameErrInvalidAction, true).Action)
	})

	t.Run("timeout skips the turn", func(t *testing.T) {
		d := DecideGameError(GameErrPlayerTimeout, true)
		assert.Equal(t, "skip-turn", d.Action)
		assert.Equal(t, "check-or-fold", d.Default)
	})
}

func TestResolveStateConflict(t *testing.T) {
	t.Parallel()

	t.Run("invalid transition needs a human", func(t *testing.T) {
		r := ResolveStateConflict(map[string]any{}, map[string]any{}, true)
		assert.Equal(t, "manual-intervention", r.Action)
		assert.True(t, r.AdminRequired)
	})

	t.Run("divergent critical field needs a human", func(t *testing.T) {
		local := map[string]any{"pot": float64(100)}
		remote := map[string]any{"pot": float64(150)}
		r := ResolveStateConflict(local, remote, false)
		assert.Equal(t, "manual-intervention", r.Action)
	})

	t.Run("mergeable objects deep-merge", func(t *testing.T) {
		local := map[string]any{
			"pot":     float64(100),
			"version": float64(4),
			"settings": map[string]any{
				"theme": "dark",
				"sound": true,
			},
		}
		remote := map[string]any{
			"pot":     float64(100),
			"version": float64(7),
			"settings": map[string]any{
				"sound": false,
			},
			"spectators": []any{"s1"},
		}
		r := ResolveStateConflict(local, remote, false)
		assert.Equal(t, "merge", r.Action)
		assert.Equal(t, float64(7), r.Merged["version"])
		settings := r.Merged["settings"].(map[string]any)
		assert.Equal(t, "dark", settings["theme"])
		assert.Equal(t, false, settings["sound"])
		assert.Equal(t, []any{"s1"}, r.Merged["spectators"])
	})

	t.Run("missing local falls back to last write wins", func(t *testing.T) {
		remote := map[string]any{"gamePhase": "flop"}
		r := ResolveStateConflict(nil, remote, false)
		assert.Equal(t, "last-write-wins", r.Action)
		assert.Equal(t, remote, r.Merged)
	})

	t.Run("merge does not mutate inputs", func(t *testing.T) {
		local := map[string]any{"a": float64(1), "nested": map[string]any{"x": float64(1)}}
		remote := map[string]any{"nested": map[string]any{"y": float64(2)}}
		_ = ResolveStateConflict(local, remote, false)
		assert.Equal(t, map[string]any{"x": float64(1)}, local["nested"])
		assert.Equal(t, map[string]any{"y": float64(2)}, remote["nested"])
	})
}
