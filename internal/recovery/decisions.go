package recovery

import (
	"encoding/json"
	"time"
)

// ConnectionDecision is the outcome of the connection-failure procedure
type ConnectionDecision string

const (
	DecisionTerminate ConnectionDecision = "terminate"
	DecisionPolling   ConnectionDecision = "polling"
	DecisionReconnect ConnectionDecision = "reconnect"
)

// ConnectionFailure describes a client connection problem
type ConnectionFailure struct {
	AttemptCount   int
	DisconnectTime time.Time
	ConnectionType string // "player" or "spectator"
}

const (
	maxReconnectAttempts = 5
	maxDisconnectWindow  = 5 * time.Minute
	maxReconnectDelay    = 30 * time.Second
)

// DecideConnectionFailure applies the connection-failure procedure:
// give up after too many attempts or too long offline, degrade
// spectators to polling, otherwise reconnect with capped exponential
// backoff.
func DecideConnectionFailure(f ConnectionFailure, now time.Time) (ConnectionDecision, time.Duration) {
	if f.AttemptCount >= maxReconnectAttempts || now.Sub(f.DisconnectTime) > maxDisconnectWindow {
		return DecisionTerminate, 0
	}
	if f.ConnectionType == "spectator" {
		return DecisionPolling, 0
	}
	delay := time.Second << (f.AttemptCount - 1)
	if f.AttemptCount <= 0 {
		delay = time.Second
	}
	if delay > maxReconnectDelay {
		delay = maxReconnectDelay
	}
	return DecisionReconnect, delay
}

// GameErrorKind identifies a game-level failure
type GameErrorKind string

const (
	GameErrPlayerDisconnected GameErrorKind = "player-disconnected"
	GameErrStateCorruption    GameErrorKind = "state-corruption"
	GameErrInvalidAction      GameErrorKind = "invalid-action"
	GameErrPlayerTimeout      GameErrorKind = "player-timeout"
)

// GameDecision tells the table engine how to handle a game error
type GameDecision struct {
	Action        string // auto-fold, remove-from-table, pause-game, rollback, skip-turn
	NotifyOthers  bool
	AdminRequired bool
	Default       string // for skip-turn: check-or-fold
}

// DecideGameError maps a game error to the engine's response
func DecideGameError(kind GameErrorKind, inHand bool) GameDecision {
	switch kind {
	case GameErrPlayerDisconnected:
		if inHand {
			return GameDecision{Action: "auto-fold", NotifyOthers: true}
		}
		return GameDecision{Action: "remove-from-table"}
	case GameErrStateCorruption:
		return GameDecision{Action: "pause-game", AdminRequired: true}
	case GameErrInvalidAction:
		return GameDecision{Action: "rollback"}
	case GameErrPlayerTimeout:
		return GameDecision{Action: "skip-turn", Default: "check-or-fold"}
	default:
		return GameDecision{Action: "pause-game", AdminRequired: true}
	}
}

// criticalFields are state fields that never auto-merge
var criticalFields = map[string]bool{
	"gamePhase":      true,
	"pot":            true,
	"playerBalances": true,
	"deck":           true,
}

// ConflictResolution is the outcome of resolving divergent states
type ConflictResolution struct {
	Action        string // manual-intervention, merge, last-write-wins
	AdminRequired bool
	Merged        map[string]any
}

// ResolveStateConflict reconciles a local and a remote state tree.
// Conflicts on critical fields or invalid transitions need a human;
// mergeable objects deep-merge with remote preferred on critical
// subfields and arrays; anything else takes the remote wholesale.
func ResolveStateConflict(local, remote map[string]any, invalidTransition bool) ConflictResolution {
	if invalidTransition {
		return ConflictResolution{Action: "manual-intervention", AdminRequired: true}
	}
	for field := range criticalFields {
		lv, inLocal := local[field]
		rv, inRemote := remote[field]
		if inLocal && inRemote && !encodedSame(lv, rv) {
			return ConflictResolution{Action: "manual-intervention", AdminRequired: true}
		}
	}

	if local != nil && remote != nil {
		return ConflictResolution{Action: "merge", Merged: deepMerge(local, remote)}
	}
	return ConflictResolution{Action: "last-write-wins", Merged: remote}
}

// deepMerge merges remote into local without mutating either. Arrays
// prefer remote; version and timestamp fields take the maximum.
func deepMerge(local, remote map[string]any) map[string]any {
	out := make(map[string]any, len(local)+len(remote))
	for k, v := range local {
		out[k] = v
	}
	for k, rv := range remote {
		lv, exists := out[k]
		if !exists {
			out[k] = rv
			continue
		}
		if k == "version" || k == "timestamp" {
			out[k] = maxValue(lv, rv)
			continue
		}
		lm, lok := lv.(map[string]any)
		rm, rok := rv.(map[string]any)
		if lok && rok && !criticalFields[k] {
			out[k] = deepMerge(lm, rm)
			continue
		}
		// Critical subfields and arrays prefer remote
		out[k] = rv
	}
	return out
}

func maxValue(a, b any) any {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		if af > bf {
			return a
		}
		return b
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		if as > bs {
			return a
		}
		return b
	}
	return b
}

func encodedSame(a, b any) bool {
	return encodedJSON(a) == encodedJSON(b)
}

func encodedJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
