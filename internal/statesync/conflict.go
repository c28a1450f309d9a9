package statesync

import (
	"sort"
	"time"
)

// Role identifies who issued an action
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleDealer Role = "dealer"
	RolePlayer Role = "player"
)

// Authority returns the default authority level for a role
func (r Role) Authority() uint8 {
	switch r {
	case RoleAdmin:
		return 3
	case RoleDealer:
		return 2
	default:
		return 1
	}
}

// ActionRecord is a logged player action used for conflict detection,
// resolution and recovery
type ActionRecord struct {
	PlayerID  string    `json:"playerId"`
	Kind      string    `json:"kind"`
	Amount    int       `json:"amount,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Role      Role      `json:"role"`
	Authority uint8     `json:"authority"`
}

// NewActionRecord builds a record with the role's default authority
func NewActionRecord(playerID, kind string, amount int, ts time.Time, role Role) ActionRecord {
	return ActionRecord{
		PlayerID:  playerID,
		Kind:      kind,
		Amount:    amount,
		Timestamp: ts,
		Role:      role,
		Authority: role.Authority(),
	}
}

// ConflictKind classifies a detected conflict
type ConflictKind string

const (
	ConflictDuplicate ConflictKind = "duplicate_action"
	ConflictOutOfTurn ConflictKind = "out_of_turn"
)

// Conflict describes a problem found in a batch of actions
type Conflict struct {
	Kind    ConflictKind
	Records []ActionRecord
}

// DetectConflicts scans a batch of actions against the current
// snapshot. Duplicates share a player and an integer timestamp;
// out-of-turn actions come from a player other than the snapshot's
// to-act player without admin authority.
func DetectConflicts(records []ActionRecord, snap *Snapshot) []Conflict {
	var conflicts []Conflict

	byKey := make(map[string][]ActionRecord)
	for _, rec := range records {
		key := rec.PlayerID + "@" + rec.Timestamp.UTC().Format("2006-01-02T15:04:05")
		byKey[key] = append(byKey[key], rec)
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if group := byKey[k]; len(group) > 1 {
			conflicts = append(conflicts, Conflict{Kind: ConflictDuplicate, Records: group})
		}
	}

	toAct, _ := snap.GameState["toActPlayer"].(string)
	for _, rec := range records {
		if toAct != "" && rec.PlayerID != toAct && rec.Authority < RoleAdmin.Authority() {
			conflicts = append(conflicts, Conflict{Kind: ConflictOutOfTurn, Records: []ActionRecord{rec}})
		}
	}

	return conflicts
}

// Strategy selects how conflicting actions are resolved
type Strategy string

const (
	TimestampFirst Strategy = "timestamp_first"
	Sequential     Strategy = "sequential"
	AuthorityBased Strategy = "authority_based"
)

// Resolve orders and filters a batch of actions according to the
// strategy. The result is deterministic for any input order.
func Resolve(strategy Strategy, records []ActionRecord) []ActionRecord {
	sorted := make([]ActionRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	switch strategy {
	case Sequential:
		return sorted

	case TimestampFirst:
		seen := make(map[string]bool)
		kept := make([]ActionRecord, 0, len(sorted))
		for _, rec := range sorted {
			key := rec.PlayerID + "@" + rec.Timestamp.UTC().Format("2006-01-02T15:04:05")
			if seen[key] {
				continue
			}
			seen[key] = true
			kept = append(kept, rec)
		}
		return kept

	case AuthorityBased:
		return resolveByAuthority(sorted)

	default:
		return sorted
	}
}

// resolveByAuthority keeps one action per integer timestamp: the
// highest authority wins, ties go to the earlier sub-second timestamp,
// and the final tiebreak is lexicographic player id.
func resolveByAuthority(sorted []ActionRecord) []ActionRecord {
	type group struct {
		second time.Time
		best   ActionRecord
	}

	groups := make(map[int64]*group)
	order := make([]int64, 0)
	for _, rec := range sorted {
		second := rec.Timestamp.Unix()
		g, ok := groups[second]
		if !ok {
			groups[second] = &group{second: rec.Timestamp.Truncate(time.Second), best: rec}
			order = append(order, second)
			continue
		}
		if beats(rec, g.best) {
			g.best = rec
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	out := make([]ActionRecord, 0, len(order))
	for _, second := range order {
		out = append(out, groups[second].best)
	}
	return out
}

func beats(a, b ActionRecord) bool {
	if a.Authority != b.Authority {
		return a.Authority > b.Authority
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.PlayerID < b.PlayerID
}
