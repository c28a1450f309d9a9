package statesync

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Change is a single field mutation between two snapshots. Path is a
// dotted sequence; player fields are addressed as
// "playerStates.<id>.<field>". A nil New denotes removal.
type Change struct {
	Path string `json:"path"`
	Old  any    `json:"old"`
	New  any    `json:"new"`
}

// Delta is the minimal change list between two snapshot versions
type Delta struct {
	FromVersion uint64   `json:"fromVersion"`
	ToVersion   uint64   `json:"toVersion"`
	Changes     []Change `json:"changes"`
}

type compareKey struct {
	path     string
	oldIdent uintptr
	newIdent uintptr
}

// differ walks two trees and collects changes. Subtree comparisons are
// cached by (path, identity, identity) within one diff so shared
// subtrees are not revisited.
type differ struct {
	cache    map[compareKey]bool // true = equal, skip
	order    []compareKey
	cacheCap int
}

// GenerateDelta computes the minimal change list from one snapshot to
// another. Arrays are compared by serialized value and emitted as a
// single replace; the player map is diffed per player and per field.
func (s *Synchronizer) GenerateDelta(from, to *Snapshot) *Delta {
	d := &differ{
		cache:    make(map[compareKey]bool),
		cacheCap: s.opts.CompareCacheCap,
	}

	delta := &Delta{FromVersion: from.Version, ToVersion: to.Version}
	d.diffMap("", from.GameState, to.GameState, &delta.Changes)
	d.diffPlayers(from.PlayerStates, to.PlayerStates, &delta.Changes)

	s.mu.Lock()
	s.deltas = append(s.deltas, delta)
	if len(s.deltas) > s.opts.DeltaHistoryCap {
		s.deltas = s.deltas[evictBatch(s.opts.DeltaHistoryCap):]
	}
	s.mu.Unlock()

	return delta
}

func (d *differ) diffPlayers(from, to map[string]map[string]any, out *[]Change) {
	ids := make([]string, 0, len(from)+len(to))
	seen := make(map[string]bool)
	for id := range from {
		ids = append(ids, id)
		seen[id] = true
	}
	for id := range to {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		path := "playerStates." + id
		oldPS, inOld := from[id]
		newPS, inNew := to[id]
		switch {
		case !inNew:
			*out = append(*out, Change{Path: path, Old: oldPS, New: nil})
		case !inOld:
			*out = append(*out, Change{Path: path, Old: nil, New: newPS})
		default:
			d.diffMap(path, oldPS, newPS, out)
		}
	}
}

func (d *differ) diffMap(path string, from, to map[string]any, out *[]Change) {
	keys := make([]string, 0, len(from)+len(to))
	seen := make(map[string]bool)
	for k := range from {
		keys = append(keys, k)
		seen[k] = true
	}
	for k := range to {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		childPath := k
		if path != "" {
			childPath = path + "." + k
		}
		oldVal, inOld := from[k]
		newVal, inNew := to[k]
		switch {
		case !inNew:
			*out = append(*out, Change{Path: childPath, Old: oldVal, New: nil})
		case !inOld:
			*out = append(*out, Change{Path: childPath, Old: nil, New: newVal})
		default:
			d.diffValue(childPath, oldVal, newVal, out)
		}
	}
}

func (d *differ) diffValue(path string, oldVal, newVal any, out *[]Change) {
	if d.cachedEqual(path, oldVal, newVal) {
		return
	}

	oldMap, oldIsMap := oldVal.(map[string]any)
	newMap, newIsMap := newVal.(map[string]any)
	if oldIsMap && newIsMap {
		d.diffMap(path, oldMap, newMap, out)
		return
	}

	// Arrays and scalars compare by serialized value; arrays are
	// emitted as a single replace, never a positional diff
	if !encodedEqual(oldVal, newVal) {
		*out = append(*out, Change{Path: path, Old: oldVal, New: newVal})
	} else {
		d.remember(path, oldVal, newVal)
	}
}

func (d *differ) cachedEqual(path string, oldVal, newVal any) bool {
	key, ok := identKey(path, oldVal, newVal)
	if !ok {
		return false
	}
	return d.cache[key]
}

func (d *differ) remember(path string, oldVal, newVal any) {
	key, ok := identKey(path, oldVal, newVal)
	if !ok {
		return
	}
	if _, exists := d.cache[key]; !exists {
		d.order = append(d.order, key)
	}
	d.cache[key] = true

	if d.cacheCap > 0 && len(d.cache) > d.cacheCap {
		evict := d.order[:d.cacheCap/10]
		d.order = d.order[d.cacheCap/10:]
		for _, k := range evict {
			delete(d.cache, k)
		}
	}
}

// identKey builds a cache key from reference identity; only maps and
// slices have useful identity
func identKey(path string, oldVal, newVal any) (compareKey, bool) {
	oldID, ok1 := identOf(oldVal)
	newID, ok2 := identOf(newVal)
	if !ok1 || !ok2 {
		return compareKey{}, false
	}
	return compareKey{path: path, oldIdent: oldID, newIdent: newID}, true
}

func identOf(v any) (uintptr, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		return rv.Pointer(), true
	default:
		return 0, false
	}
}

func encodedEqual(a, b any) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ab) == string(bb)
}

// ApplyDelta applies a delta to a snapshot and returns the resulting
// snapshot with its hash recomputed. The input snapshot is not
// modified. Fails with ErrVersionMismatch when versions do not line up.
func ApplyDelta(snap *Snapshot, delta *Delta) (*Snapshot, error) {
	if snap.Version != delta.FromVersion {
		return nil, fmt.Errorf("%w: snapshot %d, delta from %d", ErrVersionMismatch, snap.Version, delta.FromVersion)
	}

	next := snap.Clone()
	for _, change := range delta.Changes {
		if err := applyChange(next, change); err != nil {
			return nil, fmt.Errorf("applying %s: %w", change.Path, err)
		}
	}

	next.Version = delta.ToVersion
	hash, err := ComputeHash(next)
	if err != nil {
		return nil, err
	}
	next.Hash = hash
	return next, nil
}

func applyChange(snap *Snapshot, change Change) error {
	segments := strings.Split(change.Path, ".")
	if segments[0] == "playerStates" {
		if len(segments) < 2 {
			return fmt.Errorf("player path too short")
		}
		id := segments[1]
		if len(segments) == 2 {
			if change.New == nil {
				delete(snap.PlayerStates, id)
				return nil
			}
			ps, ok := change.New.(map[string]any)
			if !ok {
				return fmt.Errorf("player state must be an object")
			}
			snap.PlayerStates[id] = cloneTree(ps).(map[string]any)
			return nil
		}
		ps, ok := snap.PlayerStates[id]
		if !ok {
			ps = make(map[string]any)
			snap.PlayerStates[id] = ps
		}
		return setPath(ps, segments[2:], change.New)
	}

	return setPath(snap.GameState, segments, change.New)
}

func setPath(tree map[string]any, segments []string, value any) error {
	for i := 0; i < len(segments)-1; i++ {
		child, ok := tree[segments[i]].(map[string]any)
		if !ok {
			child = make(map[string]any)
			tree[segments[i]] = child
		}
		tree = child
	}
	leaf := segments[len(segments)-1]
	if value == nil {
		delete(tree, leaf)
		return nil
	}
	tree[leaf] = cloneTree(value)
	return nil
}
