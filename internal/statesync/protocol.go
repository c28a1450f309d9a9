package statesync

import (
	"encoding/json"
	"fmt"
)

// Message is the wire envelope for sync responses, either a delta or a
// full snapshot
type Message struct {
	Type        string    `json:"type"` // "delta" or "snapshot"
	FromVersion uint64    `json:"fromVersion,omitempty"`
	ToVersion   uint64    `json:"toVersion,omitempty"`
	Changes     []Change  `json:"changes,omitempty"`
	Snapshot    *Snapshot `json:"snapshot,omitempty"`
}

// Sync decides how to bring a client at the given version up to the
// latest snapshot: a delta when the client is close enough and the
// delta encodes small enough, otherwise a full snapshot.
func (s *Synchronizer) Sync(clientVersion uint64) (*Message, error) {
	s.mu.Lock()
	if len(s.history) == 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("no snapshots captured yet")
	}
	latest := s.history[len(s.history)-1]
	base, haveBase := s.lookupLocked(clientVersion)
	s.mu.Unlock()

	if latest.Version == clientVersion {
		return &Message{Type: "delta", FromVersion: clientVersion, ToVersion: clientVersion}, nil
	}

	if latest.Version-clientVersion > uint64(s.opts.VersionDiffThreshold) || !haveBase {
		return s.fullSnapshot(latest)
	}

	delta := s.GenerateDelta(base, latest)
	encoded, err := json.Marshal(delta)
	if err != nil {
		return nil, fmt.Errorf("encoding delta: %w", err)
	}
	if len(encoded) > s.opts.MaxDeltaBytes {
		return s.fullSnapshot(latest)
	}

	return &Message{
		Type:        "delta",
		FromVersion: delta.FromVersion,
		ToVersion:   delta.ToVersion,
		Changes:     delta.Changes,
	}, nil
}

func (s *Synchronizer) fullSnapshot(latest *Snapshot) (*Message, error) {
	return &Message{Type: "snapshot", ToVersion: latest.Version, Snapshot: latest.Clone()}, nil
}

// Recover answers a client's recovery request. The client must present
// a version the history still holds and the matching hash; otherwise
// its local state cannot be trusted and it must resync from scratch.
// Returns the catch-up delta plus all buffered actions newer than the
// client's snapshot.
func (s *Synchronizer) Recover(clientVersion uint64, clientHash string) (*Delta, []ActionRecord, error) {
	s.mu.Lock()
	base, ok := s.lookupLocked(clientVersion)
	if !ok || base.Hash != clientHash {
		s.mu.Unlock()
		return nil, nil, ErrInvalidClientState
	}
	latest := s.history[len(s.history)-1]
	since := base.Timestamp

	newer := make([]ActionRecord, 0)
	for _, rec := range s.actions {
		if rec.Timestamp.After(since) {
			newer = append(newer, rec)
		}
	}
	s.mu.Unlock()

	delta := s.GenerateDelta(base, latest)
	return delta, newer, nil
}

// RecordAction appends an action to the bounded action log used for
// recovery and conflict detection
func (s *Synchronizer) RecordAction(rec ActionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, rec)
	if len(s.actions) > s.opts.ActionLogCap {
		s.actions = s.actions[evictBatch(s.opts.ActionLogCap):]
	}
}
