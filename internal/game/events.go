package game

import (
	"time"

	"github.com/lox/holdem-core/internal/deck"
)

// EventKind identifies an externally visible table transition
type EventKind string

const (
	EventPlayerJoined        EventKind = "PLAYER_JOINED"
	EventPlayerLeft          EventKind = "PLAYER_LEFT"
	EventGameStarted         EventKind = "GAME_STARTED"
	EventCardsDealt          EventKind = "CARDS_DEALT"
	EventBlindsPosted        EventKind = "BLINDS_POSTED"
	EventActionPerformed     EventKind = "ACTION_PERFORMED"
	EventCommunityCardsDealt EventKind = "COMMUNITY_CARDS_DEALT"
	EventNewBettingRound     EventKind = "NEW_BETTING_ROUND"
	EventHandCompleted       EventKind = "HAND_COMPLETED"
	EventGameEnded           EventKind = "GAME_ENDED"
)

// Event is emitted on each externally visible transition, paired with
// the authoritative snapshot produced by the same mutation.
type Event struct {
	Kind            EventKind `json:"eventKind"`
	Timestamp       time.Time `json:"timestamp"`
	TableID         string    `json:"tableId"`
	HandNumber      int       `json:"handNumber"`
	SnapshotVersion uint64    `json:"snapshotVersion"`
	SnapshotHash    string    `json:"snapshotHash"`
	Payload         any       `json:"payload,omitempty"`
}

// EventSink receives table events in causal order
type EventSink func(Event)

// JoinPayload accompanies PLAYER_JOINED and PLAYER_LEFT
type JoinPayload struct {
	PlayerID string `json:"playerId"`
	Seat     int    `json:"seat"`
	Chips    int    `json:"chips"`
}

// BlindsPayload accompanies BLINDS_POSTED
type BlindsPayload struct {
	SmallBlindPlayer string `json:"smallBlindPlayer"`
	SmallBlind       int    `json:"smallBlind"`
	BigBlindPlayer   string `json:"bigBlindPlayer"`
	BigBlind         int    `json:"bigBlind"`
}

// ActionPayload accompanies ACTION_PERFORMED
type ActionPayload struct {
	PlayerID        string `json:"playerId"`
	Kind            string `json:"kind"`
	Amount          int    `json:"amount"`
	PotContribution int    `json:"potContribution"`
}

// CommunityCardsPayload accompanies COMMUNITY_CARDS_DEALT
type CommunityCardsPayload struct {
	Phase string      `json:"phase"`
	Cards []deck.Card `json:"cards"`
}

// WinnerShare is one winner's cut of one pot
type WinnerShare struct {
	PlayerID string `json:"playerId"`
	PotIndex int    `json:"potIndex"`
	Amount   int    `json:"amount"`
	Ranking  string `json:"ranking"`
}

// HandCompletedPayload accompanies HAND_COMPLETED
type HandCompletedPayload struct {
	Winners []WinnerShare `json:"winners"`
	Cause   string        `json:"cause,omitempty"`
}
