package models

type MatchEventType string

const (
	EventMatchCreated   MatchEventType = "MATCH_CREATED"
	EventSlotJoined     MatchEventType = "SLOT_JOINED"
	EventMatchStarted   MatchEventType = "MATCH_STARTED"
	EventProofSubmitted MatchEventType = "PROOF_SUBMITTED"
	EventMatchEscalated MatchEventType = "MATCH_ESCALATED"
	EventMatchFinalized MatchEventType = "MATCH_FINALIZED"
	EventMatchCanceled  MatchEventType = "MATCH_CANCELED"
)

// MatchEvent публикуется после фиксации перехода матча.
type MatchEvent struct {
	Type  MatchEventType `json:"type"`
	Match *Match         `json:"match"`
}

// LobbyVisible - события, которые интересны списку открытых матчей.
func (e MatchEvent) LobbyVisible() bool {
	switch e.Type {
	case EventMatchCreated, EventSlotJoined, EventMatchStarted, EventMatchCanceled:
		return true
	default:
		return false
	}
}
