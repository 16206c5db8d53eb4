// File: models/roster.go
package models

import "time"

type SlotRole string

const (
	SlotCaptain SlotRole = "captain"
	SlotMember  SlotRole = "member"
)

// Slot - одно место на стороне матча, ключ (match_id, side, idx).
type Slot struct {
	MatchID    int64      `json:"match_id" db:"match_id"`
	Side       Side       `json:"side" db:"side"`
	Index      int        `json:"index" db:"idx"`
	Role       SlotRole   `json:"role" db:"role"`
	OccupantID *int64     `json:"occupant_id,omitempty" db:"occupant_id"`
	Paid       bool       `json:"paid" db:"paid"`
	JoinedAt   *time.Time `json:"joined_at,omitempty" db:"joined_at"`
}

func (s *Slot) Occupied() bool {
	return s != nil && s.OccupantID != nil
}

func (s *Slot) Clone() *Slot {
	if s == nil {
		return nil
	}
	c := *s
	if s.OccupantID != nil {
		v := *s.OccupantID
		c.OccupantID = &v
	}
	if s.JoinedAt != nil {
		v := *s.JoinedAt
		c.JoinedAt = &v
	}
	return &c
}
