package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MatchMode string

const (
	ModeSolo MatchMode = "solo"
	ModeTeam MatchMode = "team"
)

// SlotsPerSide возвращает вместимость одной стороны для режима.
func (m MatchMode) SlotsPerSide() int {
	switch m {
	case ModeSolo:
		return 1
	case ModeTeam:
		return 5
	default:
		return 0
	}
}

func (m MatchMode) Valid() bool {
	return m.SlotsPerSide() > 0
}

type MatchState string

const (
	StateOpen        MatchState = "open"
	StateInProgress  MatchState = "in_progress"
	StateAIReview    MatchState = "ai_review"
	StateHumanReview MatchState = "human_review"
	StateFinalized   MatchState = "finalized"
	StateCanceled    MatchState = "canceled"
)

// ActiveStates - состояния, в которых матч удерживает участников.
var ActiveStates = []MatchState{StateOpen, StateInProgress, StateAIReview, StateHumanReview}

func (s MatchState) Terminal() bool {
	return s == StateFinalized || s == StateCanceled
}

type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

func (s Side) Valid() bool {
	return s == SideA || s == SideB
}

func (s Side) Opposite() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// Match - запись матча со ставкой. Состояние меняется только через EscrowService.
type Match struct {
	ID           int64           `json:"id" db:"id"`
	Mode         MatchMode       `json:"mode" db:"mode"`
	Stake        decimal.Decimal `json:"stake" db:"stake"`
	State        MatchState      `json:"state" db:"state"`
	PasswordHash *string         `json:"-" db:"password_hash"`
	CreatorID    int64           `json:"creator_id" db:"creator_id"`
	ProofRef     *string         `json:"proof_ref,omitempty" db:"proof_ref"`
	WinnerSide   *Side           `json:"winner_side,omitempty" db:"winner_side"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`

	// Заполняется сервисом, в БД не хранится
	Private bool    `json:"private" db:"-"`
	Slots   []*Slot `json:"slots,omitempty" db:"-"`
}

func (m *Match) SlotsPerSide() int {
	return m.Mode.SlotsPerSide()
}

// Clone возвращает глубокую копию, чтобы хранилище не раздавало общие указатели.
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	c := *m
	if m.PasswordHash != nil {
		v := *m.PasswordHash
		c.PasswordHash = &v
	}
	if m.ProofRef != nil {
		v := *m.ProofRef
		c.ProofRef = &v
	}
	if m.WinnerSide != nil {
		v := *m.WinnerSide
		c.WinnerSide = &v
	}
	if m.Slots != nil {
		c.Slots = make([]*Slot, len(m.Slots))
		for i, s := range m.Slots {
			c.Slots[i] = s.Clone()
		}
	}
	return &c
}

// MatchFilter - фильтр для выборки матчей.
type MatchFilter struct {
	States []MatchState
	UserID *int64
	Limit  int
}
