package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryKind string

const (
	EntryDeposit     EntryKind = "deposit"
	EntryWithdrawal  EntryKind = "withdrawal"
	EntryStakeHold   EntryKind = "stake_hold"
	EntryStakeRefund EntryKind = "stake_refund"
	EntryPayout      EntryKind = "payout"
	EntryFee         EntryKind = "fee"
)

// Account - расходуемый баланс пользователя. Баланс никогда не бывает отрицательным.
type Account struct {
	UserID    int64           `json:"user_id" db:"user_id"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// LedgerEntry - неизменяемая запись журнала. Amount со знаком: списания отрицательные.
type LedgerEntry struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	UserID       int64           `json:"user_id" db:"user_id"`
	Kind         EntryKind       `json:"kind" db:"kind"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after" db:"balance_after"`
	MatchID      *int64          `json:"match_id,omitempty" db:"match_id"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
