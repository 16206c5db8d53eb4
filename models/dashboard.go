package models

import "github.com/shopspring/decimal"

type DashboardStats struct {
	MatchesByState map[MatchState]int `json:"matches_by_state"`
	ActiveMatches  int                `json:"active_matches"`
	HeldInEscrow   decimal.Decimal    `json:"held_in_escrow"`
	HouseBalance   decimal.Decimal    `json:"house_balance"`
}
