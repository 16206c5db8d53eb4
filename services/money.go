package services

import (
	"github.com/shopspring/decimal"
)

const centsPlaces = 2

// validateAmount проверяет, что сумма положительна и не мельче цента.
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Truncate(centsPlaces)) {
		return ErrInvalidAmount
	}
	return nil
}

// Payout - разбиение банка матча.
type Payout struct {
	Pot       decimal.Decimal `json:"pot"`
	Fee       decimal.Decimal `json:"fee"`
	Net       decimal.Decimal `json:"net"`
	PerWinner decimal.Decimal `json:"per_winner"`
	// HouseCut = Fee + остаток от деления Net на победителей.
	HouseCut decimal.Decimal `json:"house_cut"`
}

func computePayout(stake decimal.Decimal, paidSlots, winners int, feeRate decimal.Decimal) Payout {
	pot := stake.Mul(decimal.NewFromInt(int64(paidSlots)))
	fee := pot.Mul(feeRate).Round(centsPlaces)
	net := pot.Sub(fee)

	p := Payout{Pot: pot, Fee: fee, Net: net, PerWinner: decimal.Zero, HouseCut: pot}
	if winners <= 0 {
		return p
	}
	p.PerWinner = net.Div(decimal.NewFromInt(int64(winners))).Truncate(centsPlaces)
	p.HouseCut = pot.Sub(p.PerWinner.Mul(decimal.NewFromInt(int64(winners))))
	return p
}
