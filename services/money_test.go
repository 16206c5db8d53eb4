package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputePayout(t *testing.T) {
	tests := []struct {
		name      string
		stake     string
		paid      int
		winners   int
		feeRate   string
		pot       string
		fee       string
		perWinner string
		houseCut  string
	}{
		{"solo", "20", 2, 1, "0.10", "40", "4", "36", "4"},
		{"team", "10", 10, 5, "0.10", "100", "10", "18", "10"},
		{"remainder goes to house", "3.33", 10, 5, "0.10", "33.3", "3.33", "5.99", "3.35"},
		{"fee rounds half up", "0.05", 2, 1, "0.15", "0.1", "0.02", "0.08", "0.02"},
		{"zero fee", "7.5", 2, 1, "0", "15", "0", "15", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := computePayout(stake(tt.stake), tt.paid, tt.winners, stake(tt.feeRate))
			check := func(field string, got decimal.Decimal, want string) {
				if !got.Equal(stake(want)) {
					t.Errorf("%s: want %s, got %s", field, want, got)
				}
			}
			check("pot", p.Pot, tt.pot)
			check("fee", p.Fee, tt.fee)
			check("per winner", p.PerWinner, tt.perWinner)
			check("house cut", p.HouseCut, tt.houseCut)

			// Банк распределяется полностью.
			total := p.PerWinner.Mul(decimal.NewFromInt(int64(tt.winners))).Add(p.HouseCut)
			if !total.Equal(p.Pot) {
				t.Errorf("payout %s does not add up to pot %s", total, p.Pot)
			}
		})
	}

	t.Run("no winners keeps the whole pot with the house", func(t *testing.T) {
		p := computePayout(stake("10"), 2, 0, stake("0.10"))
		if !p.HouseCut.Equal(p.Pot) || !p.PerWinner.IsZero() {
			t.Fatalf("unexpected split %+v", p)
		}
	})
}

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		amount string
		valid  bool
	}{
		{"0.01", true},
		{"100", true},
		{"12.50", true},
		{"0", false},
		{"-5", false},
		{"0.001", false},
		{"1.005", false},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			err := validateAmount(stake(tt.amount))
			if tt.valid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("expected ErrInvalidAmount, got %v", err)
			}
		})
	}
}
