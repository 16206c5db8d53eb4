package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Dosada05/arena-escrow/models"
)

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from, to models.MatchState
		valid    bool
	}{
		{models.StateOpen, models.StateInProgress, true},
		{models.StateOpen, models.StateCanceled, true},
		{models.StateOpen, models.StateAIReview, false},
		{models.StateInProgress, models.StateAIReview, true},
		{models.StateInProgress, models.StateFinalized, false},
		{models.StateAIReview, models.StateFinalized, true},
		{models.StateAIReview, models.StateHumanReview, true},
		{models.StateAIReview, models.StateCanceled, false},
		{models.StateHumanReview, models.StateFinalized, true},
		{models.StateHumanReview, models.StateCanceled, false},
		{models.StateFinalized, models.StateCanceled, false},
		{models.StateCanceled, models.StateOpen, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := &models.Match{ID: 1, State: tt.from}
			err := transition(m, tt.to)
			if tt.valid {
				if err != nil || m.State != tt.to {
					t.Fatalf("expected transition, got %v (state %s)", err, m.State)
				}
				return
			}
			if !errors.Is(err, ErrInvalidTransition) || m.State != tt.from {
				t.Fatalf("expected ErrInvalidTransition and unchanged state, got %v (state %s)", err, m.State)
			}
		})
	}
}

func TestRoster(t *testing.T) {
	match := &models.Match{ID: 3, Mode: models.ModeTeam}
	roster := newRoster(match, emptySlots(match.ID, match.Mode))

	if len(roster.Slots()) != 10 {
		t.Fatalf("team roster must have 10 slots, got %d", len(roster.Slots()))
	}
	first := roster.NextFree(models.SideB)
	if first.Index != 0 || first.Role != models.SlotCaptain {
		t.Fatalf("first free slot must be the captain, got %+v", first)
	}
	for i := int64(1); i <= 5; i++ {
		roster.Occupy(roster.NextFree(models.SideA), i, match.CreatedAt)
	}
	if roster.NextFree(models.SideA) != nil {
		t.Fatal("side A must be full")
	}
	if roster.Complete() {
		t.Fatal("roster with empty side B must not be complete")
	}
	if got := roster.SlotOf(3); got == nil || got.Index != 2 {
		t.Fatalf("user 3 must sit at A/2, got %+v", got)
	}
	if len(roster.PaidOn(models.SideA)) != 5 || len(roster.PaidOn(models.SideB)) != 0 {
		t.Fatal("unexpected paid split")
	}
	for i := int64(6); i <= 10; i++ {
		roster.Occupy(roster.NextFree(models.SideB), i, match.CreatedAt)
	}
	if !roster.Complete() || len(roster.PaidSlots()) != 10 {
		t.Fatal("roster must be complete with 10 paid slots")
	}
}

func TestMatchRegistry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fund(t, 1, "100")
	env.fund(t, 2, "100")
	env.fund(t, 3, "100")

	open, err := env.escrow.CreateMatch(ctx, 1, CreateMatchInput{Mode: models.ModeTeam, Stake: stake("10"), Password: "pw"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	started := env.startSolo(t, 2, 3, "20")

	t.Run("Given an open team match When viewed Then the pot is projected for a full roster", func(t *testing.T) {
		view, err := env.registry.GetMatch(ctx, open.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !view.Pot.Equal(stake("100")) || !view.PayoutPerWinner.Equal(stake("18")) {
			t.Fatalf("unexpected projection pot=%s per=%s", view.Pot, view.PayoutPerWinner)
		}
		if !view.Private || len(view.Slots) != 10 {
			t.Fatalf("expected private match with 10 slots, got private=%v slots=%d", view.Private, len(view.Slots))
		}
	})

	t.Run("Given matches in several states When listing open Then only open ones are returned", func(t *testing.T) {
		list, err := env.registry.ListOpenMatches(ctx, 10)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 1 || list[0].ID != open.ID {
			t.Fatalf("expected only match %d, got %v", open.ID, list)
		}
	})

	t.Run("Given a player When listing own matches Then their match is returned", func(t *testing.T) {
		list, err := env.registry.ListMatchesForUser(ctx, 3, 0)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 1 || list[0].ID != started.ID {
			t.Fatalf("expected match %d, got %v", started.ID, list)
		}
	})

	t.Run("Given an unknown id When viewed Then MatchNotFound", func(t *testing.T) {
		if _, err := env.registry.GetMatch(ctx, 9999); !errors.Is(err, ErrMatchNotFound) {
			t.Fatalf("expected ErrMatchNotFound, got %v", err)
		}
	})
}

func TestDashboardStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fund(t, 1, "100")
	env.fund(t, 2, "100")
	env.fund(t, 3, "100")
	env.fund(t, 4, "100")

	if _, err := env.escrow.CreateMatch(ctx, 1, CreateMatchInput{Mode: models.ModeSolo, Stake: stake("15")}); err != nil {
		t.Fatalf("create: %v", err)
	}
	done := env.startSolo(t, 2, 3, "20")
	if _, err := env.escrow.SubmitProof(ctx, done.ID, 2, "ref"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	stats, err := NewDashboardService(env.store, houseID).GetStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ActiveMatches != 1 || stats.MatchesByState[models.StateFinalized] != 1 {
		t.Fatalf("unexpected counts %+v", stats.MatchesByState)
	}
	if !stats.HeldInEscrow.Equal(stake("15")) {
		t.Fatalf("held in escrow: want 15, got %s", stats.HeldInEscrow)
	}
	if !stats.HouseBalance.Equal(stake("4")) {
		t.Fatalf("house balance: want 4, got %s", stats.HouseBalance)
	}
}
