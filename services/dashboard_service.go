package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/arena-escrow/models"
	"github.com/Dosada05/arena-escrow/repositories"
	"github.com/shopspring/decimal"
)

type DashboardService interface {
	GetStats(ctx context.Context) (models.DashboardStats, error)
}

type dashboardService struct {
	store          repositories.Store
	houseAccountID int64
}

func NewDashboardService(store repositories.Store, houseAccountID int64) DashboardService {
	return &dashboardService{store: store, houseAccountID: houseAccountID}
}

func (s *dashboardService) GetStats(ctx context.Context) (models.DashboardStats, error) {
	byState, err := s.store.CountMatchesByState(ctx)
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("failed to count matches: %w", err)
	}
	held, err := s.store.HeldInEscrow(ctx)
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("failed to sum escrow: %w", err)
	}

	houseBalance := decimal.Zero
	house, err := s.store.GetAccount(ctx, s.houseAccountID)
	switch {
	case err == nil:
		houseBalance = house.Balance
	case !errors.Is(err, repositories.ErrAccountNotFound):
		return models.DashboardStats{}, fmt.Errorf("failed to load house account: %w", err)
	}

	active := 0
	for _, st := range models.ActiveStates {
		active += byState[st]
	}
	return models.DashboardStats{
		MatchesByState: byState,
		ActiveMatches:  active,
		HeldInEscrow:   held,
		HouseBalance:   houseBalance,
	}, nil
}
