package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/arena-escrow/models"
	"github.com/Dosada05/arena-escrow/repositories"
	"github.com/shopspring/decimal"
)

var allowedTransitions = map[models.MatchState][]models.MatchState{
	models.StateOpen:        {models.StateInProgress, models.StateCanceled},
	models.StateInProgress:  {models.StateAIReview, models.StateCanceled},
	models.StateAIReview:    {models.StateFinalized, models.StateHumanReview},
	models.StateHumanReview: {models.StateFinalized},
	models.StateFinalized:   {},
	models.StateCanceled:    {},
}

func isValidStateTransition(current, next models.MatchState) bool {
	for _, allowed := range allowedTransitions[current] {
		if next == allowed {
			return true
		}
	}
	return false
}

// transition меняет состояние матча в памяти; сохранение делает вызывающий.
func transition(match *models.Match, next models.MatchState) error {
	if !isValidStateTransition(match.State, next) {
		return fmt.Errorf("%w: %s -> %s (match %d)", ErrInvalidTransition, match.State, next, match.ID)
	}
	match.State = next
	return nil
}

// MatchView - матч с составом и расчётом банка для отображения.
type MatchView struct {
	*models.Match
	Pot             decimal.Decimal `json:"pot"`
	Fee             decimal.Decimal `json:"fee"`
	PayoutPerWinner decimal.Decimal `json:"payout_per_winner"`
}

// MatchRegistry - чтение матчей. Изменения идут только через EscrowService.
type MatchRegistry interface {
	GetMatch(ctx context.Context, matchID int64) (*MatchView, error)
	ListOpenMatches(ctx context.Context, limit int) ([]*models.Match, error)
	ListMatchesForUser(ctx context.Context, userID int64, limit int) ([]*models.Match, error)
	ListMatchesInReview(ctx context.Context) ([]*models.Match, error)
}

type matchRegistry struct {
	store   repositories.Store
	feeRate decimal.Decimal
}

func NewMatchRegistry(store repositories.Store, feeRate decimal.Decimal) MatchRegistry {
	return &matchRegistry{store: store, feeRate: feeRate}
}

func (r *matchRegistry) GetMatch(ctx context.Context, matchID int64) (*MatchView, error) {
	match, err := r.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, mapMatchError(err, matchID)
	}
	slots, err := r.store.ListSlots(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster of match %d: %w", matchID, err)
	}
	match.Slots = slots
	match.Private = match.PasswordHash != nil
	return buildView(match, r.feeRate), nil
}

func buildView(match *models.Match, feeRate decimal.Decimal) *MatchView {
	roster := newRoster(match, match.Slots)
	paid := len(roster.PaidSlots())
	// Прогноз для полного состава, если матч ещё набирается.
	if match.State == models.StateOpen {
		paid = match.SlotsPerSide() * 2
	}
	p := computePayout(match.Stake, paid, match.SlotsPerSide(), feeRate)
	return &MatchView{Match: match, Pot: p.Pot, Fee: p.Fee, PayoutPerWinner: p.PerWinner}
}

func (r *matchRegistry) ListOpenMatches(ctx context.Context, limit int) ([]*models.Match, error) {
	return r.list(ctx, models.MatchFilter{States: []models.MatchState{models.StateOpen}, Limit: limit})
}

func (r *matchRegistry) ListMatchesForUser(ctx context.Context, userID int64, limit int) ([]*models.Match, error) {
	return r.list(ctx, models.MatchFilter{UserID: &userID, Limit: limit})
}

func (r *matchRegistry) ListMatchesInReview(ctx context.Context) ([]*models.Match, error) {
	return r.list(ctx, models.MatchFilter{States: []models.MatchState{models.StateHumanReview}})
}

func (r *matchRegistry) list(ctx context.Context, filter models.MatchFilter) ([]*models.Match, error) {
	matches, err := r.store.ListMatches(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	for _, m := range matches {
		m.Private = m.PasswordHash != nil
	}
	return matches, nil
}

func mapMatchError(err error, matchID int64) error {
	if errors.Is(err, repositories.ErrMatchNotFound) {
		return fmt.Errorf("%w: id %d", ErrMatchNotFound, matchID)
	}
	return fmt.Errorf("failed to load match %d: %w", matchID, err)
}
