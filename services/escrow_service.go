package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/arena-escrow/models"
	"github.com/Dosada05/arena-escrow/repositories"
	"github.com/Dosada05/arena-escrow/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Notifier получает события матчей после фиксации изменений.
type Notifier interface {
	Publish(event models.MatchEvent)
}

type noopNotifier struct{}

func (noopNotifier) Publish(models.MatchEvent) {}

type EscrowConfig struct {
	FeeRate             decimal.Decimal
	HouseAccountID      int64
	AllowInProgressExit bool
	MinStake            decimal.Decimal
	MaxStake            decimal.Decimal
	Adjudication        AdjudicationPolicy
	// Async запускает проверку результата в фоне, SubmitProof сразу возвращает AI_REVIEW.
	Async             bool
	ResumeConcurrency int
}

type CreateMatchInput struct {
	Mode     models.MatchMode
	Stake    decimal.Decimal
	Password string
}

type JoinSlotInput struct {
	Side     models.Side
	Password string
}

type CancelReport struct {
	Canceled []int64         `json:"canceled"`
	Failed   map[int64]string `json:"failed,omitempty"`
}

// EscrowService - атомарные операции жизненного цикла матча со ставками.
type EscrowService interface {
	CreateMatch(ctx context.Context, creatorID int64, input CreateMatchInput) (*models.Match, error)
	JoinSlot(ctx context.Context, matchID, userID int64, input JoinSlotInput) (*models.Match, error)
	SubmitProof(ctx context.Context, matchID, submitterID int64, proofRef string) (*models.Match, error)
	ApprovePayout(ctx context.Context, matchID int64, winnerSide models.Side, reviewer models.Actor) (*models.Match, error)
	CancelMatch(ctx context.Context, matchID int64, requester models.Actor) (*models.Match, error)
	CancelAllOpen(ctx context.Context, requester models.Actor) (*CancelReport, error)
	ResumePendingReviews(ctx context.Context) error
	// Wait дожидается фоновых проверок результата.
	Wait()
}

type escrowService struct {
	store    repositories.Store
	gateway  AdjudicationGateway
	notifier Notifier
	cfg      EscrowConfig
	ledger   Ledger
	logger   *slog.Logger
	now      func() time.Time

	wg       sync.WaitGroup
	inflight sync.Map // matchID -> struct{}
}

func NewEscrowService(
	store repositories.Store,
	gateway AdjudicationGateway,
	notifier Notifier,
	cfg EscrowConfig,
	logger *slog.Logger,
) EscrowService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if cfg.ResumeConcurrency <= 0 {
		cfg.ResumeConcurrency = 4
	}
	return &escrowService{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *escrowService) validateStake(stake decimal.Decimal) error {
	if err := validateAmount(stake); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStake, err)
	}
	if stake.LessThan(s.cfg.MinStake) || (s.cfg.MaxStake.IsPositive() && stake.GreaterThan(s.cfg.MaxStake)) {
		return fmt.Errorf("%w: %s not in [%s, %s]", ErrInvalidStake, stake, s.cfg.MinStake, s.cfg.MaxStake)
	}
	return nil
}

func (s *escrowService) CreateMatch(ctx context.Context, creatorID int64, input CreateMatchInput) (*models.Match, error) {
	if !input.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, input.Mode)
	}
	if err := s.validateStake(input.Stake); err != nil {
		return nil, err
	}

	var passwordHash *string
	if pw := strings.TrimSpace(input.Password); pw != "" {
		hash, err := utils.HashPassword(pw)
		if err != nil {
			return nil, fmt.Errorf("failed to hash match password: %w", err)
		}
		passwordHash = &hash
	}

	var match *models.Match
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if _, err := s.ledger.LockAll(ctx, tx, creatorID); err != nil {
			return err
		}
		if activeID, ok, err := tx.ActiveMatchIDForUser(ctx, creatorID); err != nil {
			return fmt.Errorf("failed to check active match of user %d: %w", creatorID, err)
		} else if ok {
			return fmt.Errorf("%w: match %d", ErrAlreadyHasActiveMatch, activeID)
		}

		match = &models.Match{
			Mode:         input.Mode,
			Stake:        input.Stake,
			State:        models.StateOpen,
			PasswordHash: passwordHash,
			CreatorID:    creatorID,
		}
		if err := tx.CreateMatch(ctx, match); err != nil {
			return fmt.Errorf("failed to create match: %w", err)
		}

		roster := newRoster(match, emptySlots(match.ID, match.Mode))
		captain := roster.NextFree(models.SideA)
		roster.Occupy(captain, creatorID, s.now())
		if err := tx.CreateSlots(ctx, roster.Slots()); err != nil {
			return fmt.Errorf("failed to create roster of match %d: %w", match.ID, err)
		}

		if _, err := s.ledger.Debit(ctx, tx, creatorID, match.Stake, models.EntryStakeHold, &match.ID); err != nil {
			return err
		}
		match.Slots = roster.Slots()
		return nil
	})
	if err != nil {
		return nil, err
	}

	match.Private = match.PasswordHash != nil
	s.logger.InfoContext(ctx, "match created",
		slog.Int64("match_id", match.ID),
		slog.Int64("user_id", creatorID),
		slog.String("mode", string(match.Mode)),
		slog.String("stake", match.Stake.StringFixed(centsPlaces)))
	s.publish(models.EventMatchCreated, match)
	return match, nil
}

func (s *escrowService) JoinSlot(ctx context.Context, matchID, userID int64, input JoinSlotInput) (*models.Match, error) {
	if !input.Side.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSide, input.Side)
	}

	// Хеш пароля неизменяем, поэтому bcrypt проверяется до блокировки матча.
	current, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, mapMatchError(err, matchID)
	}
	if current.PasswordHash != nil && !utils.CheckPasswordHash(input.Password, *current.PasswordHash) {
		return nil, ErrWrongPassword
	}

	var (
		match   *models.Match
		started bool
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		match, err = tx.LockMatch(ctx, matchID)
		if err != nil {
			return mapMatchError(err, matchID)
		}
		slots, err := tx.ListSlots(ctx, matchID)
		if err != nil {
			return fmt.Errorf("failed to load roster of match %d: %w", matchID, err)
		}
		roster := newRoster(match, slots)

		if roster.SlotOf(userID) != nil {
			return fmt.Errorf("%w: already in match %d", ErrAlreadyHasActiveMatch, matchID)
		}
		slot := roster.NextFree(input.Side)
		if slot == nil {
			return fmt.Errorf("%w: side %s of match %d is full", ErrSlotUnavailable, input.Side, matchID)
		}
		if match.State != models.StateOpen {
			return fmt.Errorf("%w: match %d is %s", ErrMatchNotJoinable, matchID, match.State)
		}

		accounts, err := s.ledger.LockAll(ctx, tx, userID)
		if err != nil {
			return err
		}
		if activeID, ok, err := tx.ActiveMatchIDForUser(ctx, userID); err != nil {
			return fmt.Errorf("failed to check active match of user %d: %w", userID, err)
		} else if ok {
			return fmt.Errorf("%w: match %d", ErrAlreadyHasActiveMatch, activeID)
		}
		if accounts[userID].Balance.LessThan(match.Stake) {
			return fmt.Errorf("%w: user %d has %s, stake is %s", ErrInsufficientFunds, userID, accounts[userID].Balance, match.Stake)
		}

		roster.Occupy(slot, userID, s.now())
		if err := tx.UpdateSlot(ctx, slot); err != nil {
			return fmt.Errorf("failed to occupy slot %s/%d of match %d: %w", slot.Side, slot.Index, matchID, err)
		}
		if _, err := s.ledger.Debit(ctx, tx, userID, match.Stake, models.EntryStakeHold, &match.ID); err != nil {
			return err
		}

		if roster.Complete() {
			if err := transition(match, models.StateInProgress); err != nil {
				return err
			}
			if err := tx.UpdateMatch(ctx, match); err != nil {
				return fmt.Errorf("failed to start match %d: %w", matchID, err)
			}
			started = true
		}
		match.Slots = roster.Slots()
		return nil
	})
	if err != nil {
		return nil, err
	}

	match.Private = match.PasswordHash != nil
	s.logger.InfoContext(ctx, "slot joined",
		slog.Int64("match_id", matchID),
		slog.Int64("user_id", userID),
		slog.String("side", string(input.Side)),
		slog.String("state", string(match.State)))
	s.publish(models.EventSlotJoined, match)
	if started {
		s.publish(models.EventMatchStarted, match)
	}
	return match, nil
}

func (s *escrowService) SubmitProof(ctx context.Context, matchID, submitterID int64, proofRef string) (*models.Match, error) {
	proofRef = strings.TrimSpace(proofRef)
	if proofRef == "" {
		return nil, ErrProofRequired
	}

	var match *models.Match
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		match, err = tx.LockMatch(ctx, matchID)
		if err != nil {
			return mapMatchError(err, matchID)
		}
		switch match.State {
		case models.StateInProgress:
		case models.StateAIReview, models.StateHumanReview, models.StateFinalized:
			return fmt.Errorf("%w: match %d is %s", ErrAlreadySubmitted, matchID, match.State)
		default:
			return fmt.Errorf("%w: match %d is %s", ErrMatchNotInProgress, matchID, match.State)
		}

		slots, err := tx.ListSlots(ctx, matchID)
		if err != nil {
			return fmt.Errorf("failed to load roster of match %d: %w", matchID, err)
		}
		slot := newRoster(match, slots).SlotOf(submitterID)
		if slot == nil {
			return fmt.Errorf("%w: user %d does not play in match %d", ErrUnauthorized, submitterID, matchID)
		}

		side := slot.Side
		match.ProofRef = &proofRef
		match.WinnerSide = &side
		if err := transition(match, models.StateAIReview); err != nil {
			return err
		}
		if err := tx.UpdateMatch(ctx, match); err != nil {
			return fmt.Errorf("failed to record proof for match %d: %w", matchID, err)
		}
		match.Slots = slots
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "proof submitted",
		slog.Int64("match_id", matchID),
		slog.Int64("user_id", submitterID),
		slog.String("proof_ref", derefString(match.ProofRef)),
		slog.String("claimed_side", string(*match.WinnerSide)))
	s.publish(models.EventProofSubmitted, match)

	// Проверка не должна зависеть от отмены HTTP-запроса.
	adjCtx := context.WithoutCancel(ctx)
	if s.cfg.Async {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if _, err := s.adjudicate(adjCtx, matchID, proofRef); err != nil {
				s.logger.ErrorContext(adjCtx, "background adjudication failed", slog.Int64("match_id", matchID), slog.Any("error", err))
			}
		}()
		return match, nil
	}

	resolved, err := s.adjudicate(adjCtx, matchID, proofRef)
	if err != nil {
		// Матч остаётся в AI_REVIEW и будет подобран ResumePendingReviews.
		s.logger.ErrorContext(ctx, "adjudication could not be applied", slog.Int64("match_id", matchID), slog.Any("error", err))
		return match, nil
	}
	return resolved, nil
}

// adjudicate опрашивает оракул вне всех блокировок, затем применяет вердикт,
// только если матч всё ещё в AI_REVIEW.
func (s *escrowService) adjudicate(ctx context.Context, matchID int64, proofRef string) (*models.Match, error) {
	if _, busy := s.inflight.LoadOrStore(matchID, struct{}{}); busy {
		match, err := s.store.GetMatch(ctx, matchID)
		if err != nil {
			return nil, mapMatchError(err, matchID)
		}
		return match, nil
	}
	defer s.inflight.Delete(matchID)

	verdict, adjErr := checkWithRetries(ctx, s.gateway, proofRef, s.cfg.Adjudication, s.logger)
	if adjErr != nil && ctx.Err() != nil {
		// Остановка процесса: матч остаётся в AI_REVIEW до следующего прохода.
		return nil, fmt.Errorf("adjudication of match %d interrupted: %w", matchID, ctx.Err())
	}
	if adjErr != nil {
		s.logger.WarnContext(ctx, "adjudication escalated to human review",
			slog.Int64("match_id", matchID), slog.Any("error", adjErr))
	}

	var (
		match   *models.Match
		applied bool
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		match, err = tx.LockMatch(ctx, matchID)
		if err != nil {
			return mapMatchError(err, matchID)
		}
		if match.State != models.StateAIReview {
			return nil
		}
		slots, err := tx.ListSlots(ctx, matchID)
		if err != nil {
			return fmt.Errorf("failed to load roster of match %d: %w", matchID, err)
		}
		match.Slots = slots
		applied = true

		if adjErr == nil && s.cfg.Adjudication.Accepts(verdict) && match.WinnerSide != nil {
			return s.payout(ctx, tx, match, *match.WinnerSide)
		}
		if err := transition(match, models.StateHumanReview); err != nil {
			return err
		}
		return tx.UpdateMatch(ctx, match)
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		s.logger.InfoContext(ctx, "verdict discarded, match moved on",
			slog.Int64("match_id", matchID), slog.String("state", string(match.State)))
		return match, nil
	}

	s.logger.InfoContext(ctx, "verdict applied",
		slog.Int64("match_id", matchID),
		slog.String("verdict", string(verdict.Outcome)),
		slog.Float64("confidence", verdict.Confidence),
		slog.String("state", string(match.State)))
	if match.State == models.StateFinalized {
		s.publish(models.EventMatchFinalized, match)
	} else {
		s.publish(models.EventMatchEscalated, match)
	}
	return match, nil
}

// payout зачисляет выигрыш и комиссию и завершает матч. Матч уже заблокирован.
func (s *escrowService) payout(ctx context.Context, tx repositories.Tx, match *models.Match, winnerSide models.Side) error {
	roster := newRoster(match, match.Slots)
	winners := roster.PaidOn(winnerSide)
	if len(winners) == 0 {
		return fmt.Errorf("match %d has no paid players on side %s", match.ID, winnerSide)
	}
	split := computePayout(match.Stake, len(roster.PaidSlots()), len(winners), s.cfg.FeeRate)

	if _, err := s.ledger.LockAll(ctx, tx, append(winners, s.cfg.HouseAccountID)...); err != nil {
		return err
	}
	if split.PerWinner.IsPositive() {
		for _, userID := range winners {
			if _, err := s.ledger.Credit(ctx, tx, userID, split.PerWinner, models.EntryPayout, &match.ID); err != nil {
				return err
			}
		}
	}
	if split.HouseCut.IsPositive() {
		if _, err := s.ledger.Credit(ctx, tx, s.cfg.HouseAccountID, split.HouseCut, models.EntryFee, &match.ID); err != nil {
			return err
		}
	}

	side := winnerSide
	match.WinnerSide = &side
	if err := transition(match, models.StateFinalized); err != nil {
		return err
	}
	if err := tx.UpdateMatch(ctx, match); err != nil {
		return fmt.Errorf("failed to finalize match %d: %w", match.ID, err)
	}
	s.logger.InfoContext(ctx, "payout executed",
		slog.Int64("match_id", match.ID),
		slog.String("winner_side", string(winnerSide)),
		slog.String("pot", split.Pot.StringFixed(centsPlaces)),
		slog.String("per_winner", split.PerWinner.StringFixed(centsPlaces)),
		slog.String("house_cut", split.HouseCut.StringFixed(centsPlaces)))
	return nil
}

func (s *escrowService) ApprovePayout(ctx context.Context, matchID int64, winnerSide models.Side, reviewer models.Actor) (*models.Match, error) {
	if !reviewer.CanArbitrate() {
		return nil, fmt.Errorf("%w: arbiter role required", ErrUnauthorized)
	}
	if !winnerSide.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSide, winnerSide)
	}

	var match *models.Match
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		match, err = tx.LockMatch(ctx, matchID)
		if err != nil {
			return mapMatchError(err, matchID)
		}
		if match.State != models.StateHumanReview {
			return fmt.Errorf("%w: match %d is %s", ErrNotInReview, matchID, match.State)
		}
		slots, err := tx.ListSlots(ctx, matchID)
		if err != nil {
			return fmt.Errorf("failed to load roster of match %d: %w", matchID, err)
		}
		match.Slots = slots
		return s.payout(ctx, tx, match, winnerSide)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "payout approved",
		slog.Int64("match_id", matchID),
		slog.Int64("user_id", reviewer.UserID),
		slog.String("winner_side", string(winnerSide)))
	s.publish(models.EventMatchFinalized, match)
	return match, nil
}

func (s *escrowService) CancelMatch(ctx context.Context, matchID int64, requester models.Actor) (*models.Match, error) {
	var match *models.Match
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		match, err = tx.LockMatch(ctx, matchID)
		if err != nil {
			return mapMatchError(err, matchID)
		}
		slots, err := tx.ListSlots(ctx, matchID)
		if err != nil {
			return fmt.Errorf("failed to load roster of match %d: %w", matchID, err)
		}
		roster := newRoster(match, slots)

		if !requester.IsAdmin() && requester.UserID != match.CreatorID && roster.SlotOf(requester.UserID) == nil {
			return fmt.Errorf("%w: user %d cannot cancel match %d", ErrUnauthorized, requester.UserID, matchID)
		}
		switch match.State {
		case models.StateOpen:
		case models.StateInProgress:
			if !s.cfg.AllowInProgressExit && !requester.IsAdmin() {
				return fmt.Errorf("%w: match %d already started", ErrNotCancelable, matchID)
			}
		default:
			return fmt.Errorf("%w: match %d is %s", ErrNotCancelable, matchID, match.State)
		}

		paid := roster.PaidSlots()
		refundees := make([]int64, 0, len(paid))
		for _, slot := range paid {
			refundees = append(refundees, *slot.OccupantID)
		}
		if _, err := s.ledger.LockAll(ctx, tx, refundees...); err != nil {
			return err
		}
		for _, userID := range refundees {
			if _, err := s.ledger.Credit(ctx, tx, userID, match.Stake, models.EntryStakeRefund, &match.ID); err != nil {
				return err
			}
		}

		if err := transition(match, models.StateCanceled); err != nil {
			return err
		}
		if err := tx.UpdateMatch(ctx, match); err != nil {
			return fmt.Errorf("failed to cancel match %d: %w", matchID, err)
		}
		match.Slots = slots
		return nil
	})
	if err != nil {
		return nil, err
	}

	match.Private = match.PasswordHash != nil
	s.logger.InfoContext(ctx, "match canceled",
		slog.Int64("match_id", matchID),
		slog.Int64("user_id", requester.UserID),
		slog.String("role", string(requester.Role)))
	s.publish(models.EventMatchCanceled, match)
	return match, nil
}

// CancelAllOpen отменяет все набирающиеся и идущие матчи, каждый в своей единице работы.
func (s *escrowService) CancelAllOpen(ctx context.Context, requester models.Actor) (*CancelReport, error) {
	if !requester.IsAdmin() {
		return nil, fmt.Errorf("%w: admin role required", ErrUnauthorized)
	}
	matches, err := s.store.ListMatches(ctx, models.MatchFilter{
		States: []models.MatchState{models.StateOpen, models.StateInProgress},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list cancelable matches: %w", err)
	}

	report := &CancelReport{Canceled: make([]int64, 0, len(matches)), Failed: make(map[int64]string)}
	for _, m := range matches {
		if _, err := s.CancelMatch(ctx, m.ID, requester); err != nil {
			report.Failed[m.ID] = err.Error()
			continue
		}
		report.Canceled = append(report.Canceled, m.ID)
	}
	s.logger.InfoContext(ctx, "bulk cancellation finished",
		slog.Int("canceled", len(report.Canceled)),
		slog.Int("failed", len(report.Failed)))
	return report, nil
}

// ResumePendingReviews повторно проверяет матчи, застрявшие в AI_REVIEW.
func (s *escrowService) ResumePendingReviews(ctx context.Context) error {
	pending, err := s.store.ListMatches(ctx, models.MatchFilter{States: []models.MatchState{models.StateAIReview}})
	if err != nil {
		return fmt.Errorf("failed to list matches in ai review: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}
	s.logger.InfoContext(ctx, "resuming pending reviews", slog.Int("count", len(pending)))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ResumeConcurrency)
	for _, m := range pending {
		if m.ProofRef == nil {
			continue
		}
		matchID, proofRef := m.ID, *m.ProofRef
		g.Go(func() error {
			if _, err := s.adjudicate(gCtx, matchID, proofRef); err != nil {
				return fmt.Errorf("match %d: %w", matchID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *escrowService) Wait() {
	s.wg.Wait()
}

func (s *escrowService) publish(eventType models.MatchEventType, match *models.Match) {
	s.notifier.Publish(models.MatchEvent{Type: eventType, Match: match.Clone()})
}
