package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Dosada05/arena-escrow/models"
	"github.com/shopspring/decimal"
)

type postgresStore struct {
	db          *sql.DB
	matchRepo   MatchRepository
	slotRepo    SlotRepository
	accountRepo AccountRepository
	ledgerRepo  LedgerRepository
	logger      *slog.Logger
}

func NewPostgresStore(db *sql.DB, logger *slog.Logger) Store {
	return &postgresStore{
		db:          db,
		matchRepo:   NewPostgresMatchRepository(db),
		slotRepo:    NewPostgresSlotRepository(db),
		accountRepo: NewPostgresAccountRepository(db),
		ledgerRepo:  NewPostgresLedgerRepository(db),
		logger:      logger,
	}
}

func (s *postgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (txErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.ErrorContext(ctx, "rollback failed", slog.Any("error", rbErr), slog.Any("cause", txErr))
				txErr = fmt.Errorf("transaction processing error: %w (rollback also failed: %v)", txErr, rbErr)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			txErr = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	return fn(ctx, &postgresTx{tx: tx, store: s})
}

func (s *postgresStore) GetMatch(ctx context.Context, matchID int64) (*models.Match, error) {
	return s.matchRepo.GetByID(ctx, nil, matchID)
}

func (s *postgresStore) ListMatches(ctx context.Context, filter models.MatchFilter) ([]*models.Match, error) {
	return s.matchRepo.List(ctx, filter)
}

func (s *postgresStore) ListSlots(ctx context.Context, matchID int64) ([]*models.Slot, error) {
	return s.slotRepo.ListByMatch(ctx, nil, matchID)
}

func (s *postgresStore) CountMatchesByState(ctx context.Context) (map[models.MatchState]int, error) {
	return s.matchRepo.CountByState(ctx)
}

func (s *postgresStore) HeldInEscrow(ctx context.Context) (decimal.Decimal, error) {
	return s.matchRepo.HeldInEscrow(ctx)
}

func (s *postgresStore) GetAccount(ctx context.Context, userID int64) (*models.Account, error) {
	return s.accountRepo.GetByUserID(ctx, nil, userID)
}

func (s *postgresStore) ListEntriesByUser(ctx context.Context, userID int64, limit int) ([]*models.LedgerEntry, error) {
	return s.ledgerRepo.ListByUser(ctx, userID, limit)
}

func (s *postgresStore) ListEntriesByMatch(ctx context.Context, matchID int64) ([]*models.LedgerEntry, error) {
	return s.ledgerRepo.ListByMatch(ctx, matchID)
}

// postgresTx направляет все вызовы репозиториев в одну *sql.Tx.
// Блокировки - это SELECT ... FOR UPDATE, снимаются при commit/rollback.
type postgresTx struct {
	tx    *sql.Tx
	store *postgresStore
}

func (t *postgresTx) LockMatch(ctx context.Context, matchID int64) (*models.Match, error) {
	return t.store.matchRepo.GetByIDForUpdate(ctx, t.tx, matchID)
}

func (t *postgresTx) CreateMatch(ctx context.Context, match *models.Match) error {
	return t.store.matchRepo.Create(ctx, t.tx, match)
}

func (t *postgresTx) UpdateMatch(ctx context.Context, match *models.Match) error {
	return t.store.matchRepo.Update(ctx, t.tx, match)
}

func (t *postgresTx) CreateSlots(ctx context.Context, slots []*models.Slot) error {
	return t.store.slotRepo.CreateBatch(ctx, t.tx, slots)
}

func (t *postgresTx) ListSlots(ctx context.Context, matchID int64) ([]*models.Slot, error) {
	return t.store.slotRepo.ListByMatch(ctx, t.tx, matchID)
}

func (t *postgresTx) UpdateSlot(ctx context.Context, slot *models.Slot) error {
	return t.store.slotRepo.Update(ctx, t.tx, slot)
}

func (t *postgresTx) ActiveMatchIDForUser(ctx context.Context, userID int64) (int64, bool, error) {
	return t.store.matchRepo.ActiveMatchIDForUser(ctx, t.tx, userID)
}

func (t *postgresTx) LockAccount(ctx context.Context, userID int64) (*models.Account, error) {
	return t.store.accountRepo.GetByUserIDForUpdate(ctx, t.tx, userID)
}

func (t *postgresTx) CreateAccount(ctx context.Context, userID int64) (*models.Account, error) {
	return t.store.accountRepo.Create(ctx, t.tx, userID)
}

func (t *postgresTx) SetBalance(ctx context.Context, userID int64, balance decimal.Decimal) error {
	return t.store.accountRepo.SetBalance(ctx, t.tx, userID, balance)
}

func (t *postgresTx) AppendEntry(ctx context.Context, entry *models.LedgerEntry) error {
	return t.store.ledgerRepo.Append(ctx, t.tx, entry)
}
