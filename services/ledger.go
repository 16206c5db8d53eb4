package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Dosada05/arena-escrow/models"
	"github.com/Dosada05/arena-escrow/repositories"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger выполняет атомарные списания и зачисления внутри единицы работы.
// Каждый вызов добавляет ровно одну запись журнала.
type Ledger struct{}

// LockAll блокирует счета по возрастанию user_id. Повторные id игнорируются.
func (Ledger) LockAll(ctx context.Context, tx repositories.Tx, userIDs ...int64) (map[int64]*models.Account, error) {
	ids := make([]int64, 0, len(userIDs))
	seen := make(map[int64]bool, len(userIDs))
	for _, id := range userIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	accounts := make(map[int64]*models.Account, len(ids))
	for _, id := range ids {
		acc, err := tx.LockAccount(ctx, id)
		if err != nil {
			return nil, mapAccountError(err, id)
		}
		accounts[id] = acc
	}
	return accounts, nil
}

func (l Ledger) Debit(ctx context.Context, tx repositories.Tx, userID int64, amount decimal.Decimal, kind models.EntryKind, matchID *int64) (*models.LedgerEntry, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	acc, err := tx.LockAccount(ctx, userID)
	if err != nil {
		return nil, mapAccountError(err, userID)
	}
	if acc.Balance.LessThan(amount) {
		return nil, fmt.Errorf("%w: user %d has %s, needs %s", ErrInsufficientFunds, userID, acc.Balance, amount)
	}
	return l.apply(ctx, tx, acc, amount.Neg(), kind, matchID)
}

func (l Ledger) Credit(ctx context.Context, tx repositories.Tx, userID int64, amount decimal.Decimal, kind models.EntryKind, matchID *int64) (*models.LedgerEntry, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	acc, err := tx.LockAccount(ctx, userID)
	if err != nil {
		return nil, mapAccountError(err, userID)
	}
	return l.apply(ctx, tx, acc, amount, kind, matchID)
}

func (Ledger) apply(ctx context.Context, tx repositories.Tx, acc *models.Account, signed decimal.Decimal, kind models.EntryKind, matchID *int64) (*models.LedgerEntry, error) {
	newBalance := acc.Balance.Add(signed)
	if err := tx.SetBalance(ctx, acc.UserID, newBalance); err != nil {
		if errors.Is(err, repositories.ErrNegativeBalance) {
			return nil, fmt.Errorf("%w: user %d", ErrInsufficientFunds, acc.UserID)
		}
		return nil, fmt.Errorf("failed to set balance for user %d: %w", acc.UserID, err)
	}

	entry := &models.LedgerEntry{
		ID:           uuid.New(),
		UserID:       acc.UserID,
		Kind:         kind,
		Amount:       signed,
		BalanceAfter: newBalance,
		MatchID:      matchID,
	}
	if err := tx.AppendEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append %s entry for user %d: %w", kind, acc.UserID, err)
	}
	acc.Balance = newBalance
	return entry, nil
}

func mapAccountError(err error, userID int64) error {
	if errors.Is(err, repositories.ErrAccountNotFound) {
		return fmt.Errorf("%w: user %d", ErrAccountNotFound, userID)
	}
	return fmt.Errorf("failed to lock account of user %d: %w", userID, err)
}

// LedgerService - операции со счетами вне матчей: открытие, пополнение, вывод, история.
type LedgerService interface {
	OpenAccount(ctx context.Context, userID int64) (*models.Account, error)
	EnsureAccount(ctx context.Context, userID int64) (*models.Account, error)
	Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (*models.LedgerEntry, error)
	Withdraw(ctx context.Context, userID int64, amount decimal.Decimal) (*models.LedgerEntry, error)
	GetAccount(ctx context.Context, userID int64) (*models.Account, error)
	History(ctx context.Context, userID int64, limit int) ([]*models.LedgerEntry, error)
	MatchEntries(ctx context.Context, matchID int64) ([]*models.LedgerEntry, error)
}

type ledgerService struct {
	store  repositories.Store
	ledger Ledger
	logger *slog.Logger
}

func NewLedgerService(store repositories.Store, logger *slog.Logger) LedgerService {
	return &ledgerService{store: store, logger: logger}
}

func (s *ledgerService) OpenAccount(ctx context.Context, userID int64) (*models.Account, error) {
	if userID < 0 {
		return nil, fmt.Errorf("%w: user id must not be negative", ErrValidationFailed)
	}
	var acc *models.Account
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		acc, err = tx.CreateAccount(ctx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, repositories.ErrAccountExists) {
			return nil, fmt.Errorf("%w: user %d", ErrAccountExists, userID)
		}
		return nil, fmt.Errorf("failed to open account for user %d: %w", userID, err)
	}
	s.logger.InfoContext(ctx, "account opened", slog.Int64("user_id", userID))
	return acc, nil
}

func (s *ledgerService) EnsureAccount(ctx context.Context, userID int64) (*models.Account, error) {
	acc, err := s.OpenAccount(ctx, userID)
	if errors.Is(err, ErrAccountExists) {
		return s.GetAccount(ctx, userID)
	}
	return acc, err
}

func (s *ledgerService) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (*models.LedgerEntry, error) {
	return s.move(ctx, userID, amount, models.EntryDeposit)
}

func (s *ledgerService) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal) (*models.LedgerEntry, error) {
	return s.move(ctx, userID, amount, models.EntryWithdrawal)
}

func (s *ledgerService) move(ctx context.Context, userID int64, amount decimal.Decimal, kind models.EntryKind) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		if kind == models.EntryWithdrawal {
			entry, err = s.ledger.Debit(ctx, tx, userID, amount, kind, nil)
		} else {
			entry, err = s.ledger.Credit(ctx, tx, userID, amount, kind, nil)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "ledger entry recorded",
		slog.Int64("user_id", userID),
		slog.String("kind", string(kind)),
		slog.String("amount", entry.Amount.StringFixed(centsPlaces)))
	return entry, nil
}

func (s *ledgerService) GetAccount(ctx context.Context, userID int64) (*models.Account, error) {
	acc, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrAccountNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get account of user %d: %w", userID, err)
	}
	return acc, nil
}

func (s *ledgerService) History(ctx context.Context, userID int64, limit int) ([]*models.LedgerEntry, error) {
	entries, err := s.store.ListEntriesByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries of user %d: %w", userID, err)
	}
	return entries, nil
}

func (s *ledgerService) MatchEntries(ctx context.Context, matchID int64) ([]*models.LedgerEntry, error) {
	entries, err := s.store.ListEntriesByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries of match %d: %w", matchID, err)
	}
	return entries, nil
}
