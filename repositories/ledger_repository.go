package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/arena-escrow/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type AccountRepository interface {
	Create(ctx context.Context, exec SQLExecutor, userID int64) (*models.Account, error)
	GetByUserID(ctx context.Context, exec SQLExecutor, userID int64) (*models.Account, error)
	GetByUserIDForUpdate(ctx context.Context, exec SQLExecutor, userID int64) (*models.Account, error)
	SetBalance(ctx context.Context, exec SQLExecutor, userID int64, balance decimal.Decimal) error
}

type LedgerRepository interface {
	Append(ctx context.Context, exec SQLExecutor, entry *models.LedgerEntry) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]*models.LedgerEntry, error)
	ListByMatch(ctx context.Context, matchID int64) ([]*models.LedgerEntry, error)
}

type postgresAccountRepository struct {
	db *sql.DB
}

func NewPostgresAccountRepository(db *sql.DB) AccountRepository {
	return &postgresAccountRepository{db: db}
}

func (r *postgresAccountRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresAccountRepository) Create(ctx context.Context, exec SQLExecutor, userID int64) (*models.Account, error) {
	acc := &models.Account{UserID: userID, Balance: decimal.Zero}
	query := `INSERT INTO accounts (user_id, balance) VALUES ($1, 0) RETURNING created_at, updated_at`
	err := r.getExecutor(exec).QueryRowContext(ctx, query, userID).Scan(&acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("failed to create account for user %d: %w", userID, err)
	}
	return acc, nil
}

func (r *postgresAccountRepository) findOne(ctx context.Context, exec SQLExecutor, query string, userID int64) (*models.Account, error) {
	var acc models.Account
	err := r.getExecutor(exec).QueryRowContext(ctx, query, userID).Scan(&acc.UserID, &acc.Balance, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account for user %d: %w", userID, err)
	}
	return &acc, nil
}

func (r *postgresAccountRepository) GetByUserID(ctx context.Context, exec SQLExecutor, userID int64) (*models.Account, error) {
	return r.findOne(ctx, exec, `SELECT user_id, balance, created_at, updated_at FROM accounts WHERE user_id = $1`, userID)
}

func (r *postgresAccountRepository) GetByUserIDForUpdate(ctx context.Context, exec SQLExecutor, userID int64) (*models.Account, error) {
	if _, ok := exec.(*sql.Tx); !ok {
		return nil, ErrTransactionRequired
	}
	return r.findOne(ctx, exec, `SELECT user_id, balance, created_at, updated_at FROM accounts WHERE user_id = $1 FOR UPDATE`, userID)
}

func (r *postgresAccountRepository) SetBalance(ctx context.Context, exec SQLExecutor, userID int64, balance decimal.Decimal) error {
	query := `UPDATE accounts SET balance = $1, updated_at = NOW() WHERE user_id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, balance, userID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" && pqErr.Constraint == "accounts_balance_non_negative" {
			return ErrNegativeBalance
		}
		return fmt.Errorf("failed to set balance for user %d: %w", userID, err)
	}
	return checkAffectedRows(result, ErrAccountNotFound)
}

type postgresLedgerRepository struct {
	db *sql.DB
}

func NewPostgresLedgerRepository(db *sql.DB) LedgerRepository {
	return &postgresLedgerRepository{db: db}
}

func (r *postgresLedgerRepository) Append(ctx context.Context, exec SQLExecutor, entry *models.LedgerEntry) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		INSERT INTO ledger_entries (id, user_id, kind, amount, balance_after, match_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`
	err := exec.QueryRowContext(ctx, query,
		entry.ID, entry.UserID, entry.Kind, entry.Amount, entry.BalanceAfter, entry.MatchID,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry for user %d: %w", entry.UserID, err)
	}
	return nil
}

const selectEntryColumns = `SELECT id, user_id, kind, amount, balance_after, match_id, created_at FROM ledger_entries`

func (r *postgresLedgerRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.LedgerEntry, 0)
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.Amount, &e.BalanceAfter, &e.MatchID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *postgresLedgerRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.list(ctx, selectEntryColumns+` WHERE user_id = $1 ORDER BY created_at DESC, id LIMIT $2`, userID, limit)
}

func (r *postgresLedgerRepository) ListByMatch(ctx context.Context, matchID int64) ([]*models.LedgerEntry, error) {
	return r.list(ctx, selectEntryColumns+` WHERE match_id = $1 ORDER BY created_at ASC, id`, matchID)
}
