package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/arena-escrow/models"
	"github.com/shopspring/decimal"
)

type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var (
	ErrMatchNotFound       = errors.New("match not found")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountExists       = errors.New("account already exists")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrSlotConflict        = errors.New("slot already exists")
	ErrNegativeBalance     = errors.New("balance would become negative")
	ErrTxAlreadyFinished   = errors.New("unit of work already finished")
	ErrTransactionRequired = errors.New("database transaction is required for this operation")
)

// Tx - единица работы. Все изменения внутри либо фиксируются целиком, либо откатываются.
//
// Порядок блокировок: сначала матч, затем счета по возрастанию user_id.
type Tx interface {
	// LockMatch берёт эксклюзивную блокировку матча до конца единицы работы.
	LockMatch(ctx context.Context, matchID int64) (*models.Match, error)
	CreateMatch(ctx context.Context, match *models.Match) error
	UpdateMatch(ctx context.Context, match *models.Match) error

	CreateSlots(ctx context.Context, slots []*models.Slot) error
	ListSlots(ctx context.Context, matchID int64) ([]*models.Slot, error)
	UpdateSlot(ctx context.Context, slot *models.Slot) error
	// ActiveMatchIDForUser ищет нетерминальный матч, где пользователь занимает слот.
	ActiveMatchIDForUser(ctx context.Context, userID int64) (int64, bool, error)

	// LockAccount берёт эксклюзивную блокировку счёта пользователя.
	LockAccount(ctx context.Context, userID int64) (*models.Account, error)
	CreateAccount(ctx context.Context, userID int64) (*models.Account, error)
	SetBalance(ctx context.Context, userID int64, balance decimal.Decimal) error
	AppendEntry(ctx context.Context, entry *models.LedgerEntry) error
}

type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetMatch(ctx context.Context, matchID int64) (*models.Match, error)
	ListMatches(ctx context.Context, filter models.MatchFilter) ([]*models.Match, error)
	ListSlots(ctx context.Context, matchID int64) ([]*models.Slot, error)
	CountMatchesByState(ctx context.Context) (map[models.MatchState]int, error)
	HeldInEscrow(ctx context.Context) (decimal.Decimal, error)

	GetAccount(ctx context.Context, userID int64) (*models.Account, error)
	ListEntriesByUser(ctx context.Context, userID int64, limit int) ([]*models.LedgerEntry, error)
	ListEntriesByMatch(ctx context.Context, matchID int64) ([]*models.LedgerEntry, error)
}
