package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dosada05/arena-escrow/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int64) (*models.Match, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int64) (*models.Match, error)
	Update(ctx context.Context, exec SQLExecutor, match *models.Match) error
	List(ctx context.Context, filter models.MatchFilter) ([]*models.Match, error)
	ActiveMatchIDForUser(ctx context.Context, exec SQLExecutor, userID int64) (int64, bool, error)
	CountByState(ctx context.Context) (map[models.MatchState]int, error)
	HeldInEscrow(ctx context.Context) (decimal.Decimal, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const selectMatchColumns = `
	SELECT m.id, m.mode, m.stake, m.state, m.password_hash, m.creator_id,
	       m.proof_ref, m.winner_side, m.created_at, m.updated_at
	FROM matches m`

func scanMatch(rowScanner interface {
	Scan(dest ...interface{}) error
}, m *models.Match) error {
	return rowScanner.Scan(
		&m.ID,
		&m.Mode,
		&m.Stake,
		&m.State,
		&m.PasswordHash,
		&m.CreatorID,
		&m.ProofRef,
		&m.WinnerSide,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches (mode, stake, state, password_hash, creator_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := executor.QueryRowContext(ctx, query,
		match.Mode,
		match.Stake,
		match.State,
		match.PasswordHash,
		match.CreatorID,
	).Scan(&match.ID, &match.CreatedAt, &match.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" { // check_violation
			return fmt.Errorf("match violates constraint %s: %w", pqErr.Constraint, err)
		}
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) findOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.Match, error) {
	m := &models.Match{}
	err := scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, args...), m)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}
	return m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int64) (*models.Match, error) {
	return r.findOne(ctx, exec, selectMatchColumns+` WHERE m.id = $1`, id)
}

// GetByIDForUpdate блокирует строку матча до конца транзакции.
func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int64) (*models.Match, error) {
	if _, ok := exec.(*sql.Tx); !ok {
		return nil, ErrTransactionRequired
	}
	return r.findOne(ctx, exec, selectMatchColumns+` WHERE m.id = $1 FOR UPDATE`, id)
}

func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE matches
		SET state = $1, proof_ref = $2, winner_side = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at`

	err := executor.QueryRowContext(ctx, query, match.State, match.ProofRef, match.WinnerSide, match.ID).Scan(&match.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to update match %d: %w", match.ID, err)
	}
	return nil
}

func (r *postgresMatchRepository) List(ctx context.Context, filter models.MatchFilter) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(selectMatchColumns)

	args := []interface{}{}
	conditions := []string{}
	placeholderIndex := 1

	if filter.UserID != nil {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM match_slots s WHERE s.match_id = m.id AND s.occupant_id = $"+strconv.Itoa(placeholderIndex)+")")
		args = append(args, *filter.UserID)
		placeholderIndex++
	}
	if len(filter.States) > 0 {
		states := make([]string, len(filter.States))
		for i, st := range filter.States {
			states[i] = string(st)
		}
		conditions = append(conditions, "m.state = ANY($"+strconv.Itoa(placeholderIndex)+")")
		args = append(args, pq.Array(states))
		placeholderIndex++
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY m.created_at DESC, m.id DESC")
	if filter.Limit > 0 {
		queryBuilder.WriteString(" LIMIT $" + strconv.Itoa(placeholderIndex))
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		var m models.Match
		if err := scanMatch(rows, &m); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) ActiveMatchIDForUser(ctx context.Context, exec SQLExecutor, userID int64) (int64, bool, error) {
	query := `
		SELECT m.id
		FROM matches m
		JOIN match_slots s ON s.match_id = m.id
		WHERE s.occupant_id = $1 AND m.state = ANY($2)
		LIMIT 1`

	var matchID int64
	err := r.getExecutor(exec).QueryRowContext(ctx, query, userID, pq.Array(activeStateNames())).Scan(&matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to look up active match for user %d: %w", userID, err)
	}
	return matchID, true, nil
}

func (r *postgresMatchRepository) CountByState(ctx context.Context) (map[models.MatchState]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM matches GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("failed to count matches by state: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.MatchState]int)
	for rows.Next() {
		var state models.MatchState
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan match count: %w", err)
		}
		counts[state] = n
	}
	return counts, rows.Err()
}

func (r *postgresMatchRepository) HeldInEscrow(ctx context.Context) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(m.stake), 0)
		FROM matches m
		JOIN match_slots s ON s.match_id = m.id
		WHERE s.paid AND m.state = ANY($1)`

	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, pq.Array(activeStateNames())).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum escrowed stakes: %w", err)
	}
	return total, nil
}

func activeStateNames() []string {
	names := make([]string, len(models.ActiveStates))
	for i, st := range models.ActiveStates {
		names[i] = string(st)
	}
	return names
}
