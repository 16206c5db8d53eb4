// File: repositories/roster_repository.go
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/arena-escrow/models"
	"github.com/lib/pq"
)

type SlotRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, slots []*models.Slot) error
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int64) ([]*models.Slot, error)
	Update(ctx context.Context, exec SQLExecutor, slot *models.Slot) error
}

type postgresSlotRepository struct {
	db *sql.DB
}

func NewPostgresSlotRepository(db *sql.DB) SlotRepository {
	return &postgresSlotRepository{db: db}
}

func (r *postgresSlotRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresSlotRepository) CreateBatch(ctx context.Context, exec SQLExecutor, slots []*models.Slot) error {
	if len(slots) == 0 {
		return nil
	}
	tx, ok := exec.(*sql.Tx)
	if !ok {
		return ErrTransactionRequired
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO match_slots (match_id, side, idx, role, occupant_id, paid, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return fmt.Errorf("CreateBatch failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range slots {
		_, err = stmt.ExecContext(ctx, s.MatchID, s.Side, s.Index, s.Role, s.OccupantID, s.Paid, s.JoinedAt)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
				return ErrSlotConflict
			}
			return fmt.Errorf("CreateBatch failed for match %d slot %s/%d: %w", s.MatchID, s.Side, s.Index, err)
		}
	}
	return nil
}

func (r *postgresSlotRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int64) ([]*models.Slot, error) {
	query := `
		SELECT match_id, side, idx, role, occupant_id, paid, joined_at
		FROM match_slots
		WHERE match_id = $1
		ORDER BY side, idx`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots for match %d: %w", matchID, err)
	}
	defer rows.Close()

	slots := make([]*models.Slot, 0)
	for rows.Next() {
		var s models.Slot
		if err := rows.Scan(&s.MatchID, &s.Side, &s.Index, &s.Role, &s.OccupantID, &s.Paid, &s.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, &s)
	}
	return slots, rows.Err()
}

func (r *postgresSlotRepository) Update(ctx context.Context, exec SQLExecutor, slot *models.Slot) error {
	query := `
		UPDATE match_slots
		SET occupant_id = $1, paid = $2, joined_at = $3
		WHERE match_id = $4 AND side = $5 AND idx = $6`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		slot.OccupantID, slot.Paid, slot.JoinedAt, slot.MatchID, slot.Side, slot.Index)
	if err != nil {
		return fmt.Errorf("failed to update slot %d/%s/%d: %w", slot.MatchID, slot.Side, slot.Index, err)
	}
	return checkAffectedRows(result, ErrSlotNotFound)
}
