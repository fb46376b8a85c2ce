package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/groupledger/internal/models"
)

// RecordSettlement persists a settlement and its settlement expense in one
// transaction. The expense is linked to the settlement by SettlementID.
func (s *Store) RecordSettlement(ctx context.Context, settlement *models.Settlement, expense *models.Expense) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.SettledAt == 0 {
		settlement.SettledAt = time.Now().UnixMilli()
	}
	expense.GroupID = settlement.GroupID
	expense.SettlementID = settlement.ID
	if expense.CreatedAt == 0 {
		expense.CreatedAt = settlement.SettledAt
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.groupExists(ctx, tx, settlement.GroupID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			s.q(`INSERT INTO settlements (id, group_id, from_member, to_member, amount, settled_at, settled_by)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`),
			settlement.ID, settlement.GroupID, settlement.From, settlement.To,
			settlement.Amount, settlement.SettledAt, settlement.SettledBy,
		)
		if err != nil {
			return fmt.Errorf("failed to insert settlement: %w", err)
		}

		return s.insertExpense(ctx, tx, expense)
	})
}

// ListSettlementsByGroup retrieves all settlements for a group, newest first.
func (s *Store) ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error) {
	return s.listSettlements(ctx, s.db, groupID)
}

func (s *Store) listSettlements(ctx context.Context, q queryer, groupID string) ([]*models.Settlement, error) {
	rows, err := q.QueryContext(ctx,
		s.q(`SELECT id, group_id, from_member, to_member, amount, settled_at, settled_by
		 FROM settlements WHERE group_id = ? ORDER BY settled_at DESC, id`),
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements by group: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		settlement := &models.Settlement{}
		if err := rows.Scan(&settlement.ID, &settlement.GroupID, &settlement.From, &settlement.To,
			&settlement.Amount, &settlement.SettledAt, &settlement.SettledBy); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, settlement)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}

	return settlements, nil
}

// LoadActivity reads a group's expenses and settlements in one transaction,
// so both lists describe the same point in time.
func (s *Store) LoadActivity(ctx context.Context, groupID string) ([]*models.Expense, []*models.Settlement, error) {
	var (
		expenses    []*models.Expense
		settlements []*models.Settlement
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.groupExists(ctx, tx, groupID); err != nil {
			return err
		}
		var err error
		if expenses, err = s.listExpenses(ctx, tx, groupID); err != nil {
			return err
		}
		settlements, err = s.listSettlements(ctx, tx, groupID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return expenses, settlements, nil
}
