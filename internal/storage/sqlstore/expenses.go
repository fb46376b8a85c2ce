package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/groupledger/internal/models"
)

// CreateExpense persists a new expense with its split members.
func (s *Store) CreateExpense(ctx context.Context, expense *models.Expense) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.groupExists(ctx, tx, expense.GroupID); err != nil {
			return err
		}
		return s.insertExpense(ctx, tx, expense)
	})
}

func (s *Store) insertExpense(ctx context.Context, tx *sql.Tx, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().UnixMilli()
	}

	var settlementID any
	if expense.SettlementID != "" {
		settlementID = expense.SettlementID
	}

	_, err := tx.ExecContext(ctx,
		s.q(`INSERT INTO expenses (id, group_id, payer, amount, category, description, settlement_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		expense.ID, expense.GroupID, expense.Payer, expense.Amount,
		expense.Category, expense.Description, settlementID, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i, m := range expense.SplitWith {
		_, err = tx.ExecContext(ctx,
			s.q("INSERT INTO expense_splits (expense_id, member_id, ord) VALUES (?, ?, ?)"),
			expense.ID, m, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense split: %w", err)
		}
	}
	return nil
}

// ListExpensesByGroup retrieves all expenses for a group, newest first.
func (s *Store) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	return s.listExpenses(ctx, s.db, groupID)
}

func (s *Store) listExpenses(ctx context.Context, q queryer, groupID string) ([]*models.Expense, error) {
	rows, err := q.QueryContext(ctx,
		s.q(`SELECT id, group_id, payer, amount, category, description, settlement_id, created_at
		 FROM expenses WHERE group_id = ? ORDER BY created_at DESC, id`),
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses by group: %w", err)
	}

	var expenses []*models.Expense
	byID := make(map[string]*models.Expense)
	for rows.Next() {
		e := &models.Expense{}
		var settlementID sql.NullString
		if err := rows.Scan(&e.ID, &e.GroupID, &e.Payer, &e.Amount,
			&e.Category, &e.Description, &settlementID, &e.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		if settlementID.Valid {
			e.SettlementID = settlementID.String
		}
		expenses = append(expenses, e)
		byID[e.ID] = e
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	splitRows, err := q.QueryContext(ctx,
		s.q(`SELECT s.expense_id, s.member_id FROM expense_splits s
		 JOIN expenses e ON e.id = s.expense_id
		 WHERE e.group_id = ? ORDER BY s.expense_id, s.ord`),
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense splits: %w", err)
	}
	defer splitRows.Close()

	for splitRows.Next() {
		var expenseID, member string
		if err := splitRows.Scan(&expenseID, &member); err != nil {
			return nil, fmt.Errorf("failed to scan expense split: %w", err)
		}
		if e, ok := byID[expenseID]; ok {
			e.SplitWith = append(e.SplitWith, member)
		}
	}
	if err := splitRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense splits: %w", err)
	}

	return expenses, nil
}
