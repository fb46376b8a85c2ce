package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/storage"
)

// CreateGroup persists a new group and its members.
func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().UnixMilli()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			s.q("INSERT INTO ledger_groups (id, name, currency, created_by, created_at) VALUES (?, ?, ?, ?, ?)"),
			group.ID, group.Name, group.Currency, group.CreatedBy, group.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}
		return s.insertMembers(ctx, tx, group.ID, group.Members)
	})
}

func (s *Store) insertMembers(ctx context.Context, tx *sql.Tx, groupID string, members []string) error {
	for _, m := range members {
		_, err := tx.ExecContext(ctx,
			s.q("INSERT INTO group_members (group_id, member_id) VALUES (?, ?) ON CONFLICT DO NOTHING"),
			groupID, m,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}
	return nil
}

// GetGroup retrieves a group by ID, including its members.
func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		s.q("SELECT id, name, currency, created_by, created_at FROM ledger_groups WHERE id = ?"),
		groupID,
	).Scan(&group.ID, &group.Name, &group.Currency, &group.CreatedBy, &group.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	members, err := s.listMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	group.Members = members

	return group, nil
}

func (s *Store) listMembers(ctx context.Context, groupID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q("SELECT member_id FROM group_members WHERE group_id = ? ORDER BY member_id"),
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}
	return members, nil
}

// ListGroupsByMember returns the groups memberID belongs to, newest first.
func (s *Store) ListGroupsByMember(ctx context.Context, memberID string) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT g.id, g.name, g.currency, g.created_by, g.created_at
		 FROM ledger_groups g JOIN group_members m ON m.group_id = g.id
		 WHERE m.member_id = ? ORDER BY g.created_at DESC, g.id`),
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	var groups []*models.Group
	for rows.Next() {
		g := &models.Group{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Currency, &g.CreatedBy, &g.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	// Members are loaded after the group rows are released; SQLite runs
	// on a single connection.
	for _, g := range groups {
		if g.Members, err = s.listMembers(ctx, g.ID); err != nil {
			return nil, err
		}
	}

	return groups, nil
}

// AddGroupMembers adds members to an existing group.
func (s *Store) AddGroupMembers(ctx context.Context, groupID string, members []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.groupExists(ctx, tx, groupID); err != nil {
			return err
		}
		return s.insertMembers(ctx, tx, groupID, members)
	})
}

// UpdateGroup changes a group's name and currency.
func (s *Store) UpdateGroup(ctx context.Context, groupID, name, currency string) error {
	res, err := s.db.ExecContext(ctx,
		s.q("UPDATE ledger_groups SET name = ?, currency = ? WHERE id = ?"),
		name, currency, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	return nil
}

// RemoveGroupMember removes memberID from a group. When newOwner is set the
// group's creator is changed to newOwner in the same transaction.
func (s *Store) RemoveGroupMember(ctx context.Context, groupID, memberID, newOwner string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			s.q("DELETE FROM group_members WHERE group_id = ? AND member_id = ?"),
			groupID, memberID,
		)
		if err != nil {
			return fmt.Errorf("failed to remove group member: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to remove group member: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("member %s of group %s: %w", memberID, groupID, storage.ErrNotFound)
		}

		if newOwner == "" {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			s.q("UPDATE ledger_groups SET created_by = ? WHERE id = ?"),
			newOwner, groupID,
		); err != nil {
			return fmt.Errorf("failed to transfer group ownership: %w", err)
		}
		return nil
	})
}

// DeleteGroup removes a group and everything recorded against it.
func (s *Store) DeleteGroup(ctx context.Context, groupID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.groupExists(ctx, tx, groupID); err != nil {
			return err
		}

		stmts := []string{
			"DELETE FROM expense_splits WHERE expense_id IN (SELECT id FROM expenses WHERE group_id = ?)",
			"DELETE FROM expenses WHERE group_id = ?",
			"DELETE FROM settlements WHERE group_id = ?",
			"DELETE FROM group_members WHERE group_id = ?",
			"DELETE FROM ledger_groups WHERE id = ?",
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, s.q(stmt), groupID); err != nil {
				return fmt.Errorf("failed to delete group: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) groupExists(ctx context.Context, tx *sql.Tx, groupID string) error {
	var exists int
	err := tx.QueryRowContext(ctx, s.q("SELECT 1 FROM ledger_groups WHERE id = ?"), groupID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check group existence: %w", err)
	}
	return nil
}
