// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/groupledger/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type Store interface {
	// CreateGroup persists a new group. ID and CreatedAt are populated by
	// the store when empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its members.
	// Returns an error wrapping ErrNotFound if the group does not exist.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupsByMember returns every group the member belongs to,
	// newest first.
	ListGroupsByMember(ctx context.Context, memberID string) ([]*models.Group, error)

	// AddGroupMembers adds members to a group; existing members are ignored.
	AddGroupMembers(ctx context.Context, groupID string, members []string) error

	// UpdateGroup changes a group's name and currency.
	UpdateGroup(ctx context.Context, groupID, name, currency string) error

	// RemoveGroupMember removes a member. A non-empty newOwner becomes the
	// group's creator in the same transaction.
	RemoveGroupMember(ctx context.Context, groupID, memberID, newOwner string) error

	// DeleteGroup removes a group with all its expenses and settlements.
	DeleteGroup(ctx context.Context, groupID string) error

	// CreateExpense persists a new expense. ID and CreatedAt are populated
	// by the store when empty.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// ListExpensesByGroup returns a group's expenses, newest first.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)

	// ListSettlementsByGroup returns a group's settlements, newest first.
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error)

	// LoadActivity returns a group's expenses and settlements read from one
	// consistent snapshot.
	LoadActivity(ctx context.Context, groupID string) ([]*models.Expense, []*models.Settlement, error)

	// RecordSettlement atomically persists a settlement and the settlement
	// expense that mirrors it. Either both are stored or neither is.
	RecordSettlement(ctx context.Context, settlement *models.Settlement, expense *models.Expense) error

	// Close releases any resources held by the store.
	Close() error
}
