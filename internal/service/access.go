package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/groupledger/internal/middleware"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/storage"
)

// callerID returns the authenticated member ID or an Unauthenticated error.
func callerID(ctx context.Context) (string, error) {
	memberID := middleware.GetMemberID(ctx)
	if memberID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}
	return memberID, nil
}

// groupForCaller loads a group and checks that the caller belongs to it.
func groupForCaller(ctx context.Context, store storage.Store, groupID string) (*models.Group, string, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, "", err
	}
	if groupID == "" {
		return nil, "", connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("group_id required"))
	}

	group, err := store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, "", storeError("GetGroup", err)
	}
	if !group.HasMember(caller) {
		return nil, "", connect.NewError(connect.CodePermissionDenied, fmt.Errorf("you must be a member of this group"))
	}
	return group, caller, nil
}

// storeError maps a storage error to a Connect error and logs internal failures.
func storeError(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	slog.Error(op+" failed", "error", err)
	return connect.NewError(connect.CodeInternal, err)
}

// distinct returns ids without empty strings and duplicates, keeping order.
func distinct(ids ...string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
