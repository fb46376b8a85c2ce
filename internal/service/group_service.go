package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/groupledger/internal/ledger"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/storage"
	"github.com/mmynk/groupledger/pkg/api"
)

// GroupService implements api.GroupServiceHandler.
type GroupService struct {
	store storage.Store
}

var _ api.GroupServiceHandler = (*GroupService)(nil)

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store}
}

// CreateGroup creates a new group. The caller always becomes a member.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
	)

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("name required"))
	}

	currency, err := normalizeCurrency(req.Msg.Currency, ledger.DefaultCurrency)
	if err != nil {
		return nil, err
	}

	group := &models.Group{
		Name:      name,
		Currency:  currency,
		Members:   distinct(append([]string{caller}, req.Msg.Members...)...),
		CreatedBy: caller,
	}

	// Save to storage (generates ID and CreatedAt)
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, storeError("CreateGroup", err)
	}

	slog.Info("Group created", "group_id", group.ID)

	return connect.NewResponse(&api.CreateGroupResponse{Group: toAPIGroup(group)}), nil
}

// normalizeCurrency upper-cases code, substituting fallback when it is empty,
// and rejects currencies without a display symbol.
func normalizeCurrency(code, fallback string) (string, error) {
	currency := strings.ToUpper(strings.TrimSpace(code))
	if currency == "" {
		currency = fallback
	}
	if !ledger.SupportedCurrency(currency) {
		return "", connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("unsupported currency %q", currency))
	}
	return currency, nil
}

// GetGroup retrieves a group by ID.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	slog.Info("GetGroup request received", "group_id", req.Msg.GroupID)

	group, _, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	return connect.NewResponse(&api.GetGroupResponse{Group: toAPIGroup(group)}), nil
}

// ListGroups retrieves the groups the caller belongs to.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	groups, err := s.store.ListGroupsByMember(ctx, caller)
	if err != nil {
		return nil, storeError("ListGroups", err)
	}

	out := make([]*api.Group, len(groups))
	for i, g := range groups {
		out[i] = toAPIGroup(g)
	}

	slog.Info("ListGroups successful", "member_id", caller, "count", len(groups))

	return connect.NewResponse(&api.ListGroupsResponse{Groups: out}), nil
}

// AddMembers adds members to a group the caller belongs to.
func (s *GroupService) AddMembers(ctx context.Context, req *connect.Request[api.AddMembersRequest]) (*connect.Response[api.AddMembersResponse], error) {
	group, _, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	members := distinct(req.Msg.Members...)
	if len(members) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("members required"))
	}

	if err := s.store.AddGroupMembers(ctx, group.ID, members); err != nil {
		return nil, storeError("AddMembers", err)
	}

	updated, err := s.store.GetGroup(ctx, group.ID)
	if err != nil {
		return nil, storeError("AddMembers", err)
	}

	slog.Info("Group members added", "group_id", group.ID, "members", members)

	return connect.NewResponse(&api.AddMembersResponse{Group: toAPIGroup(updated)}), nil
}

// DeleteGroup removes a group. Only its creator may delete it.
func (s *GroupService) DeleteGroup(ctx context.Context, req *connect.Request[api.DeleteGroupRequest]) (*connect.Response[api.DeleteGroupResponse], error) {
	slog.Info("DeleteGroup request received", "group_id", req.Msg.GroupID)

	group, caller, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	if group.CreatedBy != caller {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("only the group creator can delete it"))
	}

	if err := s.store.DeleteGroup(ctx, group.ID); err != nil {
		return nil, storeError("DeleteGroup", err)
	}

	slog.Info("Group deleted", "group_id", group.ID)

	return connect.NewResponse(&api.DeleteGroupResponse{}), nil
}

// UpdateGroup renames a group and changes its display currency. Any member
// may edit the settings.
func (s *GroupService) UpdateGroup(ctx context.Context, req *connect.Request[api.UpdateGroupRequest]) (*connect.Response[api.UpdateGroupResponse], error) {
	slog.Info("UpdateGroup request received", "group_id", req.Msg.GroupID)

	group, _, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("name required"))
	}
	currency, err := normalizeCurrency(req.Msg.Currency, group.Currency)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateGroup(ctx, group.ID, name, currency); err != nil {
		return nil, storeError("UpdateGroup", err)
	}
	group.Name = name
	group.Currency = currency

	slog.Info("Group updated", "group_id", group.ID, "currency", currency)

	return connect.NewResponse(&api.UpdateGroupResponse{Group: toAPIGroup(group)}), nil
}

// LeaveGroup removes the caller from a group. A creator who leaves hands
// ownership to the first remaining member; the last member to leave deletes
// the group. Expenses and settlements involving the caller stay recorded.
func (s *GroupService) LeaveGroup(ctx context.Context, req *connect.Request[api.LeaveGroupRequest]) (*connect.Response[api.LeaveGroupResponse], error) {
	slog.Info("LeaveGroup request received", "group_id", req.Msg.GroupID)

	group, caller, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	var remaining []string
	for _, m := range group.Members {
		if m != caller {
			remaining = append(remaining, m)
		}
	}

	if len(remaining) == 0 {
		if err := s.store.DeleteGroup(ctx, group.ID); err != nil {
			return nil, storeError("LeaveGroup", err)
		}
		slog.Info("Last member left, group deleted", "group_id", group.ID, "member_id", caller)
		return connect.NewResponse(&api.LeaveGroupResponse{Deleted: true}), nil
	}

	var newOwner string
	if group.CreatedBy == caller {
		newOwner = remaining[0]
	}
	if err := s.store.RemoveGroupMember(ctx, group.ID, caller, newOwner); err != nil {
		return nil, storeError("LeaveGroup", err)
	}

	slog.Info("Member left group",
		"group_id", group.ID,
		"member_id", caller,
		"new_owner", newOwner,
	)

	return connect.NewResponse(&api.LeaveGroupResponse{NewOwner: newOwner}), nil
}
