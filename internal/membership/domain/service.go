package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/groupchat/internal/apperr"
)

// JoinResult reports whether Join created a row or returned an existing one.
type JoinResult struct {
	Membership Membership
	Created    bool
}

// LeaveResult reports whether the leave also deactivated the group.
type LeaveResult struct {
	GroupDeactivated bool
}

type SetRoleRequest struct {
	GroupID      snowflake.ID
	ActingUserID string
	TargetUserID string
	Role         Role
}

type Service interface {
	Join(ctx context.Context, groupID snowflake.ID, userID string) (JoinResult, error)
	Leave(ctx context.Context, groupID snowflake.ID, userID string) (LeaveResult, error)
	SetRole(ctx context.Context, req SetRoleRequest) (Membership, error)
	IsActiveMember(ctx context.Context, groupID snowflake.ID, userID string) (Role, bool, error)
	ListMembers(ctx context.Context, groupID snowflake.ID) ([]Membership, error)
}

var (
	ErrInvalidRole    = apperr.Validation("invalid_role", "role must be admin or member")
	ErrInvalidUser    = apperr.Validation("invalid_user", "user id is required")
	ErrGroupNotFound  = apperr.NotFound("group_not_found", "group not found")
	ErrNotMember      = apperr.Authorization("not_member", "caller is not an active member of the group")
	ErrNotAdmin       = apperr.Authorization("not_admin", "caller is not an active admin of the group")
	ErrTargetNotFound = apperr.NotFound("member_not_found", "target user is not an active member of the group")
	ErrLastAdmin      = apperr.Precondition("last_admin", "the group must keep at least one active admin")
)
