package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/groupchat/internal/apperr"
)

type CreateGroupRequest struct {
	CreatorID   string
	Name        string
	Description string
}

// UpdateGroupRequest leaves a field unchanged when it is nil.
type UpdateGroupRequest struct {
	GroupID      snowflake.ID
	ActingUserID string
	Name         *string
	Description  *string
}

type DeactivateGroupRequest struct {
	GroupID      snowflake.ID
	ActingUserID string
	// OperatorOverride lets a platform operator act without group membership.
	OperatorOverride bool
}

type Service interface {
	Create(ctx context.Context, req CreateGroupRequest) (Group, error)
	Update(ctx context.Context, req UpdateGroupRequest) (Group, error)
	// Deactivate reports whether this call changed the group.
	Deactivate(ctx context.Context, req DeactivateGroupRequest) (bool, error)
	Get(ctx context.Context, id snowflake.ID) (Group, error)
	ListForUser(ctx context.Context, userID string) ([]Summary, error)
	Discover(ctx context.Context, userID string) ([]Summary, error)
	Details(ctx context.Context, id snowflake.ID, callerID string) (Details, error)
}

var (
	ErrInvalidName        = apperr.Validation("invalid_name", "name must be 1-255 characters")
	ErrInvalidDescription = apperr.Validation("invalid_description", "description must be at most 1000 characters")
	ErrInvalidCreator     = apperr.Validation("invalid_creator", "creator id is required")
	ErrNoChanges          = apperr.Validation("no_changes", "nothing to update")
	ErrNotFound           = apperr.NotFound("group_not_found", "group not found")
	ErrNotAdmin           = apperr.Authorization("not_admin", "caller is not an active admin of the group")
	ErrNotMember          = apperr.Authorization("not_member", "caller is not an active member of the group")
)
