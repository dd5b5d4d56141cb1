package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/groupchat/internal/apperr"
)

type AppendRequest struct {
	GroupID  snowflake.ID
	SenderID string
	Content  string
	Type     Type
}

type EditRequest struct {
	GroupID      snowflake.ID
	Seq          int64
	ActingUserID string
	Content      string
}

type DeleteRequest struct {
	GroupID          snowflake.ID
	Seq              int64
	ActingUserID     string
	OperatorOverride bool
}

// ListRequest pages forward from AfterSeq; zero starts at the beginning.
type ListRequest struct {
	GroupID  snowflake.ID
	CallerID string
	AfterSeq int64
	Limit    int
}

type ListResult struct {
	Messages   []View `json:"messages"`
	NextCursor int64  `json:"next_cursor"`
	HasMore    bool   `json:"has_more"`
}

type ReportRequest struct {
	GroupID     snowflake.ID
	Seq         int64
	ReporterID  string
	Reason      string
	Description string
}

type Service interface {
	Append(ctx context.Context, req AppendRequest) (View, error)
	Edit(ctx context.Context, req EditRequest) (View, error)
	SoftDelete(ctx context.Context, req DeleteRequest) (View, error)
	List(ctx context.Context, req ListRequest) (ListResult, error)
	Report(ctx context.Context, req ReportRequest) (Report, error)
}

var (
	ErrInvalidType        = apperr.Validation("invalid_type", "message type must be text or system")
	ErrInvalidSeq         = apperr.Validation("invalid_seq", "sequence number must be positive")
	ErrInvalidCursor      = apperr.Validation("invalid_cursor", "cursor must not be negative")
	ErrEmptyContent       = apperr.Validation("empty_content", "message content is required")
	ErrContentTooLong     = apperr.Validation("content_too_long", "message content must be at most 2000 characters")
	ErrInvalidReason      = apperr.Validation("invalid_reason", "report reason must be 1-255 characters")
	ErrInvalidDescription = apperr.Validation("invalid_description", "report description must be at most 1000 characters")
	ErrSelfReport         = apperr.Validation("self_report", "cannot report your own message")
	ErrGroupNotFound      = apperr.NotFound("group_not_found", "group not found")
	ErrMessageNotFound    = apperr.NotFound("message_not_found", "message not found")
	ErrNotMember          = apperr.Authorization("not_member", "caller is not an active member of the group")
	ErrSystemNeedsAdmin   = apperr.Authorization("system_requires_admin", "only admins may post system messages")
	ErrNotSender          = apperr.Authorization("not_sender", "only the sender may edit a message")
	ErrCannotDelete       = apperr.Authorization("cannot_delete", "only the sender or a group admin may delete a message")
	ErrAlreadyReported    = apperr.Conflict("already_reported", "message already reported by caller")
)
