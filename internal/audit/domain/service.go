package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/groupchat/internal/apperr"
	"gorm.io/gorm"
)

// Entry describes one audited mutation.
type Entry struct {
	GroupID    snowflake.ID
	ActorType  ActorType
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

type Service interface {
	// Record writes entry through db, which is normally the transaction of
	// the mutation being audited.
	Record(ctx context.Context, db *gorm.DB, entry Entry) error
	ListByGroup(ctx context.Context, groupID snowflake.ID, limit int) ([]AuditLog, error)
}

var ErrInvalidAction = apperr.Validation("invalid_action", "audit action is required")
