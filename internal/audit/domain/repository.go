package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	ListByGroup(ctx context.Context, db *gorm.DB, groupID snowflake.ID, limit int) ([]*AuditLog, error)
}
