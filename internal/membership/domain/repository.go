package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, membership *Membership) error
	FindActive(ctx context.Context, db *gorm.DB, groupID snowflake.ID, userID string) (*Membership, error)
	FindLatest(ctx context.Context, db *gorm.DB, groupID snowflake.ID, userID string) (*Membership, error)
	ListActive(ctx context.Context, db *gorm.DB, groupID snowflake.ID) ([]*Membership, error)
	CountActive(ctx context.Context, db *gorm.DB, groupID snowflake.ID) (int64, error)
	CountActiveAdmins(ctx context.Context, db *gorm.DB, groupID snowflake.ID) (int64, error)
	UpdateRole(ctx context.Context, db *gorm.DB, id snowflake.ID, role Role) error
	Deactivate(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	DeactivateAllForGroup(ctx context.Context, db *gorm.DB, groupID snowflake.ID, at time.Time) (int64, error)
}
