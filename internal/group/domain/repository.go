package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, group *Group) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Group, error)
	// FindByIDForUpdate row-locks the group on stores that support it. Every
	// membership mutation takes this lock first.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Group, error)
	UpdateProfile(ctx context.Context, db *gorm.DB, group *Group) error
	Deactivate(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	ListForUser(ctx context.Context, db *gorm.DB, userID string) ([]*Summary, error)
	ListActive(ctx context.Context, db *gorm.DB, viewerID string) ([]*Summary, error)
}
