package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// NextSeq increments the group's counter and returns the new value. It
	// must run inside the transaction that inserts the message.
	NextSeq(ctx context.Context, db *gorm.DB, groupID snowflake.ID) (int64, error)
	Insert(ctx context.Context, db *gorm.DB, message *Message) error
	FindBySeq(ctx context.Context, db *gorm.DB, groupID snowflake.ID, seq int64) (*Message, error)
	UpdateContent(ctx context.Context, db *gorm.DB, id snowflake.ID, content string, editedAt time.Time) error
	MarkDeleted(ctx context.Context, db *gorm.DB, id snowflake.ID, deletedBy string, at time.Time) error
	ListAfter(ctx context.Context, db *gorm.DB, groupID snowflake.ID, afterSeq int64, limit int) ([]*Message, error)
	InsertReport(ctx context.Context, db *gorm.DB, report *Report) error
}
