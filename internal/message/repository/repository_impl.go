package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/groupchat/internal/message/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) NextSeq(ctx context.Context, db *gorm.DB, groupID snowflake.ID) (int64, error) {
	db = db.WithContext(ctx)

	seed := domain.Sequence{GroupID: groupID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, fmt.Errorf("seed sequence: %w", err)
	}

	// The UPDATE holds the counter row lock until commit, so appenders of one
	// group queue here while other groups proceed.
	result := db.Exec(
		`UPDATE message_sequences SET last_seq = last_seq + 1 WHERE group_id = ?`,
		groupID,
	)
	if result.Error != nil {
		return 0, fmt.Errorf("increment sequence: %w", result.Error)
	}
	if result.RowsAffected != 1 {
		return 0, fmt.Errorf("increment sequence: %d rows for group %d", result.RowsAffected, groupID)
	}

	var seq int64
	err := db.Raw(`SELECT last_seq FROM message_sequences WHERE group_id = ?`, groupID).Scan(&seq).Error
	if err != nil {
		return 0, fmt.Errorf("read sequence: %w", err)
	}
	return seq, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, message *domain.Message) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO messages (id, group_id, seq, ref, sender_id, content, type, created_at, edited, edited_at, deleted, deleted_by, deleted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		message.ID,
		message.GroupID,
		message.Seq,
		message.Ref,
		message.SenderID,
		message.Content,
		message.Type,
		message.CreatedAt,
		message.Edited,
		message.EditedAt,
		message.Deleted,
		message.DeletedBy,
		message.DeletedAt,
	).Error
}

func (r *repo) FindBySeq(ctx context.Context, db *gorm.DB, groupID snowflake.ID, seq int64) (*domain.Message, error) {
	var message domain.Message
	err := db.WithContext(ctx).
		Where("group_id = ? AND seq = ?", groupID, seq).
		Limit(1).
		Find(&message).Error
	if err != nil {
		return nil, err
	}
	if message.ID == 0 {
		return nil, nil
	}
	return &message, nil
}

func (r *repo) UpdateContent(ctx context.Context, db *gorm.DB, id snowflake.ID, content string, editedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE messages SET content = ?, edited = ?, edited_at = ? WHERE id = ? AND deleted = ?`,
		content, true, editedAt, id, false,
	).Error
}

func (r *repo) MarkDeleted(ctx context.Context, db *gorm.DB, id snowflake.ID, deletedBy string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE messages SET deleted = ?, deleted_by = ?, deleted_at = ? WHERE id = ? AND deleted = ?`,
		true, deletedBy, at, id, false,
	).Error
}

func (r *repo) ListAfter(ctx context.Context, db *gorm.DB, groupID snowflake.ID, afterSeq int64, limit int) ([]*domain.Message, error) {
	var messages []*domain.Message
	stmt := db.WithContext(ctx).
		Where("group_id = ? AND seq > ?", groupID, afterSeq).
		Order("seq asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *repo) InsertReport(ctx context.Context, db *gorm.DB, report *domain.Report) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO message_reports (id, message_id, group_id, seq, reported_by, reason, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID,
		report.MessageID,
		report.GroupID,
		report.Seq,
		report.ReportedBy,
		report.Reason,
		report.Description,
		report.CreatedAt,
	).Error
}
