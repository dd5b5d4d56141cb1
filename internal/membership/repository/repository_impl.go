package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/groupchat/internal/membership/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, membership *domain.Membership) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO memberships (id, group_id, user_id, role, active, active_slot, joined_at, left_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		membership.ID,
		membership.GroupID,
		membership.UserID,
		membership.Role,
		membership.Active,
		membership.ActiveSlot,
		membership.JoinedAt,
		membership.LeftAt,
	).Error
}

func (r *repo) FindActive(ctx context.Context, db *gorm.DB, groupID snowflake.ID, userID string) (*domain.Membership, error) {
	var membership domain.Membership
	err := db.WithContext(ctx).
		Where("group_id = ? AND user_id = ? AND active = ?", groupID, userID, true).
		Limit(1).
		Find(&membership).Error
	if err != nil {
		return nil, err
	}
	if membership.ID == 0 {
		return nil, nil
	}
	return &membership, nil
}

func (r *repo) FindLatest(ctx context.Context, db *gorm.DB, groupID snowflake.ID, userID string) (*domain.Membership, error) {
	var membership domain.Membership
	err := db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Order("joined_at desc, id desc").
		Limit(1).
		Find(&membership).Error
	if err != nil {
		return nil, err
	}
	if membership.ID == 0 {
		return nil, nil
	}
	return &membership, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, groupID snowflake.ID) ([]*domain.Membership, error) {
	var memberships []*domain.Membership
	err := db.WithContext(ctx).
		Where("group_id = ? AND active = ?", groupID, true).
		Order("joined_at asc, id asc").
		Find(&memberships).Error
	if err != nil {
		return nil, err
	}
	return memberships, nil
}

func (r *repo) CountActive(ctx context.Context, db *gorm.DB, groupID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Membership{}).
		Where("group_id = ? AND active = ?", groupID, true).
		Count(&count).Error
	return count, err
}

func (r *repo) CountActiveAdmins(ctx context.Context, db *gorm.DB, groupID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Membership{}).
		Where("group_id = ? AND active = ? AND role = ?", groupID, true, domain.RoleAdmin).
		Count(&count).Error
	return count, err
}

func (r *repo) UpdateRole(ctx context.Context, db *gorm.DB, id snowflake.ID, role domain.Role) error {
	return db.WithContext(ctx).
		Model(&domain.Membership{}).
		Where("id = ? AND active = ?", id, true).
		Update("role", role).Error
}

func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE memberships SET active = ?, active_slot = NULL, left_at = ?
		 WHERE id = ? AND active = ?`,
		false, at, id, true,
	).Error
}

func (r *repo) DeactivateAllForGroup(ctx context.Context, db *gorm.DB, groupID snowflake.ID, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE memberships SET active = ?, active_slot = NULL, left_at = ?
		 WHERE group_id = ? AND active = ?`,
		false, at, groupID, true,
	)
	return result.RowsAffected, result.Error
}
