package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/groupchat/internal/group/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const summaryColumns = `g.id, g.name, g.slug, g.description, g.created_by, g.active,
	g.created_at, g.updated_at, g.deactivated_at,
	(SELECT COUNT(*) FROM memberships mc WHERE mc.group_id = g.id AND mc.active = ?) AS member_count`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, group *domain.Group) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO chat_groups (id, name, slug, description, created_by, active, created_at, updated_at, deactivated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		group.ID,
		group.Name,
		group.Slug,
		group.Description,
		group.CreatedBy,
		group.Active,
		group.CreatedAt,
		group.UpdatedAt,
		group.DeactivatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Group, error) {
	return r.find(db.WithContext(ctx), id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Group, error) {
	return r.find(db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repo) find(stmt *gorm.DB, id snowflake.ID) (*domain.Group, error) {
	var group domain.Group
	if err := stmt.Where("id = ?", id).Limit(1).Find(&group).Error; err != nil {
		return nil, err
	}
	if group.ID == 0 {
		return nil, nil
	}
	return &group, nil
}

func (r *repo) UpdateProfile(ctx context.Context, db *gorm.DB, group *domain.Group) error {
	return db.WithContext(ctx).Exec(
		`UPDATE chat_groups SET name = ?, slug = ?, description = ?, updated_at = ?
		 WHERE id = ? AND active = ?`,
		group.Name,
		group.Slug,
		group.Description,
		group.UpdatedAt,
		group.ID,
		true,
	).Error
}

func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE chat_groups SET active = ?, deactivated_at = ?, updated_at = ?
		 WHERE id = ? AND active = ?`,
		false, at, at, id, true,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ListForUser(ctx context.Context, db *gorm.DB, userID string) ([]*domain.Summary, error) {
	var items []*domain.Summary
	err := db.WithContext(ctx).Raw(
		`SELECT `+summaryColumns+`, m.role AS role
		 FROM chat_groups g
		 JOIN memberships m ON m.group_id = g.id AND m.user_id = ? AND m.active = ?
		 WHERE g.active = ?
		 ORDER BY g.created_at DESC, g.id DESC`,
		true, userID, true, true,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, viewerID string) ([]*domain.Summary, error) {
	var items []*domain.Summary
	err := db.WithContext(ctx).Raw(
		`SELECT `+summaryColumns+`, COALESCE(m.role, '') AS role
		 FROM chat_groups g
		 LEFT JOIN memberships m ON m.group_id = g.id AND m.user_id = ? AND m.active = ?
		 WHERE g.active = ?
		 ORDER BY g.created_at DESC, g.id DESC`,
		true, viewerID, true, true,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
