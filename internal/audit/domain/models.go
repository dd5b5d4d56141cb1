package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeMember   ActorType = "member"
	ActorTypeAdmin    ActorType = "admin"
	ActorTypeOperator ActorType = "operator"
	ActorTypeSystem   ActorType = "system"
)

const (
	ActionGroupCreated      = "group.created"
	ActionGroupUpdated      = "group.updated"
	ActionGroupDeactivated  = "group.deactivated"
	ActionMemberRoleChanged = "membership.role_changed"
	ActionMessageDeleted    = "message.deleted"
	ActionMessageReported   = "message.reported"
)

const (
	TargetTypeGroup      = "group"
	TargetTypeMembership = "membership"
	TargetTypeMessage    = "message"
)

type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	GroupID    snowflake.ID      `gorm:"not null;index:idx_audit_logs_group_created,priority:1" json:"group_id"`
	ActorType  string            `gorm:"type:varchar(32);not null" json:"actor_type"`
	ActorID    string            `gorm:"type:varchar(128);not null" json:"actor_id"`
	Action     string            `gorm:"type:varchar(64);not null;index" json:"action"`
	TargetType string            `gorm:"type:varchar(32);not null" json:"target_type"`
	TargetID   *string           `gorm:"type:varchar(64)" json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index:idx_audit_logs_group_created,priority:2" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
