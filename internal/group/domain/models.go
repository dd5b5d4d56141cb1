package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	membershipdomain "github.com/smallbiznis/groupchat/internal/membership/domain"
)

const (
	MaxNameLength        = 255
	MaxDescriptionLength = 1000
)

// Group is a discussion group. Active never flips back to true once cleared.
type Group struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Name          string       `gorm:"type:text;not null" json:"name"`
	Slug          string       `gorm:"type:varchar(255);not null;index" json:"slug"`
	Description   string       `gorm:"type:text;not null" json:"description"`
	CreatedBy     string       `gorm:"type:varchar(128);not null;index" json:"created_by"`
	Active        bool         `gorm:"not null;index" json:"active"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null" json:"updated_at"`
	DeactivatedAt *time.Time   `json:"deactivated_at,omitempty"`
}

func (Group) TableName() string { return "chat_groups" }

// Summary is a group annotated for one viewer.
type Summary struct {
	Group       `gorm:"embedded"`
	Role        string `json:"role"`
	MemberCount int64  `json:"member_count"`
}

// RoleNone marks a viewer without an active membership.
const RoleNone = "none"

// Details is a group with its active members.
type Details struct {
	Group   Group                         `json:"group"`
	Role    membershipdomain.Role         `json:"role"`
	Members []membershipdomain.Membership `json:"members"`
}
