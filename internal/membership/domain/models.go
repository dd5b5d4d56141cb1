package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// LockResourceRoster keys the per-group lock shared by every mutation that
// reads the admin count.
const LockResourceRoster = "group-roster"

// Role is the membership role within one group.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// ParseRole accepts "admin" or "member", case-insensitively.
func ParseRole(value string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if !role.Valid() {
		return "", ErrInvalidRole
	}
	return role, nil
}

// Membership links a user to a group. At most one row per (group, user) is
// active; ActiveSlot carries a unique value while active and NULL afterwards.
type Membership struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	GroupID    snowflake.ID `gorm:"not null;index:idx_memberships_group_active,priority:1" json:"group_id"`
	UserID     string       `gorm:"type:varchar(128);not null;index" json:"user_id"`
	Role       Role         `gorm:"type:varchar(16);not null" json:"role"`
	Active     bool         `gorm:"not null;index:idx_memberships_group_active,priority:2" json:"active"`
	ActiveSlot *string      `gorm:"type:varchar(192);uniqueIndex:ux_memberships_active_slot" json:"-"`
	JoinedAt   time.Time    `gorm:"not null" json:"joined_at"`
	LeftAt     *time.Time   `json:"left_at,omitempty"`
}

func (Membership) TableName() string { return "memberships" }

func (m Membership) IsAdmin() bool {
	return m.Active && m.Role == RoleAdmin
}

// ActiveSlotFor returns the unique key an active membership holds.
func ActiveSlotFor(groupID snowflake.ID, userID string) *string {
	slot := fmt.Sprintf("%d:%s", groupID, userID)
	return &slot
}
