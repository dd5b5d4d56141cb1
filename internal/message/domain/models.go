package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	MaxContentLength           = 2000
	MaxReportReasonLength      = 255
	MaxReportDescriptionLength = 1000

	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Type tags the payload. Only system messages carry special authority.
type Type string

const (
	TypeText   Type = "text"
	TypeSystem Type = "system"
)

// ParseType defaults an empty value to text.
func ParseType(value string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(value))); t {
	case "":
		return TypeText, nil
	case TypeText, TypeSystem:
		return t, nil
	default:
		return "", ErrInvalidType
	}
}

// Message is one entry in a group's log. (GroupID, Seq) identifies it; Ref
// is a sortable external reference.
type Message struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	GroupID   snowflake.ID `gorm:"not null;uniqueIndex:ux_messages_group_seq,priority:1" json:"group_id"`
	Seq       int64        `gorm:"not null;uniqueIndex:ux_messages_group_seq,priority:2" json:"seq"`
	Ref       string       `gorm:"type:varchar(26);not null;uniqueIndex" json:"ref"`
	SenderID  string       `gorm:"type:varchar(128);not null;index" json:"sender_id"`
	Content   string       `gorm:"type:text;not null" json:"content"`
	Type      Type         `gorm:"type:varchar(16);not null" json:"type"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	Edited    bool         `gorm:"not null" json:"edited"`
	EditedAt  *time.Time   `json:"edited_at,omitempty"`
	Deleted   bool         `gorm:"not null" json:"deleted"`
	DeletedBy *string      `gorm:"type:varchar(128)" json:"deleted_by,omitempty"`
	DeletedAt *time.Time   `json:"deleted_at,omitempty"`
}

func (Message) TableName() string { return "messages" }

// Sequence is the per-group counter behind Message.Seq.
type Sequence struct {
	GroupID snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	LastSeq int64        `gorm:"not null"`
}

func (Sequence) TableName() string { return "message_sequences" }

// Report flags a message for moderator review. One per (message, reporter).
type Report struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	MessageID   snowflake.ID `gorm:"not null;uniqueIndex:ux_message_reports_reporter,priority:1" json:"message_id"`
	GroupID     snowflake.ID `gorm:"not null;index" json:"group_id"`
	Seq         int64        `gorm:"not null" json:"seq"`
	ReportedBy  string       `gorm:"type:varchar(128);not null;uniqueIndex:ux_message_reports_reporter,priority:2" json:"reported_by"`
	Reason      string       `gorm:"type:text;not null" json:"reason"`
	Description string       `gorm:"type:text;not null" json:"description"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
}

func (Report) TableName() string { return "message_reports" }

// View is what readers see. Deleted messages keep their slot but carry no
// content.
type View struct {
	Seq       int64      `json:"seq"`
	Ref       string     `json:"ref"`
	SenderID  string     `json:"sender_id"`
	Type      Type       `json:"type"`
	Content   string     `json:"content,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	Edited    bool       `json:"edited"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	Deleted   bool       `json:"deleted"`
}

func (m Message) View() View {
	v := View{
		Seq:       m.Seq,
		Ref:       m.Ref,
		SenderID:  m.SenderID,
		Type:      m.Type,
		CreatedAt: m.CreatedAt,
		Deleted:   m.Deleted,
	}
	if m.Deleted {
		return v
	}
	v.Content = m.Content
	v.Edited = m.Edited
	v.EditedAt = m.EditedAt
	return v
}
