package migration

import (
	"errors"
	"fmt"

	auditdomain "github.com/smallbiznis/groupchat/internal/audit/domain"
	groupdomain "github.com/smallbiznis/groupchat/internal/group/domain"
	membershipdomain "github.com/smallbiznis/groupchat/internal/membership/domain"
	messagedomain "github.com/smallbiznis/groupchat/internal/message/domain"
	"gorm.io/gorm"
)

// Models lists every table the chat core owns.
func Models() []any {
	return []any{
		&groupdomain.Group{},
		&membershipdomain.Membership{},
		&messagedomain.Sequence{},
		&messagedomain.Message{},
		&messagedomain.Report{},
		&auditdomain.AuditLog{},
	}
}

// RunMigrations creates or updates the chat schema so a fresh database is
// usable on first start.
func RunMigrations(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
