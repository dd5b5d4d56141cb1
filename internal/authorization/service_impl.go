package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/groupchat/internal/principal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectGroup    = "group"
	ObjectMessage  = "message"
	ObjectAuditLog = "audit_log"
)

const (
	ActionGroupDeactivate = "group.deactivate"
	ActionMessageDelete   = "message.delete"
	ActionAuditLogView    = "audit_log.view"
)

// Service decides platform-level overrides. Group-level rights come from
// membership rows, never from here.
type Service interface {
	// Override reports whether any role claim of p grants action on object.
	Override(ctx context.Context, p principal.Principal, object, action string) (bool, error)
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads policies persisted through the GORM adapter and seeds the
// built-in ones.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	return newEnforcer(adapter)
}

// NewMemoryEnforcer returns a seeded enforcer without persistence.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	return newEnforcer(nil)
}

func newEnforcer(adapter persist.Adapter) (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	var enforcer *casbin.SyncedEnforcer
	if adapter != nil {
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
	}
	if err != nil {
		return nil, err
	}

	enforcer.EnableAutoSave(adapter != nil)
	enforcer.EnableAutoBuildRoleLinks(true)
	if adapter != nil {
		if err := enforcer.LoadPolicy(); err != nil {
			return nil, err
		}
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Override(ctx context.Context, p principal.Principal, object, action string) (bool, error) {
	if s == nil || s.enforcer == nil || !p.Valid() {
		return false, nil
	}
	object = strings.TrimSpace(object)
	action = strings.TrimSpace(action)

	for _, role := range p.Roles {
		role = strings.ToLower(strings.TrimSpace(role))
		if role == "" {
			continue
		}
		allowed, err := s.enforcer.Enforce(roleSubject(role), object, action)
		if err != nil {
			return false, err
		}
		if allowed {
			s.log.Info("platform override granted",
				zap.String("principal_id", p.ID),
				zap.String("role", role),
				zap.String("object", object),
				zap.String("action", action),
			)
			return true, nil
		}
	}
	return false, nil
}

func roleSubject(role string) string {
	return "role:" + role
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{roleSubject(principal.RoleOperator), ObjectGroup, ActionGroupDeactivate},
		{roleSubject(principal.RoleOperator), ObjectMessage, ActionMessageDelete},
		{roleSubject(principal.RoleOperator), ObjectAuditLog, ActionAuditLogView},
	}
	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	// Superusers inherit every operator grant.
	if _, err := enforcer.AddGroupingPolicy(roleSubject("superuser"), roleSubject(principal.RoleOperator)); err != nil {
		return err
	}
	return nil
}
