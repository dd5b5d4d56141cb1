package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/groupchat/internal/audit/domain"
	"github.com/smallbiznis/groupchat/internal/clock"
	groupdomain "github.com/smallbiznis/groupchat/internal/group/domain"
	"github.com/smallbiznis/groupchat/internal/keylock"
	"github.com/smallbiznis/groupchat/internal/membership/domain"
	"github.com/smallbiznis/groupchat/internal/observability/metrics"
	"github.com/smallbiznis/groupchat/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const lockResourceJoin = "membership"

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Locker      keylock.Locker
	Repo        domain.Repository
	GroupRepo   groupdomain.Repository
	Audit       auditdomain.Service
	Metrics     *metrics.Metrics     `optional:"true"`
	LockMetrics *metrics.LockMetrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	locker      keylock.Locker
	repo        domain.Repository
	groupRepo   groupdomain.Repository
	audit       auditdomain.Service
	metrics     *metrics.Metrics
	lockMetrics *metrics.LockMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("membership.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		locker:      p.Locker,
		repo:        p.Repo,
		groupRepo:   p.GroupRepo,
		audit:       p.Audit,
		metrics:     p.Metrics,
		lockMetrics: p.LockMetrics,
	}
}

func (s *Service) Join(ctx context.Context, groupID snowflake.ID, userID string) (domain.JoinResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.JoinResult{}, domain.ErrInvalidUser
	}

	unlock, err := keylock.Acquire(ctx, s.locker, s.lockMetrics, lockResourceJoin, groupID.String()+":"+userID)
	if err != nil {
		return domain.JoinResult{}, err
	}
	defer unlock()

	var result domain.JoinResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := s.groupRepo.FindByIDForUpdate(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if group == nil || !group.Active {
			return domain.ErrGroupNotFound
		}

		existing, err := s.repo.FindActive(ctx, tx, groupID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = domain.JoinResult{Membership: *existing}
			return nil
		}

		membership := domain.Membership{
			ID:         s.genID.Generate(),
			GroupID:    groupID,
			UserID:     userID,
			Role:       domain.RoleMember,
			Active:     true,
			ActiveSlot: domain.ActiveSlotFor(groupID, userID),
			JoinedAt:   s.clock.Now(),
		}
		if err := s.repo.Insert(ctx, tx, &membership); err != nil {
			return err
		}
		result = domain.JoinResult{Membership: membership, Created: true}
		return nil
	})
	if err != nil && db.IsDuplicateKeyErr(err) {
		// Another process inserted the active row first.
		existing, findErr := s.repo.FindActive(ctx, s.db, groupID, userID)
		if findErr != nil {
			return domain.JoinResult{}, findErr
		}
		if existing != nil {
			return domain.JoinResult{Membership: *existing}, nil
		}
	}
	if err != nil {
		return domain.JoinResult{}, err
	}

	if result.Created {
		s.metrics.RecordMembershipChange(ctx, "joined")
		s.log.Info("member joined",
			zap.String("group_id", groupID.String()),
			zap.String("user_id", userID),
		)
	}
	return result, nil
}

func (s *Service) Leave(ctx context.Context, groupID snowflake.ID, userID string) (domain.LeaveResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.LeaveResult{}, domain.ErrInvalidUser
	}

	unlock, err := keylock.Acquire(ctx, s.locker, s.lockMetrics, domain.LockResourceRoster, groupID.String())
	if err != nil {
		return domain.LeaveResult{}, err
	}
	defer unlock()

	var result domain.LeaveResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := s.groupRepo.FindByIDForUpdate(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if group == nil {
			return domain.ErrGroupNotFound
		}

		membership, err := s.repo.FindActive(ctx, tx, groupID, userID)
		if err != nil {
			return err
		}
		if membership == nil {
			return domain.ErrNotMember
		}

		lastMember := false
		if membership.Role == domain.RoleAdmin {
			admins, err := s.repo.CountActiveAdmins(ctx, tx, groupID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				members, err := s.repo.CountActive(ctx, tx, groupID)
				if err != nil {
					return err
				}
				if members > 1 {
					return domain.ErrLastAdmin
				}
				lastMember = true
			}
		}

		now := s.clock.Now()
		if err := s.repo.Deactivate(ctx, tx, membership.ID, now); err != nil {
			return err
		}
		if !lastMember {
			return nil
		}

		changed, err := s.groupRepo.Deactivate(ctx, tx, groupID, now)
		if err != nil {
			return err
		}
		result.GroupDeactivated = changed
		if !changed {
			return nil
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			GroupID:    groupID,
			ActorType:  auditdomain.ActorTypeAdmin,
			ActorID:    userID,
			Action:     auditdomain.ActionGroupDeactivated,
			TargetType: auditdomain.TargetTypeGroup,
			TargetID:   groupID.String(),
			Metadata:   map[string]any{"cause": "last_member_left"},
		})
	})
	if err != nil {
		return domain.LeaveResult{}, err
	}

	s.metrics.RecordMembershipChange(ctx, "left")
	if result.GroupDeactivated {
		s.metrics.RecordGroupLifecycle(ctx, "deactivated")
	}
	s.log.Info("member left",
		zap.String("group_id", groupID.String()),
		zap.String("user_id", userID),
		zap.Bool("group_deactivated", result.GroupDeactivated),
	)
	return result, nil
}

func (s *Service) SetRole(ctx context.Context, req domain.SetRoleRequest) (domain.Membership, error) {
	if !req.Role.Valid() {
		return domain.Membership{}, domain.ErrInvalidRole
	}
	acting := strings.TrimSpace(req.ActingUserID)
	target := strings.TrimSpace(req.TargetUserID)
	if acting == "" || target == "" {
		return domain.Membership{}, domain.ErrInvalidUser
	}

	unlock, err := keylock.Acquire(ctx, s.locker, s.lockMetrics, domain.LockResourceRoster, req.GroupID.String())
	if err != nil {
		return domain.Membership{}, err
	}
	defer unlock()

	var (
		updated  domain.Membership
		previous domain.Role
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := s.groupRepo.FindByIDForUpdate(ctx, tx, req.GroupID)
		if err != nil {
			return err
		}
		if group == nil || !group.Active {
			return domain.ErrGroupNotFound
		}

		actor, err := s.repo.FindActive(ctx, tx, req.GroupID, acting)
		if err != nil {
			return err
		}
		if actor == nil || !actor.IsAdmin() {
			return domain.ErrNotAdmin
		}

		membership, err := s.repo.FindActive(ctx, tx, req.GroupID, target)
		if err != nil {
			return err
		}
		if membership == nil {
			return domain.ErrTargetNotFound
		}
		previous = membership.Role
		if membership.Role == req.Role {
			updated = *membership
			return nil
		}

		if membership.Role == domain.RoleAdmin {
			admins, err := s.repo.CountActiveAdmins(ctx, tx, req.GroupID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return domain.ErrLastAdmin
			}
		}

		if err := s.repo.UpdateRole(ctx, tx, membership.ID, req.Role); err != nil {
			return err
		}
		membership.Role = req.Role
		updated = *membership

		return s.audit.Record(ctx, tx, auditdomain.Entry{
			GroupID:    req.GroupID,
			ActorType:  auditdomain.ActorTypeAdmin,
			ActorID:    acting,
			Action:     auditdomain.ActionMemberRoleChanged,
			TargetType: auditdomain.TargetTypeMembership,
			TargetID:   strconv.FormatInt(int64(membership.ID), 10),
			Metadata: map[string]any{
				"user_id": target,
				"from":    string(previous),
				"to":      string(req.Role),
			},
		})
	})
	if err != nil {
		return domain.Membership{}, err
	}

	if previous != req.Role {
		s.metrics.RecordMembershipChange(ctx, "role_"+string(req.Role))
		s.log.Info("member role changed",
			zap.String("group_id", req.GroupID.String()),
			zap.String("user_id", target),
			zap.String("from", string(previous)),
			zap.String("to", string(req.Role)),
		)
	}
	return updated, nil
}

func (s *Service) IsActiveMember(ctx context.Context, groupID snowflake.ID, userID string) (domain.Role, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", false, nil
	}
	membership, err := s.repo.FindActive(ctx, s.db, groupID, userID)
	if err != nil {
		return "", false, err
	}
	if membership == nil {
		return "", false, nil
	}
	return membership.Role, true, nil
}

func (s *Service) ListMembers(ctx context.Context, groupID snowflake.ID) ([]domain.Membership, error) {
	group, err := s.groupRepo.FindByID(ctx, s.db, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil || !group.Active {
		return nil, domain.ErrGroupNotFound
	}

	items, err := s.repo.ListActive(ctx, s.db, groupID)
	if err != nil {
		return nil, err
	}
	members := make([]domain.Membership, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		members = append(members, *item)
	}
	return members, nil
}

