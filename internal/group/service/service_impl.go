package service

import (
	"context"
	"errors"
	"html"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/groupchat/internal/apperr"
	auditdomain "github.com/smallbiznis/groupchat/internal/audit/domain"
	"github.com/smallbiznis/groupchat/internal/clock"
	"github.com/smallbiznis/groupchat/internal/contentgate"
	"github.com/smallbiznis/groupchat/internal/group/domain"
	"github.com/smallbiznis/groupchat/internal/keylock"
	membershipdomain "github.com/smallbiznis/groupchat/internal/membership/domain"
	"github.com/smallbiznis/groupchat/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Locker         keylock.Locker
	Gate           *contentgate.Gate
	Repo           domain.Repository
	MembershipRepo membershipdomain.Repository
	Audit          auditdomain.Service
	Metrics        *metrics.Metrics     `optional:"true"`
	LockMetrics    *metrics.LockMetrics `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	locker         keylock.Locker
	gate           *contentgate.Gate
	repo           domain.Repository
	membershipRepo membershipdomain.Repository
	audit          auditdomain.Service
	metrics        *metrics.Metrics
	lockMetrics    *metrics.LockMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("group.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		locker:         p.Locker,
		gate:           p.Gate,
		repo:           p.Repo,
		membershipRepo: p.MembershipRepo,
		audit:          p.Audit,
		metrics:        p.Metrics,
		lockMetrics:    p.LockMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateGroupRequest) (domain.Group, error) {
	creatorID := strings.TrimSpace(req.CreatorID)
	if creatorID == "" {
		return domain.Group{}, domain.ErrInvalidCreator
	}
	name, err := prepareName(req.Name)
	if err != nil {
		return domain.Group{}, err
	}
	description, err := prepareDescription(req.Description)
	if err != nil {
		return domain.Group{}, err
	}
	if err := s.screen(ctx, name, description); err != nil {
		return domain.Group{}, err
	}

	now := s.clock.Now()
	group := domain.Group{
		ID:          s.genID.Generate(),
		Name:        name,
		Description: description,
		CreatedBy:   creatorID,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	group.Slug = slugFor(group.Name, group.ID)

	founder := membershipdomain.Membership{
		ID:         s.genID.Generate(),
		GroupID:    group.ID,
		UserID:     creatorID,
		Role:       membershipdomain.RoleAdmin,
		Active:     true,
		ActiveSlot: membershipdomain.ActiveSlotFor(group.ID, creatorID),
		JoinedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &group); err != nil {
			return err
		}
		if err := s.membershipRepo.Insert(ctx, tx, &founder); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			GroupID:    group.ID,
			ActorType:  auditdomain.ActorTypeAdmin,
			ActorID:    creatorID,
			Action:     auditdomain.ActionGroupCreated,
			TargetType: auditdomain.TargetTypeGroup,
			TargetID:   group.ID.String(),
			Metadata:   map[string]any{"name": group.Name},
		})
	})
	if err != nil {
		return domain.Group{}, err
	}

	s.metrics.RecordGroupLifecycle(ctx, "created")
	s.log.Info("group created",
		zap.String("group_id", group.ID.String()),
		zap.String("created_by", creatorID),
	)
	return group, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateGroupRequest) (domain.Group, error) {
	acting := strings.TrimSpace(req.ActingUserID)

	var updated domain.Group
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := s.repo.FindByIDForUpdate(ctx, tx, req.GroupID)
		if err != nil {
			return err
		}
		if group == nil || !group.Active {
			return domain.ErrNotFound
		}

		actor, err := s.membershipRepo.FindActive(ctx, tx, req.GroupID, acting)
		if err != nil {
			return err
		}
		if actor == nil || !actor.IsAdmin() {
			return domain.ErrNotAdmin
		}

		if req.Name == nil && req.Description == nil {
			return domain.ErrNoChanges
		}
		changed := map[string]any{}
		if req.Name != nil {
			name, err := prepareName(*req.Name)
			if err != nil {
				return err
			}
			if name != group.Name {
				changed["name"] = name
			}
			group.Name = name
			group.Slug = slugFor(name, group.ID)
		}
		if req.Description != nil {
			description, err := prepareDescription(*req.Description)
			if err != nil {
				return err
			}
			if description != group.Description {
				changed["description"] = description
			}
			group.Description = description
		}
		if err := s.screen(ctx, group.Name, group.Description); err != nil {
			return err
		}

		group.UpdatedAt = s.clock.Now()
		if err := s.repo.UpdateProfile(ctx, tx, group); err != nil {
			return err
		}
		updated = *group

		return s.audit.Record(ctx, tx, auditdomain.Entry{
			GroupID:    group.ID,
			ActorType:  auditdomain.ActorTypeAdmin,
			ActorID:    acting,
			Action:     auditdomain.ActionGroupUpdated,
			TargetType: auditdomain.TargetTypeGroup,
			TargetID:   group.ID.String(),
			Metadata:   changed,
		})
	})
	if err != nil {
		return domain.Group{}, err
	}

	s.metrics.RecordGroupLifecycle(ctx, "updated")
	return updated, nil
}

func (s *Service) Deactivate(ctx context.Context, req domain.DeactivateGroupRequest) (bool, error) {
	acting := strings.TrimSpace(req.ActingUserID)

	unlock, err := keylock.Acquire(ctx, s.locker, s.lockMetrics, membershipdomain.LockResourceRoster, req.GroupID.String())
	if err != nil {
		return false, err
	}
	defer unlock()

	var (
		changed bool
		closed  int64
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := s.repo.FindByIDForUpdate(ctx, tx, req.GroupID)
		if err != nil {
			return err
		}
		if group == nil {
			return domain.ErrNotFound
		}

		actorType := auditdomain.ActorTypeOperator
		if !req.OperatorOverride {
			allowed, err := s.canDeactivate(ctx, tx, group, acting)
			if err != nil {
				return err
			}
			if !allowed {
				return domain.ErrNotAdmin
			}
			actorType = auditdomain.ActorTypeAdmin
		}
		if !group.Active {
			return nil
		}

		now := s.clock.Now()
		changed, err = s.repo.Deactivate(ctx, tx, group.ID, now)
		if err != nil || !changed {
			return err
		}
		closed, err = s.membershipRepo.DeactivateAllForGroup(ctx, tx, group.ID, now)
		if err != nil {
			return err
		}

		return s.audit.Record(ctx, tx, auditdomain.Entry{
			GroupID:    group.ID,
			ActorType:  actorType,
			ActorID:    acting,
			Action:     auditdomain.ActionGroupDeactivated,
			TargetType: auditdomain.TargetTypeGroup,
			TargetID:   group.ID.String(),
			Metadata:   map[string]any{"memberships_closed": closed},
		})
	})
	if err != nil {
		return false, err
	}

	if changed {
		s.metrics.RecordGroupLifecycle(ctx, "deactivated")
		s.log.Info("group deactivated",
			zap.String("group_id", req.GroupID.String()),
			zap.String("actor_id", acting),
			zap.Bool("operator_override", req.OperatorOverride),
			zap.Int64("memberships_closed", closed),
		)
	}
	return changed, nil
}

// canDeactivate accepts an active admin, or on an already inactive group the
// user who was an admin when it closed, so retries stay no-ops.
func (s *Service) canDeactivate(ctx context.Context, tx *gorm.DB, group *domain.Group, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	if group.Active {
		actor, err := s.membershipRepo.FindActive(ctx, tx, group.ID, userID)
		if err != nil {
			return false, err
		}
		return actor != nil && actor.IsAdmin(), nil
	}
	latest, err := s.membershipRepo.FindLatest(ctx, tx, group.ID, userID)
	if err != nil {
		return false, err
	}
	return latest != nil && latest.Role == membershipdomain.RoleAdmin, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Group, error) {
	group, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Group{}, err
	}
	if group == nil {
		return domain.Group{}, domain.ErrNotFound
	}
	return *group, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]domain.Summary, error) {
	items, err := s.repo.ListForUser(ctx, s.db, strings.TrimSpace(userID))
	if err != nil {
		return nil, err
	}
	return summaries(items), nil
}

func (s *Service) Discover(ctx context.Context, userID string) ([]domain.Summary, error) {
	items, err := s.repo.ListActive(ctx, s.db, strings.TrimSpace(userID))
	if err != nil {
		return nil, err
	}
	out := summaries(items)
	for i := range out {
		if out[i].Role == "" {
			out[i].Role = domain.RoleNone
		}
	}
	return out, nil
}

func (s *Service) Details(ctx context.Context, id snowflake.ID, callerID string) (domain.Details, error) {
	group, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Details{}, err
	}
	if group == nil || !group.Active {
		return domain.Details{}, domain.ErrNotFound
	}

	caller, err := s.membershipRepo.FindActive(ctx, s.db, id, strings.TrimSpace(callerID))
	if err != nil {
		return domain.Details{}, err
	}
	if caller == nil {
		return domain.Details{}, domain.ErrNotMember
	}

	items, err := s.membershipRepo.ListActive(ctx, s.db, id)
	if err != nil {
		return domain.Details{}, err
	}
	members := make([]membershipdomain.Membership, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		members = append(members, *item)
	}
	return domain.Details{Group: *group, Role: caller.Role, Members: members}, nil
}

func (s *Service) screen(ctx context.Context, texts ...string) error {
	for _, text := range texts {
		if verdict := s.gate.Screen(text); !verdict.Accepted {
			s.metrics.RecordContentRejected(ctx, verdict.Reason)
			return apperr.ContentRejected(verdict.Reason)
		}
	}
	return nil
}

func prepareName(raw string) (string, error) {
	name, err := contentgate.Prepare(raw, domain.MaxNameLength)
	if err != nil {
		return "", domain.ErrInvalidName
	}
	return name, nil
}

func prepareDescription(raw string) (string, error) {
	description, err := contentgate.Prepare(raw, domain.MaxDescriptionLength)
	switch {
	case errors.Is(err, contentgate.ErrEmpty):
		return "", nil
	case err != nil:
		return "", domain.ErrInvalidDescription
	}
	return description, nil
}

const maxSlugLength = 255

// slugFor derives the slug from the unescaped display text, so "Tom & Jerry"
// becomes tom-and-jerry rather than carrying the stored entity.
func slugFor(name string, id snowflake.ID) string {
	s := slug.Make(html.UnescapeString(name))
	if len(s) > maxSlugLength {
		s = strings.TrimRight(s[:maxSlugLength], "-")
	}
	if s == "" {
		return id.String()
	}
	return s
}

func summaries(items []*domain.Summary) []domain.Summary {
	out := make([]domain.Summary, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out
}
