package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/groupchat/internal/apperr"
	auditdomain "github.com/smallbiznis/groupchat/internal/audit/domain"
	"github.com/smallbiznis/groupchat/internal/clock"
	"github.com/smallbiznis/groupchat/internal/contentgate"
	groupdomain "github.com/smallbiznis/groupchat/internal/group/domain"
	"github.com/smallbiznis/groupchat/internal/keylock"
	membershipdomain "github.com/smallbiznis/groupchat/internal/membership/domain"
	"github.com/smallbiznis/groupchat/internal/message/domain"
	"github.com/smallbiznis/groupchat/internal/observability/metrics"
	"github.com/smallbiznis/groupchat/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const lockResourceSequence = "message-seq"

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Locker         keylock.Locker
	Gate           *contentgate.Gate
	Repo           domain.Repository
	GroupRepo      groupdomain.Repository
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
	groupRepo      groupdomain.Repository
	membershipRepo membershipdomain.Repository
	audit          auditdomain.Service
	metrics        *metrics.Metrics
	lockMetrics    *metrics.LockMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("message.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		locker:         p.Locker,
		gate:           p.Gate,
		repo:           p.Repo,
		groupRepo:      p.GroupRepo,
		membershipRepo: p.MembershipRepo,
		audit:          p.Audit,
		metrics:        p.Metrics,
		lockMetrics:    p.LockMetrics,
	}
}

func (s *Service) Append(ctx context.Context, req domain.AppendRequest) (domain.View, error) {
	msgType, err := domain.ParseType(string(req.Type))
	if err != nil {
		return domain.View{}, err
	}
	sender := strings.TrimSpace(req.SenderID)

	// Reject unauthorized senders before screening or touching the counter.
	if err := s.authorizeSender(ctx, s.db, req.GroupID, sender, msgType); err != nil {
		return domain.View{}, err
	}
	content, err := s.prepare(ctx, req.Content)
	if err != nil {
		return domain.View{}, err
	}

	unlock, err := keylock.Acquire(ctx, s.locker, s.lockMetrics, lockResourceSequence, req.GroupID.String())
	if err != nil {
		return domain.View{}, err
	}
	defer unlock()

	message := domain.Message{
		ID:        s.genID.Generate(),
		GroupID:   req.GroupID,
		SenderID:  sender,
		Content:   content,
		Type:      msgType,
		CreatedAt: s.clock.Now(),
	}
	message.Ref = ulid.MustNew(ulid.Timestamp(message.CreatedAt), ulid.DefaultEntropy()).String()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Membership may have changed while waiting for the lock.
		if err := s.authorizeSender(ctx, tx, req.GroupID, sender, msgType); err != nil {
			return err
		}
		seq, err := s.repo.NextSeq(ctx, tx, req.GroupID)
		if err != nil {
			return err
		}
		message.Seq = seq
		return s.repo.Insert(ctx, tx, &message)
	})
	if err != nil {
		return domain.View{}, err
	}

	s.metrics.RecordMessageAppended(ctx, string(msgType))
	s.log.Debug("message appended",
		zap.String("group_id", req.GroupID.String()),
		zap.Int64("seq", message.Seq),
		zap.String("ref", message.Ref),
	)
	return message.View(), nil
}

func (s *Service) Edit(ctx context.Context, req domain.EditRequest) (domain.View, error) {
	if req.Seq <= 0 {
		return domain.View{}, domain.ErrInvalidSeq
	}
	acting := strings.TrimSpace(req.ActingUserID)

	var edited domain.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.requireMember(ctx, tx, req.GroupID, acting); err != nil {
			return err
		}
		message, err := s.findLive(ctx, tx, req.GroupID, req.Seq)
		if err != nil {
			return err
		}
		if message.SenderID != acting {
			return domain.ErrNotSender
		}

		content, err := s.prepare(ctx, req.Content)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := s.repo.UpdateContent(ctx, tx, message.ID, content, now); err != nil {
			return err
		}
		message.Content = content
		message.Edited = true
		message.EditedAt = &now
		edited = *message
		return nil
	})
	if err != nil {
		return domain.View{}, err
	}
	return edited.View(), nil
}

func (s *Service) SoftDelete(ctx context.Context, req domain.DeleteRequest) (domain.View, error) {
	if req.Seq <= 0 {
		return domain.View{}, domain.ErrInvalidSeq
	}
	acting := strings.TrimSpace(req.ActingUserID)

	var deleted domain.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := s.groupRepo.FindByID(ctx, tx, req.GroupID)
		if err != nil {
			return err
		}
		if group == nil || (!group.Active && !req.OperatorOverride) {
			return domain.ErrGroupNotFound
		}

		actorType := auditdomain.ActorTypeOperator
		var role membershipdomain.Role
		if !req.OperatorOverride {
			membership, err := s.membershipRepo.FindActive(ctx, tx, req.GroupID, acting)
			if err != nil {
				return err
			}
			if membership == nil {
				return domain.ErrNotMember
			}
			role = membership.Role
			actorType = auditdomain.ActorTypeMember
			if role == membershipdomain.RoleAdmin {
				actorType = auditdomain.ActorTypeAdmin
			}
		}

		message, err := s.repo.FindBySeq(ctx, tx, req.GroupID, req.Seq)
		if err != nil {
			return err
		}
		if message == nil {
			return domain.ErrMessageNotFound
		}
		if !req.OperatorOverride && message.SenderID != acting && role != membershipdomain.RoleAdmin {
			return domain.ErrCannotDelete
		}
		if message.Deleted {
			deleted = *message
			return nil
		}

		now := s.clock.Now()
		if err := s.repo.MarkDeleted(ctx, tx, message.ID, acting, now); err != nil {
			return err
		}
		message.Deleted = true
		message.DeletedBy = &acting
		message.DeletedAt = &now
		deleted = *message

		if message.SenderID == acting {
			return nil
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			GroupID:    req.GroupID,
			ActorType:  actorType,
			ActorID:    acting,
			Action:     auditdomain.ActionMessageDeleted,
			TargetType: auditdomain.TargetTypeMessage,
			TargetID:   message.Ref,
			Metadata: map[string]any{
				"seq":       message.Seq,
				"sender_id": message.SenderID,
				"content":   message.Content,
			},
		})
	})
	if err != nil {
		return domain.View{}, err
	}
	return deleted.View(), nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResult, error) {
	if req.AfterSeq < 0 {
		return domain.ListResult{}, domain.ErrInvalidCursor
	}
	limit := req.Limit
	if limit <= 0 {
		limit = domain.DefaultListLimit
	}
	if limit > domain.MaxListLimit {
		limit = domain.MaxListLimit
	}

	if _, err := s.requireMember(ctx, s.db, req.GroupID, strings.TrimSpace(req.CallerID)); err != nil {
		return domain.ListResult{}, err
	}

	items, err := s.repo.ListAfter(ctx, s.db, req.GroupID, req.AfterSeq, limit+1)
	if err != nil {
		return domain.ListResult{}, err
	}

	result := domain.ListResult{NextCursor: req.AfterSeq}
	if len(items) > limit {
		result.HasMore = true
		items = items[:limit]
	}
	result.Messages = make([]domain.View, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		result.Messages = append(result.Messages, item.View())
		result.NextCursor = item.Seq
	}
	return result, nil
}

func (s *Service) Report(ctx context.Context, req domain.ReportRequest) (domain.Report, error) {
	if req.Seq <= 0 {
		return domain.Report{}, domain.ErrInvalidSeq
	}
	reporter := strings.TrimSpace(req.ReporterID)
	reason, err := contentgate.Prepare(req.Reason, domain.MaxReportReasonLength)
	if err != nil {
		return domain.Report{}, domain.ErrInvalidReason
	}
	description, err := contentgate.Prepare(req.Description, domain.MaxReportDescriptionLength)
	if errors.Is(err, contentgate.ErrEmpty) {
		description, err = "", nil
	}
	if err != nil {
		return domain.Report{}, domain.ErrInvalidDescription
	}

	var report domain.Report
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.requireMember(ctx, tx, req.GroupID, reporter); err != nil {
			return err
		}
		message, err := s.findLive(ctx, tx, req.GroupID, req.Seq)
		if err != nil {
			return err
		}
		if message.SenderID == reporter {
			return domain.ErrSelfReport
		}

		report = domain.Report{
			ID:          s.genID.Generate(),
			MessageID:   message.ID,
			GroupID:     req.GroupID,
			Seq:         message.Seq,
			ReportedBy:  reporter,
			Reason:      reason,
			Description: description,
			CreatedAt:   s.clock.Now(),
		}
		if err := s.repo.InsertReport(ctx, tx, &report); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			GroupID:    req.GroupID,
			ActorType:  auditdomain.ActorTypeMember,
			ActorID:    reporter,
			Action:     auditdomain.ActionMessageReported,
			TargetType: auditdomain.TargetTypeMessage,
			TargetID:   message.Ref,
			Metadata: map[string]any{
				"seq":    message.Seq,
				"reason": reason,
			},
		})
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Report{}, domain.ErrAlreadyReported
		}
		return domain.Report{}, err
	}

	s.log.Info("message reported",
		zap.String("group_id", req.GroupID.String()),
		zap.Int64("seq", report.Seq),
		zap.String("reason", reason),
	)
	return report, nil
}

func (s *Service) authorizeSender(ctx context.Context, tx *gorm.DB, groupID snowflake.ID, sender string, msgType domain.Type) error {
	membership, err := s.requireMember(ctx, tx, groupID, sender)
	if err != nil {
		return err
	}
	if msgType == domain.TypeSystem && membership.Role != membershipdomain.RoleAdmin {
		return domain.ErrSystemNeedsAdmin
	}
	return nil
}

// requireMember checks the group is active and userID holds an active
// membership in it.
func (s *Service) requireMember(ctx context.Context, tx *gorm.DB, groupID snowflake.ID, userID string) (*membershipdomain.Membership, error) {
	group, err := s.groupRepo.FindByID(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil || !group.Active {
		return nil, domain.ErrGroupNotFound
	}
	if userID == "" {
		return nil, domain.ErrNotMember
	}
	membership, err := s.membershipRepo.FindActive(ctx, tx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, domain.ErrNotMember
	}
	return membership, nil
}

func (s *Service) findLive(ctx context.Context, tx *gorm.DB, groupID snowflake.ID, seq int64) (*domain.Message, error) {
	message, err := s.repo.FindBySeq(ctx, tx, groupID, seq)
	if err != nil {
		return nil, err
	}
	if message == nil || message.Deleted {
		return nil, domain.ErrMessageNotFound
	}
	return message, nil
}

// prepare normalizes content and runs it through the gate.
func (s *Service) prepare(ctx context.Context, raw string) (string, error) {
	content, err := contentgate.Prepare(raw, domain.MaxContentLength)
	switch {
	case errors.Is(err, contentgate.ErrEmpty):
		return "", domain.ErrEmptyContent
	case err != nil:
		return "", domain.ErrContentTooLong
	}
	if verdict := s.gate.Screen(content); !verdict.Accepted {
		s.metrics.RecordContentRejected(ctx, verdict.Reason)
		return "", apperr.ContentRejected(verdict.Reason)
	}
	return content, nil
}
