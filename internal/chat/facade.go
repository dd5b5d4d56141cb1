package chat

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/groupchat/internal/apperr"
	auditdomain "github.com/smallbiznis/groupchat/internal/audit/domain"
	"github.com/smallbiznis/groupchat/internal/authorization"
	groupdomain "github.com/smallbiznis/groupchat/internal/group/domain"
	membershipdomain "github.com/smallbiznis/groupchat/internal/membership/domain"
	messagedomain "github.com/smallbiznis/groupchat/internal/message/domain"
	"github.com/smallbiznis/groupchat/internal/observability/logger"
	"github.com/smallbiznis/groupchat/internal/observability/tracing"
	"github.com/smallbiznis/groupchat/internal/principal"
	"github.com/smallbiznis/groupchat/internal/ratelimit"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const tracerName = "groupchat/chat"

var (
	ErrUnauthenticated = apperr.Authorization("unauthenticated", "no authenticated principal")
	ErrInvalidGroupID  = apperr.Validation("invalid_group_id", "group id is malformed")
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Groups   groupdomain.Service
	Members  membershipdomain.Service
	Messages messagedomain.Service
	Audit    auditdomain.Service
	Governor *ratelimit.Governor
	Authz    authorization.Service
}

// Facade is the single entry point of the chat core. Mutating calls pass the
// rate governor, then membership authorization, then content screening.
type Facade struct {
	log      *zap.Logger
	tracer   trace.Tracer
	groups   groupdomain.Service
	members  membershipdomain.Service
	messages messagedomain.Service
	audit    auditdomain.Service
	governor *ratelimit.Governor
	authz    authorization.Service
}

func New(p Params) *Facade {
	return &Facade{
		log:      p.Log.Named("chat.facade"),
		tracer:   otel.Tracer(tracerName),
		groups:   p.Groups,
		members:  p.Members,
		messages: p.Messages,
		audit:    p.Audit,
		governor: p.Governor,
		authz:    p.Authz,
	}
}

func (f *Facade) CreateGroup(ctx context.Context, name, description string) (groupdomain.Group, error) {
	ctx, span := f.start(ctx, "CreateGroup", "")
	defer span.End()

	p, err := f.admit(ctx, ratelimit.ActionCreateGroup)
	if err != nil {
		return groupdomain.Group{}, f.fail(ctx, span, err)
	}
	group, err := f.groups.Create(ctx, groupdomain.CreateGroupRequest{
		CreatorID:   p.ID,
		Name:        name,
		Description: description,
	})
	if err != nil {
		return groupdomain.Group{}, f.fail(ctx, span, err)
	}
	span.SetAttributes(attribute.String("chat.group_id", group.ID.String()))
	return group, nil
}

// UpdateGroup changes name and/or description; nil leaves a field as is.
func (f *Facade) UpdateGroup(ctx context.Context, groupID string, name, description *string) (groupdomain.Group, error) {
	ctx, span := f.start(ctx, "UpdateGroup", groupID)
	defer span.End()

	id, p, err := f.prepare(ctx, groupID, ratelimit.ActionUpdateGroup)
	if err != nil {
		return groupdomain.Group{}, f.fail(ctx, span, err)
	}
	group, err := f.groups.Update(ctx, groupdomain.UpdateGroupRequest{
		GroupID:      id,
		ActingUserID: p.ID,
		Name:         name,
		Description:  description,
	})
	if err != nil {
		return groupdomain.Group{}, f.fail(ctx, span, err)
	}
	return group, nil
}

func (f *Facade) DeactivateGroup(ctx context.Context, groupID string) error {
	ctx, span := f.start(ctx, "DeactivateGroup", groupID)
	defer span.End()

	id, p, err := f.prepare(ctx, groupID, ratelimit.ActionDeactivateGroup)
	if err != nil {
		return f.fail(ctx, span, err)
	}
	override, err := f.override(ctx, p, authorization.ObjectGroup, authorization.ActionGroupDeactivate)
	if err != nil {
		return f.fail(ctx, span, err)
	}
	if _, err := f.groups.Deactivate(ctx, groupdomain.DeactivateGroupRequest{
		GroupID:          id,
		ActingUserID:     p.ID,
		OperatorOverride: override,
	}); err != nil {
		return f.fail(ctx, span, err)
	}
	return nil
}

func (f *Facade) JoinGroup(ctx context.Context, groupID string) (membershipdomain.Membership, error) {
	ctx, span := f.start(ctx, "JoinGroup", groupID)
	defer span.End()

	id, p, err := f.prepare(ctx, groupID, ratelimit.ActionJoinGroup)
	if err != nil {
		return membershipdomain.Membership{}, f.fail(ctx, span, err)
	}
	result, err := f.members.Join(ctx, id, p.ID)
	if err != nil {
		return membershipdomain.Membership{}, f.fail(ctx, span, err)
	}
	span.SetAttributes(attribute.Bool("chat.membership_created", result.Created))
	return result.Membership, nil
}

func (f *Facade) LeaveGroup(ctx context.Context, groupID string) (membershipdomain.LeaveResult, error) {
	ctx, span := f.start(ctx, "LeaveGroup", groupID)
	defer span.End()

	id, p, err := f.prepare(ctx, groupID, ratelimit.ActionLeaveGroup)
	if err != nil {
		return membershipdomain.LeaveResult{}, f.fail(ctx, span, err)
	}
	result, err := f.members.Leave(ctx, id, p.ID)
	if err != nil {
		return membershipdomain.LeaveResult{}, f.fail(ctx, span, err)
	}
	return result, nil
}

func (f *Facade) SetRole(ctx context.Context, groupID, targetUserID, role string) (membershipdomain.Membership, error) {
	ctx, span := f.start(ctx, "SetRole", groupID)
	defer span.End()

	id, p, err := f.prepare(ctx, groupID, ratelimit.ActionSetRole)
	if err != nil {
		return membershipdomain.Membership{}, f.fail(ctx, span, err)
	}
	parsed, err := membershipdomain.ParseRole(role)
	if err != nil {
		return membershipdomain.Membership{}, f.fail(ctx, span, err)
	}
	membership, err := f.members.SetRole(ctx, membershipdomain.SetRoleRequest{
		GroupID:      id,
		ActingUserID: p.ID,
		TargetUserID: targetUserID,
		Role:         parsed,
	})
	if err != nil {
		return membershipdomain.Membership{}, f.fail(ctx, span, err)
	}
	return membership, nil
}

func (f *Facade) ListGroupsForUser(ctx context.Context) ([]groupdomain.Summary, error) {
	ctx, span := f.start(ctx, "ListGroupsForUser", "")
	defer span.End()

	p, err := f.principal(ctx)
	if err != nil {
		return nil, f.fail(ctx, span, err)
	}
	items, err := f.groups.ListForUser(ctx, p.ID)
	if err != nil {
		return nil, f.fail(ctx, span, err)
	}
	return items, nil
}

func (f *Facade) DiscoverGroups(ctx context.Context) ([]groupdomain.Summary, error) {
	ctx, span := f.start(ctx, "DiscoverGroups", "")
	defer span.End()

	p, err := f.principal(ctx)
	if err != nil {
		return nil, f.fail(ctx, span, err)
	}
	items, err := f.groups.Discover(ctx, p.ID)
	if err != nil {
		return nil, f.fail(ctx, span, err)
	}
	return items, nil
}

func (f *Facade) GetGroup(ctx context.Context, groupID string) (groupdomain.Details, error) {
	ctx, span := f.start(ctx, "GetGroup", groupID)
	defer span.End()

	id, p, err := f.read(ctx, groupID)
	if err != nil {
		return groupdomain.Details{}, f.fail(ctx, span, err)
	}
	details, err := f.groups.Details(ctx, id, p.ID)
	if err != nil {
		return groupdomain.Details{}, f.fail(ctx, span, err)
	}
	return details, nil
}

func (f *Facade) ListMembers(ctx context.Context, groupID string) ([]membershipdomain.Membership, error) {
	ctx, span := f.start(ctx, "ListMembers", groupID)
	defer span.End()

	id, p, err := f.read(ctx, groupID)
	if err != nil {
		return nil, f.fail(ctx, span, err)
	}
	if _, err := f.requireMember(ctx, id, p.ID); err != nil {
		return nil, f.fail(ctx, span, err)
	}
	members, err := f.members.ListMembers(ctx, id)
	if err != nil {
		return nil, f.fail(ctx, span, err)
	}
	return members, nil
}

func (f *Facade) PostMessage(ctx context.Context, groupID, content, messageType string) (messagedomain.View, error) {
	ctx, span := f.start(ctx, "PostMessage", groupID)
	defer span.End()

	id, p, err := f.prepare(ctx, groupID, ratelimit.ActionPostMessage)
	if err != nil {
		return messagedomain.View{}, f.fail(ctx, span, err)
	}
	msgType, err := messagedomain.ParseType(messageType)
	if err != nil {
		return messagedomain.View{}, f.fail(ctx, span, err)
	}
	view, err := f.messages.Append(ctx, messagedomain.AppendRequest{
		GroupID:  id,
		SenderID: p.ID,
		Content:  content,
		Type:     msgType,
	})
	if err != nil {
		return messagedomain.View{}, f.fail(ctx, span, err)
	}
	span.SetAttributes(attribute.Int64("chat.seq", view.Seq))
	return view, nil
}

func (f *Facade) EditMessage(ctx context.Context, groupID string, seq int64, content string) (messagedomain.View, error) {
	ctx, span := f.start(ctx, "EditMessage", groupID)
	defer span.End()
	span.SetAttributes(attribute.Int64("chat.seq", seq))

	id, p, err := f.prepare(ctx, groupID, ratelimit.ActionEditMessage)
	if err != nil {
		return messagedomain.View{}, f.fail(ctx, span, err)
	}
	view, err := f.messages.Edit(ctx, messagedomain.EditRequest{
		GroupID:      id,
		Seq:          seq,
		ActingUserID: p.ID,
		Content:      content,
	})
	if err != nil {
		return messagedomain.View{}, f.fail(ctx, span, err)
	}
	return view, nil
}

func (f *Facade) DeleteMessage(ctx context.Context, groupID string, seq int64) (messagedomain.View, error) {
	ctx, span := f.start(ctx, "DeleteMessage", groupID)
	defer span.End()
	span.SetAttributes(attribute.Int64("chat.seq", seq))

	id, p, err := f.prepare(ctx, groupID, ratelimit.ActionDeleteMessage)
	if err != nil {
		return messagedomain.View{}, f.fail(ctx, span, err)
	}
	override, err := f.override(ctx, p, authorization.ObjectMessage, authorization.ActionMessageDelete)
	if err != nil {
		return messagedomain.View{}, f.fail(ctx, span, err)
	}
	view, err := f.messages.SoftDelete(ctx, messagedomain.DeleteRequest{
		GroupID:          id,
		Seq:              seq,
		ActingUserID:     p.ID,
		OperatorOverride: override,
	})
	if err != nil {
		return messagedomain.View{}, f.fail(ctx, span, err)
	}
	return view, nil
}

func (f *Facade) ListMessages(ctx context.Context, groupID string, afterSeq int64, limit int) (messagedomain.ListResult, error) {
	ctx, span := f.start(ctx, "ListMessages", groupID)
	defer span.End()

	id, p, err := f.read(ctx, groupID)
	if err != nil {
		return messagedomain.ListResult{}, f.fail(ctx, span, err)
	}
	result, err := f.messages.List(ctx, messagedomain.ListRequest{
		GroupID:  id,
		CallerID: p.ID,
		AfterSeq: afterSeq,
		Limit:    limit,
	})
	if err != nil {
		return messagedomain.ListResult{}, f.fail(ctx, span, err)
	}
	return result, nil
}

func (f *Facade) ReportMessage(ctx context.Context, groupID string, seq int64, reason, description string) (messagedomain.Report, error) {
	ctx, span := f.start(ctx, "ReportMessage", groupID)
	defer span.End()
	span.SetAttributes(attribute.Int64("chat.seq", seq))

	id, p, err := f.prepare(ctx, groupID, ratelimit.ActionReportMessage)
	if err != nil {
		return messagedomain.Report{}, f.fail(ctx, span, err)
	}
	report, err := f.messages.Report(ctx, messagedomain.ReportRequest{
		GroupID:     id,
		Seq:         seq,
		ReporterID:  p.ID,
		Reason:      reason,
		Description: description,
	})
	if err != nil {
		return messagedomain.Report{}, f.fail(ctx, span, err)
	}
	return report, nil
}

// ListAuditLog returns recent audit entries to group admins and operators.
func (f *Facade) ListAuditLog(ctx context.Context, groupID string, limit int) ([]auditdomain.AuditLog, error) {
	ctx, span := f.start(ctx, "ListAuditLog", groupID)
	defer span.End()

	id, p, err := f.read(ctx, groupID)
	if err != nil {
		return nil, f.fail(ctx, span, err)
	}
	override, err := f.override(ctx, p, authorization.ObjectAuditLog, authorization.ActionAuditLogView)
	if err != nil {
		return nil, f.fail(ctx, span, err)
	}
	if !override {
		if _, err := f.groups.Get(ctx, id); err != nil {
			return nil, f.fail(ctx, span, err)
		}
		role, err := f.requireMember(ctx, id, p.ID)
		if err != nil {
			return nil, f.fail(ctx, span, err)
		}
		if role != membershipdomain.RoleAdmin {
			return nil, f.fail(ctx, span, membershipdomain.ErrNotAdmin)
		}
	}
	logs, err := f.audit.ListByGroup(ctx, id, limit)
	if err != nil {
		return nil, f.fail(ctx, span, err)
	}
	return logs, nil
}

type groupIDKey struct{}

func (f *Facade) start(ctx context.Context, op, groupID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("chat.operation", op)}
	if groupID = strings.TrimSpace(groupID); groupID != "" {
		attrs = append(attrs, attribute.String("chat.group_id", groupID))
		ctx = context.WithValue(ctx, groupIDKey{}, groupID)
	}
	return f.tracer.Start(ctx, "chat."+op, trace.WithAttributes(tracing.SafeAttributes(attrs...)...))
}

func (f *Facade) principal(ctx context.Context) (principal.Principal, error) {
	p, ok := principal.FromContext(ctx)
	if !ok {
		return principal.Principal{}, ErrUnauthenticated
	}
	return p, nil
}

func (f *Facade) admit(ctx context.Context, class ratelimit.ActionClass) (principal.Principal, error) {
	p, err := f.principal(ctx)
	if err != nil {
		return principal.Principal{}, err
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("chat.action_class", string(class)))
	if err := f.governor.Admit(ctx, p.ID, class); err != nil {
		return principal.Principal{}, err
	}
	return p, nil
}

// prepare resolves the caller and group id and spends one unit of the
// action's rate budget.
func (f *Facade) prepare(ctx context.Context, groupID string, class ratelimit.ActionClass) (snowflake.ID, principal.Principal, error) {
	id, err := parseGroupID(groupID)
	if err != nil {
		return 0, principal.Principal{}, err
	}
	p, err := f.admit(ctx, class)
	if err != nil {
		return 0, principal.Principal{}, err
	}
	return id, p, nil
}

func (f *Facade) read(ctx context.Context, groupID string) (snowflake.ID, principal.Principal, error) {
	p, err := f.principal(ctx)
	if err != nil {
		return 0, principal.Principal{}, err
	}
	id, err := parseGroupID(groupID)
	if err != nil {
		return 0, principal.Principal{}, err
	}
	return id, p, nil
}

func (f *Facade) requireMember(ctx context.Context, groupID snowflake.ID, userID string) (membershipdomain.Role, error) {
	role, ok, err := f.members.IsActiveMember(ctx, groupID, userID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", membershipdomain.ErrNotMember
	}
	return role, nil
}

func (f *Facade) override(ctx context.Context, p principal.Principal, object, action string) (bool, error) {
	if len(p.Roles) == 0 || f.authz == nil {
		return false, nil
	}
	return f.authz.Override(ctx, p, object, action)
}

// fail records err on the span and turns anything that is not a chat error
// into Unavailable so storage details never reach callers.
func (f *Facade) fail(ctx context.Context, span trace.Span, err error) error {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Unavailable(err)
	}

	span.SetAttributes(attribute.String("chat.error_kind", string(appErr.Kind)))
	log := logger.WithContext(ctx, f.log)
	if groupID, ok := ctx.Value(groupIDKey{}).(string); ok {
		log = logger.WithGroup(log, groupID)
	}
	if appErr.Kind == apperr.KindUnavailable {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, string(appErr.Kind))
		log.Error("chat operation failed", zap.Error(err))
	} else {
		log.Debug("chat operation rejected",
			zap.String("kind", string(appErr.Kind)),
			zap.String("code", appErr.Code),
		)
	}
	return appErr
}

func parseGroupID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, ErrInvalidGroupID
	}
	return id, nil
}
