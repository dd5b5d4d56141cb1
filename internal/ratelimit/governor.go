package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/groupchat/internal/apperr"
	"github.com/smallbiznis/groupchat/internal/observability/metrics"
	"go.uber.org/zap"
)

// ActionClass names a family of operations that share one budget.
type ActionClass string

const (
	ActionCreateGroup     ActionClass = "create-group"
	ActionUpdateGroup     ActionClass = "update-group"
	ActionDeactivateGroup ActionClass = "deactivate-group"
	ActionJoinGroup       ActionClass = "join-group"
	ActionLeaveGroup      ActionClass = "leave-group"
	ActionSetRole         ActionClass = "set-role"
	ActionPostMessage     ActionClass = "post-message"
	ActionEditMessage     ActionClass = "edit-message"
	ActionDeleteMessage   ActionClass = "delete-message"
	ActionReportMessage   ActionClass = "report-message"
)

// Policy allows Limit hits per fixed Window.
type Policy struct {
	Limit  int
	Window time.Duration
}

func (p Policy) String() string {
	return fmt.Sprintf("%d/%s", p.Limit, p.Window)
}

// ParsePolicy reads "<limit>/<window>", e.g. "100/1h" or "5/30s".
func ParsePolicy(raw string) (Policy, error) {
	limitRaw, windowRaw, ok := strings.Cut(strings.TrimSpace(raw), "/")
	if !ok {
		return Policy{}, fmt.Errorf("rate policy %q: expected <limit>/<window>", raw)
	}
	limit, err := strconv.Atoi(strings.TrimSpace(limitRaw))
	if err != nil || limit <= 0 {
		return Policy{}, fmt.Errorf("rate policy %q: limit must be a positive integer", raw)
	}
	window, err := time.ParseDuration(strings.TrimSpace(windowRaw))
	if err != nil || window <= 0 {
		return Policy{}, fmt.Errorf("rate policy %q: window must be a positive duration", raw)
	}
	return Policy{Limit: limit, Window: window}, nil
}

// DefaultPolicies are hourly budgets per principal.
func DefaultPolicies() map[ActionClass]Policy {
	hourly := func(n int) Policy { return Policy{Limit: n, Window: time.Hour} }
	return map[ActionClass]Policy{
		ActionCreateGroup:     hourly(50),
		ActionUpdateGroup:     hourly(50),
		ActionDeactivateGroup: hourly(50),
		ActionJoinGroup:       hourly(50),
		ActionLeaveGroup:      hourly(50),
		ActionSetRole:         hourly(50),
		ActionPostMessage:     hourly(100),
		ActionEditMessage:     hourly(100),
		ActionDeleteMessage:   hourly(100),
		ActionReportMessage:   hourly(10),
	}
}

// PoliciesWithOverrides layers "<class>": "<policy>" overrides on the
// defaults.
func PoliciesWithOverrides(overrides map[string]string) (map[ActionClass]Policy, error) {
	policies := DefaultPolicies()
	for class, raw := range overrides {
		policy, err := ParsePolicy(raw)
		if err != nil {
			return nil, err
		}
		policies[ActionClass(strings.TrimSpace(class))] = policy
	}
	return policies, nil
}

// Store counts hits in fixed windows. Incr must be atomic per key.
type Store interface {
	// Incr records one hit for key and returns the hit count in the current
	// window and the time left until that window resets.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Governor enforces per-principal, per-action-class budgets.
type Governor struct {
	store    Store
	policies map[ActionClass]Policy
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewGovernor(store Store, policies map[ActionClass]Policy, log *zap.Logger, m *metrics.Metrics) *Governor {
	if log == nil {
		log = zap.NewNop()
	}
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &Governor{
		store:    store,
		policies: policies,
		log:      log.Named("ratelimit.governor"),
		metrics:  m,
	}
}

// Check counts one hit and reports whether it fits the budget. Classes
// without a policy are unlimited.
func (g *Governor) Check(ctx context.Context, principalID string, class ActionClass) (Decision, error) {
	policy, ok := g.policies[class]
	if !ok {
		return Decision{Allowed: true}, nil
	}

	count, resetIn, err := g.store.Incr(ctx, key(principalID, class), policy.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit store: %w", err)
	}

	remaining := policy.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	d := Decision{
		Allowed:   count <= int64(policy.Limit),
		Limit:     policy.Limit,
		Remaining: remaining,
	}
	if !d.Allowed {
		d.RetryAfter = resetIn
	}
	return d, nil
}

// Admit returns nil when the call may proceed, a RateLimited error with the
// retry-after hint when the budget is spent, and an Unavailable error when
// the counter store fails.
func (g *Governor) Admit(ctx context.Context, principalID string, class ActionClass) error {
	if g == nil {
		return nil
	}
	d, err := g.Check(ctx, principalID, class)
	if err != nil {
		g.log.Error("rate limit check failed", zap.String("action_class", string(class)), zap.Error(err))
		return apperr.Unavailable(err)
	}
	if !d.Allowed {
		g.metrics.RecordRateLimitDenied(ctx, string(class))
		g.log.Debug("rate limited",
			zap.String("principal_id", principalID),
			zap.String("action_class", string(class)),
			zap.Duration("retry_after", d.RetryAfter),
		)
		return apperr.RateLimited(string(class), d.RetryAfter)
	}
	g.metrics.RecordRateLimitAllowed(ctx, string(class))
	return nil
}

func key(principalID string, class ActionClass) string {
	return "ratelimit:" + string(class) + ":" + strings.TrimSpace(principalID)
}
