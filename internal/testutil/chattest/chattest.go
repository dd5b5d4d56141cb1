// Package chattest wires a complete chat facade over an in-memory database.
package chattest

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditrepository "github.com/smallbiznis/groupchat/internal/audit/repository"
	auditservice "github.com/smallbiznis/groupchat/internal/audit/service"
	"github.com/smallbiznis/groupchat/internal/authorization"
	"github.com/smallbiznis/groupchat/internal/chat"
	"github.com/smallbiznis/groupchat/internal/clock"
	"github.com/smallbiznis/groupchat/internal/contentgate"
	grouprepository "github.com/smallbiznis/groupchat/internal/group/repository"
	groupservice "github.com/smallbiznis/groupchat/internal/group/service"
	"github.com/smallbiznis/groupchat/internal/keylock"
	membershiprepository "github.com/smallbiznis/groupchat/internal/membership/repository"
	membershipservice "github.com/smallbiznis/groupchat/internal/membership/service"
	messagerepository "github.com/smallbiznis/groupchat/internal/message/repository"
	messageservice "github.com/smallbiznis/groupchat/internal/message/service"
	"github.com/smallbiznis/groupchat/internal/ratelimit"
	"github.com/smallbiznis/groupchat/internal/testutil/dbtest"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Epoch is the fake clock's starting instant.
var Epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type Env struct {
	DB     *gorm.DB
	Clock  *clock.FakeClock
	Facade *chat.Facade
}

// New builds a facade with default moderation rules, an in-memory rate
// store and lock table, and the seeded operator policies. rateOverrides
// uses the "<class>": "<limit>/<window>" form.
func New(t testing.TB, rateOverrides map[string]string) *Env {
	t.Helper()
	return NewWithLogger(t, rateOverrides, zap.NewNop())
}

// NewWithLogger is New with every component logging to log.
func NewWithLogger(t testing.TB, rateOverrides map[string]string, log *zap.Logger) *Env {
	t.Helper()

	db := dbtest.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(Epoch)
	locker := keylock.NewMemoryLocker()
	gate := contentgate.NewStatic(contentgate.DefaultRules())

	groupRepo := grouprepository.Provide()
	membershipRepo := membershiprepository.Provide()

	auditSvc := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: auditrepository.Provide(),
	})
	groups := groupservice.New(groupservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Locker: locker, Gate: gate,
		Repo: groupRepo, MembershipRepo: membershipRepo, Audit: auditSvc,
	})
	members := membershipservice.New(membershipservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Locker: locker,
		Repo: membershipRepo, GroupRepo: groupRepo, Audit: auditSvc,
	})
	messages := messageservice.New(messageservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Locker: locker, Gate: gate,
		Repo: messagerepository.Provide(), GroupRepo: groupRepo, MembershipRepo: membershipRepo, Audit: auditSvc,
	})

	policies, err := ratelimit.PoliciesWithOverrides(rateOverrides)
	require.NoError(t, err)
	governor := ratelimit.NewGovernor(ratelimit.NewMemoryStore(clk), policies, log, nil)

	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer})

	return &Env{
		DB:    db,
		Clock: clk,
		Facade: chat.New(chat.Params{
			Log:      log,
			Groups:   groups,
			Members:  members,
			Messages: messages,
			Audit:    auditSvc,
			Governor: governor,
			Authz:    authz,
		}),
	}
}
