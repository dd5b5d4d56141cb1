package chat_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/groupchat/internal/apperr"
	auditdomain "github.com/smallbiznis/groupchat/internal/audit/domain"
	"github.com/smallbiznis/groupchat/internal/contentgate"
	groupdomain "github.com/smallbiznis/groupchat/internal/group/domain"
	membershipdomain "github.com/smallbiznis/groupchat/internal/membership/domain"
	messagedomain "github.com/smallbiznis/groupchat/internal/message/domain"
	"github.com/smallbiznis/groupchat/internal/principal"
	"github.com/smallbiznis/groupchat/internal/testutil/chattest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type harness struct {
	*chattest.Env
}

func newHarness(t *testing.T, rateOverrides map[string]string) *harness {
	t.Helper()
	return &harness{Env: chattest.New(t, rateOverrides)}
}

func as(userID string, roles ...string) context.Context {
	return principal.WithPrincipal(context.Background(), principal.Principal{ID: userID, Roles: roles})
}

func (h *harness) createGroup(t *testing.T, owner, name string) groupdomain.Group {
	t.Helper()
	group, err := h.Facade.CreateGroup(as(owner), name, "")
	require.NoError(t, err)
	return group
}

func (h *harness) join(t *testing.T, groupID snowflake.ID, users ...string) {
	t.Helper()
	for _, user := range users {
		_, err := h.Facade.JoinGroup(as(user), groupID.String())
		require.NoError(t, err)
	}
}

func (h *harness) count(t *testing.T, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.DB.Raw(query, args...).Scan(&n).Error)
	return n
}

// assertRosterInvariants checks that a group with active members has an
// active admin and that no user holds two active memberships.
func (h *harness) assertRosterInvariants(t *testing.T, groupID snowflake.ID) {
	t.Helper()
	active := h.count(t, `SELECT COUNT(*) FROM memberships WHERE group_id = ? AND active = ?`, groupID, true)
	admins := h.count(t, `SELECT COUNT(*) FROM memberships WHERE group_id = ? AND active = ? AND role = ?`, groupID, true, "admin")
	if active > 0 {
		assert.Positive(t, admins, "group with active members has no admin")
	}
	dupes := h.count(t, `SELECT COUNT(*) FROM (
		SELECT user_id FROM memberships WHERE group_id = ? AND active = ?
		GROUP BY user_id HAVING COUNT(*) > 1) d`, groupID, true)
	assert.Zero(t, dupes)
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), "unexpected error: %v", err)
}

func TestSoleAdminAndMemberLeavingDeactivatesGroup(t *testing.T) {
	h := newHarness(t, nil)
	group := h.createGroup(t, "u1", "Foodies")

	details, err := h.Facade.GetGroup(as("u1"), group.ID.String())
	require.NoError(t, err)
	require.Len(t, details.Members, 1)
	assert.Equal(t, membershipdomain.RoleAdmin, details.Members[0].Role)

	result, err := h.Facade.LeaveGroup(as("u1"), group.ID.String())
	require.NoError(t, err)
	assert.True(t, result.GroupDeactivated)

	_, err = h.Facade.GetGroup(as("u1"), group.ID.String())
	requireKind(t, err, apperr.KindNotFound)
	_, err = h.Facade.JoinGroup(as("u2"), group.ID.String())
	requireKind(t, err, apperr.KindNotFound)
	h.assertRosterInvariants(t, group.ID)
}

func TestLastAdminMustPromoteBeforeLeaving(t *testing.T) {
	h := newHarness(t, nil)
	group := h.createGroup(t, "u1", "Foodies")
	h.join(t, group.ID, "u2")

	_, err := h.Facade.LeaveGroup(as("u1"), group.ID.String())
	requireKind(t, err, apperr.KindPrecondition)
	h.assertRosterInvariants(t, group.ID)

	promoted, err := h.Facade.SetRole(as("u1"), group.ID.String(), "u2", "admin")
	require.NoError(t, err)
	assert.Equal(t, membershipdomain.RoleAdmin, promoted.Role)

	result, err := h.Facade.LeaveGroup(as("u1"), group.ID.String())
	require.NoError(t, err)
	assert.False(t, result.GroupDeactivated)

	members, err := h.Facade.ListMembers(as("u2"), group.ID.String())
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "u2", members[0].UserID)
	h.assertRosterInvariants(t, group.ID)
}

func TestConcurrentLeaveAndPromoteKeepAnAdmin(t *testing.T) {
	h := newHarness(t, nil)

	for i := 0; i < 20; i++ {
		group := h.createGroup(t, "u1", fmt.Sprintf("Foodies %d", i))
		h.join(t, group.ID, "u2")

		var wg sync.WaitGroup
		var leaveErr, promoteErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, leaveErr = h.Facade.LeaveGroup(as("u1"), group.ID.String())
		}()
		go func() {
			defer wg.Done()
			_, promoteErr = h.Facade.SetRole(as("u1"), group.ID.String(), "u2", "admin")
		}()
		wg.Wait()

		require.NoError(t, promoteErr)
		activeU1 := h.count(t, `SELECT COUNT(*) FROM memberships WHERE group_id = ? AND user_id = ? AND active = ?`, group.ID, "u1", true)
		adminU2 := h.count(t, `SELECT COUNT(*) FROM memberships WHERE group_id = ? AND user_id = ? AND active = ? AND role = ?`, group.ID, "u2", true, "admin")
		assert.Equal(t, int64(1), adminU2)
		if leaveErr == nil {
			assert.Zero(t, activeU1, "iteration %d: u1 left but is still active", i)
		} else {
			requireKind(t, leaveErr, apperr.KindPrecondition)
			assert.Equal(t, int64(1), activeU1, "iteration %d: failed leave removed u1", i)
		}
		h.assertRosterInvariants(t, group.ID)
	}
}

func TestLengthLimitsApplyToSubmittedText(t *testing.T) {
	h := newHarness(t, nil)

	name := strings.Repeat("a", groupdomain.MaxNameLength-1) + "&"
	group, err := h.Facade.CreateGroup(as("u1"), name, "")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", groupdomain.MaxNameLength-1)+"&amp;", group.Name)

	_, err = h.Facade.CreateGroup(as("u1"), strings.Repeat("a", groupdomain.MaxNameLength+1), "")
	requireKind(t, err, apperr.KindValidation)

	content := strings.Repeat("a", messagedomain.MaxContentLength-1) + "&"
	view, err := h.Facade.PostMessage(as("u1"), group.ID.String(), content, "")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", messagedomain.MaxContentLength-1)+"&amp;", view.Content)

	_, err = h.Facade.PostMessage(as("u1"), group.ID.String(), strings.Repeat("a", messagedomain.MaxContentLength+1), "")
	requireKind(t, err, apperr.KindValidation)
}

func TestSlugIsBuiltFromDisplayText(t *testing.T) {
	h := newHarness(t, nil)

	group := h.createGroup(t, "u1", "Tom & Jerry")
	assert.Equal(t, "Tom &amp; Jerry", group.Name)
	assert.Equal(t, "tom-and-jerry", group.Slug)

	renamed := "<b>Fish</b> & Chips"
	updated, err := h.Facade.UpdateGroup(as("u1"), group.ID.String(), &renamed, nil)
	require.NoError(t, err)
	assert.Equal(t, "fish-and-chips", updated.Slug)
}

func TestConcurrentPostsGetContiguousSequence(t *testing.T) {
	h := newHarness(t, nil)
	group := h.createGroup(t, "u1", "Foodies")
	h.join(t, group.ID, "u2")

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for _, user := range []string{"u1", "u2"} {
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(user string, i int) {
				defer wg.Done()
				_, err := h.Facade.PostMessage(as(user), group.ID.String(), fmt.Sprintf("hello number %d from %s", i, user), "")
				errs <- err
			}(user, i)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var seqs []int64
	var cursor int64
	for {
		page, err := h.Facade.ListMessages(as("u2"), group.ID.String(), cursor, 30)
		require.NoError(t, err)
		for _, m := range page.Messages {
			seqs = append(seqs, m.Seq)
		}
		cursor = page.NextCursor
		if !page.HasMore {
			break
		}
	}

	require.Len(t, seqs, 100)
	for i, seq := range seqs {
		assert.Equal(t, int64(i+1), seq)
	}
}

func TestShoutingIsRejectedLowercaseAccepted(t *testing.T) {
	h := newHarness(t, nil)
	group := h.createGroup(t, "u1", "Foodies")

	_, err := h.Facade.PostMessage(as("u1"), group.ID.String(), "AAAAAAAAAA!!!", "text")
	requireKind(t, err, apperr.KindContentRejected)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, contentgate.ReasonExcessiveCaps, appErr.Reason)

	view, err := h.Facade.PostMessage(as("u1"), group.ID.String(), "aaaaaaaaaa!!!", "text")
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.Seq)
}

func TestNonMemberCannotPost(t *testing.T) {
	h := newHarness(t, nil)
	group := h.createGroup(t, "u1", "Foodies")

	_, err := h.Facade.PostMessage(as("stranger"), group.ID.String(), "hello there", "")
	requireKind(t, err, apperr.KindAuthorization)
	assert.Zero(t, h.count(t, `SELECT COUNT(*) FROM messages WHERE group_id = ?`, group.ID))
}

func TestRateLimitIsCheckedBeforeAuthorization(t *testing.T) {
	h := newHarness(t, map[string]string{"post-message": "1/1h"})
	group := h.createGroup(t, "u1", "Foodies")

	_, err := h.Facade.PostMessage(as("stranger"), group.ID.String(), "hello", "")
	requireKind(t, err, apperr.KindAuthorization)

	_, err = h.Facade.PostMessage(as("stranger"), group.ID.String(), "hello", "")
	requireKind(t, err, apperr.KindRateLimited)
	appErr, _ := apperr.As(err)
	assert.Equal(t, time.Hour, appErr.RetryAfter)

	h.Clock.Advance(time.Hour)
	_, err = h.Facade.PostMessage(as("stranger"), group.ID.String(), "hello", "")
	requireKind(t, err, apperr.KindAuthorization)
}

func TestRejectedCallsLogTheGroup(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := &harness{Env: chattest.NewWithLogger(t, nil, zap.New(core))}
	group := h.createGroup(t, "u1", "Foodies")

	_, err := h.Facade.PostMessage(as("stranger"), group.ID.String(), "hello there", "")
	requireKind(t, err, apperr.KindAuthorization)

	rejected := logs.FilterMessage("chat operation rejected").All()
	require.Len(t, rejected, 1)
	fields := rejected[0].ContextMap()
	assert.Equal(t, group.ID.String(), fields["group_id"])
	assert.Equal(t, "stranger", fields["principal_id"])
}

func TestUnauthenticatedCallsAreRejected(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.Facade.CreateGroup(context.Background(), "Foodies", "")
	requireKind(t, err, apperr.KindAuthorization)
	_, err = h.Facade.ListGroupsForUser(context.Background())
	requireKind(t, err, apperr.KindAuthorization)
}

func TestJoinTwiceReturnsExistingMembership(t *testing.T) {
	h := newHarness(t, nil)
	group := h.createGroup(t, "u1", "Foodies")

	first, err := h.Facade.JoinGroup(as("u2"), group.ID.String())
	require.NoError(t, err)
	second, err := h.Facade.JoinGroup(as("u2"), group.ID.String())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, membershipdomain.RoleMember, second.Role)
	assert.Equal(t, int64(1), h.count(t, `SELECT COUNT(*) FROM memberships WHERE group_id = ? AND user_id = ?`, group.ID, "u2"))
}

func TestConcurrentJoinsCreateOneMembership(t *testing.T) {
	h := newHarness(t, nil)
	group := h.createGroup(t, "u1", "Foodies")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Facade.JoinGroup(as("u2"), group.ID.String())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), h.count(t, `SELECT COUNT(*) FROM memberships WHERE group_id = ? AND user_id = ?`, group.ID, "u2"))
	h.assertRosterInvariants(t, group.ID)
}

func TestRejoinAfterLeaveCreatesNewMembership(t *testing.T) {
	h := newHarness(t, nil)
	group := h.createGroup(t, "u1", "Foodies")
	h.join(t, group.ID, "u2")

	_, err := h.Facade.LeaveGroup(as("u2"), group.ID.String())
	require.NoError(t, err)
	_, err = h.Facade.LeaveGroup(as("u2"), group.ID.String())
	requireKind(t, err, apperr.KindAuthorization)

	h.join(t, group.ID, "u2")
	assert.Equal(t, int64(2), h.count(t, `SELECT COUNT(*) FROM memberships WHERE group_id = ? AND user_id = ?`, group.ID, "u2"))
	h.assertRosterInvariants(t, group.ID)
}

func TestSetRole(t *testing.T) {
	h := newHarness(t, nil)
	group := h.createGroup(t, "u1", "Foodies")
	h.join(t, group.ID, "u2", "u3")
	gid := group.ID.String()

	_, err := h.Facade.SetRole(as("u2"), gid, "u3", "admin")
	requireKind(t, err, apperr.KindAuthorization)

	_, err = h.Facade.SetRole(as("u1"), gid, "nobody", "admin")
	requireKind(t, err, apperr.KindNotFound)

	_, err = h.Facade.SetRole(as("u1"), gid, "u2", "owner")
	requireKind(t, err, apperr.KindValidation)

	_, err = h.Facade.SetRole(as("u1"), gid, "u1", "member")
	requireKind(t, err, apperr.KindPrecondition)

	_, err = h.Facade.SetRole(as("u1"), gid, "u2", "admin")
	require.NoError(t, err)
	demoted, err := h.Facade.SetRole(as("u2"), gid, "u1", "member")
	require.NoError(t, err)
	assert.Equal(t, membershipdomain.RoleMember, demoted.Role)
	h.assertRosterInvariants(t, group.ID)

	logs, err := h.Facade.ListAuditLog(as("u2"), gid, 10)
	require.NoError(t, err)
	var roleChanges int
	for _, entry := range logs {
		if entry.Action == auditdomain.ActionMemberRoleChanged {
			roleChanges++
		}
	}
	assert.Equal(t, 2, roleChanges)
}

func TestUpdateGroupErrorOrder(t *testing.T) {
	h := newHarness(t, nil)
	group := h.createGroup(t, "u1", "Foodies")
	h.join(t, group.ID, "u2")
	gid := group.ID.String()
	empty := ""
	name := "Late Night Foodies"

	_, err := h.Facade.UpdateGroup(as("u1"), "12345", &name, nil)
	requireKind(t, err, apperr.KindNotFound)

	_, err = h.Facade.UpdateGroup(as("u2"), gid, &empty, nil)
	requireKind(t, err, apperr.KindAuthorization)

	_, err = h.Facade.UpdateGroup(as("u1"), gid, &empty, nil)
	requireKind(t, err, apperr.KindValidation)

	_, err = h.Facade.UpdateGroup(as("u1"), "not-a-number", &name, nil)
	requireKind(t, err, apperr.KindValidation)

	updated, err := h.Facade.UpdateGroup(as("u1"), gid, &name, nil)
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, "late-night-foodies", updated.Slug)
	assert.False(t, updated.UpdatedAt.Before(group.UpdatedAt))
}

func TestCreateGroupValidation(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.Facade.CreateGroup(as("u1"), "   ", "")
	requireKind(t, err, apperr.KindValidation)

	_, err = h.Facade.CreateGroup(as("u1"), "<b></b>", "")
	requireKind(t, err, apperr.KindValidation)

	_, err = h.Facade.CreateGroup(as("u1"), "Foodies", string(make([]rune, 1001)))
	requireKind(t, err, apperr.KindValidation)

	_, err = h.Facade.CreateGroup(as("u1"), "SCAM CENTRAL HQ", "")
	requireKind(t, err, apperr.KindContentRejected)

	group, err := h.Facade.CreateGroup(as("u1"), "<i>Foodies</i>", "  Best <b>tacos</b> in town ")
	require.NoError(t, err)
	assert.Equal(t, "Foodies", group.Name)
	assert.Equal(t, "Best tacos in town", group.Description)
	assert.True(t, group.Active)
}

func TestDeactivateGroup(t *testing.T) {
	h := newHarness(t, nil)
	group := h.createGroup(t, "u1", "Foodies")
	h.join(t, group.ID, "u2", "u3")
	gid := group.ID.String()

	requireKind(t, h.Facade.DeactivateGroup(as("u2"), gid), apperr.KindAuthorization)
	require.NoError(t, h.Facade.DeactivateGroup(as("u1"), gid))
	require.NoError(t, h.Facade.DeactivateGroup(as("u1"), gid))
	requireKind(t, h.Facade.DeactivateGroup(as("u2"), gid), apperr.KindAuthorization)

	assert.Zero(t, h.count(t, `SELECT COUNT(*) FROM memberships WHERE group_id = ? AND active = ?`, group.ID, true))
	_, err := h.Facade.PostMessage(as("u1"), gid, "anyone here?", "")
	requireKind(t, err, apperr.KindNotFound)

	listed, err := h.Facade.ListGroupsForUser(as("u2"))
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestOperatorOverride(t *testing.T) {
	h := newHarness(t, nil)
	group := h.createGroup(t, "u1", "Foodies")
	h.join(t, group.ID, "u2")
	gid := group.ID.String()

	posted, err := h.Facade.PostMessage(as("u2"), gid, "hello from u2", "")
	require.NoError(t, err)

	_, err = h.Facade.DeleteMessage(as("mod", "member"), gid, posted.Seq)
	requireKind(t, err, apperr.KindAuthorization)

	deleted, err := h.Facade.DeleteMessage(as("mod", principal.RoleOperator), gid, posted.Seq)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)

	logs, err := h.Facade.ListAuditLog(as("mod", principal.RoleOperator), gid, 0)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, auditdomain.ActionMessageDeleted, logs[0].Action)
	assert.Equal(t, string(auditdomain.ActorTypeOperator), logs[0].ActorType)

	require.NoError(t, h.Facade.DeactivateGroup(as("mod", principal.RoleOperator), gid))
	require.NoError(t, h.Facade.DeactivateGroup(as("mod", principal.RoleOperator), gid))
	assert.Zero(t, h.count(t, `SELECT COUNT(*) FROM memberships WHERE group_id = ? AND active = ?`, group.ID, true))
}

func TestEditMessage(t *testing.T) {
	h := newHarness(t, nil)
	group := h.createGroup(t, "u1", "Foodies")
	h.join(t, group.ID, "u2")
	gid := group.ID.String()

	posted, err := h.Facade.PostMessage(as("u2"), gid, "tacos at six", "")
	require.NoError(t, err)

	_, err = h.Facade.EditMessage(as("u1"), gid, posted.Seq, "tacos at seven")
	requireKind(t, err, apperr.KindAuthorization)

	_, err = h.Facade.EditMessage(as("u2"), gid, posted.Seq, "this is a scam")
	requireKind(t, err, apperr.KindContentRejected)

	_, err = h.Facade.EditMessage(as("u2"), gid, 99, "tacos at seven")
	requireKind(t, err, apperr.KindNotFound)

	edited, err := h.Facade.EditMessage(as("u2"), gid, posted.Seq, "tacos at seven")
	require.NoError(t, err)
	assert.Equal(t, posted.Seq, edited.Seq)
	assert.Equal(t, posted.Ref, edited.Ref)
	assert.Equal(t, "u2", edited.SenderID)
	assert.Equal(t, "tacos at seven", edited.Content)
	assert.True(t, edited.Edited)
	require.NotNil(t, edited.EditedAt)
}

func TestDeleteLeavesTombstone(t *testing.T) {
	h := newHarness(t, nil)
	group := h.createGroup(t, "u1", "Foodies")
	h.join(t, group.ID, "u2", "u3")
	gid := group.ID.String()

	for _, text := range []string{"first post", "second post", "third post"} {
		_, err := h.Facade.PostMessage(as("u2"), gid, text, "")
		require.NoError(t, err)
	}

	_, err := h.Facade.DeleteMessage(as("u3"), gid, 2)
	requireKind(t, err, apperr.KindAuthorization)

	_, err = h.Facade.DeleteMessage(as("u2"), gid, 2)
	require.NoError(t, err)
	_, err = h.Facade.DeleteMessage(as("u1"), gid, 2)
	require.NoError(t, err)
	_, err = h.Facade.DeleteMessage(as("u1"), gid, 3)
	require.NoError(t, err)

	_, err = h.Facade.EditMessage(as("u2"), gid, 2, "resurrected")
	requireKind(t, err, apperr.KindNotFound)

	page, err := h.Facade.ListMessages(as("u3"), gid, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Messages, 3)
	assert.Equal(t, "first post", page.Messages[0].Content)
	for _, m := range page.Messages[1:] {
		assert.True(t, m.Deleted)
		assert.Empty(t, m.Content)
		assert.Equal(t, "u2", m.SenderID)
	}
	assert.Equal(t, []int64{1, 2, 3}, []int64{page.Messages[0].Seq, page.Messages[1].Seq, page.Messages[2].Seq})
	assert.False(t, page.HasMore)
	assert.Equal(t, int64(3), page.NextCursor)
}

func TestListMessagesRequiresMembership(t *testing.T) {
	h := newHarness(t, nil)
	group := h.createGroup(t, "u1", "Foodies")

	_, err := h.Facade.ListMessages(as("stranger"), group.ID.String(), 0, 10)
	requireKind(t, err, apperr.KindAuthorization)
	_, err = h.Facade.ListMessages(as("u1"), group.ID.String(), -1, 10)
	requireKind(t, err, apperr.KindValidation)
}

func TestSystemMessagesRequireAdmin(t *testing.T) {
	h := newHarness(t, nil)
	group := h.createGroup(t, "u1", "Foodies")
	h.join(t, group.ID, "u2")
	gid := group.ID.String()

	_, err := h.Facade.PostMessage(as("u2"), gid, "Welcome everyone", "system")
	requireKind(t, err, apperr.KindAuthorization)

	view, err := h.Facade.PostMessage(as("u1"), gid, "Welcome everyone", "system")
	require.NoError(t, err)
	assert.Equal(t, messagedomain.TypeSystem, view.Type)

	_, err = h.Facade.PostMessage(as("u1"), gid, "hi", "image")
	requireKind(t, err, apperr.KindValidation)
}

func TestReportMessage(t *testing.T) {
	h := newHarness(t, nil)
	group := h.createGroup(t, "u1", "Foodies")
	h.join(t, group.ID, "u2")
	gid := group.ID.String()

	posted, err := h.Facade.PostMessage(as("u2"), gid, "buy my stuff at my shop", "")
	require.NoError(t, err)

	_, err = h.Facade.ReportMessage(as("u2"), gid, posted.Seq, "spam", "")
	requireKind(t, err, apperr.KindValidation)

	_, err = h.Facade.ReportMessage(as("u1"), gid, posted.Seq, "", "")
	requireKind(t, err, apperr.KindValidation)

	report, err := h.Facade.ReportMessage(as("u1"), gid, posted.Seq, "spam", "keeps advertising")
	require.NoError(t, err)
	assert.Equal(t, posted.Seq, report.Seq)
	assert.Equal(t, "u1", report.ReportedBy)

	_, err = h.Facade.ReportMessage(as("u1"), gid, posted.Seq, "spam", "")
	requireKind(t, err, apperr.KindConflict)

	_, err = h.Facade.ReportMessage(as("u1"), gid, 42, "spam", "")
	requireKind(t, err, apperr.KindNotFound)
}

func TestListAndDiscoverGroups(t *testing.T) {
	h := newHarness(t, nil)
	foodies := h.createGroup(t, "u1", "Foodies")
	hikers := h.createGroup(t, "u2", "Hikers")
	h.join(t, foodies.ID, "u2", "u3")

	mine, err := h.Facade.ListGroupsForUser(as("u2"))
	require.NoError(t, err)
	require.Len(t, mine, 2)
	byID := map[snowflake.ID]groupdomain.Summary{}
	for _, s := range mine {
		byID[s.ID] = s
	}
	assert.Equal(t, "member", byID[foodies.ID].Role)
	assert.Equal(t, int64(3), byID[foodies.ID].MemberCount)
	assert.Equal(t, "admin", byID[hikers.ID].Role)
	assert.Equal(t, int64(1), byID[hikers.ID].MemberCount)

	discovered, err := h.Facade.DiscoverGroups(as("u3"))
	require.NoError(t, err)
	require.Len(t, discovered, 2)
	for _, s := range discovered {
		if s.ID == hikers.ID {
			assert.Equal(t, groupdomain.RoleNone, s.Role)
		} else {
			assert.Equal(t, "member", s.Role)
		}
	}

	_, err = h.Facade.ListMembers(as("u3"), hikers.ID.String())
	requireKind(t, err, apperr.KindAuthorization)
	_, err = h.Facade.ListAuditLog(as("u3"), foodies.ID.String(), 10)
	requireKind(t, err, apperr.KindAuthorization)
}
