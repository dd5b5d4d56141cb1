package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/groupchat/internal/apperr"
	"github.com/smallbiznis/groupchat/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type storeMock struct {
	mock.Mock
}

func (m *storeMock) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	args := m.Called(ctx, key, window)
	return args.Get(0).(int64), args.Get(1).(time.Duration), args.Error(2)
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		raw     string
		want    Policy
		wantErr bool
	}{
		{raw: "100/1h", want: Policy{Limit: 100, Window: time.Hour}},
		{raw: " 5 / 30s ", want: Policy{Limit: 5, Window: 30 * time.Second}},
		{raw: "100", wantErr: true},
		{raw: "0/1h", wantErr: true},
		{raw: "10/-1s", wantErr: true},
		{raw: "x/1h", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParsePolicy(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPoliciesWithOverrides(t *testing.T) {
	policies, err := PoliciesWithOverrides(map[string]string{"post-message": "3/1m"})
	require.NoError(t, err)
	assert.Equal(t, Policy{Limit: 3, Window: time.Minute}, policies[ActionPostMessage])
	assert.Equal(t, Policy{Limit: 10, Window: time.Hour}, policies[ActionReportMessage])

	_, err = PoliciesWithOverrides(map[string]string{"post-message": "bad"})
	require.Error(t, err)
}

func TestGovernorFixedWindow(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	gov := NewGovernor(NewMemoryStore(fake), map[ActionClass]Policy{
		ActionPostMessage: {Limit: 2, Window: time.Minute},
	}, zap.NewNop(), nil)
	ctx := context.Background()

	require.NoError(t, gov.Admit(ctx, "u1", ActionPostMessage))
	fake.Advance(10 * time.Second)
	require.NoError(t, gov.Admit(ctx, "u1", ActionPostMessage))

	err := gov.Admit(ctx, "u1", ActionPostMessage)
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindRateLimited, e.Kind)
	assert.Equal(t, 50*time.Second, e.RetryAfter)

	// Other principals and classes have their own budgets.
	require.NoError(t, gov.Admit(ctx, "u2", ActionPostMessage))
	require.NoError(t, gov.Admit(ctx, "u1", ActionJoinGroup))

	fake.Advance(50 * time.Second)
	require.NoError(t, gov.Admit(ctx, "u1", ActionPostMessage))
}

func TestGovernorCheckReportsRemaining(t *testing.T) {
	gov := NewGovernor(NewMemoryStore(clock.NewFakeClock(time.Unix(0, 0))), map[ActionClass]Policy{
		ActionJoinGroup: {Limit: 3, Window: time.Hour},
	}, nil, nil)

	d, err := gov.Check(context.Background(), "u1", ActionJoinGroup)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 3, d.Limit)
	assert.Equal(t, 2, d.Remaining)
	assert.Zero(t, d.RetryAfter)
}

func TestGovernorStoreFailureIsUnavailable(t *testing.T) {
	store := &storeMock{}
	store.On("Incr", mock.Anything, "ratelimit:post-message:u1", time.Hour).
		Return(int64(0), time.Duration(0), errors.New("connection refused"))

	gov := NewGovernor(store, nil, zap.NewNop(), nil)
	err := gov.Admit(context.Background(), "u1", ActionPostMessage)

	assert.True(t, apperr.Is(err, apperr.KindUnavailable))
	store.AssertExpectations(t)
}

func TestGovernorUnknownClassIsUnlimited(t *testing.T) {
	store := &storeMock{}
	gov := NewGovernor(store, map[ActionClass]Policy{}, nil, nil)

	require.NoError(t, gov.Admit(context.Background(), "u1", ActionClass("list-messages")))
	store.AssertNotCalled(t, "Incr", mock.Anything, mock.Anything, mock.Anything)
}

func TestGovernorConcurrentAdmissionsNeverExceedLimit(t *testing.T) {
	gov := NewGovernor(NewMemoryStore(clock.NewFakeClock(time.Unix(0, 0))), map[ActionClass]Policy{
		ActionPostMessage: {Limit: 25, Window: time.Hour},
	}, nil, nil)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if gov.Admit(context.Background(), "u1", ActionPostMessage) == nil {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 25, allowed)
}

func TestMemoryStoreSweepsExpiredWindows(t *testing.T) {
	fake := clock.NewFakeClock(time.Unix(0, 0))
	store := NewMemoryStore(fake)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, _, err := store.Incr(ctx, fmt.Sprintf("k%d", i), time.Second)
		require.NoError(t, err)
	}
	assert.Equal(t, 10, store.Len())

	fake.Advance(2 * time.Minute)
	_, _, err := store.Incr(ctx, "fresh", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}
