package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type purgerStub struct {
	calls     int32
	retention atomic.Int64
	purgeFn   func(context.Context, time.Duration) (int64, error)
}

func (p *purgerStub) PurgeReadNotifications(ctx context.Context, retention time.Duration) (int64, error) {
	atomic.AddInt32(&p.calls, 1)
	p.retention.Store(int64(retention))
	if p.purgeFn != nil {
		return p.purgeFn(ctx, retention)
	}
	return 3, nil
}

func TestAddNotificationRetention_DisabledByDefault(t *testing.T) {
	s := New(context.Background())
	p := &purgerStub{}

	require.NoError(t, s.AddNotificationRetention("@every 1s", 0, p))
	assert.Empty(t, s.cron.Entries())
}

func TestAddNotificationRetention_RejectsBadSchedule(t *testing.T) {
	s := New(context.Background())
	err := s.AddNotificationRetention("not a schedule", time.Hour, &purgerStub{})
	assert.Error(t, err)
}

func TestNotificationRetention_Runs(t *testing.T) {
	s := New(context.Background())
	p := &purgerStub{}
	require.NoError(t, s.AddNotificationRetention("@every 1s", 24*time.Hour, p))
	require.Len(t, s.cron.Entries(), 1)

	s.Start()
	defer func() { _ = s.Stop(context.Background()) }()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&p.calls) >= 1
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, int64(24*time.Hour), p.retention.Load())
}

func TestRunRetention_SkipsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &purgerStub{}

	runRetention(ctx, time.Hour, p)
	assert.Zero(t, atomic.LoadInt32(&p.calls))
}

func TestRunRetention_LogsFailure(t *testing.T) {
	p := &purgerStub{purgeFn: func(context.Context, time.Duration) (int64, error) {
		return 0, errors.New("db down")
	}}

	runRetention(context.Background(), time.Hour, p)
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.calls))
}
