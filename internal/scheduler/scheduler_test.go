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

func TestScheduler_RunNowTracksStatus(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	var runs atomic.Int32
	require.NoError(t, s.AddCronJob("ok", "Works", "0 0 * * *", func(context.Context) error {
		runs.Add(1)
		return nil
	}, false))
	require.NoError(t, s.AddIntervalJob("fail", "Fails", time.Hour, func(context.Context) error {
		return errors.New("disk full")
	}))
	assert.Error(t, s.AddIntervalJob("ok", "Duplicate", time.Hour, nil))

	s.Start()
	require.NoError(t, s.RunNow("ok"))
	require.NoError(t, s.RunNow("fail"))
	assert.Error(t, s.RunNow("missing"))

	require.Eventually(t, func() bool {
		jobs := s.Jobs()
		return jobs[0].RunCount == 1 && jobs[1].RunCount == 1 &&
			jobs[0].Status == JobStatusFailed && jobs[1].Status == JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "fail", jobs[0].ID)
	assert.Equal(t, "disk full", jobs[0].LastError)
	assert.Equal(t, 1, jobs[0].ErrorCount)
	assert.Equal(t, "every 1h0m0s", jobs[0].Schedule)
	assert.Equal(t, "0 0 * * *", jobs[1].Schedule)
	assert.Equal(t, int32(1), runs.Load())
}

func TestScheduler_RunAtStart(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	done := make(chan struct{})
	require.NoError(t, s.AddCronJob("boot", "Boot", "0 0 * * *", func(context.Context) error {
		close(done)
		return nil
	}, true))
	s.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run at start")
	}
}

func TestScheduler_InvalidCron(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	assert.Error(t, s.AddCronJob("bad", "Bad", "not a cron", func(context.Context) error { return nil }, false))
	assert.Empty(t, s.Jobs())
}
