package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
)

func verifyJob(objectID string, runAt time.Time) EnqueueRequest {
	return EnqueueRequest{
		ObjectType: domain.ObjectCognition,
		ObjectID:   objectID,
		Action:     domain.JobActionVerify,
		RunAt:      runAt,
	}
}

func TestSchedulerService_Enqueue_Defaults(t *testing.T) {
	k := setupKernelTest(t)

	res, err := k.scheduler.Enqueue(context.Background(), verifyJob("cg_a", time.Time{}))
	require.NoError(t, err)
	assert.False(t, res.Deduplicated)

	j := res.Job
	assert.True(t, domain.HasPrefix(j.JobID, domain.PrefixJob))
	assert.Equal(t, domain.JobQueued, j.Status)
	assert.Equal(t, domain.PriorityMedium, j.Priority)
	assert.Equal(t, DefaultMaxAttempts, j.MaxAttempts)
	assert.Equal(t, testStart, j.RunAt)
	assert.Equal(t, "cg_a:verify:2026-03-01T09:00:00Z", j.IdempotencyKey)

	events, err := k.audit.List(context.Background(), domain.AuditFilter{ObjectType: domain.ObjectSchedulerJob, ObjectID: j.JobID})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, j.JobID, events[0].JobID)
	assert.Equal(t, "queued", events[0].After["status"])
}

func TestSchedulerService_Enqueue_Idempotent(t *testing.T) {
	k := setupKernelTest(t)
	ctx := context.Background()
	runAt := testStart.Add(time.Hour)

	first, err := k.scheduler.Enqueue(ctx, verifyJob("cg_a", runAt))
	require.NoError(t, err)
	second, err := k.scheduler.Enqueue(ctx, verifyJob("cg_a", runAt))
	require.NoError(t, err)

	assert.True(t, second.Deduplicated)
	assert.Equal(t, first.Job.JobID, second.Job.JobID)

	stats, err := k.scheduler.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Counts[domain.JobQueued])
	assert.Equal(t, 1, stats.AuditEventCount)
}

func TestSchedulerService_Enqueue_ExplicitKey(t *testing.T) {
	k := setupKernelTest(t)
	ctx := context.Background()

	a := verifyJob("cg_a", testStart.Add(time.Hour))
	a.IdempotencyKey = "nightly"
	b := verifyJob("cg_b", testStart.Add(2*time.Hour))
	b.IdempotencyKey = "nightly"

	first, err := k.scheduler.Enqueue(ctx, a)
	require.NoError(t, err)
	second, err := k.scheduler.Enqueue(ctx, b)
	require.NoError(t, err)
	assert.True(t, second.Deduplicated)
	assert.Equal(t, "cg_a", second.Job.ObjectID)
	assert.Equal(t, first.Job.JobID, second.Job.JobID)
}

func TestSchedulerService_Enqueue_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *EnqueueRequest)
	}{
		{"persona target", func(r *EnqueueRequest) { r.ObjectType = domain.ObjectPersona }},
		{"unknown action", func(r *EnqueueRequest) { r.Action = "promote" }},
		{"blank object", func(r *EnqueueRequest) { r.ObjectID = "" }},
		{"past run_at", func(r *EnqueueRequest) { r.RunAt = testStart.Add(-time.Second) }},
		{"bad priority", func(r *EnqueueRequest) { r.Priority = "urgent" }},
		{"negative attempts", func(r *EnqueueRequest) { r.MaxAttempts = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := setupKernelTest(t)
			req := verifyJob("cg_a", testStart)
			tt.mutate(&req)
			_, err := k.scheduler.Enqueue(context.Background(), req)
			require.ErrorIs(t, err, domain.ErrValidationFailed)
		})
	}
}

func TestSchedulerService_Pull_Order(t *testing.T) {
	k := setupKernelTest(t)
	ctx := context.Background()

	enqueue := func(id string, offset time.Duration, p domain.JobPriority) string {
		req := verifyJob(id, testStart.Add(offset))
		req.Priority = p
		res, err := k.scheduler.Enqueue(ctx, req)
		require.NoError(t, err)
		return res.Job.JobID
	}
	lateLow := enqueue("cg_late_low", 10*time.Second, domain.PriorityLow)
	lateHigh := enqueue("cg_late_high", 10*time.Second, domain.PriorityHigh)
	early := enqueue("cg_early", 5*time.Second, domain.PriorityLow)
	enqueue("cg_future", time.Hour, domain.PriorityHigh)

	jobs, err := k.scheduler.Pull(ctx, "worker-1", testStart.Add(20*time.Second), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, []string{early, lateHigh, lateLow}, []string{jobs[0].JobID, jobs[1].JobID, jobs[2].JobID})
	for _, j := range jobs {
		assert.Equal(t, domain.JobRunning, j.Status)
		assert.Equal(t, "worker-1", j.WorkerID)
	}

	again, err := k.scheduler.Pull(ctx, "worker-2", testStart.Add(20*time.Second), 10)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestSchedulerService_Pull_Limit(t *testing.T) {
	k := setupKernelTest(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := k.scheduler.Enqueue(ctx, verifyJob(fmt.Sprintf("cg_%d", i), testStart))
		require.NoError(t, err)
	}

	jobs, err := k.scheduler.Pull(ctx, "worker-1", testStart, 2)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	_, err = k.scheduler.Pull(ctx, " ", testStart, 2)
	require.ErrorIs(t, err, domain.ErrValidationFailed)
}

func TestSchedulerService_Pull_ConcurrentWorkersNeverShareJobs(t *testing.T) {
	k := setupKernelTest(t)
	ctx := context.Background()
	const total = 8
	for i := 0; i < total; i++ {
		_, err := k.scheduler.Enqueue(ctx, verifyJob(fmt.Sprintf("cg_%d", i), testStart))
		require.NoError(t, err)
	}

	var mu sync.Mutex
	seen := make(map[string]string)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		workerID := fmt.Sprintf("worker-%d", w)
		wg.Add(1)
		go func() {
			defer wg.Done()
			jobs, err := k.scheduler.Pull(ctx, workerID, testStart, 3)
			if err != nil {
				t.Errorf("pull: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for _, j := range jobs {
				if prev, ok := seen[j.JobID]; ok {
					t.Errorf("job %s pulled by %s and %s", j.JobID, prev, workerID)
				}
				seen[j.JobID] = workerID
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, total)
}

func TestSchedulerService_AckAndFail_RequireRunning(t *testing.T) {
	k := setupKernelTest(t)
	ctx := context.Background()

	res, err := k.scheduler.Enqueue(ctx, verifyJob("cg_a", testStart))
	require.NoError(t, err)

	_, err = k.scheduler.Ack(ctx, res.Job.JobID)
	require.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = k.scheduler.Fail(ctx, res.Job.JobID, "boom", time.Minute)
	require.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = k.scheduler.Ack(ctx, "job_missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = k.scheduler.Pull(ctx, "worker-1", testStart, 1)
	require.NoError(t, err)
	acked, err := k.scheduler.Ack(ctx, res.Job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobSucceeded, acked.Status)

	_, err = k.scheduler.Ack(ctx, res.Job.JobID)
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestSchedulerService_Fail_RequeuesWithDelay(t *testing.T) {
	k := setupKernelTest(t)
	ctx := context.Background()

	res, err := k.scheduler.Enqueue(ctx, verifyJob("cg_a", testStart))
	require.NoError(t, err)
	_, err = k.scheduler.Pull(ctx, "worker-1", testStart, 1)
	require.NoError(t, err)

	failed, err := k.scheduler.Fail(ctx, res.Job.JobID, "evidence store offline", 90*time.Second)
	require.NoError(t, err)
	assert.Equal(t, domain.JobQueued, failed.Status)
	assert.Equal(t, 1, failed.Attempt)
	assert.Equal(t, testStart.Add(90*time.Second), failed.RunAt)
	assert.Empty(t, failed.WorkerID)
	assert.Equal(t, "evidence store offline", failed.LastError)

	none, err := k.scheduler.Pull(ctx, "worker-1", testStart.Add(time.Minute), 1)
	require.NoError(t, err)
	assert.Empty(t, none)

	events, err := k.audit.List(ctx, domain.AuditFilter{ObjectType: domain.ObjectSchedulerJob, ObjectID: res.Job.JobID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Job failed: evidence store offline", events[0].Reason)
	assert.Equal(t, float64(90), events[0].Metadata["retry_delay_sec"])
}

func TestRetryDelaySeconds(t *testing.T) {
	maxSec := int(MaxRetryDelay / time.Second)
	tests := []struct {
		name    string
		sec     int
		want    time.Duration
		wantErr bool
	}{
		{"zero", 0, 0, false},
		{"minute", 60, time.Minute, false},
		{"upper bound", maxSec, MaxRetryDelay, false},
		{"negative", -1, 0, true},
		{"above bound", maxSec + 1, 0, true},
		{"would overflow", math.MaxInt64 / int(time.Second) * 2, 0, true},
		{"max int", math.MaxInt, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RetryDelaySeconds(tt.sec)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidationFailed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchedulerService_Fail_RejectsExcessiveDelay(t *testing.T) {
	k := setupKernelTest(t)
	ctx := context.Background()

	res, err := k.scheduler.Enqueue(ctx, verifyJob("cg_a", testStart))
	require.NoError(t, err)
	_, err = k.scheduler.Pull(ctx, "worker-1", testStart, 1)
	require.NoError(t, err)

	_, err = k.scheduler.Fail(ctx, res.Job.JobID, "boom", MaxRetryDelay+time.Second)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)

	j, err := k.scheduler.GetJob(ctx, res.Job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobRunning, j.Status)
	assert.Zero(t, j.Attempt)
}

// Scenario: two failures exhaust a two-attempt job.
func TestSchedulerService_RetryLawDeadLetters(t *testing.T) {
	k := setupKernelTest(t)
	ctx := context.Background()

	req := verifyJob("cg_a", testStart)
	req.MaxAttempts = 2
	res, err := k.scheduler.Enqueue(ctx, req)
	require.NoError(t, err)
	id := res.Job.JobID

	jobs, err := k.scheduler.Pull(ctx, "worker-1", testStart, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	first, err := k.scheduler.Fail(ctx, id, "attempt one", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.JobQueued, first.Status)
	assert.Equal(t, 1, first.Attempt)

	jobs, err = k.scheduler.Pull(ctx, "worker-1", testStart, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	second, err := k.scheduler.Fail(ctx, id, "attempt two", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, domain.JobDeadLetter, second.Status)
	assert.Equal(t, 2, second.Attempt)
	assert.Equal(t, first.RunAt, second.RunAt)

	jobs, err = k.scheduler.Pull(ctx, "worker-1", testStart.Add(48*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	stats, err := k.scheduler.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Counts[domain.JobDeadLetter])
	assert.Equal(t, 0, stats.Counts[domain.JobQueued])
	assert.Nil(t, stats.OldestQueuedRunAt)
}

func TestSchedulerService_Stats(t *testing.T) {
	k := setupKernelTest(t)
	ctx := context.Background()

	stats, err := k.scheduler.Stats(ctx)
	require.NoError(t, err)
	for _, st := range domain.AllJobStatuses() {
		v, ok := stats.Counts[st]
		assert.True(t, ok, st)
		assert.Zero(t, v)
	}

	_, err = k.scheduler.Enqueue(ctx, verifyJob("cg_a", testStart.Add(2*time.Hour)))
	require.NoError(t, err)
	_, err = k.scheduler.Enqueue(ctx, verifyJob("cg_b", testStart.Add(time.Hour)))
	require.NoError(t, err)

	stats, err = k.scheduler.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Counts[domain.JobQueued])
	require.NotNil(t, stats.OldestQueuedRunAt)
	assert.Equal(t, testStart.Add(time.Hour), *stats.OldestQueuedRunAt)
	assert.Equal(t, 2, stats.AuditEventCount)
}
