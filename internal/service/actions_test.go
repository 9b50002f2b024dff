package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
)

func jobFor(objectType domain.ObjectType, objectID string, action domain.JobAction) domain.SchedulerJob {
	return domain.SchedulerJob{
		JobID:         "job_" + string(action),
		ObjectType:    objectType,
		ObjectID:      objectID,
		Action:        action,
		WorkerID:      "worker-1",
		CorrelationID: "corr-1",
	}
}

// stubVerifier returns a fixed verdict.
type stubVerifier struct {
	ok    bool
	calls int
}

func (v *stubVerifier) Verify(ctx context.Context, tx domain.Repositories, objectType domain.ObjectType, objectID string) (Verification, error) {
	v.calls++
	if v.ok {
		return Verification{OK: true, Reason: "stub ok"}, nil
	}
	return Verification{Reason: "stub rejected"}, nil
}

func ingestCognition(t *testing.T, k *testKernel, id string, budget int, refs ...string) {
	t.Helper()
	_, err := k.pipeline.IngestCognition(context.Background(), domain.Cognition{
		ID:               id,
		Rule:             "Refunds under 50 are auto-approved.",
		EpistemicState:   domain.EpistemicUncertain,
		UnknownType:      domain.UnknownMultipath,
		Confidence:       0.6,
		AutoVerifyBudget: budget,
		EvidenceRefs:     refs,
	})
	require.NoError(t, err)
}

func TestApplyJobAction_VerifyMemory(t *testing.T) {
	k := setupKernelTest(t)
	ctx := context.Background()
	_, err := k.pipeline.IngestMemory(ctx, sampleMemory("mem_a"))
	require.NoError(t, err)

	k.clock.Advance(24 * time.Hour)
	res, err := k.pipeline.ApplyJobAction(ctx, jobFor(domain.ObjectMemory, "mem_a", domain.JobActionVerify))
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "candidate", res.FromStatus)
	assert.Equal(t, "active", res.ToStatus)
	require.NotNil(t, res.Verified)
	assert.True(t, *res.Verified)

	m, err := k.pipeline.GetMemory(ctx, "mem_a")
	require.NoError(t, err)
	assert.Equal(t, domain.MemoryStatusActive, m.Status)
	assert.Equal(t, domain.InDays(testStart.Add(24*time.Hour), 7), m.ReviewDueAt)

	events, err := k.audit.List(ctx, domain.AuditFilter{ObjectType: domain.ObjectMemory, ObjectID: "mem_a", Limit: 1})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.ActorWorker, events[0].Actor.Type)
	assert.Equal(t, "worker-1", events[0].Actor.ID)
	assert.Equal(t, "job_verify", events[0].JobID)
	assert.Equal(t, "corr-1", events[0].CorrelationID)
}

func TestApplyJobAction_VerifyFailureOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		objectType domain.ObjectType
		setup      func(t *testing.T, k *testKernel) string
		want       string
	}{
		{
			name:       "memory rejected",
			objectType: domain.ObjectMemory,
			setup: func(t *testing.T, k *testKernel) string {
				_, err := k.pipeline.IngestMemory(context.Background(), sampleMemory("mem_a"))
				require.NoError(t, err)
				return "mem_a"
			},
			want: "rejected_poisoned",
		},
		{
			name:       "experience invalidated",
			objectType: domain.ObjectExperience,
			setup: func(t *testing.T, k *testKernel) string {
				return promoteToExperience(t, k, "mem_a", "s", "o").ExperienceID
			},
			want: "invalidated",
		},
		{
			name:       "cognition stale",
			objectType: domain.ObjectCognition,
			setup: func(t *testing.T, k *testKernel) string {
				ingestCognition(t, k, "cg_a", 2, "ticket-1")
				return "cg_a"
			},
			want: "stale",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := setupKernelTest(t)
			k.pipeline.SetVerifier(&stubVerifier{ok: false})
			id := tt.setup(t, k)

			res, err := k.pipeline.ApplyJobAction(context.Background(), jobFor(tt.objectType, id, domain.JobActionRevalidate))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.ToStatus)
			require.NotNil(t, res.Verified)
			assert.False(t, *res.Verified)
		})
	}
}

func TestApplyJobAction_CognitionBudget(t *testing.T) {
	k := setupKernelTest(t)
	ctx := context.Background()
	k.pipeline.SetVerifier(&stubVerifier{ok: false})
	ingestCognition(t, k, "cg_a", 1, "ticket-1")

	_, err := k.pipeline.ApplyJobAction(ctx, jobFor(domain.ObjectCognition, "cg_a", domain.JobActionVerify))
	require.NoError(t, err)

	c, err := k.pipeline.GetCognition(ctx, "cg_a")
	require.NoError(t, err)
	assert.Equal(t, 0, c.AutoVerifyBudget)
	assert.Equal(t, domain.CognitionStatusStale, c.Status)

	events, err := k.audit.List(ctx, domain.AuditFilter{ObjectType: domain.ObjectCognition, ObjectID: "cg_a", Limit: 1})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, float64(1), events[0].Before["auto_verify_budget"])
	assert.Equal(t, float64(0), events[0].After["auto_verify_budget"])

	_, err = k.pipeline.ApplyJobAction(ctx, jobFor(domain.ObjectCognition, "cg_a", domain.JobActionRevalidate))
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestApplyJobAction_DecayArchive(t *testing.T) {
	k := setupKernelTest(t)
	ctx := context.Background()
	exp := promoteToExperience(t, k, "mem_a", "s", "o")

	res, err := k.pipeline.ApplyJobAction(ctx, jobFor(domain.ObjectExperience, exp.ExperienceID, domain.JobActionDecay))
	require.NoError(t, err)
	assert.Equal(t, "stale", res.ToStatus)
	assert.True(t, res.Changed)

	before := auditCount(t, k, domain.ObjectExperience, exp.ExperienceID)
	res, err = k.pipeline.ApplyJobAction(ctx, jobFor(domain.ObjectExperience, exp.ExperienceID, domain.JobActionDecay))
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, before, auditCount(t, k, domain.ObjectExperience, exp.ExperienceID))

	res, err = k.pipeline.ApplyJobAction(ctx, jobFor(domain.ObjectExperience, exp.ExperienceID, domain.JobActionArchive))
	require.NoError(t, err)
	assert.Equal(t, "archived", res.ToStatus)

	res, err = k.pipeline.ApplyJobAction(ctx, jobFor(domain.ObjectExperience, exp.ExperienceID, domain.JobActionArchive))
	require.NoError(t, err)
	assert.False(t, res.Changed)

	_, err = k.pipeline.ApplyJobAction(ctx, jobFor(domain.ObjectExperience, exp.ExperienceID, domain.JobActionDecay))
	require.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = k.pipeline.ApplyJobAction(ctx, jobFor(domain.ObjectExperience, exp.ExperienceID, domain.JobActionVerify))
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestApplyJobAction_ReinstateCheck(t *testing.T) {
	k := setupKernelTest(t)
	ctx := context.Background()
	verifier := &stubVerifier{ok: false}
	k.pipeline.SetVerifier(verifier)
	_, err := k.pipeline.IngestMemory(ctx, sampleMemory("mem_a"))
	require.NoError(t, err)

	res, err := k.pipeline.ApplyJobAction(ctx, jobFor(domain.ObjectMemory, "mem_a", domain.JobActionReinstateCheck))
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Zero(t, verifier.calls)

	_, err = k.pipeline.ApplyJobAction(ctx, jobFor(domain.ObjectMemory, "mem_a", domain.JobActionDecay))
	require.NoError(t, err)

	res, err = k.pipeline.ApplyJobAction(ctx, jobFor(domain.ObjectMemory, "mem_a", domain.JobActionReinstateCheck))
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, "stale", res.ToStatus)
	events, err := k.audit.List(ctx, domain.AuditFilter{ObjectType: domain.ObjectMemory, ObjectID: "mem_a", Limit: 1})
	require.NoError(t, err)
	assert.Contains(t, events[0].Reason, "reinstate check failed")

	verifier.ok = true
	res, err = k.pipeline.ApplyJobAction(ctx, jobFor(domain.ObjectMemory, "mem_a", domain.JobActionReinstateCheck))
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "active", res.ToStatus)
}

func TestApplyJobAction_Invalid(t *testing.T) {
	k := setupKernelTest(t)
	ctx := context.Background()

	_, err := k.pipeline.ApplyJobAction(ctx, jobFor(domain.ObjectPersona, "persona_a", domain.JobActionVerify))
	require.ErrorIs(t, err, domain.ErrValidationFailed)
	_, err = k.pipeline.ApplyJobAction(ctx, jobFor(domain.ObjectMemory, "mem_a", "promote"))
	require.ErrorIs(t, err, domain.ErrValidationFailed)
	_, err = k.pipeline.ApplyJobAction(ctx, jobFor(domain.ObjectMemory, "mem_missing", domain.JobActionVerify))
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEvidenceVerifier(t *testing.T) {
	k := setupKernelTest(t)
	ctx := context.Background()
	exp := promoteToExperience(t, k, "mem_a", "s", "o")
	ingestCognition(t, k, "cg_live", 2, exp.ExperienceID, "mem_a", "ticket-1")
	ingestCognition(t, k, "cg_dangling", 2, "mem_gone")

	tests := []struct {
		name       string
		objectType domain.ObjectType
		id         string
		want       bool
	}{
		{"memory with evidence", domain.ObjectMemory, "mem_a", true},
		{"experience with live memory", domain.ObjectExperience, exp.ExperienceID, true},
		{"cognition with live refs", domain.ObjectCognition, "cg_live", true},
		{"cognition with dangling ref", domain.ObjectCognition, "cg_dangling", false},
	}

	v := &EvidenceVerifier{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := k.store.WithTx(ctx, func(tx domain.Repositories) error {
				got, err := v.Verify(ctx, tx, tt.objectType, tt.id)
				require.NoError(t, err)
				assert.Equal(t, tt.want, got.OK, got.Reason)
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestEvidenceVerifier_PoisonedMemoryTaintsDependents(t *testing.T) {
	k := setupKernelTest(t)
	ctx := context.Background()
	exp := promoteToExperience(t, k, "mem_a", "s", "o")

	k.pipeline.SetVerifier(&stubVerifier{ok: false})
	_, err := k.pipeline.ApplyJobAction(ctx, jobFor(domain.ObjectMemory, "mem_a", domain.JobActionVerify))
	require.NoError(t, err)

	k.pipeline.SetVerifier(&EvidenceVerifier{})
	res, err := k.pipeline.ApplyJobAction(ctx, jobFor(domain.ObjectExperience, exp.ExperienceID, domain.JobActionVerify))
	require.NoError(t, err)
	assert.Equal(t, "invalidated", res.ToStatus)
	assert.Contains(t, res.Reason, "rejected_poisoned")
}
