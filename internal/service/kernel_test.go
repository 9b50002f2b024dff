package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
	"github.com/Harshitk-cp/mindkernel/internal/store"
	"github.com/Harshitk-cp/mindkernel/internal/store/sqlite"
	"github.com/Harshitk-cp/mindkernel/internal/validate"
)

var testStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// failingValidator rejects one schema and defers the rest.
type failingValidator struct {
	inner  domain.Validator
	failOn string
}

func (v *failingValidator) Validate(schema string, payload any) error {
	if schema == v.failOn {
		return errors.Join(domain.ErrSchemaRejected, errors.New("forced failure"))
	}
	return v.inner.Validate(schema, payload)
}

type testKernel struct {
	store     *store.Store
	clock     *fakeClock
	audit     *AuditLog
	pipeline  *PipelineService
	scheduler *SchedulerService
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func setupKernelTest(t *testing.T) *testKernel {
	t.Helper()
	return setupKernelTestWithValidator(t, validate.MustNew())
}

func setupKernelTestWithValidator(t *testing.T, v domain.Validator) *testKernel {
	t.Helper()
	b, err := sqlite.OpenMemory()
	require.NoError(t, err)
	st := store.New(b)
	t.Cleanup(func() { _ = st.Close() })

	clock := &fakeClock{now: testStart}
	audit := NewAuditLog(st, v, testLogger())
	audit.SetClock(clock.Now)
	pipeline := NewPipelineService(st, v, audit, testLogger())
	pipeline.SetClock(clock.Now)
	sched := NewSchedulerService(st, v, audit, testLogger())
	sched.SetClock(clock.Now)

	return &testKernel{store: st, clock: clock, audit: audit, pipeline: pipeline, scheduler: sched}
}

func sampleMemory(id string) domain.Memory {
	return domain.Memory{
		ID:           id,
		Kind:         domain.MemoryKindEvent,
		Content:      "User asked for a refund on order 42.",
		Source:       domain.Source{SourceType: "chat", SourceRef: "session-7"},
		EvidenceRefs: []string{"f1"},
		Confidence:   0.8,
	}
}

func samplePersona(id string, boundaries ...string) domain.Persona {
	return domain.Persona{ID: id, Name: "Support", Boundaries: boundaries}
}

// promoteToExperience ingests a memory and derives an experience from it.
func promoteToExperience(t *testing.T, k *testKernel, memID, summary, outcome string) *ExperienceResult {
	t.Helper()
	ctx := context.Background()
	_, err := k.pipeline.IngestMemory(ctx, sampleMemory(memID))
	require.NoError(t, err)
	res, err := k.pipeline.MemoryToExperience(ctx, memID, summary, outcome)
	require.NoError(t, err)
	return res
}

func auditCount(t *testing.T, k *testKernel, objectType domain.ObjectType, objectID string) int {
	t.Helper()
	events, err := k.store.Audit().List(context.Background(), domain.AuditFilter{ObjectType: objectType, ObjectID: objectID})
	require.NoError(t, err)
	return len(events)
}
