package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/mindkernel/internal/config"
	"github.com/Harshitk-cp/mindkernel/internal/kernel"
)

type cliHarness struct {
	t    *testing.T
	dir  string
	open Opener
}

func newHarness(t *testing.T) *cliHarness {
	t.Helper()
	cfg, err := config.Parse()
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.StoreDriver = config.DriverSQLite
	cfg.SQLitePath = filepath.Join(dir, "cli.db")

	return &cliHarness{
		t:   t,
		dir: dir,
		open: func(ctx context.Context) (*kernel.Kernel, error) {
			return kernel.Open(ctx, cfg, zap.NewNop())
		},
	}
}

func (h *cliHarness) run(args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	err := Run(context.Background(), h.open, args, &out)
	return out.String(), err
}

func (h *cliHarness) runJSON(args ...string) map[string]any {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	var v map[string]any
	require.NoError(h.t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd(DefaultOpener)
	want := []string{
		"init-db", "ingest-memory", "memory-to-experience", "upsert-persona",
		"experience-to-cognition", "ingest-cognition", "cognition-to-decision",
		"blocked-decision", "run-full-path", "enqueue", "pull", "ack", "fail",
		"stats", "work", "sweep", "list-audits", "replay", "verify-audit", "version",
	}
	for _, name := range want {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
			assert.NotEmpty(t, sub.Short)
		})
	}
}

func TestVersionSkipsKernel(t *testing.T) {
	opened := false
	var out bytes.Buffer
	err := Run(context.Background(), func(ctx context.Context) (*kernel.Kernel, error) {
		opened = true
		return nil, nil
	}, []string{"version"}, &out)
	require.NoError(t, err)
	assert.False(t, opened)
	assert.Contains(t, out.String(), "kernelctl")
}

func TestPipelineCommands(t *testing.T) {
	h := newHarness(t)

	status := h.runJSON("init-db")
	assert.Equal(t, "ok", status["status"])

	memFile := writeFile(t, h.dir, "memory.md", memoryMarkdown)
	mem := h.runJSON("ingest-memory", "--file", memFile)
	assert.Equal(t, "mem_md", mem["id"])
	assert.Equal(t, "candidate", mem["status"])

	exp := h.runJSON("memory-to-experience", "--memory-id", "mem_md",
		"--summary", "Customer asked about a refund", "--outcome", "Answered")
	expID := exp["experience_id"].(string)

	personaFile := writeFile(t, h.dir, "persona.yaml", "id: persona_cli\nname: Support\nboundaries:\n  - wire transfer\n")
	persona := h.runJSON("upsert-persona", "--file", personaFile)
	assert.Equal(t, true, persona["created"])

	promo := h.runJSON("experience-to-cognition", "--experience-id", expID, "--persona-id", "persona_cli")
	assert.Equal(t, true, promo["cognition_created"])

	dec := h.runJSON("cognition-to-decision", "--cognition-id", promo["cognition_id"].(string), "--request-ref", "req-cli")
	assert.Equal(t, "limited", dec["final_outcome"])

	replay := h.runJSON("replay", "--object-type", "memory", "--object-id", "mem_md")
	assert.Equal(t, "active", replay["state"].(map[string]any)["status"])

	audits := h.runJSON("list-audits", "--object-type", "experience", "--limit", "5")
	assert.NotZero(t, audits["count"])

	verify := h.runJSON("verify-audit")
	assert.Empty(t, verify["tampered"])

	out, err := h.run("--output", "yaml", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "audit_event_count:")
}

func TestSchedulerCommands(t *testing.T) {
	h := newHarness(t)

	memFile := writeFile(t, h.dir, "memory.json",
		`{"id":"mem_job","kind":"event","content":"note","source":{"source_type":"chat","source_ref":"s"},"evidence_refs":["f1"],"confidence":0.7}`)
	h.runJSON("ingest-memory", "--file", memFile)

	enq := h.runJSON("enqueue", "--object-type", "memory", "--object-id", "mem_job",
		"--action", "verify", "--idempotency-key", "k1")
	assert.Equal(t, false, enq["deduplicated"])
	jobID := enq["job"].(map[string]any)["job_id"].(string)

	again := h.runJSON("enqueue", "--object-type", "memory", "--object-id", "mem_job",
		"--action", "verify", "--idempotency-key", "k1")
	assert.Equal(t, true, again["deduplicated"])

	pulled := h.runJSON("pull", "--worker-id", "w1")
	assert.EqualValues(t, 1, pulled["count"])

	failed := h.runJSON("fail", "--job-id", jobID, "--error", "boom", "--retry-delay", "0")
	assert.Equal(t, "queued", failed["status"])

	work := h.runJSON("work", "--once")
	assert.EqualValues(t, 1, work["pulled"])
	assert.EqualValues(t, 1, work["succeeded"])

	stats := h.runJSON("stats")
	counts := stats["counts"].(map[string]any)
	assert.EqualValues(t, 1, counts["succeeded"])

	sweep := h.runJSON("sweep")
	assert.EqualValues(t, 0, sweep["enqueued"])

	_, err := h.run("ack", "--job-id", jobID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid state")
}

func TestCommandErrors(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("ingest-memory")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")

	_, err = h.run("--output", "xml", "stats")
	require.Error(t, err)

	_, err = h.run("memory-to-experience", "--memory-id", "mem_missing")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not found"), err.Error())
}
