// Seed script for creating demo data in the configured store.
// Run with: go run ./scripts/seed.go
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/Harshitk-cp/mindkernel/internal/config"
	"github.com/Harshitk-cp/mindkernel/internal/domain"
	"github.com/Harshitk-cp/mindkernel/internal/kernel"
	"github.com/Harshitk-cp/mindkernel/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	k, err := kernel.Open(ctx, cfg, zap.NewNop())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer func() { _ = k.Close() }()

	fmt.Printf("Connected to %s store\n", cfg.StoreDriver)

	persona := domain.Persona{
		ID:         "persona_support",
		Name:       "Support Agent",
		Boundaries: []string{"wire transfer", "share password", "medical diagnosis"},
	}
	if _, err := k.Pipeline.UpsertPersona(ctx, persona); err != nil {
		log.Fatalf("Failed to upsert persona: %v", err)
	}
	fmt.Printf("Upserted persona: %s\n", persona.ID)

	// Each memory runs the full path; the last one trips a persona boundary.
	memories := []struct {
		id      string
		content string
		summary string
		outcome string
		risk    domain.Tier
	}{
		{"mem_demo_pref", "User prefers answers formatted as bullet points", "Formatting preference stated", "Switched to bullets", domain.TierLow},
		{"mem_demo_refund", "User asked for a refund on order 42", "Refund request under policy limit", "Refund issued", domain.TierMedium},
		{"mem_demo_escalate", "User disputes a large charge", "Chargeback dispute", "Escalated to billing", domain.TierHigh},
		{"mem_demo_blocked", "User asked the agent to make a wire transfer", "Request to initiate a wire transfer", "Declined", ""},
	}

	for i, m := range memories {
		res, err := k.Pipeline.RunFullPath(ctx, service.FullPathRequest{
			Memory: domain.Memory{
				ID:           m.id,
				Kind:         domain.MemoryKindEvent,
				Content:      m.content,
				Source:       domain.Source{SourceType: "seed", SourceRef: fmt.Sprintf("demo-%d", i+1)},
				EvidenceRefs: []string{fmt.Sprintf("seed:%d", i+1)},
				Confidence:   0.8,
			},
			Persona:        persona,
			EpisodeSummary: m.summary,
			Outcome:        m.outcome,
			RequestRef:     "seed-" + m.id,
			RiskTier:       m.risk,
		})
		if errors.Is(err, domain.ErrDuplicateObject) {
			fmt.Printf("Skipped %s (already seeded)\n", m.id)
			continue
		}
		if err != nil {
			log.Printf("Warning: Failed to seed %s: %v", m.id, err)
			continue
		}
		fmt.Printf("Seeded %s -> %s\n", m.id, res.Decision.FinalOutcome)

		if _, err := k.Scheduler.Enqueue(ctx, service.EnqueueRequest{
			ObjectType: domain.ObjectMemory,
			ObjectID:   m.id,
			Action:     domain.JobActionVerify,
		}); err != nil {
			log.Printf("Warning: Failed to enqueue verify for %s: %v", m.id, err)
		}
	}

	stats, err := k.Scheduler.Stats(ctx)
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}

	fmt.Println("\n=== Seed Complete ===")
	fmt.Printf("Queued jobs: %d, audit events: %d\n", stats.Counts[domain.JobQueued], stats.AuditEventCount)

	if cfg.APIToken == "" {
		fmt.Printf("\nAPI_TOKEN is not set. To enable auth, add to your env file:\nAPI_TOKEN=%s\n", generateToken())
	}
	fmt.Println("\nTo inspect decisions:")
	fmt.Printf("curl http://localhost:%d/v1/decisions\n", cfg.ServerPort)
}

func generateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}
	return "mk_" + base64.URLEncoding.EncodeToString(b)[:40]
}
