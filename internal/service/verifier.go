package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
	"github.com/Harshitk-cp/mindkernel/internal/store"
)

// Verification is a Verifier's verdict on one object.
type Verification struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
}

// Verifier decides whether an object's evidence still holds. It reads
// through the repositories of the calling transaction.
type Verifier interface {
	Verify(ctx context.Context, tx domain.Repositories, objectType domain.ObjectType, objectID string) (Verification, error)
}

// EvidenceVerifier checks that evidence refs resolve to live, untainted
// objects. Refs without a kernel prefix are external and accepted as is.
type EvidenceVerifier struct{}

func (v *EvidenceVerifier) Verify(ctx context.Context, tx domain.Repositories, objectType domain.ObjectType, objectID string) (Verification, error) {
	switch objectType {
	case domain.ObjectMemory:
		m, err := tx.Memories().GetByID(ctx, objectID)
		if err != nil {
			return Verification{}, lookupErr(err, objectType, objectID)
		}
		return verifyMemory(m), nil

	case domain.ObjectExperience:
		e, err := tx.Experiences().GetByID(ctx, objectID)
		if err != nil {
			return Verification{}, lookupErr(err, objectType, objectID)
		}
		if len(e.MemoryRefs) == 0 {
			return Verification{Reason: "experience has no memory refs"}, nil
		}
		return resolveRefs(ctx, tx, e.MemoryRefs)

	case domain.ObjectCognition:
		c, err := tx.Cognitions().GetByID(ctx, objectID)
		if err != nil {
			return Verification{}, lookupErr(err, objectType, objectID)
		}
		if c.EpistemicState == domain.EpistemicRefuted {
			return Verification{Reason: "cognition is refuted"}, nil
		}
		if len(c.EvidenceRefs) == 0 {
			return Verification{Reason: "cognition has no evidence refs"}, nil
		}
		return resolveRefs(ctx, tx, c.EvidenceRefs)
	}
	return Verification{}, fmt.Errorf("%w: cannot verify object type %q", domain.ErrValidationFailed, objectType)
}

func verifyMemory(m *domain.Memory) Verification {
	if m.Status == domain.MemoryStatusRejectedPoisoned {
		return Verification{Reason: "memory " + m.ID + " is rejected_poisoned"}
	}
	if len(m.EvidenceRefs) == 0 {
		return Verification{Reason: "memory " + m.ID + " has no evidence refs"}
	}
	for _, r := range m.EvidenceRefs {
		if strings.TrimSpace(r) == "" {
			return Verification{Reason: "memory " + m.ID + " has a blank evidence ref"}
		}
	}
	return Verification{OK: true, Reason: "evidence verified"}
}

func resolveRefs(ctx context.Context, tx domain.Repositories, refs []string) (Verification, error) {
	for _, ref := range refs {
		switch {
		case domain.HasPrefix(ref, domain.PrefixMemory):
			m, err := tx.Memories().GetByID(ctx, ref)
			if errors.Is(err, store.ErrNotFound) {
				return Verification{Reason: "memory " + ref + " not found"}, nil
			}
			if err != nil {
				return Verification{}, err
			}
			if m.Status == domain.MemoryStatusRejectedPoisoned {
				return Verification{Reason: "memory " + ref + " is rejected_poisoned"}, nil
			}

		case domain.HasPrefix(ref, domain.PrefixExperience):
			e, err := tx.Experiences().GetByID(ctx, ref)
			if errors.Is(err, store.ErrNotFound) {
				return Verification{Reason: "experience " + ref + " not found"}, nil
			}
			if err != nil {
				return Verification{}, err
			}
			if e.Status == domain.ExperienceStatusInvalidated {
				return Verification{Reason: "experience " + ref + " is invalidated"}, nil
			}
		}
	}
	return Verification{OK: true, Reason: "evidence verified"}, nil
}
