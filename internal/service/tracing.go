package service

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
	"github.com/Harshitk-cp/mindkernel/internal/store"
)

var tracer = otel.Tracer("github.com/Harshitk-cp/mindkernel/internal/service")

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// lookupErr maps a storage miss onto the kernel's NotFound.
func lookupErr(err error, kind domain.ObjectType, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, kind, id)
	}
	return err
}

// createErr maps a key collision onto DuplicateObject.
func createErr(err error, kind domain.ObjectType, id string) error {
	if errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("%w: %s %s already exists", domain.ErrDuplicateObject, kind, id)
	}
	return err
}

// replaceErr maps a lost version race onto InvalidState.
func replaceErr(err error, kind domain.ObjectType, id string) error {
	if errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("%w: %s %s was modified concurrently", domain.ErrInvalidState, kind, id)
	}
	return err
}
