// Package validate is the schema boundary every persisted record crosses.
package validate

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
)

const (
	SchemaMemory        = "memory"
	SchemaExperience    = "experience"
	SchemaPersona       = "persona"
	SchemaCognition     = "cognition"
	SchemaDecisionTrace = "decision_trace"
	SchemaAuditEvent    = "audit_event"
	SchemaSchedulerJob  = "scheduler_job"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// SchemaValidator checks payloads against the embedded JSON Schemas.
type SchemaValidator struct {
	schemas map[string]*jsonschema.Resolved
}

var _ domain.Validator = (*SchemaValidator)(nil)

func New() (*SchemaValidator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read schemas: %w", err)
	}

	v := &SchemaValidator{schemas: make(map[string]*jsonschema.Resolved, len(entries))}
	for _, e := range entries {
		raw, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", e.Name(), err)
		}
		var s jsonschema.Schema
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", e.Name(), err)
		}
		resolved, err := s.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("resolve schema %s: %w", e.Name(), err)
		}
		v.schemas[strings.TrimSuffix(e.Name(), ".json")] = resolved
	}
	return v, nil
}

// MustNew panics if the embedded schemas are malformed.
func MustNew() *SchemaValidator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate reports domain.ErrSchemaRejected with the failing detail.
func (v *SchemaValidator) Validate(schema string, payload any) error {
	rs, ok := v.schemas[schema]
	if !ok {
		return fmt.Errorf("%w: unknown schema %q", domain.ErrSchemaRejected, schema)
	}

	// Validation runs over the wire form so struct tags and time
	// formatting are what get checked.
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %s: encode: %v", domain.ErrSchemaRejected, schema, err)
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return fmt.Errorf("%w: %s: decode: %v", domain.ErrSchemaRejected, schema, err)
	}

	if err := rs.Validate(instance); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrSchemaRejected, schema, err)
	}
	return nil
}

// Names lists the loaded schema names.
func (v *SchemaValidator) Names() []string {
	names := make([]string, 0, len(v.schemas))
	for n := range v.schemas {
		names = append(names, n)
	}
	return names
}
