package domain

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/disaster-correlation-etl/internal/taxonomy"
)

// Per-record failures. Each one rejects a single record and never the batch.
var (
	ErrInvalidHazardCodeSet         = errors.New("invalid hazard code set")
	ErrInvalidRoleComposition       = errors.New("invalid role composition")
	ErrUnresolvableCorrelationInput = errors.New("unresolvable correlation input")
	ErrInvalidDraftRecord           = errors.New("invalid draft record")
	// ErrSchemaViolation marks a finished record the downstream schema
	// refuses.
	ErrSchemaViolation = errors.New("finished record violates schema")
)

// RecordError reports why one record of a batch was not finished cleanly.
type RecordError struct {
	// Index is the record's position in the batch it arrived in.
	Index    int
	RecordID string
	Err      error
	// Partial is set when the record was still emitted without a
	// correlation id.
	Partial bool
}

func (e *RecordError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("record %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("record %d (%s): %v", e.Index, e.RecordID, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Reason returns a stable low-cardinality label for metrics and reject
// headers.
func (e *RecordError) Reason() string {
	return Reason(e.Err)
}

// Reason maps an error to the label of the sentinel it wraps.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRoleComposition):
		return "invalid_role_composition"
	case errors.Is(err, taxonomy.ErrAmbiguousTaxonomyMapping):
		return "ambiguous_taxonomy_mapping"
	case errors.Is(err, ErrInvalidHazardCodeSet):
		return "invalid_hazard_code_set"
	case errors.Is(err, ErrUnresolvableCorrelationInput):
		return "unresolvable_correlation_input"
	case errors.Is(err, ErrInvalidDraftRecord):
		return "invalid_draft_record"
	case errors.Is(err, ErrSchemaViolation):
		return "schema_violation"
	default:
		return "other"
	}
}
